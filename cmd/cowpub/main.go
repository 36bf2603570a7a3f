// Command cowpub is the top-level orchestrator from spec.md §4.14/C15: it
// wires the add, clean, enable_cache and disable_cache subcommands around
// an advisory file lock, following the cobra-root-command shape the
// pack's phenix CLI (phenix/cmd/root.go) uses, generalized from igor's
// own flag.FlagSet-per-command dispatcher (main.go) to cobra since this
// CLI has enough nested per-subcommand flags to want it.
package main

func main() {
	Execute()
}
