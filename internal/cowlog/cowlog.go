// Package cowlog provides the leveled, package-wide logging used across
// cowpub. It wraps logrus the way igor's minilog wraps the standard log
// package: a handful of package-level functions backed by one shared
// logger, with a verbosity count driving the level instead of a named
// level string.
package cowlog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
}

// SetVerbosity maps a -v repeat count onto a logrus level. 0 is warnings
// and above (the default); each additional -v drops the threshold by one
// level, bottoming out at Trace.
func SetVerbosity(count int) {
	level := logrus.WarnLevel + logrus.Level(count)
	if level > logrus.TraceLevel {
		level = logrus.TraceLevel
	}
	log.SetLevel(level)
}

// SetOutput redirects logging to w, replacing the current output.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func Debugf(format string, args ...interface{}) { log.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { log.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { log.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { log.Errorf(format, args...) }

// Fatalf logs at fatal level and exits with status 1. Reserved for the
// top-level command dispatch; library code should return errors instead.
func Fatalf(format string, args ...interface{}) {
	log.Fatalf(format, args...)
}

// WithField returns an entry for structured fields, e.g. host/snapshot
// names that should tag every log line for one operation.
func WithField(key string, value interface{}) *logrus.Entry {
	return log.WithField(key, value)
}
