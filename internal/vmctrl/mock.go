package vmctrl

import (
	"context"
	"sync"

	"github.com/cowpub/cowpub/internal/cowlog"
)

// MockManager is a test double mirroring igor's MockBackend: it logs each
// call and returns canned results instead of shelling to virsh.
type MockManager struct {
	mu      sync.Mutex
	Running map[string]bool
	DiskMap map[string][]string

	Started []string
	Resets  []string
}

// NewMockManager constructs a MockManager with empty state.
func NewMockManager() *MockManager {
	return &MockManager{
		Running: map[string]bool{},
		DiskMap: map[string][]string{},
	}
}

func (m *MockManager) IsRunning(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cowlog.Debugf("mock vmctrl: is_running(%s)", name)
	return m.Running[name], nil
}

func (m *MockManager) Start(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cowlog.Debugf("mock vmctrl: start(%s)", name)
	m.Running[name] = true
	m.Started = append(m.Started, name)
	return nil
}

func (m *MockManager) Reset(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cowlog.Debugf("mock vmctrl: reset(%s)", name)
	m.Resets = append(m.Resets, name)
	return nil
}

func (m *MockManager) Disks(ctx context.Context, name string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.DiskMap[name], nil
}
