package encoder

import (
	"context"
	"os/exec"
	"sync"
)

// CommandRunner runs an external program and returns its combined output.
// This abstraction enables unit testing without a real encoder binary.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner implements CommandRunner with os/exec. The process is killed
// when ctx is done.
type ExecRunner struct{}

// Run executes name with args.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// MockRunner records commands and returns a canned result.
type MockRunner struct {
	mu       sync.Mutex
	Output   []byte
	Err      error
	Commands [][]string
	// Hook, when set, runs before the canned result is returned, with the
	// full command line.
	Hook func(cmd []string)
}

// Run records the command line.
func (m *MockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := append([]string{name}, args...)
	m.Commands = append(m.Commands, cmd)
	if m.Hook != nil {
		m.Hook(cmd)
	}
	return m.Output, m.Err
}

// LastCommand returns the most recent command line, or nil.
func (m *MockRunner) LastCommand() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Commands) == 0 {
		return nil
	}
	return m.Commands[len(m.Commands)-1]
}
