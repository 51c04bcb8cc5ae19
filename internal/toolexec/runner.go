// Package toolexec runs external tools as blocking subprocesses behind an interface that tests
// can replace.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	osexec "os/exec"
	"strings"
	"sync"
)

// Runner executes external commands synchronously.
type Runner interface {
	// Run executes a command and returns its combined stdout and stderr.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunInDir executes a command in a specific working directory.
	RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExitError reports a command that ran but exited unsuccessfully.
type ExitError struct {
	Command string
	Code    int
	Output  []byte
}

func (e *ExitError) Error() string {
	out := strings.TrimSpace(string(e.Output))
	if len(out) > 512 {
		out = "..." + out[len(out)-512:]
	}

	if out == "" {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
	}

	return fmt.Sprintf("%s: exit status %d: %s", e.Command, e.Code, out)
}

// OSRunner implements Runner using os/exec.
type OSRunner struct {
	// Env overrides environment variables (nil = inherit from parent)
	Env []string
}

// NewOSRunner creates a new OS-based command runner.
func NewOSRunner() *OSRunner {
	return &OSRunner{}
}

// Run implements Runner.
func (r *OSRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return r.RunInDir(ctx, "", name, args...)
}

// RunInDir implements Runner. A non-zero exit is returned as *ExitError.
func (r *OSRunner) RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := osexec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	if r.Env != nil {
		cmd.Env = r.Env
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()

	var exit *osexec.ExitError
	if errors.As(err, &exit) {
		return out.Bytes(), &ExitError{Command: name, Code: exit.ExitCode(), Output: out.Bytes()}
	}

	if err != nil {
		return out.Bytes(), fmt.Errorf("failed to run %s: %w", name, err)
	}

	return out.Bytes(), nil
}

// Call records one invocation of a MockRunner.
type Call struct {
	Name string
	Args []string
	Dir  string
}

// Response is the canned result of a mocked command.
type Response struct {
	Output []byte
	Err    error
	// Effect runs before the response is returned, e.g. to create the files the tool would.
	Effect func(args []string) error
}

// MockRunner implements Runner for tests. Responses are keyed by command name.
type MockRunner struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string]Response
}

// NewMockRunner creates a mock runner with no responses; unknown commands succeed silently.
func NewMockRunner() *MockRunner {
	return &MockRunner{responses: make(map[string]Response)}
}

// AddResponse sets the response for a command name.
func (m *MockRunner) AddResponse(name string, resp Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses[name] = resp
}

// Calls returns the recorded invocations.
func (m *MockRunner) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Call(nil), m.calls...)
}

// Run implements Runner.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return m.RunInDir(ctx, "", name, args...)
}

// RunInDir implements Runner.
func (m *MockRunner) RunInDir(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Name: name, Args: args, Dir: dir})
	resp := m.responses[name]
	m.mu.Unlock()

	if resp.Effect != nil {
		if err := resp.Effect(args); err != nil {
			return nil, err
		}
	}

	return resp.Output, resp.Err
}
