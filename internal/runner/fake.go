package runner

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

// ErrExit is the error the Fake returns for commands configured to fail.
var ErrExit = errors.New("exit status 1")

// Call is one command recorded by the Fake.
type Call struct {
	Name string
	Args []string
}

// String renders the call as a single command line.
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Fake is an in-memory Runner for tests. Commands resolve on its own
// search path, every Run is recorded, and responses are matched on the
// full command line. Unmatched commands succeed with no output.
type Fake struct {
	paths    map[string]string
	handlers map[string]func(Call) ([]byte, error)
	calls    []Call
}

// NewFake returns a Fake with an empty search path.
func NewFake() *Fake {
	return &Fake{
		paths:    make(map[string]string),
		handlers: make(map[string]func(Call) ([]byte, error)),
	}
}

// AddPath makes names resolve on the search path.
func (f *Fake) AddPath(names ...string) *Fake {
	for _, name := range names {
		f.paths[name] = "/usr/local/bin/" + name
	}
	return f
}

// RemovePath makes name stop resolving.
func (f *Fake) RemovePath(name string) *Fake {
	delete(f.paths, name)
	return f
}

// On answers the command line with a fixed output and error.
func (f *Fake) On(line, output string, err error) *Fake {
	return f.OnFunc(line, func(Call) ([]byte, error) {
		return []byte(output), err
	})
}

// OnFunc answers the command line with fn.
func (f *Fake) OnFunc(line string, fn func(Call) ([]byte, error)) *Fake {
	f.handlers[line] = fn
	return f
}

// LookPath resolves name on the fake search path.
func (f *Fake) LookPath(name string) (string, error) {
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

// Run records the call and returns the configured response.
func (f *Fake) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	call := Call{Name: name, Args: append([]string(nil), args...)}
	f.calls = append(f.calls, call)
	if fn, ok := f.handlers[call.String()]; ok {
		return fn(call)
	}
	return nil, nil
}

// Lines returns every recorded call as a command line, in order.
func (f *Fake) Lines() []string {
	lines := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		lines = append(lines, c.String())
	}
	return lines
}

// Index returns the position of the first call matching line, or -1.
func (f *Fake) Index(line string) int {
	for i, c := range f.calls {
		if c.String() == line {
			return i
		}
	}
	return -1
}

// Ran reports whether line was executed.
func (f *Fake) Ran(line string) bool {
	return f.Index(line) >= 0
}
