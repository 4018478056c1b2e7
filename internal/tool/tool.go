// Package tool defines the contract of everything a plan can invoke: an
// external program found on disk, or an in-process function.
package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Names of the external JDK tools a plan invokes.
const (
	Javac   = "javac"
	Javadoc = "javadoc"
)

// Result is the outcome of one invocation. Code 0 means success.
type Result struct {
	Code   int
	Stdout string
	Stderr string
}

// Tool runs with an ordered argument list and blocks until it is done. An
// error is returned only when the tool could not run at all; a tool that ran
// and failed reports a nonzero Code.
type Tool interface {
	Invoke(ctx context.Context, args []string) (Result, error)
}

// Func adapts an ordinary function to the Tool interface.
type Func func(ctx context.Context, args []string) (Result, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, args []string) (Result, error) {
	return f(ctx, args)
}

// ExitError is the fatal error produced for a nonzero exit code.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Name, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Check converts a nonzero result into an *ExitError.
func Check(name string, r Result) error {
	if r.Code == 0 {
		return nil
	}
	return &ExitError{Name: name, Code: r.Code, Stderr: r.Stderr}
}

// Process runs an executable as a child process.
type Process struct {
	Path string
	// Dir is the working directory; empty means the current one.
	Dir string
}

// Invoke runs the executable and captures both output streams.
func (p Process) Invoke(ctx context.Context, args []string) (Result, error) {
	cmd := exec.CommandContext(ctx, p.Path, args...)
	cmd.Dir = p.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	r := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return r, nil
	case errors.As(err, &exitErr):
		r.Code = exitErr.ExitCode()
		return r, nil
	default:
		return r, fmt.Errorf("running %s: %w", p.Path, err)
	}
}

// Finder locates external programs. Explicit paths win over the JDK home,
// which wins over the PATH search.
type Finder struct {
	home       string
	paths      map[string]string
	searchPath bool
}

// NewFinder creates a finder. home may be empty; paths maps tool names to
// executables; searchPath enables the PATH fallback.
func NewFinder(home string, paths map[string]string, searchPath bool) *Finder {
	cp := make(map[string]string, len(paths))
	for k, v := range paths {
		cp[k] = v
	}
	return &Finder{home: home, paths: cp, searchPath: searchPath}
}

// Find returns the external tool for name.
func (f *Finder) Find(name string) (Tool, bool) {
	if p, ok := f.paths[name]; ok {
		return Process{Path: p}, true
	}
	if f.home != "" {
		candidate := filepath.Join(f.home, "bin", executable(name))
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return Process{Path: candidate}, true
		}
	}
	if f.searchPath {
		if p, err := exec.LookPath(name); err == nil {
			return Process{Path: p}, true
		}
	}
	return nil, false
}

func executable(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}
