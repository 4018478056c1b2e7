// Package builtin holds the fixed table of actions that run in process when
// no external tool of the same name exists.
package builtin

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/vk/modforge/internal/ctxlog"
	"github.com/vk/modforge/internal/registry"
	"github.com/vk/modforge/internal/summary"
	"github.com/vk/modforge/internal/task"
	"github.com/vk/modforge/internal/tool"
)

// Names of the built-in actions.
const (
	CreateDirectories = "create-directories"
	WriteSummary      = "write-summary"
	Jar               = "jar"
)

// Env is what the actions may touch.
type Env struct {
	Fs      afero.Fs
	Summary *summary.Summary
	// Title heads the summary document.
	Title string
	// Root is the plan being executed; it is listed in the summary.
	Root task.Task
}

type action func(ctx context.Context, env *Env, args []string) (tool.Result, error)

var table = map[string]action{
	CreateDirectories: createDirectories,
	WriteSummary:      writeSummary,
	Jar:               jar,
}

// Register adds every built-in action to reg, bound to env.
func Register(reg *registry.Registry, env *Env) {
	for name, fn := range table {
		reg.RegisterAction(name, tool.Func(func(ctx context.Context, args []string) (tool.Result, error) {
			return fn(ctx, env, args)
		}))
	}
}

func failed(format string, a ...any) (tool.Result, error) {
	return tool.Result{Code: 1, Stderr: fmt.Sprintf(format, a...)}, nil
}

func createDirectories(ctx context.Context, env *Env, args []string) (tool.Result, error) {
	for _, dir := range args {
		if err := env.Fs.MkdirAll(dir, 0o755); err != nil {
			return failed("creating %s: %v", dir, err)
		}
		ctxlog.FromContext(ctx).DebugContext(ctx, "Directory ensured.", "path", dir)
	}
	return tool.Result{}, nil
}

func writeSummary(ctx context.Context, env *Env, args []string) (tool.Result, error) {
	if len(args) != 1 {
		return failed("usage: %s <file>", WriteSummary)
	}
	file := args[0]
	if err := env.Fs.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return failed("creating directory for %s: %v", file, err)
	}
	ctxlog.FromContext(ctx).InfoContext(ctx, "Writing summary.", "path", file)

	var buf bytes.Buffer
	if err := env.Summary.Write(&buf, env.Title, env.Root); err != nil {
		return failed("rendering summary: %v", err)
	}
	if err := afero.WriteFile(env.Fs, file, buf.Bytes(), 0o644); err != nil {
		return failed("writing %s: %v", file, err)
	}
	return tool.Result{Stdout: file}, nil
}
