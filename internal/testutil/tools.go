package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/vk/modforge/internal/fsutil"
	"github.com/vk/modforge/internal/tool"
)

// Recorder remembers every invocation made through the tools it creates.
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

// Calls returns "name arg1 arg2 ..." for every invocation in the order the
// invocations started.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Tool returns a tool that records its invocation and then runs fn. A nil
// fn succeeds without output.
func (r *Recorder) Tool(name string, fn tool.Func) tool.Tool {
	return tool.Func(func(ctx context.Context, args []string) (tool.Result, error) {
		r.mu.Lock()
		r.calls = append(r.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
		r.mu.Unlock()
		if fn == nil {
			return tool.Result{}, nil
		}
		return fn(ctx, args)
	})
}

// Exit returns a tool behavior that fails with code and stderr.
func Exit(code int, stderr string) tool.Func {
	return func(context.Context, []string) (tool.Result, error) {
		return tool.Result{Code: code, Stderr: stderr}, nil
	}
}

// FakeCompiler imitates the compiler on fsys by copying sources instead of
// translating them. Module compilations copy every module's source
// directory, resolved through --module-source-path, into <-d>/<module>;
// explicit source files are copied into <-d> by base name.
func FakeCompiler(fsys afero.Fs) tool.Func {
	return func(_ context.Context, args []string) (tool.Result, error) {
		if isVersion(args) {
			return tool.Result{Stdout: "javac 17 (fake)\n"}, nil
		}
		var modules, sourcePath []string
		var dest string
		var files []string
		for i := 0; i < len(args); i++ {
			switch args[i] {
			case "--module":
				i++
				modules = strings.Split(args[i], ",")
			case "--module-source-path":
				i++
				sourcePath = strings.Split(args[i], string(os.PathListSeparator))
			case "-d":
				i++
				dest = args[i]
			case "--release", "--module-path", "--patch-module", "--module-version", "-encoding":
				i++
			default:
				if strings.HasSuffix(args[i], ".java") {
					files = append(files, args[i])
				}
			}
		}
		if dest == "" {
			return tool.Result{Code: 2, Stderr: "error: no -d given"}, nil
		}
		for _, m := range modules {
			copied := false
			for _, template := range sourcePath {
				dir := strings.ReplaceAll(template, "*", m)
				srcs, err := fsutil.FilesWithSuffix(fsys, dir, "")
				if err != nil {
					return tool.Result{}, err
				}
				for _, src := range srcs {
					rel, _ := filepath.Rel(dir, src)
					if err := copyFile(fsys, src, filepath.Join(dest, m, rel)); err != nil {
						return tool.Result{}, err
					}
					copied = true
				}
			}
			if !copied {
				return tool.Result{Code: 2, Stderr: "error: module not found: " + m}, nil
			}
		}
		for _, src := range files {
			if err := copyFile(fsys, src, filepath.Join(dest, filepath.Base(src))); err != nil {
				return tool.Result{Code: 2, Stderr: err.Error()}, nil
			}
		}
		return tool.Result{}, nil
	}
}

// FakeDocumenter creates an index page in the -d directory.
func FakeDocumenter(fsys afero.Fs) tool.Func {
	return func(_ context.Context, args []string) (tool.Result, error) {
		if isVersion(args) {
			return tool.Result{Stdout: "javadoc 17 (fake)\n"}, nil
		}
		for i := 0; i+1 < len(args); i++ {
			if args[i] == "-d" {
				dir := args[i+1]
				if err := fsys.MkdirAll(dir, 0o755); err != nil {
					return tool.Result{}, err
				}
				return tool.Result{}, afero.WriteFile(fsys, filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644)
			}
		}
		return tool.Result{Code: 2, Stderr: "error: no -d given"}, nil
	}
}

func isVersion(args []string) bool {
	return len(args) == 1 && args[0] == "--version"
}

func copyFile(fsys afero.Fs, src, dst string) error {
	data, err := afero.ReadFile(fsys, src)
	if err != nil {
		return err
	}
	if err := fsys.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fsys, dst, data, 0o644)
}
