package builtin

import (
	"context"
	"strconv"
	"strings"

	"github.com/vk/modforge/internal/archive"
	"github.com/vk/modforge/internal/ctxlog"
	"github.com/vk/modforge/internal/tool"
)

// jar understands the subset of the archiver's command line that plans use:
//
//	--version
//	--create --file F [--module-version V] [--main-class C] -C DIR . [--release N -C DIR . ...]
//	--describe-module --file F [--release N]
func jar(ctx context.Context, env *Env, args []string) (tool.Result, error) {
	var (
		mode     string
		spec     archive.Spec
		release  int
		describe = 0
	)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		next := func() (string, bool) {
			if i+1 >= len(args) {
				return "", false
			}
			i++
			return args[i], true
		}
		switch arg {
		case "--version":
			return tool.Result{Stdout: "jar (modforge built-in)\n"}, nil
		case "--create", "-c":
			mode = "create"
		case "--describe-module", "-d":
			mode = "describe"
		case "--file", "-f":
			v, ok := next()
			if !ok {
				return failed("%s requires a value", arg)
			}
			spec.File = v
		case "--module-version":
			v, ok := next()
			if !ok {
				return failed("%s requires a value", arg)
			}
			spec.ModuleVersion = v
		case "--main-class", "-e":
			v, ok := next()
			if !ok {
				return failed("%s requires a value", arg)
			}
			spec.MainClass = v
		case "--release":
			v, ok := next()
			n, err := strconv.Atoi(v)
			if !ok || err != nil || n < 9 {
				return failed("--release requires a version of at least 9, got %q", v)
			}
			release = n
			describe = n
		case "-C":
			dir, ok := next()
			if !ok {
				return failed("-C requires a directory")
			}
			if what, ok := next(); !ok || what != "." {
				return failed("-C %s must be followed by '.'", dir)
			}
			spec.Roots = append(spec.Roots, archive.Root{Release: release, Dir: dir})
		default:
			return failed("unsupported option %q", arg)
		}
	}

	if spec.File == "" {
		return failed("--file is required")
	}
	logger := ctxlog.FromContext(ctx)
	switch mode {
	case "create":
		if err := archive.Create(env.Fs, spec); err != nil {
			return failed("%v", err)
		}
		logger.DebugContext(ctx, "Archive created.", "file", spec.File, "roots", len(spec.Roots))
		return tool.Result{}, nil
	case "describe":
		if describe == 0 {
			describe = 1 << 16
		}
		r, err := archive.Open(env.Fs, spec.File)
		if err != nil {
			return failed("%v", err)
		}
		d, err := r.Descriptor(describe)
		if err != nil {
			return failed("%s: %v", spec.File, err)
		}
		return tool.Result{Stdout: d.String() + "\n"}, nil
	}
	return failed("one of --create, --describe-module or --version is required; got %s", strings.Join(args, " "))
}
