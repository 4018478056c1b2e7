// Package executor interprets a plan tree. Sequential plans run their
// children in order on the calling goroutine and stop at the first failure.
// Parallel plans start one goroutine per child and wait for every child to
// finish, failed or not, before reporting the joined errors.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/vk/modforge/internal/ctxlog"
	"github.com/vk/modforge/internal/registry"
	"github.com/vk/modforge/internal/summary"
	"github.com/vk/modforge/internal/task"
	"github.com/vk/modforge/internal/tool"
)

// Resolver maps tool names to tools.
type Resolver interface {
	Lookup(name string) (tool.Tool, registry.Tier, error)
}

// Options tune an execution.
type Options struct {
	// DryRun logs calls instead of running them.
	DryRun bool
	// Workers caps the goroutines of each parallel plan; 0 means one per child.
	Workers int
}

// Executor runs plan trees. It is safe to run several trees concurrently.
type Executor struct {
	resolver Resolver
	summary  *summary.Summary
	opts     Options
}

// New creates an executor. Lanes for parallel branches are allocated from s;
// a nil s gets a private summary nobody reads.
func New(resolver Resolver, s *summary.Summary, opts Options) *Executor {
	if s == nil {
		s = summary.New()
	}
	return &Executor{resolver: resolver, summary: s, opts: opts}
}

// Execute runs t and returns the first failure of a sequential path, or the
// joined failures of a parallel plan.
func (e *Executor) Execute(ctx context.Context, t task.Task) error {
	switch t := t.(type) {
	case task.Call:
		return e.call(ctx, t)
	case *task.Plan:
		return e.plan(ctx, t)
	default:
		return fmt.Errorf("unsupported task type %T", t)
	}
}

func (e *Executor) plan(ctx context.Context, p *task.Plan) error {
	logger := ctxlog.FromContext(ctx)
	children := p.Children()
	if len(children) == 0 {
		logger.InfoContext(ctx, "Nothing to do.", "plan", p.Name())
		return nil
	}

	if !p.Parallel() {
		logger.DebugContext(ctx, "Running plan sequentially.", "plan", p.Name(), "tasks", len(children))
		for _, child := range children {
			if err := e.Execute(ctx, child); err != nil {
				return err
			}
		}
		return nil
	}

	logger.DebugContext(ctx, "Running plan in parallel.", "plan", p.Name(), "tasks", len(children))
	base := pool.New()
	if e.opts.Workers > 0 {
		base = base.WithMaxGoroutines(e.opts.Workers)
	}
	wp := base.WithErrors()
	for _, child := range children {
		childCtx := summary.WithLane(ctx, e.summary.NextLane())
		wp.Go(func() error {
			return e.Execute(childCtx, child)
		})
	}
	if err := wp.Wait(); err != nil {
		logger.ErrorContext(ctx, "Parallel plan failed.", "plan", p.Name())
		return err
	}
	return nil
}

func (e *Executor) call(ctx context.Context, c task.Call) error {
	logger := ctxlog.FromContext(ctx).With("tool", c.Name())

	t, tier, err := e.resolver.Lookup(c.Name())
	if err != nil {
		logger.ErrorContext(ctx, "Tool lookup failed.", "error", err)
		return err
	}

	logger.InfoContext(ctx, "Invoking.", "tier", tier, "args", strings.Join(c.Args(), " "))
	if e.opts.DryRun {
		logger.InfoContext(ctx, "Dry run, not invoked.")
		return nil
	}

	start := time.Now()
	r, err := t.Invoke(ctx, c.Args())
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		logger.ErrorContext(ctx, "Invocation failed.", "error", err, "elapsed", elapsed)
		return fmt.Errorf("invoking %s: %w", c.Name(), err)
	}
	if out := strings.TrimSpace(r.Stdout); out != "" {
		logger.InfoContext(ctx, out)
	}
	if r.Code != 0 {
		logger.ErrorContext(ctx, "Tool failed.", "code", r.Code, "stderr", strings.TrimSpace(r.Stderr), "elapsed", elapsed)
		return tool.Check(c.Name(), r)
	}
	if errOut := strings.TrimSpace(r.Stderr); errOut != "" {
		logger.WarnContext(ctx, errOut)
	}
	logger.InfoContext(ctx, "Done.", "elapsed", elapsed)
	return nil
}
