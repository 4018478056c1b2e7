package app

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/vk/modforge/internal/builtin"
	"github.com/vk/modforge/internal/ctxlog"
	"github.com/vk/modforge/internal/executor"
	"github.com/vk/modforge/internal/registry"
	"github.com/vk/modforge/internal/task"
	"github.com/vk/modforge/internal/tool"
)

// Run builds the project: it derives the plan, checks that every tool the
// plan names can be resolved and executes it. The summary document is
// written even when the build fails or nothing was invoked.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	p, s, err := a.load(ctx)
	if err != nil {
		return err
	}
	plan, err := a.plan(ctx, p, s)
	if err != nil {
		return err
	}
	title := fmt.Sprintf("%s %s", p.Name(), p.Version())

	reg := registry.New(tool.NewFinder(a.config.JDKHome, s.tools, a.config.SearchPath))
	for name, t := range a.tools {
		reg.RegisterTool(name, t)
	}
	builtin.Register(reg, &builtin.Env{Fs: a.fs, Summary: a.summary, Title: title, Root: plan})

	if err := reg.Validate(plan); err != nil {
		return fmt.Errorf("plan cannot run: %w", err)
	}
	a.logger.Debug("Registry validation passed.", "actions", reg.Actions())

	a.logger.Info("Starting build.", "project", p.Name(), "version", p.Version(), "tasks", len(task.Calls(plan)))
	exec := executor.New(reg, a.summary, executor.Options{DryRun: a.config.DryRun, Workers: a.config.Workers})
	if err := exec.Execute(ctx, plan); err != nil {
		a.logger.ErrorContext(ctx, "Build failed.", "error", err)
		if werr := a.writeSummary(title, plan); werr != nil {
			a.logger.Error("Writing summary failed.", "error", werr)
		}
		return fmt.Errorf("execution failed: %w", err)
	}
	if a.config.DryRun {
		if err := a.writeSummary(title, plan); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}
	a.logger.Info("Build finished.", "project", p.Name())
	return nil
}

func (a *App) writeSummary(title string, plan task.Task) error {
	file := a.folder.Summary()
	var buf bytes.Buffer
	if err := a.summary.Write(&buf, title, plan); err != nil {
		return err
	}
	if err := a.fs.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(a.fs, file, buf.Bytes(), 0o644)
}
