package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/vk/modforge/internal/ctxlog"
	"github.com/vk/modforge/internal/folder"
	"github.com/vk/modforge/internal/layout"
	"github.com/vk/modforge/internal/planner"
	"github.com/vk/modforge/internal/project"
	"github.com/vk/modforge/internal/projectfile"
	"github.com/vk/modforge/internal/summary"
	"github.com/vk/modforge/internal/task"
	"github.com/vk/modforge/internal/tool"
	"github.com/vk/modforge/internal/version"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	logger  *slog.Logger
	summary *summary.Summary
	fs      afero.Fs
	config  *Config
	folder  folder.Folder
	tools   map[string]tool.Tool
}

// Option customizes an App.
type Option func(*App)

// WithFs replaces the OS file system. Tools started as processes still see
// the real one.
func WithFs(fsys afero.Fs) Option {
	return func(a *App) { a.fs = fsys }
}

// WithTool registers t as the external tool name, ahead of any tool found on
// disk.
func WithTool(name string, t tool.Tool) Option {
	return func(a *App) { a.tools[name] = t }
}

// NewApp is the constructor for the main application. It returns an App with
// its own isolated logger and summary.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) *App {
	s := summary.New()
	a := &App{
		logger:  newLogger(cfg.LogLevel, cfg.LogFormat, outW, s),
		summary: s,
		fs:      afero.NewOsFs(),
		config:  cfg,
		folder:  folder.New(cfg.BaseDir),
		tools:   map[string]tool.Tool{},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger.Debug("App created.", "base", a.folder, "dry_run", cfg.DryRun, "workers", cfg.Workers)
	return a
}

// Summary returns the log of the App's runs.
func (a *App) Summary() *summary.Summary {
	return a.summary
}

// Folder returns the project folder.
func (a *App) Folder() folder.Folder {
	return a.folder
}

// settings is the merge of the project file and the configuration, the
// configuration taking precedence.
type settings struct {
	options project.Options
	feature int
	tools   map[string]string
}

func (a *App) settings(ctx context.Context) (*settings, error) {
	file, err := projectfile.Load(ctx, a.fs, a.folder)
	if err != nil {
		return nil, err
	}

	s := &settings{
		options: project.Options{Name: file.Name, Version: file.Version, Layout: file.Layout},
		feature: file.Feature,
		tools:   maps.Clone(file.Tools),
	}
	if a.config.Name != "" {
		s.options.Name = a.config.Name
	}
	if a.config.Version != "" {
		v, err := version.Parse(a.config.Version)
		if err != nil {
			return nil, err
		}
		s.options.Version = v
	}
	if a.config.Layout != "" {
		l, err := layout.Parse(a.config.Layout)
		if err != nil {
			return nil, err
		}
		s.options.Layout = l
	}
	if a.config.Feature > 0 {
		s.feature = a.config.Feature
	}
	if s.tools == nil {
		s.tools = map[string]string{}
	}
	maps.Copy(s.tools, a.config.Tools)
	return s, nil
}

// Load builds the project model.
func (a *App) Load(ctx context.Context) (*project.Project, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	p, _, err := a.load(ctx)
	return p, err
}

func (a *App) load(ctx context.Context) (*project.Project, *settings, error) {
	s, err := a.settings(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load project file: %w", err)
	}
	p, err := project.Build(ctx, a.fs, a.folder, s.options)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build project model: %w", err)
	}
	return p, s, nil
}

// Plan derives the build plan without running it.
func (a *App) Plan(ctx context.Context) (*task.Plan, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	p, s, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return a.plan(ctx, p, s)
}

func (a *App) plan(ctx context.Context, p *project.Project, s *settings) (*task.Plan, error) {
	plan, err := planner.New(a.folder, p, planner.Options{Fs: a.fs, Feature: s.feature}).Plan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to plan build: %w", err)
	}
	return plan, nil
}

// PrintPlan writes the plan tree to w, one task per line.
func (a *App) PrintPlan(ctx context.Context, w io.Writer) error {
	plan, err := a.Plan(ctx)
	if err != nil {
		return err
	}
	var werr error
	task.Print(plan, "  ", func(line string) {
		if werr == nil {
			_, werr = fmt.Fprintln(w, line)
		}
	})
	return werr
}

// Info writes the detected project model to w.
func (a *App) Info(ctx context.Context, w io.Writer) error {
	p, err := a.Load(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "project %s %s\n", p.Name(), p.Version())
	fmt.Fprintf(w, "layout  %s\n", p.Layout())
	for _, r := range p.Realms() {
		fmt.Fprintf(w, "realm   %s", r.Name())
		for _, d := range r.Dependencies() {
			fmt.Fprintf(w, " <- %s", d.Name())
		}
		fmt.Fprintln(w)
		for _, m := range r.Modules() {
			fmt.Fprintf(w, "  module %s (%s)", m.Name, filepath.ToSlash(m.Dir))
			if m.MultiRelease() {
				fmt.Fprintf(w, " releases=%v", m.Releases)
			}
			if len(m.Descriptor.Requires) > 0 {
				fmt.Fprintf(w, " requires=%v", m.Descriptor.Requires)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}
