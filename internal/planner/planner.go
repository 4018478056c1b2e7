// Package planner turns a project model into the plan tree that builds it.
// Planning has no side effects: it only reads the file system to list the
// sources of multi-release overlays, and planning the same project twice
// yields equal trees.
package planner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/vk/modforge/internal/builtin"
	"github.com/vk/modforge/internal/ctxlog"
	"github.com/vk/modforge/internal/folder"
	"github.com/vk/modforge/internal/multirelease"
	"github.com/vk/modforge/internal/project"
	"github.com/vk/modforge/internal/task"
	"github.com/vk/modforge/internal/tool"
)

// Tool names the plans invoke.
const (
	Javac   = tool.Javac
	Jar     = builtin.Jar
	Javadoc = tool.Javadoc
)

// DefaultFeature is the runtime feature release assumed when none is given.
const DefaultFeature = 17

// Options tune planning.
type Options struct {
	// Fs is read to list overlay sources; nil means the OS file system.
	Fs afero.Fs
	// Feature is the highest release multi-release modules are compiled for.
	Feature int
}

// Planner derives plans for one project.
type Planner struct {
	folder   folder.Folder
	project  *project.Project
	releases *multirelease.Builder
}

// New creates a planner.
func New(f folder.Folder, p *project.Project, opts Options) *Planner {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Feature <= 0 {
		opts.Feature = DefaultFeature
	}
	return &Planner{
		folder:   f,
		project:  p,
		releases: multirelease.NewBuilder(opts.Fs, f, p, opts.Feature),
	}
}

// Plan returns the complete build plan:
//
//	Build <name> <version>
//	  create-directories <out>
//	  Print tool versions [parallel]
//	  Compile and document [parallel]
//	    Compile all realms
//	    Generate documentation
//	  write-summary <out>/summary.md
func (pl *Planner) Plan(ctx context.Context) (*task.Plan, error) {
	logger := ctxlog.FromContext(ctx)

	realms := pl.project.Realms()
	compile := make([]task.Task, 0, len(realms))
	for _, r := range realms {
		rp, err := pl.Realm(ctx, r)
		if err != nil {
			return nil, err
		}
		compile = append(compile, rp)
	}

	root := task.Sequence(
		fmt.Sprintf("Build %s %s", pl.project.Name(), pl.project.Version()),
		task.NewCall(builtin.CreateDirectories, pl.folder.Out()),
		task.Parallel("Print tool versions",
			task.NewCall(Javac, "--version"),
			task.NewCall(Jar, "--version"),
			task.NewCall(Javadoc, "--version"),
		),
		task.Parallel("Compile and document",
			task.Sequence("Compile all realms", compile...),
			pl.Documentation(),
		),
		task.NewCall(builtin.WriteSummary, pl.folder.Summary()),
	)
	logger.DebugContext(ctx, "Plan derived.", "plan", root.Name(), "calls", len(task.Calls(root)))
	return root, nil
}

// Realm returns the plan that compiles and packages one realm. An empty realm
// yields a plan without children.
func (pl *Planner) Realm(ctx context.Context, r *project.Realm) (*task.Plan, error) {
	if r.Empty() {
		ctxlog.FromContext(ctx).InfoContext(ctx, "Realm has no modules.", "realm", r.Name())
		return task.Noop("No modules in realm " + r.Name()), nil
	}

	var tasks []task.Task
	var regular []string
	multi := false
	for _, m := range r.Modules() {
		if !m.MultiRelease() {
			regular = append(regular, m.Name)
			continue
		}
		mp, err := pl.releases.Plan(ctx, r, m)
		if err != nil {
			return nil, fmt.Errorf("planning realm %s: %w", r.Name(), err)
		}
		tasks = append(tasks, mp)
		multi = true
	}

	if len(regular) > 0 {
		tasks = append(tasks, pl.compile(r, regular, multi))
	}
	tasks = append(tasks, pl.packaging(r))
	return task.Sequence(fmt.Sprintf("Compile %s realm", r.Name()), tasks...), nil
}

// compile builds the single compiler invocation for the regular modules of
// a realm. When the realm also holds multi-release modules their archives,
// already packaged by then, join the module path.
func (pl *Planner) compile(r *project.Realm, modules []string, multi bool) task.Call {
	args := []string{
		"--module", strings.Join(modules, ","),
		"--module-source-path", r.ModuleSourcePath(),
	}
	var path []string
	if multi {
		path = append(path, pl.folder.Modules(r.Path()))
	}
	if mp := r.ModulePath(pl.folder); mp != "" {
		path = append(path, mp)
	}
	if len(path) > 0 {
		args = append(args, "--module-path", strings.Join(path, string(os.PathListSeparator)))
	}
	for _, name := range modules {
		if patch := pl.patch(r, name); patch != "" {
			args = append(args, "--patch-module", name+"="+patch)
		}
	}
	args = append(args, "-d", pl.folder.Classes(r.Path()))
	return task.NewCall(Javac, args...)
}

// patch returns the source directories of the same-named module in the
// realms r depends on, or "" when no dependency realm has such a module.
func (pl *Planner) patch(r *project.Realm, module string) string {
	var dirs []string
	for _, d := range r.Dependencies() {
		if _, ok := d.Module(module); ok {
			dirs = append(dirs, d.ModuleSourceDirs(module)...)
		}
	}
	return strings.Join(dirs, string(os.PathListSeparator))
}

func (pl *Planner) packaging(r *project.Realm) *task.Plan {
	version := pl.project.Version().String()
	var jars []task.Task
	for _, m := range r.Modules() {
		if !m.MultiRelease() {
			jars = append(jars, task.NewCall(Jar,
				"--create",
				"--file", pl.folder.Modules(r.Path(), pl.project.Archive(m.Name, "")),
				"--module-version", version,
				"-C", pl.folder.Classes(r.Path(), m.Name), ".",
			))
		}
		jars = append(jars, task.NewCall(Jar,
			"--create",
			"--file", pl.folder.Sources(r.Path(), pl.project.Archive(m.Name, "sources")),
			"-C", pl.folder.Src(filepath.FromSlash(m.Dir)), ".",
		))
	}
	return task.Sequence(fmt.Sprintf("Package %s realm", r.Name()),
		task.NewCall(builtin.CreateDirectories, pl.folder.Modules(r.Path()), pl.folder.Sources(r.Path())),
		task.Parallel(fmt.Sprintf("Archive %s modules", r.Name()), jars...),
	)
}

// Documentation returns the plan that documents the regular modules of the
// first realm and archives the result.
func (pl *Planner) Documentation() *task.Plan {
	const name = "Generate documentation"
	realms := pl.project.Realms()
	if len(realms) == 0 {
		return task.Noop(name)
	}
	r := realms[0]
	var modules []string
	for _, m := range r.Modules() {
		if !m.MultiRelease() {
			modules = append(modules, m.Name)
		}
	}
	if len(modules) == 0 {
		return task.Noop(name)
	}

	javadoc := pl.folder.Documentation("javadoc")
	args := []string{
		"-d", javadoc,
		"--module", strings.Join(modules, ","),
		"--module-source-path", r.ModuleSourcePath(),
	}
	if mp := r.ModulePath(pl.folder); mp != "" {
		args = append(args, "--module-path", mp)
	}
	archive := pl.folder.Documentation(fmt.Sprintf("%s-%s-javadoc.jar", pl.project.Name(), pl.project.Version()))
	return task.Sequence(name,
		task.NewCall(Javadoc, args...),
		task.NewCall(Jar, "--create", "--file", archive, "-C", javadoc, "."),
	)
}
