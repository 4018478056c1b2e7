// Package projectfile loads the optional project.hcl file at the project
// base. The file overrides what is otherwise derived from the directory
// tree and names explicit tool executables:
//
//	project {
//	  name    = "${name}-core"
//	  version = "2.1.0"
//	  layout  = "flat"
//	  feature = 21
//	}
//
//	tool "javac" {
//	  path = "${base}/jdk/bin/javac"
//	}
//
// Expressions may reference the variables base (the project base directory)
// and name (its last path segment) and call format, lower and upper.
package projectfile

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/vk/modforge/internal/ctxlog"
	"github.com/vk/modforge/internal/folder"
	"github.com/vk/modforge/internal/layout"
	"github.com/vk/modforge/internal/version"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// FileName is the name of the project file below the project base.
const FileName = "project.hcl"

// File is the decoded content of a project file. Zero fields mean "not set".
type File struct {
	// Path is the file that was read; empty when there was none.
	Path    string
	Name    string
	Version version.Version
	Layout  layout.Layout
	Feature int
	// Tools maps tool names to executables.
	Tools map[string]string
}

// fileRoot lists every top-level block a project file may contain.
type fileRoot struct {
	Project *projectBlock `hcl:"project,block"`
	Tools   []*toolBlock  `hcl:"tool,block"`
}

type projectBlock struct {
	Name    *string `hcl:"name,optional"`
	Version *string `hcl:"version,optional"`
	Layout  *string `hcl:"layout,optional"`
	Feature *int    `hcl:"feature,optional"`
}

type toolBlock struct {
	Name string `hcl:"name,label"`
	Path string `hcl:"path"`
}

// Load reads the project file of f. A missing file is not an error and
// yields an empty File.
func Load(ctx context.Context, fsys afero.Fs, f folder.Folder) (*File, error) {
	logger := ctxlog.FromContext(ctx)
	path := f.Base(FileName)

	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", path, err)
	}
	if !exists {
		logger.Debug("No project file.", "path", path)
		return &File{Tools: map[string]string{}}, nil
	}

	src, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	file, err := Parse(src, path, f)
	if err != nil {
		return nil, err
	}
	logger.Debug("Project file loaded.", "path", path, "tools", len(file.Tools))
	return file, nil
}

// Parse decodes project file content. filename is used in diagnostics.
func Parse(src []byte, filename string, f folder.Folder) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse project file %s: %w", filename, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(hclFile.Body, evalContext(f), &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode project file %s: %w", filename, diags)
	}

	out := &File{Path: filename, Tools: map[string]string{}}
	if p := root.Project; p != nil {
		if err := p.translate(out); err != nil {
			return nil, fmt.Errorf("project file %s: %w", filename, err)
		}
	}
	for _, t := range root.Tools {
		if _, dup := out.Tools[t.Name]; dup {
			return nil, fmt.Errorf("project file %s: tool %q declared more than once", filename, t.Name)
		}
		if t.Path == "" {
			return nil, fmt.Errorf("project file %s: tool %q has an empty path", filename, t.Name)
		}
		path := filepath.FromSlash(t.Path)
		if !filepath.IsAbs(path) {
			path = f.Base(path)
		}
		out.Tools[t.Name] = path
	}
	return out, nil
}

func (p *projectBlock) translate(out *File) error {
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Version != nil {
		v, err := version.Parse(*p.Version)
		if err != nil {
			return err
		}
		out.Version = v
	}
	if p.Layout != nil {
		l, err := layout.Parse(*p.Layout)
		if err != nil {
			return err
		}
		out.Layout = l
	}
	if p.Feature != nil {
		if *p.Feature < 1 {
			return fmt.Errorf("feature release must be positive, got %d", *p.Feature)
		}
		out.Feature = *p.Feature
	}
	return nil
}

func evalContext(f folder.Folder) *hcl.EvalContext {
	base := f.Base()
	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"base": cty.StringVal(filepath.ToSlash(base)),
			"name": cty.StringVal(filepath.Base(base)),
		},
		Functions: map[string]function.Function{
			"format": stdlib.FormatFunc,
			"lower":  stdlib.LowerFunc,
			"upper":  stdlib.UpperFunc,
		},
	}
}
