// Package archive writes and reads modular jar files. Archives may be
// multi-release: content for a given platform version lives below
// META-INF/versions/<N>/ and shadows the base content for readers running on
// version N or later.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/vk/modforge/internal/descriptor"
)

const (
	// ManifestName is the location of the manifest inside an archive.
	ManifestName = "META-INF/MANIFEST.MF"
	versionsDir  = "META-INF/versions/"
)

// Root is a directory whose content is added to an archive. Release 0 adds
// it as base content; any other value adds it below META-INF/versions.
type Root struct {
	Release int
	Dir     string
}

// Spec describes an archive to create.
type Spec struct {
	File          string
	ModuleVersion string
	MainClass     string
	Roots         []Root
}

// MultiRelease reports whether any root targets a specific release.
func (s Spec) MultiRelease() bool {
	return slices.ContainsFunc(s.Roots, func(r Root) bool { return r.Release > 0 })
}

// Create writes the archive described by spec, replacing any existing file.
// Entries appear in root order, each root walked in lexical order.
func Create(fsys afero.Fs, spec Spec) (err error) {
	if spec.File == "" {
		return fmt.Errorf("archive file must be set")
	}
	if err := fsys.MkdirAll(filepath.Dir(spec.File), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", spec.File, err)
	}
	f, err := fsys.Create(spec.File)
	if err != nil {
		return fmt.Errorf("creating %s: %w", spec.File, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(f)
	if err := writeEntry(zw, ManifestName, strings.NewReader(manifest(spec))); err != nil {
		return err
	}
	seen := map[string]bool{ManifestName: true}
	for _, root := range spec.Roots {
		if err := addRoot(fsys, zw, root, seen); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing %s: %w", spec.File, err)
	}
	return nil
}

func manifest(spec Spec) string {
	var b strings.Builder
	b.WriteString("Manifest-Version: 1.0\r\n")
	b.WriteString("Created-By: modforge\r\n")
	if spec.ModuleVersion != "" {
		b.WriteString("Implementation-Version: " + spec.ModuleVersion + "\r\n")
	}
	if spec.MainClass != "" {
		b.WriteString("Main-Class: " + spec.MainClass + "\r\n")
	}
	if spec.MultiRelease() {
		b.WriteString("Multi-Release: true\r\n")
	}
	b.WriteString("\r\n")
	return b.String()
}

func addRoot(fsys afero.Fs, zw *zip.Writer, root Root, seen map[string]bool) error {
	info, err := fsys.Stat(root.Dir)
	if err != nil {
		return fmt.Errorf("adding %s: %w", root.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("adding %s: not a directory", root.Dir)
	}
	prefix := ""
	if root.Release > 0 {
		prefix = versionsDir + strconv.Itoa(root.Release) + "/"
	}
	return afero.Walk(fsys, root.Dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root.Dir, p)
		if err != nil {
			return err
		}
		name := prefix + filepath.ToSlash(rel)
		if seen[name] {
			return fmt.Errorf("duplicate entry %s", name)
		}
		seen[name] = true
		src, err := fsys.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		return writeEntry(zw, name, src)
	})
}

func writeEntry(zw *zip.Writer, name string, r io.Reader) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("adding entry %s: %w", name, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("writing entry %s: %w", name, err)
	}
	return nil
}

// Reader gives read access to an archive held in memory.
type Reader struct {
	zr *zip.Reader
}

// Open reads the whole archive into memory.
func Open(fsys afero.Fs, file string) (*Reader, error) {
	data, err := afero.ReadFile(fsys, file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", file, err)
	}
	return &Reader{zr: zr}, nil
}

// Names lists every entry name in archive order.
func (r *Reader) Names() []string {
	names := make([]string, len(r.zr.File))
	for i, f := range r.zr.File {
		names[i] = f.Name
	}
	return names
}

// Read returns the content of an entry.
func (r *Reader) Read(name string) ([]byte, error) {
	for _, f := range r.zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening entry %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("entry %s: %w", name, os.ErrNotExist)
}

// Releases returns the versions that have versioned content, ascending.
func (r *Reader) Releases() []int {
	var out []int
	for _, name := range r.Names() {
		rest, ok := strings.CutPrefix(name, versionsDir)
		if !ok {
			continue
		}
		head, _, _ := strings.Cut(rest, "/")
		if n, err := strconv.Atoi(head); err == nil && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

// Resolve returns the entry a reader running on release would load for the
// base-relative name: the most specific versioned entry not above release,
// else the base entry.
func (r *Reader) Resolve(name string, release int) (string, bool) {
	names := r.Names()
	releases := r.Releases()
	for i := len(releases) - 1; i >= 0; i-- {
		if releases[i] > release {
			continue
		}
		candidate := path.Join(versionsDir, strconv.Itoa(releases[i]), name)
		if slices.Contains(names, candidate) {
			return candidate, true
		}
	}
	if slices.Contains(names, name) {
		return name, true
	}
	return "", false
}

// Descriptor reads the module descriptor a reader running on release would
// see. The compiled form is preferred over the declaration.
func (r *Reader) Descriptor(release int) (descriptor.Module, error) {
	if entry, ok := r.Resolve(descriptor.ClassFile, release); ok {
		data, err := r.Read(entry)
		if err != nil {
			return descriptor.Module{}, err
		}
		return descriptor.ParseClass(data)
	}
	if entry, ok := r.Resolve(descriptor.SourceFile, release); ok {
		data, err := r.Read(entry)
		if err != nil {
			return descriptor.Module{}, err
		}
		return descriptor.ParseSource(data)
	}
	return descriptor.Module{}, descriptor.ErrNoModule
}

// Manifest returns the manifest attributes.
func (r *Reader) Manifest() (map[string]string, error) {
	data, err := r.Read(ManifestName)
	if err != nil {
		return nil, err
	}
	attrs := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		k, v, ok := strings.Cut(strings.TrimRight(line, "\r"), ": ")
		if ok {
			attrs[k] = v
		}
	}
	return attrs, nil
}
