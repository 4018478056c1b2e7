package project

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/modforge/internal/ctxlog"
	"github.com/vk/modforge/internal/folder"
	"github.com/vk/modforge/internal/layout"
	"github.com/vk/modforge/internal/version"
)

func testContext(buf *bytes.Buffer) context.Context {
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger)
}

func writeTree(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, content := range files {
		p := filepath.FromSlash(name)
		require.NoError(t, fsys.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, afero.WriteFile(fsys, p, []byte(content), 0o644))
	}
	return fsys
}

func TestBuild_DefaultLayout(t *testing.T) {
	t.Parallel()

	fsys := writeTree(t, map[string]string{
		"demo/src/com.greetings/main/java/module-info.java": "module com.greetings { requires org.astro; }",
		"demo/src/org.astro/main/java/module-info.java":     "module org.astro {}",
		"demo/src/org.astro/test/java/module-info.java":     "open module org.astro { requires test.base; }",
		"demo/src/integration/test/java/module-info.java":   "module integration { requires org.astro; }",
	})

	p, err := Build(testContext(&bytes.Buffer{}), fsys, folder.New("demo"), Options{})
	require.NoError(t, err)

	assert.Equal(t, "demo", p.Name())
	assert.Equal(t, version.Default, p.Version().String())
	assert.Equal(t, layout.Default, p.Layout())

	realms := p.Realms()
	require.Len(t, realms, 2)
	main, test := realms[0], realms[1]
	assert.Equal(t, "main", main.Name())
	assert.Equal(t, []string{"com.greetings", "org.astro"}, main.ModuleNames())
	assert.Equal(t, []string{"integration", "org.astro"}, test.ModuleNames())
	require.Len(t, test.Dependencies(), 1)
	assert.Same(t, main, test.Dependencies()[0])
	assert.Empty(t, main.Dependencies())

	greetings, ok := main.Module("com.greetings")
	require.True(t, ok)
	assert.Equal(t, []string{"org.astro"}, greetings.Descriptor.Requires)
	assert.Equal(t, "com.greetings/main/java", greetings.Dir)
}

func TestBuild_FlatLayoutWithOverlays(t *testing.T) {
	t.Parallel()

	fsys := writeTree(t, map[string]string{
		"demo/src/com.greetings/module-info.java":                "module com.greetings {}",
		"demo/src/com.greetings/com/greetings/Main.java":         "class Main {}",
		"demo/src/org.astro/java-8/org/astro/World.java":         "class World {}",
		"demo/src/org.astro/java-11/module-info.java":            "module org.astro {}",
		"demo/src/org.astro/java-11/org/astro/World.java":        "class World {}",
		"demo/src/org.astro/java-10/org/astro/World.java":        "class World {}",
		"demo/src/org.astro/resources/not-an-overlay/readme.txt": "",
	})

	p, err := Build(testContext(&bytes.Buffer{}), fsys, folder.New("demo"), Options{
		Name:    "greetings",
		Version: version.MustParse("2.0"),
	})
	require.NoError(t, err)

	assert.Equal(t, "greetings", p.Name())
	assert.Equal(t, layout.Flat, p.Layout())
	realms := p.Realms()
	require.Len(t, realms, 1)
	assert.Equal(t, "", realms[0].Path())

	astro, ok := realms[0].Module("org.astro")
	require.True(t, ok)
	assert.Equal(t, []int{8, 10, 11}, astro.Releases)
	assert.Equal(t, "org.astro", astro.Dir)

	greetings, _ := realms[0].Module("com.greetings")
	assert.False(t, greetings.MultiRelease())
}

func TestBuild_MissingSourceRoot(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	p, err := Build(testContext(buf), afero.NewMemMapFs(), folder.New("empty"), Options{})
	require.NoError(t, err)

	assert.Equal(t, layout.Default, p.Layout())
	for _, r := range p.Realms() {
		assert.True(t, r.Empty(), r.Name())
	}
	assert.Contains(t, buf.String(), "Source root does not exist")
}

func TestBuild_ExplicitLayoutWins(t *testing.T) {
	t.Parallel()

	fsys := writeTree(t, map[string]string{
		"demo/src/a/module-info.java": "module a {}",
	})

	p, err := Build(testContext(&bytes.Buffer{}), fsys, folder.New("demo"), Options{Layout: layout.Default})
	require.NoError(t, err)

	assert.Equal(t, layout.Default, p.Layout())
	main, _ := p.Realm("main")
	assert.True(t, main.Empty())
}

func TestBuild_NameMismatch(t *testing.T) {
	t.Parallel()

	fsys := writeTree(t, map[string]string{
		"demo/src/a/module-info.java": "module b {}",
	})

	_, err := Build(testContext(&bytes.Buffer{}), fsys, folder.New("demo"), Options{})
	require.Error(t, err)
	assert.True(t, IsBuildError(err))
}

// brokenFs fails every Open below a prefix.
type brokenFs struct {
	afero.Fs
	prefix string
}

func (b brokenFs) Open(name string) (afero.File, error) {
	if filepath.Clean(name) == filepath.Clean(b.prefix) {
		return nil, &os.PathError{Op: "open", Path: name, Err: errors.New("device not ready")}
	}
	return b.Fs.Open(name)
}

func TestBuild_ScanFailureIsBuildError(t *testing.T) {
	t.Parallel()

	fsys := writeTree(t, map[string]string{
		"demo/src/a/module-info.java": "module a {}",
	})

	_, err := Build(testContext(&bytes.Buffer{}), brokenFs{Fs: fsys, prefix: "demo/src/a"}, folder.New("demo"), Options{})
	require.Error(t, err)
	assert.True(t, IsBuildError(err))
	assert.Contains(t, err.Error(), "device not ready")
}
