package archive

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/modforge/internal/descriptor"
)

func writeFiles(t *testing.T, fsys afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.FromSlash(name)
		require.NoError(t, fsys.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, afero.WriteFile(fsys, p, []byte(content), 0o644))
	}
}

func TestCreate_PlainArchive(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"classes/com.greetings/module-info.java":       "module com.greetings { requires org.astro; }",
		"classes/com.greetings/com/greetings/Main.txt": "main",
	})

	spec := Spec{
		File:          "out/modules/com.greetings-1.0.jar",
		ModuleVersion: "1.0",
		MainClass:     "com.greetings.Main",
		Roots:         []Root{{Dir: "classes/com.greetings"}},
	}
	require.NoError(t, Create(fsys, spec))

	r, err := Open(fsys, spec.File)
	require.NoError(t, err)
	assert.Equal(t, []string{ManifestName, "com/greetings/Main.txt", "module-info.java"}, r.Names())
	assert.Empty(t, r.Releases())

	m, err := r.Manifest()
	require.NoError(t, err)
	assert.Equal(t, "com.greetings.Main", m["Main-Class"])
	assert.Equal(t, "1.0", m["Implementation-Version"])
	assert.NotContains(t, m, "Multi-Release")

	d, err := r.Descriptor(17)
	require.NoError(t, err)
	assert.Equal(t, descriptor.Module{Name: "com.greetings", Requires: []string{"org.astro"}}, d)
}

func TestCreate_MultiRelease(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"c/java-8/org/astro/World.class":  "8",
		"c/java-11/org/astro/World.class": "11",
		"c/java-11/module-info.java":      "module org.astro {}",
		"c/java-10/org/astro/World.class": "10",
	})

	spec := Spec{File: "astro.jar", Roots: []Root{
		{Dir: "c/java-8"},
		{Release: 10, Dir: "c/java-10"},
		{Release: 11, Dir: "c/java-11"},
	}}
	require.True(t, spec.MultiRelease())
	require.NoError(t, Create(fsys, spec))

	r, err := Open(fsys, "astro.jar")
	require.NoError(t, err)
	assert.Equal(t, []int{10, 11}, r.Releases())

	m, err := r.Manifest()
	require.NoError(t, err)
	assert.Equal(t, "true", m["Multi-Release"])

	testCases := []struct {
		release int
		want    string
	}{
		{8, "org/astro/World.class"},
		{9, "org/astro/World.class"},
		{10, "META-INF/versions/10/org/astro/World.class"},
		{17, "META-INF/versions/11/org/astro/World.class"},
	}
	for _, tc := range testCases {
		got, ok := r.Resolve("org/astro/World.class", tc.release)
		require.True(t, ok)
		assert.Equal(t, tc.want, got, "release %d", tc.release)
	}

	_, err = r.Descriptor(10)
	require.ErrorIs(t, err, descriptor.ErrNoModule)
	d, err := r.Descriptor(11)
	require.NoError(t, err)
	assert.Equal(t, "org.astro", d.Name)
}

func TestCreate_Errors(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"a/x.txt": "a",
		"b/x.txt": "b",
		"file":    "",
	})

	assert.Error(t, Create(fsys, Spec{}))
	assert.Error(t, Create(fsys, Spec{File: "o.jar", Roots: []Root{{Dir: "missing"}}}))
	assert.Error(t, Create(fsys, Spec{File: "o.jar", Roots: []Root{{Dir: "file"}}}))
	err := Create(fsys, Spec{File: "o.jar", Roots: []Root{{Dir: "a"}, {Dir: "b"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate entry x.txt")
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "not.jar", []byte("plain text"), 0o644))

	_, err := Open(fsys, "missing.jar")
	assert.Error(t, err)
	_, err = Open(fsys, "not.jar")
	assert.Error(t, err)
}

func TestDescriptor_CorruptClassIsAnError(t *testing.T) {
	t.Parallel()

	// Arrange
	fsys := afero.NewMemMapFs()
	corrupt := string([]byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 0x35, 0, 2, 5, 0, 0, 0, 0, 0, 0, 0, 1})
	writeFiles(t, fsys, map[string]string{"classes/org.astro/module-info.class": corrupt})
	spec := Spec{File: "out/org.astro.jar", Roots: []Root{{Dir: "classes/org.astro"}}}
	require.NoError(t, Create(fsys, spec))
	r, err := Open(fsys, spec.File)
	require.NoError(t, err)

	// Act
	var derr error
	assert.NotPanics(t, func() {
		_, derr = r.Descriptor(17)
	})

	// Assert
	assert.Error(t, derr)
}
