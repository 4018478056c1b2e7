package projectfile

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/modforge/internal/folder"
	"github.com/vk/modforge/internal/layout"
	"github.com/vk/modforge/internal/testutil"
)

var base = filepath.FromSlash("/work/demo")

func load(t *testing.T, content string) (*File, error) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	if content != "" {
		require.NoError(t, afero.WriteFile(fsys, filepath.Join(base, FileName), []byte(content), 0o644))
	}
	return Load(testutil.Context(&testutil.SafeBuffer{}, nil), fsys, folder.New(base))
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	f, err := load(t, "")

	require.NoError(t, err)
	assert.Empty(t, f.Path)
	assert.Empty(t, f.Name)
	assert.True(t, f.Version.IsZero())
	assert.Equal(t, layout.Unknown, f.Layout)
	assert.Zero(t, f.Feature)
	assert.Empty(t, f.Tools)
}

func TestLoad_FullFile(t *testing.T) {
	t.Parallel()

	// Arrange
	content := `
project {
  name    = "${name}-core"
  version = "2.1.0-rc.1"
  layout  = "jigsaw"
  feature = 21
}

tool "javac" {
  path = "${base}/jdk/bin/javac"
}

tool "jar" {
  path = "tools/jar"
}
`

	// Act
	f, err := load(t, content)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, FileName), f.Path)
	assert.Equal(t, "demo-core", f.Name)
	assert.Equal(t, "2.1.0-rc.1", f.Version.String())
	assert.Equal(t, layout.Flat, f.Layout)
	assert.Equal(t, 21, f.Feature)
	assert.Equal(t, map[string]string{
		"javac": filepath.Join(base, "jdk", "bin", "javac"),
		"jar":   filepath.Join(base, "tools", "jar"),
	}, f.Tools)
}

func TestLoad_Functions(t *testing.T) {
	t.Parallel()

	f, err := load(t, `project { name = upper(format("%s-%d", name, 2)) }`)

	require.NoError(t, err)
	assert.Equal(t, "DEMO-2", f.Name)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"syntax", `project {`, "failed to parse project file"},
		{"unknown attribute", `project { colour = "red" }`, "failed to decode project file"},
		{"unknown block", `plugin "x" {}`, "failed to decode project file"},
		{"bad version", `project { version = "one" }`, "version"},
		{"bad layout", `project { layout = "maven" }`, "unknown layout"},
		{"bad feature", `project { feature = 0 }`, "feature release must be positive"},
		{"duplicate tool", "tool \"jar\" { path = \"a\" }\ntool \"jar\" { path = \"b\" }", `tool "jar" declared more than once`},
		{"empty tool path", `tool "jar" { path = "" }`, `tool "jar" has an empty path`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := load(t, tc.content)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParse_WithoutFileSystem(t *testing.T) {
	t.Parallel()

	f, err := Parse([]byte(`project { version = "3.0.0" }`), "inline.hcl", folder.New(base))

	require.NoError(t, err)
	assert.Equal(t, "inline.hcl", f.Path)
	assert.Equal(t, "3.0.0", f.Version.String())
}
