package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/modforge/internal/cli"
	"github.com/vk/modforge/internal/testutil"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return dir
}

func TestRun_Info(t *testing.T) {
	t.Parallel()

	// Arrange
	dir := writeProject(t, map[string]string{
		"src/com.greetings/module-info.java": "module com.greetings {}",
	})
	out, logs := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}

	// Act
	err := run(context.Background(), out, logs, []string{"info", dir, "--name", "greetings"})

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out.String(), "project greetings 1.0.0-SNAPSHOT\n")
	assert.Contains(t, out.String(), "layout  flat\n")
	assert.Contains(t, out.String(), "  module com.greetings (com.greetings)\n")
}

func TestRun_Plan(t *testing.T) {
	t.Parallel()

	// Arrange
	dir := writeProject(t, map[string]string{
		"src/com.greetings/module-info.java": "module com.greetings {}",
	})
	out, logs := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}

	// Act
	err := run(context.Background(), out, logs, []string{"plan", dir, "--project-version", "0.1.0"})

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Build "+filepath.Base(dir)+" 0.1.0\n")
	assert.Contains(t, out.String(), "    javac --version\n")
	assert.NotContains(t, out.String(), "level=", "logs do not mix into command output")
}

func TestRun_MissingToolFails(t *testing.T) {
	t.Parallel()

	// Arrange
	dir := writeProject(t, map[string]string{
		"src/com.greetings/module-info.java": "module com.greetings {}",
	})
	out, logs := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}

	// Act
	err := run(context.Background(), out, logs, []string{"build", dir, "--search-path=false", "--tool", "javadoc=" + filepath.Join(dir, "missing")})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "javac")
	_, statErr := os.Stat(filepath.Join(dir, "out"))
	assert.True(t, os.IsNotExist(statErr), "nothing runs when a tool cannot be resolved")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// Arrange
	args := []string{"--this-is-not-a-valid-flag"}

	// Act
	err := run(context.Background(), &testutil.SafeBuffer{}, &testutil.SafeBuffer{}, args)

	// Assert
	require.Error(t, err)
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "unknown flag: --this-is-not-a-valid-flag")
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	out := &testutil.SafeBuffer{}

	err := run(context.Background(), out, &testutil.SafeBuffer{}, []string{"-h"})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Usage:")
}
