package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/modforge/internal/app"
)

type captured struct {
	action Action
	cfg    *app.Config
	calls  int
}

func (c *captured) run(_ context.Context, a Action, cfg *app.Config) error {
	c.action = a
	c.cfg = cfg
	c.calls++
	return nil
}

func TestExecute_DefaultsToBuild(t *testing.T) {
	t.Parallel()

	// Arrange
	var got captured
	out := &bytes.Buffer{}

	// Act
	err := Execute(context.Background(), nil, out, got.run)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, Build, got.action)
	assert.Equal(t, ".", got.cfg.BaseDir)
	assert.Equal(t, "text", got.cfg.LogFormat)
	assert.Equal(t, "info", got.cfg.LogLevel)
	assert.True(t, got.cfg.SearchPath)
	assert.False(t, got.cfg.DryRun)
}

func TestExecute_SubcommandsAndFlags(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		args   []string
		want   Action
		assert func(t *testing.T, cfg *app.Config)
	}{
		{
			name: "build with flags",
			args: []string{"build", "demo", "--dry-run", "--workers", "4", "--feature", "21", "--project-version", "2.0.0"},
			want: Build,
			assert: func(t *testing.T, cfg *app.Config) {
				assert.Equal(t, "demo", cfg.BaseDir)
				assert.True(t, cfg.DryRun)
				assert.Equal(t, 4, cfg.Workers)
				assert.Equal(t, 21, cfg.Feature)
				assert.Equal(t, "2.0.0", cfg.Version)
			},
		},
		{
			name: "plan with tools",
			args: []string{"plan", "--tool", "javac=/opt/jdk/bin/javac", "--search-path=false", "--layout", "flat"},
			want: Plan,
			assert: func(t *testing.T, cfg *app.Config) {
				assert.Equal(t, map[string]string{"javac": "/opt/jdk/bin/javac"}, cfg.Tools)
				assert.False(t, cfg.SearchPath)
				assert.Equal(t, "flat", cfg.Layout)
			},
		},
		{
			name: "info with logging",
			args: []string{"info", "--log-level", "DEBUG", "--log-format", "json", "--jdk-home", "/opt/jdk"},
			want: Info,
			assert: func(t *testing.T, cfg *app.Config) {
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, "json", cfg.LogFormat)
				assert.Equal(t, "/opt/jdk", cfg.JDKHome)
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var got captured

			err := Execute(context.Background(), tc.args, &bytes.Buffer{}, got.run)

			require.NoError(t, err)
			assert.Equal(t, 1, got.calls)
			assert.Equal(t, tc.want, got.action)
			tc.assert(t, got.cfg)
		})
	}
}

func TestExecute_EnvironmentBacksFlags(t *testing.T) {
	t.Setenv("MODFORGE_DRY_RUN", "true")
	t.Setenv("MODFORGE_WORKERS", "3")
	t.Setenv("MODFORGE_NAME", "from-env")

	var got captured
	err := Execute(context.Background(), []string{"plan"}, &bytes.Buffer{}, got.run)
	require.NoError(t, err)
	assert.True(t, got.cfg.DryRun)
	assert.Equal(t, 3, got.cfg.Workers)
	assert.Equal(t, "from-env", got.cfg.Name)

	err = Execute(context.Background(), []string{"plan", "--workers", "7"}, &bytes.Buffer{}, got.run)
	require.NoError(t, err)
	assert.Equal(t, 7, got.cfg.Workers, "flags win over the environment")
}

func TestExecute_EnvironmentMapsTools(t *testing.T) {
	t.Setenv("MODFORGE_TOOL", "javac=/opt/jdk/bin/javac, javadoc=/opt/jdk/bin/javadoc")

	var got captured
	err := Execute(context.Background(), []string{"plan"}, &bytes.Buffer{}, got.run)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"javac":   "/opt/jdk/bin/javac",
		"javadoc": "/opt/jdk/bin/javadoc",
	}, got.cfg.Tools)

	err = Execute(context.Background(), []string{"plan", "--tool", "jar=/usr/bin/jar"}, &bytes.Buffer{}, got.run)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"jar": "/usr/bin/jar"}, got.cfg.Tools, "flags win over the environment")
}

func TestExecute_MalformedToolEnvironment(t *testing.T) {
	t.Setenv("MODFORGE_TOOL", "javac")

	var got captured
	err := Execute(context.Background(), []string{"plan"}, &bytes.Buffer{}, got.run)

	require.Error(t, err)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "invalid tool mapping")
}

func TestExecute_UsageErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"unknown flag", []string{"--this-is-not-a-valid-flag"}, "unknown flag: --this-is-not-a-valid-flag"},
		{"too many arguments", []string{"build", "a", "b"}, "accepts at most 1 arg"},
		{"invalid log level", []string{"--log-level", "trace"}, "invalid log-level"},
		{"invalid version", []string{"--project-version", "latest"}, "invalid version"},
		{"bad workers value", []string{"--workers", "many"}, "invalid argument"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var got captured

			err := Execute(context.Background(), tc.args, &bytes.Buffer{}, got.run)

			require.Error(t, err)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
			assert.Zero(t, got.calls)
		})
	}
}

func TestExecute_RunnerErrorPassesThrough(t *testing.T) {
	t.Parallel()

	boom := errors.New("execution failed")
	err := Execute(context.Background(), []string{"build"}, &bytes.Buffer{}, func(context.Context, Action, *app.Config) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
}

func TestExecute_Help(t *testing.T) {
	t.Parallel()

	var got captured
	out := &bytes.Buffer{}

	err := Execute(context.Background(), []string{"--help"}, out, got.run)

	require.NoError(t, err)
	assert.Zero(t, got.calls)
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "--dry-run")
}
