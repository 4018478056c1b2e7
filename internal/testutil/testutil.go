// Package testutil provides shared helpers for package tests: in-memory
// source trees, recording fake tools and log capture.
package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/vk/modforge/internal/ctxlog"
	"github.com/vk/modforge/internal/summary"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// WriteTree writes files, keyed by slash separated path, into fsys.
func WriteTree(t *testing.T, fsys afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.FromSlash(name)
		require.NoError(t, fsys.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, afero.WriteFile(fsys, p, []byte(content), 0o644))
	}
}

// MemTree returns an in-memory filesystem holding files.
func MemTree(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	WriteTree(t, fsys, files)
	return fsys
}

// Context returns a context carrying a debug logger that writes to buf and
// records into s, when s is not nil.
func Context(buf *SafeBuffer, s *summary.Summary) context.Context {
	var h slog.Handler = slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	if s != nil {
		h = summary.NewHandler(h, s, slog.LevelInfo)
	}
	return ctxlog.WithLogger(context.Background(), slog.New(h))
}
