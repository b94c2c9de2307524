package configwatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qsequence/pdeskernel/internal/kernelerr"
)

type testCfg struct {
	Lookahead int
	Label     string
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatcher_DeliversNonStructuralChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.txt")
	writeFile(t, path, "v1")

	decode := func(p string) (testCfg, error) {
		b, err := os.ReadFile(p)
		if err != nil {
			return testCfg{}, err
		}
		return testCfg{Lookahead: 10, Label: string(b)}, nil
	}
	structural := func(old, next testCfg) bool { return old.Lookahead != next.Lookahead }

	w, err := New[testCfg](path, testCfg{Lookahead: 10, Label: "v1"}, decode, structural)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeFile(t, path, "v2")

	select {
	case got := <-w.Changes:
		assert.Equal(t, "v2", got.Label)
	case err := <-w.Rejected:
		t.Fatalf("unexpected rejection: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}

func TestWatcher_RejectsStructuralChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.txt")
	writeFile(t, path, "10")

	decode := func(p string) (testCfg, error) {
		return testCfg{Lookahead: 99, Label: "changed"}, nil
	}
	structural := func(old, next testCfg) bool { return old.Lookahead != next.Lookahead }

	w, err := New[testCfg](path, testCfg{Lookahead: 10, Label: "10"}, decode, structural)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeFile(t, path, "11")

	select {
	case got := <-w.Changes:
		t.Fatalf("expected rejection, got change: %+v", got)
	case err := <-w.Rejected:
		assert.ErrorIs(t, err, kernelerr.ErrStructuralReload)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for rejection")
	}
}
