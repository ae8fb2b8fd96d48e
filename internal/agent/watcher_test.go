package agent

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	workspace := t.TempDir()
	dir := filepath.Join(workspace, ".agcodex", "agents")
	writeDescriptor(t, dir, "seed.yaml", "name: seed\nprompt: p\n")

	reg, err := NewRegistry(workspace, filepath.Join(t.TempDir(), "agents"))
	require.NoError(t, err)

	w, err := NewWatcher(reg)
	require.NoError(t, err)
	w.debounceDur = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	writeDescriptor(t, dir, "late.yaml", "name: late\nprompt: p\n")

	require.Eventually(t, func() bool {
		_, ok := reg.Get("late")
		return ok
	}, 5*time.Second, 20*time.Millisecond, "registry never picked up late.yaml")
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	workspace := t.TempDir()
	dir := filepath.Join(workspace, ".agcodex", "agents")
	writeDescriptor(t, dir, "seed.yaml", "name: seed\nprompt: p\n")

	reg, err := NewRegistry(workspace, filepath.Join(t.TempDir(), "agents"))
	require.NoError(t, err)
	w, err := NewWatcher(reg)
	require.NoError(t, err)
	w.debounceDur = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	writeDescriptor(t, dir, "notes.txt", "not a descriptor")
	time.Sleep(300 * time.Millisecond)

	w.Stop()
	// Stop after Stop is a no-op.
	w.Stop()

	_, ok := reg.Get("notes")
	require.False(t, ok, "non-YAML file should not register anything")
}
