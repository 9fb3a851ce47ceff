package repositoryimpl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilldepot/skilldepot/internal/session"
	"github.com/skilldepot/skilldepot/pkg/cerr"
	"github.com/skilldepot/skilldepot/pkg/storage"
)

func newTestStore(t *testing.T) *YAMLStore {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewYAMLStore(local)
}

func TestYAMLStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, []session.Folder{{
		Name: "skillA",
		Files: []session.FolderFile{
			{Path: "SKILL.md", Content: "doc"},
			{Path: "scripts/run.sh", Content: "echo", IsExecutable: true},
		},
		Skipped: []string{"logo.png"},
	}})
	require.NoError(t, err)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Folders, 1)
	assert.Equal(t, "skillA", got.Folders[0].Name)
	assert.True(t, got.Folders[0].Files[1].IsExecutable)
	assert.Equal(t, []string{"logo.png"}, got.Folders[0].Skipped)

	require.NoError(t, store.Delete(ctx, created.ID))
	_, err = store.Get(ctx, created.ID)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
	assert.NoError(t, store.Delete(ctx, created.ID))
}

func TestYAMLStoreExpiryAndCleanup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }
	expired, err := store.Create(ctx, []session.Folder{{Name: "old"}})
	require.NoError(t, err)

	store.now = func() time.Time { return base.Add(session.TTL / 2) }
	fresh, err := store.Create(ctx, []session.Folder{{Name: "new"}})
	require.NoError(t, err)

	store.now = func() time.Time { return base.Add(session.TTL) }

	removed, err := store.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// An expired session reads as missing.
	_, err = store.Get(ctx, expired.ID)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	_, err = store.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}
