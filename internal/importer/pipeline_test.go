package importer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilldepot/skilldepot/internal/session"
	"github.com/skilldepot/skilldepot/internal/skill"
	"github.com/skilldepot/skilldepot/internal/skill/repositoryimpl"
	"github.com/skilldepot/skilldepot/pkg/cerr"
)

func newPipeline() (*Pipeline, *skill.Service) {
	engine := skill.NewService(repositoryimpl.NewMemoryRepository())
	return NewPipeline(engine, session.NewMemoryStore()), engine
}

func sampleArchive(t *testing.T) []byte {
	t.Helper()
	return buildZip(t, []zipEntry{
		{name: "skillA/SKILL.md", data: []byte("# A\n\nDoes A things.\n")},
		{name: "skillA/scripts/run.sh", data: []byte("#!/bin/sh\necho hi\n"), exec: true},
		{name: "skillB/SKILL.md", data: []byte("Does B things.\n")},
		{name: "broken/notes.md", data: []byte("no marker here\n")},
	})
}

func TestParseStagesAndPreviews(t *testing.T) {
	p, _ := newPipeline()
	ctx := context.Background()

	result, err := p.Parse(ctx, sampleArchive(t))
	require.NoError(t, err)
	require.Len(t, result.Previews, 3)
	assert.NotEmpty(t, result.SessionID)
	assert.False(t, result.ExpiresAt.IsZero())

	byName := map[string]Preview{}
	for _, pv := range result.Previews {
		byName[pv.Name] = pv
	}
	assert.True(t, byName["skillA"].Valid)
	assert.Equal(t, "Does A things.", byName["skillA"].Description)
	assert.Equal(t, 2, byName["skillA"].FileCount)
	assert.True(t, byName["skillB"].Valid)
	require.False(t, byName["broken"].Valid)
	assert.NotEmpty(t, byName["broken"].Errors)
	assert.Empty(t, byName["broken"].Description)
}

func TestParseRejectsOversizedArchive(t *testing.T) {
	p, _ := newPipeline()
	_, err := p.Parse(context.Background(), make([]byte, 10*1024*1024+1))
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}

func TestCommitSelectedOnly(t *testing.T) {
	p, engine := newPipeline()
	ctx := context.Background()

	parsed, err := p.Parse(ctx, sampleArchive(t))
	require.NoError(t, err)

	result, err := p.Commit(ctx, parsed.SessionID, []string{"skillA"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Successful)
	require.Len(t, result.Results, 1)
	assert.Equal(t, StatusSuccess, result.Results[0].Status)
	assert.True(t, result.Results[0].IsNew)
	assert.Equal(t, 1, result.Results[0].Version)

	// Only the selected candidate was imported.
	_, err = engine.Resolve(ctx, "skillA")
	require.NoError(t, err)
	_, err = engine.Resolve(ctx, "skillB")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	snap, err := engine.Get(ctx, "skillA", nil)
	require.NoError(t, err)
	assert.Equal(t, skill.CreatorAutomated, snap.Version.CreatedBy)
}

func TestCommitPartialSuccess(t *testing.T) {
	p, _ := newPipeline()
	ctx := context.Background()

	parsed, err := p.Parse(ctx, sampleArchive(t))
	require.NoError(t, err)

	result, err := p.Commit(ctx, parsed.SessionID, []string{"skillA", "broken", "ghost", "skillA"})
	require.NoError(t, err)
	// The duplicate selection collapses; broken fails validation and ghost
	// is not part of the session.
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 2, result.Failed)

	byName := map[string]ItemResult{}
	for _, r := range result.Results {
		byName[r.Name] = r
	}
	assert.Equal(t, StatusSuccess, byName["skillA"].Status)
	assert.Equal(t, StatusFailed, byName["broken"].Status)
	assert.Equal(t, "not part of this import session", byName["ghost"].Error)
}

func TestCommitFanOutWiderThanWorkerCap(t *testing.T) {
	p, engine := newPipeline()
	ctx := context.Background()

	// More candidates than the worker cap, so the pool queues the surplus.
	entries := make([]zipEntry, 0, commitWorkers*3)
	names := make([]string, 0, commitWorkers*3)
	for i := 0; i < commitWorkers*3; i++ {
		name := fmt.Sprintf("skill%02d", i)
		entries = append(entries, zipEntry{
			name: name + "/SKILL.md",
			data: []byte(fmt.Sprintf("Does thing %d.\n", i)),
		})
		names = append(names, name)
	}

	parsed, err := p.Parse(ctx, buildZip(t, entries))
	require.NoError(t, err)
	result, err := p.Commit(ctx, parsed.SessionID, names)
	require.NoError(t, err)

	assert.Equal(t, len(names), result.Total)
	assert.Equal(t, len(names), result.Successful)
	assert.Zero(t, result.Failed)
	for _, name := range names {
		_, err := engine.Resolve(ctx, name)
		require.NoError(t, err)
	}
}

func TestCommitSessionIsSingleUse(t *testing.T) {
	p, _ := newPipeline()
	ctx := context.Background()

	parsed, err := p.Parse(ctx, sampleArchive(t))
	require.NoError(t, err)

	_, err = p.Commit(ctx, parsed.SessionID, []string{"skillA"})
	require.NoError(t, err)

	_, err = p.Commit(ctx, parsed.SessionID, []string{"skillB"})
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestCommitUnknownSession(t *testing.T) {
	p, _ := newPipeline()
	_, err := p.Commit(context.Background(), "no-such-session", []string{"skillA"})
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestReimportReplacesSnapshot(t *testing.T) {
	p, engine := newPipeline()
	ctx := context.Background()

	// The skill already exists with a file the new import does not carry.
	_, err := engine.Create(ctx, skill.CreateInput{
		Name: "skillA",
		Files: []skill.FileInput{
			{Path: "SKILL.md", Content: "old doc"},
			{Path: "legacy.md", Content: "kept nowhere"},
		},
	})
	require.NoError(t, err)

	parsed, err := p.Parse(ctx, sampleArchive(t))
	require.NoError(t, err)
	result, err := p.Commit(ctx, parsed.SessionID, []string{"skillA"})
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	assert.Equal(t, StatusSuccess, result.Results[0].Status)
	assert.False(t, result.Results[0].IsNew)
	assert.Equal(t, 2, result.Results[0].Version)

	// The new version mirrors the archive exactly: legacy.md is gone.
	snap, err := engine.Get(ctx, "skillA", nil)
	require.NoError(t, err)
	paths := make([]string, len(snap.Files))
	for i, f := range snap.Files {
		paths[i] = f.Path
	}
	assert.ElementsMatch(t, []string{"SKILL.md", "scripts/run.sh"}, paths)

	// Version 1 is untouched.
	one := 1
	old, err := engine.Get(ctx, "skillA", &one)
	require.NoError(t, err)
	assert.Len(t, old.Files, 2)
}
