package repositoryimpl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilldepot/skilldepot/internal/skill"
	"github.com/skilldepot/skilldepot/pkg/cerr"
)

func seedSkill(t *testing.T, r *MemoryRepository, name string) *skill.Skill {
	t.Helper()
	now := time.Now()
	sk := &skill.Skill{
		ID:        "id-" + name,
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, r.Create(context.Background(), sk))
	return sk
}

func TestVersionNumberUniqueness(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	sk := seedSkill(t, r, "code-review")

	require.NoError(t, r.CreateVersion(ctx, &skill.Version{ID: "v1", SkillID: sk.ID, Number: 1}))
	err := r.CreateVersion(ctx, &skill.Version{ID: "v1-dup", SkillID: sk.ID, Number: 1})
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists), "got %v", err)

	// The same number under another skill is fine.
	other := seedSkill(t, r, "other")
	assert.NoError(t, r.CreateVersion(ctx, &skill.Version{ID: "v1-other", SkillID: other.ID, Number: 1}))

	latest, err := r.LatestVersionNumber(ctx, sk.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, latest)
}

func TestDuplicateNameRejected(t *testing.T) {
	r := NewMemoryRepository()
	seedSkill(t, r, "code-review")
	err := r.Create(context.Background(), &skill.Skill{ID: "another-id", Name: "code-review"})
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))
}

func TestDeleteCascades(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	sk := seedSkill(t, r, "doomed")
	require.NoError(t, r.CreateVersion(ctx, &skill.Version{ID: "v1", SkillID: sk.ID, Number: 1}))
	require.NoError(t, r.CreateFiles(ctx, []*skill.File{
		{ID: "f1", SkillID: sk.ID, VersionID: "v1", Path: "SKILL.md", Content: "doc"},
	}))

	require.NoError(t, r.Delete(ctx, sk.ID))

	_, err := r.FindByID(ctx, sk.ID)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
	latest, err := r.LatestVersionNumber(ctx, sk.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, latest)
	files, err := r.FindFilesByVersionID(ctx, "v1")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFindFile(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	sk := seedSkill(t, r, "toolkit")
	require.NoError(t, r.CreateVersion(ctx, &skill.Version{ID: "v1", SkillID: sk.ID, Number: 1}))
	require.NoError(t, r.CreateFiles(ctx, []*skill.File{
		{ID: "f1", SkillID: sk.ID, VersionID: "v1", Path: "SKILL.md", Content: "doc"},
	}))

	f, err := r.FindFile(ctx, "v1", "SKILL.md")
	require.NoError(t, err)
	assert.Equal(t, "doc", f.Content)

	_, err = r.FindFile(ctx, "v1", "missing.md")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}
