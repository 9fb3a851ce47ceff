package skill_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilldepot/skilldepot/internal/skill"
	"github.com/skilldepot/skilldepot/internal/skill/repositoryimpl"
	"github.com/skilldepot/skilldepot/pkg/cerr"
)

func newService() *skill.Service {
	return skill.NewService(repositoryimpl.NewMemoryRepository())
}

func strPtr(s string) *string { return &s }

func markerFile(description string) skill.FileInput {
	return skill.FileInput{
		Path:    skill.MarkerFile,
		Content: "# Heading\n\n" + description + "\n",
	}
}

func TestCreateStartsAtVersionOne(t *testing.T) {
	svc := newService()
	snap, err := svc.Create(context.Background(), skill.CreateInput{
		Name:  "code-review",
		Files: []skill.FileInput{markerFile("Reviews pull requests.")},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Version.Number)
	assert.Equal(t, "code-review", snap.Skill.Name)
	assert.True(t, snap.Skill.Active)
	assert.Len(t, snap.Files, 1)
	assert.Equal(t, skill.CreatorManual, snap.Version.CreatedBy)
}

func TestCreateDerivesDescriptionFromMarkerFile(t *testing.T) {
	svc := newService()
	snap, err := svc.Create(context.Background(), skill.CreateInput{
		Name:  "code-review",
		Files: []skill.FileInput{markerFile("Reviews pull requests.")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Reviews pull requests.", snap.Skill.Description)

	// An explicit description wins over the marker file.
	snap2, err := svc.Create(context.Background(), skill.CreateInput{
		Name:        "other",
		Description: "Explicit.",
		Files:       []skill.FileInput{markerFile("Ignored.")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Explicit.", snap2.Skill.Description)
}

func TestCreateDuplicateNameConflicts(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.Create(ctx, skill.CreateInput{
		Name:  "code-review",
		Files: []skill.FileInput{markerFile("v1")},
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, skill.CreateInput{
		Name:  "code-review",
		Files: []skill.FileInput{markerFile("again")},
	})
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))
}

func TestCreateValidation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	tests := []struct {
		name  string
		input skill.CreateInput
	}{
		{"empty name", skill.CreateInput{Files: []skill.FileInput{markerFile("x")}}},
		{"no files", skill.CreateInput{Name: "empty"}},
		{"duplicate paths", skill.CreateInput{
			Name: "dup",
			Files: []skill.FileInput{
				{Path: "a.md", Content: "one"},
				{Path: "a.md", Content: "two"},
			},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.input)
			assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "got %v", err)
		})
	}
}

func TestUpdateMaterializesFullSnapshot(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.Create(ctx, skill.CreateInput{
		Name: "toolkit",
		Files: []skill.FileInput{
			markerFile("Toolkit."),
			{Path: "a.md", Content: "a"},
			{Path: "b.md", Content: "b"},
		},
	})
	require.NoError(t, err)

	snap, err := svc.Update(ctx, "toolkit", skill.UpdateInput{
		Changes: []skill.FileChange{
			{Type: skill.ChangeAdd, Path: "c.md", Content: strPtr("c")},
			{Type: skill.ChangeDelete, Path: "a.md"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Version.Number)
	paths := make([]string, len(snap.Files))
	for i, f := range snap.Files {
		paths[i] = f.Path
	}
	assert.ElementsMatch(t, []string{skill.MarkerFile, "b.md", "c.md"}, paths)

	// Version 1 still holds the original file set.
	one := 1
	old, err := svc.Get(ctx, "toolkit", &one)
	require.NoError(t, err)
	assert.Len(t, old.Files, 3)
}

func TestUpdateSequence(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.Create(ctx, skill.CreateInput{
		Name:  "counter",
		Files: []skill.FileInput{{Path: "main.py", Content: "print(1)"}},
	})
	require.NoError(t, err)

	snap, err := svc.Update(ctx, "counter", skill.UpdateInput{
		Changes: []skill.FileChange{
			{Type: skill.ChangeUpdate, Path: "main.py", Content: strPtr("print(2)")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, snap.Version.Number)

	one, two := 1, 2
	f1, err := svc.GetFile(ctx, "counter", "main.py", &one)
	require.NoError(t, err)
	f2, err := svc.GetFile(ctx, "counter", "main.py", &two)
	require.NoError(t, err)
	assert.Equal(t, "print(1)", f1.Content)
	assert.Equal(t, "print(2)", f2.Content)
}

func TestUpdateAgainstAbsentPathAdds(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.Create(ctx, skill.CreateInput{
		Name:  "toolkit",
		Files: []skill.FileInput{markerFile("x")},
	})
	require.NoError(t, err)

	snap, err := svc.Update(ctx, "toolkit", skill.UpdateInput{
		Changes: []skill.FileChange{
			{Type: skill.ChangeUpdate, Path: "new.md", Content: strPtr("fresh")},
		},
	})
	require.NoError(t, err)
	assert.Len(t, snap.Files, 2)
}

func TestUpdateRederivesDescriptionFromMarkerChange(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.Create(ctx, skill.CreateInput{
		Name:  "toolkit",
		Files: []skill.FileInput{markerFile("Old description.")},
	})
	require.NoError(t, err)

	snap, err := svc.Update(ctx, "toolkit", skill.UpdateInput{
		Changes: []skill.FileChange{
			{Type: skill.ChangeUpdate, Path: skill.MarkerFile, Content: strPtr("# T\n\nNew description.\n")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "New description.", snap.Skill.Description)

	// An explicit description beats re-derivation.
	snap, err = svc.Update(ctx, "toolkit", skill.UpdateInput{
		Description: strPtr("Pinned."),
		Changes: []skill.FileChange{
			{Type: skill.ChangeUpdate, Path: skill.MarkerFile, Content: strPtr("# T\n\nIgnored.\n")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Pinned.", snap.Skill.Description)
}

func TestUpdateRejectsOverfullResult(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	files := make([]skill.FileInput, 50)
	for i := range files {
		files[i] = skill.FileInput{Path: fmt.Sprintf("f%02d.md", i), Content: "x"}
	}
	_, err := svc.Create(ctx, skill.CreateInput{Name: "full", Files: files})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "full", skill.UpdateInput{
		Changes: []skill.FileChange{
			{Type: skill.ChangeAdd, Path: "one-more.md", Content: strPtr("x")},
		},
	})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "got %v", err)
}

func TestUpdateRejectsDeletingEveryFile(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.Create(ctx, skill.CreateInput{
		Name: "toolkit",
		Files: []skill.FileInput{
			markerFile("x"),
			{Path: "a.md", Content: "a"},
		},
	})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "toolkit", skill.UpdateInput{
		Changes: []skill.FileChange{
			{Type: skill.ChangeDelete, Path: skill.MarkerFile},
			{Type: skill.ChangeDelete, Path: "a.md"},
		},
	})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "got %v", err)

	// The failed batch left no trace.
	snap, err := svc.Get(ctx, "toolkit", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version.Number)
	assert.Len(t, snap.Files, 2)
}

func TestUpdateWithoutChangesPatchesMetadataOnly(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.Create(ctx, skill.CreateInput{
		Name:  "toolkit",
		Files: []skill.FileInput{markerFile("Old description.")},
	})
	require.NoError(t, err)

	snap, err := svc.Update(ctx, "toolkit", skill.UpdateInput{
		Description: strPtr("New description."),
	})
	require.NoError(t, err)

	// The file set is untouched, so no new version is written.
	assert.Equal(t, "New description.", snap.Skill.Description)
	assert.Equal(t, 1, snap.Version.Number)
	assert.Len(t, snap.Files, 1)

	two := 2
	_, err = svc.Get(ctx, "toolkit", &two)
	assert.True(t, cerr.IsCode(err, cerr.NotFound), "got %v", err)
}

func TestResolveByIDThenName(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	snap, err := svc.Create(ctx, skill.CreateInput{
		Name:  "by-name",
		Files: []skill.FileInput{markerFile("x")},
	})
	require.NoError(t, err)

	byID, err := svc.Resolve(ctx, snap.Skill.ID)
	require.NoError(t, err)
	byName, err := svc.Resolve(ctx, "by-name")
	require.NoError(t, err)
	assert.Equal(t, byID.ID, byName.ID)

	_, err = svc.Resolve(ctx, "missing")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestGetDefaultsToLatestVersion(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.Create(ctx, skill.CreateInput{
		Name:  "toolkit",
		Files: []skill.FileInput{{Path: "a.md", Content: "v1"}},
	})
	require.NoError(t, err)
	_, err = svc.Update(ctx, "toolkit", skill.UpdateInput{
		Changes: []skill.FileChange{
			{Type: skill.ChangeUpdate, Path: "a.md", Content: strPtr("v2")},
		},
	})
	require.NoError(t, err)

	snap, err := svc.Get(ctx, "toolkit", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Version.Number)

	missing := 99
	_, err = svc.Get(ctx, "toolkit", &missing)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestListFiltersAndStatus(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	for _, name := range []string{"alpha-review", "beta-review", "gamma"} {
		_, err := svc.Create(ctx, skill.CreateInput{
			Name:  name,
			Files: []skill.FileInput{markerFile(name)},
		})
		require.NoError(t, err)
	}
	_, err := svc.SetStatus(ctx, "gamma", false)
	require.NoError(t, err)

	entries, err := svc.List(ctx, skill.ListInput{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = svc.List(ctx, skill.ListInput{})
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	entries, err = svc.List(ctx, skill.ListInput{Query: "REVIEW"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSetStatusIsIdempotent(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.Create(ctx, skill.CreateInput{
		Name:  "toggle",
		Files: []skill.FileInput{markerFile("x")},
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		sk, err := svc.SetStatus(ctx, "toggle", false)
		require.NoError(t, err)
		assert.False(t, sk.Active)
	}
	snap, err := svc.Get(ctx, "toggle", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version.Number)
}
