package repositoryimpl

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/skilldepot/skilldepot/internal/skill"
	"github.com/skilldepot/skilldepot/pkg/cerr"
)

// MemoryRepository is an in-memory skill.Repository used by tests and by
// the engine's unit suite. It enforces the same uniqueness rules as the
// SQLite implementation, including the (skill_id, version_number) pair.
type MemoryRepository struct {
	mu       sync.RWMutex
	skills   map[string]*skill.Skill
	versions map[string]*skill.Version
	files    map[string][]*skill.File // version id -> files
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		skills:   make(map[string]*skill.Skill),
		versions: make(map[string]*skill.Version),
		files:    make(map[string][]*skill.File),
	}
}

func (r *MemoryRepository) Create(_ context.Context, s *skill.Skill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.skills {
		if existing.Name == s.Name {
			return cerr.NewError(cerr.AlreadyExists, "skill already exists", nil)
		}
	}
	copied := *s
	r.skills[s.ID] = &copied
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*skill.Skill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "skill not found", nil)
	}
	copied := *s
	return &copied, nil
}

func (r *MemoryRepository) FindByName(_ context.Context, name string) (*skill.Skill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.skills {
		if s.Name == name {
			copied := *s
			return &copied, nil
		}
	}
	return nil, cerr.NewError(cerr.NotFound, "skill not found", nil)
}

func (r *MemoryRepository) List(_ context.Context, filter skill.ListFilter) ([]*skill.ListEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []*skill.ListEntry
	for _, s := range r.skills {
		if filter.ActiveOnly && !s.Active {
			continue
		}
		if filter.NameQuery != "" &&
			!strings.Contains(strings.ToLower(s.Name), strings.ToLower(filter.NameQuery)) {
			continue
		}
		entries = append(entries, &skill.ListEntry{
			Skill:         *s,
			LatestVersion: r.latestLocked(s.ID),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	if filter.Offset >= len(entries) {
		return nil, nil
	}
	entries = entries[filter.Offset:]
	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

func (r *MemoryRepository) Update(_ context.Context, id string, patch skill.Patch) (*skill.Skill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.skills[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "skill not found", nil)
	}
	if patch.Description != nil {
		s.Description = *patch.Description
	}
	if patch.Active != nil {
		s.Active = *patch.Active
	}
	s.UpdatedAt = patch.UpdatedAt
	copied := *s
	return &copied, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.skills, id)
	for vid, v := range r.versions {
		if v.SkillID == id {
			delete(r.versions, vid)
			delete(r.files, vid)
		}
	}
	return nil
}

func (r *MemoryRepository) CreateVersion(_ context.Context, v *skill.Version) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.versions {
		if existing.SkillID == v.SkillID && existing.Number == v.Number {
			return cerr.NewError(cerr.AlreadyExists, "version already exists", nil)
		}
	}
	copied := *v
	r.versions[v.ID] = &copied
	return nil
}

func (r *MemoryRepository) FindVersionsBySkillID(_ context.Context, skillID string) ([]*skill.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var versions []*skill.Version
	for _, v := range r.versions {
		if v.SkillID == skillID {
			copied := *v
			versions = append(versions, &copied)
		}
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Number < versions[j].Number })
	return versions, nil
}

func (r *MemoryRepository) FindVersion(_ context.Context, skillID string, number int) (*skill.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.versions {
		if v.SkillID == skillID && v.Number == number {
			copied := *v
			return &copied, nil
		}
	}
	return nil, cerr.NewError(cerr.NotFound, fmt.Sprintf("version %d not found", number), nil)
}

func (r *MemoryRepository) LatestVersionNumber(_ context.Context, skillID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latestLocked(skillID), nil
}

func (r *MemoryRepository) latestLocked(skillID string) int {
	latest := 0
	for _, v := range r.versions {
		if v.SkillID == skillID && v.Number > latest {
			latest = v.Number
		}
	}
	return latest
}

func (r *MemoryRepository) DeleteVersion(_ context.Context, versionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.versions, versionID)
	delete(r.files, versionID)
	return nil
}

func (r *MemoryRepository) CreateFiles(_ context.Context, files []*skill.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range files {
		for _, existing := range r.files[f.VersionID] {
			if existing.Path == f.Path {
				return cerr.NewError(cerr.AlreadyExists, "file already exists", nil)
			}
		}
		copied := *f
		r.files[f.VersionID] = append(r.files[f.VersionID], &copied)
	}
	return nil
}

func (r *MemoryRepository) FindFilesByVersionID(_ context.Context, versionID string) ([]*skill.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	files := make([]*skill.File, 0, len(r.files[versionID]))
	for _, f := range r.files[versionID] {
		copied := *f
		files = append(files, &copied)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (r *MemoryRepository) FindFile(_ context.Context, versionID string, path string) (*skill.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.files[versionID] {
		if f.Path == path {
			copied := *f
			return &copied, nil
		}
	}
	return nil, cerr.NewError(cerr.NotFound, fmt.Sprintf("file %q not found", path), nil)
}
