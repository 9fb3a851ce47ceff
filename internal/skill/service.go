package skill

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/skilldepot/skilldepot/internal/validation"
	"github.com/skilldepot/skilldepot/pkg/cerr"
)

// versionRetries bounds the retry loop that resolves a lost race on the
// (skill_id, version_number) uniqueness constraint.
const versionRetries = 3

const defaultListLimit = 50

// Service is the versioning engine. It is stateless between calls; all
// shared state lives behind the Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	Name        string
	Description string
	Files       []FileInput
	Changelog   string
	CreatedBy   CreatorKind
}

// Create inserts a new skill with version 1 holding the given file set.
// A skill of the same name already existing is a conflict. If no description
// is supplied one is derived from the marker file, best effort.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Snapshot, error) {
	if err := s.validateCreate(in); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByName(ctx, in.Name); err == nil {
		return nil, cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("skill %q already exists", in.Name), nil)
	} else if !cerr.IsCode(err, cerr.NotFound) {
		return nil, err
	}

	description := in.Description
	if description == "" {
		description = DeriveDescription(in.Files)
	}
	createdBy := in.CreatedBy
	if createdBy == "" {
		createdBy = CreatorManual
	}

	now := s.now()
	sk := &Skill{
		ID:          ulid.Make().String(),
		Name:        in.Name,
		Description: description,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	v := &Version{
		ID:        ulid.Make().String(),
		SkillID:   sk.ID,
		Number:    1,
		Changelog: in.Changelog,
		CreatedBy: createdBy,
		CreatedAt: now,
	}
	files := make([]*File, len(in.Files))
	for i, fi := range in.Files {
		files[i] = fileFromInput(sk.ID, v.ID, fi, now)
	}

	if err := s.repo.Create(ctx, sk); err != nil {
		return nil, err
	}
	// The three inserts are one logical unit. The repository only guarantees
	// single-statement atomicity, so a failure past this point rolls back the
	// skill row (cascade removes whatever made it in).
	if err := s.repo.CreateVersion(ctx, v); err != nil {
		_ = s.repo.Delete(ctx, sk.ID)
		return nil, err
	}
	if err := s.repo.CreateFiles(ctx, files); err != nil {
		_ = s.repo.Delete(ctx, sk.ID)
		return nil, err
	}

	return &Snapshot{Skill: sk, Version: v, Files: files}, nil
}

func (s *Service) validateCreate(in CreateInput) error {
	var problems []string
	collect := func(_ bool, ps []string) {
		problems = append(problems, ps...)
	}
	collect(validation.CheckName(in.Name))
	collect(validation.CheckDescription(in.Description))
	collect(validation.CheckChangelog(in.Changelog))
	collect(validation.CheckFileCount(len(in.Files)))
	paths := make([]string, len(in.Files))
	for i, f := range in.Files {
		paths[i] = f.Path
		collect(validation.CheckPath(f.Path))
		collect(validation.CheckContent(f.Path, f.Content))
	}
	collect(validation.CheckDuplicatePaths(paths))
	if len(problems) > 0 {
		return cerr.NewErrorWithDetails(cerr.InvalidArgument, "invalid skill input", nil, problems)
	}
	return nil
}

type UpdateInput struct {
	Description *string
	Changes     []FileChange
	Changelog   string
	CreatedBy   CreatorKind
}

// Update materializes a new version from the latest one plus the ordered
// change batch. Prior versions are never touched. The ref may be an id or a
// name; id wins. Lost races on the version number are retried against a
// fresh read of the latest version.
func (s *Service) Update(ctx context.Context, ref string, in UpdateInput) (*Snapshot, error) {
	sk, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.validateUpdate(in); err != nil {
		return nil, err
	}
	// An empty change batch is a metadata-only patch. The file set is
	// unchanged, so no new version is materialized; the latest one is
	// returned with the patched skill.
	if len(in.Changes) == 0 {
		patch := Patch{UpdatedAt: s.now()}
		if in.Description != nil {
			patch.Description = in.Description
		}
		updated, err := s.repo.Update(ctx, sk.ID, patch)
		if err != nil {
			return nil, err
		}
		return s.latestSnapshot(ctx, updated)
	}

	createdBy := in.CreatedBy
	if createdBy == "" {
		createdBy = CreatorManual
	}

	var (
		v     *Version
		files []*File
	)
	for attempt := 0; ; attempt++ {
		v, files, err = s.writeNextVersion(ctx, sk, in.Changes, in.Changelog, createdBy)
		if err == nil {
			break
		}
		if cerr.IsCode(err, cerr.AlreadyExists) && attempt < versionRetries-1 {
			continue
		}
		return nil, err
	}

	patch := Patch{UpdatedAt: s.now()}
	if in.Description != nil {
		patch.Description = in.Description
	} else if derived := deriveFromChanges(in.Changes); derived != "" {
		patch.Description = &derived
	}
	updated, err := s.repo.Update(ctx, sk.ID, patch)
	if err != nil {
		return nil, err
	}

	return &Snapshot{Skill: updated, Version: v, Files: files}, nil
}

func (s *Service) latestSnapshot(ctx context.Context, sk *Skill) (*Snapshot, error) {
	number, err := s.resolveVersionNumber(ctx, sk, nil)
	if err != nil {
		return nil, err
	}
	v, err := s.repo.FindVersion(ctx, sk.ID, number)
	if err != nil {
		return nil, err
	}
	files, err := s.repo.FindFilesByVersionID(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Skill: sk, Version: v, Files: files}, nil
}

// writeNextVersion reads the current latest file set, applies the change
// batch to a copy, and writes the entire result as version previousMax+1.
func (s *Service) writeNextVersion(ctx context.Context, sk *Skill, changes []FileChange, changelog string, createdBy CreatorKind) (*Version, []*File, error) {
	latest, err := s.repo.LatestVersionNumber(ctx, sk.ID)
	if err != nil {
		return nil, nil, err
	}

	current := map[string]*File{}
	if latest > 0 {
		lv, err := s.repo.FindVersion(ctx, sk.ID, latest)
		if err != nil {
			return nil, nil, err
		}
		currentFiles, err := s.repo.FindFilesByVersionID(ctx, lv.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, f := range currentFiles {
			current[f.Path] = f
		}
	}

	// The batch has no duplicate paths at this point, so counting net adds
	// and deletes against the current set gives the exact resulting size.
	adds, deletes := 0, 0
	for _, ch := range changes {
		switch ch.Type {
		case ChangeAdd, ChangeUpdate:
			if _, ok := current[ch.Path]; !ok {
				adds++
			}
		case ChangeDelete:
			if _, ok := current[ch.Path]; ok {
				deletes++
			}
		}
	}
	if ok, problems := validation.CheckResultingFileCount(len(current), adds, deletes); !ok {
		return nil, nil, cerr.NewErrorWithDetails(cerr.InvalidArgument, "invalid file changes", nil, problems)
	}

	result := applyChanges(current, changes)

	now := s.now()
	v := &Version{
		ID:        ulid.Make().String(),
		SkillID:   sk.ID,
		Number:    latest + 1,
		Changelog: changelog,
		CreatedBy: createdBy,
		CreatedAt: now,
	}

	paths := make([]string, 0, len(result))
	for p := range result {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	files := make([]*File, 0, len(result))
	for _, p := range paths {
		f := *result[p]
		f.ID = ulid.Make().String()
		f.SkillID = sk.ID
		f.VersionID = v.ID
		f.CreatedAt = now
		files = append(files, &f)
	}

	if err := s.repo.CreateVersion(ctx, v); err != nil {
		return nil, nil, err
	}
	if err := s.repo.CreateFiles(ctx, files); err != nil {
		_ = s.repo.DeleteVersion(ctx, v.ID)
		return nil, nil, err
	}
	return v, files, nil
}

// applyChanges produces the complete file set of the next version. Changes
// apply in order: add and update both upsert, delete removes if present.
func applyChanges(current map[string]*File, changes []FileChange) map[string]*File {
	result := make(map[string]*File, len(current))
	for p, f := range current {
		copied := *f
		result[p] = &copied
	}
	for _, ch := range changes {
		switch ch.Type {
		case ChangeAdd, ChangeUpdate:
			f, ok := result[ch.Path]
			if !ok {
				f = &File{Path: ch.Path}
				result[ch.Path] = f
			}
			if ch.Content != nil {
				f.Content = *ch.Content
			}
			if ch.IsExecutable != nil {
				f.IsExecutable = *ch.IsExecutable
			}
			if ch.ScriptLanguage != nil {
				f.ScriptLanguage = *ch.ScriptLanguage
			}
			if ch.RunInstructions != nil {
				f.RunInstructions = *ch.RunInstructions
			}
		case ChangeDelete:
			delete(result, ch.Path)
		}
	}
	return result
}

func (s *Service) validateUpdate(in UpdateInput) error {
	var problems []string
	collect := func(_ bool, ps []string) {
		problems = append(problems, ps...)
	}
	if in.Description != nil {
		collect(validation.CheckDescription(*in.Description))
	}
	collect(validation.CheckChangelog(in.Changelog))
	paths := make([]string, 0, len(in.Changes))
	for _, ch := range in.Changes {
		paths = append(paths, ch.Path)
		switch ch.Type {
		case ChangeAdd, ChangeUpdate:
			collect(validation.CheckPath(ch.Path))
			if ch.Content == nil {
				problems = append(problems, fmt.Sprintf("change for %q is missing content", ch.Path))
			} else {
				collect(validation.CheckContent(ch.Path, *ch.Content))
			}
		case ChangeDelete:
			collect(validation.CheckPath(ch.Path))
		default:
			problems = append(problems, fmt.Sprintf("unknown change type %q for %q", ch.Type, ch.Path))
		}
	}
	collect(validation.CheckDuplicatePaths(paths))
	if len(problems) > 0 {
		return cerr.NewErrorWithDetails(cerr.InvalidArgument, "invalid file changes", nil, problems)
	}
	return nil
}

// deriveFromChanges re-derives a description when the change batch rewrote
// the marker file.
func deriveFromChanges(changes []FileChange) string {
	for _, ch := range changes {
		if ch.Path == MarkerFile && ch.Type != ChangeDelete && ch.Content != nil {
			return Excerpt(*ch.Content)
		}
	}
	return ""
}

// Resolve looks a skill up by id first, then by name. Both failing is a
// single typed NotFound; every operation accepting a skill reference goes
// through here.
func (s *Service) Resolve(ctx context.Context, ref string) (*Skill, error) {
	if ref == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "skill reference must not be empty", nil)
	}
	sk, err := s.repo.FindByID(ctx, ref)
	if err == nil {
		return sk, nil
	}
	if !cerr.IsCode(err, cerr.NotFound) {
		return nil, err
	}
	sk, err = s.repo.FindByName(ctx, ref)
	if err == nil {
		return sk, nil
	}
	if !cerr.IsCode(err, cerr.NotFound) {
		return nil, err
	}
	return nil, cerr.NewError(cerr.NotFound, fmt.Sprintf("skill %q not found", ref), nil)
}

type ListInput struct {
	ActiveOnly bool
	Query      string
	Limit      int
	Offset     int
}

// List returns skills matching the filter. The limit is clamped so callers
// cannot request unbounded result sets.
func (s *Service) List(ctx context.Context, in ListInput) ([]*ListEntry, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > validation.MaxListLimit {
		limit = validation.MaxListLimit
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, ListFilter{
		ActiveOnly: in.ActiveOnly,
		NameQuery:  in.Query,
		Limit:      limit,
		Offset:     offset,
	})
}

// Get returns the snapshot of one version, defaulting to the latest.
func (s *Service) Get(ctx context.Context, ref string, versionNumber *int) (*Snapshot, error) {
	sk, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	number, err := s.resolveVersionNumber(ctx, sk, versionNumber)
	if err != nil {
		return nil, err
	}
	v, err := s.repo.FindVersion(ctx, sk.ID, number)
	if err != nil {
		return nil, err
	}
	files, err := s.repo.FindFilesByVersionID(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Skill: sk, Version: v, Files: files}, nil
}

// GetFile returns one file of one version, defaulting to the latest.
func (s *Service) GetFile(ctx context.Context, ref string, path string, versionNumber *int) (*File, error) {
	sk, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	number, err := s.resolveVersionNumber(ctx, sk, versionNumber)
	if err != nil {
		return nil, err
	}
	v, err := s.repo.FindVersion(ctx, sk.ID, number)
	if err != nil {
		return nil, err
	}
	return s.repo.FindFile(ctx, v.ID, path)
}

func (s *Service) resolveVersionNumber(ctx context.Context, sk *Skill, versionNumber *int) (int, error) {
	if versionNumber != nil {
		return *versionNumber, nil
	}
	latest, err := s.repo.LatestVersionNumber(ctx, sk.ID)
	if err != nil {
		return 0, err
	}
	if latest == 0 {
		return 0, cerr.NewError(cerr.NotFound, fmt.Sprintf("skill %q has no versions", sk.Name), nil)
	}
	return latest, nil
}

// SetStatus flips the active flag. Idempotent.
func (s *Service) SetStatus(ctx context.Context, ref string, active bool) (*Skill, error) {
	sk, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, sk.ID, Patch{Active: &active, UpdatedAt: s.now()})
}

func fileFromInput(skillID, versionID string, fi FileInput, now time.Time) *File {
	return &File{
		ID:              ulid.Make().String(),
		SkillID:         skillID,
		VersionID:       versionID,
		Path:            fi.Path,
		Content:         fi.Content,
		IsExecutable:    fi.IsExecutable,
		ScriptLanguage:  fi.ScriptLanguage,
		RunInstructions: fi.RunInstructions,
		CreatedAt:       now,
	}
}
