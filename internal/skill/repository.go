package skill

import (
	"context"
	"time"
)

// ListFilter narrows and pages a skill listing.
type ListFilter struct {
	ActiveOnly bool
	// NameQuery is a case-insensitive substring match on the name.
	NameQuery string
	Limit     int
	Offset    int
}

// Patch carries the skill-level fields an update may touch. Nil fields are
// left as they are.
type Patch struct {
	Description *string
	Active      *bool
	UpdatedAt   time.Time
}

// Repository is the persistence boundary of the versioning engine. Every
// call is atomic at the single-statement level; CreateFiles is the batch
// primitive for multi-row writes. Implementations return cerr-typed errors:
// NotFound for missing rows, AlreadyExists for uniqueness violations
// (skill name, and the (skill_id, version_number) pair that serializes
// concurrent updates), Internal for everything else.
type Repository interface {
	Create(ctx context.Context, s *Skill) error
	FindByID(ctx context.Context, id string) (*Skill, error)
	FindByName(ctx context.Context, name string) (*Skill, error)
	List(ctx context.Context, filter ListFilter) ([]*ListEntry, error)
	Update(ctx context.Context, id string, patch Patch) (*Skill, error)
	// Delete removes a skill and, by cascade, its versions and files. The
	// engine only uses it to roll back a partially created skill.
	Delete(ctx context.Context, id string) error

	CreateVersion(ctx context.Context, v *Version) error
	FindVersionsBySkillID(ctx context.Context, skillID string) ([]*Version, error)
	FindVersion(ctx context.Context, skillID string, number int) (*Version, error)
	// LatestVersionNumber returns 0 when the skill has no versions yet.
	LatestVersionNumber(ctx context.Context, skillID string) (int, error)
	// DeleteVersion removes a version and its files. Compensation only; an
	// established version is never deleted.
	DeleteVersion(ctx context.Context, versionID string) error

	CreateFiles(ctx context.Context, files []*File) error
	FindFilesByVersionID(ctx context.Context, versionID string) ([]*File, error)
	FindFile(ctx context.Context, versionID string, path string) (*File, error)
}
