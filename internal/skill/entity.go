package skill

import "time"

// CreatorKind records which channel produced a version.
type CreatorKind string

const (
	// CreatorManual marks versions created through the direct API.
	CreatorManual CreatorKind = "manual"
	// CreatorAutomated marks versions created by the bulk-import pipeline.
	CreatorAutomated CreatorKind = "automated"
)

// Skill is a named, versioned bundle of files. File content never lives on
// the skill itself; it belongs to the skill's versions.
type Skill struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Version is an immutable, fully-materialized snapshot of a skill's files.
// Numbers for one skill form a contiguous sequence starting at 1; a version
// is never mutated or deleted once created.
type Version struct {
	ID        string      `json:"id"`
	SkillID   string      `json:"skill_id"`
	Number    int         `json:"version_number"`
	Changelog string      `json:"changelog"`
	CreatedBy CreatorKind `json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
}

// File is one text file within a version. Path uniqueness is scoped to the
// version, not the skill: each version carries a full snapshot.
type File struct {
	ID              string    `json:"id"`
	SkillID         string    `json:"skill_id"`
	VersionID       string    `json:"version_id"`
	Path            string    `json:"path"`
	Content         string    `json:"content"`
	IsExecutable    bool      `json:"is_executable"`
	ScriptLanguage  string    `json:"script_language,omitempty"`
	RunInstructions string    `json:"run_instructions_for_ai,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// FileInput is the engine-facing shape of one file in a create batch.
type FileInput struct {
	Path            string
	Content         string
	IsExecutable    bool
	ScriptLanguage  string
	RunInstructions string
}

// ChangeType is the closed set of file mutations an update can carry.
type ChangeType string

const (
	ChangeAdd    ChangeType = "add"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// FileChange is one entry of an update batch. Add and update both upsert:
// an update against an absent path behaves as an add. Pointer fields are
// patches; nil keeps the existing value.
type FileChange struct {
	Type            ChangeType
	Path            string
	Content         *string
	IsExecutable    *bool
	ScriptLanguage  *string
	RunInstructions *string
}

// Snapshot is the composite view returned by create, update and get:
// skill fields, the version addressed, and that version's files.
type Snapshot struct {
	Skill   *Skill
	Version *Version
	Files   []*File
}

// ListEntry is one row of a list response. LatestVersion is only populated
// for the detailed projection.
type ListEntry struct {
	Skill
	LatestVersion int `json:"latest_version"`
}
