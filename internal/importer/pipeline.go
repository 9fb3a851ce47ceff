package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/skilldepot/skilldepot/internal/session"
	"github.com/skilldepot/skilldepot/internal/skill"
	"github.com/skilldepot/skilldepot/internal/validation"
	"github.com/skilldepot/skilldepot/pkg/cerr"
)

const importChangelog = "Imported from archive upload"

// commitWorkers caps the commit fan-out so a large selection cannot spawn
// an unbounded number of goroutines.
const commitWorkers = 8

// Preview is what the parse phase reports about one candidate folder.
type Preview struct {
	Name        string   `json:"name"`
	Valid       bool     `json:"valid"`
	FileCount   int      `json:"file_count"`
	Errors      []string `json:"errors"`
	Description string   `json:"description,omitempty"`
}

// ParseResult is the outcome of staging an uploaded archive.
type ParseResult struct {
	SessionID string    `json:"session_id"`
	Previews  []Preview `json:"skills"`
	ExpiresAt time.Time `json:"expires_at"`
}

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ItemResult is the per-candidate outcome of the commit phase.
type ItemResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	SkillID string `json:"skill_id,omitempty"`
	Version int    `json:"version,omitempty"`
	IsNew   bool   `json:"is_new,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CommitResult aggregates the commit phase. Partial success is the expected
// steady state: failed items never abort their siblings.
type CommitResult struct {
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []ItemResult `json:"results"`
}

// Pipeline is the two-phase bulk importer: Parse stages an archive into a
// session, Commit pushes a selection of its candidates through the
// versioning engine.
type Pipeline struct {
	engine   *skill.Service
	sessions session.Store
}

func NewPipeline(engine *skill.Service, sessions session.Store) *Pipeline {
	return &Pipeline{
		engine:   engine,
		sessions: sessions,
	}
}

// Parse extracts candidate folders from the archive, validates each, and
// stages the full candidate list (invalid ones included, so callers can
// inspect their errors) under a fresh session.
func (p *Pipeline) Parse(ctx context.Context, archive []byte) (*ParseResult, error) {
	if len(archive) > validation.MaxArchiveSize {
		return nil, cerr.NewError(cerr.InvalidArgument,
			fmt.Sprintf("archive exceeds %d bytes", validation.MaxArchiveSize), nil)
	}

	folders, err := extractFolders(archive)
	if err != nil {
		return nil, err
	}

	previews := make([]Preview, len(folders))
	for i, f := range folders {
		valid, problems := validateFolder(f)
		previews[i] = Preview{
			Name:      f.Name,
			Valid:     valid,
			FileCount: len(f.Files),
			Errors:    problems,
		}
		if valid {
			previews[i].Description = folderDescription(f)
		}
	}

	sess, err := p.sessions.Create(ctx, folders)
	if err != nil {
		return nil, err
	}
	return &ParseResult{
		SessionID: sess.ID,
		Previews:  previews,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// Commit imports the selected candidates of a staged session. The session
// is single-use: it is deleted once processing finishes, success or not.
// Selected names with no matching candidate are reported as failed items
// rather than silently dropped.
func (p *Pipeline) Commit(ctx context.Context, sessionID string, selected []string) (*CommitResult, error) {
	sess, err := p.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]session.Folder, len(sess.Folders))
	for _, f := range sess.Folders {
		byName[f.Name] = f
	}

	seen := make(map[string]bool, len(selected))
	var names []string
	for _, name := range selected {
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	// Distinct candidates are distinct skills, so they import in parallel
	// through a bounded worker group. Each item catches its own panic; one
	// bad candidate never takes down its siblings.
	results := make([]ItemResult, len(names))
	workers := pool.New().WithMaxGoroutines(commitWorkers)
	for i, name := range names {
		workers.Go(func() {
			var catcher panics.Catcher
			catcher.Try(func() {
				results[i] = p.importOne(ctx, byName, name)
			})
			if recovered := catcher.Recovered(); recovered != nil {
				results[i] = ItemResult{
					Name:   name,
					Status: StatusFailed,
					Error:  fmt.Sprintf("internal error: %v", recovered.Value),
				}
			}
		})
	}
	workers.Wait()

	if err := p.sessions.Delete(ctx, sessionID); err != nil {
		// Expiry will reclaim it; the import outcome stands.
		slog.WarnContext(ctx, "failed to delete import session", "session_id", sessionID, "error", err)
	}

	result := &CommitResult{
		Total:   len(results),
		Results: results,
	}
	for _, r := range results {
		if r.Status == StatusSuccess {
			result.Successful++
		} else {
			result.Failed++
		}
	}
	return result, nil
}

func (p *Pipeline) importOne(ctx context.Context, byName map[string]session.Folder, name string) ItemResult {
	folder, ok := byName[name]
	if !ok {
		return ItemResult{
			Name:   name,
			Status: StatusFailed,
			Error:  "not part of this import session",
		}
	}

	// Re-validate: a selection made against a stale preview must not bypass
	// the structural rules.
	if valid, problems := validateFolder(folder); !valid {
		return ItemResult{
			Name:   name,
			Status: StatusFailed,
			Error:  strings.Join(problems, "; "),
		}
	}

	inputs := folderInputs(folder)
	snap, err := p.engine.Create(ctx, skill.CreateInput{
		Name:      folder.Name,
		Files:     inputs,
		Changelog: importChangelog,
		CreatedBy: skill.CreatorAutomated,
	})
	if err == nil {
		return ItemResult{
			Name:    name,
			Status:  StatusSuccess,
			SkillID: snap.Skill.ID,
			Version: snap.Version.Number,
			IsNew:   true,
		}
	}
	if !cerr.IsCode(err, cerr.AlreadyExists) {
		return ItemResult{Name: name, Status: StatusFailed, Error: errorMessage(err)}
	}

	snap, err = p.updateExisting(ctx, folder.Name, inputs)
	if err != nil {
		return ItemResult{Name: name, Status: StatusFailed, Error: errorMessage(err)}
	}
	return ItemResult{
		Name:    name,
		Status:  StatusSuccess,
		SkillID: snap.Skill.ID,
		Version: snap.Version.Number,
		IsNew:   false,
	}
}

// updateExisting turns the import into a full-snapshot replace of the
// skill's latest version: every imported file is an update, and every
// current path absent from the import is a delete.
func (p *Pipeline) updateExisting(ctx context.Context, name string, inputs []skill.FileInput) (*skill.Snapshot, error) {
	current, err := p.engine.Get(ctx, name, nil)
	if err != nil {
		return nil, err
	}

	imported := make(map[string]bool, len(inputs))
	changes := make([]skill.FileChange, 0, len(inputs))
	for _, in := range inputs {
		imported[in.Path] = true
		changes = append(changes, skill.FileChange{
			Type:            skill.ChangeUpdate,
			Path:            in.Path,
			Content:         &in.Content,
			IsExecutable:    &in.IsExecutable,
			ScriptLanguage:  &in.ScriptLanguage,
			RunInstructions: &in.RunInstructions,
		})
	}
	for _, f := range current.Files {
		if !imported[f.Path] {
			changes = append(changes, skill.FileChange{Type: skill.ChangeDelete, Path: f.Path})
		}
	}

	return p.engine.Update(ctx, name, skill.UpdateInput{
		Changes:   changes,
		Changelog: importChangelog,
		CreatedBy: skill.CreatorAutomated,
	})
}

func errorMessage(err error) string {
	var cErr *cerr.Error
	if errors.As(err, &cErr) {
		if len(cErr.Details) > 0 {
			return cErr.Msg + ": " + strings.Join(cErr.Details, "; ")
		}
		return cErr.Msg
	}
	return err.Error()
}
