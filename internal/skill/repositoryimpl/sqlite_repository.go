package repositoryimpl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/skilldepot/skilldepot/internal/skill"
	"github.com/skilldepot/skilldepot/pkg/cerr"
)

// SQLiteRepository implements skill.Repository on a SQLite database. Unique
// constraint violations surface as AlreadyExists so the engine can detect
// name conflicts and lost version-number races.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func wrapWrite(target string, err error) error {
	if isUniqueViolation(err) {
		return cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("%s already exists", target), err)
	}
	return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to write %s: %w", target, err))
}

func wrapRead(target string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return cerr.NewError(cerr.NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to read %s: %w", target, err))
}

func (r *SQLiteRepository) Create(ctx context.Context, s *skill.Skill) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO skills (id, name, description, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Description, s.Active, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return wrapWrite("skill", err)
	}
	return nil
}

const skillColumns = `id, name, description, active, created_at, updated_at`

func scanSkill(row *sql.Row) (*skill.Skill, error) {
	var s skill.Skill
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*skill.Skill, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+skillColumns+` FROM skills WHERE id = ?`, id)
	s, err := scanSkill(row)
	if err != nil {
		return nil, wrapRead("skill", err)
	}
	return s, nil
}

func (r *SQLiteRepository) FindByName(ctx context.Context, name string) (*skill.Skill, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+skillColumns+` FROM skills WHERE name = ?`, name)
	s, err := scanSkill(row)
	if err != nil {
		return nil, wrapRead("skill", err)
	}
	return s, nil
}

func (r *SQLiteRepository) List(ctx context.Context, filter skill.ListFilter) ([]*skill.ListEntry, error) {
	query := `SELECT s.id, s.name, s.description, s.active, s.created_at, s.updated_at,
	                 COALESCE(MAX(v.version_number), 0)
	          FROM skills s
	          LEFT JOIN versions v ON v.skill_id = s.id`
	var (
		conds []string
		args  []any
	)
	if filter.ActiveOnly {
		conds = append(conds, `s.active = 1`)
	}
	if filter.NameQuery != "" {
		conds = append(conds, `instr(lower(s.name), lower(?)) > 0`)
		args = append(args, filter.NameQuery)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` GROUP BY s.id ORDER BY s.name LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapRead("skills", err)
	}
	defer rows.Close()

	var entries []*skill.ListEntry
	for rows.Next() {
		var e skill.ListEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Active,
			&e.CreatedAt, &e.UpdatedAt, &e.LatestVersion); err != nil {
			return nil, wrapRead("skills", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapRead("skills", err)
	}
	return entries, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, patch skill.Patch) (*skill.Skill, error) {
	sets := []string{`updated_at = ?`}
	args := []any{patch.UpdatedAt}
	if patch.Description != nil {
		sets = append(sets, `description = ?`)
		args = append(args, *patch.Description)
	}
	if patch.Active != nil {
		sets = append(sets, `active = ?`)
		args = append(args, *patch.Active)
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		`UPDATE skills SET `+strings.Join(sets, `, `)+` WHERE id = ?`, args...)
	if err != nil {
		return nil, wrapWrite("skill", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, wrapWrite("skill", err)
	}
	if affected == 0 {
		return nil, cerr.NewError(cerr.NotFound, "skill not found", nil)
	}
	return r.FindByID(ctx, id)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM skills WHERE id = ?`, id); err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to delete skill: %w", err))
	}
	return nil
}

func (r *SQLiteRepository) CreateVersion(ctx context.Context, v *skill.Version) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO versions (id, skill_id, version_number, changelog, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.SkillID, v.Number, v.Changelog, string(v.CreatedBy), v.CreatedAt)
	if err != nil {
		return wrapWrite("version", err)
	}
	return nil
}

const versionColumns = `id, skill_id, version_number, changelog, created_by, created_at`

func (r *SQLiteRepository) FindVersionsBySkillID(ctx context.Context, skillID string) ([]*skill.Version, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM versions WHERE skill_id = ? ORDER BY version_number`, skillID)
	if err != nil {
		return nil, wrapRead("versions", err)
	}
	defer rows.Close()

	var versions []*skill.Version
	for rows.Next() {
		var v skill.Version
		if err := rows.Scan(&v.ID, &v.SkillID, &v.Number, &v.Changelog, &v.CreatedBy, &v.CreatedAt); err != nil {
			return nil, wrapRead("versions", err)
		}
		versions = append(versions, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapRead("versions", err)
	}
	return versions, nil
}

func (r *SQLiteRepository) FindVersion(ctx context.Context, skillID string, number int) (*skill.Version, error) {
	var v skill.Version
	err := r.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM versions WHERE skill_id = ? AND version_number = ?`,
		skillID, number).
		Scan(&v.ID, &v.SkillID, &v.Number, &v.Changelog, &v.CreatedBy, &v.CreatedAt)
	if err != nil {
		return nil, wrapRead("version", err)
	}
	return &v, nil
}

func (r *SQLiteRepository) LatestVersionNumber(ctx context.Context, skillID string) (int, error) {
	var latest int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_number), 0) FROM versions WHERE skill_id = ?`, skillID).
		Scan(&latest)
	if err != nil {
		return 0, wrapRead("version", err)
	}
	return latest, nil
}

func (r *SQLiteRepository) DeleteVersion(ctx context.Context, versionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM versions WHERE id = ?`, versionID); err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to delete version: %w", err))
	}
	return nil
}

func (r *SQLiteRepository) CreateFiles(ctx context.Context, files []*skill.File) error {
	if len(files) == 0 {
		return nil
	}
	// Single multi-row insert: the batch is the largest write the engine
	// performs and must not be split into per-row statements.
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`INSERT INTO files (id, skill_id, version_id, path, content, is_executable, script_language, run_instructions, created_at) VALUES `)
	for i, f := range files {
		if i > 0 {
			sb.WriteString(`, `)
		}
		sb.WriteString(`(?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		args = append(args, f.ID, f.SkillID, f.VersionID, f.Path, f.Content,
			f.IsExecutable, f.ScriptLanguage, f.RunInstructions, f.CreatedAt)
	}
	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return wrapWrite("files", err)
	}
	return nil
}

const fileColumns = `id, skill_id, version_id, path, content, is_executable, script_language, run_instructions, created_at`

func (r *SQLiteRepository) FindFilesByVersionID(ctx context.Context, versionID string) ([]*skill.File, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE version_id = ? ORDER BY path`, versionID)
	if err != nil {
		return nil, wrapRead("files", err)
	}
	defer rows.Close()

	var files []*skill.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, wrapRead("files", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapRead("files", err)
	}
	return files, nil
}

func (r *SQLiteRepository) FindFile(ctx context.Context, versionID string, path string) (*skill.File, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE version_id = ? AND path = ?`, versionID, path)
	if err != nil {
		return nil, wrapRead("file", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, wrapRead("file", err)
		}
		return nil, cerr.NewError(cerr.NotFound, fmt.Sprintf("file %q not found", path), nil)
	}
	f, err := scanFile(rows)
	if err != nil {
		return nil, wrapRead("file", err)
	}
	return f, nil
}

func scanFile(rows *sql.Rows) (*skill.File, error) {
	var f skill.File
	err := rows.Scan(&f.ID, &f.SkillID, &f.VersionID, &f.Path, &f.Content,
		&f.IsExecutable, &f.ScriptLanguage, &f.RunInstructions, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
