package skill

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skilldepot/skilldepot/internal/validation"
	"github.com/skilldepot/skilldepot/pkg/cerr"
)

// Server exposes the versioning engine over REST. Handlers hand their
// response or error to the cerr envelope middleware instead of writing to
// the ResponseWriter themselves.
type Server struct {
	svc *Service
}

func NewServer(svc *Service) *Server {
	return &Server{svc: svc}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/skills", s.handleCreate)
	r.Get("/skills", s.handleList)
	r.Get("/skills/{ref}", s.handleGet)
	r.Put("/skills/{ref}", s.handleUpdate)
	r.Put("/skills/{ref}/status", s.handleSetStatus)
	r.Get("/skills/{ref}/files/*", s.handleGetFile)
}

type fileDTO struct {
	Path            string `json:"path"`
	Content         string `json:"content"`
	IsExecutable    bool   `json:"is_executable,omitempty"`
	ScriptLanguage  string `json:"script_language,omitempty"`
	RunInstructions string `json:"run_instructions_for_ai,omitempty"`
}

type createRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Files       []fileDTO `json:"files"`
	Changelog   string    `json:"changelog,omitempty"`
}

type changeDTO struct {
	Type            string  `json:"type"`
	Path            string  `json:"path"`
	Content         *string `json:"content,omitempty"`
	IsExecutable    *bool   `json:"is_executable,omitempty"`
	ScriptLanguage  *string `json:"script_language,omitempty"`
	RunInstructions *string `json:"run_instructions_for_ai,omitempty"`
}

type updateRequest struct {
	SkillID     string      `json:"skill_id,omitempty"`
	Description *string     `json:"description,omitempty"`
	FileChanges []changeDTO `json:"file_changes,omitempty"`
	Changelog   string      `json:"changelog,omitempty"`
}

type statusRequest struct {
	Active bool `json:"active"`
}

type versionDTO struct {
	ID            string    `json:"id"`
	VersionNumber int       `json:"version_number"`
	Changelog     string    `json:"changelog,omitempty"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// snapshotFileDTO deliberately omits content: snapshots list files,
// GetFile serves their bytes.
type snapshotFileDTO struct {
	Path            string `json:"path"`
	IsExecutable    bool   `json:"is_executable,omitempty"`
	ScriptLanguage  string `json:"script_language,omitempty"`
	RunInstructions string `json:"run_instructions_for_ai,omitempty"`
}

type snapshotResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Active      bool              `json:"active"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Version     versionDTO        `json:"version"`
	Files       []snapshotFileDTO `json:"files"`
}

func snapshotToResponse(snap *Snapshot) snapshotResponse {
	files := make([]snapshotFileDTO, len(snap.Files))
	for i, f := range snap.Files {
		files[i] = snapshotFileDTO{
			Path:            f.Path,
			IsExecutable:    f.IsExecutable,
			ScriptLanguage:  f.ScriptLanguage,
			RunInstructions: f.RunInstructions,
		}
	}
	return snapshotResponse{
		ID:          snap.Skill.ID,
		Name:        snap.Skill.Name,
		Description: snap.Skill.Description,
		Active:      snap.Skill.Active,
		CreatedAt:   snap.Skill.CreatedAt,
		UpdatedAt:   snap.Skill.UpdatedAt,
		Version: versionDTO{
			ID:            snap.Version.ID,
			VersionNumber: snap.Version.Number,
			Changelog:     snap.Version.Changelog,
			CreatedBy:     string(snap.Version.CreatedBy),
			CreatedAt:     snap.Version.CreatedAt,
		},
		Files: files,
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	files := make([]FileInput, len(req.Files))
	for i, f := range req.Files {
		files[i] = FileInput{
			Path:            f.Path,
			Content:         f.Content,
			IsExecutable:    f.IsExecutable,
			ScriptLanguage:  f.ScriptLanguage,
			RunInstructions: f.RunInstructions,
		}
	}
	snap, err := s.svc.Create(ctx, CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Files:       files,
		Changelog:   req.Changelog,
		CreatedBy:   CreatorManual,
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, snapshotToResponse(snap))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	ref := chi.URLParam(r, "ref")
	if ref == "" {
		ref = req.SkillID
	}
	changes := make([]FileChange, len(req.FileChanges))
	for i, c := range req.FileChanges {
		changes[i] = FileChange{
			Type:            ChangeType(c.Type),
			Path:            c.Path,
			Content:         c.Content,
			IsExecutable:    c.IsExecutable,
			ScriptLanguage:  c.ScriptLanguage,
			RunInstructions: c.RunInstructions,
		}
	}
	snap, err := s.svc.Update(ctx, ref, UpdateInput{
		Description: req.Description,
		Changes:     changes,
		Changelog:   req.Changelog,
		CreatedBy:   CreatorManual,
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, snapshotToResponse(snap))
}

type minimalListItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type detailedListItem struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LatestVersion int       `json:"latest_version"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	activeOnly := true
	if parseBool(q.Get("show_inactive")) {
		activeOnly = false
	}
	if q.Has("active_only") {
		activeOnly = parseBool(q.Get("active_only"))
	}

	entries, err := s.svc.List(ctx, ListInput{
		ActiveOnly: activeOnly,
		Query:      q.Get("query"),
		Limit:      parseInt(q.Get("limit")),
		Offset:     parseInt(q.Get("offset")),
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	if parseBool(q.Get("detailed")) {
		items := make([]detailedListItem, len(entries))
		for i, e := range entries {
			items[i] = detailedListItem{
				ID:            e.ID,
				Name:          e.Name,
				Description:   truncate(e.Description, validation.MaxDescriptionLength),
				Active:        e.Active,
				CreatedAt:     e.CreatedAt,
				UpdatedAt:     e.UpdatedAt,
				LatestVersion: e.LatestVersion,
			}
		}
		cerr.SetJSONResponse(ctx, items)
		return
	}
	items := make([]minimalListItem, len(entries))
	for i, e := range entries {
		items[i] = minimalListItem{
			Name:        e.Name,
			Description: truncate(e.Description, validation.MaxDescriptionLength),
		}
	}
	cerr.SetJSONResponse(ctx, items)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	version, err := parseVersion(r.URL.Query().Get("version"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	snap, err := s.svc.Get(ctx, chi.URLParam(r, "ref"), version)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, snapshotToResponse(snap))
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	version, err := parseVersion(r.URL.Query().Get("version"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	f, err := s.svc.GetFile(ctx, chi.URLParam(r, "ref"), chi.URLParam(r, "*"), version)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, fileDTO{
		Path:            f.Path,
		Content:         f.Content,
		IsExecutable:    f.IsExecutable,
		ScriptLanguage:  f.ScriptLanguage,
		RunInstructions: f.RunInstructions,
	})
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	sk, err := s.svc.SetStatus(ctx, chi.URLParam(r, "ref"), req.Active)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, sk)
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func parseInt(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func parseVersion(v string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return nil, cerr.NewError(cerr.InvalidArgument, "version must be a positive integer", err)
	}
	return &n, nil
}
