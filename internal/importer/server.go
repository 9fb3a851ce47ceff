package importer

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skilldepot/skilldepot/internal/validation"
	"github.com/skilldepot/skilldepot/pkg/cerr"
)

// Server exposes the two import phases over REST.
type Server struct {
	pipeline *Pipeline
}

func NewServer(pipeline *Pipeline) *Server {
	return &Server{pipeline: pipeline}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/import/parse", s.handleParse)
	r.Post("/import/commit", s.handleCommit)
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseMultipartForm(int64(validation.MaxArchiveSize)); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid multipart request", err)
		return
	}
	part, _, err := r.FormFile("archive")
	if err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, `missing "archive" file field`, err)
		return
	}
	defer part.Close()

	// One extra byte past the cap so Parse can tell "at the limit" from
	// "over it".
	archive, err := io.ReadAll(io.LimitReader(part, int64(validation.MaxArchiveSize)+1))
	if err != nil {
		cerr.SetNewJSONError(ctx, cerr.Internal, "failed to read archive upload", err)
		return
	}
	result, err := s.pipeline.Parse(ctx, archive)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, result)
}

type commitRequest struct {
	SessionID      string   `json:"session_id"`
	SelectedSkills []string `json:"selected_skills"`
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.SessionID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "session_id is required", nil)
		return
	}
	result, err := s.pipeline.Commit(ctx, req.SessionID, req.SelectedSkills)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, result)
}
