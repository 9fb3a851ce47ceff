package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a typed REST client for the skilldepot server. Responses arrive
// wrapped in the server's JSON envelope; Client unwraps it and surfaces
// envelope errors as *APIError.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is the error half of the server's response envelope.
type APIError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

type File struct {
	Path            string `json:"path"`
	Content         string `json:"content"`
	IsExecutable    bool   `json:"is_executable,omitempty"`
	ScriptLanguage  string `json:"script_language,omitempty"`
	RunInstructions string `json:"run_instructions_for_ai,omitempty"`
}

type FileChange struct {
	Type            string  `json:"type"`
	Path            string  `json:"path"`
	Content         *string `json:"content,omitempty"`
	IsExecutable    *bool   `json:"is_executable,omitempty"`
	ScriptLanguage  *string `json:"script_language,omitempty"`
	RunInstructions *string `json:"run_instructions_for_ai,omitempty"`
}

type Version struct {
	ID            string    `json:"id"`
	VersionNumber int       `json:"version_number"`
	Changelog     string    `json:"changelog,omitempty"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

type SnapshotFile struct {
	Path            string `json:"path"`
	IsExecutable    bool   `json:"is_executable,omitempty"`
	ScriptLanguage  string `json:"script_language,omitempty"`
	RunInstructions string `json:"run_instructions_for_ai,omitempty"`
}

type Snapshot struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Active      bool           `json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Version     Version        `json:"version"`
	Files       []SnapshotFile `json:"files"`
}

type Skill struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListEntry struct {
	ID            string    `json:"id,omitempty"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Active        bool      `json:"active,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitzero"`
	UpdatedAt     time.Time `json:"updated_at,omitzero"`
	LatestVersion int       `json:"latest_version,omitempty"`
}

type CreateSkillRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Files       []File `json:"files"`
	Changelog   string `json:"changelog,omitempty"`
}

type UpdateSkillRequest struct {
	Description *string      `json:"description,omitempty"`
	FileChanges []FileChange `json:"file_changes,omitempty"`
	Changelog   string       `json:"changelog,omitempty"`
}

type ListOptions struct {
	Query        string
	ShowInactive bool
	Detailed     bool
	Limit        int
	Offset       int
}

type ImportPreview struct {
	Name        string   `json:"name"`
	Valid       bool     `json:"valid"`
	FileCount   int      `json:"file_count"`
	Errors      []string `json:"errors"`
	Description string   `json:"description,omitempty"`
}

type ParseResult struct {
	SessionID string          `json:"session_id"`
	Previews  []ImportPreview `json:"skills"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type ImportItemResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	SkillID string `json:"skill_id,omitempty"`
	Version int    `json:"version,omitempty"`
	IsNew   bool   `json:"is_new,omitempty"`
	Error   string `json:"error,omitempty"`
}

type CommitResult struct {
	Total      int                `json:"total"`
	Successful int                `json:"successful"`
	Failed     int                `json:"failed"`
	Results    []ImportItemResult `json:"results"`
}

func (c *Client) CreateSkill(ctx context.Context, req CreateSkillRequest) (*Snapshot, error) {
	var snap Snapshot
	if err := c.doJSON(ctx, http.MethodPost, "/api/skills", nil, req, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) UpdateSkill(ctx context.Context, ref string, req UpdateSkillRequest) (*Snapshot, error) {
	var snap Snapshot
	if err := c.doJSON(ctx, http.MethodPut, "/api/skills/"+url.PathEscape(ref), nil, req, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) ListSkills(ctx context.Context, opts ListOptions) ([]ListEntry, error) {
	q := url.Values{}
	if opts.Query != "" {
		q.Set("query", opts.Query)
	}
	if opts.ShowInactive {
		q.Set("show_inactive", "true")
	}
	if opts.Detailed {
		q.Set("detailed", "true")
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	var entries []ListEntry
	if err := c.doJSON(ctx, http.MethodGet, "/api/skills", q, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) GetSkill(ctx context.Context, ref string, version int) (*Snapshot, error) {
	q := url.Values{}
	if version > 0 {
		q.Set("version", strconv.Itoa(version))
	}
	var snap Snapshot
	if err := c.doJSON(ctx, http.MethodGet, "/api/skills/"+url.PathEscape(ref), q, nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) GetSkillFile(ctx context.Context, ref, path string, version int) (*File, error) {
	q := url.Values{}
	if version > 0 {
		q.Set("version", strconv.Itoa(version))
	}
	var f File
	// The file path is part of the URL and may contain slashes; escape each
	// segment, not the separators.
	escaped := make([]string, 0)
	for _, seg := range strings.Split(path, "/") {
		escaped = append(escaped, url.PathEscape(seg))
	}
	endpoint := "/api/skills/" + url.PathEscape(ref) + "/files/" + strings.Join(escaped, "/")
	if err := c.doJSON(ctx, http.MethodGet, endpoint, q, nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) SetSkillStatus(ctx context.Context, ref string, active bool) (*Skill, error) {
	var sk Skill
	body := map[string]bool{"active": active}
	if err := c.doJSON(ctx, http.MethodPut, "/api/skills/"+url.PathEscape(ref)+"/status", nil, body, &sk); err != nil {
		return nil, err
	}
	return &sk, nil
}

// ParseImport uploads a zip archive and stages its candidates.
func (c *Client) ParseImport(ctx context.Context, filename string, archive []byte) (*ParseResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("archive", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart request: %w", err)
	}
	if _, err := part.Write(archive); err != nil {
		return nil, fmt.Errorf("failed to build multipart request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/import/parse", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result ParseResult
	if err := c.send(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) CommitImport(ctx context.Context, sessionID string, selected []string) (*CommitResult, error) {
	body := map[string]any{
		"session_id":      sessionID,
		"selected_skills": selected,
	}
	var result CommitResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/import/commit", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("unexpected response (status %d): %s", resp.StatusCode, string(raw))
	}
	if !env.OK {
		if env.Error != nil {
			return env.Error
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
