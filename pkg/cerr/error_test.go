package cerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsCodeAndCodeOf(t *testing.T) {
	base := NewError(NotFound, "skill not found", nil)

	if !IsCode(base, NotFound) {
		t.Error("IsCode failed on direct error")
	}
	wrapped := fmt.Errorf("handler: %w", base)
	if !IsCode(wrapped, NotFound) {
		t.Error("IsCode failed on wrapped error")
	}
	if IsCode(errors.New("plain"), NotFound) {
		t.Error("IsCode matched a plain error")
	}

	if got := CodeOf(wrapped); got != NotFound {
		t.Errorf("CodeOf = %v, want NotFound", got)
	}
	if got := CodeOf(errors.New("plain")); got != Unknown {
		t.Errorf("CodeOf(plain) = %v, want Unknown", got)
	}
	if got := CodeOf(nil); got != OK {
		t.Errorf("CodeOf(nil) = %v, want OK", got)
	}
}

func TestStackCapturedForErrorLevelCodes(t *testing.T) {
	if err := NewError(Internal, "boom", nil); err.Stack == "" {
		t.Error("Internal error should carry a stack trace")
	}
	if err := NewError(NotFound, "missing", nil); err.Stack != "" {
		t.Error("NotFound error should not carry a stack trace")
	}
}

func TestErrorString(t *testing.T) {
	err := NewError(InvalidArgument, "bad input", errors.New("underlying"))
	want := "[InvalidArgument] bad input: underlying"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestEnvelopeMiddleware(t *testing.T) {
	mw := NewJSONEnvelopeChiMiddleware()

	t.Run("success", func(t *testing.T) {
		h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			SetJSONResponse(r.Context(), map[string]string{"name": "code-review"})
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/skills", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var body struct {
			OK   bool              `json:"ok"`
			Data map[string]string `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid body: %v", err)
		}
		if !body.OK || body.Data["name"] != "code-review" {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("typed error", func(t *testing.T) {
		h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			SetJSONError(r.Context(), NewErrorWithDetails(InvalidArgument, "invalid skill input", nil, []string{"name must not be empty"}))
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/skills", nil))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
		var body struct {
			OK    bool `json:"ok"`
			Error struct {
				Code    string   `json:"code"`
				Message string   `json:"message"`
				Details []string `json:"details"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid body: %v", err)
		}
		if body.OK || body.Error.Code != "InvalidArgument" || len(body.Error.Details) != 1 {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("untyped error becomes Unknown", func(t *testing.T) {
		h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			SetJSONError(r.Context(), errors.New("surprise"))
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/skills", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}
