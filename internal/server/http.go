package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alfredjeanlab/flowboard/internal/model"
)

// maxImportBytes bounds the body of POST /v1/issues.
const maxImportBytes = 32 << 20

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *DashboardServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/active-work", s.handleActiveWork)
	mux.HandleFunc("GET /v1/completed", s.handleCompleted)
	mux.HandleFunc("GET /v1/search/validate", s.handleValidateQuery)
	mux.HandleFunc("POST /v1/issues", s.handleImportIssues)
	mux.HandleFunc("GET /v1/profiles", s.handleListProfiles)
	mux.HandleFunc("GET /v1/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /v1/settings", s.handleUpdateSettings)
	mux.HandleFunc("GET /v1/views", s.handleListViews)
	mux.HandleFunc("GET /v1/views/{name}", s.handleGetView)
	mux.HandleFunc("PUT /v1/views/{name}", s.handleSaveView)
	mux.HandleFunc("DELETE /v1/views/{name}", s.handleDeleteView)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	return RequestLogger(AuthMiddleware(authToken, mux))
}

// healthResponse is the body of GET /v1/health.
type healthResponse struct {
	Status    string `json:"status"`
	StartedAt string `json:"started_at"`
	Sync      any    `json:"sync,omitempty"`
}

// handleHealth handles GET /v1/health.
func (s *DashboardServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", StartedAt: s.startedAt.Format(time.RFC3339)}
	if s.scheduler != nil {
		resp.Sync = s.scheduler.LastStatus()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleActiveWork handles GET /v1/active-work?profile=&query_id=&q=&strict=&view=.
// A view supplies the query when q is empty.
func (s *DashboardServer) handleActiveWork(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	strict, err := parseBool(q.Get("strict"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "strict must be a boolean")
		return
	}
	query := q.Get("q")
	if name := q.Get("view"); name != "" && query == "" {
		v, err := s.View(r.Context(), name)
		if err != nil {
			writeHTTPError(w, err)
			return
		}
		query = v.Query
	}
	resp, err := s.ActiveWork(r.Context(), scopeOf(r), query, strict)
	if err != nil {
		writeHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCompleted handles GET /v1/completed?profile=&query_id=&weeks=.
func (s *DashboardServer) handleCompleted(w http.ResponseWriter, r *http.Request) {
	weeks := 0
	if v := r.URL.Query().Get("weeks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "weeks must be an integer")
			return
		}
		weeks = n
	}
	resp, err := s.Completed(r.Context(), scopeOf(r), weeks)
	if err != nil {
		writeHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleValidateQuery handles GET /v1/search/validate?profile=&query_id=&q=.
func (s *DashboardServer) handleValidateQuery(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ValidateQuery(r.Context(), scopeOf(r), r.URL.Query().Get("q"))
	if err != nil {
		writeHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleImportIssues handles POST /v1/issues?profile=&query_id=.
// The body is a JSON array of issues in the flat or nested shape.
func (s *DashboardServer) handleImportIssues(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	resp, err := s.ImportIssues(r.Context(), scopeOf(r), body)
	if err != nil {
		writeHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListProfiles handles GET /v1/profiles.
func (s *DashboardServer) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.Profiles(r.Context())
	if err != nil {
		writeHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}

// handleGetSettings handles GET /v1/settings.
func (s *DashboardServer) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.Settings(r.Context())
	if err != nil {
		writeHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleUpdateSettings handles PUT /v1/settings.
func (s *DashboardServer) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req model.AppSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	settings, err := s.UpdateSettings(r.Context(), req)
	if err != nil {
		writeHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func scopeOf(r *http.Request) Scope {
	q := r.URL.Query()
	return Scope{ProfileID: q.Get("profile"), QueryID: q.Get("query_id")}
}

func parseBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

// writeHTTPError maps service errors to status codes.
func writeHTTPError(w http.ResponseWriter, err error) {
	var (
		ie inputError
		ve *model.ValidationError
	)
	switch {
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Error())
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": ve.Error(), "fields": ve.Errors})
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, "not found")
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
