// Package api exposes the question-answering pipeline over HTTP and MCP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/provetch/phasecheck/internal/document"
	"github.com/provetch/phasecheck/internal/ingest"
	"github.com/provetch/phasecheck/internal/phase"
	"github.com/provetch/phasecheck/internal/pipeline"
	"github.com/provetch/phasecheck/internal/session"
)

const maxUploadSize = 10 << 20 // 10MB

// Deps holds the collaborators the HTTP layer dispatches to.
type Deps struct {
	Service *pipeline.Service
	Indexer *ingest.Indexer
	Token   string // empty disables bearer auth
	Log     *slog.Logger
}

// NewHandler builds the router. All routes sit behind bearer auth when a
// token is configured.
func NewHandler(deps Deps) http.Handler {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	r := chi.NewRouter()
	if deps.Token != "" {
		r.Use(BearerAuth(deps.Token))
	}

	r.Get("/health", handleHealth(deps))
	r.Post("/ask", handleAsk(deps))
	r.Post("/upload", handleUpload(deps))
	r.Post("/index", handleIndex(deps))
	r.Delete("/index", handleClearIndex(deps))
	r.Post("/sessions", handleCreateSession(deps))
	r.Get("/sessions", handleListSessions(deps))
	r.Delete("/sessions/{id}", handleClearSession(deps))
	r.Get("/sessions/{id}/history", handleSessionHistory(deps))
	r.Post("/sessions/sweep", handleSweep(deps))
	r.Get("/uploads", handleListUploads(deps))

	return r
}

type askRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Phase     string `json:"phase"`
	Verify    *bool  `json:"verify"`
}

type askResponse struct {
	SessionID          string      `json:"session_id"`
	Answer             string      `json:"answer"`
	Phase              phase.Phase `json:"phase"`
	Verdict            any         `json:"verdict,omitempty"`
	ContextChunks      int         `json:"context_chunks"`
	ConversationLength int         `json:"conversation_length"`
}

func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		resp, err := deps.Service.Ask(r.Context(), pipeline.AskRequest{
			SessionID: req.SessionID,
			Question:  req.Question,
			Phase:     req.Phase,
			Verify:    req.Verify,
		})
		if err != nil {
			writePipelineError(w, err)
			return
		}

		out := askResponse{
			SessionID:          resp.SessionID,
			Answer:             resp.Answer,
			Phase:              resp.Phase,
			ContextChunks:      resp.ContextChunks,
			ConversationLength: resp.ConversationLength,
		}
		if resp.Verdict != nil {
			out.Verdict = resp.Verdict
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleUpload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid multipart form: %v", err)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "file field is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading upload: %v", err)
			return
		}

		resp, err := deps.Service.Upload(r.Context(), pipeline.UploadRequest{
			SessionID: r.FormValue("session_id"),
			Filename:  header.Filename,
			Data:      data,
		})
		if err != nil {
			writePipelineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":        true,
			"session_id":     resp.SessionID,
			"filename":       resp.Filename,
			"detected_phase": resp.DetectedPhase,
			"chunk_count":    resp.ChunkCount,
		})
	}
}

func handleIndex(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Path == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "path is required")
			return
		}

		res, err := deps.Indexer.Run(r.Context(), req.Path)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "indexing failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"files":   res.Files,
			"chunks":  res.Chunks,
			"skipped": res.Skipped,
		})
	}
}

func handleClearIndex(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Service.ClearIndex(); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "clearing index: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := deps.Service.Status(r.Context())
		code := http.StatusOK
		if !st.EngineRunning {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, st)
	}
}

func handleCreateSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := session.NewID()
		deps.Service.Sessions().GetOrCreate(id)
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

func handleListSessions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		infos := deps.Service.Sessions().List()
		if infos == nil {
			infos = []session.Info{}
		}
		writeJSON(w, http.StatusOK, infos)
	}
}

func handleClearSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Service.Sessions().Clear(chi.URLParam(r, "id"))
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func handleSessionHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		turns := deps.Service.Sessions().History(chi.URLParam(r, "id"))
		if turns == nil {
			turns = []session.Turn{}
		}
		writeJSON(w, http.StatusOK, turns)
	}
}

func handleListUploads(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be a positive integer")
				return
			}
			limit = n
		}

		uploads, err := deps.Service.Uploads(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing uploads: %v", err)
			return
		}
		out := make([]map[string]any, len(uploads))
		for i, u := range uploads {
			out[i] = map[string]any{
				"id":           u.ID,
				"session_id":   u.SessionID,
				"filename":     u.Filename,
				"content_type": u.ContentType,
				"chunk_count":  u.ChunkCount,
				"created_at":   u.CreatedAt,
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleSweep(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			MaxAge string `json:"max_age"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		maxAge, err := time.ParseDuration(req.MaxAge)
		if err != nil || maxAge < 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "max_age must be a non-negative duration")
			return
		}
		removed := deps.Service.Sessions().Sweep(maxAge)
		writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
	}
}

// writePipelineError maps pipeline sentinel errors onto HTTP statuses.
func writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuestion),
		errors.Is(err, pipeline.ErrEmptyDocument),
		errors.Is(err, document.ErrUnsupported):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, pipeline.ErrEngineUnavailable):
		httpError(w, http.StatusServiceUnavailable, "api_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
