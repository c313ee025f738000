package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/yourusername/bgquiz/pkg/crawl"
	"github.com/yourusername/bgquiz/pkg/engine"
	"github.com/yourusername/bgquiz/pkg/quiz"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	engine      *engine.Engine
	store       *quiz.Store
	queue       *crawl.Queue
	version     string
	defaultDays int
}

// NewHandlers creates a Handlers instance.
func NewHandlers(e *engine.Engine, store *quiz.Store, queue *crawl.Queue, version string, defaultDays int) *Handlers {
	if defaultDays <= 0 {
		defaultDays = 30
	}
	return &Handlers{
		engine:      e,
		store:       store,
		queue:       queue,
		version:     version,
		defaultDays: defaultDays,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, msg string, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

// authedHandler receives the basic-auth identity: the raw username (for
// the source site) and the password.
type authedHandler func(w http.ResponseWriter, r *http.Request, user, password string)

// auth enforces HTTP basic auth. The username doubles as the storage
// key after normalization, so it must be non-blank.
func (h *Handlers) auth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, password, ok := r.BasicAuth()
		if !ok || strings.TrimSpace(user) == "" {
			w.Header().Set("WWW-Authenticate", `Basic realm="bgquiz"`)
			writeError(w, http.StatusUnauthorized, "credentials required", "UNAUTHORIZED")
			return
		}
		next(w, r, user, password)
	}
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:           "ok",
		Version:          h.version,
		EngineConfigured: h.engine.Available(),
	})
}

// AnalyzePosition handles POST /analyzePositionFromMatch. It is
// unauthenticated: the position comes in the request, nothing is stored.
func (h *Handlers) AnalyzePosition(w http.ResponseWriter, r *http.Request) {
	var req engine.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}
	if req.MatchID == "" {
		writeError(w, http.StatusBadRequest, "matchId is required", "MISSING_MATCH_ID")
		return
	}

	res, err := h.engine.Analyze(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "ENGINE_FAILED")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetQuiz handles GET /getQuiz?player=. 204 when nothing qualifies.
func (h *Handlers) GetQuiz(w http.ResponseWriter, r *http.Request, user, _ string) {
	player := r.URL.Query().Get("player")
	p, err := h.store.NextQuiz(r.Context(), quiz.NormalizeUser(user), player)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "STORAGE_FAILED")
		return
	}
	if p == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetQuizByID handles GET /getQuiz/{id}.
func (h *Handlers) GetQuizByID(w http.ResponseWriter, r *http.Request, user, _ string) {
	id := r.PathValue("id")
	p, err := h.store.QuizByID(r.Context(), quiz.NormalizeUser(user), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "STORAGE_FAILED")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "quiz not found", "QUIZ_NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateQuiz handles POST /updateQuiz.
func (h *Handlers) UpdateQuiz(w http.ResponseWriter, r *http.Request, user, _ string) {
	var req UpdateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required", "MISSING_ID")
		return
	}

	p, err := h.store.RecordResult(r.Context(), quiz.NormalizeUser(user), req.ID, req.WasCorrect)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "STORAGE_FAILED")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "quiz not found", "QUIZ_NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetPlayers handles GET /getPlayers.
func (h *Handlers) GetPlayers(w http.ResponseWriter, r *http.Request, user, _ string) {
	names, err := h.store.Players(r.Context(), quiz.NormalizeUser(user))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "STORAGE_FAILED")
		return
	}
	writeJSON(w, http.StatusOK, PlayersResponse{Players: names})
}

// GetStatistics handles GET /getStatistics.
func (h *Handlers) GetStatistics(w http.ResponseWriter, r *http.Request, user, _ string) {
	stats, err := h.store.Stats(r.Context(), quiz.NormalizeUser(user))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "STORAGE_FAILED")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// AddLastMatches handles POST /addLastMatchesAndSave: enqueue a crawl
// for the authenticated user. An empty body uses the defaults.
func (h *Handlers) AddLastMatches(w http.ResponseWriter, r *http.Request, user, password string) {
	var req CrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}
	days := req.Days
	if days <= 0 {
		days = h.defaultDays
	}

	job, ahead := h.queue.Enqueue(crawl.Payload{
		StorageKey:  quiz.NormalizeUser(user),
		Credentials: crawl.Credentials{User: user, Password: password},
		UserID:      req.UserID,
		Days:        days,
	})
	writeJSON(w, http.StatusOK, CrawlResponse{JobID: job.ID, AheadCount: ahead})
}
