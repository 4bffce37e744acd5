package curation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pfrederiksen/watchwherelive/internal/calendar"
	"github.com/pfrederiksen/watchwherelive/internal/config"
	"github.com/pfrederiksen/watchwherelive/internal/logger"
	"github.com/pfrederiksen/watchwherelive/internal/metrics"
	"github.com/pfrederiksen/watchwherelive/internal/schedule"
	"github.com/pfrederiksen/watchwherelive/internal/storage"
)

// GameSummary is the queue entry shown to curators
type GameSummary struct {
	ID                   string            `json:"id"`
	Sport                schedule.Sport    `json:"sport"`
	Date                 string            `json:"date,omitempty"`
	DateText             string            `json:"date_text"`
	TimeText             string            `json:"time_text,omitempty"`
	AwayTeam             string            `json:"away_team"`
	HomeTeam             string            `json:"home_team"`
	NationalBroadcasts   []string          `json:"national_broadcasts"`
	RegionalHint         string            `json:"regional_hint,omitempty"`
	RegionalBroadcastMap map[string]string `json:"regional_broadcast_map"`
}

func summarize(g *schedule.GameRecord) GameSummary {
	return GameSummary{
		ID:                   g.ID,
		Sport:                g.Sport,
		Date:                 g.Date,
		DateText:             g.DateText,
		TimeText:             g.TimeText,
		AwayTeam:             g.AwayTeam,
		HomeTeam:             g.HomeTeam,
		NationalBroadcasts:   g.NationalBroadcasts,
		RegionalHint:         g.RegionalHint,
		RegionalBroadcastMap: g.RegionalBroadcastMap,
	}
}

// ruleRequest is the POST /api/admin/map body
type ruleRequest struct {
	DMACode *string `json:"dma_code"`
	Team    *string `json:"team"`
	Sport   *string `json:"sport"`
	Channel *string `json:"channel"`
}

type ruleResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
	Applied int    `json:"applied"`
}

type validateRequest struct {
	RegionalBroadcastMap map[string]string `json:"regional_broadcast_map"`
}

// Handler serves the curation API
type Handler struct {
	svc     *Service
	metrics *metrics.Recorder
	log     *logger.Logger
}

// NewHandler creates a Handler
func NewHandler(svc *Service, m *metrics.Recorder, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{svc: svc, metrics: m, log: log}
}

// Router builds the chi router with middleware and every route mounted
func (h *Handler) Router(cfg config.APIConfig) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(timeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Route("/api/admin", func(r chi.Router) {
		r.Get("/unvalidated", h.GetUnvalidated)

		r.Get("/map", h.ListRules)
		r.Post("/map", h.SaveRule)
		r.Delete("/map/{id}", h.DeleteRule)

		r.Post("/games/{id}/validate", h.ValidateGame)
	})

	r.Get("/api/games/{id}/calendar.ics", h.GameCalendar)

	return r
}

// requestLogger logs each request and feeds the HTTP metrics, labelled by route pattern
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		took := time.Since(start)

		h.metrics.ObserveHTTP(r.Method, route, status, took)
		h.log.Debug("HTTP request", logger.Fields{
			"method":      r.Method,
			"route":       route,
			"status":      status,
			"bytes":       ww.BytesWritten(),
			"duration_ms": took.Milliseconds(),
			"request_id":  chimiddleware.GetReqID(r.Context()),
		})
	})
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetUnvalidated lists the validation queue. Query: sport, limit.
func (h *Handler) GetUnvalidated(w http.ResponseWriter, r *http.Request) {
	sport := schedule.ParseSport(r.URL.Query().Get("sport"))
	limit := getIntParam(r, "limit", 0)

	games, err := h.svc.Queue(r.Context(), sport, limit)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Internal server error during data retrieval", err)
		return
	}

	out := make([]GameSummary, 0, len(games))
	for _, g := range games {
		out = append(out, summarize(g))
	}
	respondJSON(w, http.StatusOK, out)
}

// SaveRule upserts a DMA rule and applies it to queued games
func (h *Handler) SaveRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON body", nil)
		return
	}
	if req.DMACode == nil || req.Team == nil || req.Sport == nil || req.Channel == nil {
		h.respondError(w, http.StatusBadRequest, "Missing required fields in rule data", nil)
		return
	}

	res, err := h.svc.SaveRule(r.Context(), *req.DMACode, *req.Team, *req.Sport, *req.Channel)
	if err != nil {
		if errors.Is(err, schedule.ErrValidation) {
			h.respondError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to save rule", err)
		return
	}

	respondJSON(w, http.StatusOK, ruleResponse{
		Success: true,
		Message: "DMA Rule saved.",
		ID:      res.Rule.ID,
		Applied: res.Applied,
	})
}

// ListRules returns the stored rules. Query: sport.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.svc.ListRules(r.Context(), schedule.ParseSport(r.URL.Query().Get("sport")))
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}
	if rules == nil {
		rules = []*schedule.DMARule{}
	}
	respondJSON(w, http.StatusOK, rules)
}

// DeleteRule removes a rule by id
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteRule(r.Context(), id); err != nil {
		h.respondStoreError(w, "Rule not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ValidateGame marks a game validated, with an optional regional map body
func (h *Handler) ValidateGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// the body is optional
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON body", nil)
		return
	}

	game, err := h.svc.ValidateGame(r.Context(), id, req.RegionalBroadcastMap)
	if err != nil {
		h.respondStoreError(w, "Game not found", err)
		return
	}
	respondJSON(w, http.StatusOK, summarize(game))
}

// GameCalendar serves one game as an .ics file
func (h *Handler) GameCalendar(w http.ResponseWriter, r *http.Request) {
	ics, err := h.svc.GameCalendar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, calendar.ErrNoDate) {
			h.respondError(w, http.StatusUnprocessableEntity, "Game date is not known yet", nil)
			return
		}
		h.respondStoreError(w, "Game not found", err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+chi.URLParam(r, "id")+".ics\"")
	_, _ = io.WriteString(w, ics)
}

func (h *Handler) respondStoreError(w http.ResponseWriter, notFound string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		h.respondError(w, http.StatusNotFound, notFound, nil)
	case errors.Is(err, schedule.ErrValidation):
		h.respondError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		h.respondError(w, http.StatusInternalServerError, "Internal server error", err)
	}
}

func getIntParam(r *http.Request, key string, defaultValue int) int {
	valueStr := r.URL.Query().Get(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", nil, err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		h.log.Error(message, logger.Fields{"status": status}, err)
	}
	respondJSON(w, status, map[string]string{"error": message})
}
