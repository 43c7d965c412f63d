package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uxr-project/uxr-go/pkg/engine"
	"github.com/uxr-project/uxr-go/pkg/restriction"
	"github.com/uxr-project/uxr-go/pkg/subscriber"
)

// ErrNoEngine is returned by NewHandler without an engine.
var ErrNoEngine = errors.New("httpapi requires an engine")

// Engine is the part of the restriction engine served over HTTP.
type Engine interface {
	CurrentRestrictions() restriction.Snapshot
	Mode() engine.Mode
	IsFallback() bool
	SubscriberCount() int
	RegisterListener(ch subscriber.Channel) error
	UnregisterListener(ch subscriber.Channel) error
	Dump(w io.Writer) error
}

// Config configures a Handler.
type Config struct {
	Engine Engine

	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Logger receives operational logs. Nil disables them.
	Logger *slog.Logger

	// WebSocket timing. Zero values select the defaults.
	PingInterval time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
}

// Handler holds the HTTP routes.
type Handler struct {
	engine   Engine
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	ws       wsTiming
}

// NewHandler creates a handler.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Engine == nil {
		return nil, ErrNoEngine
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{
		engine:   cfg.Engine,
		gatherer: gatherer,
		logger:   cfg.Logger,
		ws:       newWSTiming(cfg.PingInterval, cfg.PongWait, cfg.WriteWait),
	}, nil
}

// Routes returns the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Get("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/restrictions", h.handleRestrictions)
		r.Get("/mapping", h.handleMapping)
		r.Get("/ws", h.handleWebSocket)
	})
	return r
}

// SnapshotJSON is the JSON form of a restriction snapshot.
type SnapshotJSON struct {
	RequiresDistractionOptimization bool     `json:"requiresDistractionOptimization"`
	ActiveRestrictions              uint16   `json:"activeRestrictions"`
	Restrictions                    []string `json:"restrictions"`
	TimestampNanos                  int64    `json:"timestampNanos"`
}

// NewSnapshotJSON converts a snapshot.
func NewSnapshotJSON(s restriction.Snapshot) SnapshotJSON {
	return SnapshotJSON{
		RequiresDistractionOptimization: s.RequiresDistractionOptimization,
		ActiveRestrictions:              uint16(s.ActiveRestrictions),
		Restrictions:                    s.ActiveRestrictions.Names(),
		TimestampNanos:                  s.TimestampNanos,
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	Mode        string `json:"mode"`
	Fallback    bool   `json:"fallback"`
	Subscribers int    `json:"subscribers"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Mode:        h.engine.Mode().String(),
		Fallback:    h.engine.IsFallback(),
		Subscribers: h.engine.SubscriberCount(),
	})
}

func (h *Handler) handleRestrictions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, NewSnapshotJSON(h.engine.CurrentRestrictions()))
}

func (h *Handler) handleMapping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := h.engine.Dump(w); err != nil {
		h.errorLog("dump failed", "path", r.URL.Path, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// debugLog logs a debug message if logging is enabled.
func (h *Handler) debugLog(msg string, args ...any) {
	if h.logger != nil {
		h.logger.Debug(msg, args...)
	}
}

// errorLog logs an error message if logging is enabled.
func (h *Handler) errorLog(msg string, args ...any) {
	if h.logger != nil {
		h.logger.Error(msg, args...)
	}
}
