package dashboard

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/zhongkairen/airtable-sync/internal/history"
	"github.com/zhongkairen/airtable-sync/internal/logging"
)

// HistoryLoader loads the run history. history.Store implementations satisfy it.
type HistoryLoader interface {
	Load(ctx context.Context) (*history.History, error)
}

// Handler handles HTTP requests for the run history page.
type Handler struct {
	renderer Renderer
	loader   HistoryLoader
	logger   *zap.Logger
}

// HandlerConfig holds configuration for creating a new Handler
type HandlerConfig struct {
	Renderer Renderer
	Loader   HistoryLoader
	Logger   *zap.Logger
}

// NewHandler creates a new Handler with injected dependencies.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		renderer: cfg.Renderer,
		loader:   cfg.Loader,
		logger:   logging.OrNop(cfg.Logger),
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.handleHistory)
	mux.HandleFunc("/api/history", h.handleHistoryJSON)
	mux.HandleFunc("/api/health", h.handleHealth)
}

// handleHealth serves the health check endpoint.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := h.renderer.RenderHealth(w); err != nil {
		h.logger.Error("failed to render health", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// handleHistory serves the chart page; ?page=N walks back in time.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	page := 0
	if pageParam := r.URL.Query().Get("page"); pageParam != "" {
		if p, err := strconv.Atoi(pageParam); err == nil && p > 0 {
			page = p
		}
	}

	items, ok := h.load(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/html")
	if err := h.renderer.RenderHistory(w, items, page); err != nil {
		h.logger.Error("failed to render history", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// handleHistoryJSON returns the whole history as JSON.
func (h *Handler) handleHistoryJSON(w http.ResponseWriter, r *http.Request) {
	items, ok := h.load(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := h.renderer.RenderHistoryJSON(w, items); err != nil {
		h.logger.Error("failed to render history JSON", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) ([]history.Item, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	hist, err := h.loader.Load(ctx)
	if err != nil {
		h.logger.Error("failed to load history", zap.Error(err))
		http.Error(w, "Failed to load run history", http.StatusBadGateway)
		return nil, false
	}
	return hist.Items(), true
}
