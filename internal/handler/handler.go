package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/contestreport/internal/handler/views"
	"github.com/pavelanni/contestreport/internal/metrics"
	"github.com/pavelanni/contestreport/internal/model"
	"github.com/pavelanni/contestreport/internal/store"
)

const defaultMaxUpload = 32 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	metrics *metrics.Metrics
	config  model.ServerConfig
}

// New creates a new Handler.
func New(s *store.Store, m *metrics.Metrics, cfg model.ServerConfig) (*Handler, error) {
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = defaultMaxUpload
	}
	if cfg.ExportTTL <= 0 {
		cfg.ExportTTL = time.Hour
	}
	return &Handler{store: s, metrics: m, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Post("/generate", h.handleGenerate)
	r.Get("/download/{token}", h.handleDownload)
	r.Get("/healthz", h.handleHealth)
}

// BasePathMiddleware makes the configured URL prefix available to templates.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page views.UploadPage) {
	page.BasePath = model.BasePathFromContext(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := views.IndexPage(page).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.UploadPage{})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.ExportCount(); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
