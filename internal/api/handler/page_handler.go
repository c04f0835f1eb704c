package handler

import (
	"context"
	"github.com/ZertGraf/userboard/internal/domain"
	"github.com/ZertGraf/userboard/internal/pkg/logger"
	"github.com/go-chi/chi/v5"
	"net/http"
)

// PageHost is the mounted application as seen by the HTTP layer.
type PageHost interface {
	Page() ([]byte, error)
	State() (domain.State, error)
	Reload(ctx context.Context) error
	Refetch(ctx context.Context) error
}

type PageHandler struct {
	host   PageHost
	logger *logger.Logger
}

func NewPageHandler(host PageHost, logger *logger.Logger) *PageHandler {
	return &PageHandler{
		host:   host,
		logger: logger.Component("handler/page"),
	}
}

func (h *PageHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.Index)
	r.Post("/reload", h.Reload)
	r.Post("/refetch", h.Refetch)

	return r
}

func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := h.host.Page()
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(page); err != nil {
		h.logger.Warn("failed to write page", "error", err)
	}
}

// Reload tears the application down and mounts it again from scratch.
func (h *PageHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.host.Reload(r.Context()); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Refetch re-runs the users fetch on the mounted component only.
func (h *PageHandler) Refetch(w http.ResponseWriter, r *http.Request) {
	if err := h.host.Refetch(r.Context()); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
