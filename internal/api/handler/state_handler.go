package handler

import (
	"context"
	"github.com/ZertGraf/userboard/internal/domain"
	"github.com/ZertGraf/userboard/internal/pkg/logger"
	"github.com/go-chi/chi/v5"
	"net/http"
)

type SnapshotReader interface {
	Latest(ctx context.Context) (*domain.Snapshot, error)
}

type StateHandler struct {
	host      PageHost
	snapshots SnapshotReader
	logger    *logger.Logger
}

func NewStateHandler(host PageHost, snapshots SnapshotReader, logger *logger.Logger) *StateHandler {
	return &StateHandler{
		host:      host,
		snapshots: snapshots,
		logger:    logger.Component("handler/state"),
	}
}

func (h *StateHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/state", h.GetState)
	r.Get("/snapshot", h.GetSnapshot)

	return r
}

type StateResponse struct {
	domain.State
	Count int `json:"count"`
}

func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.host.State()
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if state.Users == nil {
		state.Users = []domain.User{}
	}

	writeJSON(w, http.StatusOK, StateResponse{State: state, Count: len(state.Users)}, h.logger)
}

func (h *StateHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.snapshots.Latest(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, snapshot, h.logger)
}
