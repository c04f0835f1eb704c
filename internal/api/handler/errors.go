package handler

import (
	"encoding/json"
	"errors"
	"github.com/ZertGraf/userboard/internal/domain"
	"github.com/ZertGraf/userboard/internal/pkg/logger"
	"net/http"
)

type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeNotMounted      ErrorCode = "NOT_MOUNTED"
	CodeFetchInFlight   ErrorCode = "FETCH_IN_FLIGHT"
	CodeRefetchDisabled ErrorCode = "REFETCH_DISABLED"
	CodeInvalidState    ErrorCode = "INVALID_STATE"
	CodeComponentClosed ErrorCode = "COMPONENT_CLOSED"
	CodeInternalError   ErrorCode = "INTERNAL_ERROR"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func WriteError(w http.ResponseWriter, err error, logger *logger.Logger) {
	status, response := mapError(err)

	if isDomainError(err) {
		logger.Warn("domain error",
			"error", err.Error(),
			"code", response.Error.Code,
		)
	} else {
		logger.Error("unexpected error",
			"error", err.Error(),
		)
	}

	writeJSON(w, status, response, logger)
}

func mapError(err error) (int, ErrorResponse) {
	detail := func(code ErrorCode) ErrorResponse {
		return ErrorResponse{Error: ErrorDetail{Code: code, Message: err.Error()}}
	}

	switch {
	case errors.Is(err, domain.ErrSnapshotNotFound):
		return http.StatusNotFound, detail(CodeNotFound)

	case errors.Is(err, domain.ErrNotMounted):
		return http.StatusServiceUnavailable, detail(CodeNotMounted)

	case errors.Is(err, domain.ErrFetchInFlight):
		return http.StatusConflict, detail(CodeFetchInFlight)

	case errors.Is(err, domain.ErrRefetchDisabled):
		return http.StatusConflict, detail(CodeRefetchDisabled)

	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyActivated):
		return http.StatusConflict, detail(CodeInvalidState)

	case errors.Is(err, domain.ErrComponentClosed):
		return http.StatusServiceUnavailable, detail(CodeComponentClosed)

	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    CodeInternalError,
				Message: "internal server error",
			},
		}
	}
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrSnapshotNotFound) ||
		errors.Is(err, domain.ErrNotMounted) ||
		errors.Is(err, domain.ErrFetchInFlight) ||
		errors.Is(err, domain.ErrRefetchDisabled) ||
		errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrAlreadyActivated) ||
		errors.Is(err, domain.ErrComponentClosed)
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
