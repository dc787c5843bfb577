package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/errors"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json", "error", err)
	}
}

// StatusOf maps an application error code to an HTTP status
func StatusOf(err error) int {
	switch errors.CodeOf(err) {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeDuplicate, errors.CodeConflict:
		return http.StatusConflict
	case errors.CodeInvalidArg:
		return http.StatusBadRequest
	case errors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	body := errorBody{Code: errors.CodeOf(err), Message: err.Error()}
	if body.Code == "" {
		body.Code = errors.CodeInternal
	}

	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.Logger.Error("request failed", "path", r.URL.Path, "request_id", chimw.GetReqID(r.Context()), "error", err)
		body.Message = "internal server error"
	}
	writeJSON(w, status, body)
}
