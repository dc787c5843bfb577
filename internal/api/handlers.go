package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/errors"
)

// Health reports liveness and database reachability
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "database": "skipped"}
	code := http.StatusOK

	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			h.Logger.Warn("health check: database unreachable", "error", err)
			status["status"] = "degraded"
			status["database"] = "down"
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "up"
		}
	}
	writeJSON(w, code, status)
}

// GetRankings returns today's keyword ranking with rank changes against yesterday
func (h *Handlers) GetRankings(w http.ResponseWriter, r *http.Request) {
	views, err := h.Rankings.GetDailyRankings(r.Context(), h.Now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// ListChannels returns a zero-based page of analyzed channels
func (h *Handlers) ListChannels(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	size, err := intParam(r, "size", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.Channels.ListChannels(r.Context(), page, size)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetChannelKeywords returns the channel's top keywords by view count
func (h *Handlers) GetChannelKeywords(w http.ResponseWriter, r *http.Request) {
	keywords, err := h.Channels.GetChannelKeywords(r.Context(), r.URL.Query().Get("channel_handle"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keywords)
}

// RequestChannelAnalysis accepts an analysis request and returns before it runs
func (h *Handlers) RequestChannelAnalysis(w http.ResponseWriter, r *http.Request) {
	ack, err := h.Channels.RequestAnalysis(r.Context(), r.URL.Query().Get("channel_handle"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeInvalidArg, name+" must be an integer")
	}
	return v, nil
}
