// Package api serves the read endpoints and the channel analysis request over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/config"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/metrics"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/service/channel"
)

// RankingReader serves today's ranking view
type RankingReader interface {
	GetDailyRankings(ctx context.Context, today time.Time) ([]model.KeywordRankingView, error)
}

// ChannelService is the channel analysis surface used by the handlers
type ChannelService interface {
	RequestAnalysis(ctx context.Context, handle string) (*channel.Ack, error)
	ListChannels(ctx context.Context, page, size int) (model.Page[*model.Channel], error)
	GetChannelKeywords(ctx context.Context, handle string) ([]*model.ChannelKeyword, error)
}

// Pinger checks a backing store
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers bundles the services behind the routes
type Handlers struct {
	Rankings RankingReader
	Channels ChannelService
	DB       Pinger
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewRouter builds the chi router with middleware and routes
func NewRouter(h *Handlers, cfg config.ServerConfig) http.Handler {
	if h.Logger == nil {
		h.Logger = slog.Default()
	}
	if h.Now == nil {
		h.Now = time.Now
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(h.Logger))
	r.Use(chimw.Recoverer)
	r.Use(instrument(h.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	r.Get("/keyword/rankings", h.GetRankings)
	r.Route("/channel", func(r chi.Router) {
		r.Get("/", h.ListChannels)
		r.Get("/keyword", h.GetChannelKeywords)
		r.Post("/keyword", h.RequestChannelAnalysis)
	})

	return r
}

// NewServer wraps the router in an http.Server with the configured timeouts
func NewServer(h *Handlers, cfg config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           NewRouter(h, cfg),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
}
