package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Gridiron/internal/config"
	"github.com/MikeSquared-Agency/Gridiron/internal/events"
	"github.com/MikeSquared-Agency/Gridiron/internal/ranking"
	"github.com/MikeSquared-Agency/Gridiron/internal/store"
)

func NewRouter(s store.Store, ev events.Client, engine *ranking.Engine, schemes *ranking.Schemes, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(cfg.Server.RateLimitPerMinute))

	rank := NewRankHandler(engine, schemes, cfg, logger)
	pops := NewPopulationsHandler(s, ev, rank, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/metrics/catalog", rank.Catalog)
		r.Get("/grades", rank.Schemes)
		r.Get("/grades/{scheme}", rank.Grade)

		r.Post("/rank/percentile", rank.Percentile)
		r.Post("/rank/leaderboard", rank.Leaderboard)
		r.Post("/rank/compare", rank.Compare)

		r.Get("/populations", pops.List)
		r.Get("/populations/{id}", pops.Get)
		r.Get("/populations/{season}/{kind}", pops.Lookup)
		r.Get("/populations/{id}/leaderboard", pops.Leaderboard)
		r.Get("/populations/{id}/average", pops.Average)
		r.Get("/populations/{id}/entities/{entity}/ratings", pops.Ratings)
		r.Post("/populations/{id}/compare", pops.Compare)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.Server.AdminToken))
			r.Put("/populations/{season}/{kind}", pops.Put)
			r.Delete("/populations/{id}", pops.Delete)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
