package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicore/agenda/internal/prefs"
)

type RouterConfig struct {
	Sessions *SessionManager
	Prefs    *prefs.Store
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Env      string
	Version  string
	Logger   zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Agenda views
	r.Get("/agenda/day", dayViewHandler(cfg.Sessions))
	r.Get("/agenda/week", weekViewHandler(cfg.Sessions))
	r.Post("/agenda/filter", filterHandler(cfg.Sessions))

	// Appointments
	r.Post("/agenda/appointments", submitHandler(cfg.Sessions))
	r.Put("/agenda/appointments/{id}", submitHandler(cfg.Sessions))
	r.Post("/agenda/appointments/{id}/status", statusHandler(cfg.Sessions))
	r.Post("/agenda/appointments/{id}/cancel", cancelHandler(cfg.Sessions))

	// Blocks
	r.Post("/agenda/blocks", blockHandler(cfg.Sessions))
	r.Post("/agenda/blocks/{id}/unblock", unblockHandler(cfg.Sessions))

	// Preferences
	r.Get("/agenda/preferences", getPrefsHandler(cfg.Prefs))
	r.Put("/agenda/preferences", putPrefsHandler(cfg.Prefs, cfg.Sessions))

	return r
}
