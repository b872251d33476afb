package api

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/speechtotext/internal/api/handlers"
	"github.com/nikhilbhutani/speechtotext/internal/api/middleware"
	"github.com/nikhilbhutani/speechtotext/internal/auth"
	"github.com/nikhilbhutani/speechtotext/internal/config"
	"github.com/nikhilbhutani/speechtotext/internal/history"
	"github.com/nikhilbhutani/speechtotext/internal/transcription"
)

// Deps are the services the HTTP surface is built from. Jobs may be nil, in which case the
// async transcription routes are not mounted.
type Deps struct {
	Auth    *auth.Service
	Tokens  *auth.TokenIssuer
	History *history.Service
	Relay   *transcription.Relay
	Jobs    handlers.JobQueue
	Health  map[string]handlers.Pinger
}

type Router struct {
	mux       *chi.Mux
	cfg       *config.Config
	deps      Deps
	jwt       *auth.Middleware
	done      chan struct{}
	closeOnce sync.Once
}

func NewRouter(cfg *config.Config, deps Deps) *Router {
	return &Router{
		mux:  chi.NewRouter(),
		cfg:  cfg,
		deps: deps,
		jwt:  auth.NewMiddleware(deps.Tokens),
		done: make(chan struct{}),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	if rt.cfg.Server.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.AllowedOrigins))

	if rt.cfg.RateLimit.RPS > 0 {
		rl := middleware.NewRateLimiter(rt.cfg.RateLimit.RPS, rt.cfg.RateLimit.Burst)
		go rl.Cleanup(rt.done)
		r.Use(rl.Limit)
	}

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.deps.Health)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// The relay is open to anonymous callers.
	transcribeH := handlers.NewTranscribeHandler(rt.deps.Relay)
	r.Post("/transcribe", transcribeH.Transcribe)

	r.Route("/api", func(r chi.Router) {
		authH := handlers.NewAuthHandler(rt.deps.Auth)
		r.Post("/auth/register", authH.Register)
		r.Post("/auth/login", authH.Login)

		r.Group(func(r chi.Router) {
			r.Use(rt.jwt.Authenticate)

			historyH := handlers.NewHistoryHandler(rt.deps.History)
			r.Post("/history", historyH.Append)
			r.Get("/history", historyH.List)

			if rt.deps.Jobs != nil {
				jobH := handlers.NewJobHandler(rt.deps.Relay, rt.deps.Jobs)
				r.Post("/transcriptions", jobH.Create)
				r.Get("/transcriptions/{id}", jobH.Get)
			}
		})
	})

	return r
}

// Close stops background maintenance started by Setup.
func (rt *Router) Close() {
	rt.closeOnce.Do(func() { close(rt.done) })
}
