package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tmaia/tvctl/internal/auth"
	"github.com/tmaia/tvctl/internal/presets"
	"github.com/tmaia/tvctl/internal/tv"
)

// Config carries the dashboard server settings.
type Config struct {
	Addr           string
	TVMAC          string
	WakeBroadcast  string
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
}

// Server is the HTTP control surface in front of a single TV client.
type Server struct {
	cfg     Config
	tv      *tv.Client
	presets *presets.Store
	auth    *auth.Service
	broker  *Broker
	limiter *ipLimiter
	httpSrv *http.Server
}

// NewServer wires the dashboard routes around the given TV client. The auth
// service may be nil, in which case every route is open.
func NewServer(cfg Config, client *tv.Client, store *presets.Store, authSvc *auth.Service) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 20
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 40
	}

	s := &Server{
		cfg:     cfg,
		tv:      client,
		presets: store,
		auth:    authSvc,
		broker:  NewBroker(),
		limiter: newIPLimiter(cfg.RateLimit, cfg.RateBurst),
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if s.auth != nil {
		s.auth.Mount(r)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.middleware)
		if s.auth != nil {
			r.Use(s.auth.RequireSession)
		}

		r.Get("/events", s.handleEvents)

		r.Post("/connect", s.handleConnect)
		r.Post("/disconnect", s.handleDisconnect)
		r.Get("/status", s.handleStatus)

		r.Get("/volume", s.handleGetVolume)
		r.Post("/volume", s.handleVolume)
		r.Post("/power", s.handlePower)

		r.Get("/apps", s.handleGetApps)
		r.Post("/apps", s.handleApps)
		r.Get("/inputs", s.handleGetInputs)
		r.Post("/inputs", s.handleSetInput)
		r.Get("/channels", s.handleGetChannels)
		r.Post("/channels", s.handleChannels)

		r.Post("/media", s.handleMedia)
		r.Post("/toast", s.handleToast)
		r.Post("/remote", s.handleRemote)
		r.Get("/info", s.handleInfo)

		r.Get("/presets", s.handleGetPresets)
		r.Post("/presets", s.handleAddPreset)
		r.Delete("/presets/{id}", s.handleRemovePreset)
		r.Post("/presets/{id}/apply", s.handleApplyPreset)
	})

	return r
}

// Start serves until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	slog.Info("dashboard listening", "addr", s.cfg.Addr)
	err := s.httpSrv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
