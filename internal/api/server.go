package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"binroute/internal/auth"
	"binroute/internal/config"
	"binroute/internal/opt"
	"binroute/internal/store"
	"binroute/internal/webhooks"
)

type Server struct {
	Cfg    config.Config
	Store  store.Store
	Pub    *webhooks.Publisher
	Auth   *auth.Verifier
	Broker EventBroker
	Fleet  *FleetCache
	Tuning opt.Tuning
}

// NewServer creates a Server. With no DatabaseURL it uses the in-memory store.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		// Run migrations (dev helper)
		_ = sp.MigrateDir("db/migrations")
		s = sp
	}
	var broker EventBroker
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	return &Server{
		Cfg:    cfg,
		Store:  s,
		Pub:    webhooks.NewPublisher(s),
		Auth:   auth.NewVerifier(cfg.Auth.Mode, cfg.Auth.HMACSecret),
		Broker: broker,
		Fleet:  NewFleetCache(),
		Tuning: cfg.Tuning(),
	}, nil
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
	tenant := s.getPrincipal(r).Tenant
	ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
	return ctx, tenant
}

type ctxKeyTenant struct{}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}

func (s *Server) optimizeTimeout() time.Duration {
	sec := s.Cfg.OptimizeTimeoutSec
	if sec <= 0 {
		sec = 30
	}
	return time.Duration(sec) * time.Second
}
