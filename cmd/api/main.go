package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"binroute/internal/api"
	"binroute/internal/config"
	"binroute/internal/metrics"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	srvDeps, err := api.NewServer(cfg)
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	metrics.RegisterDefault()

	mux := http.NewServeMux()

	// Collection points and fleet
	mux.HandleFunc("/v1/points", srvDeps.PointsHandler)
	mux.HandleFunc("/v1/vehicles", srvDeps.VehiclesHandler)
	mux.HandleFunc("/v1/vehicles/locations", srvDeps.VehicleLocationsHandler)

	// Optimization and runs
	mux.HandleFunc("/v1/optimize", srvDeps.OptimizeHandler)
	mux.HandleFunc("/v1/runs", srvDeps.RunsHandler)
	mux.HandleFunc("/v1/runs/stream", srvDeps.RunStreamHandler)
	mux.HandleFunc("/v1/runs/", srvDeps.RunByIDHandler)

	// Webhook subscriptions
	mux.HandleFunc("/v1/subscriptions", srvDeps.SubscriptionsHandler)
	mux.HandleFunc("/v1/subscriptions/", srvDeps.SubscriptionByIDHandler)

	// Admin
	mux.HandleFunc("/v1/admin/webhook-deliveries", srvDeps.WebhookDeliveriesHandler)
	mux.HandleFunc("/v1/admin/runs/stats", srvDeps.RunStatsHandler)

	// Health and observability
	mux.HandleFunc("/healthz", srvDeps.HealthHandler)
	mux.HandleFunc("/readyz", srvDeps.ReadyHandler)
	mux.HandleFunc("/debug", srvDeps.DebugJSON)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	addr := ":8080"
	if cfg.Port != "" {
		addr = ":" + cfg.Port
	}

	handler := logMiddleware(api.MetricsMiddleware(api.RateLimitMiddleware(cfg.Rate.RPS, cfg.Rate.Burst, mux)))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("API listening on %s", addr)
	worker := srvDeps.NewWebhookWorker()
	worker.Start()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		dur := time.Since(start)
		log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, dur)
	})
}
