package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sketchforge/backend/pkg/config"
	"github.com/sketchforge/backend/pkg/device"
	"github.com/sketchforge/backend/pkg/genai"
	"github.com/sketchforge/backend/pkg/provision"
	"github.com/sketchforge/backend/pkg/sketch"
	"github.com/sketchforge/backend/pkg/store"
	"github.com/sketchforge/backend/pkg/telemetry"
	"github.com/sketchforge/backend/pkg/toolchain"
)

type server struct {
	cfg     config.Config
	cli     *toolchain.CLI
	gen     *sketch.GeminiGenerator
	prov    *provision.Provisioner
	devices *device.Lister
	runs    *store.MemStore
	pg      *store.PostgresStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer := telemetry.InitTracer(ctx, "sketchd")
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(shutdownCtx)
	}()

	if cfg.GeminiAPIKey == "" {
		log.Printf("warning: no Gemini API key configured; generation requests will fail")
	}

	cli := toolchain.Find(ctx)
	srv := &server{
		cfg: cfg,
		cli: cli,
		gen: sketch.NewGeminiGenerator(genai.NewClient(genai.Config{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.GeminiModel,
		})),
		prov:    provision.New(cli),
		devices: device.NewLister(device.NewSerialEnumerator()),
		runs:    store.NewMemStore(),
	}

	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		pg, err := store.NewPostgresStore(dsn)
		if err != nil {
			log.Fatalf("run store postgres init failed: %v", err)
		}
		srv.pg = pg
		defer func() {
			if err := pg.Close(); err != nil {
				log.Printf("run store postgres close error: %v", err)
			}
		}()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(timeoutMiddleware(5 * time.Minute))

	router.Get("/healthz", healthzHandler)

	router.Route("/api", func(r chi.Router) {
		r.Post("/sketches", srv.handleGenerate)
		r.Post("/deploys", srv.handleDeploy)
		r.Get("/devices", srv.handleDevices)
		r.Get("/runs", srv.handleListRuns)
		r.Route("/runs/{runID}", func(r chi.Router) {
			r.Get("/", srv.handleGetRun)
			r.Get("/logs", srv.handleStreamRunLogs)
		})
	})

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("sketchd shutdown error: %v", err)
		}
	}()

	log.Printf("sketchd listening on %s", cfg.ListenAddr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("sketchd listen failed: %v", err)
	}

	<-ctx.Done()
	log.Println("sketchd stopped")
}

// timeoutMiddleware bounds request handling. Log streams are exempt:
// they stay open for the lifetime of a run, and a deadline would cut
// live streams mid-run.
func timeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/logs") {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// newService builds a per-request pipeline around the shared
// components so each run logs through its own run record.
func (s *server) newService(logger sketch.Logger) *sketch.Service {
	return sketch.NewService(s.gen, s.cli, s.prov, s.devices, s.cfg.DefaultFQBN, logger)
}
