package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pharma-billing/internal/app"
	"github.com/noah-isme/pharma-billing/internal/common"
	"github.com/noah-isme/pharma-billing/internal/config"
	"github.com/noah-isme/pharma-billing/internal/health"
	"github.com/noah-isme/pharma-billing/internal/invoice"
	"github.com/noah-isme/pharma-billing/internal/obs"
	"github.com/noah-isme/pharma-billing/internal/printing"
	"github.com/noah-isme/pharma-billing/internal/ratelimit"
	"github.com/noah-isme/pharma-billing/internal/security"
	"github.com/noah-isme/pharma-billing/internal/store"
)

const shutdownGrace = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := app.RunMigrations(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	deps, err := app.Open(startCtx, cfg, logger, "pharma-billing-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close(context.Background())

	taskOpt, err := app.TaskRedisOpt(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure task queue")
	}
	taskClient := asynq.NewClient(taskOpt)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	svc := &invoice.Service{
		Catalog:   store.NewCatalogStore(deps.DB),
		Inventory: store.NewInventoryStore(deps.DB),
		Store:     store.NewInvoiceStore(deps.DB),
		Renderer: printing.Enqueuer{
			Client:   taskClient,
			Queue:    cfg.RenderQueue,
			MaxRetry: cfg.RenderMaxRetry,
			Timeout:  cfg.RenderTimeout,
		},
		Cache:          invoice.NewCache(deps.Redis, cfg.PreviewCacheTTL),
		Logger:         obs.Component(logger, "invoice"),
		SellerState:    cfg.SellerStateCode,
		RoundingPolicy: cfg.RoundingPolicy,
	}
	invoiceHandler := invoice.NewHandler(svc)

	limiterStore, err := app.NewLimiterStore(deps.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter store")
	}
	rateLimit := ratelimit.Handler{
		Limiter: ratelimit.New(limiterStore, cfg.RateLimitWindow, cfg.RateLimitMax),
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}
	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL}

	r := newRouter(cfg, logger)
	healthHandler := health.Handler{Probes: []health.Probe{
		health.PostgresProbe(deps.DB, cfg.HealthDBTimeout),
		health.RedisProbe(func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() }, cfg.HealthRedisTimeout),
	}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(rateLimit.Middleware)
		v.Get("/amount-in-words", invoiceHandler.AmountInWords)
		v.Route("/invoices", func(inv chi.Router) {
			inv.Post("/preview", invoiceHandler.Preview)
			inv.Post("/lines", invoiceHandler.SeedLine)
			inv.Post("/lines/edit", invoiceHandler.EditLine)
			inv.With(idem.Middleware).Post("/", invoiceHandler.Submit)
			inv.Get("/{id}", invoiceHandler.Get)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	<-drained
	logger.Info().Msg("server stopped")
}

func newRouter(cfg *config.Config, logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Obs.TracingEnabled {
		r.Use(obs.Tracing)
	}
	if cfg.Obs.MetricsEnabled {
		httpMetrics := obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecureHeaders, EnableHSTS: cfg.EnableHSTS}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", common.IdempotencyHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.Obs.MetricsEnabled {
		r.Handle("/metrics", obs.Handler(prometheus.DefaultGatherer))
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		r.Mount("/debug", protectPprof(middleware.Profiler(),
			os.Getenv("SECURE_PPROF_BASIC_AUTH_USER"), os.Getenv("SECURE_PPROF_BASIC_AUTH_PASS")))
	}
	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
