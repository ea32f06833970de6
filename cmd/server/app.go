package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"mentorhub/backend/internal/audit"
	auditrepo "mentorhub/backend/internal/audit/repository"
	"mentorhub/backend/internal/config"
	"mentorhub/backend/internal/db"
	"mentorhub/backend/internal/db/migrate"
	healthhandler "mentorhub/backend/internal/health/handler"
	identityhandler "mentorhub/backend/internal/identity/handler"
	"mentorhub/backend/internal/identity/service"
	"mentorhub/backend/internal/logger"
	"mentorhub/backend/internal/metrics"
	"mentorhub/backend/internal/platform/rbac"
	"mentorhub/backend/internal/security"
	"mentorhub/backend/internal/server"
	"mentorhub/backend/internal/server/interceptors"
	sessionrepo "mentorhub/backend/internal/session/repository"
	"mentorhub/backend/internal/telemetry"
	telemetryotel "mentorhub/backend/internal/telemetry/otel"
	userrepo "mentorhub/backend/internal/user/repository"
)

const (
	serviceName     = "mentorhub-auth"
	dependencyRetry = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	healthInterval  = 10 * time.Second
)

// stores groups the persistence backends selected by config.
type stores struct {
	users    service.UserStore
	sessions sessionrepo.Repository
	audits   auditrepo.Repository
	checks   []healthhandler.Check
	close    func()
}

func run(ctx context.Context, envFile string) error {
	cfg, err := config.LoadFile(envFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logger.Setup(cfg.Debug)
	ctx = log.WithContext(ctx)
	log.Info().Str("version", version).Str("store", cfg.Store).Str("session_store", cfg.SessionBackend()).Msg("starting server")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTelEndpoint, serviceName, cfg.OTelInsecure, log)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	tokens, err := security.NewTokenProviderFromSettings(security.SigningSettings{
		Secret:     cfg.JWTSecret,
		PrivateKey: cfg.JWTPrivateKey,
		PublicKey:  cfg.JWTPublicKey,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
	}, security.WithAccessTTL(cfg.AccessTTL()))
	if err != nil {
		return fmt.Errorf("token provider: %w", err)
	}

	rules := rbac.DefaultRules()
	if cfg.RBACRulesFile != "" {
		if rules, err = rbac.LoadRules(cfg.RBACRulesFile); err != nil {
			return fmt.Errorf("rbac rules: %w", err)
		}
	}
	gate, err := rbac.NewGate(ctx, rules)
	if err != nil {
		return fmt.Errorf("rbac gate: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	auditLogger := telemetry.NewAsyncAuditLogger(
		telemetryotel.NewAuditLogger(providers.LoggerProvider, audit.NewLogger(st.audits, log)),
		telemetry.DefaultQueueSize, log,
	)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := auditLogger.Close(drainCtx); err != nil {
			log.Warn().Err(err).Msg("audit queue not drained")
		}
	}()

	auth := service.NewAuthService(
		st.users,
		st.sessions,
		security.NewHasher(cfg.BcryptCost),
		tokens,
		service.Config{SessionTTL: cfg.SessionTTL(), DefaultRole: cfg.DefaultRole},
		service.WithAuditLogger(auditLogger),
		service.WithMetrics(collector),
		service.WithLogger(log),
	)

	checker := healthhandler.NewChecker(append(st.checks, healthhandler.Check{Name: "rbac", Fn: gate.HealthCheck})...)

	trustedProxies, err := cfg.TrustedProxyList()
	if err != nil {
		return err
	}
	corsOrigins := cfg.CORSOriginList()
	if len(corsOrigins) == 0 {
		log.Warn().Msg("CORS_ORIGINS is empty: every origin is allowed and browsers will refuse credentialed cross-site calls")
	}

	limiter := interceptors.NewRateLimiter(interceptors.PerMinute(cfg.LoginRatePerMinute, cfg.LoginRateBurst))
	defer limiter.Stop()

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewRouter(server.Deps{
			Auth:           auth,
			Tokens:         tokens,
			Gate:           gate,
			AuditRepo:      st.audits,
			AuditLogger:    auditLogger,
			Metrics:        collector,
			MetricsHandler: metrics.Handler(reg),
			Health:         checker,
			LoginLimiter:   limiter,
			TrustedProxies: trustedProxies,
			CORSOrigins:    corsOrigins,
			Cookie:         identityhandler.CookieConfig{Secure: cfg.CookieSecure, Domain: cfg.CookieDomain},
			Logger:         log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    8 * 1024,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var healthServer *healthhandler.GRPCServer
	if cfg.HealthGRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.HealthGRPCAddr)
		if err != nil {
			return fmt.Errorf("health listen: %w", err)
		}
		healthServer = healthhandler.NewGRPCServer(checker, log)
		go healthServer.Watch(ctx, healthInterval)
		go func() {
			log.Info().Str("addr", cfg.HealthGRPCAddr).Msg("grpc health server listening")
			if err := healthServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc health serve: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server failed")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if healthServer != nil {
		healthServer.Shutdown()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

// openStores builds the user, session and audit stores for cfg.Store, with sessions optionally in Redis.
func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	st := &stores{close: func() {}}
	var pool *pgxpool.Pool

	switch cfg.Store {
	case config.StorePostgres:
		if cfg.AutoMigrate {
			if err := migrate.Run(cfg.DatabaseURL, migrate.Up); err != nil {
				return nil, err
			}
			log.Info().Msg("migrations applied")
		}
		var err error
		pool, err = db.NewPool(ctx, &db.PoolConfig{
			ConnString: cfg.DatabaseURL,
			MaxConns:   cfg.DBMaxConns,
			MinConns:   cfg.DBMinConns,
			RetryFor:   dependencyRetry,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		st.close = pool.Close
		st.users = userrepo.NewPostgresRepository(pool)
		st.sessions = sessionrepo.NewPostgresRepository(pool)
		st.audits = auditrepo.NewPostgresRepository(pool)
		st.checks = append(st.checks, healthhandler.Check{Name: "postgres", Fn: pool.Ping})
	default:
		log.Warn().Msg("using in-memory stores; data is lost on restart")
		st.users = userrepo.NewMemoryRepository()
		st.sessions = sessionrepo.NewMemoryRepository()
		st.audits = auditrepo.NewMemoryRepository()
	}

	if cfg.SessionBackend() == config.StoreRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		if err := db.WaitReady(ctx, "redis", dependencyRetry, log, ping); err != nil {
			_ = client.Close()
			st.close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		closePool := st.close
		st.close = func() {
			_ = client.Close()
			closePool()
		}
		st.sessions = sessionrepo.NewRedisRepository(client, cfg.RedisKeyPrefix)
		st.checks = append(st.checks, healthhandler.Check{Name: "redis", Fn: ping})
	}
	return st, nil
}
