package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/miharyjoe/ameua-sub001/internal/application/auth"
	"github.com/miharyjoe/ameua-sub001/internal/application/contact"
	"github.com/miharyjoe/ameua-sub001/internal/audit"
	"github.com/miharyjoe/ameua-sub001/internal/config"
	"github.com/miharyjoe/ameua-sub001/internal/domain"
	"github.com/miharyjoe/ameua-sub001/internal/infrastructure/db/postgres"
	"github.com/miharyjoe/ameua-sub001/internal/infrastructure/mail"
	"github.com/miharyjoe/ameua-sub001/internal/infrastructure/memory"
	"github.com/miharyjoe/ameua-sub001/internal/infrastructure/messaging/rabbitmq"
	"github.com/miharyjoe/ameua-sub001/internal/infrastructure/redis"
	"github.com/miharyjoe/ameua-sub001/internal/infrastructure/security"
	"github.com/miharyjoe/ameua-sub001/internal/logger"
	"github.com/miharyjoe/ameua-sub001/internal/metrics"
	"github.com/miharyjoe/ameua-sub001/internal/migrations"
	http_handlers "github.com/miharyjoe/ameua-sub001/internal/transport/http/handlers"
	"github.com/miharyjoe/ameua-sub001/internal/transport/http/middleware"
	"github.com/miharyjoe/ameua-sub001/internal/transport/http/response"
	"github.com/miharyjoe/ameua-sub001/internal/transport/http/router"
	"github.com/miharyjoe/ameua-sub001/internal/worker"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(addr string, debug bool) (*sql.DB, error)

	// Migrate runs against a freshly opened DB. Nil skips migrations.
	Migrate func(ctx context.Context, db *sql.DB) error

	NewRedis func(addr, password string, db int) *redis.Client

	NewPublisher func(url, exchange string) (*rabbitmq.Publisher, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

// Mailer delivers both kinds of outgoing email.
type Mailer interface {
	auth.Notifier
	contact.Sender
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	checks := map[string]http_handlers.Checker{}

	// 1) storage: postgres, or in-memory stores in dev without DB_ADDR
	var (
		users  auth.UserRepo
		tokens auth.TokenStore
	)
	if cfg.DBAddr == "" {
		logger.Logger.Warn().Msg("DB_ADDR not set; using in-memory stores")
		users = memory.NewUserRepo()
		tokens = memory.NewTokenStore()
	} else {
		db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
		if err != nil {
			return fail(fmt.Errorf("bootstrap: db: %w", err))
		}
		cleanupFns = append(cleanupFns, func() { _ = db.Close() })

		if deps.Migrate != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := deps.Migrate(ctx, db)
			cancel()
			if err != nil {
				return fail(fmt.Errorf("bootstrap: migrate: %w", err))
			}
		}

		users = postgres.NewUserRepo(db)
		tokens = postgres.NewTokenRepo(db)
		checks["postgres"] = http_handlers.CheckFunc(db.PingContext)
	}

	// 2) redis (best-effort)
	var limiter middleware.RateLimiter
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(ctx)
		cancel()

		if err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; using in-process rate limits")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			limiter = redis.NewFixedWindowLimiter(c)
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			checks["redis"] = c
		}
	}

	// 3) metrics
	collector := metrics.New(nil)

	// 4) mailer
	mailer, err := newMailer(cfg, deps, checks, &cleanupFns)
	if err != nil {
		return fail(err)
	}

	// 5) security
	logger.Logger.Info().Str("issuer", cfg.SessionIssuer).Msg("initializing session signer")
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	signer := security.NewSessionSigner(cfg.SessionSecret, cfg.SessionIssuer)

	// 6) services
	authSvc := auth.NewService(
		users,
		tokens,
		hasher,
		signer,
		mailer,
		auth.Config{
			SessionTTL:            cfg.SessionTTL,
			SignInDelay:           cfg.SignInDelay,
			PasswordResetTokenTTL: cfg.PasswordResetTokenTTL,
			PasswordResetBaseURL:  cfg.PasswordResetBaseURL,
			StoreTimeout:          cfg.StoreTimeout,
			MailTimeout:           cfg.MailTimeout,
		},
	).
		WithMetrics(collector).
		WithAudit(audit.New(logger.Logger).Record)

	// cleanup runs in reverse, so queued emails drain before the mailer closes
	cleanupFns = append(cleanupFns, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.MailTimeout)
		defer cancel()
		if err := authSvc.WaitDeliveries(ctx); err != nil {
			logger.Logger.Warn().Err(err).Msg("pending email deliveries abandoned")
		}
	})

	contactSvc := contact.NewService(mailer, cfg.MailTimeout)

	// seed
	if cfg.SeedAdminEmail != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		created, err := authSvc.EnsureAdmin(ctx, cfg.SeedAdminName, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
		cancel()
		if err != nil {
			return fail(fmt.Errorf("bootstrap: seed admin: %w", err))
		}
		logger.Logger.Info().Bool("created", created).Msg("admin seed checked")
	}

	// 7) background sweeper
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweeper := worker.NewTokenSweeper(tokens, cfg.TokenSweepInterval, cfg.StoreTimeout).WithMetrics(collector)
	var sweepWG sync.WaitGroup
	sweepWG.Add(1)
	go func() {
		defer sweepWG.Done()
		sweeper.Run(sweepCtx)
	}()
	cleanupFns = append(cleanupFns, func() {
		stopSweep()
		sweepWG.Wait()
	})

	// 8) handlers + middleware
	authH := http_handlers.NewAuthHandler(authSvc, cfg.SessionTTL, cfg.SecureCookies)
	adminH := http_handlers.NewAdminHandler(authSvc)
	contactH := http_handlers.NewContactHandler(contactSvc)
	healthH := http_handlers.NewHealthHandler(checks)

	rl := func(scope string, limit int) router.Middleware {
		return middleware.RateLimit(
			limiter,
			middleware.FixedWindowConfig{
				Scope:  scope,
				Limit:  limit,
				Window: cfg.RateLimitWindow,
			},
			collector,
			response.WriteError,
		)
	}

	// 9) router
	mux, err := deps.NewRouter(router.Deps{
		Health:  healthH,
		Auth:    authH,
		Admin:   adminH,
		Contact: contactH,
		Metrics: collector.Handler(),

		RequestIDMW: middleware.RequestID,
		AuthMW:      middleware.Auth(signer, response.WriteError),
		AdminMW:     middleware.RequireRole(string(domain.RoleAdmin), response.WriteError),
		MetricsMW:   middleware.Metrics(collector),
		OriginMW:    middleware.OriginCheck(cfg.AllowedOrigins, response.WriteError),

		OptionalAuthMW: middleware.OptionalAuth(signer),

		RegisterRL: rl("auth.register", cfg.RegisterRateLimit),
		SignInRL:   rl("auth.sign_in", cfg.SignInRateLimit),
		ForgotRL:   rl("auth.password_forgot", cfg.ForgotRateLimit),
		ContactRL:  rl("contact.submit", cfg.ContactRateLimit),
	})
	if err != nil {
		return fail(err)
	}

	// 10) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() { runCleanup(cleanupFns) })
	}

	return srv, cleanup, nil
}

// newMailer picks the email transport named by MAIL_TRANSPORT. A broker
// that cannot be reached falls back to the log notifier in dev only.
func newMailer(cfg *config.Config, deps Deps, checks map[string]http_handlers.Checker, cleanupFns *[]func()) (Mailer, error) {
	switch cfg.MailTransport {
	case "smtp":
		n, err := mail.NewSMTPNotifier(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			Inbox:    cfg.ContactInbox,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: smtp: %w", err)
		}
		return n, nil

	case "rabbitmq":
		pub, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			if cfg.Env == "dev" {
				logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; logging emails instead")
				return memory.NewLogNotifier(), nil
			}
			return nil, fmt.Errorf("bootstrap: rabbitmq: %w", err)
		}
		*cleanupFns = append(*cleanupFns, func() { _ = pub.Close() })
		checks["rabbitmq"] = pub
		return pub, nil

	default:
		return memory.NewLogNotifier(), nil
	}
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		Migrate:    migrations.Up,
		NewRedis:   redis.New,
		NewPublisher: func(url, exchange string) (*rabbitmq.Publisher, error) {
			return rabbitmq.NewPublisher(url, exchange)
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
