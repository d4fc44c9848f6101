package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/mbenitez01/citadel/internal/billing"
	"github.com/mbenitez01/citadel/internal/cache"
	memcache "github.com/mbenitez01/citadel/internal/cache/memory"
	rediscache "github.com/mbenitez01/citadel/internal/cache/redis"
	"github.com/mbenitez01/citadel/internal/config"
	"github.com/mbenitez01/citadel/internal/domain/repository"
	httpserver "github.com/mbenitez01/citadel/internal/http"
	authctrl "github.com/mbenitez01/citadel/internal/http/controllers/auth"
	billingctrl "github.com/mbenitez01/citadel/internal/http/controllers/billing"
	emailctrl "github.com/mbenitez01/citadel/internal/http/controllers/email"
	healthctrl "github.com/mbenitez01/citadel/internal/http/controllers/health"
	securityctrl "github.com/mbenitez01/citadel/internal/http/controllers/security"
	socialctrl "github.com/mbenitez01/citadel/internal/http/controllers/social"
	"github.com/mbenitez01/citadel/internal/http/helpers"
	mw "github.com/mbenitez01/citadel/internal/http/middlewares"
	"github.com/mbenitez01/citadel/internal/http/router"
	authsvc "github.com/mbenitez01/citadel/internal/http/services/auth"
	"github.com/mbenitez01/citadel/internal/http/services/billingsvc"
	securitysvc "github.com/mbenitez01/citadel/internal/http/services/security"
	sessionsvc "github.com/mbenitez01/citadel/internal/http/services/session"
	socialsvc "github.com/mbenitez01/citadel/internal/http/services/social"
	"github.com/mbenitez01/citadel/internal/http/services/tokens"
	"github.com/mbenitez01/citadel/internal/metrics"
	"github.com/mbenitez01/citadel/internal/notifier"
	"github.com/mbenitez01/citadel/internal/oauth"
	"github.com/mbenitez01/citadel/internal/observability/logger"
	"github.com/mbenitez01/citadel/internal/rate"
	"github.com/mbenitez01/citadel/internal/store/pg"
	"github.com/mbenitez01/citadel/internal/tenant"
)

func main() {
	// .env en dev; en prod las vars vienen del entorno.
	_ = godotenv.Load()

	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "ruta al YAML de configuración")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: envOr("LOG_LEVEL", "info")})
	defer func() { _ = logger.Sync() }()
	lg := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Registro de tenants: dominios, prefijos de storage, providers sociales.
	registry, err := tenant.Load(cfg.Tenants.Path)
	if err != nil {
		lg.Fatal("tenant registry", logger.Err(err))
	}

	// Storage compartido; cada tenant opera sobre su schema.
	pool, err := pg.NewPool(ctx, pg.Config{DSN: cfg.Storage.DSN, MaxConns: int32(cfg.Storage.MaxConns)})
	if err != nil {
		lg.Fatal("postgres", logger.Err(err))
	}
	defer pool.Close()

	// Los TenantStore se construyen una vez al boot, uno por tenant: el
	// prefijo ya fue validado por el registro.
	stores := make(map[string]repository.DataAccess, len(registry.All()))
	for _, t := range registry.All() {
		stores[t.Prefix] = pg.NewTenantStore(pool, t.Prefix)
	}
	storeProvider := func(prefix string) repository.DataAccess { return stores[prefix] }

	// Cache compartida: CSRF y rate limiting.
	var cacheClient cache.Client
	var redisClient *rdb.Client
	switch cfg.Cache.Kind {
	case "redis":
		redisClient = rdb.NewClient(&rdb.Options{Addr: cfg.Cache.Redis.Addr, DB: cfg.Cache.Redis.DB})
		cacheClient = rediscache.New(redisClient, cfg.Cache.Redis.Prefix)
	default:
		cacheClient = memcache.New(cfg.Cache.Memory.DefaultTTL)
	}
	defer func() { _ = cacheClient.Close() }()

	metrics.Register(prometheus.DefaultRegisterer)

	// Notifier SMTP; sin host configurado queda el Nop (dev).
	var n notifier.Notifier = notifier.Nop{}
	if cfg.SMTP.Host != "" {
		sender := notifier.NewSMTPSender(notifier.SMTPConfig{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			FromEmail:          cfg.SMTP.From,
			TLSMode:            cfg.SMTP.TLS,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		})
		n = notifier.New(sender)
	}

	// Services
	sessions := sessionsvc.NewService(cfg.Auth.Session.TTL)
	tokensSvc := tokens.NewService(cfg.Auth.Reset.TTL, cfg.Auth.Verify.TTL)
	flows := tokens.NewFlows(tokensSvc, n, cfg.Email.BaseURL)
	authSvc := authsvc.NewService(flows, cfg.Auth.Lockout.Threshold, cfg.Auth.Lockout.Window)
	csrfSvc := securitysvc.NewCSRFService(cacheClient, cfg.Auth.CSRF.TTL)
	socialSvc := socialsvc.NewService(oauth.NewStateSigner(cfg.Auth.StateSecret), sessions)
	billingSvc := billingsvc.NewService(
		billing.NewHTTPClient(cfg.Billing.BaseURL, cfg.Billing.APIKey),
		cfg.Billing.WebhookSecret,
		cfg.Billing.SuccessURL,
		cfg.Billing.CancelURL,
	)

	sessionCookie := helpers.CookieOpts{
		Name:     cfg.Auth.Session.CookieName,
		SameSite: cfg.Auth.Session.SameSite,
		Secure:   cfg.Auth.Session.Secure,
		TTL:      cfg.Auth.Session.TTL,
	}
	csrfCookie := helpers.CookieOpts{
		Name:     "csrf_token",
		SameSite: cfg.Auth.Session.SameSite,
		Secure:   cfg.Auth.Session.Secure,
		TTL:      cfg.Auth.CSRF.TTL,
	}

	// Rate limiters: fixed window en Redis; sin Redis, Nop.
	limiter := func(prefix string, limit int, window time.Duration) rate.Limiter {
		if !cfg.Rate.Enabled || redisClient == nil {
			return rate.NopLimiter{}
		}
		return rate.NewRedisLimiter(redisClient, prefix, limit, window)
	}

	handler := router.New(router.Deps{
		Auth:     authctrl.NewController(authSvc, sessions, sessionCookie),
		Email:    emailctrl.NewController(tokensSvc, flows),
		Security: securityctrl.NewController(csrfSvc, csrfCookie),
		Social:   socialctrl.NewController(socialSvc, sessionCookie),
		Billing:  billingctrl.NewController(billingSvc),
		Health:   healthctrl.NewController(pool, cacheClient),

		Tenant:          mw.WithTenantResolution(registry, storeProvider),
		SessionAuth:     mw.WithSessionAuth(sessions, cfg.Auth.Session.CookieName),
		SessionOptional: mw.WithOptionalSession(sessions, cfg.Auth.Session.CookieName),
		CSRF:            mw.WithCSRF(csrfSvc),
		RateLogin:       mw.WithRateLimit(limiter("rl:login:", cfg.Rate.Login.Limit, cfg.Rate.Login.Window), "login"),
		RateSignup:      mw.WithRateLimit(limiter("rl:signup:", cfg.Rate.Signup.Limit, cfg.Rate.Signup.Window), "signup"),
		RateForgot:      mw.WithRateLimit(limiter("rl:forgot:", cfg.Rate.Forgot.Limit, cfg.Rate.Forgot.Window), "forgot"),
	})

	srv := httpserver.NewServer(cfg.Server.Addr, handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		lg.Fatal("server", logger.Err(err))
	}
	lg.Info("shutdown completo")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
