package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saas_backend/internal/auth"
	"saas_backend/internal/auth/identity"
	"saas_backend/internal/auth/token"
	"saas_backend/internal/catalog"
	"saas_backend/internal/config"
	"saas_backend/internal/http_server/handlers/invite"
	"saas_backend/internal/http_server/handlers/login"
	"saas_backend/internal/http_server/handlers/logout"
	"saas_backend/internal/http_server/handlers/product"
	"saas_backend/internal/http_server/handlers/refresh"
	"saas_backend/internal/http_server/handlers/register"
	registerInvite "saas_backend/internal/http_server/handlers/register_invite"
	resendEmail "saas_backend/internal/http_server/handlers/resend_verification_email"
	"saas_backend/internal/http_server/handlers/user"
	"saas_backend/internal/http_server/handlers/verify"
	resp "saas_backend/internal/lib/api/response"
	"saas_backend/internal/lib/cookie"
	"saas_backend/internal/lib/hasher"
	"saas_backend/internal/lib/jwt"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/lib/validate"
	"saas_backend/internal/lib/verification"
	"saas_backend/internal/mailer"
	mwmetrics "saas_backend/internal/middleware/metrics"
	rateLimit "saas_backend/internal/middleware/ratelimit"
	"saas_backend/internal/middleware/security"
	"saas_backend/internal/rabbitmq"
	"saas_backend/internal/storage/memory"
	"saas_backend/internal/storage/postgres"
	"saas_backend/internal/storage/redis"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type store interface {
	auth.UserProvider
	auth.UserSaver
	auth.SessionProvider
	auth.CompanyProvider
	auth.InviteSaver
	auth.Transactor
	catalog.Store
	catalog.InstallationProvider
}

type pinger interface {
	Ping(ctx context.Context) error
}

type services struct {
	auth      *auth.Auth
	registrar *auth.Registrar
	catalog   *catalog.Service
	resolver  *identity.Resolver
	health    []pinger
}

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting saas backend", slog.String("env", cfg.Env), slog.String("storage", cfg.Storage))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := setupStorage(ctx, cfg)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}
	defer closeStore()

	var health []pinger
	if p, ok := st.(pinger); ok {
		health = append(health, p)
	}

	var cooldown auth.Cooldown = memory.New()
	if cfg.Redis.Enabled {
		rdb, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Error("failed to connect redis", sl.Err(err))
			os.Exit(1)
		}
		defer rdb.Close()

		cooldown = rdb
		health = append(health, rdb)
	}

	pub, closePub, err := setupPublisher(cfg, log)
	if err != nil {
		log.Error("failed to init mail transport", sl.Err(err))
		os.Exit(1)
	}
	defer closePub()

	codec, err := jwt.NewCodec(cfg.Tokens.Secret, cfg.Tokens.Algorithm)
	if err != nil {
		log.Error("failed to init token codec", sl.Err(err))
		os.Exit(1)
	}

	tokens := token.New(log, codec, token.WithCompanyContext(cfg.Tokens.RequireCompany))
	hash := hasher.New(cfg.Password.BcryptCost)
	confirmer := verification.NewConfirmer(log, tokens, pub, cfg.Tokens.EmailConfirmTTL, cfg.Mail.FrontendURL, cfg.Mail.TemplateID)

	svc := services{
		auth: auth.New(log, st, st, st, tokens, hash, cfg.Tokens.AccessTokenTTL, cfg.Tokens.RefreshTokenTTL),
		registrar: auth.NewRegistrar(log, auth.RegistrarDeps{
			UserProvider:   st,
			UserSaver:      st,
			Companies:      st,
			Invites:        st,
			Tx:             st,
			Tokens:         tokens,
			Hasher:         hash,
			Confirmer:      confirmer,
			Cooldown:       cooldown,
			ResendCooldown: cfg.Mail.ResendCooldown,
		}),
		catalog: catalog.New(log, st, st,
			catalog.NewWixClient(cfg.Wix.APIURL, cfg.Wix.APIKey, cfg.Wix.Timeout),
			cfg.Wix.SiteID,
		),
		resolver: identity.NewResolver(tokens),
		health:   health,
	}

	var sweeper *token.Sweeper
	if cfg.Cleanup.Enabled {
		sweeper = token.NewSweeper(log, tokens, st, cfg.Cleanup.Interval)
		sweeper.Start(ctx)
	}

	router := setupRouter(log, cfg, svc)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: 2 * cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	if sweeper != nil {
		sweeper.Stop()
	}

	log.Info("Main service stopped")
}

func setupStorage(ctx context.Context, cfg *config.Config) (store, func(), error) {
	if cfg.Storage == "memory" {
		return memory.New(), func() {}, nil
	}

	pg, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}

	return pg, pg.Close, nil
}

func setupPublisher(cfg *config.Config, log *slog.Logger) (verification.Publisher, func(), error) {
	switch cfg.Mail.Transport {
	case "rabbitmq":
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			return nil, nil, err
		}

		return p, p.Close, nil
	case "brevo":
		b := mailer.NewBrevo(cfg.Brevo.URL, cfg.Brevo.APIKey, cfg.Brevo.SenderEmail, cfg.Brevo.SenderName, cfg.Brevo.Timeout)

		return b, func() {}, nil
	case "smtp":
		return &mailer.SMTP{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, func() {}, nil
	default:
		return mailer.LogSender{Log: log}, func() {}, nil
	}
}

func setupRouter(log *slog.Logger, cfg *config.Config, svc services) *chi.Mux {
	v := validate.New()

	cookies := cookie.Settings{
		Secure:     cfg.Cookies.Secure,
		Domain:     cfg.Cookies.Domain,
		AccessTTL:  cfg.Tokens.AccessTokenTTL,
		RefreshTTL: cfg.Tokens.RefreshTokenTTL,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(mwmetrics.Duration)
	r.Use(security.Headers(cfg.Env != envProd))
	r.Use(security.CORS(cfg.HTTPServer.CORSOrigins))

	r.Get("/healthz", healthz(svc.health))
	r.Handle("/metrics", promhttp.Handler())

	authenticate := svc.resolver.Authenticate(log)

	r.Route("/auth", func(r chi.Router) {
		r.With(rateLimit.RegisterCompany()).Post("/register-company", register.New(log, v, svc.registrar))
		r.With(rateLimit.RegisterInvite()).Post("/register-invite", registerInvite.New(log, v, svc.registrar))
		r.With(rateLimit.ConfirmEmail()).Get("/confirm-email", verify.New(log, svc.registrar))
		r.With(rateLimit.ResendConfirmation()).Post("/resend-confirmation", resendEmail.New(log, v, svc.registrar))
		r.With(rateLimit.Login()).Post("/login", login.New(log, v, svc.auth, cookies, cfg.Tokens.ExposeInBody))
		r.With(rateLimit.Refresh()).Post("/refresh", refresh.New(log, svc.auth, cookies, cfg.Tokens.ExposeInBody))
		r.With(rateLimit.Logout()).Post("/logout", logout.New(log, svc.auth, cookies))

		r.With(authenticate, identity.RequireAdmin, rateLimit.Invite()).
			Post("/invites", invite.New(log, v, svc.registrar))
	})

	r.Route("/api-user", func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/", user.Me(log, svc.auth))
		r.Put("/password-change", user.ChangePassword(log, v, svc.auth))

		r.Group(func(r chi.Router) {
			r.Use(identity.RequireCompany, identity.RequireAdmin)

			r.Get("/all", user.List(log, svc.auth))
			r.Get("/refresh-tokens", user.Sessions(log, svc.auth))
		})
	})

	r.Route("/product", func(r chi.Router) {
		r.Use(authenticate, identity.RequireCompany)

		r.Get("/products", product.Products(log, svc.catalog))
		r.Get("/product/{id}", product.Product(log, svc.catalog))
		r.Get("/categories", product.Categories(log, svc.catalog))
		r.Get("/category/{id}", product.Category(log, svc.catalog))

		r.Group(func(r chi.Router) {
			r.Use(identity.RequireAdmin, rateLimit.CatalogSync())

			r.Post("/storefront", product.ConnectStorefront(log, v, svc.catalog))
			r.Post("/sync-wix-categories", product.SyncCategories(log, svc.catalog))
			r.Post("/sync-wix-products", product.SyncProducts(log, svc.catalog))
		})
	})

	return r
}

func healthz(deps []pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for _, d := range deps {
			if err := d.Ping(ctx); err != nil {
				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, resp.Error("dependency unavailable"))

				return
			}
		}

		render.JSON(w, r, resp.OK())
	}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
