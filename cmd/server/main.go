package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nextaz-be/internal/admin"
	"nextaz-be/internal/cart"
	"nextaz-be/internal/catalog"
	"nextaz-be/internal/checkout"
	"nextaz-be/internal/config"
	"nextaz-be/internal/db"
	"nextaz-be/internal/logger"
	"nextaz-be/internal/metrics"
	"nextaz-be/internal/middleware"
	"nextaz-be/internal/notify"
	"nextaz-be/internal/order"
	"nextaz-be/internal/payment"
	"nextaz-be/internal/payment/webhook"
	"nextaz-be/internal/pricing"
	"nextaz-be/internal/utils"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 60 * time.Second
)

var (
	initDBFunc      = db.InitDB
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped with error", zap.Error(err))
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	a, err := newApp(cfg, database)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.serve(ctx, ":"+cfg.AppPort, cfg.ShutdownTimeout)
}

// app is the assembled service: the HTTP handler plus its background workers.
type app struct {
	handler    http.Handler
	dispatcher *notify.Dispatcher
	limiter    *middleware.RateLimiter
}

type handlers struct {
	checkout  *checkout.Handler
	webhook   *webhook.Handler
	admin     *admin.Handler
	metrics   *metrics.Metrics
	jwtSecret string
}

func newApp(cfg *config.Config, database *sql.DB) (*app, error) {
	m := metrics.New()

	pricingCfg, err := cfg.Pricing()
	if err != nil {
		return nil, err
	}
	netopiaCfg := cfg.Netopia()

	oracle := catalog.NewSanityOracle(catalog.SanityConfig{
		ProjectID:  cfg.SanityProjectID,
		Dataset:    cfg.SanityDataset,
		APIVersion: cfg.SanityAPIVersion,
		Token:      cfg.SanityToken,
	})
	revalidator := cart.NewRevalidator(oracle, pricing.NewCalculator(pricingCfg))

	orderSvc := order.NewService(order.NewRepository(database), m)
	payRepo := payment.NewRepository(database)
	gateway := payment.NewNetopiaGateway(netopiaCfg)

	verifier, err := payment.NewIPNVerifier(netopiaCfg)
	if err != nil {
		return nil, errors.Wrap(err, "netopia ipn verifier")
	}

	var sender notify.Sender
	if cfg.ResendAPIKey != "" {
		sender = notify.NewResendSender(cfg.ResendAPIKey)
	} else {
		logger.L().Warn("RESEND_API_KEY is empty, confirmation emails will only be logged")
		sender = notify.NewLogSender()
	}
	dispatcher := notify.NewDispatcher(orderSvc, sender, m, notify.DispatcherConfig{
		From:        cfg.MailFrom,
		AdminEmail:  cfg.AdminEmail,
		QueueSize:   cfg.EmailQueueSize,
		MaxAttempts: cfg.EmailMaxAttempts,
	})

	if !netopiaCfg.Configured() {
		logger.L().Warn("Netopia credentials missing, checkout runs in mock payment mode")
	}

	webhookHandler := webhook.NewWebhookHandler(orderSvc, payRepo, verifier, dispatcher, m, netopiaCfg.Configured())

	h := handlers{
		checkout: checkout.NewHandler(revalidator, orderSvc, gateway, m, cfg.PublicBaseURL, pricingCfg.Currency()),
		webhook:  webhookHandler,
		admin: admin.NewHandler(orderSvc, webhookHandler, admin.Config{
			Username:     cfg.AdminUsername,
			PasswordHash: cfg.AdminPasswordHash,
			JWTSecret:    cfg.JWTSecret,
			SecureCookie: cfg.IsProduction(),
		}),
		metrics:   m,
		jwtSecret: cfg.JWTSecret,
	}

	trustedProxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return nil, err
	}

	limiter := middleware.NewRateLimiter(cfg.InternalSecretKey, "/api/payment/initiate", "/admin/login")

	handler := middleware.Chain(setupRouter(h),
		middleware.Recovery,
		logger.RequestIDMiddleware,
		middleware.RealIP(trustedProxies),
		middleware.CORS(cfg.AllowedOrigins()),
		limiter.Middleware,
		middleware.Logging(m),
	)

	return &app{handler: handler, dispatcher: dispatcher, limiter: limiter}, nil
}

func setupRouter(h handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	})
	mux.Handle("GET /metrics", h.metrics.Handler())

	mux.HandleFunc("POST /api/cart/validate", h.checkout.ValidateCart)
	mux.HandleFunc("POST /api/payment/initiate", h.checkout.Initiate)
	mux.HandleFunc("GET /api/payment/ipn", h.webhook.Status)
	mux.HandleFunc("POST /api/payment/ipn", h.webhook.NetopiaIPN)

	mux.HandleFunc("POST /admin/login", h.admin.Login)

	requireAdmin := middleware.RequireAdmin(h.jwtSecret)
	mux.Handle("GET /admin/orders/{orderNumber}", requireAdmin(http.HandlerFunc(h.admin.GetOrder)))
	mux.Handle("POST /admin/orders/{orderNumber}/shipment", requireAdmin(http.HandlerFunc(h.admin.MarkShipped)))
	mux.Handle("POST /admin/webhooks/replay", requireAdmin(http.HandlerFunc(h.admin.ReplayWebhooks)))

	return mux
}

// serve runs the HTTP server and the background workers until ctx is done or
// one of them fails, then shuts the server down within shutdownTimeout. The
// email dispatcher is stopped only after Shutdown returns, so notifications
// handled by in-flight requests are still delivered.
func (a *app) serve(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	defer stopDispatch()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		logger.L().Info("HTTP server listening", zap.String("addr", addr))
		if err := startServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})

	g.Go(func() error {
		return a.dispatcher.Run(dispatchCtx)
	})

	g.Go(func() error {
		a.limiter.Cleanup(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		defer stopDispatch()
		logger.L().Info("shutting down HTTP server")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancelShutdown()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})

	return g.Wait()
}
