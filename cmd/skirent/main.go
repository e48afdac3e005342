package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"skirent/internal/app/commands"
	cartapp "skirent/internal/app/handlers/cart"
	catalogapp "skirent/internal/app/handlers/catalogview"
	checkoutapp "skirent/internal/app/handlers/checkout"
	meapp "skirent/internal/app/handlers/me"
	paymentsapp "skirent/internal/app/handlers/payments"
	refundsapp "skirent/internal/app/handlers/refunds"
	"skirent/internal/app/middleware"
	appoutbox "skirent/internal/app/outbox"
	"skirent/internal/app/queries"
	authsvc "skirent/internal/app/services/auth"
	"skirent/internal/app/sweep"
	"skirent/internal/app/uow"
	domainauth "skirent/internal/domain/auth"
	"skirent/internal/domain/catalog"
	domainpricing "skirent/internal/domain/pricing"
	domainuser "skirent/internal/domain/user"
	"skirent/internal/infra/broker/kafka"
	"skirent/internal/infra/config"
	mongostore "skirent/internal/infra/db/mongo"
	ginserver "skirent/internal/infra/http/gin"
	"skirent/internal/infra/inbox"
	"skirent/internal/infra/notify"
	"skirent/internal/infra/obs"
	outboxinfra "skirent/internal/infra/outbox"
	"skirent/internal/infra/payment"
	"skirent/internal/infra/security"
	"skirent/internal/infra/storage/memory"
	"skirent/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application startup failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if err := app.sweeper.Start(cfg.SweepSchedule); err != nil {
		logger.Error("expiry sweep schedule invalid", "schedule", cfg.SweepSchedule, "error", err)
		os.Exit(1)
	}
	defer app.sweeper.Stop()

	if app.outboxWorker != nil {
		go func() {
			if err := app.outboxWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}
	if app.consumer != nil {
		go func() {
			if err := app.consumer.Run(ctx, []string{cfg.KafkaGatewayTopic}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("gateway event consumer stopped", "error", err)
			}
		}()
		defer app.consumer.Close()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers     ginserver.Handlers
	sweeper      *sweep.Sweeper
	outboxWorker *outboxinfra.Worker
	consumer     *kafka.Consumer
	ready        func() error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	var (
		uowFactory  uow.UoWFactory
		calculator  *domainpricing.Calculator
		outboxStore appoutbox.Outbox
		idStore     middleware.IdempotencyStore
		usersRepo   domainuser.Repository
		sessions    domainauth.SessionStore
		ready       func() error

		mongoOutbox *outboxinfra.Store
		inboxStore  *inbox.Store
	)

	switch cfg.StorageMode {
	case "memory":
		stores := memory.NewStores()
		uowFactory = memory.Factory{Stores: stores}
		calculator = &domainpricing.Calculator{Periods: stores.Periods, Prices: stores.Prices, Logger: logger}
		outboxStore = memory.NewOutbox()
		idStore = memory.NewIdempotencyStore()
		usersRepo = stores.Users
		sessions = memory.NewSessionStore()
		ready = func() error { return nil }
		if err := seedDefaultPeriods(ctx, uowFactory, logger); err != nil {
			return application{}, fmt.Errorf("seed periods: %w", err)
		}
	default:
		client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, fmt.Errorf("mongo connect: %w", err)
		}
		factory := mongostore.NewFactory(client.DB)
		uowFactory = factory
		calculator = &domainpricing.Calculator{Periods: factory.PeriodsRepo, Prices: factory.PricesRepo, Logger: logger}
		mongoOutbox = outboxinfra.NewStore(client.DB)
		outboxStore = mongoOutbox
		idStore = mongostore.NewIdempotencyStore(client.DB)
		usersRepo = factory.UsersRepo
		sessions = mongostore.NewSessionStore(client.DB)
		inboxStore = inbox.NewStore(client.DB, cfg.KafkaConsumerGroup)
		ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
	}

	payClient, err := payment.NewClient(payment.Config{
		BaseURL:     cfg.GatewayBaseURL,
		SecretKey:   cfg.GatewaySecretKey,
		SuccessURL:  cfg.GatewaySuccessURL,
		CancelURL:   cfg.GatewayCancelURL,
		CallTimeout: cfg.GatewayCallTimeout,
	}, logger)
	if err != nil {
		return application{}, fmt.Errorf("payment client: %w", err)
	}
	verifier := payment.Verifier{Secret: cfg.GatewayWebhookSecret, Tolerance: cfg.WebhookTolerance}
	mailer := notify.NewMailer(notify.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, logger)

	var uploader s3.Uploader
	if s3Client, err := s3.NewClient(s3.Config{
		Endpoint:       cfg.S3Endpoint,
		UseSSL:         cfg.S3UseSSL,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Bucket:         cfg.S3Bucket,
		PublicEndpoint: cfg.S3PublicEndpoint,
	}, logger); err != nil {
		logger.Warn("object storage unavailable, image uploads disabled", "error", err)
	} else {
		uploader = s3Client
	}

	authService := &authsvc.Service{
		Users:     usersRepo,
		Sessions:  sessions,
		Passwords: security.BcryptHasher{},
		Tokens:    security.RandomTokenGenerator{},
		Logger:    logger,
	}
	if err := bootstrapAdmin(ctx, usersRepo, logger); err != nil {
		return application{}, fmt.Errorf("admin bootstrap: %w", err)
	}

	reconciler := &paymentsapp.Reconciler{
		UoWFactory: uowFactory,
		Payments:   payClient,
		Notifier:   mailer,
		Outbox:     outboxStore,
		Logger:     logger,
	}
	refundService := &refundsapp.Service{
		UoWFactory: uowFactory,
		Payments:   payClient,
		Logger:     logger,
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, cartapp.AddToCartCommand{}.Key(), &cartapp.AddToCartHandler{
		UoWFactory: uowFactory,
		Calculator: calculator,
		Outbox:     outboxStore,
		Encoder:    appoutbox.JSONEventEncoder{},
	})
	commands.RegisterHandler(commandBus, cartapp.UpdateDetailCommand{}.Key(), &cartapp.UpdateDetailHandler{
		UoWFactory: uowFactory,
	})
	commands.RegisterHandler(commandBus, checkoutapp.BeginCheckoutCommand{}.Key(), &checkoutapp.BeginCheckoutHandler{
		UoWFactory: uowFactory,
		Payments:   payClient,
		Outbox:     outboxStore,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, catalogapp.ListProductsQuery{}.Key(), &catalogapp.ListProductsHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, catalogapp.GetProductQuery{}.Key(), &catalogapp.GetProductHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, meapp.MyBookingsQuery{}.Key(), &meapp.MyBookingsHandler{UoWFactory: uowFactory})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(outboxStore),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	authMiddleware := ginserver.AuthMiddleware{Service: authService, Logger: logger}
	handlers := ginserver.Handlers{
		Catalog:  ginserver.CatalogHandler{Queries: queryBusWithMiddleware, Logger: logger},
		Cart:     ginserver.CartHandler{Commands: commandBusWithMiddleware, Logger: logger},
		Checkout: ginserver.CheckoutHandler{Commands: commandBusWithMiddleware, Reconciler: reconciler, Logger: logger},
		Refund:   ginserver.RefundHandler{Service: refundService, Logger: logger},
		Webhook: ginserver.WebhookHandler{
			Verifier:   verifier,
			Reconciler: reconciler,
			Refunds:    refundService,
			Events:     idStore,
			Logger:     logger,
		},
		Admin:          ginserver.AdminHandler{UoWFactory: uowFactory, Uploader: uploader, Logger: logger},
		Auth:           ginserver.AuthHandler{Service: authService, Logger: logger},
		Me:             ginserver.MeHandler{Queries: queryBusWithMiddleware, Logger: logger},
		AuthMiddleware: authMiddleware.Handle,
	}

	app := application{
		handlers: handlers,
		sweeper: &sweep.Sweeper{
			UoWFactory: uowFactory,
			TTL:        cfg.PaymentExpiryTTL,
			Logger:     logger,
		},
		ready: ready,
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return application{}, fmt.Errorf("kafka producer: %w", err)
		}
		if mongoOutbox != nil {
			app.outboxWorker = &outboxinfra.Worker{
				Store:       mongoOutbox,
				Producer:    producer,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
			}
		}
		if cfg.KafkaGatewayTopic != "" && inboxStore != nil {
			handler := kafka.GatewayEventHandler{
				Reconciler: reconciler,
				Refunds:    refundService,
				Inbox:      inboxStore,
				Logger:     logger,
			}
			consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, nil, handler, logger)
			if err != nil {
				return application{}, fmt.Errorf("kafka consumer: %w", err)
			}
			app.consumer = consumer
		}
	}

	return app, nil
}

// seedDefaultPeriods bootstraps the rental-duration tiers for the ephemeral
// in-memory storage, which starts empty on every boot.
func seedDefaultPeriods(ctx context.Context, factory uow.UoWFactory, logger *slog.Logger) error {
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	defer unit.Rollback(ctx)

	existing, err := unit.Periods().ListActive(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return unit.Commit(ctx)
	}

	three, seven := 3, 7
	now := time.Now()
	defaults := []catalog.NewPeriodParams{
		{Code: "day", Name: "1 day", Position: 1, MinDays: 1, MaxDays: &three, Days: 1},
		{Code: "week", Name: "Up to a week", Position: 2, MinDays: 4, MaxDays: &seven, Days: 7},
		{Code: "long", Name: "A week and more", Position: 3, MinDays: 8, Days: 14},
	}
	for _, params := range defaults {
		params.ID = catalog.PeriodID(uuid.NewString())
		params.CreatedAt = now
		period, err := catalog.NewPricePeriod(params)
		if err != nil {
			return err
		}
		if err := unit.Periods().Save(ctx, period); err != nil {
			return err
		}
		logger.Info("default price period seeded", "code", period.Code)
	}
	return unit.Commit(ctx)
}

// bootstrapAdmin creates the back-office account from ADMIN_EMAIL and
// ADMIN_PASSWORD when no user with that email exists yet.
func bootstrapAdmin(ctx context.Context, users domainuser.Repository, logger *slog.Logger) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}
	if _, err := users.ByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return err
	}
	hash, err := security.BcryptHasher{}.Hash(password)
	if err != nil {
		return err
	}
	admin, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        email,
		Name:         "Administrator",
		PasswordHash: hash,
		Roles:        []domainuser.Role{domainuser.RoleAdmin, domainuser.RoleCustomer},
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return err
	}
	if err := users.Save(ctx, admin); err != nil {
		return err
	}
	logger.Info("admin account bootstrapped", "email", email)
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
