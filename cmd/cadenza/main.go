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

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/cadenza-hq/cadenza/internal/adjustments"
	"github.com/cadenza-hq/cadenza/internal/app"
	"github.com/cadenza-hq/cadenza/internal/auth"
	"github.com/cadenza-hq/cadenza/internal/billing/invoices"
	"github.com/cadenza-hq/cadenza/internal/billing/rates"
	"github.com/cadenza-hq/cadenza/internal/masterdata"
	"github.com/cadenza-hq/cadenza/internal/observability"
	"github.com/cadenza-hq/cadenza/internal/org"
	"github.com/cadenza-hq/cadenza/internal/platform/cache"
	"github.com/cadenza-hq/cadenza/internal/platform/db"
	"github.com/cadenza-hq/cadenza/internal/rbac"
	"github.com/cadenza-hq/cadenza/internal/scheduling/lessons"
	"github.com/cadenza-hq/cadenza/internal/scheduling/recurrence"
	"github.com/cadenza-hq/cadenza/internal/shared"
	"github.com/cadenza-hq/cadenza/internal/students"
	"github.com/cadenza-hq/cadenza/internal/terms"
	"github.com/cadenza-hq/cadenza/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	orgProvider := org.NewCachedProvider(org.NewRepository(pool), redisClient, logger)
	termResolver := terms.NewResolver(terms.NewRepository(pool))

	calculator := adjustments.NewCalculator(
		logger,
		orgProvider,
		termResolver,
		recurrence.NewRepository(pool),
		lessons.NewRepository(pool),
		rates.NewRepository(pool),
		students.NewRepository(pool),
		invoices.NewRepository(pool),
		masterdata.NewRepository(pool),
		adjustments.NewRepository(pool),
	)

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	workflow := adjustments.NewWorkflow(
		logger,
		adjustments.NewTxRunner(pool),
		auditLogger,
		jobs.NewNotifier(queueClient),
	)

	metrics := observability.NewMetrics()
	validate := validator.New()
	adjustmentsHandler := adjustments.NewHandler(logger, validate, calculator, workflow, idempotencyStore, metrics)

	rbacMiddleware := rbac.Middleware{
		Memberships: rbac.NewMembershipRepository(pool),
		Logger:      logger,
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthRepo:           auth.NewRepository(pool),
		RBACMiddleware:     rbacMiddleware,
		AdjustmentsHandler: adjustmentsHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
