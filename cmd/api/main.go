package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/supportpilot/internal/ai"
	httptransport "github.com/spec-kit/supportpilot/internal/api/http"
	"github.com/spec-kit/supportpilot/internal/api/http/handlers"
	"github.com/spec-kit/supportpilot/internal/config"
	"github.com/spec-kit/supportpilot/internal/events"
	"github.com/spec-kit/supportpilot/internal/observability"
	"github.com/spec-kit/supportpilot/internal/persistence"
	"github.com/spec-kit/supportpilot/internal/repository"
	"github.com/spec-kit/supportpilot/internal/service"
	"github.com/spec-kit/supportpilot/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	blobs, closeStore, err := persistence.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open ticket store", zap.String("driver", string(cfg.Store.Driver)), zap.Error(err))
	}
	defer closeStore()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	activity := activityRepository(blobs)
	notifications := service.NewNotificationService(dispatcher, activity, logger, cfg.Notification)
	worker.StartSubscribers(logger, notifications)

	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repository.NewTicketRepository(blobs, cfg.Store.Key, logger),
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	tickets.Hydrate(ctx)

	// A remote gateway takes precedence; otherwise the gateway runs in this
	// process and its route is mounted too.
	var (
		analyzer  ai.Analyzer
		aiHandler *handlers.AIHandler
	)
	if cfg.AI.GatewayURL != "" {
		analyzer = ai.NewGatewayClient(cfg.AI.GatewayURL, cfg.AI.Timeout(), nil)
		logger.Info("using remote AI gateway", zap.String("url", cfg.AI.GatewayURL))
	} else {
		gateway := ai.NewGateway(ai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Timeout(), nil), cfg.AI.Model, logger)
		analyzer = gateway
		aiHandler = handlers.NewAIHandler(gateway)
		if cfg.AI.APIKey == "" {
			logger.Warn("OPENAI_API_KEY is not set; analysis requests will fail")
		}
	}

	analysis := service.NewAnalysisService(service.AnalysisDependencies{
		Tickets:  tickets,
		Analyzer: analyzer,
		Model:    cfg.AI.Model,
		Recorder: metrics,
		Logger:   logger,
	})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{"store": tickets}),
		Tickets:  handlers.NewTicketsHandler(tickets, analysis, nil),
		Activity: handlers.NewActivityHandler(tickets, activity),
		AI:       aiHandler,
		Metrics:  metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// activityRepository keeps the activity log next to the tickets when they
// live in postgres, and in memory otherwise.
func activityRepository(blobs persistence.BlobStore) repository.ActivityRepository {
	if pg, ok := blobs.(*persistence.Postgres); ok && pg.PoolHandle() != nil {
		return repository.NewActivityRepository(pg.PoolHandle())
	}
	return repository.NewMemoryActivityRepository(repository.DefaultActivityLimit)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
