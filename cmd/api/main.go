package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/case-service/internal/api/http"
	"github.com/spec-kit/case-service/internal/api/http/handlers"
	"github.com/spec-kit/case-service/internal/auth"
	"github.com/spec-kit/case-service/internal/cache"
	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/coordinator"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/notification"
	"github.com/spec-kit/case-service/internal/observability"
	"github.com/spec-kit/case-service/internal/persistence"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/sla"
	"github.com/spec-kit/case-service/internal/worker"
	"github.com/spec-kit/case-service/internal/workflow"
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

	metrics := observability.NewMetrics()

	store, pg, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer pg.Close()
	metrics.RegisterPool("store", pg)

	redis, err := persistence.NewRedis(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to configure redis", zap.Error(err))
	}
	defer redis.Close()
	mirror := cache.NewRedisMirror(redis.ClientHandle(), cfg.Redis.KeyPrefix)

	slaConfigs, err := loadSLAConfigurations(ctx, cfg.Engine, store)
	if err != nil {
		logger.Fatal("failed to load sla configurations", zap.Error(err))
	}
	templates, err := repository.Seed(ctx, store, repository.CollectionNotificationTemplates, notification.DefaultTemplates())
	if err != nil {
		logger.Fatal("failed to load notification templates", zap.Error(err))
	}

	inbox := notification.NewInAppTransport(cfg.Notification.InboxLimit)
	notificationLog := repository.NewNotificationLog(store)
	dispatcher := notification.NewDispatcher(notification.Dependencies{
		Templates: templates,
		Transports: map[domain.NotificationChannel]notification.Transport{
			domain.ChannelEmail: notification.NewEmailTransport(cfg.Notification.EmailFrom, logger),
			domain.ChannelInApp: inbox,
		},
		Recorder: notification.Recorders{notificationLog, metrics.Notifications()},
		Logger:   logger,
	})
	if cfg.Notification.WebhookURL != "" {
		dispatcher.RegisterTransport(domain.ChannelWebhook,
			notification.NewWebhookTransport(cfg.Notification.WebhookURL, cfg.Notification.WebhookTimeout(), logger))
	}
	history, err := notificationLog.All(ctx)
	if err != nil {
		logger.Fatal("failed to restore notifications", zap.Error(err))
	}
	dispatcher.Restore(history)

	executions := repository.NewExecutionLog(store)
	engine := workflow.NewEngine(workflow.Dependencies{
		Notifier:          dispatcher,
		Assigner:          workflow.NewRosterAssigner(cfg.Engine.Roster, nil),
		Recorder:          executions,
		EscalationContact: cfg.Engine.EscalationContact,
		Logger:            logger,
	})
	if err := loadRules(ctx, cfg.Engine, store, engine); err != nil {
		logger.Fatal("failed to load workflow rules", zap.Error(err))
	}
	if cfg.Engine.RulesFile != "" && cfg.Engine.WatchRules {
		persist := func(rules []domain.WorkflowRule) {
			if err := repository.SaveAll(ctx, store, repository.CollectionWorkflowRules, rules); err != nil {
				logger.Error("persist reloaded rules", zap.Error(err))
			}
		}
		if err := workflow.WatchRules(ctx, cfg.Engine.RulesFile, engine, persist, logger); err != nil {
			logger.Warn("rules file watch disabled", zap.Error(err))
		}
	}

	aggregates := cache.New(cache.Options{
		MaxSize:       cfg.Cache.MaxSize,
		DefaultTTL:    cfg.Cache.DefaultTTL(),
		SweepInterval: cfg.Cache.SweepInterval(),
		Logger:        logger,
	})
	aggregates.Start(ctx)
	defer aggregates.Close()
	metrics.RegisterCache("aggregates", aggregates)

	bus := events.NewInMemoryDispatcher(logger)
	worker.NewEventWorker(bus, metrics, logger).RegisterHandlers()

	co := coordinator.New(coordinator.Dependencies{
		Store:      store,
		SLA:        sla.NewEngine(slaConfigs),
		Workflow:   engine,
		Cache:      aggregates,
		Mirror:     mirror,
		Events:     bus,
		Executions: executions,
		Metrics:    metrics,
		Logger:     logger,
		StatsTTL:   cfg.Cache.StatsTTL(),
	})
	go worker.NewSLAMonitor(co, cfg.Engine.SLACheckInterval(), logger).Run(ctx)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authenticator, err := auth.NewAuthenticator(cfg.Auth.Clients, tokens)
	if err != nil {
		logger.Fatal("failed to init authenticator", zap.Error(err))
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthChecks(store, pg, redis)...),
		Auth:           handlers.NewAuthHandler(authenticator),
		Cases:          handlers.NewCasesHandler(co),
		Rules:          handlers.NewRulesHandler(engine, store, logger),
		Notifications:  handlers.NewNotificationsHandler(dispatcher, inbox),
		Cache:          handlers.NewCacheHandler(aggregates),
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

// openStore returns the collection store for the configured driver. The Postgres handle is
// nil unless the postgres driver is selected.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, *persistence.Postgres, error) {
	switch cfg.Store.Driver {
	case config.StoreMemory:
		logger.Warn("using in-memory store; state is lost on restart")
		return repository.NewMemoryStore(), nil, nil
	case config.StorePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, nil, err
			}
		}
		return repository.NewPostgresStore(pg.Pool), pg, nil
	default:
		store, err := repository.NewFileStore(cfg.Store.Dir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using file store", zap.String("dir", cfg.Store.Dir))
		return store, nil, nil
	}
}

// loadSLAConfigurations prefers the configured file, which also replaces the stored table.
func loadSLAConfigurations(ctx context.Context, cfg config.EngineConfig, store repository.Store) ([]domain.SLAConfiguration, error) {
	if cfg.SLAConfigFile == "" {
		return repository.Seed(ctx, store, repository.CollectionSLAConfigurations, sla.DefaultConfigurations())
	}
	configs, err := sla.LoadConfigurationsFile(cfg.SLAConfigFile)
	if err != nil {
		return nil, err
	}
	if err := repository.SaveAll(ctx, store, repository.CollectionSLAConfigurations, configs); err != nil {
		return nil, err
	}
	return configs, nil
}

func loadRules(ctx context.Context, cfg config.EngineConfig, store repository.Store, engine *workflow.Engine) error {
	if cfg.RulesFile == "" {
		rules, err := repository.Seed(ctx, store, repository.CollectionWorkflowRules, workflow.DefaultRules())
		if err != nil {
			return err
		}
		return engine.ReplaceRules(rules)
	}
	rules, err := workflow.LoadRulesFile(cfg.RulesFile)
	if err != nil {
		return err
	}
	if err := engine.ReplaceRules(rules); err != nil {
		return err
	}
	return repository.SaveAll(ctx, store, repository.CollectionWorkflowRules, engine.Rules())
}

// healthChecks probes the store, plus postgres and redis when they are in use.
func healthChecks(store repository.Store, pg *persistence.Postgres, redis *persistence.Redis) []handlers.DependencyCheck {
	checks := []handlers.DependencyCheck{{
		Name: "store",
		Probe: func(ctx context.Context) error {
			_, err := store.Load(ctx, repository.CollectionSLAConfigurations)
			return err
		},
	}}
	pgCheck := handlers.DependencyCheck{Name: "postgres"}
	if pg != nil {
		pgCheck.Probe = pg.Ping
	}
	redisCheck := handlers.DependencyCheck{Name: "redis"}
	if redis != nil {
		redisCheck.Probe = redis.Ping
	}
	return append(checks, pgCheck, redisCheck)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
