package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/equipment-service/internal/api/http"
	"github.com/spec-kit/equipment-service/internal/api/http/handlers"
	"github.com/spec-kit/equipment-service/internal/auth"
	"github.com/spec-kit/equipment-service/internal/config"
	"github.com/spec-kit/equipment-service/internal/events"
	"github.com/spec-kit/equipment-service/internal/observability"
	"github.com/spec-kit/equipment-service/internal/persistence"
	"github.com/spec-kit/equipment-service/internal/repository"
	"github.com/spec-kit/equipment-service/internal/repository/memory"
	"github.com/spec-kit/equipment-service/internal/service"
	"github.com/spec-kit/equipment-service/internal/worker"
)

// stores groups the repositories backing the services, whichever engine provides them.
type stores struct {
	organizations repository.OrganizationRepository
	associations  repository.PartnerAssociationRepository
	engineers     repository.EngineerRepository
	equipment     repository.EquipmentRepository
	graph         repository.GraphReader
	tickets       repository.TicketRepository
	assignments   repository.AssignmentRepository
	history       repository.TicketHistoryRepository
	locker        repository.TicketLocker
}

func main() {
	envFiles := pflag.StringSlice("env-file", nil, "dotenv files to load before reading the environment")
	seedFile := pflag.String("seed", "", "YAML organization graph loaded when no database is configured")
	pflag.Parse()

	cfg, err := config.Load(*envFiles...)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *seedFile != "" {
		cfg.Seed.File = *seedFile
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var repos stores
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		repos = postgresStores(pg, cfg.Workflow)
	} else {
		repos, err = memoryStores(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("failed to prepare in-memory store", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var sinks []events.Sink
	if redis != nil {
		sinks = append(sinks, events.NewRedisSink(redis.Client, cfg.Notification.RedisChannel))
	}
	if cfg.Notification.WebhookURL != "" {
		sinks = append(sinks, events.NewWebhookSink(cfg.Notification.WebhookURL, cfg.Notification.WebhookTimeout()))
	}
	dispatcher := events.NewAsyncDispatcher(events.NewInMemoryDispatcher(logger), cfg.Notification.QueueSize, logger)
	notificationService := service.NewNotificationService(dispatcher, logger, sinks...)
	stopWorker := worker.StartNotificationWorker(notificationService, dispatcher)
	defer stopWorker()

	graphService := service.NewGraphService(service.GraphDependencies{
		OrganizationRepo: repos.organizations,
		AssociationRepo:  repos.associations,
		EngineerRepo:     repos.engineers,
		EquipmentRepo:    repos.equipment,
		GraphReader:      repos.graph,
		SnapshotTimeout:  cfg.Workflow.SnapshotTimeout(),
		Logger:           logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    repos.tickets,
		EquipmentRepo: repos.equipment,
		HistoryRepo:   repos.history,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	workflowService := service.NewWorkflowService(service.WorkflowDependencies{
		TicketRepo:    repos.tickets,
		EquipmentRepo: repos.equipment,
		EngineerRepo:  repos.engineers,
		Locker:        repos.locker,
		Graph:         graphService,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	picker, err := service.NewPicker(cfg.Workflow.AutoAssignPolicy, repos.assignments)
	if err != nil {
		logger.Fatal("invalid auto-assign policy", zap.Error(err))
	}
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		Workflow:             workflowService,
		AssignmentRepo:       repos.assignments,
		Picker:               picker,
		AutoAssignMaxRetries: cfg.Workflow.AutoAssignMaxRetries,
		Logger:               logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, cfg.Auth.Issuer)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Tickets:        handlers.NewTicketsHandler(ticketService, workflowService),
		Assignments:    handlers.NewAssignmentsHandler(assignmentService),
		Organizations:  handlers.NewOrganizationsHandler(graphService),
		Equipment:      handlers.NewEquipmentHandler(graphService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.Bool("postgres", pg.Enabled()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func postgresStores(pg *persistence.Postgres, wf config.WorkflowConfig) stores {
	pool := pg.PoolHandle()
	return stores{
		organizations: repository.NewOrganizationRepository(pool),
		associations:  repository.NewPartnerAssociationRepository(pool),
		engineers:     repository.NewEngineerRepository(pool),
		equipment:     repository.NewEquipmentRepository(pool),
		graph:         repository.NewGraphRepository(pool),
		tickets:       repository.NewTicketRepository(pool),
		assignments:   repository.NewAssignmentRepository(pool),
		history:       repository.NewTicketHistoryRepository(pool),
		locker:        repository.NewTicketLocker(pool, wf.LockTimeout()),
	}
}

func memoryStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (stores, error) {
	store := memory.New(memory.WithLockTimeout(cfg.Workflow.LockTimeout()))
	if cfg.Seed.File != "" {
		seed, err := memory.LoadSeedFile(cfg.Seed.File)
		if err != nil {
			return stores{}, err
		}
		if err := store.Apply(ctx, seed); err != nil {
			return stores{}, err
		}
		logger.Info("loaded organization graph seed",
			zap.String("file", cfg.Seed.File),
			zap.Int("organizations", len(seed.Organizations)),
			zap.Int("engineers", len(seed.Engineers)))
	}
	return stores{
		organizations: store.Organizations(),
		associations:  store.Associations(),
		engineers:     store.Engineers(),
		equipment:     store.Equipment(),
		graph:         store.Graph(),
		tickets:       store.Tickets(),
		assignments:   store.Assignments(),
		history:       store.History(),
		locker:        store.Locker(),
	}, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
