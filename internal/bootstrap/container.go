package bootstrap

import (
	"context"
	"log"

	"monitoring-workspace-be/internal/config"
	"monitoring-workspace-be/internal/controller"
	"monitoring-workspace-be/internal/handler"
	"monitoring-workspace-be/internal/pkg/logger"
	"monitoring-workspace-be/internal/service"
	"monitoring-workspace-be/internal/websocket"
	"monitoring-workspace-be/pkg/backend"
	pktNats "monitoring-workspace-be/pkg/nats"
	"monitoring-workspace-be/pkg/storage"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController      controller.IAuthController
	WorkspaceController controller.IWorkspaceController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	SweeperService  service.ISweeperService
	ClusterSync     *service.ClusterSyncService
	ActivityLog     *service.ActivityLogService

	// WebSockets
	WorkspaceSocketHandler *handler.WorkspaceSocketHandler
	WebSocketHub           *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires the application. db may be nil unless the postgres
// storage driver is selected.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure
	rdb := newRedisClient(cfg)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		c.closers = append(c.closers, natsSub.Close)
	}

	store := newStore(cfg, db, rdb)

	// WebSocket Hub
	eventLogger := logger.NewIsolatedLogger(cfg.App.EventLogFilePath)
	wsHub := websocket.NewHub(rdb, cfg.App.InstanceID, eventLogger)
	c.WebSocketHub = wsHub

	// 4. Services
	backendClient := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	siteService := service.NewSiteService(backendClient)
	authService := service.NewAuthService(backendClient, sysLogger)
	publisherService := service.NewPublisherService(cfg.Workspace.ChangeTopicName, pubSub)

	workspaceService := service.NewWorkspaceService(service.WorkspaceServiceConfig{
		StoreName:      cfg.Workspace.StoreName,
		MaxEntryAge:    cfg.Workspace.MaxEntryAge,
		SiteStaleAfter: cfg.Workspace.SiteStaleAfter,
		SessionTTL:     cfg.Workspace.SessionIdleTTL,
	}, store, siteService, publisherService, sysLogger)

	var eventPublisher service.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		cfg.Workspace.ChangeTopicName,
		wsHub,
		eventPublisher,
		cfg.App.InstanceID,
		eventLogger,
	)
	c.SweeperService = service.NewSweeperService(workspaceService, cfg.Workspace.SweepInterval, sysLogger)
	if natsSub != nil {
		c.ClusterSync = service.NewClusterSyncService(natsSub, workspaceService, cfg.App.InstanceID, eventLogger)
		c.ActivityLog = service.NewActivityLogService(natsSub, eventLogger)
	}

	// 5. Controllers
	c.AuthController = controller.NewAuthController(authService)
	c.WorkspaceController = controller.NewWorkspaceController(workspaceService, cfg.Auth.JWTSecret)
	c.WorkspaceSocketHandler = handler.NewWorkspaceSocketHandler(wsHub, cfg.Auth.JWTSecret, eventLogger)

	return c
}

// Close releases broker and cache connections.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func newRedisClient(cfg *config.Config) *redis.Client {
	if cfg.App.RedisURL == "" {
		return nil
	}
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	return rdb
}

func newStore(cfg *config.Config, db *gorm.DB, rdb *redis.Client) storage.Store {
	switch cfg.Workspace.StorageDriver {
	case "redis":
		if rdb == nil {
			log.Fatalf("[FATAL] WORKSPACE_STORAGE=redis requires REDIS_URL")
		}
		log.Printf("[INFO] Using workspace storage: REDIS")
		return storage.NewRedisStore(rdb, "", 0)
	case "postgres":
		if db == nil {
			log.Fatalf("[FATAL] WORKSPACE_STORAGE=postgres requires DB_CONNECTION_STRING")
		}
		log.Printf("[INFO] Using workspace storage: POSTGRES")
		return storage.NewGormStore(db)
	default:
		log.Printf("[INFO] Using workspace storage: MEMORY")
		return storage.NewMemoryStore()
	}
}
