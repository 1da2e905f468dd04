package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"room-designer/internal/catalog"
	httpHandler "room-designer/internal/handler/http"
	wsHandler "room-designer/internal/handler/websocket"
	"room-designer/internal/hub"
	gormpersistence "room-designer/internal/infra/persistence/gorm"
	"room-designer/internal/infra/setup"
	redisstate "room-designer/internal/infra/state/redis"
	"room-designer/internal/persist"
	"room-designer/internal/service"
	"room-designer/internal/tasks"
	"room-designer/internal/worker"
)

// evictInterval is how often idle design sessions are dropped from memory.
const evictInterval = time.Minute

// App holds every long-lived component of the server.
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	AsynqServer *worker.WorkerServer
	Designer    *service.DesignerService
	Hub         *hub.Hub
	HttpServer  *http.Server

	changeFeed     *redisstate.ChangeFeed
	scheduler      *asynq.Scheduler
	redisClientOpt asynq.RedisClientOpt
	cancel         context.CancelFunc
}

// NewLogger builds the logger: JSON in production, colored text otherwise.
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
	// components log through the standard logger
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(level)
	return log
}

// NewApp creates and wires every component.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	log := NewLogger(cfg)
	log.Infof("Logger initialized (Level: %s, Format: %T)", log.GetLevel().String(), log.Formatter)

	log.Info("Initializing infrastructure...")
	db, err := setup.InitDB(cfg.DB())
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database initialized and migrated")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	log.Info("Redis client initialized")

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)

	// repositories
	userRepo := gormpersistence.NewGormUserRepository(db)
	archiveRepo := gormpersistence.NewGormStateArchiveRepository(db)
	stateRepo := redisstate.NewRedisStateRepository(redisClient, cfg.KeyPrefix, cfg.StateTTL)
	changeFeed := redisstate.NewChangeFeed(redisClient, cfg.KeyPrefix)
	persister := persist.NewAdapter(stateRepo, archiveRepo)

	// services
	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours, cfg.Admins()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}
	cat := catalog.Default()
	resolver := catalog.NewResolver(cat, catalog.DirAssets{Root: cfg.AssetsDir})
	designer := service.NewDesignerService(persister, cat, resolver, asynqClient, changeFeed)

	hubInstance := hub.NewHub(designer)
	designer.SetNotifier(hubInstance)

	workerServer := worker.NewWorkerServer(redisClientOpt, persister, stateRepo, log)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := NewRouter(cfg, log, Handlers{
		Auth:     httpHandler.NewAuthHandler(authService),
		Designer: httpHandler.NewDesignerHandler(designer),
		WS:       wsHandler.NewWebSocketHandler(hubInstance, designer, cfg.CORSAllowedOrigin),
		Limiter:  stateRepo,
	})

	app := &App{
		Config:      cfg,
		Log:         log,
		DB:          db,
		RedisClient: redisClient,
		AsynqClient: asynqClient,
		AsynqServer: workerServer,
		Designer:    designer,
		Hub:         hubInstance,
		HttpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		changeFeed:     changeFeed,
		redisClientOpt: redisClientOpt,
	}
	log.Info("Application assembled successfully")
	return app, nil
}

// Start launches the background routines and the HTTP server.
func (a *App) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go a.Hub.Run()
	go a.AsynqServer.Start()
	a.registerPeriodicTasks()

	go func() {
		if err := a.Hub.WatchChanges(ctx, a.changeFeed); err != nil && !errors.Is(err, context.Canceled) {
			a.Log.WithError(err).Error("Change feed subscription stopped")
		}
	}()
	go a.evictIdleSessions(ctx)

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

func (a *App) registerPeriodicTasks() {
	a.scheduler = asynq.NewScheduler(a.redisClientOpt, &asynq.SchedulerOpts{Location: time.UTC})

	schedule := a.Config.ArchiveSchedule
	entryID, err := a.scheduler.Register(schedule, tasks.NewStateArchiveSweepTask(), asynq.Queue("default"))
	if err != nil {
		a.Log.Errorf("Could not register periodic archive sweep: %v", err)
		return
	}
	a.Log.Infof("Periodic archive sweep registered with schedule '%s' (EntryID: %s)", schedule, entryID)

	go func() {
		if err := a.scheduler.Run(); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			a.Log.Errorf("Asynq scheduler Run() failed: %v", err)
		}
	}()
}

func (a *App) evictIdleSessions(ctx context.Context) {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Designer.EvictIdle(a.Config.SessionIdleTimeout); n > 0 {
				a.Log.WithField("evicted", n).Debug("Idle design sessions evicted")
			}
		}
	}
}

// Shutdown stops everything, the HTTP server within 10 seconds.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")
	if a.cancel != nil {
		a.cancel()
	}
	if a.scheduler != nil {
		a.scheduler.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	a.Hub.Stop()
	a.AsynqServer.Shutdown()

	if err := a.AsynqClient.Close(); err != nil {
		a.Log.Errorf("Error closing Asynq client: %v", err)
	}
	if err := a.RedisClient.Close(); err != nil {
		a.Log.Errorf("Error closing Redis connection: %v", err)
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.Log.Errorf("Error closing database connection: %v", err)
		}
	}
	a.Log.Info("Application shutdown complete.")
}
