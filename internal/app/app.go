package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"studyplan_backend/internal/config"
	"studyplan_backend/internal/controller"
	"studyplan_backend/internal/repository"
	"studyplan_backend/internal/service"
	"studyplan_backend/pkg/configwatcher"
	"studyplan_backend/pkg/database"
	"studyplan_backend/pkg/lease"
	"studyplan_backend/pkg/logger"
	"studyplan_backend/pkg/monitoring"
	"studyplan_backend/pkg/security"
	"studyplan_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// configDir 配置文件所在目录，热更新监听同一目录
const configDir = "configs"

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
	cancel          context.CancelFunc
}

type repositories struct {
	ledger   *repository.LedgerRepository
	plan     *repository.PlanRepository
	reminder *repository.ReminderRepository
}

type services struct {
	settings   *service.SettingsStore
	heatmap    *service.HeatmapService
	progress   *service.ProgressService
	prediction *service.PredictionService
	plan       *service.PlanService
	ledger     *service.LedgerService
	reminder   *service.ReminderService
}

type controllers struct {
	plan      *controller.PlanController
	analytics *controller.AnalyticsController
	ledger    *controller.LedgerController
	reminder  *controller.ReminderController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		ledger:   repository.NewLedgerRepository(db),
		plan:     repository.NewPlanRepository(db),
		reminder: repository.NewReminderRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.settings = service.NewSettingsStore(cfg.Engine)
	s.heatmap = service.NewHeatmapService(repos.ledger, s.settings)
	s.progress = service.NewProgressService(repos.ledger, s.settings)
	s.prediction = service.NewPredictionService(s.heatmap, s.progress, repos.plan, s.settings)

	var locker lease.Locker
	if rdb != nil {
		locker = lease.NewRedisLocker(rdb)
	} else {
		locker = lease.NewMemoryLocker()
	}
	archive := service.NewArchiveService(service.NewStorageProvider(&cfg.Storage))
	s.plan = service.NewPlanService(repos.plan, s.heatmap, s.progress, locker, archive, s.settings, cfg.Lease)

	// 学习记录写入后：预测缓存失效，必要时自动调整计划
	s.ledger = service.NewLedgerService(repos.ledger, s.prediction, s.plan)

	s.reminder = service.NewReminderService(
		repos.plan,
		repos.ledger,
		repos.reminder,
		service.NewRedisStreamPublisher(rdb, cfg.Reminder.Stream),
		cfg.Reminder,
	)

	// 引擎参数热更新
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		if err := newCfg.Engine.Validate(); err != nil {
			logger.Log.Error("ignore invalid engine config", zap.Error(err))
			return
		}
		s.settings.Set(newCfg.Engine)
	})

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		plan:      controller.NewPlanController(s.plan),
		analytics: controller.NewAnalyticsController(s.progress, s.heatmap, s.prediction, s.settings),
		ledger:    controller.NewLedgerController(s.ledger, s.settings),
		reminder:  controller.NewReminderController(s.reminder),
		health:    controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(ctx context.Context, s *services, cfg *config.Config) {
	if cfg.Reminder.Enabled && cfg.Reminder.SweepInterval > 0 {
		go s.reminder.Run(ctx)
		logger.Log.Info("reminder sweep started", zap.Duration("interval", cfg.Reminder.SweepInterval))
	}

	watcher := configwatcher.New(configDir, func(newCfg *config.Config) {
		for _, cb := range a.configCallbacks {
			cb(newCfg)
		}
	})
	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Log.Error("config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	if err := logger.InitLogger(cfg); err != nil {
		log.Fatalf("init logger: %v", err)
	}

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.ForceMigrate || cfg.Server.Mode != "release" {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("studyplan-engine", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.startBackgroundTasks(ctx, services, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// 停止提醒扫描与配置监听
	if a.cancel != nil {
		a.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}
