package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz_bank_backend/internal/ai"
	"quiz_bank_backend/internal/config"
	"quiz_bank_backend/internal/controller"
	"quiz_bank_backend/internal/repository"
	"quiz_bank_backend/internal/service"
	"quiz_bank_backend/pkg/configwatcher"
	"quiz_bank_backend/pkg/database"
	"quiz_bank_backend/pkg/events"
	"quiz_bank_backend/pkg/logger"
	"quiz_bank_backend/pkg/monitoring"
	"quiz_bank_backend/pkg/security"
	"quiz_bank_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	Services *Services

	ctx             context.Context
	cancel          context.CancelFunc
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	question   *repository.QuestionRepository
	progress   *repository.ProgressRepository
	wrong      *repository.WrongAnswerRepository
	favorite   *repository.FavoriteRepository
	history    *repository.HistoryRepository
	note       *repository.NoteRepository
	folder     *repository.FolderRepository
	preference *repository.PreferenceRepository
}

// Services HTTP 服务和命令行工具共用
type Services struct {
	Auth        *service.AuthService
	Storage     *service.StorageService
	Question    *service.QuestionService
	Import      *service.ImportService
	Export      *service.ExportService
	Progress    *service.ProgressService
	Scoring     *service.ScoringService
	Session     *service.SessionService
	Library     *service.LibraryService
	Preference  *service.PreferenceService
	Explanation *service.ExplanationService
	Registry    *ai.Registry
	Events      events.Publisher
}

type controllers struct {
	auth        *controller.AuthController
	health      *controller.HealthController
	question    *controller.QuestionController
	imports     *controller.ImportController
	session     *controller.SessionController
	library     *controller.LibraryController
	explanation *controller.ExplanationController
	preference  *controller.PreferenceController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		question:   repository.NewQuestionRepository(db),
		progress:   repository.NewProgressRepository(db),
		wrong:      repository.NewWrongAnswerRepository(db),
		favorite:   repository.NewFavoriteRepository(db),
		history:    repository.NewHistoryRepository(db),
		note:       repository.NewNoteRepository(db),
		folder:     repository.NewFolderRepository(db),
		preference: repository.NewPreferenceRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client, publisher events.Publisher) *Services {
	s := &Services{Events: publisher}

	s.Auth = service.NewAuthService(cfg)
	s.Storage = service.NewStorageService(&cfg.Storage)
	s.Question = service.NewQuestionService(repos.question)
	s.Import = service.NewImportService(
		repos.question,
		repos.folder,
		repos.favorite,
		repos.wrong,
		repos.note,
		s.Storage,
		publisher,
		cfg.Import.ArchiveFiles,
	)
	s.Export = service.NewExportService(repos.wrong, repos.favorite, repos.note, s.Storage)
	s.Progress = service.NewProgressService(repos.progress, service.NewProgressHub())
	s.Scoring = service.NewScoringService(repos.history, repos.wrong)
	s.Preference = service.NewPreferenceService(repos.preference)
	s.Session = service.NewSessionService(
		repos.question,
		repos.favorite,
		repos.wrong,
		s.Progress,
		s.Scoring,
		s.Preference,
		publisher,
	)
	s.Library = service.NewLibraryService(
		repos.question,
		repos.wrong,
		repos.favorite,
		repos.history,
		repos.note,
		repos.folder,
	)
	s.Registry = ai.NewRegistry(cfg.AI)
	s.Explanation = service.NewExplanationService(
		repos.question,
		repos.note,
		s.Registry,
		service.NewExplanationCache(cfg.AI.Cache, rdb),
	)
	return s
}

func (a *App) initControllers(s *Services, db *gorm.DB) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.Auth),
		health:      controller.NewHealthController(db, a.Redis),
		question:    controller.NewQuestionController(s.Question),
		imports:     controller.NewImportController(s.Import, s.Export, &a.Config.Import),
		session:     controller.NewSessionController(s.Session, s.Progress),
		library:     controller.NewLibraryController(s.Library),
		explanation: controller.NewExplanationController(s.Explanation),
		preference:  controller.NewPreferenceController(s.Preference),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// NewCore 打开数据库、Redis 和事件发布器并组装服务，不创建 HTTP 路由
func NewCore(cfg *config.Config) (*App, error) {
	db, err := database.InitDB(&cfg.Database, shouldMigrate(cfg))
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	// Redis 只用于 AI 解析缓存，未配置时跳过
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			if cfg.AI.Cache.Type == "redis" {
				return nil, fmt.Errorf("initialize redis: %w", err)
			}
			logger.Log.Warn("Redis unavailable, continuing without it", zap.Error(err))
		}
	}

	publisher, err := events.New(cfg.Events)
	if err != nil {
		// 事件只是通知，连接失败不影响主流程
		logger.Log.Warn("Failed to connect event broker, events disabled", zap.Error(err))
		publisher = events.Noop{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		ctx:    ctx,
		cancel: cancel,
	}

	repos := app.initRepositories(db)
	app.Services = app.initServices(repos, cfg, rdb, publisher)

	if err := app.Services.Preference.Open(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	return app, nil
}

// shouldMigrate 嵌入式数据库和 debug 模式每次启动都迁移，release 模式的 MySQL 需要 -migrate
func shouldMigrate(cfg *config.Config) bool {
	if cfg.ForceMigrate {
		return true
	}
	return cfg.Database.Driver != database.DriverMySQL || cfg.Server.Mode != gin.ReleaseMode
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	app, err := NewCore(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize application", zap.Error(err))
	}
	if cfg.MigrateOnly {
		return app
	}

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("quiz-bank", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	app.setupRouter()

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		app.Services.Registry.Reload(newCfg.AI)
	})
	app.watchConfig()

	return app
}

// setupRouter 创建 gin 引擎并注册中间件和路由
func (a *App) setupRouter() {
	controllers := a.initControllers(a.Services, a.DB)

	router := gin.Default()
	a.Router = router

	a.setupMiddlewares(router, a.Config)
	a.registerRoutes(router, controllers, a.Config)

	if a.Config.Storage.Type == "local" {
		router.Static("/uploads", a.Config.Storage.LocalPath)
	}
}

// watchConfig 配置文件变化时通知回调，目前只热更新 AI 服务商
func (a *App) watchConfig() {
	if a.Config.ConfigFile == "" {
		return
	}
	err := configwatcher.WatchConfig(a.ctx, a.Config.ConfigFile, func(newCfg *config.Config) {
		for _, cb := range a.configCallbacks {
			cb(newCfg)
		}
	})
	if err != nil {
		logger.Log.Warn("Config hot reload disabled", zap.Error(err))
	}
}

// Close 释放后台资源，偏好设置中写库失败的键在这里重试
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.Services != nil {
		if err := a.Services.Preference.Close(ctx); err != nil {
			logger.Log.Error("Flush preferences on shutdown failed", zap.Error(err))
		}
		if err := a.Services.Events.Close(); err != nil {
			logger.Log.Warn("Close event publisher failed", zap.Error(err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	a.cancel()
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.Close()

	logger.Log.Info("Server exiting")
}
