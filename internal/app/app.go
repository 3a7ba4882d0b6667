package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"excel_interview_backend/internal/config"
	"excel_interview_backend/internal/controller"
	"excel_interview_backend/internal/repository"
	"excel_interview_backend/internal/service"
	"excel_interview_backend/pkg/configwatcher"
	"excel_interview_backend/pkg/database"
	"excel_interview_backend/pkg/logger"
	"excel_interview_backend/pkg/monitoring"
	"excel_interview_backend/pkg/security"
	"excel_interview_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
}

type repositories struct {
	question *repository.QuestionRepository
	session  *repository.SessionRepository
	answer   *repository.AnswerRepository
}

type services struct {
	storage   service.StorageProvider
	ai        *service.AIService
	speech    *service.SpeechService
	eval      *service.EvaluationService
	selector  *service.SelectorService
	report    *service.ReportService
	interview *service.InterviewService
	question  *service.QuestionService
}

type controllers struct {
	session  *controller.SessionController
	question *controller.QuestionController
	health   *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		question: repository.NewQuestionRepository(db),
		session:  repository.NewSessionRepository(db),
		answer:   repository.NewAnswerRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	storage, err := service.NewStorageService(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	s.storage = storage

	s.ai = service.NewAIService(cfg.AI)
	s.speech = service.NewSpeechService(cfg.AI, cfg.Speech, s.storage, rdb)
	s.eval = service.NewEvaluationService(s.ai, s.speech, cfg.Interview)
	s.selector = service.NewSelectorService(repos.question, cfg.Interview)
	s.report = service.NewReportService(cfg.Interview)

	renderer := &service.JSONReportRenderer{Storage: s.storage}
	s.interview = service.NewInterviewService(
		repos.session,
		repos.answer,
		repos.question,
		s.selector,
		s.eval,
		s.report,
		renderer,
		s.speech,
		rdb,
		cfg.Interview,
	)
	s.question = service.NewQuestionService(repos.question, s.ai)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		session:  controller.NewSessionController(s.interview),
		question: controller.NewQuestionController(s.question),
		health:   controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests,
		time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// watchTuning propagates hot-reloaded interview tuning to the services that
// keep a copy of it.
func (a *App) watchTuning() {
	go configwatcher.WatchConfig("configs/config.yaml", func(cfg *config.Config) {
		a.services.eval.ReloadTuning(cfg.Interview)
		a.services.selector.ReloadTuning(cfg.Interview)
		a.services.report.ReloadTuning(cfg.Interview)
		a.services.interview.ReloadTuning(cfg.Interview)
		logger.Log.Info("interview tuning reloaded")
	})
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg.Server.Mode)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("interview-platform", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers)

	// TTS audio and rendered reports are served from local storage.
	if cfg.Storage.Type == "local" {
		router.Static("/static", cfg.Storage.LocalPath)
	}

	app.watchTuning()

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
