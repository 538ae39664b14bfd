package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/presence-app/presence/internal/ai"
	"github.com/presence-app/presence/internal/auth"
	"github.com/presence-app/presence/internal/cache"
	"github.com/presence-app/presence/internal/config"
	"github.com/presence-app/presence/internal/database"
	"github.com/presence-app/presence/internal/logging"
	"github.com/presence-app/presence/internal/meditation"
	"github.com/presence-app/presence/internal/metrics"
	"github.com/presence-app/presence/internal/middleware"
	"github.com/presence-app/presence/internal/queue"
	"github.com/presence-app/presence/internal/tracing"
	"github.com/presence-app/presence/pkg/models"
)

// Service seams so handlers can be exercised against fakes in tests.
type authService interface {
	Register(ctx context.Context, email, pseudo, password string) (*auth.RegisterResult, error)
	Login(ctx context.Context, email, password string) (*models.User, auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	VerifyEmail(ctx context.Context, token string) (*models.User, error)
	Profile(ctx context.Context, userID string) (*models.User, error)
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type meditationService interface {
	Get(ctx context.Context, quoteID string, identity models.Identity) (*models.MeditationResult, error)
	Generate(ctx context.Context, quoteID string, identity models.Identity) (*models.MeditationResult, error)
	Limits(ctx context.Context, identity models.Identity) (*models.LimitStatus, error)
}

type quoteRepository interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	CreateQuote(ctx context.Context, quote *models.Quote) error
	GetQuote(ctx context.Context, id string) (*models.Quote, error)
	GetRandomPublicQuote(ctx context.Context) (*models.Quote, error)
	ListQuotesByAuthorPseudo(ctx context.Context, pseudo string) ([]*models.Quote, error)
	ListQuotesByOwner(ctx context.Context, userID string) ([]*models.Quote, error)
	UpdateQuote(ctx context.Context, id, ownerID, text, author string) (*models.Quote, error)
	DeleteQuote(ctx context.Context, id, ownerID string) error
	Health(ctx context.Context) error
}

type quoteCache interface {
	GetQuote(ctx context.Context, quoteID string) (*models.Quote, error)
	SetQuote(ctx context.Context, quote *models.Quote, ttl time.Duration) error
	DeleteQuote(ctx context.Context, quoteID string) error
}

type emailQueue interface {
	PublishEmail(ctx context.Context, job *queue.EmailJob) error
}

type API struct {
	cfg         *config.Config
	log         *logging.Logger
	repo        quoteRepository
	cache       quoteCache
	queue       emailQueue
	auth        authService
	meditations meditationService
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.NewLogger(logging.Config{Level: "info", Format: "json", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	tracerCloser, err := tracing.Init(cfg.Tracing)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer tracerCloser.Close()

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	repo := database.NewRepository(db)

	redisCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisCache.Close()

	q, err := queue.New(cfg.Queue)
	if err != nil {
		log.Fatalf("failed to connect to queue: %v", err)
	}
	defer q.Close()

	aiClient, err := ai.NewClient(cfg.Meditation, cfg.Server.AppURL)
	if err != nil {
		log.Fatalf("failed to init meditation client: %v", err)
	}

	authSvc := auth.NewService(repo, cfg.Auth)
	medSvc := meditation.NewService(repo, aiClient, redisCache, cfg.Meditation, log)

	api := &API{
		cfg:         cfg,
		log:         log,
		repo:        repo,
		cache:       redisCache,
		queue:       q,
		auth:        authSvc,
		meditations: medSvc,
	}

	var metricsSrv *metrics.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metrics.NewServer(cfg.Metrics.Port)
		go func() {
			log.Infof("metrics server listening on :%d", cfg.Metrics.Port)
			if err := metricsSrv.Start(); err != nil && err != http.ErrServerClosed {
				log.Errorf("metrics server error: %v", err)
			}
		}()
	}

	router := setupRouter(api, redisCache)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Infof("api server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			log.Errorf("metrics server shutdown: %v", err)
		}
	}

	log.Info("server stopped")
}

func setupRouter(api *API, counter middleware.WindowCounter) *gin.Engine {
	switch api.cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(api.log))
	router.Use(middleware.Metrics())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     api.cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	global := middleware.NewRateLimiter(api.cfg.RateLimit.GlobalRPS, api.cfg.RateLimit.GlobalBurst)
	router.Use(middleware.RateLimit(global))

	router.GET("/health", api.healthCheck)

	authLimit := middleware.FixedWindowLimit(counter, "auth",
		int64(api.cfg.RateLimit.AuthMax), api.cfg.RateLimit.AuthWindow,
		"Trop de tentatives de connexion. Compte temporairement bloqué pendant 15 minutes pour des raisons de sécurité.")
	createLimit := middleware.FixedWindowLimit(counter, "create",
		int64(api.cfg.RateLimit.CreateMax), api.cfg.RateLimit.CreateWindow,
		"Trop de créations, réessayez dans 1 heure")

	apiGroup := router.Group("/api")
	{
		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register", authLimit, api.register)
			authGroup.POST("/login", authLimit, api.login)
			authGroup.POST("/refresh", api.refresh)
			authGroup.POST("/logout", api.logout)
			authGroup.GET("/me", middleware.OptionalCookieAuth(api.auth), api.me)
			authGroup.GET("/verify-email/:token", api.verifyEmail)
		}

		quotes := apiGroup.Group("/quotes")
		{
			quotes.GET("/random", api.getRandomQuote)
			quotes.GET("/author/:pseudo", api.getQuotesByAuthor)
			quotes.POST("", middleware.CookieAuth(api.auth), createLimit, api.createQuote)
			quotes.GET("/my-quotes", middleware.CookieAuth(api.auth), api.getMyQuotes)
			quotes.PUT("/:id", middleware.CookieAuth(api.auth), api.updateQuote)
			quotes.DELETE("/:id", middleware.CookieAuth(api.auth), api.deleteQuote)
		}

		meditations := apiGroup.Group("/meditations", middleware.OptionalCookieAuth(api.auth))
		{
			meditations.GET("/user/limits", api.getMeditationLimits)
			meditations.GET("/:quoteId", api.getMeditation)
			meditations.POST("/:quoteId/generate", api.generateMeditation)
		}
	}

	return router
}

func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.repo.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
