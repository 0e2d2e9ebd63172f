package main

import (
	"os"
	"time"

	_ "buildfund/api/swagger" // swagger docs
	"buildfund/internal/database"
	"buildfund/internal/handler"
	"buildfund/internal/logger"
	"buildfund/internal/metrics"
	"buildfund/internal/middleware"
	"buildfund/internal/repository"
	"buildfund/internal/service"
	"buildfund/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// @title           BuildFund Marketplace API
// @version         1.0
// @description     Lending marketplace connecting property developers with development finance lenders.
// @host            localhost:8080
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		// Environment variables may come from the process environment instead.
	}

	log := logger.New(envOr("LOG_LEVEL", "info"), envOr("LOG_FORMAT", "console"))
	defer log.Sync()

	dsn := "postgres://" + envOr("DB_USER", "postgres") +
		":" + envOr("DB_PASSWORD", "postgres") +
		"@" + envOr("DB_HOST", "localhost") +
		":" + envOr("DB_PORT", "5432") +
		"/" + envOr("DB_NAME", "buildfund") +
		"?sslmode=" + envOr("DB_SSLMODE", "disable")

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	log.Info("connected to PostgreSQL")

	// Optional Redis for rate limiting; the API runs without it.
	var redisClient *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		log.Info("rate limiting enabled", zap.String("redis_addr", addr))
	}

	documentSecret := envOr("DOCUMENT_SECRET", "dev-document-secret")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txm := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	productRepo := repository.NewProductRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	infoRequestRepo := repository.NewInformationRequestRepository(db)
	dealRepo := repository.NewDealRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	projector := service.NewFullProjector(applicationRepo, dealRepo)

	userService := service.NewUserService(userRepo, txm, log)
	projectService := service.NewProjectService(projectRepo, userRepo, auditRepo, txm, log)
	productService := service.NewProductService(productRepo, userRepo, auditRepo, txm, log)
	applicationService := service.NewApplicationService(
		applicationRepo, projectRepo, productRepo, userRepo, dealRepo,
		auditRepo, txm, projector, wsHub, log)
	infoRequestService := service.NewInformationRequestService(
		infoRequestRepo, applicationRepo, projectRepo, userRepo, documentRepo,
		auditRepo, txm, wsHub, service.ParsePolicyPermissive, log)
	dealService := service.NewDealService(dealRepo, applicationRepo, userRepo, auditRepo, txm, wsHub, log)
	documentService := service.NewDocumentService(documentRepo, auditRepo, txm, documentSecret, log)
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(statsRepo, applicationRepo)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	projectHandler := handler.NewProjectHandler(projectService)
	productHandler := handler.NewProductHandler(productService)
	applicationHandler := handler.NewApplicationHandler(applicationService)
	infoRequestHandler := handler.NewInformationRequestHandler(infoRequestService)
	dealHandler := handler.NewDealHandler(dealService)
	documentHandler := handler.NewDocumentHandler(documentService)
	auditHandler := handler.NewAuditHandler(auditService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)

	// Set up Gin Router
	router := gin.New()
	router.Use(logger.RequestLogger(log))
	router.Use(logger.Recovery(log))
	router.Use(metrics.RequestDuration())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	api := router.Group("/api")
	api.Use(middleware.RateLimit(redisClient, 120, time.Minute))

	userHandler.RegisterRoutes(api)
	projectHandler.RegisterRoutes(api)
	productHandler.RegisterRoutes(api)
	applicationHandler.RegisterRoutes(api)
	infoRequestHandler.RegisterRoutes(api)
	dealHandler.RegisterRoutes(api)
	documentHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)
	statisticsHandler.RegisterRoutes(api)

	port := envOr("PORT", "8080")
	log.Info("server listening", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}
