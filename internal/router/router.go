package router

import (
	"time"

	"clinicash/internal/config"
	"clinicash/internal/handler"
	"clinicash/internal/infra"
	"clinicash/internal/middleware"
	"clinicash/internal/repository"
	"clinicash/internal/service"
	"clinicash/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dispatcher *worker.Dispatcher, smtpCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.Metrics())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	clinicRepo := repository.NewClinicRepository(db)
	sessionRepo := repository.NewCashSessionRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	debtRepo := repository.NewDebtLedgerRepository(db)
	changeLogRepo := repository.NewChangeLogRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	sessionSvc := service.NewCashSessionService(sessionRepo, ticketRepo, debtRepo, changeLogRepo, clinicRepo, userRepo, dispatcher)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(authSvc)
	sessionsH := handler.NewCashSessionHandler(sessionSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, smtpCB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		anyStaff := middleware.RequireRole("cashier", "supervisor", "admin")
		supervision := middleware.RequireRole("supervisor", "admin")

		sessions := v1.Group("/cash-sessions")
		{
			sessions.POST("", anyStaff, sessionsH.Open)
			sessions.GET("", anyStaff, sessionsH.List)
			sessions.GET("/active", anyStaff, sessionsH.GetActive)
			sessions.GET("/count-open", anyStaff, sessionsH.CountOpen)
			sessions.GET("/:id", anyStaff, sessionsH.GetDetail)
			sessions.POST("/:id/close", anyStaff, sessionsH.Close)
			// Reconciliation and reopening are supervisory corrections.
			sessions.POST("/:id/reconcile", supervision, sessionsH.Reconcile)
			sessions.POST("/:id/reopen", supervision, sessionsH.Reopen)
		}

		users := v1.Group("/users", middleware.RequireRole("admin"))
		{
			users.POST("", usersH.Create)
			users.GET("", usersH.List)
			users.PUT("/:id", usersH.Update)
			users.DELETE("/:id", usersH.Deactivate)
			users.PATCH("/:id/reactivate", usersH.Reactivate)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
