package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/arbitration-backend/internal/config"
	"github.com/ignatzorin/arbitration-backend/internal/http/handlers"
	"github.com/ignatzorin/arbitration-backend/internal/http/middleware"
	"github.com/ignatzorin/arbitration-backend/internal/models"
	"github.com/ignatzorin/arbitration-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	projectHandler *handlers.ProjectHandler,
	disputeHandler *handlers.DisputeHandler,
	jurorHandler *handlers.JurorHandler,
	balanceHandler *handlers.BalanceHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/auth/me", authHandler.Me)

		protected.GET("/balance", balanceHandler.GetBalance)
		protected.POST("/balance/deposit", balanceHandler.Deposit)
		protected.GET("/balance/transactions", balanceHandler.ListTransactions)

		protected.POST("/projects", projectHandler.Create)
		protected.GET("/projects", projectHandler.List)
		protected.GET("/projects/:id", projectHandler.Get)
		protected.POST("/projects/:id/assign", projectHandler.Assign)
		protected.POST("/projects/:id/work", projectHandler.SubmitWork)
		protected.POST("/projects/:id/accept", projectHandler.Accept)
		protected.POST("/projects/:id/reject", projectHandler.Reject)
		protected.POST("/projects/:id/cancel", projectHandler.Cancel)
		protected.POST("/projects/:id/dispute", disputeHandler.Create)

		protected.GET("/disputes/:id", disputeHandler.Get)
		protected.POST("/disputes/:id/appeal", disputeHandler.Appeal)
		protected.POST("/disputes/:id/vote", disputeHandler.CastVote)
		protected.POST("/disputes/:id/evidence", disputeHandler.SubmitEvidence)
		// Таймауты — полноправные переходы: ручки доступны любому
		// авторизованному, предусловия проверяет машина состояний.
		protected.POST("/disputes/:id/finalize", disputeHandler.Finalize)
		protected.POST("/disputes/:id/enforce", disputeHandler.Enforce)
		protected.POST("/disputes/:id/ai-timeout", disputeHandler.AiTimeout)

		protected.POST("/jurors/register", jurorHandler.Register)
		protected.POST("/jurors/unstake", jurorHandler.Unstake)
		protected.POST("/jurors/refresh-tier", jurorHandler.RefreshTier)
		protected.GET("/jurors/me", jurorHandler.Me)

		// Канал оракула
		oracle := protected.Group("/")
		oracle.Use(middleware.RequireRole(models.RoleOracle))
		{
			oracle.POST("/disputes/:id/verdict", disputeHandler.SubmitVerdict)
		}
	}

	return r
}
