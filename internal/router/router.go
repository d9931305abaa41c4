package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskforge/internal/auth"
	"github.com/monocle-dev/taskforge/internal/handlers"
	"github.com/monocle-dev/taskforge/internal/middleware"
)

type Config struct {
	AllowedOrigins []string
	Issuer         *auth.Issuer
	Users          middleware.UserFinder
}

func NewRouter(h *handlers.Handler, cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	requireAuth := middleware.AuthMiddleware(cfg.Issuer, cfg.Users)

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws", requireAuth, h.WebSocket)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.CreateUser)
			authGroup.POST("/login", h.LoginUser)
			authGroup.POST("/logout", h.LogoutUser)
			authGroup.GET("/me", requireAuth, h.Me)
			authGroup.GET("/profile", requireAuth, h.Me)
			authGroup.PUT("/profile", requireAuth, h.UpdateUser)
		}

		users := api.Group("/users", requireAuth)
		{
			users.GET("/search/:query", h.SearchUsers)
			users.GET("/:user_id", h.GetUser)
		}

		projects := api.Group("/projects", requireAuth)
		{
			projects.POST("", h.CreateProject)
			projects.GET("", h.ListProjects)
			projects.GET("/:project_id", h.GetProject)
			projects.PUT("/:project_id", h.UpdateProject)
			projects.PATCH("/:project_id", h.UpdateProject)
			projects.DELETE("/:project_id", h.DeleteProject)

			// Membership endpoints
			projects.POST("/:project_id/members", h.AddMember)
			projects.DELETE("/:project_id/members/:member_id", h.RemoveMember)
		}

		tasks := api.Group("/tasks", requireAuth)
		{
			tasks.POST("/project/:project_id", h.CreateTask)
			tasks.GET("/project/:project_id", h.ListTasks)
			tasks.PUT("/:task_id", h.UpdateTask)
			tasks.DELETE("/:task_id", h.DeleteTask)
		}

		notifications := api.Group("/notifications", requireAuth)
		{
			notifications.GET("", h.ListNotifications)
			notifications.PATCH("/:notification_id/read", h.MarkNotificationRead)
		}
	}

	return r
}
