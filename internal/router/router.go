package router

import (
	"log/slog"
	"net/http"

	"pressroom/internal/config"
	"pressroom/internal/handlers"
	"pressroom/internal/middleware"
	"pressroom/internal/models"
	"pressroom/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const sessionName = "pressroom_session"

// Deps carries everything the routes are wired to.
type Deps struct {
	Config        config.Config
	DB            *gorm.DB
	Log           *slog.Logger
	Lifecycle     *services.Lifecycle
	Likes         *services.Likes
	Comments      *services.Comments
	Follows       *services.Follows
	Users         *services.Users
	Notifications *services.Notifications
	Counters      *services.Counters
	Reconciler    *services.Reconciler
	Cache         *handlers.ArticleCache
	// SubmitLimiter throttles article and comment creation.
	SubmitLimiter *middleware.RateLimiter
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{d.Config.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: d.Config.CORSOrigin != "*",
	}))
	r.Use(sessions.Sessions(sessionName, cookie.NewStore([]byte(d.Config.SessionSecret))))
	r.Use(middleware.LoadUser(d.Users))

	authHandler := handlers.NewAuthHandler(d.Users, d.Notifications, d.Log)
	articleHandler := handlers.NewArticleHandler(d.Lifecycle, d.Likes, d.Comments, d.Reconciler, d.Cache, d.Log)
	commentHandler := handlers.NewCommentHandler(d.Comments, d.Likes, d.Cache)
	userHandler := handlers.NewUserHandler(d.Users, d.Follows, d.Comments)
	notificationHandler := handlers.NewNotificationHandler(d.Notifications)
	moderationHandler := handlers.NewModerationHandler(d.Lifecycle, d.Counters, d.Cache)
	adminHandler := handlers.NewAdminHandler(d.Users)

	submitLimit := middleware.RateLimit(d.SubmitLimiter)

	// Ops
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", healthz(d.DB))

	// Auth
	r.POST("/signup", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.POST("/logout", authHandler.Logout)

	// Public
	r.GET("/articles", articleHandler.List)
	r.GET("/articles/:id", articleHandler.Detail)
	r.GET("/articles/:id/comments", articleHandler.ListComments)
	r.GET("/tags/:name/articles", articleHandler.ListByTag)
	r.GET("/users/:id", userHandler.Profile)
	r.GET("/users/:id/articles", articleHandler.ListByAuthor)
	r.GET("/users/:id/comments", userHandler.Comments)
	r.GET("/users/:id/followers", userHandler.Followers)
	r.GET("/users/:id/following", userHandler.Following)

	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/me", authHandler.Me)
		authorized.GET("/me/submissions", articleHandler.MySubmissions)

		authorized.POST("/articles", submitLimit, articleHandler.Create)
		authorized.PATCH("/articles/:id", articleHandler.Update)
		authorized.DELETE("/articles/:id", articleHandler.Delete)
		authorized.POST("/articles/:id/like", articleHandler.Like)
		authorized.POST("/articles/:id/comments", submitLimit, articleHandler.AddComment)

		authorized.PATCH("/comments/:id", commentHandler.Update)
		authorized.DELETE("/comments/:id", commentHandler.Delete)
		authorized.POST("/comments/:id/like", commentHandler.Like)

		authorized.POST("/users/:id/follow", userHandler.Follow)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)
	}

	moderator := r.Group("/")
	moderator.Use(middleware.RoleRequired(models.PrivilegedRoles...))
	{
		moderator.GET("/moderation/pending", moderationHandler.Queue(models.StatePending))
		moderator.GET("/moderation/rejected", moderationHandler.Queue(models.StateRejected))
		moderator.GET("/moderation/deleted", moderationHandler.Queue(models.StateDeleted))
		moderator.GET("/moderation/decided/:moderatorId", moderationHandler.DecidedBy)
		moderator.POST("/moderation/articles/:id/approve", moderationHandler.Approve)
		moderator.POST("/moderation/articles/:id/reject", moderationHandler.Reject)
		moderator.POST("/moderation/reconcile/articles/:id", moderationHandler.ReconcileArticle)

		moderator.POST("/articles/:id/pin", articleHandler.Pin)
		moderator.POST("/articles/:id/unpin", articleHandler.Unpin)
		moderator.POST("/comments/:id/pin", commentHandler.Pin)
		moderator.POST("/comments/:id/unpin", commentHandler.Unpin)
	}

	admin := r.Group("/admin")
	admin.Use(middleware.RoleRequired(models.RoleAdmin))
	{
		admin.POST("/users/:id/role", adminHandler.SetRole)
		admin.POST("/users/:id/block", adminHandler.Block)
		admin.POST("/users/:id/unblock", adminHandler.Unblock)
	}
}

func healthz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
