package routes

import (
	"time"

	"zenly/handlers"
	"zenly/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	router := gin.Default()

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Zenly API is running",
			"time":    time.Now().Unix(),
			"ws":      "WebSocket available at /ws",
		})
	})

	// CORS configuration with WebSocket support
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:8080", "http://127.0.0.1:8080"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	generalLimit := middleware.RateLimit(middleware.GeneralLimiter, middleware.KeyByUser)
	authLimit := middleware.RateLimit(middleware.AuthLimiter, middleware.KeyByIP)
	writeLimit := middleware.RateLimit(middleware.WriteLimiter, middleware.KeyByUser)
	engagementLimit := middleware.RateLimit(middleware.EngagementLimiter, middleware.KeyByUserAndResource)

	// Public routes (no auth required)
	auth := router.Group("/api/auth")
	auth.Use(authLimit)
	auth.POST("/signup", handlers.Signup)
	auth.POST("/login", handlers.Login)
	auth.POST("/refresh", handlers.Refresh)
	auth.POST("/logout", handlers.Logout)

	router.GET("/api/vapid-public-key", handlers.GetVapidPublicKey)

	// The resource library is readable before login
	router.GET("/api/resources", generalLimit, handlers.ListResources)
	router.GET("/api/resources/:id", generalLimit, handlers.GetResource)

	// Protected routes group
	protected := router.Group("/api")
	protected.Use(middleware.JWTAuthMiddleware())
	protected.Use(generalLimit)

	// Profile
	protected.GET("/users/me", handlers.GetMe)
	protected.PUT("/users/me", handlers.UpdateMe)
	protected.PUT("/users/me/password", handlers.ChangePassword)
	protected.POST("/users/me/avatar", handlers.UploadAvatar)

	// Journals
	protected.POST("/journals", writeLimit, handlers.CreateJournal)
	protected.GET("/journals", handlers.GetJournals)
	protected.GET("/journals/:id", handlers.GetJournal)
	protected.PUT("/journals/:id", writeLimit, handlers.UpdateJournal)
	protected.DELETE("/journals/:id", handlers.DeleteJournal)

	// Moods
	protected.POST("/moods", writeLimit, handlers.CreateMood)
	protected.GET("/moods", handlers.GetMoods)

	// Forum
	protected.GET("/forum/posts", handlers.ListForumPosts)
	protected.POST("/forum/posts", writeLimit, handlers.CreateForumPost)
	protected.GET("/forum/posts/:id", handlers.GetForumPost)
	protected.POST("/forum/posts/:id/like", engagementLimit, handlers.LikeForumPost)
	protected.GET("/forum/posts/:id/comments", handlers.GetComments)
	protected.POST("/forum/posts/:id/comments", writeLimit, handlers.CreateComment)
	protected.POST("/forum/posts/:id/report", engagementLimit, handlers.ReportPost)

	// Resource engagement
	protected.POST("/resources/:id/view", engagementLimit, handlers.ViewResource)
	protected.POST("/resources/:id/helpful", engagementLimit, handlers.MarkHelpful)

	// Activity feed
	protected.GET("/activity", handlers.GetActivity)

	// Push subscriptions
	protected.POST("/subscribe", handlers.SubscribePush)

	// Admin routes group
	admin := router.Group("/api/admin")
	admin.Use(middleware.JWTAuthMiddleware())
	admin.Use(middleware.RequireAdmin())
	admin.Use(generalLimit)

	admin.GET("/stats", handlers.AdminStats)
	admin.GET("/users", handlers.AdminListUsers)
	admin.POST("/resources", handlers.CreateResource)
	admin.PUT("/resources/:id", handlers.UpdateResource)
	admin.DELETE("/resources/:id", handlers.DeleteResource)
	admin.DELETE("/forum/posts/:id", handlers.AdminDeletePost)
	admin.PUT("/forum/posts/:id/pin", handlers.AdminPinPost)
	admin.GET("/forum/reported", handlers.AdminReportedPosts)
	admin.PUT("/forum/posts/:id/reports/clear", handlers.AdminClearReports)

	// Catch-all for undefined API routes
	router.NoRoute(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 4 && c.Request.URL.Path[:4] == "/api" {
			c.JSON(404, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.Next()
	})

	return router
}
