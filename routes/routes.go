package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"heartmatch/handlers"
	"heartmatch/middleware"
)

type Options struct {
	CORSOrigins []string
	RateLimiter *middleware.IPRateLimiter // nil disables rate limiting
	UploadDir   string                    // served under /uploads when set
	WebSocket   http.Handler              // mounted at /ws when set
}

func SetupRouter(h *handlers.Handler, opts Options) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(corsConfig(opts.CORSOrigins)))

	router.GET("/health", handlers.Health)
	if opts.WebSocket != nil {
		router.GET("/ws", gin.WrapH(opts.WebSocket))
	}
	if opts.UploadDir != "" {
		router.Static("/uploads", opts.UploadDir)
	}

	api := router.Group("/api")
	if opts.RateLimiter != nil {
		api.Use(middleware.RateLimit(opts.RateLimiter))
	}
	api.GET("/health", handlers.Health)

	// Public routes
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.GET("/push/vapid-public-key", h.VAPIDPublicKey)

	protected := api.Group("")
	protected.Use(middleware.JWTAuth(h.Auth))

	protected.GET("/auth/me", h.Me)

	// Users
	protected.GET("/users/potential-matches", h.PotentialMatches)
	protected.PUT("/users/profile", h.UpdateProfile)
	protected.GET("/users/:userId", h.GetUser)

	// Matches
	protected.POST("/matches/like", h.Like)
	protected.POST("/matches/pass", h.Pass)
	protected.GET("/matches", h.ListMatches)
	protected.GET("/matches/:matchId", h.GetMatch)
	protected.DELETE("/matches/:matchId", h.Unmatch)

	// Messages
	protected.POST("/messages", h.SendMessage)
	protected.GET("/messages/:matchId", h.GetMessages)
	protected.PUT("/messages/:matchId/read", h.MarkRead)

	protected.POST("/upload/profile-image", h.UploadProfileImage)
	protected.POST("/push/subscribe", h.SubscribePush)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	}
	return cfg
}
