package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emilythestrangee/git-forum/backend/internal/auth"
	"github.com/emilythestrangee/git-forum/backend/internal/config"
	"github.com/emilythestrangee/git-forum/backend/internal/database"
	"github.com/emilythestrangee/git-forum/backend/internal/handlers"
	"github.com/emilythestrangee/git-forum/backend/internal/middleware"
)

type Server struct {
	cfg     *config.Config
	db      database.Service
	handler *handlers.Handler
	tokens  *auth.Tokens
	logger  *slog.Logger
}

// NewServer wires the router into an http.Server listening on cfg.Port.
func NewServer(cfg *config.Config, db database.Service, handler *handlers.Handler, tokens *auth.Tokens, logger *slog.Logger) *http.Server {
	s := &Server{
		cfg:     cfg,
		db:      db,
		handler: handler,
		tokens:  tokens,
		logger:  logger.With("component", "http"),
	}

	return &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID(), s.requestLogger(), gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     s.cfg.AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// cors panics on an empty origin list
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	r.Use(cors.New(corsConfig))

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := s.handler
	api := r.Group("/api")
	api.Use(middleware.OptionalAuth(s.tokens))
	{
		// Auth routes (public)
		api.POST("/register", h.Auth.Register)
		api.POST("/login", h.Auth.Login)
		api.POST("/auth/google", h.Auth.GoogleLogin)

		// Post routes (public reads)
		api.GET("/posts", h.Post.GetPosts)
		api.GET("/posts/trending", h.Post.GetTrending)
		api.GET("/posts/:id", h.Post.GetPost)
		api.GET("/posts/:id/comments", h.Comment.GetComments)

		// Repository routes (public reads)
		api.GET("/repos", h.Repo.GetRepos)
		api.GET("/repos/:id", h.Repo.GetRepo)
		api.GET("/repos/:id/commits", h.Repo.GetCommits)

		// User routes (public reads)
		api.GET("/users/:id", h.User.GetUserProfile)
		api.GET("/users/:id/posts", h.Post.GetUserPosts)
		api.GET("/users/:id/followers", h.User.GetFollowers)
		api.GET("/users/:id/following", h.User.GetFollowing)

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(s.tokens))
		{
			protected.GET("/me", h.Auth.GetMe)

			protected.POST("/posts", h.Post.CreatePost)
			protected.PUT("/posts/:id", h.Post.UpdatePost)
			protected.DELETE("/posts/:id", h.Post.DeletePost)
			protected.POST("/posts/:id/vote", h.Post.VotePost)
			protected.POST("/posts/:id/fork", h.Post.ForkPost)
			protected.POST("/posts/:id/bookmark", h.Bookmark.AddBookmark)
			protected.DELETE("/posts/:id/bookmark", h.Bookmark.RemoveBookmark)

			protected.POST("/posts/:id/comments", h.Comment.CreateComment)
			protected.PUT("/comments/:commentId", h.Comment.UpdateComment)
			protected.DELETE("/comments/:commentId", h.Comment.DeleteComment)

			protected.GET("/bookmarks", h.Bookmark.GetBookmarks)

			protected.GET("/notifications", h.Notification.GetNotifications)
			protected.GET("/notifications/unread-count", h.Notification.UnreadCount)
			protected.POST("/notifications/read-all", h.Notification.MarkAllRead)
			protected.POST("/notifications/:id/read", h.Notification.MarkRead)

			protected.POST("/repos", h.Repo.CreateRepo)
			protected.PUT("/repos/:id", h.Repo.UpdateRepo)
			protected.DELETE("/repos/:id", h.Repo.DeleteRepo)
			protected.POST("/repos/:id/commits", h.Repo.CreateCommit)

			protected.PUT("/users/:id", h.User.UpdateUserProfile)
			protected.POST("/users/:id/follow", h.User.FollowUser)
			protected.DELETE("/users/:id/follow", h.User.UnfollowUser)

			protected.POST("/tools/generate-commit", h.Tools.GenerateCommit)
			protected.POST("/tools/code-review", h.Tools.CodeReview)
		}
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	stats := s.db.Health()
	if stats["status"] != "up" {
		c.JSON(http.StatusServiceUnavailable, stats)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
