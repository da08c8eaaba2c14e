package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/cppla/board/config"
	"github.com/cppla/board/controllers"
	"github.com/cppla/board/middleware"
	"github.com/cppla/board/services"
	"github.com/cppla/board/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log and panic recovery go to their own rolling file
	gl, err := utils.NewFileLogger(utils.RotationFrom(cfg, cfg.GinPath), cfg.LogLevel)
	if err == nil {
		r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
		r.Use(ginzap.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}
	r.Use(middleware.Metrics())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		// credentials cannot be combined with a wildcard origin
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	store := utils.NewLocalStorage(cfg.UploadDir, cfg.UploadMaxMB)
	postController := controllers.NewPostController(
		services.NewFeedService(db),
		services.NewDetailService(db),
		services.NewPostService(db, store),
	)
	commentController := controllers.NewCommentController(services.NewCommentService(db))
	likeController := controllers.NewLikeController(services.NewLikeService(db))
	userController := controllers.NewUserController(
		services.NewUserService(db),
		time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute,
		time.Duration(cfg.RefreshTokenTTLHours)*time.Hour,
	)
	statsController := controllers.NewStatsController(services.NewStatsService(db))

	limiter := middleware.RateLimitMiddleware(cfg.RateLimitPerMinute)
	auth := middleware.AuthRequired()

	r.GET("/stats", statsController.GetStats)

	postGroup := r.Group("/post")
	postGroup.GET("", postController.ListPosts)
	postGroup.GET("/search", postController.SearchPosts)
	postGroup.GET("/:id", auth, postController.GetPost)
	postGroup.POST("", auth, limiter, postController.CreatePost)
	postGroup.PATCH("/:postId", auth, limiter, postController.UpdatePost)
	postGroup.DELETE("/:postId", auth, limiter, postController.DeletePost)

	commentGroup := r.Group("/comment", auth, limiter)
	commentGroup.POST("/:postId", commentController.CreateComment)
	commentGroup.DELETE("/:commentId", commentController.DeleteComment)

	r.POST("/like/:postId", auth, limiter, likeController.ToggleLike)

	userGroup := r.Group("/user")
	userGroup.Use(limiter)
	userGroup.POST("/signup", userController.Signup)
	userGroup.POST("/login", userController.Login)
	userGroup.POST("/refresh", userController.Refresh)
	userGroup.POST("/logout", auth, userController.Logout)
	userGroup.GET("/:id", auth, userController.GetUser)
	userGroup.PATCH("/me", auth, userController.UpdateMe)
	userGroup.DELETE("/me", auth, userController.DeleteMe)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
