package main

import (
	"net/http"
	"os"
	"regexp"

	"sociogram/backend/internal/auth"
	"sociogram/backend/internal/config"
	"sociogram/backend/internal/database"
	"sociogram/backend/internal/handler"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	// Swagger imports
	_ "sociogram/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

var nicknameRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

func init() {
	config.LoadConfig()

	level, err := zerolog.ParseLevel(config.AppConfig.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("nickname", func(fl validator.FieldLevel) bool {
			return nicknameRe.MatchString(fl.Field().String())
		})
	}
}

// @title           Sociogram API
// @version         1.0
// @description     Social graph, messaging and notification API.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	// Connect to the database
	database.Connect(config.AppConfig.DatabaseURL)
	handler.Init(database.DB)

	router := gin.Default()

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", handler.RegisterUser)
			authRoutes.POST("/login", handler.LoginUser)
			authRoutes.POST("/recover", handler.RecoverPassword)
			authRoutes.POST("/reset", handler.ResetPassword)
			authRoutes.POST("/password", auth.AuthMiddleware(), handler.ChangePassword)
		}

		// User routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware())
		{
			userRoutes.GET("", handler.SearchUsers) // Must be before /:id
			userRoutes.GET("/me", handler.GetMe)
			userRoutes.PUT("/me", handler.UpdateMe)
			userRoutes.GET("/:id", handler.GetUserByID)
			userRoutes.GET("/:id/friends", handler.GetFriends)
			userRoutes.GET("/:id/subscribers", handler.GetSubscribers)
			userRoutes.GET("/:id/offers", handler.GetOffers)

			// Friendship routes
			userRoutes.POST("/:id/request", handler.SendRequest)
			userRoutes.POST("/:id/cancel", handler.CancelRequest)
			userRoutes.POST("/:id/accept", handler.AcceptRequest)
			userRoutes.POST("/:id/unfriend", handler.Unfriend)
			userRoutes.POST("/:id/seen", handler.MarkOfferSeen)
		}

		// Dialog routes (protected)
		dialogRoutes := apiV1.Group("/dialogs")
		dialogRoutes.Use(auth.AuthMiddleware())
		{
			dialogRoutes.GET("", handler.GetDialogs)
			dialogRoutes.GET("/unread", handler.GetUnreadCounts)
			dialogRoutes.GET("/with/:id", handler.OpenDialog)
			dialogRoutes.POST("/:id/messages", handler.AppendMessage)
		}
		apiV1.POST("/messages/:id/read", auth.AuthMiddleware(), handler.MarkMessageRead)

		// Notification routes (protected)
		apiV1.GET("/notifications", auth.AuthMiddleware(), handler.GetNotifications)
		apiV1.GET("/stream", auth.AuthMiddleware(), handler.StreamEvents)

		// Post routes
		postRoutes := apiV1.Group("/posts")
		{
			postRoutes.GET("", auth.OptionalAuthMiddleware(), handler.GetFeed)
			postRoutes.POST("", auth.AuthMiddleware(), handler.CreatePost)
			postRoutes.PUT("/:id", auth.AuthMiddleware(), handler.UpdatePost)
			postRoutes.DELETE("/:id", auth.AuthMiddleware(), handler.DeletePost)
			postRoutes.POST("/:id/rate", auth.AuthMiddleware(), handler.RatePost)
		}
		apiV1.GET("/tags", handler.GetTags)
	}

	log.Info().Str("addr", config.AppConfig.ListenAddr).Msg("server is running")
	if err := router.Run(config.AppConfig.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
