package server

import (
	"time"

	"tasklist-svc/src/clients"
	"tasklist-svc/src/internal/dependency"
	"tasklist-svc/src/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func SetupRoutes(deps *dependency.Manager) {
	router := deps.Router
	router.Use(enableCORS)
	router.Use(middleware.RequestLogger())

	setupHealthEndpoint(deps)
	setupAuthRoutes(router, deps)
	setupProtectedRoutes(router, deps)
}

func setupHealthEndpoint(deps *dependency.Manager) {
	router := deps.Router
	mongodb := deps.Mongodb
	redisClient := deps.Redis
	cfg := deps.Config

	router.GET("/health", func(c *gin.Context) {
		log.Info("Health check endpoint requested")

		mongoStatus := "ok"
		if err := mongodb.Client.Ping(c.Request.Context(), nil); err != nil {
			mongoStatus = "error: " + err.Error()
		}

		redisStatus := "ok"
		if err := redisClient.Client.Ping(c.Request.Context()).Err(); err != nil {
			redisStatus = "error: " + err.Error()
		}

		c.JSON(200, gin.H{
			"status":    "ok",
			"service":   cfg.App.Name,
			"version":   cfg.App.Version,
			"mongodb":   mongoStatus,
			"redis":     redisStatus,
			"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	})

	router.GET("/health/detailed", func(c *gin.Context) {
		log.Info("Detailed health check endpoint requested")

		c.JSON(200, gin.H{
			"status":  "operational",
			"service": cfg.App.Name,
			"version": cfg.App.Version,
			"components": gin.H{
				"database": gin.H{
					"mongodb": getStatus(isMongoConnected(mongodb, c)),
					"redis":   getStatus(isRedisConnected(redisClient.Client, c)),
				},
				"services": gin.H{
					"auth":    "operational",
					"session": "operational",
					"cache":   "operational",
				},
			},
		})
	})
}

func setupAuthRoutes(router *gin.Engine, deps *dependency.Manager) {
	handler := deps.AuthHandler
	authMiddleware := middleware.NewAuthMiddleware(deps.SessionService, deps.ActivityClient)

	router.POST("/users", handler.Register)
	router.POST("/users/login", handler.Login)

	me := router.Group("/users/me", authMiddleware.VerifySession())
	{
		me.GET("/access-token", handler.GetAccessToken)
		me.DELETE("/session", handler.Logout)
	}
}

func setupProtectedRoutes(router *gin.Engine, deps *dependency.Manager) {
	authMiddleware := middleware.NewAuthMiddleware(deps.SessionService, deps.ActivityClient)
	listHandler := deps.ListHandler
	taskHandler := deps.TaskHandler

	lists := router.Group("/lists", authMiddleware.VerifySession())
	{
		lists.GET("", listHandler.GetLists)
		lists.POST("", listHandler.CreateList)
		lists.PATCH("/:listId", listHandler.UpdateList)
		lists.DELETE("/:listId", listHandler.DeleteList)
	}

	tasks := router.Group("/lists/:listId/tasks", authMiddleware.VerifySession())
	{
		tasks.GET("", taskHandler.GetTasks)
		tasks.POST("", taskHandler.CreateTask)
		tasks.PATCH("/:taskId", taskHandler.UpdateTask)
		tasks.DELETE("/:taskId", taskHandler.DeleteTask)
	}
}

func isMongoConnected(mongodb *clients.MongoDB, c *gin.Context) bool {
	if err := mongodb.Client.Ping(c.Request.Context(), nil); err != nil {
		return false
	}
	return true
}

func isRedisConnected(redisClient *redis.Client, c *gin.Context) bool {
	if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
		return false
	}
	return true
}

func enableCORS(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, HEAD, OPTIONS, PUT, PATCH, DELETE")
	c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, x-refresh-token, _id")
	c.Header("Access-Control-Expose-Headers", "x-access-token, x-refresh-token")

	if c.Request.Method == "OPTIONS" {
		c.AbortWithStatus(204)
		return
	}

	c.Next()
}

func getStatus(b bool) string {
	if b {
		return "connected"
	}
	return "disconnected"
}
