package dependency

import (
	"tasklist-svc/src/clients"
	"tasklist-svc/src/internal/auth"
	"tasklist-svc/src/internal/cache"
	"tasklist-svc/src/internal/config"
	"tasklist-svc/src/internal/list"
	"tasklist-svc/src/internal/session"
	"tasklist-svc/src/internal/task"
	"tasklist-svc/src/internal/token"
	"tasklist-svc/src/internal/user"

	"github.com/gin-gonic/gin"
)

type Manager struct {
	Router         *gin.Engine
	Config         *config.Configuration
	Mongodb        *clients.MongoDB
	Redis          *clients.RedisClient
	RabbitMQ       *clients.RabbitMQ
	UserRepository user.Repository
	UserService    user.Service
	SessionService session.Service
	TokenCodec     *token.Codec
	CacheService   cache.Service
	ActivityClient *clients.ActivityClient
	AuthHandler    auth.Handler
	ListHandler    list.Handler
	TaskHandler    task.Handler
}

func NewDependencyManager(router *gin.Engine,
	mongodb *clients.MongoDB,
	redisClient *clients.RedisClient,
	rabbitMQ *clients.RabbitMQ,
	cfg *config.Configuration) *Manager {
	cacheService := cache.NewCacheService(redisClient.Client, cfg)
	userRepo := user.NewUserRepository(mongodb, cfg.Database.UserCollection)
	userService := user.NewUserService(userRepo, cfg)
	sessionService := session.NewSessionService(userRepo, cacheService, cfg)
	tokenCodec := token.NewCodec(&cfg.Security)
	activityClient := clients.NewActivityClient(cfg, rabbitMQ.Channel)

	listRepo := list.NewListRepository(mongodb, cfg.Database.ListCollection)
	taskRepo := task.NewTaskRepository(mongodb, cfg.Database.TaskCollection)

	authHandler := auth.NewHandler(cfg, userService, sessionService, tokenCodec, activityClient)
	listHandler := list.NewHandler(cfg, listRepo)
	taskHandler := task.NewHandler(cfg, taskRepo, listRepo)

	return &Manager{
		Router:         router,
		Config:         cfg,
		Mongodb:        mongodb,
		Redis:          redisClient,
		RabbitMQ:       rabbitMQ,
		UserRepository: userRepo,
		UserService:    userService,
		SessionService: sessionService,
		TokenCodec:     tokenCodec,
		CacheService:   cacheService,
		ActivityClient: activityClient,
		AuthHandler:    authHandler,
		ListHandler:    listHandler,
		TaskHandler:    taskHandler,
	}
}
