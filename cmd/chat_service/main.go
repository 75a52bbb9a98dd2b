package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"realtime_chat_service/internal/chat/app"
	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/internal/chat/router"
	memberrepo "realtime_chat_service/internal/member/repository"
	"realtime_chat_service/pkg/config"
	"realtime_chat_service/pkg/database"
	"realtime_chat_service/pkg/logger"
	testtool "realtime_chat_service/pkg/test_tool"
	"realtime_chat_service/pkg/token"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	if err := token.SetSecret(cfg.JWT.Secret); err != nil {
		logger.Log.Fatal("jwt secret is required, set JWT_SECRET", zap.Error(err))
	}

	ctx := context.Background()

	// 1. 建立 Mongo 連線 (存訊息)
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval) * time.Second,
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s:%d]", cfg.MongoSQL.Host, cfg.MongoSQL.Port)),
			zap.Error(err),
		)
	}

	msgRepo := repository.NewMongoMessageRepository(mongo.Database)
	if err := msgRepo.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatal("ensure message indexes", zap.Error(err))
	}

	// 2. 建立 PostgreSQL 連線 (成員與 last seen)
	db, err := database.NewGormConnection(database.Connection{
		ConnectStr: database.PostgresDSN(cfg.PostgreSQL.Host, cfg.PostgreSQL.Port,
			cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database),
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval) * time.Second,
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL database after retries",
			zap.String("address", fmt.Sprintf("[%s:%d]", cfg.PostgreSQL.Host, cfg.PostgreSQL.Port)),
			zap.Error(err),
		)
	}
	memberRepo := memberrepo.NewMemberRepository(db)
	if err := memberRepo.AutoMigrate(); err != nil {
		logger.Log.Fatal("migrate members", zap.Error(err))
	}

	// 3. 組裝 coordinator
	registry := app.NewConnectionRegistry()
	broadcaster := app.NewPresenceBroadcaster(registry)
	messageStore := app.NewMessageStore(msgRepo)

	var opts []app.CoordinatorOption
	subCtx, cancelSub := context.WithCancel(ctx)
	defer cancelSub()

	// 4. Redis presence mirror (可選)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = connectRedis(cfg.Redis)
		channel := cfg.Redis.PresenceChannel
		if channel == "" {
			channel = repository.PresenceChannel
		}
		pubsub := repository.NewRedisPubSub(redisClient)
		opts = append(opts, app.WithPresenceMirror(pubsub, channel))

		err := pubsub.Subscribe(subCtx, channel, func(event domain.Event) {
			logger.Log.Debug("presence mirror", zap.String("type", string(event.Type)), zap.String("userID", event.UserID))
		})
		if err != nil {
			logger.Log.Warn("presence mirror subscribe", zap.Error(err))
		}
	}

	coordinator := app.NewSessionCoordinator(registry, broadcaster, messageStore, memberRepo, opts...)

	// 5. 啟動 Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file, // 将日志输出到文件
	}))

	// 注册路由
	router.RegisterRoutes(r,
		app.NewChatWebsocketHandler(coordinator, cfg.Websocket),
		app.NewMessageHandler(coordinator, memberRepo),
	)

	if cfg.Pprof {
		testtool.StartPprof("")
	}

	// Listen
	port := ":" + cfg.Port
	go func() {
		logger.Log.Info("Chat Service listening", zap.String("port", port))
		if err := r.Listen(port); err != nil {
			logger.Log.Fatal("Failed to start Fiber", zap.Error(err))
		}
	}()

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	wait := gfshutdown.GracefulShutdown(ctx, shutdownTimeout, map[string]gfshutdown.Operation{
		"fiber": func(ctx context.Context) error {
			return r.ShutdownWithContext(ctx)
		},
		"mongo": func(ctx context.Context) error {
			return mongo.Close(ctx)
		},
		"postgres": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
		"redis": func(ctx context.Context) error {
			cancelSub()
			if redisClient == nil {
				return nil
			}
			return redisClient.Close()
		},
	})

	exitCode := <-wait
	logger.Log.Info("Chat Service exited", zap.Int("code", exitCode))
	logger.Log.Sync()
	os.Exit(exitCode)
}

// connectRedis 有設定 sentinel 時走 sentinel, 否則直連 Addr
func connectRedis(cfg config.RedisConfig) *redis.Client {
	masterName, sentinel := config.GetRedisSetting()
	if len(sentinel) > 0 {
		client, err := database.NewRedisClient(masterName, sentinel, cfg.RedisDB)
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
		}
		return client
	}

	client, err := database.NewStandaloneRedisClient(cfg.Addr, cfg.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}
	return client
}
