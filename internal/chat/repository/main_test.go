package repository

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"realtime_chat_service/pkg/database"
	"realtime_chat_service/pkg/logger"
	testtool "realtime_chat_service/pkg/test_tool"

	"github.com/go-redis/redis/v8"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// **測試用的容器**, 無法啟動 docker 時為 nil, 相關測試會 skip
var (
	testMongo *database.MongoDB
	testRedis *redis.Client
)

func TestMain(m *testing.M) {
	flag.Parse()
	logger.SetNewNop()
	if testing.Short() || os.Getenv("SKIP_CONTAINERS") != "" {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	var containers []testcontainers.Container

	// **啟動 MongoDB**
	mongoContainer, mongoHost, mongoPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	})
	if err != nil {
		fmt.Printf("MongoDB container unavailable, skipping mongo tests: %v\n", err)
	} else {
		containers = append(containers, mongoContainer)
		testMongo, err = database.NewMongoDB(ctx, database.Connection{
			ConnectStr:    fmt.Sprintf("mongodb://%s:%s", mongoHost, mongoPort),
			RetryCount:    5,
			RetryInterval: time.Second,
		}, "test_chat_db")
		if err != nil {
			fmt.Printf("connect MongoDB: %v\n", err)
		}
	}

	// **啟動 Redis**
	redisContainer, redisHost, redisPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "redis:7",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})
	if err != nil {
		fmt.Printf("Redis container unavailable, skipping redis tests: %v\n", err)
	} else {
		containers = append(containers, redisContainer)
		testRedis, err = database.NewStandaloneRedisClient(fmt.Sprintf("%s:%s", redisHost, redisPort), 0)
		if err != nil {
			fmt.Printf("connect Redis: %v\n", err)
		}
	}

	code := m.Run()

	// **清理測試環境**
	if testMongo != nil {
		_ = testMongo.Close(ctx)
	}
	if testRedis != nil {
		_ = testRedis.Close()
	}
	for _, c := range containers {
		_ = c.Terminate(ctx)
	}
	os.Exit(code)
}
