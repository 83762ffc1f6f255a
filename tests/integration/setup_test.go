//go:build integration

package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/vitrina-voz/internal/adapter/storage/postgres"

	_ "github.com/lib/pq"
)

// TestEnv holds test environment resources
type TestEnv struct {
	DB                *sql.DB
	Gorm              *gorm.DB
	DatabaseURL       string
	Redis             *redis.Client
	RedisURL          string
	PostgresContainer testcontainers.Container
	RedisContainer    testcontainers.Container
	Logger            *zap.Logger
}

var testEnv *TestEnv

func TestMain(m *testing.M) {
	code := m.Run()
	TeardownTestEnvironment()
	os.Exit(code)
}

// SetupTestEnvironment starts (or reuses) Postgres and Redis. DATABASE_URL and
// REDIS_URL point the suite at external services instead of containers.
func SetupTestEnvironment(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()
	logger, _ := zap.NewDevelopment()
	env := &TestEnv{Logger: logger}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		env.DatabaseURL = url
		env.RedisURL = os.Getenv("REDIS_URL")
		if env.RedisURL == "" {
			env.RedisURL = "redis://localhost:6379/0"
		}
	} else {
		startContainers(t, ctx, env)
	}

	db, err := sql.Open("postgres", env.DatabaseURL)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	for i := 0; i < 30; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}
	env.DB = db

	env.Gorm, err = postgres.NewConnection(env.DatabaseURL, postgres.DefaultPoolConfig(), logger)
	if err != nil {
		t.Fatalf("Failed to open gorm connection: %v", err)
	}
	if err := postgres.RunMigrations(env.Gorm); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	opt, err := redis.ParseURL(env.RedisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}
	env.Redis = redis.NewClient(opt)
	if err := env.Redis.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	testEnv = env
	return testEnv
}

func startContainers(t *testing.T, ctx context.Context, env *TestEnv) {
	t.Helper()

	pg, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("vitrina_test"),
		tcpostgres.WithUsername("vitrina"),
		tcpostgres.WithPassword("vitrina_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	env.PostgresContainer = pg

	env.DatabaseURL, err = pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get postgres connection string: %v", err)
	}

	rc, err := tcredis.Run(ctx, "redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}
	env.RedisContainer = rc

	env.RedisURL, err = rc.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get redis connection string: %v", err)
	}
}

// TeardownTestEnvironment closes connections and stops containers.
func TeardownTestEnvironment() {
	if testEnv == nil {
		return
	}
	ctx := context.Background()

	if testEnv.Gorm != nil {
		_ = postgres.Close(testEnv.Gorm)
	}
	if testEnv.DB != nil {
		testEnv.DB.Close()
	}
	if testEnv.Redis != nil {
		testEnv.Redis.Close()
	}
	if testEnv.PostgresContainer != nil {
		if err := testEnv.PostgresContainer.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to terminate postgres container: %v\n", err)
		}
	}
	if testEnv.RedisContainer != nil {
		if err := testEnv.RedisContainer.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to terminate redis container: %v\n", err)
		}
	}
	testEnv = nil
}

// CleanDatabase truncates the catalog tables.
func CleanDatabase(t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.Exec("TRUNCATE TABLE products"); err != nil {
		t.Fatalf("Failed to truncate products: %v", err)
	}
}

// FlushRedis clears all Redis keys
func FlushRedis(t *testing.T, client *redis.Client) {
	t.Helper()
	if err := client.FlushAll(context.Background()).Err(); err != nil {
		t.Fatalf("Failed to flush redis: %v", err)
	}
}
