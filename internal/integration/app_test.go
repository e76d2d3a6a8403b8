package integration_test

import (
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stagehold/theatre-reservation-system/internal/app"
)

type TestApp struct {
	App   *app.Application
	DB    *pgxpool.Pool
	Redis *redis.Client
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := app.NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	application := app.NewApp(cfg, logger, db, redisClient)

	return &TestApp{
		App:   application,
		DB:    db,
		Redis: redisClient,
	}, nil
}
