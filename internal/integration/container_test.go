package integration_test

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	pgxstd "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

const migrationsSource = "file://../../migrations"

type PostgresContainer struct {
	Container        *tcpostgres.PostgresContainer
	ConnectionString string
}

type RedisContainer struct {
	Container        *tcredis.RedisContainer
	ConnectionString string
}

func postgresDsn(host, port string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPassword, host, port, dbName)
}

// startPostgres brings up the database container and applies the schema
// migrations before handing it to the suite.
func startPostgres(ctx context.Context) (*PostgresContainer, error) {
	container, err := tcpostgres.Run(ctx, dbImageName,
		tcpostgres.WithDatabase(dbName),
		tcpostgres.WithUsername(dbUser),
		tcpostgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForSQL("5432/tcp", "postgres", func(host string, port nat.Port) string {
					return postgresDsn(host, port.Port())
				}),
			).WithDeadline(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("starting postgres container: %w", err)
	}

	host, port, err := hostPort(ctx, container, "5432")
	if err != nil {
		return nil, err
	}

	dsn := postgresDsn(host, port)
	if err := applyMigrations(dsn); err != nil {
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	return &PostgresContainer{Container: container, ConnectionString: dsn}, nil
}

func startRedis(ctx context.Context) (*RedisContainer, error) {
	container, err := tcredis.Run(ctx, cacheImageName)
	if err != nil {
		return nil, fmt.Errorf("starting redis container: %w", err)
	}

	host, port, err := hostPort(ctx, container, "6379")
	if err != nil {
		return nil, err
	}

	return &RedisContainer{Container: container, ConnectionString: host + ":" + port}, nil
}

func hostPort(ctx context.Context, container testcontainers.Container, port nat.Port) (string, string, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return "", "", fmt.Errorf("resolving container host: %w", err)
	}

	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		return "", "", fmt.Errorf("resolving container port: %w", err)
	}

	return host, mapped.Port(), nil
}

func applyMigrations(dsn string) error {
	config, err := pgx.ParseConfig(dsn)
	if err != nil {
		return err
	}

	db := pgxstd.OpenDB(*config)
	defer db.Close()

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsSource, "pgx", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}
