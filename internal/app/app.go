package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/exaring/otelpgx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stagehold/theatre-reservation-system/internal/booking"
	"github.com/stagehold/theatre-reservation-system/internal/domain"
	"github.com/stagehold/theatre-reservation-system/internal/repository"
	appvalidator "github.com/stagehold/theatre-reservation-system/internal/validator"
	"github.com/stagehold/theatre-reservation-system/internal/vcs"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
)

var version = vcs.Version()

// Application wires the HTTP boundary to the booking core. Exported along
// with Config so the integration suite can assemble a real instance against
// containerized backends.
type Application struct {
	config         Config
	logger         *slog.Logger
	db             *pgxpool.Pool
	redis          redis.UniversalClient
	validator      *validator.Validate
	sessionManager *scs.SessionManager

	performanceRepo domain.PerformanceRepository
	reservationRepo domain.ReservationRepository

	booking *booking.Service
}

type Config struct {
	Port             int
	Env              string
	DB               DBConfig
	Redis            RedisConfig
	Booking          BookingConfig
	OtelCollectorUrl string
}

type DBConfig struct {
	Dsn          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	Url          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type BookingConfig struct {
	HoldDuration  time.Duration
	ClaimCutoff   time.Duration
	SweepInterval time.Duration
}

func Run() error {
	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.DB.Dsn, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.Redis.Url, "redis-url", "", "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.DurationVar(&cfg.Booking.HoldDuration, "hold-duration", booking.DefaultHoldDuration, "How long a pending seat hold lasts before it expires")
	flag.DurationVar(&cfg.Booking.ClaimCutoff, "claim-cutoff", booking.DefaultClaimCutoff, "How long before showtime seat claims close")
	flag.DurationVar(&cfg.Booking.SweepInterval, "sweep-interval", booking.DefaultSweepInterval, "How often the expiry sweeper runs")

	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector URL")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	db, err := NewDatabasePool(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := NewRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	app := NewApp(cfg, logger, db, redisClient)

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	if cfg.OtelCollectorUrl != "" {
		otelHandler := otelslog.NewHandler("theatre-reservation-api",
			otelslog.WithLoggerProvider(global.GetLoggerProvider()))

		app.logger = slog.New(NewMultiHandler(logger.Handler(), otelHandler))
	}

	return app.Serve()
}

// NewApp assembles an Application from already-connected backends.
func NewApp(cfg Config, logger *slog.Logger, db *pgxpool.Pool, redisClient *redis.Client) *Application {
	performanceRepo := repository.NewPostgresPerformanceRepository(db)
	reservationRepo := repository.NewPostgresReservationRepository(db)
	holds := repository.NewRedisSeatHoldCache(redisClient)

	arbiter := booking.NewArbiter(performanceRepo, reservationRepo, holds, logger)
	bookingService := booking.NewService(
		performanceRepo,
		reservationRepo,
		arbiter,
		holds,
		logger,
		cfg.Booking.HoldDuration,
		cfg.Booking.ClaimCutoff,
	)

	return &Application{
		config:          cfg,
		logger:          logger,
		db:              db,
		redis:           redisClient,
		validator:       appvalidator.NewValidator(),
		sessionManager:  NewSessionManager(redisClient),
		performanceRepo: performanceRepo,
		reservationRepo: reservationRepo,
		booking:         bookingService,
	}
}

func NewSessionManager(client *redis.Client) *scs.SessionManager {
	sessionManager := scs.New()

	sessionManager.Store = goredisstore.New(client)
	sessionManager.IdleTimeout = 20 * time.Minute
	sessionManager.Cookie.Name = "session_id"

	return sessionManager
}

func NewRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.Url,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func NewDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.Dsn)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Serve runs the HTTP server and the expiry sweeper until SIGINT or SIGTERM.
func (app *Application) Serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()

	go app.booking.RunExpirySweeper(sweeperCtx, app.config.Booking.SweepInterval)

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		stopSweeper()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
		}

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)
	r.MethodNotAllowed(app.methodNotAllowedResponse)

	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(app.recoverPanic)
	r.Use(app.sessionManager.LoadAndSave)
	r.Use(app.ensureGuestSession)

	r.Get("/health", app.GetHealth)

	r.Route("/performances", func(r chi.Router) {
		r.Post("/", app.CreatePerformanceHandler)
		r.Get("/", app.GetPerformancesHandler)

		r.Route("/{performanceId}", func(r chi.Router) {
			r.Get("/", app.GetPerformanceHandler)
			r.Delete("/", app.CancelPerformanceHandler)
			r.Get("/availability", app.GetAvailabilityHandler)
			r.Get("/seats/{seatId}/ledger", app.GetSeatLedgerHandler)
		})
	})

	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", app.ClaimSeatHandler)
		r.Post("/batch", app.BatchClaimHandler)

		r.Route("/{reservationId}", func(r chi.Router) {
			r.Get("/", app.GetReservationHandler)
			r.Post("/confirm", app.ConfirmReservationHandler)
			r.Post("/cancel", app.CancelReservationHandler)
		})
	})

	return r
}
