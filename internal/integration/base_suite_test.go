package integration_test

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stagehold/theatre-reservation-system/internal/app"
	"github.com/stagehold/theatre-reservation-system/internal/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

const (
	dbName         = "theatre_reservation"
	dbUser         = "test_user"
	dbPassword     = "test_password"
	dbImageName    = "postgres:17-alpine"
	cacheImageName = "redis:7"
)

type BaseSuite struct {
	suite.Suite
	app            *TestApp
	dbContainer    *PostgresContainer
	cacheContainer *RedisContainer
	server         *httptest.Server
}

func (s *BaseSuite) SetupSuite() {
	ctx := context.Background()

	postgresContainer, err := startPostgres(ctx)
	s.Require().NoError(err, "starting postgres container")
	s.dbContainer = postgresContainer

	redisContainer, err := startRedis(ctx)
	s.Require().NoError(err, "starting redis container")
	s.cacheContainer = redisContainer

	testApp, err := newTestApp(testConfig(postgresContainer.ConnectionString, redisContainer.ConnectionString))
	s.Require().NoError(err, "initializing app")

	s.app = testApp
	s.server = httptest.NewServer(testApp.App.Routes())
}

func testConfig(dsn, redisAddr string) app.Config {
	return app.Config{
		Port: 3000,
		Env:  "test",
		DB: app.DBConfig{
			Dsn:          dsn,
			MaxOpenConns: 25,
			MaxIdleTime:  2 * time.Minute,
		},
		Redis: app.RedisConfig{
			Url:          redisAddr,
			MaxOpenConns: 10,
			MaxIdleConns: 10,
			MaxIdleTime:  2 * time.Minute,
		},
		Booking: app.BookingConfig{
			HoldDuration:  booking.DefaultHoldDuration,
			ClaimCutoff:   booking.DefaultClaimCutoff,
			SweepInterval: booking.DefaultSweepInterval,
		},
	}
}

func (s *BaseSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.dbContainer != nil {
		if err := testcontainers.TerminateContainer(s.dbContainer.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
	if s.cacheContainer != nil {
		if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}

// SetupTest starts every test from an empty dataset.
func (s *BaseSuite) SetupTest() {
	ctx := context.Background()

	_, err := s.app.DB.Exec(ctx, `
		TRUNCATE reservation_ledger, reservations, seats, performances RESTART IDENTITY CASCADE
	`)
	s.Require().NoError(err)

	s.Require().NoError(s.app.Redis.FlushAll(ctx).Err())
}

type Scenario struct {
	Name             string
	Method           string
	URL              string
	Body             io.Reader
	Headers          map[string]string
	ExpectedStatus   int
	ExpectedResponse string
	BeforeTestFunc   func(t testing.TB, app *TestApp)
	AfterTestFunc    func(t testing.TB, app *TestApp, res *http.Response)
}

func (s Scenario) Run(t *testing.T, testApp *TestApp) {
	t.Run(s.Name, func(t *testing.T) {
		req, err := prepareRequest(s.Method, s.URL, s.Body, s.Headers)
		require.NoError(t, err)

		if s.BeforeTestFunc != nil {
			s.BeforeTestFunc(t, testApp)
		}

		rec := httptest.NewRecorder()
		testApp.App.Routes().ServeHTTP(rec, req)

		res := rec.Result()
		defer res.Body.Close()

		assert.Equal(t, s.ExpectedStatus, res.StatusCode)

		if s.ExpectedResponse != "" {
			compareResponse(t, res.Body, s.ExpectedResponse)
		}

		if s.AfterTestFunc != nil {
			s.AfterTestFunc(t, testApp, res)
		}
	})
}
