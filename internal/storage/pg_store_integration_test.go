package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipIntegrationTests = "STOREFRONT_SKIP_INTEGRATION_TESTS"

// PgStoreSuite is a test suite for the PostgreSQL Storage implementation.
type PgStoreSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	store       Storage
	logger      *slog.Logger
	ctx         context.Context
}

// SetupSuite starts a PostgreSQL container and applies the embedded migrations.
func (s *PgStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgxpool")

	for i := range 10 {
		s.logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		err = s.dbPool.Ping(s.ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	require.NoError(s.T(), Migrate(connStr), "Failed to apply migrations")
	// a second run must be a no-op
	require.NoError(s.T(), Migrate(connStr), "Re-applying migrations should not fail")

	s.store = NewPgStore(s.dbPool)
}

// TearDownSuite cleans up resources after all tests in the suite have run.
func (s *PgStoreSuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		}
	}
}

// SetupTest empties the items table before each test.
func (s *PgStoreSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE storefront_items")
	require.NoError(s.T(), err, "Failed to truncate storefront_items table")
}

// TestPgStoreIntegration runs the PgStore integration tests.
func TestPgStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(PgStoreSuite))
}

func (s *PgStoreSuite) TestGetItem_NotFound() {
	_, err := s.store.GetItem(s.ctx, "session:a:cart")
	s.Require().ErrorIs(err, ErrNotFound)
}

func (s *PgStoreSuite) TestSetAndGetItem() {
	s.Require().NoError(s.store.SetItem(s.ctx, "session:a:cart", []byte(`[{"id":"1","quantity":2}]`)))

	got, err := s.store.GetItem(s.ctx, "session:a:cart")

	s.Require().NoError(err)
	s.Equal(`[{"id":"1","quantity":2}]`, string(got))
}

func (s *PgStoreSuite) TestSetItem_Overwrites() {
	s.Require().NoError(s.store.SetItem(s.ctx, "session:a:theme", []byte("light")))
	s.Require().NoError(s.store.SetItem(s.ctx, "session:a:theme", []byte("dark")))

	got, err := s.store.GetItem(s.ctx, "session:a:theme")

	s.Require().NoError(err)
	s.Equal("dark", string(got))
}

func (s *PgStoreSuite) TestSetItem_StoresMalformedBytes() {
	s.Require().NoError(s.store.SetItem(s.ctx, "session:a:cart", []byte("{not json")))

	got, err := s.store.GetItem(s.ctx, "session:a:cart")

	s.Require().NoError(err)
	s.Equal("{not json", string(got))
}

func (s *PgStoreSuite) TestScopedNamespaces() {
	tabA := Scoped(s.store, "session:a")
	tabB := Scoped(s.store, "session:b")
	s.Require().NoError(tabA.SetItem(s.ctx, "orders", []byte(`[]`)))

	_, err := tabB.GetItem(s.ctx, "orders")

	s.Require().ErrorIs(err, ErrNotFound)
}
