package prefs

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipIntegrationTests = "VIGIL_SKIP_INTEGRATION_TESTS"

// PgStoreSuite is a test suite for the PostgreSQL preference store.
type PgStoreSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	store       Store
	logger      *slog.Logger
	ctx         context.Context
}

// SetupSuite starts a PostgreSQL container, applies migrations and builds the store.
func (s *PgStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dbName := "vigil_db"
	dbUser := "user"
	dbPassword := "password"

	// 1. Start a PostgreSQL container. Wait for the container to be ready.
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
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

	// 2. Get the connection string from the container
	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	// 3. Create a new pgxpool instance using the connection string
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

	// 4. Database migration
	wd, _ := os.Getwd()
	migrationsPath := filepath.Join(wd, "../../../deploy/migrations/vigil")
	sourceURL := "file://" + migrationsPath
	m, err := migrate.New(sourceURL, connStr)
	require.NoError(s.T(), err, "Failed to create migrate instance")
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(s.T(), err, "Failed to apply migrations")
	}
	s.logger.Info("Migrations applied")

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

func (s *PgStoreSuite) Test_SetGetDelete() {
	key := Key{Namespace: NamespaceAvatar, UserID: "alice@x.com"}

	// get before set
	_, err := s.store.Get(s.ctx, key)
	assert.ErrorIs(s.T(), err, ErrNotFound)

	// set and get
	require.NoError(s.T(), s.store.Set(s.ctx, key, "url-A"))
	got, err := s.store.Get(s.ctx, key)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "url-A", got)

	// overwrite
	require.NoError(s.T(), s.store.Set(s.ctx, key, "url-B"))
	got, err = s.store.Get(s.ctx, key)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "url-B", got)

	// delete, then get
	require.NoError(s.T(), s.store.Delete(s.ctx, key))
	_, err = s.store.Get(s.ctx, key)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *PgStoreSuite) Test_PerUserIsolation() {
	alice := Key{Namespace: NamespaceAvatar, UserID: "alice@isolation.test"}
	bob := Key{Namespace: NamespaceAvatar, UserID: "bob@isolation.test"}

	require.NoError(s.T(), s.store.Set(s.ctx, alice, "url-A"))
	require.NoError(s.T(), s.store.Set(s.ctx, bob, "url-B"))

	got, err := s.store.Get(s.ctx, alice)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "url-A", got)
}

func TestPgStoreSuite(t *testing.T) {
	if os.Getenv(skipIntegrationTests) != "" {
		t.Skipf("skipping integration tests: %s is set", skipIntegrationTests)
	}
	suite.Run(t, new(PgStoreSuite))
}
