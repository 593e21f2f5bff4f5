//go:build integration

package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "locador_counting_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    // Run tests
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "locador_counting_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// CreateCountingSchema creates the counting tables used by the repositories
func (c *PostgresContainer) CreateCountingSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS inventories (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			code VARCHAR(50) UNIQUE NOT NULL,
			status VARCHAR(30) NOT NULL DEFAULT 'planning',
			location_ids TEXT[] NOT NULL DEFAULT '{}',
			category_ids TEXT[] NOT NULL DEFAULT '{}',
			started_at TIMESTAMPTZ,
			predicted_at TIMESTAMPTZ,
			ended_at TIMESTAMPTZ,
			migrated_at TIMESTAMPTZ,
			created_by UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS inventory_items (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			inventory_id UUID NOT NULL REFERENCES inventories(id),
			product_id UUID NOT NULL,
			location_id UUID NOT NULL,
			serial_controlled BOOLEAN NOT NULL DEFAULT FALSE,
			expected_quantity INTEGER NOT NULL DEFAULT 0,
			count1 INTEGER,
			count2 INTEGER,
			count3 INTEGER,
			count4 INTEGER,
			final_quantity INTEGER,
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			version INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (inventory_id, product_id, location_id)
		);

		CREATE TABLE IF NOT EXISTS inventory_serial_items (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			inventory_id UUID NOT NULL REFERENCES inventories(id),
			serial_number VARCHAR(100) NOT NULL,
			product_id UUID NOT NULL,
			location_id UUID NOT NULL,
			expected BOOLEAN NOT NULL DEFAULT TRUE,
			count1_found BOOLEAN, count1_by UUID, count1_at TIMESTAMPTZ,
			count2_found BOOLEAN, count2_by UUID, count2_at TIMESTAMPTZ,
			count3_found BOOLEAN, count3_by UUID, count3_at TIMESTAMPTZ,
			count4_found BOOLEAN, count4_by UUID, count4_at TIMESTAMPTZ,
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			final_status BOOLEAN,
			version INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (inventory_id, serial_number)
		);

		CREATE INDEX IF NOT EXISTS idx_items_inventory ON inventory_items(inventory_id);
		CREATE INDEX IF NOT EXISTS idx_serials_inventory ON inventory_serial_items(inventory_id);
		CREATE INDEX IF NOT EXISTS idx_serials_status ON inventory_serial_items(inventory_id, status);
	`

	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create counting schema: %w", err)
	}

	return nil
}
