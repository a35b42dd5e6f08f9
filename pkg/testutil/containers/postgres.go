//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// warehouse schema matching the extract queries.
const warehouseSchema = `
CREATE TABLE dwh_patient (
	patient_id   text,
	display_name text,
	birth_date   timestamptz,
	observed_at  timestamptz
);
CREATE TABLE dwh_document (
	document_id   text,
	origin_code   text,
	document_type text,
	title         text,
	patient_id    text,
	created_at    timestamptz,
	modified_at   timestamptz,
	uploaded_at   timestamptz
);
CREATE TABLE dwh_user (
	user_id   text PRIMARY KEY,
	firstname text,
	lastname  text
);
CREATE TABLE dwh_log_query (
	user_id  text,
	log_date timestamptz
);
`

// PostgresContainer wraps a testcontainers Postgres instance with the
// warehouse schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container, applies the warehouse
// schema, and returns a connected handle.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("dwh"),
		tcpostgres.WithUsername("dwh"),
		tcpostgres.WithPassword("dwh"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, warehouseSchema); err != nil {
		t.Fatalf("apply warehouse schema: %v", err)
	}

	return &PostgresContainer{Container: container, DSN: dsn, DB: db}
}

// Truncate empties every warehouse table, for isolation between tests.
func (p *PostgresContainer) Truncate(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, "TRUNCATE dwh_patient, dwh_document, dwh_user, dwh_log_query")
	return err
}
