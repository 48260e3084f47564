//go:build integration

package containers

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresContainer wraps a testcontainers Postgres instance with both
// database handles the stores use: database/sql for the request, catalog,
// and directory stores and a pgx pool for the outbox store.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
	Pool      *pgxpool.Pool
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("lingkod_test"),
		tcpostgres.WithUsername("lingkod"),
		tcpostgres.WithPassword("lingkod"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to create pgx pool: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		pool.Close()
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// No t.Cleanup here: the container is shared across suites via the
	// Manager singleton and Ryuk terminates it with the test process.
	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
		Pool:      pool,
	}
}

// TruncateTables clears the given tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE")
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS document_types (
	id               uuid PRIMARY KEY,
	name             text NOT NULL,
	base_fee         numeric(12,2) NOT NULL,
	fee_tiers        jsonb NOT NULL DEFAULT '{}',
	exemption_rules  jsonb NOT NULL DEFAULT '{}',
	requirements     jsonb NOT NULL DEFAULT '[]',
	authority_level  text NOT NULL,
	supports_digital boolean NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS residents (
	id                  uuid PRIMARY KEY,
	email               text,
	phone               text,
	email_notifications boolean,
	sms_notifications   boolean
);

CREATE TABLE IF NOT EXISTS resident_special_statuses (
	resident_id uuid NOT NULL REFERENCES residents (id),
	status_type text NOT NULL,
	approved_at timestamptz,
	expires_at  timestamptz,
	PRIMARY KEY (resident_id, status_type)
);

CREATE TABLE IF NOT EXISTS document_requests (
	id                        uuid PRIMARY KEY,
	request_number            text NOT NULL UNIQUE,
	resident_id               uuid NOT NULL,
	document_type_id          uuid NOT NULL,
	municipality_id           uuid NOT NULL,
	barangay_id               uuid NOT NULL,
	delivery_method           text NOT NULL,
	status                    text NOT NULL,
	rejection_reason          text NOT NULL DEFAULT '',
	approved_at               timestamptz,
	ready_at                  timestamptz,
	completed_at              timestamptz,
	purpose_type              text NOT NULL DEFAULT '',
	business_type             text NOT NULL DEFAULT '',
	original_fee              numeric(12,2) NOT NULL,
	applied_exemption         text,
	final_fee                 numeric(12,2) NOT NULL,
	payment_status            text NOT NULL,
	payment_method            text NOT NULL,
	manual_payment_state      text NOT NULL,
	manual_payment_updated_at timestamptz,
	requirements              jsonb NOT NULL DEFAULT '[]',
	claim_code_hash           text NOT NULL DEFAULT '',
	claim_code_encrypted      text NOT NULL DEFAULT '',
	claim_code_masked         text NOT NULL DEFAULT '',
	claim_token_jti           text NOT NULL DEFAULT '',
	claim_token_expiry        timestamptz,
	pickup_window_start       timestamptz,
	pickup_window_end         timestamptz,
	version                   bigint NOT NULL,
	created_at                timestamptz NOT NULL,
	updated_at                timestamptz NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_document_requests_resident
	ON document_requests (resident_id);

CREATE TABLE IF NOT EXISTS notification_outbox (
	id              uuid PRIMARY KEY,
	resident_id     uuid NOT NULL,
	channel         text NOT NULL,
	event_type      text NOT NULL,
	entity_id       text NOT NULL,
	payload         jsonb NOT NULL,
	status          text NOT NULL,
	attempts        integer NOT NULL DEFAULT 0,
	next_attempt_at timestamptz NOT NULL,
	last_error      text NOT NULL DEFAULT '',
	dedupe_key      text NOT NULL UNIQUE,
	created_at      timestamptz NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notification_outbox_due
	ON notification_outbox (next_attempt_at) WHERE status = 'pending';
`
