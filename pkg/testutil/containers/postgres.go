// Package containers manages shared test containers for integration tests.
// Containers are started once per test binary and reused across suites.
package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// TestingT is the subset of *testing.T the manager needs.
type TestingT interface {
	Fatalf(format string, args ...any)
}

// schema mirrors the production tables. Schema provisioning is owned by the
// deployment; tests create just enough to exercise the stores.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	role TEXT NOT NULL,
	approved BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS proposals (
	id BIGSERIAL PRIMARY KEY,
	uuid UUID NOT NULL UNIQUE,
	submitter_id BIGINT NOT NULL,
	organization TEXT NOT NULL DEFAULT '',
	contact_name TEXT NOT NULL DEFAULT '',
	contact_email TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	event_date TIMESTAMPTZ,
	proposal_status TEXT NOT NULL,
	report_status TEXT NOT NULL,
	event_status TEXT NOT NULL,
	admin_comments TEXT NOT NULL DEFAULT '',
	reviewer_id BIGINT,
	submitted_at TIMESTAMPTZ,
	reviewed_at TIMESTAMPTZ,
	approved_at TIMESTAMPTZ,
	deleted BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id BIGSERIAL PRIMARY KEY,
	proposal_id BIGINT NOT NULL,
	proposal_uuid UUID NOT NULL,
	action_type TEXT NOT NULL,
	actor_id BIGINT NOT NULL,
	old_values TEXT NOT NULL DEFAULT '',
	new_values TEXT NOT NULL DEFAULT '',
	note TEXT NOT NULL DEFAULT '',
	additional_info JSONB,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id BIGSERIAL PRIMARY KEY,
	uuid UUID NOT NULL UNIQUE,
	recipient_id BIGINT NOT NULL,
	sender_id BIGINT,
	type TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	message TEXT NOT NULL,
	priority TEXT NOT NULL,
	status TEXT NOT NULL,
	related_proposal_id BIGINT,
	related_proposal_uuid UUID,
	metadata JSONB,
	tags TEXT[],
	expires_at TIMESTAMPTZ,
	delivered_at TIMESTAMPTZ,
	read_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS notification_preferences (
	user_id BIGINT NOT NULL,
	type TEXT NOT NULL,
	in_app BOOLEAN NOT NULL DEFAULT TRUE,
	email BOOLEAN NOT NULL DEFAULT FALSE,
	sms BOOLEAN NOT NULL DEFAULT FALSE,
	push BOOLEAN NOT NULL DEFAULT FALSE,
	frequency TEXT NOT NULL DEFAULT 'immediate',
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, type)
);
`

// PostgresContainer wraps a started postgres container and its DB handle.
type PostgresContainer struct {
	DB  *sql.DB
	dsn string
}

// TruncateTables truncates the given tables, resetting identities.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	_, err := p.DB.ExecContext(ctx,
		fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", ")))
	return err
}

// Manager holds the shared containers.
type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
	redisURL string
}

var manager = &Manager{}

// GetManager returns the process-wide container manager.
func GetManager() *Manager { return manager }

// GetPostgres starts (once) and returns the shared postgres container with
// the schema applied.
func (m *Manager) GetPostgres(t TestingT) *PostgresContainer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.postgres != nil {
		return m.postgres
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("eventdesk_test"),
		tcpostgres.WithUsername("eventdesk"),
		tcpostgres.WithPassword("eventdesk"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	m.postgres = &PostgresContainer{DB: db, dsn: dsn}
	return m.postgres
}

// GetRedisURL starts (once) and returns the shared redis container's URL.
func (m *Manager) GetRedisURL(t TestingT) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.redisURL != "" {
		return m.redisURL
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine",
		tcredis.WithSnapshotting(0, 0),
	)
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("redis connection string: %v", err)
	}
	m.redisURL = url
	return m.redisURL
}
