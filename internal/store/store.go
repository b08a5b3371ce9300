// Package store provides storage backends for ADC Navigator.
//
// It holds the durable lead repository, the unanswered-question log and the
// inbound dedup table (SQLite, PostgreSQL or in-memory), plus the volatile
// per-user dialog session stores (in-memory or Redis).
package store

import (
	"context"
	"strings"

	"github.com/MiringGroup/ADCNavigator/internal/models"
)

// LeadRepo persists completed dialog records keyed by user id.
type LeadRepo interface {
	// UpsertLead writes rec, replacing any prior record for the same user.
	// The earliest first-contact timestamp is preserved.
	UpsertLead(ctx context.Context, rec models.LeadRecord) error
	// LeadExists reports whether a record has been written for userID.
	LeadExists(ctx context.Context, userID int64) (bool, error)
	// GetLead returns the record for userID, or nil if none exists.
	GetLead(ctx context.Context, userID int64) (*models.LeadRecord, error)
	// ListLeads returns the most recently completed records first.
	ListLeads(ctx context.Context, limit int) ([]models.LeadRecord, error)
}

// UnansweredRepo is an append-only log of free-text questions nobody answered.
type UnansweredRepo interface {
	AddUnanswered(ctx context.Context, q models.UnansweredQuestion) error
	// ListUnanswered returns the newest entries first.
	ListUnanswered(ctx context.Context, limit int) ([]models.UnansweredQuestion, error)
}

// Store is the durable backend shared by the engine, router and API.
type Store interface {
	LeadRepo
	UnansweredRepo
	DedupRepo
	Close() error
}

// Opts holds configuration for durable stores.
type Opts struct {
	DSN string
}

// Option defines a configuration option for durable stores.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DSN types returned by DetectDSNType.
const (
	DSNTypePostgres = "postgres"
	DSNTypeSQLite   = "sqlite3"
)

// DetectDSNType tells PostgreSQL connection strings apart from SQLite file paths.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DSNTypePostgres
	}
	// libpq key=value form, e.g. "host=localhost dbname=adc"
	if strings.Contains(lower, " ") && (strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") || strings.Contains(lower, "user=")) {
		return DSNTypePostgres
	}
	return DSNTypeSQLite
}

// Open creates the durable store matching the DSN type.
func Open(dsn string) (Store, error) {
	if DetectDSNType(dsn) == DSNTypePostgres {
		return NewPostgresStore(WithPostgresDSN(dsn))
	}
	return NewSQLiteStore(WithSQLiteDSN(dsn))
}

// Compile-time checks.
var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*InMemoryStore)(nil)
)
