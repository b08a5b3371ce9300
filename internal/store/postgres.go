// Package store provides storage backends for ADC Navigator.
//
// This file implements a PostgreSQL-backed store for leads, unanswered questions and dedup records.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/MiringGroup/ADCNavigator/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	slog.Debug("Postgres ping successful")

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// UpsertLead stores or replaces the lead record for a user.
func (s *PostgresStore) UpsertLead(ctx context.Context, rec models.LeadRecord) error {
	if rec.UserID <= 0 {
		return models.ErrInvalidUserID
	}
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		slog.Error("PostgresStore UpsertLead JSON marshal failed", "error", err, "userID", rec.UserID)
		return fmt.Errorf("failed to marshal lead %d: %w", rec.UserID, err)
	}

	query := `
		INSERT INTO leads (user_id, dialog_kind, completed, first_contact_at, completed_at, record, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			dialog_kind = EXCLUDED.dialog_kind,
			completed = EXCLUDED.completed,
			first_contact_at = LEAST(leads.first_contact_at, EXCLUDED.first_contact_at),
			completed_at = EXCLUDED.completed_at,
			record = EXCLUDED.record,
			updated_at = EXCLUDED.updated_at`

	_, err = s.db.ExecContext(ctx, query, rec.UserID, string(rec.DialogKind), rec.Completed,
		rec.FirstContact, rec.CompletedAt, string(recordJSON))
	if err != nil {
		slog.Error("PostgresStore UpsertLead failed", "error", err, "userID", rec.UserID)
		return fmt.Errorf("failed to upsert lead %d: %w", rec.UserID, err)
	}
	slog.Debug("PostgresStore UpsertLead succeeded", "userID", rec.UserID, "dialogKind", rec.DialogKind)
	return nil
}

// LeadExists reports whether a lead has been stored for userID.
func (s *PostgresStore) LeadExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM leads WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		slog.Error("PostgresStore LeadExists failed", "error", err, "userID", userID)
		return false, fmt.Errorf("failed to check lead %d: %w", userID, err)
	}
	return exists, nil
}

// GetLead retrieves the lead for userID, or nil when none exists.
func (s *PostgresStore) GetLead(ctx context.Context, userID int64) (*models.LeadRecord, error) {
	var recordJSON []byte
	var firstContact time.Time
	err := s.db.QueryRowContext(ctx, `SELECT record, first_contact_at FROM leads WHERE user_id = $1`, userID).
		Scan(&recordJSON, &firstContact)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetLead not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetLead failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get lead %d: %w", userID, err)
	}
	return decodeLead(recordJSON, firstContact)
}

// ListLeads returns up to limit leads, most recently completed first.
func (s *PostgresStore) ListLeads(ctx context.Context, limit int) ([]models.LeadRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record, first_contact_at FROM leads ORDER BY completed_at DESC LIMIT $1`, normalizeLimit(limit))
	if err != nil {
		slog.Error("PostgresStore ListLeads query failed", "error", err)
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []models.LeadRecord
	for rows.Next() {
		var recordJSON []byte
		var firstContact time.Time
		if err := rows.Scan(&recordJSON, &firstContact); err != nil {
			slog.Error("PostgresStore ListLeads scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan lead row: %w", err)
		}
		rec, err := decodeLead(recordJSON, firstContact)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListLeads rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate lead rows: %w", err)
	}
	return leads, nil
}

// AddUnanswered appends a question to the unanswered log.
func (s *PostgresStore) AddUnanswered(ctx context.Context, q models.UnansweredQuestion) error {
	identityJSON, err := json.Marshal(q.Identity)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO unanswered_questions (user_id, identity, body, asked_at) VALUES ($1, $2, $3, $4)`,
		q.UserID, string(identityJSON), q.Text, q.AskedAt)
	if err != nil {
		slog.Error("PostgresStore AddUnanswered failed", "error", err, "userID", q.UserID)
		return fmt.Errorf("failed to insert unanswered question from %d: %w", q.UserID, err)
	}
	return nil
}

// ListUnanswered returns up to limit logged questions, newest first.
func (s *PostgresStore) ListUnanswered(ctx context.Context, limit int) ([]models.UnansweredQuestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, identity, body, asked_at FROM unanswered_questions ORDER BY id DESC LIMIT $1`, normalizeLimit(limit))
	if err != nil {
		slog.Error("PostgresStore ListUnanswered query failed", "error", err)
		return nil, fmt.Errorf("failed to query unanswered questions: %w", err)
	}
	defer rows.Close()

	var out []models.UnansweredQuestion
	for rows.Next() {
		var q models.UnansweredQuestion
		var identityJSON []byte
		if err := rows.Scan(&q.ID, &q.UserID, &identityJSON, &q.Text, &q.AskedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unanswered row: %w", err)
		}
		decodeIdentity(identityJSON, &q)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unanswered rows: %w", err)
	}
	return out, nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close PostgreSQL database", "error", err)
	} else {
		slog.Debug("PostgreSQL database connection closed successfully")
	}
	return err
}
