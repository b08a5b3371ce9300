// Package store provides storage backends for ADC Navigator.
//
// This file implements an SQLite-backed store for leads, unanswered questions and dedup records.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	"github.com/MiringGroup/ADCNavigator/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
	// sqliteConnParams enables WAL and waits on a locked database instead of failing
	sqliteConnParams = "_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	slog.Debug("SQLite database directory verified/created", "dir", dir)

	if !strings.Contains(dsn, "?") {
		dsn = dsn + "?" + sqliteConnParams
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	// One writer connection keeps lead upserts strictly serialized at the file level.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}
	slog.Debug("SQLite ping successful")

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// UpsertLead stores or replaces the lead record for a user.
func (s *SQLiteStore) UpsertLead(ctx context.Context, rec models.LeadRecord) error {
	if rec.UserID <= 0 {
		return models.ErrInvalidUserID
	}
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		slog.Error("SQLiteStore UpsertLead JSON marshal failed", "error", err, "userID", rec.UserID)
		return fmt.Errorf("failed to marshal lead %d: %w", rec.UserID, err)
	}

	query := `
		INSERT INTO leads (user_id, dialog_kind, completed, first_contact_at, completed_at, record, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			dialog_kind = excluded.dialog_kind,
			completed = excluded.completed,
			first_contact_at = MIN(leads.first_contact_at, excluded.first_contact_at),
			completed_at = excluded.completed_at,
			record = excluded.record,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query, rec.UserID, string(rec.DialogKind), rec.Completed,
		rec.FirstContact.UnixMilli(), rec.CompletedAt.UnixMilli(), string(recordJSON), time.Now().UnixMilli())
	if err != nil {
		slog.Error("SQLiteStore UpsertLead failed", "error", err, "userID", rec.UserID)
		return fmt.Errorf("failed to upsert lead %d: %w", rec.UserID, err)
	}
	slog.Debug("SQLiteStore UpsertLead succeeded", "userID", rec.UserID, "dialogKind", rec.DialogKind)
	return nil
}

// LeadExists reports whether a lead has been stored for userID.
func (s *SQLiteStore) LeadExists(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM leads WHERE user_id = ?`, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		slog.Error("SQLiteStore LeadExists failed", "error", err, "userID", userID)
		return false, fmt.Errorf("failed to check lead %d: %w", userID, err)
	}
	return true, nil
}

// GetLead retrieves the lead for userID, or nil when none exists.
func (s *SQLiteStore) GetLead(ctx context.Context, userID int64) (*models.LeadRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT record, first_contact_at FROM leads WHERE user_id = ?`, userID)
	var recordJSON string
	var firstContact int64
	err := row.Scan(&recordJSON, &firstContact)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetLead not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetLead failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get lead %d: %w", userID, err)
	}
	rec, err := decodeLead([]byte(recordJSON), time.UnixMilli(firstContact))
	if err != nil {
		slog.Error("SQLiteStore GetLead JSON unmarshal failed", "error", err, "userID", userID)
		return nil, err
	}
	return rec, nil
}

// ListLeads returns up to limit leads, most recently completed first.
func (s *SQLiteStore) ListLeads(ctx context.Context, limit int) ([]models.LeadRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record, first_contact_at FROM leads ORDER BY completed_at DESC LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		slog.Error("SQLiteStore ListLeads query failed", "error", err)
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []models.LeadRecord
	for rows.Next() {
		var recordJSON string
		var firstContact int64
		if err := rows.Scan(&recordJSON, &firstContact); err != nil {
			slog.Error("SQLiteStore ListLeads scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan lead row: %w", err)
		}
		rec, err := decodeLead([]byte(recordJSON), time.UnixMilli(firstContact))
		if err != nil {
			return nil, err
		}
		leads = append(leads, *rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListLeads rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate lead rows: %w", err)
	}
	slog.Debug("SQLiteStore ListLeads succeeded", "count", len(leads))
	return leads, nil
}

// AddUnanswered appends a question to the unanswered log.
func (s *SQLiteStore) AddUnanswered(ctx context.Context, q models.UnansweredQuestion) error {
	identityJSON, err := json.Marshal(q.Identity)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO unanswered_questions (user_id, identity, body, asked_at) VALUES (?, ?, ?, ?)`,
		q.UserID, string(identityJSON), q.Text, q.AskedAt.UnixMilli())
	if err != nil {
		slog.Error("SQLiteStore AddUnanswered failed", "error", err, "userID", q.UserID)
		return fmt.Errorf("failed to insert unanswered question from %d: %w", q.UserID, err)
	}
	slog.Debug("SQLiteStore AddUnanswered succeeded", "userID", q.UserID)
	return nil
}

// ListUnanswered returns up to limit logged questions, newest first.
func (s *SQLiteStore) ListUnanswered(ctx context.Context, limit int) ([]models.UnansweredQuestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, identity, body, asked_at FROM unanswered_questions ORDER BY id DESC LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		slog.Error("SQLiteStore ListUnanswered query failed", "error", err)
		return nil, fmt.Errorf("failed to query unanswered questions: %w", err)
	}
	defer rows.Close()

	var out []models.UnansweredQuestion
	for rows.Next() {
		var q models.UnansweredQuestion
		var identityJSON string
		var askedAt int64
		if err := rows.Scan(&q.ID, &q.UserID, &identityJSON, &q.Text, &askedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unanswered row: %w", err)
		}
		q.AskedAt = time.UnixMilli(askedAt)
		decodeIdentity([]byte(identityJSON), &q)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unanswered rows: %w", err)
	}
	return out, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	} else {
		slog.Debug("SQLite database connection closed successfully")
	}
	return err
}
