package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/anime-shed/stripreader/pkg/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS test_results (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL DEFAULT '',
	test_date         INTEGER NOT NULL,
	result            TEXT NOT NULL,
	message           TEXT NOT NULL,
	color             TEXT NOT NULL,
	confidence        REAL,
	control_intensity REAL NOT NULL DEFAULT 0,
	test_intensity    REAL NOT NULL DEFAULT 0,
	image_ref         TEXT NOT NULL DEFAULT '',
	profile           TEXT NOT NULL DEFAULT '',
	created_at        INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_test_results_user_date ON test_results(user_id, test_date)`,
}

const selectColumns = `SELECT id, user_id, test_date, result, message, color, confidence,
	control_intensity, test_intensity, image_ref, profile, created_at FROM test_results`

// OpenDB opens a SQLite database with WAL journaling and a busy timeout
func OpenDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; pragmas are per connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// sqliteTestResultRepository implements TestResultRepository on SQLite
type sqliteTestResultRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteTestResultRepository opens (or creates) the database at path and
// ensures the schema exists.
func NewSQLiteTestResultRepository(path string) (TestResultRepository, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &sqliteTestResultRepository{db: db, now: time.Now}, nil
}

func (r *sqliteTestResultRepository) Save(ctx context.Context, rec *models.TestRecord) error {
	if rec == nil {
		return fmt.Errorf("save test result: nil record")
	}
	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate id: %w", err)
		}
		rec.ID = id.String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}

	var confidence sql.NullFloat64
	if rec.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *rec.Confidence, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO test_results
		(id, user_id, test_date, result, message, color, confidence,
		 control_intensity, test_intensity, image_ref, profile, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Date.UnixNano(), rec.Result, rec.Message, rec.Color, confidence,
		rec.ControlIntensity, rec.TestIntensity, rec.ImageRef, rec.Profile, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save test result: %w", err)
	}
	return nil
}

func (r *sqliteTestResultRepository) GetByID(ctx context.Context, id string) (*models.TestRecord, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTestResultNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load test result: %w", err)
	}
	return rec, nil
}

// ListByUser returns every record when userID is empty
func (r *sqliteTestResultRepository) ListByUser(ctx context.Context, userID string) ([]*models.TestRecord, error) {
	query := selectColumns
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY test_date DESC, created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list test results: %w", err)
	}
	defer rows.Close()

	records := []*models.TestRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test result: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list test results: %w", err)
	}
	return records, nil
}

func (r *sqliteTestResultRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.TestRecord, error) {
	var (
		rec        models.TestRecord
		testDate   int64
		createdAt  int64
		confidence sql.NullFloat64
	)
	err := s.Scan(&rec.ID, &rec.UserID, &testDate, &rec.Result, &rec.Message, &rec.Color, &confidence,
		&rec.ControlIntensity, &rec.TestIntensity, &rec.ImageRef, &rec.Profile, &createdAt)
	if err != nil {
		return nil, err
	}
	rec.Date = time.Unix(0, testDate).UTC()
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	if confidence.Valid {
		c := confidence.Float64
		rec.Confidence = &c
	}
	return &rec, nil
}
