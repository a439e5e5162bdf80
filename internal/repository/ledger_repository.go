// Package repository persists the hash ledger: the durable record of which
// image content has already been used for training, and under which label.
// The ledger must survive restarts; everything else in the engine is
// intentionally process-lifetime only.
package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/lewtec/triador/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open opens (or creates) the ledger database and applies pending migrations.
func Open(filename string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("while opening ledger database: %w", err)
	}
	// sqlite allows a single writer; serializing the pool avoids busy errors.
	db.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate brings the ledger schema up to date from the embedded migrations.
func Migrate(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("while loading embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("while preparing migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("while preparing migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("while applying migrations: %w", err)
	}
	return nil
}

// LedgerRepository implements domain.LedgerRepository on sqlite.
type LedgerRepository struct {
	db *sql.DB
}

// NewLedgerRepository creates a ledger repository over an open database.
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Get retrieves a training record by content hash, or nil if absent.
func (r *LedgerRepository) Get(ctx context.Context, contentHash string) (*domain.TrainingRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT content_hash, category, trained_at FROM training_records WHERE content_hash = ?",
		contentHash)
	var rec domain.TrainingRecord
	err := row.Scan(&rec.ContentHash, &rec.Category, &rec.TrainedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("while reading ledger entry: %w", err)
	}
	return &rec, nil
}

// Put creates or updates the record for a content hash.
func (r *LedgerRepository) Put(ctx context.Context, contentHash, category string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO training_records (content_hash, category)
VALUES (?, ?)
ON CONFLICT(content_hash)
DO UPDATE SET category = excluded.category, trained_at = CURRENT_TIMESTAMP`,
		contentHash, category)
	if err != nil {
		return fmt.Errorf("while upserting ledger entry: %w", err)
	}
	return nil
}

// Snapshot returns the full ledger as a content hash to category map.
func (r *LedgerRepository) Snapshot(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT content_hash, category FROM training_records")
	if err != nil {
		return nil, fmt.Errorf("while reading ledger: %w", err)
	}
	defer rows.Close()
	snapshot := make(map[string]string)
	for rows.Next() {
		var hash, category string
		if err := rows.Scan(&hash, &category); err != nil {
			return nil, fmt.Errorf("while scanning ledger entry: %w", err)
		}
		snapshot[hash] = category
	}
	return snapshot, rows.Err()
}

// Replace atomically swaps the whole ledger for the given records. Used after
// a full initial fit, where the labeled set is the new ground truth.
func (r *LedgerRepository) Replace(ctx context.Context, records []domain.TrainingRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("while starting ledger replace: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM training_records"); err != nil {
		return fmt.Errorf("while clearing ledger: %w", err)
	}
	for _, rec := range records {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO training_records (content_hash, category) VALUES (?, ?)",
			rec.ContentHash, rec.Category)
		if err != nil {
			return fmt.Errorf("while inserting ledger entry: %w", err)
		}
	}
	return tx.Commit()
}

// Count returns the number of ledger entries.
func (r *LedgerRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM training_records").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("while counting ledger entries: %w", err)
	}
	return count, nil
}

// Verify that LedgerRepository implements domain.LedgerRepository
var _ domain.LedgerRepository = (*LedgerRepository)(nil)
