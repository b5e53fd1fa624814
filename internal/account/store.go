package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/vardakademi/gdprguard/internal/config"
	"github.com/vardakademi/gdprguard/internal/escalation"
	"go.uber.org/zap"
)

// Store persists per-account violation counters and lock state in PostgreSQL.
type Store struct {
	db        *sqlx.DB
	threshold int
	logger    *zap.Logger
}

// Account is a row in the accounts table. Only the fields the guard owns are
// modeled here; profile data belongs to the platform backend.
type Account struct {
	ID             string       `db:"id"`
	ViolationCount int          `db:"violation_count"`
	LockedAt       sql.NullTime `db:"locked_at"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id              TEXT PRIMARY KEY,
	violation_count INTEGER NOT NULL DEFAULT 0,
	locked_at       TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewStore creates a new account store instance
func NewStore(cfg *config.DatabaseConfig, threshold int, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	store := &Store{
		db:        db,
		threshold: threshold,
		logger:    logger,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("Account store initialized successfully",
		zap.String("database_url", maskDatabaseURL(cfg.URL)),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("violation_threshold", threshold))

	return store, nil
}

// initialize checks the database connection and ensures the accounts table
func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure accounts table: %w", err)
	}

	return nil
}

// CreateAccount inserts a fresh account with a zero violation counter.
func (s *Store) CreateAccount(ctx context.Context, userID string) error {
	query := `INSERT INTO accounts (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// IncrementViolation atomically adds one to the account's counter. The UPDATE
// is a single read-modify-write inside the database, so concurrent
// submissions from several tabs cannot lose an increment. When the new count
// reaches the threshold the account is locked in the same transaction;
// lockedNow is true only for the call that crossed the line.
func (s *Store) IncrementViolation(ctx context.Context, userID string) (int, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	err = tx.QueryRowContext(ctx,
		`UPDATE accounts
		 SET violation_count = violation_count + 1, updated_at = now()
		 WHERE id = $1 AND locked_at IS NULL
		 RETURNING violation_count`,
		userID,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the account is already locked or it does not exist.
		locked, lookupErr := s.isLockedTx(ctx, tx, userID)
		if lookupErr != nil {
			return 0, false, lookupErr
		}
		if locked {
			return 0, false, escalation.ErrAccountLocked
		}
		return 0, false, escalation.ErrAccountNotFound
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment violation count: %w", err)
	}

	lockedNow := false
	if count >= s.threshold {
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET locked_at = now(), updated_at = now() WHERE id = $1`,
			userID,
		); err != nil {
			return 0, false, fmt.Errorf("failed to lock account: %w", err)
		}
		lockedNow = true
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit violation: %w", err)
	}

	s.logger.Debug("Violation counter incremented",
		zap.String("user_id", userID),
		zap.Int("violation_count", count),
		zap.Bool("locked_now", lockedNow))

	return count, lockedNow, nil
}

// DeleteAccount irreversibly removes the account row.
func (s *Store) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	s.logger.Info("Account deleted", zap.String("user_id", userID))
	return nil
}

// IsLocked reports whether the account is locked. A deleted account counts as
// locked: its counter reached the threshold before the row was removed.
func (s *Store) IsLocked(ctx context.Context, userID string) (bool, error) {
	var lockedAt sql.NullTime
	err := s.db.GetContext(ctx, &lockedAt, `SELECT locked_at FROM accounts WHERE id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read lock state: %w", err)
	}
	return lockedAt.Valid, nil
}

// Get returns the account row, for diagnostics.
func (s *Store) Get(ctx context.Context, userID string) (*Account, error) {
	var acc Account
	err := s.db.GetContext(ctx, &acc, `SELECT id, violation_count, locked_at, created_at, updated_at FROM accounts WHERE id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, escalation.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return &acc, nil
}

// isLockedTx is IsLocked inside an open transaction.
func (s *Store) isLockedTx(ctx context.Context, tx *sqlx.Tx, userID string) (bool, error) {
	var lockedAt sql.NullTime
	err := tx.GetContext(ctx, &lockedAt, `SELECT locked_at FROM accounts WHERE id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read lock state: %w", err)
	}
	return lockedAt.Valid, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// maskDatabaseURL masks credentials in a database URL for logging
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				userParts[len(userParts)-1] = "***"
				parts[0] = strings.Join(userParts, ":")
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
