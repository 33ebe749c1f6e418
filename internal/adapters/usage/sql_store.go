package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/core"
)

// queries holds the dialect-specific statements of a SQL-backed store
type queries struct {
	schema []string
	get    string
	insert string
	update string
}

// SQLStore is a database/sql implementation of the UsageRepository interface.
// The users table keeps one row per user.
type SQLStore struct {
	db      *sql.DB
	logger  *zap.Logger
	driver  string
	queries queries
}

func newSQLStore(db *sql.DB, driver string, q queries, logger *zap.Logger) (*SQLStore, error) {
	for _, stmt := range q.schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create %s schema: %w", driver, err)
		}
	}

	return &SQLStore{
		db:      db,
		logger:  logger,
		driver:  driver,
		queries: q,
	}, nil
}

// Get retrieves the usage record for a user
func (s *SQLStore) Get(ctx context.Context, userID string) (*core.UsageRecord, error) {
	record := core.UsageRecord{UserID: userID}

	err := s.db.QueryRowContext(ctx, s.queries.get, userID).
		Scan(&record.DailyProcessedCount, &record.LastProcessedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}

	return &record, nil
}

// Insert stores a new usage record
func (s *SQLStore) Insert(ctx context.Context, record *core.UsageRecord) error {
	_, err := s.db.ExecContext(ctx, s.queries.insert,
		record.UserID, record.DailyProcessedCount, record.LastProcessedDate)
	if err != nil {
		return fmt.Errorf("failed to insert usage: %w", err)
	}

	s.logger.Debug("Inserted usage record",
		zap.String("driver", s.driver),
		zap.String("user_id", record.UserID))
	return nil
}

// Update overwrites an existing usage record
func (s *SQLStore) Update(ctx context.Context, record *core.UsageRecord) error {
	result, err := s.db.ExecContext(ctx, s.queries.update,
		record.DailyProcessedCount, record.LastProcessedDate, record.UserID)
	if err != nil {
		return fmt.Errorf("failed to update usage: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during update", zap.Error(err))
		return nil
	}
	if rowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Ping checks the database connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close %s database: %w", s.driver, err)
	}
	return nil
}
