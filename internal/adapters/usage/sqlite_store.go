package usage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var sqliteQueries = queries{
	schema: []string{`
		CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			daily_processed_count INTEGER NOT NULL DEFAULT 0,
			last_processed_date TEXT NOT NULL
		)
	`},
	get: `
		SELECT daily_processed_count, last_processed_date
		FROM users
		WHERE user_id = ?
	`,
	insert: `
		INSERT INTO users (user_id, daily_processed_count, last_processed_date)
		VALUES (?, ?, ?)
	`,
	update: `
		UPDATE users
		SET daily_processed_count = ?, last_processed_date = ?
		WHERE user_id = ?
	`,
}

// NewSQLiteStore creates a new SQLite usage store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	return newSQLStore(db, "sqlite", sqliteQueries, logger)
}
