package usage

import (
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

var mysqlQueries = queries{
	schema: []string{`
		CREATE TABLE IF NOT EXISTS users (
			user_id VARCHAR(255) PRIMARY KEY,
			daily_processed_count INT NOT NULL DEFAULT 0,
			last_processed_date VARCHAR(10) NOT NULL
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

// NewMySQLStore creates a new MySQL usage store
func NewMySQLStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	// report matched rather than changed rows so a no-op update is not a miss
	cfg.ClientFoundRows = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	return newSQLStore(db, "mysql", mysqlQueries, logger)
}
