package usage

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

var postgresQueries = queries{
	schema: []string{`
		CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			daily_processed_count INTEGER NOT NULL DEFAULT 0,
			last_processed_date DATE NOT NULL
		)
	`},
	get: `
		SELECT daily_processed_count, to_char(last_processed_date, 'YYYY-MM-DD')
		FROM users
		WHERE user_id = $1
	`,
	insert: `
		INSERT INTO users (user_id, daily_processed_count, last_processed_date)
		VALUES ($1, $2, $3::date)
	`,
	update: `
		UPDATE users
		SET daily_processed_count = $1, last_processed_date = $2::date
		WHERE user_id = $3
	`,
}

// NewPostgresStore creates a new PostgreSQL usage store using the pgx driver
func NewPostgresStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	return newSQLStore(db, "postgres", postgresQueries, logger)
}
