package config

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	// Create users table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(255) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			balance BIGINT NOT NULL CHECK (balance >= 0)
		)
	`)
	if err != nil {
		return err
	}

	// Create bids table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS bids (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			amount BIGINT NOT NULL CHECK (amount > 0),
			created_at BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL,
			profit BIGINT NOT NULL DEFAULT 0,
			item_title VARCHAR(255) NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_bids_status ON bids(status)",
		"CREATE INDEX IF NOT EXISTS idx_bids_user_id ON bids(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_users_balance ON users(balance DESC)",
	}

	for _, idx := range indexes {
		if _, err = db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}
