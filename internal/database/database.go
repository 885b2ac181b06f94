package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/tigercode/backend/internal/config"
)

func Connect(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func Migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id              BIGSERIAL PRIMARY KEY,
		email           VARCHAR(255) UNIQUE NOT NULL,
		name            VARCHAR(255) NOT NULL,
		password        VARCHAR(255),
		google_id       VARCHAR(255) UNIQUE,
		profile_picture TEXT,
		role            VARCHAR(10) NOT NULL DEFAULT 'user',
		created_at      TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at      TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS patterns (
		id                     BIGSERIAL PRIMARY KEY,
		pattern_id             VARCHAR(100) UNIQUE NOT NULL,
		title                  VARCHAR(255) NOT NULL,
		description            TEXT NOT NULL,
		icon                   VARCHAR(100) NOT NULL DEFAULT '',
		use_cases              JSONB NOT NULL DEFAULT '[]',
		algorithmic_background TEXT NOT NULL DEFAULT '',
		examples               JSONB NOT NULL DEFAULT '[]',
		created_at             TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS quiz_questions (
		id             BIGSERIAL PRIMARY KEY,
		question_id    VARCHAR(100) UNIQUE NOT NULL,
		question       TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		options        JSONB NOT NULL DEFAULT '[]',
		correct_answer VARCHAR(100) NOT NULL,
		explanation    TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS diagnostic_questions (
		id             BIGSERIAL PRIMARY KEY,
		question_id    VARCHAR(100) UNIQUE NOT NULL,
		question       TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		options        JSONB NOT NULL DEFAULT '[]',
		correct_answer VARCHAR(100) NOT NULL,
		explanation    TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS user_progress (
		user_id    BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		doc        JSONB NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Idempotent column additions for databases created before these columns existed
	alterStatements := []string{
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS google_id VARCHAR(255) UNIQUE`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS profile_picture TEXT`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS role VARCHAR(10) NOT NULL DEFAULT 'user'`,
	}
	for _, stmt := range alterStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("alter table failed: %w", err)
		}
	}

	newIndexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_users_google ON users(google_id) WHERE google_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_patterns_pattern_id ON patterns(pattern_id)`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_question_id ON quiz_questions(question_id)`,
		`CREATE INDEX IF NOT EXISTS idx_diagnostic_question_id ON diagnostic_questions(question_id)`,
	}
	for _, stmt := range newIndexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create index failed: %w", err)
		}
	}

	return nil
}
