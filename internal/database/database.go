package database

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

func Connect() (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "itembank_user")
	password := getEnv("DB_PASSWORD", "itembank_password")
	dbname := getEnv("DB_NAME", "itembank")
	sslmode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	db, err := sql.Open("postgres", dsn)
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
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS items (
		id                      BIGSERIAL PRIMARY KEY,
		name                    VARCHAR(100) NOT NULL,
		form                    VARCHAR(50) NOT NULL,
		model                   VARCHAR(20) NOT NULL DEFAULT 'gpcm2',
		discrimination          DOUBLE PRECISION NOT NULL DEFAULT 1.0,
		discrimination_se       DOUBLE PRECISION NOT NULL DEFAULT 0.0,
		difficulty              DOUBLE PRECISION NOT NULL DEFAULT 0.0,
		difficulty_se           DOUBLE PRECISION NOT NULL DEFAULT 0.0,
		thresholds              DOUBLE PRECISION[] NOT NULL,
		threshold_ses           DOUBLE PRECISION[] NOT NULL,
		scaling_constant        DOUBLE PRECISION NOT NULL DEFAULT 1.7,
		score_weights           DOUBLE PRECISION[],
		proposal_discrimination DOUBLE PRECISION,
		proposal_difficulty     DOUBLE PRECISION,
		proposal_thresholds     DOUBLE PRECISION[],
		is_fixed                BOOLEAN NOT NULL DEFAULT FALSE,
		created_at              TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at              TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(form, name)
	);

	CREATE INDEX IF NOT EXISTS idx_items_form ON items(form);
	CREATE INDEX IF NOT EXISTS idx_items_model ON items(model);
	`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Idempotent column additions for databases created before the
	// proposal staging columns existed.
	alterStatements := []string{
		`ALTER TABLE items ADD COLUMN IF NOT EXISTS proposal_discrimination DOUBLE PRECISION`,
		`ALTER TABLE items ADD COLUMN IF NOT EXISTS proposal_difficulty DOUBLE PRECISION`,
		`ALTER TABLE items ADD COLUMN IF NOT EXISTS proposal_thresholds DOUBLE PRECISION[]`,
		`ALTER TABLE items ADD COLUMN IF NOT EXISTS score_weights DOUBLE PRECISION[]`,
		`ALTER TABLE items ADD COLUMN IF NOT EXISTS is_fixed BOOLEAN NOT NULL DEFAULT FALSE`,
	}
	for _, stmt := range alterStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("alter table failed: %w", err)
		}
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
