package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the events and reservations tables when they do
// not exist yet.  It is called once at startup and is idempotent, so
// restarting the service against an initialised database is safe.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			event_id        VARCHAR(64)  NOT NULL,
			name            VARCHAR(255) NOT NULL,
			total_seats     INT          NOT NULL,
			available_seats INT          NOT NULL,
			version         BIGINT       NOT NULL DEFAULT 0,
			created_at      DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			PRIMARY KEY (event_id),
			CONSTRAINT chk_available_seats CHECK (available_seats >= 0 AND available_seats <= total_seats)
		)`,
		`CREATE TABLE IF NOT EXISTS reservations (
			reservation_id VARCHAR(36)  NOT NULL,
			event_id       VARCHAR(64)  NOT NULL,
			partner_id     VARCHAR(255) NOT NULL,
			seats          INT          NOT NULL,
			status         VARCHAR(16)  NOT NULL DEFAULT 'confirmed',
			created_at     DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (reservation_id),
			KEY idx_reservations_event (event_id)
		)`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
