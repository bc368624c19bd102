// internal/db/db.go
package db

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to Postgres and verifies the connection. The caller owns
// the handle and closes it on shutdown; there is no package-level global.
func Open(dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(20)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}
