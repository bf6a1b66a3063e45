package db

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// ConnectDB opens the Postgres connection configured in the environment.
// DB_DRIVER defaults to postgres; DB_SOURCE must be set.
func ConnectDB() (*sql.DB, error) {
	_ = godotenv.Load()

	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = "postgres"
	}
	source := os.Getenv("DB_SOURCE")
	if source == "" {
		return nil, fmt.Errorf("DB_SOURCE is not set")
	}

	conn, err := sql.Open(driver, source)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}
	return conn, nil
}
