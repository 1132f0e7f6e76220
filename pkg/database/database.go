package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"task-manager/configs"

	_ "github.com/lib/pq"
)

// ConnectDB opens a pooled postgres connection to dbName and pings it.
func ConnectDB(ctx context.Context, cfg configs.Config, dbName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN(dbName))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
