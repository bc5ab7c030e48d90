package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	telegram_id   INTEGER PRIMARY KEY,
	username      TEXT DEFAULT '',
	first_name    TEXT DEFAULT '',
	is_banned     INTEGER DEFAULT 0,
	is_pro        INTEGER DEFAULT 0,
	requests_used INTEGER DEFAULT 0,
	period_start  REAL DEFAULT 0,
	created_at    REAL DEFAULT 0
);`

// Open инициализирует встроенную базу: WAL и схема применяются до того,
// как файл увидит первый запрос.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty sqlite path")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return db, nil
}
