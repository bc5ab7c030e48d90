package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gdz-miniapp-backend/internal/features/user/models"
	"gdz-miniapp-backend/internal/features/user/repository"
)

const recordColumns = "telegram_id, username, first_name, is_banned, is_pro, requests_used, period_start, created_at"

type sqliteRepository struct {
	db *sql.DB

	// подменяется в тестах
	now func() float64
}

func NewSQLiteRepository(db *sql.DB) repository.UsageStore {
	return &sqliteRepository{
		db:  db,
		now: func() float64 { return float64(time.Now().UnixMilli()) / 1000 },
	}
}

// GetOrCreate выполняется одним upsert-выражением: окна между чтением и
// записью нет, повторный вызов с тем же id никогда не создаёт дубликат.
// Пустые поля профиля не затирают уже сохранённые значения.
func (r *sqliteRepository) GetOrCreate(ctx context.Context, id int64, username, firstName string) (*models.UserRecord, error) {
	query := `
		INSERT INTO users (telegram_id, username, first_name, requests_used, period_start, created_at)
		VALUES (?, ?, ?, 0, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			username   = CASE WHEN excluded.username   != '' THEN excluded.username   ELSE users.username   END,
			first_name = CASE WHEN excluded.first_name != '' THEN excluded.first_name ELSE users.first_name END
		RETURNING ` + recordColumns

	now := r.now()
	row := r.db.QueryRowContext(ctx, query, id, username, firstName, now, now)

	rec, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create user: %w", err)
	}
	return rec, nil
}

func (r *sqliteRepository) UpdateProfile(ctx context.Context, id int64, username, firstName string) error {
	query := `
		UPDATE users SET
			username   = CASE WHEN ? != '' THEN ? ELSE username   END,
			first_name = CASE WHEN ? != '' THEN ? ELSE first_name END
		WHERE telegram_id = ?
	`

	return r.exec(ctx, "update profile", query, username, username, firstName, firstName, id)
}

func (r *sqliteRepository) IncrementUsage(ctx context.Context, id int64) error {
	query := "UPDATE users SET requests_used = requests_used + 1 WHERE telegram_id = ?"
	return r.exec(ctx, "increment usage", query, id)
}

func (r *sqliteRepository) ResetUsage(ctx context.Context, id int64, at time.Time) error {
	query := "UPDATE users SET requests_used = 0, period_start = ? WHERE telegram_id = ?"
	return r.exec(ctx, "reset usage", query, float64(at.UnixMilli())/1000, id)
}

func (r *sqliteRepository) SetPro(ctx context.Context, id int64, value bool) error {
	query := "UPDATE users SET is_pro = ? WHERE telegram_id = ?"
	return r.exec(ctx, "set pro", query, boolToInt(value), id)
}

func (r *sqliteRepository) SetBanned(ctx context.Context, id int64, value bool) error {
	query := "UPDATE users SET is_banned = ? WHERE telegram_id = ?"
	return r.exec(ctx, "set banned", query, boolToInt(value), id)
}

func (r *sqliteRepository) ListAll(ctx context.Context) ([]*models.UserRecord, error) {
	query := "SELECT " + recordColumns + " FROM users ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var records []*models.UserRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// exec выполняет одиночное UPDATE-выражение и переводит "0 строк затронуто"
// в ErrUserNotFound.
func (r *sqliteRepository) exec(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*models.UserRecord, error) {
	var (
		rec             models.UserRecord
		isBanned, isPro int64
	)
	if err := s.Scan(
		&rec.TelegramID, &rec.Username, &rec.FirstName,
		&isBanned, &isPro, &rec.RequestsUsed,
		&rec.PeriodStart, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.IsBanned = isBanned != 0
	rec.IsPro = isPro != 0
	return &rec, nil
}

func boolToInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}
