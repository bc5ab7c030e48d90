package repository

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("solution not found")

// SolutionStore хранит текст решения до первого просмотра. Оба бэкенда
// ограничены по времени жизни записи; страница отдаётся ровно один раз.
type SolutionStore interface {
	// Put сохраняет содержимое под заданным id.
	Put(ctx context.Context, id, content string) error

	// Take возвращает содержимое и сразу удаляет запись.
	// Повторный вызов с тем же id — ErrNotFound.
	Take(ctx context.Context, id string) (string, error)
}
