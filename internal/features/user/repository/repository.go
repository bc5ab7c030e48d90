package repository

import (
	"context"
	"errors"
	"time"

	"gdz-miniapp-backend/internal/features/user/models"
)

var ErrUserNotFound = errors.New("user not found")

// UsageStore — контракт хранилища учёта запросов. Два взаимозаменяемых
// бэкенда: встроенный sqlite-файл и удалённый libSQL поверх HTTP. Бэкенд
// выбирается один раз на старте процесса и в рамках одного запуска не
// смешивается; обе реализации обязаны возвращать идентичные UserRecord
// для идентичных последовательностей операций.
type UsageStore interface {
	// GetOrCreate возвращает запись, создавая её при первом обращении.
	// Идемпотентна; непустые username/firstName обновляют профиль.
	GetOrCreate(ctx context.Context, id int64, username, firstName string) (*models.UserRecord, error)

	// UpdateProfile обновляет непустые поля профиля.
	UpdateProfile(ctx context.Context, id int64, username, firstName string) error

	// IncrementUsage атомарно увеличивает счётчик использований.
	IncrementUsage(ctx context.Context, id int64) error

	// ResetUsage обнуляет счётчик и начинает новый период с отметки at.
	ResetUsage(ctx context.Context, id int64, at time.Time) error

	SetPro(ctx context.Context, id int64, value bool) error
	SetBanned(ctx context.Context, id int64, value bool) error

	// ListAll возвращает все записи, новые (по created_at) первыми.
	ListAll(ctx context.Context) ([]*models.UserRecord, error)
}
