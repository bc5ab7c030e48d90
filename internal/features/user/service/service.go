package service

import (
	"context"
	"fmt"
	"time"

	"gdz-miniapp-backend/internal/common/logger"
	"gdz-miniapp-backend/internal/features/user/models"
	"gdz-miniapp-backend/internal/features/user/repository"
)

// UserService — квотный движок поверх UsageStore: решает allow/deny для
// solve-запроса и применяет side effects (сброс периода, инкремент,
// админские операции).
type UserService interface {
	// Evaluate считает решение для пользователя, создавая запись при первом
	// обращении. Сброс бесплатного периода происходит здесь же, на чтении.
	Evaluate(ctx context.Context, id int64, username, firstName string) (models.Decision, error)

	// GetProfile возвращает профиль вместе с текущим решением.
	GetProfile(ctx context.Context, id int64, username, firstName string) (*models.ProfileResponse, error)

	// RecordUsage увеличивает счётчик. Вызывается строго после успешного
	// AI-вызова, один раз на выполненный запрос; от двойного инкремента
	// движок не защищает.
	RecordUsage(ctx context.Context, id int64) error

	// Админские операции: прямые проксирования в хранилище. Доступ к ним
	// закрывает admin-secret gate на уровне HTTP.
	ListUsers(ctx context.Context) ([]*models.UserRecord, error)
	SetPro(ctx context.Context, id int64, value bool) error
	SetBanned(ctx context.Context, id int64, value bool) error
	ResetUsage(ctx context.Context, id int64) error
}

type userService struct {
	store     repository.UsageStore
	freeLimit int64
	cooldown  time.Duration

	// подменяется в тестах
	now func() time.Time
}

func NewUserService(store repository.UsageStore, freeLimit int, cooldown time.Duration) UserService {
	return &userService{
		store:     store,
		freeLimit: int64(freeLimit),
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Evaluate и RecordUsage от двух конкурентных запросов одного пользователя
// гонятся: оба могут прочитать remaining > 0 до того, как кто-то из них
// инкрементирует счётчик, и счётчик превысит лимит на число запросов в
// полёте. Это принятое поведение: инкремент атомарен, счёт сходится к
// корректному, точного не-превышения под конкуренцией движок не обещает.
func (s *userService) Evaluate(ctx context.Context, id int64, username, firstName string) (models.Decision, error) {
	rec, err := s.store.GetOrCreate(ctx, id, username, firstName)
	if err != nil {
		return models.Decision{}, fmt.Errorf("load user %d: %w", id, err)
	}

	// Бан сильнее pro
	if rec.IsBanned {
		return models.Decision{Allowed: false, Remaining: 0, Reason: models.ReasonBanned}, nil
	}

	if rec.IsPro {
		return models.Decision{Allowed: true, Remaining: models.RemainingUnlimited, Reason: models.ReasonPro}, nil
	}

	now := s.now()
	nowSec := float64(now.UnixMilli()) / 1000

	periodStart := rec.PeriodStart
	if periodStart == 0 {
		periodStart = nowSec
	}

	used := rec.RequestsUsed
	if nowSec-periodStart >= s.cooldown.Seconds() {
		if err := s.store.ResetUsage(ctx, id, now); err != nil {
			return models.Decision{}, fmt.Errorf("reset period for user %d: %w", id, err)
		}
		logger.Debug().Int64("user_id", id).Msg("free period reset")
		used = 0
	}

	remaining := s.freeLimit - used
	if remaining < 0 {
		remaining = 0
	}

	if remaining <= 0 {
		return models.Decision{Allowed: false, Remaining: 0, Reason: models.ReasonLimit}, nil
	}

	return models.Decision{Allowed: true, Remaining: remaining, Reason: models.ReasonFree}, nil
}

func (s *userService) GetProfile(ctx context.Context, id int64, username, firstName string) (*models.ProfileResponse, error) {
	rec, err := s.store.GetOrCreate(ctx, id, username, firstName)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}

	decision, err := s.Evaluate(ctx, id, "", "")
	if err != nil {
		return nil, err
	}

	return models.NewProfileResponse(rec, decision), nil
}

func (s *userService) RecordUsage(ctx context.Context, id int64) error {
	if err := s.store.IncrementUsage(ctx, id); err != nil {
		return fmt.Errorf("increment usage for user %d: %w", id, err)
	}
	return nil
}

func (s *userService) ListUsers(ctx context.Context) ([]*models.UserRecord, error) {
	return s.store.ListAll(ctx)
}

func (s *userService) SetPro(ctx context.Context, id int64, value bool) error {
	return s.store.SetPro(ctx, id, value)
}

func (s *userService) SetBanned(ctx context.Context, id int64, value bool) error {
	return s.store.SetBanned(ctx, id, value)
}

func (s *userService) ResetUsage(ctx context.Context, id int64) error {
	return s.store.ResetUsage(ctx, id, s.now())
}
