package service

import (
	"errors"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"

	"gdz-miniapp-backend/internal/common/logger"
)

// InitDataExpiry — срок жизни launch payload. Должен совпадать со сроком,
// который использует фронтенд при переоткрытии Mini App.
const InitDataExpiry = 24 * time.Hour

var (
	// ErrUnauthorized возвращается на любой невалидный payload. Причина
	// (подпись, срок, формат) клиенту не раскрывается.
	ErrUnauthorized = errors.New("invalid init data")

	// ErrIdentityMismatch возвращается, когда проверенная личность не
	// совпадает с заявленным telegram_id запроса.
	ErrIdentityMismatch = errors.New("user id mismatch")
)

// Claim — личность, извлечённая из проверенного payload. Verified=false
// означает open mode: подпись не проверялась и личности у запроса нет.
type Claim struct {
	ID        int64
	Username  string
	FirstName string
	Verified  bool
}

// ResolveID сверяет проверенную личность с заявленным идентификатором.
// Проверенный ID всегда побеждает; расхождение с непустым заявленным ID —
// это ErrIdentityMismatch. В open mode заявленный ID проходит как есть.
func (c *Claim) ResolveID(declared int64) (int64, error) {
	if !c.Verified || c.ID == 0 {
		return declared, nil
	}
	if declared != 0 && declared != c.ID {
		return 0, ErrIdentityMismatch
	}
	return c.ID, nil
}

type AuthService interface {
	// Validate проверяет подпись и срок payload и извлекает личность.
	// Чистая функция от payload и текущего времени, без side effects.
	Validate(payload string) (*Claim, error)

	// OpenMode сообщает, работает ли валидатор без секрета подписанта.
	OpenMode() bool
}

type authService struct {
	botToken string
}

func NewAuthService(botToken string) AuthService {
	if botToken == "" {
		// Сознательный режим для деплоев без бота: каждый запрос считается
		// доверенным, но неаутентифицированным. Логируем один раз на старте.
		logger.Warn().Msg("TELEGRAM_BOT_TOKEN is empty: init data validation is DISABLED, all requests are treated as unauthenticated")
	}
	return &authService{botToken: botToken}
}

func (s *authService) OpenMode() bool {
	return s.botToken == ""
}

func (s *authService) Validate(payload string) (*Claim, error) {
	if s.OpenMode() {
		return &Claim{}, nil
	}

	if payload == "" {
		return nil, ErrUnauthorized
	}

	if err := initdata.Validate(payload, s.botToken, InitDataExpiry); err != nil {
		return nil, ErrUnauthorized
	}

	parsed, err := initdata.Parse(payload)
	if err != nil {
		return nil, ErrUnauthorized
	}

	// Поле user может отсутствовать: подпись валидна, личности нет.
	return &Claim{
		ID:        parsed.User.ID,
		Username:  parsed.User.Username,
		FirstName: parsed.User.FirstName,
		Verified:  true,
	}, nil
}
