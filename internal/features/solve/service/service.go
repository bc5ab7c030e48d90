package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gdz-miniapp-backend/internal/common/logger"
	solvemodels "gdz-miniapp-backend/internal/features/solve/models"
	usermodels "gdz-miniapp-backend/internal/features/user/models"
	userservice "gdz-miniapp-backend/internal/features/user/service"
	"gdz-miniapp-backend/internal/platform/openai"
)

var (
	ErrProviderNotConfigured = errors.New("ai provider is not configured")
	ErrEmptyTask             = errors.New("either text or image must be provided")
	ErrBanned                = errors.New("user is banned")
	ErrLimitExceeded         = errors.New("request limit exceeded")

	// ErrProviderFailure отличает сбой AI-провайдера от сбоя хранилища.
	ErrProviderFailure = errors.New("ai provider failure")
)

// Базовый промпт: модель отвечает как школьный учитель и сама оформляет
// формулы в LaTeX.
const systemPromptBase = "Ты опытный школьный учитель математики. Решай задачи так, как объяснял бы ученику у доски: " +
	"простым языком, пошагово, с пояснением каждого действия — почему именно так, а не иначе. " +
	"Если есть подводные камни или типичные ошибки, предупреди о них. " +
	"Отвечай на русском языке. " +
	"Все математические формулы обязательно оформляй в LaTeX: " +
	"для формул внутри текста используй \\( ... \\), для формул на отдельной строке — \\[ ... \\]. " +
	"Примеры: \\( y = \\frac{7}{x-4} \\), \\( x \\in \\mathbb{R} \\), \\( D = \\{ x \\mid x \\neq 4 \\} \\). "

const promptShort = "Отвечай по делу, но каждый шаг объясняй понятно. Не пропускай логику — ученик должен понять, а не просто списать."

const promptDetailed = "Расписывай максимально подробно: каждый шаг, каждый переход, каждое правило. " +
	"Объясняй так, чтобы даже тот, кто видит тему впервые, всё понял."

// SolveService ведёт полный цикл solve-запроса: решение квотного движка,
// вызов провайдера и учёт использования строго после успешного ответа.
type SolveService interface {
	Solve(ctx context.Context, req *solvemodels.SolveRequest, userID int64) (string, error)
}

type solveService struct {
	users userservice.UserService
	ai    *openai.Client
}

func NewSolveService(users userservice.UserService, ai *openai.Client) SolveService {
	return &solveService{
		users: users,
		ai:    ai,
	}
}

func (s *solveService) Solve(ctx context.Context, req *solvemodels.SolveRequest, userID int64) (string, error) {
	if !s.ai.Configured() {
		return "", ErrProviderNotConfigured
	}
	if req.Text == "" && req.ImageBase64 == "" {
		return "", ErrEmptyTask
	}

	// Анонимные запросы (open mode без заявленного id) не тарифицируются.
	if userID != 0 {
		decision, err := s.users.Evaluate(ctx, userID, "", "")
		if err != nil {
			return "", fmt.Errorf("evaluate quota: %w", err)
		}
		if !decision.Allowed {
			if decision.Reason == usermodels.ReasonBanned {
				return "", ErrBanned
			}
			return "", ErrLimitExceeded
		}
	}

	answer, err := s.ai.ChatCompletion(ctx, buildMessages(req))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}

	// Инкремент — только после успешного ответа провайдера
	if userID != 0 {
		if err := s.users.RecordUsage(ctx, userID); err != nil {
			// Ответ уже получен; потерять инкремент лучше, чем ответ
			logger.Error().Err(err).Int64("user_id", userID).Msg("failed to record usage")
		}
	}

	return strings.TrimSpace(answer), nil
}

func buildMessages(req *solvemodels.SolveRequest) []openai.Message {
	systemPrompt := systemPromptBase
	if req.Detail == solvemodels.DetailDetailed {
		systemPrompt += promptDetailed
	} else {
		systemPrompt += promptShort
	}

	var parts []openai.ContentPart
	if req.Text != "" {
		parts = append(parts, openai.ContentPart{
			Type: "text",
			Text: fmt.Sprintf("Вот условие задачи:\n\n%s", strings.TrimSpace(req.Text)),
		})
	}

	if req.ImageBase64 != "" {
		// Фронтенд шлёт base64 как с data:-префиксом, так и без него
		imageURL := req.ImageBase64
		if !strings.HasPrefix(imageURL, "data:") {
			imageURL = "data:image/jpeg;base64," + imageURL
		}
		parts = append(parts, openai.ContentPart{
			Type:     "image_url",
			ImageURL: &openai.ImageURL{URL: imageURL},
		})
	}

	return []openai.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: parts},
	}
}
