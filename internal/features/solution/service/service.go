package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"

	"gdz-miniapp-backend/internal/features/solution/repository"
)

// SolutionService публикует одноразовые страницы решений: ссылка живёт до
// первого просмотра либо до истечения TTL хранилища.
type SolutionService interface {
	// Create сохраняет решение и возвращает относительный URL страницы.
	Create(ctx context.Context, answer string) (string, error)

	// RenderPage забирает решение (одноразово) и отдаёт готовый HTML.
	RenderPage(ctx context.Context, id string) (string, error)
}

type solutionService struct {
	store repository.SolutionStore
}

func NewSolutionService(store repository.SolutionStore) SolutionService {
	return &solutionService{store: store}
}

func (s *solutionService) Create(ctx context.Context, answer string) (string, error) {
	id := uuid.New().String()
	if err := s.store.Put(ctx, id, strings.TrimSpace(answer)); err != nil {
		return "", fmt.Errorf("save solution: %w", err)
	}
	return "/solution/" + id, nil
}

func (s *solutionService) RenderPage(ctx context.Context, id string) (string, error) {
	content, err := s.store.Take(ctx, id)
	if err != nil {
		return "", err
	}
	if content == "" {
		return "", repository.ErrNotFound
	}
	return buildSolutionHTML(content, id), nil
}

// buildSolutionHTML собирает standalone-страницу решения. Формулы намеренно
// не обрабатываются: текст отдаётся так, как вернула модель.
func buildSolutionHTML(content, solutionID string) string {
	safe := strings.ReplaceAll(html.EscapeString(content), "\n", "<br>")

	shortID := solutionID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	dateStr := time.Now().Format("02.01.2006")

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="ru">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Решение</title>
  <style>
    *{ box-sizing:border-box; margin:0; padding:0; }
    body{ min-height:100vh; font-family:system-ui,sans-serif; background:#050a18; color:#c8d6e5; line-height:1.7; }
    .wrap{ max-width:460px; margin:0 auto; padding:28px 18px 40px; }
    h1{ font-size:26px; color:#f1f5f9; margin-bottom:24px; }
    .card{ border-radius:18px; padding:24px 20px; background:#0f172a; border:1px solid rgba(148,163,184,.15); margin-bottom:24px; font-size:14px; }
    .footer{ display:flex; justify-content:space-between; font-size:11px; color:#475569; }
    a{ color:#fb923c; text-decoration:none; }
  </style>
</head>
<body>
  <div class="wrap">
    <h1>Решение готово</h1>
    <div class="card">%s</div>
    <p><a href="/">Новая задача</a></p>
    <div class="footer"><span>%s</span><span>#%s</span></div>
  </div>
</body>
</html>`, safe, dateStr, shortID)
}
