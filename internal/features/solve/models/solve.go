package models

// Детализация решения.
const (
	DetailShort    = "short"
	DetailDetailed = "detailed"
)

// SolveRequest — задача от Mini App: текст, фото или и то и другое.
// @Description Запрос на решение задачи
type SolveRequest struct {
	Text        string `json:"text"`
	Detail      string `json:"detail" enums:"short,detailed"`
	ImageBase64 string `json:"image_base64"`
	TelegramID  int64  `json:"telegram_id"`
}

// SolveResponse — ответ модели.
// @Description Готовое решение
type SolveResponse struct {
	Answer string `json:"answer"`
}
