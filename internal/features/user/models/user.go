package models

import "encoding/json"

// UserRecord представляет учётную запись пользователя Mini App.
// Временные метки хранятся как секунды эпохи (REAL в обоих хранилищах).
// @Description Учётная запись пользователя с данными квоты
type UserRecord struct {
	TelegramID   int64   `json:"telegram_id" example:"123456789"`
	Username     string  `json:"username" example:"johndoe"`
	FirstName    string  `json:"first_name" example:"John"`
	IsBanned     bool    `json:"is_banned" example:"false"`
	IsPro        bool    `json:"is_pro" example:"false"`
	RequestsUsed int64   `json:"requests_used" example:"3"`
	PeriodStart  float64 `json:"period_start" example:"1710500000"`
	CreatedAt    float64 `json:"created_at" example:"1710500000"`
}

// Причины решения квотного движка.
const (
	ReasonBanned = "banned"
	ReasonPro    = "pro"
	ReasonFree   = "free"
	ReasonLimit  = "limit"
)

// RemainingUnlimited кодирует безлимит для pro-подписчиков.
const RemainingUnlimited int64 = -1

// Decision — решение квотного движка по одному запросу.
// @Description Решение allow/deny с остатком квоты
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Remaining int64  `json:"-"`
	Reason    string `json:"reason" enums:"banned,pro,free,limit"`
}

// MarshalJSON отдаёт remaining как число либо строку "unlimited" —
// формат, который ожидает фронтенд.
func (d Decision) MarshalJSON() ([]byte, error) {
	out := struct {
		Allowed   bool        `json:"allowed"`
		Remaining interface{} `json:"remaining"`
		Reason    string      `json:"reason"`
	}{
		Allowed: d.Allowed,
		Reason:  d.Reason,
	}
	if d.Remaining == RemainingUnlimited {
		out.Remaining = "unlimited"
	} else {
		out.Remaining = d.Remaining
	}
	return json.Marshal(out)
}

// ProfileResponse — ответ /api/user: профиль плюс текущее решение квоты.
// @Description Профиль пользователя с состоянием квоты
type ProfileResponse struct {
	TelegramID   int64       `json:"telegram_id"`
	Username     string      `json:"username"`
	FirstName    string      `json:"first_name"`
	IsPro        bool        `json:"is_pro"`
	IsBanned     bool        `json:"is_banned"`
	RequestsUsed int64       `json:"requests_used"`
	Remaining    interface{} `json:"remaining"`
	Allowed      bool        `json:"allowed"`
	Reason       string      `json:"reason"`
}

// NewProfileResponse склеивает запись и решение в плоский ответ.
func NewProfileResponse(rec *UserRecord, d Decision) *ProfileResponse {
	resp := &ProfileResponse{
		TelegramID:   rec.TelegramID,
		Username:     rec.Username,
		FirstName:    rec.FirstName,
		IsPro:        rec.IsPro,
		IsBanned:     rec.IsBanned,
		RequestsUsed: rec.RequestsUsed,
		Allowed:      d.Allowed,
		Reason:       d.Reason,
	}
	if d.Remaining == RemainingUnlimited {
		resp.Remaining = "unlimited"
	} else {
		resp.Remaining = d.Remaining
	}
	return resp
}

// ErrorResponse используется в swagger-аннотациях обработчиков.
// @Description Ответ с ошибкой
type ErrorResponse struct {
	Error string `json:"error" example:"Not authenticated"`
}
