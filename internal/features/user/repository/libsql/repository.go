package libsql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gdz-miniapp-backend/internal/features/user/models"
	"gdz-miniapp-backend/internal/features/user/repository"
)

// requestTimeout ограничивает каждый сетевой вызов к удалённой базе.
// Таймаут — это отказ хранилища, а не отказ в квоте.
const requestTimeout = 10 * time.Second

type libsqlRepository struct {
	httpClient *http.Client
	url        string
	token      string

	// подменяется в тестах
	now func() float64
}

func NewLibSQLRepository(url, token string) repository.UsageStore {
	return &libsqlRepository{
		httpClient: &http.Client{Timeout: requestTimeout},
		url:        strings.TrimRight(url, "/"),
		token:      token,
		now:        func() float64 { return float64(time.Now().UnixMilli()) / 1000 },
	}
}

// ──── Hrana-over-HTTP pipeline ────
// Каждая операция — один execute-запрос; результат несёт имена колонок и
// типизированные ячейки (integer/float/text/null), которые приводятся
// обратно к типам UserRecord.

type pipelineRequest struct {
	Requests []pipelineEntry `json:"requests"`
}

type pipelineEntry struct {
	Type string `json:"type"`
	Stmt *stmt  `json:"stmt,omitempty"`
}

type stmt struct {
	SQL      string `json:"sql"`
	Args     []cell `json:"args,omitempty"`
	WantRows bool   `json:"want_rows"`
}

type cell struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value,omitempty"`
}

type pipelineResponse struct {
	Results []struct {
		Type     string `json:"type"`
		Response *struct {
			Result *struct {
				Cols []struct {
					Name string `json:"name"`
				} `json:"cols"`
				Rows         [][]cell `json:"rows"`
				AffectedRows int64    `json:"affected_row_count"`
			} `json:"result"`
		} `json:"response"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"results"`
}

func intArg(v int64) cell {
	// hrana кодирует integer строкой, чтобы не терять точность в JSON
	return cell{Type: "integer", Value: strconv.FormatInt(v, 10)}
}

func floatArg(v float64) cell { return cell{Type: "float", Value: v} }
func textArg(v string) cell   { return cell{Type: "text", Value: v} }

const recordColumns = "telegram_id, username, first_name, is_banned, is_pro, requests_used, period_start, created_at"

func (r *libsqlRepository) GetOrCreate(ctx context.Context, id int64, username, firstName string) (*models.UserRecord, error) {
	query := `
		INSERT INTO users (telegram_id, username, first_name, requests_used, period_start, created_at)
		VALUES (?, ?, ?, 0, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			username   = CASE WHEN excluded.username   != '' THEN excluded.username   ELSE users.username   END,
			first_name = CASE WHEN excluded.first_name != '' THEN excluded.first_name ELSE users.first_name END
		RETURNING ` + recordColumns

	now := r.now()
	result, err := r.execute(ctx, query, true,
		intArg(id), textArg(username), textArg(firstName), floatArg(now), floatArg(now))
	if err != nil {
		return nil, fmt.Errorf("failed to get or create user: %w", err)
	}
	if len(result.Rows) == 0 {
		return nil, fmt.Errorf("failed to get or create user: empty result")
	}

	return decodeRecord(result.Rows[0])
}

func (r *libsqlRepository) UpdateProfile(ctx context.Context, id int64, username, firstName string) error {
	query := `
		UPDATE users SET
			username   = CASE WHEN ? != '' THEN ? ELSE username   END,
			first_name = CASE WHEN ? != '' THEN ? ELSE first_name END
		WHERE telegram_id = ?
	`

	return r.exec(ctx, "update profile", query,
		textArg(username), textArg(username), textArg(firstName), textArg(firstName), intArg(id))
}

func (r *libsqlRepository) IncrementUsage(ctx context.Context, id int64) error {
	query := "UPDATE users SET requests_used = requests_used + 1 WHERE telegram_id = ?"
	return r.exec(ctx, "increment usage", query, intArg(id))
}

func (r *libsqlRepository) ResetUsage(ctx context.Context, id int64, at time.Time) error {
	query := "UPDATE users SET requests_used = 0, period_start = ? WHERE telegram_id = ?"
	return r.exec(ctx, "reset usage", query, floatArg(float64(at.UnixMilli())/1000), intArg(id))
}

func (r *libsqlRepository) SetPro(ctx context.Context, id int64, value bool) error {
	query := "UPDATE users SET is_pro = ? WHERE telegram_id = ?"
	return r.exec(ctx, "set pro", query, intArg(boolToInt(value)), intArg(id))
}

func (r *libsqlRepository) SetBanned(ctx context.Context, id int64, value bool) error {
	query := "UPDATE users SET is_banned = ? WHERE telegram_id = ?"
	return r.exec(ctx, "set banned", query, intArg(boolToInt(value)), intArg(id))
}

func (r *libsqlRepository) ListAll(ctx context.Context) ([]*models.UserRecord, error) {
	query := "SELECT " + recordColumns + " FROM users ORDER BY created_at DESC"

	result, err := r.execute(ctx, query, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	var records []*models.UserRecord
	for _, row := range result.Rows {
		rec, err := decodeRecord(row)
		if err != nil {
			return nil, fmt.Errorf("failed to decode user row: %w", err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func (r *libsqlRepository) exec(ctx context.Context, op, query string, args ...cell) error {
	result, err := r.execute(ctx, query, false, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if result.AffectedRows == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

type execResult struct {
	Rows         []map[string]cell
	AffectedRows int64
}

// execute отправляет один SQL-стейтмент удалённой базе. Ответы не из
// диапазона 2xx и сетевые ошибки всплывают как отказ хранилища; ретраев нет.
func (r *libsqlRepository) execute(ctx context.Context, query string, wantRows bool, args ...cell) (*execResult, error) {
	body, err := json.Marshal(pipelineRequest{
		Requests: []pipelineEntry{
			{Type: "execute", Stmt: &stmt{SQL: query, Args: args, WantRows: wantRows}},
			{Type: "close"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url+"/v2/pipeline", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("libsql request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("libsql returned %d: %s", resp.StatusCode, payload)
	}

	var decoded pipelineResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Results) == 0 {
		return nil, fmt.Errorf("empty pipeline response")
	}

	first := decoded.Results[0]
	if first.Error != nil {
		return nil, fmt.Errorf("libsql statement failed: %s", first.Error.Message)
	}
	if first.Response == nil || first.Response.Result == nil {
		return nil, fmt.Errorf("malformed pipeline response")
	}

	result := first.Response.Result
	out := &execResult{AffectedRows: result.AffectedRows}
	for _, row := range result.Rows {
		if len(row) != len(result.Cols) {
			return nil, fmt.Errorf("row/column count mismatch")
		}
		mapped := make(map[string]cell, len(row))
		for i, c := range row {
			mapped[result.Cols[i].Name] = c
		}
		out.Rows = append(out.Rows, mapped)
	}

	return out, nil
}

// decodeRecord приводит типизированные ячейки к типам UserRecord:
// id и флаги — integer, счётчик — integer, метки времени — float-секунды.
// Отсутствующая колонка — это испорченный ответ, а не null-значение.
func decodeRecord(row map[string]cell) (*models.UserRecord, error) {
	for _, name := range strings.Split(recordColumns, ", ") {
		if _, ok := row[name]; !ok {
			return nil, fmt.Errorf("column %s missing from response", name)
		}
	}

	var (
		rec models.UserRecord
		err error
	)

	if rec.TelegramID, err = cellInt(row["telegram_id"]); err != nil {
		return nil, fmt.Errorf("column telegram_id: %w", err)
	}
	rec.Username = cellText(row["username"])
	rec.FirstName = cellText(row["first_name"])

	banned, err := cellInt(row["is_banned"])
	if err != nil {
		return nil, fmt.Errorf("column is_banned: %w", err)
	}
	rec.IsBanned = banned != 0

	pro, err := cellInt(row["is_pro"])
	if err != nil {
		return nil, fmt.Errorf("column is_pro: %w", err)
	}
	rec.IsPro = pro != 0

	if rec.RequestsUsed, err = cellInt(row["requests_used"]); err != nil {
		return nil, fmt.Errorf("column requests_used: %w", err)
	}
	if rec.PeriodStart, err = cellFloat(row["period_start"]); err != nil {
		return nil, fmt.Errorf("column period_start: %w", err)
	}
	if rec.CreatedAt, err = cellFloat(row["created_at"]); err != nil {
		return nil, fmt.Errorf("column created_at: %w", err)
	}

	return &rec, nil
}

func cellInt(c cell) (int64, error) {
	switch c.Type {
	case "integer":
		s, ok := c.Value.(string)
		if !ok {
			// некоторые серверы отдают integer числом
			if f, isNum := c.Value.(float64); isNum {
				return int64(f), nil
			}
			return 0, fmt.Errorf("unexpected integer representation %T", c.Value)
		}
		return strconv.ParseInt(s, 10, 64)
	case "null", "":
		return 0, nil
	default:
		return 0, fmt.Errorf("unexpected cell type %q", c.Type)
	}
}

func cellFloat(c cell) (float64, error) {
	switch c.Type {
	case "float":
		f, ok := c.Value.(float64)
		if !ok {
			return 0, fmt.Errorf("unexpected float representation %T", c.Value)
		}
		return f, nil
	case "integer":
		v, err := cellInt(c)
		return float64(v), err
	case "null", "":
		return 0, nil
	default:
		return 0, fmt.Errorf("unexpected cell type %q", c.Type)
	}
}

func cellText(c cell) string {
	if c.Type != "text" {
		return ""
	}
	s, _ := c.Value.(string)
	return s
}

func boolToInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}
