package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gdz-miniapp-backend/internal/common/logger"
)

const welcomeText = "Привет! 👋\n\n" +
	"Это умное мини‑приложение для решения задач, тестов и примеров. " +
	"Нажми кнопку «Открыть мини‑приложение», чтобы загрузить текст или фото задания " +
	"и получить аккуратное решение с оформленными формулами."

const buttonText = "Открыть мини‑приложение"

// Bot — минимальный бот: единственная задача — открыть Mini App.
// Вся работа с задачами происходит в самом веб-приложении.
type Bot struct {
	api       *tgbotapi.BotAPI
	webAppURL string
}

func New(token, webAppURL string) (*Bot, error) {
	if token == "" || webAppURL == "" {
		return nil, fmt.Errorf("bot token and webapp url are required")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{api: api, webAppURL: webAppURL}, nil
}

// Run запускает long polling до отмены контекста.
func (b *Bot) Run(ctx context.Context) error {
	logger.Info().Str("username", b.api.Self.UserName).Msg("Starting Telegram bot polling")

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30

	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if update.Message.Command() != "start" {
				continue
			}
			if err := b.sendWelcome(update.Message.Chat.ID); err != nil {
				logger.Error().Err(err).Int64("chat_id", update.Message.Chat.ID).Msg("failed to send welcome")
			}
		}
	}
}

// Кнопка web_app появилась в Bot API 6.0, библиотека её типов не знает.
// Клавиатура кодируется вручную и уходит сырым sendMessage.
type webAppInfo struct {
	URL string `json:"url"`
}

type keyboardButton struct {
	Text   string      `json:"text"`
	WebApp *webAppInfo `json:"web_app,omitempty"`
}

type replyKeyboard struct {
	Keyboard       [][]keyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard"`
}

func webAppKeyboard(url string) replyKeyboard {
	return replyKeyboard{
		Keyboard: [][]keyboardButton{{{
			Text:   buttonText,
			WebApp: &webAppInfo{URL: url},
		}}},
		ResizeKeyboard: true,
	}
}

func welcomeParams(chatID int64, webAppURL string) (tgbotapi.Params, error) {
	markup, err := json.Marshal(webAppKeyboard(webAppURL))
	if err != nil {
		return nil, fmt.Errorf("marshal keyboard: %w", err)
	}

	return tgbotapi.Params{
		"chat_id":      strconv.FormatInt(chatID, 10),
		"text":         welcomeText,
		"reply_markup": string(markup),
	}, nil
}

func (b *Bot) sendWelcome(chatID int64) error {
	params, err := welcomeParams(chatID, b.webAppURL)
	if err != nil {
		return err
	}

	_, err = b.api.MakeRequest("sendMessage", params)
	return err
}
