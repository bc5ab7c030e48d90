package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gdz-miniapp-backend/internal/chatbot"
	"gdz-miniapp-backend/internal/common/config"
	"gdz-miniapp-backend/internal/common/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Init("gdz-miniapp-bot", cfg.Debug)

	if cfg.Telegram.BotToken == "" {
		logger.Fatal().Msg("TELEGRAM_BOT_TOKEN is required for the bot")
	}
	if cfg.Telegram.WebAppURL == "" {
		logger.Fatal().Msg("WEBAPP_URL is required for the bot")
	}

	bot, err := chatbot.New(cfg.Telegram.BotToken, cfg.Telegram.WebAppURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create bot")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info().Msg("Shutting down bot...")
		cancel()
	}()

	if err := bot.Run(ctx); err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Msg("Bot stopped with error")
	}

	logger.Info().Msg("Bot exited")
}
