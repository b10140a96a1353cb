package telegram_notifier

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"larvadet/internal/config"
	"larvadet/internal/models"
)

// Notifier sends alert lifecycle messages to a Telegram chat. It is
// best-effort: send failures are logged and swallowed.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewNotifier creates the Telegram notifier, or returns nil when disabled.
func NewNotifier(cfg *config.Config, logger *zap.Logger) (*Notifier, error) {
	if !cfg.Telegram.Enabled || cfg.Telegram.BotToken == "" {
		logger.Info("Telegram notifier is disabled (telegram.enabled=false or token is empty)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram notifier authorized", zap.String("username", botAPI.Self.UserName))

	return &Notifier{
		api:    botAPI,
		chatID: cfg.Telegram.ChatID,
		logger: logger,
	}, nil
}

// AlertOpened announces a new unresolved alert.
func (n *Notifier) AlertOpened(alert *models.Alert) {
	if n == nil {
		return
	}
	text := fmt.Sprintf("⚠️ Alert opened for device %s: %d larvae detected (severity: %s)",
		alert.DeviceCode, alert.LarvaeCount, alert.Severity)
	n.send(text)
}

// AlertResolved announces that a device's alert was resolved.
func (n *Notifier) AlertResolved(alert *models.Alert) {
	if n == nil {
		return
	}
	text := fmt.Sprintf("✅ Alert resolved for device %s", alert.DeviceCode)
	n.send(text)
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		n.logger.Error("Failed to send Telegram notification", zap.Error(err))
	}
}
