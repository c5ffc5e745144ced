package services

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tunewave-backend/internal/models"
	"tunewave-backend/internal/moderation"
)

// Notifier delivers a plain text message to a Telegram chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// TelegramNotifier sends messages through the Bot API.
type TelegramNotifier struct {
	api *tgbotapi.BotAPI
	log *zap.Logger
}

// NewTelegramNotifier authorizes the bot token against the Bot API.
func NewTelegramNotifier(botToken string, log *zap.Logger) (*TelegramNotifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("telegram bot token not configured")
	}
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	log.Info("telegram bot authorized", zap.String("username", api.Self.UserName))
	return &TelegramNotifier{api: api, log: log}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return nil
}

// LogNotifier only logs. Used when no bot token is configured.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) Notify(ctx context.Context, chatID int64, text string) error {
	n.Log.Info("notification (not sent)", zap.Int64("chat_id", chatID), zap.String("text", text))
	return nil
}

var actionLabels = map[models.ActionType]string{
	models.ActionContentApproved:    "content approval",
	models.ActionContentRemoved:     "content removal",
	models.ActionUserWarned:         "warning",
	models.ActionRestrictionApplied: "restriction",
	models.ActionUserSuspended:      "suspension",
	models.ActionUserBanned:         "ban",
}

func actionLabel(t models.ActionType) string {
	if label, ok := actionLabels[t]; ok {
		return label
	}
	return string(t)
}

// ReversalMessage is the notice sent to a user whose action was reversed.
func ReversalMessage(t models.ActionType, reason string) string {
	msg := fmt.Sprintf("✅ A %s on your account has been reversed by our moderation team.", actionLabel(t))
	if reason != "" {
		msg += "\n\nReason: " + reason
	}
	return msg
}

// ActionMessage is the notice sent when an action restricts a user.
func ActionMessage(t models.ActionType, reason models.ReasonCode, expires string) string {
	msg := fmt.Sprintf("⚠️ Your account received a %s for %s.", actionLabel(t), reasonText(reason))
	if expires != "" {
		msg += "\nIt ends on " + expires + "."
	}
	return msg
}

func reasonText(r models.ReasonCode) string {
	switch r {
	case models.ReasonHateSpeech:
		return "hate speech"
	case models.ReasonInappropriateContent:
		return "inappropriate content"
	case models.ReasonSelfHarm:
		return "self-harm content"
	case "":
		return "a policy violation"
	}
	return string(r)
}

// notifiesOnApply lists the actions users are told about when applied.
func notifiesOnApply(a models.ModerationAction) bool {
	switch a.ActionType {
	case models.ActionUserWarned, models.ActionRestrictionApplied, models.ActionUserSuspended, models.ActionUserBanned:
		return !moderation.IsReversed(a)
	}
	return false
}
