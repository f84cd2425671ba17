// Package notify contains optional external sinks for the progress bus.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kareone/market-navigator/internal/status"
)

// TelegramSink pushes job progress to an operator chat. It only forwards
// coarse lifecycle steps to keep the chat readable.
type TelegramSink struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramSink creates a sink for the given bot token and chat.
func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramSink{bot: bot, chatID: chatID}, nil
}

var _ status.Sink = (*TelegramSink)(nil)

// Deliver sends lifecycle events to the chat. Progress chatter is skipped.
func (s *TelegramSink) Deliver(_ context.Context, ev status.Event) error {
	switch ev.Step {
	case status.StepDone, status.StepCancelled, status.StepFailed:
	default:
		return nil
	}

	text := fmt.Sprintf("[%s] job %s: %s", ev.Step, ev.RequestID, ev.Message)

	if _, err := s.bot.Send(tgbotapi.NewMessage(s.chatID, text)); err != nil {
		return fmt.Errorf("send telegram notification: %w", err)
	}

	return nil
}
