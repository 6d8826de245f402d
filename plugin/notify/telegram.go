package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramAPI is the part of *tgbotapi.BotAPI the sender needs.
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender delivers reminders to a per-user chat.
type TelegramSender struct {
	api    TelegramAPI
	chats  RecipientResolver
	logger *slog.Logger
}

// NewTelegramSender connects a bot with token.
func NewTelegramSender(token string, chats RecipientResolver) (*TelegramSender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return NewTelegramSenderWithAPI(api, chats), nil
}

// NewTelegramSenderWithAPI wraps an existing client.
func NewTelegramSenderWithAPI(api TelegramAPI, chats RecipientResolver) *TelegramSender {
	return &TelegramSender{api: api, chats: chats, logger: slog.Default()}
}

func (s *TelegramSender) Send(ctx context.Context, userID int32, msg Message) error {
	raw, err := s.chats.Resolve(ctx, userID)
	if err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q for user %d: %w", raw, userID, err)
	}

	text := msg.Body
	if msg.Subject != "" {
		text = msg.Subject + "\n\n" + msg.Body
	}
	if _, err := s.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	s.logger.Debug("telegram notification sent", "user_id", userID, "chat_id", chatID)
	return nil
}

func (s *TelegramSender) Name() string {
	return string(ChannelTelegram)
}
