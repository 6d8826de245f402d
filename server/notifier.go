package server

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/hrygo/wordloop/internal/profile"
	"github.com/hrygo/wordloop/plugin/notify"
)

// NewDispatcher builds the reminder channels configured in the profile.
// The log channel is always present.
func NewDispatcher(ctx context.Context, p *profile.Profile) (*notify.Dispatcher, error) {
	dispatcher := notify.NewDispatcher()
	dispatcher.Register(notify.ChannelLog, notify.NewLogSender(slog.Default()))

	if p.WebhookURL != "" {
		dispatcher.Register(notify.ChannelWebhook, notify.NewWebhookSender(notify.WebhookConfig{
			URL:    p.WebhookURL,
			Secret: p.WebhookSecret,
		}))
	}

	if p.TelegramToken != "" {
		chats, err := profile.ParseUserMapping(p.TelegramChats)
		if err != nil {
			return nil, errors.Wrap(err, "invalid telegram chats")
		}
		sender, err := notify.NewTelegramSender(p.TelegramToken, notify.StaticResolver(chats))
		if err != nil {
			return nil, errors.Wrap(err, "failed to create telegram sender")
		}
		dispatcher.Register(notify.ChannelTelegram, sender)
	}

	if p.SESFromEmail != "" {
		recipients, err := profile.ParseUserMapping(p.EmailRecipients)
		if err != nil {
			return nil, errors.Wrap(err, "invalid email recipients")
		}
		sender, err := notify.NewSESEmailSender(ctx, p.SESRegion, p.SESFromEmail, notify.StaticResolver(recipients))
		if err != nil {
			return nil, errors.Wrap(err, "failed to create email sender")
		}
		dispatcher.Register(notify.ChannelEmail, sender)
	}

	slog.Info("reminder channels configured", "channels", dispatcher.Channels())
	return dispatcher, nil
}
