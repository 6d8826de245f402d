// Package notify delivers learner reminders over log, webhook, Telegram and
// email channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Channel names a delivery channel.
type Channel string

const (
	ChannelLog      Channel = "log"
	ChannelWebhook  Channel = "webhook"
	ChannelTelegram Channel = "telegram"
	ChannelEmail    Channel = "email"
)

// ErrNoRecipient is returned by a sender that has no address for the user.
// The dispatcher treats it as "not subscribed", not as a failure.
var ErrNoRecipient = errors.New("no recipient configured for user")

// Message is one reminder.
type Message struct {
	Subject  string
	Body     string
	Metadata map[string]any
}

// Sender defines the interface for sending notifications.
type Sender interface {
	Send(ctx context.Context, userID int32, msg Message) error
	Name() string
}

// Dispatcher routes notifications to registered channels.
type Dispatcher struct {
	mu       sync.RWMutex
	order    []Channel
	channels map[Channel]Sender
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher with no channels.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		channels: make(map[Channel]Sender),
		logger:   slog.Default(),
	}
}

// Register registers a channel sender, replacing any previous one.
func (d *Dispatcher) Register(channel Channel, sender Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.channels[channel]; !exists {
		d.order = append(d.order, channel)
	}
	d.channels[channel] = sender
	d.logger.Info("registered notification channel", "channel", channel, "sender", sender.Name())
}

// Channels returns the registered channels in registration order.
func (d *Dispatcher) Channels() []Channel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Channel(nil), d.order...)
}

// Send sends a notification through one channel.
func (d *Dispatcher) Send(ctx context.Context, userID int32, channel Channel, msg Message) error {
	d.mu.RLock()
	sender, ok := d.channels[channel]
	d.mu.RUnlock()

	if !ok {
		return fmt.Errorf("channel not registered: %s", channel)
	}
	return sender.Send(ctx, userID, msg)
}

// Broadcast sends through every channel and returns the failures.
// Channels without a recipient for the user are skipped silently.
func (d *Dispatcher) Broadcast(ctx context.Context, userID int32, msg Message) []error {
	d.mu.RLock()
	senders := make([]Sender, 0, len(d.order))
	for _, channel := range d.order {
		senders = append(senders, d.channels[channel])
	}
	d.mu.RUnlock()

	var errs []error
	for _, sender := range senders {
		err := sender.Send(ctx, userID, msg)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoRecipient):
			d.logger.Debug("skipping channel without recipient", "channel", sender.Name(), "user_id", userID)
		default:
			errs = append(errs, fmt.Errorf("%s: %w", sender.Name(), err))
		}
	}
	return errs
}

// RecipientResolver maps a user to a channel-specific address.
type RecipientResolver interface {
	Resolve(ctx context.Context, userID int32) (string, error)
}

// StaticResolver resolves recipients from a fixed map, as parsed from configuration.
type StaticResolver map[int32]string

// Resolve returns ErrNoRecipient for unknown users.
func (r StaticResolver) Resolve(_ context.Context, userID int32) (string, error) {
	if addr, ok := r[userID]; ok && addr != "" {
		return addr, nil
	}
	return "", ErrNoRecipient
}

// LogSender writes reminders to the structured log. It is always available.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a log sender on logger, or slog.Default when nil.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, userID int32, msg Message) error {
	s.logger.InfoContext(ctx, "study reminder", "user_id", userID, "subject", msg.Subject, "body", msg.Body)
	return nil
}

func (s *LogSender) Name() string {
	return string(ChannelLog)
}
