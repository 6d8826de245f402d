package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	name string
	err  error
	sent []Message
}

func (s *recordingSender) Send(_ context.Context, _ int32, msg Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) Name() string { return s.name }

func TestDispatcherBroadcast(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher()
	ok := &recordingSender{name: "ok"}
	skipped := &recordingSender{name: "skipped", err: ErrNoRecipient}
	broken := &recordingSender{name: "broken", err: errors.New("smtp down")}

	d.Register(ChannelLog, ok)
	d.Register(ChannelEmail, skipped)
	d.Register(ChannelWebhook, broken)
	assert.Equal(t, []Channel{ChannelLog, ChannelEmail, ChannelWebhook}, d.Channels())

	errs := d.Broadcast(ctx, 1, Message{Subject: "due", Body: "3 items due"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "broken")
	assert.Len(t, ok.sent, 1)

	require.NoError(t, d.Send(ctx, 1, ChannelLog, Message{Body: "again"}))
	assert.Len(t, ok.sent, 2)
	assert.Error(t, d.Send(ctx, 1, ChannelTelegram, Message{}))
}

func TestStaticResolver(t *testing.T) {
	r := StaticResolver{1: "alice@example.com"}
	addr, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", addr)

	_, err = r.Resolve(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestWebhookSender(t *testing.T) {
	var got WebhookPayload
	var secret string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret = r.Header.Get("X-Webhook-Secret")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sender := NewWebhookSender(WebhookConfig{URL: server.URL, Secret: "s3cret"})
	err := sender.Send(context.Background(), 7, Message{Subject: "due", Body: "5 items due", Metadata: map[string]any{"dueCount": 5}})
	require.NoError(t, err)

	assert.Equal(t, "s3cret", secret)
	assert.Equal(t, "review.due", got.Event)
	assert.Equal(t, int32(7), got.UserID)
	assert.Equal(t, "5 items due", got.Message)
	assert.EqualValues(t, 5, got.Metadata["dueCount"])
}

func TestWebhookSenderErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewWebhookSender(WebhookConfig{URL: server.URL}).Send(context.Background(), 1, Message{Body: "x"})
	assert.ErrorContains(t, err, "502")
}

type fakeTelegram struct {
	messages []tgbotapi.MessageConfig
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.messages = append(f.messages, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestTelegramSender(t *testing.T) {
	api := &fakeTelegram{}
	sender := NewTelegramSenderWithAPI(api, StaticResolver{1: "1001", 2: "not-a-chat"})

	require.NoError(t, sender.Send(context.Background(), 1, Message{Subject: "Reminder", Body: "2 items due"}))
	require.Len(t, api.messages, 1)
	assert.Equal(t, int64(1001), api.messages[0].ChatID)
	assert.Equal(t, "Reminder\n\n2 items due", api.messages[0].Text)

	assert.Error(t, sender.Send(context.Background(), 2, Message{Body: "x"}))
	assert.ErrorIs(t, sender.Send(context.Background(), 3, Message{Body: "x"}), ErrNoRecipient)
}

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, params)
	return &sesv2.SendEmailOutput{}, nil
}

func TestEmailSender(t *testing.T) {
	client := &fakeSES{}
	sender := NewEmailSender(client, "noreply@example.com", StaticResolver{1: "alice@example.com"})

	require.NoError(t, sender.Send(context.Background(), 1, Message{Body: "4 items due"}))
	require.Len(t, client.inputs, 1)
	input := client.inputs[0]
	assert.Equal(t, "noreply@example.com", *input.FromEmailAddress)
	assert.Equal(t, []string{"alice@example.com"}, input.Destination.ToAddresses)
	assert.Equal(t, "Study reminder", *input.Content.Simple.Subject.Data)
	assert.Equal(t, "4 items due", *input.Content.Simple.Body.Text.Data)

	assert.ErrorIs(t, sender.Send(context.Background(), 9, Message{Body: "x"}), ErrNoRecipient)
}
