package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESAPI is the part of *sesv2.Client the sender needs.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailSender delivers reminders through Amazon SES.
type EmailSender struct {
	client     SESAPI
	fromEmail  string
	recipients RecipientResolver
	logger     *slog.Logger
}

// NewSESEmailSender loads the default AWS configuration for region.
func NewSESEmailSender(ctx context.Context, region, fromEmail string, recipients RecipientResolver) (*EmailSender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewEmailSender(sesv2.NewFromConfig(cfg), fromEmail, recipients), nil
}

// NewEmailSender wraps an existing SES client.
func NewEmailSender(client SESAPI, fromEmail string, recipients RecipientResolver) *EmailSender {
	return &EmailSender{
		client:     client,
		fromEmail:  fromEmail,
		recipients: recipients,
		logger:     slog.Default(),
	}
}

func (s *EmailSender) Send(ctx context.Context, userID int32, msg Message) error {
	to, err := s.recipients.Resolve(ctx, userID)
	if err != nil {
		return err
	}

	subject := msg.Subject
	if subject == "" {
		subject = "Study reminder"
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(msg.Body),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	s.logger.Debug("email notification sent", "user_id", userID)
	return nil
}

func (s *EmailSender) Name() string {
	return string(ChannelEmail)
}
