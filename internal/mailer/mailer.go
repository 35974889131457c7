// Package mailer delivers transactional email through Amazon SES. When mail
// is disabled (local development, tests) messages are written to the log.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Message is a plain-text email
type Message struct {
	To      string
	Subject string
	Text    string
	Tag     string // message category, sent as an SES tag
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// sesAPI is the subset of the SES client used here
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Config holds SES settings
type Config struct {
	Region    string
	From      string
	AccessKey string
	SecretKey string
}

// SES sends email with the SESv2 API
type SES struct {
	client sesAPI
	from   string
}

// NewSES creates an SES sender
func NewSES(ctx context.Context, cfg Config) (*SES, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SES{client: sesv2.NewFromConfig(awsCfg), from: cfg.From}, nil
}

// Send delivers msg
func (s *SES) Send(ctx context.Context, msg Message) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if msg.Tag != "" {
		input.EmailTags = []types.MessageTag{{Name: aws.String("category"), Value: aws.String(msg.Tag)}}
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}

	id := ""
	if out.MessageId != nil {
		id = *out.MessageId
	}
	slog.Debug("email sent", slog.String("category", msg.Tag), slog.String("message_id", id))
	return nil
}

// LogSender records messages in the log instead of sending them
type LogSender struct{}

// Send logs msg
func (LogSender) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "email (not sent)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("category", msg.Tag),
		slog.String("body", msg.Text),
	)
	return nil
}
