package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// ErrEmailDisabled is returned by Send when no sender address is configured
var ErrEmailDisabled = errors.New("email delivery is not configured")

// Message is a plain text email
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// EmailConfig configures the SES mailer
type EmailConfig struct {
	Region    string
	FromEmail string
	FromName  string
	Debug     bool
}

type sesClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client    sesClient
	fromEmail string
	fromName  string
	enabled   bool
	debug     bool
	logger    *zap.Logger
}

// NewEmailService creates a new email service. Without a sender address the
// service is created disabled and every Send fails with ErrEmailDisabled.
func NewEmailService(ctx context.Context, cfg EmailConfig, logger *zap.Logger) (*EmailService, error) {
	if cfg.FromEmail == "" {
		logger.Warn("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{debug: cfg.Debug, logger: logger}, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("email service enabled", zap.String("from", cfg.FromEmail), zap.String("region", cfg.Region))
	return newEmailService(sesv2.NewFromConfig(awsCfg), cfg, logger), nil
}

func newEmailService(client sesClient, cfg EmailConfig, logger *zap.Logger) *EmailService {
	return &EmailService{
		client:    client,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		enabled:   true,
		debug:     cfg.Debug,
		logger:    logger,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// Send delivers msg through SES. The body is never logged.
func (s *EmailService) Send(ctx context.Context, msg Message) error {
	if !s.enabled {
		s.logger.Warn("skipping email send, service disabled", zap.String("subject", msg.Subject))
		return ErrEmailDisabled
	}

	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
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

	if s.debug {
		s.logger.Debug("calling SES SendEmail", zap.String("from", fromAddress), zap.String("subject", msg.Subject))
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	fields := []zap.Field{zap.String("subject", msg.Subject)}
	if result.MessageId != nil {
		fields = append(fields, zap.String("message_id", *result.MessageId))
	}
	s.logger.Info("email sent", fields...)
	return nil
}
