package ses

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"mailparser/internal/domain"
	"mailparser/internal/email"
	"mailparser/internal/port"
)

// SendEmailAPI is the subset of the SES v2 client used by the notifier.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type sesNotifier struct {
	client      SendEmailAPI
	fromAddress string
	fromName    string
	recipients  []string
}

// NewFailureNotifier creates an SES-backed FailureNotifier.
func NewFailureNotifier(ctx context.Context, region, fromAddress, fromName string, recipients []string) (port.FailureNotifier, error) {
	if len(recipients) == 0 {
		return nil, errors.New("ses notifier: no alert recipients configured")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return NewFailureNotifierWithClient(sesv2.NewFromConfig(cfg), fromAddress, fromName, recipients), nil
}

// NewFailureNotifierWithClient creates a notifier over an existing client.
func NewFailureNotifierWithClient(client SendEmailAPI, fromAddress, fromName string, recipients []string) port.FailureNotifier {
	return &sesNotifier{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
		recipients:  recipients,
	}
}

func (s *sesNotifier) NotifyFailure(ctx context.Context, rec *domain.ExtractionRecord) error {
	msg := email.FailureMessage(rec)
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: s.recipients,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &msg.Subject},
				Body: &types.Body{
					Html: &types.Content{Data: &msg.HTML},
					Text: &types.Content{Data: &msg.Text},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}
