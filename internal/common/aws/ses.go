// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client the notifier uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESClient struct {
	client SESAPI
}

func NewSESClient(ctx context.Context, region string) (*SESClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SESClient{client: ses.NewFromConfig(cfg)}, nil
}

// NewSESClientWithAPI wraps any SESAPI implementation.
func NewSESClientWithAPI(api SESAPI) *SESClient {
	return &SESClient{client: api}
}

// SendText emails a plain text body and returns the SES message ID.
func (s *SESClient) SendText(ctx context.Context, from string, to []string, subject, body string) (string, error) {
	if len(to) == 0 {
		return "", fmt.Errorf("ses send: no recipients")
	}
	input := &ses.SendEmailInput{
		Source:      awssdk.String(from),
		Destination: &types.Destination{ToAddresses: to},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(subject), Charset: awssdk.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: awssdk.String(body), Charset: awssdk.String("UTF-8")},
			},
		},
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("ses send: %w", err)
	}
	return awssdk.ToString(out.MessageId), nil
}
