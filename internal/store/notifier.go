// internal/store/notifier.go
package store

import (
	"context"

	"company-intel/internal/common/aws"
	commonerrors "company-intel/internal/common/errors"
	"company-intel/internal/common/logger"
	"company-intel/internal/models"
	"company-intel/internal/report"
)

type NotifierConfig struct {
	TopicARN   string
	FromEmail  string
	Recipients []string
}

// Notifier announces finished reports over SNS and emails the text form
// through SES. Either client may be nil.
type Notifier struct {
	config NotifierConfig
	sns    *aws.SNSClient
	ses    *aws.SESClient
	logger logger.Logger
}

func NewNotifier(cfg NotifierConfig, snsClient *aws.SNSClient, sesClient *aws.SESClient, log logger.Logger) *Notifier {
	return &Notifier{
		config: cfg,
		sns:    snsClient,
		ses:    sesClient,
		logger: log.With(map[string]interface{}{"sink": "notifier"}),
	}
}

func (n *Notifier) Name() string { return "notifier" }

// Save publishes to every configured channel and returns the first failure.
func (n *Notifier) Save(ctx context.Context, r *models.Report) error {
	subject := report.Subject(r)
	body := report.Text(r)
	var firstErr error

	if n.sns != nil && n.config.TopicARN != "" {
		id, err := n.sns.Publish(ctx, n.config.TopicARN, subject, body, map[string]string{
			"company": r.Company,
			"status":  string(r.Status),
			"runId":   r.RunID,
		})
		if err != nil {
			firstErr = commonerrors.NewNotificationSendFailedError("sns", err)
		} else {
			n.logger.Debug("report published", map[string]interface{}{"runId": r.RunID, "messageId": id})
		}
	}

	if n.ses != nil && n.config.FromEmail != "" && len(n.config.Recipients) > 0 {
		id, err := n.ses.SendText(ctx, n.config.FromEmail, n.config.Recipients, subject, body)
		if err != nil {
			if firstErr == nil {
				firstErr = commonerrors.NewNotificationSendFailedError("ses", err)
			}
		} else {
			n.logger.Debug("report emailed", map[string]interface{}{"runId": r.RunID, "messageId": id})
		}
	}

	return firstErr
}
