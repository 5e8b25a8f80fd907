// Package notify delivers workflow receipts over SES/SNS and polls the
// backend notification count. All delivery is best effort; a failed receipt
// never fails the workflow that produced it.
package notify

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"tramite-portal/internal/common/config"
	"tramite-portal/internal/common/logger"
	"tramite-portal/internal/models"
)

// EmailSender matches the SES wrapper.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSSender matches the SNS wrapper.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// ReceiptSender mails the confirmation summary to the citizen once the
// workflow completes, with an optional SMS counterpart.
type ReceiptSender struct {
	email  EmailSender
	sms    SMSSender
	cfg    config.NotificationConfig
	logger logger.Logger
}

func NewReceiptSender(email EmailSender, sms SMSSender, cfg config.NotificationConfig, log logger.Logger) *ReceiptSender {
	return &ReceiptSender{
		email:  email,
		sms:    sms,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// OnCompleted sends the receipt for one completed workflow.
func (r *ReceiptSender) OnCompleted(ctx context.Context, summary *models.Summary) {
	if r.cfg.Email.Enabled && r.email != nil && summary.UserEmail != "" {
		r.sendEmail(ctx, summary)
	}
	if r.cfg.SMS.Enabled && r.sms != nil {
		r.sendSMS(ctx, summary)
	}
}

func (r *ReceiptSender) sendEmail(ctx context.Context, summary *models.Summary) {
	subject := fmt.Sprintf("Solicitud %s registrada", summary.ApplicationNumber)
	body := fmt.Sprintf(
		"Tu solicitud de %s fue registrada con el número %s.\nMonto pagado: S/ %.2f\nEstado: %s\n",
		summary.ProcedureName, summary.ApplicationNumber, summary.Cost, summary.Status,
	)

	_, err := r.email.SendEmail(ctx, &ses.SendEmailInput{
		Source: awssdk.String(r.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{summary.UserEmail},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: awssdk.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: awssdk.String(body)},
			},
		},
	})
	if err != nil {
		r.logger.WithError(err).Warn("receipt email failed", map[string]interface{}{
			"applicationNumber": summary.ApplicationNumber,
		})
		return
	}

	r.logger.Info("receipt email sent", map[string]interface{}{
		"applicationNumber": summary.ApplicationNumber,
	})
}

// sendSMS publishes to the citizen's phone number when the token carried one,
// otherwise to the configured topic. Without either destination SNS rejects
// the publish, so the receipt is skipped instead.
func (r *ReceiptSender) sendSMS(ctx context.Context, summary *models.Summary) {
	message := fmt.Sprintf("Solicitud %s registrada. Estado: %s",
		summary.ApplicationNumber, summary.Status)

	input := &sns.PublishInput{Message: awssdk.String(message)}
	switch {
	case summary.UserPhone != "":
		input.PhoneNumber = awssdk.String(summary.UserPhone)
	case r.cfg.SMS.TopicARN != "":
		input.TopicArn = awssdk.String(r.cfg.SMS.TopicARN)
	default:
		r.logger.Warn("no sms destination, skipping receipt sms", map[string]interface{}{
			"applicationNumber": summary.ApplicationNumber,
		})
		return
	}

	if r.cfg.SMS.SenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    awssdk.String("String"),
				StringValue: awssdk.String(r.cfg.SMS.SenderID),
			},
		}
	}

	if _, err := r.sms.Publish(ctx, input); err != nil {
		r.logger.WithError(err).Warn("receipt sms failed", map[string]interface{}{
			"applicationNumber": summary.ApplicationNumber,
		})
	}
}
