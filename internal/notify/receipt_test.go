package notify

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"

	"tramite-portal/internal/common/config"
	"tramite-portal/internal/common/logger"
	"tramite-portal/internal/models"
)

type fakeEmailSender struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeEmailSender) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, input)
	return &ses.SendEmailOutput{}, f.err
}

type fakeSMSSender struct {
	inputs []*sns.PublishInput
}

func (f *fakeSMSSender) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, input)
	return &sns.PublishOutput{}, nil
}

func receiptConfig(email, sms bool) config.NotificationConfig {
	cfg := config.NotificationConfig{}
	cfg.Email.Enabled = email
	cfg.Email.FromEmail = "tramites@municipalidad.gob.pe"
	cfg.SMS.Enabled = sms
	cfg.SMS.SenderID = "MUNI"
	return cfg
}

func testSummary() *models.Summary {
	return &models.Summary{
		ApplicationNumber: "LC-2026-000101",
		ProcedureName:     "Licencia de Construcción",
		Cost:              25.50,
		Status:            "PAID",
		UserEmail:         "vecino@example.com",
		UserPhone:         "+51987654321",
	}
}

func TestReceiptEmailSent(t *testing.T) {
	email := &fakeEmailSender{}
	sender := NewReceiptSender(email, nil, receiptConfig(true, false), logger.NewTestLogger(t))

	sender.OnCompleted(context.Background(), testSummary())

	assert.Len(t, email.inputs, 1)
	input := email.inputs[0]
	assert.Equal(t, "tramites@municipalidad.gob.pe", *input.Source)
	assert.Equal(t, []string{"vecino@example.com"}, input.Destination.ToAddresses)
	assert.Contains(t, *input.Message.Subject.Data, "LC-2026-000101")
	assert.Contains(t, *input.Message.Body.Text.Data, "25.50")
}

func TestReceiptSkippedWithoutEmailAddress(t *testing.T) {
	email := &fakeEmailSender{}
	sender := NewReceiptSender(email, nil, receiptConfig(true, false), logger.NewTestLogger(t))

	summary := testSummary()
	summary.UserEmail = ""
	sender.OnCompleted(context.Background(), summary)

	assert.Empty(t, email.inputs)
}

func TestReceiptSMSSentToPhoneWithSenderID(t *testing.T) {
	sms := &fakeSMSSender{}
	sender := NewReceiptSender(nil, sms, receiptConfig(false, true), logger.NewTestLogger(t))

	sender.OnCompleted(context.Background(), testSummary())

	assert.Len(t, sms.inputs, 1)
	input := sms.inputs[0]
	assert.NotNil(t, input.PhoneNumber)
	assert.Equal(t, "+51987654321", *input.PhoneNumber)
	assert.Nil(t, input.TopicArn)
	attr, ok := input.MessageAttributes["AWS.SNS.SMS.SenderID"]
	assert.True(t, ok)
	assert.Equal(t, "MUNI", *attr.StringValue)
}

func TestReceiptSMSFallsBackToTopic(t *testing.T) {
	sms := &fakeSMSSender{}
	cfg := receiptConfig(false, true)
	cfg.SMS.TopicARN = "arn:aws:sns:us-east-1:123456789012:tramite-receipts"
	sender := NewReceiptSender(nil, sms, cfg, logger.NewTestLogger(t))

	summary := testSummary()
	summary.UserPhone = ""
	sender.OnCompleted(context.Background(), summary)

	assert.Len(t, sms.inputs, 1)
	input := sms.inputs[0]
	assert.Nil(t, input.PhoneNumber)
	assert.Equal(t, cfg.SMS.TopicARN, *input.TopicArn)
}

func TestReceiptSMSSkippedWithoutDestination(t *testing.T) {
	sms := &fakeSMSSender{}
	sender := NewReceiptSender(nil, sms, receiptConfig(false, true), logger.NewTestLogger(t))

	summary := testSummary()
	summary.UserPhone = ""
	sender.OnCompleted(context.Background(), summary)

	assert.Empty(t, sms.inputs)
}

func TestReceiptDisabledChannelsDoNothing(t *testing.T) {
	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}
	sender := NewReceiptSender(email, sms, receiptConfig(false, false), logger.NewTestLogger(t))

	sender.OnCompleted(context.Background(), testSummary())

	assert.Empty(t, email.inputs)
	assert.Empty(t, sms.inputs)
}
