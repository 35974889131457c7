package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSES struct {
	sendFunc func(ctx context.Context, in *sesv2.SendEmailInput) (*sesv2.SendEmailOutput, error)
}

func (m *mockSES) SendEmail(ctx context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	return m.sendFunc(ctx, in)
}

func TestSES_Send(t *testing.T) {
	t.Parallel()

	var captured *sesv2.SendEmailInput
	s := &SES{
		from: "Haven <no-reply@haven.test>",
		client: &mockSES{sendFunc: func(ctx context.Context, in *sesv2.SendEmailInput) (*sesv2.SendEmailOutput, error) {
			captured = in
			return &sesv2.SendEmailOutput{MessageId: aws.String("m-1")}, nil
		}},
	}

	err := s.Send(context.Background(), VerificationEmail("a@haven.test", "https://haven.test/verify?token=abc"))
	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Equal(t, "Haven <no-reply@haven.test>", aws.ToString(captured.FromEmailAddress))
	assert.Equal(t, []string{"a@haven.test"}, captured.Destination.ToAddresses)
	assert.Contains(t, aws.ToString(captured.Content.Simple.Body.Text.Data), "token=abc")
	require.Len(t, captured.EmailTags, 1)
	assert.Equal(t, "verify_email", aws.ToString(captured.EmailTags[0].Value))
}

func TestSES_Send_Error(t *testing.T) {
	t.Parallel()

	s := &SES{client: &mockSES{sendFunc: func(ctx context.Context, in *sesv2.SendEmailInput) (*sesv2.SendEmailOutput, error) {
		return nil, errors.New("throttled")
	}}}

	err := s.Send(context.Background(), Message{To: "a@haven.test"})
	assert.ErrorContains(t, err, "throttled")
}

func TestLogSender(t *testing.T) {
	t.Parallel()
	assert.NoError(t, LogSender{}.Send(context.Background(), Message{To: "x@haven.test"}))
}

func TestOrderReceipt(t *testing.T) {
	t.Parallel()

	msg := OrderReceipt("a@haven.test", "store_orders:1", "usd", []ReceiptLine{
		{Name: "Candle", Quantity: 2, TotalCents: 1000},
	}, 1000)

	assert.Equal(t, "order_receipt", msg.Tag)
	assert.Contains(t, msg.Text, "2 x Candle  10.00 USD")
	assert.Contains(t, msg.Text, "Total: 10.00 USD")
}

func TestApplicationDecision(t *testing.T) {
	t.Parallel()

	approved := ApplicationDecision("a@haven.test", "meetup organizer", true, "")
	assert.Contains(t, approved.Text, "has been approved")
	assert.NotContains(t, approved.Text, "Note from the reviewer")

	rejected := ApplicationDecision("a@haven.test", "background check", false, "document unreadable")
	assert.Contains(t, rejected.Text, "was not approved")
	assert.Contains(t, rejected.Text, "document unreadable")
}

func TestFormatAmount(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0.05 EUR", FormatAmount(5, "eur"))
	assert.Equal(t, "25.00 USD", FormatAmount(2500, "usd"))
	assert.Equal(t, "-1.50 USD", FormatAmount(-150, "usd"))
}
