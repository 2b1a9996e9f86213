package notifier

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{}, nil
}

func TestSNSNotifierSendsTransactionalSMS(t *testing.T) {
	client := &fakeSNS{}
	n := NewSNSNotifier(client, "ADMSN")

	require.NoError(t, n.SendOTP(context.Background(), "9876543210", "123456"))
	assert.Equal(t, "+919876543210", *client.input.PhoneNumber)
	assert.Contains(t, *client.input.Message, "123456")
	assert.Equal(t, "Transactional", *client.input.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue)
	assert.Equal(t, "ADMSN", *client.input.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue)
}

func TestSNSNotifierWrapsFailure(t *testing.T) {
	n := NewSNSNotifier(&fakeSNS{err: errors.New("throttled")}, "")
	err := n.SendOTP(context.Background(), "9876543210", "123456")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestLogNotifierRevealsOnlyWhenAsked(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	require.NoError(t, NewLogNotifier(logger, false).SendOTP(context.Background(), "9876543210", "123456"))
	assert.NotContains(t, buf.String(), "123456")
	assert.Contains(t, buf.String(), "******3210")

	buf.Reset()
	require.NoError(t, NewLogNotifier(logger, true).SendOTP(context.Background(), "9876543210", "123456"))
	assert.Contains(t, buf.String(), "otp=123456")
}
