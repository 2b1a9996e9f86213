// Package notifier delivers OTP codes to candidates.
package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSPublisher is the subset of the SNS client used to send SMS.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier sends OTPs as transactional SMS.
type SNSNotifier struct {
	client   SNSPublisher
	senderID string
}

func NewSNSNotifier(client SNSPublisher, senderID string) *SNSNotifier {
	return &SNSNotifier{client: client, senderID: senderID}
}

// NewSNSClient loads the default AWS credential chain for region.
func NewSNSClient(ctx context.Context, region string) (*sns.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return sns.NewFromConfig(cfg), nil
}

// SendOTP texts code to an Indian mobile number given as ten digits.
func (n *SNSNotifier) SendOTP(ctx context.Context, mobile, code string) error {
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
	}
	if n.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType: aws.String("String"), StringValue: aws.String(n.senderID),
		}
	}
	_, err := n.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String("+91" + mobile),
		Message:           aws.String(otpMessage(code)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("publish otp sms: %w", err)
	}
	return nil
}

func otpMessage(code string) string {
	return fmt.Sprintf("%s is your admission portal verification code. It expires shortly; do not share it.", code)
}

// LogNotifier writes OTPs to the log instead of sending them. The code
// itself is logged only when reveal is set.
type LogNotifier struct {
	logger *slog.Logger
	reveal bool
}

func NewLogNotifier(logger *slog.Logger, reveal bool) *LogNotifier {
	return &LogNotifier{logger: logger, reveal: reveal}
}

func (n *LogNotifier) SendOTP(ctx context.Context, mobile, code string) error {
	attrs := []any{"mobile", MaskMobile(mobile)}
	if n.reveal {
		attrs = append(attrs, "otp", code)
	}
	n.logger.InfoContext(ctx, "otp issued", attrs...)
	return nil
}

// MaskMobile keeps the last four digits.
func MaskMobile(mobile string) string {
	if len(mobile) <= 4 {
		return mobile
	}
	masked := make([]byte, len(mobile))
	for i := range masked {
		if i < len(mobile)-4 {
			masked[i] = '*'
		} else {
			masked[i] = mobile[i]
		}
	}
	return string(masked)
}
