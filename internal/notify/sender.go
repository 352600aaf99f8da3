package notify

import (
	"context"

	"nextaz-be/internal/logger"

	"github.com/go-faster/errors"
	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Sender delivers a rendered message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

type resendSender struct {
	client *resend.Client
}

func NewResendSender(apiKey string) Sender {
	return &resendSender{client: resend.NewClient(apiKey)}
}

func newResendSenderWithClient(client *resend.Client) Sender {
	return &resendSender{client: client}
}

func (s *resendSender) Send(ctx context.Context, msg Message) (string, error) {
	req := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	}

	resp, err := s.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return "", errors.Wrapf(err, "resend %s email", msg.Kind)
	}
	return resp.Id, nil
}

type logSender struct{}

// NewLogSender returns a Sender that only logs. Used when no provider key is set.
func NewLogSender() Sender {
	return logSender{}
}

func (logSender) Send(ctx context.Context, msg Message) (string, error) {
	logger.FromCtx(ctx).Warn("email provider not configured, message not sent",
		zap.String("kind", msg.Kind),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return "", nil
}
