package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.sendgrid.com"

// Sender delivers transactional mail. The identity core depends only on this
// signature; delivery mechanics stay behind it.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// SendGrid sends through the SendGrid v3 mail API.
type SendGrid struct {
	client *resty.Client
	from   string
	log    *zap.Logger
}

// SendGridOption configures the client.
type SendGridOption func(*SendGrid)

// WithBaseURL overrides the API endpoint, for tests.
func WithBaseURL(url string) SendGridOption {
	return func(s *SendGrid) {
		if url != "" {
			s.client.SetBaseURL(url)
		}
	}
}

// WithSendLogger sets the logger used for delivery failures.
func WithSendLogger(log *zap.Logger) SendGridOption {
	return func(s *SendGrid) {
		if log != nil {
			s.log = log
		}
	}
}

// NewSendGrid constructs a SendGrid sender.
func NewSendGrid(apiKey, from string, opts ...SendGridOption) (*SendGrid, error) {
	apiKey = strings.TrimSpace(apiKey)
	from = strings.TrimSpace(from)
	if apiKey == "" {
		return nil, errors.New("mail: api key is required")
	}
	if from == "" {
		return nil, errors.New("mail: sender address is required")
	}
	client := resty.New().
		SetBaseURL(defaultBaseURL).
		SetAuthToken(apiKey).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	s := &SendGrid{client: client, from: from, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type emailAddress struct {
	Email string `json:"email"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Send delivers one message. The html part is optional.
func (s *SendGrid) Send(ctx context.Context, to, subject, text, html string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("mail: recipient is required")
	}
	body := sendRequest{
		Personalizations: []personalization{{To: []emailAddress{{Email: to}}}},
		From:             emailAddress{Email: s.from},
		Subject:          subject,
		Content:          []content{{Type: "text/plain", Value: text}},
	}
	if html != "" {
		body.Content = append(body.Content, content{Type: "text/html", Value: html})
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/v3/mail/send")
	if err != nil {
		s.log.Error("mail delivery failed", zap.Error(err))
		return fmt.Errorf("mail: send: %w", err)
	}
	if resp.IsError() {
		s.log.Error("mail delivery rejected",
			zap.Int("status", resp.StatusCode()))
		return fmt.Errorf("mail: send: unexpected status %d", resp.StatusCode())
	}
	return nil
}

// Nop discards messages; used when no mail credentials are configured.
type Nop struct {
	Log *zap.Logger
}

func (n Nop) Send(_ context.Context, to, subject, _, _ string) error {
	if n.Log != nil {
		n.Log.Info("mail delivery skipped", zap.String("to", to), zap.String("subject", subject))
	}
	return nil
}
