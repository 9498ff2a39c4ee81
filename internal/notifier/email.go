package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// emailRequest SendGrid 兼容发信请求
type emailRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []emailContent    `json:"content"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type emailAddress struct {
	Email string `json:"email"`
}

type emailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// EmailClient 邮件发送客户端（SendGrid 兼容接口）
type EmailClient struct {
	httpClient *resty.Client
	from       string
	logger     *zap.Logger
}

// NewEmailClient 创建邮件客户端
func NewEmailClient(baseURL, apiKey, from string, logger *zap.Logger) *EmailClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &EmailClient{
		httpClient: client,
		from:       from,
		logger:     logger,
	}
}

// Send 发送一封通知邮件
func (c *EmailClient) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("destination email is required")
	}

	request := emailRequest{
		Personalizations: []personalization{
			{To: []emailAddress{{Email: to}}},
		},
		From:    emailAddress{Email: c.from},
		Subject: subject,
		Content: []emailContent{
			{Type: "text/plain", Value: body},
		},
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		Post("/v3/mail/send")

	if err != nil {
		c.logger.Error("Email send failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("Email provider returned error status",
			zap.String("to", to),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("email provider error: status %d", resp.StatusCode())
	}

	c.logger.Info("Email sent", zap.String("to", to))
	return nil
}
