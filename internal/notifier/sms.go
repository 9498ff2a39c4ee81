package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SMSClient 短信发送客户端（Twilio 兼容接口）
type SMSClient struct {
	httpClient *resty.Client
	accountSID string
	from       string
	logger     *zap.Logger
}

// NewSMSClient 创建短信客户端
func NewSMSClient(baseURL, accountSID, authToken, from string, logger *zap.Logger) *SMSClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetBasicAuth(accountSID, authToken)

	return &SMSClient{
		httpClient: client,
		accountSID: accountSID,
		from:       from,
		logger:     logger,
	}
}

// Send 发送一条短信
// 发送结果只影响投递记录的 delivered 标记，不影响提交状态
func (c *SMSClient) Send(ctx context.Context, to, body string) error {
	if to == "" {
		return fmt.Errorf("destination phone is required")
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"From": c.from,
			"To":   to,
			"Body": body,
		}).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", c.accountSID))

	if err != nil {
		c.logger.Error("SMS send failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("SMS provider returned error status",
			zap.String("to", to),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("SMS provider error: status %d", resp.StatusCode())
	}

	c.logger.Info("SMS sent", zap.String("to", to))
	return nil
}
