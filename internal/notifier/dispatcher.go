package notifier

import (
	"context"
	"fmt"

	"asclepius-triage/internal/models"

	"go.uber.org/zap"
)

// SMSSender 短信发送能力
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// EmailSender 邮件发送能力
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DeliveredMarker 投递送达标记能力
type DeliveredMarker interface {
	MarkDelivered(ctx context.Context, submissionID, reviewerID string) error
}

// Dispatcher 渠道分发器
// 将一条投递记录渲染为告警消息并通过配置的渠道实际发出。
// 发送失败只记录日志并反馈给调用方，不触碰 Submission 状态
type Dispatcher struct {
	sms         SMSSender
	email       EmailSender
	deliveries  DeliveredMarker
	frontendURL string
	logger      *zap.Logger
}

// NewDispatcher 创建渠道分发器
func NewDispatcher(sms SMSSender, email EmailSender, deliveries DeliveredMarker, frontendURL string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sms:         sms,
		email:       email,
		deliveries:  deliveries,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// renderBody 渲染告警消息正文
func (d *Dispatcher) renderBody(submission *models.Submission, reviewer *models.Reviewer) string {
	summary := "Summary not available"
	if submission.Summary != nil && *submission.Summary != "" {
		summary = *submission.Summary
	}
	if len(summary) > 100 {
		summary = summary[:100] + "..."
	}

	urgency := "unknown"
	if submission.UrgencyLevel != nil {
		urgency = *submission.UrgencyLevel
	}

	return fmt.Sprintf(
		"EMERGENCY ALERT - Dr. %s\n\nPatient Summary: %s\n\nUrgency: %s\n\nView full details at: %s/submission/%s",
		reviewer.LastName,
		summary,
		urgency,
		d.frontendURL,
		submission.ID,
	)
}

// Dispatch 通过指定渠道发出一条投递
// 任一渠道成功即标记 delivered；全部失败返回错误
func (d *Dispatcher) Dispatch(ctx context.Context, submission *models.Submission, reviewer *models.Reviewer, channel models.Channel) error {
	if submission == nil {
		return fmt.Errorf("submission is required")
	}
	if reviewer == nil {
		return fmt.Errorf("reviewer is required")
	}
	if !channel.Valid() {
		return fmt.Errorf("invalid channel: %s", channel)
	}

	body := d.renderBody(submission, reviewer)
	subject := fmt.Sprintf("Emergency Alert - Patient Summary for Dr. %s", reviewer.LastName)

	var smsErr, emailErr error
	sent := false

	if channel == models.ChannelSMS || channel == models.ChannelBoth {
		if smsErr = d.sms.Send(ctx, reviewer.Phone, body); smsErr == nil {
			sent = true
		}
	}
	if channel == models.ChannelEmail || channel == models.ChannelBoth {
		if emailErr = d.email.Send(ctx, reviewer.Email, subject, body); emailErr == nil {
			sent = true
		}
	}

	if !sent {
		if smsErr != nil {
			return fmt.Errorf("dispatch failed: %w", smsErr)
		}
		return fmt.Errorf("dispatch failed: %w", emailErr)
	}

	if err := d.deliveries.MarkDelivered(ctx, submission.ID, reviewer.ID); err != nil {
		// 消息已实际发出，送达标记失败只记录
		d.logger.Warn("Failed to mark delivery as delivered",
			zap.String("submission_id", submission.ID),
			zap.String("reviewer_id", reviewer.ID),
			zap.Error(err),
		)
	}

	return nil
}
