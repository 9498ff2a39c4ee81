package models

import "time"

// Channel 通知投递渠道
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelBoth  Channel = "both"
)

// Valid 判断是否为合法渠道值
func (c Channel) Valid() bool {
	return c == ChannelSMS || c == ChannelEmail || c == ChannelBoth
}

// Delivery 通知投递记录（对应 deliveries 表）
// 每条记录关联且仅关联一个 Submission 和一个 Reviewer
// 创建后生命周期与 Submission 流水线无关（可在流水线结束后被已读/回复）
type Delivery struct {
	ID           string     `json:"id" db:"id"`
	SubmissionID string     `json:"submission_id" db:"submission_id"`
	ReviewerID   string     `json:"reviewer_id" db:"reviewer_id"`
	Channel      Channel    `json:"channel" db:"channel"`
	SentAt       time.Time  `json:"sent_at" db:"sent_at"`
	Delivered    bool       `json:"delivered" db:"delivered"`
	ReadAt       *time.Time `json:"read_at,omitempty" db:"read_at"`
	Response     *string    `json:"response,omitempty" db:"response"`
}

// DeliveryDetail 审阅人通知列表视图（JOIN submissions 后的展开行）
type DeliveryDetail struct {
	Delivery
	ContextText    string    `json:"context_text" db:"context_text"`
	Summary        *string   `json:"summary,omitempty" db:"summary"`
	UrgencyLevel   *string   `json:"urgency_level,omitempty" db:"urgency_level"`
	RiskScore      *int      `json:"risk_score,omitempty" db:"risk_score"`
	PriorityLevel  *int      `json:"priority_level,omitempty" db:"priority_level"`
	ChiefComplaint *string   `json:"chief_complaint,omitempty" db:"chief_complaint"`
	SubmittedAt    time.Time `json:"submitted_at" db:"submitted_at"`
}
