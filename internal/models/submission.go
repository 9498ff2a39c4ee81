package models

import (
	"time"
)

// Status 提交记录处理状态
type Status string

const (
	StatusPending    Status = "pending"    // 初始状态（上传成功后）
	StatusProcessing Status = "processing" // 流水线处理中
	StatusCompleted  Status = "completed"  // 转写+分析完成，结果已落库
	StatusNotified   Status = "notified"   // 通知分发完成
	StatusError      Status = "error"      // 终态：转写失败或落库失败
)

// statusRank 状态序号（用于单调性校验）
var statusRank = map[Status]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusCompleted:  2,
	StatusNotified:   3,
}

// Valid 判断是否为合法状态值
func (s Status) Valid() bool {
	if s == StatusError {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Terminal 判断是否为终态
// error 和 notified 都不再有后继状态
func (s Status) Terminal() bool {
	return s == StatusError || s == StatusNotified
}

// CanTransition 状态机迁移校验
// 规则：
// - 状态只能前进不能回退（pending → processing → completed → notified）
// - error 可以从任意非终态到达，error 本身是终态
func (s Status) CanTransition(to Status) bool {
	if s == StatusError {
		return false
	}
	if to == StatusError {
		return !s.Terminal()
	}
	from, ok1 := statusRank[s]
	next, ok2 := statusRank[to]
	if !ok1 || !ok2 {
		return false
	}
	return next == from+1
}

// Submission 提交记录（对应 submissions 表）
// 一条现场音频报告及其派生的结构化评估
type Submission struct {
	ID          string `json:"id" db:"id"`
	ResponderID string `json:"responder_id" db:"responder_id"`
	ContextText string `json:"context_text" db:"context_text"` // 自由文本补充信息（原 patient_info）
	ArtifactRef string `json:"artifact_ref" db:"artifact_ref"` // 音频文件存储路径

	// 转写结果（转写完成前为空）
	Transcript *string `json:"transcript,omitempty" db:"transcript"`

	// 结构化评估字段（分析完成前为空）
	ChiefComplaint     *string `json:"chief_complaint,omitempty" db:"chief_complaint"`
	VitalSigns         *string `json:"vital_signs,omitempty" db:"vital_signs"`
	Symptoms           *string `json:"symptoms,omitempty" db:"symptoms"`
	RecommendedActions *string `json:"recommended_actions,omitempty" db:"recommended_actions"`
	CriticalInfo       *string `json:"critical_info,omitempty" db:"critical_info"`
	Summary            *string `json:"summary,omitempty" db:"summary"`

	RiskScore     *int    `json:"risk_score,omitempty" db:"risk_score"`         // 0-10
	PriorityLevel *int    `json:"priority_level,omitempty" db:"priority_level"` // 1-5，数值越小越紧急
	UrgencyLevel  *string `json:"urgency_level,omitempty" db:"urgency_level"`   // critical/urgent/moderate/low/routine

	Status    Status    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
