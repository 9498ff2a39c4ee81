package analyzer

// 紧急程度标签（与分析服务的响应契约一致）
const (
	UrgencyCritical = "critical" // 风险分 9-10
	UrgencyUrgent   = "urgent"   // 风险分 7-8
	UrgencyModerate = "moderate" // 风险分 5-6
	UrgencyLow      = "low"      // 风险分 3-4
	UrgencyRoutine  = "routine"  // 风险分 0-2
)

// ClampRiskScore 将风险分约束到 [0, 10]
func ClampRiskScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

// PriorityForScore 由风险分推导处理优先级（1-5，数值越小越紧急）
// 固定映射，保证 risk_score / priority_level / urgency_level 三者始终一致
func PriorityForScore(score int) int {
	switch s := ClampRiskScore(score); {
	case s >= 9:
		return 1
	case s >= 7:
		return 2
	case s >= 5:
		return 3
	case s >= 3:
		return 4
	default:
		return 5
	}
}

// UrgencyForScore 由风险分推导紧急程度标签
func UrgencyForScore(score int) string {
	switch s := ClampRiskScore(score); {
	case s >= 9:
		return UrgencyCritical
	case s >= 7:
		return UrgencyUrgent
	case s >= 5:
		return UrgencyModerate
	case s >= 3:
		return UrgencyLow
	default:
		return UrgencyRoutine
	}
}
