package models

// Assessment 风险分析适配器产出的结构化评估
// JSON 标签与分析服务的响应契约一一对应
type Assessment struct {
	ChiefComplaint     string `json:"chief_complaint"`
	VitalSigns         string `json:"vital_signs"`
	Symptoms           string `json:"symptoms"`
	RiskScore          int    `json:"risk_score"`     // 0-10
	PriorityLevel      int    `json:"priority_level"` // 1-5，由 RiskScore 推导
	UrgencyLevel       string `json:"urgency_level"`  // critical/urgent/moderate/low/routine
	RecommendedActions string `json:"recommended_actions"`
	CriticalInfo       string `json:"critical_info"`
	Summary            string `json:"medical_summary"`

	// Fallback 标记本次评估是否为降级默认值（分析服务响应无法解析时）
	Fallback bool `json:"-"`
}
