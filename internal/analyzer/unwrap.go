package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"asclepius-triage/internal/models"
)

// Unwrap 剥离分析服务响应外层的代码块围栏和前后缀散文
// 模型即使被要求只返回 JSON，仍可能输出：
//   - ```json ... ``` 或 ``` ... ``` 围栏
//   - JSON 前后夹杂说明文字
// 剥离只做定位，不做解析；解析失败由 ParseAssessment 处理
func Unwrap(raw string) string {
	s := strings.TrimSpace(raw)

	// 优先处理围栏包裹
	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
		return strings.TrimSpace(s)
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+len("```"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
		return strings.TrimSpace(s)
	}

	// 无围栏：截取首个 '{' 到最后一个 '}' 之间的内容
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return strings.TrimSpace(s[start : end+1])
	}

	return s
}

// ParseAssessment 解析剥离后的响应为结构化评估
// 结果经过归一化：风险分截断到 0-10，优先级与紧急程度由风险分推导，
// 保证三者一致（不信任模型自报的 priority/urgency）
func ParseAssessment(raw string) (*models.Assessment, error) {
	cleaned := Unwrap(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("empty analysis response")
	}

	var a models.Assessment
	if err := json.Unmarshal([]byte(cleaned), &a); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}
	if a.ChiefComplaint == "" && a.Summary == "" {
		return nil, fmt.Errorf("analysis response missing required fields")
	}

	a.RiskScore = ClampRiskScore(a.RiskScore)
	a.PriorityLevel = PriorityForScore(a.RiskScore)
	a.UrgencyLevel = UrgencyForScore(a.RiskScore)

	return &a, nil
}

// FallbackAssessment 固定的降级评估
// 解析/校验失败时使用，让流水线仍能到达 completed：
// 宁可让审阅人看到一条"待人工复核"的记录，也不让流水线卡死在 error
func FallbackAssessment() *models.Assessment {
	return &models.Assessment{
		ChiefComplaint:     "Unable to analyze",
		VitalSigns:         "Not available",
		Symptoms:           "Not specified",
		RiskScore:          5,
		PriorityLevel:      3,
		UrgencyLevel:       UrgencyModerate,
		RecommendedActions: "Manual review required",
		CriticalInfo:       "AI analysis failed",
		Summary:            "Unable to generate medical summary",
		Fallback:           true,
	}
}
