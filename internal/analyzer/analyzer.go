package analyzer

import (
	"context"
	"fmt"
	"time"

	"asclepius-triage/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// chatRequest OpenAI 兼容 chat completions 请求
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse OpenAI 兼容 chat completions 响应
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyzer 风险分析适配器
// 将转写文本 + 自由文本补充信息发给生成式语言服务，得到结构化临床评估。
// Analyze 对外永不失败：任何传输/解析/校验错误都降级为固定的 fallback 评估
type Analyzer struct {
	httpClient *resty.Client
	model      string
	logger     *zap.Logger
}

// NewAnalyzer 创建风险分析适配器
func NewAnalyzer(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *Analyzer {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &Analyzer{
		httpClient: client,
		model:      model,
		logger:     logger,
	}
}

// buildPrompt 组装评估提示词
// 评分区间和优先级映射是固定策略，测试依赖其确定性
func buildPrompt(transcript, contextText string) string {
	return `You are an emergency medicine AI specialist. Analyze this field responder conversation and patient information to provide a comprehensive medical assessment.

AUDIO TRANSCRIPTION: ` + transcript + `

ADDITIONAL PATIENT INFORMATION: ` + contextText + `

Analyze BOTH the audio conversation AND the typed patient information to provide a complete medical assessment.

Return ONLY this JSON structure (no other text):
{
  "chief_complaint": "Brief description of the patient's main complaint",
  "vital_signs": "Any vital signs mentioned (BP, HR, RR, Temp, O2 Sat, etc.)",
  "symptoms": "Key symptoms observed or reported",
  "risk_score": 5,
  "priority_level": 3,
  "urgency_level": "urgent",
  "recommended_actions": "Specific medical actions recommended",
  "critical_info": "Critical information for doctors",
  "medical_summary": "Comprehensive medical summary"
}

RISK SCORING GUIDELINES (be precise):
- Risk 9-10: Multiple severe traumas, cardiac arrest, severe bleeding, unconscious/unresponsive
- Risk 7-8: Single severe trauma (major car accident with multiple injuries), severe head injury, chest trauma
- Risk 5-6: Moderate trauma (broken bones, moderate injuries), stable but injured patients
- Risk 3-4: Minor injuries (cuts, bruises, minor fractures), stable patients with minor complaints
- Risk 1-2: Very minor issues (heartburn, minor cuts), routine care patients

PRIORITY LEVEL GUIDELINES:
- Priority 1: Critical (risk 9-10)
- Priority 2: High (risk 7-8)
- Priority 3: Medium (risk 5-6)
- Priority 4: Low (risk 3-4)
- Priority 5: Routine (risk 1-2)

URGENCY LEVELS:
- "critical": Risk 9-10
- "urgent": Risk 7-8
- "moderate": Risk 5-6
- "low": Risk 3-4
- "routine": Risk 1-2

EXAMPLES:
- "Patient dying, fell from bridge, then run over by car" = Risk 9-10
- "Major car accident, multiple injuries, unconscious" = Risk 7-8
- "Car accident, broken arm, stable vital signs" = Risk 5-6
- "Minor car accident, cuts and bruises" = Risk 3-4
- "Heartburn, feeling fine" = Risk 1-2

Return ONLY the JSON object with no additional text.`
}

// Analyze 执行风险分析
// transcript 和 contextText 都允许为空；返回值永不为 nil，错误不外溢
func (a *Analyzer) Analyze(ctx context.Context, transcript, contextText string) *models.Assessment {
	request := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "user", Content: buildPrompt(transcript, contextText)},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	}

	var response chatResponse
	resp, err := a.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/v1/chat/completions")

	if err != nil {
		a.logger.Error("Analysis service call failed, using fallback assessment",
			zap.Error(err),
		)
		return FallbackAssessment()
	}
	if resp.IsError() {
		a.logger.Error("Analysis service returned error status, using fallback assessment",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return FallbackAssessment()
	}
	if len(response.Choices) == 0 {
		a.logger.Error("Analysis service returned no choices, using fallback assessment")
		return FallbackAssessment()
	}

	raw := response.Choices[0].Message.Content
	assessment, err := ParseAssessment(raw)
	if err != nil {
		a.logger.Error("Failed to parse analysis response, using fallback assessment",
			zap.Error(err),
			zap.String("raw_response", truncate(raw, 500)),
		)
		return FallbackAssessment()
	}

	a.logger.Info("Analysis completed",
		zap.Int("risk_score", assessment.RiskScore),
		zap.Int("priority_level", assessment.PriorityLevel),
		zap.String("urgency_level", assessment.UrgencyLevel),
	)

	return assessment
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes total)", s[:n], len(s))
}
