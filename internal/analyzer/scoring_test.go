package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityAndUrgencyForScore_FullTable(t *testing.T) {
	// 固定映射表：0-10 全量覆盖（含边界 2/3/4/6/7/8/9）
	cases := []struct {
		score    int
		priority int
		urgency  string
	}{
		{0, 5, UrgencyRoutine},
		{1, 5, UrgencyRoutine},
		{2, 5, UrgencyRoutine},
		{3, 4, UrgencyLow},
		{4, 4, UrgencyLow},
		{5, 3, UrgencyModerate},
		{6, 3, UrgencyModerate},
		{7, 2, UrgencyUrgent},
		{8, 2, UrgencyUrgent},
		{9, 1, UrgencyCritical},
		{10, 1, UrgencyCritical},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.priority, PriorityForScore(tc.score), "priority for score %d", tc.score)
		assert.Equal(t, tc.urgency, UrgencyForScore(tc.score), "urgency for score %d", tc.score)
	}
}

func TestClampRiskScore(t *testing.T) {
	assert.Equal(t, 0, ClampRiskScore(-3))
	assert.Equal(t, 0, ClampRiskScore(0))
	assert.Equal(t, 10, ClampRiskScore(10))
	assert.Equal(t, 10, ClampRiskScore(42))
	assert.Equal(t, 7, ClampRiskScore(7))
}

func TestScoreOutOfRange_MapsLikeClampedValue(t *testing.T) {
	// 越界分数按截断后的值映射
	assert.Equal(t, 1, PriorityForScore(15))
	assert.Equal(t, UrgencyCritical, UrgencyForScore(15))
	assert.Equal(t, 5, PriorityForScore(-1))
	assert.Equal(t, UrgencyRoutine, UrgencyForScore(-1))
}
