package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusProcessing, StatusCompleted, StatusNotified, StatusError} {
		assert.True(t, s.Valid(), "expected %s to be valid", s)
	}
	assert.False(t, Status("unknown").Valid())
	assert.False(t, Status("").Valid())
}

func TestStatus_CanTransition_ForwardPath(t *testing.T) {
	// 合法前进路径
	assert.True(t, StatusPending.CanTransition(StatusProcessing))
	assert.True(t, StatusProcessing.CanTransition(StatusCompleted))
	assert.True(t, StatusCompleted.CanTransition(StatusNotified))
}

func TestStatus_CanTransition_NoRegression(t *testing.T) {
	// 状态不可回退
	assert.False(t, StatusProcessing.CanTransition(StatusPending))
	assert.False(t, StatusCompleted.CanTransition(StatusProcessing))
	assert.False(t, StatusNotified.CanTransition(StatusCompleted))
	assert.False(t, StatusNotified.CanTransition(StatusPending))
}

func TestStatus_CanTransition_NoSkipping(t *testing.T) {
	// 不可跳级
	assert.False(t, StatusPending.CanTransition(StatusCompleted))
	assert.False(t, StatusPending.CanTransition(StatusNotified))
	assert.False(t, StatusProcessing.CanTransition(StatusNotified))
}

func TestStatus_CanTransition_ErrorReachableFromNonTerminal(t *testing.T) {
	// error 可从任意非终态到达
	assert.True(t, StatusPending.CanTransition(StatusError))
	assert.True(t, StatusProcessing.CanTransition(StatusError))
	assert.True(t, StatusCompleted.CanTransition(StatusError))

	// 终态不可再进入 error
	assert.False(t, StatusNotified.CanTransition(StatusError))
	assert.False(t, StatusError.CanTransition(StatusError))
}

func TestStatus_ErrorIsTerminal(t *testing.T) {
	// error 之后不允许任何状态
	for _, to := range []Status{StatusPending, StatusProcessing, StatusCompleted, StatusNotified, StatusError} {
		assert.False(t, StatusError.CanTransition(to), "error must not transition to %s", to)
	}
	assert.True(t, StatusError.Terminal())
	assert.True(t, StatusNotified.Terminal())
	assert.False(t, StatusCompleted.Terminal())
}
