package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"asclepius-triage/internal/models"
	"asclepius-triage/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRecords 内存版 RecordStore，记录全部状态迁移和结果写入
type fakeRecords struct {
	mu          sync.Mutex
	contextText string
	statuses    []models.Status
	transcript  string
	assessment  *models.Assessment

	failUpdateResults bool
	failGetContext    bool
}

func (f *fakeRecords) GetContextText(ctx context.Context, id string) (string, error) {
	if f.failGetContext {
		return "", fmt.Errorf("submission not found: %s", id)
	}
	return f.contextText, nil
}

func (f *fakeRecords) UpdateStatus(ctx context.Context, id string, from, to models.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !from.CanTransition(to) {
		return fmt.Errorf("invalid status transition: %s -> %s", from, to)
	}
	f.statuses = append(f.statuses, to)
	return nil
}

func (f *fakeRecords) UpdateResults(ctx context.Context, id, transcript string, a *models.Assessment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdateResults {
		return fmt.Errorf("failed to persist results: disk full")
	}
	f.transcript = transcript
	f.assessment = a
	f.statuses = append(f.statuses, models.StatusCompleted)
	return nil
}

func (f *fakeRecords) MarkError(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, models.StatusError)
	return nil
}

func (f *fakeRecords) statusSequence() []models.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Status, len(f.statuses))
	copy(out, f.statuses)
	return out
}

// fakeTranscriber 可配置结果/失败/阻塞的转写假实现
type fakeTranscriber struct {
	text    string
	err     error
	started chan struct{} // 非 nil 时：进入 Transcribe 后发信号
	release chan struct{} // 非 nil 时：阻塞直到被释放
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, artifactRef string) (string, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.text, f.err
}

// fakeAnalyzer 返回固定评估
type fakeAnalyzer struct {
	assessment *models.Assessment
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, transcript, contextText string) *models.Assessment {
	return f.assessment
}

// fakeNotifier 记录分发调用
type fakeNotifier struct {
	mu      sync.Mutex
	calls   int
	created int
	err     error
}

func (f *fakeNotifier) Notify(ctx context.Context, submissionID, summary string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.created, nil
}

func newTestLock(t *testing.T) *store.RunLock {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return store.NewRunLock(client, time.Minute)
}

func goodAssessment() *models.Assessment {
	return &models.Assessment{
		ChiefComplaint: "Multiple trauma",
		RiskScore:      9,
		PriorityLevel:  1,
		UrgencyLevel:   "critical",
		Summary:        "Critical trauma patient",
	}
}

func TestRun_HappyPath(t *testing.T) {
	records := &fakeRecords{contextText: "40 year old male"}
	notify := &fakeNotifier{created: 2}
	runner := NewRunner(
		records,
		&fakeTranscriber{text: "patient fell from height"},
		&fakeAnalyzer{assessment: goodAssessment()},
		notify,
		newTestLock(t),
		zap.NewNop(),
	)

	err := runner.Run(context.Background(), "sub-1", "uploads/recording-1.wav")
	require.NoError(t, err)

	// processing → completed，分发被调用
	assert.Equal(t, []models.Status{models.StatusProcessing, models.StatusCompleted}, records.statusSequence())
	assert.Equal(t, "patient fell from height", records.transcript)
	assert.Equal(t, 9, records.assessment.RiskScore)
	assert.Equal(t, 1, notify.calls)
}

func TestRun_TranscriptionFailure_MarksError(t *testing.T) {
	records := &fakeRecords{}
	notify := &fakeNotifier{}
	runner := NewRunner(
		records,
		&fakeTranscriber{err: fmt.Errorf("transcription service error: status 502")},
		&fakeAnalyzer{assessment: goodAssessment()},
		notify,
		newTestLock(t),
		zap.NewNop(),
	)

	err := runner.Run(context.Background(), "sub-1", "uploads/recording-1.wav")
	require.Error(t, err)

	// 转写失败 → error，分析字段未写入，不分发
	assert.Equal(t, []models.Status{models.StatusProcessing, models.StatusError}, records.statusSequence())
	assert.Nil(t, records.assessment)
	assert.Empty(t, records.transcript)
	assert.Equal(t, 0, notify.calls)
}

func TestRun_FallbackAnalysisStillCompletes(t *testing.T) {
	fallback := &models.Assessment{
		ChiefComplaint: "Unable to analyze",
		RiskScore:      5,
		PriorityLevel:  3,
		UrgencyLevel:   "moderate",
		CriticalInfo:   "AI analysis failed",
		Fallback:       true,
	}
	records := &fakeRecords{}
	runner := NewRunner(
		records,
		&fakeTranscriber{text: "garbled audio"},
		&fakeAnalyzer{assessment: fallback},
		&fakeNotifier{created: 1},
		newTestLock(t),
		zap.NewNop(),
	)

	err := runner.Run(context.Background(), "sub-1", "uploads/recording-1.wav")
	require.NoError(t, err)

	// 降级评估不会让流水线进入 error
	assert.Equal(t, []models.Status{models.StatusProcessing, models.StatusCompleted}, records.statusSequence())
	assert.True(t, records.assessment.Fallback)
	assert.Equal(t, 5, records.assessment.RiskScore)
}

func TestRun_PersistFailure_MarksError(t *testing.T) {
	records := &fakeRecords{failUpdateResults: true}
	notify := &fakeNotifier{}
	runner := NewRunner(
		records,
		&fakeTranscriber{text: "transcript"},
		&fakeAnalyzer{assessment: goodAssessment()},
		notify,
		newTestLock(t),
		zap.NewNop(),
	)

	err := runner.Run(context.Background(), "sub-1", "uploads/recording-1.wav")
	require.Error(t, err)

	assert.Equal(t, []models.Status{models.StatusProcessing, models.StatusError}, records.statusSequence())
	assert.Equal(t, 0, notify.calls)
}

func TestRun_FanOutFailure_StaysCompleted(t *testing.T) {
	records := &fakeRecords{}
	notify := &fakeNotifier{err: fmt.Errorf("failed to list available reviewers: connection refused")}
	runner := NewRunner(
		records,
		&fakeTranscriber{text: "transcript"},
		&fakeAnalyzer{assessment: goodAssessment()},
		notify,
		newTestLock(t),
		zap.NewNop(),
	)

	err := runner.Run(context.Background(), "sub-1", "uploads/recording-1.wav")
	require.NoError(t, err)

	// 分发失败不回滚：completed 是最终写入的状态
	seq := records.statusSequence()
	assert.Equal(t, models.StatusCompleted, seq[len(seq)-1])
	assert.Equal(t, 1, notify.calls)
}

func TestRun_ConcurrentTriggersSameSubmission_SingleRun(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	records := &fakeRecords{}
	runner := NewRunner(
		records,
		&fakeTranscriber{text: "transcript", started: started, release: release},
		&fakeAnalyzer{assessment: goodAssessment()},
		&fakeNotifier{created: 1},
		newTestLock(t),
		zap.NewNop(),
	)

	// 第一次运行：阻塞在转写中
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- runner.Run(context.Background(), "sub-1", "uploads/recording-1.wav")
	}()
	<-started

	// 第二次触发同一提交：必须被忽略，不产生任何写入
	err := runner.Run(context.Background(), "sub-1", "uploads/recording-1.wav")
	require.NoError(t, err)
	assert.Equal(t, []models.Status{models.StatusProcessing}, records.statusSequence())

	// 释放第一次运行
	close(release)
	require.NoError(t, <-firstDone)

	// 最终状态等于恰好一次运行的输出
	assert.Equal(t, []models.Status{models.StatusProcessing, models.StatusCompleted}, records.statusSequence())
	assert.Equal(t, "transcript", records.transcript)
}

func TestTrigger_ReturnsImmediately(t *testing.T) {
	release := make(chan struct{})
	records := &fakeRecords{}
	runner := NewRunner(
		records,
		&fakeTranscriber{text: "transcript", release: release},
		&fakeAnalyzer{assessment: goodAssessment()},
		&fakeNotifier{created: 1},
		newTestLock(t),
		zap.NewNop(),
	)

	start := time.Now()
	runner.Trigger("sub-1", "uploads/recording-1.wav")
	elapsed := time.Since(start)

	// fire-and-forget：触发不等待流水线
	assert.Less(t, elapsed, time.Second)

	close(release)
	runner.Wait()
	assert.Equal(t, []models.Status{models.StatusProcessing, models.StatusCompleted}, records.statusSequence())
}
