package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type mockDeleter struct {
	mu     sync.Mutex
	calls  int
	before []time.Time
	count  int64
	err    error
}

func (m *mockDeleter) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.before = append(m.before, before)
	return m.count, m.err
}

func (m *mockDeleter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockRecorder struct {
	swept []int64
}

func (m *mockRecorder) RecordSessionsSwept(count int64) {
	m.swept = append(m.swept, count)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestCleanupJob_Run_DeletesUpToNow(t *testing.T) {
	var buf bytes.Buffer
	deleter := &mockDeleter{count: 3}
	recorder := &mockRecorder{}

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	job := NewCleanupJob(deleter, newTestLogger(&buf), recorder)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if len(deleter.before) != 1 || !deleter.before[0].Equal(now) {
		t.Errorf("DeleteExpired の基準時刻 = %v, want %v", deleter.before, now)
	}
	if len(recorder.swept) != 1 || recorder.swept[0] != 3 {
		t.Errorf("記録された削除件数 = %v, want [3]", recorder.swept)
	}
}

func TestCleanupJob_Run_LogsDeletedCount(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockDeleter{count: 42}, newTestLogger(&buf), nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("ログのJSONパースに失敗: %v\nraw: %s", err, buf.String())
	}
	if entry["deleted_count"] != float64(42) {
		t.Errorf("deleted_count = %v, want 42", entry["deleted_count"])
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("ログに duration_ms が含まれていない")
	}
}

func TestCleanupJob_Run_ReturnsErrorOnFailure(t *testing.T) {
	var buf bytes.Buffer
	recorder := &mockRecorder{}
	job := NewCleanupJob(&mockDeleter{err: errors.New("connection refused")}, newTestLogger(&buf), recorder)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("DeleteExpired がエラーを返した場合、Run() もエラーを返すべき")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("エラーに原因が含まれていない: %v", err)
	}
	if len(recorder.swept) != 0 {
		t.Errorf("失敗時は削除件数を記録しない: %v", recorder.swept)
	}
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("エラーログが出力されていない: %s", buf.String())
	}
}

func TestCleanupJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	deleter := &mockDeleter{}
	job := NewCleanupJob(deleter, newTestLogger(&buf), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, 20*time.Millisecond)
		close(done)
	}()

	time.Sleep(70 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start() がキャンセル後に終了しなかった")
	}

	if got := deleter.callCount(); got < 2 {
		t.Errorf("DeleteExpired の呼び出し回数 = %d, want >= 2", got)
	}
}
