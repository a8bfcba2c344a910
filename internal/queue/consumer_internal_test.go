package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/speakflow/internal/domain"
)

type fakePublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
	err      error
}

func (f *fakePublisher) PublishJSON(_ context.Context, queue string, data any) error {
	if f.err != nil {
		return f.err
	}
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messages == nil {
		f.messages = make(map[string][][]byte)
	}
	f.messages[queue] = append(f.messages[queue], body)
	return nil
}

func (f *fakePublisher) results(t *testing.T) []AnalysisResult {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []AnalysisResult
	for _, body := range f.messages[ResultQueueName] {
		var r AnalysisResult
		if err := json.Unmarshal(body, &r); err != nil {
			t.Fatalf("unmarshal result: %v", err)
		}
		out = append(out, r)
	}
	return out
}

type fakeAck struct {
	acked, rejected, requeue bool
}

func (a *fakeAck) Ack(bool) error { a.acked = true; return nil }
func (a *fakeAck) Reject(requeue bool) error {
	a.rejected, a.requeue = true, requeue
	return nil
}

func newTestConsumer(handler JobHandler) (*Consumer, *fakePublisher) {
	pub := &fakePublisher{}
	return &Consumer{handler: handler, producer: NewProducer(pub)}, pub
}

func jobBody(t *testing.T, job AnalysisJob) []byte {
	t.Helper()
	body, err := json.Marshal(job)
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestProducer_PublishJob_AssignsID(t *testing.T) {
	pub := &fakePublisher{}
	job := &AnalysisJob{UserID: uuid.New(), Kind: domain.KindPractice, Topic: domain.TopicTravel}

	if err := NewProducer(pub).PublishJob(context.Background(), job); err != nil {
		t.Fatalf("PublishJob() error = %v", err)
	}
	if job.ID == uuid.Nil || job.EnqueuedAt.IsZero() {
		t.Errorf("PublishJob() did not stamp ID/EnqueuedAt: %+v", job)
	}
	if n := len(pub.messages[JobQueueName]); n != 1 {
		t.Errorf("published %d jobs; want 1", n)
	}

	pub.err = ErrNotConnected
	if err := NewProducer(pub).PublishJob(context.Background(), &AnalysisJob{}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishJob() error = %v; want ErrNotConnected", err)
	}
}

func TestConsumer_ProcessMessage_Completed(t *testing.T) {
	sessionID := uuid.New()
	c, pub := newTestConsumer(func(ctx context.Context, job *AnalysisJob) (*AnalysisResult, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("handler context should carry the job deadline")
		}
		return &AnalysisResult{SessionID: sessionID, OverallLevel: domain.LevelB1Plus}, nil
	})

	job := AnalysisJob{ID: uuid.New(), UserID: uuid.New(), Kind: domain.KindPractice, Transcript: "hello"}
	ack := &fakeAck{}
	c.processMessage(context.Background(), 0, jobBody(t, job), ack)

	if !ack.acked || ack.rejected {
		t.Errorf("ack = %+v; want acked", ack)
	}
	results := pub.results(t)
	if len(results) != 1 {
		t.Fatalf("published %d results; want 1", len(results))
	}
	r := results[0]
	if r.JobID != job.ID || r.UserID != job.UserID || r.Status != StatusCompleted {
		t.Errorf("result = %+v", r)
	}
	if r.SessionID != sessionID || r.OverallLevel != domain.LevelB1Plus {
		t.Errorf("result session = %s / %s", r.SessionID, r.OverallLevel)
	}
	if r.Finished.IsZero() || r.Took < 0 {
		t.Errorf("result timing not stamped: took %v, finished %v", r.Took, r.Finished)
	}
}

func TestConsumer_ProcessMessage_NilResult(t *testing.T) {
	c, pub := newTestConsumer(func(context.Context, *AnalysisJob) (*AnalysisResult, error) {
		return nil, nil
	})

	job := AnalysisJob{ID: uuid.New()}
	c.processMessage(context.Background(), 0, jobBody(t, job), &fakeAck{})

	if r := pub.results(t)[0]; r.Status != StatusCompleted || r.JobID != job.ID {
		t.Errorf("result = %+v; want completed for %s", r, job.ID)
	}
}

func TestConsumer_ProcessMessage_Failed(t *testing.T) {
	c, pub := newTestConsumer(func(context.Context, *AnalysisJob) (*AnalysisResult, error) {
		return nil, errors.New("grader unavailable")
	})

	ack := &fakeAck{}
	c.processMessage(context.Background(), 1, jobBody(t, AnalysisJob{ID: uuid.New()}), ack)

	if !ack.acked {
		t.Error("failed jobs are still acked so they are not redelivered")
	}
	r := pub.results(t)[0]
	if r.Status != StatusFailed || r.Error != "grader unavailable" {
		t.Errorf("result = %+v; want failed with error", r)
	}
}

func TestConsumer_ProcessMessage_Timeout(t *testing.T) {
	c, pub := newTestConsumer(func(ctx context.Context, _ *AnalysisJob) (*AnalysisResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	ack := &fakeAck{}
	c.processMessage(context.Background(), 0, jobBody(t, AnalysisJob{ID: uuid.New(), TimeoutSeconds: 1}), ack)

	if r := pub.results(t)[0]; r.Status != StatusTimeout {
		t.Errorf("Status = %q; want timeout", r.Status)
	}
}

func TestConsumer_ProcessMessage_Malformed(t *testing.T) {
	called := false
	c, pub := newTestConsumer(func(context.Context, *AnalysisJob) (*AnalysisResult, error) {
		called = true
		return nil, nil
	})

	ack := &fakeAck{}
	c.processMessage(context.Background(), 0, []byte("{not json"), ack)

	if called {
		t.Error("handler should not run for malformed jobs")
	}
	if !ack.rejected || ack.requeue {
		t.Errorf("ack = %+v; want rejected without requeue", ack)
	}
	if len(pub.results(t)) != 0 {
		t.Error("no result should be published for malformed jobs")
	}
}

func newTestResultConsumer() (*ResultConsumer, *time.Time) {
	rc := NewResultConsumer(nil)
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	rc.now = func() time.Time { return now }
	return rc, &now
}

func TestResultConsumer_SubscribeUnsubscribe(t *testing.T) {
	rc, _ := newTestResultConsumer()
	jobID := uuid.New()

	var got *AnalysisResult
	rc.Subscribe(jobID, func(r *AnalysisResult) { got = r })
	rc.deliver(&AnalysisResult{JobID: jobID, Status: StatusCompleted})
	if got == nil || got.Status != StatusCompleted {
		t.Fatalf("subscriber got %+v", got)
	}

	rc.Unsubscribe(jobID)
	got = nil
	rc.deliver(&AnalysisResult{JobID: jobID, Status: StatusFailed})
	if got != nil {
		t.Error("handler called after Unsubscribe")
	}
}

func TestResultConsumer_ResultRetention(t *testing.T) {
	rc, now := newTestResultConsumer()
	jobID := uuid.New()

	if _, ok := rc.Result(jobID); ok {
		t.Fatal("Result() before delivery should miss")
	}
	rc.deliver(&AnalysisResult{JobID: jobID, Status: StatusCompleted})

	if r, ok := rc.Result(jobID); !ok || r.Status != StatusCompleted {
		t.Fatalf("Result() = %+v, %v", r, ok)
	}

	*now = now.Add(topology[ResultQueueName] + time.Second)
	if _, ok := rc.Result(jobID); ok {
		t.Error("Result() should expire after the retention window")
	}

	rc.deliver(&AnalysisResult{JobID: uuid.New()})
	rc.mu.RLock()
	_, kept := rc.results[jobID]
	rc.mu.RUnlock()
	if kept {
		t.Error("expired result should be pruned on the next delivery")
	}
}

func TestResultConsumer_Wait(t *testing.T) {
	rc := NewResultConsumer(nil)
	jobID := uuid.New()

	go func() {
		time.Sleep(10 * time.Millisecond)
		rc.deliver(&AnalysisResult{JobID: jobID, Status: StatusCompleted})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r, err := rc.Wait(ctx, jobID)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if r.JobID != jobID {
		t.Errorf("Wait() = %+v", r)
	}

	// already delivered
	if r, err := rc.Wait(ctx, jobID); err != nil || r.JobID != jobID {
		t.Errorf("Wait() after delivery = %+v, %v", r, err)
	}

	short, cancelShort := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelShort()
	if _, err := rc.Wait(short, uuid.New()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v; want DeadlineExceeded", err)
	}
}

func TestResultConsumer_Subscribe_ConcurrentSafe(t *testing.T) {
	rc := NewResultConsumer(nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			jobID := uuid.New()
			rc.Subscribe(jobID, func(*AnalysisResult) {})
			rc.deliver(&AnalysisResult{JobID: jobID})
			rc.Unsubscribe(jobID)
		}()
	}
	wg.Wait()

	rc.mu.RLock()
	defer rc.mu.RUnlock()
	if len(rc.handlers) != 0 {
		t.Errorf("handlers = %d; want 0 after all unsubscribes", len(rc.handlers))
	}
}
