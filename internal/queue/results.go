package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ResultHandler receives the result of one job.
type ResultHandler func(result *AnalysisResult)

type received struct {
	result *AnalysisResult
	at     time.Time
}

// ResultConsumer reads the result queue on an API replica. It keeps
// recent results for polling and notifies per-job subscribers.
type ResultConsumer struct {
	conn      *Connection
	retention time.Duration
	now       func() time.Time

	mu       sync.RWMutex
	handlers map[uuid.UUID]ResultHandler
	results  map[uuid.UUID]received

	stop    context.CancelFunc
	running sync.WaitGroup
}

// NewResultConsumer keeps results as long as the broker would.
func NewResultConsumer(conn *Connection) *ResultConsumer {
	return &ResultConsumer{
		conn:      conn,
		retention: topology[ResultQueueName],
		now:       time.Now,
		handlers:  make(map[uuid.UUID]ResultHandler),
		results:   make(map[uuid.UUID]received),
	}
}

// Subscribe registers handler for the result of jobID, replacing any
// previous one.
func (rc *ResultConsumer) Subscribe(jobID uuid.UUID, handler ResultHandler) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.handlers[jobID] = handler
}

func (rc *ResultConsumer) Unsubscribe(jobID uuid.UUID) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.handlers, jobID)
}

// Result returns a received result still within the retention window.
func (rc *ResultConsumer) Result(jobID uuid.UUID) (*AnalysisResult, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	r, ok := rc.results[jobID]
	if !ok || rc.expired(r) {
		return nil, false
	}
	return r.result, true
}

func (rc *ResultConsumer) expired(r received) bool {
	return rc.now().Sub(r.at) > rc.retention
}

// Wait blocks until the result of jobID arrives or ctx ends.
func (rc *ResultConsumer) Wait(ctx context.Context, jobID uuid.UUID) (*AnalysisResult, error) {
	arrived := make(chan *AnalysisResult, 1)
	rc.Subscribe(jobID, func(r *AnalysisResult) {
		select {
		case arrived <- r:
		default:
		}
	})
	defer rc.Unsubscribe(jobID)

	// it may have landed before Subscribe
	if r, ok := rc.Result(jobID); ok {
		return r, nil
	}

	select {
	case r := <-arrived:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Start consumes the result queue with auto-ack until ctx ends or Stop
// is called.
func (rc *ResultConsumer) Start(ctx context.Context) error {
	msgs, err := rc.conn.deliveries(ResultQueueName, true, 0)
	if err != nil {
		return err
	}

	ctx, rc.stop = context.WithCancel(ctx)
	rc.running.Add(1)
	go func() {
		defer rc.running.Done()
		rc.listen(ctx, msgs)
	}()
	return nil
}

func (rc *ResultConsumer) listen(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			var result AnalysisResult
			if err := json.Unmarshal(d.Body, &result); err != nil {
				slog.Warn("dropping malformed analysis result", "error", err)
				continue
			}
			rc.deliver(&result)
		}
	}
}

// deliver stores result, prunes expired ones and calls the subscriber
// outside the lock.
func (rc *ResultConsumer) deliver(result *AnalysisResult) {
	rc.mu.Lock()
	for id, r := range rc.results {
		if rc.expired(r) {
			delete(rc.results, id)
		}
	}
	rc.results[result.JobID] = received{result: result, at: rc.now()}
	handler := rc.handlers[result.JobID]
	rc.mu.Unlock()

	if handler != nil {
		handler(result)
	}
}

func (rc *ResultConsumer) Stop() {
	if rc.stop != nil {
		rc.stop()
	}
	rc.running.Wait()
}
