package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/speakflow/internal/observe"
)

// JobHandler grades one job. A nil error with a nil result counts as
// completed without a session.
type JobHandler func(ctx context.Context, job *AnalysisJob) (*AnalysisResult, error)

// acknowledger is the ack surface of amqp.Delivery.
type acknowledger interface {
	Ack(multiple bool) error
	Reject(requeue bool) error
}

// ConsumerConfig sizes the worker pool.
type ConsumerConfig struct {
	Workers int
	// Prefetch caps unacknowledged deliveries; it follows Workers when
	// unset.
	Prefetch int
}

func (cfg ConsumerConfig) withDefaults() ConsumerConfig {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = cfg.Workers
	}
	return cfg
}

// Consumer grades queued jobs on a fixed pool of workers and publishes
// one result per job.
type Consumer struct {
	conn     *Connection
	handler  JobHandler
	producer *Producer
	metrics  *observe.Metrics
	cfg      ConsumerConfig
	logger   *slog.Logger

	stop    context.CancelFunc
	running sync.WaitGroup
}

// NewConsumer builds a consumer; metrics may be nil.
func NewConsumer(conn *Connection, handler JobHandler, cfg ConsumerConfig, metrics *observe.Metrics) *Consumer {
	return &Consumer{
		conn:     conn,
		handler:  handler,
		producer: NewProducer(conn),
		metrics:  metrics,
		cfg:      cfg.withDefaults(),
		logger:   slog.Default().With("component", "analysis-worker"),
	}
}

// Start subscribes to the job queue and launches the workers. They run
// until ctx ends or Stop is called.
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.conn.deliveries(JobQueueName, false, c.cfg.Prefetch)
	if err != nil {
		return err
	}

	ctx, c.stop = context.WithCancel(ctx)
	c.logger.Info("analysis workers started", "workers", c.cfg.Workers, "prefetch", c.cfg.Prefetch)
	for id := range c.cfg.Workers {
		c.running.Add(1)
		go func() {
			defer c.running.Done()
			c.work(ctx, id, msgs)
		}()
	}
	return nil
}

func (c *Consumer) work(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				c.logger.Info("job deliveries closed", "worker", id)
				return
			}
			c.processMessage(ctx, id, d.Body, d)
		}
	}
}

// processMessage grades one delivery, publishes its result and acks it.
// Failed jobs are acked too: a grading error is reported, not redelivered.
// Malformed bodies are rejected without requeue.
func (c *Consumer) processMessage(ctx context.Context, worker int, body []byte, ack acknowledger) {
	var job AnalysisJob
	if err := json.Unmarshal(body, &job); err != nil {
		c.log().Error("malformed analysis job", "worker", worker, "error", err)
		_ = ack.Reject(false)
		c.metrics.RecordJob(ctx, "rejected")
		return
	}

	log := c.log().With("worker", worker, "job", job.ID, "user", job.UserID)
	result := c.grade(ctx, &job)
	if result.Status == StatusCompleted {
		log.Info("analysis job done", "took", result.Took, "level", result.OverallLevel)
	} else {
		log.Error("analysis job failed", "status", result.Status, "error", result.Error, "took", result.Took)
	}

	if err := c.producer.PublishResult(ctx, result); err != nil {
		log.Error("publish result", "error", err)
	}
	if err := ack.Ack(false); err != nil {
		log.Error("ack job", "error", err)
	}
	c.metrics.RecordJob(ctx, result.Status)
}

// grade runs the handler under the job deadline and always returns a
// result addressed to the job.
func (c *Consumer) grade(ctx context.Context, job *AnalysisJob) *AnalysisResult {
	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, job.Timeout())
	defer cancel()

	result, err := c.handler(jobCtx, job)
	switch {
	case err != nil && errors.Is(jobCtx.Err(), context.DeadlineExceeded):
		result = &AnalysisResult{Status: StatusTimeout, Error: "analysis timed out"}
	case err != nil:
		result = &AnalysisResult{Status: StatusFailed, Error: err.Error()}
	case result == nil:
		result = &AnalysisResult{Status: StatusCompleted}
	case result.Status == "":
		result.Status = StatusCompleted
	}

	result.JobID, result.UserID = job.ID, job.UserID
	result.Took = time.Since(start)
	result.Finished = time.Now().UTC()
	return result
}

func (c *Consumer) log() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Stop cancels the workers and waits for in-flight jobs to finish.
func (c *Consumer) Stop() {
	if c.stop != nil {
		c.stop()
	}
	c.running.Wait()
	c.log().Info("analysis workers stopped")
}
