package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher is the part of Connection the producer needs.
type Publisher interface {
	PublishJSON(ctx context.Context, queue string, data any) error
}

// Producer publishes analysis jobs and results.
type Producer struct {
	pub Publisher
}

func NewProducer(pub Publisher) *Producer {
	return &Producer{pub: pub}
}

// PublishJob stamps the job with an ID and enqueue time when they are
// missing, then queues it.
func (p *Producer) PublishJob(ctx context.Context, job *AnalysisJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	if err := p.pub.PublishJSON(ctx, JobQueueName, job); err != nil {
		return fmt.Errorf("publish analysis job %s: %w", job.ID, err)
	}

	slog.Debug("queued analysis job",
		slog.String("job", job.ID.String()),
		slog.String("kind", string(job.Kind)),
		slog.String("topic", string(job.Topic)),
		slog.Bool("audio", job.Audio != ""),
	)
	return nil
}

// PublishResult queues a job outcome for the API replicas.
func (p *Producer) PublishResult(ctx context.Context, result *AnalysisResult) error {
	if result.Finished.IsZero() {
		result.Finished = time.Now().UTC()
	}
	if err := p.pub.PublishJSON(ctx, ResultQueueName, result); err != nil {
		return fmt.Errorf("publish result of job %s: %w", result.JobID, err)
	}
	return nil
}
