// Package queue moves speech analysis jobs and their results through
// RabbitMQ so grading can run outside the request path.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/speakflow/internal/domain"
)

const (
	JobQueueName    = "speakflow.analysis.jobs"
	ResultQueueName = "speakflow.analysis.results"
)

const defaultJobTimeout = 2 * time.Minute

// Outcome of a job as carried by AnalysisResult.Status.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusTimeout   = "timeout"
)

// AnalysisJob is one speaking sample waiting to be graded.
type AnalysisJob struct {
	ID       uuid.UUID          `json:"id"`
	UserID   uuid.UUID          `json:"user_id"`
	Kind     domain.SessionKind `json:"kind"`
	Topic    domain.TopicID     `json:"topic"`
	Level    domain.Level       `json:"level,omitempty"`
	Language string             `json:"language,omitempty"`

	// Audio is base64 without the data URL prefix.
	Audio      string `json:"audio,omitempty"`
	MIMEType   string `json:"mime_type,omitempty"`
	Transcript string `json:"transcript,omitempty"`

	TimeoutSeconds int       `json:"timeout_seconds,omitempty"`
	EnqueuedAt     time.Time `json:"created_at"`
}

// Timeout is the grading deadline of the job.
func (j *AnalysisJob) Timeout() time.Duration {
	if j.TimeoutSeconds <= 0 {
		return defaultJobTimeout
	}
	return time.Duration(j.TimeoutSeconds) * time.Second
}

// AnalysisResult reports the outcome of a job. Completed results point at
// the persisted practice session.
type AnalysisResult struct {
	JobID        uuid.UUID    `json:"job_id"`
	UserID       uuid.UUID    `json:"user_id"`
	Status       string       `json:"status"`
	SessionID    uuid.UUID    `json:"session_id,omitempty"`
	OverallLevel domain.Level `json:"overall_level,omitempty"`
	Error        string       `json:"error,omitempty"`

	Took     time.Duration `json:"duration"`
	Finished time.Time     `json:"completed_at"`
}
