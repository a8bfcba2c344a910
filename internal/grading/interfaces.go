package grading

import (
	"context"

	"github.com/felixgeelhaar/speakflow/internal/domain"
)

// SpeechGrader defines the grading operations used by the practice
// service and the HTTP handlers
type SpeechGrader interface {
	// Grade produces a validated analysis of one spoken answer
	Grade(ctx context.Context, req GradeRequest) (*domain.Analysis, error)

	// GradeIELTS scores a transcript on the IELTS band scale
	GradeIELTS(ctx context.Context, transcript string, part int) (*domain.IELTSAnalysis, error)
}

// Ensure Grader implements SpeechGrader
var _ SpeechGrader = (*Grader)(nil)
