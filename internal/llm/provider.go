// Package llm adapts hosted language models to the one call the grader
// needs: a prompt, optionally with a recorded answer, in; text out.
package llm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrProviderNotFound  = errors.New("provider not registered")
	ErrNoDefaultProvider = errors.New("no provider registered")
	ErrAudioUnsupported  = errors.New("provider does not accept audio")
	ErrEmptyResponse     = errors.New("empty response from provider")
	ErrMissingAPIKey     = errors.New("api key is empty")
	ErrRateLimited       = errors.New("rate limit exceeded")
)

// Provider is a hosted model.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req *Request) (*Response, error)
	// SupportsAudio reports whether Request.Attachments may carry audio.
	SupportsAudio() bool
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Attachment is inline binary input such as a recorded answer.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// IsAudio reports whether the attachment is an audio clip.
func (a Attachment) IsAudio() bool {
	return strings.HasPrefix(a.MIMEType, "audio/")
}

// Request is one completion. Model overrides the provider default when
// set; JSON asks for a bare JSON document as the answer.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Attachments []Attachment

	MaxTokens   int
	Temperature float64
	JSON        bool
}

// HasAudio reports whether any attachment is audio.
func (r *Request) HasAudio() bool {
	return slices.ContainsFunc(r.Attachments, Attachment.IsAudio)
}

type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// Usage counts billed tokens.
type Usage struct {
	InputTokens, OutputTokens int
}

// StatusError carries the HTTP status of a failed provider call.
type StatusError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }
