package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

// httpCodeError mimics the client's API error type.
type httpCodeError struct{ code int }

func (e httpCodeError) Error() string { return "api error" }
func (e httpCodeError) HTTPCode() int { return e.code }

func newTestGemini(fn func(ctx context.Context, req *Request, parts []genai.Part) (*genai.GenerateContentResponse, error)) *GeminiProvider {
	return &GeminiProvider{model: DefaultGeminiModel, generate: fn}
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(s)}},
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 120, CandidatesTokenCount: 40},
	}
}

func TestNewGeminiProvider_MissingKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), GeminiConfig{APIKey: "  "})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("NewGeminiProvider() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestGeminiProvider_Identity(t *testing.T) {
	p := newTestGemini(nil)
	if p.Name() != "gemini" {
		t.Errorf("Name() = %q, want gemini", p.Name())
	}
	if !p.SupportsAudio() {
		t.Error("SupportsAudio() should be true")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() without client error = %v", err)
	}
}

func TestGeminiProvider_BuildParts(t *testing.T) {
	p := newTestGemini(nil)
	req := &Request{
		System: "You are an assessor.",
		Messages: []Message{
			{Role: RoleSystem, Content: "Answer in JSON."},
			{Role: RoleUser, Content: "Grade this answer."},
			{Role: RoleUser, Content: ""},
		},
		Attachments: []Attachment{
			{MIMEType: "audio/webm", Data: []byte("RIFF")},
			{MIMEType: "audio/webm"},
		},
	}

	parts := p.buildParts(req)
	if len(parts) != 2 {
		t.Fatalf("len(parts) = %d, want 2", len(parts))
	}
	if txt, ok := parts[0].(genai.Text); !ok || string(txt) != "Grade this answer." {
		t.Errorf("parts[0] = %#v, want user text", parts[0])
	}
	blob, ok := parts[1].(*genai.Blob)
	if !ok {
		t.Fatalf("parts[1] = %#v, want *genai.Blob", parts[1])
	}
	if blob.MIMEType != "audio/webm" || string(blob.Data) != "RIFF" {
		t.Errorf("blob = %s %q", blob.MIMEType, blob.Data)
	}

	if got := p.systemText(req); got != "You are an assessor.\n\nAnswer in JSON." {
		t.Errorf("systemText() = %q", got)
	}
}

func TestGeminiProvider_Generate(t *testing.T) {
	var gotParts int
	p := newTestGemini(func(ctx context.Context, req *Request, parts []genai.Part) (*genai.GenerateContentResponse, error) {
		gotParts = len(parts)
		return textResponse(`{"range_level":"B1"}`), nil
	})

	resp, err := p.Generate(context.Background(), &Request{
		Messages:    []Message{{Role: RoleUser, Content: "prompt"}},
		Attachments: []Attachment{{MIMEType: "audio/webm", Data: []byte{0x1a}}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Content != `{"range_level":"B1"}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.InputTokens != 120 || resp.Usage.OutputTokens != 40 {
		t.Errorf("Usage = %+v, want 120/40", resp.Usage)
	}
	if gotParts != 2 {
		t.Errorf("generate received %d parts, want 2", gotParts)
	}
}

func TestGeminiProvider_Generate_Errors(t *testing.T) {
	tests := []struct {
		name      string
		resp      *genai.GenerateContentResponse
		err       error
		wantIs    error
		wantCode  int
		emptyBody bool
	}{
		{name: "empty candidates", resp: &genai.GenerateContentResponse{}, wantIs: ErrEmptyResponse},
		{name: "nil response", resp: nil, wantIs: ErrEmptyResponse},
		{name: "api error with status", err: httpCodeError{code: 503}, wantCode: 503},
		{name: "plain error", err: errors.New("dial tcp: refused")},
		{name: "no content", emptyBody: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestGemini(func(context.Context, *Request, []genai.Part) (*genai.GenerateContentResponse, error) {
				return tt.resp, tt.err
			})
			req := &Request{Messages: []Message{{Role: RoleUser, Content: "prompt"}}}
			if tt.emptyBody {
				req = &Request{}
			}

			_, err := p.Generate(context.Background(), req)
			if err == nil {
				t.Fatal("Generate() should fail")
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("error = %v, want %v", err, tt.wantIs)
			}
			if tt.wantCode != 0 {
				var se *StatusError
				if !errors.As(err, &se) || se.StatusCode != tt.wantCode {
					t.Errorf("error = %v, want StatusError %d", err, tt.wantCode)
				}
				if !Retryable(err) {
					t.Error("503 should be retryable")
				}
			}
		})
	}
}

func TestFirstText_SkipsNonText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{
				&genai.Blob{MIMEType: "audio/webm"},
				genai.Text("found"),
			}}},
		},
	}
	if got := firstText(resp); got != "found" {
		t.Errorf("firstText() = %q, want found", got)
	}
}
