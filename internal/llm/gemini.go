package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements the Provider interface for Google Gemini. It is
// the only provider that grades recorded audio directly.
type GeminiProvider struct {
	client *genai.Client
	model  string

	// generate is swapped out in tests.
	generate func(ctx context.Context, req *Request, parts []genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiConfig holds configuration for the Gemini provider
type GeminiConfig struct {
	APIKey string
	Model  string // default: gemini-2.0-flash-exp
}

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash-exp"

// NewGeminiProvider creates a Gemini client. Close releases it.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultGeminiModel
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}

	p := &GeminiProvider{client: cl, model: model}
	p.generate = p.generateContent
	return p, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) SupportsAudio() bool {
	return true
}

func (p *GeminiProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	parts := p.buildParts(req)
	if len(parts) == 0 {
		return nil, fmt.Errorf("gemini: request has no content")
	}

	resp, err := p.generate(ctx, req, parts)
	if err != nil {
		return nil, wrapGeminiError(err)
	}

	txt := firstText(resp)
	if txt == "" {
		return nil, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	out := &Response{Content: txt}
	if len(resp.Candidates) > 0 {
		out.FinishReason = resp.Candidates[0].FinishReason.String()
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

// Close releases the underlying client
func (p *GeminiProvider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *GeminiProvider) generateContent(ctx context.Context, req *Request, parts []genai.Part) (*genai.GenerateContentResponse, error) {
	name := p.model
	if req.Model != "" {
		name = req.Model
	}
	m := p.client.GenerativeModel(name)
	if m == nil {
		return nil, fmt.Errorf("gemini: model is nil")
	}

	cfg := genai.GenerationConfig{
		Temperature: ptrFloat32(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = ptrInt32(int32(req.MaxTokens))
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	m.GenerationConfig = cfg

	if sys := p.systemText(req); sys != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(sys)},
		}
	}

	return m.GenerateContent(ctx, parts...)
}

// systemText joins the explicit system prompt and any system messages.
func (p *GeminiProvider) systemText(req *Request) string {
	var b strings.Builder
	b.WriteString(req.System)
	for _, msg := range req.Messages {
		if msg.Role != RoleSystem {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(msg.Content)
	}
	return b.String()
}

// buildParts converts non-system messages to text parts followed by the
// inline attachments.
func (p *GeminiProvider) buildParts(req *Request) []genai.Part {
	var parts []genai.Part
	for _, msg := range req.Messages {
		if msg.Role == RoleSystem || msg.Content == "" {
			continue
		}
		parts = append(parts, genai.Text(msg.Content))
	}
	for _, a := range req.Attachments {
		if len(a.Data) == 0 {
			continue
		}
		parts = append(parts, &genai.Blob{MIMEType: a.MIMEType, Data: a.Data})
	}
	return parts
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

// wrapGeminiError attaches the HTTP status when the client exposes one.
func wrapGeminiError(err error) error {
	var coded interface{ HTTPCode() int }
	if errors.As(err, &coded) && coded.HTTPCode() > 0 {
		return &StatusError{Provider: "gemini", StatusCode: coded.HTTPCode(), Err: err}
	}
	return fmt.Errorf("gemini: %w", err)
}

func ptrFloat32(v float32) *float32 { return &v }

func ptrInt32(v int32) *int32 { return &v }
