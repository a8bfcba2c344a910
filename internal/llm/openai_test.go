package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewOpenAIProvider_MissingKey(t *testing.T) {
	_, err := NewOpenAIProvider(OpenAIConfig{})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("NewOpenAIProvider() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestNewOpenAIProvider_Defaults(t *testing.T) {
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}
	if p.model != DefaultOpenAIModel {
		t.Errorf("model = %q, want %q", p.model, DefaultOpenAIModel)
	}
	if p.Name() != "openai" {
		t.Errorf("Name() = %q, want openai", p.Name())
	}
	if p.SupportsAudio() {
		t.Error("SupportsAudio() should be false")
	}
}

func TestOpenAIProvider_RejectsAudio(t *testing.T) {
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Generate(context.Background(), &Request{
		Attachments: []Attachment{{MIMEType: "audio/webm", Data: []byte{1}}},
	})
	if !errors.Is(err, ErrAudioUnsupported) {
		t.Errorf("Generate() error = %v, want ErrAudioUnsupported", err)
	}
}

func TestOpenAIProvider_BuildParams(t *testing.T) {
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatal(err)
	}

	params := p.buildParams(&Request{
		System: "You are an IELTS examiner.",
		Messages: []Message{
			{Role: RoleUser, Content: "Transcript"},
			{Role: RoleAssistant, Content: "Noted"},
		},
		MaxTokens:   500,
		Temperature: 0.2,
	})

	if string(params.Model) != "gpt-4o-mini" {
		t.Errorf("Model = %q, want gpt-4o-mini", params.Model)
	}
	if len(params.Messages) != 3 {
		t.Fatalf("len(Messages) = %d, want 3", len(params.Messages))
	}
	if params.Messages[0].OfSystem == nil {
		t.Error("first message should be the system prompt")
	}
	if params.Messages[2].OfAssistant == nil {
		t.Error("third message should be an assistant message")
	}
	if params.MaxCompletionTokens.Value != 500 {
		t.Errorf("MaxCompletionTokens = %d, want 500", params.MaxCompletionTokens.Value)
	}
	if params.Temperature.Value != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", params.Temperature.Value)
	}

	override := p.buildParams(&Request{Model: "gpt-4o"})
	if string(override.Model) != "gpt-4o" {
		t.Errorf("Model override = %q, want gpt-4o", override.Model)
	}
}

func TestOpenAIProvider_Generate_HTTPSuccess(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "{\"fluencyScore\": 6.5}"},
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 50, "completion_tokens": 12, "total_tokens": 62}
		}`))
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := p.Generate(context.Background(), &Request{
		System:   "system",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Content != `{"fluencyScore": 6.5}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("FinishReason = %q, want stop", resp.FinishReason)
	}
	if resp.Usage.InputTokens != 50 || resp.Usage.OutputTokens != 12 {
		t.Errorf("Usage = %+v, want 50/12", resp.Usage)
	}
	if gotBody["model"] != DefaultOpenAIModel {
		t.Errorf("request model = %v, want %s", gotBody["model"], DefaultOpenAIModel)
	}
}

func TestOpenAIProvider_Generate_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid key", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-bad", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.Generate(context.Background(), &Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Generate() error = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", se.StatusCode)
	}
	if Retryable(err) {
		t.Error("401 should not be retryable")
	}
}

func TestOpenAIProvider_Generate_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": []}`))
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.Generate(context.Background(), &Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Generate() error = %v, want ErrEmptyResponse", err)
	}
}
