package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"google.golang.org/genai"
)

type fakeModels struct {
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     int
	lastModel string
	lastText  string
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	i := f.calls
	f.calls++
	f.lastModel = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.lastText = contents[0].Parts[0].Text
	}

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, errors.New("unexpected call")
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	models := &fakeModels{
		errs:      []error{genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}},
		responses: []*genai.GenerateContentResponse{nil, textResponse(" {\"summary\":", "\"ok\"} ")},
	}
	g := newGenerator(models, "", 2)
	g.retryDelay = 0

	out, err := g.GenerateContent(context.Background(), "  review this  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "{\"summary\":\n\"ok\"}" {
		t.Fatalf("unexpected output %q", out)
	}
	if models.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", models.calls)
	}
	if models.lastModel != defaultModel || models.lastText != "review this" {
		t.Fatalf("unexpected request: %s %q", models.lastModel, models.lastText)
	}
}

func TestGeneratorErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		models *fakeModels
		prompt string
		calls  int
	}{
		{
			name:   "empty prompt",
			models: &fakeModels{},
			prompt: "   ",
			calls:  0,
		},
		{
			name:   "permanent error is not retried",
			models: &fakeModels{errs: []error{genai.APIError{Code: http.StatusBadRequest}}},
			prompt: "hi",
			calls:  1,
		},
		{
			name: "retries are bounded",
			models: &fakeModels{errs: []error{
				genai.APIError{Code: http.StatusTooManyRequests},
				genai.APIError{Code: http.StatusTooManyRequests},
				genai.APIError{Code: http.StatusTooManyRequests},
			}},
			prompt: "hi",
			calls:  3,
		},
		{
			name:   "empty response",
			models: &fakeModels{responses: []*genai.GenerateContentResponse{textResponse("  ")}},
			prompt: "hi",
			calls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := newGenerator(tt.models, "gemini-test", 2)
			g.retryDelay = 0

			if _, err := g.GenerateContent(context.Background(), tt.prompt); err == nil {
				t.Fatalf("expected error")
			}
			if tt.models.calls != tt.calls {
				t.Fatalf("expected %d calls, got %d", tt.calls, tt.models.calls)
			}
		})
	}
}

func TestNilGenerator(t *testing.T) {
	var g *Generator
	if _, err := g.GenerateContent(context.Background(), "hi"); err == nil {
		t.Fatalf("expected error")
	}
	if g.Model() != "" {
		t.Fatalf("expected empty model")
	}
}
