package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/ai"
	"github.com/spigell/smartmatch/internal/logger"
	"github.com/spigell/smartmatch/internal/matching"
	"github.com/spigell/smartmatch/internal/profile"
	"github.com/spigell/smartmatch/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength     = 200
	defaultTone             = "Friendly"
	defaultLanguage         = "English"
	maxUserInstructionRunes = 500
	maxTips                 = 5
)

// PromptOptions tune the wording of the review.
type PromptOptions struct {
	Tone             string
	Language         string
	UserInstructions string
}

// Reviewer asks Gemini to comment on a scored match.
type Reviewer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
	options   PromptOptions
}

var _ ai.Reviewer = (*Reviewer)(nil)

func NewReviewer(generator contentGenerator, log *zap.Logger, maxLogLength int, options PromptOptions) *Reviewer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Reviewer{
		generator: generator,
		logger:    logger.WithFields(log, logger.AIFields("gemini", generator.Model())...),
		maxLogLen: maxLogLength,
		options:   options,
	}
}

func (r *Reviewer) Review(ctx context.Context, c *profile.Candidate, j *profile.Job, result matching.Result) (*ai.Review, error) {
	if c == nil {
		return nil, fmt.Errorf("candidate is required")
	}
	if j == nil {
		return nil, fmt.Errorf("job is required")
	}

	candidateJSON, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal candidate payload: %w", err)
	}

	jobJSON, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	resultJSON, err := json.MarshalIndent(struct {
		Score   float64          `json:"score"`
		Reasons matching.Reasons `json:"reasons"`
	}{result.Score, result.Reasons}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result payload: %w", err)
	}

	prompt := buildPrompt(r.options, string(candidateJSON), string(jobJSON), string(resultJSON))
	fields := logger.MatchFields(c.ID, j.ID, result.Score)

	r.logger.Debug("gemini generate content request", append(fields,
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, r.maxLogLen)),
	)...)

	raw, err := r.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("gemini generate content response", append(fields,
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, r.maxLogLen)),
	)...)

	review, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	review.Model = r.generator.Model()
	review.Raw = raw
	return review, nil
}

func buildPrompt(opts PromptOptions, candidateJSON, jobJSON, resultJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Candidate:\n{{CANDIDATE_JSON}}\n\nJob:\n{{JOB_JSON}}\n\nResult:\n{{RESULT_JSON}}\n\nJSON Response:"
	}

	replacer := strings.NewReplacer(
		"{{TONE}}", singleLine(opts.Tone, defaultTone),
		"{{LANGUAGE}}", singleLine(opts.Language, defaultLanguage),
		"{{USER_INSTRUCTIONS}}", userInstructions(opts.UserInstructions),
		"{{CANDIDATE_JSON}}", candidateJSON,
		"{{JOB_JSON}}", jobJSON,
		"{{RESULT_JSON}}", resultJSON,
	)
	return replacer.Replace(template)
}

// neutralize keeps user text from opening prompt sections of its own.
var neutralize = strings.NewReplacer("[", "(", "]", ")", "{{", "(", "}}", ")")

func singleLine(value, fallback string) string {
	value = strings.Join(strings.Fields(neutralize.Replace(value)), " ")
	if value == "" {
		return fallback
	}
	return value
}

func userInstructions(value string) string {
	value = strings.TrimSpace(neutralize.Replace(value))
	if value == "" {
		return "  - none"
	}

	if runes := []rune(value); len(runes) > maxUserInstructionRunes {
		value = string(runes[:maxUserInstructionRunes])
	}

	lines := make([]string, 0)
	for _, line := range strings.Split(value, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, "  - "+line)
		}
	}
	return strings.Join(lines, "\n")
}

func parseResponse(raw string) (*ai.Review, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	review := &ai.Review{
		Summary: coerceString(data["summary"]),
		Tips:    coerceStrings(data["tips"]),
	}
	if review.Summary == "" && len(review.Tips) == 0 {
		return nil, fmt.Errorf("parse gemini response: no summary or tips")
	}
	if len(review.Tips) > maxTips {
		review.Tips = review.Tips[:maxTips]
	}
	return review, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceStrings(v any) []string {
	out := make([]string, 0)
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, line := range strings.Split(val, "\n") {
			if line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*")); line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}
