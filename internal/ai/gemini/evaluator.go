package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/mock-interviewer/internal/ai"
)

type jsonGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

// Evaluator scores transcripts with a single structured generation call.
type Evaluator struct {
	generator jsonGenerator
	logger    *zap.Logger
}

//go:embed prompt.md
var promptTemplate string

const defaultRole = "Software Engineer"

func NewEvaluator(generator jsonGenerator, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Evaluator{
		generator: generator,
		logger:    logger,
	}
}

// Evaluate returns the report for req. There is no retry and no partial
// result: either a complete Evaluation or an error.
func (e *Evaluator) Evaluate(ctx context.Context, req ai.EvaluationRequest) (*ai.Evaluation, error) {
	transcript := strings.TrimSpace(req.Transcript)
	if transcript == "" {
		return nil, errors.New("transcript must not be empty")
	}

	raw, err := e.generator.GenerateJSON(ctx, buildPrompt(req.Role, transcript), evaluationSchema())
	if err != nil {
		return nil, err
	}

	evaluation, err := parseResponse(raw)
	if err != nil {
		e.logger.Warn("unusable evaluation response", zap.Error(err))
		return nil, err
	}

	e.logger.Debug("interview evaluated",
		zap.Int("score", evaluation.Score),
		zap.String("decision", string(evaluation.Decision)),
	)

	return evaluation, nil
}

func buildPrompt(role, transcript string) string {
	role = strings.TrimSpace(role)
	if role == "" {
		role = defaultRole
	}

	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Role: {{ROLE}}\n\nRubric:\n{{RUBRIC}}\n\nTranscript:\n{{TRANSCRIPT}}\n\nJSON Response:"
	}

	replacer := strings.NewReplacer(
		"{{ROLE}}", role,
		"{{RUBRIC}}", rubricText(),
		"{{MIN_SCORE}}", strconv.Itoa(ai.MinScore),
		"{{MAX_SCORE}}", strconv.Itoa(ai.MaxScore),
		"{{TRANSCRIPT}}", transcript,
	)
	return replacer.Replace(template)
}

func rubricText() string {
	lines := make([]string, 0, len(ai.Rubric))
	for _, band := range ai.Rubric {
		lines = append(lines, fmt.Sprintf("- %d-%d: %s (%s).", band.Min, band.Max, band.Decision, band.Meaning))
	}
	return strings.Join(lines, "\n")
}

func evaluationSchema() *genai.Schema {
	text := &genai.Schema{Type: genai.TypeString}
	list := &genai.Schema{Type: genai.TypeArray, Items: text}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score":      {Type: genai.TypeInteger, Description: fmt.Sprintf("Overall score from %d to %d", ai.MinScore, ai.MaxScore)},
			"decision":   text,
			"tone":       text,
			"strengths":  list,
			"weaknesses": list,
			"summary":    text,
		},
		Required: []string{"score", "decision", "tone", "strengths", "weaknesses", "summary"},
	}
}

type evaluationPayload struct {
	Score      float64  `mapstructure:"score"`
	Decision   string   `mapstructure:"decision"`
	Tone       string   `mapstructure:"tone"`
	Strengths  []string `mapstructure:"strengths"`
	Weaknesses []string `mapstructure:"weaknesses"`
	Summary    string   `mapstructure:"summary"`
}

// parseResponse decodes the model output. The decision is always derived from
// the score through the rubric; the model's own verdict is ignored.
func parseResponse(raw string) (*ai.Evaluation, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, ai.InvalidResponse("parse evaluation", err)
	}

	if _, ok := data["score"]; !ok {
		return nil, ai.InvalidResponse("parse evaluation", errors.New("score is missing"))
	}

	var payload evaluationPayload
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &payload,
	})
	if err != nil {
		return nil, fmt.Errorf("create evaluation decoder: %w", err)
	}

	if err := decoder.Decode(data); err != nil {
		return nil, ai.InvalidResponse("parse evaluation", err)
	}

	if payload.Score != math.Trunc(payload.Score) {
		return nil, ai.InvalidResponse("parse evaluation", fmt.Errorf("score %v is not a whole number", payload.Score))
	}
	if payload.Score < ai.MinScore || payload.Score > ai.MaxScore {
		return nil, ai.InvalidResponse("parse evaluation", fmt.Errorf("score %v is outside %d..%d", payload.Score, ai.MinScore, ai.MaxScore))
	}

	score := int(payload.Score)
	decision, ok := ai.DecisionForScore(score)
	if !ok {
		return nil, ai.InvalidResponse("parse evaluation", fmt.Errorf("score %d has no rubric band", score))
	}

	return &ai.Evaluation{
		Score:      score,
		Decision:   decision,
		Tone:       strings.TrimSpace(payload.Tone),
		Strengths:  compact(payload.Strengths),
		Weaknesses: compact(payload.Weaknesses),
		Summary:    strings.TrimSpace(payload.Summary),
		Raw:        raw,
	}, nil
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

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
