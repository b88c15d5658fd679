package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/mock-interviewer/internal/ai"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
	lastSchema *genai.Schema
	calls      int
}

func (s *stubGenerator) GenerateJSON(_ context.Context, prompt string, schema *genai.Schema) (string, error) {
	s.calls++
	s.lastPrompt = prompt
	s.lastSchema = schema
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

const transcript = "ASSISTANT: Hello. Please introduce yourself.\nUSER: I have 5 years of experience\nASSISTANT: Tell me about Go channels."

func TestEvaluatorEvaluate(t *testing.T) {
	stub := &stubGenerator{response: `{
		"score": 8,
		"decision": "Hire",
		"tone": "Confident",
		"strengths": ["Clear communication", "  "],
		"weaknesses": ["Shallow on concurrency"],
		"summary": "Solid candidate."
	}`}

	evaluator := NewEvaluator(stub, zap.NewNop())

	evaluation, err := evaluator.Evaluate(context.Background(), ai.EvaluationRequest{Role: "Backend Engineer", Transcript: transcript})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if evaluation.Score != 8 || evaluation.Decision != ai.DecisionHire {
		t.Fatalf("unexpected verdict: %d %q", evaluation.Score, evaluation.Decision)
	}
	if evaluation.Tone != "Confident" || evaluation.Summary != "Solid candidate." {
		t.Fatalf("unexpected tone/summary: %+v", evaluation)
	}
	if len(evaluation.Strengths) != 1 || evaluation.Strengths[0] != "Clear communication" {
		t.Fatalf("unexpected strengths: %v", evaluation.Strengths)
	}
	if len(evaluation.Weaknesses) != 1 {
		t.Fatalf("unexpected weaknesses: %v", evaluation.Weaknesses)
	}

	if stub.calls != 1 {
		t.Fatalf("expected a single provider call, got %d", stub.calls)
	}
	if !strings.Contains(stub.lastPrompt, "for a Backend Engineer position") {
		t.Fatalf("expected role in prompt: %s", stub.lastPrompt)
	}
	if !strings.Contains(stub.lastPrompt, "USER: I have 5 years of experience") {
		t.Fatalf("expected transcript in prompt: %s", stub.lastPrompt)
	}
	for _, band := range []string{"- 1-4: No Hire", "- 5-6: No Hire / On the Fence", "- 7-8: Hire", "- 9-10: Strong Hire"} {
		if !strings.Contains(stub.lastPrompt, band) {
			t.Fatalf("expected rubric band %q in prompt", band)
		}
	}
	if stub.lastSchema == nil || len(stub.lastSchema.Required) != 6 {
		t.Fatalf("expected schema with every evaluation field required")
	}
}

func TestEvaluatorDerivesDecisionFromScore(t *testing.T) {
	stub := &stubGenerator{response: `{"score": 4, "decision": "Strong Hire", "tone": "", "strengths": [], "weaknesses": [], "summary": ""}`}

	evaluation, err := NewEvaluator(stub, nil).Evaluate(context.Background(), ai.EvaluationRequest{Transcript: transcript})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if evaluation.Decision != ai.DecisionNoHire {
		t.Fatalf("expected rubric decision, got %q", evaluation.Decision)
	}
	if !strings.Contains(stub.lastPrompt, "Software Engineer") {
		t.Fatalf("expected default role in prompt")
	}
}

func TestEvaluatorFailures(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		kind     ai.Kind
	}{
		{name: "call failed", err: ai.Transient("generate json", errors.New("503")), kind: ai.KindTransient},
		{name: "not json", response: "The candidate did well.", kind: ai.KindInvalidResponse},
		{name: "missing score", response: `{"summary": "ok"}`, kind: ai.KindInvalidResponse},
		{name: "score out of range", response: `{"score": 12}`, kind: ai.KindInvalidResponse},
		{name: "score not a number", response: `{"score": "eight"}`, kind: ai.KindInvalidResponse},
		{name: "fractional score above range", response: `{"score": 10.7}`, kind: ai.KindInvalidResponse},
		{name: "fractional score", response: `{"score": 4.6}`, kind: ai.KindInvalidResponse},
		{name: "fractional score as string", response: `{"score": "8.5"}`, kind: ai.KindInvalidResponse},
		{name: "score below range", response: `{"score": 0}`, kind: ai.KindInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubGenerator{response: tt.response, err: tt.err}
			evaluation, err := NewEvaluator(stub, zap.NewNop()).Evaluate(context.Background(), ai.EvaluationRequest{Transcript: transcript})
			if err == nil {
				t.Fatalf("expected error, got %+v", evaluation)
			}
			if evaluation != nil {
				t.Fatalf("expected no partial result")
			}
			if got := ai.KindOf(err); got != tt.kind {
				t.Fatalf("expected %s, got %s", tt.kind, got)
			}
		})
	}
}

func TestEvaluatorRejectsEmptyTranscript(t *testing.T) {
	stub := &stubGenerator{}
	if _, err := NewEvaluator(stub, nil).Evaluate(context.Background(), ai.EvaluationRequest{Transcript: "  "}); err == nil {
		t.Fatal("expected error")
	}
	if stub.calls != 0 {
		t.Fatalf("expected no provider call")
	}
}

func TestParseResponseIsLenient(t *testing.T) {
	raw := "```json\n{\"score\": \"9\", \"tone\": \"Calm\", \"strengths\": \"Deep Go knowledge\", \"weaknesses\": [], \"summary\": \"Great\"}\n```"

	evaluation, err := parseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if evaluation.Score != 9 || evaluation.Decision != ai.DecisionStrongHire {
		t.Fatalf("unexpected verdict: %+v", evaluation)
	}
	if len(evaluation.Strengths) != 1 || evaluation.Strengths[0] != "Deep Go knowledge" {
		t.Fatalf("expected single string to become a list, got %v", evaluation.Strengths)
	}
	if evaluation.Raw != raw {
		t.Fatalf("expected raw response to be kept")
	}
}

func TestParseResponseAcceptsWholeScores(t *testing.T) {
	tests := []struct {
		raw      string
		score    int
		decision ai.Decision
	}{
		{raw: `{"score": 7.0}`, score: 7, decision: ai.DecisionHire},
		{raw: `{"score": "4"}`, score: 4, decision: ai.DecisionNoHire},
		{raw: `{"score": 10}`, score: 10, decision: ai.DecisionStrongHire},
		{raw: `{"score": "1.0"}`, score: 1, decision: ai.DecisionNoHire},
	}

	for _, tt := range tests {
		evaluation, err := parseResponse(tt.raw)
		if err != nil {
			t.Fatalf("parseResponse(%s): unexpected error: %v", tt.raw, err)
		}
		if evaluation.Score != tt.score || evaluation.Decision != tt.decision {
			t.Fatalf("parseResponse(%s) = %d %q, expected %d %q", tt.raw, evaluation.Score, evaluation.Decision, tt.score, tt.decision)
		}
	}
}
