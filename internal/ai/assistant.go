package ai

import (
	"context"
)

// Conversation is an open chat with the interviewer model. The provider keeps
// the accumulated context, every Send sees all previous exchanges.
type Conversation interface {
	Send(ctx context.Context, message string) (string, error)
}

// ChatStarter opens a new conversation primed with a system instruction.
type ChatStarter interface {
	StartChat(ctx context.Context, systemInstruction string) (Conversation, error)
}

// Transcriber turns a recorded answer into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Evaluator scores a finished interview.
type Evaluator interface {
	Evaluate(ctx context.Context, req EvaluationRequest) (*Evaluation, error)
}

// ModelLister discovers models usable for free-form content generation.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

type EvaluationRequest struct {
	Role       string
	Transcript string
}
