package interview

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/logger"
)

var (
	// ErrIllegalTransition is returned for any action the current phase does not allow.
	ErrIllegalTransition = errors.New("illegal phase transition")
	// ErrNotEnoughTurns blocks the report until one answer has been exchanged.
	ErrNotEnoughTurns = errors.New("answer at least one question before ending the interview")
)

// Deps are the external collaborators of one session.
type Deps struct {
	Chat        ai.ChatStarter
	Transcriber ai.Transcriber
	Evaluator   ai.Evaluator
	Logger      *zap.Logger
}

// Controller drives sessions through start, chat and report. It holds no
// session state, every call works on the Session passed in.
type Controller struct {
	deps Deps
}

func NewController(deps Deps) (*Controller, error) {
	if deps.Chat == nil {
		return nil, errors.New("chat starter is required")
	}
	if deps.Transcriber == nil {
		return nil, errors.New("transcriber is required")
	}
	if deps.Evaluator == nil {
		return nil, errors.New("evaluator is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Controller{deps: deps}, nil
}

// Start opens the interview: start -> chat. On failure the session stays in start.
func (c *Controller) Start(ctx context.Context, s *Session, p Profile) error {
	if err := expectPhase(s, PhaseStart, "start the interview"); err != nil {
		return err
	}

	p = p.normalized()
	if !slices.Contains(Levels, p.Level) {
		return fmt.Errorf("%w %q", ErrUnknownLevel, p.Level)
	}

	log := c.logger(s)

	chat, err := c.deps.Chat.StartChat(ctx, SystemInstruction(p))
	if err != nil {
		log.Warn("starting chat failed", zap.Error(err), zap.String("kind", ai.KindOf(err).String()))
		return fmt.Errorf("start interview: %w", err)
	}

	s.profile = p
	s.chat = chat
	s.append(Turn{Role: RoleAssistant, Content: Greeting(p)})
	s.phase = PhaseChat

	log.Info("interview started",
		zap.String("role", p.Role),
		zap.String("level", string(p.Level)),
		zap.Bool("resume", p.Resume != ""),
	)

	return nil
}

// Input is one candidate action. Text wins when both text and audio are set.
type Input struct {
	Text      string
	Audio     []byte
	AudioMIME string
}

// SkipReason explains why a submission produced no turns.
type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipEmpty
	SkipDuplicateAudio
	SkipTranscriptionFailed
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipEmpty:
		return "empty"
	case SkipDuplicateAudio:
		return "duplicate_audio"
	case SkipTranscriptionFailed:
		return "transcription_failed"
	default:
		return "unknown"
	}
}

// Result describes what a submission appended.
type Result struct {
	Skipped SkipReason
	Answer  *Turn
	Reply   *Turn
}

// Submit appends the candidate answer and the interviewer reply. When the reply
// fails the answer stays in the transcript and the error is returned.
func (c *Controller) Submit(ctx context.Context, s *Session, in Input) (Result, error) {
	if err := expectPhase(s, PhaseChat, "submit an answer"); err != nil {
		return Result{}, err
	}

	log := c.logger(s)

	answer, skipped := c.resolveAnswer(ctx, s, in, log)
	if skipped != SkipNone {
		log.Debug("submission skipped", zap.Stringer("reason", skipped))
		return Result{Skipped: skipped}, nil
	}

	user := s.append(Turn{Role: RoleUser, Content: answer})
	result := Result{Answer: &user}

	reply, err := s.chat.Send(ctx, answer)
	if err != nil {
		log.Warn("interviewer reply failed",
			zap.Error(err),
			zap.String("kind", ai.KindOf(err).String()),
			zap.Int("turns", s.Len()),
		)
		return result, fmt.Errorf("send answer: %w", err)
	}

	assistant := s.append(Turn{Role: RoleAssistant, Content: reply})
	result.Reply = &assistant

	log.Debug("exchange appended", zap.Int("turns", s.Len()))

	return result, nil
}

func (c *Controller) resolveAnswer(ctx context.Context, s *Session, in Input, log *zap.Logger) (string, SkipReason) {
	if text := strings.TrimSpace(in.Text); text != "" {
		return text, SkipNone
	}

	if len(in.Audio) == 0 {
		return "", SkipEmpty
	}

	// The guard runs before the provider is called.
	if !s.observeAudio(FingerprintOf(in.Audio)) {
		return "", SkipDuplicateAudio
	}

	text, err := c.deps.Transcriber.Transcribe(ctx, in.Audio, in.AudioMIME)
	if err != nil {
		// Dropped on purpose: transient audio glitches should not surface as errors.
		log.Debug("transcription failed", zap.Error(err))
		return "", SkipTranscriptionFailed
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", SkipTranscriptionFailed
	}

	return text, SkipNone
}

// End moves chat -> report once an exchange beyond the greeting exists.
func (c *Controller) End(s *Session) error {
	if err := expectPhase(s, PhaseChat, "end the interview"); err != nil {
		return err
	}

	if !s.CanEnd() {
		return ErrNotEnoughTurns
	}

	s.phase = PhaseReport
	c.logger(s).Info("interview ended", zap.Int("turns", s.Len()))

	return nil
}

// Report scores the transcript. It may be called again after a failure and
// never modifies the session.
func (c *Controller) Report(ctx context.Context, s *Session) (*ai.Evaluation, error) {
	if err := expectPhase(s, PhaseReport, "generate the report"); err != nil {
		return nil, err
	}

	log := c.logger(s)

	evaluation, err := c.deps.Evaluator.Evaluate(ctx, ai.EvaluationRequest{
		Role:       s.profile.Role,
		Transcript: s.Transcript(),
	})
	if err != nil {
		log.Warn("report generation failed", zap.Error(err), zap.String("kind", ai.KindOf(err).String()))
		return nil, fmt.Errorf("generate report: %w", err)
	}

	log.Info("report generated",
		zap.Int("score", evaluation.Score),
		zap.String("decision", string(evaluation.Decision)),
	)

	return evaluation, nil
}

// Reset discards everything and returns the session to start. Allowed in any phase.
func (c *Controller) Reset(s *Session) {
	c.logger(s).Info("session reset", zap.Int("discarded_turns", s.Len()))
	s.reset()
}

func (c *Controller) logger(s *Session) *zap.Logger {
	return logger.WithSession(c.deps.Logger, s.ID()).With(zap.String(logger.FieldPhase, string(s.Phase())))
}

func expectPhase(s *Session, want Phase, action string) error {
	if s == nil {
		return errors.New("session is required")
	}
	if s.phase != want {
		return fmt.Errorf("%w: cannot %s in phase %q", ErrIllegalTransition, action, s.phase)
	}
	return nil
}
