package interview

import (
	"strings"

	"github.com/spigell/mock-interviewer/internal/ai"
)

// Phase gates which actions a session accepts.
type Phase string

const (
	PhaseStart  Phase = "start"
	PhaseChat   Phase = "chat"
	PhaseReport Phase = "report"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance of the transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// minTurnsForReport is the greeting plus one full user/assistant exchange.
const minTurnsForReport = 3

// Session is the state of one candidate's interview. It is owned by a single
// caller at a time and is not safe for concurrent use.
type Session struct {
	id        string
	profile   Profile
	phase     Phase
	messages  []Turn
	chat      ai.Conversation
	lastAudio Fingerprint
}

func NewSession(id string) *Session {
	return &Session{id: id, phase: PhaseStart}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Phase() Phase { return s.phase }

func (s *Session) Profile() Profile { return s.profile }

// Messages returns a copy of the transcript.
func (s *Session) Messages() []Turn {
	out := make([]Turn, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Len() int { return len(s.messages) }

// LastAudio is the fingerprint of the last accepted audio clip, empty if none.
func (s *Session) LastAudio() Fingerprint { return s.lastAudio }

// CanEnd reports whether the interview may move on to the report.
func (s *Session) CanEnd() bool {
	return s.phase == PhaseChat && len(s.messages) >= minTurnsForReport
}

// Transcript flattens the turns to "ROLE: content" lines in order.
func (s *Session) Transcript() string {
	var b strings.Builder
	for _, turn := range s.messages {
		b.WriteString(strings.ToUpper(string(turn.Role)))
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func (s *Session) append(turn Turn) Turn {
	s.messages = append(s.messages, turn)
	return turn
}

func (s *Session) reset() {
	*s = Session{id: s.id, phase: PhaseStart}
}
