package interview

import (
	"errors"
	"fmt"
	"strings"

	_ "embed"
)

// Level is the seniority the candidate is interviewed for.
type Level string

const (
	LevelJunior Level = "Junior"
	LevelMid    Level = "Mid-Level"
	LevelSenior Level = "Senior"
)

// Levels lists the selectable levels in display order.
var Levels = []Level{LevelJunior, LevelMid, LevelSenior}

const DefaultRole = "Software Engineer"

// ErrUnknownLevel is returned for levels outside Levels.
var ErrUnknownLevel = errors.New("unknown experience level")

// ParseLevel accepts the display names case-insensitively, plus "mid".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "junior":
		return LevelJunior, nil
	case "mid", "mid-level", "middle":
		return LevelMid, nil
	case "senior":
		return LevelSenior, nil
	default:
		return "", fmt.Errorf("%w %q (expected one of %s, %s, %s)", ErrUnknownLevel, s, LevelJunior, LevelMid, LevelSenior)
	}
}

// Profile is what the candidate configures before the interview starts.
type Profile struct {
	Role   string `json:"role"`
	Level  Level  `json:"level"`
	Resume string `json:"-"`
}

func (p Profile) normalized() Profile {
	p.Role = strings.TrimSpace(p.Role)
	if p.Role == "" {
		p.Role = DefaultRole
	}
	if p.Level == "" {
		p.Level = LevelJunior
	}
	p.Resume = strings.TrimSpace(p.Resume)
	return p
}

var (
	//go:embed instruction.md
	instructionTemplate string
	//go:embed greeting.md
	greetingTemplate string
)

// SystemInstruction primes the interviewer model for p.
func SystemInstruction(p Profile) string {
	p = p.normalized()

	resume := p.Resume
	if resume == "" {
		resume = "not provided"
	}

	return strings.TrimSpace(strings.NewReplacer(
		"{{ROLE}}", p.Role,
		"{{LEVEL}}", string(p.Level),
		"{{RESUME}}", resume,
	).Replace(instructionTemplate))
}

// Greeting is the synthetic first assistant turn.
func Greeting(p Profile) string {
	p = p.normalized()
	return strings.TrimSpace(strings.ReplaceAll(greetingTemplate, "{{ROLE}}", p.Role))
}
