package attempt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/Icosa2050/assess-speaking/internal/model"
)

type State int

const (
	None State = iota
	Active
	Finalized
	Cancelled
	Expired
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Finalized:
		return "finalized"
	case Cancelled:
		return "cancelled"
	case Expired:
		return "expired"
	default:
		return "none"
	}
}

// Session holds at most one live attempt. Terminal transitions clear it
// and remember how the last attempt ended.
type Session struct {
	current *Attempt
	last    State
}

func NewSession() *Session {
	return &Session{}
}

// State is Active while an attempt is live and None otherwise.
func (s *Session) State() State {
	if s.current != nil {
		return Active
	}
	return None
}

// LastOutcome reports how the most recent attempt ended.
func (s *Session) LastOutcome() State {
	return s.last
}

// Current returns the live attempt or nil.
func (s *Session) Current() *Attempt {
	return s.current
}

// Start begins an attempt for p. Restarting the live prompt returns the
// live attempt; a different prompt conflicts until the live one is
// cancelled. An attempt already past its deadline is expired first.
func (s *Session) Start(p model.Prompt, now time.Time) (*Attempt, error) {
	s.Expire(now)
	if s.current != nil {
		if s.current.PromptID == p.ID {
			return s.current, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrConflict, s.current.PromptID)
	}
	s.current = New(p, now)
	return s.current, nil
}

// ConsumePlayback uses one replay of the live attempt.
func (s *Session) ConsumePlayback() error {
	if s.current == nil {
		return ErrNoActiveAttempt
	}
	return s.current.ConsumePlayback()
}

// Append adds captured audio. Audio arriving after the deadline expires
// the attempt instead.
func (s *Session) Append(now time.Time, data []byte, f Format) error {
	if s.current == nil {
		return ErrNoActiveAttempt
	}
	if s.Expire(now) {
		return ErrDeadlineExceeded
	}
	s.current.AppendChunk(data, f)
	return nil
}

// Cancel discards the live attempt without writing audio.
func (s *Session) Cancel() error {
	if s.current == nil {
		return ErrNoActiveAttempt
	}
	s.current = nil
	s.last = Cancelled
	return nil
}

// Expire discards the live attempt if its deadline has passed.
func (s *Session) Expire(now time.Time) bool {
	if s.current == nil || !s.current.Expired(now) {
		return false
	}
	s.current = nil
	s.last = Expired
	return true
}

// Finalize writes the live attempt to dir as <prompt-id>_<unix>.wav and
// ends it. A missed deadline ends it as Expired; missing audio leaves it
// live so the learner can still record.
func (s *Session) Finalize(dir string, now time.Time) (string, error) {
	a := s.current
	if a == nil {
		return "", ErrNoActiveAttempt
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create response dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%d.wav", fileSafe(a.PromptID), now.Unix()))
	if err := a.Finalize(path, now); err != nil {
		if errors.Is(err, ErrDeadlineExceeded) {
			s.current = nil
			s.last = Expired
		}
		return "", err
	}
	s.current = nil
	s.last = Finalized
	return path, nil
}

func fileSafe(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "prompt"
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			return r
		}
		return '_'
	}, id)
}
