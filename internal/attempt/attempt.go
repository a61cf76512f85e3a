// Package attempt implements the timed prompt-response lifecycle: a fixed
// deadline, a stimulus playback quota and in-memory audio capture that is
// written out once on finalize.
package attempt

import (
	"bytes"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Icosa2050/assess-speaking/internal/audio"
	"github.com/Icosa2050/assess-speaking/internal/model"
)

var (
	ErrExhaustedQuota   = errors.New("playback quota exhausted")
	ErrNoAudioCaptured  = errors.New("no audio captured")
	ErrDeadlineExceeded = errors.New("response deadline exceeded")
	ErrConflict         = errors.New("another prompt attempt is active")
	ErrNoActiveAttempt  = errors.New("no active attempt")
)

// Format is the PCM layout of captured chunks.
type Format = audio.Format

// Attempt is one timed response to a prompt. It is not safe for concurrent
// use; the owning session is the only writer.
type Attempt struct {
	ID             string
	PromptID       string
	Start          time.Time
	Deadline       time.Time
	PlaysRemaining int
	AudioRef       string
	TargetLevel    string
	Label          string

	maxPlays int
	chunks   [][]byte
	size     int
	format   Format
}

// New creates an attempt whose deadline is now plus the prompt's window.
func New(p model.Prompt, now time.Time) *Attempt {
	plays := p.MaxPlaybacks
	if plays < 0 {
		plays = 0
	}
	return &Attempt{
		ID:             uuid.NewString(),
		PromptID:       p.ID,
		Start:          now,
		Deadline:       now.Add(p.ResponseWindow()),
		PlaysRemaining: plays,
		AudioRef:       p.AudioPath,
		TargetLevel:    p.CEFRTarget,
		Label:          "prompt:" + p.ID,
		maxPlays:       plays,
	}
}

// Remaining is the time left before the deadline. It is negative once the
// attempt has expired.
func (a *Attempt) Remaining(now time.Time) time.Duration {
	return a.Deadline.Sub(now)
}

func (a *Attempt) Expired(now time.Time) bool {
	return a.Remaining(now) < 0
}

func (a *Attempt) CanPlay() bool {
	return a.PlaysRemaining > 0
}

// ConsumePlayback uses one stimulus replay. Callers check CanPlay first.
func (a *Attempt) ConsumePlayback() error {
	if a.PlaysRemaining <= 0 {
		return ErrExhaustedQuota
	}
	a.PlaysRemaining--
	return nil
}

func (a *Attempt) PlaysUsed() int {
	return a.maxPlays - a.PlaysRemaining
}

// AppendChunk stores a copy of data after the chunks already captured. The
// most recent format wins; it is expected to stay constant.
func (a *Attempt) AppendChunk(data []byte, f Format) {
	a.format = f
	if len(data) == 0 {
		return
	}
	a.chunks = append(a.chunks, bytes.Clone(data))
	a.size += len(data)
}

// ResetRecording drops the captured audio but keeps the deadline and quota.
func (a *Attempt) ResetRecording() {
	a.chunks = nil
	a.size = 0
}

func (a *Attempt) Chunks() int { return len(a.chunks) }

func (a *Attempt) CapturedBytes() int { return a.size }

// Format returns the recorded format, with defaults for fields never set.
func (a *Attempt) Format() Format {
	return a.format.OrDefault()
}

// CapturedSeconds is the length of the captured audio.
func (a *Attempt) CapturedSeconds() float64 {
	return a.Format().Seconds(a.size)
}

// Finalize writes the captured audio to dest as a single WAV file.
func (a *Attempt) Finalize(dest string, now time.Time) error {
	if a.Expired(now) {
		return ErrDeadlineExceeded
	}
	if len(a.chunks) == 0 {
		return ErrNoAudioCaptured
	}
	pcm := make([]byte, 0, a.size)
	for _, c := range a.chunks {
		pcm = append(pcm, c...)
	}
	return audio.WriteWAVFile(dest, pcm, a.Format())
}

// Record summarises the attempt for the history store.
func (a *Attempt) Record(state State, ended time.Time, audioPath string) model.AttemptRecord {
	return model.AttemptRecord{
		AttemptID:  a.ID,
		PromptID:   a.PromptID,
		StartedAt:  a.Start,
		EndedAt:    ended,
		State:      state.String(),
		AudioPath:  audioPath,
		PlaysUsed:  a.PlaysUsed(),
		ChunkBytes: a.size,
	}
}
