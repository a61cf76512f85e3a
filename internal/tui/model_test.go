package tui

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Icosa2050/assess-speaking/internal/assess"
	"github.com/Icosa2050/assess-speaking/internal/attempt"
	"github.com/Icosa2050/assess-speaking/internal/audio"
	"github.com/Icosa2050/assess-speaking/internal/model"
	"github.com/Icosa2050/assess-speaking/internal/picker"
	"github.com/Icosa2050/assess-speaking/internal/report"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type fakePlayer struct{ calls int }

func (p *fakePlayer) Play(_ context.Context, _ string) error {
	p.calls++
	return nil
}

type fakeAssessor struct {
	reqs []assess.Request
}

func (a *fakeAssessor) Run(_ context.Context, req assess.Request) (assess.Result, error) {
	a.reqs = append(a.reqs, req)
	return assess.Result{}, nil
}

type fakeLog struct {
	attempts []model.AttemptRecord
	history  []model.AssessmentRecord
}

func (l *fakeLog) InsertAttempt(_ context.Context, rec model.AttemptRecord) error {
	l.attempts = append(l.attempts, rec)
	return nil
}

func (l *fakeLog) ListAssessments(_ context.Context, _ model.HistoryFilter) ([]model.AssessmentRecord, error) {
	return l.history, nil
}

type failingCapturer struct{}

func (failingCapturer) Start(context.Context) (*audio.Capture, error) {
	return nil, errors.New("no microphone")
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var enterKey = tea.KeyMsg{Type: tea.KeyEnter}

type harness struct {
	m        *Model
	clock    *fakeClock
	player   *fakePlayer
	assessor *fakeAssessor
	log      *fakeLog
	dir      string
}

func newHarness(t *testing.T, prompts ...model.Prompt) *harness {
	t.Helper()
	if len(prompts) == 0 {
		prompts = []model.Prompt{{
			ID: "energia", Title: "Energia", Text: "Parla delle fonti di energia.",
			AudioPath: "/prompts/energia.mp3", ResponseSeconds: 60, MaxPlaybacks: 1, CEFRTarget: "B2",
		}}
	}
	h := &harness{
		clock:    &fakeClock{now: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)},
		player:   &fakePlayer{},
		assessor: &fakeAssessor{},
		log:      &fakeLog{},
		dir:      t.TempDir(),
	}
	h.m = NewModel(Options{
		Prompts:      prompts,
		ResponsesDir: filepath.Join(h.dir, "prompt_responses"),
		Assess:       model.AssessConfig{LLM: "llama3.1", TargetCEFR: "B1"},
		Assessor:     h.assessor,
		Player:       h.player,
		Log:          h.log,
		Picker:       picker.NewWithSeed(1),
		Now:          h.clock.Now,
	})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	_, cmd := h.m.Update(msg)
	return cmd
}

func TestStartAttemptFromList(t *testing.T) {
	h := newHarness(t)
	if cmd := h.send(enterKey); cmd == nil {
		t.Fatalf("expected countdown tick to be scheduled")
	}
	if h.m.screen != screenAttempt || h.m.session.State() != attempt.Active {
		t.Fatalf("expected an active attempt, screen=%v state=%v", h.m.screen, h.m.session.State())
	}
	if !strings.Contains(h.m.View(), "01:00") {
		t.Fatalf("expected full countdown in view:\n%s", h.m.View())
	}
}

func TestPlaybackQuota(t *testing.T) {
	h := newHarness(t)
	h.send(enterKey)
	cmd := h.send(keyRunes("p"))
	if cmd == nil {
		t.Fatalf("expected playback command")
	}
	h.send(cmd())
	if h.player.calls != 1 {
		t.Fatalf("expected one playback, got %d", h.player.calls)
	}
	if cmd := h.send(keyRunes("p")); cmd != nil {
		t.Fatalf("expected no playback once the quota is used")
	}
	if h.m.status != "no replays left" || h.player.calls != 1 {
		t.Fatalf("expected quota message, got %q (calls %d)", h.m.status, h.player.calls)
	}
}

func TestFinalizeWithoutAudioKeepsAttempt(t *testing.T) {
	h := newHarness(t)
	h.send(enterKey)
	h.send(enterKey)
	if h.m.status != "nothing recorded yet" {
		t.Fatalf("unexpected status %q", h.m.status)
	}
	if h.m.session.State() != attempt.Active || h.m.screen != screenAttempt {
		t.Fatalf("attempt should stay live")
	}
}

func TestFinalizeRunsAssessment(t *testing.T) {
	h := newHarness(t)
	h.send(enterKey)
	if err := h.m.session.Append(h.clock.now, []byte{1, 0, 2, 0}, audio.DefaultFormat()); err != nil {
		t.Fatalf("append: %v", err)
	}
	h.clock.now = h.clock.now.Add(20 * time.Second)
	if cmd := h.send(enterKey); cmd == nil {
		t.Fatalf("expected assessment command")
	}
	if h.m.screen != screenAssessing {
		t.Fatalf("expected assessing screen, got %v", h.m.screen)
	}
	if len(h.log.attempts) != 1 || h.log.attempts[0].State != "finalized" {
		t.Fatalf("expected finalized attempt record, got %+v", h.log.attempts)
	}
	rec := h.log.attempts[0]
	if _, err := os.Stat(rec.AudioPath); err != nil {
		t.Fatalf("expected response file: %v", err)
	}
	if filepath.Base(rec.AudioPath) != "energia_"+strconv.FormatInt(h.clock.now.Unix(), 10)+".wav" {
		t.Fatalf("unexpected response name %s", rec.AudioPath)
	}

	h.send(assessDoneMsg{res: assess.Result{Report: report.Report{
		Metrics: model.SpeakingMetrics{WPM: 101.5, WordCount: 30},
	}}})
	if h.m.screen != screenResult {
		t.Fatalf("expected result screen, got %v", h.m.screen)
	}
	if !strings.Contains(h.m.View(), "101.5") {
		t.Fatalf("expected metrics in result view:\n%s", h.m.View())
	}
	h.send(enterKey)
	if h.m.screen != screenList || h.m.runs != 1 {
		t.Fatalf("expected list after result, screen=%v runs=%d", h.m.screen, h.m.runs)
	}
}

func TestFinalizedRequestCarriesPromptLevel(t *testing.T) {
	h := newHarness(t)
	h.send(enterKey)
	if err := h.m.session.Append(h.clock.now, []byte{1, 0}, audio.DefaultFormat()); err != nil {
		t.Fatalf("append: %v", err)
	}
	cmd := h.send(enterKey)
	if cmd == nil {
		t.Fatalf("expected assessment command")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatalf("expected batched spinner and assessment")
	}
	for _, c := range batch {
		if msg, ok := c().(assessDoneMsg); ok {
			h.send(msg)
		}
	}
	if len(h.assessor.reqs) != 1 {
		t.Fatalf("expected one assessment run, got %d", len(h.assessor.reqs))
	}
	req := h.assessor.reqs[0]
	if req.PromptID != "energia" || req.Config.Label != "prompt:energia" || req.Config.TargetCEFR != "B2" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestCancelAttempt(t *testing.T) {
	h := newHarness(t)
	h.send(enterKey)
	h.send(keyRunes("c"))
	if h.m.screen != screenList || h.m.session.LastOutcome() != attempt.Cancelled {
		t.Fatalf("expected cancelled attempt, screen=%v", h.m.screen)
	}
	if len(h.log.attempts) != 1 || h.log.attempts[0].State != "cancelled" {
		t.Fatalf("expected cancelled record, got %+v", h.log.attempts)
	}
}

func TestTickExpiresAttempt(t *testing.T) {
	h := newHarness(t)
	h.send(enterKey)
	h.clock.now = h.clock.now.Add(30 * time.Second)
	if cmd := h.send(tickMsg(h.clock.now)); cmd == nil {
		t.Fatalf("expected countdown to continue before the deadline")
	}
	h.clock.now = h.clock.now.Add(31 * time.Second)
	if cmd := h.send(tickMsg(h.clock.now)); cmd != nil {
		t.Fatalf("expected countdown to stop after expiry")
	}
	if h.m.session.LastOutcome() != attempt.Expired || h.m.screen != screenList {
		t.Fatalf("expected expired attempt")
	}
	if len(h.log.attempts) != 1 || h.log.attempts[0].State != "expired" {
		t.Fatalf("expected expired record, got %+v", h.log.attempts)
	}
}

func TestRecordingStartFailure(t *testing.T) {
	h := newHarness(t)
	h.m.opts.Capturer = failingCapturer{}
	h.send(enterKey)
	if cmd := h.send(keyRunes("r")); cmd != nil {
		t.Fatalf("expected no command when capture fails")
	}
	if !strings.Contains(h.m.status, "no microphone") {
		t.Fatalf("unexpected status %q", h.m.status)
	}
}

func TestRecordingDeliversChunksInOrder(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	h := newHarness(t)
	h.m.opts.Capturer = audio.Recorder{
		Name:       "sh",
		Args:       []string{"-c", "printf 'abcdefghij'"},
		Format:     audio.DefaultFormat(),
		ChunkBytes: 4,
	}
	h.send(enterKey)
	cmd := h.send(keyRunes("r"))
	for i := 0; cmd != nil && i < 10; i++ {
		cmd = h.send(cmd())
	}
	if h.m.capture != nil {
		t.Fatalf("expected capture to finish")
	}
	a := h.m.session.Current()
	if a == nil || a.CapturedBytes() != 10 || a.Chunks() != 3 {
		t.Fatalf("unexpected capture state: %+v", a)
	}
}

func TestStaleChunksIgnored(t *testing.T) {
	h := newHarness(t)
	h.send(enterKey)
	h.m.captureGen = 3
	h.send(chunkMsg{gen: 2, data: []byte{1, 2}})
	if got := h.m.session.Current().CapturedBytes(); got != 0 {
		t.Fatalf("expected stale chunk to be dropped, got %d bytes", got)
	}
}

func TestResetRecordingClearsAudio(t *testing.T) {
	h := newHarness(t)
	h.send(enterKey)
	if err := h.m.session.Append(h.clock.now, []byte{1, 0, 2, 0}, audio.DefaultFormat()); err != nil {
		t.Fatalf("append: %v", err)
	}
	h.send(keyRunes("x"))
	if got := h.m.session.Current().CapturedBytes(); got != 0 {
		t.Fatalf("expected recording cleared, got %d bytes", got)
	}
}

func TestRandomPromptStartsAttempt(t *testing.T) {
	h := newHarness(t,
		model.Prompt{ID: "a", Title: "A", ResponseSeconds: 30},
		model.Prompt{ID: "b", Title: "B", ResponseSeconds: 30},
	)
	h.send(keyRunes("n"))
	cur := h.m.session.Current()
	if cur == nil {
		t.Fatalf("expected an attempt")
	}
	if h.m.opts.Prompts[h.m.cursor].ID != cur.PromptID {
		t.Fatalf("cursor should follow the picked prompt")
	}
}

func TestFooterUsesHistory(t *testing.T) {
	overall := 3.5
	log := &fakeLog{history: []model.AssessmentRecord{{}, {Overall: &overall}}}
	m := NewModel(Options{Log: log})
	out := m.renderFooter()
	if !strings.Contains(out, "Runs 2") || !strings.Contains(out, "Last overall 3.5") {
		t.Fatalf("unexpected footer %q", out)
	}
}

func TestFormatCountdownClampsAtZero(t *testing.T) {
	cases := map[time.Duration]string{
		-5 * time.Second:       "00:00",
		0:                      "00:00",
		500 * time.Millisecond: "00:01",
		90 * time.Second:       "01:30",
	}
	for in, want := range cases {
		if got := formatCountdown(in); got != want {
			t.Fatalf("formatCountdown(%v) = %q, want %q", in, got, want)
		}
	}
}
