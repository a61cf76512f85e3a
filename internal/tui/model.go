package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Icosa2050/assess-speaking/internal/assess"
	"github.com/Icosa2050/assess-speaking/internal/attempt"
	"github.com/Icosa2050/assess-speaking/internal/audio"
	"github.com/Icosa2050/assess-speaking/internal/model"
	"github.com/Icosa2050/assess-speaking/internal/picker"
	"github.com/Icosa2050/assess-speaking/internal/report"
	statsPkg "github.com/Icosa2050/assess-speaking/internal/stats"
)

// Assessor scores a finished response.
type Assessor interface {
	Run(ctx context.Context, req assess.Request) (assess.Result, error)
}

// Capturer starts microphone capture.
type Capturer interface {
	Start(ctx context.Context) (*audio.Capture, error)
}

// Player plays a prompt stimulus.
type Player interface {
	Play(ctx context.Context, path string) error
}

// AttemptLog stores attempt outcomes and reads recent assessments.
type AttemptLog interface {
	InsertAttempt(ctx context.Context, rec model.AttemptRecord) error
	ListAssessments(ctx context.Context, filter model.HistoryFilter) ([]model.AssessmentRecord, error)
}

// Options configures the trainer.
type Options struct {
	Prompts      []model.Prompt
	ResponsesDir string
	Assess       model.AssessConfig
	Assessor     Assessor
	Capturer     Capturer
	Player       Player
	Log          AttemptLog
	Picker       *picker.Picker
	Weakness     map[string]float64
	Now          func() time.Time
}

type screen int

const (
	screenList screen = iota
	screenAttempt
	screenAssessing
	screenResult
)

type tickMsg time.Time

type chunkMsg struct {
	gen    int
	data   []byte
	format audio.Format
}

type captureDoneMsg struct {
	gen int
}

type playDoneMsg struct {
	err error
}

type assessDoneMsg struct {
	res assess.Result
	err error
}

// Model implements the Bubble Tea prompt trainer.
type Model struct {
	opts    Options
	session *attempt.Session
	spinner spinner.Model

	width  int
	height int

	screen screen
	cursor int
	prompt model.Prompt
	status string

	capture         *audio.Capture
	captureGen      int
	stopping        bool
	pendingFinalize bool
	playing         bool

	result *assess.Result
	runs   int
	last   *float64
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	selectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	recordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	timerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
)

const lowTime = 10 * time.Second

// NewModel constructs the trainer.
func NewModel(opts Options) *Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Picker == nil {
		opts.Picker = picker.New()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	m := &Model{
		opts:    opts,
		session: attempt.NewSession(),
		spinner: sp,
	}
	m.loadFooterStats()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.stopCapture()
			if m.session.Current() != nil {
				m.cancelAttempt()
			}
			return m, tea.Quit
		}
		return m, m.handleKey(msg)
	case tickMsg:
		return m, m.handleTick(time.Time(msg))
	case chunkMsg:
		return m, m.handleChunk(msg)
	case captureDoneMsg:
		return m, m.handleCaptureDone(msg)
	case playDoneMsg:
		m.playing = false
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.status = fmt.Sprintf("playback failed: %v", msg.err)
		}
		return m, nil
	case assessDoneMsg:
		return m, m.handleAssessDone(msg)
	case spinner.TickMsg:
		if m.screen != screenAssessing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	switch m.screen {
	case screenList:
		switch key {
		case "q", "esc":
			return tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.opts.Prompts)-1 {
				m.cursor++
			}
		case "n":
			p, ok := m.opts.Picker.PickWeighted(m.opts.Prompts, m.prompt.ID, m.opts.Weakness, picker.DefaultFactor)
			if !ok {
				return nil
			}
			for i := range m.opts.Prompts {
				if m.opts.Prompts[i].ID == p.ID {
					m.cursor = i
				}
			}
			return m.startAttempt(p)
		case "enter":
			if len(m.opts.Prompts) == 0 {
				return nil
			}
			return m.startAttempt(m.opts.Prompts[m.cursor])
		}
	case screenAttempt:
		switch key {
		case "p":
			return m.play()
		case "r", " ":
			return m.toggleRecording()
		case "x":
			m.resetRecording()
		case "enter", "f":
			return m.finalize()
		case "c", "esc":
			m.stopCapture()
			m.cancelAttempt()
		}
	case screenResult:
		switch key {
		case "q":
			return tea.Quit
		case "enter", "esc":
			m.result = nil
			m.screen = screenList
		}
	}
	return nil
}

func (m *Model) startAttempt(p model.Prompt) tea.Cmd {
	a, err := m.session.Start(p, m.opts.Now())
	if err != nil {
		m.status = err.Error()
		return nil
	}
	m.prompt = p
	m.screen = screenAttempt
	m.status = ""
	if a.AudioRef == "" {
		m.status = "no stimulus audio; answer the written prompt"
	}
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) handleTick(now time.Time) tea.Cmd {
	if m.screen != screenAttempt || m.session.Current() == nil {
		return nil
	}
	if m.expireIfDue(now) {
		return nil
	}
	return tick()
}

// expireIfDue ends the live attempt once its deadline has passed.
func (m *Model) expireIfDue(now time.Time) bool {
	a := m.session.Current()
	if a == nil {
		return false
	}
	if !m.session.Expire(now) {
		return false
	}
	m.stopCapture()
	m.logAttempt(a.Record(attempt.Expired, now, ""))
	m.status = "time is up: the attempt expired"
	m.screen = screenList
	return true
}

func (m *Model) play() tea.Cmd {
	a := m.session.Current()
	if a == nil || m.playing {
		return nil
	}
	if a.AudioRef == "" {
		m.status = "this prompt has no audio"
		return nil
	}
	if m.opts.Player == nil {
		m.status = "no audio player configured"
		return nil
	}
	if err := m.session.ConsumePlayback(); err != nil {
		if errors.Is(err, attempt.ErrExhaustedQuota) {
			m.status = "no replays left"
			return nil
		}
		m.status = err.Error()
		return nil
	}
	m.playing = true
	player := m.opts.Player
	path := a.AudioRef
	return func() tea.Msg {
		return playDoneMsg{err: player.Play(context.Background(), path)}
	}
}

func (m *Model) toggleRecording() tea.Cmd {
	if m.capture != nil {
		return m.beginStop()
	}
	if m.opts.Capturer == nil {
		m.status = "no recorder configured"
		return nil
	}
	c, err := m.opts.Capturer.Start(context.Background())
	if err != nil {
		m.status = fmt.Sprintf("failed to start recording: %v", err)
		return nil
	}
	m.capture = c
	m.captureGen++
	m.stopping = false
	m.status = ""
	return waitForChunk(c, m.captureGen)
}

// waitForChunk reads one chunk at a time so chunks reach the session in
// capture order.
func waitForChunk(c *audio.Capture, gen int) tea.Cmd {
	return func() tea.Msg {
		data, ok := <-c.Chunks
		if !ok {
			return captureDoneMsg{gen: gen}
		}
		return chunkMsg{gen: gen, data: data, format: c.Format}
	}
}

// beginStop asks the recorder to exit. Chunks already read keep arriving
// until the channel closes.
func (m *Model) beginStop() tea.Cmd {
	if m.capture == nil || m.stopping {
		return nil
	}
	m.stopping = true
	c := m.capture
	return func() tea.Msg {
		if err := c.Stop(); err != nil {
			logErrf("recorder stopped with error: %v\n", err)
		}
		return nil
	}
}

// stopCapture drops the running capture and ignores anything it still sends.
func (m *Model) stopCapture() {
	if m.capture == nil {
		return
	}
	c := m.capture
	m.capture = nil
	m.stopping = false
	m.pendingFinalize = false
	m.captureGen++
	go func() {
		if err := c.Stop(); err != nil {
			logErrf("recorder stopped with error: %v\n", err)
		}
	}()
}

func (m *Model) handleChunk(msg chunkMsg) tea.Cmd {
	if msg.gen != m.captureGen || m.capture == nil {
		return nil
	}
	a := m.session.Current()
	now := m.opts.Now()
	if err := m.session.Append(now, msg.data, msg.format); err != nil {
		if errors.Is(err, attempt.ErrDeadlineExceeded) && a != nil {
			m.stopCapture()
			m.logAttempt(a.Record(attempt.Expired, now, ""))
			m.status = "time is up: the attempt expired"
			m.screen = screenList
			return nil
		}
		m.status = err.Error()
		return nil
	}
	return waitForChunk(m.capture, msg.gen)
}

func (m *Model) handleCaptureDone(msg captureDoneMsg) tea.Cmd {
	if msg.gen != m.captureGen || m.capture == nil {
		return nil
	}
	c := m.capture
	wasStopping := m.stopping
	m.capture = nil
	m.stopping = false
	if !wasStopping {
		if err := c.Stop(); err != nil {
			m.status = fmt.Sprintf("recorder exited: %v", err)
		}
	}
	if m.pendingFinalize {
		m.pendingFinalize = false
		return m.finalize()
	}
	return nil
}

func (m *Model) resetRecording() {
	a := m.session.Current()
	if a == nil {
		return
	}
	m.stopCapture()
	a.ResetRecording()
	m.status = "recording cleared"
}

func (m *Model) cancelAttempt() {
	a := m.session.Current()
	if a == nil {
		return
	}
	if err := m.session.Cancel(); err != nil {
		m.status = err.Error()
		return
	}
	m.logAttempt(a.Record(attempt.Cancelled, m.opts.Now(), ""))
	m.status = "attempt cancelled"
	m.screen = screenList
}

func (m *Model) finalize() tea.Cmd {
	a := m.session.Current()
	if a == nil {
		return nil
	}
	if m.capture != nil {
		m.pendingFinalize = true
		return m.beginStop()
	}
	now := m.opts.Now()
	path, err := m.session.Finalize(m.opts.ResponsesDir, now)
	switch {
	case errors.Is(err, attempt.ErrNoAudioCaptured):
		m.status = "nothing recorded yet"
		return nil
	case errors.Is(err, attempt.ErrDeadlineExceeded):
		m.logAttempt(a.Record(attempt.Expired, now, ""))
		m.status = "time is up: the attempt expired"
		m.screen = screenList
		return nil
	case err != nil:
		m.status = fmt.Sprintf("failed to save response: %v", err)
		return nil
	}
	m.logAttempt(a.Record(attempt.Finalized, now, path))
	if m.opts.Assessor == nil {
		m.status = "saved " + path
		m.screen = screenList
		return nil
	}

	cfg := m.opts.Assess
	cfg.Label = a.Label
	if a.TargetLevel != "" {
		cfg.TargetCEFR = a.TargetLevel
	}
	req := assess.Request{Audio: path, Config: cfg, PromptID: a.PromptID}
	assessor := m.opts.Assessor
	m.screen = screenAssessing
	m.status = ""
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		res, err := assessor.Run(context.Background(), req)
		return assessDoneMsg{res: res, err: err}
	})
}

func (m *Model) handleAssessDone(msg assessDoneMsg) tea.Cmd {
	if msg.err != nil {
		m.status = fmt.Sprintf("assessment failed: %v", msg.err)
		m.screen = screenList
		return nil
	}
	res := msg.res
	m.result = &res
	m.screen = screenResult
	m.runs++
	if o := res.Report.Overall(); o != nil {
		v := *o
		m.last = &v
	}
	return nil
}

func (m *Model) logAttempt(rec model.AttemptRecord) {
	if m.opts.Log == nil {
		return
	}
	if err := m.opts.Log.InsertAttempt(context.Background(), rec); err != nil {
		logErrf("failed to save attempt: %v\n", err)
	}
}

func (m *Model) loadFooterStats() {
	if m.opts.Log == nil {
		return
	}
	records, err := m.opts.Log.ListAssessments(context.Background(), model.HistoryFilter{})
	if err != nil {
		logErrf("failed to load history: %v\n", err)
		return
	}
	summary := statsPkg.Summarise(records)
	m.runs = summary.Count
	if summary.Latest != nil && summary.Latest.Overall != nil {
		v := *summary.Latest.Overall
		m.last = &v
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.screen {
	case screenAttempt:
		body = m.viewAttempt()
	case screenAssessing:
		body = fmt.Sprintf("%s Assessing your response…", m.spinner.View())
	case screenResult:
		body = m.viewResult()
	default:
		body = m.viewList()
	}
	if m.status != "" {
		body += "\n\n" + alertStyle.Render(m.status)
	}
	footer := m.renderFooter()
	if m.width == 0 || m.height < 3 {
		return body + "\n\n" + footer
	}
	contentWidth := m.contentWidth()
	content := lipgloss.NewStyle().Width(contentWidth).Render(body)
	bodyHeight := m.height - 1
	main := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return main + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	w := int(float64(m.width) * 0.70)
	if w < 1 {
		w = 1
	}
	return w
}

func (m *Model) viewList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Prompts"))
	b.WriteString("\n\n")
	if len(m.opts.Prompts) == 0 {
		b.WriteString(mutedStyle.Render("No prompts in the catalog."))
		return b.String()
	}
	for i, p := range m.opts.Prompts {
		line := fmt.Sprintf("%s  %s  %ds", p.Title, mutedStyle.Render(orDash(p.CEFRTarget)), p.ResponseSeconds)
		if i == m.cursor {
			b.WriteString(selectStyle.Render("> ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("enter start · n random · q quit"))
	return b.String()
}

func (m *Model) viewAttempt() string {
	a := m.session.Current()
	if a == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.prompt.Title))
	b.WriteString("\n\n")
	if m.prompt.Text != "" {
		width := m.contentWidth()
		if m.width == 0 {
			width = 72
		}
		b.WriteString(wrapText(m.prompt.Text, width))
		b.WriteString("\n\n")
	}
	remaining := a.Remaining(m.opts.Now())
	timer := timerStyle
	if remaining <= lowTime {
		timer = alertStyle.Bold(true)
	}
	b.WriteString(timer.Render(formatCountdown(remaining)))
	b.WriteString("   ")
	if a.AudioRef != "" {
		b.WriteString(fmt.Sprintf("replays left %d", a.PlaysRemaining))
		b.WriteString("   ")
	}
	switch {
	case m.capture != nil && !m.stopping:
		b.WriteString(recordStyle.Render("● REC"))
	case m.stopping:
		b.WriteString(mutedStyle.Render("stopping…"))
	default:
		b.WriteString(mutedStyle.Render("not recording"))
	}
	b.WriteString(fmt.Sprintf("   %.1fs captured", a.CapturedSeconds()))
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render("r record/stop · p play · x reset · enter finish · c cancel"))
	return b.String()
}

func (m *Model) viewResult() string {
	if m.result == nil {
		return ""
	}
	var b strings.Builder
	if err := report.RenderText(&b, m.result.Report); err != nil {
		return err.Error()
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("enter back · q quit"))
	return b.String()
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("Runs %d", m.runs)}
	if m.last != nil {
		segments = append(segments, fmt.Sprintf("Last overall %.1f", *m.last))
	}
	if a := m.session.Current(); a != nil {
		segments = append(segments, a.PromptID)
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

// formatCountdown renders mm:ss and never goes below zero.
func formatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "–"
	}
	return s
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
