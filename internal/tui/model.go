// Package tui provides the Bubble Tea capture interface.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"keyprint/internal/apiclient"
	"keyprint/internal/model"
	"keyprint/internal/payload"
	"keyprint/internal/phrase"
	"keyprint/internal/session"
	statsPkg "keyprint/internal/stats"
	"keyprint/internal/store"
)

var (
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cursorStyle    = pendingStyle.Underline(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
)

// weakLetterWindow is how many recent samples feed the weak-letter
// notice after a finished phrase.
const weakLetterWindow = 10

type registerMsg struct {
	result apiclient.RegisterResult
	err    error
}

// Model implements the Bubble Tea capture UI.
type Model struct {
	username     string
	store        *store.Store
	client       *apiclient.Client
	picker       *phrase.Picker
	phrases      []string
	minPhraseLen int

	sess  *session.Session
	input []rune

	width  int
	height int

	samplesSaved int
	lastCPM      float64
	lastAcc      int
	hasLast      bool
	notice       string
}

// NewModel constructs a capture TUI model. client may be nil when the
// session should not be registered remotely.
func NewModel(username string, st *store.Store, client *apiclient.Client, picker *phrase.Picker, phrases []string, minPhraseLen int) *Model {
	m := &Model{
		username:     username,
		store:        st,
		client:       client,
		picker:       picker,
		phrases:      phrases,
		minPhraseLen: minPhraseLen,
	}
	m.sess = session.New(m.pickPhrase())
	return m
}

func (m *Model) pickPhrase() string {
	return m.picker.Pick(m.phrases, m.minPhraseLen)
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
	case registerMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("register failed: %v", msg.err)
		} else {
			m.notice = fmt.Sprintf("registered (%d samples on server)", msg.result.SamplesCount)
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyBackspace, tea.KeyDelete:
			return m.handleBackspace()
		case tea.KeySpace:
			return m.handleRunes([]rune{' '})
		case tea.KeyTab:
			// Recorded but suppressed from echo, like the other
			// accelerator keys.
			m.sess.RecordPress("Tab", "Tab", nowMs(), 9)
			return m, nil
		case tea.KeyRunes:
			return m.handleRunes(msg.Runes)
		default:
			return m, nil
		}
	default:
		return m, nil
	}
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

func (m *Model) handleBackspace() (tea.Model, tea.Cmd) {
	m.sess.RecordPress("Backspace", "Backspace", nowMs(), 8)
	if len(m.input) == 0 {
		return m, nil
	}
	m.input = m.input[:len(m.input)-1]
	m.sess.ApplyText(string(m.input))
	return m, nil
}

func (m *Model) handleRunes(runes []rune) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, r := range runes {
		m.sess.RecordPress(string(r), keyCodeFor(r), nowMs(), int(r))
		m.input = append(m.input, r)
		_, completed := m.sess.ApplyText(string(m.input))
		if completed {
			cmd = m.finishSample()
			m.input = nil
			m.sess.Reset(m.pickPhrase())
			break
		}
	}
	return m, cmd
}

func (m *Model) finishSample() tea.Cmd {
	counters := m.sess.Counters()
	feats := m.sess.Features()
	rec := model.SampleRecord{
		Username:      m.username,
		StartedAt:     time.UnixMilli(m.sess.StartMs()),
		EndedAt:       time.UnixMilli(m.sess.EndMs()),
		ReferenceText: m.sess.Reference(),
		TypedText:     m.sess.Typed(),
		DurationMs:    m.sess.EndMs() - m.sess.StartMs(),
		Counters:      counters,
		Features:      feats,
	}

	letterStats := m.sess.LetterStats()
	letters := make([]model.LetterCount, 0, len(letterStats))
	for l, stat := range letterStats {
		letters = append(letters, model.LetterCount{Letter: l, Total: stat.Total, Errors: stat.Errors})
	}

	ctx := context.Background()
	if _, err := m.store.InsertSample(ctx, rec, letters); err != nil {
		logErrf("failed to save sample: %v\n", err)
	} else {
		m.samplesSaved++
	}

	m.lastCPM = feats.TypingSpeed
	m.lastAcc = m.sess.AccuracyPercent()
	m.hasLast = true
	m.notice = m.weakLetterNotice(ctx, letterStats)

	if m.client == nil {
		return nil
	}
	sample := payload.New(m.username, m.sess.Typed(), m.sess.Events())
	client := m.client
	return func() tea.Msg {
		res, err := client.Register(context.Background(), sample)
		return registerMsg{result: res, err: err}
	}
}

// weakLetterNotice renders the worst letters over the recent sample
// window on the green-to-red severity scale. The just-finished sample
// is the fallback when no history is stored yet.
func (m *Model) weakLetterNotice(ctx context.Context, letterStats map[string]model.LetterStat) string {
	aggs, err := m.store.GetWeakLetters(ctx, weakLetterWindow, m.username)
	if err != nil || len(aggs) == 0 {
		aggs = make([]model.LetterAggregate, 0, len(letterStats))
		for l, stat := range letterStats {
			aggs = append(aggs, model.LetterAggregate{Letter: l, Total: stat.Total, Errors: stat.Errors})
		}
	}
	weakest := statsPkg.WeakestLetters(aggs, 5)
	if len(weakest) == 0 {
		return ""
	}
	parts := make([]string, 0, len(weakest))
	for _, agg := range weakest {
		rate := statsPkg.ErrorRate(agg)
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(statsPkg.SeverityColor(rate)))
		parts = append(parts, style.Render(fmt.Sprintf("%s %.0f%%", agg.Letter, rate*100)))
	}
	return "Letters: " + strings.Join(parts, " ")
}

// View implements tea.Model.
func (m *Model) View() string {
	target := []rune(m.sess.Reference())
	if len(target) == 0 {
		return ""
	}
	styled := buildStyledRunes(target, m.input)
	if m.width == 0 || m.height == 0 {
		return renderStyledRunes(styled)
	}
	contentWidth := int(float64(m.width) * 0.70)
	if contentWidth < 1 {
		contentWidth = 1
	}
	content := lipgloss.NewStyle().Width(contentWidth).Render(wrapStyledRunes(styled, contentWidth))
	footer := m.renderFooter()
	if footer == "" || m.height < 4 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	footerHeight := lipgloss.Height(footer)
	bodyHeight := m.height - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerBlock := lipgloss.Place(m.width, footerHeight, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerBlock
}

func (m *Model) renderFooter() string {
	target := []rune(m.sess.Reference())
	progress := 0
	if len(target) > 0 {
		done := len(m.input)
		if done > len(target) {
			done = len(target)
		}
		progress = done * 100 / len(target)
	}
	segments := []string{fmt.Sprintf("Progress %d%%", progress)}
	if m.sess.InProgress() {
		feats := m.sess.Features()
		segments = append(segments,
			fmt.Sprintf("CPM %.0f", feats.TypingSpeed),
			fmt.Sprintf("Acc %d%%", m.sess.AccuracyPercent()),
			fmt.Sprintf("Rhythm %.2f", feats.RhythmConsistency),
		)
		lat := feats.RawLatencies
		if len(lat) > 24 {
			lat = lat[len(lat)-24:]
		}
		if spark := statsPkg.Sparkline(lat); spark != "" {
			segments = append(segments, spark)
		}
	} else if m.hasLast {
		segments = append(segments,
			fmt.Sprintf("Last %.0f CPM · %d%%", m.lastCPM, m.lastAcc),
			fmt.Sprintf("Saved %d", m.samplesSaved),
		)
	}
	if keys := m.sess.LastKeys(); len(keys) > 0 {
		strip := strings.Join(keys, "")
		if len([]rune(strip)) > 24 {
			r := []rune(strip)
			strip = string(r[len(r)-24:])
		}
		segments = append(segments, "["+strip+"]")
	}
	line := footerStyle.Render(strings.Join(segments, "  "))
	if m.notice != "" {
		return line + "\n" + noticeStyle.Render(m.notice)
	}
	return line
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
