//go:build !gui

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	progressbar "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/progress"
	"github.com/metcalfc/folio/internal/session"
)

const fontStep = 2

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4")).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Padding(0, 1)
	pageStyle   = lipgloss.NewStyle().Padding(1, 2)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Padding(0, 1)
)

type keyMap struct {
	Next    key.Binding
	Prev    key.Binding
	NextCh  key.Binding
	PrevCh  key.Binding
	Bigger  key.Binding
	Smaller key.Binding
	Start   key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.NextCh, k.PrevCh, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.NextCh, k.PrevCh},
		{k.Bigger, k.Smaller, k.Start},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Next:    key.NewBinding(key.WithKeys("right", "l", " ", "pgdown"), key.WithHelp("→/l", "next page")),
	Prev:    key.NewBinding(key.WithKeys("left", "h", "pgup"), key.WithHelp("←/h", "previous page")),
	NextCh:  key.NewBinding(key.WithKeys("n", "]"), key.WithHelp("n", "next chapter")),
	PrevCh:  key.NewBinding(key.WithKeys("p", "["), key.WithHelp("p", "previous chapter")),
	Bigger:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "larger font")),
	Smaller: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "smaller font")),
	Start:   key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "beginning")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

// indexedMsg is sent when background location generation finishes.
type indexedMsg struct {
	err error
}

type model struct {
	ctx      context.Context
	s        *session.Session
	log      *zap.Logger
	keys     keyMap
	help     help.Model
	doc      progressbar.Model
	chapter  progressbar.Model
	width    int
	height   int
	indexing bool
	err      error
	quitting bool
}

func newModel(ctx context.Context, s *session.Session, log *zap.Logger) model {
	return model{
		ctx:      ctx,
		s:        s,
		log:      log,
		keys:     keys,
		help:     help.New(),
		doc:      progressbar.New(progressbar.WithDefaultGradient(), progressbar.WithoutPercentage()),
		chapter:  progressbar.New(progressbar.WithSolidFill("#7D56F4"), progressbar.WithoutPercentage()),
		width:    80,
		height:   24,
		indexing: true,
	}
}

func (m model) index() tea.Msg {
	return indexedMsg{err: m.s.Index(m.ctx)}
}

func (m model) Init() tea.Cmd {
	return m.index
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.doc.Width = max(msg.Width-20, 10)
		m.chapter.Width = m.doc.Width

	case indexedMsg:
		m.indexing = false
		if msg.err != nil {
			m.log.Warn("Document indexing failed", zap.Error(msg.err))
			m.err = msg.err
			break
		}
		m.s.Refresh()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			m.s.Next()
		case key.Matches(msg, m.keys.Prev):
			m.s.Prev()
		case key.Matches(msg, m.keys.NextCh):
			m.s.NextChapter()
		case key.Matches(msg, m.keys.PrevCh):
			m.s.PrevChapter()
		case key.Matches(msg, m.keys.Bigger):
			m.s.SetFontSize(m.s.FontSize() + fontStep)
		case key.Matches(msg, m.keys.Smaller):
			m.s.SetFontSize(m.s.FontSize() - fontStep)
		case key.Matches(msg, m.keys.Start):
			if sections := m.s.Document().Sections; len(sections) > 0 {
				if err := m.s.GoTo(sections[0].Href); err != nil {
					m.err = err
				}
			}
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}
	return m, nil
}

// percentLabel renders whole-document progress, "--" while it is unknown.
func percentLabel(snap progress.Snapshot) string {
	if snap.Source == progress.SourceNone {
		return "--"
	}
	return fmt.Sprintf("%.1f%%", snap.Percentage*100)
}

func (m model) status() string {
	snap := m.s.Snapshot()
	parts := []string{percentLabel(snap)}
	if label := m.s.ChapterLabel(snap); label != "" {
		parts = append(parts, label)
	}
	if snap.ChapterPercentage != nil {
		parts = append(parts, fmt.Sprintf("chapter %.0f%%", *snap.ChapterPercentage*100))
	}
	parts = append(parts, fmt.Sprintf("font %d", m.s.FontSize()))
	if m.indexing {
		parts = append(parts, "indexing...")
	}
	return strings.Join(parts, " | ")
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.s.Document().Title))
	sb.WriteString(statusStyle.Render(m.status()))
	sb.WriteString("\n")

	page := pageStyle.Width(max(m.width, 20))
	if m.height > 8 {
		page = page.Height(m.height - 8)
	}
	sb.WriteString(page.Render(m.s.Viewer().PageText()))
	sb.WriteString("\n")

	snap := m.s.Snapshot()
	if snap.Source == progress.SourceNone {
		sb.WriteString(statusStyle.Render("book   ") + statusStyle.Render("--") + "\n")
	} else {
		sb.WriteString(statusStyle.Render("book   ") + m.doc.ViewAs(snap.Percentage) + "\n")
	}
	if snap.ChapterPercentage != nil {
		sb.WriteString(statusStyle.Render("chapter") + m.chapter.ViewAs(*snap.ChapterPercentage) + "\n")
	} else {
		sb.WriteString("\n")
	}
	if m.err != nil {
		sb.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	}
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func runViewer(ctx context.Context, s *session.Session, log *zap.Logger) error {
	p := tea.NewProgram(newModel(ctx, s, log), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			// interrupted, position is saved on close
			return nil
		}
		return fmt.Errorf("viewer failed: %w", err)
	}
	return nil
}
