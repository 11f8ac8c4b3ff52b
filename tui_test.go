//go:build !gui

package main

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap/zaptest"

	"github.com/metcalfc/folio/internal/config"
	"github.com/metcalfc/folio/internal/progress"
	"github.com/metcalfc/folio/internal/session"
)

func openSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.Open(writeBook(t, 4), session.Options{
		Reader: config.ReaderConfig{
			PageRunes:       200,
			FontSize:        16,
			MinFontSize:     8,
			MaxFontSize:     32,
			LocationSpacing: 64,
		},
		Log: zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("unable to open session: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m model, msgs ...tea.Msg) (model, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(model)
	}
	return m, cmd
}

func TestModelIndex(t *testing.T) {
	s := openSession(t)
	m := newModel(context.Background(), s, zaptest.NewLogger(t))

	if got := s.Snapshot().Source; got == progress.SourceBoundary {
		t.Fatalf("boundary source before indexing")
	}
	msg := m.Init()()
	if _, ok := msg.(indexedMsg); !ok {
		t.Fatalf("expected indexedMsg, got %T", msg)
	}
	m, _ = send(m, msg)
	if m.indexing || m.err != nil {
		t.Fatalf("indexing=%v err=%v", m.indexing, m.err)
	}
	if got := s.Snapshot().Source; got != progress.SourceBoundary {
		t.Errorf("source after indexing = %v, want boundary", got)
	}
}

func TestModelPaging(t *testing.T) {
	s := openSession(t)
	m := newModel(context.Background(), s, zaptest.NewLogger(t))
	m, _ = send(m, m.Init()())

	start := s.Snapshot()
	prev := start.Percentage
	for i := 0; i < 5; i++ {
		m, _ = send(m, tea.KeyMsg{Type: tea.KeyRight})
		cur := s.Snapshot().Percentage
		if cur < prev {
			t.Fatalf("page %d: progress went back %f -> %f", i, prev, cur)
		}
		prev = cur
	}
	if s.Snapshot().Anchor == start.Anchor {
		t.Fatal("position did not change")
	}

	m, _ = send(m, runes("g"))
	if got := s.Snapshot(); got.Anchor != start.Anchor {
		t.Errorf("after going to beginning anchor = %q, want %q", got.Anchor, start.Anchor)
	}

	m, _ = send(m, runes("n"))
	if got := s.Snapshot().Chapter; got != 1 {
		t.Errorf("after next chapter chapter = %d, want 1", got)
	}
}

func TestModelFontAndHelp(t *testing.T) {
	s := openSession(t)
	m := newModel(context.Background(), s, zaptest.NewLogger(t))

	m, _ = send(m, runes("+"))
	if got := s.FontSize(); got != 16+fontStep {
		t.Errorf("font size = %d, want %d", got, 16+fontStep)
	}
	m, _ = send(m, runes("-"), runes("-"))
	if got := s.FontSize(); got != 16-fontStep {
		t.Errorf("font size = %d, want %d", got, 16-fontStep)
	}

	m, _ = send(m, runes("?"))
	if !m.help.ShowAll {
		t.Error("full help is not shown")
	}
}

func TestModelQuit(t *testing.T) {
	s := openSession(t)
	m := newModel(context.Background(), s, zaptest.NewLogger(t))

	m, _ = send(m, tea.WindowSizeMsg{Width: 100, Height: 30})
	if view := m.View(); view == "" {
		t.Fatal("empty view")
	}

	m, cmd := send(m, runes("q"))
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit command does not quit")
	}
	if m.View() != "" {
		t.Error("view is not empty after quit")
	}
}

func TestPercentLabel(t *testing.T) {
	tests := []struct {
		snap progress.Snapshot
		want string
	}{
		{progress.Snapshot{Percentage: 0, Source: progress.SourceNone}, "--"},
		{progress.Snapshot{Percentage: 0, Source: progress.SourceNative}, "0.0%"},
		{progress.Snapshot{Percentage: 0.4587, Source: progress.SourceBoundary}, "45.9%"},
	}
	for _, tt := range tests {
		if got := percentLabel(tt.snap); got != tt.want {
			t.Errorf("percentLabel(%+v) = %q, want %q", tt.snap, got, tt.want)
		}
	}
}
