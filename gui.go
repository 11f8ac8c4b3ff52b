//go:build gui

package main

import (
	"context"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/progress"
	"github.com/metcalfc/folio/internal/session"
)

const fontStep = 2

type window struct {
	s   *session.Session
	log *zap.Logger
	w   fyne.Window

	page     *widget.Label
	status   *widget.Label
	doc      *widget.ProgressBar
	chapter  *widget.ProgressBar
	chapters *widget.List
	indexing bool
}

func (g *window) update(snap progress.Snapshot) {
	g.page.SetText(g.s.Viewer().PageText())
	if snap.Source == progress.SourceNone {
		g.doc.Hide()
	} else {
		g.doc.SetValue(snap.Percentage)
		g.doc.Show()
	}
	if snap.ChapterPercentage != nil {
		g.chapter.SetValue(*snap.ChapterPercentage)
		g.chapter.Show()
	} else {
		g.chapter.Hide()
	}

	text := "--"
	if snap.Source != progress.SourceNone {
		text = fmt.Sprintf("%.1f%%", snap.Percentage*100)
	}
	if label := g.s.ChapterLabel(snap); label != "" {
		text += " | " + label
	}
	text += fmt.Sprintf(" | font %d", g.s.FontSize())
	if g.indexing {
		text += " | indexing..."
	}
	g.status.SetText(text)

	if snap.Chapter >= 0 {
		g.chapters.Select(snap.Chapter)
	} else {
		g.chapters.UnselectAll()
	}
}

func (g *window) typedKey(ev *fyne.KeyEvent) {
	switch ev.Name {
	case fyne.KeyRight, fyne.KeySpace, fyne.KeyPageDown:
		g.s.Next()
	case fyne.KeyLeft, fyne.KeyPageUp:
		g.s.Prev()
	case fyne.KeyEscape:
		g.w.Close()
	}
}

func (g *window) typedRune(r rune) {
	switch r {
	case 'n', ']':
		g.s.NextChapter()
	case 'p', '[':
		g.s.PrevChapter()
	case '+', '=':
		g.s.SetFontSize(g.s.FontSize() + fontStep)
	case '-':
		g.s.SetFontSize(g.s.FontSize() - fontStep)
	case 'q':
		g.w.Close()
	}
}

func runViewer(ctx context.Context, s *session.Session, log *zap.Logger) error {
	a := app.NewWithID("com.github.metcalfc.folio")
	g := &window{
		s:        s,
		log:      log,
		w:        a.NewWindow(s.Document().Title),
		page:     widget.NewLabel(""),
		status:   widget.NewLabel(""),
		doc:      widget.NewProgressBar(),
		chapter:  widget.NewProgressBar(),
		indexing: true,
	}
	g.page.Wrapping = fyne.TextWrapWord

	chapters := s.Tracker().Chapters()
	g.chapters = widget.NewList(
		func() int { return len(chapters) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			o.(*widget.Label).SetText(chapters[id].Label)
		},
	)
	g.chapters.OnSelected = func(id widget.ListItemID) {
		if id == s.Snapshot().Chapter {
			return
		}
		if err := s.GoTo(chapters[id].Anchor); err != nil {
			log.Warn("Unable to open chapter", zap.String("label", chapters[id].Label), zap.Error(err))
		}
	}

	content := container.NewHSplit(
		container.NewVScroll(g.chapters),
		container.NewBorder(nil, container.NewVBox(g.status, g.doc, g.chapter), nil, nil,
			container.NewVScroll(g.page)),
	)
	content.SetOffset(0.25)
	g.w.SetContent(content)
	g.w.Resize(fyne.NewSize(900, 700))
	g.w.Canvas().SetOnTypedKey(g.typedKey)
	g.w.Canvas().SetOnTypedRune(g.typedRune)

	s.OnChange(func(snap progress.Snapshot) {
		fyne.Do(func() { g.update(snap) })
	})
	g.update(s.Snapshot())

	go func() {
		err := s.Index(ctx)
		fyne.Do(func() {
			g.indexing = false
			if err != nil {
				log.Warn("Document indexing failed", zap.Error(err))
			}
			s.Refresh()
		})
	}()
	go func() {
		<-ctx.Done()
		fyne.Do(a.Quit)
	}()

	g.w.ShowAndRun()
	return nil
}
