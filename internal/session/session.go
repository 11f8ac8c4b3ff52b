// Package session ties an open document, its viewer and the progress
// tracker together and keeps the reading position in the state store.
package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/config"
	"github.com/metcalfc/folio/internal/progress"
	"github.com/metcalfc/folio/internal/reader"
	"github.com/metcalfc/folio/internal/state"
)

// Options control how a document is opened.
type Options struct {
	Reader config.ReaderConfig
	// FontSize overrides Reader.FontSize when not 0.
	FontSize int
	// Store may be nil, positions are not kept then.
	Store state.Store
	// Fresh ignores saved position.
	Fresh bool
	Log   *zap.Logger
}

// Session is one open document. Navigation methods must be called from a
// single goroutine, Index may run concurrently with them.
type Session struct {
	doc     *reader.Document
	viewer  *reader.Viewer
	tracker *progress.Tracker
	sub     *progress.Subscription

	opts Options
	log  *zap.Logger
	hash string
	font int

	mu       sync.Mutex
	last     progress.Snapshot
	seen     bool
	onChange func(progress.Snapshot)
}

// Open loads document at path, restores saved position (unless asked not
// to) and reports it through the relocation pipeline. Locations are not
// generated yet, call Index for precise progress.
func Open(path string, opts Options) (*Session, error) {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	doc, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}

	s := &Session{
		doc:  doc,
		opts: opts,
		font: opts.Reader.FontSize,
	}
	if opts.FontSize != 0 {
		s.font = min(max(opts.FontSize, opts.Reader.MinFontSize), opts.Reader.MaxFontSize)
	}

	id := uuid.NewString()
	s.log = opts.Log.Named("session").With(zap.String("document", id))
	s.viewer = reader.NewViewer(doc, opts.Reader.PageRunesFor(s.font))
	s.tracker = progress.NewTracker(id, doc.Descriptors(), doc.TOC,
		progress.SafeAnchorPercentage(doc.AnchorPercentage), opts.Log)
	s.sub = s.tracker.Subscribe(s.viewer, s.update)

	s.log.Info("Document opened",
		zap.String("file", path),
		zap.String("format", doc.Format),
		zap.Int("sections", len(doc.Sections)),
		zap.Int("chapters", len(s.tracker.Chapters())))

	if opts.Store != nil {
		if s.hash, err = state.ComputeHash(path); err != nil {
			return nil, multierr.Append(fmt.Errorf("unable to identify '%s': %w", path, err), s.tracker.Close())
		}
	}
	s.restore()
	return s, nil
}

func (s *Session) restore() {
	if s.opts.Store == nil || s.opts.Fresh {
		s.viewer.Display()
		return
	}
	pos, ok, err := s.opts.Store.Get(s.hash)
	switch {
	case err != nil:
		s.log.Warn("Unable to read saved position", zap.Error(err))
	case ok:
		if err := s.viewer.GoTo(pos.Anchor); err == nil {
			s.log.Debug("Position restored", zap.String("anchor", pos.Anchor), zap.Float64("percentage", pos.Percentage))
			return
		}
		s.log.Warn("Saved position does not match document, starting from the beginning", zap.String("anchor", pos.Anchor))
	}
	s.viewer.Display()
}

func (s *Session) update(snap progress.Snapshot) {
	s.mu.Lock()
	s.last, s.seen = snap, true
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// OnChange sets function called with every new snapshot.
func (s *Session) OnChange(fn func(progress.Snapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) Document() *reader.Document {
	return s.doc
}

func (s *Session) Viewer() *reader.Viewer {
	return s.viewer
}

func (s *Session) Tracker() *progress.Tracker {
	return s.tracker
}

// FontSize returns current font size.
func (s *Session) FontSize() int {
	return s.font
}

// Snapshot returns the most recent progress snapshot.
func (s *Session) Snapshot() progress.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Index generates document locations and publishes boundary map built
// from them. It is slow for big books and meant to run in background, the
// result is used starting with the next relocation (see Refresh).
func (s *Session) Index(ctx context.Context) error {
	start := time.Now()
	b := s.tracker.Begin()
	l, err := reader.GenerateLocations(ctx, s.doc, s.opts.Reader.LocationSpacing)
	if err != nil {
		return fmt.Errorf("unable to generate locations: %w", err)
	}
	s.doc.SetLocations(l)
	if !b.Commit(l.Markers) {
		s.log.Debug("Locations generated for stale document")
		return nil
	}
	s.log.Debug("Locations generated",
		zap.Int("markers", len(l.Markers)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Refresh reports the current position again.
func (s *Session) Refresh() {
	s.viewer.Display()
}

// Next turns the page forward.
func (s *Session) Next() bool {
	s.tracker.Navigate(progress.DirectionForward)
	return s.viewer.Next()
}

// Prev turns the page back.
func (s *Session) Prev() bool {
	s.tracker.Navigate(progress.DirectionBackward)
	return s.viewer.Prev()
}

// GoTo displays page containing anchor.
func (s *Session) GoTo(anchor string) error {
	return s.viewer.GoTo(anchor)
}

// NextChapter jumps to the beginning of the following chapter.
func (s *Session) NextChapter() bool {
	chapters := s.tracker.Chapters()
	i := s.Snapshot().Chapter + 1
	if i >= len(chapters) {
		return false
	}
	return s.jump(chapters[i], progress.DirectionForward)
}

// PrevChapter jumps to the beginning of the current chapter, or to the
// previous one when already there.
func (s *Session) PrevChapter() bool {
	chapters := s.tracker.Chapters()
	i := s.Snapshot().Chapter
	if i < 0 || i >= len(chapters) {
		return false
	}
	if section, page, _ := s.viewer.Position(); section == chapters[i].Section && page == 0 {
		i--
	}
	if i < 0 {
		return false
	}
	return s.jump(chapters[i], progress.DirectionBackward)
}

func (s *Session) jump(ch progress.ChapterItem, d progress.Direction) bool {
	s.tracker.Navigate(d)
	if err := s.viewer.GoTo(ch.Anchor); err != nil {
		// chapter list is built from resolvable anchors only
		s.log.Warn("Unable to jump to chapter", zap.String("label", ch.Label), zap.Error(err))
		return false
	}
	return true
}

// SetFontSize changes font size, pages are laid out again keeping the
// reading position. Progress reported after the change is the one of the new
// layout. It returns false when size did not change.
func (s *Session) SetFontSize(size int) bool {
	size = min(max(size, s.opts.Reader.MinFontSize), s.opts.Reader.MaxFontSize)
	if size == s.font {
		return false
	}
	s.font = size
	done := s.tracker.Reflow()
	s.viewer.Relayout(s.opts.Reader.PageRunesFor(size))
	done()
	// report settled layout, next page turn continues from it
	s.viewer.Display()
	return true
}

// ChapterLabel returns label of the chapter in snap, empty if unknown.
func (s *Session) ChapterLabel(snap progress.Snapshot) string {
	chapters := s.tracker.Chapters()
	if snap.Chapter < 0 || snap.Chapter >= len(chapters) {
		return ""
	}
	return chapters[snap.Chapter].Label
}

// Save stores current position.
func (s *Session) Save() error {
	if s.opts.Store == nil {
		return nil
	}
	s.mu.Lock()
	snap, seen := s.last, s.seen
	s.mu.Unlock()
	if !seen || snap.Anchor == "" {
		return nil
	}
	pos := state.Position{
		File:       filepath.Base(s.doc.Path),
		Anchor:     snap.Anchor,
		Percentage: snap.Percentage,
		Chapter:    s.ChapterLabel(snap),
		UpdatedAt:  time.Now(),
	}
	if snap.Source == progress.SourceNone {
		// progress is unknown, not zero: keep what was stored
		prev, ok, err := s.opts.Store.Get(s.hash)
		if err != nil {
			return fmt.Errorf("unable to save reading position: %w", err)
		}
		if !ok {
			return nil
		}
		pos.Percentage, pos.Chapter = prev.Percentage, prev.Chapter
	}
	if err := s.opts.Store.Set(s.hash, pos); err != nil {
		return fmt.Errorf("unable to save reading position: %w", err)
	}
	return nil
}

// Close saves position and releases the tracker. Store is not closed, it
// belongs to the caller.
func (s *Session) Close() (err error) {
	err = multierr.Append(err, s.Save())
	err = multierr.Append(err, s.sub.Close())
	err = multierr.Append(err, s.tracker.Close())
	s.log.Debug("Document closed")
	return err
}
