package progress

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// RelocationSource is anything that emits relocation events, normally the
// paginated viewer. The returned function removes the handler.
type RelocationSource interface {
	OnRelocated(fn func(Signal)) (release func())
}

// index is the immutable per-load state swapped as a whole.
type index struct {
	generation uint64
	bounds     *BoundaryMap
	chapters   []ChapterItem
	sections   []Section
}

// Tracker owns progress state of one open document. Relocated, Navigate and
// Subscribe are expected to be called from a single (UI) goroutine, boundary
// builds may be committed from any goroutine.
type Tracker struct {
	id        string
	log       *zap.Logger
	anchorPct AnchorPercentageFunc

	current    atomic.Pointer[index]
	generation atomic.Uint64
	closed     atomic.Bool
	rebase     atomic.Bool

	guard Guard

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewTracker creates tracker for the document identified by id. Chapters
// are resolved right away, the boundary map stays empty until a Build is
// committed.
func NewTracker(id string, sections []Section, toc []TOCEntry, anchorPct AnchorPercentageFunc, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Tracker{
		id:        id,
		log:       log.Named("progress").With(zap.String("document", id)),
		anchorPct: anchorPct,
		subs:      make(map[*Subscription]struct{}),
	}
	t.install(sections, toc)
	return t
}

// ID returns document instance id.
func (t *Tracker) ID() string {
	return t.id
}

func (t *Tracker) install(sections []Section, toc []TOCEntry) {
	gen := t.generation.Add(1)
	chapters := BuildChapters(toc, NewSectionIndex(sections))
	t.current.Store(&index{
		generation: gen,
		bounds:     &BoundaryMap{},
		chapters:   chapters,
		sections:   sections,
	})
	t.log.Debug("Document indexed",
		zap.Uint64("generation", gen),
		zap.Int("sections", len(sections)),
		zap.Int("toc", len(FlattenTOC(toc))),
		zap.Int("chapters", len(chapters)))
}

// Reload replaces document structure. Any build started before Reload is
// discarded when committed.
func (t *Tracker) Reload(sections []Section, toc []TOCEntry) {
	if t.closed.Load() {
		return
	}
	t.install(sections, toc)
	t.guard.Reset()
}

// Ready reports whether boundary map is available.
func (t *Tracker) Ready() bool {
	return !t.current.Load().bounds.Empty()
}

// Boundaries returns current boundary map, possibly empty.
func (t *Tracker) Boundaries() *BoundaryMap {
	return t.current.Load().bounds
}

// Chapters returns resolved chapters, callers must not modify the slice.
func (t *Tracker) Chapters() []ChapterItem {
	return t.current.Load().chapters
}

// Build is a pending boundary map computation tied to the document
// generation it was started for.
type Build struct {
	t          *Tracker
	generation uint64
	sections   []Section
}

// Begin starts a boundary build for the current document generation.
func (t *Tracker) Begin() *Build {
	cur := t.current.Load()
	return &Build{t: t, generation: cur.generation, sections: cur.sections}
}

// Commit computes the boundary map from markers and publishes it. Nothing is
// published and false is returned if the document was reloaded or closed
// since Begin.
func (b *Build) Commit(markers []Marker) bool {
	t := b.t
	if t.closed.Load() || t.generation.Load() != b.generation {
		t.log.Debug("Discarding stale boundary build", zap.Uint64("generation", b.generation))
		return false
	}

	bounds := BuildBoundaries(b.sections, markers)
	if err := bounds.Validate(); err != nil {
		// should never happen
		t.log.Warn("Boundary map rejected", zap.Error(err))
		return false
	}

	for {
		cur := t.current.Load()
		if cur.generation != b.generation || t.closed.Load() {
			t.log.Debug("Discarding stale boundary build", zap.Uint64("generation", b.generation))
			return false
		}
		next := &index{
			generation: cur.generation,
			bounds:     bounds,
			chapters:   cur.chapters,
			sections:   cur.sections,
		}
		if t.current.CompareAndSwap(cur, next) {
			break
		}
	}
	t.rebase.Store(true)
	t.log.Debug("Boundary map committed",
		zap.Uint64("generation", b.generation),
		zap.Int("markers", bounds.Markers()),
		zap.Int("sections", bounds.Len()))
	return true
}

// Navigate records the direction of the navigation action being performed.
func (t *Tracker) Navigate(d Direction) {
	t.guard.Intend(d)
}

// Reflow marks the start of a relayout at the current position. Until done
// is called, relocations for the current anchor report the last value. The
// first relocation after done is taken as is, it becomes the new baseline
// for the same anchor. Navigation direction is kept.
func (t *Tracker) Reflow() (done func()) {
	t.guard.Hold()
	return t.guard.Rebase
}

// Relocated computes a snapshot for a relocation event.
func (t *Tracker) Relocated(sig Signal) Snapshot {
	cur := t.current.Load()
	res := Resolve(cur.bounds, sig, t.anchorPct)
	if t.rebase.Swap(false) {
		t.guard.Rebase()
	}

	pct, accepted := t.guard.Observe(sig.Anchor, res.Percentage)
	if !accepted {
		t.log.Debug("Suppressed percentage change against navigation direction",
			zap.String("anchor", sig.Anchor),
			zap.Float64("observed", res.Percentage),
			zap.Float64("reported", pct),
			zap.Stringer("direction", t.guard.Direction()))
	}

	snap := Snapshot{
		Percentage: pct,
		Chapter:    ResolveChapterIndex(cur.chapters, sig.Section),
		Anchor:     sig.Anchor,
		Source:     res.Source,
	}
	if start, end, ok := ChapterRange(cur.chapters, snap.Chapter, cur.bounds, t.anchorPct); ok {
		snap.ChapterPercentage = ChapterProgress(pct, start, end)
	}
	return snap
}

// Subscription connects relocation source to a tracker. It must be closed
// when the document goes away, Tracker.Close does that for all of them.
type Subscription struct {
	t       *Tracker
	release func()
	once    sync.Once
}

// Subscribe feeds every relocation event from src through the tracker and
// hands resulting snapshot to fn.
func (t *Tracker) Subscribe(src RelocationSource, fn func(Snapshot)) *Subscription {
	s := &Subscription{t: t}
	s.release = src.OnRelocated(func(sig Signal) {
		if t.closed.Load() {
			return
		}
		fn(t.Relocated(sig))
	})

	t.mu.Lock()
	t.subs[s] = struct{}{}
	t.mu.Unlock()
	return s
}

// Close releases the handler, it is safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
		s.t.mu.Lock()
		delete(s.t.subs, s)
		s.t.mu.Unlock()
	})
	return nil
}

// Close releases all subscriptions and invalidates pending builds.
func (t *Tracker) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.generation.Add(1)

	t.mu.Lock()
	subs := make([]*Subscription, 0, len(t.subs))
	for s := range t.subs {
		subs = append(subs, s)
	}
	t.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
	t.log.Debug("Tracker closed", zap.Int("subscriptions", len(subs)))
	return nil
}
