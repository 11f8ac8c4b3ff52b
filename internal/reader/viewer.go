package reader

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/metcalfc/folio/internal/progress"
)

// MinPageRunes is the smallest page the viewer will lay out.
const MinPageRunes = 64

// Viewer lays a document out into pages and keeps the reading position.
//
// Position is anchored to a byte offset in the current section, so a
// relayout (font size change, resize) keeps the same anchor while page
// number and page count change.
type Viewer struct {
	doc       *Document
	pageRunes int
	pages     [][]int // page start offsets per section

	section int
	page    int
	anchor  int

	handlers map[int]func(progress.Signal)
	nextID   int
}

// NewViewer lays doc out with pageRunes runes per page and positions at the
// very beginning.
func NewViewer(doc *Document, pageRunes int) *Viewer {
	v := &Viewer{
		doc:      doc,
		handlers: make(map[int]func(progress.Signal)),
	}
	v.layout(pageRunes)
	return v
}

// Document returns viewed document.
func (v *Viewer) Document() *Document {
	return v.doc
}

// OnRelocated registers fn for relocation events, returned func removes it.
func (v *Viewer) OnRelocated(fn func(progress.Signal)) func() {
	id := v.nextID
	v.nextID++
	v.handlers[id] = fn
	return func() { delete(v.handlers, id) }
}

// Handlers returns number of registered relocation handlers.
func (v *Viewer) Handlers() int {
	return len(v.handlers)
}

func (v *Viewer) layout(pageRunes int) {
	v.pageRunes = max(pageRunes, MinPageRunes)
	v.pages = make([][]int, len(v.doc.Sections))
	for i, s := range v.doc.Sections {
		v.pages[i] = paginate(s.Text, v.pageRunes)
	}
}

// paginate returns byte offsets of page starts. Pages hold at most limit
// runes and break after whitespace when possible.
func paginate(text string, limit int) []int {
	starts := []int{0}
	n := 0
	brk := -1
	for i, r := range text {
		if n >= limit {
			cut := i
			if brk > starts[len(starts)-1] {
				cut = brk
			}
			starts = append(starts, cut)
			n = utf8.RuneCountInString(text[cut:i])
			brk = -1
		}
		n++
		if unicode.IsSpace(r) {
			brk = i + utf8.RuneLen(r)
		}
	}
	return starts
}

func (v *Viewer) pageOf(section, offset int) int {
	starts := v.pages[section]
	i := sort.Search(len(starts), func(i int) bool { return starts[i] > offset })
	return max(i-1, 0)
}

// Location returns relocation signal for the current position.
func (v *Viewer) Location() progress.Signal {
	sig := progress.Signal{Section: v.section}
	if len(v.doc.Sections) == 0 {
		return sig
	}
	sig.Pages = &progress.PageInfo{Page: v.page + 1, Total: len(v.pages[v.section])}
	sig.Anchor = FormatAnchor(v.doc.Sections[v.section].Href, v.anchor)
	if p, ok := v.doc.textPercentage(v.section, v.anchor); ok {
		sig.NativePercentage = &p
	}
	return sig
}

func (v *Viewer) emit(sig progress.Signal) {
	ids := make([]int, 0, len(v.handlers))
	for id := range v.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := v.handlers[id]; ok {
			fn(sig)
		}
	}
}

// Position returns section, 0-based page and number of pages in section.
func (v *Viewer) Position() (section, page, pages int) {
	if len(v.pages) == 0 {
		return 0, 0, 0
	}
	return v.section, v.page, len(v.pages[v.section])
}

// PageText returns text of the displayed page.
func (v *Viewer) PageText() string {
	if len(v.doc.Sections) == 0 {
		return ""
	}
	text := v.doc.Sections[v.section].Text
	starts := v.pages[v.section]
	end := len(text)
	if v.page+1 < len(starts) {
		end = starts[v.page+1]
	}
	return strings.TrimSpace(text[starts[v.page]:end])
}

func (v *Viewer) moveTo(section, page int) {
	v.section, v.page = section, page
	v.anchor = v.pages[section][page]
	v.emit(v.Location())
}

// Next turns to the next page, false at the end of the document.
func (v *Viewer) Next() bool {
	switch {
	case len(v.pages) == 0:
		return false
	case v.page+1 < len(v.pages[v.section]):
		v.moveTo(v.section, v.page+1)
	case v.section+1 < len(v.pages):
		v.moveTo(v.section+1, 0)
	default:
		return false
	}
	return true
}

// Prev turns to the previous page, false at the beginning.
func (v *Viewer) Prev() bool {
	switch {
	case len(v.pages) == 0:
		return false
	case v.page > 0:
		v.moveTo(v.section, v.page-1)
	case v.section > 0:
		v.moveTo(v.section-1, len(v.pages[v.section-1])-1)
	default:
		return false
	}
	return true
}

// GoTo displays the page containing anchor.
func (v *Viewer) GoTo(anchor string) error {
	section, offset, err := v.doc.Resolve(anchor)
	if err != nil {
		return err
	}
	v.section = section
	v.page = v.pageOf(section, offset)
	v.anchor = offset
	v.emit(v.Location())
	return nil
}

// Display re-reports current position without moving.
func (v *Viewer) Display() {
	if len(v.pages) == 0 {
		return
	}
	v.emit(v.Location())
}

// Relayout changes page size keeping the anchor. Like real rendering
// engines it reports relocation twice: once while the layout settles, with
// the stale page number against the new page count, and once settled.
func (v *Viewer) Relayout(pageRunes int) {
	if max(pageRunes, MinPageRunes) == v.pageRunes || len(v.pages) == 0 {
		return
	}
	stale := v.page
	v.layout(pageRunes)

	v.page = min(stale, len(v.pages[v.section])-1)
	v.emit(v.Location())

	v.page = v.pageOf(v.section, v.anchor)
	v.emit(v.Location())
}

// PageRunes returns current page size.
func (v *Viewer) PageRunes() int {
	return v.pageRunes
}
