// Package reader is the pagination engine: it loads documents, produces
// location markers, lays text out into pages and reports relocations.
package reader

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/metcalfc/folio/internal/progress"
)

var (
	// ErrNoLocations is returned by percentage lookups before locations are generated.
	ErrNoLocations = errors.New("locations are not generated yet")
	// ErrUnknownAnchor is returned for anchors that do not point into the document.
	ErrUnknownAnchor = errors.New("anchor does not resolve to a section")
)

// Section is one spine item with its extracted text.
type Section struct {
	Href string
	Text string
}

// Document is a loaded book.
type Document struct {
	Path     string
	Title    string
	Format   string
	Sections []Section
	TOC      []progress.TOCEntry

	index     *progress.SectionIndex
	starts    []int // rune position of every section start, plus total
	locations atomic.Pointer[Locations]
}

func newDocument(path, title, format string, sections []Section, toc []progress.TOCEntry) *Document {
	d := &Document{
		Path:     path,
		Title:    title,
		Format:   format,
		Sections: sections,
		TOC:      toc,
	}
	d.index = progress.NewSectionIndex(d.Descriptors())
	d.starts = make([]int, len(sections)+1)
	for i, sec := range sections {
		d.starts[i+1] = d.starts[i] + utf8.RuneCountInString(sec.Text)
	}
	return d
}

// Descriptors returns sections in the form progress engine expects.
func (d *Document) Descriptors() []progress.Section {
	out := make([]progress.Section, len(d.Sections))
	for i, s := range d.Sections {
		out[i] = progress.Section{Index: i, Anchor: s.Href}
	}
	return out
}

// Runes returns total text length.
func (d *Document) Runes() int {
	return d.starts[len(d.starts)-1]
}

// Locations returns generated locations or nil.
func (d *Document) Locations() *Locations {
	return d.locations.Load()
}

// SetLocations publishes generated locations.
func (d *Document) SetLocations(l *Locations) {
	d.locations.Store(l)
}

// Resolve maps an anchor to section index and byte offset within the
// section text. Fragment anchors ("file.xhtml#id") resolve to the section
// start.
func (d *Document) Resolve(anchor string) (section, offset int, err error) {
	section, ok := d.index.Lookup(anchor)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownAnchor, anchor)
	}
	_, offset = ParseAnchor(anchor)
	offset = min(max(offset, 0), len(d.Sections[section].Text))
	return section, offset, nil
}

// AnchorPercentage returns coarse whole-document percentage for anchor,
// the location containing the anchor over the number of locations.
func (d *Document) AnchorPercentage(anchor string) (float64, error) {
	section, offset, err := d.Resolve(anchor)
	if err != nil {
		return 0, err
	}
	return d.positionPercentage(section, offset)
}

func (d *Document) positionPercentage(section, offset int) (float64, error) {
	l := d.locations.Load()
	if l == nil || len(l.Markers) == 0 {
		return 0, ErrNoLocations
	}
	return l.Percentage(section, utf8.RuneCountInString(d.Sections[section].Text[:offset])), nil
}

// textPercentage is the share of document text before the position. It is
// available right after loading, without locations, false only for documents
// without text.
func (d *Document) textPercentage(section, offset int) (float64, bool) {
	total := d.Runes()
	if total == 0 {
		return 0, false
	}
	pos := d.starts[section] + utf8.RuneCountInString(d.Sections[section].Text[:offset])
	return float64(pos) / float64(total), true
}

// FormatAnchor builds position anchor "href@offset".
func FormatAnchor(href string, offset int) string {
	return href + "@" + strconv.Itoa(offset)
}

// ParseAnchor splits anchor into href and byte offset. Anchors without an
// offset, including fragment anchors, have offset 0.
func ParseAnchor(anchor string) (href string, offset int) {
	if i := strings.LastIndexByte(anchor, '@'); i != -1 {
		if n, err := strconv.Atoi(anchor[i+1:]); err == nil {
			return anchor[:i], n
		}
	}
	if i := strings.IndexByte(anchor, '#'); i != -1 {
		return anchor[:i], 0
	}
	return anchor, 0
}
