package progress

import (
	"path"
	"sort"
	"strings"
)

// SectionIndex resolves anchors to section indexes.
type SectionIndex struct {
	byHref map[string]int
	byBase map[string]int
}

// NewSectionIndex indexes sections by anchor and by anchor base name. When
// several sections share a base name the first one in spine order wins.
func NewSectionIndex(sections []Section) *SectionIndex {
	idx := &SectionIndex{
		byHref: make(map[string]int, len(sections)),
		byBase: make(map[string]int, len(sections)),
	}
	for _, s := range sections {
		if s.Anchor == "" {
			continue
		}
		href := stripFragment(s.Anchor)
		if _, exists := idx.byHref[href]; !exists {
			idx.byHref[href] = s.Index
		}
		base := path.Base(href)
		if _, exists := idx.byBase[base]; !exists {
			idx.byBase[base] = s.Index
		}
	}
	return idx
}

// Lookup returns the section containing anchor. Fragment ("#id") and
// position ("@offset") suffixes are ignored.
func (idx *SectionIndex) Lookup(anchor string) (int, bool) {
	if idx == nil {
		return 0, false
	}
	href := stripFragment(anchor)
	if href == "" {
		return 0, false
	}
	if i, ok := idx.byHref[href]; ok {
		return i, true
	}
	if i, ok := idx.byBase[path.Base(href)]; ok {
		return i, true
	}
	return 0, false
}

func stripFragment(anchor string) string {
	if i := strings.IndexAny(anchor, "#@"); i != -1 {
		anchor = anchor[:i]
	}
	return anchor
}

// FlattenTOC returns entries in document order (pre-order) with their depth.
func FlattenTOC(toc []TOCEntry) []FlatTOCEntry {
	var out []FlatTOCEntry
	var walk func(entries []TOCEntry, level int)
	walk = func(entries []TOCEntry, level int) {
		for _, e := range entries {
			out = append(out, FlatTOCEntry{
				Anchor: e.Anchor,
				Label:  strings.TrimSpace(e.Label),
				Level:  level,
			})
			walk(e.Children, level+1)
		}
	}
	walk(toc, 0)
	return out
}

// BuildChapters resolves TOC entries to sections. Entries pointing nowhere
// are dropped, only the first entry for any section is kept, and the result
// is sorted by section.
func BuildChapters(toc []TOCEntry, idx *SectionIndex) []ChapterItem {
	seen := make(map[int]struct{})
	var chapters []ChapterItem
	for _, e := range FlattenTOC(toc) {
		section, ok := idx.Lookup(e.Anchor)
		if !ok {
			continue
		}
		if _, dup := seen[section]; dup {
			continue
		}
		seen[section] = struct{}{}
		chapters = append(chapters, ChapterItem{
			Section: section,
			Label:   e.Label,
			Anchor:  e.Anchor,
		})
	}
	sort.SliceStable(chapters, func(i, j int) bool {
		return chapters[i].Section < chapters[j].Section
	})
	return chapters
}

// ResolveChapterIndex returns the position in chapters of the chapter that
// covers section: an exact match, or else the last chapter starting before
// section. It returns -1 when section precedes every chapter.
func ResolveChapterIndex(chapters []ChapterItem, section int) int {
	// first chapter starting after section
	i := sort.Search(len(chapters), func(i int) bool {
		return chapters[i].Section > section
	})
	return i - 1
}
