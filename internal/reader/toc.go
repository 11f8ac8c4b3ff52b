package reader

import "github.com/metcalfc/folio/internal/progress"

// heading is a flat TOC entry with explicit level, as found in Markdown.
type heading struct {
	level  int
	label  string
	anchor string
}

// nestHeadings turns flat leveled headings into a TOC tree, deeper headings
// become children of the closest shallower one before them.
func nestHeadings(hs []heading) []progress.TOCEntry {
	var out []progress.TOCEntry
	for i := 0; i < len(hs); {
		j := i + 1
		for j < len(hs) && hs[j].level > hs[i].level {
			j++
		}
		out = append(out, progress.TOCEntry{
			Label:    hs[i].label,
			Anchor:   hs[i].anchor,
			Children: nestHeadings(hs[i+1 : j]),
		})
		i = j
	}
	return out
}
