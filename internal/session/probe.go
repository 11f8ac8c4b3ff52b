package session

import "github.com/metcalfc/folio/internal/progress"

// Regression is a page turn which reported lower whole-document progress
// than the turn before it.
type Regression struct {
	Step     int
	Anchor   string
	From, To float64
}

// Simulate turns up to n pages forward from the current position and
// returns the number of turns made together with every regression seen.
func (s *Session) Simulate(n int) (int, []Regression) {
	var (
		regressions []Regression
		prev        = s.Snapshot()
		step        int
	)
	for step = 0; step < n; step++ {
		if !s.Next() {
			break
		}
		cur := s.Snapshot()
		if cur.Percentage < prev.Percentage {
			regressions = append(regressions, Regression{
				Step:   step + 1,
				Anchor: cur.Anchor,
				From:   prev.Percentage,
				To:     cur.Percentage,
			})
		}
		prev = cur
	}
	return step, regressions
}

// Ranges describes the boundary map section by section in spine order,
// sections without range are skipped.
func (s *Session) Ranges() []SectionRange {
	m := s.tracker.Boundaries()
	var out []SectionRange
	for i, sec := range s.doc.Sections {
		r, ok := m.Range(i)
		if !ok {
			continue
		}
		out = append(out, SectionRange{Section: i, Href: sec.Href, Range: r})
	}
	return out
}

// SectionRange is a section with its share of the document.
type SectionRange struct {
	Section int
	Href    string
	progress.Range
}
