package reader

import (
	"context"

	"github.com/metcalfc/folio/internal/progress"
)

// DefaultLocationSpacing is the number of runes between two locations.
const DefaultLocationSpacing = 1024

// Locations are markers spaced evenly over document text.
type Locations struct {
	Spacing int
	Markers []progress.Marker

	// rune position of every section start, plus total at the end
	starts []int
}

// GenerateLocations places a marker every spacing runes. Sections shorter
// than spacing may get no marker at all. It is slow for big books and can
// be cancelled through ctx.
func GenerateLocations(ctx context.Context, d *Document, spacing int) (*Locations, error) {
	if spacing <= 0 {
		spacing = DefaultLocationSpacing
	}
	l := &Locations{
		Spacing: spacing,
		starts:  make([]int, 0, len(d.Sections)+1),
	}

	pos := 0
	for i, s := range d.Sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l.starts = append(l.starts, pos)
		for off := range s.Text {
			if pos%spacing == 0 {
				l.Markers = append(l.Markers, progress.Marker{
					ID:      FormatAnchor(s.Href, off),
					Section: i,
				})
			}
			pos++
		}
	}
	l.starts = append(l.starts, pos)
	return l, nil
}

// Percentage converts rune offset within section into the fraction of
// locations preceding it. Resolution is limited by marker spacing.
func (l *Locations) Percentage(section, runeOffset int) float64 {
	if len(l.Markers) == 0 || section < 0 || section >= len(l.starts)-1 {
		return 0
	}
	pos := l.starts[section] + runeOffset
	loc := min(pos/l.Spacing, len(l.Markers)-1)
	return float64(loc) / float64(len(l.Markers))
}
