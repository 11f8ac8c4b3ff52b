package progress

import (
	"fmt"
	"slices"
	"sort"
)

// Range is the share of the whole document covered by one section.
type Range struct {
	Start float64
	End   float64
}

// Width returns End - Start.
func (r Range) Width() float64 {
	return r.End - r.Start
}

// BoundaryMap maps section indexes to the percentage ranges they cover.
// A built map is never modified, document reload produces a new one.
type BoundaryMap struct {
	ranges  map[int]Range
	order   []int
	markers int
}

// Range returns the range for section, if the section is mapped.
func (m *BoundaryMap) Range(section int) (Range, bool) {
	if m == nil {
		return Range{}, false
	}
	r, ok := m.ranges[section]
	return r, ok
}

// Len returns number of mapped sections.
func (m *BoundaryMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.ranges)
}

// Empty reports whether the map has no entries, which is the normal state
// before location indexing completes.
func (m *BoundaryMap) Empty() bool {
	return m.Len() == 0
}

// Markers returns the number of markers the map was built from.
func (m *BoundaryMap) Markers() int {
	if m == nil {
		return 0
	}
	return m.markers
}

// Order returns section indexes in the order their ranges follow each other.
func (m *BoundaryMap) Order() []int {
	if m == nil {
		return nil
	}
	return slices.Clone(m.order)
}

// Validate checks that ranges exactly partition [0,1].
func (m *BoundaryMap) Validate() error {
	if m.Empty() {
		return nil
	}
	prev := 0.0
	for i, section := range m.order {
		r := m.ranges[section]
		if r.Start != prev {
			return fmt.Errorf("section %d starts at %v, expected %v", section, r.Start, prev)
		}
		if r.Start >= r.End {
			return fmt.Errorf("section %d has empty range [%v, %v)", section, r.Start, r.End)
		}
		if i == len(m.order)-1 && r.End != 1 {
			return fmt.Errorf("last section %d ends at %v, expected 1", section, r.End)
		}
		prev = r.End
	}
	return nil
}

// BuildBoundaries computes per-section ranges from ordered location markers.
//
// Section start is the index of its first marker divided by the number of
// markers, end is the start of the section that follows. Sections without
// markers (cover pages, short interludes) share the space their nearest
// mapped neighbour would otherwise cover: a run of k such sections takes k
// equal slices, each at most one marker spacing wide, from the tail of the
// preceding mapped section (or from the head of the first mapped section
// when the run opens the book). Markers attributed to sections not present
// in sections are ignored.
func BuildBoundaries(sections []Section, markers []Marker) *BoundaryMap {
	m := &BoundaryMap{ranges: make(map[int]Range)}
	if len(sections) == 0 || len(markers) == 0 {
		return m
	}

	spine := make([]int, 0, len(sections))
	known := make(map[int]struct{}, len(sections))
	for _, s := range sections {
		if _, ok := known[s.Index]; ok {
			continue
		}
		known[s.Index] = struct{}{}
		spine = append(spine, s.Index)
	}
	sort.Ints(spine)

	first := make(map[int]int)
	total := 0
	for _, mk := range markers {
		if _, ok := known[mk.Section]; !ok {
			continue
		}
		if _, ok := first[mk.Section]; !ok {
			first[mk.Section] = total
		}
		total++
	}
	if total == 0 {
		return m
	}
	m.markers = total

	mapped := make([]int, 0, len(first))
	for s := range first {
		mapped = append(mapped, s)
	}
	sort.Slice(mapped, func(i, j int) bool {
		return first[mapped[i]] < first[mapped[j]]
	})

	for i, s := range mapped {
		r := Range{Start: float64(first[s]) / float64(total), End: 1}
		if i+1 < len(mapped) {
			r.End = float64(first[mapped[i+1]]) / float64(total)
		}
		m.ranges[s] = r
	}

	// Collect runs of unmapped sections: the one preceding every mapped
	// section, and the ones trailing each mapped section in spine order.
	var leading []int
	trailing := make(map[int][]int)
	owner := -1
	for _, s := range spine {
		if _, ok := first[s]; ok {
			owner = s
			continue
		}
		if owner < 0 {
			leading = append(leading, s)
		} else {
			trailing[owner] = append(trailing[owner], s)
		}
	}

	spacing := 1 / float64(total)
	if len(leading) > 0 {
		donor := mapped[0]
		r := m.ranges[donor]
		w := min(spacing, r.Width()/float64(len(leading)+1))
		points := make([]float64, len(leading)+1)
		for j := range points {
			points[j] = r.Start + float64(j)*w
		}
		points[0] = r.Start
		for j, s := range leading {
			m.ranges[s] = Range{Start: points[j], End: points[j+1]}
		}
		m.ranges[donor] = Range{Start: points[len(leading)], End: r.End}
		m.order = append(m.order, leading...)
	}

	for _, donor := range mapped {
		m.order = append(m.order, donor)
		run := trailing[donor]
		if len(run) == 0 {
			continue
		}
		r := m.ranges[donor]
		k := len(run)
		w := min(spacing, r.Width()/float64(k+1))
		points := make([]float64, k+1)
		for j := range points {
			points[j] = r.End - float64(k-j)*w
		}
		points[k] = r.End
		m.ranges[donor] = Range{Start: r.Start, End: points[0]}
		for j, s := range run {
			m.ranges[s] = Range{Start: points[j], End: points[j+1]}
		}
		m.order = append(m.order, run...)
	}

	return m
}
