package progress

import (
	"fmt"
	"math/rand/v2"
	"testing"
)

func sectionsN(n int) []Section {
	out := make([]Section, n)
	for i := range out {
		out[i] = Section{Index: i, Anchor: fmt.Sprintf("ch%02d.xhtml", i)}
	}
	return out
}

// markersFor emits counts[i] markers for section i, in order.
func markersFor(counts ...int) []Marker {
	var out []Marker
	for s, n := range counts {
		for j := 0; j < n; j++ {
			out = append(out, Marker{ID: fmt.Sprintf("%d/%d", s, j), Section: s})
		}
	}
	return out
}

func TestBuildBoundariesEvenSections(t *testing.T) {
	m := BuildBoundaries(sectionsN(4), markersFor(10, 10, 10, 10))
	want := []Range{{0, 0.25}, {0.25, 0.5}, {0.5, 0.75}, {0.75, 1}}
	for i, w := range want {
		r, ok := m.Range(i)
		if !ok {
			t.Fatalf("section %d not mapped", i)
		}
		if r != w {
			t.Errorf("section %d = %+v, want %+v", i, r, w)
		}
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if m.Markers() != 40 {
		t.Errorf("Markers() = %d, want 40", m.Markers())
	}
}

func TestBuildBoundariesEmpty(t *testing.T) {
	tests := []struct {
		name     string
		sections []Section
		markers  []Marker
	}{
		{"no markers", sectionsN(3), nil},
		{"no sections", nil, markersFor(5)},
		{"markers for unknown sections", sectionsN(2), []Marker{{ID: "a", Section: 7}, {ID: "b", Section: 9}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := BuildBoundaries(tt.sections, tt.markers)
			if !m.Empty() {
				t.Fatalf("expected empty map, got %d entries", m.Len())
			}
			if err := m.Validate(); err != nil {
				t.Fatalf("Validate() = %v", err)
			}
		})
	}
}

func TestBuildBoundariesGaps(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
	}{
		{"leading cover", []int{0, 10, 10}},
		{"two leading", []int{0, 0, 20}},
		{"interior gap", []int{10, 0, 10}},
		{"interior run", []int{10, 0, 0, 0, 10}},
		{"trailing gap", []int{10, 10, 0}},
		{"everything", []int{0, 5, 0, 0, 7, 1, 0}},
		{"single marker", []int{0, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := BuildBoundaries(sectionsN(len(tt.counts)), markersFor(tt.counts...))
			if m.Len() != len(tt.counts) {
				t.Fatalf("Len() = %d, want %d", m.Len(), len(tt.counts))
			}
			if err := m.Validate(); err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			// spine order is kept when markers follow the spine
			for i, s := range m.Order() {
				if s != i {
					t.Fatalf("Order() = %v", m.Order())
				}
			}
		})
	}
}

func TestBuildBoundariesGapWidth(t *testing.T) {
	// 20 markers, one marker-less section between two mapped ones
	m := BuildBoundaries(sectionsN(3), markersFor(10, 0, 10))
	gap, _ := m.Range(1)
	if w := gap.Width(); w <= 0 || w > 1.0/20+1e-12 {
		t.Errorf("gap width = %v, want (0, 1/20]", w)
	}
	first, _ := m.Range(0)
	if first.Start != 0 || first.End != gap.Start {
		t.Errorf("section 0 = %+v, gap = %+v", first, gap)
	}
	last, _ := m.Range(2)
	if last.Start != 0.5 {
		t.Errorf("section 2 start = %v, want 0.5", last.Start)
	}
}

func TestBuildBoundariesFirstMarkerWins(t *testing.T) {
	// section 0 reappears after section 1 started, its first marker counts
	markers := []Marker{{Section: 0}, {Section: 0}, {Section: 1}, {Section: 0}}
	m := BuildBoundaries(sectionsN(2), markers)
	r0, _ := m.Range(0)
	r1, _ := m.Range(1)
	if r0 != (Range{0, 0.5}) || r1 != (Range{0.5, 1}) {
		t.Errorf("got %+v %+v", r0, r1)
	}
}

func TestBuildBoundariesDeterministic(t *testing.T) {
	sections := sectionsN(6)
	markers := markersFor(0, 3, 0, 9, 0, 2)
	a := BuildBoundaries(sections, markers)
	b := BuildBoundaries(sections, markers)
	for _, s := range a.Order() {
		ra, _ := a.Range(s)
		rb, _ := b.Range(s)
		if ra != rb {
			t.Fatalf("section %d: %+v != %+v", s, ra, rb)
		}
	}
}

func TestBuildBoundariesPartitionRandom(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for iter := 0; iter < 500; iter++ {
		n := 1 + rng.IntN(40)
		counts := make([]int, n)
		for i := range counts {
			if rng.IntN(3) > 0 {
				counts[i] = rng.IntN(50)
			}
		}
		m := BuildBoundaries(sectionsN(n), markersFor(counts...))
		if m.Empty() {
			continue
		}
		if m.Len() != n {
			t.Fatalf("iteration %d: Len() = %d, want %d (counts %v)", iter, m.Len(), n, counts)
		}
		if err := m.Validate(); err != nil {
			t.Fatalf("iteration %d: %v (counts %v)", iter, err, counts)
		}
	}
}

func TestBuildBoundariesIgnoresUnknownSections(t *testing.T) {
	markers := []Marker{{ID: "x", Section: 9}}
	markers = append(markers, markersFor(2, 2)...)
	markers = append(markers, Marker{ID: "y", Section: -1})

	m := BuildBoundaries(sectionsN(2), markers)
	if m.Markers() != 4 {
		t.Errorf("Markers() = %d, want 4", m.Markers())
	}
	for i, w := range []Range{{0, 0.5}, {0.5, 1}} {
		if r, ok := m.Range(i); !ok || r != w {
			t.Errorf("section %d = %+v (%v), want %+v", i, r, ok, w)
		}
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}
