package progress

import "testing"

func TestGuardAcceptsAnchorChanges(t *testing.T) {
	var g Guard
	steps := []struct {
		anchor string
		pct    float64
	}{
		{"a", 0.2}, {"b", 0.3}, {"c", 0.1}, {"d", 0.5},
	}
	for _, s := range steps {
		got, ok := g.Observe(s.anchor, s.pct)
		if !ok || got != s.pct {
			t.Fatalf("Observe(%q, %v) = %v, %v", s.anchor, s.pct, got, ok)
		}
	}
	if g.Direction() != DirectionForward {
		t.Errorf("Direction() = %v, want forward", g.Direction())
	}
}

func TestGuardSameAnchor(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(g *Guard)
		pct     float64
		want    float64
		applied bool
	}{
		{
			name:  "forward reader, layout pushes back",
			setup: func(g *Guard) { g.Observe("a", 0.2); g.Observe("b", 0.4) },
			pct:   0.38, want: 0.4,
		},
		{
			name:  "forward reader, layout pushes ahead",
			setup: func(g *Guard) { g.Observe("a", 0.2); g.Observe("b", 0.4) },
			pct:   0.41, want: 0.41, applied: true,
		},
		{
			name:  "backward reader, layout pushes ahead",
			setup: func(g *Guard) { g.Observe("b", 0.4); g.Observe("a", 0.2) },
			pct:   0.22, want: 0.2,
		},
		{
			name:  "backward reader, layout pushes back",
			setup: func(g *Guard) { g.Observe("b", 0.4); g.Observe("a", 0.2) },
			pct:   0.19, want: 0.19, applied: true,
		},
		{
			name:  "unknown direction keeps last value",
			setup: func(g *Guard) { g.Observe("b", 0.4) },
			pct:   0.45, want: 0.4,
		},
		{
			name:  "rebase accepts better source for same anchor",
			setup: func(g *Guard) { g.Observe("b", 0.4); g.Rebase() },
			pct:   0.45, want: 0.45, applied: true,
		},
		{
			name:  "hold keeps value moving with direction",
			setup: func(g *Guard) { g.Observe("a", 0.2); g.Observe("b", 0.4); g.Hold() },
			pct:   0.45, want: 0.4,
		},
		{
			name:  "hold then rebase accepts lower value",
			setup: func(g *Guard) { g.Observe("a", 0.2); g.Observe("b", 0.4); g.Hold(); g.Observe("b", 0.45); g.Rebase() },
			pct:   0.35, want: 0.35, applied: true,
		},
		{
			name:  "explicit intent wins over delta",
			setup: func(g *Guard) { g.Observe("a", 0.5); g.Intend(DirectionForward); g.Observe("b", 0.3) },
			pct:   0.31, want: 0.31, applied: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g Guard
			tt.setup(&g)
			_, anchor, _ := g.Last()
			got, applied := g.Observe(anchor, tt.pct)
			if got != tt.want || applied != tt.applied {
				t.Errorf("Observe() = %v, %v; want %v, %v", got, applied, tt.want, tt.applied)
			}
		})
	}
}

func TestGuardReset(t *testing.T) {
	var g Guard
	g.Observe("a", 0.5)
	g.Reset()
	if _, _, started := g.Last(); started {
		t.Fatal("Reset() must forget last report")
	}
	if got, ok := g.Observe("a", 0.1); !ok || got != 0.1 {
		t.Errorf("first observation after reset = %v, %v", got, ok)
	}
}

func TestGuardRebaseKeepsDirection(t *testing.T) {
	var g Guard
	g.Observe("a", 0.2)
	g.Observe("b", 0.4)
	g.Hold()
	g.Observe("b", 0.5)
	g.Rebase()
	if got, ok := g.Observe("b", 0.3); !ok || got != 0.3 {
		t.Fatalf("settled observation = %v, %v", got, ok)
	}
	if g.Direction() != DirectionForward {
		t.Errorf("Direction() = %v, want forward", g.Direction())
	}
	// same anchor noise after settling is filtered again
	if got, _ := g.Observe("b", 0.25); got != 0.3 {
		t.Errorf("Observe after settle = %v, want 0.3", got)
	}
	// anchor change is accepted, hold does not survive it
	if got, ok := g.Observe("c", 0.35); !ok || got != 0.35 {
		t.Errorf("Observe on new anchor = %v, %v", got, ok)
	}
}
