package progress

// Guard filters percentage updates so layout noise never shows up as
// progress moving against the reader.
//
// Relocation may fire more than once for the same position after the
// viewer re-lays out its pages (font size change, window resize). The anchor
// stays the same in that case while page-derived percentages can shift in
// either direction. Changes for the same anchor are only accepted when they
// agree with the last known navigation direction.
type Guard struct {
	last      float64
	anchor    string
	started   bool
	direction Direction
	intent    Direction
	rebase    bool
	hold      bool
}

// Intend records the direction of the navigation action about to happen.
// It takes precedence over the direction inferred from the next move.
func (g *Guard) Intend(d Direction) {
	g.intent = d
}

// Direction returns the last known navigation direction.
func (g *Guard) Direction() Direction {
	return g.direction
}

// Last returns the last reported percentage and anchor.
func (g *Guard) Last() (float64, string, bool) {
	return g.last, g.anchor, g.started
}

// Rebase accepts the next observation as is, even for the same anchor,
// keeping the direction. Used when a better percentage source appears and
// when a relayout has settled.
func (g *Guard) Rebase() {
	g.rebase = true
	g.hold = false
}

// Hold keeps the last value for every same-anchor observation until Rebase
// or an anchor change, whatever the direction. Events reported while pages
// are laid out again carry stale page numbers and must not move the
// baseline.
func (g *Guard) Hold() {
	g.hold = true
}

// Reset forgets everything, used on document reload.
func (g *Guard) Reset() {
	*g = Guard{}
}

// Observe returns the percentage to report for pct observed at anchor and
// whether pct was accepted as is.
func (g *Guard) Observe(anchor string, pct float64) (float64, bool) {
	if !g.started || g.rebase || anchor != g.anchor {
		d := g.intent
		switch {
		case d != DirectionUnknown:
		case g.rebase:
			d = g.direction
		case g.started:
			switch {
			case pct > g.last:
				d = DirectionForward
			case pct < g.last:
				d = DirectionBackward
			default:
				d = g.direction
			}
		}
		g.direction = d
		g.intent = DirectionUnknown
		g.started = true
		g.rebase = false
		g.hold = false
		g.anchor = anchor
		g.last = pct
		return pct, true
	}

	switch {
	case g.hold:
		return g.last, pct == g.last
	case pct == g.last:
		return pct, true
	case pct > g.last && g.direction == DirectionForward,
		pct < g.last && g.direction == DirectionBackward:
		g.last = pct
		return pct, true
	}
	return g.last, false
}
