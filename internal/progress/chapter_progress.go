package progress

// ChapterRange returns whole-document bounds of chapters[i]. The start of
// the following chapter closes the range, the last chapter runs to 1. Bounds
// come from the boundary map and fall back to anchor percentages; ok is false
// when either bound is unknown or the range is empty.
func ChapterRange(chapters []ChapterItem, i int, m *BoundaryMap, anchorPct AnchorPercentageFunc) (start, end float64, ok bool) {
	if i < 0 || i >= len(chapters) {
		return 0, 0, false
	}

	cur := chapters[i]
	if r, found := m.Range(cur.Section); found {
		start = r.Start
	} else if start, ok = lookupAnchor(anchorPct, cur.Anchor); !ok {
		return 0, 0, false
	}

	end = 1
	if i+1 < len(chapters) {
		next := chapters[i+1]
		if r, found := m.Range(next.Section); found {
			end = r.Start
		} else if end, ok = lookupAnchor(anchorPct, next.Anchor); !ok {
			return 0, 0, false
		}
	}

	if end <= start {
		return 0, 0, false
	}
	return start, end, true
}

// ChapterProgress returns how far current is between start and end, clamped
// to [0,1]. A degenerate range yields nil rather than zero.
func ChapterProgress(current, start, end float64) *float64 {
	if !finite(current) || !finite(start) || !finite(end) || end <= start {
		return nil
	}
	p := clamp((current-start)/(end-start), 0, 1)
	return &p
}
