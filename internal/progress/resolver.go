package progress

import (
	"fmt"
	"math"
)

// Resolution is a resolved whole-document percentage and where it came from.
type Resolution struct {
	Percentage float64
	Source     Source
}

// Resolve picks the most precise percentage available for sig:
//
//  1. position within the section's boundary range, from page N of M;
//  2. the engine's anchor percentage;
//  3. the viewer's native percentage, clamped;
//  4. zero.
func Resolve(m *BoundaryMap, sig Signal, anchorPct AnchorPercentageFunc) Resolution {
	if r, ok := m.Range(sig.Section); ok && sig.Pages != nil && sig.Pages.Total > 0 {
		p := r.Start + float64(sig.Pages.Page)/float64(sig.Pages.Total)*r.Width()
		return Resolution{Percentage: clamp(p, r.Start, r.End), Source: SourceBoundary}
	}
	if p, ok := lookupAnchor(anchorPct, sig.Anchor); ok {
		return Resolution{Percentage: p, Source: SourceAnchor}
	}
	if sig.NativePercentage != nil && finite(*sig.NativePercentage) {
		return Resolution{Percentage: clamp(*sig.NativePercentage, 0, 1), Source: SourceNative}
	}
	return Resolution{}
}

// lookupAnchor calls fn and converts every kind of failure, including a
// panic inside the engine, into ok == false.
func lookupAnchor(fn AnchorPercentageFunc, anchor string) (p float64, ok bool) {
	if fn == nil || anchor == "" {
		return 0, false
	}
	defer func() {
		if r := recover(); r != nil {
			p, ok = 0, false
		}
	}()
	v, err := fn(anchor)
	if err != nil || !finite(v) || v < 0 || v > 1 {
		return 0, false
	}
	return v, true
}

// SafeAnchorPercentage wraps fn so it never panics and reports non-finite
// or out of range results as errors.
func SafeAnchorPercentage(fn AnchorPercentageFunc) AnchorPercentageFunc {
	return func(anchor string) (float64, error) {
		if p, ok := lookupAnchor(fn, anchor); ok {
			return p, nil
		}
		return 0, fmt.Errorf("percentage for anchor %q is unavailable", anchor)
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
