// Package progress turns a paginated viewer's coarse location signal into a
// monotonic whole-document percentage and a chapter-relative percentage.
package progress

// Section describes one spine item in reading order.
type Section struct {
	Index  int
	Anchor string
}

// Marker is an evenly content-spaced location produced by the pagination
// engine. Markers are supplied in document order and are attributed to the
// section whose content they fall within.
type Marker struct {
	ID      string
	Section int
}

// TOCEntry is a single (possibly nested) table of contents entry.
type TOCEntry struct {
	Anchor   string
	Label    string
	Children []TOCEntry
}

// FlatTOCEntry is a TOCEntry with its nesting depth, children removed.
type FlatTOCEntry struct {
	Anchor string
	Label  string
	Level  int
}

// ChapterItem is a TOC entry resolved to the section it starts in.
type ChapterItem struct {
	Section int
	Label   string
	Anchor  string
}

// PageInfo is the viewer's "page N of M" within the current section.
type PageInfo struct {
	Page  int
	Total int
}

// Signal is the payload of one relocation event.
type Signal struct {
	Section          int
	Anchor           string
	NativePercentage *float64
	Pages            *PageInfo
}

// Snapshot is what callers display and persist after each relocation.
type Snapshot struct {
	Percentage float64
	// Chapter is an index into the tracker's chapter list, -1 before the
	// first known chapter.
	Chapter int
	// ChapterPercentage is nil when it cannot be computed.
	ChapterPercentage *float64
	Anchor            string
	Source            Source
}

// AnchorPercentageFunc is the engine's best-effort anchor to whole-document
// percentage lookup. Failures of any kind are treated as "unavailable".
type AnchorPercentageFunc func(anchor string) (float64, error)

// Source tells which input produced a resolved percentage.
type Source int

const (
	SourceNone Source = iota
	SourceBoundary
	SourceAnchor
	SourceNative
)

func (s Source) String() string {
	switch s {
	case SourceBoundary:
		return "boundary"
	case SourceAnchor:
		return "anchor"
	case SourceNative:
		return "native"
	default:
		return "none"
	}
}

// Direction is the user's most recent navigation direction.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionForward
	DirectionBackward
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "backward"
	default:
		return "unknown"
	}
}

// Float64 returns a pointer to v, handy for optional percentages.
func Float64(v float64) *float64 {
	return &v
}
