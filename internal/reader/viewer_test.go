package reader

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/metcalfc/folio/internal/progress"
)

func viewerDoc(t *testing.T) *Document {
	t.Helper()
	doc := newDocument("book", "book", "Test", []Section{
		{Href: "one.xhtml", Text: strings.Repeat("alpha beta ", 40)},
		{Href: "two.xhtml", Text: ""},
		{Href: "three.xhtml", Text: strings.Repeat("gamma delta ", 60)},
	}, nil)
	l, err := GenerateLocations(context.Background(), doc, 64)
	if err != nil {
		t.Fatal(err)
	}
	doc.SetLocations(l)
	return doc
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		text  string
		limit int
		want  []int
	}{
		{"", 5, []int{0}},
		{"abc", 5, []int{0}},
		{"aaaa bbbb cccc", 5, []int{0, 5, 10}},
		{"aaaaaaaaaa", 4, []int{0, 4, 8}},
	}
	for _, tt := range tests {
		if got := paginate(tt.text, tt.limit); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("paginate(%q, %d) = %v, want %v", tt.text, tt.limit, got, tt.want)
		}
	}
}

func TestViewerRoundTrip(t *testing.T) {
	v := NewViewer(viewerDoc(t), 100)

	var signals []progress.Signal
	release := v.OnRelocated(func(sig progress.Signal) { signals = append(signals, sig) })
	defer release()

	forward := 0
	for v.Next() {
		forward++
	}
	if forward == 0 || len(signals) != forward {
		t.Fatalf("moved %d pages, got %d signals", forward, len(signals))
	}
	section, page, pages := v.Position()
	if section != 2 || page != pages-1 {
		t.Errorf("end position = %d/%d/%d", section, page, pages)
	}

	last := -1.0
	for _, sig := range signals {
		if sig.NativePercentage == nil {
			t.Fatalf("expected native percentage at %s", sig.Anchor)
		}
		if *sig.NativePercentage < last {
			t.Errorf("native percentage went back at %s: %v < %v", sig.Anchor, *sig.NativePercentage, last)
		}
		last = *sig.NativePercentage
	}

	backward := 0
	for v.Prev() {
		backward++
	}
	if backward != forward {
		t.Errorf("forward %d pages, backward %d", forward, backward)
	}
	if section, page, _ := v.Position(); section != 0 || page != 0 {
		t.Errorf("not back at start: %d/%d", section, page)
	}
}

func TestViewerEmptySection(t *testing.T) {
	v := NewViewer(viewerDoc(t), 100)
	for {
		if section, _, _ := v.Position(); section == 1 {
			break
		}
		if !v.Next() {
			t.Fatal("never reached empty section")
		}
	}
	sig := v.Location()
	if sig.Anchor != "two.xhtml@0" || sig.Pages == nil || sig.Pages.Total != 1 {
		t.Errorf("empty section location = %+v", sig)
	}
	if v.PageText() != "" {
		t.Errorf("expected empty page, got %q", v.PageText())
	}
}

func TestViewerGoTo(t *testing.T) {
	v := NewViewer(viewerDoc(t), 100)

	var got progress.Signal
	v.OnRelocated(func(sig progress.Signal) { got = sig })

	if err := v.GoTo("three.xhtml@250"); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	if got.Section != 2 || got.Anchor != "three.xhtml@250" {
		t.Errorf("GoTo signal = %+v", got)
	}
	if !strings.Contains(v.PageText(), "gamma") {
		t.Errorf("unexpected page text %q", v.PageText())
	}
	if err := v.GoTo("nowhere.xhtml"); err == nil {
		t.Error("expected error for unknown anchor")
	}
}

func TestViewerRelayout(t *testing.T) {
	v := NewViewer(viewerDoc(t), 100)
	if err := v.GoTo("three.xhtml@400"); err != nil {
		t.Fatal(err)
	}
	_, before, _ := v.Position()

	var signals []progress.Signal
	v.OnRelocated(func(sig progress.Signal) { signals = append(signals, sig) })

	v.Relayout(300)
	if len(signals) != 2 {
		t.Fatalf("relayout emitted %d signals, want 2", len(signals))
	}
	if signals[0].Anchor != "three.xhtml@400" || signals[1].Anchor != "three.xhtml@400" {
		t.Errorf("anchor not kept: %q, %q", signals[0].Anchor, signals[1].Anchor)
	}
	_, after, pages := v.Position()
	if after > before || pages == 0 {
		t.Errorf("page after relayout %d (of %d), before %d", after, pages, before)
	}
	if signals[1].Pages.Page != after+1 || signals[1].Pages.Total != pages {
		t.Errorf("settled signal pages = %+v", signals[1].Pages)
	}

	// same size is a no-op
	v.Relayout(300)
	if len(signals) != 2 {
		t.Errorf("no-op relayout emitted signals")
	}
	if v.PageRunes() != 300 {
		t.Errorf("PageRunes = %d", v.PageRunes())
	}
}

func TestViewerRelease(t *testing.T) {
	v := NewViewer(viewerDoc(t), 100)
	calls := 0
	release := v.OnRelocated(func(progress.Signal) { calls++ })
	v.Next()
	release()
	v.Next()
	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
	if v.Handlers() != 0 {
		t.Errorf("handlers left: %d", v.Handlers())
	}
}

func TestViewerMinPage(t *testing.T) {
	v := NewViewer(viewerDoc(t), 1)
	if v.PageRunes() != MinPageRunes {
		t.Errorf("PageRunes = %d, want %d", v.PageRunes(), MinPageRunes)
	}
}

func TestViewerNativePercentageBeforeLocations(t *testing.T) {
	doc := newDocument("book", "book", "Test", []Section{
		{Href: "a.xhtml", Text: strings.Repeat("x", 100)},
		{Href: "b.xhtml", Text: strings.Repeat("y", 300)},
	}, nil)
	v := NewViewer(doc, 100)

	want := []float64{0, 0.25, 0.5, 0.75}
	for i, w := range want {
		if i > 0 && !v.Next() {
			t.Fatalf("step %d: Next() = false", i)
		}
		sig := v.Location()
		if sig.NativePercentage == nil {
			t.Fatalf("step %d: no native percentage at %s", i, sig.Anchor)
		}
		if *sig.NativePercentage != w {
			t.Errorf("step %d: native percentage at %s = %v, want %v", i, sig.Anchor, *sig.NativePercentage, w)
		}
	}
	if _, err := doc.AnchorPercentage("b.xhtml@100"); err != ErrNoLocations {
		t.Errorf("AnchorPercentage before locations: %v, want ErrNoLocations", err)
	}
}

func TestViewerNoNativePercentageWithoutText(t *testing.T) {
	v := NewViewer(TextDocument("empty.txt", ""), 100)
	if sig := v.Location(); sig.NativePercentage != nil {
		t.Errorf("native percentage %v for document without text", *sig.NativePercentage)
	}
}
