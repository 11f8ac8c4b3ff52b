package reader

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/metcalfc/folio/internal/progress"
)

// EPUBFormat implements Format for EPUB files.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }

// Open reads spine items in order. Items without text (covers, image
// pages) are kept as empty sections so section indexes follow the spine.
func (f *EPUBFormat) Open(filename string) (*Document, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("no rootfiles found in epub")
	}

	book := rc.Rootfiles[0]

	sections := spineSections(book.Spine.Itemrefs, readItem)
	if len(sections) == 0 {
		return nil, fmt.Errorf("epub spine is empty")
	}

	toc, err := readTOC(book)
	if err != nil {
		// book is still readable, chapter progress will be unavailable
		toc = nil
	}

	name := filepath.Base(filename)
	return newDocument(filename, strings.TrimSuffix(name, filepath.Ext(name)), f.Name(), sections, toc), nil
}

// spineSections returns one section per spine itemref. Items which cannot
// be read become empty sections, so section indexes always follow the spine.
func spineSections(refs []epub.Itemref, read func(*epub.Item) ([]byte, error)) []Section {
	sections := make([]Section, 0, len(refs))
	for _, ref := range refs {
		if ref.Item == nil {
			sections = append(sections, Section{Href: ref.IDREF})
			continue
		}
		sec := Section{Href: ref.Item.HREF}
		if data, err := read(ref.Item); err == nil {
			sec.Text = extractTextFromHTML(data)
		}
		sections = append(sections, sec)
	}
	return sections
}

func readItem(item *epub.Item) ([]byte, error) {
	r, err := item.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func readTOC(book *epub.Rootfile) ([]progress.TOCEntry, error) {
	for i := range book.Manifest.Items {
		item := &book.Manifest.Items[i]
		if item.MediaType != "application/x-dtbncx+xml" {
			continue
		}
		data, err := readItem(item)
		if err != nil {
			return nil, fmt.Errorf("unable to read NCX: %w", err)
		}
		return parseNCX(data, item.HREF)
	}
	for i := range book.Manifest.Items {
		item := &book.Manifest.Items[i]
		if item.MediaType != "application/xhtml+xml" || !looksLikeNav(item.HREF) {
			continue
		}
		data, err := readItem(item)
		if err != nil {
			continue
		}
		if toc, err := parseNav(data, item.HREF); err == nil && len(toc) > 0 {
			return toc, nil
		}
	}
	return nil, fmt.Errorf("no table of contents found")
}

func looksLikeNav(href string) bool {
	base := strings.ToLower(filepath.Base(href))
	return strings.Contains(base, "nav") || strings.Contains(base, "toc")
}

// extractTextFromHTML returns visible body text of an (X)HTML document,
// words separated by single spaces.
func extractTextFromHTML(data []byte) string {
	r, err := charset.NewReader(bytes.NewReader(data), "application/xhtml+xml")
	if err != nil {
		r = bytes.NewReader(data)
	}
	doc, err := html.Parse(r)
	if err != nil {
		return ""
	}

	var out strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "head", "script", "style":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				if out.Len() > 0 {
					out.WriteString(" ")
				}
				out.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out.String()
}
