package reader

import (
	"fmt"
	"path"
	"strings"

	"github.com/beevik/etree"

	"github.com/metcalfc/folio/internal/progress"
)

// parseNCX reads EPUB2 toc.ncx. Content sources are relative to the NCX
// location, they are rebased so they can be matched with spine hrefs.
func parseNCX(data []byte, ncxHref string) ([]progress.TOCEntry, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse NCX: %w", err)
	}
	navMap := doc.FindElement("//navMap")
	if navMap == nil {
		return nil, fmt.Errorf("NCX has no navMap")
	}
	return navPoints(navMap.SelectElements("navPoint"), path.Dir(ncxHref)), nil
}

func navPoints(points []*etree.Element, base string) []progress.TOCEntry {
	var entries []progress.TOCEntry
	for _, np := range points {
		entry := progress.TOCEntry{
			Children: navPoints(np.SelectElements("navPoint"), base),
		}
		if t := np.FindElement("./navLabel/text"); t != nil {
			entry.Label = strings.TrimSpace(t.Text())
		}
		if c := np.SelectElement("content"); c != nil {
			entry.Anchor = rebaseHref(base, c.SelectAttrValue("src", ""))
		}
		entries = append(entries, entry)
	}
	return entries
}

// parseNav reads EPUB3 navigation document, <nav epub:type="toc">.
func parseNav(data []byte, navHref string) ([]progress.TOCEntry, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse navigation document: %w", err)
	}
	for _, nav := range doc.FindElements("//nav") {
		if nav.SelectAttrValue("epub:type", nav.SelectAttrValue("type", "")) != "toc" {
			continue
		}
		if ol := nav.SelectElement("ol"); ol != nil {
			return navList(ol, path.Dir(navHref)), nil
		}
	}
	return nil, fmt.Errorf("navigation document has no toc")
}

func navList(ol *etree.Element, base string) []progress.TOCEntry {
	var entries []progress.TOCEntry
	for _, li := range ol.SelectElements("li") {
		var entry progress.TOCEntry
		label := li.SelectElement("a")
		if label == nil {
			label = li.SelectElement("span")
		}
		if label != nil {
			entry.Label = innerText(label)
			entry.Anchor = rebaseHref(base, label.SelectAttrValue("href", ""))
		}
		if sub := li.SelectElement("ol"); sub != nil {
			entry.Children = navList(sub, base)
		}
		entries = append(entries, entry)
	}
	return entries
}

func innerText(e *etree.Element) string {
	var sb strings.Builder
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		sb.WriteString(e.Text())
		for _, c := range e.ChildElements() {
			walk(c)
			sb.WriteString(c.Tail())
		}
	}
	walk(e)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// rebaseHref makes href relative to the package document. Fragment is kept.
func rebaseHref(base, href string) string {
	if href == "" || strings.Contains(href, "://") {
		return ""
	}
	file, frag, hasFrag := strings.Cut(href, "#")
	if file == "" {
		return ""
	}
	out := path.Join(base, file)
	if hasFrag {
		out += "#" + frag
	}
	return out
}
