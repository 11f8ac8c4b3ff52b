package reader

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
)

// MarkdownFormat implements Format for Markdown files.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Name() string         { return "Markdown" }
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

// headerRegex matches markdown headers (# to ######)
var headerRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// Open splits the file into sections at every header. Text before the
// first header becomes "preamble" section.
func (f *MarkdownFormat) Open(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(filename)
	sections, headings, err := splitMarkdown(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown: %w", err)
	}
	if len(sections) == 0 {
		sections = []Section{{Href: name, Text: ""}}
	}
	return newDocument(filename, strings.TrimSuffix(name, filepath.Ext(name)), f.Name(),
		sections, nestHeadings(headings)), nil
}

func splitMarkdown(data []byte) ([]Section, []heading, error) {
	var (
		sections []Section
		headings []heading
		body     strings.Builder
		href     = "preamble"
		seen     = make(map[string]int)
	)
	flush := func() {
		text := strings.TrimSpace(body.String())
		body.Reset()
		if href == "preamble" && text == "" {
			return
		}
		sections = append(sections, Section{Href: href, Text: text})
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if match := headerRegex.FindStringSubmatch(line); match != nil {
			flush()
			title := strings.TrimSpace(match[2])
			href = uniqueSlug(title, seen)
			headings = append(headings, heading{level: len(match[1]), label: title, anchor: href})
			body.WriteString(title)
			body.WriteString("\n\n")
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	flush()
	return sections, headings, nil
}

func uniqueSlug(title string, seen map[string]int) string {
	s := slug.Make(title)
	if s == "" || s == "preamble" {
		s = "section"
	}
	seen[s]++
	if seen[s] == 1 {
		return s
	}
	// skip suffixes taken by headings which already end with a number
	for n := seen[s]; ; n++ {
		if c := s + "-" + strconv.Itoa(n); seen[c] == 0 {
			seen[s] = n
			seen[c] = 1
			return c
		}
	}
}
