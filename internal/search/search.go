// Package search implements keyword search over knowledge documents. There
// is no persistent index: every call re-scans the current on-disk content,
// so results always reflect the latest committed state.
package search

import (
	"path"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/mimir/internal/document"
	"github.com/starford/mimir/internal/storage"
)

// contextRadius is how many characters of surrounding text each match
// context carries on either side.
const contextRadius = 50

// ChapterMatch is one matching chapter (or the introduction, reported with
// an empty chapter title).
type ChapterMatch struct {
	Chapter       string              `json:"chapter"`
	Summary       string              `json:"chapter_summary"`
	KeywordsFound []string            `json:"keywords_found"`
	MatchCount    int                 `json:"match_count"`
	Contexts      map[string][]string `json:"match_context"`
}

// DocumentMatch groups all matching chapters of one document.
type DocumentMatch struct {
	File             string            `json:"file"`
	MatchCount       int               `json:"match_count"`
	Metadata         document.Metadata `json:"metadata"`
	MatchingChapters []ChapterMatch    `json:"matching_chapters"`
}

// Report is the full result of one search call.
type Report struct {
	TotalDocuments int             `json:"total_documents"`
	TotalMatches   int             `json:"total_matches"`
	Results        []DocumentMatch `json:"results"`
}

// Search scans every markdown document in knowledgeDir for the given terms.
// Matching is case-insensitive substring containment of each term
// independently. Results are ordered by filename, chapters in document
// order with the introduction first, so repeated calls without intervening
// writes return identical reports.
func Search(store storage.Provider, knowledgeDir string, terms []string) (*Report, error) {
	keywords := normalizeTerms(terms)
	report := &Report{Results: []DocumentMatch{}}
	if len(keywords) == 0 {
		return report, nil
	}

	files, err := store.ListFiles(knowledgeDir)
	if err != nil {
		return nil, err
	}

	for _, name := range files {
		if !strings.HasSuffix(name, ".md") {
			continue
		}
		raw, err := store.Read(path.Join(knowledgeDir, name))
		if err != nil {
			// A file deleted between list and read is not a search failure.
			continue
		}
		doc, err := document.DecodeDocument(raw)
		if err != nil {
			continue
		}

		var chapters []ChapterMatch
		if m, ok := matchUnit("", "", doc.Introduction, keywords); ok {
			chapters = append(chapters, m)
		}
		for _, ch := range doc.Chapters {
			if m, ok := matchUnit(ch.Title, ch.Summary, ch.Body, keywords); ok {
				chapters = append(chapters, m)
			}
		}
		if len(chapters) == 0 {
			continue
		}

		report.Results = append(report.Results, DocumentMatch{
			File:             name,
			MatchCount:       len(chapters),
			Metadata:         doc.Meta,
			MatchingChapters: chapters,
		})
		report.TotalMatches += len(chapters)
	}

	report.TotalDocuments = len(report.Results)
	return report, nil
}

// normalizeTerms lowercases terms and drops blanks, preserving order.
func normalizeTerms(terms []string) []string {
	var out []string
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// matchUnit scans one chapter-equivalent body for all keywords.
func matchUnit(title, summary, body string, keywords []string) (ChapterMatch, bool) {
	lower, offs := foldOffsets(body)
	m := ChapterMatch{
		Chapter:  title,
		Summary:  summary,
		Contexts: map[string][]string{},
	}
	for _, kw := range keywords {
		contexts := findContexts(body, lower, offs, kw)
		if len(contexts) == 0 {
			continue
		}
		m.KeywordsFound = append(m.KeywordsFound, kw)
		m.MatchCount += len(contexts)
		m.Contexts[kw] = contexts
	}
	if m.MatchCount == 0 {
		return ChapterMatch{}, false
	}
	sort.Strings(m.KeywordsFound)
	return m, true
}

// foldOffsets returns the lowercase form of s along with a byte offset
// table: offs[i] is the offset in s of the rune that produced byte i of the
// lowercase form, and offs[len(lower)] == len(s). Lowercasing can change a
// rune's byte length, so match positions found in the folded text must be
// mapped through the table before slicing s.
func foldOffsets(s string) (string, []int) {
	var b strings.Builder
	b.Grow(len(s))
	offs := make([]int, 0, len(s)+1)
	for i, r := range s {
		l := unicode.ToLower(r)
		for n := utf8.RuneLen(l); n > 0; n-- {
			offs = append(offs, i)
		}
		b.WriteRune(l)
	}
	offs = append(offs, len(s))
	return b.String(), offs
}

// findContexts returns one context snippet per occurrence of kw, with
// ellipses marking truncation. Occurrences are counted at every offset, so
// overlapping hits each count. Matching runs over the folded text; snippet
// bounds are mapped back to body offsets and snapped to rune boundaries.
func findContexts(body, lower string, offs []int, kw string) []string {
	var out []string
	for pos := 0; ; {
		idx := strings.Index(lower[pos:], kw)
		if idx < 0 {
			break
		}
		idx += pos

		start := offs[idx] - contextRadius
		if start < 0 {
			start = 0
		}
		for start > 0 && !utf8.RuneStart(body[start]) {
			start--
		}
		end := offs[idx+len(kw)] + contextRadius
		if end > len(body) {
			end = len(body)
		}
		for end < len(body) && !utf8.RuneStart(body[end]) {
			end++
		}
		ctx := strings.TrimSpace(body[start:end])
		if start > 0 {
			ctx = "..." + ctx
		}
		if end < len(body) {
			ctx = ctx + "..."
		}
		out = append(out, ctx)

		pos = idx + 1
	}
	return out
}
