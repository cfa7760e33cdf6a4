package document

import (
	"strings"
	"unicode/utf8"
)

// chapterMarker starts a top-level chapter heading. Deeper headings (###
// and below) are chapter content, not boundaries.
const chapterMarker = "## "

// chapterLevel is the heading depth of a top-level chapter.
const chapterLevel = 2

// summaryMaxLen caps a derived chapter summary.
const summaryMaxLen = 100

// Chapter is a titled, heading-delimited subdivision of a document body.
// Body excludes the heading line. Summary is derived from the body unless
// a caller supplies one explicitly; it is never persisted.
type Chapter struct {
	Title   string
	Level   int
	Body    string
	Summary string
}

// Heading returns the chapter's serialized heading line.
func (c Chapter) Heading() string {
	return chapterMarker + c.Title
}

// Serialize returns the chapter's full serialized form: heading line, blank
// line, body.
func (c Chapter) Serialize() string {
	body := strings.Trim(c.Body, "\n")
	if body == "" {
		return c.Heading()
	}
	return c.Heading() + "\n\n" + body
}

// ParseChapters scans body text for top-level chapter headings. Everything
// before the first heading is the introduction; each chapter extends to just
// before the next top-level heading. A body with no headings is all
// introduction.
func ParseChapters(body string) (intro string, chapters []Chapter) {
	lines := strings.Split(body, "\n")

	var current *Chapter
	var acc []string

	flush := func() {
		text := strings.Trim(strings.Join(acc, "\n"), "\n")
		if current == nil {
			intro = text
		} else {
			current.Body = text
			current.Summary = Summarize(text)
			chapters = append(chapters, *current)
		}
		acc = acc[:0]
	}

	for _, line := range lines {
		if strings.HasPrefix(line, chapterMarker) {
			flush()
			current = &Chapter{
				Title: strings.TrimSpace(line[len(chapterMarker):]),
				Level: chapterLevel,
			}
			continue
		}
		acc = append(acc, line)
	}
	flush()

	return intro, chapters
}

// Summarize derives a chapter summary: the first non-blank content line,
// truncated to a fixed length.
func Summarize(body string) string {
	for _, line := range strings.Split(body, "\n") {
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		if len(s) > summaryMaxLen {
			cut := summaryMaxLen
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
			return s[:cut]
		}
		return s
	}
	return ""
}
