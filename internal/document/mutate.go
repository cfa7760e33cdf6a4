package document

import (
	"fmt"

	"github.com/starford/mimir/internal/apperr"
)

// Position says where an added chapter goes relative to existing ones.
type Position string

// Valid positions for AddChapter.
const (
	PositionEnd    Position = "end"
	PositionBefore Position = "before"
	PositionAfter  Position = "after"
)

// ParsePosition validates a caller-supplied position string. An empty value
// defaults to end.
func ParsePosition(s string) (Position, error) {
	switch Position(s) {
	case "":
		return PositionEnd, nil
	case PositionEnd, PositionBefore, PositionAfter:
		return Position(s), nil
	default:
		return "", fmt.Errorf("%w: unknown position %q", apperr.ErrInvalidInput, s)
	}
}

// UpdateChapter returns a new chapter list with the body of the chapter
// titled title replaced. Title and position are unchanged. If newSummary is
// empty the summary is re-derived from the new body.
func UpdateChapter(chapters []Chapter, title, newBody, newSummary string) ([]Chapter, error) {
	idx := indexOf(chapters, title)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", apperr.ErrChapterNotFound, title)
	}
	out := make([]Chapter, len(chapters))
	copy(out, chapters)
	out[idx].Body = newBody
	if newSummary != "" {
		out[idx].Summary = newSummary
	} else {
		out[idx].Summary = Summarize(newBody)
	}
	return out, nil
}

// RemoveChapter returns a new chapter list without the chapter titled title.
// Removing the only chapter yields an empty list; a document with zero
// chapters is valid.
func RemoveChapter(chapters []Chapter, title string) ([]Chapter, error) {
	idx := indexOf(chapters, title)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", apperr.ErrChapterNotFound, title)
	}
	out := make([]Chapter, 0, len(chapters)-1)
	out = append(out, chapters[:idx]...)
	out = append(out, chapters[idx+1:]...)
	return out, nil
}

// AddChapter returns a new chapter list with ch inserted at pos. before and
// after require ref to name an existing chapter. The duplicate-title check
// runs before any structural change, so a failed add never reorders anything.
func AddChapter(chapters []Chapter, ch Chapter, pos Position, ref string) ([]Chapter, error) {
	if indexOf(chapters, ch.Title) >= 0 {
		return nil, fmt.Errorf("%w: chapter %q", apperr.ErrAlreadyExists, ch.Title)
	}

	at := len(chapters)
	switch pos {
	case PositionEnd:
		// append
	case PositionBefore, PositionAfter:
		if ref == "" {
			return nil, fmt.Errorf("%w: position %q requires a reference chapter", apperr.ErrInvalidInput, pos)
		}
		idx := indexOf(chapters, ref)
		if idx < 0 {
			return nil, fmt.Errorf("%w: reference %q", apperr.ErrChapterNotFound, ref)
		}
		at = idx
		if pos == PositionAfter {
			at = idx + 1
		}
	default:
		return nil, fmt.Errorf("%w: unknown position %q", apperr.ErrInvalidInput, pos)
	}

	if ch.Level == 0 {
		ch.Level = chapterLevel
	}
	if ch.Summary == "" {
		ch.Summary = Summarize(ch.Body)
	}

	out := make([]Chapter, 0, len(chapters)+1)
	out = append(out, chapters[:at]...)
	out = append(out, ch)
	out = append(out, chapters[at:]...)
	return out, nil
}

// indexOf finds a chapter by exact, case-sensitive title match.
func indexOf(chapters []Chapter, title string) int {
	for i, c := range chapters {
		if c.Title == title {
			return i
		}
	}
	return -1
}
