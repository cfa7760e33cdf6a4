// Package document implements the markdown+frontmatter codec for knowledge
// documents and task files, and the pure chapter/section mutation algorithms.
package document

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const frontMatterDelim = "---"

// Metadata is the structured header of a knowledge document.
type Metadata struct {
	Title    string    `yaml:"title" json:"title"`
	Keywords []string  `yaml:"keywords" json:"keywords"`
	Created  time.Time `yaml:"created" json:"created"`
	Updated  time.Time `yaml:"updated" json:"updated"`
}

// IsZero reports whether no metadata field has been set. Documents without
// metadata (e.g. a bare main.md) are encoded without a frontmatter block.
func (m Metadata) IsZero() bool {
	return m.Title == "" && len(m.Keywords) == 0 && m.Created.IsZero() && m.Updated.IsZero()
}

// Document is a fully parsed knowledge document.
type Document struct {
	Meta         Metadata
	Introduction string
	Chapters     []Chapter
}

// Decode splits raw content into a metadata block and the remaining body.
// Content without a leading frontmatter delimiter is returned as body with
// zero metadata. Malformed YAML inside the delimiters is an error: callers
// must not silently drop a header they cannot parse.
func Decode(raw []byte) (Metadata, string, error) {
	var meta Metadata

	if !bytes.HasPrefix(raw, []byte(frontMatterDelim+"\n")) {
		return meta, string(raw), nil
	}

	block, body, ok := cutFrontMatter(raw[len(frontMatterDelim)+1:])
	if !ok {
		// Opening delimiter with no closing one: the whole file is body.
		return meta, string(raw), nil
	}

	if err := yaml.Unmarshal(block, &meta); err != nil {
		return Metadata{}, "", fmt.Errorf("document: invalid frontmatter: %w", err)
	}
	return meta, strings.TrimLeft(string(body), "\n"), nil
}

// cutFrontMatter splits rest, the content following the opening delimiter
// line, at the first line that is exactly the closing delimiter. Lines that
// merely start with it, like "----" or "---extra", do not close the block.
func cutFrontMatter(rest []byte) (block, body []byte, ok bool) {
	for pos := 0; pos <= len(rest); {
		line := rest[pos:]
		next := len(rest)
		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
			next = pos + i + 1
		}
		if string(line) == frontMatterDelim {
			return rest[:pos], rest[next:], true
		}
		if next == len(rest) {
			break
		}
		pos = next
	}
	return nil, nil, false
}

// DecodeDocument parses raw content into metadata, introduction, and chapters.
func DecodeDocument(raw []byte) (*Document, error) {
	meta, body, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	intro, chapters := ParseChapters(body)
	return &Document{Meta: meta, Introduction: intro, Chapters: chapters}, nil
}

// Encode serializes metadata and body back into raw file content. It is the
// exact inverse of Decode for canonical input: Decode(Encode(m, b)) == (m, b).
func Encode(meta Metadata, body string) ([]byte, error) {
	var buf bytes.Buffer

	if !meta.IsZero() {
		block, err := yaml.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("document: encode frontmatter: %w", err)
		}
		buf.WriteString(frontMatterDelim + "\n")
		buf.Write(block)
		buf.WriteString(frontMatterDelim + "\n\n")
	}

	body = strings.Trim(body, "\n")
	buf.WriteString(body)
	if body != "" {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// EncodeDocument reassembles a parsed document into raw file content:
// metadata block, introduction, then each chapter in order. Blank-line runs
// between parts collapse to exactly one blank line; whitespace inside
// chapter bodies is preserved unchanged.
func EncodeDocument(doc *Document) ([]byte, error) {
	return Encode(doc.Meta, AssembleBody(doc.Introduction, doc.Chapters))
}

// AssembleBody joins an introduction and serialized chapters with single
// blank lines between them.
func AssembleBody(intro string, chapters []Chapter) string {
	parts := make([]string, 0, len(chapters)+1)
	if s := strings.Trim(intro, "\n"); s != "" {
		parts = append(parts, s)
	}
	for _, ch := range chapters {
		parts = append(parts, ch.Serialize())
	}
	return strings.Join(parts, "\n\n")
}
