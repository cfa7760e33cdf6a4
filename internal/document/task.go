package document

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const taskMarker = "# "

// TaskMeta is the structured header of a task file. Completion state lives
// here, not in the body.
type TaskMeta struct {
	Completed bool      `yaml:"completed"`
	Created   time.Time `yaml:"created"`
	Updated   time.Time `yaml:"updated"`
}

// DecodeTask parses a task file: frontmatter metadata, then a single
// first-level heading holding the title, then the body. Task files have no
// chapter segmentation.
func DecodeTask(raw []byte) (TaskMeta, string, string, error) {
	var meta TaskMeta

	if !bytes.HasPrefix(raw, []byte(frontMatterDelim+"\n")) {
		return meta, "", "", fmt.Errorf("document: task file missing frontmatter")
	}
	block, rest, ok := cutFrontMatter(raw[len(frontMatterDelim)+1:])
	if !ok {
		return meta, "", "", fmt.Errorf("document: task file missing closing frontmatter delimiter")
	}
	if err := yaml.Unmarshal(block, &meta); err != nil {
		return meta, "", "", fmt.Errorf("document: invalid task frontmatter: %w", err)
	}

	body := strings.TrimLeft(string(rest), "\n")

	title := ""
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, taskMarker) {
			title = strings.TrimSpace(line[len(taskMarker):])
			body = strings.Trim(strings.Join(lines[i+1:], "\n"), "\n")
			return meta, title, body, nil
		}
		if strings.TrimSpace(line) != "" {
			break
		}
	}
	return meta, "", "", fmt.Errorf("document: task file missing title heading")
}

// EncodeTask serializes a task back into raw file content.
func EncodeTask(meta TaskMeta, title, body string) ([]byte, error) {
	block, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("document: encode task frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(frontMatterDelim + "\n")
	buf.Write(block)
	buf.WriteString(frontMatterDelim + "\n\n")
	buf.WriteString(taskMarker + title + "\n")
	if body = strings.Trim(body, "\n"); body != "" {
		buf.WriteString("\n" + body + "\n")
	}
	return buf.Bytes(), nil
}
