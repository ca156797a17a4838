// Package markdown holds the note document helpers: title extraction,
// the save-time document template, and HTML preview rendering.
package markdown

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
)

var renderer = goldmark.New()

// Title returns the remainder of the first line when it is an H1 marker
// ("# ..."), or empty string. The first-line title is authoritative: on
// edit it overrides whatever title the caller supplied.
func Title(content string) string {
	line, _, _ := strings.Cut(content, "\n")
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "# ") {
		return strings.TrimSpace(trimmed[2:])
	}
	return ""
}

// ComposeNote builds the initial saved-note document. The section layout
// (original / organized / metadata) is a convenience for freshly saved
// notes; edits replace the whole document and no structure is enforced
// afterwards.
func ComposeNote(title, noteType, id, original, organized, summary string, createdAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "**Type**: %s  \n", noteType)
	fmt.Fprintf(&b, "**Created**: %s  \n", createdAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "**ID**: %s\n\n", id)
	b.WriteString("---\n\n## Original Content\n\n")
	b.WriteString(original)
	b.WriteString("\n\n---\n\n## Organized Content\n\n")
	b.WriteString(organized)
	b.WriteString("\n\n---\n\n## Metadata\n\n")
	fmt.Fprintf(&b, "- Summary: %s\n", summary)
	fmt.Fprintf(&b, "- Type: %s\n", noteType)
	return b.String()
}

// ToHTML renders Markdown to HTML for the preview endpoint.
func ToHTML(content string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("markdown: render: %w", err)
	}
	return buf.String(), nil
}
