// Package models defines the domain types for clipnote.
package models

// IndexRecord is the metadata entry for one note in the JSON index.
// Timestamps are stored as ISO-8601 strings so the index file stays
// human-editable; FileName is derived as "{id}_{type}.md" at creation
// and never changes afterwards, even when Type is edited later.
type IndexRecord struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Type      string   `json:"type"`
	Summary   string   `json:"summary"`
	FileName  string   `json:"file_name"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
	Tags      []string `json:"tags"`
	IsPinned  *bool    `json:"is_pinned,omitempty"`
}

// CaptureItem is one entry in the clipboard capture history: the raw
// text, any URLs found in it, and the classification the backend returned.
type CaptureItem struct {
	Content        string   `json:"content"`
	URLs           []string `json:"urls"`
	Classification string   `json:"ai_classification"` // classification result as JSON
	Source         string   `json:"source"`
	CapturedAt     string   `json:"timestamp"`
}
