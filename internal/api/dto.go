package api

import (
	"github.com/starling/clipnote/internal/models"
)

// ClassifyRequest is the body for POST /api/classify-content.
type ClassifyRequest struct {
	Content string `json:"content"`
}

// PipelineRequest is the shared body for suggest-merge and
// organize-content: raw content plus a previously classified type.
type PipelineRequest struct {
	Content  string `json:"content"`
	NoteType string `json:"note_type"`
}

// SaveNoteRequest is the body for POST /api/save-note.
type SaveNoteRequest struct {
	Title             string   `json:"title"`
	Type              string   `json:"type"`
	OriginalContent   string   `json:"original_content"`
	OrganizedMarkdown string   `json:"organized_markdown"`
	Summary           string   `json:"summary"`
	Tags              []string `json:"tags"`
}

// EditNoteRequest is the body for PUT /api/notes/{id}/edit. Pointer
// fields distinguish "leave unchanged" from an explicit empty value.
type EditNoteRequest struct {
	Content  string    `json:"content"`
	Title    *string   `json:"title"`
	Tags     *[]string `json:"tags"`
	IsPinned *bool     `json:"is_pinned"`
}

// BatchDeleteRequest is the body for DELETE /api/notes/batch-delete.
type BatchDeleteRequest struct {
	NoteIDs []string `json:"note_ids"`
}

// SaveNoteResponse is returned after a successful save.
type SaveNoteResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	ID       string `json:"id"`
	FileName string `json:"file_name"`
}

// NoteListResponse wraps the full index listing.
type NoteListResponse struct {
	Notes []models.IndexRecord `json:"notes"`
	Total int                  `json:"total"`
}

// NoteDetailResponse pairs an index record with its Markdown body.
type NoteDetailResponse struct {
	Note    models.IndexRecord `json:"note"`
	Content string             `json:"content"`
}

// SearchResponse wraps search hits.
type SearchResponse struct {
	Results []models.IndexRecord `json:"results"`
	Count   int                  `json:"count"`
}

// CaptureListResponse wraps the clipboard capture history.
type CaptureListResponse struct {
	Captures []models.CaptureItem `json:"captures"`
	Count    int                  `json:"count"`
}

// StatusResponse is the generic success envelope for mutations.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BatchDeleteResponse reports the batch outcome. DeletedCount is always
// present, zero included, so callers can tell "nothing matched" apart
// from a missing field.
type BatchDeleteResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeletedCount int    `json:"deleted_count"`
}
