package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starling/clipnote/internal/apperr"
	"github.com/starling/clipnote/internal/capture"
	"github.com/starling/clipnote/internal/markdown"
	"github.com/starling/clipnote/internal/models"
	"github.com/starling/clipnote/internal/noteservice"
	"github.com/starling/clipnote/internal/pipeline"
	"github.com/starling/clipnote/internal/sse"
)

// Pipeline is the subset of the content pipeline the API depends on.
type Pipeline interface {
	Classify(ctx context.Context, content string) (*pipeline.Classification, error)
	SuggestMerge(ctx context.Context, content, noteType string) (*pipeline.MergeSuggestion, error)
	Organize(ctx context.Context, content, noteType string) (*pipeline.Organized, error)
}

// Handler holds API route handlers.
type Handler struct {
	svc     *noteservice.Service
	pipe    Pipeline
	history *capture.History
	events  *sse.Broker
}

// NewHandler creates a new Handler. history and events may be nil; the
// corresponding routes then degrade gracefully.
func NewHandler(svc *noteservice.Service, pipe Pipeline, history *capture.History, events *sse.Broker) *Handler {
	return &Handler{svc: svc, pipe: pipe, history: history, events: events}
}

func (h *Handler) publish(kind, id string) {
	if h.events != nil {
		h.events.PublishNoteEvent(kind, id)
	}
}

// writePipelineError maps pipeline failures to HTTP. Only transport
// errors reach this point; parse problems are absorbed as fallbacks.
func writePipelineError(w http.ResponseWriter, op string, err error) {
	if apperr.IsRemote(err) {
		slog.Warn("upstream AI request failed", slog.String("op", op), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("upstream AI service failed"))
		return
	}
	slog.Error("pipeline call failed", slog.String("op", op), slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// ClassifyContent handles POST /api/classify-content.
func (h *Handler) ClassifyContent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}
	result, err := h.pipe.Classify(r.Context(), req.Content)
	if err != nil {
		writePipelineError(w, "classify", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SuggestMerge handles POST /api/suggest-merge.
func (h *Handler) SuggestMerge(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req PipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}
	result, err := h.pipe.SuggestMerge(r.Context(), req.Content, req.NoteType)
	if err != nil {
		writePipelineError(w, "suggest-merge", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// OrganizeContent handles POST /api/organize-content.
func (h *Handler) OrganizeContent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req PipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}
	result, err := h.pipe.Organize(r.Context(), req.Content, req.NoteType)
	if err != nil {
		writePipelineError(w, "organize", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SaveNote handles POST /api/save-note.
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req SaveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.OriginalContent == "" && req.OrganizedMarkdown == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}
	if req.Title == "" {
		req.Title = "Untitled"
	}
	if req.Type == "" {
		req.Type = pipeline.DefaultNoteType
	}

	rec, err := h.svc.SaveNote(r.Context(), noteservice.SaveInput{
		Title:             req.Title,
		Type:              req.Type,
		OriginalContent:   req.OriginalContent,
		OrganizedMarkdown: req.OrganizedMarkdown,
		Summary:           req.Summary,
		Tags:              req.Tags,
	})
	if err != nil {
		slog.Error("save note failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	h.publish("saved", rec.ID)
	writeJSON(w, http.StatusOK, SaveNoteResponse{
		Success:  true,
		Message:  "note saved",
		ID:       rec.ID,
		FileName: rec.FileName,
	})
}

// ListNotes handles GET /api/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	noCache(w)
	notes, err := h.svc.Notes(r.Context())
	if err != nil {
		// A damaged index must not take the listing down; serve empty
		// after logging so the operator can repair the file.
		slog.Error("index load failed, serving empty list", slog.String("error", err.Error()))
		notes = nil
	}
	if notes == nil {
		notes = []models.IndexRecord{}
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	noCache(w)
	id := chi.URLParam(r, "id")
	rec, content, err := h.svc.Note(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("note not found"))
		} else {
			slog.Error("get note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, NoteDetailResponse{Note: *rec, Content: content})
}

// GetNoteHTML handles GET /api/notes/{id}/html.
func (h *Handler) GetNoteHTML(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_, content, err := h.svc.Note(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("note not found"))
		} else {
			slog.Error("get note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	html, err := markdown.ToHTML(content)
	if err != nil {
		slog.Error("render note failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

// EditNote handles PUT /api/notes/{id}/edit.
func (h *Handler) EditNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	id := chi.URLParam(r, "id")
	var req EditNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	rec, err := h.svc.Edit(r.Context(), id, noteservice.EditInput{
		Content:  req.Content,
		Title:    req.Title,
		Tags:     req.Tags,
		IsPinned: req.IsPinned,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrValidation):
			writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("note not found"))
		default:
			slog.Error("edit note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	h.publish("updated", id)
	writeJSON(w, http.StatusOK, rec)
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("note not found"))
		} else {
			slog.Error("delete note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	h.publish("deleted", id)
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "note deleted"})
}

// BatchDeleteNotes handles DELETE /api/notes/batch-delete.
func (h *Handler) BatchDeleteNotes(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req BatchDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	count, err := h.svc.BatchDelete(r.Context(), req.NoteIDs)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, errorBody("note_ids is required"))
			return
		}
		slog.Error("batch delete failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, BatchDeleteResponse{
		Success:      true,
		Message:      "notes deleted",
		DeletedCount: count,
	})
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	noteType := r.URL.Query().Get("type")
	results, err := h.svc.Search(r.Context(), q, noteType)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []models.IndexRecord{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results, Count: len(results)})
}

// ListCaptures handles GET /api/captures.
func (h *Handler) ListCaptures(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusOK, CaptureListResponse{Captures: []models.CaptureItem{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.history.Recent(limit)
	if err != nil {
		slog.Error("list captures failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, CaptureListResponse{Captures: items, Count: len(items)})
}

// ClearCaptures handles DELETE /api/captures.
func (h *Handler) ClearCaptures(w http.ResponseWriter, r *http.Request) {
	if h.history != nil {
		if err := h.history.Clear(); err != nil {
			slog.Error("clear captures failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
	}
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "capture history cleared"})
}
