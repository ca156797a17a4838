package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starling/clipnote/internal/apperr"
	"github.com/starling/clipnote/internal/capture"
	"github.com/starling/clipnote/internal/indexstore"
	"github.com/starling/clipnote/internal/models"
	"github.com/starling/clipnote/internal/noteservice"
	"github.com/starling/clipnote/internal/pipeline"
	"github.com/starling/clipnote/internal/storage"
)

// fakePipeline returns canned pipeline results, or a remote error when
// remoteErr is set.
type fakePipeline struct {
	remoteErr bool
}

func (f *fakePipeline) err() error {
	return &apperr.RemoteError{Op: "chat", StatusCode: 503}
}

func (f *fakePipeline) Classify(_ context.Context, _ string) (*pipeline.Classification, error) {
	if f.remoteErr {
		return nil, f.err()
	}
	return &pipeline.Classification{IsNote: true, NoteType: "学习笔记", Confidence: 0.92, Reason: "structured"}, nil
}

func (f *fakePipeline) SuggestMerge(_ context.Context, _, _ string) (*pipeline.MergeSuggestion, error) {
	if f.remoteErr {
		return nil, f.err()
	}
	return &pipeline.MergeSuggestion{ShouldMerge: false, Confidence: 0.8}, nil
}

func (f *fakePipeline) Organize(_ context.Context, content, _ string) (*pipeline.Organized, error) {
	if f.remoteErr {
		return nil, f.err()
	}
	return &pipeline.Organized{
		OrganizedMarkdown: "## Organized\n" + content,
		KeyDates:          []pipeline.KeyDate{},
		KeyPoints:         []string{"one"},
		Summary:           "summary",
	}, nil
}

// testStore creates the notes directory and a storage provider on it.
func testStore(t *testing.T, dir string) *storage.FS {
	t.Helper()
	notesDir := filepath.Join(dir, "notes")
	if err := os.MkdirAll(notesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFS(notesDir)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// testEnv sets up temp note storage, index, service, and router.
func testEnv(t *testing.T, pipe Pipeline) (*noteservice.Service, http.Handler) {
	t.Helper()

	dir := t.TempDir()
	svc := noteservice.NewService(testStore(t, dir), indexstore.New(filepath.Join(dir, "notes_index.json")))

	if pipe == nil {
		pipe = &fakePipeline{}
	}
	h := NewHandler(svc, pipe, nil, nil)
	return svc, NewRouter(h, nil)
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func saveNote(t *testing.T, router http.Handler, title, noteType string) SaveNoteResponse {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/save-note", SaveNoteRequest{
		Title:             title,
		Type:              noteType,
		OriginalContent:   "raw content of " + title,
		OrganizedMarkdown: "## Points\norganized " + title,
		Summary:           "about " + title,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("save-note status = %d: %s", w.Code, w.Body.String())
	}
	return decode[SaveNoteResponse](t, w)
}

func TestHealth(t *testing.T) {
	_, router := testEnv(t, nil)
	w := doJSON(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode[map[string]string](t, w)
	if body["status"] != "ok" || body["timestamp"] == "" {
		t.Errorf("body = %v", body)
	}
}

func TestClassifyContent(t *testing.T) {
	_, router := testEnv(t, nil)

	w := doJSON(t, router, http.MethodPost, "/classify-content", ClassifyRequest{Content: "学习 Go 语言"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	result := decode[pipeline.Classification](t, w)
	if !result.IsNote || result.NoteType != "学习笔记" {
		t.Errorf("result = %+v", result)
	}
	if strings.Contains(w.Body.String(), `"fallback"`) {
		t.Errorf("fallback field leaked into success payload: %s", w.Body.String())
	}
}

func TestClassifyContentEmptyBody(t *testing.T) {
	_, router := testEnv(t, nil)
	w := doJSON(t, router, http.MethodPost, "/classify-content", ClassifyRequest{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestPipelineRemoteErrorMapsTo502(t *testing.T) {
	_, router := testEnv(t, &fakePipeline{remoteErr: true})

	for _, target := range []string{"/classify-content", "/suggest-merge", "/organize-content"} {
		w := doJSON(t, router, http.MethodPost, target, PipelineRequest{Content: "x"})
		if w.Code != http.StatusBadGateway {
			t.Errorf("%s status = %d, want 502", target, w.Code)
		}
	}
}

func TestSaveNoteAndGet(t *testing.T) {
	_, router := testEnv(t, nil)
	saved := saveNote(t, router, "Go Generics", "学习笔记")
	if !saved.Success || saved.ID == "" || !strings.HasSuffix(saved.FileName, ".md") {
		t.Fatalf("saved = %+v", saved)
	}

	w := doJSON(t, router, http.MethodGet, "/notes/"+saved.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if got := w.Header().Get("Cache-Control"); !strings.Contains(got, "no-cache") {
		t.Errorf("Cache-Control = %q", got)
	}
	detail := decode[NoteDetailResponse](t, w)
	if detail.Note.Title != "Go Generics" {
		t.Errorf("title = %q", detail.Note.Title)
	}
	if !strings.Contains(detail.Content, "raw content of Go Generics") ||
		!strings.Contains(detail.Content, "organized Go Generics") {
		t.Errorf("content = %q", detail.Content)
	}
}

func TestSaveNoteDefaults(t *testing.T) {
	_, router := testEnv(t, nil)
	w := doJSON(t, router, http.MethodPost, "/save-note", SaveNoteRequest{OriginalContent: "just text"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	saved := decode[SaveNoteResponse](t, w)

	detail := decode[NoteDetailResponse](t, doJSON(t, router, http.MethodGet, "/notes/"+saved.ID, nil))
	if detail.Note.Title != "Untitled" {
		t.Errorf("title = %q", detail.Note.Title)
	}
	if detail.Note.Type != pipeline.DefaultNoteType {
		t.Errorf("type = %q", detail.Note.Type)
	}
}

func TestSaveNoteRequiresContent(t *testing.T) {
	_, router := testEnv(t, nil)
	w := doJSON(t, router, http.MethodPost, "/save-note", SaveNoteRequest{Title: "empty"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestListNotes(t *testing.T) {
	_, router := testEnv(t, nil)
	saveNote(t, router, "First", "学习笔记")
	saveNote(t, router, "Second", "工作待办")

	w := doJSON(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	list := decode[NoteListResponse](t, w)
	if list.Total != 2 || len(list.Notes) != 2 {
		t.Fatalf("list = %+v", list)
	}
	if list.Notes[0].Title != "First" {
		t.Errorf("order: first = %q", list.Notes[0].Title)
	}
}

func TestListNotesCorruptIndexServesEmpty(t *testing.T) {
	dir := t.TempDir()
	store := testStore(t, dir)
	indexPath := filepath.Join(dir, "notes_index.json")
	if err := os.WriteFile(indexPath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	svc := noteservice.NewService(store, indexstore.New(indexPath))
	router := NewRouter(NewHandler(svc, &fakePipeline{}, nil, nil), nil)

	w := doJSON(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	list := decode[NoteListResponse](t, w)
	if list.Total != 0 {
		t.Errorf("total = %d, want 0", list.Total)
	}
}

func TestGetNoteNotFound(t *testing.T) {
	_, router := testEnv(t, nil)
	w := doJSON(t, router, http.MethodGet, "/notes/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetNoteHTML(t *testing.T) {
	_, router := testEnv(t, nil)
	saved := saveNote(t, router, "Rendered", "学习笔记")

	w := doJSON(t, router, http.MethodGet, "/notes/"+saved.ID+"/html", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "<h1") {
		t.Errorf("body not rendered: %q", w.Body.String())
	}
}

func TestEditNote(t *testing.T) {
	_, router := testEnv(t, nil)
	saved := saveNote(t, router, "Before", "学习笔记")

	pinned := true
	w := doJSON(t, router, http.MethodPut, "/notes/"+saved.ID+"/edit", EditNoteRequest{
		Content:  "# After\n\nnew body",
		IsPinned: &pinned,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	rec := decode[models.IndexRecord](t, w)
	if rec.Title != "After" {
		t.Errorf("title = %q, want first-line heading", rec.Title)
	}
	if rec.IsPinned == nil || !*rec.IsPinned {
		t.Errorf("is_pinned not applied")
	}

	detail := decode[NoteDetailResponse](t, doJSON(t, router, http.MethodGet, "/notes/"+saved.ID, nil))
	if detail.Content != "# After\n\nnew body" {
		t.Errorf("content = %q", detail.Content)
	}
}

func TestEditNoteEmptyContent(t *testing.T) {
	_, router := testEnv(t, nil)
	saved := saveNote(t, router, "Keep", "学习笔记")

	w := doJSON(t, router, http.MethodPut, "/notes/"+saved.ID+"/edit", EditNoteRequest{Content: ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestDeleteNote(t *testing.T) {
	_, router := testEnv(t, nil)
	saved := saveNote(t, router, "Doomed", "学习笔记")

	w := doJSON(t, router, http.MethodDelete, "/notes/"+saved.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w = doJSON(t, router, http.MethodGet, "/notes/"+saved.ID, nil); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", w.Code)
	}
	if w = doJSON(t, router, http.MethodDelete, "/notes/"+saved.ID, nil); w.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d", w.Code)
	}
}

func TestBatchDelete(t *testing.T) {
	_, router := testEnv(t, nil)
	a := saveNote(t, router, "A", "学习笔记")
	b := saveNote(t, router, "B", "学习笔记")

	w := doJSON(t, router, http.MethodDelete, "/notes/batch-delete", BatchDeleteRequest{
		NoteIDs: []string{a.ID, "missing", b.ID},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	status := decode[BatchDeleteResponse](t, w)
	if status.DeletedCount != 2 {
		t.Errorf("deleted_count = %d, want 2", status.DeletedCount)
	}

	w = doJSON(t, router, http.MethodDelete, "/notes/batch-delete", BatchDeleteRequest{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty batch status = %d", w.Code)
	}
}

func TestBatchDeleteNoMatchesReportsZero(t *testing.T) {
	_, router := testEnv(t, nil)

	w := doJSON(t, router, http.MethodDelete, "/notes/batch-delete", BatchDeleteRequest{
		NoteIDs: []string{"nope", "also-nope"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	// deleted_count stays on the wire even when it is zero.
	if !strings.Contains(w.Body.String(), `"deleted_count":0`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestSearch(t *testing.T) {
	_, router := testEnv(t, nil)
	saveNote(t, router, "Go Channels", "学习笔记")
	saveNote(t, router, "Grocery List", "工作待办")

	w := doJSON(t, router, http.MethodGet, "/search?q=go+channels", nil)
	res := decode[SearchResponse](t, w)
	if res.Count != 1 || res.Results[0].Title != "Go Channels" {
		t.Errorf("q search = %+v", res)
	}

	w = doJSON(t, router, http.MethodGet, "/search?type="+`工作待办`, nil)
	res = decode[SearchResponse](t, w)
	if res.Count != 1 || res.Results[0].Title != "Grocery List" {
		t.Errorf("type search = %+v", res)
	}

	w = doJSON(t, router, http.MethodGet, "/search?q=nothing+matches", nil)
	res = decode[SearchResponse](t, w)
	if res.Count != 0 || res.Results == nil {
		t.Errorf("empty search = %+v (results must be [])", res)
	}
}

func TestCaptureHistoryEndpoints(t *testing.T) {
	dir := t.TempDir()
	svc := noteservice.NewService(testStore(t, dir), indexstore.New(filepath.Join(dir, "notes_index.json")))
	history, err := capture.OpenHistory(filepath.Join(dir, "captures.db"), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer history.Close()
	router := NewRouter(NewHandler(svc, &fakePipeline{}, history, nil), nil)

	if err := history.Append(models.CaptureItem{Content: "copied text", CapturedAt: "2025-05-01T10:00:00Z"}); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodGet, "/captures", nil)
	list := decode[CaptureListResponse](t, w)
	if list.Count != 1 || list.Captures[0].Content != "copied text" {
		t.Fatalf("captures = %+v", list)
	}

	if w = doJSON(t, router, http.MethodDelete, "/captures", nil); w.Code != http.StatusOK {
		t.Fatalf("clear status = %d", w.Code)
	}
	list = decode[CaptureListResponse](t, doJSON(t, router, http.MethodGet, "/captures", nil))
	if list.Count != 0 {
		t.Errorf("captures after clear = %+v", list)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, router := testEnv(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/notes", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header")
	}
}
