package noteservice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starling/clipnote/internal/apperr"
	"github.com/starling/clipnote/internal/indexstore"
	"github.com/starling/clipnote/internal/storage"
)

func testService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	index := indexstore.New(filepath.Join(t.TempDir(), "index.json"))
	return NewService(store, index), dir
}

func save(t *testing.T, svc *Service, title, noteType string) string {
	t.Helper()
	rec, err := svc.SaveNote(context.Background(), SaveInput{
		Title:             title,
		Type:              noteType,
		OriginalContent:   "original text of " + title,
		OrganizedMarkdown: "organized text of " + title,
		Summary:           "summary of " + title,
		Tags:              []string{"t1"},
	})
	if err != nil {
		t.Fatalf("SaveNote: %v", err)
	}
	return rec.ID
}

func TestSaveThenGetContainsBothContents(t *testing.T) {
	svc, _ := testService(t)
	id := save(t, svc, "Trip", "参考材料")

	rec, content, err := svc.Note(context.Background(), id)
	if err != nil {
		t.Fatalf("Note: %v", err)
	}
	if !strings.Contains(content, "original text of Trip") {
		t.Error("content missing original text")
	}
	if !strings.Contains(content, "organized text of Trip") {
		t.Error("content missing organized text")
	}
	if rec.FileName != id+"_参考材料.md" {
		t.Errorf("file name = %q", rec.FileName)
	}
	if rec.CreatedAt != rec.UpdatedAt {
		t.Errorf("fresh note should have created_at == updated_at")
	}
}

func TestSaveSameSecondGetsDistinctIDs(t *testing.T) {
	svc, _ := testService(t)
	// Two saves within the same wall-clock second must not collide.
	a := save(t, svc, "A", "todo")
	b := save(t, svc, "B", "todo")
	if a == b {
		t.Fatalf("ids collided: %q", a)
	}
	records, _ := svc.Notes(context.Background())
	if len(records) != 2 {
		t.Errorf("records = %d, want 2", len(records))
	}
}

func TestGetUnknownIDIsNotFound(t *testing.T) {
	svc, _ := testService(t)
	_, _, err := svc.Note(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetWithMissingFileIsNotFound(t *testing.T) {
	svc, dir := testService(t)
	id := save(t, svc, "Gone", "todo")

	// Remove the file behind the service's back.
	rec, _, _ := svc.Note(context.Background(), id)
	if err := removeFile(dir, rec.FileName); err != nil {
		t.Fatal(err)
	}
	_, _, err := svc.Note(context.Background(), id)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestEditReplacesContentVerbatim(t *testing.T) {
	svc, _ := testService(t)
	id := save(t, svc, "Draft", "todo")

	newContent := "completely new body\nno template sections left\n"
	if _, err := svc.Edit(context.Background(), id, EditInput{Content: newContent}); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	_, content, err := svc.Note(context.Background(), id)
	if err != nil {
		t.Fatalf("Note: %v", err)
	}
	if content != newContent {
		t.Errorf("content = %q, want edited content verbatim", content)
	}
}

func TestEditTitleFromFirstLineWins(t *testing.T) {
	svc, _ := testService(t)
	id := save(t, svc, "Old Title", "todo")

	explicit := "Explicit Title"
	rec, err := svc.Edit(context.Background(), id, EditInput{
		Content: "# Heading Title\nbody",
		Title:   &explicit,
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if rec.Title != "Heading Title" {
		t.Errorf("title = %q, want first-line heading to win", rec.Title)
	}
}

func TestEditExplicitTitleUsedWithoutHeading(t *testing.T) {
	svc, _ := testService(t)
	id := save(t, svc, "Old", "todo")

	explicit := "Renamed"
	rec, err := svc.Edit(context.Background(), id, EditInput{Content: "no heading here", Title: &explicit})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if rec.Title != "Renamed" {
		t.Errorf("title = %q", rec.Title)
	}
}

func TestEditUpdatesTagsAndPinned(t *testing.T) {
	svc, _ := testService(t)
	id := save(t, svc, "N", "todo")

	tags := []string{"x", "y"}
	pinned := true
	rec, err := svc.Edit(context.Background(), id, EditInput{
		Content:  "# N\nbody",
		Tags:     &tags,
		IsPinned: &pinned,
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if len(rec.Tags) != 2 || rec.Tags[1] != "y" {
		t.Errorf("tags = %v", rec.Tags)
	}
	if rec.IsPinned == nil || !*rec.IsPinned {
		t.Error("is_pinned not applied")
	}
}

func TestEditPreservesUnsuppliedFields(t *testing.T) {
	svc, _ := testService(t)
	id := save(t, svc, "N", "todo")

	rec, err := svc.Edit(context.Background(), id, EditInput{Content: "# N\nv2"})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if len(rec.Tags) != 1 || rec.Tags[0] != "t1" {
		t.Errorf("tags should be untouched, got %v", rec.Tags)
	}
	if rec.IsPinned != nil {
		t.Error("is_pinned should stay absent until first set")
	}
}

func TestEditEmptyContentIsValidationError(t *testing.T) {
	svc, _ := testService(t)
	id := save(t, svc, "N", "todo")

	_, err := svc.Edit(context.Background(), id, EditInput{Content: "   "})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestEditUnknownIDIsNotFound(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.Edit(context.Background(), "ghost", EditInput{Content: "x"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteRemovesRecordAndFile(t *testing.T) {
	svc, _ := testService(t)
	id := save(t, svc, "Bye", "todo")

	if err := svc.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	records, _ := svc.Notes(context.Background())
	if len(records) != 0 {
		t.Errorf("records = %v, want empty", records)
	}
	if _, _, err := svc.Note(context.Background(), id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
}

func TestDeleteWithFileAlreadyGoneStillRemovesRecord(t *testing.T) {
	svc, dir := testService(t)
	id := save(t, svc, "Half", "todo")

	rec, _, _ := svc.Note(context.Background(), id)
	if err := removeFile(dir, rec.FileName); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete with missing file: %v", err)
	}
	records, _ := svc.Notes(context.Background())
	if len(records) != 0 {
		t.Errorf("record should be gone, got %v", records)
	}
}

func TestDeleteUnknownIDIsNotFound(t *testing.T) {
	svc, _ := testService(t)
	if err := svc.Delete(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestBatchDeleteCountsOnlyRealRemovals(t *testing.T) {
	svc, _ := testService(t)
	a := save(t, svc, "A", "todo")
	b := save(t, svc, "B", "todo")

	count, err := svc.BatchDelete(context.Background(), []string{a, "not-real", b, "also-fake"})
	if err != nil {
		t.Fatalf("BatchDelete: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	records, _ := svc.Notes(context.Background())
	if len(records) != 0 {
		t.Errorf("records = %v, want empty", records)
	}
}

func TestBatchDeleteEmptyListIsValidationError(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.BatchDelete(context.Background(), nil)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestSearchMatchesTitleOrSummaryCaseInsensitive(t *testing.T) {
	svc, _ := testService(t)
	save(t, svc, "Measurement results", "参考材料")
	save(t, svc, "Unrelated", "todo")

	results, err := svc.Search(context.Background(), "MEASUREMENT", "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Measurement results" {
		t.Errorf("results = %+v", results)
	}

	// Summary matches too.
	results, _ = svc.Search(context.Background(), "summary of Unrelated", "")
	if len(results) != 1 || results[0].Title != "Unrelated" {
		t.Errorf("summary match results = %+v", results)
	}
}

func TestSearchEmptyQueryFiltersByType(t *testing.T) {
	svc, _ := testService(t)
	save(t, svc, "A", "todo")
	save(t, svc, "B", "todo")
	save(t, svc, "C", "会议记录")

	results, err := svc.Search(context.Background(), "", "todo")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("results = %+v, want the two todo records", results)
	}
}

func TestSearchKeepsIndexOrder(t *testing.T) {
	svc, _ := testService(t)
	save(t, svc, "First note", "todo")
	save(t, svc, "Second note", "todo")

	results, _ := svc.Search(context.Background(), "note", "")
	if len(results) != 2 || results[0].Title != "First note" {
		t.Errorf("results out of order: %+v", results)
	}
}

func TestTypeSanitizedInFileName(t *testing.T) {
	svc, _ := testService(t)
	rec, err := svc.SaveNote(context.Background(), SaveInput{Title: "T", Type: "a/b\\c"})
	if err != nil {
		t.Fatalf("SaveNote: %v", err)
	}
	if strings.ContainsAny(rec.FileName, "/\\") {
		t.Errorf("file name not sanitized: %q", rec.FileName)
	}
}

func removeFile(dir, name string) error {
	return os.Remove(filepath.Join(dir, name))
}
