// Package noteservice composes the index store and the note store into
// the save / fetch / edit / delete / search operations behind the API.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starling/clipnote/internal/apperr"
	"github.com/starling/clipnote/internal/indexstore"
	"github.com/starling/clipnote/internal/markdown"
	"github.com/starling/clipnote/internal/models"
	"github.com/starling/clipnote/internal/storage"
)

// Service coordinates note files and their index records.
type Service struct {
	store storage.Provider
	index *indexstore.Store
}

// NewService creates a note service.
func NewService(store storage.Provider, index *indexstore.Store) *Service {
	return &Service{store: store, index: index}
}

// SaveInput is the payload for SaveNote.
type SaveInput struct {
	Title             string
	Type              string
	OriginalContent   string
	OrganizedMarkdown string
	Summary           string
	Tags              []string
}

// EditInput is the payload for Edit. Content always replaces the whole
// note file; the pointer fields are applied only when supplied.
type EditInput struct {
	Content  string
	Title    *string
	Tags     *[]string
	IsPinned *bool
}

// SaveNote writes a new note document and appends its index record.
// The id is the creation timestamp at second resolution; when a save
// lands in the same second as an existing record, a short random suffix
// keeps the id (and therefore the file name) unique.
func (s *Service) SaveNote(_ context.Context, in SaveInput) (*models.IndexRecord, error) {
	now := time.Now()
	var saved models.IndexRecord

	err := s.index.Mutate(func(records []models.IndexRecord) ([]models.IndexRecord, error) {
		id := uniqueID(records, now)
		fileName := id + "_" + sanitizeType(in.Type) + ".md"

		doc := markdown.ComposeNote(in.Title, in.Type, id, in.OriginalContent, in.OrganizedMarkdown, in.Summary, now)
		if err := s.store.Write(fileName, []byte(doc)); err != nil {
			return nil, err
		}

		tags := in.Tags
		if tags == nil {
			tags = []string{}
		}
		saved = models.IndexRecord{
			ID:        id,
			Title:     in.Title,
			Type:      in.Type,
			Summary:   in.Summary,
			FileName:  fileName,
			CreatedAt: now.Format(time.RFC3339),
			UpdatedAt: now.Format(time.RFC3339),
			Tags:      tags,
		}
		return append(records, saved), nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// Notes returns the full index in stored order.
func (s *Service) Notes(_ context.Context) ([]models.IndexRecord, error) {
	return s.index.Load()
}

// Note returns the index record and file content for one note.
// A record whose file is missing counts as not found.
func (s *Service) Note(_ context.Context, id string) (*models.IndexRecord, string, error) {
	records, err := s.index.Load()
	if err != nil {
		return nil, "", err
	}
	rec := findRecord(records, id)
	if rec == nil {
		return nil, "", apperr.ErrNotFound
	}
	data, err := s.store.Read(rec.FileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", apperr.ErrNotFound
		}
		return nil, "", err
	}
	return rec, string(data), nil
}

// Edit replaces the whole note file and refreshes the index record.
// When the new content's first line is an H1 title it wins over any
// explicitly supplied title. updated_at is always refreshed.
func (s *Service) Edit(_ context.Context, id string, in EditInput) (*models.IndexRecord, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("content is required: %w", apperr.ErrValidation)
	}

	var updated models.IndexRecord
	err := s.index.Mutate(func(records []models.IndexRecord) ([]models.IndexRecord, error) {
		i := findIndex(records, id)
		if i < 0 {
			return nil, apperr.ErrNotFound
		}
		rec := &records[i]

		if err := s.store.Write(rec.FileName, []byte(in.Content)); err != nil {
			return nil, err
		}

		if title := markdown.Title(in.Content); title != "" {
			rec.Title = title
		} else if in.Title != nil && *in.Title != "" {
			rec.Title = *in.Title
		}
		if in.Tags != nil {
			rec.Tags = *in.Tags
		}
		if in.IsPinned != nil {
			rec.IsPinned = in.IsPinned
		}
		rec.UpdatedAt = time.Now().Format(time.RFC3339)

		updated = *rec
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the note's file (best effort) and its index record
// (always, when matched). A missing file does not block record removal.
func (s *Service) Delete(_ context.Context, id string) error {
	return s.index.Mutate(func(records []models.IndexRecord) ([]models.IndexRecord, error) {
		i := findIndex(records, id)
		if i < 0 {
			return nil, apperr.ErrNotFound
		}
		if err := s.store.Delete(records[i].FileName); err != nil {
			slog.Warn("note file removal failed, removing record anyway",
				slog.String("id", id),
				slog.String("file", records[i].FileName),
				slog.String("error", err.Error()))
		}
		return append(records[:i], records[i+1:]...), nil
	})
}

// BatchDelete applies Delete semantics per id, silently skipping
// unmatched ids, and returns the number of records actually removed.
func (s *Service) BatchDelete(_ context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("no note ids provided: %w", apperr.ErrValidation)
	}

	removed := 0
	err := s.index.Mutate(func(records []models.IndexRecord) ([]models.IndexRecord, error) {
		for _, id := range ids {
			i := findIndex(records, id)
			if i < 0 {
				continue
			}
			if err := s.store.Delete(records[i].FileName); err != nil {
				slog.Warn("note file removal failed, removing record anyway",
					slog.String("id", id),
					slog.String("error", err.Error()))
			}
			records = append(records[:i], records[i+1:]...)
			removed++
		}
		return records, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Search matches query case-insensitively against title or summary and,
// when noteType is non-empty, filters by exact type. Results keep index
// order. An empty query matches every record.
func (s *Service) Search(_ context.Context, query, noteType string) ([]models.IndexRecord, error) {
	records, err := s.index.Load()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	results := []models.IndexRecord{}
	for _, r := range records {
		textMatch := strings.Contains(strings.ToLower(r.Title), q) ||
			strings.Contains(strings.ToLower(r.Summary), q)
		typeMatch := noteType == "" || r.Type == noteType
		if textMatch && typeMatch {
			results = append(results, r)
		}
	}
	return results, nil
}

// uniqueID derives a second-resolution timestamp id, disambiguated with
// a random fragment when a record with the same id already exists.
func uniqueID(records []models.IndexRecord, now time.Time) string {
	id := now.Format("20060102_150405")
	if findIndex(records, id) < 0 {
		return id
	}
	return id + "_" + uuid.NewString()[:8]
}

// sanitizeType makes a note type safe to embed in a file name.
func sanitizeType(noteType string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", "..", "-", " ", "-")
	out := replacer.Replace(noteType)
	if out == "" {
		out = "note"
	}
	return out
}

func findIndex(records []models.IndexRecord, id string) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func findRecord(records []models.IndexRecord, id string) *models.IndexRecord {
	if i := findIndex(records, id); i >= 0 {
		rec := records[i]
		return &rec
	}
	return nil
}
