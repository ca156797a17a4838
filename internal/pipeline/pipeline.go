// Package pipeline implements the three LLM-backed content operations:
// classify, suggest-merge, and organize. Replies that cannot be parsed
// never surface as errors — each operation substitutes its fixed
// fallback payload and marks it, so callers that care can tell.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starling/clipnote/internal/llm"
	"github.com/starling/clipnote/internal/models"
)

// DefaultNoteType is the generic-knowledge category the classifier
// falls back to when its reply cannot be decoded.
const DefaultNoteType = "零散知识"

// fallbackReason mirrors the backend's wording for undecodable replies.
const fallbackReason = "AI 响应格式处理中"

// Index is the read-only view of the note index the merge suggester
// needs for candidate lookup.
type Index interface {
	Load() ([]models.IndexRecord, error)
}

// Classification is the result of the classify operation.
type Classification struct {
	IsNote     bool    `json:"is_note"`
	NoteType   string  `json:"note_type"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	// Fallback is set when the model reply could not be parsed and this
	// value is the hardcoded substitute.
	Fallback bool `json:"fallback,omitempty"`
}

// MergeSuggestion is the result of the suggest-merge operation.
// MergeTarget is nil when no merge is recommended.
type MergeSuggestion struct {
	ShouldMerge bool    `json:"should_merge"`
	MergeTarget *string `json:"merge_target"`
	MergeReason string  `json:"merge_reason"`
	Confidence  float64 `json:"confidence"`
	Fallback    bool    `json:"fallback,omitempty"`
}

// KeyDate is one extracted date with its event description.
type KeyDate struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

// Organized is the result of the organize operation.
type Organized struct {
	OrganizedMarkdown string    `json:"organized_markdown"`
	KeyDates          []KeyDate `json:"key_dates"`
	KeyPoints         []string  `json:"key_points"`
	Summary           string    `json:"summary"`
	Fallback          bool      `json:"fallback,omitempty"`
}

// Pipeline runs the content operations against a model backend.
type Pipeline struct {
	client llm.Client
	index  Index
}

// New creates a pipeline. index is only consulted by SuggestMerge.
func New(client llm.Client, index Index) *Pipeline {
	return &Pipeline{client: client, index: index}
}

// Classify decides whether content should become a note and of which
// type. Transport failures propagate; undecodable replies yield the
// fixed fallback classification.
func (p *Pipeline) Classify(ctx context.Context, content string) (*Classification, error) {
	reply, err := p.client.Chat(ctx, classifySystem, classifyPrompt(content))
	if err != nil {
		return nil, fmt.Errorf("pipeline: classify: %w", err)
	}

	var out Classification
	if jsonErr := json.Unmarshal([]byte(stripFences(reply)), &out); jsonErr != nil {
		slog.Warn("classify reply not decodable, using fallback", slog.String("error", jsonErr.Error()))
		return &Classification{
			IsNote:     true,
			NoteType:   DefaultNoteType,
			Confidence: 0.7,
			Reason:     fallbackReason,
			Fallback:   true,
		}, nil
	}
	return &out, nil
}

// SuggestMerge asks whether content should be merged into an existing
// note of the same type, offering at most five candidate titles from
// the index in stored order.
func (p *Pipeline) SuggestMerge(ctx context.Context, content, noteType string) (*MergeSuggestion, error) {
	titles := p.candidateTitles(noteType, 5)

	reply, err := p.client.Chat(ctx, mergeSystem, mergePrompt(content, noteType, titles))
	if err != nil {
		return nil, fmt.Errorf("pipeline: suggest merge: %w", err)
	}

	var out MergeSuggestion
	if jsonErr := json.Unmarshal([]byte(stripFences(reply)), &out); jsonErr != nil {
		slog.Warn("merge reply not decodable, using fallback", slog.String("error", jsonErr.Error()))
		return &MergeSuggestion{
			ShouldMerge: false,
			MergeTarget: nil,
			MergeReason: fallbackReason,
			Confidence:  0.5,
			Fallback:    true,
		}, nil
	}
	return &out, nil
}

// Organize restructures content into Markdown and extracts key dates,
// key points, and a one-line summary. The fallback echoes the raw
// input unorganized.
func (p *Pipeline) Organize(ctx context.Context, content, noteType string) (*Organized, error) {
	reply, err := p.client.Chat(ctx, organizeSystem, organizePrompt(content, noteType))
	if err != nil {
		return nil, fmt.Errorf("pipeline: organize: %w", err)
	}

	var out Organized
	if jsonErr := json.Unmarshal([]byte(stripFences(reply)), &out); jsonErr != nil {
		slog.Warn("organize reply not decodable, using fallback", slog.String("error", jsonErr.Error()))
		return &Organized{
			OrganizedMarkdown: content,
			KeyDates:          []KeyDate{},
			KeyPoints:         []string{},
			Summary:           "Content received",
			Fallback:          true,
		}, nil
	}
	if out.KeyDates == nil {
		out.KeyDates = []KeyDate{}
	}
	if out.KeyPoints == nil {
		out.KeyPoints = []string{}
	}
	return &out, nil
}

// candidateTitles returns up to limit titles of same-type notes, in
// index order. An unreadable index degrades to no candidates; the
// suggestion still runs.
func (p *Pipeline) candidateTitles(noteType string, limit int) []string {
	records, err := p.index.Load()
	if err != nil {
		slog.Warn("index unavailable for merge candidates", slog.String("error", err.Error()))
		return nil
	}
	var titles []string
	for _, r := range records {
		if r.Type != noteType {
			continue
		}
		titles = append(titles, r.Title)
		if len(titles) == limit {
			break
		}
	}
	return titles
}
