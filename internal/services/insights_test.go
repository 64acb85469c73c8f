package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubCompletion struct {
	reply    string
	err      error
	calls    int
	lastUser string
}

func (s *stubCompletion) Complete(ctx context.Context, system, user string) (string, error) {
	s.calls++
	s.lastUser = user
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

const fencedInsightsReply = "```json\n" + `{
  "summary": "The lecture explained photosynthesis in two stages.",
  "keyConcepts": ["light reactions", "Calvin cycle"],
  "flashcards": [{"question": "What pigment absorbs light?", "answer": "Chlorophyll"}],
  "actionItems": ["Summarise both stages from memory"]
}` + "\n```"

func TestGenerateInsightsFromFencedReply(t *testing.T) {
	client := &stubCompletion{reply: fencedInsightsReply}
	gen := NewInsightsGenerator(client)

	result, err := gen.Generate(context.Background(), "a transcript about photosynthesis")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if result.Summary != "The lecture explained photosynthesis in two stages." {
		t.Fatalf("unexpected summary: %q", result.Summary)
	}
	if len(result.KeyConcepts) != 2 || len(result.Flashcards) != 1 || len(result.ActionItems) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if client.calls != 1 {
		t.Fatalf("expected one completion call, got %d", client.calls)
	}
}

func TestGenerateInsightsSchemaViolation(t *testing.T) {
	// Valid JSON inside a fence, but seven key concepts.
	reply := "```json\n" + `{
  "summary": "A perfectly long summary of the recorded lecture.",
  "keyConcepts": ["a", "b", "c", "d", "e", "f", "g"],
  "flashcards": [],
  "actionItems": ["Review notes"]
}` + "\n```"

	gen := NewInsightsGenerator(&stubCompletion{reply: reply})

	_, err := gen.Generate(context.Background(), "transcript")
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		t.Fatalf("schema violation must not be reported as a parse error")
	}
	if !strings.Contains(err.Error(), "keyConcepts") {
		t.Fatalf("error should name the violated field: %v", err)
	}
}

func TestGenerateInsightsParseError(t *testing.T) {
	gen := NewInsightsGenerator(&stubCompletion{reply: "Sorry, I cannot help with that."})

	_, err := gen.Generate(context.Background(), "transcript")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestGenerateInsightsProviderErrorPassthrough(t *testing.T) {
	cause := &ProviderError{Op: "completion", Err: errors.New("connection refused")}
	gen := NewInsightsGenerator(&stubCompletion{err: cause})

	_, err := gen.Generate(context.Background(), "transcript")
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}

const fencedOutlineReply = "```json\n" + `{
  "highlights": [{"text": "Attendance counts", "category": "policy", "reason": "5% of the grade"}],
  "exams": [{"text": "Final exam", "date": "2026-12-15", "priority": "low"}],
  "assignments": [{"text": "Essay draft", "date": null, "priority": null}]
}` + "\n```"

func TestExtractOutline(t *testing.T) {
	client := &stubCompletion{reply: fencedOutlineReply}
	extractor := NewOutlineExtractor(client, 12000)

	result, err := extractor.Extract(context.Background(), "syllabus text")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if len(result.Highlights) != 1 || len(result.Exams) != 1 || len(result.Assignments) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Exams[0].Priority != "low" {
		t.Fatalf("unexpected priority: %q", result.Exams[0].Priority)
	}
	if result.Assignments[0].Priority != "" {
		t.Fatalf("null priority should map to empty string: %+v", result.Assignments[0])
	}
}

func TestExtractOutlineTruncatesInput(t *testing.T) {
	client := &stubCompletion{reply: fencedOutlineReply}
	extractor := NewOutlineExtractor(client, 50)

	long := strings.Repeat("syllabus ", 100)
	if _, err := extractor.Extract(context.Background(), long); err != nil {
		t.Fatalf("extract: %v", err)
	}

	if strings.Contains(client.lastUser, long) {
		t.Fatalf("prompt should not contain the full oversized document")
	}
	if !strings.Contains(client.lastUser, long[:50]) {
		t.Fatalf("prompt should contain the truncated document head")
	}
}

func TestExtractOutlineBadPriorityIsSchemaError(t *testing.T) {
	reply := strings.Replace(fencedOutlineReply, `"low"`, `"urgent"`, 1)
	extractor := NewOutlineExtractor(&stubCompletion{reply: reply}, 12000)

	_, err := extractor.Extract(context.Background(), "syllabus text")
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}
