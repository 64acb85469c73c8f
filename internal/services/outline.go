package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/miladpirayegar-hash/scholar/internal/domain"
)

var outlineSystemPrompt = `You analyse course outlines and syllabi for students.

Respond ONLY with valid JSON in the following format:
{
  "highlights": [{"text": "...", "category": "...", "reason": "..."}],
  "exams": [{"text": "...", "date": "YYYY-MM-DD or null", "priority": "high|med|low or null"}],
  "assignments": [{"text": "...", "date": "YYYY-MM-DD or null", "priority": "high|med|low or null"}]
}

Priority rules for dated exams and assignments:
- date within 7 days of the term start: "high"
- date within 21 days of the term start: "med"
- any later date: "low"
- items without a date: null priority
Do not include any other text or explanation.`

// OutlineExtractor derives structured course-outline data from document
// text. Input is truncated to a character budget before being sent to the
// provider; priority classification of dated items is performed by the
// model under the prompt rules, not verified locally.
type OutlineExtractor struct {
	client   CompletionClient
	maxChars int
}

func NewOutlineExtractor(client CompletionClient, maxChars int) *OutlineExtractor {
	return &OutlineExtractor{client: client, maxChars: maxChars}
}

func (e *OutlineExtractor) Extract(ctx context.Context, text string) (domain.OutlineResult, error) {
	if e.maxChars > 0 && len(text) > e.maxChars {
		text = text[:e.maxChars]
	}

	user := fmt.Sprintf("Course outline document:\n\n%s", text)

	raw, err := e.client.Complete(ctx, outlineSystemPrompt, user)
	if err != nil {
		return domain.OutlineResult{}, err
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(StripCodeFence(raw)), &obj); err != nil {
		return domain.OutlineResult{}, &ParseError{Err: err}
	}

	result, violations := ValidateOutline(obj)
	if len(violations) > 0 {
		return domain.OutlineResult{}, &SchemaError{Schema: "outline", Violations: violations}
	}

	return result, nil
}
