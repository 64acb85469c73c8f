package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/miladpirayegar-hash/scholar/internal/domain"
)

// CompletionClient is the chat-completion call the generators depend on.
type CompletionClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

var insightsSystemPrompt = `You are a study assistant that turns lecture transcripts into revision material.

Respond ONLY with valid JSON in the following format:
{
  "summary": "concise summary of the lecture, at least 20 characters",
  "keyConcepts": ["between 1 and 6 key concepts"],
  "flashcards": [{"question": "...", "answer": "..."}],
  "actionItems": ["between 1 and 5 concrete study tasks"]
}

Rules:
- at most 5 flashcards; every question and answer must be at least 5 characters
- keyConcepts must contain between 1 and 6 entries
- actionItems must contain between 1 and 5 entries
Do not include any other text or explanation.`

// InsightsGenerator turns a transcript into a validated InsightsResult via
// one chat-completion call. A malformed response is a terminal failure for
// the invocation; the caller decides whether to re-trigger the pipeline.
type InsightsGenerator struct {
	client CompletionClient
}

func NewInsightsGenerator(client CompletionClient) *InsightsGenerator {
	return &InsightsGenerator{client: client}
}

func (g *InsightsGenerator) Generate(ctx context.Context, transcript string) (domain.InsightsResult, error) {
	user := fmt.Sprintf("Lecture transcript:\n\n%s", transcript)

	raw, err := g.client.Complete(ctx, insightsSystemPrompt, user)
	if err != nil {
		return domain.InsightsResult{}, err
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(StripCodeFence(raw)), &obj); err != nil {
		return domain.InsightsResult{}, &ParseError{Err: err}
	}

	result, violations := ValidateInsights(obj)
	if len(violations) > 0 {
		return domain.InsightsResult{}, &SchemaError{Schema: "insights", Violations: violations}
	}

	return result, nil
}
