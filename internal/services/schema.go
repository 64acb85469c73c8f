package services

import (
	"fmt"

	"github.com/miladpirayegar-hash/scholar/internal/domain"
)

const (
	minSummaryChars   = 20
	maxKeyConcepts    = 6
	maxFlashcards     = 5
	minFlashcardChars = 5
	maxActionItems    = 5
)

var outlinePriorities = []string{"high", "med", "low"}

// ValidateInsights checks a parsed completion response against the insights
// contract: field presence, primitive types, array bounds and minimum string
// lengths. Validation is purely structural. On success the narrowly-typed
// result is returned with a nil violation list; otherwise every failing
// field is reported.
func ValidateInsights(obj map[string]any) (domain.InsightsResult, []Violation) {
	out := domain.InsightsResult{
		KeyConcepts: []string{},
		Flashcards:  []domain.Flashcard{},
		ActionItems: []string{},
	}
	var violations []Violation

	summary, errs := stringAt(obj, "summary", "summary", minSummaryChars)
	violations = append(violations, errs...)
	out.Summary = summary

	concepts, errs := stringListAt(obj, "keyConcepts", 1, maxKeyConcepts)
	violations = append(violations, errs...)
	if concepts != nil {
		out.KeyConcepts = concepts
	}

	items, errs := stringListAt(obj, "actionItems", 1, maxActionItems)
	violations = append(violations, errs...)
	if items != nil {
		out.ActionItems = items
	}

	cards, errs := flashcardsAt(obj)
	violations = append(violations, errs...)
	if cards != nil {
		out.Flashcards = cards
	}

	if len(violations) > 0 {
		return domain.InsightsResult{}, violations
	}
	return out, nil
}

// ValidateOutline checks a parsed completion response against the outline
// contract. Highlights require text, category and reason; exam and
// assignment entries require text, with date and priority optional.
func ValidateOutline(obj map[string]any) (domain.OutlineResult, []Violation) {
	out := domain.OutlineResult{
		Highlights:  []domain.OutlineHighlight{},
		Exams:       []domain.OutlineItem{},
		Assignments: []domain.OutlineItem{},
	}
	var violations []Violation

	raw, ok := obj["highlights"]
	if !ok || raw == nil {
		violations = append(violations, Violation{"highlights", "required"})
	} else if list, isList := raw.([]any); !isList {
		violations = append(violations, Violation{"highlights", "must be an array"})
	} else {
		for i, entry := range list {
			path := fmt.Sprintf("highlights[%d]", i)
			item, isObj := entry.(map[string]any)
			if !isObj {
				violations = append(violations, Violation{path, "must be an object"})
				continue
			}
			highlight := domain.OutlineHighlight{}
			var errs []Violation
			highlight.Text, errs = stringAt(item, "text", path+".text", 1)
			violations = append(violations, errs...)
			highlight.Category, errs = stringAt(item, "category", path+".category", 1)
			violations = append(violations, errs...)
			highlight.Reason, errs = stringAt(item, "reason", path+".reason", 1)
			violations = append(violations, errs...)
			out.Highlights = append(out.Highlights, highlight)
		}
	}

	exams, errs := outlineItemsAt(obj, "exams")
	violations = append(violations, errs...)
	if exams != nil {
		out.Exams = exams
	}

	assignments, errs := outlineItemsAt(obj, "assignments")
	violations = append(violations, errs...)
	if assignments != nil {
		out.Assignments = assignments
	}

	if len(violations) > 0 {
		return domain.OutlineResult{}, violations
	}
	return out, nil
}

func stringAt(obj map[string]any, key, path string, minLen int) (string, []Violation) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return "", []Violation{{path, "required"}}
	}
	value, isString := raw.(string)
	if !isString {
		return "", []Violation{{path, "must be a string"}}
	}
	if len(value) < minLen {
		return "", []Violation{{path, fmt.Sprintf("must be at least %d characters", minLen)}}
	}
	return value, nil
}

func stringListAt(obj map[string]any, key string, minItems, maxItems int) ([]string, []Violation) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return nil, []Violation{{key, "required"}}
	}
	list, isList := raw.([]any)
	if !isList {
		return nil, []Violation{{key, "must be an array"}}
	}
	if len(list) < minItems {
		return nil, []Violation{{key, fmt.Sprintf("must have at least %d items", minItems)}}
	}
	if len(list) > maxItems {
		return nil, []Violation{{key, fmt.Sprintf("must have at most %d items", maxItems)}}
	}

	values := make([]string, 0, len(list))
	var violations []Violation
	for i, entry := range list {
		value, isString := entry.(string)
		if !isString {
			violations = append(violations, Violation{fmt.Sprintf("%s[%d]", key, i), "must be a string"})
			continue
		}
		values = append(values, value)
	}
	if len(violations) > 0 {
		return nil, violations
	}
	return values, nil
}

func flashcardsAt(obj map[string]any) ([]domain.Flashcard, []Violation) {
	raw, ok := obj["flashcards"]
	if !ok || raw == nil {
		return nil, []Violation{{"flashcards", "required"}}
	}
	list, isList := raw.([]any)
	if !isList {
		return nil, []Violation{{"flashcards", "must be an array"}}
	}
	if len(list) > maxFlashcards {
		return nil, []Violation{{"flashcards", fmt.Sprintf("must have at most %d items", maxFlashcards)}}
	}

	cards := make([]domain.Flashcard, 0, len(list))
	var violations []Violation
	for i, entry := range list {
		path := fmt.Sprintf("flashcards[%d]", i)
		item, isObj := entry.(map[string]any)
		if !isObj {
			violations = append(violations, Violation{path, "must be an object"})
			continue
		}

		card := domain.Flashcard{}
		var errs []Violation
		card.Question, errs = stringAt(item, "question", path+".question", minFlashcardChars)
		violations = append(violations, errs...)
		card.Answer, errs = stringAt(item, "answer", path+".answer", minFlashcardChars)
		violations = append(violations, errs...)
		cards = append(cards, card)
	}
	if len(violations) > 0 {
		return nil, violations
	}
	return cards, nil
}

func outlineItemsAt(obj map[string]any, key string) ([]domain.OutlineItem, []Violation) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return nil, []Violation{{key, "required"}}
	}
	list, isList := raw.([]any)
	if !isList {
		return nil, []Violation{{key, "must be an array"}}
	}

	items := make([]domain.OutlineItem, 0, len(list))
	var violations []Violation
	for i, entry := range list {
		path := fmt.Sprintf("%s[%d]", key, i)
		rawItem, isObj := entry.(map[string]any)
		if !isObj {
			violations = append(violations, Violation{path, "must be an object"})
			continue
		}

		item := domain.OutlineItem{}
		var errs []Violation
		item.Text, errs = stringAt(rawItem, "text", path+".text", 1)
		violations = append(violations, errs...)

		if raw, present := rawItem["date"]; present && raw != nil {
			date, isString := raw.(string)
			if !isString {
				violations = append(violations, Violation{path + ".date", "must be a string"})
			} else {
				item.Date = date
			}
		}

		if raw, present := rawItem["priority"]; present && raw != nil {
			priority, isString := raw.(string)
			switch {
			case !isString:
				violations = append(violations, Violation{path + ".priority", "must be a string"})
			case !contains(outlinePriorities, priority):
				violations = append(violations, Violation{path + ".priority", "must be one of high, med, low"})
			default:
				item.Priority = priority
			}
		}

		items = append(items, item)
	}
	if len(violations) > 0 {
		return nil, violations
	}
	return items, nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
