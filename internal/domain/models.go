package domain

type SessionStatus string

const (
	StatusProcessing  SessionStatus = "processing"
	StatusTranscribed SessionStatus = "transcribed"
	StatusReady       SessionStatus = "ready"
	StatusFailed      SessionStatus = "failed"
)

// Session is a single recorded-audio upload and everything derived from it.
// Insights is non-nil exactly when Status is StatusReady. Attempt counts
// processing runs; writes from a superseded run are fenced on it.
type Session struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	AudioPath   string          `json:"audioPath,omitempty"`
	Transcript  string          `json:"transcript"`
	Insights    *InsightsResult `json:"insights"`
	Status      SessionStatus   `json:"status"`
	Progress    int             `json:"progress"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   int64           `json:"createdAt"`
	ProcessedAt int64           `json:"processedAt,omitempty"`
	Attempt     int64           `json:"-"`
}

type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type InsightsResult struct {
	Summary     string      `json:"summary"`
	KeyConcepts []string    `json:"keyConcepts"`
	Flashcards  []Flashcard `json:"flashcards"`
	ActionItems []string    `json:"actionItems"`
}

type OutlineHighlight struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// OutlineItem is a dated (or undated) entry from a course outline.
// Priority is "high", "med" or "low", empty when the item has no date.
type OutlineItem struct {
	Text     string `json:"text"`
	Date     string `json:"date,omitempty"`
	Priority string `json:"priority,omitempty"`
}

type OutlineResult struct {
	Highlights  []OutlineHighlight `json:"highlights"`
	Exams       []OutlineItem      `json:"exams"`
	Assignments []OutlineItem      `json:"assignments"`
}
