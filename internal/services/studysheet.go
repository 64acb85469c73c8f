package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/miladpirayegar-hash/scholar/internal/domain"
)

// SheetService renders a session's insights into a printable study sheet.
type SheetService struct{}

func NewSheetService() *SheetService {
	return &SheetService{}
}

func (s *SheetService) Render(sess domain.Session, outPath string) error {
	if sess.Insights == nil {
		return errors.New("session has no insights to render")
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure sheet directory: %w", err)
	}

	insights := sess.Insights
	createdAt := time.Unix(sess.CreatedAt, 0).Local()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Study sheet %s", sess.ID), false)
	pdf.SetAuthor("scholar", false)
	pdf.AddPage()

	title := strings.TrimSpace(sess.Title)
	if title == "" {
		title = "Study session"
	}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 6, fmt.Sprintf("Recorded: %s", createdAt.Format("02/01/2006 15:04")))
	pdf.Ln(12)

	s.writeSection(pdf, "Summary", []string{insights.Summary}, false)

	if len(insights.KeyConcepts) > 0 {
		s.writeSection(pdf, "Key concepts", insights.KeyConcepts, true)
	}

	if len(insights.Flashcards) > 0 {
		lines := make([]string, 0, len(insights.Flashcards)*2)
		for _, card := range insights.Flashcards {
			lines = append(lines, fmt.Sprintf("Q: %s", card.Question))
			lines = append(lines, fmt.Sprintf("A: %s", card.Answer))
		}
		s.writeSection(pdf, "Flashcards", lines, false)
	}

	if len(insights.ActionItems) > 0 {
		s.writeSection(pdf, "Action items", insights.ActionItems, true)
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write study sheet: %w", err)
	}

	return nil
}

func (s *SheetService) writeSection(pdf *gofpdf.Fpdf, title string, lines []string, bullet bool) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, title)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if bullet {
			line = fmt.Sprintf("• %s", line)
		}
		pdf.MultiCell(0, 6, line, "", "L", false)
	}
	pdf.Ln(8)
}
