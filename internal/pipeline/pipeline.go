// Package pipeline drives a session from raw upload to validated insights.
//
// Each processing run is a single goroutine walking the session through
// processing → transcribed → ready, with failed reachable from any step.
// The run writes only to its own session record, fenced on the attempt it
// started with, so a reprocess that supersedes an in-flight run simply
// causes the older run's writes to be discarded. Callers observe progress
// by polling the registry; there is no cancellation.
package pipeline

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/miladpirayegar-hash/scholar/internal/domain"
	"github.com/miladpirayegar-hash/scholar/internal/storage"
)

// Transcripts shorter than this (after trimming) are treated as silence
// and never sent to the completion provider.
const minTranscriptChars = 20

type Transcriber interface {
	Transcribe(ctx context.Context, r io.Reader, filename, mimeType string) (string, error)
}

type InsightsSource interface {
	Generate(ctx context.Context, transcript string) (domain.InsightsResult, error)
}

type AudioPreparer interface {
	PrepareForTranscription(path string) (string, error)
}

type Pipeline struct {
	store    *storage.SessionStore
	audio    AudioPreparer
	stt      Transcriber
	insights InsightsSource
}

func New(store *storage.SessionStore, audio AudioPreparer, stt Transcriber, insights InsightsSource) *Pipeline {
	return &Pipeline{store: store, audio: audio, stt: stt, insights: insights}
}

// Start launches a processing attempt for the session and returns
// immediately. Failures are recorded on the session and observable only
// through subsequent polls.
func (p *Pipeline) Start(id string) {
	go p.run(id)
}

func (p *Pipeline) run(id string) {
	attempt, err := p.store.BeginAttempt(id)
	if err != nil {
		log.Printf("pipeline: %v", err)
		return
	}

	sess, err := p.store.Get(id)
	if err != nil {
		log.Printf("pipeline: %v", err)
		return
	}

	p.store.Apply(id, attempt, func(s *domain.Session) {
		s.Status = domain.StatusProcessing
		s.Progress = 10
	})

	transcript, err := p.transcribe(sess)
	if err != nil {
		p.fail(id, attempt, err)
		return
	}

	p.store.Apply(id, attempt, func(s *domain.Session) {
		s.Transcript = transcript
		s.Status = domain.StatusTranscribed
		s.Progress = 60
	})

	var insights domain.InsightsResult
	if len(strings.TrimSpace(transcript)) < minTranscriptChars {
		insights = FallbackInsights()
	} else {
		insights, err = p.insights.Generate(context.Background(), transcript)
		if err != nil {
			p.fail(id, attempt, err)
			return
		}
	}

	p.store.Apply(id, attempt, func(s *domain.Session) {
		s.Insights = &insights
		s.Status = domain.StatusReady
		s.Progress = 100
		s.ProcessedAt = time.Now().Unix()
	})

	log.Printf("session %s ready (attempt %d)", id, attempt)
}

func (p *Pipeline) transcribe(sess domain.Session) (string, error) {
	path, err := p.audio.PrepareForTranscription(sess.AudioPath)
	if err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	return p.stt.Transcribe(context.Background(), file, filepath.Base(path), "")
}

func (p *Pipeline) fail(id string, attempt int64, cause error) {
	p.store.Apply(id, attempt, func(s *domain.Session) {
		s.Status = domain.StatusFailed
		s.Error = cause.Error()
		s.Progress = 0
	})
	log.Printf("session %s failed: %v", id, cause)
}

// FallbackInsights is the fixed result for recordings with no usable
// speech. Silence must still yield a well-formed, user-facing result
// without spending a completion call.
func FallbackInsights() domain.InsightsResult {
	return domain.InsightsResult{
		Summary:     "No audible speech was detected in this recording, so no study insights could be generated.",
		KeyConcepts: []string{},
		Flashcards:  []domain.Flashcard{},
		ActionItems: []string{
			"Re-record the session in a quieter environment",
			"Move the microphone closer to the speaker",
			"Avoid long pauses and silences while recording",
		},
	}
}
