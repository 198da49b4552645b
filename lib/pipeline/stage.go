// Package pipeline implements the incremental enrichment stages. Every stage
// is the same pattern: select a bounded batch of movies that carry no
// processed-marker yet, resolve each one against an external or derived
// source, and commit the result one movie at a time. Because the marker is
// the committed row itself, a run killed at any point resumes correctly on
// the next invocation with no extra bookkeeping.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/user/truestory/models"
)

// Outcome is what Process established for one movie.
type Outcome int

const (
	// OutcomeFound means the source had data and it was committed.
	OutcomeFound Outcome = iota
	// OutcomeAbsent means the source was consulted and had nothing; the
	// explicit absence marker was committed so the movie is never reselected.
	OutcomeAbsent
)

// Stage is one enrichment step. Select returns up to limit unprocessed movies
// in primary-key order; Process resolves a single movie and commits both the
// result and its processed-marker before returning.
type Stage struct {
	Name   string
	Logger *slog.Logger

	// Delay is the minimum pause before each external call.
	Delay time.Duration

	Select  func(ctx context.Context, limit int) ([]models.Movie, error)
	Process func(ctx context.Context, movie models.Movie) (Outcome, error)
}

// RunBatch advances the stage by at most maxItems movies and returns how many
// were committed (found or explicitly absent). A movie whose resolution fails
// is logged and skipped — it stays unmarked and is retried on a later run; it
// never aborts the rest of the batch. Only a failed Select is fatal.
func (s *Stage) RunBatch(ctx context.Context, maxItems int) (int, error) {
	movies, err := s.Select(ctx, maxItems)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to select batch: %w", s.Name, err)
	}

	if len(movies) == 0 {
		s.Logger.Info("Nothing left to process", slog.String("stage", s.Name))
		return 0, nil
	}

	s.Logger.Info("Processing batch",
		slog.String("stage", s.Name),
		slog.Int("count", len(movies)),
		slog.Int("max", maxItems))

	committed := 0
	for _, movie := range movies {
		if s.Delay > 0 {
			select {
			case <-ctx.Done():
				return committed, ctx.Err()
			case <-time.After(s.Delay):
			}
		}

		outcome, err := s.Process(ctx, movie)
		if err != nil {
			s.Logger.Error("Failed to process movie, continuing",
				slog.String("stage", s.Name),
				slog.String("title", movie.Title),
				slog.Any("error", err))
			continue
		}

		committed++
		if outcome == OutcomeAbsent {
			s.Logger.Info("No result, recorded absence",
				slog.String("stage", s.Name),
				slog.String("title", movie.Title))
		} else {
			s.Logger.Debug("Committed result",
				slog.String("stage", s.Name),
				slog.String("title", movie.Title))
		}
	}

	s.Logger.Info("Batch complete",
		slog.String("stage", s.Name),
		slog.Int("committed", committed),
		slog.Int("selected", len(movies)))
	return committed, nil
}
