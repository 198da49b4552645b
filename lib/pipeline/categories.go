package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"github.com/user/truestory/lib/classifier"
	"github.com/user/truestory/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewCategoryStage builds the stage that runs the keyword classifier over
// each movie's text and genre tags. Its resolver is local, so there is no
// rate-limit delay. The classifier prefers the Wikipedia plot and falls back
// to the TMDB overview, so movies Wikipedia has never heard of still get a
// category.
//
// When a Suggester is configured, movies the rules leave in Other also get an
// advisory LLM suggestion in the log; the stored category stays rule-based so
// classification remains deterministic.
func NewCategoryStage(gdb *gorm.DB, suggester *classifier.Suggester, logger *slog.Logger) *Stage {
	return &Stage{
		Name:   "categories",
		Logger: logger,
		Select: func(ctx context.Context, limit int) ([]models.Movie, error) {
			var movies []models.Movie
			err := gdb.WithContext(ctx).
				Joins("LEFT JOIN subject_categories ON subject_categories.movie_id = movies.id").
				Where("subject_categories.id IS NULL").
				Where("movies.overview <> '' OR EXISTS (SELECT 1 FROM plots WHERE plots.movie_id = movies.id AND plots.summary IS NOT NULL)").
				Order("movies.id").
				Limit(limit).
				Find(&movies).Error
			return movies, err
		},
		Process: func(ctx context.Context, movie models.Movie) (Outcome, error) {
			text, err := movieText(gdb, movie)
			if err != nil {
				return OutcomeAbsent, err
			}
			tags, err := movieGenres(gdb, movie.ID)
			if err != nil {
				return OutcomeAbsent, err
			}

			subject := classifier.ClassifySubject(movie.Title, text, tags)

			if suggester != nil && subject.Category == classifier.Other {
				if suggestion, err := suggester.Suggest(ctx, movie.Title, text); err != nil {
					logger.Warn("LLM suggestion failed",
						slog.String("title", movie.Title),
						slog.Any("error", err))
				} else if suggestion != classifier.Other {
					logger.Info("LLM suggests a category for an Other movie",
						slog.String("title", movie.Title),
						slog.String("suggestion", string(suggestion)))
				}
			}

			if err := upsertSubject(gdb, movie.ID, subject); err != nil {
				return OutcomeAbsent, err
			}
			return OutcomeFound, nil
		},
	}
}

// movieText returns the text the classifier should judge: the plot summary
// when one was found, otherwise the TMDB overview.
func movieText(gdb *gorm.DB, movie models.Movie) (string, error) {
	var plot models.Plot
	err := gdb.Where("movie_id = ?", movie.ID).First(&plot).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to load plot for %q: %w", movie.Title, err)
	}
	if err == nil && plot.Summary != nil && *plot.Summary != "" {
		return *plot.Summary, nil
	}
	return movie.Overview, nil
}

// movieGenres returns the movie's genre names as a comma-separated tag list.
func movieGenres(gdb *gorm.DB, movieID uint) (string, error) {
	var names []string
	err := gdb.Model(&models.Genre{}).
		Joins("JOIN movie_genres ON movie_genres.genre_id = genres.id").
		Where("movie_genres.movie_id = ?", movieID).
		Order("genres.name").
		Pluck("genres.name", &names).Error
	if err != nil {
		return "", fmt.Errorf("failed to load genres for movie %d: %w", movieID, err)
	}
	return strings.Join(names, ", "), nil
}

// upsertSubject commits the verdict: the 1:1 assignment row plus the category
// dimension and its junction link.
func upsertSubject(gdb *gorm.DB, movieID uint, subject classifier.Subject) error {
	assignment := models.SubjectCategory{
		MovieID:    movieID,
		Category:   string(subject.Category),
		Occupation: subject.Occupation,
		IsPerson:   subject.IsPerson,
	}
	err := gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "movie_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "occupation", "is_person"}),
	}).Create(&assignment).Error
	if err != nil {
		return fmt.Errorf("failed to upsert subject for movie %d: %w", movieID, err)
	}

	category, err := getOrCreateCategory(gdb, string(subject.Category))
	if err != nil {
		return err
	}
	return linkMovieCategory(gdb, movieID, category.ID)
}
