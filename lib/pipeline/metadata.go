package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"log/slog"

	"github.com/user/truestory/lib/tmdb"
	"github.com/user/truestory/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewMetadataStage builds the stage that resolves movies against TMDB: search
// the title for an id, fetch the details, write the movie fields plus the
// genre and release-year dimensions, and mark the movie processed.
func NewMetadataStage(gdb *gorm.DB, client *tmdb.Client, delay time.Duration, logger *slog.Logger) *Stage {
	return &Stage{
		Name:   "metadata",
		Logger: logger,
		Delay:  delay,
		Select: func(ctx context.Context, limit int) ([]models.Movie, error) {
			var movies []models.Movie
			err := gdb.WithContext(ctx).
				Joins("LEFT JOIN metadata_records ON metadata_records.movie_id = movies.id").
				Where("metadata_records.id IS NULL").
				Order("movies.id").
				Limit(limit).
				Find(&movies).Error
			return movies, err
		},
		Process: func(ctx context.Context, movie models.Movie) (Outcome, error) {
			id, err := client.SearchMovie(ctx, movie.Title)
			if err != nil {
				return OutcomeAbsent, err
			}
			if id == nil {
				return OutcomeAbsent, markMetadataProcessed(gdb, movie.ID, nil)
			}

			// Two distinct titles can search-resolve to the same TMDB id.
			// movies.tmdb_id is unique, so the second movie can't take it;
			// record the lookup as a miss instead of leaving the movie
			// unmarked and retried forever.
			claimed, err := tmdbIDClaimed(gdb, *id, movie.ID)
			if err != nil {
				return OutcomeAbsent, err
			}
			if claimed {
				logger.Warn("TMDB id already claimed by another movie, recording miss",
					slog.String("title", movie.Title),
					slog.Int64("tmdb_id", *id))
				return OutcomeAbsent, markMetadataProcessed(gdb, movie.ID, nil)
			}

			details, err := client.GetMovieDetails(ctx, *id)
			if err != nil {
				return OutcomeAbsent, err
			}
			if details == nil {
				return OutcomeAbsent, markMetadataProcessed(gdb, movie.ID, nil)
			}

			if err := applyMetadata(gdb, &movie, details); err != nil {
				return OutcomeAbsent, err
			}
			if err := markMetadataProcessed(gdb, movie.ID, id); err != nil {
				return OutcomeAbsent, err
			}
			return OutcomeFound, nil
		},
	}
}

// tmdbIDClaimed reports whether a different movie already holds this TMDB id.
func tmdbIDClaimed(gdb *gorm.DB, tmdbID int64, movieID uint) (bool, error) {
	var count int64
	err := gdb.Model(&models.Movie{}).
		Where("tmdb_id = ? AND id <> ?", tmdbID, movieID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check tmdb id %d: %w", tmdbID, err)
	}
	return count > 0, nil
}

// applyMetadata writes the TMDB details onto the movie row and its genre and
// release-year dimensions.
func applyMetadata(gdb *gorm.DB, movie *models.Movie, details *tmdb.MovieDetails) error {
	movie.TMDBID = &details.ID
	movie.ReleaseDate = details.ReleaseDate
	movie.Revenue = details.Revenue
	movie.Overview = details.Overview
	if err := gdb.Save(movie).Error; err != nil {
		return fmt.Errorf("failed to update movie %q: %w", movie.Title, err)
	}

	for _, name := range details.GenreNames() {
		genre, err := getOrCreateGenre(gdb, name)
		if err != nil {
			return err
		}
		if err := linkMovieGenre(gdb, movie.ID, genre.ID); err != nil {
			return err
		}
	}

	if year, ok := releaseYear(details.ReleaseDate); ok {
		ry, err := getOrCreateReleaseYear(gdb, year)
		if err != nil {
			return err
		}
		if err := linkMovieReleaseYear(gdb, movie.ID, ry.ID); err != nil {
			return err
		}
	}

	return nil
}

// markMetadataProcessed upserts the processed-marker row. A nil tmdbID is the
// explicit "looked up, no match" record.
func markMetadataProcessed(gdb *gorm.DB, movieID uint, tmdbID *int64) error {
	record := models.MetadataRecord{MovieID: movieID, TMDBID: tmdbID}
	err := gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "movie_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tmdb_id"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to mark movie %d processed: %w", movieID, err)
	}
	return nil
}

// releaseYear parses the year out of a YYYY-MM-DD release date.
func releaseYear(releaseDate string) (int, bool) {
	if len(releaseDate) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(releaseDate[:4])
	if err != nil || year == 0 {
		return 0, false
	}
	return year, true
}
