package pipeline

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/user/truestory/lib/wikipedia"
	"github.com/user/truestory/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewPlotStage builds the stage that fetches Wikipedia plot summaries. A
// movie with no plots row has never been attempted; a row with a NULL summary
// means Wikipedia was consulted and had nothing.
func NewPlotStage(gdb *gorm.DB, client *wikipedia.Client, delay time.Duration, logger *slog.Logger) *Stage {
	return &Stage{
		Name:   "plots",
		Logger: logger,
		Delay:  delay,
		Select: func(ctx context.Context, limit int) ([]models.Movie, error) {
			var movies []models.Movie
			err := gdb.WithContext(ctx).
				Joins("LEFT JOIN plots ON plots.movie_id = movies.id").
				Where("plots.id IS NULL").
				Order("movies.id").
				Limit(limit).
				Find(&movies).Error
			return movies, err
		},
		Process: func(ctx context.Context, movie models.Movie) (Outcome, error) {
			summary, err := client.FetchPlot(ctx, movie.Title)
			if err != nil {
				return OutcomeAbsent, err
			}

			if summary == "" {
				return OutcomeAbsent, upsertPlot(gdb, movie.ID, nil)
			}
			return OutcomeFound, upsertPlot(gdb, movie.ID, &summary)
		},
	}
}

func upsertPlot(gdb *gorm.DB, movieID uint, summary *string) error {
	plot := models.Plot{MovieID: movieID, Summary: summary}
	err := gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "movie_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"summary"}),
	}).Create(&plot).Error
	if err != nil {
		return fmt.Errorf("failed to upsert plot for movie %d: %w", movieID, err)
	}
	return nil
}
