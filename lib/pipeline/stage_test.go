package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"log/slog"

	"github.com/user/truestory/lib/db"
	"github.com/user/truestory/models"
	"gorm.io/gorm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(filepath.Join(t.TempDir(), "test.db"), testLogger())
	if err != nil {
		t.Fatalf("Open database: %v", err)
	}
	return gdb
}

func seedMovies(t *testing.T, gdb *gorm.DB, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		movie := models.Movie{Title: fmt.Sprintf("Movie %03d", i)}
		if err := gdb.Create(&movie).Error; err != nil {
			t.Fatalf("Seed movie %d: %v", i, err)
		}
	}
}

// markerStage is a minimal stage over the plots table: Process commits a
// plot row as the processed-marker. failOn makes one title fail with a
// transport-style error.
func markerStage(gdb *gorm.DB, failOn string) *Stage {
	return &Stage{
		Name:   "marker",
		Logger: testLogger(),
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
			if movie.Title == failOn {
				return OutcomeAbsent, fmt.Errorf("resolver unavailable")
			}
			summary := "processed"
			return OutcomeFound, upsertPlot(gdb, movie.ID, &summary)
		},
	}
}

func TestRunBatchCap(t *testing.T) {
	ctx := context.Background()
	gdb := testDB(t)
	seedMovies(t, gdb, 40)

	stage := markerStage(gdb, "")

	count, err := stage.RunBatch(ctx, 25)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if count != 25 {
		t.Errorf("First batch should process 25, got %d", count)
	}

	count, err = stage.RunBatch(ctx, 25)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if count != 15 {
		t.Errorf("Second batch should process the remaining 15, got %d", count)
	}
}

// Running a stage again with no new data must process zero movies: the
// committed marker rows are the only selection state.
func TestRunBatchIdempotent(t *testing.T) {
	ctx := context.Background()
	gdb := testDB(t)
	seedMovies(t, gdb, 10)

	stage := markerStage(gdb, "")

	if _, err := stage.RunBatch(ctx, 25); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	count, err := stage.RunBatch(ctx, 25)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if count != 0 {
		t.Errorf("Second run should process 0 movies, got %d", count)
	}
}

// A failing movie is skipped, everything before and after it stays durably
// committed, and the next run picks up exactly the failed movie.
func TestRunBatchResumesAfterFailure(t *testing.T) {
	ctx := context.Background()
	gdb := testDB(t)
	seedMovies(t, gdb, 5)

	stage := markerStage(gdb, "Movie 003")

	count, err := stage.RunBatch(ctx, 10)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if count != 4 {
		t.Errorf("Expected 4 committed with one failure, got %d", count)
	}

	var marked int64
	if err := gdb.Model(&models.Plot{}).Count(&marked).Error; err != nil {
		t.Fatalf("Count plots: %v", err)
	}
	if marked != 4 {
		t.Errorf("Expected 4 marker rows, got %d", marked)
	}

	// The retry run must select only the failed movie.
	remaining, err := stage.Select(ctx, 10)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Title != "Movie 003" {
		t.Fatalf("Expected only Movie 003 left, got %+v", remaining)
	}

	// Once the resolver recovers, the stage finishes.
	stage = markerStage(gdb, "")
	count, err = stage.RunBatch(ctx, 10)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 committed on retry, got %d", count)
	}
}

// Selection follows primary-key order so repeated runs make monotonic
// forward progress.
func TestRunBatchSelectionOrder(t *testing.T) {
	ctx := context.Background()
	gdb := testDB(t)
	seedMovies(t, gdb, 6)

	stage := markerStage(gdb, "")
	if _, err := stage.RunBatch(ctx, 3); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	remaining, err := stage.Select(ctx, 10)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	want := []string{"Movie 004", "Movie 005", "Movie 006"}
	if len(remaining) != len(want) {
		t.Fatalf("Expected %d remaining, got %d", len(want), len(remaining))
	}
	for i, movie := range remaining {
		if movie.Title != want[i] {
			t.Errorf("Remaining[%d] = %s, want %s", i, movie.Title, want[i])
		}
	}
}

// An explicit absence marker counts as committed and keeps the movie from
// ever being reselected.
func TestRunBatchAbsenceMarker(t *testing.T) {
	ctx := context.Background()
	gdb := testDB(t)
	seedMovies(t, gdb, 3)

	stage := &Stage{
		Name:   "absent",
		Logger: testLogger(),
		Select: markerStage(gdb, "").Select,
		Process: func(ctx context.Context, movie models.Movie) (Outcome, error) {
			return OutcomeAbsent, upsertPlot(gdb, movie.ID, nil)
		},
	}

	count, err := stage.RunBatch(ctx, 10)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if count != 3 {
		t.Errorf("Absence results should count as committed, got %d", count)
	}

	count, err = stage.RunBatch(ctx, 10)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if count != 0 {
		t.Errorf("Marked-absent movies must not be reselected, got %d", count)
	}

	var plot models.Plot
	if err := gdb.Where("movie_id = ?", 1).First(&plot).Error; err != nil {
		t.Fatalf("Load plot: %v", err)
	}
	if plot.Summary != nil {
		t.Errorf("Absence marker should have NULL summary, got %q", *plot.Summary)
	}
}

func TestDimensionUniqueness(t *testing.T) {
	gdb := testDB(t)

	first, err := getOrCreateGenre(gdb, "Drama")
	if err != nil {
		t.Fatalf("getOrCreateGenre: %v", err)
	}
	second, err := getOrCreateGenre(gdb, "Drama")
	if err != nil {
		t.Fatalf("getOrCreateGenre: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("Same value should resolve to one row: %d vs %d", first.ID, second.ID)
	}

	var count int64
	if err := gdb.Model(&models.Genre{}).Count(&count).Error; err != nil {
		t.Fatalf("Count genres: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 genre row, got %d", count)
	}

	// Names differing only by case are distinct values.
	if _, err := getOrCreateGenre(gdb, "drama"); err != nil {
		t.Fatalf("getOrCreateGenre: %v", err)
	}
	if err := gdb.Model(&models.Genre{}).Count(&count).Error; err != nil {
		t.Fatalf("Count genres: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected case-sensitive distinct rows, got %d", count)
	}
}

func TestJunctionUniqueness(t *testing.T) {
	gdb := testDB(t)
	seedMovies(t, gdb, 1)

	genre, err := getOrCreateGenre(gdb, "History")
	if err != nil {
		t.Fatalf("getOrCreateGenre: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := linkMovieGenre(gdb, 1, genre.ID); err != nil {
			t.Fatalf("linkMovieGenre attempt %d: %v", i, err)
		}
	}

	var count int64
	if err := gdb.Model(&models.MovieGenre{}).Count(&count).Error; err != nil {
		t.Fatalf("Count links: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 junction row after relinking, got %d", count)
	}
}
