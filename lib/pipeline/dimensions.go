package pipeline

import (
	"errors"
	"fmt"

	"github.com/user/truestory/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// The dimension helpers are all get-or-create: a value exists exactly once no
// matter how often a movie is reprocessed, and relinking an existing
// (movie, dimension) pair is a no-op rather than an error.

func getOrCreateGenre(gdb *gorm.DB, name string) (models.Genre, error) {
	var genre models.Genre
	err := gdb.Where("name = ?", name).First(&genre).Error
	if err == nil {
		return genre, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return genre, fmt.Errorf("failed to look up genre %q: %w", name, err)
	}

	genre = models.Genre{Name: name}
	if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&genre).Error; err != nil {
		return genre, fmt.Errorf("failed to insert genre %q: %w", name, err)
	}
	if genre.ID == 0 {
		// Conflict swallowed the insert; fetch the existing row.
		if err := gdb.Where("name = ?", name).First(&genre).Error; err != nil {
			return genre, fmt.Errorf("failed to fetch genre %q after conflict: %w", name, err)
		}
	}
	return genre, nil
}

func getOrCreateCategory(gdb *gorm.DB, name string) (models.Category, error) {
	var category models.Category
	err := gdb.Where("name = ?", name).First(&category).Error
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return category, fmt.Errorf("failed to look up category %q: %w", name, err)
	}

	category = models.Category{Name: name}
	if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&category).Error; err != nil {
		return category, fmt.Errorf("failed to insert category %q: %w", name, err)
	}
	if category.ID == 0 {
		if err := gdb.Where("name = ?", name).First(&category).Error; err != nil {
			return category, fmt.Errorf("failed to fetch category %q after conflict: %w", name, err)
		}
	}
	return category, nil
}

func getOrCreateReleaseYear(gdb *gorm.DB, year int) (models.ReleaseYear, error) {
	var ry models.ReleaseYear
	err := gdb.Where("value = ?", year).First(&ry).Error
	if err == nil {
		return ry, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return ry, fmt.Errorf("failed to look up release year %d: %w", year, err)
	}

	ry = models.ReleaseYear{Value: year}
	if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&ry).Error; err != nil {
		return ry, fmt.Errorf("failed to insert release year %d: %w", year, err)
	}
	if ry.ID == 0 {
		if err := gdb.Where("value = ?", year).First(&ry).Error; err != nil {
			return ry, fmt.Errorf("failed to fetch release year %d after conflict: %w", year, err)
		}
	}
	return ry, nil
}

func linkMovieGenre(gdb *gorm.DB, movieID, genreID uint) error {
	link := models.MovieGenre{MovieID: movieID, GenreID: genreID}
	if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
		return fmt.Errorf("failed to link movie %d to genre %d: %w", movieID, genreID, err)
	}
	return nil
}

func linkMovieCategory(gdb *gorm.DB, movieID, categoryID uint) error {
	link := models.MovieCategory{MovieID: movieID, CategoryID: categoryID}
	if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
		return fmt.Errorf("failed to link movie %d to category %d: %w", movieID, categoryID, err)
	}
	return nil
}

func linkMovieReleaseYear(gdb *gorm.DB, movieID, releaseYearID uint) error {
	link := models.MovieReleaseYear{MovieID: movieID, ReleaseYearID: releaseYearID}
	if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
		return fmt.Errorf("failed to link movie %d to release year %d: %w", movieID, releaseYearID, err)
	}
	return nil
}
