package db

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/user/truestory/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open opens the SQLite database at path and brings the schema up to date.
// Schema management is additive only: create-if-not-exists tables and indexes,
// no drops. Safe to call on every invocation.
func Open(path string, logger *slog.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: NewGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := Migrate(gdb, logger); err != nil {
		return nil, err
	}

	return gdb, nil
}

// Migrate applies pragmas, auto-migrates the schema, and creates the
// supporting indexes. Idempotent.
func Migrate(gdb *gorm.DB, logger *slog.Logger) error {
	ctx := context.Background()

	if err := enableSQLiteOptimizations(ctx, gdb, logger); err != nil {
		return fmt.Errorf("failed to enable SQLite optimizations: %w", err)
	}

	if err := gdb.AutoMigrate(
		&models.Movie{},
		&models.MetadataRecord{},
		&models.Plot{},
		&models.SubjectCategory{},
		&models.Genre{},
		&models.MovieGenre{},
		&models.Category{},
		&models.MovieCategory{},
		&models.ReleaseYear{},
		&models.MovieReleaseYear{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := createAdditionalIndexes(ctx, gdb, logger); err != nil {
		return fmt.Errorf("failed to create additional indexes: %w", err)
	}

	return nil
}

// enableSQLiteOptimizations enables SQLite-specific optimizations
func enableSQLiteOptimizations(ctx context.Context, gdb *gorm.DB, logger *slog.Logger) error {
	optimizations := []string{
		"PRAGMA journal_mode=WAL",   // Enable WAL mode so readers don't block the writer
		"PRAGMA synchronous=NORMAL", // Faster writes while maintaining safety
		"PRAGMA foreign_keys=ON",    // Enable foreign key constraints
		"PRAGMA busy_timeout=10000", // Wait instead of failing on a locked file
	}

	for _, pragma := range optimizations {
		if err := gdb.WithContext(ctx).Exec(pragma).Error; err != nil {
			logger.Warn("Failed to execute pragma", slog.String("pragma", pragma), slog.Any("error", err))
		} else {
			logger.Debug("Executed pragma", slog.String("pragma", pragma))
		}
	}

	return nil
}

// createAdditionalIndexes creates additional indexes for the reporting queries.
func createAdditionalIndexes(ctx context.Context, gdb *gorm.DB, logger *slog.Logger) error {
	additionalIndexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_movies_revenue ON movies(revenue)",
		"CREATE INDEX IF NOT EXISTS idx_movies_release_date ON movies(release_date)",
		"CREATE INDEX IF NOT EXISTS idx_subject_categories_category ON subject_categories(category)",
	}

	for _, indexSQL := range additionalIndexes {
		if err := gdb.WithContext(ctx).Exec(indexSQL).Error; err != nil {
			logger.Warn("Failed to create index", slog.String("sql", indexSQL), slog.Any("error", err))
		} else {
			logger.Debug("Created index", slog.String("sql", indexSQL))
		}
	}

	return nil
}
