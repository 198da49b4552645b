package models

import "time"

// Movie is a single "based on a true story" title. Rows are created by the
// ingest step with only a title; the metadata stage fills in the rest. Movies
// are never deleted.
type Movie struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Title       string `gorm:"uniqueIndex;not null"`
	TMDBID      *int64 `gorm:"column:tmdb_id;uniqueIndex"`
	ReleaseDate string // YYYY-MM-DD, empty when unknown
	Revenue     int64  // USD, 0 when unknown
	Overview    string `gorm:"type:text"`
}

// MetadataRecord marks a movie as having been looked up against TMDB. A row
// with a NULL TMDBID means the lookup ran and found no match; no row means the
// lookup has not happened yet. The metadata stage selects on row absence, so
// this table is what makes the stage resumable.
type MetadataRecord struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	MovieID uint   `gorm:"uniqueIndex;not null"`
	TMDBID  *int64 `gorm:"column:tmdb_id"`
}

// Plot holds the Wikipedia plot summary for a movie. Same marker convention as
// MetadataRecord: a row with a NULL Summary means "looked up, not found".
type Plot struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	MovieID uint    `gorm:"uniqueIndex;not null"`
	Summary *string `gorm:"type:text"`
}

// SubjectCategory is the classifier's verdict for one movie: the coarse
// subject category, an optional finer occupation, and whether the movie is
// about a person at all. Reclassification upserts the same row.
type SubjectCategory struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	MovieID    uint    `gorm:"uniqueIndex;not null"`
	Category   string  `gorm:"index;not null"`
	Occupation *string `gorm:"index"`
	IsPerson   bool
}

// Genre is a dimension table of unique TMDB genre names.
type Genre struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

// MovieGenre links a movie to a genre. The pair is unique so reprocessing a
// movie never duplicates a link.
type MovieGenre struct {
	ID      uint `gorm:"primaryKey"`
	MovieID uint `gorm:"not null;uniqueIndex:idx_movie_genre"`
	GenreID uint `gorm:"not null;uniqueIndex:idx_movie_genre"`
}

// Category is a dimension table of unique subject category names.
type Category struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

// MovieCategory links a movie to a subject category.
type MovieCategory struct {
	ID         uint `gorm:"primaryKey"`
	MovieID    uint `gorm:"not null;uniqueIndex:idx_movie_category"`
	CategoryID uint `gorm:"not null;uniqueIndex:idx_movie_category"`
}

// ReleaseYear is a dimension table of unique release years.
type ReleaseYear struct {
	ID    uint `gorm:"primaryKey"`
	Value int  `gorm:"uniqueIndex;not null"`
}

// MovieReleaseYear links a movie to its release year.
type MovieReleaseYear struct {
	ID            uint `gorm:"primaryKey"`
	MovieID       uint `gorm:"not null;uniqueIndex:idx_movie_year"`
	ReleaseYearID uint `gorm:"not null;uniqueIndex:idx_movie_year"`
}

// TableName returns the table name for GORM.
func (MetadataRecord) TableName() string {
	return "metadata_records"
}

// TableName returns the table name for GORM.
func (SubjectCategory) TableName() string {
	return "subject_categories"
}
