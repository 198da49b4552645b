// Package stats holds the read-only reporting queries over the enriched
// store. Nothing here mutates; the report is deterministic for a fixed
// database snapshot and safe to produce at any point during enrichment.
package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/user/truestory/models"
	"gorm.io/gorm"
)

// CategoryCount is the number of movies assigned to one category.
type CategoryCount struct {
	Category string
	Count    int64
}

// GenreCount counts one genre within one category. A movie with N genres
// contributes to N buckets; that multi-counting is intentional and documented
// in the report text.
type GenreCount struct {
	Category string
	Genre    string
	Count    int64
}

// CategoryRevenue is the average box-office take of a category in millions,
// over movies with known revenue only.
type CategoryRevenue struct {
	Category    string
	AvgMillions float64
	Count       int64
}

// YearSummary aggregates revenue for one release year.
type YearSummary struct {
	Year        int
	Count       int64
	AvgMillions float64
	MaxMillions float64
}

// OccupationCount counts movies by the classifier's finer occupation label.
type OccupationCount struct {
	Occupation string
	Count      int64
}

// Report is the full set of descriptive statistics.
type Report struct {
	TotalCategorized int64

	CategoryCounts   []CategoryCount
	GenreCounts      []GenreCount
	CategoryRevenues []CategoryRevenue

	Years              []YearSummary
	TotalWithRevenue   int64
	MinYear            int
	MaxYear            int
	OverallAvgMillions float64
	OverallMaxMillions float64

	PeopleCount    int64
	EventCount     int64
	TopOccupations []OccupationCount
}

// Collect runs all reporting queries against a snapshot of the store.
func Collect(gdb *gorm.DB) (*Report, error) {
	r := &Report{}

	err := gdb.Model(&models.MovieCategory{}).
		Distinct("movie_id").
		Count(&r.TotalCategorized).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count categorized movies: %w", err)
	}

	err = gdb.Raw(`
		SELECT c.name AS category, COUNT(*) AS count
		FROM movie_categories mc
		JOIN categories c ON mc.category_id = c.id
		GROUP BY c.name
		ORDER BY count DESC, c.name`).Scan(&r.CategoryCounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count movies by category: %w", err)
	}

	err = gdb.Raw(`
		SELECT c.name AS category, g.name AS genre, COUNT(*) AS count
		FROM movie_categories mc
		JOIN categories c ON mc.category_id = c.id
		JOIN movie_genres mg ON mg.movie_id = mc.movie_id
		JOIN genres g ON mg.genre_id = g.id
		GROUP BY c.name, g.name
		ORDER BY c.name, count DESC, g.name`).Scan(&r.GenreCounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count genres by category: %w", err)
	}

	err = gdb.Raw(`
		SELECT c.name AS category, AVG(m.revenue) / 1000000.0 AS avg_millions, COUNT(*) AS count
		FROM movie_categories mc
		JOIN categories c ON mc.category_id = c.id
		JOIN movies m ON mc.movie_id = m.id
		WHERE m.revenue > 0
		GROUP BY c.name
		ORDER BY avg_millions DESC`).Scan(&r.CategoryRevenues).Error
	if err != nil {
		return nil, fmt.Errorf("failed to average revenue by category: %w", err)
	}

	err = gdb.Raw(`
		SELECT CAST(substr(m.release_date, 1, 4) AS INTEGER) AS year,
		       COUNT(*) AS count,
		       AVG(m.revenue) / 1000000.0 AS avg_millions,
		       MAX(m.revenue) / 1000000.0 AS max_millions
		FROM movies m
		WHERE m.revenue > 0 AND m.release_date IS NOT NULL AND m.release_date <> ''
		GROUP BY year
		ORDER BY year`).Scan(&r.Years).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize revenue by year: %w", err)
	}

	var overall struct {
		Count       int64
		AvgMillions float64
		MaxMillions float64
	}
	err = gdb.Raw(`
		SELECT COUNT(*) AS count,
		       COALESCE(AVG(m.revenue) / 1000000.0, 0) AS avg_millions,
		       COALESCE(MAX(m.revenue) / 1000000.0, 0) AS max_millions
		FROM movies m
		WHERE m.revenue > 0 AND m.release_date IS NOT NULL AND m.release_date <> ''`).
		Scan(&overall).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute overall revenue stats: %w", err)
	}
	r.TotalWithRevenue = overall.Count
	r.OverallAvgMillions = overall.AvgMillions
	r.OverallMaxMillions = overall.MaxMillions
	if len(r.Years) > 0 {
		r.MinYear = r.Years[0].Year
		r.MaxYear = r.Years[len(r.Years)-1].Year
	}

	err = gdb.Model(&models.SubjectCategory{}).
		Where("is_person = ?", true).
		Count(&r.PeopleCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count person subjects: %w", err)
	}
	err = gdb.Model(&models.SubjectCategory{}).
		Where("is_person = ?", false).
		Count(&r.EventCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count event subjects: %w", err)
	}

	err = gdb.Raw(`
		SELECT occupation, COUNT(*) AS count
		FROM subject_categories
		WHERE occupation IS NOT NULL
		GROUP BY occupation
		ORDER BY count DESC, occupation
		LIMIT 10`).Scan(&r.TopOccupations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count occupations: %w", err)
	}

	return r, nil
}

// Write renders the report as the labeled text file the pipeline has always
// produced.
func (r *Report) Write(w io.Writer) error {
	rule := strings.Repeat("=", 60)
	half := strings.Repeat("-", 60)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\nTRUE STORY MOVIE SUBJECT ANALYSIS - CALCULATIONS\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "TOTAL MOVIES ANALYZED: %d\n%s\n\n", r.TotalCategorized, rule)

	fmt.Fprintf(&b, "1. COUNT OF MOVIES BY SUBJECT CATEGORY\n%s\n", half)
	for _, cc := range r.CategoryCounts {
		fmt.Fprintf(&b, "%s: %d movies\n", cc.Category, cc.Count)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "2. SUBJECT CATEGORIES WITH MOST COMMON MOVIE GENRES\n%s\n", half)
	b.WriteString("Note: Movies with multiple genres are counted in each genre bucket separately.\n")
	lastCategory := ""
	for _, gc := range r.GenreCounts {
		if gc.Category != lastCategory {
			fmt.Fprintf(&b, "\n%s:\n", gc.Category)
			lastCategory = gc.Category
		}
		fmt.Fprintf(&b, "  %s: %d movies\n", gc.Genre, gc.Count)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "3. AVERAGE REVENUE BY SUBJECT CATEGORY (in millions USD)\n%s\n", half)
	for _, cr := range r.CategoryRevenues {
		fmt.Fprintf(&b, "%s: $%.2fM (based on %d movies)\n", cr.Category, cr.AvgMillions, cr.Count)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "4. REVENUE BY RELEASE YEAR\n%s\n", half)
	if len(r.Years) == 0 {
		b.WriteString("No revenue data available.\n")
	} else {
		for _, y := range r.Years {
			fmt.Fprintf(&b, "\n%d:\n", y.Year)
			fmt.Fprintf(&b, "  Movies: %d\n", y.Count)
			fmt.Fprintf(&b, "  Average Revenue: $%.2fM\n", y.AvgMillions)
			fmt.Fprintf(&b, "  Max Revenue: $%.2fM\n", y.MaxMillions)
		}
		b.WriteString("\nOVERALL STATISTICS:\n")
		fmt.Fprintf(&b, "  Total movies with revenue data: %d\n", r.TotalWithRevenue)
		fmt.Fprintf(&b, "  Year range: %d - %d\n", r.MinYear, r.MaxYear)
		fmt.Fprintf(&b, "  Average revenue across all years: $%.2fM\n", r.OverallAvgMillions)
		fmt.Fprintf(&b, "  Highest revenue: $%.2fM\n", r.OverallMaxMillions)
	}

	fmt.Fprintf(&b, "\n%s\nEND OF CALCULATIONS\n%s\n", rule, rule)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
