package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"log/slog"

	"github.com/user/truestory/lib/db"
	"github.com/user/truestory/models"
	"gorm.io/gorm"
)

func testRouter(t *testing.T) (*gorm.DB, http.Handler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gdb, err := db.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("Open database: %v", err)
	}
	return gdb, New(gdb, logger)
}

func seedCategorized(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	movie := models.Movie{Title: "Rush", ReleaseDate: "2013-09-27", Revenue: 98_183_000}
	if err := gdb.Create(&movie).Error; err != nil {
		t.Fatalf("Seed movie: %v", err)
	}
	category := models.Category{Name: "Athletes"}
	if err := gdb.Create(&category).Error; err != nil {
		t.Fatalf("Seed category: %v", err)
	}
	link := models.MovieCategory{MovieID: movie.ID, CategoryID: category.ID}
	if err := gdb.Create(&link).Error; err != nil {
		t.Fatalf("Seed link: %v", err)
	}
	subject := models.SubjectCategory{MovieID: movie.ID, Category: "Athletes", IsPerson: true}
	if err := gdb.Create(&subject).Error; err != nil {
		t.Fatalf("Seed subject: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	_, router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d", rec.Code)
	}
	var health Health
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("Decode body: %v", err)
	}
	if health.Status != "ok" || health.DB.Status != "ok" {
		t.Errorf("health = %+v", health)
	}
}

func TestStatsEndpoint(t *testing.T) {
	gdb, router := testRouter(t)
	seedCategorized(t, gdb)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	var body struct {
		TotalCategorized int64
		CategoryCounts   []struct {
			Category string
			Count    int64
		}
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Decode body: %v", err)
	}
	if body.TotalCategorized != 1 {
		t.Errorf("TotalCategorized = %d", body.TotalCategorized)
	}
	if len(body.CategoryCounts) != 1 || body.CategoryCounts[0].Category != "Athletes" {
		t.Errorf("CategoryCounts = %+v", body.CategoryCounts)
	}
}

func TestReportEndpoint(t *testing.T) {
	gdb, router := testRouter(t)
	seedCategorized(t, gdb)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/report", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d", rec.Code)
	}
	text := rec.Body.String()
	if !strings.Contains(text, "TOTAL MOVIES ANALYZED: 1") {
		t.Errorf("Report body missing totals:\n%s", text)
	}
	if !strings.Contains(text, "Athletes: 1 movies") {
		t.Errorf("Report body missing category counts:\n%s", text)
	}
}

func TestChartEndpoint(t *testing.T) {
	gdb, router := testRouter(t)
	seedCategorized(t, gdb)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/charts/category_distribution.png", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d", rec.Code)
	}
	pngMagic := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	if !bytes.HasPrefix(rec.Body.Bytes(), pngMagic) {
		t.Error("Chart response is not a PNG")
	}
}

func TestChartEndpointUnknownName(t *testing.T) {
	_, router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/charts/secret.txt", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", rec.Code)
	}
}
