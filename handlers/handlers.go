package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/user/truestory/lib/charts"
	"github.com/user/truestory/lib/stats"
	"gorm.io/gorm"
)

// New builds the read-only report router. Every endpoint recomputes from the
// current store snapshot, so it is safe to serve while enrichment runs
// elsewhere.
func New(gdb *gorm.DB, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/healthz", HandleHealth(gdb))
	r.Get("/stats", HandleStats(gdb, logger))
	r.Get("/report", HandleReport(gdb, logger))
	r.Get("/charts/{name}", HandleChart(gdb, logger))
	return r
}

// HandleStats serves the full report as JSON.
func HandleStats(gdb *gorm.DB, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		report, err := stats.Collect(gdb.WithContext(req.Context()))
		if err != nil {
			logger.Error("Failed to collect stats", slog.Any("error", err))
			http.Error(w, "Failed to collect statistics", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(report); err != nil {
			logger.Error("Failed to encode stats response", slog.Any("error", err))
		}
	}
}

// HandleReport serves the plain-text calculations report.
func HandleReport(gdb *gorm.DB, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		report, err := stats.Collect(gdb.WithContext(req.Context()))
		if err != nil {
			logger.Error("Failed to collect stats", slog.Any("error", err))
			http.Error(w, "Failed to collect statistics", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := report.Write(w); err != nil {
			logger.Error("Failed to write report", slog.Any("error", err))
		}
	}
}

// HandleChart renders one named chart on the fly.
func HandleChart(gdb *gorm.DB, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		if !slices.Contains(charts.Names(), name) {
			http.Error(w, "Unknown chart", http.StatusNotFound)
			return
		}

		report, err := stats.Collect(gdb.WithContext(req.Context()))
		if err != nil {
			logger.Error("Failed to collect stats", slog.Any("error", err))
			http.Error(w, "Failed to collect statistics", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		if err := charts.Render(report, name, w); err != nil {
			if errors.Is(err, charts.ErrNoData) {
				http.Error(w, "No data for chart yet", http.StatusNotFound)
				return
			}
			logger.Error("Failed to render chart", slog.String("chart", name), slog.Any("error", err))
		}
	}
}
