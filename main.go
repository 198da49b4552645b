// Command truestory is an incremental batch pipeline over a local SQLite
// store: it ingests a list of "based on a true story" movie titles, enriches
// them with TMDB metadata and Wikipedia plot summaries in bounded batches,
// classifies each movie's subject with a keyword rule table, and aggregates
// the results into a text report and charts. Every stage commits per movie,
// so a run can be killed and resumed at any point.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/user/truestory/handlers"
	"github.com/user/truestory/lib/charts"
	"github.com/user/truestory/lib/classifier"
	"github.com/user/truestory/lib/config"
	"github.com/user/truestory/lib/db"
	"github.com/user/truestory/lib/imdb"
	"github.com/user/truestory/lib/pipeline"
	"github.com/user/truestory/lib/stats"
	"github.com/user/truestory/lib/tmdb"
	"github.com/user/truestory/lib/wikipedia"
	"gorm.io/gorm"
)

const usage = `usage: truestory <command> [-limit n]

commands:
  ingest      scrape the title list and insert new movies
  metadata    enrich a batch of movies from TMDB
  plots       fetch a batch of Wikipedia plot summaries
  categorize  classify a batch of movies by subject
  run         ingest + metadata + plots + categorize
  stats       write the calculations report
  charts      render the chart PNGs
  serve       serve the report over HTTP
  daemon      run the full pipeline on the cron schedule
`

type App struct {
	cfg    *config.Config
	db     *gorm.DB
	logger *slog.Logger

	tmdb      *tmdb.Client
	wiki      *wikipedia.Client
	imdb      *imdb.Client
	suggester *classifier.Suggester
	lock      *pipeline.RunLock
}

func NewApp(logger *slog.Logger) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	gdb, err := db.Open(cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg:    cfg,
		db:     gdb,
		logger: logger,
		tmdb:   tmdb.NewClient(cfg.TMDBAPIKey, cfg.TMDBBaseURL, logger),
		wiki:   wikipedia.NewClient(cfg.WikipediaBaseURL, cfg.UserAgent, logger),
		imdb:   imdb.NewClient(cfg.UserAgent, logger),
		lock:   pipeline.NewRunLock(logger),
	}

	if cfg.LLMSuggestions && cfg.OpenAIAPIKey != "" {
		app.suggester = classifier.NewSuggester(cfg.OpenAIAPIKey, logger)
	}

	return app, nil
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	limit := fs.Int("limit", 0, "max movies per stage this run (default BATCH_SIZE)")
	if len(os.Args) > 2 {
		_ = fs.Parse(os.Args[2:]) // flag.ExitOnError exits on bad input
	}

	app, err := NewApp(logger)
	if err != nil {
		logger.Error("Failed to start", slog.Any("error", err))
		os.Exit(1)
	}
	if *limit <= 0 {
		*limit = app.cfg.BatchSize
	}

	ctx := context.Background()

	switch cmd {
	case "ingest":
		err = app.withLock(ctx, func() error { return app.ingest(ctx) })
	case "metadata":
		err = app.withLock(ctx, func() error { return app.runStage(ctx, app.metadataStage(), *limit) })
	case "plots":
		err = app.withLock(ctx, func() error { return app.runStage(ctx, app.plotStage(), *limit) })
	case "categorize":
		err = app.withLock(ctx, func() error { return app.runStage(ctx, app.categoryStage(), *limit) })
	case "run":
		err = app.withLock(ctx, func() error { return app.runAll(ctx, *limit) })
	case "stats":
		err = app.writeReport()
	case "charts":
		err = app.renderCharts()
	case "serve":
		err = app.serve()
	case "daemon":
		err = app.daemon(ctx, *limit)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("Command failed", slog.String("command", cmd), slog.Any("error", err))
		os.Exit(1)
	}
}

// withLock guards mutating commands so two invocations can't interleave
// writes on the same database.
func (a *App) withLock(ctx context.Context, fn func() error) error {
	ok, err := a.lock.TryLock(ctx, "pipeline", 30*time.Second)
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another pipeline run holds the lock")
	}
	defer func() {
		if err := a.lock.Unlock("pipeline"); err != nil {
			a.logger.Error("Failed to release run lock", slog.Any("error", err))
		}
	}()

	return fn()
}

func (a *App) metadataStage() *pipeline.Stage {
	return pipeline.NewMetadataStage(a.db, a.tmdb, a.cfg.TMDBDelay, a.logger)
}

func (a *App) plotStage() *pipeline.Stage {
	return pipeline.NewPlotStage(a.db, a.wiki, a.cfg.WikiDelay, a.logger)
}

func (a *App) categoryStage() *pipeline.Stage {
	return pipeline.NewCategoryStage(a.db, a.suggester, a.logger)
}

func (a *App) runStage(ctx context.Context, stage *pipeline.Stage, limit int) error {
	if stage.Name == "metadata" && a.cfg.TMDBAPIKey == "" {
		return fmt.Errorf("TMDB_API_KEY is not set")
	}
	_, err := stage.RunBatch(ctx, limit)
	return err
}

// ingest scrapes the title list and inserts the new ones. Duplicate titles
// across repeated runs are ignored by the unique title constraint.
func (a *App) ingest(ctx context.Context) error {
	titles, err := a.imdb.FetchTitles(ctx, a.cfg.IMDBListURL)
	if err != nil {
		return fmt.Errorf("failed to fetch title list: %w", err)
	}

	inserted, err := imdb.Ingest(a.db, titles)
	if err != nil {
		return err
	}

	a.logger.Info("Ingested titles",
		slog.Int("fetched", len(titles)),
		slog.Int("new", inserted))
	return nil
}

// runAll advances the whole pipeline once: ingest, then each enrichment
// stage in dependency order. A failed ingest doesn't stop enrichment of the
// movies already in the store.
func (a *App) runAll(ctx context.Context, limit int) error {
	if err := a.ingest(ctx); err != nil {
		a.logger.Error("Ingest failed, continuing with stored movies", slog.Any("error", err))
	}

	for _, stage := range []*pipeline.Stage{a.metadataStage(), a.plotStage(), a.categoryStage()} {
		if err := a.runStage(ctx, stage, limit); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) writeReport() error {
	report, err := stats.Collect(a.db)
	if err != nil {
		return err
	}

	f, err := os.Create(a.cfg.ReportPath)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := report.Write(f); err != nil {
		return err
	}
	if err := report.Write(os.Stdout); err != nil {
		return err
	}

	a.logger.Info("Wrote report", slog.String("path", a.cfg.ReportPath))
	return nil
}

func (a *App) renderCharts() error {
	report, err := stats.Collect(a.db)
	if err != nil {
		return err
	}

	_, err = charts.RenderAll(report, a.cfg.ChartDir, a.logger)
	return err
}

func (a *App) serve() error {
	a.logger.Info("Serving report", slog.String("port", a.cfg.HTTPPort))
	return http.ListenAndServe(":"+a.cfg.HTTPPort, handlers.New(a.db, a.logger))
}

// daemon runs the full pipeline on the configured cron schedule and serves
// the report between runs.
func (a *App) daemon(ctx context.Context, limit int) error {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(a.cfg.CronSchedule, func() {
		if err := a.withLock(ctx, func() error { return a.runAll(ctx, limit) }); err != nil {
			a.logger.Error("Scheduled run failed", slog.Any("error", err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule pipeline: %w", err)
	}

	scheduler.Start()
	defer scheduler.Stop()

	a.logger.Info("Daemon started", slog.String("schedule", a.cfg.CronSchedule))
	return a.serve()
}
