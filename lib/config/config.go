package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every knob the pipeline reads from the environment. It is
// loaded once in main and passed down explicitly; nothing else in the program
// reads environment variables.
type Config struct {
	DBPath string `envconfig:"DB_PATH" default:"movies.db"`

	TMDBAPIKey  string `envconfig:"TMDB_API_KEY"`
	TMDBBaseURL string `envconfig:"TMDB_BASE_URL" default:"https://api.themoviedb.org/3"`

	WikipediaBaseURL string `envconfig:"WIKIPEDIA_BASE_URL" default:"https://en.wikipedia.org"`
	IMDBListURL      string `envconfig:"IMDB_LIST_URL" default:"https://www.imdb.com/list/ls021398170/"`
	UserAgent        string `envconfig:"USER_AGENT" default:"truestory/1.0"`

	// BatchSize caps how many movies a stage advances per invocation so one
	// run stays inside external rate limits.
	BatchSize int `envconfig:"BATCH_SIZE" default:"25"`

	// Minimum pause before each external call, per source.
	TMDBDelay time.Duration `envconfig:"TMDB_DELAY" default:"1s"`
	WikiDelay time.Duration `envconfig:"WIKI_DELAY" default:"100ms"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 * * * *"`
	HTTPPort     string `envconfig:"HTTP_PORT" default:"8080"`

	ReportPath string `envconfig:"REPORT_PATH" default:"calculations_output.txt"`
	ChartDir   string `envconfig:"CHART_DIR" default:"."`

	// Optional OpenAI-backed category suggestions for movies the keyword
	// rules leave in Other. Off unless both are set.
	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	LLMSuggestions bool   `envconfig:"LLM_SUGGESTIONS" default:"false"`
}

// Load reads the configuration from the environment, with a .env overlay for
// local runs.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}
