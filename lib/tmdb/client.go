package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"log/slog"
)

// Client talks to the TMDB v3 API. The pipeline only needs two calls: search
// a title for its TMDB id, and fetch the details for an id.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type SearchResult struct {
	Results []struct {
		ID          int64  `json:"id"`
		Title       string `json:"title"`
		ReleaseDate string `json:"release_date"`
	} `json:"results"`
}

// MovieDetails is the subset of the TMDB movie payload the pipeline stores.
// Missing fields decode to their zero values: no genres, revenue 0.
type MovieDetails struct {
	ID          int64  `json:"id"`
	ReleaseDate string `json:"release_date"`
	Revenue     int64  `json:"revenue"`
	Overview    string `json:"overview"`
	Genres      []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

// GenreNames returns the genre names in API order.
func (d *MovieDetails) GenreNames() []string {
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		names = append(names, g.Name)
	}
	return names
}

func NewClient(apiKey, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// SearchMovie returns the id of the first search result for title, or nil
// when TMDB has no match. A non-200 response is treated as no match, not as a
// failure.
func (c *Client) SearchMovie(ctx context.Context, title string) (*int64, error) {
	u := fmt.Sprintf("%s/search/movie?api_key=%s&query=%s",
		c.baseURL, url.QueryEscape(c.apiKey), url.QueryEscape(title))

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", slog.Any("error", err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("TMDB search returned non-200",
			slog.String("title", title),
			slog.Int("status", resp.StatusCode))
		return nil, nil
	}

	var result SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Results) == 0 {
		return nil, nil
	}

	id := result.Results[0].ID
	return &id, nil
}

// GetMovieDetails fetches genres, release date, revenue, and overview for a
// TMDB id. Returns nil when TMDB answers with a non-200 status.
func (c *Client) GetMovieDetails(ctx context.Context, id int64) (*MovieDetails, error) {
	u := fmt.Sprintf("%s/movie/%d?api_key=%s", c.baseURL, id, url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", slog.Any("error", err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("TMDB details returned non-200",
			slog.Int64("tmdb_id", id),
			slog.Int("status", resp.StatusCode))
		return nil, nil
	}

	var details MovieDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &details, nil
}
