package imdb

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/truestory/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Client scrapes movie titles off an IMDb list page. This is the upstream
// title-ingestion collaborator: all the rest of the pipeline needs from it is
// an ordered list of title strings.
type Client struct {
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(userAgent string, logger *slog.Logger) *Client {
	return &Client{
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// FetchTitles downloads the list page and returns its movie titles in page
// order, rank prefixes stripped.
func (c *Client) FetchTitles(ctx context.Context, listURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

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
		return nil, fmt.Errorf("list page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse list page: %w", err)
	}

	return ParseTitles(doc), nil
}

// ParseTitles extracts the titles from a parsed IMDb list page.
func ParseTitles(doc *goquery.Document) []string {
	var titles []string
	doc.Find("li.ipc-metadata-list-summary-item h3.ipc-title__text").Each(func(_ int, h *goquery.Selection) {
		title := strings.TrimSpace(h.Text())
		// List entries render as "12. Apollo 13"; drop the rank.
		if _, rest, ok := strings.Cut(title, ". "); ok {
			title = rest
		}
		if title != "" {
			titles = append(titles, title)
		}
	})
	return titles
}

// Ingest inserts titles into the movies table, ignoring ones already present,
// and returns how many were new. Repeated ingestion runs are harmless.
func Ingest(gdb *gorm.DB, titles []string) (int, error) {
	inserted := 0
	for _, title := range titles {
		res := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Movie{Title: title})
		if res.Error != nil {
			return inserted, fmt.Errorf("failed to insert title %q: %w", title, res.Error)
		}
		inserted += int(res.RowsAffected)
	}
	return inserted, nil
}
