package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"log/slog"

	"github.com/PuerkitoBio/goquery"
)

// sectionHeadings are the section titles that hold a plot description on
// English Wikipedia film articles.
var sectionHeadings = []string{"plot", "synopsis", "summary", "story", "premise"}

// Client fetches plot summaries from Wikipedia. It tries the REST page-HTML
// endpoint for the exact title first, and falls back to a search for
// "<title> film" when the direct lookup has no usable plot section.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL, userAgent string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// FetchPlot returns the plot summary for a movie title, or "" when Wikipedia
// has no article with a plot section for it. Transport failures are returned
// as errors so the caller can retry on a later run.
func (c *Client) FetchPlot(ctx context.Context, title string) (string, error) {
	plot, err := c.fetchPlotByPageTitle(ctx, title)
	if err != nil {
		return "", err
	}
	if plot != "" {
		return plot, nil
	}

	// Direct lookup came up empty; search for the film article instead.
	match, err := c.searchPageTitle(ctx, title)
	if err != nil {
		return "", err
	}
	if match == "" || match == title {
		return "", nil
	}

	c.logger.Debug("Retrying plot fetch with search match",
		slog.String("title", title),
		slog.String("match", match))
	return c.fetchPlotByPageTitle(ctx, match)
}

// fetchPlotByPageTitle pulls the page HTML and extracts the plot section.
// Returns "" when the page is missing or has no plot section.
func (c *Client) fetchPlotByPageTitle(ctx context.Context, pageTitle string) (string, error) {
	formatted := strings.ReplaceAll(pageTitle, " ", "_")
	u := fmt.Sprintf("%s/api/rest_v1/page/html/%s", c.baseURL, url.PathEscape(formatted))

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", slog.Any("error", err))
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Wikipedia page fetch returned non-200",
			slog.String("page", pageTitle),
			slog.Int("status", resp.StatusCode))
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse page HTML: %w", err)
	}

	return extractPlot(doc), nil
}

// extractPlot scans the article sections for a plot-like heading and joins
// the paragraphs under it.
func extractPlot(doc *goquery.Document) string {
	var plot string

	doc.Find("section").EachWithBreak(func(_ int, section *goquery.Selection) bool {
		heading := strings.ToLower(strings.TrimSpace(section.Find("h2, h3").First().Text()))
		if heading == "" {
			return true
		}

		for _, want := range sectionHeadings {
			if strings.Contains(heading, want) {
				var paragraphs []string
				section.Find("p").Each(func(_ int, p *goquery.Selection) {
					if text := strings.TrimSpace(p.Text()); text != "" {
						paragraphs = append(paragraphs, text)
					}
				})
				if len(paragraphs) > 0 {
					plot = strings.Join(paragraphs, " ")
					return false
				}
			}
		}
		return true
	})

	return plot
}

// searchPageTitle queries the MediaWiki search API for "<title> film" and
// returns the best matching page title, or "" when nothing matched.
func (c *Client) searchPageTitle(ctx context.Context, title string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", title+" film")
	params.Set("format", "json")
	params.Set("srlimit", "5")

	u := fmt.Sprintf("%s/w/api.php?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", slog.Any("error", err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Wikipedia search returned non-200",
			slog.String("title", title),
			slog.Int("status", resp.StatusCode))
		return "", nil
	}

	var result struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Query.Search) == 0 {
		return "", nil
	}
	return result.Query.Search[0].Title, nil
}
