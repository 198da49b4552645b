package wikipedia

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"log/slog"

	"github.com/PuerkitoBio/goquery"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const articleHTML = `<html><body>
<section><h2>Cast</h2><p>Starring nobody in particular.</p></section>
<section>
	<h2>Plot</h2>
	<p>A young man rows across the ocean.</p>
	<p>He arrives, eventually.</p>
</section>
</body></html>`

func TestFetchPlotDirectHit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rest_v1/page/html/Kon-Tiki" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("User-Agent"); got != "truestory-test/1.0" {
			t.Errorf("User-Agent = %q", got)
		}
		fmt.Fprint(w, articleHTML)
	}))
	defer server.Close()

	client := NewClient(server.URL, "truestory-test/1.0", testLogger())
	plot, err := client.FetchPlot(context.Background(), "Kon-Tiki")
	if err != nil {
		t.Fatalf("FetchPlot: %v", err)
	}
	want := "A young man rows across the ocean. He arrives, eventually."
	if plot != want {
		t.Errorf("plot = %q, want %q", plot, want)
	}
}

// A synopsis heading counts as a plot section too.
func TestFetchPlotSynopsisHeading(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<section><h2>Synopsis</h2><p>The crew abandons ship.</p></section>
		</body></html>`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "truestory-test/1.0", testLogger())
	plot, err := client.FetchPlot(context.Background(), "Any Title")
	if err != nil {
		t.Fatalf("FetchPlot: %v", err)
	}
	if plot != "The crew abandons ship." {
		t.Errorf("plot = %q", plot)
	}
}

// When the direct page lookup misses, the client searches for "<title> film"
// and retries with the best match.
func TestFetchPlotSearchFallback(t *testing.T) {
	searched := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/rest_v1/page/html/The_Walk":
			http.NotFound(w, r)
		case r.URL.Path == "/w/api.php":
			searched = true
			if got := r.URL.Query().Get("srsearch"); got != "The Walk film" {
				t.Errorf("srsearch = %q", got)
			}
			fmt.Fprint(w, `{"query":{"search":[{"title":"The Walk (2015 film)"}]}}`)
		case r.URL.Path == "/api/rest_v1/page/html/"+`The_Walk_(2015_film)`:
			fmt.Fprint(w, `<html><body><section><h2>Plot</h2><p>A wire walker crosses between the towers.</p></section></body></html>`)
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "truestory-test/1.0", testLogger())
	plot, err := client.FetchPlot(context.Background(), "The Walk")
	if err != nil {
		t.Fatalf("FetchPlot: %v", err)
	}
	if !searched {
		t.Error("Expected the search fallback to run")
	}
	if plot != "A wire walker crosses between the towers." {
		t.Errorf("plot = %q", plot)
	}
}

// A movie Wikipedia has never heard of resolves to "" with no error: that is
// the recordable "consulted, nothing there" outcome.
func TestFetchPlotMiss(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/w/api.php" {
			fmt.Fprint(w, `{"query":{"search":[]}}`)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, "truestory-test/1.0", testLogger())
	plot, err := client.FetchPlot(context.Background(), "Totally Unknown Movie")
	if err != nil {
		t.Fatalf("FetchPlot: %v", err)
	}
	if plot != "" {
		t.Errorf("Expected empty plot, got %q", plot)
	}
}

// A page that exists but has no plot-like section is also a miss.
func TestFetchPlotNoPlotSection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/w/api.php" {
			fmt.Fprint(w, `{"query":{"search":[]}}`)
			return
		}
		fmt.Fprint(w, `<html><body>
			<section><h2>Reception</h2><p>Critics liked it.</p></section>
		</body></html>`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "truestory-test/1.0", testLogger())
	plot, err := client.FetchPlot(context.Background(), "Some Documentary")
	if err != nil {
		t.Fatalf("FetchPlot: %v", err)
	}
	if plot != "" {
		t.Errorf("Expected empty plot, got %q", plot)
	}
}

// Transport failures surface as errors so the movie stays unmarked.
func TestFetchPlotTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Fatalf("Hijack: %v", err)
		}
		conn.Close()
	}))
	defer server.Close()

	client := NewClient(server.URL, "truestory-test/1.0", testLogger())
	if _, err := client.FetchPlot(context.Background(), "Anything"); err == nil {
		t.Error("Expected a transport error")
	}
}

func TestExtractPlotStopsAtFirstMatch(t *testing.T) {
	html := `<html><body>
		<section><h3>Premise</h3><p>First section wins.</p></section>
		<section><h2>Plot</h2><p>Never reached.</p></section>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("Parse HTML: %v", err)
	}
	if got := extractPlot(doc); got != "First section wins." {
		t.Errorf("extractPlot = %q", got)
	}
}
