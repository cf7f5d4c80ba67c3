package literature

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/topic-eval/backend/internal/metrics"
	"github.com/topic-eval/backend/pkg/logger"
	"github.com/topic-eval/backend/pkg/retry"
)

// Client queries the CORE academic search API. Provider failures never
// propagate: the caller gets an empty result set and a degraded flag.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retryCfg   retry.Config
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.core.ac.uk/v3"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryCfg: retry.Config{
			MaxAttempts:    3,
			InitialDelay:   time.Second,
			MaxDelay:       5 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.1,
			Logger:         logger.GetLogger(),
		},
	}
}

// Search returns up to limit references for the query. The second return
// value reports degradation: the provider failed and the result set is empty.
// Without an API key a fixed mock result set is returned so the rest of the
// pipeline stays exercised offline.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Reference, bool) {
	if limit <= 0 {
		limit = 5
	}

	if c.apiKey == "" {
		logger.Warn("Literature API key not set, using mock results", zap.String("query", query))
		return mockReferences(query), false
	}

	refs, err := c.searchCORE(ctx, query, limit)
	if err != nil {
		logger.Warn("Literature search degraded to empty results",
			zap.String("query", query),
			zap.Error(err),
		)
		metrics.LiteratureDegraded.Inc()
		return nil, true
	}

	refs = dedupeReferences(refs)
	c.fillMissingAbstracts(ctx, refs)

	metrics.LiteratureResults.Observe(float64(len(refs)))
	logger.Info("Literature search completed",
		zap.String("query", query),
		zap.Int("results", len(refs)),
	)

	return refs, false
}

type coreSearchResponse struct {
	Results []coreWork `json:"results"`
}

type coreWork struct {
	ID                 int64    `json:"id"`
	Title              string   `json:"title"`
	Abstract           string   `json:"abstract"`
	YearPublished      int      `json:"yearPublished"`
	DOI                string   `json:"doi"`
	DownloadURL        string   `json:"downloadUrl"`
	SourceFulltextUrls []string `json:"sourceFulltextUrls"`
	Authors            []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

func (c *Client) searchCORE(ctx context.Context, query string, limit int) ([]Reference, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	searchURL := fmt.Sprintf("%s/search/works?%s", c.baseURL, params.Encode())

	var parsed coreSearchResponse

	err := retry.Do(ctx, c.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("literature request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("literature search returned status %d: %s", resp.StatusCode, string(body))
		}

		return json.NewDecoder(resp.Body).Decode(&parsed)
	})
	if err != nil {
		return nil, err
	}

	refs := make([]Reference, 0, len(parsed.Results))
	for _, work := range parsed.Results {
		refs = append(refs, parseWork(work))
	}
	return refs, nil
}

func parseWork(work coreWork) Reference {
	links := make([]Link, 0, 4)

	if work.DOI != "" {
		links = append(links, Link{Type: "doi", URL: "https://doi.org/" + work.DOI})
	}
	if work.DownloadURL != "" {
		links = append(links, Link{Type: "download", URL: work.DownloadURL})
	}
	for i, u := range work.SourceFulltextUrls {
		if i >= 2 {
			break
		}
		if u != "" {
			links = append(links, Link{Type: "fulltext", URL: u})
		}
	}
	if work.ID != 0 {
		links = append(links, Link{Type: "core", URL: fmt.Sprintf("https://core.ac.uk/works/%d", work.ID)})
	}

	authors := make([]string, 0, len(work.Authors))
	for _, a := range work.Authors {
		if a.Name != "" {
			authors = append(authors, a.Name)
		}
	}

	year := ""
	if work.YearPublished > 0 {
		year = strconv.Itoa(work.YearPublished)
	}

	return Reference{
		Title:    work.Title,
		Authors:  authors,
		Year:     year,
		DOI:      work.DOI,
		Links:    links,
		Abstract: work.Abstract,
	}
}

func dedupeReferences(refs []Reference) []Reference {
	seen := make(map[string]bool, len(refs))
	out := refs[:0]

	for _, ref := range refs {
		key := strings.ToLower(ref.DOI)
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(ref.Title))
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ref)
	}

	return out
}

const maxScrapedAbstract = 1200

// fillMissingAbstracts scrapes a plain-text snippet from a reference's
// fulltext page when CORE returned no abstract. Best effort only.
func (c *Client) fillMissingAbstracts(ctx context.Context, refs []Reference) {
	for i := range refs {
		if refs[i].Abstract != "" {
			continue
		}

		pageURL := ""
		for _, link := range refs[i].Links {
			if link.Type == "fulltext" || link.Type == "download" {
				pageURL = link.URL
				break
			}
		}
		if pageURL == "" {
			continue
		}

		snippet, err := c.scrapeText(ctx, pageURL)
		if err != nil {
			logger.Debug("Failed to scrape reference page",
				zap.String("url", pageURL),
				zap.Error(err),
			)
			continue
		}
		refs[i].Abstract = snippet
	}
}

func (c *Client) scrapeText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, footer, header, aside").Remove()
	text := strings.TrimSpace(doc.Find("body").Text())
	text = strings.Join(strings.Fields(text), " ")

	if len(text) > maxScrapedAbstract {
		text = text[:maxScrapedAbstract]
	}

	return text, nil
}

func mockReferences(query string) []Reference {
	return []Reference{
		{
			Title:    fmt.Sprintf("Research on %s", query),
			Authors:  []string{"Simulated Author"},
			Year:     "2024",
			Links:    []Link{},
			Abstract: fmt.Sprintf("This is a simulated abstract about %s. No actual API data available.", query),
		},
	}
}
