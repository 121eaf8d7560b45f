// internal/search/search.go
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"company-intel/internal/common/config"
	commonhttp "company-intel/internal/common/http"
	"company-intel/internal/common/logger"
	"company-intel/internal/models"
)

var ErrWebSearchTimeout = errors.New("WEB_SEARCH_TIMEOUT")

// Searcher finds web pages about a company.
type Searcher interface {
	Search(ctx context.Context, company string) ([]models.Source, error)
}

type Config struct {
	BaseURL      string
	APIKey       string
	EngineID     string
	Timeout      time.Duration
	MaxResults   int
	MinRelevance float64
}

func ConfigFrom(cfg config.SearchConfig) Config {
	return Config{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		EngineID:     cfg.EngineID,
		Timeout:      config.GetDuration(cfg.Timeout),
		MaxResults:   cfg.MaxResults,
		MinRelevance: cfg.MinRelevance,
	}
}

type apiResponse struct {
	Items []item `json:"items"`
}

type item struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Mime    string `json:"mime"`
}

// Client queries a Google Custom Search compatible endpoint.
type Client struct {
	config Config
	http   *commonhttp.Client
	logger logger.Logger
}

func NewClient(cfg Config, log logger.Logger) *Client {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	return &Client{
		config: cfg,
		http:   commonhttp.NewClient(0),
		logger: log.With(map[string]interface{}{"component": "search"}),
	}
}

func (c *Client) Search(ctx context.Context, company string) ([]models.Source, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	query := buildQuery(company)
	searchURL, err := c.buildSearchURL(query)
	if err != nil {
		return nil, err
	}

	var resp apiResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, searchURL, nil, nil, &resp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrWebSearchTimeout, err)
		}
		return nil, fmt.Errorf("search API: %w", err)
	}

	sources := processResults(resp.Items, c.config.MinRelevance, c.config.MaxResults)

	c.logger.Info("web search completed", map[string]interface{}{
		"query":       query,
		"resultCount": len(sources),
	})
	return sources, nil
}

var whitespace = regexp.MustCompile(`\s+`)

func buildQuery(company string) string {
	q := strings.TrimSpace(company) + " company news stock performance"
	return whitespace.ReplaceAllString(q, " ")
}

func (c *Client) buildSearchURL(query string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("search base url: %w", err)
	}
	params := url.Values{}
	params.Add("key", c.config.APIKey)
	params.Add("cx", c.config.EngineID)
	params.Add("q", query)
	params.Add("num", fmt.Sprintf("%d", c.config.MaxResults))
	baseURL.RawQuery = params.Encode()
	return baseURL.String(), nil
}

func processResults(items []item, minRelevance float64, maxResults int) []models.Source {
	seen := make(map[string]bool)
	sources := []models.Source{}

	for _, it := range items {
		if it.Mime != "" && !strings.Contains(it.Mime, "html") {
			continue
		}
		if it.Link == "" || seen[it.Link] {
			continue
		}
		seen[it.Link] = true

		relevance := 1.0
		if host := hostOf(it.Link); strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".edu") {
			relevance += 0.2
		}
		title := strings.ToLower(it.Title)
		if strings.Contains(title, "official") || strings.Contains(title, "investor") {
			relevance += 0.1
		}

		if relevance >= minRelevance {
			sources = append(sources, models.Source{
				URL:       it.Link,
				Title:     it.Title,
				Snippet:   it.Snippet,
				Relevance: relevance,
			})
		}
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Relevance > sources[j].Relevance
	})

	if maxResults > 0 && len(sources) > maxResults {
		sources = sources[:maxResults]
	}
	return sources
}

func hostOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
