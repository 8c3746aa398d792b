// Package feed implements the discovery I/O adapter: it pulls candidate
// layoff posts from a Google-News-style RSS feed and normalizes them into
// ledger inserts. Fetch failures are never fatal to the calling agent.
package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Candidate is one raw feed item before normalization.
type Candidate struct {
	RawIdentity string
	RegionHint  string
	Title       string
	Published   string
	Text        string
}

// Fetcher is the boundary the scout depends on.
type Fetcher interface {
	FetchCandidates(ctx context.Context) ([]Candidate, error)
}

// RSSFetcher reads an RSS 2.0 feed over HTTP.
type RSSFetcher struct {
	url        string
	limit      int
	httpClient *http.Client
}

// NewRSSFetcher bounds each fetch at limit items and timeout per request.
func NewRSSFetcher(url string, limit int, timeout time.Duration) *RSSFetcher {
	if limit <= 0 {
		limit = 10
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &RSSFetcher{
		url:        url,
		limit:      limit,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
}

func (f *RSSFetcher) FetchCandidates(ctx context.Context) ([]Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}
	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := doc.Channel.Items
	if len(items) > f.limit {
		items = items[:f.limit]
	}
	candidates := make([]Candidate, 0, len(items))
	for _, item := range items {
		fullText := item.Title + " " + item.Description
		candidates = append(candidates, Candidate{
			RawIdentity: ExtractPostURL(item.Link, item.Description),
			RegionHint:  ExtractRegion(fullText),
			Title:       item.Title,
			Published:   item.PubDate,
			Text:        fullText,
		})
	}
	return candidates, nil
}
