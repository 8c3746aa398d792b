package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// TwitterPublisher posts summaries through an X/Twitter API-v2-style
// endpoint using a bearer token. It enforces the platform's 280-character
// limit by truncation before sending.
type TwitterPublisher struct {
	apiURL     string
	token      string
	maxLen     int
	httpClient *http.Client
}

func NewTwitterPublisher(apiURL, bearerToken string, maxLen int, timeout time.Duration) *TwitterPublisher {
	if maxLen <= 0 {
		maxLen = 280
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &TwitterPublisher{
		apiURL:     apiURL,
		token:      bearerToken,
		maxLen:     maxLen,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *TwitterPublisher) Name() string { return "twitter" }

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (p *TwitterPublisher) Publish(ctx context.Context, message string) (Result, error) {
	if p.token == "" {
		return Result{}, fmt.Errorf("twitter: bearer token not configured")
	}
	body, err := json.Marshal(tweetRequest{Text: Truncate(message, p.maxLen)})
	if err != nil {
		return Result{}, fmt.Errorf("twitter: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("twitter: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("twitter: post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("twitter: status %d: %s", resp.StatusCode, raw)
	}
	var parsed tweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("twitter: decode response: %w", err)
	}
	return Result{ID: parsed.Data.ID}, nil
}

// LogPublisher writes summaries to the process log. It is the default
// adapter for local development and also serves as a paper trail alongside
// real platforms.
type LogPublisher struct {
	maxLen int
}

func NewLogPublisher(maxLen int) *LogPublisher {
	return &LogPublisher{maxLen: maxLen}
}

func (p *LogPublisher) Name() string { return "log" }

func (p *LogPublisher) Publish(_ context.Context, message string) (Result, error) {
	log.Printf("[publish] %s", Truncate(message, p.maxLen))
	return Result{ID: "log"}, nil
}
