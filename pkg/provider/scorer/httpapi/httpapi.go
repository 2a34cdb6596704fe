// Package httpapi provides a scorer.Provider backed by a remote scoring
// service speaking a small JSON protocol: POST the WAV clip (base64) plus
// the expected text, get back the transcription and a score in [0, 1].
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrWong99/readalong/pkg/provider/scorer"
)

const defaultTimeout = 30 * time.Second

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithAPIKey sets a bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(p *Provider) {
		p.apiKey = key
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.client.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.client = c
	}
}

// Provider implements scorer.Provider against a remote HTTP endpoint.
type Provider struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

var _ scorer.Provider = (*Provider)(nil)

// New creates a Provider posting to the given endpoint URL.
func New(endpoint string, opts ...Option) (*Provider, error) {
	if endpoint == "" {
		return nil, errors.New("httpapi scorer: endpoint must not be empty")
	}
	p := &Provider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

type scoreRequest struct {
	// Audio is the WAV clip, base64-encoded by encoding/json.
	Audio        []byte `json:"audio"`
	ExpectedText string `json:"expected_text"`
}

type scoreResponse struct {
	SpokenText string  `json:"spoken_text"`
	Score      float64 `json:"score"`
}

// Score posts the attempt to the remote service. Transport failures and
// non-2xx responses wrap scorer.ErrUnavailable.
func (p *Provider) Score(ctx context.Context, req scorer.Request) (*scorer.Result, error) {
	if len(req.Audio) == 0 {
		return nil, errors.New("httpapi scorer: audio must not be empty")
	}

	body, err := json.Marshal(scoreRequest{Audio: req.Audio, ExpectedText: req.ExpectedText})
	if err != nil {
		return nil, fmt.Errorf("httpapi scorer: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httpapi scorer: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scorer.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", scorer.ErrUnavailable, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var sr scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", scorer.ErrUnavailable, err)
	}
	if sr.Score < 0 {
		sr.Score = 0
	} else if sr.Score > 1 {
		sr.Score = 1
	}
	return &scorer.Result{SpokenText: sr.SpokenText, Score: sr.Score}, nil
}
