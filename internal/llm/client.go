// Package llm calls the Gemini generateContent API with a priority-ordered
// candidate model list. Model-name drift is the dominant failure mode, so the
// only fallback dimension is model identity: one attempt per candidate, in
// order, first success wins.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Attempt records the outcome of one candidate model call
type Attempt struct {
	Model string
	Err   error
}

// AllCandidatesExhaustedError is returned when every candidate in the
// priority list failed. It carries the per-candidate errors; Unwrap exposes
// the error from the last candidate attempted.
type AllCandidatesExhaustedError struct {
	Attempts []Attempt
}

func (e *AllCandidatesExhaustedError) Error() string {
	last := e.Attempts[len(e.Attempts)-1]
	return fmt.Sprintf("all %d candidate models failed, last (%s): %v", len(e.Attempts), last.Model, last.Err)
}

func (e *AllCandidatesExhaustedError) Unwrap() error {
	return e.Attempts[len(e.Attempts)-1].Err
}

// Client invokes the generation service. One instance is shared across all
// pipeline runs; it holds no per-run state.
type Client struct {
	baseURL    string
	apiKey     string
	candidates []string
	httpClient *http.Client
	limiter    *rate.Limiter
	observer   func(model string, success bool)
}

// NewClient creates a client for the given endpoint and candidate list.
// baseURL is the API root, e.g. https://generativelanguage.googleapis.com/v1beta
func NewClient(baseURL, apiKey string, candidates []string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		candidates: candidates,
		httpClient: &http.Client{
			Timeout: 600 * time.Second, // generation can be slow, don't cut it off early
		},
		// Outbound politeness limiter, not a retry policy: 2 req/s burst 4
		// keeps a single user's 4-call pipeline from hammering the API.
		limiter: rate.NewLimiter(rate.Limit(2), 4),
	}
}

// SetAttemptObserver registers a hook called once per candidate attempt,
// used for metrics. Optional.
func (c *Client) SetAttemptObserver(fn func(model string, success bool)) {
	c.observer = fn
}

// Candidates returns the priority-ordered model list
func (c *Client) Candidates() []string {
	return c.candidates
}

// Invoke sends the rendered prompt to each candidate model in priority order
// and returns the first successful response text. When all candidates fail it
// returns AllCandidatesExhaustedError carrying every recorded failure.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	if len(c.candidates) == 0 {
		return "", fmt.Errorf("no candidate models configured")
	}

	attempts := make([]Attempt, 0, len(c.candidates))
	for _, model := range c.candidates {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		text, err := c.generate(ctx, model, prompt)
		if c.observer != nil {
			c.observer(model, err == nil)
		}
		if err == nil {
			return text, nil
		}

		log.Printf("⚠️  [LLM] Model %s failed, trying next candidate: %v", model, err)
		attempts = append(attempts, Attempt{Model: model, Err: err})
	}

	return "", &AllCandidatesExhaustedError{Attempts: attempts}
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

// generate performs a single blocking generateContent call against one model
func (c *Client) generate(ctx context.Context, model, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generation request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse generation response: %w", err)
	}

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("generation response contained no candidates")
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := sb.String()
	if text == "" {
		return "", fmt.Errorf("generation response contained no text")
	}
	return text, nil
}
