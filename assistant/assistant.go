// Package assistant asks a Gemini model for music recommendations based on a request and the
// recent listening history.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/history"
	"github.com/melodeck/melodeck/log"
	"github.com/melodeck/melodeck/network"
	"github.com/melodeck/melodeck/util"
	"github.com/sirupsen/logrus"
)

const (
	DefaultModel    = "gemini-2.5-flash-lite"
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

	// HistoryContext is the number of recent plays included in the prompt.
	HistoryContext = 5

	maxAttempts       = 3
	defaultRetryDelay = 5 * time.Second
)

const systemPrompt = `You are melodeck, a music recommendation assistant. Suggest songs based on the user's request and history.
Respond with ONLY valid JSON with NO markdown, NO backticks, NO extra text. Use this exact format:
{"message":"short friendly reply","suggestions":[{"query":"Artist - Song Title","reason":"brief reason"}]}
Include 5-6 suggestions. Be specific with artist + song title. If unrelated to music, redirect politely.
CRITICAL: Your entire response must be valid JSON. Do not include any text before or after the JSON object.`

// Suggestion is one recommended track, phrased as a search query.
type Suggestion struct {
	Query  string `json:"query"`
	Reason string `json:"reason"`
}

// Reply is the assistant's answer.
type Reply struct {
	Message     string       `json:"message"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Options configures a Client.
type Options struct {
	HTTP       *http.Client
	Endpoint   string
	Model      string
	APIKey     func() (string, error)
	RetryDelay time.Duration
}

// Client talks to the Gemini generateContent API.
type Client struct {
	opts Options
}

// New creates a Client. APIKey is required.
func New(opts Options) *Client {
	if opts.HTTP == nil {
		opts.HTTP = network.Client
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	return &Client{opts: opts}
}

var (
	errRateLimited  = errors.New("rate limited")
	errInvalidJSON  = errors.New("invalid JSON")
	errMissingField = errors.New("missing required fields")
)

// Chat sends message together with the recent history and returns validated suggestions.
func (c *Client) Chat(ctx context.Context, message string, recent []history.Entry) (Reply, error) {
	const op = "assistant.chat"

	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, fault.New(fault.ValidationError, op, "message is required")
	}

	apiKey, err := c.opts.APIKey()
	if err != nil {
		return Reply{}, err
	}

	prompt := buildPrompt(message, recent)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		reply, err := c.attempt(ctx, apiKey, prompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		log.With(logrus.Fields{"attempt": attempt + 1, "err": err}).Warn("assistant request failed")

		if errors.Is(err, errRateLimited) && attempt < maxAttempts-1 {
			select {
			case <-time.After(c.opts.RetryDelay):
				continue
			case <-ctx.Done():
				return Reply{}, fault.Wrap(fault.Unknown, op, ctx.Err())
			}
		}

		if errors.Is(err, errInvalidJSON) && attempt > 0 {
			break
		}

		if ctx.Err() != nil {
			break
		}
	}

	switch {
	case errors.Is(lastErr, errRateLimited):
		return Reply{}, &fault.Error{
			Op:     op,
			Kind:   fault.RateLimited,
			Detail: "Gemini API quota exceeded; try again later or enable billing at https://ai.google.dev",
			Err:    lastErr,
		}
	case errors.Is(lastErr, errInvalidJSON), errors.Is(lastErr, errMissingField):
		return Reply{}, &fault.Error{
			Op:     op,
			Kind:   fault.Unknown,
			Detail: "AI generated invalid response format. Please try rephrasing your request.",
			Err:    lastErr,
		}
	default:
		return Reply{}, fault.Wrap(fault.Unknown, op, lastErr)
	}
}

func buildPrompt(message string, recent []history.Entry) string {
	var b strings.Builder
	b.WriteString(systemPrompt)

	if len(recent) > 0 {
		b.WriteString("\nHistory:\n")
		for i, e := range recent {
			fmt.Fprintf(&b, "%d. %q by %s\n", i+1, e.Title, e.Uploader)
		}
	}

	b.WriteString("\n\nUser: ")
	b.WriteString(message)
	return b.String()
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) attempt(ctx context.Context, apiKey, prompt string) (Reply, error) {
	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return Reply{}, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimSuffix(c.opts.Endpoint, "/"), url.PathEscape(c.opts.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Reply{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	resp, err := c.opts.HTTP.Do(req)
	if err != nil {
		return Reply{}, err
	}
	defer util.Ignore(resp.Body.Close)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return Reply{}, fmt.Errorf("%w: %s", errRateLimited, resp.Status)
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Reply{}, fmt.Errorf("decode response (%s): %w", resp.Status, err)
	}

	if resp.StatusCode != http.StatusOK {
		if decoded.Error != nil {
			if strings.Contains(strings.ToLower(decoded.Error.Message), "quota") {
				return Reply{}, fmt.Errorf("%w: %s", errRateLimited, decoded.Error.Message)
			}
			return Reply{}, fmt.Errorf("gemini: %s", decoded.Error.Message)
		}
		return Reply{}, fmt.Errorf("gemini: unexpected status %s", resp.Status)
	}

	var text strings.Builder
	for _, candidate := range decoded.Candidates {
		for _, p := range candidate.Content.Parts {
			text.WriteString(p.Text)
		}
	}

	return parseReply(text.String())
}

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// cleanJSON strips markdown fences and any text around the outermost JSON object.
func cleanJSON(text string) string {
	cleaned := strings.TrimSpace(text)

	if m := fencePattern.FindStringSubmatch(cleaned); m != nil {
		cleaned = strings.TrimSpace(m[1])
	}

	start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}")
	if start != -1 && end > start {
		cleaned = cleaned[start : end+1]
	}

	return cleaned
}

func parseReply(text string) (Reply, error) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(cleanJSON(text)), &parsed); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", errInvalidJSON, err)
	}

	message, ok := parsed["message"].(string)
	if !ok || message == "" {
		return Reply{}, errMissingField
	}

	rawSuggestions, ok := parsed["suggestions"].([]any)
	if !ok {
		return Reply{}, errMissingField
	}

	suggestions := make([]Suggestion, 0, len(rawSuggestions))
	for _, raw := range rawSuggestions {
		s, ok := raw.(map[string]any)
		if !ok {
			return Reply{}, errMissingField
		}
		query, ok := s["query"].(string)
		if !ok || query == "" {
			return Reply{}, errMissingField
		}
		reason, _ := s["reason"].(string)
		suggestions = append(suggestions, Suggestion{Query: query, Reason: reason})
	}

	return Reply{Message: message, Suggestions: suggestions}, nil
}
