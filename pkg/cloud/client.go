// Package cloud implements the confirmation stage: an OpenAI-compatible
// chat-completions call that turns an escalated local verdict into a
// structured, user-facing explanation. The service is the final arbiter on
// success and completely optional on failure.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jagalabs/scamguard/pkg/httputil"
	"github.com/jagalabs/scamguard/pkg/keywords"
)

// Provider identifies the backend service type.
type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderOllama     Provider = "ollama"
	ProviderGroq       Provider = "groq"
	ProviderCerebras   Provider = "cerebras"
)

// DefaultTimeout is the hard per-confirmation deadline. Stage 3 runs after
// alerting is already possible locally, so a slow service gets cut off
// rather than waited on.
const DefaultTimeout = 10 * time.Second

// maxSnippetChars bounds the message excerpt sent to the service.
const maxSnippetChars = 500

// maxResponseSize bounds the response body read. A structured verdict is a
// few KB; anything larger is a misbehaving provider.
const maxResponseSize = 2 * 1024 * 1024

// FailurePolicy names what happens to the local label when confirmation
// fails (timeout, network error, malformed response).
type FailurePolicy string

const (
	// ConservativeOnFailure keeps the locally computed label. Default:
	// a cloud outage must not silence alerts.
	ConservativeOnFailure FailurePolicy = "conservative_on_failure"

	// RequireConfirmation downgrades to LOW unless the service confirms.
	RequireConfirmation FailurePolicy = "require_confirmation"
)

// PolicyFromName resolves a configuration value to a failure policy.
func PolicyFromName(name string) (FailurePolicy, error) {
	switch name {
	case "", string(ConservativeOnFailure):
		return ConservativeOnFailure, nil
	case string(RequireConfirmation):
		return RequireConfirmation, nil
	default:
		return "", fmt.Errorf("unknown stage 3 failure policy %q", name)
	}
}

// Request carries everything the confirmation service needs to judge one
// escalated message.
type Request struct {
	AlertType       string            // "message-listener", "image-scan", "manual"
	Category        string            // local coarse guess
	Tactics         []keywords.Tactic // matched heuristic tactics, in order
	Snippet         string            // normalized excerpt, truncated to maxSnippetChars
	URL             string            // extracted URL, if any
	Language        string            // BCP 47 hint for the explanation
	HeuristicScore  float64
	ClassifierScore float64           // may be the unavailable sentinel
	SimilarScams    []string          // optional exemplar context, most similar first
}

// ClientConfig holds construction options for the confirmation client.
type ClientConfig struct {
	Provider      Provider
	APIKey        string // optional for Ollama
	Model         string
	BaseURL       string        // optional override
	Timeout       time.Duration // defaults to DefaultTimeout
	MaxConcurrent int           // confirmation slots, defaults to 4
}

// Client calls the confirmation endpoint. Safe for concurrent use.
type Client struct {
	client   *http.Client
	provider Provider
	baseURL  string
	apiKey   string
	model    string
	timeout  time.Duration
	slots    *httputil.Semaphore
}

// NewClient constructs a confirmation client, resolving provider defaults.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Provider != ProviderOllama && cfg.APIKey == "" {
		return nil, fmt.Errorf("API key required for provider %q", cfg.Provider)
	}
	if cfg.Model == "" {
		if cfg.Provider == ProviderOllama {
			cfg.Model = "qwen2.5:7b"
		} else {
			cfg.Model = "meta-llama/llama-3.3-70b-instruct"
		}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch cfg.Provider {
		case ProviderOllama:
			baseURL = "http://localhost:11434/v1"
		case ProviderGroq:
			baseURL = "https://api.groq.com/openai/v1"
		case ProviderCerebras:
			baseURL = "https://api.cerebras.ai/v1"
		default:
			baseURL = "https://openrouter.ai/api/v1"
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	return &Client{
		client:   httputil.Client(httputil.TierMedium),
		provider: cfg.Provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		timeout:  timeout,
		slots:    httputil.NewSemaphore(maxConcurrent),
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const systemPrompt = `You are a scam triage analyst. You receive one suspicious message that
on-device screening already flagged, together with the detection signals.
Judge whether it is a scam and explain it for a non-technical phone user.

Respond with JSON only:
{"category": "phishing|impersonation|payment-fraud|threat-extortion|prize-lottery|investment|other",
 "riskLevel": "LOW|MEDIUM|HIGH",
 "headline": "one short sentence",
 "whyFlagged": ["..."],
 "whatToDoNow": ["..."],
 "whatNotToDo": ["..."],
 "confidence": 0.0-1.0,
 "notes": "optional free text"}

Use riskLevel LOW for legitimate messages (e.g. a real bank announcement).
Write the headline and lists in the requested language.`

// Confirm sends one escalated case and returns the structured verdict. The
// call is bounded by the client's timeout regardless of the caller's
// context deadline.
func (c *Client) Confirm(ctx context.Context, req *Request) (*Explanation, error) {
	if err := c.slots.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("confirmation slots exhausted: %w", err)
	}
	defer c.slots.Release()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	content, err := c.callService(ctx, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserMessage(req)},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, err
	}

	var exp Explanation
	if err := json.Unmarshal([]byte(extractJSON(content)), &exp); err != nil {
		return nil, fmt.Errorf("failed to parse confirmation response: %w", err)
	}
	exp.applyDefaults(req.Language)
	return &exp, nil
}

// buildUserMessage serializes the request into the analyst prompt.
func buildUserMessage(req *Request) string {
	var b strings.Builder

	tactics := make([]string, len(req.Tactics))
	for i, t := range req.Tactics {
		tactics[i] = string(t)
	}

	language := req.Language
	if language == "" {
		language = "en"
	}

	fmt.Fprintf(&b, "SOURCE: %s\n", req.AlertType)
	fmt.Fprintf(&b, "LOCAL_CATEGORY: %s\n", req.Category)
	fmt.Fprintf(&b, "TACTICS: %s\n", strings.Join(tactics, ", "))
	fmt.Fprintf(&b, "HEURISTIC_SCORE: %.3f\n", req.HeuristicScore)
	fmt.Fprintf(&b, "CLASSIFIER_SCORE: %.3f\n", req.ClassifierScore)
	if req.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", req.URL)
	}
	fmt.Fprintf(&b, "LANGUAGE: %s\n", language)
	if len(req.SimilarScams) > 0 {
		b.WriteString("SIMILAR_KNOWN_SCAMS:\n")
		for _, s := range req.SimilarScams {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	fmt.Fprintf(&b, "\nMESSAGE:\n%s\n", truncate(req.Snippet, maxSnippetChars))
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Cut on a rune boundary.
	runes := []rune(s)
	if len(runes) > max {
		runes = runes[:max]
	}
	return string(runes)
}

// extractJSON strips any markdown fencing or prose around the JSON object.
func extractJSON(content string) string {
	clean := strings.TrimSpace(content)
	if start := strings.Index(clean, "{"); start != -1 {
		clean = clean[start:]
	}
	if end := strings.LastIndex(clean, "}"); end != -1 {
		clean = clean[:end+1]
	}
	return clean
}

func (c *Client) callService(ctx context.Context, body chatRequest) (string, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer httputil.DrainAndClose(resp.Body)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("confirmation API error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal error: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return parsed.Choices[0].Message.Content, nil
}
