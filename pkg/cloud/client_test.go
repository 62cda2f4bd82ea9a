package cloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jagalabs/scamguard/pkg/fusion"
	"github.com/jagalabs/scamguard/pkg/keywords"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(ClientConfig{
		Provider: ProviderOpenRouter,
		APIKey:   "test-key",
		Model:    "test-model",
		BaseURL:  srv.URL,
		Timeout:  2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, srv
}

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func sampleRequest() *Request {
	return &Request{
		AlertType:       "message-listener",
		Category:        "phishing",
		Tactics:         []keywords.Tactic{keywords.TacticUrgency, keywords.TacticThreat},
		Snippet:         "urgent: your account has been suspended, verify now at <url>",
		URL:             "http://bit.ly/x",
		Language:        "en",
		HeuristicScore:  0.67,
		ClassifierScore: 0.91,
	}
}

func TestConfirmSuccess(t *testing.T) {
	verdict := `{"category":"phishing","riskLevel":"HIGH","headline":"Fake bank suspension scam",
		"whyFlagged":["urgency pressure","lookalike link"],
		"whatToDoNow":["Delete the message"],"whatNotToDo":["Do not click the link"],
		"confidence":0.93,"notes":""}`

	var gotAuth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(chatReply(verdict)))
	})

	exp, err := c.Confirm(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if exp.Category != "phishing" || exp.Headline != "Fake bank suspension scam" {
		t.Errorf("unexpected verdict: %+v", exp)
	}
	if exp.ParsedRiskLevel() != fusion.RiskHigh {
		t.Errorf("ParsedRiskLevel = %v, want HIGH", exp.ParsedRiskLevel())
	}
	if exp.Confidence != 0.93 {
		t.Errorf("Confidence = %v", exp.Confidence)
	}
}

func TestConfirmStripsMarkdownFencing(t *testing.T) {
	content := "Here is my analysis:\n```json\n" +
		`{"category":"phishing","riskLevel":"MEDIUM","headline":"Suspicious link"}` +
		"\n```"
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply(content)))
	})

	exp, err := c.Confirm(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if exp.Headline != "Suspicious link" {
		t.Errorf("Headline = %q", exp.Headline)
	}
}

func TestConfirmAppliesDefaults(t *testing.T) {
	// Bare object: every field missing or invalid.
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply(`{"riskLevel":"CRITICAL","confidence":7.5}`)))
	})

	exp, err := c.Confirm(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if exp.Category != "unknown" {
		t.Errorf("Category = %q, want unknown default", exp.Category)
	}
	if exp.RiskLevel != "MEDIUM" {
		t.Errorf("RiskLevel = %q, want MEDIUM default for unrecognized value", exp.RiskLevel)
	}
	if exp.Headline == "" {
		t.Error("Headline should receive a generic default")
	}
	if len(exp.WhatToDoNow) == 0 || len(exp.WhatNotToDo) == 0 {
		t.Error("action lists should receive generic defaults")
	}
	if exp.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5 default for out-of-range value", exp.Confidence)
	}
	if exp.Language != "en" {
		t.Errorf("Language = %q, want request language", exp.Language)
	}
}

func TestConfirmTimeout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(chatReply(`{}`)))
	})
	c.timeout = 50 * time.Millisecond

	if _, err := c.Confirm(context.Background(), sampleRequest()); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestConfirmNon200(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	if _, err := c.Confirm(context.Background(), sampleRequest()); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestConfirmMalformedJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply("I cannot judge this message.")))
	})
	if _, err := c.Confirm(context.Background(), sampleRequest()); err == nil {
		t.Fatal("expected parse error for non-JSON content")
	}
}

func TestBuildUserMessageTruncatesSnippet(t *testing.T) {
	req := sampleRequest()
	req.Snippet = strings.Repeat("a", 2000)

	msg := buildUserMessage(req)
	if strings.Contains(msg, strings.Repeat("a", maxSnippetChars+1)) {
		t.Error("snippet was not truncated")
	}
	if !strings.Contains(msg, "TACTICS: urgency, threat") {
		t.Errorf("tactics missing from message:\n%s", msg)
	}
	if !strings.Contains(msg, "URL: http://bit.ly/x") {
		t.Error("URL missing from message")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(ClientConfig{Provider: ProviderOpenRouter}); err == nil {
		t.Error("expected error for missing API key")
	}
	if _, err := NewClient(ClientConfig{Provider: ProviderOllama}); err != nil {
		t.Errorf("Ollama should not require an API key: %v", err)
	}
}

func TestPolicyFromName(t *testing.T) {
	p, err := PolicyFromName("")
	if err != nil || p != ConservativeOnFailure {
		t.Errorf("empty name: got %v, %v", p, err)
	}
	p, err = PolicyFromName("require_confirmation")
	if err != nil || p != RequireConfirmation {
		t.Errorf("require_confirmation: got %v, %v", p, err)
	}
	if _, err := PolicyFromName("shrug"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
