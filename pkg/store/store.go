// Package store defines the persisted Alert model and the storage
// interface it is written through. An Alert only exists for messages whose
// final risk level is MEDIUM or HIGH.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jagalabs/scamguard/pkg/cloud"
	"github.com/jagalabs/scamguard/pkg/fusion"
	"github.com/jagalabs/scamguard/pkg/keywords"
)

// Origin names the collector that produced the alert.
type Origin string

const (
	OriginMessageListener Origin = "message-listener"
	OriginImageScan       Origin = "image-scan"
	OriginManual          Origin = "manual"
)

// MaxSnippetLen bounds the stored snippet. The full text is kept separately
// and only when the caller opts in.
const MaxSnippetLen = 200

// ErrNotFound is returned for lookups and deletes of unknown alert ids.
var ErrNotFound = errors.New("alert not found")

// Alert is one persisted scam detection.
type Alert struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Origin    Origin           `json:"origin"`
	RiskLevel fusion.RiskLevel `json:"risk_level"`
	Category  string           `json:"category"`

	// Tactics preserves the heuristic stage's match order.
	Tactics []keywords.Tactic `json:"tactics"`

	// Snippet is the redacted excerpt shown in lists, at most MaxSnippetLen
	// runes of the normalized text.
	Snippet  string `json:"snippet"`
	URL      string `json:"url,omitempty"`
	Headline string `json:"headline"`

	SenderLabel string `json:"sender_label,omitempty"`
	FullText    string `json:"full_text,omitempty"`

	// Explanation caches the confirmation verdict when Stage 3 succeeded.
	Explanation         *cloud.Explanation `json:"explanation,omitempty"`
	ExplanationLanguage string             `json:"explanation_language,omitempty"`

	// Raw stage scores, kept for later display and debugging. The
	// classifier score may be the unavailable sentinel.
	HeuristicScore  float64 `json:"heuristic_score"`
	ClassifierScore float64 `json:"classifier_score"`
}

// Store is the persistence interface for alerts. Implementations serialize
// concurrent writes themselves.
type Store interface {
	Create(ctx context.Context, a *Alert) error
	Get(ctx context.Context, id string) (*Alert, error)
	Delete(ctx context.Context, id string) error

	// CountSince returns how many alerts were created at or after ts.
	CountSince(ctx context.Context, ts time.Time) (int, error)

	// CategoryCounts and TacticCounts aggregate alerts created at or
	// after ts for the stats endpoint.
	CategoryCounts(ctx context.Context, ts time.Time) (map[string]int, error)
	TacticCounts(ctx context.Context, ts time.Time) (map[string]int, error)
}
