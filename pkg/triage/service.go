package triage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jagalabs/scamguard/pkg/fusion"
	"github.com/jagalabs/scamguard/pkg/store"
)

// Notifier is fired when an alert is created, carrying what a presenter
// needs for deep-linking. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, alertID, headline string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, alertID, headline string)

func (f NotifierFunc) Notify(ctx context.Context, alertID, headline string) {
	f(ctx, alertID, headline)
}

// Input is one collector event handed to the service.
type Input struct {
	Text        string
	Origin      store.Origin
	SenderLabel string

	// KeepFullText opts into storing the raw text alongside the snippet.
	KeepFullText bool
}

// Outcome pairs the triage result with the alert it produced, if any.
type Outcome struct {
	Result  *Result
	AlertID string
}

// Service wraps the engine with persistence and notification. An Alert
// exists only for final MEDIUM/HIGH results that were not deduplicated.
type Service struct {
	engine   *Engine
	store    store.Store
	notifier Notifier
}

// NewService constructs a service. The notifier may be nil.
func NewService(engine *Engine, st store.Store, notifier Notifier) *Service {
	return &Service{engine: engine, store: st, notifier: notifier}
}

// Engine exposes the underlying engine for side-effect-free scans.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Process triages one event and persists an alert when warranted.
func (s *Service) Process(ctx context.Context, in Input) (*Outcome, error) {
	origin := in.Origin
	if origin == "" {
		origin = store.OriginManual
	}

	r, err := s.engine.TriageFrom(ctx, in.Text, string(origin))
	if err != nil {
		return nil, err
	}

	out := &Outcome{Result: r}
	if r.Deduplicated || r.RiskLevel == fusion.RiskLow {
		return out, nil
	}

	a := buildAlert(r, in, origin)
	if err := s.store.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("persist alert: %w", err)
	}
	out.AlertID = a.ID

	log.Printf("[INFO] Alert %s created (%s, %s, p=%.2f)", a.ID, a.RiskLevel, a.Category, r.RiskProbability)
	if s.notifier != nil {
		s.notifier.Notify(ctx, a.ID, a.Headline)
	}
	return out, nil
}

// buildAlert maps a MEDIUM/HIGH result onto the persisted model.
func buildAlert(r *Result, in Input, origin store.Origin) *store.Alert {
	a := &store.Alert{
		ID:              uuid.NewString(),
		CreatedAt:       time.Now().UTC(),
		Origin:          origin,
		RiskLevel:       r.RiskLevel,
		Category:        r.Category,
		Tactics:         r.Tactics,
		Snippet:         snippet(r.NormalizedText),
		URL:             r.URL,
		Headline:        r.Headline,
		SenderLabel:     in.SenderLabel,
		HeuristicScore:  r.HeuristicScore,
		ClassifierScore: r.ClassifierScore,
	}
	if in.KeepFullText {
		a.FullText = in.Text
	}
	if r.Explanation != nil {
		a.Explanation = r.Explanation
		a.ExplanationLanguage = r.ExplanationLanguage
	}
	return a
}

// snippet bounds the stored excerpt to store.MaxSnippetLen runes.
func snippet(normalized string) string {
	runes := []rune(normalized)
	if len(runes) <= store.MaxSnippetLen {
		return normalized
	}
	return string(runes[:store.MaxSnippetLen])
}
