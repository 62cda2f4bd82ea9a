package triage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jagalabs/scamguard/pkg/classifier"
	"github.com/jagalabs/scamguard/pkg/cloud"
	"github.com/jagalabs/scamguard/pkg/dedupe"
	"github.com/jagalabs/scamguard/pkg/fusion"
	"github.com/jagalabs/scamguard/pkg/keywords"
	"github.com/jagalabs/scamguard/pkg/store"
	"github.com/jagalabs/scamguard/pkg/store/memstore"
)

const scamText = "URGENT: your account has been suspended, verify now at http://bit.ly/x"
const benignText = "Happy birthday! Hope you have a great day."

type fakeNeural struct {
	score float64
	err   error
}

func (f *fakeNeural) Score(_ context.Context, _ string) (float64, error) {
	if f.err != nil {
		return classifier.ScoreUnavailable, f.err
	}
	return f.score, nil
}

func (f *fakeNeural) IsReady() bool { return f.err == nil }

type fakeConfirmer struct {
	exp   *cloud.Explanation
	err   error
	calls int
	last  *cloud.Request
}

func (f *fakeConfirmer) Confirm(_ context.Context, req *cloud.Request) (*cloud.Explanation, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.exp, nil
}

func highVerdict() *cloud.Explanation {
	return &cloud.Explanation{
		Category:    "phishing",
		RiskLevel:   "HIGH",
		Headline:    "Fake account suspension scam",
		WhyFlagged:  []string{"urgency pressure"},
		WhatToDoNow: []string{"Delete the message"},
		WhatNotToDo: []string{"Do not click the link"},
		Confidence:  0.95,
		Language:    "en",
	}
}

func TestTriageScamEscalatesAndConfirms(t *testing.T) {
	confirmer := &fakeConfirmer{exp: highVerdict()}
	e := NewEngine(Options{
		Neural:    &fakeNeural{score: 0.9},
		Confirmer: confirmer,
	})

	r, err := e.Triage(context.Background(), scamText)
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}

	if !r.Escalated {
		t.Error("expected escalation")
	}
	if confirmer.calls != 1 {
		t.Fatalf("confirmer called %d times, want 1", confirmer.calls)
	}
	if r.RiskLevel != fusion.RiskHigh {
		t.Errorf("RiskLevel = %v, want HIGH from confirmation", r.RiskLevel)
	}
	if r.Explanation == nil || r.Headline != "Fake account suspension scam" {
		t.Errorf("explanation not applied: %+v", r)
	}
	if r.HeuristicScore <= 0.6 {
		t.Errorf("HeuristicScore = %v, want > 0.6", r.HeuristicScore)
	}
	if !r.ContainsURL {
		t.Error("expected ContainsURL")
	}
	if confirmer.last.URL != "http://bit.ly/x" {
		t.Errorf("confirmation URL = %q", confirmer.last.URL)
	}

	wantTactics := []keywords.Tactic{
		keywords.TacticUrgency, keywords.TacticThreat, keywords.TacticVerification,
	}
	if len(r.Tactics) != len(wantTactics) {
		t.Fatalf("Tactics = %v, want %v", r.Tactics, wantTactics)
	}
	for i := range wantTactics {
		if r.Tactics[i] != wantTactics[i] {
			t.Errorf("Tactics[%d] = %v, want %v", i, r.Tactics[i], wantTactics[i])
		}
	}
}

func TestTriageBenignIsLow(t *testing.T) {
	confirmer := &fakeConfirmer{exp: highVerdict()}
	e := NewEngine(Options{
		Neural:    &fakeNeural{score: 0.05},
		Confirmer: confirmer,
	})

	r, err := e.Triage(context.Background(), benignText)
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}

	if r.RiskLevel != fusion.RiskLow {
		t.Errorf("RiskLevel = %v, want LOW", r.RiskLevel)
	}
	if r.HeuristicScore != 0 {
		t.Errorf("HeuristicScore = %v, want 0", r.HeuristicScore)
	}
	if r.Escalated || confirmer.calls != 0 {
		t.Error("benign text must not reach confirmation")
	}
	if len(r.Tactics) != 0 {
		t.Errorf("Tactics = %v, want none", r.Tactics)
	}
}

// A confirmation failure under the conservative policy keeps the local
// label and yields no explanation.
func TestTriageConfirmationFailureKeepsLocalLabel(t *testing.T) {
	confirmer := &fakeConfirmer{err: context.DeadlineExceeded}
	e := NewEngine(Options{
		Neural:        &fakeNeural{score: 0.6},
		Confirmer:     confirmer,
		FailurePolicy: cloud.ConservativeOnFailure,
	})

	r, err := e.Triage(context.Background(), scamText)
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if confirmer.calls != 1 {
		t.Fatal("expected a confirmation attempt")
	}
	if r.RiskLevel == fusion.RiskLow {
		t.Errorf("RiskLevel = LOW, want the local label retained")
	}
	if r.Explanation != nil {
		t.Error("failed confirmation must not attach an explanation")
	}
}

func TestTriageConfirmationFailureRequireConfirmation(t *testing.T) {
	e := NewEngine(Options{
		Neural:        &fakeNeural{score: 0.9},
		Confirmer:     &fakeConfirmer{err: errors.New("boom")},
		FailurePolicy: cloud.RequireConfirmation,
	})

	r, err := e.Triage(context.Background(), scamText)
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if r.RiskLevel != fusion.RiskLow {
		t.Errorf("RiskLevel = %v, want LOW under require_confirmation", r.RiskLevel)
	}
}

// Confirmation may downgrade a locally HIGH case to LOW, e.g. a legitimate
// bank announcement.
func TestTriageConfirmationDowngrades(t *testing.T) {
	benignVerdict := highVerdict()
	benignVerdict.RiskLevel = "LOW"
	benignVerdict.Headline = "Legitimate announcement"

	e := NewEngine(Options{
		Neural:    &fakeNeural{score: 0.95},
		Confirmer: &fakeConfirmer{exp: benignVerdict},
	})

	r, err := e.Triage(context.Background(), scamText)
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if r.RiskLevel != fusion.RiskLow {
		t.Errorf("RiskLevel = %v, want LOW from confirmation override", r.RiskLevel)
	}
}

// With the classifier unavailable the fused score equals the heuristic
// score exactly.
func TestTriageClassifierUnavailable(t *testing.T) {
	e := NewEngine(Options{
		Neural: &fakeNeural{err: classifier.ErrUnavailable},
	})

	r, err := e.Triage(context.Background(), scamText)
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if r.ClassifierScore != classifier.ScoreUnavailable {
		t.Errorf("ClassifierScore = %v, want sentinel", r.ClassifierScore)
	}
	if r.RiskProbability != r.HeuristicScore {
		t.Errorf("RiskProbability = %v, want heuristic score %v exactly", r.RiskProbability, r.HeuristicScore)
	}
}

func TestTriageEmptyInputShortCircuits(t *testing.T) {
	confirmer := &fakeConfirmer{exp: highVerdict()}
	e := NewEngine(Options{
		Neural:    &fakeNeural{score: 0.9},
		Confirmer: confirmer,
	})

	for _, text := range []string{"", "   ", "\n\t"} {
		r, err := e.Triage(context.Background(), text)
		if err != nil {
			t.Fatalf("Triage(%q): %v", text, err)
		}
		if r.RiskLevel != fusion.RiskLow || len(r.Tactics) != 0 {
			t.Errorf("Triage(%q) = %+v, want LOW with no tactics", text, r)
		}
	}
	if confirmer.calls != 0 {
		t.Error("empty input must not invoke any stage")
	}
}

func TestTriageCancelledContext(t *testing.T) {
	e := NewEngine(Options{Neural: &fakeNeural{score: 0.9}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Triage(ctx, scamText); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestScanHasNoSideEffects(t *testing.T) {
	cache := dedupe.NewLRUCache(10, dedupe.DefaultWindow)
	confirmer := &fakeConfirmer{exp: highVerdict()}
	e := NewEngine(Options{
		Neural:    &fakeNeural{score: 0.9},
		Confirmer: confirmer,
		Dedupe:    cache,
	})

	r, err := e.Scan(context.Background(), scamText)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !r.Escalated {
		t.Error("scan should still report would-escalate")
	}
	if confirmer.calls != 0 {
		t.Error("scan must not invoke confirmation")
	}
	if cache.Len() != 0 {
		t.Error("scan must not insert into the dedup cache")
	}
}

func TestServiceCreatesAlertOnceWithinBucket(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	var notified []string
	notifier := NotifierFunc(func(_ context.Context, alertID, headline string) {
		notified = append(notified, alertID)
	})

	e := NewEngine(Options{
		Neural:    &fakeNeural{score: 0.9},
		Confirmer: &fakeConfirmer{exp: highVerdict()},
		Dedupe:    dedupe.NewLRUCache(50, dedupe.DefaultWindow),
		Now:       func() time.Time { return now },
	})
	svc := NewService(e, st, notifier)

	in := Input{Text: scamText, Origin: store.OriginMessageListener, SenderLabel: "+60 1X-XXX XXXX"}

	first, err := svc.Process(ctx, in)
	if err != nil {
		t.Fatalf("first Process: %v", err)
	}
	if first.AlertID == "" {
		t.Fatal("first sighting should create an alert")
	}

	second, err := svc.Process(ctx, in)
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if !second.Result.Deduplicated || second.AlertID != "" {
		t.Error("repeat within the bucket must be suppressed")
	}

	// Bucket rollover: the same text may alert again.
	now = now.Add(2 * dedupe.DefaultWindow)
	third, err := svc.Process(ctx, in)
	if err != nil {
		t.Fatalf("third Process: %v", err)
	}
	if third.AlertID == "" {
		t.Error("repeat after the bucket must alert again")
	}

	n, _ := st.CountSince(ctx, time.Time{})
	if n != 2 {
		t.Errorf("persisted alerts = %d, want 2", n)
	}
	if len(notified) != 2 {
		t.Errorf("notifications = %d, want 2", len(notified))
	}

	a, err := st.Get(ctx, first.AlertID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a.RiskLevel != fusion.RiskHigh || a.Explanation == nil {
		t.Errorf("stored alert incomplete: %+v", a)
	}
	if a.SenderLabel != "+60 1X-XXX XXXX" {
		t.Errorf("SenderLabel = %q", a.SenderLabel)
	}
	if len(a.Snippet) == 0 || len([]rune(a.Snippet)) > store.MaxSnippetLen {
		t.Errorf("snippet out of bounds: %q", a.Snippet)
	}
}

func TestServiceNoAlertForLow(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	e := NewEngine(Options{Neural: &fakeNeural{score: 0.05}})
	svc := NewService(e, st, nil)

	out, err := svc.Process(ctx, Input{Text: benignText, Origin: store.OriginMessageListener})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.AlertID != "" {
		t.Error("LOW result must not create an alert")
	}
	n, _ := st.CountSince(ctx, time.Time{})
	if n != 0 {
		t.Errorf("persisted alerts = %d, want 0", n)
	}
}

// A timed-out MEDIUM confirmation still creates an alert with the local
// label and no explanation.
func TestServiceAlertOnConfirmationTimeout(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	e := NewEngine(Options{
		Neural:        &fakeNeural{score: 0.6},
		Confirmer:     &fakeConfirmer{err: context.DeadlineExceeded},
		FailurePolicy: cloud.ConservativeOnFailure,
	})
	svc := NewService(e, st, nil)

	out, err := svc.Process(ctx, Input{Text: scamText, Origin: store.OriginImageScan})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.AlertID == "" {
		t.Fatal("expected an alert despite confirmation timeout")
	}
	a, _ := st.Get(ctx, out.AlertID)
	if a.Explanation != nil {
		t.Error("alert must not cache an explanation after timeout")
	}
	if a.Origin != store.OriginImageScan {
		t.Errorf("Origin = %v", a.Origin)
	}
}

func TestCategoryForTactics(t *testing.T) {
	testCases := []struct {
		tactics []keywords.Tactic
		want    string
	}{
		{nil, CategoryNone},
		{[]keywords.Tactic{keywords.TacticUrgency}, CategoryOther},
		{[]keywords.Tactic{keywords.TacticUrgency, keywords.TacticVerification}, CategoryPhishing},
		{[]keywords.Tactic{keywords.TacticThreat, keywords.TacticAuthority}, CategoryImpersonation},
		{[]keywords.Tactic{keywords.TacticGreed, keywords.TacticMoneyPressure}, CategoryPrizeLottery},
		{[]keywords.Tactic{keywords.TacticMoneyPressure}, CategoryPaymentFraud},
	}

	for _, tc := range testCases {
		if got := CategoryForTactics(tc.tactics); got != tc.want {
			t.Errorf("CategoryForTactics(%v) = %q, want %q", tc.tactics, got, tc.want)
		}
	}
}
