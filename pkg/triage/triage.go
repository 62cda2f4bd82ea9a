// Package triage sequences the detection pipeline for one input event:
// dedup check, concurrent heuristic and neural scoring, score fusion, the
// escalation gate, and optional cloud confirmation. One immutable Result
// per event.
package triage

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jagalabs/scamguard/pkg/classifier"
	"github.com/jagalabs/scamguard/pkg/cloud"
	"github.com/jagalabs/scamguard/pkg/dedupe"
	"github.com/jagalabs/scamguard/pkg/fusion"
	"github.com/jagalabs/scamguard/pkg/heuristic"
	"github.com/jagalabs/scamguard/pkg/keywords"
	"github.com/jagalabs/scamguard/pkg/textnorm"
)

// NeuralScorer is the Stage 2 dependency. *classifier.Classifier satisfies
// it; tests substitute fakes.
type NeuralScorer interface {
	Score(ctx context.Context, text string) (float64, error)
	IsReady() bool
}

// Confirmer is the Stage 3 dependency. *cloud.Client satisfies it.
type Confirmer interface {
	Confirm(ctx context.Context, req *cloud.Request) (*cloud.Explanation, error)
}

// SimilarityIndex supplies known-scam context for confirmation requests.
// *exemplars.Index satisfies it, including as a typed nil.
type SimilarityIndex interface {
	TopK(ctx context.Context, text string, k int) []string
}

// Result is the immutable outcome of one triage invocation.
type Result struct {
	RiskLevel       fusion.RiskLevel  `json:"risk_level"`
	RiskProbability float64           `json:"risk_probability"`
	HeuristicScore  float64           `json:"heuristic_score"`
	ClassifierScore float64           `json:"classifier_score"` // may be the unavailable sentinel
	Tactics         []keywords.Tactic `json:"tactics"`
	Category        string            `json:"category"`
	Headline        string            `json:"headline"`
	ContainsURL     bool              `json:"contains_url"`

	// Explanation is present only when cloud confirmation succeeded.
	Explanation         *cloud.Explanation `json:"explanation,omitempty"`
	ExplanationLanguage string             `json:"explanation_language,omitempty"`

	// Escalated reports whether the gate sent this event to confirmation.
	// Deduplicated reports that the pipeline was skipped for a repeat.
	Escalated    bool `json:"escalated"`
	Deduplicated bool `json:"deduplicated"`

	HeuristicLatency  time.Duration `json:"-"`
	ClassifierLatency time.Duration `json:"-"`
	ConfirmLatency    time.Duration `json:"-"`

	// NormalizedText is carried for the caller's snippet, not serialized.
	NormalizedText string `json:"-"`
	URL            string `json:"-"`
}

// Options wires the engine's collaborators. Scorer and Gate are required;
// everything else degrades gracefully when absent.
type Options struct {
	Scorer        *heuristic.Scorer
	Neural        NeuralScorer
	Policy        fusion.Policy
	Gate          *fusion.Gate
	Confirmer     Confirmer
	FailurePolicy cloud.FailurePolicy
	Exemplars     SimilarityIndex
	Dedupe        dedupe.Cache
	Language      string // default explanation language (BCP 47)

	// ExemplarK is how many similar known scams to attach to confirmation
	// requests. Zero disables enrichment.
	ExemplarK int

	// Now is injectable for dedup bucket tests. Defaults to time.Now.
	Now func() time.Time
}

// Engine runs the pipeline. Safe for concurrent use: all shared state is
// read-only after construction except the dedup cache, which locks itself.
type Engine struct {
	opts Options
}

// NewEngine validates collaborators and constructs an engine.
func NewEngine(opts Options) *Engine {
	if opts.Scorer == nil {
		opts.Scorer = heuristic.NewScorer()
	}
	if opts.Policy == nil {
		opts.Policy = fusion.NewWeightedSum()
	}
	if opts.Gate == nil {
		opts.Gate = fusion.DefaultGate()
	}
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = cloud.ConservativeOnFailure
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{opts: opts}
}

// Triage runs the full pipeline for one raw input event. A cancelled
// context returns the context error, never a partial result.
func (e *Engine) Triage(ctx context.Context, rawText string) (*Result, error) {
	return e.TriageFrom(ctx, rawText, "message-listener")
}

// TriageFrom is Triage with an explicit collector origin, forwarded to the
// confirmation service.
func (e *Engine) TriageFrom(ctx context.Context, rawText, origin string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(rawText) == "" {
		return lowResult("", false), nil
	}

	if e.opts.Dedupe != nil && e.opts.Dedupe.Seen(rawText, e.opts.Now()) {
		r := lowResult("", false)
		r.Deduplicated = true
		r.Headline = "Already handled"
		return r, nil
	}

	r, err := e.scoreAndGate(ctx, rawText)
	if err != nil {
		return nil, err
	}

	if r.Escalated && e.opts.Confirmer != nil {
		e.confirm(ctx, origin, r)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r, nil
}

// Scan runs Stage 1+2 and the gate only: no dedup insert, no confirmation,
// no side effects. Used for previews.
func (e *Engine) Scan(ctx context.Context, rawText string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(rawText) == "" {
		return lowResult("", false), nil
	}
	r, err := e.scoreAndGate(ctx, rawText)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r, nil
}

// scoreAndGate runs the two local stages concurrently, fuses, and applies
// the gate. Stage 1 lowercases its own copy; Stage 2 normalizes through its
// own tokenizer.
func (e *Engine) scoreAndGate(ctx context.Context, rawText string) (*Result, error) {
	var (
		wg       sync.WaitGroup
		hr       heuristic.Result
		hLatency time.Duration
		neural   = classifier.ScoreUnavailable
		nLatency time.Duration
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		start := time.Now()
		hr = e.opts.Scorer.Score(rawText)
		hLatency = time.Since(start)
	}()

	if e.opts.Neural != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			score, err := e.opts.Neural.Score(ctx, rawText)
			nLatency = time.Since(start)
			if err != nil {
				neural = classifier.ScoreUnavailable
				return
			}
			neural = score
		}()
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fused := e.opts.Policy.Fuse(hr.Score, neural)
	level := e.opts.Gate.Level(fused)
	escalated := e.opts.Gate.Escalate(fused)
	category := CategoryForTactics(hr.Tactics)

	return &Result{
		RiskLevel:         level,
		RiskProbability:   fused,
		HeuristicScore:    hr.Score,
		ClassifierScore:   neural,
		Tactics:           hr.Tactics,
		Category:          category,
		Headline:          localHeadline(level, category),
		ContainsURL:       hr.ContainsURL,
		Escalated:         escalated,
		HeuristicLatency:  hLatency,
		ClassifierLatency: nLatency,
		NormalizedText:    textnorm.Normalize(rawText),
		URL:               textnorm.ExtractURL(rawText),
	}, nil
}

// confirm runs Stage 3 and applies its verdict to the result in place. On
// success the service is the final arbiter, including downgrades to LOW. On
// failure the configured policy decides what happens to the local label.
func (e *Engine) confirm(ctx context.Context, origin string, r *Result) {
	start := time.Now()

	var similar []string
	if e.opts.Exemplars != nil && e.opts.ExemplarK > 0 {
		similar = e.opts.Exemplars.TopK(ctx, r.NormalizedText, e.opts.ExemplarK)
	}

	exp, err := e.opts.Confirmer.Confirm(ctx, &cloud.Request{
		AlertType:       origin,
		Category:        r.Category,
		Tactics:         r.Tactics,
		Snippet:         r.NormalizedText,
		URL:             r.URL,
		Language:        e.opts.Language,
		HeuristicScore:  r.HeuristicScore,
		ClassifierScore: r.ClassifierScore,
		SimilarScams:    similar,
	})
	r.ConfirmLatency = time.Since(start)

	if err != nil {
		log.Printf("[WARN] Cloud confirmation failed, applying %s: %v", e.opts.FailurePolicy, err)
		if e.opts.FailurePolicy == cloud.RequireConfirmation {
			r.RiskLevel = fusion.RiskLow
			r.Headline = localHeadline(fusion.RiskLow, r.Category)
		}
		return
	}

	r.RiskLevel = exp.ParsedRiskLevel()
	r.Category = exp.Category
	r.Headline = exp.Headline
	r.Explanation = exp
	r.ExplanationLanguage = exp.Language
}

func lowResult(category string, containsURL bool) *Result {
	if category == "" {
		category = "none"
	}
	return &Result{
		RiskLevel:       fusion.RiskLow,
		ClassifierScore: classifier.ScoreUnavailable,
		Category:        category,
		Headline:        localHeadline(fusion.RiskLow, category),
		ContainsURL:     containsURL,
	}
}
