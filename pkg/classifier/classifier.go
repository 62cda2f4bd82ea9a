// Package classifier implements the on-device neural stage: fixed-length
// character-sequence inference against a pre-trained char-level
// convolutional model served through ONNX Runtime.
//
// Architecture:
//   - Artifacts (vocabulary, scalar config, ONNX graph) load once at
//     construction. Any artifact failure marks the classifier permanently
//     unavailable for its lifetime; it is never retried per call.
//   - A single per-call inference error returns the unavailable sentinel for
//     that call only, without disabling future calls.
//   - The loaded model and vocabulary are read-only and safe to share across
//     concurrently-running triage tasks.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/jagalabs/scamguard/pkg/textnorm"
)

// ScoreUnavailable is the sentinel returned when Stage 2 has no usable
// score. It is outside [0,1], so the fuser can distinguish it from any
// legitimate probability.
const ScoreUnavailable = -1.0

// ErrUnavailable is returned when the classifier never initialized.
var ErrUnavailable = errors.New("classifier unavailable")

// Options configures artifact locations.
type Options struct {
	// ModelDir holds vocab.json, model_config.json and model.onnx.
	ModelDir string

	// OnnxLibraryPath points to libonnxruntime.so; when empty, common
	// install locations are searched.
	OnnxLibraryPath string
}

// Artifact filenames inside ModelDir, fixed and versioned together.
const (
	vocabFileName  = "vocab.json"
	configFileName = "model_config.json"
	modelFileName  = "model.onnx"
)

// Classifier wraps the loaded model. The zero value is unusable; construct
// with NewClassifier or NewClassifierWithFallback.
type Classifier struct {
	mu      sync.RWMutex
	cfg     *ModelConfig
	vocab   *Vocabulary
	session *ort.DynamicAdvancedSession
	ready   bool
}

// ONNX Runtime environment is process-global; initialize it once.
var (
	ortInitOnce sync.Once
	ortInitErr  error
)

func initRuntime(libraryPath string) error {
	ortInitOnce.Do(func() {
		if libraryPath == "" {
			libraryPath = findOnnxLibrary()
		}
		if libraryPath == "" {
			ortInitErr = fmt.Errorf("libonnxruntime not found in any known location")
			return
		}
		ort.SetSharedLibraryPath(libraryPath)
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// findOnnxLibrary searches the common install locations for the runtime.
func findOnnxLibrary() string {
	if p := os.Getenv("ONNXRUNTIME_LIB_PATH"); p != "" {
		return p
	}
	candidates := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/opt/homebrew/lib/libonnxruntime.dylib",
		"/usr/local/lib/libonnxruntime.dylib",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// NewClassifier loads all artifacts and prepares the inference session.
// Fails fast: a missing or malformed artifact returns an error rather than
// a half-initialized instance.
func NewClassifier(opts Options) (*Classifier, error) {
	if opts.ModelDir == "" {
		return nil, fmt.Errorf("model directory not specified")
	}

	cfg, err := LoadModelConfig(filepath.Join(opts.ModelDir, configFileName))
	if err != nil {
		return nil, fmt.Errorf("model config: %w", err)
	}

	vocab, err := LoadVocabulary(filepath.Join(opts.ModelDir, vocabFileName), cfg)
	if err != nil {
		return nil, fmt.Errorf("vocabulary: %w", err)
	}

	modelPath := filepath.Join(opts.ModelDir, modelFileName)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model weights: %w", err)
	}

	if err := initRuntime(opts.OnnxLibraryPath); err != nil {
		return nil, fmt.Errorf("onnx runtime: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference session: %w", err)
	}

	log.Printf("Classifier initialized (model: %s, seq_len: %d, vocab: %d chars)",
		modelPath, cfg.SequenceLength, vocab.Size())

	return &Classifier{
		cfg:     cfg,
		vocab:   vocab,
		session: session,
		ready:   true,
	}, nil
}

// NewClassifierWithFallback returns a permanently-unavailable classifier
// instead of an error when initialization fails. The failure is cached for
// the process lifetime: Stage 2 is skipped on every call, not retried.
func NewClassifierWithFallback(opts Options) *Classifier {
	c, err := NewClassifier(opts)
	if err != nil {
		log.Printf("[WARN] Classifier initialization failed (degrading to heuristic-only): %v", err)
		return &Classifier{ready: false}
	}
	return c
}

// IsReady reports whether the model loaded and inference is possible.
func (c *Classifier) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Threshold returns the trained decision threshold, or 0.5 when the model
// never loaded.
func (c *Classifier) Threshold() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.ready {
		return 0.5
	}
	return c.cfg.DecisionThreshold
}

// Tokenize normalizes the text and converts it to the fixed-length id
// sequence the model expects: truncate or right-pad to the configured
// length, mapping each character to its vocabulary id or the unknown id.
func (c *Classifier) Tokenize(text string) []int64 {
	normalized := textnorm.Normalize(text)

	ids := make([]int64, c.cfg.SequenceLength)
	for i := range ids {
		ids[i] = c.cfg.PadTokenID
	}

	pos := 0
	for _, r := range normalized {
		if pos >= c.cfg.SequenceLength {
			break
		}
		ids[pos] = c.vocab.ID(r)
		pos++
	}
	return ids
}

// Score runs inference and returns a scam probability in [0,1], or
// ScoreUnavailable with a non-nil error when no score could be produced.
// Safe to call concurrently; the session is read-only after construction.
func (c *Classifier) Score(ctx context.Context, text string) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.ready || c.session == nil {
		return ScoreUnavailable, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return ScoreUnavailable, err
	}

	ids := c.Tokenize(text)

	inputShape := ort.NewShape(1, int64(c.cfg.SequenceLength))
	input, err := ort.NewTensor(inputShape, ids)
	if err != nil {
		return ScoreUnavailable, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() { _ = input.Destroy() }()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		return ScoreUnavailable, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer func() { _ = output.Destroy() }()

	if err := c.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		// A single failed call does not disable the classifier.
		log.Printf("[WARN] Classifier inference failed: %v", err)
		return ScoreUnavailable, fmt.Errorf("inference failed: %w", err)
	}

	prob := float64(output.GetData()[0])
	if prob < 0 {
		prob = 0
	}
	if prob > 1 {
		prob = 1
	}
	return prob, nil
}

// Close releases the inference session. The classifier is unusable after.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ready = false
	if c.session != nil {
		if err := c.session.Destroy(); err != nil {
			return fmt.Errorf("failed to destroy session: %w", err)
		}
		c.session = nil
	}
	return nil
}
