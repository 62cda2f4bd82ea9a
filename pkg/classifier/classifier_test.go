package classifier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeArtifact(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const validConfig = `{
	"sequence_length": 16,
	"decision_threshold": 0.5,
	"pad_token_id": 0,
	"unk_token_id": 1,
	"input_name": "input_ids",
	"output_name": "probability"
}`

const validVocab = `{"tokens": {"a": 2, "b": 3, "c": 4, " ": 5, "<": 6, ">": 7}}`

func TestLoadModelConfig(t *testing.T) {
	dir := t.TempDir()

	testCases := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"valid", validConfig, false},
		{"malformed json", `{"sequence_length": `, true},
		{"zero sequence length", `{"sequence_length": 0, "decision_threshold": 0.5, "pad_token_id": 0, "unk_token_id": 1}`, true},
		{"threshold out of range", `{"sequence_length": 16, "decision_threshold": 1.5, "pad_token_id": 0, "unk_token_id": 1}`, true},
		{"reserved ids collide", `{"sequence_length": 16, "decision_threshold": 0.5, "pad_token_id": 1, "unk_token_id": 1}`, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			writeArtifact(t, dir, "cfg.json", tc.content)
			_, err := LoadModelConfig(filepath.Join(dir, "cfg.json"))
			if (err != nil) != tc.wantErr {
				t.Errorf("LoadModelConfig error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}

	if _, err := LoadModelConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadVocabulary(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "cfg.json", validConfig)
	cfg, err := LoadModelConfig(filepath.Join(dir, "cfg.json"))
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"valid", validVocab, false},
		{"empty", `{"tokens": {}}`, true},
		{"multi-char token", `{"tokens": {"ab": 2}}`, true},
		{"reserved id used", `{"tokens": {"a": 0}}`, true},
		{"negative id", `{"tokens": {"a": -5}}`, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			writeArtifact(t, dir, "vocab.json", tc.content)
			_, err := LoadVocabulary(filepath.Join(dir, "vocab.json"), cfg)
			if (err != nil) != tc.wantErr {
				t.Errorf("LoadVocabulary error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestVocabularyUnknownFallback(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "cfg.json", validConfig)
	cfg, _ := LoadModelConfig(filepath.Join(dir, "cfg.json"))
	writeArtifact(t, dir, "vocab.json", validVocab)
	v, err := LoadVocabulary(filepath.Join(dir, "vocab.json"), cfg)
	if err != nil {
		t.Fatal(err)
	}

	if got := v.ID('a'); got != 2 {
		t.Errorf("ID('a') = %d, want 2", got)
	}
	if got := v.ID('z'); got != cfg.UnkTokenID {
		t.Errorf("ID('z') = %d, want unknown id %d", got, cfg.UnkTokenID)
	}
}

func TestTokenizePadsAndTruncates(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "cfg.json", validConfig)
	cfg, _ := LoadModelConfig(filepath.Join(dir, "cfg.json"))
	writeArtifact(t, dir, "vocab.json", validVocab)
	vocab, _ := LoadVocabulary(filepath.Join(dir, "vocab.json"), cfg)

	c := &Classifier{cfg: cfg, vocab: vocab}

	t.Run("short text right-padded", func(t *testing.T) {
		ids := c.Tokenize("abc")
		if len(ids) != cfg.SequenceLength {
			t.Fatalf("len = %d, want %d", len(ids), cfg.SequenceLength)
		}
		want := []int64{2, 3, 4}
		for i, w := range want {
			if ids[i] != w {
				t.Errorf("ids[%d] = %d, want %d", i, ids[i], w)
			}
		}
		for i := 3; i < cfg.SequenceLength; i++ {
			if ids[i] != cfg.PadTokenID {
				t.Errorf("ids[%d] = %d, want pad %d", i, ids[i], cfg.PadTokenID)
			}
		}
	})

	t.Run("long text truncated", func(t *testing.T) {
		long := ""
		for i := 0; i < 100; i++ {
			long += "a"
		}
		ids := c.Tokenize(long)
		if len(ids) != cfg.SequenceLength {
			t.Fatalf("len = %d, want %d", len(ids), cfg.SequenceLength)
		}
		for i, id := range ids {
			if id != 2 {
				t.Errorf("ids[%d] = %d, want 2", i, id)
			}
		}
	})

	t.Run("unknown chars map to unk", func(t *testing.T) {
		ids := c.Tokenize("axb")
		if ids[1] != cfg.UnkTokenID {
			t.Errorf("ids[1] = %d, want unk %d", ids[1], cfg.UnkTokenID)
		}
	})
}

// Artifact-load failure must cache the failure for the classifier lifetime:
// every call returns the sentinel, never a retry.
func TestClassifierUnavailableOnMissingArtifacts(t *testing.T) {
	c := NewClassifierWithFallback(Options{ModelDir: t.TempDir()})

	if c.IsReady() {
		t.Fatal("classifier should not be ready without artifacts")
	}

	for i := 0; i < 3; i++ {
		score, err := c.Score(context.Background(), "some text")
		if score != ScoreUnavailable {
			t.Errorf("call %d: score = %v, want sentinel %v", i, score, ScoreUnavailable)
		}
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("call %d: err = %v, want ErrUnavailable", i, err)
		}
	}
}

func TestNewClassifierRequiresModelDir(t *testing.T) {
	if _, err := NewClassifier(Options{}); err == nil {
		t.Error("expected error for empty model dir")
	}
}
