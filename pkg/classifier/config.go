package classifier

import (
	"encoding/json"
	"fmt"
	"os"
)

// ModelConfig is the scalar configuration shipped next to the model weights.
// Loaded once at construction and immutable for the process lifetime. The
// values must match the ones used at training time, so they live in a
// versioned artifact instead of environment variables.
type ModelConfig struct {
	// SequenceLength is the fixed input length; shorter texts are
	// right-padded with PadTokenID, longer ones truncated.
	SequenceLength int `json:"sequence_length"`

	// DecisionThreshold is the trained operating point of the model. The
	// fuser works on raw probabilities, but the threshold is exposed for
	// callers that want a binary verdict from Stage 2 alone.
	DecisionThreshold float64 `json:"decision_threshold"`

	// PadTokenID and UnkTokenID are the reserved vocabulary ids.
	PadTokenID int64 `json:"pad_token_id"`
	UnkTokenID int64 `json:"unk_token_id"`

	// InputName / OutputName are the ONNX graph tensor names.
	InputName  string `json:"input_name"`
	OutputName string `json:"output_name"`
}

// LoadModelConfig reads and validates the model configuration artifact.
func LoadModelConfig(path string) (*ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model config: %w", err)
	}

	var cfg ModelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse model config: %w", err)
	}

	if cfg.SequenceLength <= 0 {
		return nil, fmt.Errorf("invalid sequence_length %d", cfg.SequenceLength)
	}
	if cfg.DecisionThreshold < 0 || cfg.DecisionThreshold > 1 {
		return nil, fmt.Errorf("invalid decision_threshold %v", cfg.DecisionThreshold)
	}
	if cfg.PadTokenID == cfg.UnkTokenID {
		return nil, fmt.Errorf("pad_token_id and unk_token_id must differ, both are %d", cfg.PadTokenID)
	}
	if cfg.InputName == "" {
		cfg.InputName = "input_ids"
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "probability"
	}
	return &cfg, nil
}
