package classifier

import (
	"encoding/json"
	"fmt"
	"os"
)

// Vocabulary maps single characters (graphemes) to integer token ids.
// Ids 0 and 1 are reserved for padding and unknown respectively; the table
// must not assign them to any character. Loaded once at startup, read-only
// afterwards, safe for concurrent lookup.
type Vocabulary struct {
	ids   map[rune]int64
	padID int64
	unkID int64
}

// vocabFile is the on-disk format: a flat character-to-id object.
type vocabFile struct {
	Tokens map[string]int64 `json:"tokens"`
}

// LoadVocabulary reads the vocabulary artifact and validates the reserved
// ids against the model config.
func LoadVocabulary(path string, cfg *ModelConfig) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}

	var file vocabFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary: %w", err)
	}
	if len(file.Tokens) == 0 {
		return nil, fmt.Errorf("vocabulary is empty")
	}

	v := &Vocabulary{
		ids:   make(map[rune]int64, len(file.Tokens)),
		padID: cfg.PadTokenID,
		unkID: cfg.UnkTokenID,
	}

	for tok, id := range file.Tokens {
		runes := []rune(tok)
		if len(runes) != 1 {
			return nil, fmt.Errorf("vocabulary token %q is not a single character", tok)
		}
		if id == cfg.PadTokenID || id == cfg.UnkTokenID {
			return nil, fmt.Errorf("vocabulary token %q uses reserved id %d", tok, id)
		}
		if id < 0 {
			return nil, fmt.Errorf("vocabulary token %q has negative id %d", tok, id)
		}
		v.ids[runes[0]] = id
	}

	return v, nil
}

// ID returns the token id for a character, or the unknown id if absent.
func (v *Vocabulary) ID(r rune) int64 {
	if id, ok := v.ids[r]; ok {
		return id
	}
	return v.unkID
}

// Size returns the number of characters in the table (excluding the two
// reserved ids).
func (v *Vocabulary) Size() int {
	return len(v.ids)
}
