// Package exemplars maintains an embedding index of known scam messages.
// The index is enrichment only: it attaches the most similar known scams to
// the confirmation request and never sits on the Stage 1+2 critical path.
package exemplars

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/jagalabs/scamguard/pkg/httputil"
)

// Exemplar is one labeled known-scam message.
type Exemplar struct {
	Text     string
	Category string
	Language string
}

// Index wraps a chromem collection of exemplars. A nil *Index is valid and
// degrades to no enrichment.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	count      int
}

// minSimilarity filters out matches that would only confuse the analyst.
const minSimilarity float32 = 0.55

// newOllamaEmbeddingFunc builds an embedding function against an Ollama
// /api/embeddings endpoint.
func newOllamaEmbeddingFunc(model, baseURL string) chromem.EmbeddingFunc {
	client := httputil.MediumClient()

	return func(ctx context.Context, text string) ([]float32, error) {
		reqBody := map[string]string{
			"model":  model,
			"prompt": text,
		}
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			baseURL+"/api/embeddings", bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		defer httputil.DrainAndClose(resp.Body)

		if resp.StatusCode != http.StatusOK {
			body, _ := httputil.ReadErrorBody(resp.Body)
			return nil, fmt.Errorf("embedding API error %d: %s", resp.StatusCode, string(body))
		}

		var result struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode embedding: %w", err)
		}
		return result.Embedding, nil
	}
}

// NewIndex builds the exemplar index over an Ollama embedding endpoint and
// loads the seed exemplars. Indexing happens eagerly so query latency stays
// bounded by one embedding call.
func NewIndex(ctx context.Context, ollamaURL, embedModel string) (*Index, error) {
	if ollamaURL == "" {
		return nil, fmt.Errorf("embedding endpoint not specified")
	}
	if embedModel == "" {
		embedModel = "nomic-embed-text"
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection("scam_exemplars", nil,
		newOllamaEmbeddingFunc(embedModel, ollamaURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	idx := &Index{db: db, collection: collection}

	seeds := loadExemplarSeeds()
	docs := make([]chromem.Document, 0, len(seeds))
	for i, ex := range seeds {
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("exemplar-%d", i),
			Content: ex.Text,
			Metadata: map[string]string{
				"category": ex.Category,
				"language": ex.Language,
			},
		})
	}

	loadCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	if err := collection.AddDocuments(loadCtx, docs, 4); err != nil {
		return nil, fmt.Errorf("failed to index exemplars: %w", err)
	}
	idx.count = len(docs)

	return idx, nil
}

// NewIndexWithFallback returns nil instead of an error when the embedding
// backend is unavailable. Callers treat a nil index as "no enrichment".
func NewIndexWithFallback(ctx context.Context, ollamaURL, embedModel string) *Index {
	if ollamaURL == "" {
		return nil
	}
	idx, err := NewIndex(ctx, ollamaURL, embedModel)
	if err != nil {
		log.Printf("[WARN] Exemplar index unavailable (confirmation runs without similar-scam context): %v", err)
		return nil
	}
	return idx
}

// Count returns the number of indexed exemplars.
func (idx *Index) Count() int {
	if idx == nil {
		return 0
	}
	return idx.count
}

// TopK returns up to k known scams most similar to the text, most similar
// first, skipping weak matches. Safe on a nil index.
func (idx *Index) TopK(ctx context.Context, text string, k int) []string {
	if idx == nil || k <= 0 || idx.count == 0 {
		return nil
	}
	if k > idx.count {
		k = idx.count
	}

	results, err := idx.collection.Query(ctx, text, k, nil, nil)
	if err != nil {
		log.Printf("[WARN] Exemplar query failed: %v", err)
		return nil
	}

	similar := make([]string, 0, len(results))
	for _, r := range results {
		if r.Similarity < minSimilarity {
			continue
		}
		similar = append(similar, fmt.Sprintf("[%s] %s", r.Metadata["category"], r.Content))
	}
	return similar
}
