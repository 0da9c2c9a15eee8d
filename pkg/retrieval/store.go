// Package retrieval maintains the fraud-case document store used to give
// the analysis oracle real cases to reason against. Documents live in an
// in-process chromem-go collection embedded via the Ollama embedding API.
//
// The store is optional: when no case data is configured or embedding is
// unavailable, the pipeline runs the analysis without retrieved context.
package retrieval

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/fraud165/triage/pkg/httputil"
)

const collectionName = "fraud-cases"

// CaseDocument is one line of the JSONL case file.
type CaseDocument struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
}

// Store wraps the chromem collection behind the small query surface the
// pipeline needs.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	mu         sync.RWMutex
	ready      bool
	docCount   int
}

// newOllamaEmbeddingFunc builds an embedding function that calls the
// Ollama /api/embeddings endpoint directly.
func newOllamaEmbeddingFunc(model, baseURL string) chromem.EmbeddingFunc {
	client := httputil.Client(httputil.TierSlow)
	endpoint := strings.TrimRight(baseURL, "/") + "/api/embeddings"

	return func(ctx context.Context, text string) ([]float32, error) {
		reqBody := map[string]string{
			"model":  model,
			"prompt": text,
		}
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
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
			return nil, fmt.Errorf("embedding service returned status %d", resp.StatusCode)
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

// NewStore creates a store embedding through the given Ollama server.
func NewStore(ollamaBaseURL, embedModel string) (*Store, error) {
	return NewStoreWithEmbedding(newOllamaEmbeddingFunc(embedModel, ollamaBaseURL))
}

// NewStoreWithEmbedding creates a store with a caller-supplied embedding
// function.
func NewStoreWithEmbedding(embed chromem.EmbeddingFunc) (*Store, error) {
	db := chromem.NewDB()
	collection, err := db.CreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return &Store{db: db, collection: collection}, nil
}

// LoadCases reads a JSONL file of case documents and embeds them.
// Malformed lines are skipped with a warning.
func (s *Store) LoadCases(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open case data: %w", err)
	}
	defer f.Close()

	var docs []chromem.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var doc CaseDocument
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			log.Printf("[Retrieval] skipping malformed case at line %d: %v", lineNo, err)
			continue
		}
		if doc.Text == "" {
			continue
		}
		if doc.ID == "" {
			doc.ID = fmt.Sprintf("case-%d", lineNo)
		}
		docs = append(docs, chromem.Document{
			ID:       doc.ID,
			Content:  doc.Text,
			Metadata: map[string]string{"category": doc.Category},
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read case data: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no usable case documents in %s", path)
	}

	if err := s.collection.AddDocuments(ctx, docs, 4); err != nil {
		return fmt.Errorf("embed case documents: %w", err)
	}

	s.mu.Lock()
	s.ready = true
	s.docCount = len(docs)
	s.mu.Unlock()
	log.Printf("[Retrieval] loaded %d fraud case documents", len(docs))
	return nil
}

// IsReady reports whether the collection holds documents.
func (s *Store) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Context returns the top-n case texts for the input joined into one
// block, or "" when nothing relevant is found or the store is not ready.
func (s *Store) Context(ctx context.Context, input string, n int) string {
	s.mu.RLock()
	ready, count := s.ready, s.docCount
	s.mu.RUnlock()
	if !ready || input == "" {
		return ""
	}
	if n <= 0 {
		n = 3
	}
	if n > count {
		n = count
	}

	results, err := s.collection.Query(ctx, input, n, nil, nil)
	if err != nil {
		log.Printf("[Retrieval] query failed: %v", err)
		return ""
	}

	var parts []string
	for _, r := range results {
		if text := strings.TrimSpace(r.Content); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
