package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// stubEmbedding maps text onto a tiny fixed vector space so tests run
// without any embedding service.
func stubEmbedding(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 8)
	for i, r := range []rune(text) {
		vec[i%8] += float32(r % 97)
	}
	// normalize so cosine similarity behaves
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	return vec, nil
}

func writeCaseFile(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.jsonl")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write case file: %v", err)
	}
	return path
}

func TestLoadCasesAndQuery(t *testing.T) {
	store, err := NewStoreWithEmbedding(stubEmbedding)
	if err != nil {
		t.Fatalf("NewStoreWithEmbedding failed: %v", err)
	}
	if store.IsReady() {
		t.Fatal("store should not be ready before loading")
	}

	path := writeCaseFile(t, []string{
		`{"id":"c1","text":"假冒檢警要求匯款至監管帳戶","category":"假冒機構(公務員)詐騙"}`,
		`{"id":"c2","text":"投資群組保證獲利穩賺不賠","category":"假投資詐騙"}`,
		``,
		`not json at all`,
		`{"id":"c3","text":"解除分期付款需要操作ATM","category":"假客服(盜刷/分期)詐騙"}`,
	})

	if err := store.LoadCases(context.Background(), path); err != nil {
		t.Fatalf("LoadCases failed: %v", err)
	}
	if !store.IsReady() {
		t.Fatal("store should be ready after loading")
	}

	got := store.Context(context.Background(), "有人叫我把錢轉到監管帳戶", 2)
	if got == "" {
		t.Fatal("expected non-empty retrieved context")
	}
}

func TestQueryClampsToDocumentCount(t *testing.T) {
	store, err := NewStoreWithEmbedding(stubEmbedding)
	if err != nil {
		t.Fatalf("NewStoreWithEmbedding failed: %v", err)
	}
	path := writeCaseFile(t, []string{
		`{"id":"only","text":"網購付款後賣家失聯"}`,
	})
	if err := store.LoadCases(context.Background(), path); err != nil {
		t.Fatalf("LoadCases failed: %v", err)
	}

	// asking for more results than documents must not error out
	got := store.Context(context.Background(), "網購詐騙", 5)
	if got == "" {
		t.Fatal("expected the single document back")
	}
}

func TestLoadCasesRejectsEmptyFile(t *testing.T) {
	store, err := NewStoreWithEmbedding(stubEmbedding)
	if err != nil {
		t.Fatalf("NewStoreWithEmbedding failed: %v", err)
	}
	path := writeCaseFile(t, []string{"", "   "})
	if err := store.LoadCases(context.Background(), path); err == nil {
		t.Fatal("expected error for file with no usable documents")
	}
	if store.IsReady() {
		t.Fatal("store must stay not ready after failed load")
	}
}

func TestContextWhenNotReady(t *testing.T) {
	store, err := NewStoreWithEmbedding(stubEmbedding)
	if err != nil {
		t.Fatalf("NewStoreWithEmbedding failed: %v", err)
	}
	if got := store.Context(context.Background(), "任何輸入", 3); got != "" {
		t.Fatalf("expected empty context from unready store, got %q", got)
	}
}
