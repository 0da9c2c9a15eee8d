package keywords

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTables(t *testing.T) {
	tab := Default()

	if got := len(tab.ScamCategories); got != 16 {
		t.Fatalf("expected 16 scam categories, got %d", got)
	}
	if tab.ScamCategories[0].Name != "網路購物詐騙" {
		t.Errorf("first category = %q, enumeration order must be preserved", tab.ScamCategories[0].Name)
	}
	if tab.ScamCategories[15].Name != "假客服(盜刷/分期)詐騙" {
		t.Errorf("last category = %q", tab.ScamCategories[15].Name)
	}
	if err := tab.validate(); err != nil {
		t.Errorf("built-in tables should validate: %v", err)
	}
}

func TestSharedKeywordsAcrossCategoriesKept(t *testing.T) {
	// 投資 is listed for both 假投資詐騙 and 假交友(投資財)詐騙. That overlap
	// is intentional and must survive loading.
	tab := Default()
	hits := 0
	for _, c := range tab.ScamCategories {
		for _, kw := range c.Keywords {
			if kw == "投資" {
				hits++
			}
		}
	}
	if hits < 2 {
		t.Errorf("keyword 投資 should appear in at least 2 categories, found %d", hits)
	}
}

func TestCategoryNamesOrder(t *testing.T) {
	tab := Default()
	names := tab.CategoryNames()
	if len(names) != len(tab.ScamCategories) {
		t.Fatalf("CategoryNames length mismatch")
	}
	for i, c := range tab.ScamCategories {
		if names[i] != c.Name {
			t.Errorf("names[%d] = %q, want %q", i, names[i], c.Name)
		}
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	tab := Load("/nonexistent/keywords.yaml")
	if len(tab.ScamCategories) != 16 {
		t.Errorf("missing file should fall back to built-ins")
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	tab := Load("")
	if len(tab.ScamCategories) != 16 {
		t.Errorf("empty path should use built-ins")
	}
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.yaml")
	content := `
scam_categories:
  - name: 假投資詐騙
    keywords: [投資, 群組]
high_signal: [轉帳]
related_override: [轉帳]
intent:
  recall_memory: [上次]
  describe_event: [收到]
  ask_capability: [功能]
  chitchat: [你好]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tab := Load(path)
	if len(tab.ScamCategories) != 1 || tab.ScamCategories[0].Name != "假投資詐騙" {
		t.Errorf("YAML override not applied: %+v", tab.ScamCategories)
	}
}

func TestLoadRejectsSentinelCategory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.yaml")
	content := `
scam_categories:
  - name: 無法分類
    keywords: []
high_signal: [轉帳]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tab := Load(path)
	if len(tab.ScamCategories) != 16 {
		t.Errorf("sentinel category should be rejected, falling back to built-ins")
	}
}
