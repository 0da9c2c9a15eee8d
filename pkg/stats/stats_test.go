package stats

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scam_logs.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestAggregate(t *testing.T) {
	path := writeLog(t, `timestamp,county,user_input,scam_type
2026-08-01 10:00:00,台北市,輸入一,假投資詐騙
2026-08-01 11:00:00,台北市,輸入二,假投資詐騙
2026-08-01 12:00:00,台北市,輸入三,假檢警詐騙
2026-08-02 09:00:00,高雄市,輸入四,網路購物詐騙
`)
	report, err := Aggregate(path)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(report.CountyCounts) != 2 {
		t.Fatalf("county count = %d, want 2", len(report.CountyCounts))
	}
	// sorted by count descending: 台北市 first
	taipei := report.CountyCounts[0]
	if taipei.County != "台北市" || taipei.Count != 3 {
		t.Fatalf("first county = %+v, want 台北市 with 3", taipei)
	}
	if len(taipei.Top5) == 0 || taipei.Top5[0].Type != "假投資詐騙" || taipei.Top5[0].Count != 2 {
		t.Fatalf("台北市 top type = %+v, want 假投資詐騙 x2", taipei.Top5)
	}
	if len(report.Top5) == 0 || report.Top5[0].Type != "假投資詐騙" {
		t.Fatalf("overall top = %+v, want 假投資詐騙 first", report.Top5)
	}
}

func TestAggregateMissingFile(t *testing.T) {
	report, err := Aggregate(filepath.Join(t.TempDir(), "nope.csv"))
	if err != nil {
		t.Fatalf("missing file must not error, got %v", err)
	}
	if len(report.CountyCounts) != 0 || len(report.Top5) != 0 {
		t.Fatalf("missing file must yield an empty report, got %+v", report)
	}
}

func TestAggregateFillsDefaults(t *testing.T) {
	path := writeLog(t, `timestamp,county,user_input,scam_type
2026-08-01 10:00:00,,輸入一,
`)
	report, err := Aggregate(path)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(report.CountyCounts) != 1 || report.CountyCounts[0].County != "未知地區" {
		t.Fatalf("empty county must default, got %+v", report.CountyCounts)
	}
	if report.Top5[0].Type != "未分類" {
		t.Fatalf("empty type must default, got %+v", report.Top5)
	}
}

func TestAggregateTopFiveBound(t *testing.T) {
	content := "timestamp,county,user_input,scam_type\n"
	types := []string{"甲", "乙", "丙", "丁", "戊", "己", "庚"}
	for i, ty := range types {
		for j := 0; j <= i; j++ {
			content += "2026-08-01 10:00:00,台北市,輸入," + ty + "詐騙\n"
		}
	}
	report, err := Aggregate(writeLog(t, content))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(report.Top5) != 5 {
		t.Fatalf("overall top5 length = %d, want 5", len(report.Top5))
	}
	if report.Top5[0].Type != "庚詐騙" || report.Top5[0].Count != 7 {
		t.Fatalf("top entry = %+v, want 庚詐騙 x7", report.Top5[0])
	}
}
