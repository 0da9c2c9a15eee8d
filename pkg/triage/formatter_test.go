package triage

import (
	"strings"
	"testing"

	"github.com/fraud165/triage/pkg/keywords"
)

func TestShouldFormat(t *testing.T) {
	cases := []struct {
		name     string
		intent   Intent
		scamType string
		answer   string
		want     bool
	}{
		{"describe event with category", IntentDescribeEvent, "假投資詐騙", "這是詐騙", true},
		{"unclassifiable", IntentDescribeEvent, keywords.Unclassifiable, "這是詐騙", false},
		{"chitchat", IntentChitchat, "假投資詐騙", "這是詐騙", false},
		{"oracle refusal", IntentDescribeEvent, "假投資詐騙", "抱歉，我只能回答詐騙相關問題。", false},
		{"cannot determine", IntentDescribeEvent, "假投資詐騙", "此描述無法明確判斷是否為詐騙。", false},
	}
	for _, tc := range cases {
		if got := ShouldFormat(tc.intent, tc.scamType, tc.answer); got != tc.want {
			t.Errorf("%s: ShouldFormat = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFormatReplyHighRiskFromPercent(t *testing.T) {
	answer := "這是典型的假投資詐騙，詐騙機率約 75%。建議立即停止匯款。"
	got := FormatReply("假投資詐騙", answer)

	if !strings.Contains(got, "📊 詐騙風險：高") {
		t.Errorf("75%% must resolve to high risk, got:\n%s", got)
	}
	if strings.Contains(got, "%") {
		t.Errorf("formatted reply must carry no residual percent sign, got:\n%s", got)
	}
	if !strings.Contains(got, "📌 詐騙類型：假投資詐騙") {
		t.Error("missing category header")
	}
	if !strings.Contains(got, "165 詐騙專線") {
		t.Error("missing advice footer")
	}
}

func TestFormatReplyLowRiskFromPercent(t *testing.T) {
	got := FormatReply("網路購物詐騙", "看起來問題不大，詐騙機率約 30%。")
	if !strings.Contains(got, "📊 詐騙風險：低") {
		t.Errorf("30%% must resolve to low risk, got:\n%s", got)
	}
}

func TestFormatReplyFullWidthPercent(t *testing.T) {
	got := FormatReply("假投資詐騙", "詐騙機率高達８５％，請小心。")
	if !strings.Contains(got, "📊 詐騙風險：高") {
		t.Errorf("full-width 85%% must resolve to high risk, got:\n%s", got)
	}
	if strings.Contains(got, "％") || strings.Contains(got, "%") {
		t.Errorf("residual percent sign survived folding, got:\n%s", got)
	}
}

func TestFormatReplyDefaultsHigh(t *testing.T) {
	got := FormatReply("假檢警詐騙", "這是標準的假檢警手法，對方會要求保密。")
	if !strings.Contains(got, "📊 詐騙風險：高") {
		t.Errorf("undetermined risk must default to high, got:\n%s", got)
	}
}

func TestFormatReplyWordingRisk(t *testing.T) {
	got := FormatReply("假投資詐騙", "整體評估屬於低風險情況。")
	if !strings.Contains(got, "📊 詐騙風險：低") {
		t.Errorf("explicit low wording must resolve to low, got:\n%s", got)
	}
}

func TestFormatReplyIdempotent(t *testing.T) {
	answer := "這是典型的假投資詐騙，詐騙機率約 75%。建議立即停止匯款。"
	once := FormatReply("假投資詐騙", answer)
	twice := FormatReply("假投資詐騙", once)

	if once != twice {
		t.Errorf("re-formatting already formatted text changed it:\nfirst:\n%s\nsecond:\n%s", once, twice)
	}
	if strings.Count(twice, "查證建議") != 1 {
		t.Error("advice block doubled")
	}
	if strings.Count(twice, "📌 詐騙類型") != 1 {
		t.Error("category header doubled")
	}
}

func TestFormatReplyEmptyBodyPlaceholder(t *testing.T) {
	// the whole answer is report scaffolding; the body must fall back to
	// the placeholder sentence
	got := FormatReply("假投資詐騙", "詐騙機率：90%")
	if !strings.Contains(got, emptyBodyText) {
		t.Errorf("empty body must use the placeholder, got:\n%s", got)
	}
}

func TestFormatReplyDropsDuplicateLines(t *testing.T) {
	got := FormatReply("假投資詐騙", "對方保證獲利。\n對方保證獲利。\n\n\n請小心。")
	if strings.Count(got, "對方保證獲利。") != 1 {
		t.Errorf("duplicate consecutive lines must collapse, got:\n%s", got)
	}
}

func TestDefaultReply(t *testing.T) {
	if !strings.Contains(DefaultReply(IntentChitchat), "詐騙分析機器人") {
		t.Error("chitchat reply wrong")
	}
	if !strings.Contains(DefaultReply(IntentAskCapability), "提供以下服務") {
		t.Error("capability reply wrong")
	}
	if !strings.Contains(DefaultReply(IntentRecallMemory), "未找到您的歷史分析記錄") {
		t.Error("recall reply wrong")
	}
	if !strings.Contains(DefaultReply(IntentDescribeEvent), "只能處理詐騙相關問題") {
		t.Error("fallback reply wrong")
	}
}
