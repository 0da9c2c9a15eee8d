package triage

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fraud165/triage/pkg/keywords"
)

// RiskLevel is the binary risk verdict shown to the user. High is the
// default whenever the level cannot be determined.
type RiskLevel string

const (
	RiskHigh RiskLevel = "高"
	RiskLow  RiskLevel = "低"
)

const (
	adviceMarker    = "查證建議"
	analysisHeader  = "分析內容"
	emptyBodyText   = "分析內容不足，請提供更多事件細節。"
	adviceFooter    = "🧠 查證建議：\n1. 請保留相關對話紀錄與付款證明\n2. 請勿再聯繫對方或提供任何帳戶資訊\n3. 若有疑慮請撥打 165 詐騙專線"
	riskHighPercent = 60
)

// rejectKeywords mark oracle text that is itself a refusal; wrapping a
// refusal in a risk report is incorrect.
var rejectKeywords = []string{
	"我只能回答詐騙相關問題",
	"請提供更多資訊",
	"無法明確判斷",
	"描述無法明確判斷是否為詐騙",
}

var (
	percentPattern     = regexp.MustCompile(`(\d{1,3})\s*%`)
	percentSubPattern  = regexp.MustCompile(`[：:]?\s*\d{1,3}\s*%`)
	headerLinePattern  = regexp.MustCompile(`^(📌\s*)?詐騙類型[：:]|^(📊\s*)?詐騙(風險|機率)[：:]?`)
	analysisHeaderLine = regexp.MustCompile(`^(🔍\s*)?分析內容[：:]?$`)
	riskWordingPattern = regexp.MustCompile(`(風險|機率)[：:]?\s*(高|低)|(高|低)風險`)
)

// ShouldFormat decides whether the oracle text gets wrapped in the
// structured risk report. Only a describe-event turn with a concrete
// category qualifies, and never when the oracle itself declined.
func ShouldFormat(intent Intent, scamType, answer string) bool {
	for _, kw := range rejectKeywords {
		if strings.Contains(answer, kw) {
			return false
		}
	}
	return intent == IntentDescribeEvent && scamType != keywords.Unclassifiable
}

// ExtractRisk resolves a risk level from oracle text: an explicit
// percentage wins, then explicit high/low wording. ok=false means
// undetermined and the caller's default applies.
func ExtractRisk(answer string) (RiskLevel, bool) {
	folded := foldWidth(answer)
	if m := percentPattern.FindStringSubmatch(folded); m != nil {
		pct, err := strconv.Atoi(m[1])
		if err == nil {
			if pct >= riskHighPercent {
				return RiskHigh, true
			}
			return RiskLow, true
		}
	}
	if m := riskWordingPattern.FindStringSubmatch(folded); m != nil {
		for _, g := range m[2:] {
			if g == string(RiskHigh) {
				return RiskHigh, true
			}
			if g == string(RiskLow) {
				return RiskLow, true
			}
		}
	}
	return "", false
}

// FormatReply wraps the oracle's analysis in the structured risk report:
// category header, risk header, cleaned analysis body, fixed verification
// advice footer. The normalization is idempotent, so text that already
// carries report headers is cleaned rather than doubled.
func FormatReply(scamType, answer string) string {
	level, ok := ExtractRisk(answer)
	if !ok {
		level = RiskHigh
	}
	body := normalizeBody(answer, level)
	if body == "" {
		body = emptyBodyText
	}
	return "📌 詐騙類型：" + scamType + "\n" +
		"📊 詐騙風險：" + string(level) + "\n\n" +
		"🔍 " + analysisHeader + "：\n" + body + "\n\n" +
		adviceFooter
}

// normalizeBody strips report scaffolding the oracle may have emitted so
// the assembled reply never doubles headers or the advice block.
func normalizeBody(answer string, level RiskLevel) string {
	text := foldWidth(answer)

	// drop everything from the advice marker on, including a dangling emoji
	if idx := strings.Index(text, adviceMarker); idx >= 0 {
		text = strings.TrimRight(strings.TrimSuffix(strings.TrimSpace(text[:idx]), "🧠"), " \t\n")
	}

	text = strings.ReplaceAll(text, "詐騙機率", "詐騙風險")
	text = percentSubPattern.ReplaceAllString(text, "："+string(level))

	var out []string
	prevBlank := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if headerLinePattern.MatchString(trimmed) || analysisHeaderLine.MatchString(trimmed) {
			continue
		}
		if trimmed == "" {
			if prevBlank {
				continue
			}
			prevBlank = true
			out = append(out, "")
			continue
		}
		prevBlank = false
		if len(out) > 0 && out[len(out)-1] == trimmed {
			continue
		}
		out = append(out, trimmed)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// DefaultReply maps short-circuited intents to their canned replies.
func DefaultReply(intent Intent) string {
	switch intent {
	case IntentChitchat:
		return "🤖 我是詐騙分析機器人，能協助判斷詐騙並提供風險分析。如有疑問請隨時提問！"
	case IntentAskCapability:
		return "🤖 我可提供以下服務：1. 分析事件是否為詐騙 2. 判斷詐騙類型 3. 提供查證建議 4. 記憶歷史分析結果。"
	case IntentRecallMemory:
		return "🧠 未找到您的歷史分析記錄，請先描述事件以獲取分類結果。"
	default:
		return "抱歉，我目前只能處理詐騙相關問題，請提供更多事件細節。"
	}
}
