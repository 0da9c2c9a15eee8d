package triage

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fraud165/triage/pkg/keywords"
	"github.com/fraud165/triage/pkg/oracle"
)

// categoryHints are the one-line descriptions shown to the oracle for the
// built-in categories. Categories loaded from a YAML override without a
// hint are enumerated by name alone.
var categoryHints = map[string]string{
	"網路購物詐騙":       "例如收到假貨、貨不對版、無法退款",
	"假投資詐騙":        "例如高回報誘騙投資",
	"假交友(投資財)詐騙":   "以交友為名誘騙投資",
	"假交友(徵婚詐財)詐騙":  "以婚戀交友為名詐財",
	"假買家騙賣家詐騙":     "買家詐騙賣家錢財",
	"假中獎通知詐騙":      "虛假中獎詐騙(通常要求支付手續費或稅金)",
	"假求職詐騙":        "以求職為名詐財",
	"假借銀行貸款詐騙":     "假借貸款詐騙",
	"假檢警詐騙":        "冒充警察詐騙",
	"假廣告詐騙":        "虛假廣告誘騙",
	"釣魚簡訊(惡意連結)詐騙": "簡訊釣魚連結",
	"色情應召詐財詐騙":     "色情誘騙詐財",
	"騙取金融帳戶(卡片)詐騙": "騙取銀行卡資料",
	"虛擬遊戲詐騙":       "遊戲內詐騙",
	"猜猜我是誰詐騙":      "冒充熟人詐騙",
	"假客服(盜刷/分期)詐騙": "冒充銀行、電商客服，謊稱帳戶盜刷、訂單錯誤或設定錯誤分期付款。",
}

// ScamClassifier places an event into one of the fixed categories, or the
// sentinel. Resolution favors strong deterministic keyword evidence over a
// possibly-hallucinated oracle answer, while still preferring the oracle
// for genuinely ambiguous cases.
type ScamClassifier struct {
	oracle       oracle.Client
	tables       *keywords.Tables
	systemPrompt string
}

// NewScamClassifier builds a classifier whose oracle prompt enumerates
// every configured category in declaration order.
func NewScamClassifier(client oracle.Client, tables *keywords.Tables) *ScamClassifier {
	return &ScamClassifier{
		oracle:       client,
		tables:       tables,
		systemPrompt: buildScamSystemPrompt(tables),
	}
}

func buildScamSystemPrompt(tables *keywords.Tables) string {
	var b strings.Builder
	b.WriteString("你是一個專業的詐騙分類助手，請用繁體中文回答。")
	b.WriteString("根據使用者描述的事件內容，判斷該事件屬於以下哪一類詐騙，")
	b.WriteString("並且只回傳其中一個詐騙類型名稱，切勿多回答或解釋。")
	b.WriteString("以下是類型和簡短說明，請嚴格依照這些類型判斷：\n")
	for i, cat := range tables.ScamCategories {
		if hint, ok := categoryHints[cat.Name]; ok {
			fmt.Fprintf(&b, "%d. %s：%s\n", i+1, cat.Name, hint)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, cat.Name)
		}
	}
	fmt.Fprintf(&b, "如果事件不屬於以上%d種類型，或者事件描述的是政府、銀行或郵局的「正常合法流程」，也請回覆『%s』。",
		len(tables.ScamCategories), keywords.Unclassifiable)
	return b.String()
}

// parseCategory extracts the first category name found in the oracle text,
// scanning in enumeration order with the sentinel last. ok=false means no
// category appeared at all.
func (c *ScamClassifier) parseCategory(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	for _, cat := range c.tables.ScamCategories {
		if strings.Contains(raw, cat.Name) {
			return cat.Name, true
		}
	}
	if strings.Contains(raw, keywords.Unclassifiable) {
		return keywords.Unclassifiable, true
	}
	return "", false
}

// heuristicTop counts keyword hits per category and returns the highest
// scorer. Ties resolve to the first-declared category.
func (c *ScamClassifier) heuristicTop(input string) (topCategory string, topScore int) {
	topCategory = keywords.Unclassifiable
	for _, cat := range c.tables.ScamCategories {
		count := 0
		for _, kw := range cat.Keywords {
			if strings.Contains(input, kw) {
				count++
			}
		}
		if count > topScore {
			topCategory = cat.Name
			topScore = count
		}
	}
	return topCategory, topScore
}

// Classify resolves the scam category from the oracle verdict and the
// keyword score. Any failure resolves to the sentinel.
func (c *ScamClassifier) Classify(ctx context.Context, input string, history []oracle.Turn) string {
	turns := make([]oracle.Turn, 0, len(history)+2)
	turns = append(turns, oracle.Turn{Role: oracle.RoleSystem, Content: c.systemPrompt})
	turns = append(turns, history...)
	turns = append(turns, oracle.Turn{Role: oracle.RoleUser, Content: input})

	var llmCategory string
	var llmPresent bool
	raw, err := c.oracle.Chat(ctx, turns)
	if err != nil {
		log.Printf("[ScamType] %v: %v", ErrOracleUnavailable, err)
	} else if llmCategory, llmPresent = c.parseCategory(raw); !llmPresent {
		log.Printf("[ScamType] %v: %q", ErrOracleUnparseable, raw)
	}

	topCategory, topScore := c.heuristicTop(input)
	log.Printf("[ScamType] oracle=%q heuristic=%q (score=%d)", llmCategory, topCategory, topScore)

	// Strong local evidence beats a contradicting or absent oracle verdict.
	if topScore >= 2 && llmCategory != topCategory {
		log.Printf("[ScamType] heuristic %s (score=%d) overrides oracle %q", topCategory, topScore, llmCategory)
		return topCategory
	}
	if llmPresent && llmCategory != keywords.Unclassifiable {
		return llmCategory
	}
	if topScore > 0 {
		return topCategory
	}
	if llmPresent {
		return llmCategory
	}
	return keywords.Unclassifiable
}
