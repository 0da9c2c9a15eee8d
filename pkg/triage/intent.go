package triage

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/fraud165/triage/pkg/config"
	"github.com/fraud165/triage/pkg/keywords"
	"github.com/fraud165/triage/pkg/oracle"
)

// Intent is one of the four conversation intents. DescribeEvent is the
// fallback whenever classification is inconclusive: ambiguous input is
// treated as a reportable event, not dismissed.
type Intent string

const (
	IntentRecallMemory  Intent = "查詢記憶"
	IntentDescribeEvent Intent = "描述事件"
	IntentAskCapability Intent = "詢問功能"
	IntentChitchat      Intent = "閒聊"
)

// intentOrder fixes the parse and iteration order.
var intentOrder = []Intent{IntentRecallMemory, IntentDescribeEvent, IntentAskCapability, IntentChitchat}

const intentSystemPrompt = "你是一個對話意圖分類助手，請用繁體中文回答。" +
	"判斷使用者輸入屬於以下四種意圖之一，只回傳中文意圖名稱，勿加解釋：" +
	"查詢記憶、描述事件、詢問功能、閒聊。"

// IntentClassifier resolves the user's intent from two signals: an oracle
// label and a keyword-overlap score per intent. The thresholds deciding
// which signal wins come from configuration.
type IntentClassifier struct {
	oracle oracle.Client
	tables *keywords.Tables

	scoreThreshold float64
	margin         float64
	lengthBonus    float64
	longRunes      int
	recallMax      int
	chitchatMax    int
}

// NewIntentClassifier builds a classifier with thresholds from cfg.
func NewIntentClassifier(client oracle.Client, tables *keywords.Tables, cfg *config.Config) *IntentClassifier {
	return &IntentClassifier{
		oracle:         client,
		tables:         tables,
		scoreThreshold: cfg.IntentScoreThreshold,
		margin:         cfg.IntentMargin,
		lengthBonus:    cfg.IntentLengthBonus,
		longRunes:      cfg.IntentLongRunes,
		recallMax:      cfg.RecallMaxRunes,
		chitchatMax:    cfg.ChitchatMaxRunes,
	}
}

// parseIntentLabel extracts one of the four canonical labels from free
// oracle text, tolerating a leading "意圖：" style prefix. Returns ok=false
// when no label is present.
func parseIntentLabel(raw string) (Intent, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "：", "")
	cleaned = strings.ReplaceAll(cleaned, ":", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return "", false
	}
	for _, intent := range intentOrder {
		if strings.Contains(cleaned, string(intent)) {
			return intent, true
		}
	}
	return "", false
}

func (c *IntentClassifier) vocabFor(intent Intent) []string {
	switch intent {
	case IntentRecallMemory:
		return c.tables.Intent.RecallMemory
	case IntentDescribeEvent:
		return c.tables.Intent.DescribeEvent
	case IntentAskCapability:
		return c.tables.Intent.AskCapability
	default:
		return c.tables.Intent.Chitchat
	}
}

// heuristicScores computes hits/(1+keywordCount) per intent, with a fixed
// additive bonus toward DescribeEvent for long input.
func (c *IntentClassifier) heuristicScores(input string) map[Intent]float64 {
	scores := make(map[Intent]float64, len(intentOrder))
	for _, intent := range intentOrder {
		vocab := c.vocabFor(intent)
		hits := 0
		for _, kw := range vocab {
			if strings.Contains(input, kw) {
				hits++
			}
		}
		scores[intent] = float64(hits) / float64(1+len(vocab))
	}
	if utf8.RuneCountInString(input) >= c.longRunes {
		scores[IntentDescribeEvent] += c.lengthBonus
	}
	return scores
}

// topTwo returns the best-scoring intent and the top and second scores.
// Ties resolve to the first-declared intent.
func topTwo(scores map[Intent]float64) (top Intent, topScore, secondScore float64) {
	top = intentOrder[0]
	topScore = scores[top]
	for _, intent := range intentOrder[1:] {
		if scores[intent] > topScore {
			secondScore = topScore
			top = intent
			topScore = scores[intent]
		} else if scores[intent] > secondScore {
			secondScore = scores[intent]
		}
	}
	return top, topScore, secondScore
}

// Classify decides the intent for one input. Oracle failures degrade to
// the heuristic path; the result is always one of the four intents.
func (c *IntentClassifier) Classify(ctx context.Context, input string, history []oracle.Turn) Intent {
	var llmIntent Intent
	var llmPresent bool

	turns := make([]oracle.Turn, 0, len(history)+2)
	turns = append(turns, oracle.Turn{Role: oracle.RoleSystem, Content: intentSystemPrompt})
	turns = append(turns, history...)
	turns = append(turns, oracle.Turn{Role: oracle.RoleUser, Content: input})

	raw, err := c.oracle.Chat(ctx, turns)
	if err != nil {
		log.Printf("[Intent] %v: %v", ErrOracleUnavailable, err)
	} else if llmIntent, llmPresent = parseIntentLabel(raw); !llmPresent {
		log.Printf("[Intent] %v: %q", ErrOracleUnparseable, raw)
	}

	scores := c.heuristicScores(input)
	topIntent, topScore, secondScore := topTwo(scores)
	margin := topScore - secondScore

	chosen := c.resolve(llmIntent, llmPresent, topIntent, topScore, margin, scores)
	return c.postCorrect(chosen, input)
}

// resolve applies the decision order between the oracle label and the
// heuristic ranking.
func (c *IntentClassifier) resolve(llmIntent Intent, llmPresent bool, topIntent Intent, topScore, margin float64, scores map[Intent]float64) Intent {
	if llmPresent {
		if llmIntent == topIntent || scores[llmIntent] >= c.scoreThreshold || margin < c.margin {
			return llmIntent
		}
		log.Printf("[Intent] heuristic %s (score=%.3f) overrides oracle %s", topIntent, topScore, llmIntent)
		return topIntent
	}
	if topScore >= c.scoreThreshold && margin >= c.margin {
		return topIntent
	}
	return IntentDescribeEvent
}

// postCorrect applies the final corrections regardless of which signal
// won: long input cannot be a memory query, and chit-chat must never mask
// an actual report.
func (c *IntentClassifier) postCorrect(chosen Intent, input string) Intent {
	runes := utf8.RuneCountInString(input)
	if chosen == IntentRecallMemory && runes > c.recallMax {
		log.Printf("[Intent] input length %d exceeds recall bound, correcting to %s", runes, IntentDescribeEvent)
		return IntentDescribeEvent
	}
	if chosen == IntentChitchat {
		if runes > c.chitchatMax {
			return IntentDescribeEvent
		}
		for _, kw := range c.tables.HighSignal {
			if strings.Contains(input, kw) {
				log.Printf("[Intent] chit-chat verdict contains high-signal keyword %s, correcting", kw)
				return IntentDescribeEvent
			}
		}
	}
	return chosen
}
