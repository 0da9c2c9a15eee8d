package triage

import (
	"context"
	"errors"
	"testing"

	"github.com/fraud165/triage/pkg/config"
	"github.com/fraud165/triage/pkg/keywords"
)

func newIntentClassifier(stub *stubOracle) *IntentClassifier {
	return NewIntentClassifier(stub, keywords.Default(), config.NewLocalConfig())
}

func TestIntentDefaultsOnOracleFailure(t *testing.T) {
	// 10-rune neutral input, oracle down: no heuristic clears the
	// threshold, so the fallback applies
	c := newIntentClassifier(&stubOracle{err: errors.New("timeout")})
	got := c.Classify(context.Background(), "嗯嗯嗯嗯嗯嗯嗯嗯嗯嗯", nil)
	if got != IntentDescribeEvent {
		t.Fatalf("got %s, want %s", got, IntentDescribeEvent)
	}
}

func TestIntentNeverOutsideEnum(t *testing.T) {
	valid := map[Intent]bool{
		IntentRecallMemory:  true,
		IntentDescribeEvent: true,
		IntentAskCapability: true,
		IntentChitchat:      true,
	}
	replies := []string{"", "亂七八糟", "意圖：描述事件", "查詢記憶", "閒聊啦", "whatever"}
	inputs := []string{"你好", "我被騙了一百萬", "上次是什麼類型", "嗯", "有人要我轉帳到監管帳戶並保密"}
	for _, reply := range replies {
		for _, input := range inputs {
			c := newIntentClassifier(&stubOracle{reply: reply})
			if got := c.Classify(context.Background(), input, nil); !valid[got] {
				t.Fatalf("Classify(%q) with oracle %q returned %q, outside the enum", input, reply, got)
			}
		}
	}
}

func TestIntentAcceptsOracleWithPrefix(t *testing.T) {
	c := newIntentClassifier(&stubOracle{reply: "意圖：詢問功能"})
	got := c.Classify(context.Background(), "嗯嗯嗯", nil)
	if got != IntentAskCapability {
		t.Fatalf("got %s, want %s", got, IntentAskCapability)
	}
}

func TestIntentHeuristicOverridesWeakOracle(t *testing.T) {
	// many recall keywords, oracle says chit-chat: heuristic margin is
	// wide and the oracle label scores zero, so the heuristic wins
	c := newIntentClassifier(&stubOracle{reply: "閒聊"})
	got := c.Classify(context.Background(), "你還記得我上次之前問的紀錄嗎", nil)
	if got != IntentRecallMemory {
		t.Fatalf("got %s, want %s", got, IntentRecallMemory)
	}
}

func TestIntentChitchatCorrectedByHighSignal(t *testing.T) {
	c := newIntentClassifier(&stubOracle{reply: "閒聊"})
	got := c.Classify(context.Background(), "你好，我收到OTP驗證碼", nil)
	if got != IntentDescribeEvent {
		t.Fatalf("got %s, want %s", got, IntentDescribeEvent)
	}
}

func TestIntentRecallCorrectedByLength(t *testing.T) {
	long := "我上次記得有一個自稱銀行人員的人打電話給我，說我的信用卡被盜刷了好幾筆，要我趕快處理不然會被凍結帳戶"
	c := newIntentClassifier(&stubOracle{reply: "查詢記憶"})
	got := c.Classify(context.Background(), long, nil)
	if got != IntentDescribeEvent {
		t.Fatalf("got %s, want %s", got, IntentDescribeEvent)
	}
}

func TestIntentLengthBonusFavorsDescribeEvent(t *testing.T) {
	// long narrative with no vocabulary hits at all: the length bonus
	// alone must push DescribeEvent over the threshold
	long := "那個人一直說他是誰誰誰然後要我做這個做那個我都搞不清楚到底怎麼回事了啦"
	c := newIntentClassifier(&stubOracle{err: errors.New("down")})
	got := c.Classify(context.Background(), long, nil)
	if got != IntentDescribeEvent {
		t.Fatalf("got %s, want %s", got, IntentDescribeEvent)
	}
}
