// Package keywords holds the deterministic trigger vocabularies used by
// every classifier: scam categories with their trigger phrases, the
// high-signal relatedness list, and the per-intent vocabularies.
//
// Tables are built once at startup and injected into classifiers; nothing
// mutates them afterwards. Category order is load-bearing: substring parses
// and heuristic ties both resolve to the first-declared category, so the
// declaration order below must not be reshuffled. The same trigger word may
// appear under several categories on purpose; do not deduplicate.
package keywords

// Unclassifiable is the sentinel category for events no table or oracle
// verdict can place.
const Unclassifiable = "無法分類"

// Category pairs a scam category name with its ordered trigger keywords.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// IntentVocab holds the keyword lists backing the intent heuristic.
type IntentVocab struct {
	RecallMemory  []string `yaml:"recall_memory"`
	DescribeEvent []string `yaml:"describe_event"`
	AskCapability []string `yaml:"ask_capability"`
	Chitchat      []string `yaml:"chitchat"`
}

// Tables is the full immutable keyword configuration.
type Tables struct {
	// ScamCategories in enumeration order, sentinel excluded.
	ScamCategories []Category `yaml:"scam_categories"`
	// HighSignal keywords short-circuit the relatedness gate.
	HighSignal []string `yaml:"high_signal"`
	// RelatedOverride is the narrower list consulted when the gate says
	// unrelated; a hit overrides the negative verdict.
	RelatedOverride []string `yaml:"related_override"`
	// Intent vocabularies for the four intents.
	Intent IntentVocab `yaml:"intent"`
}

// CategoryNames returns the category names in enumeration order.
func (t *Tables) CategoryNames() []string {
	names := make([]string, 0, len(t.ScamCategories))
	for _, c := range t.ScamCategories {
		names = append(names, c.Name)
	}
	return names
}

// Default returns the built-in tables.
func Default() *Tables {
	return &Tables{
		ScamCategories: []Category{
			{Name: "網路購物詐騙", Keywords: []string{"一頁式", "貨到付款", "包裹", "賣家", "拒收", "幽靈包裹", "貨不對版"}},
			{Name: "假投資詐騙", Keywords: []string{"投資", "群組", "保證獲利", "穩賺不賠", "飆股", "高報酬", "老師", "外匯", "虛擬貨幣"}},
			{Name: "假交友(投資財)詐騙", Keywords: []string{"交友", "投資", "Tinder", "Omi", "穩賺", "外匯", "見面"}},
			{Name: "假交友(徵婚詐財)詐騙", Keywords: []string{"交友", "徵婚", "結婚", "老公", "老婆", "見面", "感情"}},
			{Name: "假買家騙賣家詐騙", Keywords: []string{"買家", "蝦皮", "轉帳失敗", "認證", "無法下單", "條碼"}},
			{Name: "假中獎通知詐騙", Keywords: []string{"手續費", "稅金", "點擊連結", "輸入個資", "保證金", "回饋金", "繳納", "點選"}},
			{Name: "假求職詐騙", Keywords: []string{"求職", "工作", "高薪", "輕鬆", "在家工作", "存摺", "提款卡", "人頭"}},
			{Name: "假借銀行貸款詐騙", Keywords: []string{"貸款", "銀行", "信用", "美化帳戶", "保證金", "利率"}},
			{Name: "假檢警詐騙", Keywords: []string{"檢察官", "地檢署", "警察", "逮捕", "拘票", "傳票", "監管帳戶", "偵查不公開", "洗錢"}},
			{Name: "假廣告詐騙", Keywords: []string{"廣告", "臉書", "FB", "IG", "名人推薦", "一頁式"}},
			{Name: "釣魚簡訊(惡意連結)詐騙", Keywords: []string{"簡訊", "連結", "點擊", "包裹", "電信費", "罰單", "積分", "ETF", "驗證碼"}},
			{Name: "色情應召詐財詐騙", Keywords: []string{"色情", "應召", "援交", "買點數", "保證金", "妹妹", "LINE"}},
			{Name: "騙取金融帳戶(卡片)詐騙", Keywords: []string{"金融卡", "寄送", "提供", "帳戶", "基金會", "補助"}},
			{Name: "虛擬遊戲詐騙", Keywords: []string{"遊戲", "寶物", "點數", "帳號", "買賣", "Steam"}},
			{Name: "猜猜我是誰詐騙", Keywords: []string{"猜猜我是誰", "換號碼", "急用錢", "幫我", "叔叔", "阿姨"}},
			{Name: "假客服(盜刷/分期)詐騙", Keywords: []string{"客服", "盜刷", "重複扣款", "解除分期", "訂單錯誤", "設錯", "VIP", "刷卡", "帳戶異常", "電商", "銀行"}},
		},
		HighSignal: []string{
			// 金融/轉帳/帳號
			"轉帳", "匯款", "帳戶", "銀行", "ATM", "監管帳戶", "凍結帳戶", "解除分期", "點數",
			// 司法/執法威脅
			"檢察官", "地檢署", "法院", "拘票", "傳票", "逮捕", "警察", "調查局",
			// 操控指示/恐嚇
			"不能透露", "保密", "全程監控", "不配合", "馬上逮捕", "立即轉帳", "立即匯款",
			// 詐投/保證收益
			"投資群組", "股票群組", "保證獲利", "高報酬", "穩賺不賠",
			// 社交工程/客服詐騙
			"客服", "簡訊連結", "驗證碼", "OTP", "匯款代碼", "代收貨款",
		},
		RelatedOverride: []string{
			"銀行", "客服", "帳戶", "帳號", "轉帳", "匯款", "ATM", "異常交易", "驗證碼", "OTP",
			"檢察官", "法院", "拘票", "地檢署", "警察", "逮捕", "不配合", "保密",
		},
		Intent: IntentVocab{
			RecallMemory:  []string{"上次", "之前", "剛剛", "記得", "記錄", "紀錄", "什麼類型", "哪種類型", "哪一種", "還記得"},
			DescribeEvent: []string{"接到", "收到", "對方", "自稱", "要求", "電話", "訊息", "簡訊", "網站", "連結", "轉帳", "匯款", "被騙", "通知"},
			AskCapability: []string{"功能", "可以做什麼", "怎麼使用", "怎麼用", "使用方式", "提供什麼", "會什麼", "服務"},
			Chitchat:      []string{"你好", "嗨", "哈囉", "早安", "午安", "晚安", "謝謝", "再見", "你是誰", "無聊"},
		},
	}
}
