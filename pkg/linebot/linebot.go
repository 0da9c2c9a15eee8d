// Package linebot handles the LINE messaging webhook: signature
// verification, event parsing, and the brief analysis replies pushed back
// through the LINE reply API.
package linebot

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fraud165/triage/pkg/httputil"
	"github.com/fraud165/triage/pkg/oracle"
	"github.com/fraud165/triage/pkg/retrieval"
)

const (
	defaultReplyURL = "https://api.line.me/v2/bot/message/reply"
	maxInputRunes   = 1000

	emptyInputReply = "⚠️ 請輸入問題。"
	tooLongReply    = "⚠️ 輸入過長，請簡化問題。"
	generateFailed  = "⚠️ 無法生成回答，請稍後再試。"
)

const briefSystemPrompt = "你是一個專業的詐騙分析助手。你收到的「資料庫內容」可能包含「詐騙案例」和「合法的官方流程」。\n" +
	"請你根據這些資料，比較使用者的問題，並做出客觀的風險判斷（高/低）。\n\n" +
	"- 如果使用者的描述符合「詐騙案例」，請指出風險並說明。\n" +
	"- 如果使用者的描述符合「合法的官方流程」，請告知用戶風險低，並提醒他們注意查證管道（例如官方網站）。\n\n" +
	"資料庫內容如下：\n"

// webhookPayload is the LINE webhook envelope, reduced to what we read.
type webhookPayload struct {
	Events []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Source     struct {
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

type replyRequest struct {
	ReplyToken string         `json:"replyToken"`
	Messages   []replyMessage `json:"messages"`
}

type replyMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Handler processes webhook calls for one LINE channel.
type Handler struct {
	secret       string
	token        string
	verifyUserID string
	oracle       oracle.Client
	retriever    *retrieval.Store
	client       *http.Client
	replyURL     string // overridable in tests
}

// NewHandler builds a webhook handler. The retriever may be nil; the brief
// analysis then runs on the user's narration alone.
func NewHandler(channelSecret, channelToken, verifyUserID string, client oracle.Client, retriever *retrieval.Store) *Handler {
	return &Handler{
		secret:       channelSecret,
		token:        channelToken,
		verifyUserID: verifyUserID,
		oracle:       client,
		retriever:    retriever,
		client:       httputil.Client(httputil.TierMedium),
		replyURL:     defaultReplyURL,
	}
}

// VerifySignature checks the X-Line-Signature header against the raw
// request body.
func (h *Handler) VerifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// HandleWebhook verifies and processes one webhook delivery. It returns
// false for an invalid signature or unparseable body; per-event failures
// are logged and do not fail the delivery.
func (h *Handler) HandleWebhook(ctx context.Context, body []byte, signature string) bool {
	if !h.VerifySignature(body, signature) {
		log.Printf("[Line] signature verification failed")
		return false
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("[Line] unparseable webhook body: %v", err)
		return false
	}

	for _, event := range payload.Events {
		if event.Type != "message" || event.Message.Type != "text" {
			continue
		}
		h.handleTextMessage(ctx, event)
	}
	return true
}

func (h *Handler) handleTextMessage(ctx context.Context, event webhookEvent) {
	input := strings.TrimSpace(event.Message.Text)

	// LINE console verification sends from a fixed user id
	if h.verifyUserID != "" && event.Source.UserID == h.verifyUserID {
		h.reply(ctx, event.ReplyToken, "OK")
		return
	}

	if input == "" {
		h.reply(ctx, event.ReplyToken, emptyInputReply)
		return
	}
	if utf8.RuneCountInString(input) > maxInputRunes {
		h.reply(ctx, event.ReplyToken, tooLongReply)
		return
	}

	h.reply(ctx, event.ReplyToken, h.briefAnalysis(ctx, input))
}

// briefAnalysis produces the short LINE-sized verdict: retrieved cases (or
// the user's narration alone) plus a single generate call, with risk
// wording normalized afterwards.
func (h *Handler) briefAnalysis(ctx context.Context, input string) string {
	caseCtx := ""
	if h.retriever != nil && h.retriever.IsReady() {
		caseCtx = h.retriever.Context(ctx, input, 3)
	}
	if caseCtx == "" {
		caseCtx = "（資料庫目前無可用文件；請僅根據使用者敘述判斷是否為詐騙，並提供簡短理由與建議。）\n使用者敘述：" + input
	}

	prompt := briefSystemPrompt + "\n" + caseCtx + "\n請根據上述資料，回答用戶提出的問題：" + input
	answer, err := h.oracle.Generate(ctx, prompt)
	if err != nil || answer == "" {
		log.Printf("[Line] brief analysis failed: %v", err)
		return generateFailed
	}
	return normalizeRisk(answer)
}

var (
	percentPattern    = regexp.MustCompile(`(\d{1,3})\s*%`)
	percentSubPattern = regexp.MustCompile(`[：:]?\s*\d{1,3}\s*%`)
	probWordPattern   = regexp.MustCompile(`詐騙\s*機率`)
	riskLinePattern   = regexp.MustCompile(`(詐騙風險\s*[:：]\s*).*`)
)

// normalizeRisk rewrites probability wording into the high/low risk levels
// shown to LINE users. Undeterminable levels become high.
func normalizeRisk(text string) string {
	s := probWordPattern.ReplaceAllString(text, "詐騙風險")
	if m := percentPattern.FindStringSubmatch(s); m != nil {
		level := "低"
		if pct := atoiSafe(m[1]); pct >= 60 {
			level = "高"
		}
		s = percentSubPattern.ReplaceAllString(s, "："+level)
	}
	if strings.Contains(s, "詐騙風險") && !strings.Contains(s, "高") && !strings.Contains(s, "低") {
		s = riskLinePattern.ReplaceAllString(s, "${1}高")
	}
	return s
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// reply sends one text message through the LINE reply API. Failures are
// logged; the webhook delivery still counts as handled.
func (h *Handler) reply(ctx context.Context, replyToken, text string) {
	payload, err := json.Marshal(replyRequest{
		ReplyToken: replyToken,
		Messages:   []replyMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		log.Printf("[Line] marshal reply: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.replyURL, bytes.NewReader(payload))
	if err != nil {
		log.Printf("[Line] build reply request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.token)

	resp, err := h.client.Do(req)
	if err != nil {
		log.Printf("[Line] reply call failed: %v", err)
		return
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := httputil.ReadResponseBody(resp.Body, 4096)
		log.Printf("[Line] reply rejected: status=%d body=%s", resp.StatusCode, string(body))
		return
	}
	log.Printf("[Line] replied: %.50s", text)
}
