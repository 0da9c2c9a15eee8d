package triage

import (
	"context"
	"log"
	"strings"

	"github.com/fraud165/triage/pkg/config"
	"github.com/fraud165/triage/pkg/geo"
	"github.com/fraud165/triage/pkg/httputil"
	"github.com/fraud165/triage/pkg/keywords"
	"github.com/fraud165/triage/pkg/oracle"
	"github.com/fraud165/triage/pkg/retrieval"
	"github.com/fraud165/triage/pkg/session"
	"github.com/fraud165/triage/pkg/storage"
)

const (
	emptyInputReply    = "⚠️ 請輸入問題。"
	unrelatedReply     = "抱歉，您的問題似乎與詐騙無關，我目前專注於詐騙相關問題。"
	oracleDownReply    = "對不起，我無法連接到伺服器，請稍後再試。"
	memoryClearedReply = "記憶已清除。"
	memoryClearFailed  = "清除記憶失敗，請稍後再試。"
)

const analysisSystemPrompt = "你是一位專業的詐騙分析助手。" +
	"嚴格限制回答只針對詐騙相關問題，若使用者提問與詐騙無關，" +
	"請禮貌回覆「抱歉，我只能回答詐騙相關問題」。" +
	"回答內容請精準且聚焦於詐騙分析，不得漫談其他主題。" +
	"請不要主動提及今天日期。"

// Request is one inbound triage question. Latitude/Longitude are optional
// and only drive the region tag on the persistence record.
type Request struct {
	SessionID string
	Question  string
	Latitude  *float64
	Longitude *float64
}

// Result is the outcome of one triage turn.
type Result struct {
	Answer   string `json:"answer"`
	ScamType string `json:"scam_type"`
	Intent   string `json:"intent"`
}

// limitedOracle bounds concurrent oracle calls across all requests with a
// counting semaphore. A full semaphore waits; a cancelled wait surfaces as
// an oracle failure and degrades like any other.
type limitedOracle struct {
	inner oracle.Client
	sem   *httputil.Semaphore
}

func (l *limitedOracle) Chat(ctx context.Context, turns []oracle.Turn) (string, error) {
	if err := l.sem.Acquire(ctx); err != nil {
		return "", err
	}
	defer l.sem.Release()
	return l.inner.Chat(ctx, turns)
}

func (l *limitedOracle) Generate(ctx context.Context, prompt string) (string, error) {
	if err := l.sem.Acquire(ctx); err != nil {
		return "", err
	}
	defer l.sem.Release()
	return l.inner.Generate(ctx, prompt)
}

// Engine wires the classifiers, session store, sinks and geocoder into the
// full triage pipeline. One Engine serves all sessions.
type Engine struct {
	cfg    *config.Config
	tables *keywords.Tables
	oracle oracle.Client

	gate    *RelatednessGate
	intents *IntentClassifier
	scams   *ScamClassifier

	store     session.Store
	locks     *session.KeyedMutex
	sinks     storage.Sink
	geocoder  geo.Reverser
	retriever *retrieval.Store
}

// EngineOptions carries the optional collaborators. Nil fields disable the
// corresponding side effect.
type EngineOptions struct {
	Sinks     storage.Sink
	Geocoder  geo.Reverser
	Retriever *retrieval.Store
}

// NewEngine builds the pipeline over the given oracle and session store.
func NewEngine(cfg *config.Config, tables *keywords.Tables, client oracle.Client, store session.Store, opts EngineOptions) *Engine {
	limited := &limitedOracle{inner: client, sem: httputil.NewSemaphore(cfg.OracleMaxInFlight)}
	return &Engine{
		cfg:       cfg,
		tables:    tables,
		oracle:    limited,
		gate:      NewRelatednessGate(limited, tables),
		intents:   NewIntentClassifier(limited, tables, cfg),
		scams:     NewScamClassifier(limited, tables),
		store:     store,
		locks:     session.NewKeyedMutex(),
		sinks:     opts.Sinks,
		geocoder:  opts.Geocoder,
		retriever: opts.Retriever,
	}
}

// Ask runs one full triage turn. The only error it returns is
// ErrValidationFailure for empty input; every other failure degrades to a
// conservative default inside the pipeline.
func (e *Engine) Ask(ctx context.Context, req Request) (Result, error) {
	input := strings.TrimSpace(req.Question)
	if input == "" {
		return Result{Answer: emptyInputReply}, ErrValidationFailure
	}

	// serialize read-modify-write per session so a double-submit cannot
	// lose an update; other sessions proceed in parallel
	unlock := e.locks.Lock(req.SessionID)
	defer unlock()

	mem := e.store.Get(ctx, req.SessionID)
	history := mem.History

	intent := e.intents.Classify(ctx, input, history)
	log.Printf("[Triage] session=%s intent=%s", req.SessionID, intent)

	switch intent {
	case IntentChitchat, IntentAskCapability:
		return Result{
			Answer:   DefaultReply(intent),
			ScamType: keywords.Unclassifiable,
			Intent:   string(intent),
		}, nil
	case IntentRecallMemory:
		return e.recallMemory(mem, input, intent), nil
	}

	if !e.gate.IsRelated(ctx, input, history) {
		if e.gate.OverrideHit(input) {
			log.Printf("[Triage] unrelated verdict overridden by high-signal keyword")
		} else {
			return Result{
				Answer:   unrelatedReply,
				ScamType: keywords.Unclassifiable,
				Intent:   string(intent),
			}, nil
		}
	}

	answer := e.analyze(ctx, input, history)
	scamType := e.scams.Classify(ctx, input, history)

	region := geo.UnknownRegion
	if req.Latitude != nil && req.Longitude != nil && e.geocoder != nil {
		region = e.geocoder.ReverseGeocode(ctx, *req.Latitude, *req.Longitude)
	}

	if e.sinks != nil {
		if !e.sinks.Record(ctx, input, scamType, region) {
			log.Printf("[Triage] persistence record failed for session=%s", req.SessionID)
		}
	}

	finalReply := answer
	if ShouldFormat(intent, scamType, answer) {
		finalReply = FormatReply(scamType, answer)
	}

	if intent == IntentDescribeEvent {
		mem.Append(oracle.Turn{Role: oracle.RoleUser, Content: input}, e.cfg.HistoryLimit)
		mem.Append(oracle.Turn{Role: oracle.RoleAssistant, Content: finalReply}, e.cfg.HistoryLimit)
		mem.Last = &session.LastResult{
			ScamType:     scamType,
			EventSummary: input,
			Response:     finalReply,
		}
		if !e.store.Update(ctx, req.SessionID, mem) {
			log.Printf("[Triage] %v: session=%s", ErrStorageFailure, req.SessionID)
		}
	}

	log.Printf("[Triage] session=%s scam_type=%s intent=%s", req.SessionID, scamType, intent)
	return Result{Answer: finalReply, ScamType: scamType, Intent: string(intent)}, nil
}

// analyze asks the oracle for the free-text fraud analysis, feeding it
// retrieved similar cases when the store is ready.
func (e *Engine) analyze(ctx context.Context, input string, history []oracle.Turn) string {
	system := analysisSystemPrompt
	if e.retriever != nil && e.retriever.IsReady() {
		if caseCtx := e.retriever.Context(ctx, input, 3); caseCtx != "" {
			system += "\n\n以下是相似的真實案例，供分析參考：\n" + caseCtx
		}
	}

	turns := make([]oracle.Turn, 0, len(history)+2)
	turns = append(turns, oracle.Turn{Role: oracle.RoleSystem, Content: system})
	turns = append(turns, history...)
	turns = append(turns, oracle.Turn{Role: oracle.RoleUser, Content: "請分析：" + input})

	answer, err := e.oracle.Chat(ctx, turns)
	if err != nil || answer == "" {
		log.Printf("[Triage] analysis oracle call failed: %v", err)
		return oracleDownReply
	}
	return answer
}

// recallMemory answers a memory query from the last-result slot, routed by
// what the user asked about.
func (e *Engine) recallMemory(mem session.Memory, input string, intent Intent) Result {
	if mem.Last == nil {
		return Result{
			Answer:   DefaultReply(IntentRecallMemory),
			ScamType: keywords.Unclassifiable,
			Intent:   string(intent),
		}
	}

	last := mem.Last
	var reply string
	switch {
	case containsAny(input, "類型", "什麼詐騙", "哪種類型"):
		reply = "🧠 你上次的詐騙類型是「" + last.ScamType + "」。"
	case containsAny(input, "機率", "風險", "可能性"):
		reply = "📊 我記得你上次問到的案件，詐騙風險：高。"
	case containsAny(input, "內容", "回覆", "分析"):
		reply = "📋 上次的回覆內容是：\n" + truncateRunes(last.Response, 100) + "..."
	case containsAny(input, "摘要", "描述", "提到"):
		reply = "📌 你上次提到的內容是：" + truncateRunes(last.EventSummary, 100) + "..."
	default:
		reply = "🧠 你上次的詐騙類型是「" + last.ScamType + "」，內容是：" + truncateRunes(last.EventSummary, 50) + "..."
	}
	return Result{Answer: reply, ScamType: last.ScamType, Intent: string(intent)}
}

// Memory exposes the raw session record for the memory-read endpoint.
func (e *Engine) Memory(ctx context.Context, sessionID string) session.Memory {
	return e.store.Get(ctx, sessionID)
}

// ClearMemory removes a session's record and returns the user-facing
// status message. Clearing an unseen session succeeds.
func (e *Engine) ClearMemory(ctx context.Context, sessionID string) (string, bool) {
	unlock := e.locks.Lock(sessionID)
	defer unlock()
	if e.store.Clear(ctx, sessionID) {
		return memoryClearedReply, true
	}
	return memoryClearFailed, false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
