package triage

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/fraud165/triage/pkg/keywords"
	"github.com/fraud165/triage/pkg/oracle"
)

const relatednessSystemPrompt = "你是一個判斷使用者輸入是否與詐騙主題相關的助手。" +
	"請用繁體中文回答，只回覆「是」或「否」，勿加其他內容。"

// 8+ consecutive digits reads like an account or card number.
var digitRunPattern = regexp.MustCompile(`[0-9]{8,}`)

// RelatednessGate decides whether an input is fraud-related before any
// deeper analysis runs. It is conservative end to end: every failure path
// resolves to related, never to unrelated.
type RelatednessGate struct {
	oracle oracle.Client
	tables *keywords.Tables
}

// NewRelatednessGate builds a gate over the given oracle and tables.
func NewRelatednessGate(client oracle.Client, tables *keywords.Tables) *RelatednessGate {
	return &RelatednessGate{oracle: client, tables: tables}
}

// heuristicMatch reports whether the input hits a high-signal keyword or a
// long digit run. A hit bypasses the oracle entirely.
func (g *RelatednessGate) heuristicMatch(input string) bool {
	t := strings.TrimSpace(input)
	if t == "" {
		return false
	}
	for _, kw := range g.tables.HighSignal {
		if strings.Contains(t, kw) {
			log.Printf("[Relatedness] heuristic keyword hit: %s", kw)
			return true
		}
	}
	if digitRunPattern.MatchString(foldWidth(t)) {
		log.Printf("[Relatedness] digit-run hit (possible account/card number)")
		return true
	}
	return false
}

// parseYesNo parses the oracle's reply into a strict boolean. The reply
// must be a bare yes/no token after trimming whitespace, internal spaces,
// newlines and terminal punctuation; anything else is unparseable.
func parseYesNo(raw string) (verdict, ok bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.TrimRight(s, "。．.！!？?")
	if s == "" {
		return false, false
	}
	switch strings.ToLower(s) {
	case "是", "yes", "y":
		return true, true
	case "否", "不是", "no", "n":
		return false, true
	}
	return false, false
}

// IsRelated reports whether the input is in-domain. It never fails the
// caller: oracle transport failures and unparseable replies both resolve
// to true so a real report is never dismissed by an outage.
func (g *RelatednessGate) IsRelated(ctx context.Context, input string, history []oracle.Turn) bool {
	if g.heuristicMatch(input) {
		return true
	}

	turns := make([]oracle.Turn, 0, len(history)+2)
	turns = append(turns, oracle.Turn{Role: oracle.RoleSystem, Content: relatednessSystemPrompt})
	turns = append(turns, history...)
	turns = append(turns, oracle.Turn{Role: oracle.RoleUser, Content: input})

	raw, err := g.oracle.Chat(ctx, turns)
	if err != nil {
		log.Printf("[Relatedness] %v: %v, defaulting to related", ErrOracleUnavailable, err)
		return true
	}
	verdict, ok := parseYesNo(raw)
	if !ok {
		log.Printf("[Relatedness] %v: %q, defaulting to related", ErrOracleUnparseable, raw)
		return true
	}
	return verdict
}

// OverrideHit reports whether the input contains one of the narrower
// override keywords consulted after a negative oracle verdict.
func (g *RelatednessGate) OverrideHit(input string) bool {
	for _, kw := range g.tables.RelatedOverride {
		if strings.Contains(input, kw) {
			return true
		}
	}
	return false
}
