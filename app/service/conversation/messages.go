package conversation

import (
	"mastogpt/app/client/llm"
	"mastogpt/app/service/prompts"
	"strings"
	"time"
)

const (
	userTextPlaceholder = "{{USER_TEXT}}"
	contextPlaceholder  = "{{CONTEXT}}"
)

const (
	antiEchoInstruction = "ユーザーの発言をそのまま繰り返すだけの返答は禁止です。必ず質問や発言の内容に答え、そのうえで必要なら短くボケや" +
		"相槌を添えてください。質問文を引用するときは、その後に必ずあなたの考えを書くこと。"

	patchReleaseInstruction = "For patch releases (e.g., 1.91.1), summarize only 1–2 key fixes."

	shortRetryInstruction = "2 bullets max. ≤ 60 Japanese chars each. Plain text. No URLs. Unconfirmed future dates → “未確定”."

	echoRetryInstruction = "さっきの返答はユーザーの発言をそのまま繰り返してしまっていました。今度は必ず質問に答えてください。質問文を" +
		"そのまま返すのではなく、あなたの答えやリアクションを1〜3文で書いてください。"

	// structuredOutputApology replaces replies that came back as JSON or a
	// markdown link dump
	structuredOutputApology = "短く要点＋出典ドメインでまとめられなかったみたい。もう一度聞いて！"
)

var searchMandateInstruction = strings.Join([]string{
	"When asked about versions/release notes/highlights:",
	"• You MUST use web_search to fetch official sources.",
	"• Output: 2 bullets max, plain text only.",
	"• Each bullet ≤ 70 Japanese chars.",
	"• Include the exact version and a YYYY-MM-DD (JST) date.",
	"• Add one source domain in parentheses, e.g., (blog.rust-lang.org).",
	"• Do NOT speculate about future releases.",
	"• If a future date isn't confirmed by official sources, say “未確定”.",
	"• NO URLs and NO markdown. Do not output '[' ']' '(' within URLs.",
	"• Keep total length ≤ 180 Japanese chars.",
	"• Perform at most one search call.",
}, " ")

// filledTemplate is a reply template with placeholders substituted.
type filledTemplate struct {
	messages    []llm.Message
	hadUserText bool
	hadContext  bool
	userText    string
	transcript  string
}

func system(content string) llm.Message {
	return llm.Message{Role: llm.RoleSystem, Content: content}
}

func fillTemplate(set *prompts.Set, userText, transcript string) filledTemplate {
	template := set.ReplyWithoutContext
	if transcript != "" {
		template = set.ReplyWithContext
	}

	result := filledTemplate{
		messages:   make([]llm.Message, 0, len(template)+8),
		userText:   userText,
		transcript: transcript,
	}

	replacer := strings.NewReplacer(userTextPlaceholder, userText, contextPlaceholder, transcript)
	for _, msg := range template {
		if strings.Contains(msg.Content, userTextPlaceholder) {
			result.hadUserText = true
		}
		if strings.Contains(msg.Content, contextPlaceholder) {
			result.hadContext = true
		}

		result.messages = append(result.messages, llm.Message{
			Role:    msg.Role,
			Content: replacer.Replace(msg.Content),
		})
	}

	return result
}

// trailing adds the transcript and the user text as separate messages when
// the template had no place for them.
func (f filledTemplate) trailing(messages []llm.Message) []llm.Message {
	if f.transcript != "" && !f.hadContext {
		messages = append(messages, system("[context]\n"+f.transcript))
	}
	if !f.hadUserText {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: f.userText})
	}

	return messages
}

func buildInitialMessages(set *prompts.Set, req ReplyRequest, forceSearch bool, now time.Time) []llm.Message {
	filled := fillTemplate(set, req.UserText, req.Transcript)

	messages := append(filled.messages,
		system(currentTimeNote(now)),
		system(antiEchoInstruction),
	)

	if forceSearch {
		messages = append(messages,
			system(searchMandateInstruction),
			system(patchReleaseInstruction),
		)
	}

	return filled.trailing(messages)
}

func buildShortRetryMessages(set *prompts.Set, req ReplyRequest, now time.Time) []llm.Message {
	filled := fillTemplate(set, req.UserText, req.Transcript)

	messages := append(filled.messages,
		system(shortRetryInstruction),
		system(currentTimeNote(now)),
	)

	return filled.trailing(messages)
}

func buildEchoRetryMessages(set *prompts.Set, req ReplyRequest) []llm.Message {
	filled := fillTemplate(set, req.UserText, req.Transcript)

	return append(filled.messages, system(echoRetryInstruction))
}

// buildFreePostMessages picks the template of the JST time slot, asks for a
// post matching the season and time of day and notes the current time.
func buildFreePostMessages(set *prompts.Set, now time.Time) ([]llm.Message, slot) {
	local := now.In(jst)
	current := slotForHour(local.Hour())

	var template []llm.Message
	switch current.name {
	case "morning":
		template = set.FreePostMorning
	case "day", "evening":
		template = set.FreePostDay
	default:
		template = set.FreePostNight
	}

	messages := prompts.Clone(template)
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			messages[i].Content = seasonLabel(local.Month()) + "の" + current.timeLabel + "のような投稿を生成してください。"
			break
		}
	}

	return append(messages, system(currentTimeNote(now))), current
}

// sanitize trims the reply and replaces structured output.
func sanitize(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return structuredOutputApology
	}

	return text
}
