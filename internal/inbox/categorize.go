package inbox

import (
	"context"
	"fmt"
	"strings"
)

// Reply categories. Only the first two are worth a human follow-up, so only
// those get a drafted reply.
const (
	CategoryMeetingReady  = "Meeting_Ready_Lead"
	CategoryPower         = "Power"
	CategoryQuestion      = "Question"
	CategoryUnsubscribe   = "Unsubscribe"
	CategoryOOO           = "OOO"
	CategoryNoLongerWorks = "No_Longer_Works"
	CategoryNotInterested = "Not_Interested"
	CategoryInfo          = "Info"
)

var categories = []string{
	CategoryMeetingReady,
	CategoryPower,
	CategoryQuestion,
	CategoryUnsubscribe,
	CategoryOOO,
	CategoryNoLongerWorks,
	CategoryNotInterested,
	CategoryInfo,
}

// ValidCategory reports whether s is a known reply category.
func ValidCategory(s string) bool {
	for _, c := range categories {
		if c == s {
			return true
		}
	}
	return false
}

// WantsDraft reports whether a category warrants drafting a reply.
func WantsDraft(category string) bool {
	return category == CategoryMeetingReady || category == CategoryPower
}

const categorizeSystem = `You are an assistant that labels replies to cold outreach emails.
Respond with exactly one label from the list, nothing else.`

const draftSystem = `You are an assistant drafting short, professional replies to interested
prospects. Keep it under 100 words, plain text, no signature.`

// Categorize labels an inbound reply with one of the known categories. An
// answer outside the label set falls back to Info rather than failing the
// pipeline.
func Categorize(ctx context.Context, llm Completer, replyBody string) (string, error) {
	prompt := fmt.Sprintf(`Labels:
- Meeting_Ready_Lead: wants to book a call or meeting
- Power: strongly interested, asking for next steps
- Question: asking a clarifying question about the offer
- Unsubscribe: asks to stop receiving emails
- OOO: out-of-office auto reply
- No_Longer_Works: the person left the company
- Not_Interested: declines the offer
- Info: anything else

Reply to classify:
---
%s
---

Label:`, replyBody)

	answer, err := llm.Complete(ctx, categorizeSystem, prompt)
	if err != nil {
		return "", err
	}
	label := normalizeLabel(answer)
	if !ValidCategory(label) {
		return CategoryInfo, nil
	}
	return label, nil
}

// DraftReply produces a suggested response to an interested prospect, given
// the thread so far.
func DraftReply(ctx context.Context, llm Completer, thread string, replyBody string) (string, error) {
	prompt := fmt.Sprintf(`Conversation so far:
---
%s
---

The prospect just wrote:
---
%s
---

Draft a reply that moves toward scheduling a call.`, thread, replyBody)

	draft, err := llm.Complete(ctx, draftSystem, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(draft), nil
}

func normalizeLabel(answer string) string {
	label := strings.TrimSpace(answer)
	label = strings.Trim(label, "\"'`.")
	// Models sometimes answer in prose; salvage a known label if one appears.
	if ValidCategory(label) {
		return label
	}
	for _, c := range categories {
		if strings.Contains(label, c) {
			return c
		}
	}
	return label
}
