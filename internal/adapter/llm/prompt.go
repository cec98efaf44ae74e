package llm

import (
	"fmt"

	"github.com/couchcryptid/outage-feed-etl/internal/domain"
)

const judgeSystemPrompt = `You review short news items for a Nigerian public-information feed.
Decide whether the item is relevant to the %s category: %s
Reply with a single JSON object and nothing else:
{"isRelevant": bool, "confidence": number between 0 and 1, "reason": string,
 "extractedInfo": {"affectedAreas": [string], "outageType": "planned" | "unplanned" | "restored" | ""}}
Only list areas that are named in the item. Use an empty outageType when unsure.`

const windowSystemPrompt = `You extract scheduled interruption windows from utility notices.
All local times are West Africa Time (UTC+01:00). Today is %s.
Reply with a single JSON object and nothing else:
{"start": "YYYY-MM-DDTHH:MM" or null, "end": "YYYY-MM-DDTHH:MM" or null}
Return null for start when the text names no concrete future date.`

var verticalScope = map[domain.Vertical]string{
	domain.VerticalPower: "electricity supply interruptions, grid disturbances, scheduled maintenance and restorations by utilities.",
	domain.VerticalExams: "national examination bodies: registration, timetables, results, and exam-day notices.",
}

func judgePrompt(v domain.Vertical) string {
	return fmt.Sprintf(judgeSystemPrompt, v, verticalScope[v])
}

func windowPrompt(today string) string {
	return fmt.Sprintf(windowSystemPrompt, today)
}

func itemPrompt(title, summary string) string {
	if summary == "" {
		return "Title: " + title
	}
	return "Title: " + title + "\nSummary: " + summary
}
