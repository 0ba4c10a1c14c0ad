package report

import (
	"fmt"
	"sort"
	"strings"

	"ai-speechcoach-be/internal/entity"
	"ai-speechcoach-be/internal/scenario"
)

// buildScript renders the transcript as a role-prefixed dialogue with mm:ss
// offsets, the form the evaluation prompt references moments by.
func buildScript(transcript []entity.TranscriptEntry) string {
	if len(transcript) == 0 {
		return "(no dialogue was captured)"
	}
	var b strings.Builder
	for _, e := range transcript {
		speaker := "USER"
		if e.Role == entity.RoleAI {
			speaker = "AI"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", formatOffset(e.Timestamp), speaker, e.Text)
	}
	return b.String()
}

func formatOffset(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// buildPrompt assembles the single-shot evaluation prompt: the mode's rubric
// intro, the dialogue script, the measured metrics, and a strict description
// of the JSON document the model must return.
func buildPrompt(req Request, cfg scenario.ReportConfig, rolled entity.ReportMetrics) string {
	var b strings.Builder

	b.WriteString(cfg.PromptIntro)
	b.WriteString("\n\nBelow is the full transcript of the session, followed by objective metrics measured during it.\n\n")

	b.WriteString("=== TRANSCRIPT ===\n")
	b.WriteString(buildScript(req.Transcript))
	b.WriteString("\n=== MEASURED METRICS ===\n")
	fmt.Fprintf(&b, "Session duration: %s\n", formatOffset(req.DurationSeconds))
	fmt.Fprintf(&b, "Total filler words: %d\n", rolled.TotalFillerWords)
	fmt.Fprintf(&b, "Average words per minute: %d\n", rolled.AvgWordsPerMinute)
	fmt.Fprintf(&b, "Average talk ratio (user share of words, percent): %.1f\n", rolled.AvgTalkRatio)
	fmt.Fprintf(&b, "Average clarity score (0-10): %.1f\n", rolled.AvgClarityScore)
	fmt.Fprintf(&b, "Dominant tone: %s\n", rolled.DominantTone)

	b.WriteString("\n=== TASK ===\n")
	b.WriteString("Evaluate the USER (not the AI). Return ONLY a JSON object, no markdown fences, no commentary, with exactly these fields:\n\n")
	b.WriteString(`- "overall_score": integer 1-10, the user's overall performance.` + "\n")
	b.WriteString(`- "categories": an object with exactly these keys, each mapping to { "score": integer 1-10, "feedback": string (2-3 specific sentences referencing the transcript) }:` + "\n")
	for _, key := range sortedKeys(cfg.Categories) {
		cat := cfg.Categories[key]
		fmt.Fprintf(&b, "    - %q (%s): %s\n", key, cat.Label, cat.Description)
	}
	b.WriteString(`- "key_moments": array of { "timestamp": string "mm:ss", "type": "strength" or "weakness", "note": string }. Pick 2-4 real moments from the transcript.` + "\n")
	b.WriteString(`- "improvement_tips": array of 3 short, specific, actionable strings.` + "\n")
	b.WriteString(`- "interruption_recovery_avg_ms": integer, your estimate of how many milliseconds on average the user needed to resume coherent speech after being interrupted (0 if never interrupted).` + "\n")
	b.WriteString(`- "social_share_texts": { "performance_card_summary": string (max 120 chars, punchy), "linkedin_template": string (professional, first person), "twitter_template": string (max 250 chars, casual), "facebook_template": string (friendly, first person) }. Written as if by the user sharing their training result.` + "\n")

	if len(cfg.ExtraFields) > 0 {
		b.WriteString(`- "extra": an object with exactly these keys:` + "\n")
		for _, key := range sortedKeys(cfg.ExtraFields) {
			fmt.Fprintf(&b, "    - %q: %s\n", key, cfg.ExtraFields[key].Description)
		}
	}

	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
