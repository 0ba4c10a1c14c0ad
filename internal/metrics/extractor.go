// Package metrics computes real-time speech metrics from accumulated user
// text. Extract is pure and deterministic: every snapshot is a cumulative
// re-evaluation of all user speech so far, never a sliding window.
package metrics

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"ai-speechcoach-be/internal/entity"
)

// FillerWords is the fixed lexicon matched whole-word, case-insensitive.
var FillerWords = []string{"um", "uh", "like", "you know", "basically", "actually", "so", "right", "well", "i mean"}

// minMinutes floors the elapsed time so WPM doesn't blow up right after
// session start.
const minMinutes = 0.1

var fillerPatterns = buildFillerPatterns()

func buildFillerPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(FillerWords))
	for _, filler := range FillerWords {
		patterns[filler] = regexp.MustCompile(`\b` + regexp.QuoteMeta(filler) + `\b`)
	}
	return patterns
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

// Extract maps the cumulative user text, the cumulative AI text and the
// elapsed session time to one MetricSnapshot. It holds no state and makes no
// external calls; the caller stamps the snapshot's wall-clock Timestamp.
func Extract(userText, aiText string, elapsedSeconds int) entity.MetricSnapshot {
	lower := strings.ToLower(userText)

	fillerCounts := make(map[string]int)
	for _, filler := range FillerWords {
		if n := len(fillerPatterns[filler].FindAllStringIndex(lower, -1)); n > 0 {
			fillerCounts[filler] = n
		}
	}

	userWords := countWords(userText)
	minutes := math.Max(float64(elapsedSeconds)/60.0, minMinutes)
	wpm := int(math.Round(float64(userWords) / minutes))

	return entity.MetricSnapshot{
		FillerWords:     fillerCounts,
		WordsPerMinute:  wpm,
		Tone:            heuristicTone(lower, userWords),
		KeyPhrases:      []string{},
		ImprovementHint: improvementHint(fillerCounts),
		TalkRatio:       talkRatio(userWords, countWords(aiText)),
		ClarityScore:    clarityScore(lower),
	}
}

// heuristicTone is a coarse textual-signal classification; the background
// tone analyzer refines it when it has run.
func heuristicTone(lower string, wordCount int) string {
	switch {
	case strings.Contains(lower, "!") || strings.Contains(lower, "confident") || strings.Contains(lower, "sure"):
		return "confident"
	case strings.Contains(lower, "?") && wordCount < 10:
		return "uncertain"
	case strings.Contains(lower, "sorry") || strings.Contains(lower, "maybe"):
		return "nervous"
	default:
		return "neutral"
	}
}

// improvementHint names the most frequent filler, ties broken
// lexicographically so the result is deterministic.
func improvementHint(fillerCounts map[string]int) string {
	if len(fillerCounts) == 0 {
		return ""
	}
	fillers := make([]string, 0, len(fillerCounts))
	for f := range fillerCounts {
		fillers = append(fillers, f)
	}
	sort.Slice(fillers, func(i, j int) bool {
		if fillerCounts[fillers[i]] != fillerCounts[fillers[j]] {
			return fillerCounts[fillers[i]] > fillerCounts[fillers[j]]
		}
		return fillers[i] < fillers[j]
	})
	return fmt.Sprintf("Try reducing filler words like %q", fillers[0])
}

// talkRatio is the percentage of spoken words that were the user's.
func talkRatio(userWords, aiWords int) float64 {
	total := userWords + aiWords
	if total == 0 {
		return 0
	}
	return roundTo1(float64(userWords) / float64(total) * 100)
}

// clarityScore is a lexical-diversity proxy: distinct words over total
// words, scaled to 0-10.
func clarityScore(lower string) float64 {
	words := strings.Fields(lower)
	if len(words) == 0 {
		return 0
	}
	distinct := make(map[string]struct{}, len(words))
	for _, w := range words {
		distinct[strings.Trim(w, ".,!?;:\"'")] = struct{}{}
	}
	score := float64(len(distinct)) / float64(len(words)) * 10
	if score > 10 {
		score = 10
	}
	return roundTo1(score)
}

func roundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}
