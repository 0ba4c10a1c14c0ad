// Package tone runs the rate-limited background tone classification. It is
// fire-and-forget from the orchestrator's point of view: TryAnalyze never
// blocks the audio path, and the held tone/hint is last-write-wins.
package tone

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"ai-speechcoach-be/internal/pkg/logger"
)

const classifyPrompt = `You are a speech tone analyzer. Analyze text from a user in a speech training session.
Return a JSON object with two fields:
- "tone": exactly one word describing the emotional tone (e.g., Confident, Nervous, Defensive, Excited, Thoughtful, Frustrated)
- "hint": a very short, one-sentence actionable training hint. Empty string if no hint needed.
Return ONLY the JSON object.

Analyze this text:

%q`

// Generator is the single-turn model call the analyzer depends on.
type Generator interface {
	GenerateContent(ctx context.Context, model, prompt string) (string, error)
}

type Config struct {
	Model         string
	CheckInterval time.Duration
	MinWords      int
	// TextLimit caps how many trailing characters of the cumulative text are
	// sent, bounding prompt size.
	TextLimit int
}

type Analyzer struct {
	gen       Generator
	cfg       Config
	log       logger.ILogger
	sessionId string

	mu        sync.Mutex
	lastCheck time.Time
	tone      string
	hint      string
}

var nonAlpha = regexp.MustCompile(`[^a-zA-Z]`)

func NewAnalyzer(gen Generator, cfg Config, log logger.ILogger, sessionId string) *Analyzer {
	return &Analyzer{
		gen:       gen,
		cfg:       cfg,
		log:       log,
		sessionId: sessionId,
		lastCheck: time.Now(),
		tone:      "Neutral",
	}
}

// Tone returns the last known tone label.
func (a *Analyzer) Tone() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tone
}

// Hint returns the last known coaching hint ("" until the first success).
func (a *Analyzer) Hint() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hint
}

// TryAnalyze kicks off one background classification if the check interval
// has elapsed and the cumulative text has grown past the minimum word count.
// It returns immediately either way; a failed classification is logged and
// leaves the prior tone/hint in place.
func (a *Analyzer) TryAnalyze(allUserText string) {
	wordCount := len(strings.Fields(allUserText))

	a.mu.Lock()
	if time.Since(a.lastCheck) <= a.cfg.CheckInterval || wordCount <= a.cfg.MinWords {
		a.mu.Unlock()
		return
	}
	a.lastCheck = time.Now()
	a.mu.Unlock()

	go a.analyze(tail(allUserText, a.cfg.TextLimit))
}

func (a *Analyzer) analyze(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	raw, err := a.gen.GenerateContent(ctx, a.cfg.Model, fmt.Sprintf(classifyPrompt, text))
	if err != nil {
		a.log.Warn("ToneAnalyzer", "Classification call failed", map[string]interface{}{
			"session_id": a.sessionId,
			"error":      err.Error(),
		})
		return
	}

	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var result struct {
		Tone string `json:"tone"`
		Hint string `json:"hint"`
	}
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		a.log.Warn("ToneAnalyzer", "Classification response unparseable", map[string]interface{}{
			"session_id": a.sessionId,
			"error":      err.Error(),
		})
		return
	}

	newTone := nonAlpha.ReplaceAllString(strings.TrimSpace(result.Tone), "")
	if newTone == "" {
		return
	}

	a.mu.Lock()
	a.tone = newTone
	a.hint = result.Hint
	a.mu.Unlock()
}

func tail(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[len(s)-limit:]
}
