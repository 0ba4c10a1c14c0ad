// Package report turns a finished session into its evaluation report. The
// synthesizer makes one model call, validates the returned document against
// the mode's rubric, and falls back to a degraded but structurally complete
// report on any failure. Generate never returns an error: by the time a
// report is being built the session is already over, and the client must
// receive something renderable.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"ai-speechcoach-be/internal/entity"
	"ai-speechcoach-be/internal/pkg/logger"
	"ai-speechcoach-be/internal/scenario"
)

const maxSaneRecoveryMs = 60_000

// Generator is the single-turn model call the synthesizer depends on.
type Generator interface {
	GenerateContent(ctx context.Context, model, prompt string) (string, error)
}

// Request carries everything the synthesizer needs from a finished session.
type Request struct {
	SessionID       string
	Mode            string
	VoiceName       string
	Transcript      []entity.TranscriptEntry
	Metrics         []entity.MetricSnapshot
	DurationSeconds int
}

type Synthesizer struct {
	gen      Generator
	model    string
	timeout  time.Duration
	log      logger.ILogger
	validate *validator.Validate
}

func NewSynthesizer(gen Generator, model string, timeout time.Duration, log logger.ILogger) *Synthesizer {
	return &Synthesizer{
		gen:      gen,
		model:    model,
		timeout:  timeout,
		log:      log,
		validate: validator.New(),
	}
}

// modelReport is the document shape the model is asked to return. The metric
// rollup is computed locally and never trusted from the model, except the
// interruption recovery estimate which only the model can judge.
type modelReport struct {
	OverallScore              int                              `json:"overall_score" validate:"min=1,max=10"`
	Categories                map[string]entity.ReportCategory `json:"categories" validate:"dive"`
	KeyMoments                []entity.KeyMoment               `json:"key_moments" validate:"dive"`
	ImprovementTips           []string                         `json:"improvement_tips" validate:"min=1,dive,required"`
	InterruptionRecoveryAvgMs int                              `json:"interruption_recovery_avg_ms"`
	SocialShareTexts          entity.SocialShareTexts          `json:"social_share_texts"`
	Extra                     map[string]any                   `json:"extra"`
}

// Generate builds the report for a finished session. It never fails: any
// model or validation problem yields a degraded report instead.
func (s *Synthesizer) Generate(ctx context.Context, req Request) *entity.SessionReport {
	cfg, ok := scenario.Get(req.Mode)
	if !ok {
		// Callers validate the mode at session start; reaching this means a
		// programming error, but the contract still holds.
		s.log.Error("ReportSynthesizer", "Unknown mode at report time", map[string]interface{}{
			"session_id": req.SessionID,
			"mode":       req.Mode,
		})
		return s.degraded(req, scenario.ReportConfig{})
	}

	rolled := rollupMetrics(req.Metrics)

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.gen.GenerateContent(genCtx, s.model, buildPrompt(req, cfg.Report, rolled))
	if err != nil {
		s.log.Error("ReportSynthesizer", "Report generation call failed", map[string]interface{}{
			"session_id": req.SessionID,
			"error":      err.Error(),
		})
		return s.degraded(req, cfg.Report)
	}

	var parsed modelReport
	if err := json.Unmarshal([]byte(sanitizeJSON(raw)), &parsed); err != nil {
		s.log.Error("ReportSynthesizer", "Report response unparseable", map[string]interface{}{
			"session_id": req.SessionID,
			"error":      err.Error(),
		})
		return s.degraded(req, cfg.Report)
	}

	if err := s.validateReport(&parsed, cfg.Report); err != nil {
		s.log.Error("ReportSynthesizer", "Report failed validation", map[string]interface{}{
			"session_id": req.SessionID,
			"error":      err.Error(),
		})
		return s.degraded(req, cfg.Report)
	}

	if parsed.InterruptionRecoveryAvgMs >= 0 && parsed.InterruptionRecoveryAvgMs <= maxSaneRecoveryMs {
		rolled.InterruptionRecoveryAvgMs = parsed.InterruptionRecoveryAvgMs
	}

	return &entity.SessionReport{
		SessionId:        req.SessionID,
		Mode:             req.Mode,
		DurationSeconds:  req.DurationSeconds,
		OverallScore:     parsed.OverallScore,
		Categories:       parsed.Categories,
		Metrics:          rolled,
		KeyMoments:       parsed.KeyMoments,
		ImprovementTips:  parsed.ImprovementTips,
		SocialShareTexts: parsed.SocialShareTexts,
		Extra:            parsed.Extra,
		DisplayMetrics:   cfg.Report.DisplayMetrics,
		VoiceName:        req.VoiceName,
	}
}

func (s *Synthesizer) validateReport(r *modelReport, cfg scenario.ReportConfig) error {
	if err := s.validate.Struct(r); err != nil {
		return err
	}

	if len(r.Categories) != len(cfg.Categories) {
		return fmt.Errorf("expected %d categories, got %d", len(cfg.Categories), len(r.Categories))
	}
	for key := range cfg.Categories {
		if _, ok := r.Categories[key]; !ok {
			return fmt.Errorf("missing category %q", key)
		}
	}

	for key, field := range cfg.ExtraFields {
		v, ok := r.Extra[key]
		if !ok {
			return fmt.Errorf("missing extra field %q", key)
		}
		if err := checkExtraKind(v, field.Kind); err != nil {
			return fmt.Errorf("extra field %q: %w", key, err)
		}
	}
	return nil
}

func checkExtraKind(v any, kind scenario.ExtraFieldKind) error {
	switch kind {
	case scenario.KindString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
	case scenario.KindNumber:
		if _, ok := v.(float64); !ok {
			return fmt.Errorf("expected number, got %T", v)
		}
	case scenario.KindStringList:
		items, ok := v.([]any)
		if !ok {
			return fmt.Errorf("expected array, got %T", v)
		}
		for _, item := range items {
			if _, ok := item.(string); !ok {
				return fmt.Errorf("expected array of strings, got element %T", item)
			}
		}
	case scenario.KindObjectList:
		items, ok := v.([]any)
		if !ok {
			return fmt.Errorf("expected array, got %T", v)
		}
		for _, item := range items {
			if _, ok := item.(map[string]any); !ok {
				return fmt.Errorf("expected array of objects, got element %T", item)
			}
		}
	}
	return nil
}

// degraded produces the fallback report: mid scores for every configured
// category, no fabricated metrics, and an explanation the client can show.
func (s *Synthesizer) degraded(req Request, cfg scenario.ReportConfig) *entity.SessionReport {
	categories := make(map[string]entity.ReportCategory, len(cfg.Categories))
	for key := range cfg.Categories {
		categories[key] = entity.ReportCategory{
			Score:    5,
			Feedback: "The detailed analysis for this category could not be generated for this session.",
		}
	}

	return &entity.SessionReport{
		SessionId:       req.SessionID,
		Mode:            req.Mode,
		DurationSeconds: req.DurationSeconds,
		OverallScore:    5,
		Categories:      categories,
		Metrics:         entity.ReportMetrics{},
		KeyMoments:      []entity.KeyMoment{},
		ImprovementTips: []string{"Report generation was interrupted. Your transcript was saved; try another session."},
		SocialShareTexts: entity.SocialShareTexts{
			PerformanceCardSummary: "I completed a live speech training session.",
			LinkedinTemplate:       "I just completed a live AI speech training session.",
			TwitterTemplate:        "Just finished a live AI speech training session.",
			FacebookTemplate:       "I just finished a live AI speech training session.",
		},
		Extra:          map[string]any{},
		DisplayMetrics: cfg.DisplayMetrics,
		VoiceName:      req.VoiceName,
	}
}

// rollupMetrics aggregates the snapshot history. Snapshots are cumulative, so
// filler totals come from the last snapshot while rate-like values average
// across the run. Dominant tone is the most frequent label, first seen wins
// ties.
func rollupMetrics(history []entity.MetricSnapshot) entity.ReportMetrics {
	if len(history) == 0 {
		return entity.ReportMetrics{DominantTone: "neutral"}
	}

	last := history[len(history)-1]
	total := 0
	for _, n := range last.FillerWords {
		total += n
	}

	var sumWPM, sumRatio, sumClarity float64
	toneCount := map[string]int{}
	toneOrder := []string{}
	for _, snap := range history {
		sumWPM += float64(snap.WordsPerMinute)
		sumRatio += snap.TalkRatio
		sumClarity += snap.ClarityScore
		if _, seen := toneCount[snap.Tone]; !seen {
			toneOrder = append(toneOrder, snap.Tone)
		}
		toneCount[snap.Tone]++
	}

	dominant := toneOrder[0]
	for _, tone := range toneOrder {
		if toneCount[tone] > toneCount[dominant] {
			dominant = tone
		}
	}

	n := float64(len(history))
	return entity.ReportMetrics{
		TotalFillerWords:  total,
		AvgWordsPerMinute: int(math.Round(sumWPM / n)),
		DominantTone:      dominant,
		AvgTalkRatio:      math.Round(sumRatio/n*10) / 10,
		AvgClarityScore:   math.Round(sumClarity/n*10) / 10,
	}
}

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

// sanitizeJSON strips markdown fences and trailing commas, the two ways the
// model most often breaks strict JSON.
func sanitizeJSON(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	return trailingComma.ReplaceAllString(cleaned, "$1")
}
