package scenario

import (
	"math/rand"

	"ai-speechcoach-be/internal/constant"
)

// Mode identifiers. A mode selects the persona prompt, the report rubric and
// the extra-field schema for one scenario kind.
const (
	ModePitchPerfect   = "pitch_perfect"
	ModeEmpathyTrainer = "empathy_trainer"
	ModeVeritalk       = "veritalk"
	ModeImpromptu      = "impromptu"
	ModeFeedback       = "feedback"
)

// ExtraFieldKind types the mode-specific "extra" report fields so the
// synthesizer can validate what the model returned.
type ExtraFieldKind int

const (
	KindString ExtraFieldKind = iota
	KindStringList
	KindNumber
	KindObjectList
)

type ExtraField struct {
	Kind ExtraFieldKind
	// Description is injected into the report prompt to tell the model what
	// to produce for this field.
	Description string
}

type Category struct {
	Label       string
	Description string
}

// ReportConfig is the per-mode evaluation rubric.
type ReportConfig struct {
	PromptIntro    string
	Categories     map[string]Category
	DisplayMetrics []string
	ExtraFields    map[string]ExtraField
}

type Config struct {
	PersonaPrompt string
	Report        ReportConfig
}

// Voices is the pool of upstream speech personas. One is picked per session
// and recorded on the session as its display label.
var Voices = []string{"Puck", "Charon", "Kore", "Fenrir", "Aoede"}

func PickVoice() string {
	return Voices[rand.Intn(len(Voices))]
}

// Modes is a flat registry keyed by mode name. Adding a scenario means
// adding an entry here plus a persona prompt constant; nothing else changes.
var Modes = map[string]Config{
	ModePitchPerfect: {
		PersonaPrompt: constant.PitchPerfectPersonaPrompt,
		Report: ReportConfig{
			PromptIntro: "You are a Tier-1 Venture Capitalist evaluating a startup pitch. You are skeptical, data-driven, and time-constrained. Your job is to decide if this is investable. Be blunt.",
			Categories: map[string]Category{
				"investment_potential": {
					Label:       "Pass/Invest Verdict",
					Description: `Would you take a second meeting? Rate 1-10 (1=Hard Pass, 10=Term Sheet). Explain why based on the "Weakest Link" and "Strongest Asset".`,
				},
				"problem_clarity": {
					Label:       "Problem Clarity",
					Description: "Did the user make a clear, urgent, and credible case for the problem? Did they avoid buzzwords?",
				},
				"market_articulation": {
					Label:       "Market Reality",
					Description: "Did they know their numbers (CAC, LTV, TAM)? Did they admit competition exists?",
				},
				"handling_pressure": {
					Label:       "Q&A Performance",
					Description: "Did the founder answer directly or dodge? Did they handle interruptions well?",
				},
			},
			DisplayMetrics: []string{"total_filler_words", "avg_words_per_minute", "avg_talk_ratio", "interruption_recovery_avg_ms", "dominant_tone"},
			ExtraFields: map[string]ExtraField{
				"weakest_link":    {Kind: KindString, Description: "The single part of the pitch that would kill the deal (string)."},
				"strongest_asset": {Kind: KindString, Description: "The best part of the pitch: Founder, Tech, or Market (string)."},
				"specific_fixes":  {Kind: KindStringList, Description: "Array of 3 strings: specific actionable changes for the deck or script."},
			},
		},
	},

	ModeEmpathyTrainer: {
		PersonaPrompt: constant.EmpathyTrainerPersonaPrompt,
		Report: ReportConfig{
			PromptIntro: "You are a conflict resolution expert evaluating the user's performance in a high-tension scenario. Focus on emotional intelligence, effective validation, and de-escalation skills. Be strict about dismissive language.",
			Categories: map[string]Category{
				"empathy_connection": {
					Label:       "Empathy Score",
					Description: "Did the user genuinely connect (validating feelings) or just use scripted corporate speak? Rate 1-10.",
				},
				"de_escalation_skill": {
					Label:       "De-escalation",
					Description: `Did the user lower the tension? Did they avoid the "Fix-It" trap (solving before listening)?`,
				},
				"active_listening": {
					Label:       "Active Listening",
					Description: `Did the user listen without interrupting? Did they avoid the "But" trap ("I hear you, but...")?`,
				},
				"language_quality": {
					Label:       "Language Precision",
					Description: "Did the user avoid trigger words (calm down, policy, procedure) and use warm, human language?",
				},
			},
			DisplayMetrics: []string{"avg_talk_ratio", "dominant_tone", "total_filler_words", "avg_words_per_minute"},
			ExtraFields: map[string]ExtraField{
				"trigger_moments":     {Kind: KindObjectList, Description: `An array of objects: { "timestamp": string, "reason": string }. Moments where the user triggered an escalation.`},
				"golden_phrases":      {Kind: KindStringList, Description: "An array of strings: The single best things the user said that helped the situation."},
				"better_alternatives": {Kind: KindStringList, Description: "An array of strings: Specific phrasing improvements for their weak moments."},
			},
		},
	},

	ModeVeritalk: {
		PersonaPrompt: constant.VeritalkPersonaPrompt,
		Report: ReportConfig{
			PromptIntro: "You are a debate coach and logician evaluating the user's argumentative performance. Focus on the quality of reasoning, evidence, and resilience under intellectual pressure. Reference specific exchanges from the transcript.",
			Categories: map[string]Category{
				"argument_coherence": {
					Label:       "Argument Coherence",
					Description: "Was the user's main thesis clear? Did they defend it consistently throughout the session without contradicting themselves?",
				},
				"evidence_quality": {
					Label:       "Evidence Quality",
					Description: "Did the user support their claims with specific facts, statistics, examples, or credible sources? Or did they rely on vague assertions?",
				},
				"logical_soundness": {
					Label:       "Logical Soundness",
					Description: "Did the user reason without logical fallacies? Look for: straw man, ad hominem, false equivalence, appeal to authority, circular reasoning.",
				},
				"interruption_recovery": {
					Label:       "Interruption Recovery",
					Description: "When challenged or interrupted, how quickly and effectively did the user regain composure and return to their argument?",
				},
			},
			DisplayMetrics: []string{"interruption_recovery_avg_ms", "avg_words_per_minute", "dominant_tone", "avg_clarity_score"},
			ExtraFields: map[string]ExtraField{
				"fallacies_detected":       {Kind: KindObjectList, Description: `An array of objects: { "name": string (fallacy name), "timestamp": string (mm:ss), "quote": string (the user's words) }. Empty array if none found.`},
				"missed_counter_arguments": {Kind: KindStringList, Description: "An array of strings: arguments or angles the user should have anticipated or addressed but did not."},
				"strongest_moment":         {Kind: KindString, Description: "A string describing the user's single strongest argumentative moment, including the timestamp and a short quote."},
				"weakest_moment":           {Kind: KindString, Description: "A string describing the user's single weakest argumentative moment, including the timestamp and a short quote."},
			},
		},
	},

	ModeImpromptu: {
		PersonaPrompt: constant.ImpromptuPersonaPrompt,
		Report: ReportConfig{
			PromptIntro: "You are an impromptu speaking and improv coach evaluating the user's ability to speak clearly and coherently on an unexpected topic with no preparation time. Focus on structure, spontaneous creativity, and composure.",
			Categories: map[string]Category{
				"topic_adherence": {
					Label:       "Topic Adherence",
					Description: "Did the user stay on the assigned topic throughout? Did their response feel relevant to the prompt they were given?",
				},
				"structure": {
					Label:       "Speech Structure",
					Description: "Did the response have a recognizable arc: a clear opening, a developed body, and a close or conclusion? Or did it trail off or meander?",
				},
				"confidence": {
					Label:       "Confidence & Presence",
					Description: "Did the user sound assured and in control? How did they handle silences, hesitations, and unexpected moments?",
				},
				"originality": {
					Label:       "Originality",
					Description: "Did the user bring a fresh angle, memorable metaphors, or surprising examples? Or did they resort to the most obvious interpretation?",
				},
			},
			DisplayMetrics: []string{"total_filler_words", "avg_words_per_minute", "dominant_tone"},
			ExtraFields: map[string]ExtraField{
				"assigned_topic":       {Kind: KindString, Description: "The exact topic that was assigned to the user at the start of this session (a string extracted from the AI's opening message)."},
				"best_moment_quote":    {Kind: KindString, Description: "A short string quoting or describing the user's strongest 10-15 seconds of speech verbatim."},
				"next_challenge":       {Kind: KindString, Description: "One specific, actionable skill for the user to focus on in their next impromptu session (string)."},
				"silence_gaps_seconds": {Kind: KindNumber, Description: "An estimated number representing the total seconds the user spent in silence or clearly struggling to find words."},
			},
		},
	},

	ModeFeedback: {
		PersonaPrompt: constant.FeedbackPersonaPrompt,
		Report: ReportConfig{
			PromptIntro:    "You are providing feedback on a previous session.",
			Categories:     map[string]Category{},
			DisplayMetrics: []string{},
			ExtraFields:    map[string]ExtraField{},
		},
	},
}

// Get returns the configuration for a mode, or ok=false for unknown modes.
func Get(mode string) (Config, bool) {
	cfg, ok := Modes[mode]
	return cfg, ok
}

func IsValid(mode string) bool {
	_, ok := Modes[mode]
	return ok
}
