package session

import (
	"regexp"
	"strings"
	"time"

	"ai-speechcoach-be/internal/entity"
)

// Upstream transcription arrives as small fragments mid-word and mid-phrase.
// The assembler accumulates them per role and flushes a complete utterance
// when the buffer ends in terminal punctuation or grows past a word cap, so
// the stored transcript reads as dialogue instead of confetti.

const (
	userFlushWordCap = 10
	aiFlushWordCap   = 15
)

var (
	userTerminal = regexp.MustCompile(`[.?!]$`)
	aiTerminal   = regexp.MustCompile(`[.?!:"]$`)
)

type Assembler struct {
	startedAt time.Time
	now       func() time.Time

	userBuf strings.Builder
	aiBuf   strings.Builder

	entries []entity.TranscriptEntry

	// Cumulative full text per role, kept for metrics and tone analysis
	// which re-evaluate everything said so far.
	userAll strings.Builder
	aiAll   strings.Builder
}

func NewAssembler(startedAt time.Time) *Assembler {
	return &Assembler{
		startedAt: startedAt,
		now:       time.Now,
	}
}

// AddUser appends a user transcription fragment. Returns true when the
// fragment completed an utterance and an entry was flushed.
func (a *Assembler) AddUser(fragment string) bool {
	a.userBuf.WriteString(fragment)
	a.userAll.WriteString(fragment)
	if a.shouldFlush(a.userBuf.String(), userTerminal, userFlushWordCap) {
		a.flush(entity.RoleUser)
		return true
	}
	return false
}

// AddAI appends an AI transcription fragment. Returns true when an entry was
// flushed.
func (a *Assembler) AddAI(fragment string) bool {
	a.aiBuf.WriteString(fragment)
	a.aiAll.WriteString(fragment)
	if a.shouldFlush(a.aiBuf.String(), aiTerminal, aiFlushWordCap) {
		a.flush(entity.RoleAI)
		return true
	}
	return false
}

func (a *Assembler) shouldFlush(buf string, terminal *regexp.Regexp, wordCap int) bool {
	trimmed := strings.TrimSpace(buf)
	if trimmed == "" {
		return false
	}
	return terminal.MatchString(trimmed) || len(strings.Fields(trimmed)) >= wordCap
}

func (a *Assembler) flush(role string) {
	buf := &a.userBuf
	if role == entity.RoleAI {
		buf = &a.aiBuf
	}
	text := strings.TrimSpace(buf.String())
	buf.Reset()
	if text == "" {
		return
	}
	a.entries = append(a.entries, entity.TranscriptEntry{
		Role:      role,
		Text:      text,
		Timestamp: int(a.now().Sub(a.startedAt).Seconds()),
	})
}

// FlushUser forces out whatever is buffered for the user role.
func (a *Assembler) FlushUser() { a.flush(entity.RoleUser) }

// FlushAI forces out whatever is buffered for the AI role.
func (a *Assembler) FlushAI() { a.flush(entity.RoleAI) }

// FlushAll drains both buffers, user first. Called once at session end so no
// trailing speech is lost.
func (a *Assembler) FlushAll() {
	a.flush(entity.RoleUser)
	a.flush(entity.RoleAI)
}

// Entries returns the flushed transcript in arrival order.
func (a *Assembler) Entries() []entity.TranscriptEntry {
	return a.entries
}

// UserText returns everything the user has said so far, flushed or not.
func (a *Assembler) UserText() string {
	return strings.TrimSpace(a.userAll.String())
}

// AIText returns everything the AI has said so far, flushed or not.
func (a *Assembler) AIText() string {
	return strings.TrimSpace(a.aiAll.String())
}
