// Package sharekey derives the capability tokens that grant read access to a
// stored session report. A key is deterministic: anyone holding it can read
// the sanitized view indefinitely, so it must never embed the raw userId.
package sharekey

import (
	"crypto/sha256"
	"encoding/hex"
)

// KeyLength is the truncated hex length of a share key.
const KeyLength = 24

// fullTranscriptMarker, when mixed into the hash, yields a distinct key that
// additionally grants access to the full transcript.
const fullTranscriptMarker = "full_transcript"

func derive(material string) string {
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])[:KeyLength]
}

// Derive returns the report-only share key for a session.
func Derive(sessionId, userId string) string {
	return derive(sessionId + userId)
}

// DeriveFull returns the share key variant that also exposes the transcript.
func DeriveFull(sessionId, userId string) string {
	return derive(sessionId + userId + fullTranscriptMarker)
}
