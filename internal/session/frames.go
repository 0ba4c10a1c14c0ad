package session

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Binary client frames carry a one-line JSON header followed by the raw
// payload: `{"type":"audio"}\n<pcm bytes>`. The header never contains a
// newline, so the first newline byte splits the frame.

const (
	FrameAudio = "audio"
	FrameVideo = "video"
)

var (
	ErrFrameNoHeader    = errors.New("binary frame has no header line")
	ErrFrameBadHeader   = errors.New("binary frame header is not valid JSON")
	ErrFrameUnknownType = errors.New("binary frame has unknown type")
)

type frameHeader struct {
	Type string `json:"type"`
}

// ParseClientFrame splits a binary frame into its media kind and payload.
// The payload slice aliases the input, callers must not retain the input
// buffer past the frame's use.
func ParseClientFrame(frame []byte) (kind string, payload []byte, err error) {
	idx := bytes.IndexByte(frame, '\n')
	if idx < 0 {
		return "", nil, ErrFrameNoHeader
	}

	var header frameHeader
	if err := json.Unmarshal(frame[:idx], &header); err != nil {
		return "", nil, ErrFrameBadHeader
	}

	switch header.Type {
	case FrameAudio, FrameVideo:
		return header.Type, frame[idx+1:], nil
	default:
		return "", nil, ErrFrameUnknownType
	}
}
