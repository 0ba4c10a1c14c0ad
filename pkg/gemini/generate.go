package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const generateEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// Client talks to the Gemini API: single-turn text generation over HTTPS and
// live speech sessions over WebSocket (see live.go).
type Client struct {
	apiKey     string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type generateRequest struct {
	Contents []Content `json:"contents"`
}

type generateCandidate struct {
	Content *Content `json:"content"`
}

type generateResponse struct {
	Candidates []generateCandidate `json:"candidates"`
}

// GenerateContent issues one non-streaming generation call and returns the
// concatenated text of the first candidate.
func (c *Client) GenerateContent(ctx context.Context, model, prompt string) (string, error) {
	payload := generateRequest{
		Contents: []Content{
			{Role: "user", Parts: []Part{{Text: prompt}}},
		},
	}
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf(generateEndpoint, model),
		bytes.NewBuffer(payloadJson),
	)
	if err != nil {
		return "", err
	}

	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf(
			"status error, got status %d. with response body %s",
			res.StatusCode,
			string(resBody),
		)
	}

	var genRes generateResponse
	if err := json.Unmarshal(resBody, &genRes); err != nil {
		return "", err
	}

	if len(genRes.Candidates) == 0 || genRes.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty generation response")
	}

	var text string
	for _, part := range genRes.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text, nil
}
