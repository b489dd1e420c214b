// Package llm is the boundary to the external text-generation service.
//
// The pipeline talks to exactly one Client, chosen at startup: the real
// Anthropic-backed client, or the offline client that echoes the
// deterministic fallback carried on each request. Call sites never branch
// on credentials or environment state themselves.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Request is one generation call.
type Request struct {
	// System sets the assistant's role for the call.
	System string
	// Message is the user prompt.
	Message string
	// MaxTokens bounds the response length. Zero means the client default.
	MaxTokens int
	// Temperature controls sampling randomness. Lower is more deterministic.
	Temperature float64
	// Model overrides the client's default model id for this call.
	Model string
	// Fallback is the deterministic canned response, templated from the
	// input by the caller. The offline client returns it verbatim; the real
	// client ignores it.
	Fallback string
}

// Client sends a generation request and returns the service's free text.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

var jsonBlockRegex = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ParseJSON extracts JSON from a generation response, which may wrap it in a
// markdown code fence, and unmarshals it into v. Malformed JSON is a hard
// error for the call.
func ParseJSON(response string, v any) error {
	body := response
	if m := jsonBlockRegex.FindStringSubmatch(response); m != nil {
		body = m[1]
	} else {
		body = strings.TrimSpace(body)
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(body, "```")
	}

	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), v); err != nil {
		return fmt.Errorf("llm: failed to parse JSON from response: %w\nraw response: %s", err, response)
	}
	return nil
}
