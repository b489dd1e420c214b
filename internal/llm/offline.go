package llm

import "context"

// Offline substitutes each request's deterministic fallback for a real
// generation call. It is selected when no API credential is configured or
// dry-run mode is forced, which makes the whole pipeline runnable and
// testable without network access.
type Offline struct{}

// NewOffline returns the offline client.
func NewOffline() *Offline {
	return &Offline{}
}

// Complete returns the request's fallback text.
func (o *Offline) Complete(_ context.Context, req Request) (string, error) {
	return req.Fallback, nil
}
