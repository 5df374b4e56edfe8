package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oukeidos/boardtrans/internal/language"
)

// Provider is an external machine translation backend.
//
// Translate must classify its failures with apperrors: capacity problems as
// KindRateLimit or KindOverloaded, everything else with any other kind.
type Provider interface {
	Name() string
	// Available reports whether the provider is configured (e.g. has credentials).
	Available() bool
	Translate(ctx context.Context, text string, source, target language.Language) (string, error)
}

// Request is a single translation job.
type Request struct {
	Text   string
	Source language.Language
	Target language.Language
}

// NewRequest validates and builds a Request.
func NewRequest(text string, source, target language.Language) (Request, error) {
	if strings.TrimSpace(text) == "" {
		return Request{}, fmt.Errorf("text is empty")
	}
	if source.Code == "" || target.Code == "" {
		return Request{}, fmt.Errorf("source and target languages are required")
	}
	return Request{Text: text, Source: source, Target: target}, nil
}

// ResultKind is the terminal state of a Translate call.
type ResultKind string

const (
	KindSuccess     ResultKind = "success"
	KindUnavailable ResultKind = "unavailable"
	KindRateLimited ResultKind = "rate_limited"
	KindFailed      ResultKind = "failed"
	KindCancelled   ResultKind = "cancelled"
)

// Result is what Translate returns. Text is only set on success; Message
// carries a user-facing explanation for every other kind.
type Result struct {
	Kind     ResultKind
	Text     string
	Message  string
	Attempts int
}

func (r Result) OK() bool {
	return r.Kind == KindSuccess
}

// Display returns the text a UI should show for the result.
func (r Result) Display() string {
	if r.Kind == KindSuccess {
		return r.Text
	}
	return r.Message
}

// AttemptState describes an attempt event.
type AttemptState int

const (
	AttemptStarted AttemptState = iota
	AttemptSucceeded
	AttemptRetrying
	AttemptFailed
)

// AttemptEvent is reported to Service.OnAttempt.
type AttemptEvent struct {
	Provider string
	Attempt  int
	State    AttemptState
	// Delay is set for AttemptRetrying and is the wait before the next attempt.
	Delay time.Duration
	Error error
}
