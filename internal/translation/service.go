package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oukeidos/boardtrans/internal/apperrors"
	"github.com/oukeidos/boardtrans/internal/logger"
)

// Service runs translation requests against a Provider, retrying capacity
// failures with exponential backoff. It holds no per-call state and is safe
// for concurrent use.
type Service struct {
	// OnAttempt, if set, is called synchronously for every attempt event.
	OnAttempt func(AttemptEvent)

	sleep func(ctx context.Context, d time.Duration) error
}

// NewService creates a Service that waits in real time between attempts.
func NewService() *Service {
	return &Service{sleep: sleepContext}
}

// Translate is shorthand for NewService().Translate.
func Translate(ctx context.Context, req Request, policy RetryPolicy, provider Provider) Result {
	return NewService().Translate(ctx, req, policy, provider)
}

// Translate performs req with provider and always returns a terminal Result.
func (s *Service) Translate(ctx context.Context, req Request, policy RetryPolicy, provider Provider) Result {
	if provider == nil || !provider.Available() {
		name := "provider"
		if provider != nil {
			name = provider.Name()
		}
		logger.Warn("Translation provider unavailable", "provider", name)
		return Result{
			Kind:    KindUnavailable,
			Message: fmt.Sprintf("Translation provider %q is not configured. Set its API key and try again.", name),
		}
	}
	if err := policy.Validate(); err != nil {
		return Result{Kind: KindFailed, Message: fmt.Sprintf("invalid retry policy: %v", err)}
	}

	sleep := s.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return cancelled(attempt - 1)
		}
		s.emit(AttemptEvent{Provider: provider.Name(), Attempt: attempt, State: AttemptStarted})

		text, err := provider.Translate(ctx, req.Text, req.Source, req.Target)
		if ctx.Err() != nil {
			// Output produced after cancellation is discarded.
			return cancelled(attempt)
		}
		if err == nil {
			s.emit(AttemptEvent{Provider: provider.Name(), Attempt: attempt, State: AttemptSucceeded})
			return Result{Kind: KindSuccess, Text: strings.TrimSpace(text), Attempts: attempt}
		}

		if !apperrors.IsCapacity(err) {
			s.emit(AttemptEvent{Provider: provider.Name(), Attempt: attempt, State: AttemptFailed, Error: err})
			logger.Error("Translation failed without retry", "provider", provider.Name(), "attempt", attempt, "error", err)
			return Result{Kind: KindFailed, Message: apperrors.PublicMessage(err), Attempts: attempt}
		}

		if attempt == policy.MaxAttempts {
			s.emit(AttemptEvent{Provider: provider.Name(), Attempt: attempt, State: AttemptFailed, Error: err})
			logger.Error("Translation failed after maximum retries", "provider", provider.Name(), "attempts", attempt, "error", err)
			return Result{
				Kind:     KindRateLimited,
				Message:  fmt.Sprintf("Translation provider is rate limited (gave up after %d attempts). Please try again later.", attempt),
				Attempts: attempt,
			}
		}

		delay := policy.Delay(attempt + 1)
		s.emit(AttemptEvent{Provider: provider.Name(), Attempt: attempt, State: AttemptRetrying, Delay: delay, Error: err})
		logger.Warn("Translation rate limited, backing off", "provider", provider.Name(), "attempt", attempt, "delay", delay)
		if err := sleep(ctx, delay); err != nil {
			return cancelled(attempt)
		}
	}

	// MaxAttempts >= 1 is validated above, so the loop always returns.
	return Result{Kind: KindFailed, Message: "no attempts were made"}
}

func (s *Service) emit(ev AttemptEvent) {
	if s.OnAttempt != nil {
		s.OnAttempt(ev)
	}
}

func cancelled(attempts int) Result {
	return Result{Kind: KindCancelled, Message: "Translation cancelled.", Attempts: attempts}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
