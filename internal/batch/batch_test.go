package batch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oukeidos/boardtrans/internal/apperrors"
	"github.com/oukeidos/boardtrans/internal/language"
	"github.com/oukeidos/boardtrans/internal/translation"
)

type echoProvider struct {
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	starts   []time.Time
	fail     map[string]error
}

func (p *echoProvider) Name() string    { return "echo" }
func (p *echoProvider) Available() bool { return true }

func (p *echoProvider) Translate(ctx context.Context, text string, source, target language.Language) (string, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	p.mu.Lock()
	p.starts = append(p.starts, time.Now())
	p.mu.Unlock()

	if err, ok := p.fail[text]; ok {
		return "", err
	}
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.delay):
		}
	}
	return strings.ToUpper(text), nil
}

func makeItems(t *testing.T, n int) []Item {
	t.Helper()
	items := make([]Item, n)
	for i := range items {
		text := fmt.Sprintf("doc %d", i)
		req, err := translation.NewRequest(text, language.English, language.TraditionalChinese)
		if err != nil {
			t.Fatalf("NewRequest: %v", err)
		}
		items[i] = Item{Name: text, Request: req}
	}
	return items
}

var onePolicy = translation.RetryPolicy{MaxAttempts: 1, InitialDelay: time.Millisecond, BackoffMultiplier: 2}

func TestRunner_OrderAndConcurrency(t *testing.T) {
	provider := &echoProvider{delay: 20 * time.Millisecond}
	r := NewRunner(nil, provider, onePolicy, 3, 0)
	r.RampUp = 0

	outcomes, err := r.Run(context.Background(), makeItems(t, 10))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(outcomes) != 10 {
		t.Fatalf("expected 10 outcomes, got %d", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Index != i || o.Result.Text != fmt.Sprintf("DOC %d", i) || !o.Result.OK() {
			t.Fatalf("outcome %d out of order or failed: %+v", i, o)
		}
	}
	if peak := provider.peak.Load(); peak > 3 {
		t.Fatalf("expected at most 3 concurrent calls, got %d", peak)
	}
}

func TestRunner_QPS(t *testing.T) {
	provider := &echoProvider{}
	r := NewRunner(nil, provider, onePolicy, 4, 20)
	r.RampUp = 0

	start := time.Now()
	if _, err := r.Run(context.Background(), makeItems(t, 5)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// Burst of one, then 50ms per request.
	if elapsed := time.Since(start); elapsed < 180*time.Millisecond {
		t.Fatalf("expected rate limiting to spread requests, took %v", elapsed)
	}

	provider.mu.Lock()
	starts := append([]time.Time(nil), provider.starts...)
	provider.mu.Unlock()
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < 30*time.Millisecond {
			t.Fatalf("requests %d and %d only %v apart", i-1, i, gap)
		}
	}
}

func TestRunner_MixedResults(t *testing.T) {
	provider := &echoProvider{fail: map[string]error{
		"doc 1": apperrors.Auth(fmt.Errorf("bad key")),
		"doc 2": apperrors.RateLimit(fmt.Errorf("429")),
	}}
	r := NewRunner(nil, provider, onePolicy, 2, 0)
	r.RampUp = 0

	outcomes, err := r.Run(context.Background(), makeItems(t, 3))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []translation.ResultKind{translation.KindSuccess, translation.KindFailed, translation.KindRateLimited}
	for i, o := range outcomes {
		if o.Result.Kind != want[i] {
			t.Fatalf("outcome %d: expected %s, got %s", i, want[i], o.Result.Kind)
		}
	}
	counts := Summary(outcomes)
	if counts[translation.KindSuccess] != 1 || counts[translation.KindFailed] != 1 || counts[translation.KindRateLimited] != 1 {
		t.Fatalf("unexpected summary %v", counts)
	}
}

func TestRunner_Cancellation(t *testing.T) {
	provider := &echoProvider{delay: time.Second}
	r := NewRunner(nil, provider, onePolicy, 1, 0)
	r.RampUp = 0

	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	r.OnProgress = func(p Progress) {
		if p.Event.State == translation.AttemptStarted {
			once.Do(cancel)
		}
	}

	start := time.Now()
	outcomes, err := r.Run(ctx, makeItems(t, 4))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("expected prompt return after cancellation")
	}
	for i, o := range outcomes {
		if o.Result.Kind != translation.KindCancelled {
			t.Fatalf("outcome %d: expected cancelled, got %s", i, o.Result.Kind)
		}
	}
}

func TestRunner_DeadlineBeforeLimiterTurn(t *testing.T) {
	provider := &echoProvider{}
	r := NewRunner(nil, provider, onePolicy, 1, 1)
	r.RampUp = 0

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var mu sync.Mutex
	var finished []int
	r.OnProgress = func(p Progress) {
		if p.Done {
			mu.Lock()
			finished = append(finished, p.Index)
			mu.Unlock()
		}
	}

	start := time.Now()
	outcomes, err := r.Run(ctx, makeItems(t, 3))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Fatalf("expected limiter to fail fast, took %v", elapsed)
	}
	if !outcomes[0].Result.OK() {
		t.Fatalf("first item should use the burst token, got %+v", outcomes[0].Result)
	}
	for _, o := range outcomes[1:] {
		if o.Result.Kind != translation.KindFailed {
			t.Fatalf("outcome %d: expected failed, got %s", o.Index, o.Result.Kind)
		}
		if !strings.Contains(o.Result.Message, "deadline") {
			t.Fatalf("outcome %d: unexpected message %q", o.Index, o.Result.Message)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(finished) != 3 {
		t.Fatalf("expected progress for every item, got %v", finished)
	}
}

func TestRunner_Progress(t *testing.T) {
	r := NewRunner(translation.NewService(), &echoProvider{}, onePolicy, 2, 0)
	r.RampUp = 0

	var mu sync.Mutex
	doneCount, startCount := 0, 0
	r.OnProgress = func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		if p.Total != 3 {
			t.Errorf("unexpected total %d", p.Total)
		}
		if p.Done {
			doneCount++
		} else if p.Event.State == translation.AttemptStarted {
			startCount++
		}
	}
	if _, err := r.Run(context.Background(), makeItems(t, 3)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if doneCount != 3 || startCount != 3 {
		t.Fatalf("expected 3 starts and 3 completions, got %d and %d", startCount, doneCount)
	}
}

func TestRunner_Invalid(t *testing.T) {
	if _, err := NewRunner(nil, &echoProvider{}, onePolicy, 0, 0).Run(context.Background(), nil); err == nil {
		t.Fatalf("expected concurrency error")
	}
	if _, err := NewRunner(nil, &echoProvider{}, onePolicy, 1, -1).Run(context.Background(), nil); err == nil {
		t.Fatalf("expected qps error")
	}
	outcomes, err := NewRunner(nil, &echoProvider{}, onePolicy, 2, 0).Run(context.Background(), nil)
	if err != nil || len(outcomes) != 0 {
		t.Fatalf("expected empty run to succeed, got %v %v", outcomes, err)
	}
}

func TestRampDelay(t *testing.T) {
	if d := rampDelay(0, 4, 3*time.Second); d != 0 {
		t.Fatalf("first worker should start immediately, got %v", d)
	}
	if d := rampDelay(3, 4, 3*time.Second); d != 3*time.Second {
		t.Fatalf("last worker should start after full ramp, got %v", d)
	}
	if d := rampDelay(1, 1, 3*time.Second); d != 0 {
		t.Fatalf("single worker should not ramp, got %v", d)
	}
}
