// Package batch translates several documents with a bounded worker pool and
// a shared request rate limit.
package batch

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/oukeidos/boardtrans/internal/logger"
	"github.com/oukeidos/boardtrans/internal/translation"
	"golang.org/x/time/rate"
)

// DefaultRampUp spreads worker start times so the first requests do not
// arrive at the provider in one burst.
var DefaultRampUp = 2 * time.Second

type Item struct {
	Name    string
	Request translation.Request
}

type Outcome struct {
	Index  int
	Name   string
	Result translation.Result
}

// Progress is reported for every attempt event and once per finished item.
type Progress struct {
	Index int
	Total int
	Name  string
	// Event is zero when Done is set.
	Event  translation.AttemptEvent
	Done   bool
	Result translation.Result
}

type Runner struct {
	Service     *translation.Service
	Provider    translation.Provider
	Policy      translation.RetryPolicy
	Concurrency int
	// QPS caps how many items start per second. Zero means unlimited.
	QPS    float64
	RampUp time.Duration
	// OnProgress may be called from several goroutines at once.
	OnProgress func(Progress)
}

// NewRunner returns a Runner with the default ramp-up.
func NewRunner(svc *translation.Service, provider translation.Provider, policy translation.RetryPolicy, concurrency int, qps float64) *Runner {
	return &Runner{
		Service:     svc,
		Provider:    provider,
		Policy:      policy,
		Concurrency: concurrency,
		QPS:         qps,
		RampUp:      DefaultRampUp,
	}
}

func (r *Runner) limiter() *rate.Limiter {
	if r.QPS <= 0 || math.IsInf(r.QPS, 1) {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(r.QPS), 1)
}

// Run translates items and returns one outcome per item in input order.
// Items not started before ctx is cancelled come back as KindCancelled.
// Items whose limiter turn falls after ctx's deadline come back as KindFailed.
func (r *Runner) Run(ctx context.Context, items []Item) ([]Outcome, error) {
	if r.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be greater than 0, got %d", r.Concurrency)
	}
	if r.QPS < 0 || math.IsNaN(r.QPS) {
		return nil, fmt.Errorf("qps must not be negative, got %v", r.QPS)
	}
	svc := r.Service
	if svc == nil {
		svc = translation.NewService()
	}

	outcomes := make([]Outcome, len(items))
	done := make([]bool, len(items))
	for i, it := range items {
		outcomes[i] = Outcome{Index: i, Name: it.Name}
	}

	workers := min(r.Concurrency, len(items))
	limiter := r.limiter()

	jobs := make(chan int, len(items))
	for i := range items {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			if delay := rampDelay(worker, workers, r.RampUp); delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				item := items[i]
				if err := limiter.Wait(ctx); err != nil {
					if ctx.Err() != nil {
						return
					}
					// The deadline falls before the item's turn at the limiter.
					logger.Warn("Batch item not started", "document", item.Name, "error", err)
					res := translation.Result{Kind: translation.KindFailed, Message: fmt.Sprintf("Not started: %v.", err)}
					outcomes[i].Result = res
					done[i] = true
					r.report(Progress{Index: i, Total: len(items), Name: item.Name, Done: true, Result: res})
					continue
				}

				itemSvc := *svc
				itemSvc.OnAttempt = func(ev translation.AttemptEvent) {
					if svc.OnAttempt != nil {
						svc.OnAttempt(ev)
					}
					r.report(Progress{Index: i, Total: len(items), Name: item.Name, Event: ev})
				}

				res := itemSvc.Translate(ctx, item.Request, r.Policy, r.Provider)
				outcomes[i].Result = res
				done[i] = true
				r.report(Progress{Index: i, Total: len(items), Name: item.Name, Done: true, Result: res})
			}
		}(w)
	}
	wg.Wait()

	skipped := 0
	for i := range outcomes {
		if !done[i] {
			outcomes[i].Result = translation.Result{Kind: translation.KindCancelled, Message: "Translation cancelled."}
			skipped++
		}
	}
	if skipped > 0 {
		logger.Warn("Batch cancelled before all documents started", "skipped", skipped, "total", len(items))
	}
	return outcomes, nil
}

func (r *Runner) report(p Progress) {
	if r.OnProgress != nil {
		r.OnProgress(p)
	}
}

// Summary counts outcomes by result kind.
func Summary(outcomes []Outcome) map[translation.ResultKind]int {
	counts := make(map[translation.ResultKind]int)
	for _, o := range outcomes {
		counts[o.Result.Kind]++
	}
	return counts
}

func rampDelay(worker, concurrency int, ramp time.Duration) time.Duration {
	if ramp <= 0 || concurrency <= 1 {
		return 0
	}
	return time.Duration(int64(ramp) * int64(worker) / int64(concurrency-1))
}
