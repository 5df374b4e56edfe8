package translation

import (
	"math"
	"testing"
	"time"
)

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 4, InitialDelay: 2 * time.Second, BackoffMultiplier: 2}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 0},
		{attempt: 1, want: 0},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 3, want: 4 * time.Second},
		{attempt: 4, want: 8 * time.Second},
	}
	for _, tc := range cases {
		if got := p.Delay(tc.attempt); got != tc.want {
			t.Fatalf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestRetryPolicy_FractionalMultiplier(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, InitialDelay: time.Second, BackoffMultiplier: 1.5}
	if got := p.Delay(3); got != 1500*time.Millisecond {
		t.Fatalf("Delay(3) = %v, want 1.5s", got)
	}
}

func TestRetryPolicy_DelaySaturates(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 200, InitialDelay: time.Hour, BackoffMultiplier: 10}
	if got := p.Delay(200); got != time.Duration(math.MaxInt64) {
		t.Fatalf("expected saturated delay, got %v", got)
	}
	if got := p.MaxTotalDelay(); got != time.Duration(math.MaxInt64) {
		t.Fatalf("expected saturated total, got %v", got)
	}
}

func TestRetryPolicy_MaxTotalDelay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 4, InitialDelay: 2 * time.Second, BackoffMultiplier: 2}
	if got := p.MaxTotalDelay(); got != 14*time.Second {
		t.Fatalf("MaxTotalDelay() = %v, want 14s", got)
	}
	single := RetryPolicy{MaxAttempts: 1, InitialDelay: time.Second, BackoffMultiplier: 2}
	if got := single.MaxTotalDelay(); got != 0 {
		t.Fatalf("MaxTotalDelay() = %v, want 0", got)
	}
}

func TestRetryPolicy_Validate(t *testing.T) {
	cases := []struct {
		name    string
		policy  RetryPolicy
		wantErr bool
	}{
		{name: "default", policy: DefaultRetryPolicy},
		{name: "zero delay", policy: RetryPolicy{MaxAttempts: 1, BackoffMultiplier: 2}},
		{name: "zero attempts", policy: RetryPolicy{MaxAttempts: 0, BackoffMultiplier: 2}, wantErr: true},
		{name: "negative delay", policy: RetryPolicy{MaxAttempts: 2, InitialDelay: -time.Second, BackoffMultiplier: 2}, wantErr: true},
		{name: "multiplier one", policy: RetryPolicy{MaxAttempts: 2, BackoffMultiplier: 1}, wantErr: true},
		{name: "multiplier NaN", policy: RetryPolicy{MaxAttempts: 2, BackoffMultiplier: math.NaN()}, wantErr: true},
		{name: "multiplier Inf", policy: RetryPolicy{MaxAttempts: 2, BackoffMultiplier: math.Inf(1)}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.policy.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
