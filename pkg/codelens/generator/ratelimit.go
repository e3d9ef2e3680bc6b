package generator

import (
	"context"

	"github.com/stackvity/codelens/pkg/codelens/explain"
	"golang.org/x/time/rate"
)

// RateLimited paces calls to another generator with a token bucket. A call
// waits for a token until its context ends.
type RateLimited struct {
	next    explain.Generator
	limiter *rate.Limiter
}

// NewRateLimited wraps next. A burst below one is raised to one.
func NewRateLimited(next explain.Generator, perSecond float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Generate implements explain.Generator.
func (r *RateLimited) Generate(ctx context.Context, prompt, excerpt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", classify(ctx, "rate limiter", err)
	}
	return r.next.Generate(ctx, prompt, excerpt)
}
