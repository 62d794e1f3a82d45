package notifier

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// webhookLimiter bounds outbound webhook request rates so we stay inside
// each service's documented limits even under bursts of critical events.
type webhookLimiter struct {
	limiter *rate.Limiter
}

func newWebhookLimiter(rps float64, burst int) *webhookLimiter {
	return &webhookLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// wait blocks until a request slot is available or the context is canceled.
func (l *webhookLimiter) wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}
