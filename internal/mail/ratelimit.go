package mail

import (
	"context"

	"golang.org/x/time/rate"
)

// rateLimitedTransport caps outbound provider requests regardless of how many
// dispatch runs are active, keeping the process under provider rate limits.
type rateLimitedTransport struct {
	next    Transport
	limiter *rate.Limiter
}

// WithRateLimit wraps a transport with a requests-per-second cap.
// A non-positive rps disables limiting.
func WithRateLimit(next Transport, rps float64, burst int) Transport {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}

	return &rateLimitedTransport{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (t *rateLimitedTransport) Send(ctx context.Context, msg *Message) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.next.Send(ctx, msg)
}
