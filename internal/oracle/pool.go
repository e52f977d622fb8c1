package oracle

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Serialized bounds access to a shared oracle. At most maxConcurrent replays
// run at once and, when a rate is set, replays start no faster than that
// many per second.
type Serialized struct {
	next    StabilityOracle
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// Serialize wraps next. maxConcurrent below 1 is treated as 1; ratePerSec of
// zero disables rate limiting.
func Serialize(next StabilityOracle, maxConcurrent int, ratePerSec float64) *Serialized {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	s := &Serialized{
		next: next,
		sem:  semaphore.NewWeighted(int64(maxConcurrent)),
	}
	if ratePerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}
	return s
}

// Replay waits for a slot and forwards the request.
func (s *Serialized) Replay(ctx context.Context, req Request) (Response, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return Response{}, fmt.Errorf("%w: waiting for slot: %v", ErrUnavailable, err)
	}
	defer s.sem.Release(1)

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return Response{}, fmt.Errorf("%w: rate limited: %v", ErrUnavailable, err)
		}
	}
	return s.next.Replay(ctx, req)
}
