package oracle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeBoundsConcurrency(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	slow := Func(func(ctx context.Context, req Request) (Response, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return Response{}, nil
	})

	s := Serialize(slow, 2, 0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Replay(context.Background(), Request{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestSerializeCancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	blocking := Func(func(ctx context.Context, req Request) (Response, error) {
		<-release
		return Response{}, nil
	})
	s := Serialize(blocking, 0, 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Replay(context.Background(), Request{})
	}()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Replay(ctx, Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	close(release)
	<-done
}

func TestSerializeRateLimit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	s := Serialize(Func(func(context.Context, Request) (Response, error) {
		calls.Add(1)
		return Response{}, nil
	}), 1, 1000)

	for i := 0; i < 3; i++ {
		_, err := s.Replay(context.Background(), Request{})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}
