package sink

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/MCS-OSU/mcs-eval3/internal/gravity"
	"github.com/MCS-OSU/mcs-eval3/internal/monitoring"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StreamAdder is the subset of the redis client used by Redis.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Redis publishes predictions to a redis stream. Each entry carries a kind
// ("step" or "verdict"), the scene name, the run id and a JSON payload.
type Redis struct {
	client    StreamAdder
	stream    string
	runID     string
	withSteps bool
	maxLen    int64
}

// RedisOption configures a Redis sink.
type RedisOption func(*Redis)

// WithSteps also publishes per-step predictions.
func WithSteps() RedisOption {
	return func(r *Redis) { r.withSteps = true }
}

// WithRunID tags every entry with the batch run id.
func WithRunID(id string) RedisOption {
	return func(r *Redis) { r.runID = id }
}

// WithMaxLen trims the stream to approximately n entries.
func WithMaxLen(n int64) RedisOption {
	return func(r *Redis) { r.maxLen = n }
}

// NewRedis returns a sink publishing to stream.
func NewRedis(client StreamAdder, stream string, opts ...RedisOption) *Redis {
	r := &Redis{client: client, stream: stream}
	for _, o := range opts {
		o(r)
	}
	return r
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	monitoring.Logf("Connecting to Redis at %s...", addr)
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return client, nil
}

// MakeStepPrediction publishes p when step publishing is enabled.
func (r *Redis) MakeStepPrediction(ctx context.Context, p gravity.StepPrediction) error {
	if !r.withSteps {
		return nil
	}
	return r.publish(ctx, "step", p.Scene, p)
}

// EndScene publishes v.
func (r *Redis) EndScene(ctx context.Context, v gravity.Verdict) error {
	return r.publish(ctx, "verdict", v.Scene, v)
}

func (r *Redis) publish(ctx context.Context, kind, scene string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", kind, err)
	}
	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]any{
			"kind":    kind,
			"scene":   scene,
			"run_id":  r.runID,
			"payload": string(data),
		},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", r.stream, err)
	}
	return nil
}
