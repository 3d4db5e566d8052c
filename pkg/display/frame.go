package display

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const frameQueuePrefix = "arrivalsign-frames"

// FrameQueueName is the queue carrying frames for a single stop. Every stop
// gets its own queue so a sign only ever receives its own frames.
func FrameQueueName(stopCode string) string {
	return fmt.Sprintf("%s:%s", frameQueuePrefix, stopCode)
}

var frameCacheExpiration = 90 * time.Minute

// Frame is one set of lines destined for a remote sign.
type Frame struct {
	StopCode  string
	Lines     []string
	Timestamp time.Time
}

// FrameCache keeps the most recent frame per stop so a sign that starts up
// between polls has something to show straight away.
type FrameCache struct {
	Cache *cache.Cache[string]
}

func NewFrameCache(client *redis.Client) *FrameCache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(frameCacheExpiration))

	return &FrameCache{
		Cache: cache.New[string](redisStore),
	}
}

func frameCacheKey(stopCode string) string {
	return fmt.Sprintf("arrivalsign:frame:%s", stopCode)
}

func (f *FrameCache) Store(ctx context.Context, frame *Frame) error {
	frameJSON, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	return f.Cache.Set(ctx, frameCacheKey(frame.StopCode), string(frameJSON))
}

func (f *FrameCache) Latest(ctx context.Context, stopCode string) (*Frame, error) {
	frameJSON, err := f.Cache.Get(ctx, frameCacheKey(stopCode))
	if err != nil {
		return nil, err
	}

	var frame Frame
	if err := json.Unmarshal([]byte(frameJSON), &frame); err != nil {
		return nil, err
	}

	return &frame, nil
}

// QueueSink publishes every set of lines as a Frame for remote signs. Only the
// newest frame is worth showing, so frames nobody consumed yet are purged
// before each publish and the queue never holds more than one.
type QueueSink struct {
	Queue    rmq.Queue
	Cache    *FrameCache
	StopCode string

	Now func() time.Time
}

func (q *QueueSink) Show(lines []string) error {
	now := time.Now
	if q.Now != nil {
		now = q.Now
	}

	if lines == nil {
		lines = []string{}
	}

	frame := &Frame{
		StopCode:  q.StopCode,
		Lines:     lines,
		Timestamp: now(),
	}

	frameJSON, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	if purged, err := q.Queue.PurgeReady(); err != nil {
		log.Error().Err(err).Str("stopcode", q.StopCode).Msg("Failed to purge stale frames")
	} else if purged > 0 {
		log.Debug().Int64("purged", purged).Str("stopcode", q.StopCode).Msg("Dropped unconsumed frames")
	}

	if err := q.Queue.PublishBytes(frameJSON); err != nil {
		return fmt.Errorf("publishing frame: %w", err)
	}

	if q.Cache != nil {
		if err := q.Cache.Store(context.Background(), frame); err != nil {
			log.Error().Err(err).Str("stopcode", q.StopCode).Msg("Failed to cache latest frame")
		}
	}

	return nil
}

// FrameConsumer shows queued frames on a local sink. Only the newest frame of
// each batch is shown, older ones are acknowledged and dropped.
type FrameConsumer struct {
	Sink     Sink
	StopCode string
}

func (c *FrameConsumer) Consume(batch rmq.Deliveries) {
	var latest *Frame

	for _, payload := range batch.Payloads() {
		var frame Frame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			log.Error().Err(err).Msg("Failed to decode frame")
			continue
		}

		if c.StopCode != "" && frame.StopCode != c.StopCode {
			continue
		}

		if latest == nil || !frame.Timestamp.Before(latest.Timestamp) {
			latest = &frame
		}
	}

	if latest != nil {
		if err := c.Sink.Show(latest.Lines); err != nil {
			log.Error().Err(err).Str("stopcode", latest.StopCode).Msg("Failed to show frame")
		}
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Error().Err(err).Msg("Failed to acknowledge frame")
		}
	}
}
