package controller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppRunStopsWhenCancelled(t *testing.T) {
	fetcher := &fakeFetcher{response: okResponse(stopMonitoringBody(t, testVisit{"14", "IB", "MISSION", 20}))}
	controller, sink, _ := newTestController(fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink.onShow = cancel

	app := &App{Controller: controller}
	err := app.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, sink.shown, 1)
	assert.Len(t, fetcher.calls, 1)
}

func TestAppRunPollsAgainAfterRefresh(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	controller, sink, _ := newTestController(fetcher)
	controller.ErrorRefresh = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink.onShow = func() {
		if len(sink.shown) == 3 {
			cancel()
		}
	}

	app := &App{Controller: controller}
	err := app.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, fetcher.calls, 3)
	for _, lines := range sink.shown {
		assert.Equal(t, []string{"Network Error", "No Response", "Connection Failed"}, lines)
	}
}

func TestSuperviseReturnsWhenRunFinishes(t *testing.T) {
	var calls int32

	err := Supervise(context.Background(), time.Millisecond, time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	assert.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestSuperviseRestartsAfterFailures(t *testing.T) {
	var calls int32

	err := Supervise(context.Background(), 0, time.Millisecond, func(ctx context.Context) error {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			return errors.New("display went away")
		case 2:
			panic("index out of range")
		default:
			return nil
		}
	})

	assert.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestSuperviseStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32

	err := Supervise(ctx, 0, time.Millisecond, func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) == 2 {
			cancel()
			<-ctx.Done()
			return ctx.Err()
		}
		return errors.New("try again")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestSuperviseCancelledDuringRunDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := Supervise(ctx, time.Hour, time.Millisecond, func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestElasticEventRecorderWithoutElasticsearch(t *testing.T) {
	recorder := &ElasticEventRecorder{IndexPrefix: "arrivalsign-polls"}

	assert.NotPanics(t, func() {
		recorder.Record(&PollEvent{Timestamp: responseTime})
	})
}
