package consumer

import (
	"fmt"
	"net/http"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
)

type RedisConsumer struct {
	QueueName string

	NumberConsumers int
	BatchSize       int

	Timeout time.Duration

	Consumer rmq.BatchConsumer

	// StatsAddress is where the queue stats and health endpoints listen,
	// empty disables them.
	StatsAddress string

	queue rmq.Queue
}

func (c *RedisConsumer) Setup(connection rmq.Connection) error {
	if err := c.startConsumers(connection); err != nil {
		return err
	}

	if c.StatsAddress != "" {
		go c.startStatsServer(connection)
	}

	return nil
}

// Stop waits for in flight batches to finish.
func (c *RedisConsumer) Stop() {
	if c.queue != nil {
		<-c.queue.StopConsuming()
	}
}

func (c *RedisConsumer) startConsumers(connection rmq.Connection) error {
	// Run the background consumers
	log.Info().Str("queue", c.QueueName).Msg("Starting consumers")

	queue, err := connection.OpenQueue(c.QueueName)
	if err != nil {
		return err
	}
	if err := queue.StartConsuming(int64(c.NumberConsumers*c.BatchSize), 1*time.Second); err != nil {
		return err
	}
	c.queue = queue

	for i := 0; i < c.NumberConsumers; i++ {
		log.Info().Msgf("Starting %s consumer %d", c.QueueName, i)

		if _, err := queue.AddBatchConsumer(fmt.Sprintf("%s-%d", c.QueueName, i), int64(c.BatchSize), c.Timeout, c.Consumer); err != nil {
			return err
		}
	}

	return nil
}

func (c *RedisConsumer) startStatsServer(connection rmq.Connection) {
	mux := http.NewServeMux()

	endpoint := fmt.Sprintf("/%s/stats", c.QueueName)
	mux.Handle(endpoint, NewStatsHandler(connection))
	mux.Handle("/health", NewHealthHandler())

	log.Info().Msgf("Stats server listening on http://%s%s", c.StatsAddress, endpoint)
	if err := http.ListenAndServe(c.StatsAddress, mux); err != nil {
		log.Error().Err(err).Msg("Stats server stopped")
	}
}
