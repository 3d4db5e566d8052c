package controller

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/arrivalsign/pkg/elastic_client"
)

type PollEvent struct {
	Timestamp time.Time

	Success    bool
	FailReason string
	StatusCode int

	Agency   string
	StopCode string

	Routes         int
	SoonestSeconds *int
	RefreshSeconds int
}

type EventRecorder interface {
	Record(event *PollEvent)
}

// ElasticEventRecorder indexes poll events into a monthly index. It does
// nothing when Elasticsearch is not configured.
type ElasticEventRecorder struct {
	IndexPrefix string
}

func (e *ElasticEventRecorder) Record(event *PollEvent) {
	if err := elastic_client.IndexDocument(e.IndexPrefix, event.Timestamp, event); err != nil {
		log.Error().Err(err).Msg("Failed to index poll event")
	}
}
