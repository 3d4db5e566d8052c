package controller

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/arrivalsign/pkg/config"
	"github.com/travigo/arrivalsign/pkg/display"
	"github.com/travigo/arrivalsign/pkg/predictions"
	"github.com/travigo/arrivalsign/pkg/siri_sm"
	"github.com/travigo/arrivalsign/pkg/transit511"
)

const (
	failureTitle      = "Network Error"
	noResponseStatus  = "No Response"
	connectionFailure = "Connection Failed"
	decodeFailure     = "Decode Error"
	formatFailure     = "Format Error"
	unexpectedFailure = "Unexpected Error"
)

type Fetcher interface {
	PredictionsForStopCode(ctx context.Context, agency string, stopCode string) (*transit511.Response, error)
}

// PollResult is the outcome of one fetch and decode. Exactly one of Document
// and FailureReason is set.
type PollResult struct {
	Success    bool
	Document   *siri_sm.StopMonitoring
	StatusCode int

	FailureReason string
	Err           error
}

// Controller runs one poll cycle at a time: fetch, decode, extract, format,
// display and work out how long to wait before the next cycle.
type Controller struct {
	Fetcher   Fetcher
	Extractor predictions.Extractor
	Sink      display.Sink
	Events    EventRecorder

	Agency         string
	StopCode       string
	RouteCodes     []string
	Direction      string
	MaxPredictions int
	Format         siri_sm.Format

	MinRefresh   time.Duration
	MaxRefresh   time.Duration
	ErrorRefresh time.Duration

	Now func() time.Time
}

func New(cfg *config.Config, fetcher Fetcher, sink display.Sink) *Controller {
	return &Controller{
		Fetcher:   fetcher,
		Extractor: predictions.SiriExtractor{},
		Sink:      sink,

		Agency:         cfg.Agency,
		StopCode:       cfg.StopCode,
		RouteCodes:     cfg.RouteCodes,
		Direction:      cfg.Direction,
		MaxPredictions: cfg.MaxPredictions,
		Format:         siri_sm.Format(cfg.Format),

		MinRefresh:   cfg.MinRefresh,
		MaxRefresh:   cfg.MaxRefresh,
		ErrorRefresh: cfg.ErrorRefresh,

		Now: time.Now,
	}
}

// Update runs a full cycle and returns the delay before the next one. Every
// failure is turned into an error display and ErrorRefresh here; nothing
// escapes to the caller.
func (c *Controller) Update(ctx context.Context) (refresh time.Duration) {
	event := &PollEvent{
		Timestamp: c.now(),
		Agency:    c.Agency,
		StopCode:  c.StopCode,
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("stopcode", c.StopCode).Msg("Recovered from failure during update")

			event.Success = false
			event.FailReason = unexpectedFailure
			refresh = c.ErrorRefresh

			c.showRecovered(failureLines(event.StatusCode, unexpectedFailure))
		}

		event.RefreshSeconds = int(refresh / time.Second)
		if c.Events != nil {
			c.Events.Record(event)
		}
	}()

	log.Info().Str("agency", c.Agency).Str("stopcode", c.StopCode).Msg("Getting predictions")

	result := c.poll(ctx)
	event.StatusCode = result.StatusCode

	if !result.Success {
		event.FailReason = result.FailureReason

		// Shutting down, leave the last lines on the sign
		if ctx.Err() != nil {
			log.Info().Str("stopcode", c.StopCode).Msg("Update cancelled")
			return c.ErrorRefresh
		}

		c.show(failureLines(result.StatusCode, result.FailureReason))

		return c.ErrorRefresh
	}

	event.Success = true

	routes := c.Extractor.PredictionsForRouteCodes(result.Document, c.RouteCodes, c.Direction)
	event.Routes = len(routes)

	lines := predictions.FormatRoutes(routes, c.RouteCodes, c.MaxPredictions)
	if len(lines) == 0 {
		log.Info().Str("stopcode", c.StopCode).Msg("No predictions available")
		lines = []string{}
	} else {
		for _, line := range lines {
			log.Debug().Str("stopcode", c.StopCode).Msg(line)
		}
	}

	c.show(lines)

	seconds, ok := c.Extractor.PredictionSecondsSoonest(result.Document, c.RouteCodes, c.Direction)
	if ok {
		event.SoonestSeconds = &seconds
		log.Info().Int("seconds", seconds).Msgf("The next desired transit option arrives in %d seconds", seconds)
	}

	return c.RefreshInterval(seconds, ok)
}

// RefreshInterval bounds the wait to the soonest arrival. With no arrival to
// wait for the maximum is used.
func (c *Controller) RefreshInterval(secondsSoonest int, ok bool) time.Duration {
	if !ok {
		return c.MaxRefresh
	}

	refresh := time.Duration(secondsSoonest) * time.Second

	return max(min(refresh, c.MaxRefresh), c.MinRefresh)
}

// poll fetches and decodes the predictions. The raw body is dropped as soon
// as it has been decoded so only one copy of a response is ever held.
func (c *Controller) poll(ctx context.Context) PollResult {
	response, err := c.Fetcher.PredictionsForStopCode(ctx, c.Agency, c.StopCode)
	if err != nil {
		log.Error().Err(err).Str("stopcode", c.StopCode).Msg("Failed to request predictions")

		return PollResult{FailureReason: connectionFailure, Err: err}
	}

	result := PollResult{StatusCode: response.StatusCode}

	if !response.Success() {
		log.Error().
			Int("status", response.StatusCode).
			Str("reason", response.Reason).
			Str("stopcode", c.StopCode).
			Msg("Prediction request was not successful")

		result.FailureReason = response.Reason
		return result
	}

	document, err := siri_sm.DecodeResponseBody(response.Body, c.Format)
	response.Body = nil

	if err != nil {
		log.Error().Err(err).Int("status", response.StatusCode).Str("stopcode", c.StopCode).Msg("Failed to decode predictions")

		result.Err = err
		if errors.Is(err, siri_sm.DecodeError) {
			result.FailureReason = decodeFailure
		} else {
			result.FailureReason = formatFailure
		}

		return result
	}

	result.Success = true
	result.Document = document

	return result
}

func failureLines(statusCode int, reason string) []string {
	status := noResponseStatus
	if statusCode != 0 {
		status = strconv.Itoa(statusCode)
	}

	return []string{failureTitle, status, reason}
}

// showRecovered is show for use while already recovering, a sink that panics
// again is only logged.
func (c *Controller) showRecovered(lines []string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("stopcode", c.StopCode).Msg("Failed to show error")
		}
	}()

	c.show(lines)
}

func (c *Controller) show(lines []string) {
	if err := c.Sink.Show(lines); err != nil {
		log.Error().Err(err).Str("stopcode", c.StopCode).Msg("Failed to show predictions")
	}
}

func (c *Controller) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}

	return c.Now()
}
