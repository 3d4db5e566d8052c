package predictions

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/arrivalsign/pkg/siri_sm"
	"golang.org/x/exp/slices"
)

// Extractor pulls the routes of interest out of a StopMonitoring document.
// Neither method modifies the document.
type Extractor interface {
	PredictionsForRouteCodes(document *siri_sm.StopMonitoring, routeCodes []string, direction string) map[string]*Route
	PredictionSecondsSoonest(document *siri_sm.StopMonitoring, routeCodes []string, direction string) (int, bool)
}

type SiriExtractor struct{}

func (SiriExtractor) PredictionsForRouteCodes(document *siri_sm.StopMonitoring, routeCodes []string, direction string) map[string]*Route {
	return PredictionsForRouteCodes(document, routeCodes, direction)
}

func (SiriExtractor) PredictionSecondsSoonest(document *siri_sm.StopMonitoring, routeCodes []string, direction string) (int, bool) {
	return PredictionSecondsSoonest(document, routeCodes, direction)
}

// PredictionsForRouteCodes groups the matching visits by route code. Minutes
// are measured from the document's own response timestamp because per visit
// creation times from 511.org are frequently zero.
func PredictionsForRouteCodes(document *siri_sm.StopMonitoring, routeCodes []string, direction string) map[string]*Route {
	routes := map[string]*Route{}

	for _, visit := range document.Visits() {
		arrival, ok := matchingArrival(visit, routeCodes, direction)
		if !ok {
			continue
		}

		journey := visit.MonitoredVehicleJourney

		route, exists := routes[journey.LineRef]
		if !exists {
			route = NewRoute(journey.LineRef, journey.PublishedLineName)
			routes[journey.LineRef] = route
		}

		route.AddPrediction(minutesUntil(document.ResponseTime, arrival))
	}

	return routes
}

// PredictionSecondsSoonest returns the seconds until the first matching visit.
// The feed lists visits soonest first so no sorting happens here.
func PredictionSecondsSoonest(document *siri_sm.StopMonitoring, routeCodes []string, direction string) (int, bool) {
	for _, visit := range document.Visits() {
		arrival, ok := matchingArrival(visit, routeCodes, direction)
		if !ok {
			continue
		}

		return secondsUntil(document.ResponseTime, arrival), true
	}

	return 0, false
}

func matchingArrival(visit *siri_sm.MonitoredStopVisit, routeCodes []string, direction string) (time.Time, bool) {
	if visit == nil || visit.MonitoredVehicleJourney == nil {
		return time.Time{}, false
	}

	journey := visit.MonitoredVehicleJourney
	if !slices.Contains(routeCodes, journey.LineRef) || journey.DirectionRef != direction {
		return time.Time{}, false
	}

	arrival, ok := visit.ExpectedArrival()
	if !ok {
		log.Debug().
			Str("lineref", journey.LineRef).
			Str("vehicleref", journey.VehicleRef).
			Msg("Skipping visit without a usable expected arrival time")
	}

	return arrival, ok
}

func secondsUntil(reference time.Time, arrival time.Time) int {
	return int(arrival.Sub(reference) / time.Second)
}

// minutesUntil floors the whole second difference to minutes. Arrivals the
// feed already places in the past count as due now, so they render as Now
// rather than a negative count.
func minutesUntil(reference time.Time, arrival time.Time) int {
	seconds := secondsUntil(reference, arrival)
	if seconds < 0 {
		return 0
	}

	return seconds / 60
}
