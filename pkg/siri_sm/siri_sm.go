package siri_sm

import (
	"encoding/xml"
	"time"
)

// StopMonitoring is a SIRI StopMonitoring response as served by 511.org in
// either its JSON or XML rendering. Field names match both encodings.
type StopMonitoring struct {
	XMLName xml.Name `json:"-" xml:"Siri"`

	ServiceDelivery struct {
		ResponseTimestamp string
		ProducerRef       string

		StopMonitoringDelivery struct {
			ResponseTimestamp string

			MonitoredStopVisit []*MonitoredStopVisit
		}
	}

	// ResponseTime is the parsed delivery timestamp. Every visit is measured
	// against it rather than the local clock.
	ResponseTime time.Time `json:"-" xml:"-"`
}

type MonitoredStopVisit struct {
	RecordedAtTime string
	MonitoringRef  string

	MonitoredVehicleJourney *MonitoredVehicleJourney
}

type MonitoredVehicleJourney struct {
	LineRef           string
	DirectionRef      string
	PublishedLineName string

	OperatorRef string

	OriginRef       string
	OriginName      string
	DestinationRef  string
	DestinationName string

	VehicleRef string

	MonitoredCall *MonitoredCall
}

type MonitoredCall struct {
	StopPointRef       string
	StopPointName      string
	DestinationDisplay string

	AimedArrivalTime      string
	ExpectedArrivalTime   string
	AimedDepartureTime    string
	ExpectedDepartureTime string
}

func (s *StopMonitoring) Visits() []*MonitoredStopVisit {
	return s.ServiceDelivery.StopMonitoringDelivery.MonitoredStopVisit
}

// ExpectedArrival returns the parsed expected arrival of the visit. Visits
// with no journey, no call or an unparseable time report false.
func (v *MonitoredStopVisit) ExpectedArrival() (time.Time, bool) {
	if v == nil || v.MonitoredVehicleJourney == nil || v.MonitoredVehicleJourney.MonitoredCall == nil {
		return time.Time{}, false
	}

	arrival, err := ParseTimestamp(v.MonitoredVehicleJourney.MonitoredCall.ExpectedArrivalTime)
	if err != nil {
		return time.Time{}, false
	}

	return arrival, true
}
