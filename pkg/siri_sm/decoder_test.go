package siri_sm

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// compressBody frames a payload the way 511.org does: a byte order mark on the
// text, wrapped in gzip.
func compressBody(t *testing.T, payload []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	_, err := writer.Write(append(append([]byte{}, utf8BOM...), payload...))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return buf.Bytes()
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()

	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)

	return data
}

func TestDecodeResponseBodyJSON(t *testing.T) {
	body := compressBody(t, readFixture(t, "stopmonitoring.json"))

	document, err := DecodeResponseBody(body, FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2023, 11, 4, 18, 30, 0, 0, time.UTC), document.ResponseTime.UTC())

	visits := document.Visits()
	require.Len(t, visits, 7)

	journey := visits[0].MonitoredVehicleJourney
	assert.Equal(t, "14", journey.LineRef)
	assert.Equal(t, "IB", journey.DirectionRef)
	assert.Equal(t, "MISSION", journey.PublishedLineName)
	assert.Equal(t, "2023-11-04T18:30:20Z", journey.MonitoredCall.ExpectedArrivalTime)
	assert.Equal(t, "", journey.MonitoredCall.ExpectedDepartureTime)
}

func TestDecodeResponseBodyXML(t *testing.T) {
	body := compressBody(t, readFixture(t, "stopmonitoring.xml"))

	document, err := DecodeResponseBody(body, FormatXML)
	require.NoError(t, err)

	visits := document.Visits()
	require.Len(t, visits, 2)
	assert.Equal(t, "Mission St & 24th St", visits[0].MonitoredVehicleJourney.MonitoredCall.StopPointName)
	assert.Equal(t, "7288", visits[1].MonitoredVehicleJourney.VehicleRef)
	assert.Equal(t, time.Date(2023, 11, 4, 18, 30, 0, 0, time.UTC), document.ResponseTime.UTC())
}

func TestDecodeResponseBodyWithNamedGzipHeader(t *testing.T) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	writer.Name = "stopmonitoring.json"
	writer.Comment = "captured"
	_, err := writer.Write(readFixture(t, "stopmonitoring.json"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	document, err := DecodeResponseBody(buf.Bytes(), FormatJSON)
	require.NoError(t, err)
	assert.Len(t, document.Visits(), 7)
}

func TestDecodeResponseBodyUncompressed(t *testing.T) {
	body := append(append([]byte{}, utf8BOM...), readFixture(t, "stopmonitoring.json")...)

	document, err := DecodeResponseBody(body, FormatJSON)
	require.NoError(t, err)
	assert.Len(t, document.Visits(), 7)
}

func TestDecodeResponseBodyErrors(t *testing.T) {
	valid := compressBody(t, readFixture(t, "stopmonitoring.json"))

	tests := []struct {
		name     string
		body     []byte
		format   Format
		expected error
	}{
		{"garbage", []byte("\x00\x01\x02 definitely not gzip"), FormatJSON, DecodeError},
		{"empty", []byte{}, FormatJSON, DecodeError},
		{"truncated header", valid[:6], FormatJSON, DecodeError},
		{"corrupt deflate", append(append([]byte{}, valid[:10]...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff), FormatJSON, DecodeError},
		{"truncated deflate", valid[:len(valid)/2], FormatJSON, DecodeError},
		{"bad method", append([]byte{0x1f, 0x8b, 0x07}, valid[3:]...), FormatJSON, DecodeError},
		{"not json", compressBody(t, []byte("{\"ServiceDelivery\": [")), FormatJSON, FormatError},
		{"wrong shape", compressBody(t, []byte(`{"ServiceDelivery": "nope"}`)), FormatJSON, FormatError},
		{"missing timestamp", compressBody(t, []byte(`{"ServiceDelivery": {"StopMonitoringDelivery": {}}}`)), FormatJSON, FormatError},
		{"bad timestamp", compressBody(t, []byte(`{"ServiceDelivery": {"ResponseTimestamp": "yesterday"}}`)), FormatJSON, FormatError},
		{"json as xml", valid, FormatXML, FormatError},
		{"wrong root", compressBody(t, []byte(`<Other></Other>`)), FormatXML, FormatError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			document, err := DecodeResponseBody(tc.body, tc.format)

			assert.Nil(t, document)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestDecodeFallsBackToServiceDeliveryTimestamp(t *testing.T) {
	body := compressBody(t, []byte(`{"ServiceDelivery": {"ResponseTimestamp": "2023-11-04T10:30:00-08:00", "StopMonitoringDelivery": {"MonitoredStopVisit": []}}}`))

	document, err := DecodeResponseBody(body, FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2023, 11, 4, 18, 30, 0, 0, time.UTC), document.ResponseTime.UTC())
	assert.Empty(t, document.Visits())
}

func TestParseTimestamp(t *testing.T) {
	expected := time.Date(2023, 11, 4, 18, 30, 5, 0, time.UTC)

	tests := []string{
		"2023-11-04T18:30:05Z",
		"2023-11-04T18:30:05.734Z",
		"2023-11-04T10:30:05-08:00",
		"2023-11-04T18:30:05",
		"2023-11-04 18:30:05",
		" 2023-11-04T18:30:05Z ",
	}

	for _, value := range tests {
		t.Run(value, func(t *testing.T) {
			parsed, err := ParseTimestamp(value)
			require.NoError(t, err)
			assert.True(t, expected.Equal(parsed), "got %s", parsed)
		})
	}

	_, err := ParseTimestamp("")
	assert.Error(t, err)
	_, err = ParseTimestamp("18:30")
	assert.Error(t, err)
}

func TestExpectedArrival(t *testing.T) {
	var missing *MonitoredStopVisit
	_, ok := missing.ExpectedArrival()
	assert.False(t, ok)

	_, ok = (&MonitoredStopVisit{MonitoredVehicleJourney: &MonitoredVehicleJourney{}}).ExpectedArrival()
	assert.False(t, ok)

	visit := &MonitoredStopVisit{MonitoredVehicleJourney: &MonitoredVehicleJourney{
		MonitoredCall: &MonitoredCall{ExpectedArrivalTime: "2023-11-04T18:36:59Z"},
	}}
	arrival, ok := visit.ExpectedArrival()
	assert.True(t, ok)
	assert.Equal(t, 59, arrival.Second())
}
