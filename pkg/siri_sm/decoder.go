package siri_sm

import (
	"bufio"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

var DecodeError = errors.New("malformed compressed response body")
var FormatError = errors.New("malformed stop monitoring document")

const (
	gzipID1     = 0x1f
	gzipID2     = 0x8b
	gzipDeflate = 8

	gzipHeaderLength = 10

	flagText    = 1 << 0
	flagHCRC    = 1 << 1
	flagExtra   = 1 << 2
	flagName    = 1 << 3
	flagComment = 1 << 4
)

// DecodeResponseBody turns a raw 511.org response body into a parsed document.
// Gzip framing is stripped by hand and the payload inflated as raw deflate; the
// gzip trailer is never read. Bodies that arrive uncompressed are parsed as is.
func DecodeResponseBody(body []byte, format Format) (*StopMonitoring, error) {
	var payload io.Reader

	if isGzip(body) {
		offset, err := gzipPayloadOffset(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", DecodeError, err)
		}

		inflater := flate.NewReader(bytes.NewReader(body[offset:]))
		defer inflater.Close()

		payload = &decodeErrorReader{reader: inflater}
	} else if looksLikeDocument(body) {
		payload = bytes.NewReader(body)
	} else {
		return nil, fmt.Errorf("%w: unrecognised body encoding", DecodeError)
	}

	var document *StopMonitoring
	var err error

	switch format {
	case FormatXML:
		document, err = ParseXML(payload)
	default:
		document, err = ParseJSON(payload)
	}

	// Inflate failures surface through the parser, report them as such
	var inflateErr *inflateError
	if errors.As(err, &inflateErr) {
		return nil, fmt.Errorf("%w: %w", DecodeError, inflateErr.err)
	}

	return document, err
}

// ParseJSON parses a decompressed JSON document. The UTF-8 byte order mark
// 511.org prefixes to every body is removed first.
func ParseJSON(reader io.Reader) (*StopMonitoring, error) {
	document := StopMonitoring{}

	text := transform.NewReader(reader, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	if err := json.NewDecoder(text).Decode(&document); err != nil {
		return nil, wrapParseError(err)
	}

	return finishDocument(&document)
}

func ParseXML(reader io.Reader) (*StopMonitoring, error) {
	document := StopMonitoring{}

	text := transform.NewReader(reader, unicode.BOMOverride(transform.Nop))
	d := xml.NewDecoder(text)
	d.CharsetReader = charset.NewReaderLabel
	if err := d.Decode(&document); err != nil {
		return nil, wrapParseError(err)
	}

	return finishDocument(&document)
}

func finishDocument(document *StopMonitoring) (*StopMonitoring, error) {
	timestamp := document.ServiceDelivery.StopMonitoringDelivery.ResponseTimestamp
	if timestamp == "" {
		timestamp = document.ServiceDelivery.ResponseTimestamp
	}

	responseTime, err := ParseTimestamp(timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: response timestamp: %w", FormatError, err)
	}
	document.ResponseTime = responseTime

	return document, nil
}

func wrapParseError(err error) error {
	var inflateErr *inflateError
	if errors.As(err, &inflateErr) {
		return err
	}

	return fmt.Errorf("%w: %w", FormatError, err)
}

func isGzip(body []byte) bool {
	return len(body) >= 2 && body[0] == gzipID1 && body[1] == gzipID2
}

// gzipPayloadOffset returns where the deflate stream starts, skipping the
// fixed 10 byte header and any optional header fields the flags announce.
func gzipPayloadOffset(body []byte) (int, error) {
	if len(body) < gzipHeaderLength {
		return 0, fmt.Errorf("truncated gzip header")
	}
	if body[2] != gzipDeflate {
		return 0, fmt.Errorf("unsupported compression method %d", body[2])
	}

	flags := body[3]
	offset := gzipHeaderLength

	if flags&flagExtra != 0 {
		if len(body) < offset+2 {
			return 0, fmt.Errorf("truncated gzip extra field")
		}
		offset += 2 + (int(body[offset]) | int(body[offset+1])<<8)
	}

	for _, flag := range []byte{flagName, flagComment} {
		if flags&flag == 0 {
			continue
		}
		end := bytes.IndexByte(body[min(offset, len(body)):], 0)
		if end < 0 {
			return 0, fmt.Errorf("unterminated gzip header string")
		}
		offset += end + 1
	}

	if flags&flagHCRC != 0 {
		offset += 2
	}

	if offset > len(body) {
		return 0, fmt.Errorf("truncated gzip header")
	}

	return offset, nil
}

func looksLikeDocument(body []byte) bool {
	reader := bufio.NewReader(transform.NewReader(bytes.NewReader(body), unicode.BOMOverride(transform.Nop)))

	for {
		r, _, err := reader.ReadRune()
		if err != nil {
			return false
		}

		switch r {
		case ' ', '\t', '\r', '\n':
			continue
		case '{', '<':
			return true
		default:
			return false
		}
	}
}

type inflateError struct {
	err error
}

func (e *inflateError) Error() string {
	return e.err.Error()
}

func (e *inflateError) Unwrap() error {
	return e.err
}

// decodeErrorReader tags errors from the inflater so they are not mistaken for
// document syntax errors further up.
type decodeErrorReader struct {
	reader io.Reader
}

func (d *decodeErrorReader) Read(p []byte) (int, error) {
	n, err := d.reader.Read(p)
	if err != nil && err != io.EOF {
		return n, &inflateError{err: err}
	}

	return n, err
}
