package transit511

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://api.511.org/transit"

// 511.org compresses every body. Anything bigger than this is not a stop's
// worth of predictions.
const maxBodySize = 4 << 20

var TransportError = errors.New("transit api request failed")

// Response is the raw outcome of a request. It is returned for every HTTP
// status so the caller can report non-2xx codes and their reason phrase.
type Response struct {
	StatusCode int
	Reason     string
	Header     http.Header
	Body       []byte
}

func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Format     string
}

func NewClient(baseURL string, apiKey string, format string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		APIKey:     apiKey,
		Format:     format,
	}
}

func (c *Client) commandURL(command string, parameters url.Values) string {
	parameters.Set("api_key", c.APIKey)
	parameters.Set("format", c.Format)

	return fmt.Sprintf("%s%s?%s", c.BaseURL, command, parameters.Encode())
}

// PredictionsForStopCode requests the StopMonitoring predictions for a stop.
// The body is returned still compressed.
func (c *Client) PredictionsForStopCode(ctx context.Context, agency string, stopCode string) (*Response, error) {
	parameters := url.Values{}
	parameters.Set("agency", agency)
	parameters.Set("stopCode", stopCode)

	return c.get(ctx, c.commandURL("/StopMonitoring", parameters))
}

func (c *Client) get(ctx context.Context, requestURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", TransportError, err)
	}
	// Setting this ourselves stops net/http from transparently inflating the body
	req.Header.Set("Accept-Encoding", "gzip")

	log.Debug().Str("url", redactKey(requestURL)).Msg("Requesting predictions")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", TransportError, redactKey(err.Error()))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", TransportError, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp),
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// reasonPhrase pulls the text after the code out of the status line.
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}

	return reason
}

func redactKey(value string) string {
	index := strings.Index(value, "api_key=")
	if index < 0 {
		return value
	}

	start := index + len("api_key=")
	end := strings.IndexAny(value[start:], "&\" ")
	if end < 0 {
		return value[:start] + "REDACTED"
	}

	return value[:start] + "REDACTED" + value[start+end:]
}
