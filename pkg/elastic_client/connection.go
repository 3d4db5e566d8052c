package elastic_client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/rs/zerolog/log"
	"github.com/travigo/arrivalsign/pkg/util"
)

var Client *elasticsearch.Client
var bulkIndexer esutil.BulkIndexer

const flushInterval = 15 * time.Second

// Settings is where poll events are sent. An empty Address disables indexing.
type Settings struct {
	Address  string
	Username string
	Password string
	Insecure bool
}

func SettingsFromEnvironment() Settings {
	env := util.GetEnvironmentVariables()

	return Settings{
		Address:  env["ARRIVALSIGN_ELASTICSEARCH_ADDRESS"],
		Username: env["ARRIVALSIGN_ELASTICSEARCH_USERNAME"],
		Password: env["ARRIVALSIGN_ELASTICSEARCH_PASSWORD"],
		Insecure: env["ARRIVALSIGN_ELASTICSEARCH_INSECURE"] == "YES",
	}
}

// clientConfig retries overloaded responses with a bounded exponential back
// off, restarted for every request.
func (s Settings) clientConfig() elasticsearch.Config {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if s.Insecure {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.InsecureSkipVerify = true
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = time.Second
	retry.MaxInterval = 30 * time.Second

	return elasticsearch.Config{
		Addresses: []string{s.Address},
		Username:  s.Username,
		Password:  s.Password,
		Transport: transport,

		RetryOnStatus: []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
		MaxRetries:    5,
		RetryBackoff: func(attempt int) time.Duration {
			if attempt == 1 {
				retry.Reset()
			}
			return retry.NextBackOff()
		},
	}
}

// Connect sets up the shared client from the environment. Without an address
// indexing is silently disabled unless required is true.
func Connect(required bool) error {
	settings := SettingsFromEnvironment()

	if settings.Address == "" {
		if required {
			return fmt.Errorf("elasticsearch address not set")
		}

		log.Info().Msg("Skipping Elasticsearch setup")
		return nil
	}

	return ConnectWith(settings)
}

func ConnectWith(settings Settings) error {
	es, err := elasticsearch.NewClient(settings.clientConfig())
	if err != nil {
		return err
	}

	if _, err := es.Info(); err != nil {
		return err
	}

	indexer, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        es,
		FlushInterval: flushInterval,
	})
	if err != nil {
		return err
	}

	Client = es
	bulkIndexer = indexer

	log.Info().Msgf("Elasticsearch client setup for %s", settings.Address)

	return nil
}

func Enabled() bool {
	return Client != nil && bulkIndexer != nil
}

// MonthlyIndex names the index a document stamped at timestamp belongs to,
// eg arrivalsign-polls-2023-11.
func MonthlyIndex(prefix string, timestamp time.Time) string {
	timestamp = timestamp.UTC()

	return fmt.Sprintf("%s-%d-%02d", prefix, timestamp.Year(), timestamp.Month())
}

// IndexDocument queues document as JSON into its monthly index.
func IndexDocument(prefix string, timestamp time.Time, document any) error {
	if !Enabled() {
		return nil
	}

	documentJSON, err := json.Marshal(document)
	if err != nil {
		return err
	}

	IndexRequest(MonthlyIndex(prefix, timestamp), bytes.NewReader(documentJSON))

	return nil
}

func IndexRequest(indexName string, document io.ReadSeeker) {
	if !Enabled() {
		return
	}

	item := esutil.BulkIndexerItem{
		Index:  indexName,
		Action: "index",
		Body:   document,
		OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
			event := log.Error().Str("index", indexName)
			if err == nil {
				event = event.Str("type", res.Error.Type).Str("reason", res.Error.Reason)
			} else {
				event = event.Err(err)
			}
			event.Msg("Failed to index document")
		},
	}

	if err := bulkIndexer.Add(context.Background(), item); err != nil {
		log.Error().Err(err).Str("index", indexName).Msg("Failed to queue document for indexing")
	}
}

func WaitUntilQueueEmpty() {
	if !Enabled() {
		return
	}

	if err := bulkIndexer.Close(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to flush Elasticsearch bulk indexer")
	}
}
