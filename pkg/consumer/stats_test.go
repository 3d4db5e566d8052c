package consumer

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/arrivalsign/pkg/redis_client"
)

func TestHealthHandler(t *testing.T) {
	redis_client.Client = nil

	recorder := httptest.NewRecorder()
	NewHealthHandler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)

	server := miniredis.RunT(t)
	require.NoError(t, redis_client.ConnectTo(&redis.Options{Addr: server.Addr()}))
	t.Cleanup(func() { redis_client.Client = nil })

	recorder = httptest.NewRecorder()
	NewHealthHandler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "OK", recorder.Body.String())

	server.Close()

	recorder = httptest.NewRecorder()
	NewHealthHandler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestStatsHandler(t *testing.T) {
	server := miniredis.RunT(t)
	require.NoError(t, redis_client.ConnectTo(&redis.Options{Addr: server.Addr()}))
	t.Cleanup(func() { redis_client.Client = nil })

	_, err := redis_client.QueueConnection.OpenQueue("arrivalsign-frames")
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	NewStatsHandler(redis_client.QueueConnection).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/overview", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "arrivalsign-frames")
}
