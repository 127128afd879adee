package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rainelz/booko/internal/common/apperrors"
	"github.com/Rainelz/booko/internal/common/httpclient"
	"github.com/Rainelz/booko/internal/common/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "booko-test", httpclient.New(2*time.Second), logger.NewTestLogger(t))
	return client, srv
}

func TestResolve_SingleMatch(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "piazza duomo Milan", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "booko-test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"display_name":"Piazza del Duomo, Milano","lat":"45.4641","lon":"9.1919"}]`))
	})

	result, err := client.Resolve(context.Background(), "piazza duomo Milan")
	require.NoError(t, err)

	assert.False(t, result.Ambiguous)
	assert.Equal(t, "Piazza del Duomo, Milano", result.DisplayName)
	assert.InDelta(t, 45.4641, result.Coordinate.Lat, 1e-9)
	assert.InDelta(t, 9.1919, result.Coordinate.Lon, 1e-9)
}

func TestResolve_MultipleMatchesPicksFirstAndFlags(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"display_name":"Via Roma, Milano","lat":"45.46","lon":"9.19"},
			{"display_name":"Via Roma, Torino","lat":"45.07","lon":"7.68"}
		]`))
	})

	result, err := client.Resolve(context.Background(), "via roma")
	require.NoError(t, err)

	assert.True(t, result.Ambiguous)
	assert.Equal(t, "Via Roma, Milano", result.DisplayName)
	assert.InDelta(t, 45.46, result.Coordinate.Lat, 1e-9)
}

func TestResolve_NoMatches(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	result, err := client.Resolve(context.Background(), "xyzzy nowhere")
	assert.Nil(t, result)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAddressNotFound))
}

func TestResolve_UpstreamError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	result, err := client.Resolve(context.Background(), "anywhere")
	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestResolve_BadCoordinatePayload(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"display_name":"broken","lat":"not-a-number","lon":"9.19"}]`))
	})

	result, err := client.Resolve(context.Background(), "anywhere")
	assert.Nil(t, result)
	assert.Error(t, err)
}
