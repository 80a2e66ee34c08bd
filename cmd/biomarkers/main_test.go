package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"biotwin/config"
	"biotwin/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) *config.Config {
	return &config.Config{
		TerraBaseURL:      url,
		TerraDevID:        "dev",
		TerraAPIKey:       "key",
		TerraUserID:       "user",
		TerraDefaultStart: "2021-06-01",
		TerraDefaultEnd:   "2021-06-07",
		TerraTimeout:      time.Second,
	}
}

func TestRun_UnknownEndpoint(t *testing.T) {
	err := run(testConfig("http://unused"), services.Endpoint("weight"), services.DateRange{})
	assert.EqualError(t, err, `unknown endpoint "weight", want sleep or daily`)
}

func TestRun_MissingCredentials(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.TerraAPIKey = ""

	err := run(cfg, services.EndpointSleep, services.DateRange{})
	assert.EqualError(t, err, "missing required configuration: TERRA_API_KEY")
	assert.False(t, called)
}

func TestRun_Fetch(t *testing.T) {
	var path, start string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		start = r.URL.Query().Get("start_date")
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	err := run(testConfig(srv.URL), services.EndpointActivity, services.DateRange{StartDate: "2023-01-01"})
	require.NoError(t, err)
	assert.Equal(t, "/v2/daily", path)
	assert.Equal(t, "2023-01-01", start)
}

func TestRun_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := run(testConfig(srv.URL), services.EndpointSleep, services.DateRange{})
	var statusErr *services.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}
