package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nsrdb2epw/internal/domain/model"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
)

func newTestClient(srv *httptest.Server, opts Options) *Client {
	opts.DiscoveryURL = srv.URL + "/sample-code"
	opts.DownloadBaseURL = srv.URL + "/solar/"
	opts.HTTPClient = srv.Client()
	return NewClient(opts, nil, nil)
}

func testQuery() Query {
	return Query{
		Dataset:     "nsrdb-GOES-conus-v4-0-0",
		Attributes:  []string{"dew_point", "ghi"},
		Interval:    60,
		APIKey:      "secret",
		Email:       "me@example.com",
		Name:        "2020",
		LocationIDs: model.PointGroup{123},
	}
}

func TestDiscover(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sample-code", r.URL.Path)
		rawQuery = r.URL.RawQuery
		w.Write([]byte(`{"outputs":{"script":"POINTS = [\n 12, 34\n]"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, Options{})
	script, err := c.Discover(context.Background(), "POINT(-76.5 42.44)", "nsrdb-GOES-conus-v4-0-0")
	require.NoError(t, err)
	assert.Equal(t, "POINTS = [\n 12, 34\n]", script)
	assert.Contains(t, rawQuery, "wkt=POINT(-76.5+42.44)")
	assert.Contains(t, rawQuery, "dataset=nsrdb-GOES-conus-v4-0-0")
	assert.Contains(t, rawQuery, "names=%272023%27,%272021%27")
}

func TestDiscover_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv, Options{}).Discover(context.Background(), "POINT(0 0)", "d")
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrUpstreamProtocol))
}

func TestDownloadCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/solar/nsrdb-GOES-conus-v4-0-0-download.csv", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "dew_point,ghi", q.Get("attributes"))
		assert.Equal(t, "60", q.Get("interval"))
		assert.Equal(t, "false", q.Get("to_utc"))
		assert.Equal(t, "secret", q.Get("api_key"))
		assert.Equal(t, "me@example.com", q.Get("email"))
		assert.Equal(t, "2020", q.Get("names"))
		assert.Equal(t, "123", q.Get("location_ids"))
		w.Write([]byte("Source,Location ID\nNSRDB,123\n"))
	}))
	defer srv.Close()

	body, err := newTestClient(srv, Options{}).DownloadCSV(context.Background(), testQuery())
	require.NoError(t, err)
	assert.Equal(t, "Source,Location ID\nNSRDB,123\n", string(body))
}

func TestDownloadCSV_RejectsMultiPointGroup(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	q := testQuery()
	q.LocationIDs = model.PointGroup{1, 2}
	_, err := newTestClient(srv, Options{}).DownloadCSV(context.Background(), q)
	assert.True(t, errors.Is(err, exception.ErrConfiguration))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestDownloadCSV_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "over rate limit", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, Options{}).DownloadCSV(context.Background(), testQuery())
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrUpstreamProtocol))
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "over rate limit")
}

func TestSubmitJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/solar/nsrdb-GOES-conus-v4-0-0-download.json", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "123", r.PostForm.Get("location_ids"))
		assert.Equal(t, "2020", r.PostForm.Get("names"))
		w.Write([]byte(`{"errors":[],"outputs":{"downloadUrl":"https://example.com/job.zip","message":"File generation in progress."}}`))
	}))
	defer srv.Close()

	job, err := newTestClient(srv, Options{}).SubmitJob(context.Background(), testQuery())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/job.zip", job.DownloadURL)
	assert.Equal(t, "File generation in progress.", job.Message)
}

func TestSubmitJob_Failures(t *testing.T) {
	cases := map[string]string{
		"provider errors": `{"errors":["API key is invalid","bad wkt"]}`,
		"not json":        `Service Unavailable`,
		"no errors field": `{"outputs":{}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, body)
			}))
			defer srv.Close()

			_, err := newTestClient(srv, Options{}).SubmitJob(context.Background(), testQuery())
			require.Error(t, err)
			assert.True(t, errors.Is(err, exception.ErrUpstreamProtocol))
		})
	}
}

func TestRateLimiterSpacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := newTestClient(srv, Options{RateInterval: 50 * time.Millisecond})
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.DownloadCSV(context.Background(), testQuery())
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestClient(srv, Options{Timeout: 50 * time.Millisecond}).DownloadCSV(context.Background(), testQuery())
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrUpstreamProtocol))
	assert.False(t, exception.IsFatal(err))
}

func TestRequestTimeout_DuringBody(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Source,Location ID\n"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestClient(srv, Options{Timeout: 100 * time.Millisecond}).DownloadCSV(context.Background(), testQuery())
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrUpstreamProtocol))
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, exception.IsFatal(err))
	assert.Contains(t, err.Error(), "timed out")
}

func TestCancelledContextIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(srv, Options{}).DownloadCSV(ctx, testQuery())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, exception.IsFatal(err))
}
