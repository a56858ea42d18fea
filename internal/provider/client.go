// Package provider is the HTTP client of the NSRDB data provider: sample-point
// discovery, direct CSV download and job submission. Every request goes
// through one shared rate limiter.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tigerroll/nsrdb2epw/internal/domain/model"
	metrics "github.com/tigerroll/nsrdb2epw/pkg/batch/core/metrics"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
)

const moduleName = "provider"

// discoveryQuery is the fixed sample query sent to the discovery endpoint.
// Only wkt and dataset vary; the rest are placeholders the endpoint ignores
// when it generates the sample script.
const discoveryQuery = "?email=insert.your.email%%40fake.com&wkt=%s&attributes=dew_point" +
	"&names=%%272023%%27,%%272021%%27&interval=15&to_utc=false" +
	"&api_key=%%7B%%7BYOUR_API_KEY%%7D%%7D&dataset=%s"

// maxErrorBody caps how much of an error response is kept in the error message.
const maxErrorBody = 512

// Options configures a Client.
type Options struct {
	DiscoveryURL    string
	DownloadBaseURL string
	// RateInterval is the minimum spacing between two requests; zero disables limiting.
	RateInterval time.Duration
	// Timeout bounds each request; zero means no per-request timeout.
	Timeout time.Duration
	// HTTPClient is used when set; tests point it at an httptest server.
	HTTPClient *http.Client
}

// Query is one data request: a single year for a group of points.
type Query struct {
	// Dataset is the provider-side dataset name (e.g. nsrdb-GOES-conus-v4-0-0).
	Dataset    string
	Attributes []string
	Interval   int
	APIKey     string
	Email      string
	// Name is the requested year (or TMY name) sent as "names".
	Name        string
	LocationIDs model.PointGroup
}

// values encodes the shared field set of CSV and job requests.
func (q Query) values() url.Values {
	v := url.Values{}
	v.Set("attributes", strings.Join(q.Attributes, ","))
	v.Set("interval", strconv.Itoa(q.Interval))
	v.Set("to_utc", "false")
	v.Set("api_key", q.APIKey)
	v.Set("email", q.Email)
	v.Set("names", q.Name)
	v.Set("location_ids", q.LocationIDs.String())
	return v
}

// Client talks to the provider.
type Client struct {
	opts     Options
	http     *http.Client
	limiter  *rate.Limiter
	recorder metrics.MetricRecorder
	tracer   metrics.Tracer
}

// NewClient creates a new Client. recorder and tracer may be nil.
func NewClient(opts Options, recorder metrics.MetricRecorder, tracer metrics.Tracer) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	limit := rate.Inf
	if opts.RateInterval > 0 {
		limit = rate.Every(opts.RateInterval)
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &Client{
		opts:     opts,
		http:     httpClient,
		limiter:  rate.NewLimiter(limit, 1),
		recorder: recorder,
		tracer:   tracer,
	}
}

// CSVEndpoint returns the direct-CSV download URL of dataset.
func (c *Client) CSVEndpoint(dataset string) string {
	return strings.TrimRight(c.opts.DownloadBaseURL, "/") + "/" + dataset + "-download.csv"
}

// JobEndpoint returns the job-submission URL of dataset.
func (c *Client) JobEndpoint(dataset string) string {
	return strings.TrimRight(c.opts.DownloadBaseURL, "/") + "/" + dataset + "-download.json"
}

type discoveryResponse struct {
	Outputs struct {
		Script *string `json:"script"`
	} `json:"outputs"`
}

// Discover asks the provider for the sample script covering wkt and returns
// the script text unparsed.
func (c *Client) Discover(ctx context.Context, wkt, dataset string) (string, error) {
	reqURL := c.opts.DiscoveryURL + fmt.Sprintf(discoveryQuery, strings.ReplaceAll(wkt, " ", "+"), url.QueryEscape(dataset))
	logger.Debugf("Discovering sample points: %s", reqURL)

	body, err := c.do(ctx, metrics.RequestDiscovery, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	})
	if err != nil {
		return "", err
	}

	var resp discoveryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", c.fail(ctx, exception.UpstreamProtocol(moduleName, "discovery response is not valid JSON", err))
	}
	if resp.Outputs.Script == nil {
		return "", c.fail(ctx, exception.Newf(exception.KindUpstreamProtocol, moduleName, "discovery response has no outputs.script"))
	}
	return *resp.Outputs.Script, nil
}

// DownloadCSV fetches the CSV body of a single-point request.
func (c *Client) DownloadCSV(ctx context.Context, q Query) ([]byte, error) {
	if len(q.LocationIDs) != 1 {
		return nil, exception.Newf(exception.KindConfiguration, moduleName,
			"direct CSV download supports exactly one point per request, got %d", len(q.LocationIDs))
	}
	reqURL := c.CSVEndpoint(q.Dataset) + "?" + q.values().Encode()
	logger.Debugf("Downloading CSV for point %s, name %s.", q.LocationIDs, q.Name)

	return c.do(ctx, metrics.RequestCSV, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	})
}

type jobResponse struct {
	Errors  *[]string `json:"errors"`
	Outputs struct {
		DownloadURL string `json:"downloadUrl"`
		Message     string `json:"message"`
	} `json:"outputs"`
}

// SubmitJob posts an asynchronous download request and returns the job
// descriptor. It does not wait for the job.
func (c *Client) SubmitJob(ctx context.Context, q Query) (model.JobSubmission, error) {
	endpoint := c.JobEndpoint(q.Dataset)
	form := q.values().Encode()

	body, err := c.do(ctx, metrics.RequestJob, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("x-api-key", q.APIKey)
		return req, nil
	})
	if err != nil {
		return model.JobSubmission{}, err
	}

	var resp jobResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.JobSubmission{}, c.fail(ctx,
			exception.UpstreamProtocol(moduleName, fmt.Sprintf("job response could not be parsed as JSON: %s", truncate(body)), err))
	}
	if resp.Errors == nil {
		return model.JobSubmission{}, c.fail(ctx,
			exception.Newf(exception.KindUpstreamProtocol, moduleName, "job response has no errors field"))
	}
	if len(*resp.Errors) > 0 {
		return model.JobSubmission{}, c.fail(ctx,
			exception.Newf(exception.KindUpstreamProtocol, moduleName, "the request errored out: %s", strings.Join(*resp.Errors, "; ")))
	}
	return model.JobSubmission{DownloadURL: resp.Outputs.DownloadURL, Message: resp.Outputs.Message}, nil
}

// do waits for the limiter, sends the request built by build under the
// per-request timeout, and returns the body of a 200 response.
func (c *Client) do(ctx context.Context, kind string, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s request not sent: %w", kind, err)
	}

	reqCtx := ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	req, err := build(reqCtx)
	if err != nil {
		return nil, exception.Configuration(moduleName, fmt.Sprintf("failed to create %s request", kind), err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, kind, fmt.Sprintf("%s request failed", kind), start, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(ctx, kind, fmt.Sprintf("failed to read %s response", kind), start, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.recorder.RecordRequest(ctx, kind, exception.KindUpstreamProtocol.String(), time.Since(start))
		return nil, c.fail(ctx, exception.Newf(exception.KindUpstreamProtocol, moduleName,
			"%s request returned %s: %s", kind, resp.Status, truncate(body)))
	}

	c.recorder.RecordRequest(ctx, kind, "ok", time.Since(start))
	logger.Debugf("%s request completed in %s (%d bytes).", kind, time.Since(start), len(body))
	return body, nil
}

// transportError classifies a failure to send a request or read its body.
// Cancellation of ctx is returned as is. A per-request timeout fails one
// unit, not the run, so the deadline is not wrapped.
func (c *Client) transportError(ctx context.Context, kind, message string, start time.Time, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		c.recorder.RecordRequest(ctx, kind, "cancelled", time.Since(start))
		return fmt.Errorf("%s request aborted: %w", kind, ctxErr)
	}
	c.recorder.RecordRequest(ctx, kind, exception.KindUpstreamProtocol.String(), time.Since(start))
	if errors.Is(err, context.DeadlineExceeded) {
		return c.fail(ctx, exception.Newf(exception.KindUpstreamProtocol, moduleName,
			"%s: timed out after %s", message, c.opts.Timeout))
	}
	return c.fail(ctx, exception.UpstreamProtocol(moduleName, message, err))
}

// fail records err on the current span.
func (c *Client) fail(ctx context.Context, err error) error {
	c.tracer.RecordError(ctx, moduleName, err)
	return err
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
