package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nsrdb2epw/internal/app"
	"github.com/tigerroll/nsrdb2epw/internal/config"
	"github.com/tigerroll/nsrdb2epw/internal/job"
	"github.com/tigerroll/nsrdb2epw/pkg/epw"
)

const pointCSV = "Source,Location ID,City,State,Country,Latitude,Longitude,Time Zone,Elevation,Local Time Zone\n" +
	"NSRDB,123456,-,-,-,42.44,-76.5,0,287,-5\n" +
	"Year,Month,Day,Hour,Minute,Temperature,Dew Point,Pressure,GHI,DNI,DHI,Wind Direction,Wind Speed,Surface Albedo\n" +
	"2020,1,1,0,0,20,10,1013,0,0,0,241.3,3.2,0.87\n" +
	"2020,1,1,1,0,19,10,1013,0,0,0,245.0,3.0,0.87\n"

func newProviderServer(t *testing.T, downloads *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/sample-code":
			w.Write([]byte(`{"outputs":{"script":"POINTS = [\n 123456\n]"}}`))
		case strings.HasSuffix(r.URL.Path, "-download.csv"):
			downloads.Add(1)
			w.Write([]byte(pointCSV))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOptions(t *testing.T, srv *httptest.Server) (app.Options, string) {
	t.Helper()
	dir := t.TempDir()
	out := filepath.Join(dir, "results")
	return app.Options{
		EnvFilePath: filepath.Join(dir, "missing.env"),
		Embedded:    config.EmbeddedConfig("nsrdb2epw:\n  request:\n    years: [\"2020\"]\n"),
		Override: func(cfg *config.Config) {
			cfg.App.System.Logging.Level = "ERROR"
			cfg.App.Request.Geometry = "POINT(-76.5 42.44)"
			cfg.App.Request.APIKey = "test-key"
			cfg.App.Provider.DiscoveryURL = srv.URL + "/sample-code"
			cfg.App.Provider.DownloadBaseURL = srv.URL + "/solar"
			cfg.App.Provider.RateIntervalMillis = 0
			cfg.App.Output.Dir = out
			cfg.App.Output.Location = "Ithaca"
			cfg.App.Export.Parquet.Enabled = true
			cfg.App.Ledger.Enabled = true
			cfg.App.Database = map[string]interface{}{
				"ledger": map[string]interface{}{"type": "sqlite", "database": filepath.Join(dir, "ledger.db")},
			}
		},
	}, out
}

func TestRunApplication_EndToEnd(t *testing.T) {
	var downloads atomic.Int32
	srv := newProviderServer(t, &downloads)
	opts, out := testOptions(t, srv)

	var report *job.Report
	err := app.RunApplication(context.Background(), opts, func(ctx context.Context, c app.Components) error {
		require.NoError(t, c.Config.ValidateRequest())
		var err error
		report, err = c.Job.Run(ctx, app.RunParamsFromConfig(c.Config))
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, int32(1), downloads.Load())
	require.Len(t, report.Written, 1)
	require.Len(t, report.Parquet, 1)

	epwPath := filepath.Join(out, "Ithaca_42.44_-76.5_2020.epw")
	assert.Equal(t, epwPath, report.Written[0])
	f, err := os.Open(epwPath)
	require.NoError(t, err)
	defer f.Close()
	doc, err := epw.Decode(f)
	require.NoError(t, err)
	loc, err := doc.Header.Location()
	require.NoError(t, err)
	assert.Equal(t, "Ithaca", loc.City)
	assert.Equal(t, epw.HoursPerYear, doc.Table.Len())
	assert.Equal(t, 53.0, doc.Table.Rows[0][epw.RelativeHumidity])

	_, err = os.Stat(filepath.Join(out, "123456_2020.csv"))
	assert.NoError(t, err)
}

func TestRunApplication_InvalidConfiguration(t *testing.T) {
	var downloads atomic.Int32
	opts, _ := testOptions(t, newProviderServer(t, &downloads))
	base := opts.Override
	opts.Override = func(cfg *config.Config) {
		base(cfg)
		cfg.App.Transform.Alignment = "diagonal"
	}

	called := false
	err := app.RunApplication(context.Background(), opts, func(ctx context.Context, c app.Components) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.Contains(t, err.Error(), "transform.alignment")
}
