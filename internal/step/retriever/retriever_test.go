package retriever

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nsrdb2epw/internal/domain/model"
	"github.com/tigerroll/nsrdb2epw/internal/provider"
	storage "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
)

const sampleCSV = "Source,Location ID,Latitude,Longitude,Local Time Zone,Elevation\n" +
	"NSRDB,123456,42.44,-76.5,-5,287\n" +
	"Year,Month,Day,Hour,Minute,Temperature,Dew Point\n" +
	"2020,1,1,0,0,1.0,0.5\n"

type fakeClient struct {
	mu      sync.Mutex
	queries []provider.Query
	failOn  map[string]error
	body    []byte
}

func (f *fakeClient) record(q provider.Query) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.failOn[q.Name+"/"+q.LocationIDs.String()]
}

func (f *fakeClient) DownloadCSV(ctx context.Context, q provider.Query) ([]byte, error) {
	if err := f.record(q); err != nil {
		return nil, err
	}
	if f.body != nil {
		return f.body, nil
	}
	return []byte(sampleCSV), nil
}

func (f *fakeClient) SubmitJob(ctx context.Context, q provider.Query) (model.JobSubmission, error) {
	if err := f.record(q); err != nil {
		return model.JobSubmission{}, err
	}
	return model.JobSubmission{DownloadURL: "https://example.com/" + q.Name + ".zip", Message: "queued"}, nil
}

func newConn(t *testing.T) (storage.StorageConnection, string) {
	dir := filepath.Join(t.TempDir(), "results")
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: local.ProviderType, BaseDir: dir}, "results")
	require.NoError(t, err)
	return conn, dir
}

func csvRequest(groups ...model.PointGroup) Request {
	return Request{
		Mode:       ModeCSV,
		Groups:     groups,
		Years:      []string{"2019", "2020"},
		Dataset:    "CONUS",
		Interval:   60,
		Attributes: []string{"ghi"},
		APIKey:     "k",
		Email:      "e@example.com",
	}
}

func TestUnitsOrder(t *testing.T) {
	units := csvRequest(model.PointGroup{1}, model.PointGroup{2}).Units()
	var keys []string
	for _, u := range units {
		keys = append(keys, u.Key())
	}
	assert.Equal(t, []string{"2019/1", "2019/2", "2020/1", "2020/2"}, keys)
	assert.Equal(t, 1, units[3].Index)
	assert.Equal(t, 2, units[3].Total)
}

func TestRetrieveAll_CSV(t *testing.T) {
	conn, dir := newConn(t)
	client := &fakeClient{}
	r := NewRetriever(client, conn, "", nil)

	artifacts, err := r.RetrieveAll(context.Background(), csvRequest(model.PointGroup{11}, model.PointGroup{22}))
	require.NoError(t, err)
	require.Len(t, artifacts, 4)

	assert.Equal(t, "11_2019.csv", artifacts[0].Location)
	assert.Equal(t, model.PointID(22), artifacts[3].Point)
	assert.Equal(t, 42.44, artifacts[0].Series.Site.Latitude)
	for _, name := range []string{"11_2019.csv", "22_2019.csv", "11_2020.csv", "22_2020.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	require.Len(t, client.queries, 4)
	assert.Equal(t, "nsrdb-GOES-conus-v4-0-0", client.queries[0].Dataset)
	assert.Equal(t, "2019", client.queries[0].Name)
}

func TestRetrieveAll_AbortsOnFirstFailure(t *testing.T) {
	conn, _ := newConn(t)
	cause := exception.Newf(exception.KindUpstreamProtocol, "provider", "csv request returned 500")
	client := &fakeClient{failOn: map[string]error{"2019/22": cause}}

	artifacts, err := NewRetriever(client, conn, "", nil).
		RetrieveAll(context.Background(), csvRequest(model.PointGroup{11}, model.PointGroup{22}, model.PointGroup{33}))
	assert.Equal(t, cause, err)
	assert.Len(t, artifacts, 1)
	assert.Len(t, client.queries, 2)
}

func TestRetrieve_ContinuesWhenCallerDoes(t *testing.T) {
	conn, _ := newConn(t)
	client := &fakeClient{failOn: map[string]error{"2019/22": errors.New("boom")}}

	var failed, ok int
	for o := range NewRetriever(client, conn, "", nil).Retrieve(context.Background(), csvRequest(model.PointGroup{11}, model.PointGroup{22})) {
		if o.Failed() {
			failed++
		} else {
			ok++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 3, ok)
}

func TestRetrieve_MultiPointGroupInCSVMode(t *testing.T) {
	conn, _ := newConn(t)
	client := &fakeClient{}

	_, err := NewRetriever(client, conn, "", nil).RetrieveAll(context.Background(), csvRequest(model.PointGroup{1, 2}))
	assert.True(t, errors.Is(err, exception.ErrConfiguration))
	assert.Empty(t, client.queries)
}

func TestRetrieve_JobMode(t *testing.T) {
	conn, dir := newConn(t)
	client := &fakeClient{}
	req := csvRequest(model.PointGroup{1, 2})
	req.Mode = ModeJob

	var jobs []*model.JobSubmission
	for o := range NewRetriever(client, conn, "", nil).Retrieve(context.Background(), req) {
		require.NoError(t, o.Err)
		assert.Nil(t, o.Artifact)
		jobs = append(jobs, o.Job)
	}
	require.Len(t, jobs, 2)
	assert.Equal(t, "https://example.com/2020.zip", jobs[1].DownloadURL)
	assert.Equal(t, "1,2", client.queries[0].LocationIDs.String())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRetrieve_InvalidRequest(t *testing.T) {
	conn, _ := newConn(t)
	req := csvRequest(model.PointGroup{1})
	req.Dataset = "MARS"

	var outcomes []model.Outcome
	for o := range NewRetriever(&fakeClient{}, conn, "", nil).Retrieve(context.Background(), req) {
		outcomes = append(outcomes, o)
	}
	require.Len(t, outcomes, 1)
	assert.True(t, errors.Is(outcomes[0].Err, exception.ErrConfiguration))
}

func TestRetrieve_StopsWhenConsumerBreaks(t *testing.T) {
	conn, _ := newConn(t)
	client := &fakeClient{}
	for range NewRetriever(client, conn, "", nil).Retrieve(context.Background(), csvRequest(model.PointGroup{1}, model.PointGroup{2})) {
		break
	}
	assert.Len(t, client.queries, 1)
}

func TestRetrieveUnit_UnparseableBodyIsStillPersisted(t *testing.T) {
	conn, dir := newConn(t)
	client := &fakeClient{body: []byte("<html>oops</html>")}
	req := csvRequest(model.PointGroup{7})

	o := NewRetriever(client, conn, "", nil).RetrieveUnit(context.Background(), req, req.Units()[0])
	assert.True(t, errors.Is(o.Err, exception.ErrUpstreamProtocol))
	_, err := os.Stat(filepath.Join(dir, "7_2019.csv"))
	assert.NoError(t, err)
}

func TestRetrieveUnit_LogsEachYearOnce(t *testing.T) {
	var buf bytes.Buffer
	level := logger.GetLogLevel()
	logger.SetLogLevel("INFO")
	logger.SetOutput(&buf)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
		logger.SetLogLevel(level.String())
	})

	conn, _ := newConn(t)
	r := NewRetriever(&fakeClient{}, conn, "", nil)
	req := csvRequest(model.PointGroup{1}, model.PointGroup{2})
	for _, unit := range req.Units() {
		require.NoError(t, r.RetrieveUnit(context.Background(), req, unit).Err)
	}

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "Processing name: 2019"))
	assert.Equal(t, 1, strings.Count(out, "Processing name: 2020"))
	assert.Equal(t, 2, strings.Count(out, "Making request for point group 1 of 2"))
}
