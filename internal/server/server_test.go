package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danilshahmanov/Infotecs/config"
	"github.com/danilshahmanov/Infotecs/internal/metrics"
	"github.com/danilshahmanov/Infotecs/internal/storage/export"
	"github.com/danilshahmanov/Infotecs/internal/storage/ingestion"
	"github.com/danilshahmanov/Infotecs/internal/storage/parquet"
	"github.com/danilshahmanov/Infotecs/internal/storage/query"
	"github.com/danilshahmanov/Infotecs/internal/storage/types"
	"github.com/danilshahmanov/Infotecs/internal/store"
	testutil "github.com/danilshahmanov/Infotecs/internal/testing"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	store  *store.Store
	server *Server
}

func setupServer(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	st, err := store.New(store.Config{DSN: store.MemoryDSN, QueryTimeout: 30 * time.Second, BlobChunkSize: 16})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	collector := metrics.NewCollector()
	ingester, err := ingestion.New(st, ingestion.DefaultOptions(), collector)
	require.NoError(t, err)

	srv := New(cfg, Deps{
		Ingester: ingester,
		Exporter: export.New(st, 2, parquet.DefaultOptions(), collector),
		Querier:  query.New(st, collector),
		Files:    st,
		Metrics:  collector,
	})
	return &testEnv{store: st, server: srv}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, author, filename string, body []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(body)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("other", "x"))
	}
	require.NoError(t, mw.Close())

	target := "/science/files"
	if author != "" {
		target += "?authorName=" + author
	}
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (e *testEnv) upload(t *testing.T, filename string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, uploadRequest(t, "Ada", filename, body))
}

func TestUploadAndReadBack(t *testing.T) {
	env := setupServer(t, Config{})
	body := testutil.NewFileBuilder().Rows(testutil.BaseTime, 5).Raw("bad;row;x").Bytes()

	rec := env.upload(t, "run1.csv", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/science/values/run1.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var rows []struct {
		StartDateTime  time.Time `json:"startDateTime"`
		Duration       int64     `json:"duration"`
		IndicatorValue float64   `json:"indicatorValue"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 5)
	for i, row := range rows {
		assert.True(t, row.StartDateTime.Equal(testutil.BaseTime.Add(time.Duration(i)*time.Minute)))
		assert.Equal(t, int64(i+1), row.Duration)
		assert.Equal(t, float64(i+1), row.IndicatorValue)
	}
}

func TestUploadBrowserFileNames(t *testing.T) {
	env := setupServer(t, Config{})
	body := testutil.NewFileBuilder().Rows(testutil.BaseTime, 2).Bytes()

	tests := []struct {
		name string
		path string
	}{
		{"results (1).csv", "/science/values/results%20%281%29.csv"},
		{"a+b.csv", "/science/values/a+b.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.upload(t, tt.name, body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			rec = env.do(t, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}

func TestUploadMultipartMemory(t *testing.T) {
	env := setupServer(t, Config{})
	assert.Equal(t, int64(config.DefaultMultipartMemory), env.server.engine.MaxMultipartMemory)

	env = setupServer(t, Config{MultipartMemory: 512})
	assert.Equal(t, int64(512), env.server.engine.MaxMultipartMemory)

	body := testutil.NewFileBuilder().Rows(testutil.BaseTime, 100).Bytes()
	require.Greater(t, len(body), 512)

	rec := env.upload(t, "spill.csv", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/science/values/spill.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, 100)
}

func TestUploadMissingFile(t *testing.T) {
	env := setupServer(t, Config{})

	rec := env.do(t, uploadRequest(t, "Ada", "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "file is not uploaded", rec.Body.String())
}

func TestUploadMissingAuthor(t *testing.T) {
	env := setupServer(t, Config{})
	body := testutil.NewFileBuilder().Rows(testutil.BaseTime, 1).Bytes()

	rec := env.do(t, uploadRequest(t, "", "a.csv", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "authorName")
}

func TestUploadNoValidRows(t *testing.T) {
	env := setupServer(t, Config{})
	body := testutil.NewFileBuilder().Raw("2023-05-10_08-00-00;-1;1.0").Bytes()

	rec := env.upload(t, "empty.csv", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least 1")

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/science/values/empty.csv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadTooLarge(t *testing.T) {
	env := setupServer(t, Config{MaxUploadSize: 256})
	body := testutil.NewFileBuilder().Rows(testutil.BaseTime, 50).Bytes()

	rec := env.upload(t, "big.csv", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestValuesNotFound(t *testing.T) {
	env := setupServer(t, Config{})

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/science/values/nope.csv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "file with name 'nope.csv' is not found.", rec.Body.String())
}

func TestValuesParquet(t *testing.T) {
	env := setupServer(t, Config{})
	require.Equal(t, http.StatusOK, env.upload(t, "p.csv", testutil.NewFileBuilder().Rows(testutil.BaseTime, 7).Bytes()).Code)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/science/values/p.csv?format=parquet", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	data := rec.Body.Bytes()
	r, err := parquet.NewMeasurementReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, int64(7), r.NumRows())
}

func TestValuesUnknownFormat(t *testing.T) {
	env := setupServer(t, Config{})

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/science/values/a.csv?format=xml", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReuploadReplaces(t *testing.T) {
	env := setupServer(t, Config{})
	require.Equal(t, http.StatusOK, env.upload(t, "r.csv", testutil.NewFileBuilder().Rows(testutil.BaseTime, 6).Bytes()).Code)
	require.Equal(t, http.StatusOK, env.upload(t, "r.csv", testutil.NewFileBuilder().Rows(testutil.BaseTime, 2).Bytes()).Code)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/science/summaries/r.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var summary types.FileSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, int64(2), summary.Count)
	assert.Equal(t, 1.5, summary.MedianIndicator)
}

func TestSummaryNotFound(t *testing.T) {
	env := setupServer(t, Config{})

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/science/summaries/x.csv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummaryStoreClosed(t *testing.T) {
	env := setupServer(t, Config{})
	require.NoError(t, env.store.Close())

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/science/summaries/x.csv", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "store is closed")
}

func TestResults(t *testing.T) {
	env := setupServer(t, Config{})
	require.Equal(t, http.StatusOK, env.upload(t, "a.csv", testutil.NewFileBuilder().Rows(testutil.BaseTime, 3).Bytes()).Code)
	require.Equal(t, http.StatusOK, env.upload(t, "b.csv", testutil.NewFileBuilder().Rows(testutil.BaseTime, 9).Bytes()).Code)

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantIDs  []string
	}{
		{"by name", "fileName=a.csv", http.StatusOK, []string{"a.csv"}},
		{"indicator range", "minAverageIndicatorValue=1&maxAverageIndicatorValue=10", http.StatusOK, []string{"a.csv", "b.csv"}},
		{"duration range", "minAverageDuration=4&maxAverageDuration=6", http.StatusOK, []string{"b.csv"}},
		{"no match", "fileName=zzz.csv", http.StatusNotFound, nil},
		{"half range", "minAverageIndicatorValue=1", http.StatusBadRequest, nil},
		{"no parameters", "", http.StatusBadRequest, nil},
		{"not a number", "minAverageDuration=a&maxAverageDuration=2", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, httptest.NewRequest(http.MethodGet, "/science/results?"+tt.query, nil))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantIDs == nil {
				return
			}

			var summaries []types.FileSummary
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
			ids := make([]string, len(summaries))
			for i, s := range summaries {
				ids[i] = s.FileID
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestDownload(t *testing.T) {
	env := setupServer(t, Config{})
	body := testutil.NewFileBuilder().Rows(testutil.BaseTime, 4).Raw("junk;x;y").Bytes()
	require.Equal(t, http.StatusOK, env.upload(t, "raw.csv", body).Code)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/science/files/raw.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, rec.Body.Bytes())

	sum := sha256.Sum256(body)
	assert.Equal(t, hex.EncodeToString(sum[:]), rec.Header().Get("X-Content-SHA256"))

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/science/files/none.csv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupServer(t, Config{})
	require.Equal(t, http.StatusOK, env.upload(t, "m.csv", testutil.NewFileBuilder().Rows(testutil.BaseTime, 3).Bytes()).Code)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "labstat_rows_accepted_total 3")
	assert.Contains(t, rec.Body.String(), `labstat_ingestions_total{result="success"} 1`)

	require.NoError(t, env.store.Close())
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestServeAndShutdown(t *testing.T) {
	env := setupServer(t, Config{ShutdownTimeout: 5 * time.Second})

	closed := make(chan struct{})
	env.server.deps.Closers = []io.Closer{
		closerFunc(func() error { close(closed); return nil }),
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}

	select {
	case <-closed:
	default:
		t.Error("closer was not called")
	}
}

func TestShutdownCollectsErrors(t *testing.T) {
	env := setupServer(t, Config{})
	env.server.deps.Closers = []io.Closer{
		closerFunc(func() error { return io.ErrClosedPipe }),
		closerFunc(func() error { return io.ErrUnexpectedEOF }),
	}

	err := env.server.Shutdown(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "2 errors occurred"), err.Error())
}
