package ui

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"trolleymatch/adapters/csvexport"
	"trolleymatch/adapters/excel"
	"trolleymatch/app"
	"trolleymatch/domain/match"
	"trolleymatch/internal"
	"trolleymatch/internal/config"
	"trolleymatch/internal/matching"
	"trolleymatch/internal/metrics"
	"trolleymatch/internal/storage"
	"trolleymatch/internal/testkit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	jobIDPattern   = regexp.MustCompile(`name="job_id" value="([0-9a-f-]+)"`)
	csvLinkPattern = regexp.MustCompile(`/download/(trolley_results_[0-9_a-f]+\.csv)`)
)

type testEnv struct {
	server  *Server
	scraper *testkit.StubScraper
	config  *config.Config
	dir     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: "0", GinMode: gin.TestMode, MaxUploadMB: 1},
		Storage: config.StorageConfig{
			UploadDir:  filepath.Join(dir, "uploads"),
			ResultsDir: filepath.Join(dir, "results"),
			FileTTL:    time.Hour,
		},
		Run: config.RunConfig{RowCap: config.DefaultRowCap},
	}
	logger := internal.NewLoggerTo(io.Discard, internal.LogLevelError)
	scraper := testkit.NewStubScraper()
	results := storage.NewResults(cfg.Storage.ResultsDir)
	m := metrics.New()

	server, err := NewServer(Deps{
		Config:  cfg,
		Reader:  excel.NewReader(logger),
		Service: app.NewMatchService(scraper, csvexport.NewWriter(), results, m, logger),
		Uploads: storage.NewUploads(cfg.Storage.UploadDir),
		Results: results,
		Metrics: m,
		Logger:  logger,
	})
	require.NoError(t, err)
	return &testEnv{server: server, scraper: scraper, config: cfg, dir: dir}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func workbook(t *testing.T, headers []string, rows [][]string) []byte {
	t.Helper()
	path, err := testkit.WriteWorkbook(t.TempDir(), "book.xlsx", headers, rows)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func productRows(names []string) [][]string {
	rows := make([][]string, len(names))
	for i, name := range names {
		rows[i] = []string{fmt.Sprintf("SKU-%03d", i), name}
	}
	return rows
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func flashOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == flashCookie {
			msg, err := url.QueryUnescape(cookie.Value)
			require.NoError(t, err)
			return msg
		}
	}
	return ""
}

func assertRedirectWithFlash(t *testing.T, rec *httptest.ResponseRecorder, contains string) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Contains(t, flashOf(t, rec), contains)
}

// upload posts a workbook and returns the job id from the configure page
func (e *testEnv) upload(t *testing.T, headers []string, rows [][]string) string {
	t.Helper()
	rec := e.do(uploadRequest(t, "Products List.xlsx", workbook(t, headers, rows)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	m := jobIDPattern.FindStringSubmatch(rec.Body.String())
	require.NotNil(t, m, "configure page must carry the job id")
	return m[1]
}

func (e *testEnv) process(t *testing.T, values url.Values) (*httptest.ResponseRecorder, [][]string) {
	t.Helper()
	rec := e.do(formRequest("/process", values))
	require.Equal(t, http.StatusOK, rec.Code, flashOf(t, rec))

	m := csvLinkPattern.FindStringSubmatch(rec.Body.String())
	require.NotNil(t, m, "results page must link the csv")

	download := e.do(httptest.NewRequest(http.MethodGet, "/download/"+m[1], nil))
	require.Equal(t, http.StatusOK, download.Code)
	return rec, readCSV(t, download.Body.Bytes())
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, []byte("\xEF\xBB\xBF")))
	records, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	return records
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `action="/upload"`)
	assert.Contains(t, body, "Tier 1 (Perfect)")
	assert.Contains(t, body, "</html>")
}

func TestIndex_ShowsAndClearsFlash(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: flashCookie, Value: url.QueryEscape("Something broke here")})
	rec := env.do(req)

	assert.Contains(t, rec.Body.String(), "Something broke here")
	var cleared bool
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == flashCookie && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "flash cookie must be cleared once shown")
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpload_RejectsNonSpreadsheet(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"notes.txt", "data.csv", "report.xlsx.exe", "noextension"} {
		rec := env.do(uploadRequest(t, name, []byte("hello")))
		assertRedirectWithFlash(t, rec, "Unsupported file type")
	}

	entries, _ := os.ReadDir(env.config.Storage.UploadDir)
	assert.Empty(t, entries, "rejected files must not be stored")
}

func TestUpload_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("other", "value"))
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())

	assertRedirectWithFlash(t, env.do(req), msgNoFilePart)
}

func TestUpload_EmptyFilename(t *testing.T) {
	env := newTestEnv(t)

	assertRedirectWithFlash(t, env.do(uploadRequest(t, "", nil)), msgNoFileSelected)
}

func TestUpload_TooLarge(t *testing.T) {
	env := newTestEnv(t)

	big := bytes.Repeat([]byte("x"), 2<<20)
	assertRedirectWithFlash(t, env.do(uploadRequest(t, "big.xlsx", big)), "File is too large")
}

func TestUpload_UnreadableWorkbook(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(uploadRequest(t, "broken.xlsx", []byte("definitely not a zip")))
	assertRedirectWithFlash(t, rec, "Failed to read Excel file")
}

func TestUpload_ShowsColumns(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(uploadRequest(t, "Products List.xlsx", workbook(t,
		[]string{"Code", "Product Name"},
		[][]string{{"A1", "Heineken 15x440ml"}, {"A2", ""}, {"A3", "Walkers Crisps 25g"}},
	)))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Regexp(t, jobIDPattern, body)
	assert.Contains(t, body, "Products_List.xlsx")
	assert.Contains(t, body, "has 3 rows")
	assert.Contains(t, body, `value="Product Name"`)
	assert.Contains(t, body, "Heineken 15x440ml")
	assert.Contains(t, body, `value="all"`)

	entries, err := os.ReadDir(env.config.Storage.UploadDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "__Products_List.xlsx"))
}

func TestUpload_AcceptsNonLatinFilenames(t *testing.T) {
	for _, name := range []string{"产品.xlsx", "Продукты.xlsx"} {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(uploadRequest(t, name, workbook(t,
				[]string{"Code", "Product Name"},
				[][]string{{"A1", "Heineken 15x440ml"}},
			)))
			require.Equal(t, http.StatusOK, rec.Code, flashOf(t, rec))

			m := jobIDPattern.FindStringSubmatch(rec.Body.String())
			require.NotNil(t, m)
			assert.Contains(t, rec.Body.String(), `value="Product Name"`)

			_, records := env.process(t, url.Values{
				"job_id":     {m[1]},
				"column":     {"Product Name"},
				"limit_mode": {"5"},
			})
			assert.Len(t, records, 2)
		})
	}
}

func TestProcess_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	names := testkit.GenerateSKUs(testkit.SKUGeneratorConfig{Count: 8, Seed: 3})
	env.scraper.Catalog = testkit.CatalogFor(names, matching.ParseSKU)

	jobID := env.upload(t, []string{"Code", "Product"}, productRows(names))
	rec, records := env.process(t, url.Values{
		"job_id":     {jobID},
		"column":     {"Product"},
		"limit_mode": {"5"},
	})

	assert.Contains(t, rec.Body.String(), "Download CSV")
	assert.Contains(t, rec.Body.String(), string(match.TierPerfect))

	require.Len(t, records, 6)
	assert.Equal(t, match.Header, records[0])
	for i, record := range records[1:] {
		assert.Equal(t, names[i], record[0])
		assert.Equal(t, "Matched", record[5])
	}
}

func TestProcess_LimitAboveCapIsSilentlyCapped(t *testing.T) {
	env := newTestEnv(t)
	names := testkit.GenerateSKUs(testkit.SKUGeneratorConfig{Count: 150, Seed: 5})
	jobID := env.upload(t, []string{"Code", "Product"}, productRows(names))

	rec, records := env.process(t, url.Values{
		"job_id":       {jobID},
		"column":       {"Product"},
		"limit_mode":   {"custom"},
		"custom_limit": {"250"},
	})

	assert.Empty(t, flashOf(t, rec))
	assert.Len(t, records, 101)
	assert.Equal(t, 100, env.scraper.CallCount())
}

func TestProcess_AllOn500RowsYields100(t *testing.T) {
	env := newTestEnv(t)
	names := testkit.GenerateSKUs(testkit.SKUGeneratorConfig{Count: 500, Seed: 9})
	jobID := env.upload(t, []string{"Code", "Product"}, productRows(names))

	_, records := env.process(t, url.Values{
		"job_id":     {jobID},
		"column":     {"Product"},
		"limit_mode": {"all"},
	})

	assert.Len(t, records, 101)
	assert.Equal(t, append([]string{}, match.Header...), records[0])
}

func TestProcess_RowCountNeverExceedsLimit(t *testing.T) {
	env := newTestEnv(t)
	names := testkit.GenerateSKUs(testkit.SKUGeneratorConfig{Count: 30, Seed: 11})
	jobID := env.upload(t, []string{"Code", "Product"}, productRows(names))

	for _, mode := range []string{"5", "10", "50", "all"} {
		_, records := env.process(t, url.Values{"job_id": {jobID}, "column": {"Product"}, "limit_mode": {mode}})
		assert.LessOrEqual(t, len(records)-1, 50, mode)
		assert.LessOrEqual(t, len(records)-1, len(names), mode)
	}
}

func TestProcess_Errors(t *testing.T) {
	env := newTestEnv(t)
	jobID := env.upload(t, []string{"Product"}, [][]string{{"Heineken 15x440ml"}})

	tests := []struct {
		name   string
		values url.Values
		flash  string
	}{
		{"missing job", url.Values{"column": {"Product"}}, msgUploadNotFound},
		{"malformed job", url.Values{"job_id": {"../../etc"}, "column": {"Product"}}, msgUploadNotFound},
		{"unknown job", url.Values{"job_id": {"0190f0b4-0000-7000-8000-000000000000"}, "column": {"Product"}}, msgUploadNotFound},
		{"missing column", url.Values{"job_id": {jobID}}, "Please select the column"},
		{"unknown column", url.Values{"job_id": {jobID}, "column": {"Nope"}}, "not found in file"},
		{"bad custom limit", url.Values{"job_id": {jobID}, "column": {"Product"}, "limit_mode": {"custom"}, "custom_limit": {"abc"}}, "valid custom number of rows"},
		{"zero custom limit", url.Values{"job_id": {jobID}, "column": {"Product"}, "limit_mode": {"custom"}, "custom_limit": {"0"}}, "valid custom number of rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertRedirectWithFlash(t, env.do(formRequest("/process", tt.values)), tt.flash)
		})
	}
	assert.Zero(t, env.scraper.CallCount())
}

func TestDownload_Missing(t *testing.T) {
	env := newTestEnv(t)

	assertRedirectWithFlash(t, env.do(httptest.NewRequest(http.MethodGet, "/download/nothing.csv", nil)), msgFileNotFound)
}

func TestDownload_Attachment(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(env.config.Storage.ResultsDir, 0755))
	name := "trolley_results_20240101_000000_abcdef12.csv"
	require.NoError(t, os.WriteFile(filepath.Join(env.config.Storage.ResultsDir, name), []byte("\xEF\xBB\xBFSKU_Name\r\n"), 0644))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/download/"+name, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), name)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestAPIProcess_StreamsCSV(t *testing.T) {
	env := newTestEnv(t)
	names := testkit.GenerateSKUs(testkit.SKUGeneratorConfig{Count: 12, Seed: 2})
	jobID := env.upload(t, []string{"Code", "Product"}, productRows(names))

	rec := env.do(formRequest("/api/process", url.Values{
		"job_id":       {jobID},
		"column":       {"Product"},
		"limit_mode":   {"custom"},
		"custom_limit": {"4"},
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "4", rec.Header().Get("X-Rows-Processed"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	records := readCSV(t, rec.Body.Bytes())
	assert.Len(t, records, 5)

	entries, _ := os.ReadDir(env.config.Storage.ResultsDir)
	assert.Empty(t, entries, "streamed runs are not stored")
}

func TestAPIProcess_JSONErrors(t *testing.T) {
	env := newTestEnv(t)
	jobID := env.upload(t, []string{"Product"}, [][]string{{"Heineken 15x440ml"}})

	tests := []struct {
		name   string
		values url.Values
		status int
		code   string
	}{
		{"unknown job", url.Values{"job_id": {"0190f0b4-0000-7000-8000-000000000000"}, "column": {"Product"}}, http.StatusNotFound, "NOT_FOUND"},
		{"unknown column", url.Values{"job_id": {jobID}, "column": {"Nope"}}, http.StatusBadRequest, "INVALID_COLUMN"},
		{"bad limit", url.Values{"job_id": {jobID}, "column": {"Product"}, "limit_mode": {"-3"}}, http.StatusBadRequest, "INVALID_ROW_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(formRequest("/api/process", tt.values))
			require.Equal(t, tt.status, rec.Code)

			var payload map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			assert.Equal(t, tt.code, payload["code"])
			assert.NotEmpty(t, payload["error"])
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.do(uploadRequest(t, "notes.txt", []byte("x")))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `trolleymatch_uploads_total{outcome="rejected"} 1`)
}
