package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"krishi-web/internal/config"
	"krishi-web/internal/models"
	"krishi-web/internal/service"
	"krishi-web/internal/validator"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubMaster struct{}

func (stubMaster) ListDistricts(ctx context.Context) ([]models.District, error) {
	return []models.District{{ID: 1, Name: "Raipur"}}, nil
}

func (stubMaster) ListCrops(ctx context.Context) ([]models.Crop, error) {
	return []models.Crop{{ID: 10, Code: "PADDY", Season: "kharif"}}, nil
}

func (stubMaster) ListTehsils(ctx context.Context) ([]models.Tehsil, error) {
	return []models.Tehsil{{ID: 100, Name: "Abhanpur", DistrictID: 1}}, nil
}

func (stubMaster) ListRevenueInspectors(ctx context.Context) ([]models.RevenueInspector, error) {
	return nil, nil
}

func (stubMaster) ListVillages(ctx context.Context) ([]models.Village, error) {
	return nil, nil
}

func (stubMaster) ListHierarchyRecords(ctx context.Context, district string) ([]models.HierarchyRecord, error) {
	return []models.HierarchyRecord{
		{DistrictName: "Raipur", Level4Name: "Abhanpur", Level5Name: "Gobra Navapara", Level6Code: "12", VillageName: "Kendri", VillageCode: "RP1001"},
	}, nil
}

// memoryStore is both the ImportStore and the BatchReader.
type memoryStore struct {
	mu      sync.Mutex
	batches []models.ImportBatch
	errs    []models.ValidationError
	records []models.NotificationRecord
}

func (m *memoryStore) CreateBatch(ctx context.Context, batch *models.ImportBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch.ID = int64(len(m.batches) + 1)
	m.batches = append(m.batches, *batch)
	return nil
}

func (m *memoryStore) UpdateBatchStatus(ctx context.Context, id int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[id-1].Status = status
	return nil
}

func (m *memoryStore) InsertValidationErrors(ctx context.Context, errs []models.ValidationError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, errs...)
	return nil
}

func (m *memoryStore) InsertNotificationRecords(ctx context.Context, records []models.NotificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

func (m *memoryStore) GetBatch(ctx context.Context, id int64) (*models.ImportBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || int(id) > len(m.batches) {
		return nil, sql.ErrNoRows
	}
	b := m.batches[id-1]
	return &b, nil
}

func (m *memoryStore) ListBatches(ctx context.Context, limit, offset int) ([]models.ImportBatch, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches, int64(len(m.batches)), nil
}

func (m *memoryStore) GetBatchErrors(ctx context.Context, batchID int64) ([]models.ValidationError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ValidationError
	for _, e := range m.errs {
		if e.BatchID == batchID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "job-1"}, nil
}

type testEnv struct {
	app      *fiber.App
	cfg      *config.Config
	store    *memoryStore
	enqueuer *fakeEnqueuer
	redis    *miniredis.Miniredis
	logs     *test.Hook
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{
		AppEnv:              "development",
		UploadMaxSize:       10 << 20,
		UploadPath:          t.TempDir(),
		ImportChunkSize:     100,
		ValidationBatchSize: 100,
	}
	if mutate != nil {
		mutate(cfg)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logs := test.NewLocal(logger)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := &memoryStore{}
	enqueuer := &fakeEnqueuer{}
	hierarchy := service.NewHierarchyService(stubMaster{}, validator.NewRecordValidator(nil, nil), logger)

	imports := NewImportHandler(
		service.NewImportService(stubMaster{}, store, logger, cfg.ImportChunkSize),
		hierarchy,
		service.NewExcelService(),
		store,
		service.NewProgressTracker(client, logger),
		enqueuer,
		cfg,
		logger,
	)
	hierarchyHandler := NewHierarchyHandler(hierarchy, cfg)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("username", "surveyor")
		return c.Next()
	})
	app.Get("/imports/template", imports.DownloadTemplate)
	app.Get("/imports/progress/:code", imports.GetProgress)
	app.Post("/imports/validate", imports.ValidateFile)
	app.Post("/imports", imports.Import)
	app.Get("/imports", imports.ListBatches)
	app.Get("/imports/:id", imports.GetBatch)
	app.Get("/imports/:id/errors", imports.GetBatchErrors)
	app.Post("/hierarchy/validate", hierarchyHandler.Validate)
	app.Post("/hierarchy/suggest", hierarchyHandler.Suggest)

	return &testEnv{app: app, cfg: cfg, store: store, enqueuer: enqueuer, redis: mr, logs: logs}
}

var surveyHeader = []interface{}{"District", "Tehsil", "RI Name", "Halka Number", "Village Name", "Village Code", "Crop Code", "Area (Ha)", "Year"}

func surveyWorkbook(t *testing.T) []byte {
	return workbook(t, [][]interface{}{
		surveyHeader,
		{"Raipur", "Abhanpur", "Gobra Navapara", "12", "Kendri", "RP1001", "PADDY", 4.5, 2024},
		{"Raipur", "Bad Tehsil", "Gobra Navapara", "12", "Kurud", "RP1002", "XYZ", -5, 2024},
	})
}

func workbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func multipartRequest(t *testing.T, path, fileName string, file []byte, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, path string, payload interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if resp.Header.Get("Content-Type") == fiber.MIMEApplicationJSON {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp, env
}

func TestImportHandler_ImportSync(t *testing.T) {
	env := newTestEnv(t, nil)

	req := multipartRequest(t, "/imports", "kharif_2024.xlsx", surveyWorkbook(t), map[string]string{
		"season": "kharif",
		"year":   "2024",
	})
	resp, body := do(t, env.app, req)

	require.Equal(t, fiber.StatusOK, resp.StatusCode, body.Error)
	var result models.ImportResult
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.TotalRecords)
	assert.Equal(t, 1, result.ValidRecords)

	require.Len(t, env.store.batches, 1)
	batch := env.store.batches[0]
	assert.Equal(t, "kharif_2024", batch.Name)
	assert.Equal(t, "surveyor", batch.ImportedBy)
	assert.Equal(t, models.BatchStatusCompleted, batch.Status)
	assert.Len(t, env.store.records, 2)
	assert.Len(t, env.store.errs, 3)

	// progress was published under the batch code
	val, err := env.redis.Get("import:progress:" + result.BatchCode)
	require.NoError(t, err)
	assert.Equal(t, "100", val)
}

func TestImportHandler_ImportAsync(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.ImportAsync = true })

	req := multipartRequest(t, "/imports", "survey.xlsx", surveyWorkbook(t), map[string]string{
		"season":     "kharif",
		"batch_name": "Kharif 2024",
	})
	resp, body := do(t, env.app, req)

	require.Equal(t, fiber.StatusAccepted, resp.StatusCode, body.Error)
	require.Len(t, env.enqueuer.tasks, 1)
	assert.Empty(t, env.store.batches)

	var payload struct {
		BatchCode  string `json:"batch_code"`
		FilePath   string `json:"file_path"`
		BatchName  string `json:"batch_name"`
		ImportedBy string `json:"imported_by"`
	}
	require.NoError(t, json.Unmarshal(env.enqueuer.tasks[0].Payload(), &payload))
	assert.Equal(t, "Kharif 2024", payload.BatchName)
	assert.Equal(t, "surveyor", payload.ImportedBy)
	assert.Equal(t, payload.BatchCode+".xlsx", filepath.Base(payload.FilePath))

	_, err := os.Stat(payload.FilePath)
	assert.NoError(t, err)

	val, err := env.redis.Get("import:progress:" + payload.BatchCode)
	require.NoError(t, err)
	assert.Equal(t, "0", val)
}

func TestImportHandler_ImportAsyncQueueDown(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.ImportAsync = true })
	env.enqueuer.err = errors.New("dial tcp: connection refused")

	req := multipartRequest(t, "/imports", "survey.xlsx", surveyWorkbook(t), map[string]string{"season": "kharif"})
	resp, body := do(t, env.app, req)

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to queue import task", body.Message)

	left, err := os.ReadDir(env.cfg.UploadPath)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestImportHandler_ImportLogsInconsistentHierarchy(t *testing.T) {
	env := newTestEnv(t, nil)

	data := workbook(t, [][]interface{}{
		surveyHeader,
		{"Raipur", "Abhanpur", "Gobra Navapara", "12", "Kendri", "RP1001", "PADDY", 4.5, 2024},
		{"Raipur", "Abhanpur", "Gobra Navapara", "14", "Kurud", "RP1001", "PADDY", 2, 2024},
	})
	resp, body := do(t, env.app, multipartRequest(t, "/imports", "survey.xlsx", data, map[string]string{"season": "kharif"}))

	require.Equal(t, fiber.StatusOK, resp.StatusCode, body.Error)
	var result models.ImportResult
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.Equal(t, 2, result.ValidRecords)
	assert.Len(t, env.store.records, 2)

	var warning *logrus.Entry
	for _, e := range env.logs.AllEntries() {
		if e.Message == "Hierarchy inconsistencies in import" {
			warning = e
		}
	}
	require.NotNil(t, warning)
	assert.Equal(t, logrus.WarnLevel, warning.Level)
	assert.Equal(t, result.BatchCode, warning.Data["batch_code"])
	assert.Equal(t, false, warning.Data["is_consistent"])
	assert.Equal(t, 1, warning.Data["duplicates"])
	assert.Equal(t, 1, warning.Data["consistency_errors"])
}

func TestImportHandler_ImportRejects(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name     string
		fileName string
		file     []byte
		fields   map[string]string
	}{
		{name: "missing season", fileName: "s.xlsx", file: surveyWorkbook(t), fields: map[string]string{}},
		{name: "missing file", fields: map[string]string{"season": "kharif"}},
		{name: "wrong extension", fileName: "s.csv", file: []byte("a,b"), fields: map[string]string{"season": "kharif"}},
		{name: "not a workbook", fileName: "s.xlsx", file: []byte("garbage"), fields: map[string]string{"season": "kharif"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, env.app, multipartRequest(t, "/imports", tt.fileName, tt.file, tt.fields))
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.False(t, body.Success)
		})
	}
	assert.Empty(t, env.store.batches)
}

func TestImportHandler_ValidateFile(t *testing.T) {
	env := newTestEnv(t, nil)

	req := multipartRequest(t, "/imports/validate", "survey.xlsx", surveyWorkbook(t), map[string]string{"season": "kharif"})
	resp, body := do(t, env.app, req)

	require.Equal(t, fiber.StatusOK, resp.StatusCode, body.Error)
	var data struct {
		TotalRecords   int                          `json:"total_records"`
		ValidRecords   int                          `json:"valid_records"`
		InvalidRecords int                          `json:"invalid_records"`
		Rows           []models.ImportRow           `json:"rows"`
		Consistency    *validator.ConsistencyReport `json:"consistency"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, 2, data.TotalRecords)
	assert.Equal(t, 1, data.ValidRecords)
	assert.Equal(t, 1, data.InvalidRecords)
	require.Len(t, data.Rows, 2)
	assert.Len(t, data.Rows[1].Errors, 3)
	require.NotNil(t, data.Consistency)
	assert.True(t, data.Consistency.IsConsistent)

	assert.Empty(t, env.store.batches)
}

func TestImportHandler_BatchEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := do(t, env.app, multipartRequest(t, "/imports", "survey.xlsx", surveyWorkbook(t), map[string]string{"season": "kharif"}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body := do(t, env.app, httptest.NewRequest(http.MethodGet, "/imports/1", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var batch models.ImportBatch
	require.NoError(t, json.Unmarshal(body.Data, &batch))
	assert.Equal(t, int64(1), batch.ID)

	resp, _ = do(t, env.app, httptest.NewRequest(http.MethodGet, "/imports/99", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, env.app, httptest.NewRequest(http.MethodGet, "/imports/abc", nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, env.app, httptest.NewRequest(http.MethodGet, "/imports/1/errors", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var errData struct {
		Errors []models.ValidationError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &errData))
	assert.Len(t, errData.Errors, 3)

	resp, _ = do(t, env.app, httptest.NewRequest(http.MethodGet, "/imports/1/errors?format=xlsx", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "errors_IMPORT-")

	resp, _ = do(t, env.app, httptest.NewRequest(http.MethodGet, "/imports?page=1&limit=10", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestImportHandler_TemplateAndProgress(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := do(t, env.app, httptest.NewRequest(http.MethodGet, "/imports/template", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))

	resp, _ = do(t, env.app, httptest.NewRequest(http.MethodGet, "/imports/progress/IMPORT-missing", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	require.NoError(t, env.redis.Set("import:progress:IMPORT-0000abcd", "60"))
	resp, body := do(t, env.app, httptest.NewRequest(http.MethodGet, "/imports/progress/IMPORT-0000abcd", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"batch_code":"IMPORT-0000abcd","progress":60}`, string(body.Data))
}

func TestHierarchyHandler_Validate(t *testing.T) {
	env := newTestEnv(t, nil)

	noConsistency := false
	resp, body := do(t, env.app, jsonRequest(t, "/hierarchy/validate", ValidateHierarchyRequest{
		Records: []models.HierarchyRecord{
			{DistrictName: "Raipur", Level4Name: "Abhanpur", Level5Name: "Gobra Navapara", VillageName: "Kendri", VillageCode: "RP1001"},
			{DistrictName: "Raipur", VillageName: "Kurud", VillageCode: "RP-1002"},
		},
		ExpectedDistrict: "Raipur",
		CheckConsistency: &noConsistency,
	}))

	require.Equal(t, fiber.StatusOK, resp.StatusCode, body.Error)
	var report validator.BatchReport
	require.NoError(t, json.Unmarshal(body.Data, &report))
	assert.Equal(t, 2, report.TotalRecords)
	assert.Len(t, report.ValidRecords, 1)
	assert.Len(t, report.InvalidRecords, 1)
	assert.Nil(t, report.Consistency)
	require.NotNil(t, report.District)
	assert.Equal(t, 2, report.District.ValidCount)

	resp, _ = do(t, env.app, jsonRequest(t, "/hierarchy/validate", ValidateHierarchyRequest{}))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHierarchyHandler_Suggest(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := do(t, env.app, jsonRequest(t, "/hierarchy/suggest", SuggestRequest{
		Record: models.HierarchyRecord{DistrictName: "Raipur", VillageName: "Kendri", VillageCode: "RP1009"},
	}))

	require.Equal(t, fiber.StatusOK, resp.StatusCode, body.Error)
	var got validator.Suggestions
	require.NoError(t, json.Unmarshal(body.Data, &got))
	assert.False(t, got.Fallback)
	assert.Equal(t, []string{"Abhanpur"}, got.Level4Name)
	assert.Equal(t, []string{"12"}, got.Level6Code)
	assert.InDelta(t, 0.1, got.Confidence, 1e-9)
}
