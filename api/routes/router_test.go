package routes

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/workbooks-backend/internal/commands"
	"github.com/angelmondragon/workbooks-backend/internal/consumer"
	"github.com/angelmondragon/workbooks-backend/internal/ingress"
	"github.com/angelmondragon/workbooks-backend/internal/workbooks"
	pkgAuth "github.com/angelmondragon/workbooks-backend/pkg/auth"
	"github.com/angelmondragon/workbooks-backend/pkg/config"
	"github.com/angelmondragon/workbooks-backend/pkg/db"
	"github.com/angelmondragon/workbooks-backend/pkg/logger"
	"github.com/angelmondragon/workbooks-backend/pkg/metrics"
)

const createContentType = "application/json;domain-command=create-workbook"

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type memoryStore struct {
	mu      sync.Mutex
	records map[string]workbooks.Workbook
	order   []string
	getErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]workbooks.Workbook{}}
}

func (m *memoryStore) GetWorkbook(_ context.Context, ownerID, id string) (*workbooks.Workbook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	w, ok := m.records[ownerID+"/"+id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (m *memoryStore) CreateWorkbook(_ context.Context, w workbooks.Workbook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := w.OwnerID + "/" + w.ID
	if _, ok := m.records[key]; ok {
		return workbooks.ErrAlreadyExists
	}
	m.records[key] = w
	m.order = append(m.order, key)
	return nil
}

func (m *memoryStore) ListByOwner(_ context.Context, ownerID string) ([]workbooks.Workbook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []workbooks.Workbook
	for _, key := range m.order {
		if w := m.records[key]; w.OwnerID == ownerID {
			out = append(out, w)
		}
	}
	return out, nil
}

type capturePublisher struct {
	mu   sync.Mutex
	sent []commands.Message
	err  error
}

func (c *capturePublisher) Publish(_ context.Context, msg commands.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	c.sent = append(c.sent, msg)
	return "msg-1", nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "local"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "workbooks", ExpirationMinutes: 60},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type apiFixture struct {
	handler   http.Handler
	store     *memoryStore
	publisher *capturePublisher
	token     string
}

func newAPIFixture(t *testing.T, checks map[string]db.Pinger) apiFixture {
	t.Helper()
	cfg := testConfig()
	logg := testLogger()
	store := newMemoryStore()
	publisher := &capturePublisher{}
	reg := prometheus.NewRegistry()

	svc, err := ingress.NewService(ingress.Dependencies{
		Publisher: publisher,
		Source:    "workbooks-api-test",
		Logger:    logg,
		Metrics:   metrics.NewCommandMetrics(reg),
	})
	require.NoError(t, err)

	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: "u1", Username: "ada"})
	require.NoError(t, err)

	return apiFixture{
		handler: NewRouter(Deps{
			Config:      cfg,
			Logger:      logg,
			Ingress:     svc,
			Workbooks:   store,
			Checks:      checks,
			Gatherer:    reg,
			HTTPMetrics: metrics.NewHTTPMetrics(reg),
		}),
		store:     store,
		publisher: publisher,
		token:     token,
	}
}

func (f apiFixture) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+f.token)
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func TestCreateWorkbookAccepted(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.do(http.MethodPost, "/workbook", createContentType, `{"title":"Q1 Plan","path":"/"}`)
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())

	var body struct {
		Data struct {
			ID       string `json:"id"`
			Location string `json:"location"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.ID)
	assert.Equal(t, "/workbook/"+body.Data.ID, body.Data.Location)
	assert.Equal(t, body.Data.Location, resp.Header().Get("Location"))

	require.Len(t, f.publisher.sent, 1)
	attrs := f.publisher.sent[0].Attributes
	assert.Equal(t, "2020-04-23", attrs[commands.AttrVersion])
	assert.Equal(t, "workbooks-api-test", attrs[commands.AttrSource])
	assert.Equal(t, "create-workbook", attrs[commands.AttrDomainCommand])
	assert.Equal(t, "u1", attrs[commands.AttrRecordOwner])

	var payload workbooks.Workbook
	require.NoError(t, json.Unmarshal(f.publisher.sent[0].Data, &payload))
	assert.Equal(t, "ada", payload.OwnerDisplayName)
	assert.Equal(t, body.Data.ID, payload.ID)
}

func TestCreateWorkbookRequiresAuth(t *testing.T) {
	f := newAPIFixture(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/workbook", strings.NewReader(`{"title":"t","path":"/"}`))
	req.Header.Set("Content-Type", createContentType)
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Empty(t, f.publisher.sent)
}

func TestCreateWorkbookWithoutCommandIsNotFound(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.do(http.MethodPost, "/workbook", "application/json", `{"title":"t","path":"/"}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "MISSING_COMMAND_PARAMETER")
	assert.Empty(t, f.publisher.sent)
}

func TestCreateWorkbookValidationErrors(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.do(http.MethodPost, "/workbook", createContentType, `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	var body struct {
		Error struct {
			Code    string                 `json:"code"`
			Details []workbooks.FieldError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	var fields []string
	for _, fe := range body.Error.Details {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"title", "path"}, fields)
	assert.Empty(t, f.publisher.sent)
}

func TestCreateWorkbookPublishFailure(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.publisher.err = errors.New("topic not found")

	resp := f.do(http.MethodPost, "/workbook", createContentType, `{"title":"t","path":"/"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, resp.Body.String(), "PUBLISH_FAILED")
	assert.NotContains(t, resp.Body.String(), "topic not found")
}

func TestReadWorkbooks(t *testing.T) {
	f := newAPIFixture(t, nil)
	mine := workbooks.NewDefault("mine", "/", workbooks.Owner{ID: "u1", DisplayName: "ada"})
	theirs := workbooks.NewDefault("theirs", "/", workbooks.Owner{ID: "u2", DisplayName: "bob"})
	require.NoError(t, f.store.CreateWorkbook(context.Background(), mine))
	require.NoError(t, f.store.CreateWorkbook(context.Background(), theirs))

	resp := f.do(http.MethodGet, "/workbook/"+mine.ID, "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"title":"mine"`)
	assert.NotContains(t, resp.Body.String(), "ownerId")
	assert.NotContains(t, resp.Body.String(), "ownerDisplayName")

	resp = f.do(http.MethodGet, "/workbook/"+theirs.ID, "", "")
	assert.Equal(t, http.StatusNotFound, resp.Code, "another owner's workbook is invisible")

	resp = f.do(http.MethodGet, "/workbook", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var list struct {
		Data []workbooks.Public `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, mine.ID, list.Data[0].ID)

	resp = f.do(http.MethodGet, "/workbook?limit=0", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestReadWorkbookStoreOutage(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.store.getErr = errors.New("connection refused")

	resp := f.do(http.MethodGet, "/workbook/w1", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPIFixture(t, map[string]db.Pinger{"db": stubPinger{}, "redis": nil})

	resp := f.do(http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "local", resp.Header().Get("X-Workbooks-Env"))

	resp = f.do(http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"checks":["db"]`)

	f.do(http.MethodPost, "/workbook", createContentType, `{"title":"t","path":"/"}`)
	resp = f.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `workbook_commands_total{command="create-workbook",status="202"} 1`)
	assert.Contains(t, resp.Body.String(), "http_requests_total")
}

func TestHealthReadyReportsFailures(t *testing.T) {
	f := newAPIFixture(t, map[string]db.Pinger{"db": stubPinger{err: errors.New("down")}})

	resp := f.do(http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), `"db":"down"`)
}

func newWorkerRouter(t *testing.T, store *memoryStore) http.Handler {
	t.Helper()
	handler, err := consumer.NewHandler(consumer.Options{Store: store, Logger: testLogger()})
	require.NoError(t, err)
	return NewWorkerRouter(WorkerDeps{
		Config:  testConfig(),
		Logger:  testLogger(),
		Handler: handler,
	})
}

func pushBody(t *testing.T, w workbooks.Workbook, attrs map[string]string) string {
	t.Helper()
	data, err := json.Marshal(w)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"message": map[string]any{
			"data":        base64.StdEncoding.EncodeToString(data),
			"attributes":  attrs,
			"messageId":   "push-1",
			"publishTime": "2020-04-23T10:00:00Z",
		},
		"subscription": "projects/p/subscriptions/workbook-commands-worker",
	})
	require.NoError(t, err)
	return string(body)
}

func pushAttributes(owner string) map[string]string {
	return map[string]string{
		commands.AttrVersion:       commands.SchemaVersion,
		commands.AttrSource:        "workbooks-api",
		commands.AttrDomainCommand: string(commands.CreateWorkbook),
		commands.AttrRecordOwner:   owner,
	}
}

func push(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/pubsub/push", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestPubSubPushCreatesWorkbook(t *testing.T) {
	store := newMemoryStore()
	h := newWorkerRouter(t, store)
	w := workbooks.NewDefault("pushed", "/", workbooks.Owner{ID: "u1", DisplayName: "ada"})

	resp := push(h, pushBody(t, w, pushAttributes("u1")))
	assert.Equal(t, http.StatusNoContent, resp.Code)
	got, err := store.GetWorkbook(context.Background(), "u1", w.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, w, *got)

	resp = push(h, pushBody(t, w, pushAttributes("u1")))
	assert.Equal(t, http.StatusNoContent, resp.Code, "duplicates are acknowledged")
}

func TestPubSubPushDropsInvalidMessages(t *testing.T) {
	store := newMemoryStore()
	h := newWorkerRouter(t, store)
	w := workbooks.NewDefault("pushed", "/", workbooks.Owner{ID: "u1", DisplayName: "ada"})

	attrs := pushAttributes("u1")
	delete(attrs, commands.AttrVersion)
	assert.Equal(t, http.StatusNoContent, push(h, pushBody(t, w, attrs)).Code)
	assert.Equal(t, http.StatusNoContent, push(h, `not json`).Code)
	assert.Empty(t, store.records)
}

func TestPubSubPushAsksForRedelivery(t *testing.T) {
	store := newMemoryStore()
	store.getErr = errors.New("connection refused")
	h := newWorkerRouter(t, store)
	w := workbooks.NewDefault("pushed", "/", workbooks.Owner{ID: "u1", DisplayName: "ada"})

	assert.Equal(t, http.StatusServiceUnavailable, push(h, pushBody(t, w, pushAttributes("u1"))).Code)
}
