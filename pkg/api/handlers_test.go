package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/i18nhub/translation-migrator/pkg/audit"
	"github.com/i18nhub/translation-migrator/pkg/authz"
	"github.com/i18nhub/translation-migrator/pkg/bundlestore"
	"github.com/i18nhub/translation-migrator/pkg/engine"
	"github.com/i18nhub/translation-migrator/pkg/interfaces"
	"github.com/i18nhub/translation-migrator/pkg/jobs"
	"github.com/i18nhub/translation-migrator/pkg/ledger"
	"github.com/i18nhub/translation-migrator/pkg/livestore"
)

type testServer struct {
	server  *Server
	router  http.Handler
	bundles *bundlestore.MemoryStore
	ledger  *ledger.Store
	jobs    *jobs.JobStore
}

func setupTestServer(t *testing.T, authorizer authz.Authorizer) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	ledgerStore := ledger.NewStore(db)
	require.NoError(t, ledgerStore.AutoMigrate())
	liveStore := livestore.NewStore(db)
	require.NoError(t, liveStore.AutoMigrate())
	auditStore := audit.NewStore(db)
	require.NoError(t, auditStore.AutoMigrate())
	jobStore := jobs.NewJobStore(db)
	require.NoError(t, jobStore.AutoMigrate())

	bundles := bundlestore.NewMemoryStore()
	eng := engine.New(ledgerStore, liveStore, bundles, auditStore, nil, nil, nil)

	server := NewServer(eng, liveStore, jobStore, auditStore, &Config{
		Authorizer:  authorizer,
		AuditConfig: audit.DefaultAuditConfig(),
	})

	return &testServer{
		server:  server,
		router:  server.MountRoutes(),
		bundles: bundles,
		ledger:  ledgerStore,
		jobs:    jobStore,
	}
}

func bundleJSON(t *testing.T, entries map[string]map[string]string) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]any{"entries": entries})
	require.NoError(t, err)
	return data
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Remote-User", "tester")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

// discoverOne seeds one bundle and discovers it through the API, returning
// the created record's ID.
func (ts *testServer) discoverOne(t *testing.T, tag interfaces.Tag, entries map[string]map[string]string) string {
	t.Helper()
	ts.bundles.Put(tag, "en.json", "1.0.0", bundleJSON(t, entries), "")

	rec := ts.do(t, "POST", BasePath+"/discover", discoverRequest{Interfaces: []string{string(tag)}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Discovery struct {
			Created []migrationResponse `json:"created"`
		} `json:"discovery"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Discovery.Created, 1)
	return resp.Discovery.Created[0].ID
}

func TestDiscoverEndpoint(t *testing.T) {
	ts := setupTestServer(t, nil)
	id := ts.discoverOne(t, interfaces.Mobile, map[string]map[string]string{
		"home.title": {"en": "Home", "ar": "الرئيسية"},
	})
	assert.NotEmpty(t, id)

	// Re-discovery is idempotent.
	rec := ts.do(t, "POST", BasePath+"/discover", discoverRequest{Interfaces: []string{"mobile"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Discovery struct {
			Created []migrationResponse `json:"created"`
			Skipped int                 `json:"skipped"`
		} `json:"discovery"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Discovery.Created)
	assert.Equal(t, 1, resp.Discovery.Skipped)
}

func TestDiscoverRejectsUnknownInterface(t *testing.T) {
	ts := setupTestServer(t, nil)
	rec := ts.do(t, "POST", BasePath+"/discover", discoverRequest{Interfaces: []string{"desktop"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAndGetMigrations(t *testing.T) {
	ts := setupTestServer(t, nil)
	id := ts.discoverOne(t, interfaces.Mobile, map[string]map[string]string{
		"home.title": {"en": "Home"},
	})

	rec := ts.do(t, "GET", BasePath+"/migrations?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list migrationList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Migrations, 1)
	assert.Equal(t, id, list.Migrations[0].ID)
	assert.Equal(t, 1, list.TotalSize)

	rec = ts.do(t, "GET", BasePath+"/migrations/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got migrationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "mobile", got.Interface)
	assert.Equal(t, "pending", got.Status)

	rec = ts.do(t, "GET", BasePath+"/migrations/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApplyEndpointWritesTranslations(t *testing.T) {
	ts := setupTestServer(t, nil)
	id := ts.discoverOne(t, interfaces.Mobile, map[string]map[string]string{
		"home.title": {"en": "Home", "ar": "الرئيسية"},
	})

	rec := ts.do(t, "POST", BasePath+"/migrations/"+id+":apply", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result engine.ApplyResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, 2, result.RowsWritten)

	// Applying a completed record conflicts.
	rec = ts.do(t, "POST", BasePath+"/migrations/"+id+":apply", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The live store now serves the values.
	rec = ts.do(t, "GET", BasePath+"/translations/mobile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var live struct {
		Translations map[string]map[string]string `json:"translations"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&live))
	assert.Equal(t, "Home", live.Translations["home.title"]["en"])
}

func TestPreviewEndpoint(t *testing.T) {
	ts := setupTestServer(t, nil)
	id := ts.discoverOne(t, interfaces.Mobile, map[string]map[string]string{
		"home.title": {"en": "Home"},
		"login.cta":  {"en": "Sign in"},
	})

	rec := ts.do(t, "GET", BasePath+"/migrations/"+id+"/preview", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result engine.PreviewResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, 2, result.Summary.TotalKeys)
	assert.Equal(t, 2, result.Summary.NewKeys)

	// Preview never changes the record status.
	record, err := ts.ledger.Get(id)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, record.Status)
}

func TestRollbackEndpoint(t *testing.T) {
	ts := setupTestServer(t, nil)
	id := ts.discoverOne(t, interfaces.Mobile, map[string]map[string]string{
		"home.title": {"en": "Home"},
	})

	// Rollback before apply conflicts.
	rec := ts.do(t, "POST", BasePath+"/migrations/"+id+":rollback", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, "POST", BasePath+"/migrations/"+id+":apply", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, "POST", BasePath+"/migrations/"+id+":rollback", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result engine.RollbackResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, id, result.RecordID)

	// Rolled back is terminal.
	rec = ts.do(t, "POST", BasePath+"/migrations/"+id+":rollback", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDownloadEndpoint(t *testing.T) {
	ts := setupTestServer(t, nil)
	entries := map[string]map[string]string{"home.title": {"en": "Home"}}
	id := ts.discoverOne(t, interfaces.Mobile, entries)

	rec := ts.do(t, "GET", BasePath+"/migrations/"+id+"/download", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "en.json")
	assert.Equal(t, bundleJSON(t, entries), rec.Body.Bytes())
}

func TestApplyAsyncEnqueuesJob(t *testing.T) {
	ts := setupTestServer(t, nil)
	id := ts.discoverOne(t, interfaces.Mobile, map[string]map[string]string{
		"home.title": {"en": "Home"},
	})

	rec := ts.do(t, "POST", BasePath+"/migrations/"+id+":apply", applyRequest{Async: true})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var resp enqueuedJobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "queued", resp.State)
	assert.Equal(t, "apply", resp.Operation)

	// Job is visible via the jobs API.
	rec = ts.do(t, "GET", BasePath+"/jobs/"+resp.JobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The record itself is untouched until a worker picks the job up.
	record, err := ts.ledger.Get(id)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, record.Status)
}

func TestApplyBatchEndpoint(t *testing.T) {
	ts := setupTestServer(t, nil)

	rec := ts.do(t, "POST", BasePath+"/migrations:applyBatch", applyBatchRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	id := ts.discoverOne(t, interfaces.Mobile, map[string]map[string]string{
		"home.title": {"en": "Home"},
	})
	rec = ts.do(t, "POST", BasePath+"/migrations:applyBatch", applyBatchRequest{RecordIDs: []string{id}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result engine.BatchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, 1, result.Succeeded)
	assert.NotEmpty(t, result.BatchNumber)
}

func TestRetryFailedEndpointEmptySweep(t *testing.T) {
	ts := setupTestServer(t, nil)
	rec := ts.do(t, "POST", BasePath+"/migrations:retryFailed", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result engine.BatchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Zero(t, result.Succeeded)
	assert.Zero(t, result.Failed)
}

func TestAuditEventsRecordedForAPIWrites(t *testing.T) {
	ts := setupTestServer(t, nil)
	id := ts.discoverOne(t, interfaces.Mobile, map[string]map[string]string{
		"home.title": {"en": "Home"},
	})
	rec := ts.do(t, "POST", BasePath+"/migrations/"+id+":apply", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, "GET", BasePath+"/audit/events?actor=tester", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Events []struct {
			EventType string `json:"eventType"`
		} `json:"events"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	var types []string
	for _, e := range resp.Events {
		types = append(types, e.EventType)
	}
	assert.Contains(t, types, "api.discover")
	assert.Contains(t, types, "api.apply")
	assert.Contains(t, types, "migration.applied")
}

func TestAuthorizationDeniesUnboundUser(t *testing.T) {
	authorizer := authz.NewRoleMapAuthorizer(authz.RoleMap{
		Roles: map[string][]authz.Rule{
			"operator": {{Resources: []string{"*"}, Verbs: []string{"*"}}},
		},
		Bindings: map[string][]string{"user:tester": {"operator"}},
	})
	ts := setupTestServer(t, authorizer)

	// Bound user passes.
	rec := ts.do(t, "GET", BasePath+"/migrations", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Anonymous request is denied.
	req := httptest.NewRequest("GET", BasePath+"/migrations", nil)
	anon := httptest.NewRecorder()
	ts.router.ServeHTTP(anon, req)
	assert.Equal(t, http.StatusForbidden, anon.Code)
}

func TestHealthEndpoints(t *testing.T) {
	ts := setupTestServer(t, nil)

	rec := ts.do(t, "GET", "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, "GET", "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	ts.server.MarkReady()
	rec = ts.do(t, "GET", "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
