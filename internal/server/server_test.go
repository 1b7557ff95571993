package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takuto-ai/takuto/internal/agent"
	"github.com/takuto-ai/takuto/internal/auth"
	"github.com/takuto-ai/takuto/internal/metrics"
	"github.com/takuto-ai/takuto/internal/model"
	"github.com/takuto-ai/takuto/internal/orchestrator"
	"github.com/takuto-ai/takuto/internal/server"
	"github.com/takuto-ai/takuto/internal/storage/sqlite"
	"github.com/takuto-ai/takuto/internal/testutil"
)

const testAPIKey = "test-api-key"

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	logger := testutil.TestLogger()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "takuto.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(t.Context()))

	jwtMgr, err := auth.NewJWTManager(time.Hour)
	require.NoError(t, err)

	agents, err := agent.Build(agent.DefaultRoster(), logger)
	require.NoError(t, err)
	orch, err := orchestrator.New(agents, logger)
	require.NoError(t, err)

	hash, err := auth.HashAPIKey(testAPIKey)
	require.NoError(t, err)

	return server.New(server.ServerConfig{
		Store:               store,
		StoreKind:           "sqlite",
		JWTMgr:              jwtMgr,
		Orchestrator:        orch,
		Engine:              metrics.NewEngine(store, logger),
		APIKeyHash:          hash,
		Logger:              logger,
		Port:                8080,
		Version:             "test",
		MaxRequestBodyBytes: 1 << 20,
		AnalysisTimeout:     time.Minute,
	})
}

// doJSON performs a request against the server's handler and decodes the
// data portion of the response envelope into out (when out is non-nil).
func doJSON(t *testing.T, s *server.Server, method, path, token string, body, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
	return rec
}

func authToken(t *testing.T, s *server.Server) string {
	t.Helper()
	var resp model.AuthTokenResponse
	rec := doJSON(t, s, http.MethodPost, "/auth/token", "",
		model.AuthTokenRequest{Client: "test", APIKey: testAPIKey}, &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealth_NoAuthRequired(t *testing.T) {
	s := newTestServer(t)

	var resp model.HealthResponse
	rec := doJSON(t, s, http.MethodGet, "/health", "", nil, &resp)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "sqlite:connected", resp.Store)
	assert.Equal(t, 6, resp.Agents)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAuthToken_WrongKeyRejected(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/auth/token", "",
		model.AuthTokenRequest{Client: "test", APIKey: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/v1/projects/proj-a/metrics", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/v1/projects/proj-a/metrics", "not-a-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIngestAndMetricsRoundTrip(t *testing.T) {
	s := newTestServer(t)
	token := authToken(t, s)

	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	ingest := map[string]any{
		"records": []model.DurationInput{
			{Timestamp: base, ProjectID: "proj-a", WorkPackage: "Foundation", PlannedDuration: 30, ActualDuration: 30},
			{Timestamp: base.Add(time.Hour), ProjectID: "proj-a", WorkPackage: "Framing", PlannedDuration: 30, ActualDuration: 45},
		},
	}
	var ingResp model.IngestResponse
	rec := doJSON(t, s, http.MethodPost, "/v1/records/durations", token, ingest, &ingResp)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(2), ingResp.Inserted)

	path := fmt.Sprintf("/v1/projects/proj-a/metrics?start=%s&end=%s",
		"2024-03-01T00:00:00Z", "2024-03-02T00:00:00Z")
	var resp struct {
		ProjectID string         `json:"project_id"`
		Metrics   metrics.Bundle `json:"metrics"`
	}
	rec = doJSON(t, s, http.MethodGet, path, token, nil, &resp)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "proj-a", resp.ProjectID)
	// One of two records within the 1.1 tolerance.
	assert.InDelta(t, 50.0, resp.Metrics.TaktAdherence.AverageAdherence, 0.001)
	require.Len(t, resp.Metrics.Bottlenecks, 1)
	assert.Equal(t, "Framing", resp.Metrics.Bottlenecks[0].WorkPackage)
}

func TestIngestUtilization(t *testing.T) {
	s := newTestServer(t)
	token := authToken(t, s)

	ingest := map[string]any{
		"records": []model.UtilizationInput{
			{Timestamp: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), ProjectID: "proj-a", ResourceType: "Labor", Planned: 100, Actual: 90},
		},
	}
	var ingResp model.IngestResponse
	rec := doJSON(t, s, http.MethodPost, "/v1/records/utilization", token, ingest, &ingResp)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(1), ingResp.Inserted)

	path := "/v1/projects/proj-a/metrics?start=2024-03-01T00:00:00Z&end=2024-03-02T00:00:00Z"
	var resp struct {
		ResourceUtilization []metrics.ResourceEfficiency `json:"resource_utilization"`
	}
	rec = doJSON(t, s, http.MethodGet, path, token, nil, &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.ResourceUtilization, 1)
	assert.Equal(t, "Labor", resp.ResourceUtilization[0].ResourceType)
	assert.InDelta(t, 90.0, resp.ResourceUtilization[0].AvgEfficiency, 0.001)
}

func TestIngestRisks_AndSnapshotQuery(t *testing.T) {
	s := newTestServer(t)
	token := authToken(t, s)

	ingest := map[string]any{
		"records": []model.RiskRecord{
			{ProjectID: "proj-a", RiskType: "Weather Delay", Probability: 0.4, Impact: 0.6, Status: model.RiskActive, MitigationPlan: "indoor staging"},
			{ProjectID: "proj-a", RiskType: "Labor Shortage", Probability: 0.2, Impact: 0.5, Status: model.RiskMitigated, MitigationPlan: "cross training"},
		},
	}
	rec := doJSON(t, s, http.MethodPost, "/v1/records/risks", token, ingest, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var risks []model.RiskRecord
	rec = doJSON(t, s, http.MethodGet, "/v1/projects/proj-a/risks", token, nil, &risks)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, risks, 2)
	// Snapshot rows come back ordered by risk type.
	assert.Equal(t, "Labor Shortage", risks[0].RiskType)
	assert.Equal(t, "Weather Delay", risks[1].RiskType)
}

func TestIngestRisks_InvalidProbabilityRejectsBatch(t *testing.T) {
	s := newTestServer(t)
	token := authToken(t, s)

	ingest := map[string]any{
		"records": []model.RiskRecord{
			{ProjectID: "proj-a", RiskType: "Weather Delay", Probability: 1.4, Impact: 0.6, Status: model.RiskActive},
		},
	}
	rec := doJSON(t, s, http.MethodPost, "/v1/records/risks", token, ingest, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var risks []model.RiskRecord
	rec = doJSON(t, s, http.MethodGet, "/v1/projects/proj-a/risks", token, nil, &risks)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, risks)
}

func TestAnalyze_RunsFullRoster(t *testing.T) {
	s := newTestServer(t)
	token := authToken(t, s)

	actx := model.AnalysisContext{
		ProjectID:      "proj-a",
		ProjectName:    "Harbor Tower",
		Duration:       90,
		TeamSize:       24,
		AvailableHours: 40,
		DemandUnits:    8,
		Complexity:     "high",
	}
	var result orchestrator.Result
	rec := doJSON(t, s, http.MethodPost, "/v1/analyze", token, actx, &result)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Len(t, result.IndividualAnalyses, 6)
	for _, a := range result.IndividualAnalyses {
		assert.Len(t, a.CrossValidation, 5)
	}
	assert.NotEmpty(t, result.Synthesized.StrategicRecommendations)
	assert.Equal(t, "proj-a", result.ProjectContext.ProjectID)
}

func TestAnalyze_LoadsStoredHistory(t *testing.T) {
	s := newTestServer(t)
	token := authToken(t, s)

	ingest := map[string]any{
		"records": []model.DurationInput{
			{Timestamp: time.Now().UTC().Add(-time.Hour), ProjectID: "proj-a", WorkPackage: "Foundation", PlannedDuration: 30, ActualDuration: 33},
		},
	}
	rec := doJSON(t, s, http.MethodPost, "/v1/records/durations", token, ingest, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var result orchestrator.Result
	rec = doJSON(t, s, http.MethodPost, "/v1/analyze", token,
		model.AnalysisContext{ProjectID: "proj-a", Duration: 90, TeamSize: 10}, &result)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, result.ProjectContext.History, 1)
	assert.Equal(t, "Foundation", result.ProjectContext.History[0].WorkPackage)
}

func TestMetrics_BadWindowRejected(t *testing.T) {
	s := newTestServer(t)
	token := authToken(t, s)

	rec := doJSON(t, s, http.MethodGet,
		"/v1/projects/proj-a/metrics?start=yesterday", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodGet,
		"/v1/projects/proj-a/metrics?start=2024-03-02T00:00:00Z&end=2024-03-01T00:00:00Z", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_EmptyBatchRejected(t *testing.T) {
	s := newTestServer(t)
	token := authToken(t, s)

	rec := doJSON(t, s, http.MethodPost, "/v1/records/durations", token,
		map[string]any{"records": []model.DurationInput{}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_UnknownFieldRejected(t *testing.T) {
	s := newTestServer(t)
	token := authToken(t, s)

	rec := doJSON(t, s, http.MethodPost, "/v1/records/durations", token,
		map[string]any{"record": "typo"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
