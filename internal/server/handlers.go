package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/takuto-ai/takuto/internal/auth"
	"github.com/takuto-ai/takuto/internal/metrics"
	"github.com/takuto-ai/takuto/internal/model"
	"github.com/takuto-ai/takuto/internal/orchestrator"
)

// Store is the persistence contract the HTTP layer needs. Both the Postgres
// and the embedded SQLite store satisfy it.
type Store interface {
	metrics.RecordStore
	InsertDurations(ctx context.Context, records []model.DurationRecord) (int64, error)
	InsertUtilizations(ctx context.Context, records []model.UtilizationRecord) (int64, error)
	InsertRisks(ctx context.Context, records []model.RiskRecord) error
	Ping(ctx context.Context) error
}

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	store               Store
	storeKind           string
	jwtMgr              *auth.JWTManager
	orch                *orchestrator.Orchestrator
	engine              *metrics.Engine
	apiKeyHash          string
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
	analysisTimeout     time.Duration
}

// HandlersDeps holds all dependencies for constructing Handlers.
type HandlersDeps struct {
	Store               Store
	StoreKind           string // "postgres" or "sqlite", reported by /health
	JWTMgr              *auth.JWTManager
	Orchestrator        *orchestrator.Orchestrator
	Engine              *metrics.Engine
	APIKeyHash          string // Argon2id hash; empty disables /auth/token
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
	AnalysisTimeout     time.Duration
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		store:               d.Store,
		storeKind:           d.StoreKind,
		jwtMgr:              d.JWTMgr,
		orch:                d.Orchestrator,
		engine:              d.Engine,
		apiKeyHash:          d.APIKeyHash,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
		analysisTimeout:     d.AnalysisTimeout,
	}
}

// HandleAuthToken handles POST /auth/token. The configured API key is
// exchanged for a short-lived JWT.
func (h *Handlers) HandleAuthToken(w http.ResponseWriter, r *http.Request) {
	var req model.AuthTokenRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.Client == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "client is required")
		return
	}

	if h.apiKeyHash == "" {
		// Hash anyway so timing does not reveal that no key is configured.
		auth.DummyVerify()
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
		return
	}

	valid, err := auth.VerifyAPIKey(req.APIKey, h.apiKeyHash)
	if err != nil || !valid {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := h.jwtMgr.IssueToken(req.Client)
	if err != nil {
		h.writeInternalError(w, r, "failed to issue token", err)
		return
	}

	writeJSON(w, r, http.StatusOK, model.AuthTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// HandleAnalyze handles POST /v1/analyze. The body is the project context;
// when it carries no history and names a project, stored duration records
// are loaded as history before the roster runs.
func (h *Handlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var actx model.AnalysisContext
	if err := decodeJSON(w, r, &actx, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	ctx := r.Context()
	if h.analysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.analysisTimeout)
		defer cancel()
	}

	if len(actx.History) == 0 && actx.ProjectID != "" {
		history, err := h.store.QueryDurations(ctx, actx.ProjectID, time.Unix(0, 0).UTC(), time.Now().UTC())
		if err != nil {
			h.writeInternalError(w, r, "failed to load project history", err)
			return
		}
		actx.History = history
	}

	result, err := h.orch.AnalyzeProject(ctx, actx)
	if err != nil {
		if ctx.Err() != nil {
			writeError(w, r, http.StatusGatewayTimeout, model.ErrCodeUnavailable, "analysis timed out")
			return
		}
		h.writeInternalError(w, r, "analysis failed", err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// projectMetricsResponse bundles derived metrics with resource efficiency
// aggregates for one project window.
type projectMetricsResponse struct {
	ProjectID           string                       `json:"project_id"`
	Start               time.Time                    `json:"start"`
	End                 time.Time                    `json:"end"`
	Metrics             metrics.Bundle               `json:"metrics"`
	ResourceUtilization []metrics.ResourceEfficiency `json:"resource_utilization"`
}

// HandleProjectMetrics handles GET /v1/projects/{project_id}/metrics.
// Optional start and end query parameters are RFC3339; the window defaults
// to the trailing 30 days.
func (h *Handlers) HandleProjectMetrics(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")
	if projectID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "project_id is required")
		return
	}

	start, end, err := queryWindow(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	bundle, err := h.engine.Compute(r.Context(), projectID, start, end)
	if err != nil {
		h.writeInternalError(w, r, "failed to compute metrics", err)
		return
	}
	resources, err := h.engine.ResourceEfficiencies(r.Context(), projectID, start, end)
	if err != nil {
		h.writeInternalError(w, r, "failed to compute resource efficiencies", err)
		return
	}

	writeJSON(w, r, http.StatusOK, projectMetricsResponse{
		ProjectID:           projectID,
		Start:               start,
		End:                 end,
		Metrics:             bundle,
		ResourceUtilization: resources,
	})
}

// HandleProjectRisks handles GET /v1/projects/{project_id}/risks. Returns
// the project's most recent risk snapshot.
func (h *Handlers) HandleProjectRisks(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")
	if projectID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "project_id is required")
		return
	}

	risks, err := h.engine.RiskMatrix(r.Context(), projectID)
	if err != nil {
		h.writeInternalError(w, r, "failed to load risks", err)
		return
	}
	writeJSON(w, r, http.StatusOK, risks)
}

// HandleIngestDurations handles POST /v1/records/durations. Derived fields
// are computed server-side from the submitted raw observations.
func (h *Handlers) HandleIngestDurations(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Records []model.DurationInput `json:"records"`
	}
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if len(req.Records) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "records is required")
		return
	}

	records := make([]model.DurationRecord, 0, len(req.Records))
	for i, in := range req.Records {
		if in.ProjectID == "" || in.WorkPackage == "" {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
				fmt.Sprintf("records[%d]: project_id and work_package are required", i))
			return
		}
		ts := in.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		records = append(records, model.NewDurationRecord(ts, in.ProjectID, in.WorkPackage, in.PlannedDuration, in.ActualDuration))
	}

	inserted, err := h.store.InsertDurations(r.Context(), records)
	if err != nil {
		h.writeInternalError(w, r, "failed to insert durations", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, model.IngestResponse{Inserted: inserted})
}

// HandleIngestUtilization handles POST /v1/records/utilization.
func (h *Handlers) HandleIngestUtilization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Records []model.UtilizationInput `json:"records"`
	}
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if len(req.Records) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "records is required")
		return
	}

	records := make([]model.UtilizationRecord, 0, len(req.Records))
	for i, in := range req.Records {
		if in.ProjectID == "" || in.ResourceType == "" {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
				fmt.Sprintf("records[%d]: project_id and resource_type are required", i))
			return
		}
		ts := in.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		records = append(records, model.NewUtilizationRecord(ts, in.ProjectID, in.ResourceType, in.Planned, in.Actual))
	}

	inserted, err := h.store.InsertUtilizations(r.Context(), records)
	if err != nil {
		h.writeInternalError(w, r, "failed to insert utilization records", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, model.IngestResponse{Inserted: inserted})
}

// HandleIngestRisks handles POST /v1/records/risks. The submitted records
// form one snapshot; a single invalid record rejects the whole batch.
func (h *Handlers) HandleIngestRisks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Records []model.RiskRecord `json:"records"`
	}
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if len(req.Records) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "records is required")
		return
	}

	now := time.Now().UTC()
	for i := range req.Records {
		if req.Records[i].ProjectID == "" {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
				fmt.Sprintf("records[%d]: project_id is required", i))
			return
		}
		if req.Records[i].Timestamp.IsZero() {
			req.Records[i].Timestamp = now
		}
		if err := req.Records[i].Validate(); err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
				fmt.Sprintf("records[%d]: %v", i, err))
			return
		}
	}

	if err := h.store.InsertRisks(r.Context(), req.Records); err != nil {
		h.writeInternalError(w, r, "failed to insert risks", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, model.IngestResponse{Inserted: int64(len(req.Records))})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK
	storeStatus := h.storeKind + ":connected"
	if err := h.store.Ping(r.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
		storeStatus = h.storeKind + ":disconnected"
	}

	writeJSON(w, r, httpStatus, model.HealthResponse{
		Status:  status,
		Version: h.version,
		Store:   storeStatus,
		Agents:  len(h.orch.Agents()),
		Uptime:  int64(time.Since(h.startedAt).Seconds()),
	})
}

func (h *Handlers) writeInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, "error", err, "request_id", RequestIDFromContext(r.Context()))
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, msg)
}

// defaultMetricsWindow is the trailing window used when the caller provides
// no start or end.
const defaultMetricsWindow = 30 * 24 * time.Hour

// queryWindow parses optional RFC3339 start and end query parameters.
func queryWindow(r *http.Request) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	start := end.Add(-defaultMetricsWindow)

	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end: expected RFC3339 format (e.g. 2024-01-01T00:00:00Z)")
		}
		end = t
		start = end.Add(-defaultMetricsWindow)
	}
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start: expected RFC3339 format (e.g. 2024-01-01T00:00:00Z)")
		}
		start = t
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start must be before end")
	}
	return start, end, nil
}
