package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudsentry/posture/internal/application/dto"
	"github.com/cloudsentry/posture/internal/domain/models"
	"github.com/cloudsentry/posture/pkg/constants"
	"github.com/cloudsentry/posture/pkg/errors"
	"github.com/cloudsentry/posture/pkg/logger"
)

type stubAssessmentService struct {
	createResult *dto.AssessmentResult
	createErr    error
	metricsResp  *dto.MetricsResponse
	metricsErr   error
	lastCreate   *dto.CreateAssessmentRequest
}

func (s *stubAssessmentService) CreateAssessment(ctx context.Context, req *dto.CreateAssessmentRequest) (*dto.AssessmentResult, error) {
	s.lastCreate = req
	return s.createResult, s.createErr
}

func (s *stubAssessmentService) SaveAssessment(ctx context.Context, req *dto.SaveAssessmentRequest) (*dto.AssessmentResult, error) {
	return s.createResult, s.createErr
}

func (s *stubAssessmentService) ListAssessments(ctx context.Context, customerID, tenantID string, limit, offset int) ([]*models.Assessment, error) {
	return []*models.Assessment{}, nil
}

func (s *stubAssessmentService) GetHistory(ctx context.Context, query dto.HistoryQuery) ([]*models.AssessmentHistory, error) {
	return []*models.AssessmentHistory{}, nil
}

func (s *stubAssessmentService) GetLatestMetrics(ctx context.Context, tenantID string) (*dto.MetricsResponse, error) {
	return s.metricsResp, s.metricsErr
}

func newAssessmentRouter(stub *stubAssessmentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewAssessmentHandler(stub, logger.NewNoopLogger())
	engine.POST("/api/v1/assessments", h.Create)
	engine.POST("/api/v1/assessments/save", h.Save)
	engine.GET("/api/v1/assessments/history", h.History)
	engine.GET("/api/v1/metrics/latest", h.LatestMetrics)
	return engine
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) dto.APIResponse {
	t.Helper()
	var resp dto.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateAssessment_Handler201(t *testing.T) {
	stub := &stubAssessmentService{
		createResult: &dto.AssessmentResult{
			Assessment: &models.Assessment{
				ID:     "asmt-1",
				Status: constants.AssessmentStatusCompleted,
			},
			RealData: true,
		},
	}
	router := newAssessmentRouter(stub)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments",
		strings.NewReader(`{"customerId":"cust-1","includedCategories":["license"]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)

	require.NotNil(t, stub.lastCreate)
	assert.Equal(t, "cust-1", stub.lastCreate.CustomerID)
	assert.Equal(t, []string{"license"}, stub.lastCreate.IncludedCategories)
}

func TestCreateAssessment_HandlerMalformedBody(t *testing.T) {
	router := newAssessmentRouter(&stubAssessmentService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(errors.CodeInvalidRequest), resp.Error.Code)
}

func TestCreateAssessment_HandlerErrorMapping(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{errors.ErrCustomerIDRequired(), http.StatusBadRequest, string(errors.CodeCustomerIDRequired)},
		{errors.ErrCustomerNotFound("x"), http.StatusNotFound, string(errors.CodeCustomerNotFound)},
		{errors.ErrCredentialsIncomplete("x"), http.StatusBadRequest, string(errors.CodeCredentialsIncomplete)},
		{errors.ErrStoreUnavailable(nil), http.StatusInternalServerError, string(errors.CodeStoreUnavailable)},
	}
	for _, tc := range cases {
		router := newAssessmentRouter(&stubAssessmentService{createErr: tc.err})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments",
			strings.NewReader(`{"customerId":"cust-1"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(rec, req)

		assert.Equalf(t, tc.wantStatus, rec.Code, "error %v", tc.err)
		resp := decodeEnvelope(t, rec)
		require.NotNilf(t, resp.Error, "error %v", tc.err)
		assert.Equal(t, tc.wantCode, resp.Error.Code)
	}
}

func TestHistory_RequiresTenantOrCustomer(t *testing.T) {
	router := newAssessmentRouter(&stubAssessmentService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/assessments/history", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLatestMetrics_ZeroedPayloadPassesThrough(t *testing.T) {
	stub := &stubAssessmentService{
		metricsResp: &dto.MetricsResponse{
			TenantID:        "tenant-1",
			CategoryScores:  map[string]float64{},
			Recommendations: []string{},
			NoAssessment:    true,
		},
	}
	router := newAssessmentRouter(stub)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics/latest?tenantId=tenant-1", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.True(t, resp.Success)

	payload, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var metrics dto.MetricsResponse
	require.NoError(t, json.Unmarshal(payload, &metrics))
	assert.True(t, metrics.NoAssessment)
	assert.Equal(t, 0.0, metrics.OverallScore)
}
