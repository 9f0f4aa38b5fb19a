// Package service implements the application services orchestrating the
// assessment pipeline and customer management.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudsentry/posture/internal/application/dto"
	"github.com/cloudsentry/posture/internal/domain/models"
	"github.com/cloudsentry/posture/internal/domain/repository"
	domainsvc "github.com/cloudsentry/posture/internal/domain/service"
	"github.com/cloudsentry/posture/internal/infrastructure/cache"
	"github.com/cloudsentry/posture/internal/infrastructure/monitoring"
	"github.com/cloudsentry/posture/pkg/constants"
	"github.com/cloudsentry/posture/pkg/errors"
	"github.com/cloudsentry/posture/pkg/logger"
	"github.com/cloudsentry/posture/pkg/utils"
)

// StoreGuard exposes the lazy initialization surface of the backing store
// gateway. Every operation initializes on first use; a table-missing failure
// during persist triggers exactly one Reinitialize plus retry.
type StoreGuard interface {
	Initialize(ctx context.Context) error
	Reinitialize(ctx context.Context) error
}

// AssessmentService drives the assessment pipeline end to end.
type AssessmentService interface {
	CreateAssessment(ctx context.Context, req *dto.CreateAssessmentRequest) (*dto.AssessmentResult, error)
	SaveAssessment(ctx context.Context, req *dto.SaveAssessmentRequest) (*dto.AssessmentResult, error)
	ListAssessments(ctx context.Context, customerID, tenantID string, limit, offset int) ([]*models.Assessment, error)
	GetHistory(ctx context.Context, query dto.HistoryQuery) ([]*models.AssessmentHistory, error)
	GetLatestMetrics(ctx context.Context, tenantID string) (*dto.MetricsResponse, error)
}

// RuntimeFlags is the subset of hot-reloadable configuration the pipeline
// consults per request.
type RuntimeFlags interface {
	CacheBypass() bool
}

type assessmentService struct {
	customers   repository.CustomerRepository
	assessments repository.AssessmentRepository
	store       StoreGuard
	directory   domainsvc.DirectoryClient
	secrets     domainsvc.SecretStore
	audit       domainsvc.AuditPublisher
	respCache   cache.ResponseCache
	metrics     *monitoring.Metrics
	runtime     RuntimeFlags
	log         logger.Logger
	cacheTTL    time.Duration
	now         func() time.Time
}

// NewAssessmentService wires the assessment pipeline. metrics may be nil in
// tests; audit must be non-nil (use the noop publisher when no stream is
// configured).
func NewAssessmentService(
	customers repository.CustomerRepository,
	assessments repository.AssessmentRepository,
	store StoreGuard,
	directory domainsvc.DirectoryClient,
	secrets domainsvc.SecretStore,
	audit domainsvc.AuditPublisher,
	respCache cache.ResponseCache,
	metrics *monitoring.Metrics,
	runtime RuntimeFlags,
	log logger.Logger,
	cacheTTL time.Duration,
) AssessmentService {
	if cacheTTL <= 0 {
		cacheTTL = constants.DefaultCacheTTL
	}
	return &assessmentService{
		customers:   customers,
		assessments: assessments,
		store:       store,
		directory:   directory,
		secrets:     secrets,
		audit:       audit,
		respCache:   respCache,
		metrics:     metrics,
		runtime:     runtime,
		log:         log.WithComponent("assessment-service"),
		cacheTTL:    cacheTTL,
		now:         time.Now,
	}
}

// CreateAssessment runs the full pipeline for a customer and persists a new
// assessment plus one history row.
func (s *assessmentService) CreateAssessment(ctx context.Context, req *dto.CreateAssessmentRequest) (*dto.AssessmentResult, error) {
	started := s.now()

	customer, categories, err := s.resolve(ctx, req.CustomerID, req.IncludedCategories)
	if err != nil {
		return nil, err
	}

	result, err := s.run(ctx, customer, categories, req.AssessmentName, "", false)
	s.recordRun(result, err, s.now().Sub(started))
	return result, err
}

// SaveAssessment upserts: with an ID the existing assessment is re-scored and
// updated in place, otherwise it behaves like CreateAssessment. Both paths
// append exactly one history row.
func (s *assessmentService) SaveAssessment(ctx context.Context, req *dto.SaveAssessmentRequest) (*dto.AssessmentResult, error) {
	started := s.now()

	customer, categories, err := s.resolve(ctx, req.CustomerID, req.IncludedCategories)
	if err != nil {
		return nil, err
	}

	update := false
	if req.ID != "" {
		existing, findErr := s.assessments.FindByID(ctx, req.ID)
		if findErr != nil {
			return nil, findErr
		}
		if existing.CustomerID != customer.ID {
			return nil, errors.ErrAssessmentNotFound(req.ID)
		}
		update = true
	}

	result, err := s.run(ctx, customer, categories, req.AssessmentName, req.ID, update)
	s.recordRun(result, err, s.now().Sub(started))
	return result, err
}

// resolve is the Resolving stage: validate the customer reference and make
// sure a usable credential exists. Failures here abort before anything is
// written.
func (s *assessmentService) resolve(ctx context.Context, customerID string, requested []string) (*models.Customer, models.CategoryList, error) {
	if customerID == "" {
		return nil, nil, errors.ErrCustomerIDRequired()
	}

	if err := s.store.Initialize(ctx); err != nil {
		return nil, nil, err
	}

	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, nil, err
	}
	if !customer.CanAssess() {
		return nil, nil, errors.ErrCredentialsIncomplete(customerID)
	}

	categories, err := normalizeCategories(requested)
	if err != nil {
		return nil, nil, err
	}
	return customer, categories, nil
}

// fetchOutcome records one directory fetch attempt for status derivation.
type fetchOutcome struct {
	source string
	err    error
}

// run executes the Fetching, Scoring, and Persisting stages.
func (s *assessmentService) run(ctx context.Context, customer *models.Customer, categories models.CategoryList, name, existingID string, update bool) (*dto.AssessmentResult, error) {
	secret, err := s.secrets.Resolve(ctx, customer.Credentials.SecretRef)
	if err != nil {
		s.log.Error(ctx, "Failed to resolve customer secret", err,
			logger.String("customer_id", customer.ID))
		return nil, errors.ErrCredentialsIncomplete(customer.ID)
	}

	// Fetching. The two sources are independent; each failure is recorded
	// and the run continues with whatever arrived.
	var license *models.LicenseReport
	var secure *models.SecureScoreReport
	var outcomes []fetchOutcome

	if categories.Contains(constants.CategoryLicense) {
		license, err = s.directory.FetchLicenseReport(ctx, customer.TenantID, customer.Credentials.ClientID, secret)
		outcomes = append(outcomes, fetchOutcome{source: string(constants.CategoryLicense), err: err})
		s.recordFetch(string(constants.CategoryLicense), err)
		if err != nil {
			license = nil
			s.log.Warn(ctx, "License report fetch failed",
				logger.String("tenant_id", customer.TenantID), logger.Err(err))
		}
	}
	if categories.Contains(constants.CategorySecureScore) {
		secure, err = s.directory.FetchSecureScore(ctx, customer.TenantID, customer.Credentials.ClientID, secret)
		outcomes = append(outcomes, fetchOutcome{source: string(constants.CategorySecureScore), err: err})
		s.recordFetch(string(constants.CategorySecureScore), err)
		if err != nil {
			secure = nil
			s.log.Warn(ctx, "Secure score fetch failed",
				logger.String("tenant_id", customer.TenantID), logger.Err(err))
		}
	}

	// Scoring. Pure computation on whatever data arrived.
	scores := domainsvc.ComputeScores(license, secure)
	recommendations := domainsvc.GenerateRecommendations(license, secure)

	status, dataCollected, issue := deriveStatus(outcomes)

	now := s.now().UTC()
	assessment := &models.Assessment{
		ID:             existingID,
		CustomerID:     customer.ID,
		TenantID:       customer.TenantID,
		Name:           name,
		AssessmentDate: now,
		Status:         status,
		Categories:     categories,
		Metrics: models.AssessmentMetrics{
			OverallScore:    scores.Overall,
			CategoryScores:  scores.Categories,
			DataCollected:   dataCollected,
			LicenseReport:   license,
			SecureScore:     secure,
			Recommendations: recommendations,
			DataIssue:       issue,
		},
		LastModified: now,
	}
	if assessment.ID == "" {
		assessment.ID = utils.NewAssessmentID(now)
	}

	entry := &models.AssessmentHistory{
		ID:             utils.NewHistoryID(),
		AssessmentID:   assessment.ID,
		TenantID:       assessment.TenantID,
		CustomerID:     assessment.CustomerID,
		Date:           now,
		OverallScore:   scores.Overall,
		CategoryScores: models.ScoreMap(scores.Categories),
	}

	// Persisting, with one automatic re-initialize retry when a backing
	// table disappeared underneath us.
	if err := s.withReinitRetry(ctx, func() error {
		return s.assessments.PersistRun(ctx, assessment, entry, update)
	}); err != nil {
		return nil, err
	}

	// The customer projection is best effort: the assessment row is already
	// the record of truth, so a counter failure is logged and swallowed.
	if err := s.customers.RecordAssessment(ctx, customer.ID, now); err != nil {
		s.log.Warn(ctx, "Failed to update customer assessment counters",
			logger.String("customer_id", customer.ID), logger.Err(err))
	}

	s.invalidateTenant(ctx, customer.TenantID)

	s.audit.AssessmentCompleted(ctx, domainsvc.AssessmentEvent{
		AssessmentID: assessment.ID,
		CustomerID:   assessment.CustomerID,
		TenantID:     assessment.TenantID,
		Status:       string(status),
		OverallScore: scores.Overall,
		RealData:     dataCollected,
	})

	s.log.Info(ctx, "Assessment persisted",
		logger.String("assessment_id", assessment.ID),
		logger.String("tenant_id", assessment.TenantID),
		logger.String("status", string(status)),
		logger.Float64("overall_score", scores.Overall),
		logger.Bool("real_data", dataCollected),
	)

	return &dto.AssessmentResult{Assessment: assessment, RealData: dataCollected}, nil
}

// ListAssessments lists persisted assessments, most recent first.
func (s *assessmentService) ListAssessments(ctx context.Context, customerID, tenantID string, limit, offset int) ([]*models.Assessment, error) {
	if err := s.store.Initialize(ctx); err != nil {
		return nil, err
	}
	filter := repository.AssessmentFilter{
		CustomerID: customerID,
		TenantID:   tenantID,
		Limit:      utils.ClampLimit(limit, constants.DefaultListLimit, constants.MaxListLimit),
		Offset:     offset,
	}
	return s.assessments.FindAll(ctx, filter)
}

// GetHistory returns the score trend rows for a tenant or customer, cached
// for the configured TTL.
func (s *assessmentService) GetHistory(ctx context.Context, query dto.HistoryQuery) ([]*models.AssessmentHistory, error) {
	if err := s.store.Initialize(ctx); err != nil {
		return nil, err
	}

	limit := utils.ClampLimit(query.Limit, constants.DefaultListLimit, constants.MaxListLimit)
	key := fmt.Sprintf("%s%s:%s:%d", constants.CacheKeyHistoryPrefix, query.TenantID, query.CustomerID, limit)

	var rows []*models.AssessmentHistory
	if s.cacheGet(ctx, key, &rows) {
		return rows, nil
	}

	rows, err := s.assessments.FindHistory(ctx, repository.AssessmentFilter{
		TenantID:   query.TenantID,
		CustomerID: query.CustomerID,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, rows)
	return rows, nil
}

// GetLatestMetrics returns the most recent assessment metrics for a tenant.
// A tenant with no assessment yet gets a zeroed payload, never an error.
func (s *assessmentService) GetLatestMetrics(ctx context.Context, tenantID string) (*dto.MetricsResponse, error) {
	if tenantID == "" {
		return nil, errors.ErrInvalidRequest("tenantId is required")
	}
	if err := s.store.Initialize(ctx); err != nil {
		return nil, err
	}

	key := constants.CacheKeyMetricsPrefix + tenantID
	var cached dto.MetricsResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	latest, err := s.assessments.FindLatestByTenant(ctx, tenantID)
	if err != nil {
		if errors.IsNotFound(err) {
			return emptyMetrics(tenantID), nil
		}
		return nil, err
	}

	resp := &dto.MetricsResponse{
		TenantID:        tenantID,
		AssessmentID:    latest.ID,
		AssessmentDate:  &latest.AssessmentDate,
		OverallScore:    latest.Metrics.OverallScore,
		CategoryScores:  latest.Metrics.CategoryScores,
		DataCollected:   latest.Metrics.DataCollected,
		Recommendations: latest.Metrics.Recommendations,
	}
	if resp.CategoryScores == nil {
		resp.CategoryScores = map[string]float64{}
	}
	if resp.Recommendations == nil {
		resp.Recommendations = []string{}
	}
	s.cacheSet(ctx, key, resp)
	return resp, nil
}

// withReinitRetry runs op, and on a table-missing failure re-initializes the
// store exactly once and retries. Any other failure passes through.
func (s *assessmentService) withReinitRetry(ctx context.Context, op func() error) error {
	err := op()
	if err == nil || !errors.IsTableMissing(err) {
		return err
	}

	s.log.Warn(ctx, "Backing table missing, re-initializing store", logger.Err(err))
	if rerr := s.store.Reinitialize(ctx); rerr != nil {
		return rerr
	}
	return op()
}

func (s *assessmentService) invalidateTenant(ctx context.Context, tenantID string) {
	if s.respCache == nil {
		return
	}
	s.respCache.DeletePrefix(ctx, constants.CacheKeyHistoryPrefix+tenantID)
	s.respCache.Delete(ctx, constants.CacheKeyMetricsPrefix+tenantID)
}

func (s *assessmentService) cacheGet(ctx context.Context, key string, dst interface{}) bool {
	if s.respCache == nil || (s.runtime != nil && s.runtime.CacheBypass()) {
		return false
	}
	payload, ok := s.respCache.Get(ctx, key)
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(ok)
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		s.respCache.Delete(ctx, key)
		return false
	}
	return true
}

func (s *assessmentService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.respCache == nil || (s.runtime != nil && s.runtime.CacheBypass()) {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	s.respCache.Set(ctx, key, payload, s.cacheTTL)
}

func (s *assessmentService) recordFetch(source string, err error) {
	if s.metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = string(errors.CodeOf(err))
	}
	s.metrics.RecordGraphFetch(source, result)
}

func (s *assessmentService) recordRun(result *dto.AssessmentResult, err error, took time.Duration) {
	if s.metrics == nil {
		return
	}
	status := string(constants.AssessmentStatusFailed)
	if err == nil && result != nil {
		status = string(result.Assessment.Status)
	}
	s.metrics.RecordAssessment(status, took)
}

// deriveStatus classifies the run from the fetch outcomes. All requested
// sources succeeded means completed; any failure downgrades to limited data.
// When every fetch failed the record additionally carries a diagnostic so a
// degraded assessment stays inspectable instead of being discarded.
func deriveStatus(outcomes []fetchOutcome) (constants.AssessmentStatus, bool, *models.DataIssue) {
	if len(outcomes) == 0 {
		return constants.AssessmentStatusCompleted, false, nil
	}

	var failed []fetchOutcome
	for _, o := range outcomes {
		if o.err != nil {
			failed = append(failed, o)
		}
	}

	switch {
	case len(failed) == 0:
		return constants.AssessmentStatusCompleted, true, nil
	case len(failed) < len(outcomes):
		return constants.AssessmentStatusCompletedLimited, true, nil
	default:
		issue := &models.DataIssue{
			Message: "No directory data could be collected; scores use neutral defaults.",
		}
		for _, f := range failed {
			issue.Errors = append(issue.Errors, fmt.Sprintf("%s: %v", f.source, f.err))
			if hint := hintFor(f.err); hint != "" {
				issue.Hints = appendUnique(issue.Hints, hint)
			}
		}
		return constants.AssessmentStatusCompletedLimited, false, issue
	}
}

func hintFor(err error) string {
	switch errors.CodeOf(err) {
	case errors.CodeAuthenticationFailed:
		return "Verify the application client secret is current and not expired."
	case errors.CodeInsufficientPermissions:
		return "Grant the required application permissions and admin consent in the tenant."
	case errors.CodeNotAvailable:
		return "The tenant has no data for this report yet; retry after the service has produced one."
	case errors.CodeUpstreamError:
		return "The directory API did not respond; retry later."
	}
	return ""
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// normalizeCategories maps request strings onto the known category set,
// applying the default pair when the request names none.
func normalizeCategories(requested []string) (models.CategoryList, error) {
	if len(requested) == 0 {
		return models.CategoryList(constants.DefaultCategories), nil
	}

	known := map[constants.AssessmentCategory]bool{
		constants.CategoryLicense:        true,
		constants.CategorySecureScore:    true,
		constants.CategoryIdentity:       true,
		constants.CategoryDataProtection: true,
		constants.CategoryCloudApps:      true,
	}

	out := make(models.CategoryList, 0, len(requested))
	for _, raw := range requested {
		c := constants.AssessmentCategory(raw)
		if !known[c] {
			return nil, errors.ErrInvalidRequest("unknown assessment category: " + raw)
		}
		out = append(out, c)
	}
	return out, nil
}

func emptyMetrics(tenantID string) *dto.MetricsResponse {
	return &dto.MetricsResponse{
		TenantID:        tenantID,
		OverallScore:    0,
		CategoryScores:  map[string]float64{},
		DataCollected:   false,
		Recommendations: []string{},
		NoAssessment:    true,
	}
}
