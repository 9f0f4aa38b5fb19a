package gateway

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cloudsentry/posture/internal/domain/models"
	"github.com/cloudsentry/posture/internal/domain/repository"
	"github.com/cloudsentry/posture/pkg/errors"
	"github.com/cloudsentry/posture/pkg/logger"
)

// AssessmentRepoImpl implements AssessmentRepository on the shared store gateway.
type AssessmentRepoImpl struct {
	gateway *StoreGateway
	logger  logger.Logger
}

// NewAssessmentRepository creates a gateway-backed assessment repository.
func NewAssessmentRepository(gw *StoreGateway, log logger.Logger) repository.AssessmentRepository {
	return &AssessmentRepoImpl{gateway: gw, logger: log.WithComponent("assessment-repo")}
}

// Create inserts a new assessment row.
func (r *AssessmentRepoImpl) Create(ctx context.Context, assessment *models.Assessment) error {
	db, err := r.gateway.DB()
	if err != nil {
		return err
	}

	if assessment.LastModified.IsZero() {
		assessment.LastModified = time.Now().UTC()
	}

	if err := db.WithContext(ctx).Create(assessment).Error; err != nil {
		r.logger.Error(ctx, "Failed to create assessment", err,
			logger.String("assessment_id", assessment.ID),
			logger.String("customer_id", assessment.CustomerID),
		)
		return classifyTableError(err, assessment.TableName())
	}
	return nil
}

// FindByID retrieves an assessment by identifier.
func (r *AssessmentRepoImpl) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	db, err := r.gateway.DB()
	if err != nil {
		return nil, err
	}

	var assessment models.Assessment
	if err := db.WithContext(ctx).Where("id = ?", id).First(&assessment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrAssessmentNotFound(id)
		}
		return nil, classifyTableError(err, assessment.TableName())
	}
	return &assessment, nil
}

// Update replaces the mutable portion of an existing assessment.
func (r *AssessmentRepoImpl) Update(ctx context.Context, assessment *models.Assessment) error {
	db, err := r.gateway.DB()
	if err != nil {
		return err
	}

	assessment.LastModified = time.Now().UTC()
	result := db.WithContext(ctx).Model(&models.Assessment{}).
		Where("id = ? AND customer_id = ?", assessment.ID, assessment.CustomerID).
		Updates(map[string]interface{}{
			"status":        assessment.Status,
			"name":          assessment.Name,
			"categories":    assessment.Categories,
			"metrics":       assessment.Metrics,
			"last_modified": assessment.LastModified,
		})
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to update assessment", result.Error,
			logger.String("assessment_id", assessment.ID),
		)
		return classifyTableError(result.Error, assessment.TableName())
	}
	if result.RowsAffected == 0 {
		return errors.ErrAssessmentNotFound(assessment.ID)
	}
	return nil
}

// FindAll lists assessments, most recent first.
func (r *AssessmentRepoImpl) FindAll(ctx context.Context, filter repository.AssessmentFilter) ([]*models.Assessment, error) {
	db, err := r.gateway.DB()
	if err != nil {
		return nil, err
	}

	query := db.WithContext(ctx).Model(&models.Assessment{}).Order("assessment_date DESC")
	query = applyAssessmentFilter(query, filter)

	var assessments []*models.Assessment
	if err := query.Find(&assessments).Error; err != nil {
		r.logger.Error(ctx, "Failed to list assessments", err)
		return nil, classifyTableError(err, models.Assessment{}.TableName())
	}
	return assessments, nil
}

// FindLatestByTenant returns the most recent assessment for a tenant.
func (r *AssessmentRepoImpl) FindLatestByTenant(ctx context.Context, tenantID string) (*models.Assessment, error) {
	db, err := r.gateway.DB()
	if err != nil {
		return nil, err
	}

	var assessment models.Assessment
	err = db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("assessment_date DESC").
		First(&assessment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrAssessmentNotFound(tenantID)
		}
		return nil, classifyTableError(err, assessment.TableName())
	}
	return &assessment, nil
}

// AppendHistory inserts one immutable history row.
func (r *AssessmentRepoImpl) AppendHistory(ctx context.Context, entry *models.AssessmentHistory) error {
	db, err := r.gateway.DB()
	if err != nil {
		return err
	}

	if err := db.WithContext(ctx).Create(entry).Error; err != nil {
		r.logger.Error(ctx, "Failed to append assessment history", err,
			logger.String("assessment_id", entry.AssessmentID),
		)
		return classifyTableError(err, entry.TableName())
	}
	return nil
}

// PersistRun writes the assessment and its history row in one transaction.
// With update set the assessment row is replaced in place; the history row is
// appended either way.
func (r *AssessmentRepoImpl) PersistRun(ctx context.Context, assessment *models.Assessment, entry *models.AssessmentHistory, update bool) error {
	db, err := r.gateway.DB()
	if err != nil {
		return err
	}

	assessment.LastModified = time.Now().UTC()
	txErr := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if update {
			result := tx.Model(&models.Assessment{}).
				Where("id = ? AND customer_id = ?", assessment.ID, assessment.CustomerID).
				Updates(map[string]interface{}{
					"status":        assessment.Status,
					"name":          assessment.Name,
					"categories":    assessment.Categories,
					"metrics":       assessment.Metrics,
					"last_modified": assessment.LastModified,
				})
			if result.Error != nil {
				return classifyTableError(result.Error, assessment.TableName())
			}
			if result.RowsAffected == 0 {
				return errors.ErrAssessmentNotFound(assessment.ID)
			}
		} else {
			if err := tx.Create(assessment).Error; err != nil {
				return classifyTableError(err, assessment.TableName())
			}
		}
		if err := tx.Create(entry).Error; err != nil {
			return classifyTableError(err, entry.TableName())
		}
		return nil
	})
	if txErr != nil {
		r.logger.Error(ctx, "Failed to persist assessment run", txErr,
			logger.String("assessment_id", assessment.ID),
			logger.String("customer_id", assessment.CustomerID),
		)
	}
	return txErr
}

// FindHistory lists history rows, most recent first.
func (r *AssessmentRepoImpl) FindHistory(ctx context.Context, filter repository.AssessmentFilter) ([]*models.AssessmentHistory, error) {
	db, err := r.gateway.DB()
	if err != nil {
		return nil, err
	}

	query := db.WithContext(ctx).Model(&models.AssessmentHistory{}).Order("date DESC")
	query = applyAssessmentFilter(query, filter)

	var rows []*models.AssessmentHistory
	if err := query.Find(&rows).Error; err != nil {
		r.logger.Error(ctx, "Failed to list assessment history", err)
		return nil, classifyTableError(err, models.AssessmentHistory{}.TableName())
	}
	return rows, nil
}

func applyAssessmentFilter(query *gorm.DB, filter repository.AssessmentFilter) *gorm.DB {
	if filter.CustomerID != "" {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.TenantID != "" {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	return query
}
