package gateway

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cloudsentry/posture/internal/domain/models"
	"github.com/cloudsentry/posture/internal/domain/repository"
	"github.com/cloudsentry/posture/pkg/constants"
	"github.com/cloudsentry/posture/pkg/errors"
	"github.com/cloudsentry/posture/pkg/logger"
)

// CustomerRepoImpl implements CustomerRepository on the shared store gateway.
type CustomerRepoImpl struct {
	gateway *StoreGateway
	logger  logger.Logger
}

// NewCustomerRepository creates a gateway-backed customer repository.
func NewCustomerRepository(gw *StoreGateway, log logger.Logger) repository.CustomerRepository {
	return &CustomerRepoImpl{gateway: gw, logger: log.WithComponent("customer-repo")}
}

// Create inserts a new customer record.
func (r *CustomerRepoImpl) Create(ctx context.Context, customer *models.Customer) error {
	db, err := r.gateway.DB()
	if err != nil {
		return err
	}

	if customer.Status == "" {
		customer.Status = constants.CustomerStatusActive
	}
	if customer.CreatedDate.IsZero() {
		customer.CreatedDate = time.Now().UTC()
	}

	if err := db.WithContext(ctx).Create(customer).Error; err != nil {
		r.logger.Error(ctx, "Failed to create customer", err,
			logger.String("tenant_domain", customer.TenantDomain),
		)
		return classifyTableError(err, customer.TableName())
	}

	r.logger.Info(ctx, "Customer created",
		logger.String("customer_id", customer.ID),
		logger.String("tenant_id", customer.TenantID),
	)
	return nil
}

// FindByID retrieves a customer by its opaque identifier.
func (r *CustomerRepoImpl) FindByID(ctx context.Context, id string) (*models.Customer, error) {
	db, err := r.gateway.DB()
	if err != nil {
		return nil, err
	}

	var customer models.Customer
	if err := db.WithContext(ctx).Where("id = ?", id).First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrCustomerNotFound(id)
		}
		r.logger.Error(ctx, "Failed to retrieve customer", err, logger.String("customer_id", id))
		return nil, classifyTableError(err, customer.TableName())
	}
	return &customer, nil
}

// FindByDomain retrieves a customer by tenant domain.
func (r *CustomerRepoImpl) FindByDomain(ctx context.Context, domain string) (*models.Customer, error) {
	db, err := r.gateway.DB()
	if err != nil {
		return nil, err
	}

	var customer models.Customer
	if err := db.WithContext(ctx).Where("tenant_domain = ?", domain).First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrCustomerNotFound(domain)
		}
		return nil, classifyTableError(err, customer.TableName())
	}
	return &customer, nil
}

// FindAll lists customers, optionally filtered by status.
func (r *CustomerRepoImpl) FindAll(ctx context.Context, filter repository.CustomerFilter) ([]*models.Customer, error) {
	db, err := r.gateway.DB()
	if err != nil {
		return nil, err
	}

	query := db.WithContext(ctx).Model(&models.Customer{}).Order("created_date DESC")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var customers []*models.Customer
	if err := query.Find(&customers).Error; err != nil {
		r.logger.Error(ctx, "Failed to list customers", err)
		return nil, classifyTableError(err, models.Customer{}.TableName())
	}
	return customers, nil
}

// Update applies a partial update to the mutable customer fields.
func (r *CustomerRepoImpl) Update(ctx context.Context, id string, patch repository.CustomerPatch) error {
	db, err := r.gateway.DB()
	if err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if patch.TenantName != nil {
		updates["tenant_name"] = *patch.TenantName
	}
	if patch.ContactEmail != nil {
		updates["contact_email"] = *patch.ContactEmail
	}
	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if len(updates) == 0 {
		return nil
	}

	result := db.WithContext(ctx).Model(&models.Customer{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to update customer", result.Error, logger.String("customer_id", id))
		return classifyTableError(result.Error, models.Customer{}.TableName())
	}
	if result.RowsAffected == 0 {
		return errors.ErrCustomerNotFound(id)
	}
	return nil
}

// RecordAssessment bumps the assessment projection for one persisted run.
// The increment is expressed relative to the stored value so concurrent runs
// for the same customer never double count a single assessment.
func (r *CustomerRepoImpl) RecordAssessment(ctx context.Context, id string, at time.Time) error {
	db, err := r.gateway.DB()
	if err != nil {
		return err
	}

	result := db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_assessment_date": at,
			"total_assessments":    gorm.Expr("total_assessments + 1"),
		})
	if result.Error != nil {
		return classifyTableError(result.Error, models.Customer{}.TableName())
	}
	if result.RowsAffected == 0 {
		return errors.ErrCustomerNotFound(id)
	}
	return nil
}

// Delete removes a customer record permanently.
func (r *CustomerRepoImpl) Delete(ctx context.Context, id string) error {
	db, err := r.gateway.DB()
	if err != nil {
		return err
	}

	result := db.WithContext(ctx).Where("id = ?", id).Delete(&models.Customer{})
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to delete customer", result.Error, logger.String("customer_id", id))
		return classifyTableError(result.Error, models.Customer{}.TableName())
	}
	if result.RowsAffected == 0 {
		return errors.ErrCustomerNotFound(id)
	}

	r.logger.Info(ctx, "Customer deleted", logger.String("customer_id", id))
	return nil
}
