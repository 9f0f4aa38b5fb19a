package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudsentry/posture/internal/application/dto"
	"github.com/cloudsentry/posture/internal/domain/models"
	"github.com/cloudsentry/posture/internal/domain/repository"
	domainsvc "github.com/cloudsentry/posture/internal/domain/service"
	"github.com/cloudsentry/posture/internal/infrastructure/cache"
	"github.com/cloudsentry/posture/pkg/constants"
	"github.com/cloudsentry/posture/pkg/errors"
	"github.com/cloudsentry/posture/pkg/logger"
	"github.com/cloudsentry/posture/pkg/utils"
)

// CustomerService manages customer registrations and their credential
// references.
type CustomerService interface {
	Register(ctx context.Context, req *dto.RegisterCustomerRequest) (*models.Customer, error)
	Get(ctx context.Context, id string) (*models.Customer, error)
	GetByDomain(ctx context.Context, domain string) (*models.Customer, error)
	List(ctx context.Context, query dto.CustomerQuery) ([]*models.Customer, error)
	Update(ctx context.Context, id string, req *dto.UpdateCustomerRequest) (*models.Customer, error)

	// Deactivate soft-deletes: the row stays for audit, status moves to
	// deleted, and the customer can no longer be assessed.
	Deactivate(ctx context.Context, id string) error

	// Purge hard-deletes the row and its stored secret.
	Purge(ctx context.Context, id string) error
}

type customerService struct {
	customers repository.CustomerRepository
	store     StoreGuard
	secrets   domainsvc.SecretStore
	respCache cache.ResponseCache
	runtime   RuntimeFlags
	log       logger.Logger
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewCustomerService wires the customer management service.
func NewCustomerService(
	customers repository.CustomerRepository,
	store StoreGuard,
	secrets domainsvc.SecretStore,
	respCache cache.ResponseCache,
	runtime RuntimeFlags,
	log logger.Logger,
	cacheTTL time.Duration,
) CustomerService {
	if cacheTTL <= 0 {
		cacheTTL = constants.DefaultCacheTTL
	}
	return &customerService{
		customers: customers,
		store:     store,
		secrets:   secrets,
		respCache: respCache,
		runtime:   runtime,
		log:       log.WithComponent("customer-service"),
		cacheTTL:  cacheTTL,
		now:       time.Now,
	}
}

// Register validates the request, stores the raw secret in the secret store,
// and persists the customer with only the secret reference.
func (s *customerService) Register(ctx context.Context, req *dto.RegisterCustomerRequest) (*models.Customer, error) {
	if req.TenantID == "" {
		return nil, errors.ErrInvalidRequest("tenantId is required")
	}
	if req.ClientID == "" || req.ClientSecret == "" {
		return nil, errors.ErrInvalidRequest("clientId and clientSecret are required")
	}
	if err := utils.ValidateTenantDomain(req.TenantDomain); err != nil {
		return nil, err
	}

	if err := s.store.Initialize(ctx); err != nil {
		return nil, err
	}

	if existing, err := s.customers.FindByDomain(ctx, req.TenantDomain); err == nil && existing != nil {
		return nil, errors.ErrInvalidRequest("a customer with this tenant domain already exists").
			WithDetail("customer_id", existing.ID)
	} else if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}

	id := utils.NewCustomerID()
	secretRef, err := s.secrets.Store(ctx, id, req.ClientSecret)
	if err != nil {
		s.log.Error(ctx, "Failed to store customer secret", err,
			logger.String("customer_id", id))
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to store credential secret")
	}

	customer := &models.Customer{
		ID:           id,
		TenantID:     req.TenantID,
		TenantDomain: req.TenantDomain,
		TenantName:   req.TenantName,
		ContactEmail: req.ContactEmail,
		Notes:        req.Notes,
		Status:       constants.CustomerStatusActive,
		Credentials: models.AppCredentialRef{
			ApplicationID:      req.ApplicationID,
			ClientID:           req.ClientID,
			ServicePrincipalID: req.ServicePrincipalID,
			SecretRef:          secretRef,
			GrantedPermissions: joinPermissions(req.GrantedPermissions),
		},
		CreatedDate: s.now().UTC(),
	}

	if err := s.customers.Create(ctx, customer); err != nil {
		// The secret was already stored; drop it so no orphan remains.
		if derr := s.secrets.Delete(ctx, secretRef); derr != nil {
			s.log.Warn(ctx, "Failed to clean up orphaned secret",
				logger.String("customer_id", id), logger.Err(derr))
		}
		return nil, err
	}

	s.invalidateList(ctx)
	s.log.Info(ctx, "Customer registered",
		logger.String("customer_id", id),
		logger.String("tenant_domain", customer.TenantDomain),
	)
	return customer, nil
}

func (s *customerService) Get(ctx context.Context, id string) (*models.Customer, error) {
	if id == "" {
		return nil, errors.ErrCustomerIDRequired()
	}
	if err := s.store.Initialize(ctx); err != nil {
		return nil, err
	}
	return s.customers.FindByID(ctx, id)
}

func (s *customerService) GetByDomain(ctx context.Context, domain string) (*models.Customer, error) {
	if err := utils.ValidateTenantDomain(domain); err != nil {
		return nil, err
	}
	if err := s.store.Initialize(ctx); err != nil {
		return nil, err
	}
	return s.customers.FindByDomain(ctx, domain)
}

// List returns customers, served from the response cache when the same query
// was answered within the TTL.
func (s *customerService) List(ctx context.Context, query dto.CustomerQuery) ([]*models.Customer, error) {
	if err := s.store.Initialize(ctx); err != nil {
		return nil, err
	}

	limit := utils.ClampLimit(query.Limit, constants.DefaultListLimit, constants.MaxListLimit)
	key := fmt.Sprintf("%s:%s:%d:%d", constants.CacheKeyCustomerList, query.Status, limit, query.Offset)

	if s.respCache != nil && (s.runtime == nil || !s.runtime.CacheBypass()) {
		if payload, ok := s.respCache.Get(ctx, key); ok {
			var cached []*models.Customer
			if err := json.Unmarshal(payload, &cached); err == nil {
				return cached, nil
			}
			s.respCache.Delete(ctx, key)
		}
	}

	customers, err := s.customers.FindAll(ctx, repository.CustomerFilter{
		Status: constants.CustomerStatus(query.Status),
		Limit:  limit,
		Offset: query.Offset,
	})
	if err != nil {
		return nil, err
	}

	if s.respCache != nil && (s.runtime == nil || !s.runtime.CacheBypass()) {
		if payload, err := json.Marshal(customers); err == nil {
			s.respCache.Set(ctx, key, payload, s.cacheTTL)
		}
	}
	return customers, nil
}

// Update patches the mutable customer fields.
func (s *customerService) Update(ctx context.Context, id string, req *dto.UpdateCustomerRequest) (*models.Customer, error) {
	if id == "" {
		return nil, errors.ErrCustomerIDRequired()
	}
	if err := s.store.Initialize(ctx); err != nil {
		return nil, err
	}

	patch := repository.CustomerPatch{
		TenantName:   req.TenantName,
		ContactEmail: req.ContactEmail,
		Notes:        req.Notes,
	}
	if req.Status != nil {
		status := constants.CustomerStatus(*req.Status)
		switch status {
		case constants.CustomerStatusActive, constants.CustomerStatusInactive,
			constants.CustomerStatusPending, constants.CustomerStatusDeleted:
			patch.Status = &status
		default:
			return nil, errors.ErrInvalidRequest("unknown customer status: " + *req.Status)
		}
	}

	if err := s.customers.Update(ctx, id, patch); err != nil {
		return nil, err
	}
	s.invalidateList(ctx)
	return s.customers.FindByID(ctx, id)
}

// Deactivate moves the customer to the deleted status without removing data.
func (s *customerService) Deactivate(ctx context.Context, id string) error {
	if id == "" {
		return errors.ErrCustomerIDRequired()
	}
	if err := s.store.Initialize(ctx); err != nil {
		return err
	}

	deleted := constants.CustomerStatusDeleted
	if err := s.customers.Update(ctx, id, repository.CustomerPatch{Status: &deleted}); err != nil {
		return err
	}
	s.invalidateList(ctx)
	s.log.Info(ctx, "Customer deactivated", logger.String("customer_id", id))
	return nil
}

// Purge removes the customer row and its secret.
func (s *customerService) Purge(ctx context.Context, id string) error {
	if id == "" {
		return errors.ErrCustomerIDRequired()
	}
	if err := s.store.Initialize(ctx); err != nil {
		return err
	}

	customer, err := s.customers.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.customers.Delete(ctx, id); err != nil {
		return err
	}

	if ref := customer.Credentials.SecretRef; ref != "" {
		if err := s.secrets.Delete(ctx, ref); err != nil {
			s.log.Warn(ctx, "Failed to delete customer secret",
				logger.String("customer_id", id), logger.Err(err))
		}
	}

	s.invalidateList(ctx)
	s.log.Info(ctx, "Customer purged", logger.String("customer_id", id))
	return nil
}

func (s *customerService) invalidateList(ctx context.Context) {
	if s.respCache == nil {
		return
	}
	s.respCache.DeletePrefix(ctx, constants.CacheKeyCustomerList)
}

func joinPermissions(perms []string) string {
	return strings.Join(perms, ",")
}
