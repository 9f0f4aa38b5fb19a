package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloudsentry/posture/internal/application/dto"
	"github.com/cloudsentry/posture/internal/domain/models"
	"github.com/cloudsentry/posture/internal/domain/repository"
	"github.com/cloudsentry/posture/internal/infrastructure/cache"
	"github.com/cloudsentry/posture/pkg/constants"
	"github.com/cloudsentry/posture/pkg/errors"
	"github.com/cloudsentry/posture/pkg/logger"
)

type customerFixture struct {
	customers *mockCustomerRepo
	store     *mockStoreGuard
	secrets   *mockSecretStore
	svc       CustomerService
}

func newCustomerFixture(t *testing.T, respCache cache.ResponseCache) *customerFixture {
	t.Helper()
	f := &customerFixture{
		customers: &mockCustomerRepo{},
		store:     &mockStoreGuard{},
		secrets:   &mockSecretStore{},
	}
	f.svc = NewCustomerService(
		f.customers, f.store, f.secrets, respCache, nil,
		logger.NewNoopLogger(), time.Minute,
	)
	return f
}

func registerRequest() *dto.RegisterCustomerRequest {
	return &dto.RegisterCustomerRequest{
		TenantID:     "tenant-1",
		TenantDomain: "contoso.onmicrosoft.com",
		TenantName:   "Contoso",
		ClientID:     "client-1",
		ClientSecret: "raw-secret",
	}
}

func TestRegister_StoresSecretAndPersistsReference(t *testing.T) {
	f := newCustomerFixture(t, nil)
	f.store.On("Initialize", mock.Anything).Return(nil)
	f.customers.On("FindByDomain", mock.Anything, "contoso.onmicrosoft.com").
		Return(nil, errors.ErrCustomerNotFound("contoso.onmicrosoft.com"))
	f.secrets.On("Store", mock.Anything, mock.Anything, "raw-secret").
		Return("customers/cust-x", nil)
	f.customers.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Customer) bool {
		return c.Credentials.SecretRef == "customers/cust-x" &&
			c.Status == constants.CustomerStatusActive
	})).Return(nil)

	customer, err := f.svc.Register(context.Background(), registerRequest())

	require.NoError(t, err)
	assert.NotEmpty(t, customer.ID)
	assert.Equal(t, "customers/cust-x", customer.Credentials.SecretRef)
	f.secrets.AssertCalled(t, "Store", mock.Anything, customer.ID, "raw-secret")
}

func TestRegister_InvalidDomainRejected(t *testing.T) {
	f := newCustomerFixture(t, nil)
	req := registerRequest()
	req.TenantDomain = "not a domain"

	_, err := f.svc.Register(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidDomainFormat, errors.CodeOf(err))
	f.secrets.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_MissingCredentialsRejected(t *testing.T) {
	f := newCustomerFixture(t, nil)
	req := registerRequest()
	req.ClientSecret = ""

	_, err := f.svc.Register(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidRequest, errors.CodeOf(err))
}

func TestRegister_DuplicateDomainRejected(t *testing.T) {
	f := newCustomerFixture(t, nil)
	f.store.On("Initialize", mock.Anything).Return(nil)
	f.customers.On("FindByDomain", mock.Anything, "contoso.onmicrosoft.com").
		Return(&models.Customer{ID: "cust-existing"}, nil)

	_, err := f.svc.Register(context.Background(), registerRequest())

	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidRequest, errors.CodeOf(err))
	f.secrets.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_CreateFailureCleansUpSecret(t *testing.T) {
	f := newCustomerFixture(t, nil)
	f.store.On("Initialize", mock.Anything).Return(nil)
	f.customers.On("FindByDomain", mock.Anything, mock.Anything).
		Return(nil, errors.ErrCustomerNotFound("contoso.onmicrosoft.com"))
	f.secrets.On("Store", mock.Anything, mock.Anything, mock.Anything).
		Return("customers/cust-x", nil)
	f.customers.On("Create", mock.Anything, mock.Anything).
		Return(errors.ErrStoreUnavailable(nil))
	f.secrets.On("Delete", mock.Anything, "customers/cust-x").Return(nil)

	_, err := f.svc.Register(context.Background(), registerRequest())

	require.Error(t, err)
	f.secrets.AssertCalled(t, "Delete", mock.Anything, "customers/cust-x")
}

func TestList_ServedFromCacheOnSecondCall(t *testing.T) {
	f := newCustomerFixture(t, cache.NewMemoryCache(time.Minute))
	f.store.On("Initialize", mock.Anything).Return(nil)
	f.customers.On("FindAll", mock.Anything, mock.Anything).
		Return([]*models.Customer{{ID: "cust-1"}}, nil).Once()

	query := dto.CustomerQuery{Status: "active"}

	first, err := f.svc.List(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := f.svc.List(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, second, 1)

	f.customers.AssertNumberOfCalls(t, "FindAll", 1)
}

func TestList_WriteInvalidatesCache(t *testing.T) {
	f := newCustomerFixture(t, cache.NewMemoryCache(time.Minute))
	f.store.On("Initialize", mock.Anything).Return(nil)
	f.customers.On("FindAll", mock.Anything, mock.Anything).
		Return([]*models.Customer{{ID: "cust-1"}}, nil)
	deleted := constants.CustomerStatusDeleted
	f.customers.On("Update", mock.Anything, "cust-1", repository.CustomerPatch{Status: &deleted}).
		Return(nil)

	query := dto.CustomerQuery{}
	_, err := f.svc.List(context.Background(), query)
	require.NoError(t, err)

	require.NoError(t, f.svc.Deactivate(context.Background(), "cust-1"))

	_, err = f.svc.List(context.Background(), query)
	require.NoError(t, err)

	f.customers.AssertNumberOfCalls(t, "FindAll", 2)
}

func TestUpdate_UnknownStatusRejected(t *testing.T) {
	f := newCustomerFixture(t, nil)
	f.store.On("Initialize", mock.Anything).Return(nil)
	bogus := "bogus"

	_, err := f.svc.Update(context.Background(), "cust-1", &dto.UpdateCustomerRequest{Status: &bogus})

	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidRequest, errors.CodeOf(err))
	f.customers.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestPurge_DeletesRowAndSecret(t *testing.T) {
	f := newCustomerFixture(t, nil)
	f.store.On("Initialize", mock.Anything).Return(nil)
	f.customers.On("FindByID", mock.Anything, "cust-1").Return(&models.Customer{
		ID:          "cust-1",
		Credentials: models.AppCredentialRef{ClientID: "c", SecretRef: "customers/cust-1"},
	}, nil)
	f.customers.On("Delete", mock.Anything, "cust-1").Return(nil)
	f.secrets.On("Delete", mock.Anything, "customers/cust-1").Return(nil)

	require.NoError(t, f.svc.Purge(context.Background(), "cust-1"))

	f.customers.AssertCalled(t, "Delete", mock.Anything, "cust-1")
	f.secrets.AssertCalled(t, "Delete", mock.Anything, "customers/cust-1")
}
