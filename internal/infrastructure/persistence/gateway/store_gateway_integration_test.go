//go:build integration

package gateway

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cloudsentry/posture/internal/config"
	"github.com/cloudsentry/posture/internal/domain/models"
	"github.com/cloudsentry/posture/internal/domain/repository"
	"github.com/cloudsentry/posture/pkg/constants"
	"github.com/cloudsentry/posture/pkg/errors"
	"github.com/cloudsentry/posture/pkg/logger"
)

func TestStoreGateway_Postgres(t *testing.T) {
	if os.Getenv("SKIP_DOCKER_TESTS") == "true" {
		t.Skip("Skipping Docker-dependent tests")
	}

	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcpostgres.WithDatabase("posture"),
		tcpostgres.WithUsername("posture"),
		tcpostgres.WithPassword("posture"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	}()

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Driver:          "postgres",
		Host:            host,
		Port:            port.Int(),
		User:            "posture",
		Password:        "posture",
		Database:        "posture",
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5,
	}

	g := NewStoreGateway(cfg, logger.NewNoopLogger())
	require.NoError(t, g.Initialize(ctx))
	defer func() { _ = g.Close() }()

	customers := NewCustomerRepository(g, logger.NewNoopLogger())
	assessments := NewAssessmentRepository(g, logger.NewNoopLogger())

	t.Run("customer round trip", func(t *testing.T) {
		customer := &models.Customer{
			ID:           "cust-it-1",
			TenantID:     "tenant-it-1",
			TenantDomain: "it.example.com",
			Status:       constants.CustomerStatusActive,
			Credentials: models.AppCredentialRef{
				ClientID:  "client-1",
				SecretRef: "customers/cust-it-1",
			},
		}
		require.NoError(t, customers.Create(ctx, customer))

		found, err := customers.FindByID(ctx, "cust-it-1")
		require.NoError(t, err)
		assert.Equal(t, "it.example.com", found.TenantDomain)

		require.NoError(t, customers.RecordAssessment(ctx, "cust-it-1", time.Now().UTC()))
		found, err = customers.FindByID(ctx, "cust-it-1")
		require.NoError(t, err)
		assert.Equal(t, 1, found.TotalAssessments)
	})

	t.Run("persist run is atomic", func(t *testing.T) {
		now := time.Now().UTC()
		assessment := &models.Assessment{
			ID:             "asmt-it-1",
			CustomerID:     "cust-it-1",
			TenantID:       "tenant-it-1",
			AssessmentDate: now,
			Status:         constants.AssessmentStatusCompleted,
			Categories:     models.CategoryList(constants.DefaultCategories),
			Metrics: models.AssessmentMetrics{
				OverallScore:   80,
				CategoryScores: map[string]float64{"license": 80},
				DataCollected:  true,
			},
		}
		entry := &models.AssessmentHistory{
			ID:           "hist-it-1",
			AssessmentID: "asmt-it-1",
			TenantID:     "tenant-it-1",
			CustomerID:   "cust-it-1",
			Date:         now,
			OverallScore: 80,
		}
		require.NoError(t, assessments.PersistRun(ctx, assessment, entry, false))

		latest, err := assessments.FindLatestByTenant(ctx, "tenant-it-1")
		require.NoError(t, err)
		assert.Equal(t, "asmt-it-1", latest.ID)
		assert.Equal(t, 80.0, latest.Metrics.OverallScore)

		history, err := assessments.FindHistory(ctx, repository.AssessmentFilter{TenantID: "tenant-it-1"})
		require.NoError(t, err)
		require.Len(t, history, 1)
	})

	t.Run("dropped table classified and reinitialized", func(t *testing.T) {
		db, err := g.DB()
		require.NoError(t, err)
		require.NoError(t, db.Exec("DROP TABLE assessment_history").Error)

		_, err = assessments.FindHistory(ctx, repository.AssessmentFilter{TenantID: "tenant-it-1"})
		require.Error(t, err)
		assert.True(t, errors.IsTableMissing(err))

		require.NoError(t, g.Reinitialize(ctx))
		rows, err := assessments.FindHistory(ctx, repository.AssessmentFilter{TenantID: "tenant-it-1"})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}
