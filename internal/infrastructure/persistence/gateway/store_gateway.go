// Package gateway implements the backing store gateway: a lazily initialized
// gorm handle shared by every repository, guarded so that concurrent first
// requests perform exactly one underlying initialization.
package gateway

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cloudsentry/posture/internal/config"
	"github.com/cloudsentry/posture/internal/domain/models"
	"github.com/cloudsentry/posture/pkg/errors"
	"github.com/cloudsentry/posture/pkg/logger"
)

// OpenFunc opens the underlying database handle. Injectable for tests.
type OpenFunc func(ctx context.Context) (*gorm.DB, error)

// StoreGateway owns the shared database handle. Operations through DB() fail
// with NotInitialized until Initialize has succeeded once. Initialization is
// idempotent and safe under concurrent first callers: all of them await the
// same in-flight attempt, and a failed attempt is forgotten so a later call
// can retry.
type StoreGateway struct {
	cfg  *config.DatabaseConfig
	log  logger.Logger
	open OpenFunc

	mu sync.RWMutex
	db *gorm.DB
	sf singleflight.Group
}

// NewStoreGateway creates a gateway using the configured driver.
func NewStoreGateway(cfg *config.DatabaseConfig, log logger.Logger) *StoreGateway {
	g := &StoreGateway{cfg: cfg, log: log.WithComponent("store-gateway")}
	g.open = g.defaultOpen
	return g
}

// NewStoreGatewayWithOpener creates a gateway with a custom opener. Tests use
// this to count and fail initialization attempts.
func NewStoreGatewayWithOpener(cfg *config.DatabaseConfig, log logger.Logger, open OpenFunc) *StoreGateway {
	return &StoreGateway{cfg: cfg, log: log.WithComponent("store-gateway"), open: open}
}

// Initialize opens the database handle and ensures the backing tables exist.
// Safe to call repeatedly; only the first successful call does work.
func (g *StoreGateway) Initialize(ctx context.Context) error {
	g.mu.RLock()
	ready := g.db != nil
	g.mu.RUnlock()
	if ready {
		return nil
	}

	_, err, shared := g.sf.Do("initialize", func() (interface{}, error) {
		// Re-check: a concurrent caller may have completed initialization
		// between the fast path and entering the flight.
		g.mu.RLock()
		db := g.db
		g.mu.RUnlock()
		if db != nil {
			return nil, nil
		}

		started := time.Now()
		db, openErr := g.open(ctx)
		if openErr != nil {
			g.log.Error(ctx, "Backing store initialization failed", openErr)
			return nil, errors.ErrStoreUnavailable(openErr)
		}

		if migErr := db.WithContext(ctx).AutoMigrate(
			&models.Customer{},
			&models.Assessment{},
			&models.AssessmentHistory{},
		); migErr != nil {
			g.log.Error(ctx, "Backing store migration failed", migErr)
			return nil, errors.ErrStoreUnavailable(migErr)
		}

		g.mu.Lock()
		g.db = db
		g.mu.Unlock()

		g.log.Info(ctx, "Backing store initialized",
			logger.String("driver", g.cfg.Driver),
			logger.Duration("took_ms", time.Since(started)),
		)
		return nil, nil
	})

	if err != nil && shared {
		g.log.Debug(ctx, "Initialization failure shared with concurrent caller")
	}
	return err
}

// Reinitialize drops the current handle and runs initialization again. The
// orchestrator calls this once when an operation reports a missing table.
func (g *StoreGateway) Reinitialize(ctx context.Context) error {
	g.mu.Lock()
	g.db = nil
	g.mu.Unlock()
	return g.Initialize(ctx)
}

// DB returns the shared handle, or NotInitialized before the first
// successful Initialize.
func (g *StoreGateway) DB() (*gorm.DB, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.db == nil {
		return nil, errors.ErrNotInitialized()
	}
	return g.db, nil
}

// Ping verifies connectivity through the pooled connection.
func (g *StoreGateway) Ping(ctx context.Context) error {
	db, err := g.DB()
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.ErrStoreUnavailable(err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return errors.ErrStoreUnavailable(err)
	}
	return nil
}

// Close releases the underlying connections.
func (g *StoreGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	g.db = nil
	return sqlDB.Close()
}

func (g *StoreGateway) defaultOpen(ctx context.Context) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if g.cfg.Driver == "sqlite" {
		dialector = sqlite.Open(g.cfg.Path)
	} else {
		dialector = postgres.Open(g.cfg.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(g.cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(g.cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(g.cfg.ConnMaxLifetime) * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, err
	}
	return db, nil
}

// classifyTableError maps driver-specific "relation does not exist" failures
// onto the table-missing code so the orchestrator can re-initialize once.
func classifyTableError(err error, table string) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "does not exist") && strings.Contains(msg, "relation") ||
		strings.Contains(msg, "no such table") {
		return errors.ErrTableMissing(table, err)
	}
	return err
}
