package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spendlog/spendlog/internal/config"
	"github.com/spendlog/spendlog/internal/database"
	"github.com/spendlog/spendlog/internal/event_bus"
	"github.com/spendlog/spendlog/internal/utils"
	"github.com/spendlog/spendlog/pkg/budget"
	"github.com/spendlog/spendlog/pkg/command"
	"github.com/spendlog/spendlog/pkg/ledger"
	"github.com/spendlog/spendlog/pkg/record"
)

// Storage is the database side of the application: the budget registry and the per-budget tables.
type Storage struct {
	BudgetRepo  budget.BudgetRepo
	Provisioner record.Provisioner
	Close       func()
}

// OpenStorage connects to the configured driver and applies the migrations.
func OpenStorage(cfg config.Database) (*Storage, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := database.MigrateSQLite(db); err != nil {
			db.Close()
			return nil, err
		}
		return &Storage{
			BudgetRepo:  budget.NewBudgetRepo(db),
			Provisioner: record.NewSQLiteProvisioner(db, config.DriverSQLite),
			Close: func() {
				if err := db.Close(); err != nil {
					log.Errorf("failed to close database: %v", err)
				}
			},
		}, nil
	case config.DriverPostgres:
		if err := database.MigratePostgres(cfg); err != nil {
			return nil, err
		}
		pool, err := database.OpenPostgres(cfg)
		if err != nil {
			return nil, err
		}
		return &Storage{
			BudgetRepo:  budget.NewBudgetPgRepo(pool),
			Provisioner: record.NewPgProvisioner(pool, config.DriverPostgres),
			Close:       pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// Dependencies holds the services the console drives.
type Dependencies struct {
	Clock         utils.Clock
	Bus           *event_bus.EventBus
	BudgetService budget.BudgetService
	Session       *ledger.Session
	CommandLog    *command.Log
}

// BuildDependencies wires the services and opens the budget named by budget.current, creating it when missing.
func BuildDependencies(ctx context.Context, storage *Storage, cfg config.Application, clock utils.Clock) (*Dependencies, error) {
	deps := &Dependencies{Clock: clock}

	deps.Bus = event_bus.NewEventBus()
	deps.BudgetService = budget.NewBudgetServiceImpl(storage.BudgetRepo, storage.Provisioner, cfg.DataDir, clock, deps.Bus)

	current, store, err := deps.BudgetService.Create(ctx, cfg.Budget.Current)
	if err != nil {
		return nil, fmt.Errorf("failed to open budget %s: %w", cfg.Budget.Current, err)
	}
	deps.Session = ledger.NewSession(current.Name, store, clock, deps.Bus, cfg.Budget.PageSize)
	deps.CommandLog = command.NewLog(deps.Session, deps.Bus)

	return deps, nil
}
