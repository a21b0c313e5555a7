package budget

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spendlog/spendlog/pkg/record"
)

// BudgetRepo is the registry of known budgets.
type BudgetRepo interface {
	// Store registers a budget. Registering an existing name is a no-op.
	Store(ctx context.Context, budget Budget) error
	GetAll(ctx context.Context) ([]Budget, error)
	Exists(ctx context.Context, name string) (bool, error)
}

type BudgetRepoImpl struct {
	db *sql.DB
}

func NewBudgetRepo(db *sql.DB) *BudgetRepoImpl {
	return &BudgetRepoImpl{db: db}
}

func (bi BudgetRepoImpl) Store(ctx context.Context, budget Budget) error {
	query := `INSERT INTO budget (name, created_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`
	result, err := bi.db.ExecContext(ctx, query, budget.Name, budget.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		err := fmt.Errorf("could not store budget %s: %w", budget.Name, err)
		log.Error(err)
		return err
	}
	if rowsAffected, err := result.RowsAffected(); err == nil && rowsAffected == 0 {
		log.Debugf("budget %s already registered", budget.Name)
	}
	return nil
}

func (bi BudgetRepoImpl) GetAll(ctx context.Context) ([]Budget, error) {
	rows, err := bi.db.QueryContext(ctx, `SELECT name, created_at FROM budget ORDER BY name`)
	if err != nil {
		err := fmt.Errorf("could not query budgets: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	budgets := make([]Budget, 0)
	for rows.Next() {
		var name, createdAt string
		if err := rows.Scan(&name, &createdAt); err != nil {
			err := fmt.Errorf("could not scan budget: %w", err)
			log.Error(err)
			return nil, err
		}
		budget, err := toBudget(name, createdAt)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, budget)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return budgets, nil
}

func (bi BudgetRepoImpl) Exists(ctx context.Context, name string) (bool, error) {
	var count int
	err := bi.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM budget WHERE name = ?`, name).Scan(&count)
	if err != nil {
		err := fmt.Errorf("could not look up budget %s: %w", name, err)
		log.Error(err)
		return false, err
	}
	return count > 0, nil
}

// BudgetPgRepo is the registry kept in Postgres.
type BudgetPgRepo struct {
	conn record.PgQuerier
}

func NewBudgetPgRepo(conn record.PgQuerier) *BudgetPgRepo {
	return &BudgetPgRepo{conn: conn}
}

func (r BudgetPgRepo) Store(ctx context.Context, budget Budget) error {
	query := `INSERT INTO budget (name, created_at) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`
	_, err := r.conn.Exec(ctx, query, budget.Name, budget.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		err := fmt.Errorf("could not store budget %s: %w", budget.Name, err)
		log.Error(err)
		return err
	}
	return nil
}

func (r BudgetPgRepo) GetAll(ctx context.Context) ([]Budget, error) {
	rows, err := r.conn.Query(ctx, `SELECT name, created_at FROM budget ORDER BY name`)
	if err != nil {
		err := fmt.Errorf("could not query budgets: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	budgets := make([]Budget, 0)
	for rows.Next() {
		var name, createdAt string
		if err := rows.Scan(&name, &createdAt); err != nil {
			err := fmt.Errorf("could not scan budget: %w", err)
			log.Error(err)
			return nil, err
		}
		budget, err := toBudget(name, createdAt)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, budget)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return budgets, nil
}

func (r BudgetPgRepo) Exists(ctx context.Context, name string) (bool, error) {
	var count int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM budget WHERE name = $1`, name).Scan(&count)
	if err != nil {
		err := fmt.Errorf("could not look up budget %s: %w", name, err)
		log.Error(err)
		return false, err
	}
	return count > 0, nil
}

func toBudget(name, createdAt string) (Budget, error) {
	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		err := fmt.Errorf("could not parse creation time of budget %s: %w", name, err)
		log.Error(err)
		return Budget{}, err
	}
	return Budget{Name: name, CreatedAt: created}, nil
}
