package budget

import (
	"context"
	"sort"
)

type StubBudgetRepo struct {
	budgets map[string]Budget
}

func NewStubBudgetRepo() *StubBudgetRepo {
	return &StubBudgetRepo{budgets: make(map[string]Budget)}
}

func (s *StubBudgetRepo) Store(_ context.Context, budget Budget) error {
	if _, ok := s.budgets[budget.Name]; !ok {
		s.budgets[budget.Name] = budget
	}
	return nil
}

func (s *StubBudgetRepo) GetAll(_ context.Context) ([]Budget, error) {
	budgets := make([]Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		budgets = append(budgets, b)
	}
	sort.Slice(budgets, func(i, j int) bool { return budgets[i].Name < budgets[j].Name })
	return budgets, nil
}

func (s *StubBudgetRepo) Exists(_ context.Context, name string) (bool, error) {
	_, ok := s.budgets[name]
	return ok, nil
}
