package budget

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spendlog/spendlog/internal/event_bus"
	"github.com/spendlog/spendlog/internal/utils"
	"github.com/spendlog/spendlog/pkg/grid"
	"github.com/spendlog/spendlog/pkg/record"
)

type BudgetService interface {
	// Create registers a budget, provisions its table and writes its descriptor if absent.
	// Creating an existing budget returns its original registration.
	Create(ctx context.Context, name string) (Budget, record.Store, error)
	Open(ctx context.Context, name string) (Budget, record.Store, error)
	// OpenPath opens a .bp descriptor or imports a spreadsheet into the budget named after the file.
	OpenPath(ctx context.Context, path string) (Budget, record.Store, error)
	List(ctx context.Context) ([]Budget, error)
	Import(ctx context.Context, path string) (Budget, record.Store, int, error)
	Export(ctx context.Context, name string, format Format) (string, error)
}

type BudgetServiceImpl struct {
	repo        BudgetRepo
	provisioner record.Provisioner
	dataDir     string
	clock       utils.Clock
	bus         *event_bus.EventBus
}

func NewBudgetServiceImpl(
	repo BudgetRepo,
	provisioner record.Provisioner,
	dataDir string,
	clock utils.Clock,
	bus *event_bus.EventBus,
) *BudgetServiceImpl {
	return &BudgetServiceImpl{
		repo:        repo,
		provisioner: provisioner,
		dataDir:     dataDir,
		clock:       clock,
		bus:         bus,
	}
}

func (s *BudgetServiceImpl) Create(ctx context.Context, name string) (Budget, record.Store, error) {
	name, err := record.ParseBudgetName(name)
	if err != nil {
		return Budget{}, nil, err
	}
	store, err := s.provisioner.Provision(ctx, name)
	if err != nil {
		return Budget{}, nil, fmt.Errorf("failed to provision budget %s: %w", name, err)
	}
	if err := s.repo.Store(ctx, Budget{Name: name, CreatedAt: s.clock.Now()}); err != nil {
		return Budget{}, nil, err
	}
	budget, err := s.find(ctx, name)
	if err != nil {
		return Budget{}, nil, err
	}
	if err := s.writeDescriptor(name); err != nil {
		return Budget{}, nil, err
	}
	log.Infof("budget %s ready on %s", name, s.provisioner.Backend())
	return budget, store, nil
}

func (s *BudgetServiceImpl) Open(ctx context.Context, name string) (Budget, record.Store, error) {
	budget, err := s.find(ctx, name)
	if err != nil {
		return Budget{}, nil, err
	}
	store, err := s.provisioner.Provision(ctx, name)
	if err != nil {
		return Budget{}, nil, fmt.Errorf("failed to open budget %s: %w", name, err)
	}
	count, err := store.Count(ctx)
	if err != nil {
		return Budget{}, nil, err
	}
	s.publishOpened(ctx, name, count)
	return budget, store, nil
}

func (s *BudgetServiceImpl) OpenPath(ctx context.Context, path string) (Budget, record.Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case DescriptorExt:
		descriptor, err := readDescriptor(path)
		if err != nil {
			return Budget{}, nil, err
		}
		if descriptor.DB != s.provisioner.Backend() {
			log.Warnf("descriptor %s points to %s but the active database is %s", path, descriptor.DB, s.provisioner.Backend())
		}
		return s.Open(ctx, descriptor.TableName)
	case ".xlsx", ".csv":
		budget, store, _, err := s.Import(ctx, path)
		return budget, store, err
	}
	return Budget{}, nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
}

func (s *BudgetServiceImpl) List(ctx context.Context) ([]Budget, error) {
	return s.repo.GetAll(ctx)
}

// Import loads a spreadsheet into the budget named after the file stem, creating it when missing.
// Nothing is inserted when any row fails.
func (s *BudgetServiceImpl) Import(ctx context.Context, path string) (Budget, record.Store, int, error) {
	g, err := readGrid(path)
	if err != nil {
		return Budget{}, nil, 0, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	budget, store, err := s.Create(ctx, name)
	if err != nil {
		return Budget{}, nil, 0, err
	}
	imported, err := grid.Import(ctx, g, store)
	if err != nil {
		return Budget{}, nil, 0, err
	}
	log.Infof("imported %d records from %s into %s", imported, path, budget.Name)
	s.publishOpened(ctx, budget.Name, imported)
	return budget, store, imported, nil
}

// Export writes the whole budget to <datadir>/<name>.<format>, replacing any existing file.
func (s *BudgetServiceImpl) Export(ctx context.Context, name string, format Format) (string, error) {
	exists, err := s.repo.Exists(ctx, name)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrBudgetNotFound, name)
	}
	store, err := s.provisioner.Provision(ctx, name)
	if err != nil {
		return "", err
	}
	records, err := store.All(ctx)
	if err != nil {
		return "", err
	}
	g := grid.Encode(records)

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create data directory: %w", err)
	}
	path := filepath.Join(s.dataDir, name+"."+string(format))
	switch format {
	case FormatXLSX:
		err = grid.WriteXLSX(path, g)
	case FormatCSV:
		err = writeCSVFile(path, g)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, format)
	}
	if err != nil {
		err := fmt.Errorf("export of %s failed: %w", name, err)
		log.Error(err)
		return "", err
	}
	log.Infof("exported %d records of %s to %s", len(records), name, path)
	return path, nil
}

func (s *BudgetServiceImpl) find(ctx context.Context, name string) (Budget, error) {
	budgets, err := s.repo.GetAll(ctx)
	if err != nil {
		return Budget{}, err
	}
	for _, b := range budgets {
		if b.Name == name {
			return b, nil
		}
	}
	return Budget{}, fmt.Errorf("%w: %s", ErrBudgetNotFound, name)
}

func (s *BudgetServiceImpl) publishOpened(ctx context.Context, name string, records int) {
	err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.BudgetOpenedType, event_bus.BudgetOpened{
		Name:    name,
		Backend: s.provisioner.Backend(),
		Records: records,
	}))
	if err != nil {
		log.Warnf("budget opened handler failed: %v", err)
	}
}

func (s *BudgetServiceImpl) writeDescriptor(name string) error {
	path := filepath.Join(s.dataDir, name+DescriptorExt)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("could not create data directory: %w", err)
	}
	content, err := json.Marshal(Descriptor{DB: s.provisioner.Backend(), TableName: name})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		err := fmt.Errorf("could not write descriptor %s: %w", path, err)
		log.Error(err)
		return err
	}
	return nil
}

func readDescriptor(path string) (Descriptor, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("could not read descriptor %s: %w", path, err)
	}
	var descriptor Descriptor
	if err := json.Unmarshal(content, &descriptor); err != nil {
		return Descriptor{}, fmt.Errorf("invalid descriptor %s: %w", path, err)
	}
	if descriptor.TableName == "" {
		return Descriptor{}, fmt.Errorf("invalid descriptor %s: missing table_name", path)
	}
	return descriptor, nil
}

func readGrid(path string) (*grid.Grid, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return grid.ReadXLSX(path)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return grid.ReadCSV(f)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
}

func writeCSVFile(path string, g *grid.Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := grid.WriteCSV(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
