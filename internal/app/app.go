package app

import (
	"context"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spendlog/spendlog/internal/config"
	"github.com/spendlog/spendlog/internal/utils"
)

const (
	configPath = "./config/application.yaml"
	envPath    = ".env"
)

// Application wires configuration, storage and the console.
type Application struct {
	cfg     config.Application
	storage *Storage
	console *Console
	logFile *os.File
}

// NewApplication loads the configuration, opens the storage and the last active budget.
func NewApplication(ctx context.Context, in io.Reader, out io.Writer) (*Application, error) {
	if err := config.LoadDotEnv(envPath); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logFile, err := configureLogging(cfg)
	if err != nil {
		return nil, err
	}

	storage, err := OpenStorage(cfg.Database)
	if err != nil {
		return nil, err
	}
	deps, err := BuildDependencies(ctx, storage, cfg, utils.SystemClock{})
	if err != nil {
		storage.Close()
		return nil, err
	}

	return &Application{
		cfg:     cfg,
		storage: storage,
		console: NewConsole(in, out, deps, envPath),
		logFile: logFile,
	}, nil
}

// Run shows the current budget and serves console commands until quit or end of input.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()
	log.Infof("Starting spendlog on %s with budget %s", a.cfg.Database.Driver, a.cfg.Budget.Current)
	return a.console.Run(ctx)
}

func (a *Application) close() {
	a.storage.Close()
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

func configureLogging(cfg config.Application) (*os.File, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if os.Getenv("LOG_LEVEL") == "" {
		log.SetLevel(level)
	}
	if cfg.LogFile == "" {
		return nil, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})
	return f, nil
}
