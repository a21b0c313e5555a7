package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const (
	EnvPrefix         = "SPENDLOG_"
	CurrentBudgetKey  = EnvPrefix + "BUDGET_CURRENT"
	DriverSQLite      = "sqlite"
	DriverPostgres    = "postgres"
	defaultBudgetName = "default"
)

type Application struct {
	DataDir  string   `koanf:"datadir"`
	LogFile  string   `koanf:"logfile"`
	LogLevel string   `koanf:"loglevel"`
	Budget   Budget   `koanf:"budget"`
	Database Database `koanf:"db"`
}

type Budget struct {
	Current  string `koanf:"current"`
	PageSize int    `koanf:"pagesize"`
}

type Database struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

func Defaults() Application {
	return Application{
		DataDir:  "./budgets",
		LogFile:  "spendlog.log",
		LogLevel: "info",
		Budget: Budget{
			Current:  defaultBudgetName,
			PageSize: 10,
		},
		Database: Database{
			Driver: DriverSQLite,
			Path:   "./data/spendlog.db",
			Host:   "localhost",
			Port:   5432,
			User:   "spendlog",
			Name:   "spendlog",
			Schema: "spendlog",
		},
	}
}

// Load layers defaults, the YAML file at path and SPENDLOG_* environment variables, in that order.
func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, EnvPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}

// Validate reports every problem of the configuration at once.
func (a Application) Validate() error {
	var problems []string

	if a.DataDir == "" {
		problems = append(problems, "datadir cannot be empty")
	}
	if a.Budget.PageSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid page size %d: must be at least 1", a.Budget.PageSize))
	}
	if _, err := log.ParseLevel(a.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("invalid log level '%s'", a.LogLevel))
	}

	switch a.Database.Driver {
	case DriverSQLite:
		if a.Database.Path == "" {
			problems = append(problems, "db.path cannot be empty when using the sqlite driver")
		}
	case DriverPostgres:
		if a.Database.Host == "" || a.Database.Name == "" {
			problems = append(problems, "db.host and db.name are required when using the postgres driver")
		}
		if a.Database.Port < 1 || a.Database.Port > 65535 {
			problems = append(problems, fmt.Sprintf("invalid db.port %d: must be between 1 and 65535", a.Database.Port))
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid db.driver '%s': must be one of [%s %s]", a.Database.Driver, DriverSQLite, DriverPostgres))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// LoadDotEnv exports the variables of a .env file into the process environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) {
			log.Debugf("no env file at %s", path)
			return nil
		}
		return fmt.Errorf("could not load env file %s: %w", path, err)
	}
	return nil
}

// SaveCurrentBudget records the active budget in the .env file so the next start reopens it.
func SaveCurrentBudget(path, budget string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("could not read env file %s: %w", path, err)
		}
		values = map[string]string{}
	}
	values[CurrentBudgetKey] = budget
	if err := godotenv.Write(values, path); err != nil {
		return fmt.Errorf("could not write env file %s: %w", path, err)
	}
	if err := os.Setenv(CurrentBudgetKey, budget); err != nil {
		return fmt.Errorf("could not export %s: %w", CurrentBudgetKey, err)
	}
	return nil
}
