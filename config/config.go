/*
config.go - Settings for the server and CLI entry points

PURPOSE:
  Settings come from the process environment, optionally preloaded from
  a dotenv file. Variables already set in the environment win over the
  file.

VARIABLES:
  STOCKBOOK_DATA_FILE            database file (":memory:" allowed)
  STOCKBOOK_LOUNGE_NAME          display name of the business
  STOCKBOOK_SCHEMA_VERSION       version the data file must carry
  STOCKBOOK_DEFAULT_SALESMAN     salesman credited when none is given
  STOCKBOOK_DEFAULT_SALESMAN_NAME
  STOCKBOOK_LOG_FORMAT           pretty | json
  STOCKBOOK_LOG_LEVEL            zerolog level name
  STOCKBOOK_ADDR                 HTTP listen address
  STOCKBOOK_RATE_LIMIT           write requests per minute per client
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name.
const Prefix = "STOCKBOOK"

// MemoryDataFile selects a throwaway in-memory store.
const MemoryDataFile = ":memory:"

// ErrEnvFileNotFound is returned when an explicitly named env file is missing.
var ErrEnvFileNotFound = errors.New("env file not found")

type Settings struct {
	DataFile            string `envconfig:"DATA_FILE" default:"stockbook.db" validate:"required"`
	LoungeName          string `envconfig:"LOUNGE_NAME" default:"Lounge"`
	SchemaVersion       string `envconfig:"SCHEMA_VERSION" default:"1.0.0" validate:"required"`
	DefaultSalesman     string `envconfig:"DEFAULT_SALESMAN" default:"GRR00000000" validate:"max=64"`
	DefaultSalesmanName string `envconfig:"DEFAULT_SALESMAN_NAME" default:"Lounge Sale" validate:"max=200"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty" validate:"oneof=pretty json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	Addr      string `envconfig:"ADDR" default:":8080"`
	RateLimit int    `envconfig:"RATE_LIMIT" default:"120" validate:"gte=0"`
}

// Load reads settings. When envFile is non-empty it must exist and is
// loaded first; otherwise a .env in the working directory is loaded if
// present. A relative DataFile is resolved against the env file's
// directory.
func Load(envFile string) (*Settings, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrEnvFileNotFound, envFile)
		}
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	var s Settings
	if err := envconfig.Process(Prefix, &s); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(s); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	if envFile != "" && s.DataFile != MemoryDataFile && !filepath.IsAbs(s.DataFile) {
		s.DataFile = filepath.Join(filepath.Dir(envFile), s.DataFile)
	}
	return &s, nil
}

// InMemory reports whether the data file names a throwaway store.
func (s *Settings) InMemory() bool {
	return s.DataFile == MemoryDataFile
}
