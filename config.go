package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default config file names, looked up in the working directory.
const (
	configFileName    = "schemascope.yaml"
	configFileNameAlt = "schemascope.yml"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultDraftRowLimit  = 10
	defaultRefineRowLimit = 100
)

// Config carries the connection parameters and the row-limit defaults used
// by the query synthesizer. Either Path (file backends) or the host/port
// group (network backends) is populated, per driver.
type Config struct {
	Driver   string `koanf:"driver"`
	Path     string `koanf:"path"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	DraftRowLimit  int           `koanf:"draft_row_limit"`
	RefineRowLimit int           `koanf:"refine_row_limit"`
}

func (c *Config) applyDefaults() {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		switch c.Driver {
		case "postgres":
			c.Port = 5432
		case "mysql":
			c.Port = 3306
		case "sqlserver":
			c.Port = 1433
		}
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.DraftRowLimit == 0 {
		c.DraftRowLimit = defaultDraftRowLimit
	}
	if c.RefineRowLimit == 0 {
		c.RefineRowLimit = defaultRefineRowLimit
	}
}

func (c Config) connectTimeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return defaultConnectTimeout
	}
	return c.ConnectTimeout
}

// LoadConfig loads configuration from an optional YAML file and the
// SCHEMASCOPE_ environment, env vars overriding the file. An empty path
// falls back to schemascope.yaml/.yml in the working directory; a missing
// default file is not an error.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("config file: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	// SCHEMASCOPE_CONNECT_TIMEOUT -> connect_timeout
	if err := k.Load(env.Provider("SCHEMASCOPE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SCHEMASCOPE_"))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func findConfigFile() string {
	for _, name := range []string{configFileName, configFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}
