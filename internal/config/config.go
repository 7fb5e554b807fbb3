// Package config loads process configuration from the environment exactly
// once at startup and hands a validated, immutable Config to every
// component. No other package reads environment variables for runtime
// behavior: the historical split where one service treated missing storage
// credentials as fatal and the other re-read them per request is resolved
// by depending on this single structure.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Storage holds the object-store identity. It may be entirely absent:
// the execute endpoint works without a store until a dataset is requested,
// and the schema endpoints fail per-request with a configuration error.
type Storage struct {
	AccountName string
	AccountKey  string
	Container   string
}

// Configured reports whether both credential halves are present.
func (s Storage) Configured() bool {
	return s.AccountName != "" && s.AccountKey != ""
}

// Journal selects an optional analysis-journal backend.
type Journal struct {
	Backend string // "sqlite", "postgres", "mssql"; empty disables journaling
	DSN     string
}

// Config is the full validated process configuration.
type Config struct {
	Port  int
	Debug bool

	Storage Storage
	Journal Journal

	// PythonBin is the interpreter used by the subprocess execution engine.
	PythonBin string

	// SeqURL enables the Seq log sink when non-empty.
	SeqURL string

	// Datadog metrics submission. Disabled by default; the Datadog client
	// reads its own API credentials from the standard DD_* variables.
	DatadogEnabled bool
	DatadogTags    string
}

const (
	defaultPort      = 5001
	defaultContainer = "conversations"
	defaultPython    = "python3"
)

// Load reads and validates configuration from the environment.
func Load() Config {
	cfg := Config{
		Port:  envInt("PORT", defaultPort),
		Debug: envBool("DEBUG", false),
		Storage: Storage{
			AccountName: strings.TrimSpace(os.Getenv("AZURE_STORAGE_ACCOUNT_NAME")),
			AccountKey:  strings.TrimSpace(os.Getenv("AZURE_STORAGE_ACCOUNT_KEY")),
			Container:   envStr("AZURE_STORAGE_CONTAINER_NAME", defaultContainer),
		},
		Journal: Journal{
			Backend: strings.ToLower(envStr("JOURNAL_BACKEND", "")),
			DSN:     envStr("JOURNAL_DSN", ""),
		},
		PythonBin:      envStr("PYTHON_BIN", defaultPython),
		SeqURL:         envStr("SEQ_URL", ""),
		DatadogEnabled: envBool("DD_ENABLED", false),
		DatadogTags:    envStr("DD_TAGS", ""),
	}

	// A journal backend without a DSN is treated as disabled rather than
	// fatal; the service is useful without history.
	if cfg.Journal.Backend != "" && cfg.Journal.DSN == "" {
		cfg.Journal.Backend = ""
	}

	return cfg
}

func envStr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	switch v {
	case "1", "t", "true", "yes", "y":
		return true
	case "0", "f", "false", "no", "n":
		return false
	default:
		return def
	}
}
