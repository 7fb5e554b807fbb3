package config

import "testing"

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

// TestLoadDefaults verifies the defaults with a clean environment.
func TestLoadDefaults(t *testing.T) {
	setEnv(t, map[string]string{
		"PORT":                         "",
		"DEBUG":                        "",
		"AZURE_STORAGE_ACCOUNT_NAME":   "",
		"AZURE_STORAGE_ACCOUNT_KEY":    "",
		"AZURE_STORAGE_CONTAINER_NAME": "",
		"JOURNAL_BACKEND":              "",
		"JOURNAL_DSN":                  "",
		"PYTHON_BIN":                   "",
		"SEQ_URL":                      "",
		"DD_ENABLED":                   "",
	})

	cfg := Load()
	if cfg.Port != 5001 {
		t.Fatalf("Port=%d, want 5001", cfg.Port)
	}
	if cfg.Storage.Container != "conversations" {
		t.Fatalf("Container=%q, want conversations", cfg.Storage.Container)
	}
	if cfg.Storage.Configured() {
		t.Fatalf("Configured()=true, want false with no credentials")
	}
	if cfg.PythonBin != "python3" {
		t.Fatalf("PythonBin=%q, want python3", cfg.PythonBin)
	}
	if cfg.DatadogEnabled {
		t.Fatalf("DatadogEnabled=true, want false")
	}
}

// TestLoadOverrides verifies env values land in the right fields.
func TestLoadOverrides(t *testing.T) {
	setEnv(t, map[string]string{
		"PORT":                         "8080",
		"DEBUG":                        "true",
		"AZURE_STORAGE_ACCOUNT_NAME":   "acct",
		"AZURE_STORAGE_ACCOUNT_KEY":    "key",
		"AZURE_STORAGE_CONTAINER_NAME": "custom",
		"JOURNAL_BACKEND":              "SQLITE",
		"JOURNAL_DSN":                  "journal.db",
		"PYTHON_BIN":                   "/usr/bin/python3.12",
	})

	cfg := Load()
	if cfg.Port != 8080 || !cfg.Debug {
		t.Fatalf("Port=%d Debug=%v, want 8080 true", cfg.Port, cfg.Debug)
	}
	if !cfg.Storage.Configured() || cfg.Storage.Container != "custom" {
		t.Fatalf("Storage=%+v, want configured with custom container", cfg.Storage)
	}
	if cfg.Journal.Backend != "sqlite" || cfg.Journal.DSN != "journal.db" {
		t.Fatalf("Journal=%+v, want lowercased sqlite backend", cfg.Journal)
	}
	if cfg.PythonBin != "/usr/bin/python3.12" {
		t.Fatalf("PythonBin=%q", cfg.PythonBin)
	}
}

// TestLoadJournalWithoutDSN verifies a backend without a DSN is disabled.
func TestLoadJournalWithoutDSN(t *testing.T) {
	setEnv(t, map[string]string{
		"JOURNAL_BACKEND": "postgres",
		"JOURNAL_DSN":     "",
	})

	cfg := Load()
	if cfg.Journal.Backend != "" {
		t.Fatalf("Journal.Backend=%q, want disabled without DSN", cfg.Journal.Backend)
	}
}

// TestLoadBadPort verifies unparsable numbers fall back to the default.
func TestLoadBadPort(t *testing.T) {
	setEnv(t, map[string]string{"PORT": "not-a-port"})

	cfg := Load()
	if cfg.Port != 5001 {
		t.Fatalf("Port=%d, want default 5001", cfg.Port)
	}
}
