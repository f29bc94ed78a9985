package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LEDGER_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "Ledger", cfg.Sheet.WorksheetName)
	require.Equal(t, 300, cfg.Sheet.MaxRows)
	require.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	require.Equal(t, "8080", cfg.Server.Port)
	require.NotZero(t, cfg.Tasks.RefreshDebounce)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := "[sheet]\nspreadsheet_id = \"https://docs.google.com/spreadsheets/d/abc123_XY/edit#gid=0\"\nworksheet_name = \"Family\"\n\n[server]\nport = \"9090\"\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	t.Setenv("LEDGER_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "abc123_XY", cfg.Sheet.SpreadsheetID)
	require.Equal(t, "Family", cfg.Sheet.WorksheetName)
	require.Equal(t, "9090", cfg.Server.Port)
}

func TestNormalizeSpreadsheetID(t *testing.T) {
	require.Equal(t, "abc", NormalizeSpreadsheetID("abc"))
	require.Equal(t, "id-42", NormalizeSpreadsheetID("https://docs.google.com/spreadsheets/d/id-42"))
}
