package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/xgfixtures/internal/gameweek"
)

func TestSourceWindowsBuiltin(t *testing.T) {
	windows, season, err := sourceWindows("", "2024")
	require.NoError(t, err)
	assert.Equal(t, "2024", season)
	assert.Equal(t, gameweek.Default().Windows(), windows)
}

func TestSourceWindowsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
season: "2025"
windows:
  - {gameweek: 1, start: "2025-08-15", end: "2025-08-18"}
  - {gameweek: 2, start: "2025-08-22", end: "2025-08-25"}
`), 0o644))

	windows, season, err := sourceWindows(path, "2024")
	require.NoError(t, err)
	assert.Equal(t, "2025", season)
	require.Len(t, windows, 2)
	assert.Equal(t, 2, windows[1].Gameweek)

	_, _, err = sourceWindows(filepath.Join(t.TempDir(), "missing.yaml"), "2024")
	assert.Error(t, err)
}

func TestPrintWindows(t *testing.T) {
	var buf bytes.Buffer
	printWindows(&buf, "2024", gameweek.Default().Windows()[:2])
	assert.Equal(t, "season 2024: 2 windows\nGW24  2025-02-01 .. 2025-02-13\nGW25  2025-02-14 .. 2025-02-20\n", buf.String())
}
