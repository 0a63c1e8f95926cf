package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/mediguard/internal/config"
)

func useConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "medications.json")
	cfgPath := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("catalog:\n  path: "+catalogPath+"\n"), 0o644))

	prev := configPath
	configPath = cfgPath
	t.Cleanup(func() { configPath = prev })
	return catalogPath
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, versionCmd())
	require.NoError(t, err)
	assert.Equal(t, "mediguard "+version+"\n", out)
}

func TestCatalogCommands(t *testing.T) {
	catalogPath := useConfig(t)

	out, err := run(t, catalogCmd(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Levothyroxine")
	assert.Contains(t, out, "oval white")

	out, err = run(t, catalogCmd(), "add", "--name", "Warfarin", "--dose", "5 mg", "--schedule", "09:00,21:00", "--critical")
	require.NoError(t, err)
	assert.Equal(t, "added Warfarin (5 mg at 09:00, 21:00)\n", out)
	assert.FileExists(t, catalogPath)

	out, err = run(t, catalogCmd(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Warfarin")

	out, err = run(t, catalogCmd(), "remove", "Warfarin")
	require.NoError(t, err)
	assert.Equal(t, "removed Warfarin\n", out)

	_, err = run(t, catalogCmd(), "remove", "Warfarin")
	assert.ErrorContains(t, err, "medication not found")

	_, err = run(t, catalogCmd(), "add", "--name", "Bad", "--dose", "1", "--schedule", "noon")
	assert.ErrorContains(t, err, "invalid medication")
}

func TestCheckForcedMiss(t *testing.T) {
	useConfig(t)

	out, err := run(t, checkCmd(), "--at", "06:30", "--result", "missed")
	require.NoError(t, err)
	assert.Contains(t, out, "Levothyroxine  Missed")
	assert.Contains(t, out, "alert [emergency] EMERGENCY: Critical medication Levothyroxine missed!")
	assert.Contains(t, out, "status: emergency")

	out, err = run(t, checkCmd(), "--at", "03:17")
	require.NoError(t, err)
	assert.Equal(t, "nothing due at 03:17\n", out)
}

func TestOpenCatalogUsesGivenConfig(t *testing.T) {
	// the config file is gone; openCatalog must not read it again
	prev := configPath
	configPath = filepath.Join(t.TempDir(), "missing.yml")
	t.Cleanup(func() { configPath = prev })

	cfg := &config.Config{Catalog: config.CatalogConfig{Path: filepath.Join(t.TempDir(), "medications.json")}}
	svc, err := openCatalog(context.Background(), cfg)
	require.NoError(t, err)
	assert.Len(t, svc.List(), 5)
}
