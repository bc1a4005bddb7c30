package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/skeleton-tagger-mcp/internal/config"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/logging"
)

// resetFlags restores flag defaults left over from an earlier Execute.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	for _, key := range []string{config.EnvLogLevel, config.EnvDatabase, config.EnvProfile} {
		t.Setenv(key, "")
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeInputs(t *testing.T) (particles, skeleton string) {
	t.Helper()
	dir := t.TempDir()
	particles = filepath.Join(dir, "Results.csv")
	skeleton = filepath.Join(dir, "skeleton.json")
	require.NoError(t, os.WriteFile(particles, []byte("X,Y\n0,0\n1,0\n9,9\n"), 0o600))
	require.NoError(t, os.WriteFile(skeleton, []byte(`{
		"end_points": [{"x": 0, "y": 0}],
		"junction_voxels": [{"x": 2, "y": 0}],
		"junction_count": 1
	}`), 0o600))
	return particles, skeleton
}

func TestClassifyCommand_CSVAndHistory(t *testing.T) {
	particles, skeleton := writeInputs(t)
	db := filepath.Join(t.TempDir(), "history.db")

	out, err := execute(t, "--db", db, "classify",
		"--particles", particles, "--features", skeleton,
		"--cutoff", "3", "--format", "csv", "--measure", "--title", "cells")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Label", records[0][0])
	assert.Equal(t, "cells", records[1][0])
	// (0,0) tip, (1,0) tie, (9,9) none
	assert.Equal(t, "1 (33.333%)", records[1][2])
	assert.Equal(t, "1 (33.333%)", records[1][3])
	assert.Equal(t, "1 (33.333%)", records[1][4])

	out, err = execute(t, "--db", db, "history", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "cells"`)
}

func TestClassifyCommand_NoParticles(t *testing.T) {
	_, skeleton := writeInputs(t)
	empty := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(empty, []byte("X,Y\n"), 0o600))

	_, err := execute(t, "classify", "--particles", empty, "--features", skeleton)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no particles detected")
}

func TestClassifyCommand_MeasureWithoutHistoryWarns(t *testing.T) {
	particles, skeleton := writeInputs(t)

	var logged []string
	logging.SetLogger(func(format string, v ...interface{}) {
		logged = append(logged, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { logging.SetLogger(log.Printf) })

	_, err := execute(t, "classify", "--particles", particles, "--features", skeleton, "--measure", "--format", "csv")
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Contains(t, logged[0], "no history database is configured")
	assert.Contains(t, logged[0], config.EnvDatabase)

	logged = nil
	_, err = execute(t, "classify", "--particles", particles, "--features", skeleton, "--format", "csv")
	require.NoError(t, err)
	assert.Empty(t, logged)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "skeleton-tagger "+Version)
}
