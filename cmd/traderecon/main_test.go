package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/savegress/traderecon/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))

	err := root.Execute()
	return out.String(), err
}

func TestGenerateThenRun(t *testing.T) {
	dir := t.TempDir()
	internal := filepath.Join(dir, "internal_ledger.csv")
	bank := filepath.Join(dir, "bank_statement.csv")
	report := filepath.Join(dir, "out", "eod.xlsx")

	out, err := execute(t, "generate", "--internal", internal, "--bank", bank, "--trades", "50", "--zombies", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 50 trades to "+internal)

	out, err = execute(t, "run", "--internal", internal, "--bank", bank, "--out", report)
	require.NoError(t, err)

	assert.Contains(t, out, "Rows")
	assert.Contains(t, out, "MISSING INTERNAL")
	assert.Regexp(t, `Report\s+`+regexp.QuoteMeta(report), out)

	_, err = os.Stat(report)
	assert.NoError(t, err)
}

func TestRun_DatedReportInOutDir(t *testing.T) {
	dir := t.TempDir()
	internal := filepath.Join(dir, "a.csv")
	bank := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(internal, []byte("Trade_ID,Ticker,Side,Qty,Price,Currency\nT1,TCS,BUY,10,100.00,INR\n"), 0644))
	require.NoError(t, os.WriteFile(bank, []byte("Trade_ID,Ticker,Side,Qty,Price,Currency\nT1,TCS,BUY,10,100.01,INR\n"), 0644))

	out, err := execute(t, "run", "--internal", internal, "--bank", bank, "--out-dir", dir)
	require.NoError(t, err)
	assert.Regexp(t, `Match rate\s+100\.00%`, out)

	matches, err := filepath.Glob(filepath.Join(dir, "Recon_Report_*.xlsx"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	internal := filepath.Join(dir, "a.csv")
	bank := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(internal, []byte("Trade_ID,Ticker,Side,Qty,Price,Currency\nT1,TCS,BUY,10,100.00,INR\n"), 0644))
	require.NoError(t, os.WriteFile(bank, []byte("Trade_ID,Ticker,Side,Qty,Price,Currency\nT1,TCS,BUY,10,100.40,INR\n"), 0644))

	cfgPath := filepath.Join(dir, "traderecon.yaml")
	cfg := fmt.Sprintf("reconciliation:\n  internal_path: %s\n  bank_path: %s\n  tolerance: 0.50\n  output_dir: %s\n", internal, bank, dir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	out, err := execute(t, "--config", cfgPath, "run")
	require.NoError(t, err)
	assert.Regexp(t, `Tolerance\s+0\.5\n`, out)
	assert.Regexp(t, `Match rate\s+100\.00%`, out)

	// a flag wins over the file
	out, err = execute(t, "--config", cfgPath, "run", "--tolerance", "0")
	require.NoError(t, err)
	assert.Regexp(t, `Match rate\s+0\.00%`, out)
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.csv")
	require.NoError(t, os.WriteFile(good, []byte("Trade_ID,Ticker,Side,Qty,Price,Currency\nT1,TCS,BUY,10,100.00,INR\n"), 0644))
	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("Trade_ID,Ticker,Side,Qty,Price,Currency\nT1,TCS,BUY,-5,100.00,INR\n"), 0644))

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"missing source", []string{"run", "--internal", good, "--bank", filepath.Join(dir, "nope.csv"), "--out-dir", dir}, exitSource},
		{"malformed source", []string{"run", "--internal", good, "--bank", bad, "--out-dir", dir}, exitSource},
		{"invalid tolerance", []string{"run", "--internal", good, "--bank", good, "--tolerance", "cheap"}, exitFailure},
		{"same file twice", []string{"run", "--internal", good, "--bank", good}, exitFailure},
		{"missing config", []string{"--config", filepath.Join(dir, "missing.yaml"), "run"}, exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, exitCode(err))
		})
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	assert.Empty(t, matches, "failed runs must not write a report")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitSource, exitCode(models.NewSourceUnavailable("a.csv", os.ErrNotExist)))
	assert.Equal(t, exitSource, exitCode(errors.Join(
		models.NewMalformedRecord("a.csv", 2, "T1", errors.New("bad qty")),
		models.NewMalformedRecord("a.csv", 3, "T2", errors.New("bad qty")),
	)))
	assert.Equal(t, exitDestination, exitCode(models.NewDestinationUnwritable("out.xlsx", os.ErrPermission)))
	assert.Equal(t, exitFailure, exitCode(errors.New("boom")))
}

func TestGenerate_RejectsNegativeCounts(t *testing.T) {
	_, err := execute(t, "generate", "--trades", "-1", "--internal", filepath.Join(t.TempDir(), "a.csv"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "must not be negative"))
}
