package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gkobilansky/ab-advisor/internal/decision"
	"github.com/gkobilansky/ab-advisor/internal/input"
)

// run executes the command tree against a database in dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--db", filepath.Join(dir, "test.db")}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	require.NoError(t, err, out)
	return out
}

func TestDecide_Variants(t *testing.T) {
	out := mustRun(t, t.TempDir(), "decide", "--variant", "A:100000:5000", "--variant", "B:100000:5500")

	assert.Contains(t, out, "TEST: Two-proportion z-test")
	assert.Contains(t, out, "P-VALUE: < 0.0001 (significant at α = 0.05)")
	assert.Contains(t, out, "STATISTIC: z = 5.01")
	assert.Contains(t, out, "(control)")
	assert.Contains(t, out, "← WINNER")
	assert.Contains(t, out, "DIFFERENCE (B - A)")
	assert.Contains(t, out, "SUMMARY: Variant B wins")
}

func TestDecide_JSON(t *testing.T) {
	out := mustRun(t, t.TempDir(), "decide", "--json", "--variant", "A:10:1", "--variant", "B:12:3")

	var res decision.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, decision.TestFisher, res.Test)
	assert.Equal(t, "B", res.LeaderName())
}

func TestDecide_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.yaml")
	yaml := `metric: conversion
variants:
  - name: A
    traffic: 1000
    successes: 50
  - name: B
    traffic: 1100
    successes: 66
  - name: C
    traffic: 1200
    successes: 84
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	out := mustRun(t, dir, "decide", "--file", path)
	assert.Contains(t, out, "TEST: Chi-square test")
	assert.Contains(t, out, "df = 2")
	assert.Contains(t, out, "← LEADING")
	assert.NotContains(t, out, "DIFFERENCE")
}

func TestDecide_ValidationError(t *testing.T) {
	_, err := run(t, t.TempDir(), "decide", "--variant", "A:10:20", "--variant", "B:10:1")

	var verr *input.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Successes can't exceed Traffic.", verr.Issues[0].Message)
}

func TestDecide_NoInput(t *testing.T) {
	_, err := run(t, t.TempDir(), "decide")
	assert.ErrorContains(t, err, "no input")
}

func TestDecide_BadVariantFlag(t *testing.T) {
	_, err := run(t, t.TempDir(), "decide", "--variant", "A:ten:1", "--variant", "B:10:1")
	assert.ErrorContains(t, err, "invalid traffic")
}

func TestInterval(t *testing.T) {
	out := mustRun(t, t.TempDir(), "interval", "50", "100")
	assert.Contains(t, out, "RATE: 50.00% (50/100)")
	assert.Contains(t, out, "95% CI: [40.38%, 59.62%]")

	out = mustRun(t, t.TempDir(), "interval", "0", "0")
	assert.Contains(t, out, "undefined")

	_, err := run(t, t.TempDir(), "interval", "5", "3")
	assert.Error(t, err)

	_, err = run(t, t.TempDir(), "interval", "5", "10", "--confidence", "1.5")
	assert.Error(t, err)
}

func TestExperimentWorkflow(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "create", "hero", "--variants", "Ship Faster, Build Better")
	assert.Contains(t, out, "Created experiment 'hero' (ctr) with 2 variants")
	assert.Contains(t, out, "0: Ship Faster (control)")

	_, err := run(t, dir, "create", "hero", "--variants", "A,B")
	assert.ErrorContains(t, err, "already exists")

	mustRun(t, dir, "record", "hero", "Ship Faster", "--traffic", "60000", "--successes", "3000")
	mustRun(t, dir, "record", "hero", "0", "--traffic", "40000", "--successes", "2000")
	out = mustRun(t, dir, "record", "hero", "Build Better", "--traffic", "100000", "--successes", "5500", "--set")
	assert.Contains(t, out, "hero / Build Better: 100,000 traffic, 5,500 successes")

	out = mustRun(t, dir, "results", "hero", "--save")
	assert.Contains(t, out, "EXPERIMENT: hero")
	assert.Contains(t, out, "METRIC: CTR")
	assert.Contains(t, out, "STATE: running")
	assert.Contains(t, out, "Build Better")
	assert.Contains(t, out, "← WINNER")
	assert.Contains(t, out, "Saved decision ")

	out = mustRun(t, dir, "history", "hero")
	assert.Contains(t, out, "Two-proportion z-test")
	assert.Contains(t, out, "Build Better")

	out = mustRun(t, dir, "list")
	assert.Contains(t, out, "hero")
	assert.Contains(t, out, "RUNNING")
	assert.Contains(t, out, "200,000")

	out = mustRun(t, dir, "export", "hero", "--format", "csv")
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"1", "Build Better", "100000", "5500", "0.055000"}, records[2])

	out = mustRun(t, dir, "conclude", "hero")
	assert.Contains(t, out, `winner "Build Better"`)

	_, err = run(t, dir, "record", "hero", "0", "--traffic", "1")
	assert.ErrorContains(t, err, "already concluded")

	out = mustRun(t, dir, "list")
	assert.Contains(t, out, "COMPLETED")

	out = mustRun(t, dir, "delete", "hero", "--yes")
	assert.Contains(t, out, "Deleted experiment 'hero'")

	_, err = run(t, dir, "results", "hero")
	assert.ErrorContains(t, err, "experiment 'hero' not found")
}

func TestExportJSON_RoundTripsThroughDecide(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "create", "pricing", "--variants", "Control,Cheaper", "--metric", "conversion")
	mustRun(t, dir, "record", "pricing", "Control", "--traffic", "500", "--successes", "40")
	mustRun(t, dir, "record", "pricing", "Cheaper", "--traffic", "520", "--successes", "61")

	out := mustRun(t, dir, "export", "pricing", "--format", "json")
	path := filepath.Join(dir, "pricing.json")
	require.NoError(t, os.WriteFile(path, []byte(out), 0644))

	fromFile := mustRun(t, dir, "decide", "--file", path, "--json")
	fromStore := mustRun(t, dir, "results", "pricing", "--json")
	assert.JSONEq(t, fromStore, fromFile)
}

func TestConclude_NoWinner(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "create", "flat", "--variants", "A,B")

	_, err := run(t, dir, "conclude", "flat")
	assert.ErrorContains(t, err, "no statistically significant winner")

	out := mustRun(t, dir, "conclude", "flat", "--variant", "B")
	assert.Contains(t, out, `winner "B"`)
}

func TestHistory_Empty(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "create", "hero", "--variants", "A,B")

	out := mustRun(t, dir, "history", "hero")
	assert.Contains(t, out, "No saved decisions")
}

func TestList_Empty(t *testing.T) {
	out := mustRun(t, t.TempDir(), "list")
	assert.Contains(t, out, "No experiments yet.")
}

func TestReport_ToDirectory(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "create", "hero", "--variants", "A,B")
	mustRun(t, dir, "record", "hero", "A", "--traffic", "1000", "--successes", "50")
	mustRun(t, dir, "record", "hero", "B", "--traffic", "1000", "--successes", "50")

	reports := filepath.Join(dir, "reports")
	require.NoError(t, os.Mkdir(reports, 0755))

	out := mustRun(t, dir, "report", "hero", "--out", reports)
	assert.Contains(t, out, "Report written to ")

	matches, err := filepath.Glob(filepath.Join(reports, "AB_Test_Results_*.txt"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Equal Performance Detected")
	assert.NotContains(t, string(data), "\x1b[")
}

func TestReport_FromVariants(t *testing.T) {
	out := mustRun(t, t.TempDir(), "report", "--out", "-", "--variant", "A:100000:5000", "--variant", "B:100000:5500")
	assert.Contains(t, out, "A/B Test Results Summary")
	assert.Contains(t, out, "Variant B is the Winner")

	_, err := run(t, t.TempDir(), "report", "hero", "--variant", "A:1:0")
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "token")
	assert.ErrorContains(t, err, "no server running")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ab-advisor-token"), []byte("abc123\n"), 0600))
	out := mustRun(t, dir, "token")
	assert.Contains(t, out, "API token: abc123")
	assert.Contains(t, out, "Authorization: Bearer abc123")
}

func TestConfig_EnvAndFile(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "--log-format", "xml", "list")
	assert.ErrorContains(t, err, "invalid log format")

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log_level: warn\nport: 9090\n"), 0644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ab-advisor-token"), []byte("tok"), 0600))
	out := mustRun(t, dir, "--config", cfgPath, "token")
	assert.Contains(t, out, "localhost:9090")

	t.Setenv("ABA_PORT", "7070")
	out = mustRun(t, dir, "token")
	assert.Contains(t, out, "localhost:7070")
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{123456, "123,456"},
		{1000000, "1,000,000"},
		{1000000000, "1,000,000,000"},
		{-4500, "-4,500"},
	}

	for _, tt := range tests {
		if got := formatNumber(tt.n); got != tt.want {
			t.Errorf("formatNumber(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
