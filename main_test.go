package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"drainsum/config"
	"drainsum/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	configPath, verbose, sumFloat, dumpOutput = "", false, false, ""
	t.Setenv("SUMD_LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestSumCommand(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"ints", "", []string{"sum", "1", "2", "3"}, "6\n"},
		{"cancelling", "", []string{"sum", "--", "-5", "5"}, "0\n"},
		{"floats", "", []string{"sum", "1.5", "2.5"}, "4\n"},
		{"forced float", "", []string{"sum", "--float", "1", "2"}, "3\n"},
		{"stdin", "1 2\n3\t4\n", []string{"sum"}, "10\n"},
		{"empty stdin", "", []string{"sum"}, "0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestSumCommandVerbosePrintsDrainedSequence(t *testing.T) {
	out, err := runCLI(t, "", "sum", "-v", "1", "2", "3")
	require.NoError(t, err)
	assert.Equal(t, "6\n[]\n", out)
}

func TestSumCommandRejectsGarbage(t *testing.T) {
	_, err := runCLI(t, "", "sum", "1", "two")
	assert.ErrorContains(t, err, `"two"`)
}

func TestSumCommandRefusesOverflow(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"int64 past max", []string{"sum", "9223372036854775807", "1"}},
		{"int64 past min", []string{"sum", "--", "-9223372036854775808", "-1"}},
		{"float past max", []string{"sum", "1e308", "1e308"}},
		{"float past min", []string{"sum", "--", "-1e308", "-1e308"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, "", tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, store.ErrOverflow)
			assert.NotContains(t, out, "Inf")
			assert.NotContains(t, out, "-9223372036854775808\n")
		})
	}

	out, err := runCLI(t, "", "sum", "--float", "9223372036854775807", "1")
	require.NoError(t, err)
	assert.Equal(t, "9.223372036854776e+18\n", out)
}

func TestConfigDump(t *testing.T) {
	t.Setenv("SUMD_LISTEN", "127.0.0.1:7070")

	out, err := runCLI(t, "", "config", "dump")
	require.NoError(t, err)
	assert.Contains(t, out, "127.0.0.1:7070")
	assert.Contains(t, out, "reject_threshold: 50")

	path := filepath.Join(t.TempDir(), "sumd.yaml")
	out, err = runCLI(t, "", "config", "dump", "--output", path)
	require.NoError(t, err)
	assert.Empty(t, out)
	require.FileExists(t, path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7070", cfg.Server.Listen)
}

func TestServeCommandRejectsBadConfig(t *testing.T) {
	_, err := runCLI(t, "", "serve", "--reject-threshold", "0")
	assert.ErrorContains(t, err, "reject_threshold")
}
