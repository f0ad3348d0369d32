package cli_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/batchrun/internal/cli"
	"github.com/rshade/batchrun/internal/config"
	"github.com/rshade/batchrun/internal/engine"
	"github.com/rshade/batchrun/internal/ingest"
	"github.com/rshade/batchrun/internal/remote"
)

const usersCSV = `name,email
alice,alice@example.com
bob,bob@example.com
carol,carol@example.com
`

func TestRun_EchoJSON(t *testing.T) {
	setupCLITest(t)
	input := writeInput(t, "users.csv", usersCSV)

	stdout, stderr, err := executeCmd(t, "run", "--input", input, "--no-tui",
		"--output", "json", "--delay", "0s", "--chunk-size", "2")
	require.NoError(t, err)

	var doc engine.JSONOutput[ingest.Record]
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, "echo", doc.Metadata.Processor)
	assert.Equal(t, 3, doc.Summary.Total)
	assert.Equal(t, 3, doc.Summary.Successful)
	require.Len(t, doc.Results, 3)
	for i, r := range doc.Results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, 1, r.Attempts)
	}
	assert.Equal(t, "bob@example.com", (*doc.Results[1].Output)["email"])
	assert.Contains(t, stderr, "completed: 3/3 succeeded")
}

func TestRun_TableOutputDefault(t *testing.T) {
	setupCLITest(t)
	input := writeInput(t, "users.csv", usersCSV)

	stdout, _, err := executeCmd(t, "run", "--input", input, "--no-tui", "--delay", "0s")
	require.NoError(t, err)
	assert.Contains(t, stdout, "INDEX")
	assert.Contains(t, stdout, "SUMMARY")
	assert.Contains(t, stdout, "completed: 3/3 succeeded, 0 failed")
}

func TestRun_CSVOutputNoHeader(t *testing.T) {
	setupCLITest(t)
	input := writeInput(t, "data.tsv", "a\tb\nc\td\n")

	stdout, _, err := executeCmd(t, "run", "--input", input, "--no-tui", "--delay", "0s",
		"--no-header", "--delimiter", "tab", "--output", "csv")
	require.NoError(t, err)

	table := ingest.ParseTable(stdout, ingest.ParseOptions{HasHeader: true})
	assert.Equal(t, []string{"column_1", "column_2", "status", "attempts", "error"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "c", table.Rows[1]["column_1"])
	assert.Equal(t, "ok", table.Rows[1]["status"])
}

func TestRun_HTTPEndpointWithFailures(t *testing.T) {
	setupCLITest(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var rec map[string]string
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &rec)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		if rec["name"] == "bob" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("bad record"))
			return
		}
		_, _ = w.Write([]byte(`{"id":"` + rec["name"] + `"}`))
	}))
	defer srv.Close()

	input := writeInput(t, "users.csv", usersCSV)
	textfile := filepath.Join(t.TempDir(), "batchrun.prom")

	stdout, _, err := executeCmd(t, "run", "--input", input, "--no-tui", "--delay", "0s",
		"--endpoint", srv.URL, "--header", "X-Api-Key: secret", "--output", "ndjson",
		"--metrics-textfile", textfile, "--fail-on-error")
	require.Error(t, err)

	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, cli.ExitCodeRunFailures, exitErr.ExitCode)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)

	var bob engine.ItemOutput[remote.Response]
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &bob))
	assert.False(t, bob.Success)
	assert.Equal(t, "service", bob.ErrorKind)
	assert.Equal(t, 1, bob.Attempts, "400 is not retried")

	var alice engine.ItemOutput[remote.Response]
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &alice))
	require.NotNil(t, alice.Output)
	assert.JSONEq(t, `{"id":"alice"}`, string(alice.Output.Body))

	assert.Equal(t, int32(3), calls.Load())

	prom, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `batchrun_items_total{outcome="failure"} 1`)
	assert.Contains(t, string(prom), `batchrun_runs_total{status="completed"} 1`)
}

func TestRun_RequiredColumnsMissing(t *testing.T) {
	setupCLITest(t)
	input := writeInput(t, "users.csv", "name,email\nalice,\n")

	_, stderr, err := executeCmd(t, "run", "--input", input, "--no-tui", "--required", "email,phone")
	require.Error(t, err)

	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.ExitCode)
	assert.Contains(t, stderr, `missing required column "phone"`)
	assert.Contains(t, stderr, `row 2: missing required field "email"`)
}

func TestRun_InvalidFlags(t *testing.T) {
	setupCLITest(t)
	input := writeInput(t, "users.csv", usersCSV)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "chunk size", args: []string{"--chunk-size", "0"}, wantErr: "batch.chunk_size"},
		{name: "output", args: []string{"--output", "xml"}, wantErr: "output.default_format"},
		{name: "header", args: []string{"--header", "nocolon"}, wantErr: "invalid header"},
		{name: "delimiter", args: []string{"--delimiter", ";;"}, wantErr: "invalid delimiter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"run", "--input", input, "--no-tui"}, tt.args...)
			_, _, err := executeCmd(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_MissingInputFile(t *testing.T) {
	setupCLITest(t)

	_, _, err := executeCmd(t, "run", "--input", filepath.Join(t.TempDir(), "nope.csv"), "--no-tui")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading input file")
}

func TestRun_EmptyInput(t *testing.T) {
	setupCLITest(t)
	input := writeInput(t, "empty.csv", "name,email\n")

	stdout, _, err := executeCmd(t, "run", "--input", input, "--no-tui", "--output", "json", "--fail-on-error")
	require.NoError(t, err)

	var doc engine.JSONOutput[ingest.Record]
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, 0, doc.Summary.Total)
	assert.Empty(t, doc.Results)
}

func TestRun_UsesConfigFile(t *testing.T) {
	home := setupCLITest(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(`
output:
  default_format: ndjson
`), 0o600))
	input := writeInput(t, "users.csv", usersCSV)

	stdout, _, err := executeCmd(t, "run", "--input", input, "--no-tui", "--delay", "0s")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(stdout), "\n"), 3)
}

func TestRun_LogsFailedItems(t *testing.T) {
	setupCLITest(t)
	logFile := filepath.Join(t.TempDir(), "batchrun.log")
	t.Setenv(config.EnvLogLevel, "warn")
	t.Setenv(config.EnvLogFile, logFile)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rec map[string]string
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &rec)
		if rec["name"] == "carol" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	input := writeInput(t, "users.csv", usersCSV)
	_, _, err := executeCmd(t, "run", "--input", input, "--no-tui", "--delay", "0s",
		"--endpoint", srv.URL, "--output", "json")
	require.NoError(t, err)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var failed []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["message"] == "item failed" {
			failed = append(failed, entry)
		}
	}
	require.Len(t, failed, 1)
	assert.InDelta(t, 2, failed[0]["index"], 0)
	assert.Equal(t, "service", failed[0]["kind"])
}
