package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maltedev/marketplace-matcher/internal/browser"
	"github.com/maltedev/marketplace-matcher/internal/fetcher"
	"github.com/maltedev/marketplace-matcher/internal/marketplace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blankEngine renders every URL as an empty page, so every row is "no match".
type blankEngine struct{}

func (blankEngine) OpenPage(context.Context) (fetcher.Page, error) { return blankPage{}, nil }
func (blankEngine) Close() error { return nil }

type blankPage struct{}

func (blankPage) Navigate(string, time.Duration) error { return nil }
func (blankPage) AwaitReady(marketplace.Readiness) error { return nil }
func (blankPage) Content() (string, error) { return "<html></html>", nil }
func (blankPage) Close() error { return nil }

func fakeLauncher(*browser.Options) fetcher.Launcher {
	return func(context.Context) (fetcher.Engine, error) { return blankEngine{}, nil }
}

func writeInput(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "tasks.csv")
	require.NoError(t, os.WriteFile(path, []byte("solution_name,vendor\nWidget Pro,Acme\nGadget,Globex\n"), 0o644))
	return path
}

func TestRunWritesCleanJSONToStdout(t *testing.T) {
	input := writeInput(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-input", input}, &stdout, &stderr, fakeLauncher)
	require.Equal(t, 0, code, stderr.String())

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rows), stdout.String())
	require.Len(t, rows, 2)
	assert.Equal(t, "Widget Pro", rows[0]["product"])
	assert.Equal(t, "Gadget", rows[1]["product"])
	assert.Nil(t, rows[0]["aws"])

	assert.Contains(t, stderr.String(), "run started")
	assert.Contains(t, stderr.String(), "task completed")
}

func TestRunWritesCleanCSVToStdout(t *testing.T) {
	input := writeInput(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-input", input, "-format", "csv"}, &stdout, &stderr, fakeLauncher)
	require.Equal(t, 0, code, stderr.String())

	records, err := csv.NewReader(&stdout).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "product", records[0][0])
	assert.Equal(t, []string{"Widget Pro", "Acme"}, records[1][:2])
}

func TestRunWritesOutputFile(t *testing.T) {
	input := writeInput(t)
	output := filepath.Join(t.TempDir(), "results.json")
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-input", input, "-output", output}, &stdout, &stderr, fakeLauncher)
	require.Equal(t, 0, code, stderr.String())
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestRunEngineInitFailure(t *testing.T) {
	input := writeInput(t)
	var stdout, stderr bytes.Buffer

	failing := func(*browser.Options) fetcher.Launcher {
		return func(context.Context) (fetcher.Engine, error) { return nil, errors.New("chromium not installed") }
	}

	code := run(context.Background(), []string{"-input", input}, &stdout, &stderr, failing)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "failed to start browser")
}

func TestRunUsageErrors(t *testing.T) {
	input := writeInput(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing input", nil},
		{"bad format", []string{"-input", input, "-format", "xml"}},
		{"bad marketplace", []string{"-input", input, "-marketplaces", "ebay"}},
		{"unknown flag", []string{"-nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args, &stdout, &stderr, fakeLauncher)
			assert.Equal(t, 2, code)
			assert.Empty(t, stdout.String())
		})
	}
}
