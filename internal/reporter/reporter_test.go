package reporter

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pg-guard/internal/model"
)

func sampleViolation() model.Violation {
	v := model.NewViolation(
		"TRUNCATE TABLE",
		"TRUNCATE TABLE on 'users' acquires an ACCESS EXCLUSIVE lock.",
		"Use DELETE with batching instead.",
	)
	v.LineNumber = 3
	return v
}

func TestConsoleReporterClean(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporterTo(&buf)

	require.NoError(t, r.Report([]model.FileResult{{Path: "migrations/up.sql"}}))
	assert.Contains(t, buf.String(), "No unsafe migration operations found")
}

func TestConsoleReporterViolations(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporterTo(&buf)

	results := []model.FileResult{{Path: "migrations/up.sql", Violations: []model.Violation{sampleViolation()}}}
	require.NoError(t, r.Report(results))

	out := buf.String()
	for _, want := range []string{"migrations/up.sql", "line 3", "TRUNCATE TABLE", "Safe alternative:", "found 1 unsafe operations"} {
		assert.Contains(t, out, want)
	}
}

func TestConsoleReporterFileError(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporterTo(&buf)

	results := []model.FileResult{{Path: "broken.sql", Err: errors.New("syntax error at line 1")}}
	require.NoError(t, r.Report(results))
	assert.Contains(t, buf.String(), "syntax error at line 1")
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterTo(&buf)

	results := []model.FileResult{
		{Path: "migrations/up.sql", Violations: []model.Violation{sampleViolation()}},
		{Path: "broken.sql", Err: errors.New("boom")},
	}
	require.NoError(t, r.Report(results))

	var decoded []struct {
		File       string            `json:"file"`
		Violations []model.Violation `json:"violations"`
		Error      string            `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded), "output is not valid JSON:\n%s", buf.String())

	require.Len(t, decoded, 2)
	assert.Equal(t, "migrations/up.sql", decoded[0].File)
	require.Len(t, decoded[0].Violations, 1)
	assert.Equal(t, 3, decoded[0].Violations[0].LineNumber)
	assert.Equal(t, "boom", decoded[1].Error)
}
