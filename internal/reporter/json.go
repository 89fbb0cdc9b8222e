package reporter

import (
	"encoding/json"
	"io"
	"os"

	"pg-guard/internal/model"
)

// JSONReporter emits machine-readable results, one object per file. Files
// that could not be checked appear with an "error" field instead of
// violations.
type JSONReporter struct {
	out io.Writer
}

func NewJSONReporter() *JSONReporter {
	return &JSONReporter{out: os.Stdout}
}

func NewJSONReporterTo(w io.Writer) *JSONReporter {
	return &JSONReporter{out: w}
}

type jsonFileResult struct {
	File       string            `json:"file"`
	Violations []model.Violation `json:"violations,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func (r *JSONReporter) Report(results []model.FileResult) error {
	out := make([]jsonFileResult, 0, len(results))
	for _, res := range results {
		jr := jsonFileResult{File: res.Path, Violations: res.Violations}
		if res.Err != nil {
			jr.Error = res.Err.Error()
		}
		out = append(out, jr)
	}

	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
