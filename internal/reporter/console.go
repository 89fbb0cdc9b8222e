package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"pg-guard/internal/model"
)

type ConsoleReporter struct {
	out io.Writer
}

func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

func NewConsoleReporterTo(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

func (r *ConsoleReporter) Report(results []model.FileResult) error {
	total := 0
	errored := 0

	for _, res := range results {
		if res.Err != nil {
			errored++
			fmt.Fprintf(r.out, "%s %s\n\n", color.RedString("✘"), res.Err)
			continue
		}
		if len(res.Violations) == 0 {
			continue
		}

		fmt.Fprintln(r.out, color.New(color.Bold).Sprint(res.Path))
		for _, v := range res.Violations {
			total++

			var sevColor *color.Color
			switch v.Severity {
			case model.SeverityWarning:
				sevColor = color.New(color.FgYellow, color.Bold)
			default:
				sevColor = color.New(color.FgRed, color.Bold)
			}

			loc := ""
			if v.LineNumber > 0 {
				loc = fmt.Sprintf("line %d: ", v.LineNumber)
			}
			fmt.Fprintf(r.out, "  %s[%s] %s\n", loc, sevColor.Sprint(v.Severity), color.New(color.Bold).Sprint(v.Operation))
			fmt.Fprintf(r.out, "\t%s\n", v.Problem)
			fmt.Fprintf(r.out, "\t%s\n", color.CyanString("Safe alternative:"))
			for _, line := range strings.Split(v.SafeAlternative, "\n") {
				fmt.Fprintf(r.out, "\t%s\n", line)
			}
			fmt.Fprintln(r.out)
		}
	}

	switch {
	case total == 0 && errored == 0:
		fmt.Fprintln(r.out, color.GreenString("✔ No unsafe migration operations found."))
	case errored > 0:
		fmt.Fprintf(r.out, "%s found %d unsafe operations, %d files could not be checked.\n", color.RedString("✘"), total, errored)
	default:
		fmt.Fprintf(r.out, "%s found %d unsafe operations.\n", color.RedString("✘"), total)
	}
	return nil
}
