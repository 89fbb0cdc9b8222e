// Package directive parses safety-assured suppression blocks out of raw
// migration SQL. A block is opened by a comment line reading
// "-- safety-assured:start" and closed by "-- safety-assured:end"; every
// statement on a line strictly between the two directives is exempt from
// checking.
package directive

import (
	"bufio"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Directive lines must match the entire trimmed line: no trailing characters,
// case-insensitive, whitespace-tolerant.
var (
	startDirective = regexp.MustCompile(`(?i)^\s*--\s*safety-assured:start\s*$`)
	endDirective   = regexp.MustCompile(`(?i)^\s*--\s*safety-assured:end\s*$`)
)

// Structural errors in directive usage. All are fatal for the file: with a
// malformed block the suppression semantics would be ambiguous.
var (
	ErrNestedDirective = errors.New("nested safety-assured block")
	ErrUnmatchedEnd    = errors.New("unmatched safety-assured:end")
	ErrUnclosedBlock   = errors.New("unclosed safety-assured:start")
)

// IgnoreRange is a 1-indexed line interval within which checks are
// suppressed. Both boundary lines (the directive comments themselves) are
// exclusive: a statement on StartLine or EndLine is not inside the range.
type IgnoreRange struct {
	StartLine int
	EndLine   int
}

func (r IgnoreRange) String() string {
	return fmt.Sprintf("lines %d-%d", r.StartLine, r.EndLine)
}

// Parse scans SQL text line by line and extracts all safety-assured blocks in
// order. Nesting is unsupported: only one block may be open at a time. An
// empty block (start immediately followed by end) is valid and yields a
// degenerate range containing no ignorable lines.
func Parse(sql string) ([]IgnoreRange, error) {
	var ranges []IgnoreRange
	openedAt := 0 // 0 means no open block

	scanner := bufio.NewScanner(strings.NewReader(sql))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		switch {
		case IsStart(scanner.Text()):
			if openedAt != 0 {
				return nil, fmt.Errorf("%w at line %d: close the block opened at line %d before starting a new one", ErrNestedDirective, line, openedAt)
			}
			openedAt = line
		case IsEnd(scanner.Text()):
			if openedAt == 0 {
				return nil, fmt.Errorf("%w at line %d: each end must have a matching safety-assured:start before it", ErrUnmatchedEnd, line)
			}
			ranges = append(ranges, IgnoreRange{StartLine: openedAt, EndLine: line})
			openedAt = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning sql: %w", err)
	}

	if openedAt != 0 {
		return nil, fmt.Errorf("%w at line %d: did you forget to add safety-assured:end?", ErrUnclosedBlock, openedAt)
	}

	return ranges, nil
}

// IsStart reports whether the line is a start directive.
func IsStart(line string) bool {
	return startDirective.MatchString(line)
}

// IsEnd reports whether the line is an end directive.
func IsEnd(line string) bool {
	return endDirective.MatchString(line)
}

// IgnoredLines returns the union, over all ranges, of the line numbers
// strictly between StartLine and EndLine.
func IgnoredLines(ranges []IgnoreRange) map[int]struct{} {
	ignored := make(map[int]struct{})
	for _, r := range ranges {
		for line := r.StartLine + 1; line < r.EndLine; line++ {
			ignored[line] = struct{}{}
		}
	}
	return ignored
}
