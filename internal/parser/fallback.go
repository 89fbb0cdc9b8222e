package parser

import "regexp"

// Fallback detectors for constructs that have tripped up SQL grammars in the
// wild. When a file fails to parse, these patterns decide whether the file
// should degrade to a best-effort warning instead of a hard error: a match
// means the file likely contains valid but exotic DDL rather than a typo.
var fallbackDetectors = []*regexp.Regexp{
	regexp.MustCompile(`(?is)ALTER\s+TABLE\s+\S+\s+ADD\s+CONSTRAINT\s+\S+\s+PRIMARY\s+KEY\s+USING\s+INDEX\s+\S+`),
	regexp.MustCompile(`(?is)ALTER\s+TABLE\s+\S+\s+ADD\s+CONSTRAINT\s+\S+\s+UNIQUE\s+USING\s+INDEX\s+\S+`),
	regexp.MustCompile(`(?is)DROP\s+INDEX\s+CONCURRENTLY\s+(IF\s+EXISTS\s+)?\S+`),
}

// ContainsUnsupportedSyntax reports whether sql matches one of the known
// hard-to-parse DDL shapes. Callers use it only after a parse failure.
func ContainsUnsupportedSyntax(sql string) bool {
	for _, detector := range fallbackDetectors {
		if detector.MatchString(sql) {
			return true
		}
	}
	return false
}
