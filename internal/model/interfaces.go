package model

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Check is a single unsafe-pattern detector operating on one parsed
// statement. Implementations must be stateless and total: a check that does
// not recognize its trigger pattern returns nil, and a check never fails the
// run.
type Check interface {
	// Name returns the stable identifier used in configuration
	// (e.g. "drop_column").
	Name() string
	// Check inspects one statement and returns any violations found.
	Check(stmt *pg_query.RawStmt) []Violation
}

// Reporter renders per-file check results.
type Reporter interface {
	Report(results []FileResult) error
}
