package checks

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"pg-guard/internal/model"
)

// Policy carries the configurable knobs that individual checks honor.
type Policy struct {
	// DropPrimaryKeySeverity downgrades the heuristic drop_primary_key
	// check when set to WARNING. Empty means the check's default.
	DropPrimaryKeySeverity model.Severity
}

// Definition describes one entry in the check catalog.
type Definition struct {
	Name        string
	Operation   string
	Description string
	build       func(p Policy) model.Check
}

// The catalog is a closed, compile-time table. Checks are listed in name
// order and dispatched in this order.
var definitions = []Definition{
	{
		Name:        "add_column_with_default",
		Operation:   "ADD COLUMN with DEFAULT",
		Description: "ADD COLUMN with a DEFAULT rewrites the table on PostgreSQL < 11",
		build:       func(Policy) model.Check { return &AddColumnDefaultCheck{} },
	},
	{
		Name:        "add_index_without_concurrently",
		Operation:   "ADD INDEX without CONCURRENTLY",
		Description: "CREATE INDEX without CONCURRENTLY blocks writes during the build",
		build:       func(Policy) model.Check { return &AddIndexCheck{} },
	},
	{
		Name:        "add_json_column",
		Operation:   "ADD COLUMN with JSON type",
		Description: "The json type has no equality operator; use jsonb",
		build:       func(Policy) model.Check { return &AddJSONColumnCheck{} },
	},
	{
		Name:        "add_not_null",
		Operation:   "ADD NOT NULL constraint",
		Description: "SET NOT NULL scans the whole table under an exclusive lock",
		build:       func(Policy) model.Check { return &AddNotNullCheck{} },
	},
	{
		Name:        "add_primary_key",
		Operation:   "ADD PRIMARY KEY",
		Description: "ADD PRIMARY KEY via ALTER TABLE blocks reads and writes",
		build:       func(Policy) model.Check { return &AddPrimaryKeyCheck{} },
	},
	{
		Name:        "add_serial_column",
		Operation:   "ADD COLUMN with SERIAL",
		Description: "Adding a SERIAL column forces a full table rewrite",
		build:       func(Policy) model.Check { return &AddSerialColumnCheck{} },
	},
	{
		Name:        "add_unique_constraint",
		Operation:   "ADD UNIQUE constraint",
		Description: "ADD UNIQUE via ALTER TABLE blocks reads and writes during index creation",
		build:       func(Policy) model.Check { return &AddUniqueConstraintCheck{} },
	},
	{
		Name:        "alter_column_type",
		Operation:   "ALTER COLUMN TYPE",
		Description: "Changing a column type usually rewrites the table",
		build:       func(Policy) model.Check { return &AlterColumnTypeCheck{} },
	},
	{
		Name:        "create_extension",
		Operation:   "CREATE EXTENSION",
		Description: "Extensions need superuser privileges and belong to provisioning",
		build:       func(Policy) model.Check { return &CreateExtensionCheck{} },
	},
	{
		Name:        "drop_column",
		Operation:   "DROP COLUMN",
		Description: "DROP COLUMN locks the table and typically rewrites it",
		build:       func(Policy) model.Check { return &DropColumnCheck{} },
	},
	{
		Name:        "drop_index_without_concurrently",
		Operation:   "DROP INDEX without CONCURRENTLY",
		Description: "DROP INDEX without CONCURRENTLY blocks all access to the table",
		build:       func(Policy) model.Check { return &DropIndexCheck{} },
	},
	{
		Name:        "drop_primary_key",
		Operation:   "DROP PRIMARY KEY",
		Description: "Dropping a primary key breaks foreign keys and uniqueness (name heuristic)",
		build: func(p Policy) model.Check {
			return &DropPrimaryKeyCheck{Severity: p.DropPrimaryKeySeverity}
		},
	},
	{
		Name:        "rename_column",
		Operation:   "RENAME COLUMN",
		Description: "Renaming a column breaks running application instances",
		build:       func(Policy) model.Check { return &RenameColumnCheck{} },
	},
	{
		Name:        "rename_table",
		Operation:   "RENAME TABLE",
		Description: "Renaming a table breaks running application instances",
		build:       func(Policy) model.Check { return &RenameTableCheck{} },
	},
	{
		Name:        "short_integer_primary_key",
		Operation:   "Short integer primary key",
		Description: "SMALLINT and INTEGER primary keys risk ID exhaustion",
		build:       func(Policy) model.Check { return &ShortIntegerPrimaryKeyCheck{} },
	},
	{
		Name:        "truncate_table",
		Operation:   "TRUNCATE TABLE",
		Description: "TRUNCATE blocks all access and cannot be batched",
		build:       func(Policy) model.Check { return &TruncateTableCheck{} },
	},
	{
		Name:        "unnamed_constraint",
		Operation:   "Unnamed constraint",
		Description: "Unnamed constraints get unpredictable auto-generated names",
		build:       func(Policy) model.Check { return &UnnamedConstraintCheck{} },
	},
	{
		Name:        "wide_index",
		Operation:   "Wide index",
		Description: "Indexes with more than 3 columns are rarely effective",
		build:       func(Policy) model.Check { return &WideIndexCheck{} },
	},
}

// Definitions returns the full check catalog in registration order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Names returns every registered check name.
func Names() []string {
	names := make([]string, len(definitions))
	for i, def := range definitions {
		names[i] = def.Name
	}
	return names
}

// IsValidName reports whether name is a registered check.
func IsValidName(name string) bool {
	for _, def := range definitions {
		if def.Name == name {
			return true
		}
	}
	return false
}

// Registry holds the enabled checks and dispatches statements to them.
type Registry struct {
	checks []model.Check
}

// NewRegistry builds a registry containing every catalog check not named in
// disabled. Unknown names in disabled are ignored here; the config layer
// validates them before they reach this point.
func NewRegistry(disabled []string, policy Policy) *Registry {
	off := make(map[string]struct{}, len(disabled))
	for _, name := range disabled {
		off[name] = struct{}{}
	}

	r := &Registry{}
	for _, def := range definitions {
		if _, skip := off[def.Name]; skip {
			continue
		}
		r.checks = append(r.checks, def.build(policy))
	}
	return r
}

// Len reports how many checks are enabled.
func (r *Registry) Len() int { return len(r.checks) }

// CheckStatement runs every enabled check against a single statement.
func (r *Registry) CheckStatement(stmt *pg_query.RawStmt) []model.Violation {
	var violations []model.Violation
	for _, check := range r.checks {
		violations = append(violations, check.Check(stmt)...)
	}
	return violations
}

// CheckStatements dispatches each statement with its correlated source line.
// Statements whose line falls inside a suppression block are skipped
// entirely; each resulting violation is stamped with the statement's line.
func (r *Registry) CheckStatements(stmts []*pg_query.RawStmt, lines []int, ignored map[int]struct{}) []model.Violation {
	var violations []model.Violation
	for i, stmt := range stmts {
		line := 1
		if i < len(lines) {
			line = lines[i]
		}
		if _, skip := ignored[line]; skip {
			continue
		}
		for _, v := range r.CheckStatement(stmt) {
			v.LineNumber = line
			violations = append(violations, v)
		}
	}
	return violations
}
