package checks

import (
	"sort"
	"testing"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseAll(t *testing.T, sql string) []*pg_query.RawStmt {
	t.Helper()
	result, err := pg_query.Parse(sql)
	require.NoError(t, err)
	return result.Stmts
}

func TestNamesSortedAndUnique(t *testing.T) {
	names := Names()
	require.Len(t, names, 18)
	assert.True(t, sort.StringsAreSorted(names), "catalog names are not sorted: %v", names)

	seen := make(map[string]struct{})
	for _, name := range names {
		_, dup := seen[name]
		assert.False(t, dup, "duplicate check name %q", name)
		seen[name] = struct{}{}
	}
}

func TestIsValidName(t *testing.T) {
	assert.True(t, IsValidName("add_column_with_default"))
	assert.False(t, IsValidName("no_such_check"))
}

func TestRegistryDisable(t *testing.T) {
	sql := "ALTER TABLE users ADD COLUMN admin BOOLEAN DEFAULT FALSE;"
	stmts := parseAll(t, sql)

	full := NewRegistry(nil, Policy{})
	assert.Len(t, full.CheckStatement(stmts[0]), 1)

	disabled := NewRegistry([]string{"add_column_with_default"}, Policy{})
	assert.Empty(t, disabled.CheckStatement(stmts[0]))

	// Disabling twice behaves the same as disabling once.
	twice := NewRegistry([]string{"add_column_with_default", "add_column_with_default"}, Policy{})
	assert.Empty(t, twice.CheckStatement(stmts[0]))
}

func TestRegistryAllDisabled(t *testing.T) {
	r := NewRegistry(Names(), Policy{})
	require.Zero(t, r.Len())

	stmts := parseAll(t, "TRUNCATE TABLE users;")
	assert.Empty(t, r.CheckStatement(stmts[0]))
}

func TestCheckStatementsStampsLines(t *testing.T) {
	sql := "ALTER TABLE users ADD COLUMN admin BOOLEAN DEFAULT FALSE;\nTRUNCATE TABLE users;"
	stmts := parseAll(t, sql)

	r := NewRegistry(nil, Policy{})
	violations := r.CheckStatements(stmts, []int{1, 2}, nil)
	require.Len(t, violations, 2)
	assert.Equal(t, 1, violations[0].LineNumber)
	assert.Equal(t, 2, violations[1].LineNumber)
}

func TestCheckStatementsSuppression(t *testing.T) {
	sql := "TRUNCATE TABLE a;\nTRUNCATE TABLE b;\nTRUNCATE TABLE c;"
	stmts := parseAll(t, sql)

	r := NewRegistry(nil, Policy{})

	// Only the statement on line 2 is suppressed.
	ignored := map[int]struct{}{2: {}}
	violations := r.CheckStatements(stmts, []int{1, 2, 3}, ignored)
	require.Len(t, violations, 2)
	for _, v := range violations {
		assert.NotEqual(t, 2, v.LineNumber, "suppressed statement still reported: %+v", v)
	}
}

func TestCheckStatementsOrder(t *testing.T) {
	sql := "TRUNCATE TABLE a;\nALTER TABLE users ADD COLUMN admin BOOLEAN DEFAULT FALSE;"
	stmts := parseAll(t, sql)

	r := NewRegistry(nil, Policy{})
	violations := r.CheckStatements(stmts, []int{1, 2}, nil)
	require.Len(t, violations, 2)

	// Statement order wins over check registration order.
	assert.Equal(t, "TRUNCATE TABLE", violations[0].Operation)
	assert.Equal(t, "ADD COLUMN with DEFAULT", violations[1].Operation)
}

func TestDefinitionsOperationCoverage(t *testing.T) {
	for _, def := range Definitions() {
		assert.NotEmpty(t, def.Operation, "catalog entry %q missing operation", def.Name)
		assert.NotEmpty(t, def.Description, "catalog entry %q missing description", def.Name)

		check := def.build(Policy{})
		assert.Equal(t, def.Name, check.Name())
	}
}
