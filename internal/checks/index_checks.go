package checks

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"pg-guard/internal/model"
)

// AddIndexCheck detects CREATE INDEX without CONCURRENTLY, which blocks
// writes for the duration of the index build.
type AddIndexCheck struct{}

func (c *AddIndexCheck) Name() string { return "add_index_without_concurrently" }

func (c *AddIndexCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	idx := indexStmt(stmt)
	if idx == nil || idx.Concurrent {
		return nil
	}

	table := relationName(idx.Relation)
	indexName := idx.Idxname
	if indexName == "" {
		indexName = "<unnamed>"
	}
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}

	return []model.Violation{model.NewViolation(
		"ADD INDEX without CONCURRENTLY",
		fmt.Sprintf("Creating %sindex '%s' on table '%s' without CONCURRENTLY acquires a SHARE lock, blocking writes "+
			"(INSERT, UPDATE, DELETE) for the duration of the index build. Reads are still allowed.",
			unique, indexName, table),
		fmt.Sprintf(`Use CONCURRENTLY to build the index without blocking writes:
   CREATE %[1]sINDEX CONCURRENTLY %[2]s ON %[3]s;

Note: CONCURRENTLY takes longer and uses more resources, but allows concurrent INSERT, UPDATE, and DELETE operations. The index build may fail if there are deadlocks or unique constraint violations.

Considerations:
- Cannot be run inside a transaction block
- Requires more total work and takes longer to complete
- If it fails, it leaves behind an "invalid" index that should be dropped`,
			unique, indexName, table),
	)}
}

// WideIndexCheck detects indexes with more than 3 key columns, which are
// rarely effective and slow down writes.
type WideIndexCheck struct{}

func (c *WideIndexCheck) Name() string { return "wide_index" }

func (c *WideIndexCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	idx := indexStmt(stmt)
	if idx == nil || len(idx.IndexParams) <= 3 {
		return nil
	}

	table := relationName(idx.Relation)
	indexName := idx.Idxname
	if indexName == "" {
		indexName = "<unnamed>"
	}
	columns := indexColumnNames(idx.IndexParams)
	count := len(idx.IndexParams)

	firstCol := "column1"
	if len(columns) > 0 {
		firstCol = columns[0]
	}
	secondCol := "column2"
	if len(columns) > 1 {
		secondCol = columns[1]
	}
	otherCols := ""
	if len(columns) > 1 {
		otherCols = strings.Join(columns[1:], ", ")
	}

	return []model.Violation{model.NewViolation(
		"Wide index",
		fmt.Sprintf("Index '%s' on table '%s' has %d columns (%s). "+
			"Wide indexes (4+ columns) are rarely effective because PostgreSQL can only use them efficiently "+
			"when filtering on leftmost columns in order. They also increase storage costs and slow down writes.",
			indexName, table, count, strings.Join(columns, ", ")),
		fmt.Sprintf(`Consider these alternatives:

1. Use a partial index for specific query patterns:
   CREATE INDEX %[1]s ON %[2]s(%[3]s)
   WHERE condition;

2. Create separate narrower indexes for different queries:
   CREATE INDEX idx_%[2]s_%[3]s ON %[2]s(%[3]s);
   CREATE INDEX idx_%[2]s_%[4]s ON %[2]s(%[4]s);

3. Rethink your query patterns - do you really need to filter on all %[5]d columns?

4. Use a covering index (INCLUDE clause) if you need extra columns for data:
   CREATE INDEX %[1]s ON %[2]s(%[3]s)
   INCLUDE (%[6]s);

Note: Multi-column indexes are occasionally useful (e.g., for composite foreign keys or specific query patterns). If you've verified this index is necessary, use a safety-assured block.`,
			indexName, table, firstCol, secondCol, count, otherCols),
	)}
}

// DropIndexCheck detects DROP INDEX without CONCURRENTLY, which blocks all
// access to the indexed table while the index is removed.
type DropIndexCheck struct{}

func (c *DropIndexCheck) Name() string { return "drop_index_without_concurrently" }

func (c *DropIndexCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	if stmt == nil || stmt.Stmt == nil {
		return nil
	}
	node, ok := stmt.Stmt.Node.(*pg_query.Node_DropStmt)
	if !ok {
		return nil
	}
	drop := node.DropStmt
	if drop.RemoveType != pg_query.ObjectType_OBJECT_INDEX || drop.Concurrent {
		return nil
	}

	var violations []model.Violation
	for _, obj := range drop.Objects {
		indexName := qualifiedName(obj)

		violations = append(violations, model.NewViolation(
			"DROP INDEX without CONCURRENTLY",
			fmt.Sprintf("Dropping index '%s' without CONCURRENTLY acquires an ACCESS EXCLUSIVE lock on the table, "+
				"blocking all reads and writes until the index is removed.",
				indexName),
			fmt.Sprintf(`Use CONCURRENTLY to drop the index without blocking:
   DROP INDEX CONCURRENTLY %s;

Considerations:
- Cannot be run inside a transaction block
- Waits for running queries using the index to finish instead of blocking new ones
- If it fails partway, the index is left in an invalid state and the DROP must be retried`,
				indexName),
		))
	}
	return violations
}

func indexColumnNames(params []*pg_query.Node) []string {
	names := make([]string, 0, len(params))
	for _, p := range params {
		elem, ok := p.Node.(*pg_query.Node_IndexElem)
		if !ok {
			continue
		}
		if elem.IndexElem.Name != "" {
			names = append(names, elem.IndexElem.Name)
		} else {
			names = append(names, "<expression>")
		}
	}
	return names
}
