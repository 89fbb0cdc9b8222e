package checks

import (
	"fmt"
	"regexp"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"pg-guard/internal/model"
)

// AddNotNullCheck detects ALTER COLUMN ... SET NOT NULL, which scans the
// whole table under an ACCESS EXCLUSIVE lock.
type AddNotNullCheck struct{}

func (c *AddNotNullCheck) Name() string { return "add_not_null" }

func (c *AddNotNullCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	table, cmds := alterTableCmds(stmt)

	var violations []model.Violation
	for _, cmd := range cmds {
		if cmd.Subtype != pg_query.AlterTableType_AT_SetNotNull {
			continue
		}

		violations = append(violations, model.NewViolation(
			"ADD NOT NULL constraint",
			fmt.Sprintf("Adding NOT NULL constraint to column '%s' on table '%s' requires a full table scan to verify "+
				"all values are non-null, acquiring an ACCESS EXCLUSIVE lock and blocking all operations. "+
				"Duration depends on table size.",
				cmd.Name, table),
			fmt.Sprintf(`For safer constraint addition on large tables:

1. Add a CHECK constraint without validating existing rows:
   ALTER TABLE %[1]s ADD CONSTRAINT %[2]s_not_null CHECK (%[2]s IS NOT NULL) NOT VALID;

2. Validate the constraint separately (uses SHARE UPDATE EXCLUSIVE lock):
   ALTER TABLE %[1]s VALIDATE CONSTRAINT %[2]s_not_null;

3. Add the NOT NULL constraint (instant if CHECK constraint exists):
   ALTER TABLE %[1]s ALTER COLUMN %[2]s SET NOT NULL;

4. Optionally drop the redundant CHECK constraint:
   ALTER TABLE %[1]s DROP CONSTRAINT %[2]s_not_null;

Note: The VALIDATE step allows concurrent reads and writes, only blocking other schema changes. On PostgreSQL 12+, NOT NULL constraints are more efficient, but the CHECK approach still provides better control over large migrations.`,
				table, cmd.Name),
		))
	}
	return violations
}

// AddPrimaryKeyCheck detects ADD PRIMARY KEY via ALTER TABLE on existing
// tables. The USING INDEX form is the safe path and is not flagged.
type AddPrimaryKeyCheck struct{}

func (c *AddPrimaryKeyCheck) Name() string { return "add_primary_key" }

func (c *AddPrimaryKeyCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	table, cmds := alterTableCmds(stmt)

	var violations []model.Violation
	for _, cmd := range cmds {
		if cmd.Subtype != pg_query.AlterTableType_AT_AddConstraint {
			continue
		}
		con := constraintDef(cmd.Def)
		if con == nil || con.Contype != pg_query.ConstrType_CONSTR_PRIMARY {
			continue
		}
		if con.Indexname != "" {
			// ADD CONSTRAINT ... PRIMARY KEY USING INDEX attaches an
			// already-built index, which is the recommended fix.
			continue
		}

		constraintName := con.Conname
		if constraintName == "" {
			constraintName = table + "_pkey"
		}
		cols := strings.Join(nodeStrings(con.Keys), ", ")

		violations = append(violations, model.NewViolation(
			"ADD PRIMARY KEY",
			fmt.Sprintf("Adding PRIMARY KEY constraint '%s' on table '%s' (%s) via ALTER TABLE acquires an ACCESS EXCLUSIVE lock, "+
				"blocking all reads and writes. This also implicitly creates a unique index (blocking operation) and validates all rows for uniqueness.",
				constraintName, table, cols),
			fmt.Sprintf(`Use CREATE UNIQUE INDEX CONCURRENTLY first, then add the constraint:

1. Create the unique index concurrently (no blocking):
   CREATE UNIQUE INDEX CONCURRENTLY %[1]s_pkey ON %[1]s (%[2]s);

2. Add PRIMARY KEY constraint using the existing index (fast, minimal blocking):
   ALTER TABLE %[1]s ADD CONSTRAINT %[3]s PRIMARY KEY USING INDEX %[1]s_pkey;

Benefits:
- Table remains readable and writable during index creation
- No blocking of SELECT, INSERT, UPDATE, or DELETE operations
- Index creation can be canceled if needed
- Safe for production deployments on large tables

Considerations:
- Requires PostgreSQL 11+ for PRIMARY KEY USING INDEX
- Cannot run CONCURRENTLY inside a transaction block
- Takes longer than non-concurrent creation
- May fail if duplicate or NULL values exist (leaves behind invalid index that should be dropped)

Note: Ensure all columns in the primary key have NOT NULL constraints before creating the index.`,
				table, cols, constraintName),
		))
	}
	return violations
}

// AddUniqueConstraintCheck detects ADD UNIQUE constraints via ALTER TABLE.
// Like the primary key check, the USING INDEX form is not flagged.
type AddUniqueConstraintCheck struct{}

func (c *AddUniqueConstraintCheck) Name() string { return "add_unique_constraint" }

func (c *AddUniqueConstraintCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	table, cmds := alterTableCmds(stmt)

	var violations []model.Violation
	for _, cmd := range cmds {
		if cmd.Subtype != pg_query.AlterTableType_AT_AddConstraint {
			continue
		}
		con := constraintDef(cmd.Def)
		if con == nil || con.Contype != pg_query.ConstrType_CONSTR_UNIQUE {
			continue
		}
		if con.Indexname != "" {
			continue
		}

		constraintName := con.Conname
		if constraintName == "" {
			constraintName = "<unnamed>"
		}
		cols := strings.Join(nodeStrings(con.Keys), ", ")

		indexName := con.Conname
		if indexName == "" {
			indexName = table + "_unique_idx"
		}
		suggestedConstraint := con.Conname
		if suggestedConstraint == "" {
			suggestedConstraint = table + "_unique_constraint"
		}

		violations = append(violations, model.NewViolation(
			"ADD UNIQUE constraint",
			fmt.Sprintf("Adding UNIQUE constraint '%s' on table '%s' (%s) via ALTER TABLE acquires an ACCESS EXCLUSIVE lock, "+
				"blocking all reads and writes during index creation. Duration depends on table size.",
				constraintName, table, cols),
			fmt.Sprintf(`Use CREATE UNIQUE INDEX CONCURRENTLY instead:

1. Create the unique index concurrently:
   CREATE UNIQUE INDEX CONCURRENTLY %[1]s ON %[2]s (%[3]s);

2. (Optional) Add constraint using the existing index:
   ALTER TABLE %[2]s ADD CONSTRAINT %[4]s UNIQUE USING INDEX %[1]s;

Benefits:
- Table remains readable and writable during index creation
- No blocking of SELECT, INSERT, UPDATE, or DELETE operations
- Safe for production deployments on large tables

Considerations:
- Cannot run inside a transaction block
- Takes longer than non-concurrent creation
- May fail if duplicate values exist (leaves behind invalid index that should be dropped)`,
				indexName, table, cols, suggestedConstraint),
		))
	}
	return violations
}

// UnnamedConstraintCheck detects UNIQUE, FOREIGN KEY and CHECK constraints
// added without an explicit name, which get unpredictable generated names.
type UnnamedConstraintCheck struct{}

func (c *UnnamedConstraintCheck) Name() string { return "unnamed_constraint" }

func (c *UnnamedConstraintCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	table, cmds := alterTableCmds(stmt)

	var violations []model.Violation
	for _, cmd := range cmds {
		if cmd.Subtype != pg_query.AlterTableType_AT_AddConstraint {
			continue
		}
		con := constraintDef(cmd.Def)
		if con == nil || con.Conname != "" {
			continue
		}

		var constraintType, columnsDesc, suggestedName string
		switch con.Contype {
		case pg_query.ConstrType_CONSTR_UNIQUE:
			constraintType = "UNIQUE"
			columnsDesc = "(" + strings.Join(nodeStrings(con.Keys), ", ") + ")"
			suggestedName = "column_key"
		case pg_query.ConstrType_CONSTR_FOREIGN:
			constraintType = "FOREIGN KEY"
			columnsDesc = fmt.Sprintf("(%s) REFERENCES %s(%s)",
				strings.Join(nodeStrings(con.FkAttrs), ", "),
				relationName(con.Pktable),
				strings.Join(nodeStrings(con.PkAttrs), ", "))
			suggestedName = "column_fkey"
		case pg_query.ConstrType_CONSTR_CHECK:
			constraintType = "CHECK"
			columnsDesc = "(<expression>)"
			suggestedName = "column_check"
		default:
			continue
		}

		violations = append(violations, model.NewViolation(
			"Unnamed constraint",
			fmt.Sprintf("Adding unnamed %s constraint on table '%s' will receive an auto-generated name from PostgreSQL. "+
				"This makes future migrations difficult, as the generated name varies between databases and requires querying "+
				"the database to find the constraint name before modifying or dropping it.",
				constraintType, table),
			fmt.Sprintf(`Always name constraints explicitly using the CONSTRAINT keyword:

Instead of:
   ALTER TABLE %[1]s ADD %[2]s %[3]s;

Use:
   ALTER TABLE %[1]s ADD CONSTRAINT %[1]s_%[4]s %[2]s %[3]s;

Named constraints make future migrations predictable and maintainable:
   -- Easy to reference in later migrations
   ALTER TABLE %[1]s DROP CONSTRAINT %[1]s_%[4]s;

Note: Choose descriptive names that indicate the table, columns, and constraint type.
Common patterns:
  - UNIQUE: %[1]s_<column>_key or %[1]s_<column1>_<column2>_key
  - FOREIGN KEY: %[1]s_<column>_fkey
  - CHECK: %[1]s_<column>_check or %[1]s_<description>_check`,
				table, constraintType, columnsDesc, suggestedName),
		))
	}
	return violations
}

// Common PostgreSQL primary key naming conventions: "_pkey" and "_pk"
// suffixes, "pk_" prefix, and "primary_key" variants.
var primaryKeyPattern = regexp.MustCompile(`(?i)((_pkey|_pk)$|^pk_|_primary_key|primarykey)`)

// DropPrimaryKeyCheck detects DROP CONSTRAINT targeting what looks like a
// primary key. Detection is heuristic, based on the constraint name, since
// the statement alone does not reveal the constraint type. Severity is
// configurable to account for the false positive risk.
type DropPrimaryKeyCheck struct {
	Severity model.Severity
}

func (c *DropPrimaryKeyCheck) Name() string { return "drop_primary_key" }

func (c *DropPrimaryKeyCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	table, cmds := alterTableCmds(stmt)

	var violations []model.Violation
	for _, cmd := range cmds {
		if cmd.Subtype != pg_query.AlterTableType_AT_DropConstraint {
			continue
		}
		if !primaryKeyPattern.MatchString(cmd.Name) {
			continue
		}

		v := model.NewViolation(
			"DROP PRIMARY KEY",
			fmt.Sprintf("Dropping primary key constraint '%s' from table '%s' requires an ACCESS EXCLUSIVE lock, blocking all operations. "+
				"More critically, this breaks foreign key relationships in other tables and removes the uniqueness constraint.",
				cmd.Name, table),
			fmt.Sprintf(`Consider the following before dropping a primary key:

1. Identify all foreign key dependencies:
   SELECT
     tc.table_name, kcu.column_name, rc.constraint_name
   FROM information_schema.table_constraints tc
   JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name
   JOIN information_schema.referential_constraints rc ON tc.constraint_name = rc.unique_constraint_name
   WHERE tc.table_name = '%[1]s' AND tc.constraint_type = 'PRIMARY KEY';

2. If you must change the primary key:
   - Create the new primary key constraint FIRST
   - Update all foreign keys to reference the new key
   - Then drop the old primary key

3. If migrating to a different key strategy:
   - Consider using a transition period with both keys
   - Update application code gradually
   - Drop the old key only after full migration

Note: This check uses naming pattern detection (e.g., '%[2]s' matches '*_pkey' pattern) and may not catch all cases.
If this is a false positive, use a safety-assured block.`,
				table, cmd.Name),
		)
		if c.Severity != "" {
			v.Severity = c.Severity
		}
		violations = append(violations, v)
	}
	return violations
}
