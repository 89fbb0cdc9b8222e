package checks

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"pg-guard/internal/model"
)

// AddColumnDefaultCheck detects ADD COLUMN with a DEFAULT value, which
// rewrites the whole table on PostgreSQL < 11.
type AddColumnDefaultCheck struct{}

func (c *AddColumnDefaultCheck) Name() string { return "add_column_with_default" }

func (c *AddColumnDefaultCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	table, cmds := alterTableCmds(stmt)

	var violations []model.Violation
	for _, cmd := range cmds {
		if cmd.Subtype != pg_query.AlterTableType_AT_AddColumn {
			continue
		}
		col := columnDef(cmd.Def)
		if col == nil || !hasConstraint(col, pg_query.ConstrType_CONSTR_DEFAULT) {
			continue
		}

		violations = append(violations, model.NewViolation(
			"ADD COLUMN with DEFAULT",
			fmt.Sprintf("Adding column '%s' with DEFAULT on table '%s' requires a full table rewrite on PostgreSQL < 11, "+
				"which acquires an ACCESS EXCLUSIVE lock and blocks all operations. Duration depends on table size.",
				col.Colname, table),
			fmt.Sprintf(`1. Add the column without a default:
   ALTER TABLE %[1]s ADD COLUMN %[2]s %[3]s;

2. Backfill data in batches (outside migration):
   UPDATE %[1]s SET %[2]s = <value> WHERE %[2]s IS NULL;

3. Add default for new rows only:
   ALTER TABLE %[1]s ALTER COLUMN %[2]s SET DEFAULT <value>;

Note: For PostgreSQL 11+, this is safe if the default is a constant value.`,
				table, col.Colname, displayType(typeName(col.TypeName))),
		))
	}
	return violations
}

// AddSerialColumnCheck detects ADD COLUMN with SERIAL, SMALLSERIAL or
// BIGSERIAL types, which force a table rewrite to populate sequence values.
type AddSerialColumnCheck struct{}

func (c *AddSerialColumnCheck) Name() string { return "add_serial_column" }

func (c *AddSerialColumnCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	table, cmds := alterTableCmds(stmt)

	var violations []model.Violation
	for _, cmd := range cmds {
		if cmd.Subtype != pg_query.AlterTableType_AT_AddColumn {
			continue
		}
		col := columnDef(cmd.Def)
		if col == nil {
			continue
		}
		switch typeName(col.TypeName) {
		case "serial", "smallserial", "bigserial":
		default:
			continue
		}

		violations = append(violations, model.NewViolation(
			"ADD COLUMN with SERIAL",
			fmt.Sprintf("Adding column '%s' with SERIAL type on table '%s' requires a full table rewrite to populate sequence values for existing rows, "+
				"which acquires an ACCESS EXCLUSIVE lock and blocks all operations. Duration depends on table size and number of indexes.",
				col.Colname, table),
			fmt.Sprintf(`1. Create a sequence:
   CREATE SEQUENCE %[1]s_%[2]s_seq;

2. Add the column WITHOUT default (fast, no rewrite):
   ALTER TABLE %[1]s ADD COLUMN %[2]s INTEGER;

3. Backfill existing rows in batches (outside migration):
   UPDATE %[1]s SET %[2]s = nextval('%[1]s_%[2]s_seq') WHERE %[2]s IS NULL;

4. Set default for future inserts only:
   ALTER TABLE %[1]s ALTER COLUMN %[2]s SET DEFAULT nextval('%[1]s_%[2]s_seq');

5. Set NOT NULL if needed (PostgreSQL 11+: safe if all values present):
   ALTER TABLE %[1]s ALTER COLUMN %[2]s SET NOT NULL;

6. Set sequence ownership:
   ALTER SEQUENCE %[1]s_%[2]s_seq OWNED BY %[1]s.%[2]s;`,
				table, col.Colname),
		))
	}
	return violations
}

// AddJSONColumnCheck detects ADD COLUMN with the json type, which lacks
// equality operators and breaks DISTINCT, GROUP BY and UNION at runtime.
type AddJSONColumnCheck struct{}

func (c *AddJSONColumnCheck) Name() string { return "add_json_column" }

func (c *AddJSONColumnCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	table, cmds := alterTableCmds(stmt)

	var violations []model.Violation
	for _, cmd := range cmds {
		if cmd.Subtype != pg_query.AlterTableType_AT_AddColumn {
			continue
		}
		col := columnDef(cmd.Def)
		if col == nil || typeName(col.TypeName) != "json" {
			continue
		}

		violations = append(violations, model.NewViolation(
			"ADD COLUMN with JSON type",
			fmt.Sprintf("Adding column '%s' with JSON type on table '%s' can break existing SELECT DISTINCT queries. "+
				"The JSON type has no equality operator, causing runtime errors for DISTINCT, GROUP BY, and UNION operations.",
				col.Colname, table),
			fmt.Sprintf(`Use JSONB instead of JSON:

   ALTER TABLE %[1]s ADD COLUMN %[2]s JSONB;

Benefits of JSONB over JSON:
- Has proper equality and comparison operators (supports DISTINCT, GROUP BY, UNION)
- Supports indexing (GIN indexes for efficient queries)
- Faster to process (binary format, no reparsing)
- Generally better performance for most use cases

Note: The only advantage of JSON over JSONB is that it preserves exact formatting and key order,
which is rarely needed in practice.`,
				table, col.Colname),
		))
	}
	return violations
}

// AlterColumnTypeCheck detects ALTER COLUMN ... TYPE changes, which usually
// rewrite the table under an ACCESS EXCLUSIVE lock.
type AlterColumnTypeCheck struct{}

func (c *AlterColumnTypeCheck) Name() string { return "alter_column_type" }

func (c *AlterColumnTypeCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	table, cmds := alterTableCmds(stmt)

	var violations []model.Violation
	for _, cmd := range cmds {
		if cmd.Subtype != pg_query.AlterTableType_AT_AlterColumnType {
			continue
		}
		col := columnDef(cmd.Def)
		if col == nil {
			continue
		}
		newType := displayType(typeName(col.TypeName))

		// The grammar stores the USING expression in the column's raw
		// default slot for this command.
		usingNote := ""
		if col.RawDefault != nil {
			usingNote = "\n\nNote: This migration includes a USING clause, which always triggers a full table rewrite."
		}

		violations = append(violations, model.NewViolation(
			"ALTER COLUMN TYPE",
			fmt.Sprintf("Changing column '%s' type to '%s' on table '%s' typically requires an ACCESS EXCLUSIVE lock and "+
				"may trigger a full table rewrite, blocking all operations. Duration depends on table size and the specific type change.%s",
				cmd.Name, newType, table, usingNote),
			fmt.Sprintf(`For safer type changes, consider a multi-step approach:

1. Add a new column with the desired type:
   ALTER TABLE %[1]s ADD COLUMN %[2]s_new %[3]s;

2. Backfill data in batches (outside migration):
   UPDATE %[1]s SET %[2]s_new = %[2]s::%[3]s;

3. Deploy application code to use the new column.

4. Drop the old column in a later migration:
   ALTER TABLE %[1]s DROP COLUMN %[2]s;

5. Rename the new column:
   ALTER TABLE %[1]s RENAME COLUMN %[2]s_new TO %[2]s;

Note: Some type changes are safe:
- VARCHAR(n) to VARCHAR(m) where m > n (PostgreSQL 9.2+)
- VARCHAR to TEXT
- Numeric precision increases

Always test on a production-sized dataset to verify the impact.`,
				table, cmd.Name, newType),
		))
	}
	return violations
}

// DropColumnCheck detects DROP COLUMN, which locks the table and typically
// rewrites it.
type DropColumnCheck struct{}

func (c *DropColumnCheck) Name() string { return "drop_column" }

func (c *DropColumnCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	table, cmds := alterTableCmds(stmt)

	var violations []model.Violation
	for _, cmd := range cmds {
		if cmd.Subtype != pg_query.AlterTableType_AT_DropColumn {
			continue
		}
		ifExists := ""
		if cmd.MissingOk {
			ifExists = " IF EXISTS"
		}

		violations = append(violations, model.NewViolation(
			"DROP COLUMN",
			fmt.Sprintf("Dropping column '%s' from table '%s' requires an ACCESS EXCLUSIVE lock, blocking all operations. "+
				"This typically triggers a table rewrite with duration depending on table size.",
				cmd.Name, table),
			fmt.Sprintf(`1. Mark the column as unused in your application code first.

2. Deploy the application without the column references.

3. (Optional) Set column to NULL to reclaim space:
   ALTER TABLE %[1]s ALTER COLUMN %[2]s DROP NOT NULL;
   UPDATE %[1]s SET %[2]s = NULL;

4. Drop the column in a later migration after confirming it's unused:
   ALTER TABLE %[1]s DROP COLUMN %[2]s%[3]s;

Note: PostgreSQL doesn't support DROP COLUMN CONCURRENTLY. The rewrite is unavoidable but staging the removal reduces risk.`,
				table, cmd.Name, ifExists),
		))
	}
	return violations
}

// RenameColumnCheck detects RENAME COLUMN, which breaks running application
// instances still using the old name.
type RenameColumnCheck struct{}

func (c *RenameColumnCheck) Name() string { return "rename_column" }

func (c *RenameColumnCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	rename := renameStmt(stmt)
	if rename == nil || rename.RenameType != pg_query.ObjectType_OBJECT_COLUMN {
		return nil
	}
	table := relationName(rename.Relation)

	return []model.Violation{model.NewViolation(
		"RENAME COLUMN",
		fmt.Sprintf("Renaming column '%s' to '%s' in table '%s' will cause immediate errors in running application instances. "+
			"Any code referencing the old column name will fail after the rename is applied, causing downtime.",
			rename.Subname, rename.Newname, table),
		fmt.Sprintf(`1. Add a new column with the desired name (allows NULL initially):
   ALTER TABLE %[1]s ADD COLUMN %[3]s <data_type>;

2. Backfill the new column with data from the old column:
   UPDATE %[1]s SET %[3]s = %[2]s;

3. Add NOT NULL constraint if needed (after backfill):
   ALTER TABLE %[1]s ALTER COLUMN %[3]s SET NOT NULL;

4. Update your application code to reference the new column name.

5. Deploy the updated application code.

6. Drop the old column in a subsequent migration:
   ALTER TABLE %[1]s DROP COLUMN %[2]s;

This approach maintains compatibility with running instances during the transition.`,
			table, rename.Subname, rename.Newname),
	)}
}

// RenameTableCheck detects ALTER TABLE ... RENAME TO, which breaks running
// application instances and can block behind an ACCESS EXCLUSIVE lock.
type RenameTableCheck struct{}

func (c *RenameTableCheck) Name() string { return "rename_table" }

func (c *RenameTableCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	rename := renameStmt(stmt)
	if rename == nil || rename.RenameType != pg_query.ObjectType_OBJECT_TABLE {
		return nil
	}
	oldName := relationName(rename.Relation)

	return []model.Violation{model.NewViolation(
		"RENAME TABLE",
		fmt.Sprintf("Renaming table '%s' to '%s' will cause immediate errors in running application instances. "+
			"Any code referencing the old table name will fail after the rename is applied. "+
			"Additionally, this operation requires an ACCESS EXCLUSIVE lock which can block on busy tables.",
			oldName, rename.Newname),
		fmt.Sprintf(`Use a multi-step migration to safely rename the table:

1. Create the new table with the same structure:
   CREATE TABLE %[2]s (LIKE %[1]s INCLUDING ALL);

2. Update your application code to write to both tables.

3. Backfill data from the old table to the new table in batches:
   INSERT INTO %[2]s SELECT * FROM %[1]s WHERE id > last_id LIMIT 10000;

4. Update your application code to read from the new table.

5. Deploy the updated application code.

6. Update your application code to stop writing to the old table.

7. Drop the old table in a later migration:
   DROP TABLE %[1]s;

This approach avoids dangerous locks and maintains compatibility with running instances throughout the migration.`,
			oldName, rename.Newname),
	)}
}

func renameStmt(stmt *pg_query.RawStmt) *pg_query.RenameStmt {
	if stmt == nil || stmt.Stmt == nil {
		return nil
	}
	if node, ok := stmt.Stmt.Node.(*pg_query.Node_RenameStmt); ok {
		return node.RenameStmt
	}
	return nil
}
