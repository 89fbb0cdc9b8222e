package checks

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"pg-guard/internal/model"
)

// CreateExtensionCheck detects CREATE EXTENSION in migrations. Extensions
// need superuser privileges and belong to infrastructure provisioning.
type CreateExtensionCheck struct{}

func (c *CreateExtensionCheck) Name() string { return "create_extension" }

func (c *CreateExtensionCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	if stmt == nil || stmt.Stmt == nil {
		return nil
	}
	node, ok := stmt.Stmt.Node.(*pg_query.Node_CreateExtensionStmt)
	if !ok {
		return nil
	}
	ext := node.CreateExtensionStmt

	ifNotExists := ""
	if ext.IfNotExists {
		ifNotExists = "IF NOT EXISTS "
	}

	return []model.Violation{model.NewViolation(
		"CREATE EXTENSION",
		fmt.Sprintf("Creating extension '%s' in a migration requires superuser privileges, which application "+
			"database users typically lack in production. Extensions are infrastructure concerns that should be "+
			"managed outside application migrations.",
			ext.Extname),
		fmt.Sprintf(`Install the extension outside of migrations:

1. For local development, add to your database setup scripts:
   CREATE EXTENSION %[1]s%[2]s;

2. For production, use infrastructure automation (Ansible, Terraform, etc.):
   - Include extension installation in database provisioning
   - Grant appropriate privileges to superuser/admin role
   - Run before deploying application migrations

3. Document required extensions in your project README

Note: Common extensions like pg_trgm, uuid-ossp, hstore, and postgis should be
installed by your DBA or infrastructure team before application deployment.`,
			ifNotExists, ext.Extname),
	)}
}

// TruncateTableCheck detects TRUNCATE, which cannot be batched or throttled
// and blocks all access to the table.
type TruncateTableCheck struct{}

func (c *TruncateTableCheck) Name() string { return "truncate_table" }

func (c *TruncateTableCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	if stmt == nil || stmt.Stmt == nil {
		return nil
	}
	node, ok := stmt.Stmt.Node.(*pg_query.Node_TruncateStmt)
	if !ok {
		return nil
	}

	var violations []model.Violation
	for _, rel := range node.TruncateStmt.Relations {
		rv, ok := rel.Node.(*pg_query.Node_RangeVar)
		if !ok {
			continue
		}
		table := relationName(rv.RangeVar)

		violations = append(violations, model.NewViolation(
			"TRUNCATE TABLE",
			fmt.Sprintf("TRUNCATE TABLE on '%s' acquires an ACCESS EXCLUSIVE lock, blocking all operations (reads and writes). "+
				"Unlike DELETE, TRUNCATE cannot be batched or throttled, making it unsafe for large tables in production.",
				table),
			fmt.Sprintf(`Use DELETE with batching instead:

1. Delete rows in small batches to allow concurrent access:
   DELETE FROM %[1]s WHERE id IN (
     SELECT id FROM %[1]s LIMIT 1000
   );

2. Repeat the batched DELETE until all rows are removed.

3. (Optional) If you need to reset sequences:
   ALTER SEQUENCE %[1]s_id_seq RESTART WITH 1;

4. (Optional) Run VACUUM to reclaim space:
   VACUUM %[1]s;

Note: If you absolutely must use TRUNCATE (e.g., in a test environment), use a safety-assured block.`,
				table),
		))
	}
	return violations
}

// ShortIntegerPrimaryKeyCheck detects SMALLINT and INTEGER primary key
// columns, which risk ID exhaustion. Covers CREATE TABLE (inline and
// table-level constraints) and ALTER TABLE when the column type is visible
// in the same statement.
type ShortIntegerPrimaryKeyCheck struct{}

func (c *ShortIntegerPrimaryKeyCheck) Name() string { return "short_integer_primary_key" }

func (c *ShortIntegerPrimaryKeyCheck) Check(stmt *pg_query.RawStmt) []model.Violation {
	if stmt == nil || stmt.Stmt == nil {
		return nil
	}
	switch node := stmt.Stmt.Node.(type) {
	case *pg_query.Node_CreateStmt:
		return c.checkCreateTable(node.CreateStmt)
	case *pg_query.Node_AlterTableStmt:
		return c.checkAlterTable(stmt)
	}
	return nil
}

func (c *ShortIntegerPrimaryKeyCheck) checkCreateTable(create *pg_query.CreateStmt) []model.Violation {
	table := relationName(create.Relation)

	columns := make(map[string]*pg_query.ColumnDef)
	var violations []model.Violation
	for _, elt := range create.TableElts {
		if col := columnDef(elt); col != nil {
			columns[col.Colname] = col
			// Inline form: id INT PRIMARY KEY
			if hasConstraint(col, pg_query.ConstrType_CONSTR_PRIMARY) {
				if typeDisplay, limit, ok := shortIntegerType(typeName(col.TypeName)); ok {
					violations = append(violations, shortIntegerViolation(table, col.Colname, typeDisplay, limit))
				}
			}
		}
	}

	// Table-level form: PRIMARY KEY (id) or PRIMARY KEY (a, b)
	for _, elt := range create.TableElts {
		con := constraintDef(elt)
		if con == nil || con.Contype != pg_query.ConstrType_CONSTR_PRIMARY {
			continue
		}
		for _, key := range nodeStrings(con.Keys) {
			col, ok := columns[key]
			if !ok {
				continue
			}
			if typeDisplay, limit, ok := shortIntegerType(typeName(col.TypeName)); ok {
				violations = append(violations, shortIntegerViolation(table, key, typeDisplay, limit))
			}
		}
	}
	return violations
}

func (c *ShortIntegerPrimaryKeyCheck) checkAlterTable(stmt *pg_query.RawStmt) []model.Violation {
	table, cmds := alterTableCmds(stmt)

	// Columns added in this statement; a constraint over a pre-existing
	// column cannot be typed without tracking table state, so it is skipped.
	added := make(map[string]*pg_query.ColumnDef)
	var violations []model.Violation
	for _, cmd := range cmds {
		if cmd.Subtype != pg_query.AlterTableType_AT_AddColumn {
			continue
		}
		col := columnDef(cmd.Def)
		if col == nil {
			continue
		}
		added[col.Colname] = col
		if hasConstraint(col, pg_query.ConstrType_CONSTR_PRIMARY) {
			if typeDisplay, limit, ok := shortIntegerType(typeName(col.TypeName)); ok {
				violations = append(violations, shortIntegerViolation(table, col.Colname, typeDisplay, limit))
			}
		}
	}

	for _, cmd := range cmds {
		if cmd.Subtype != pg_query.AlterTableType_AT_AddConstraint {
			continue
		}
		con := constraintDef(cmd.Def)
		if con == nil || con.Contype != pg_query.ConstrType_CONSTR_PRIMARY {
			continue
		}
		for _, key := range nodeStrings(con.Keys) {
			col, ok := added[key]
			if !ok {
				continue
			}
			if typeDisplay, limit, ok := shortIntegerType(typeName(col.TypeName)); ok {
				violations = append(violations, shortIntegerViolation(table, key, typeDisplay, limit))
			}
		}
	}
	return violations
}

// shortIntegerType maps a catalog type name to its display name and
// exhaustion limit if it is one of the risky integer widths.
func shortIntegerType(name string) (string, string, bool) {
	switch name {
	case "int2":
		return "SMALLINT", "~32,767", true
	case "int4":
		return "INTEGER", "~2.1 billion", true
	}
	return "", "", false
}

func shortIntegerViolation(table, column, typeDisplay, limit string) model.Violation {
	return model.NewViolation(
		"Short integer primary key",
		fmt.Sprintf("Using %[1]s for primary key column '%[2]s' on table '%[3]s' risks ID exhaustion at %[4]s records. "+
			"%[1]s can be quickly exhausted in production applications. "+
			"Changing the type later requires an ALTER COLUMN TYPE operation that triggers a full table rewrite with an "+
			"ACCESS EXCLUSIVE lock, blocking all operations. Duration depends on table size.",
			typeDisplay, column, table, limit),
		fmt.Sprintf(`Use BIGINT for primary keys to avoid ID exhaustion:

Instead of:
   CREATE TABLE %[1]s (%[2]s %[3]s PRIMARY KEY);

Use:
   CREATE TABLE %[1]s (%[2]s BIGINT PRIMARY KEY);

BIGINT provides 8 bytes (range: -9.2 quintillion to 9.2 quintillion), which is effectively unlimited
for auto-incrementing IDs. The minimal storage overhead (4 extra bytes per row) is negligible.

If using SERIAL/SMALLSERIAL, use BIGSERIAL instead:
   %[2]s BIGSERIAL PRIMARY KEY

Note: If this is an intentionally small table (e.g., lookup table with <100 entries),
use 'safety-assured' to bypass this check.`,
			table, column, typeDisplay),
	)
}
