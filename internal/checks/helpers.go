package checks

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// relationName renders a possibly schema-qualified table name.
func relationName(rv *pg_query.RangeVar) string {
	if rv == nil {
		return ""
	}
	if rv.Schemaname != "" {
		return rv.Schemaname + "." + rv.Relname
	}
	return rv.Relname
}

// typeName returns the trailing element of a parsed type name in lower case.
// The grammar qualifies builtin types, so "INTEGER" comes back as
// "pg_catalog.int4" and this returns "int4".
func typeName(tn *pg_query.TypeName) string {
	if tn == nil || len(tn.Names) == 0 {
		return ""
	}
	last := tn.Names[len(tn.Names)-1]
	return strings.ToLower(last.GetString_().GetSval())
}

// displayType maps internal catalog type names back to the spelling users
// write in migrations.
func displayType(name string) string {
	switch name {
	case "int2":
		return "SMALLINT"
	case "int4":
		return "INTEGER"
	case "int8":
		return "BIGINT"
	case "bool":
		return "BOOLEAN"
	case "bpchar":
		return "CHAR"
	case "timestamptz":
		return "TIMESTAMPTZ"
	default:
		return strings.ToUpper(name)
	}
}

// alterTableCmds unwraps an ALTER TABLE statement into its target table name
// and command list. Returns empty values for any other statement kind.
func alterTableCmds(stmt *pg_query.RawStmt) (string, []*pg_query.AlterTableCmd) {
	if stmt == nil || stmt.Stmt == nil {
		return "", nil
	}
	node, ok := stmt.Stmt.Node.(*pg_query.Node_AlterTableStmt)
	if !ok {
		return "", nil
	}
	at := node.AlterTableStmt
	cmds := make([]*pg_query.AlterTableCmd, 0, len(at.Cmds))
	for _, c := range at.Cmds {
		if cmd, ok := c.Node.(*pg_query.Node_AlterTableCmd); ok {
			cmds = append(cmds, cmd.AlterTableCmd)
		}
	}
	return relationName(at.Relation), cmds
}

func indexStmt(stmt *pg_query.RawStmt) *pg_query.IndexStmt {
	if stmt == nil || stmt.Stmt == nil {
		return nil
	}
	if node, ok := stmt.Stmt.Node.(*pg_query.Node_IndexStmt); ok {
		return node.IndexStmt
	}
	return nil
}

func columnDef(node *pg_query.Node) *pg_query.ColumnDef {
	if node == nil {
		return nil
	}
	if cd, ok := node.Node.(*pg_query.Node_ColumnDef); ok {
		return cd.ColumnDef
	}
	return nil
}

func constraintDef(node *pg_query.Node) *pg_query.Constraint {
	if node == nil {
		return nil
	}
	if con, ok := node.Node.(*pg_query.Node_Constraint); ok {
		return con.Constraint
	}
	return nil
}

// hasConstraint reports whether a column definition carries an inline
// constraint of the given kind.
func hasConstraint(col *pg_query.ColumnDef, want pg_query.ConstrType) bool {
	for _, c := range col.Constraints {
		if con := constraintDef(c); con != nil && con.Contype == want {
			return true
		}
	}
	return false
}

// nodeStrings extracts the string values from a list of String nodes, as used
// for constraint key columns and foreign key attribute lists.
func nodeStrings(nodes []*pg_query.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if s := n.GetString_(); s != nil {
			out = append(out, s.GetSval())
		}
	}
	return out
}

// qualifiedName renders a DROP target, which the grammar represents as a list
// of name parts.
func qualifiedName(node *pg_query.Node) string {
	if node == nil {
		return ""
	}
	if list, ok := node.Node.(*pg_query.Node_List); ok {
		return strings.Join(nodeStrings(list.List.Items), ".")
	}
	if s := node.GetString_(); s != nil {
		return s.GetSval()
	}
	return ""
}
