package parser

import (
	"log/slog"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// StatementLines maps each parsed statement, in parse order, to the source
// line it starts on. Correlation is keyword-based: for each statement we scan
// forward for the first unclaimed, non-comment line that begins with the
// statement's leading keyword. Claimed lines are skipped on later scans, so
// repeated statements of the same kind resolve to strictly increasing lines.
// A statement whose keyword never appears falls back to line 1.
func StatementLines(stmts []*pg_query.RawStmt, sql string) []int {
	lines := strings.Split(sql, "\n")
	claimed := make(map[int]struct{})

	result := make([]int, len(stmts))
	for i, stmt := range stmts {
		keyword := leadingKeyword(stmt)
		line, found := findLine(lines, keyword, claimed)
		if !found && keyword != "" {
			slog.Warn("could not locate statement in source, defaulting to line 1", "keyword", keyword)
		}
		result[i] = line
	}
	return result
}

func findLine(lines []string, keyword string, claimed map[int]struct{}) (int, bool) {
	if keyword == "" {
		return 1, false
	}
	for idx, raw := range lines {
		line := idx + 1
		if _, taken := claimed[line]; taken {
			continue
		}
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(trimmed), keyword) {
			claimed[line] = struct{}{}
			return line, true
		}
	}
	return 1, false
}

// leadingKeyword returns the upper-cased first keyword of a statement, going
// by node type rather than re-rendering the SQL.
func leadingKeyword(stmt *pg_query.RawStmt) string {
	if stmt == nil || stmt.Stmt == nil {
		return ""
	}
	switch stmt.Stmt.Node.(type) {
	case *pg_query.Node_AlterTableStmt, *pg_query.Node_AlterDomainStmt,
		*pg_query.Node_AlterSeqStmt, *pg_query.Node_AlterOwnerStmt,
		*pg_query.Node_AlterObjectSchemaStmt:
		return "ALTER"
	case *pg_query.Node_RenameStmt:
		return "ALTER"
	case *pg_query.Node_CreateStmt, *pg_query.Node_IndexStmt,
		*pg_query.Node_CreateExtensionStmt, *pg_query.Node_CreateSeqStmt,
		*pg_query.Node_CreateSchemaStmt, *pg_query.Node_ViewStmt,
		*pg_query.Node_CreateFunctionStmt, *pg_query.Node_CreateTrigStmt,
		*pg_query.Node_CreateEnumStmt, *pg_query.Node_CreateDomainStmt:
		return "CREATE"
	case *pg_query.Node_DropStmt, *pg_query.Node_DropdbStmt:
		return "DROP"
	case *pg_query.Node_TruncateStmt:
		return "TRUNCATE"
	case *pg_query.Node_SelectStmt:
		return "SELECT"
	case *pg_query.Node_InsertStmt:
		return "INSERT"
	case *pg_query.Node_UpdateStmt:
		return "UPDATE"
	case *pg_query.Node_DeleteStmt:
		return "DELETE"
	case *pg_query.Node_GrantStmt:
		return "GRANT"
	case *pg_query.Node_CommentStmt:
		return "COMMENT"
	case *pg_query.Node_VacuumStmt:
		return "VACUUM"
	case *pg_query.Node_VariableSetStmt:
		return "SET"
	case *pg_query.Node_TransactionStmt:
		return "" // BEGIN/COMMIT spellings vary too much to match on
	default:
		return ""
	}
}
