// Package parser turns raw migration SQL into PostgreSQL parse trees and
// correlates each parsed statement back to its source line.
package parser

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	pgparser "github.com/pganalyze/pg_query_go/v6/parser"
)

// ParseError describes a syntax error with its position in the source text.
// Line and Col are 1-indexed; zero means the position could not be
// determined.
type ParseError struct {
	Msg  string
	Line int
	Col  int
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Col, e.Msg)
	}
	return fmt.Sprintf("syntax error: %s", e.Msg)
}

// Parse runs the PostgreSQL grammar over sql and returns the raw statement
// list. Failures come back as *ParseError with the line and column derived
// from the grammar's cursor position.
func Parse(sql string) ([]*pg_query.RawStmt, error) {
	result, err := pg_query.Parse(sql)
	if err != nil {
		return nil, toParseError(sql, err)
	}
	return result.Stmts, nil
}

func toParseError(sql string, err error) *ParseError {
	pe := &ParseError{Msg: err.Error()}
	pgErr, ok := err.(*pgparser.Error)
	if !ok {
		return pe
	}
	pe.Msg = pgErr.Message
	if pgErr.Cursorpos > 0 {
		pe.Line, pe.Col = position(sql, pgErr.Cursorpos)
	}
	return pe
}

// position converts a 1-indexed byte offset into a line and column pair.
func position(sql string, cursorpos int) (line, col int) {
	if cursorpos > len(sql) {
		cursorpos = len(sql)
	}
	prefix := sql[:cursorpos-1]
	line = strings.Count(prefix, "\n") + 1
	if idx := strings.LastIndexByte(prefix, '\n'); idx >= 0 {
		col = len(prefix) - idx
	} else {
		col = len(prefix) + 1
	}
	return line, col
}
