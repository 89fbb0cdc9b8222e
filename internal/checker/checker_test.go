package checker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pg-guard/internal/config"
	"pg-guard/internal/directive"
	"pg-guard/internal/model"
	"pg-guard/internal/parser"
)

func TestCheckSQLAddColumnWithDefault(t *testing.T) {
	c := New(nil)
	violations, err := c.CheckSQL("ALTER TABLE users ADD COLUMN admin BOOLEAN DEFAULT FALSE;")
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "ADD COLUMN with DEFAULT", violations[0].Operation)
	assert.Equal(t, model.SeverityError, violations[0].Severity)
	assert.Equal(t, 1, violations[0].LineNumber)
}

func TestCheckSQLWideIndex(t *testing.T) {
	c := New(nil)
	violations, err := c.CheckSQL("CREATE INDEX idx ON users(a, b, c, d);")
	require.NoError(t, err)

	// The statement also misses CONCURRENTLY, so two checks fire; exactly
	// one of them is the wide index finding.
	wide := 0
	for _, v := range violations {
		if v.Operation == "Wide index" {
			wide++
		}
	}
	assert.Equal(t, 1, wide, "violations: %v", violations)
	assert.Len(t, violations, 2)
}

func TestCheckSQLSafeMigration(t *testing.T) {
	c := New(nil)
	violations, err := c.CheckSQL("CREATE TABLE users (id BIGINT PRIMARY KEY, email TEXT);\nCREATE INDEX CONCURRENTLY idx_users_email ON users(email);")
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestCheckSQLSuppression(t *testing.T) {
	c := New(nil)
	sql := `-- safety-assured:start
TRUNCATE TABLE users;
-- safety-assured:end
TRUNCATE TABLE orders;`

	violations, err := c.CheckSQL(sql)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, 4, violations[0].LineNumber)
}

func TestCheckSQLSuppressionScopedToBlock(t *testing.T) {
	c := New(nil)
	sql := `TRUNCATE TABLE before_block;
-- safety-assured:start
TRUNCATE TABLE inside;
-- safety-assured:end
TRUNCATE TABLE after_block;`

	violations, err := c.CheckSQL(sql)
	require.NoError(t, err)
	require.Len(t, violations, 2)
	assert.Equal(t, 1, violations[0].LineNumber)
	assert.Equal(t, 5, violations[1].LineNumber)
}

func TestCheckSQLDirectiveErrors(t *testing.T) {
	c := New(nil)

	_, err := c.CheckSQL("-- safety-assured:start\nTRUNCATE TABLE users;")
	assert.True(t, errors.Is(err, directive.ErrUnclosedBlock), "got %v", err)

	_, err = c.CheckSQL("-- safety-assured:end")
	assert.True(t, errors.Is(err, directive.ErrUnmatchedEnd), "got %v", err)

	_, err = c.CheckSQL("-- safety-assured:start\n-- safety-assured:start\n-- safety-assured:end\n-- safety-assured:end")
	assert.True(t, errors.Is(err, directive.ErrNestedDirective), "got %v", err)
}

func TestCheckSQLSyntaxError(t *testing.T) {
	c := New(nil)
	_, err := c.CheckSQL("ALTER TBLE users ADD COLUMN x INT;")
	require.Error(t, err)

	var pe *parser.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestCheckSQLFallbackOnUnsupportedSyntax(t *testing.T) {
	c := New(nil)

	// If this construct ever fails to parse, the file degrades to zero
	// statements instead of failing the run.
	sql := "ALTER TABLE users ADD CONSTRAINT users_pkey PRIMARY KEY USING INDEX users_pkey_idx;"
	violations, err := c.CheckSQL(sql)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestCheckSQLDisabledCheck(t *testing.T) {
	cfg := &config.Config{DisableChecks: []string{"truncate_table"}}
	c := New(cfg)

	violations, err := c.CheckSQL("TRUNCATE TABLE users;")
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "up.sql")
	require.NoError(t, os.WriteFile(path, []byte("TRUNCATE TABLE users;\n"), 0o644))

	res := New(nil).CheckFile(path)
	require.NoError(t, res.Err)
	assert.Len(t, res.Violations, 1)
}

func TestCheckFileMissing(t *testing.T) {
	res := New(nil).CheckFile(filepath.Join(t.TempDir(), "nope.sql"))
	assert.Error(t, res.Err)
}

// writeMigration lays out dir/<name>/up.sql (and optionally down.sql).
func writeMigration(t *testing.T, root, name, up, down string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "up.sql"), []byte(up), 0o644))
	if down != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "down.sql"), []byte(down), 0o644))
	}
}

func TestCheckDirectory(t *testing.T) {
	root := t.TempDir()
	writeMigration(t, root, "2024_01_01_000000_create_users",
		"CREATE TABLE users (id BIGINT PRIMARY KEY);\n",
		"DROP TABLE users;\n")
	writeMigration(t, root, "2024_02_01_000000_truncate",
		"TRUNCATE TABLE users;\n",
		"")

	results, err := New(nil).CheckDirectory(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Sorted by path.
	assert.Contains(t, results[0].Path, "2024_01_01_000000_create_users")
	assert.Empty(t, results[0].Violations)
	assert.Contains(t, results[1].Path, "2024_02_01_000000_truncate")
	assert.Len(t, results[1].Violations, 1)
}

func TestCheckDirectoryCheckDown(t *testing.T) {
	root := t.TempDir()
	writeMigration(t, root, "2024_01_01_000000_create_users",
		"CREATE TABLE users (id BIGINT PRIMARY KEY);\n",
		"TRUNCATE TABLE users;\n")

	noDown, err := New(nil).CheckDirectory(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, noDown, 1)

	withDown, err := New(&config.Config{CheckDown: true}).CheckDirectory(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, withDown, 2)
	assert.Contains(t, withDown[0].Path, "down.sql")
	assert.Len(t, withDown[0].Violations, 1)
}

func TestCheckDirectoryStartAfter(t *testing.T) {
	root := t.TempDir()
	writeMigration(t, root, "2023_06_01_000000_old", "TRUNCATE TABLE a;\n", "")
	writeMigration(t, root, "2024_06_01_000000_new", "TRUNCATE TABLE b;\n", "")

	cfg := &config.Config{StartAfter: "2024_01_01_000000"}
	results, err := New(cfg).CheckDirectory(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Path, "2024_06_01_000000_new")
}

func TestCheckDirectoryLooseFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "seed.sql"), []byte("TRUNCATE TABLE users;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("notes\n"), 0o644))

	results, err := New(nil).CheckDirectory(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Path, "seed.sql")
}

func TestCheckDirectoryBrokenFileDoesNotAbort(t *testing.T) {
	root := t.TempDir()
	writeMigration(t, root, "2024_01_01_000000_broken", "ALTER TBLE users ADD COLUMN x INT;\n", "")
	writeMigration(t, root, "2024_02_01_000000_fine", "TRUNCATE TABLE users;\n", "")

	results, err := New(nil).CheckDirectory(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	require.NoError(t, results[1].Err)
	assert.Len(t, results[1].Violations, 1)
}

func TestCheckPath(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "single.sql")
	require.NoError(t, os.WriteFile(path, []byte("CREATE INDEX idx ON users(a, b, c, d);\n"), 0o644))

	c := New(nil)

	fileResults, err := c.CheckPath(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, fileResults, 1)
	// A four-column index trips both the wide-index and the missing
	// CONCURRENTLY checks.
	assert.Len(t, fileResults[0].Violations, 2)

	dirResults, err := c.CheckPath(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, dirResults, 1)

	_, err = c.CheckPath(context.Background(), filepath.Join(root, "missing"))
	assert.Error(t, err)
}
