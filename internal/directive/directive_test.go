package directive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		want    []IgnoreRange
		wantErr error
	}{
		{
			name: "no directives",
			sql:  "ALTER TABLE users ADD COLUMN admin BOOLEAN DEFAULT FALSE;",
			want: nil,
		},
		{
			name: "single block",
			sql: `-- safety-assured:start
ALTER TABLE users ADD COLUMN admin BOOLEAN DEFAULT FALSE;
-- safety-assured:end`,
			want: []IgnoreRange{{StartLine: 1, EndLine: 3}},
		},
		{
			name: "multiple blocks",
			sql: `-- safety-assured:start
TRUNCATE TABLE users;
-- safety-assured:end
CREATE INDEX idx ON users(email);
-- safety-assured:start
DROP TABLE old_stuff;
-- safety-assured:end`,
			want: []IgnoreRange{
				{StartLine: 1, EndLine: 3},
				{StartLine: 5, EndLine: 7},
			},
		},
		{
			name: "empty block",
			sql: `-- safety-assured:start
-- safety-assured:end`,
			want: []IgnoreRange{{StartLine: 1, EndLine: 2}},
		},
		{
			name: "case insensitive with leading whitespace",
			sql: `   -- SAFETY-ASSURED:START
TRUNCATE TABLE users;
	--	Safety-Assured:End`,
			want: []IgnoreRange{{StartLine: 1, EndLine: 3}},
		},
		{
			name: "trailing text disqualifies the directive",
			sql: `-- safety-assured:start because reasons
TRUNCATE TABLE users;`,
			want: nil,
		},
		{
			name: "nested start",
			sql: `-- safety-assured:start
-- safety-assured:start
-- safety-assured:end`,
			wantErr: ErrNestedDirective,
		},
		{
			name:    "unmatched end",
			sql:     "-- safety-assured:end",
			wantErr: ErrUnmatchedEnd,
		},
		{
			name: "unclosed block",
			sql: `-- safety-assured:start
TRUNCATE TABLE users;`,
			wantErr: ErrUnclosedBlock,
		},
		{
			name: "end after closed block is unmatched",
			sql: `-- safety-assured:start
-- safety-assured:end
-- safety-assured:end`,
			wantErr: ErrUnmatchedEnd,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.sql)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIgnoredLines(t *testing.T) {
	ranges := []IgnoreRange{
		{StartLine: 1, EndLine: 4},
		{StartLine: 10, EndLine: 11},
	}
	got := IgnoredLines(ranges)

	// Boundary lines themselves are never ignored.
	assert.NotContains(t, got, 1)
	assert.NotContains(t, got, 4)
	assert.Contains(t, got, 2)
	assert.Contains(t, got, 3)

	// A degenerate range contributes nothing.
	assert.NotContains(t, got, 10)
	assert.NotContains(t, got, 11)
	assert.Len(t, got, 2)
}

func TestIgnoredLinesEmpty(t *testing.T) {
	assert.Empty(t, IgnoredLines(nil))
}
