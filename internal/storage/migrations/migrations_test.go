package migrations

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	input := `-- header comment
CREATE TABLE a (x Int64) ENGINE = Memory;

-- second
CREATE TABLE b (y String) ENGINE = Memory;
`
	stmts := splitStatements(input)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x Int64) ENGINE = Memory", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y String) ENGINE = Memory", stmts[1])
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings("SELECT 'a''b'; SELECT 1;"))
	assert.Error(t, validateNoSemicolonInStrings("SELECT 'a;b'"))
}

func TestLoad_Embedded(t *testing.T) {
	pg, err := Load(Postgres)
	require.NoError(t, err)
	require.Len(t, pg, 1)
	assert.Equal(t, "001_saved_conditions.sql", pg[0].File)
	assert.Len(t, pg[0].Statements, 1)
	assert.Contains(t, pg[0].Statements[0], "CREATE TABLE IF NOT EXISTS saved_conditions")

	ch, err := Load(Clickhouse)
	require.NoError(t, err)
	require.Len(t, ch, 1)
	assert.Equal(t, "001_daily_snapshots.sql", ch[0].File)
	assert.Contains(t, ch[0].Statements[0], "ReplacingMergeTree")
}

func TestLoadFS_OrderAndSkips(t *testing.T) {
	fsys := fstest.MapFS{
		"db/002_b.sql":  {Data: []byte("CREATE TABLE b (x int);")},
		"db/001_a.sql":  {Data: []byte("CREATE TABLE a (x int); CREATE INDEX a_x ON a (x);")},
		"db/003_c.sql":  {Data: []byte("-- nothing yet\n")},
		"db/readme.txt": {Data: []byte("not sql")},
		"other/009.sql": {Data: []byte("DROP TABLE a;")},
	}

	ms, err := LoadFS(fsys, "db")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "001_a.sql", ms[0].File)
	assert.Len(t, ms[0].Statements, 2)
	assert.Equal(t, "002_b.sql", ms[1].File)
}

func TestLoadFS_Empty(t *testing.T) {
	_, err := LoadFS(fstest.MapFS{}, "db")
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	ms := []Migration{
		{File: "001.sql", Statements: []string{"s1", "s2"}},
		{File: "002.sql", Statements: []string{"s3"}},
	}

	var ran []string
	exec := func(_ context.Context, stmt string) error {
		ran = append(ran, stmt)
		return nil
	}
	require.NoError(t, Apply(context.Background(), "test", ms, exec, nil))
	assert.Equal(t, []string{"s1", "s2", "s3"}, ran)
}

func TestApply_StopsAtFailure(t *testing.T) {
	ms := []Migration{
		{File: "001.sql", Statements: []string{"ok", "bad"}},
		{File: "002.sql", Statements: []string{"never"}},
	}

	boom := errors.New("boom")
	var ran []string
	exec := func(_ context.Context, stmt string) error {
		ran = append(ran, stmt)
		if stmt == "bad" {
			return boom
		}
		return nil
	}
	err := Apply(context.Background(), "test", ms, exec, nil)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "001.sql statement 2")
	assert.Equal(t, []string{"ok", "bad"}, ran)
}
