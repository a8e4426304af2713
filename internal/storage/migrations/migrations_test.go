package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	pg, err := listMigrations(PostgresFS, "postgres")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_stations.sql", "002_prices.sql"}, pg)

	ch, err := listMigrations(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_prices.sql"}, ch)
}

func TestSplitStatements(t *testing.T) {
	sql := `
-- header
CREATE TABLE a (x UInt8) ENGINE = Memory;

-- second; with a semicolon
CREATE TABLE b (y String DEFAULT 'a;b') ENGINE = Memory;
INSERT INTO b VALUES ('it''s'), ('x\'y')
`
	stmts, err := splitStatements(sql)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Equal(t, "CREATE TABLE a (x UInt8) ENGINE = Memory", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y String DEFAULT 'a;b') ENGINE = Memory", stmts[1])
	assert.Equal(t, `INSERT INTO b VALUES ('it''s'), ('x\'y')`, stmts[2])
}

func TestSplitStatements_UnterminatedLiteral(t *testing.T) {
	_, err := splitStatements(`SELECT 'open;`)
	assert.Error(t, err)
}

func TestSplitStatements_EmbeddedClickhouseSchema(t *testing.T) {
	data, err := ClickhouseFS.ReadFile("clickhouse/001_prices.sql")
	require.NoError(t, err)

	stmts, err := splitStatements(string(data))
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "ReplacingMergeTree")
	assert.NotContains(t, stmts[0], "--")
}
