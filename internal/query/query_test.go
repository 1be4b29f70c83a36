package query

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/quarry/internal/dataset"
)

func TestPrepare_RejectsNonSelect(t *testing.T) {
	_, err := Prepare("DELETE FROM data", DefaultMaxRows)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestPrepare_RejectsForbiddenKeywords(t *testing.T) {
	testCases := []string{
		"SELECT * FROM data; DROP TABLE data",
		"SELECT * FROM data WHERE x = 1 OR delete_flag IN (SELECT 1) UNION SELECT * FROM data; INSERT INTO data VALUES (1)",
		"select * from data where pragma = 1",
		"SELECT attach FROM data",
	}
	for _, q := range testCases {
		t.Run(q, func(t *testing.T) {
			_, err := Prepare(q, DefaultMaxRows)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestPrepare_AllowsKeywordAsSubstring(t *testing.T) {
	// "updated_at" contains "update" but not as a whole word.
	prepared, err := Prepare("SELECT updated_at FROM data", DefaultMaxRows)
	require.NoError(t, err)
	assert.Equal(t, "SELECT updated_at FROM data LIMIT 200", prepared)
}

func TestPrepare_RejectsMultiStatement(t *testing.T) {
	_, err := Prepare("SELECT * FROM data; SELECT * FROM data", DefaultMaxRows)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestPrepare_TrailingSemicolonOK(t *testing.T) {
	prepared, err := Prepare("SELECT * FROM data;", DefaultMaxRows)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM data LIMIT 200", prepared)
}

func TestPrepare_AppendsLimit(t *testing.T) {
	prepared, err := Prepare("SELECT * FROM data", DefaultMaxRows)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM data LIMIT 200", prepared)
}

func TestPrepare_ClampsOversizedLimit(t *testing.T) {
	prepared, err := Prepare("SELECT * FROM data LIMIT 500", DefaultMaxRows)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM data LIMIT 200", prepared)
}

func TestPrepare_KeepsSmallerLimit(t *testing.T) {
	prepared, err := Prepare("SELECT * FROM data LIMIT 10", DefaultMaxRows)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM data LIMIT 10", prepared)
}

func TestPrepare_ClampsOnlyFirstLimit(t *testing.T) {
	prepared, err := Prepare(
		"SELECT * FROM (SELECT * FROM data LIMIT 500) sub LIMIT 500", DefaultMaxRows)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM (SELECT * FROM data LIMIT 200) sub LIMIT 500", prepared)
}

func TestPrepare_FirstLimitWithinCapLeavesRest(t *testing.T) {
	prepared, err := Prepare(
		"SELECT * FROM (SELECT * FROM data LIMIT 10) sub LIMIT 500", DefaultMaxRows)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM (SELECT * FROM data LIMIT 10) sub LIMIT 500", prepared)
}

func testTable(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.Read(strings.NewReader("category,value\nA,10\nB,12\n"))
	require.NoError(t, err)
	return table
}

func TestRunner_RunPersistsArtifact(t *testing.T) {
	artifactsDir := t.TempDir()
	runner, err := NewRunner(testTable(t), artifactsDir, DefaultMaxRows)
	require.NoError(t, err)
	defer runner.Close()

	result, err := runner.Run(context.Background(), "SELECT category, SUM(value) AS total_value FROM data GROUP BY category ORDER BY category")
	require.NoError(t, err)

	assert.Equal(t, 1, result.QueryID)
	assert.Equal(t, []string{"category", "total_value"}, result.Columns)
	assert.Equal(t, [][]string{{"A", "10"}, {"B", "12"}}, result.Rows)
	assert.Contains(t, result.SQL, "LIMIT 200")

	wantPath := filepath.Join(artifactsDir, "tables", "query_1.csv")
	assert.Equal(t, wantPath, result.TablePath)
	raw, err := os.ReadFile(wantPath)
	require.NoError(t, err)
	assert.Equal(t, "category,total_value\nA,10\nB,12\n", string(raw))

	assert.Contains(t, result.Preview, "| category | total_value |")
}

func TestRunner_QueryIDsAscend(t *testing.T) {
	runner, err := NewRunner(testTable(t), t.TempDir(), DefaultMaxRows)
	require.NoError(t, err)
	defer runner.Close()

	first, err := runner.Run(context.Background(), "SELECT * FROM data")
	require.NoError(t, err)
	second, err := runner.Run(context.Background(), "SELECT COUNT(*) AS count FROM data")
	require.NoError(t, err)

	assert.Equal(t, 1, first.QueryID)
	assert.Equal(t, 2, second.QueryID)
	assert.True(t, strings.HasSuffix(second.TablePath, "query_2.csv"))
}

func TestRunner_ValidationFailureDoesNotWriteArtifact(t *testing.T) {
	artifactsDir := t.TempDir()
	runner, err := NewRunner(testTable(t), artifactsDir, DefaultMaxRows)
	require.NoError(t, err)
	defer runner.Close()

	_, err = runner.Run(context.Background(), "DROP TABLE data")
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, statErr := os.Stat(filepath.Join(artifactsDir, "tables"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunner_EmptyDataset(t *testing.T) {
	table, err := dataset.Read(strings.NewReader("category,value\n"))
	require.NoError(t, err)

	runner, err := NewRunner(table, t.TempDir(), DefaultMaxRows)
	require.NoError(t, err)
	defer runner.Close()

	result, err := runner.Run(context.Background(), "SELECT COUNT(*) AS count FROM data")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"0"}}, result.Rows)
}
