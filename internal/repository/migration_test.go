package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	script := `-- header; with a semicolon
CREATE TABLE a (id INT);
  -- indented comment
CREATE INDEX idx_a ON a(id);

`
	stmts := SplitStatements(script)
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE INDEX idx_a ON a(id)"}, stmts)
}

func TestSplitStatements_EmbeddedSchema(t *testing.T) {
	stmts := SplitStatements(Schema)
	require.NotEmpty(t, stmts)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS rooms")

	var joined string
	for _, s := range stmts {
		joined += s + "\n"
	}
	for _, name := range []string{"one_active_layout_per_room", "one_active_global_layout", "one_seated_session_per_table"} {
		assert.Contains(t, joined, name)
	}
}

func TestApplyStatements_Commit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a (id INT)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX idx_a ON a(id)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	var applied []int
	err = ApplyStatements(context.Background(), db, []string{"CREATE TABLE a (id INT)", "CREATE INDEX idx_a ON a(id)"}, func(i int, _ string) {
		applied = append(applied, i)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyStatements_RollbackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a (id INT)")).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err = ApplyStatements(context.Background(), db, []string{"CREATE TABLE a (id INT)", "CREATE INDEX idx_a ON a(id)"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}
