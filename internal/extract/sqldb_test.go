package extract

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteExtract(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.qea")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	stmts := []string{
		`CREATE TABLE t_package ("Package_ID" INTEGER, "Name" TEXT, "Parent_ID" INTEGER, "ea_guid" TEXT, "CreatedDate" TEXT)`,
		`CREATE TABLE t_object ("Object_ID" INTEGER, "Object_Type" TEXT, "Name" TEXT, "Package_ID" INTEGER, "IsRoot" INTEGER, "Note" TEXT)`,
		`CREATE TABLE t_attribute ("ID" INTEGER, "Object_ID" INTEGER, "Name" TEXT, "Pos" INTEGER, "Type" TEXT)`,
		`CREATE TABLE t_connector ("Connector_ID" INTEGER, "Connector_Type" TEXT, "Start_Object_ID" INTEGER, "End_Object_ID" INTEGER, "DestCard" TEXT)`,
		`CREATE TABLE t_diagram ("Diagram_ID" INTEGER, "Name" TEXT, "Diagram_Type" TEXT)`,
		`CREATE TABLE t_diagramobjects ("Diagram_ID" INTEGER, "Object_ID" INTEGER, "Sequence" INTEGER)`,
		`INSERT INTO t_package VALUES (1, 'Model', 0, '{P1}', '2024-02-01 09:00:00')`,
		`INSERT INTO t_object VALUES (1, 'Class', 'Study', 1, 1, NULL)`,
		`INSERT INTO t_object VALUES (2, 'Class', 'StudyVersion', 1, 0, 'a version')`,
		`INSERT INTO t_attribute VALUES (10, 1, 'id', 0, 'String')`,
		`INSERT INTO t_connector VALUES (100, 'Generalization', 2, 1, NULL)`,
		`INSERT INTO t_diagram VALUES (7, 'Overview', 'Logical')`,
		`INSERT INTO t_diagramobjects VALUES (7, 2, 2)`,
		`INSERT INTO t_diagramobjects VALUES (7, 1, 1)`,
	}
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
	return path
}

func TestSQLiteExtract(t *testing.T) {
	path := newSQLiteExtract(t)
	ctx := context.Background()

	src, err := Open(ctx, path)
	require.NoError(t, err)
	defer src.Close()
	_, isSQL := src.(*SQLDB)
	assert.True(t, isSQL)

	var buf bytes.Buffer
	recs, err := Load(ctx, src, testLogger(&buf))
	require.NoError(t, err)
	require.Len(t, recs.Objects, 2)
	assert.True(t, recs.Objects[0].IsRoot)
	assert.Equal(t, "a version", recs.Objects[1].Note)
	require.Len(t, recs.Packages, 1)
	require.NotNil(t, recs.Packages[0].CreatedDate)
	assert.Len(t, recs.Connectors, 1)
	// t_objectproperties/t_datatypes отсутствуют: не ошибка
	assert.Empty(t, recs.Properties)
	require.Len(t, recs.Diagrams, 1)
	assert.Equal(t, []int{1, 2}, recs.Diagrams[0].Objects)
}

func TestSQLiteMissingTable(t *testing.T) {
	src, err := OpenSQLite(context.Background(), newSQLiteExtract(t))
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Scan(context.Background(), TableDataTypes)
	assert.True(t, errors.Is(err, ErrTableMissing))
}

func TestOpenMissingPath(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
