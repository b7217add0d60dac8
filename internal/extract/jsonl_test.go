package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTable(t *testing.T, dir, name string, rows ...map[string]any) {
	t.Helper()
	var b strings.Builder
	for _, r := range rows {
		line, err := json.Marshal(r)
		require.NoError(t, err)
		b.Write(line)
		b.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0o644))
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestJSONDirScanAndLookup(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "t_diagramobjects.ndjson",
		map[string]any{"Diagram_ID": 1, "Object_ID": 12, "Sequence": 2},
		map[string]any{"Diagram_ID": 2, "Object_ID": 99, "Sequence": 1},
		map[string]any{"Diagram_ID": 1, "Object_ID": 11, "Sequence": 1},
	)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0o644))

	src, err := OpenJSONDir(dir)
	require.NoError(t, err)
	defer src.Close()

	rows, err := src.Scan(context.Background(), TableDiagramObjects)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	members, err := src.Lookup(context.Background(), TableDiagramObjects, "Diagram_ID", 1, "Sequence")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, json.Number("11"), members[0]["Object_ID"])
	assert.Equal(t, json.Number("12"), members[1]["Object_ID"])

	_, err = src.Scan(context.Background(), TableConnector)
	assert.True(t, errors.Is(err, ErrTableMissing))

	_, err = src.Scan(context.Background(), "users")
	assert.Error(t, err)
}

func TestJSONDirLookupReadsFileOnce(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "t_diagramobjects.json",
		map[string]any{"Diagram_ID": 1, "Object_ID": 11, "Sequence": 1},
		map[string]any{"Diagram_ID": 2, "Object_ID": 21, "Sequence": 2},
		map[string]any{"Diagram_ID": 2, "Object_ID": 22, "Sequence": 1},
	)
	src, err := OpenJSONDir(dir)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := src.Lookup(ctx, TableDiagramObjects, "Diagram_ID", 1, "Sequence")
	require.NoError(t, err)
	require.Len(t, first, 1)

	// дальше строки берутся из индекса, файл больше не нужен
	require.NoError(t, os.Remove(filepath.Join(dir, "t_diagramobjects.json")))

	second, err := src.Lookup(ctx, TableDiagramObjects, "diagram_id", 2, "Sequence")
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, json.Number("22"), second[0]["Object_ID"])
	assert.Equal(t, json.Number("21"), second[1]["Object_ID"])

	none, err := src.Lookup(ctx, TableDiagramObjects, "Diagram_ID", 3, "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestJSONDirBadLine(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t_object.json"), []byte("{\"Object_ID\": 1}\n{broken\n"), 0o644))
	src, err := OpenJSONDir(dir)
	require.NoError(t, err)

	_, err = src.Scan(context.Background(), TableObject)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "t_object.json:2")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "t_package.json",
		map[string]any{"Package_ID": 1, "Name": "Model", "Parent_ID": 0, "ea_guid": "{P1}"},
	)
	writeTable(t, dir, "t_object.json",
		map[string]any{"Object_ID": 1, "Object_Type": "Class", "Name": "Study", "Package_ID": 1},
		map[string]any{"Object_ID": 2, "Object_Type": "UseCase", "Name": "Actor"},
		map[string]any{"Object_ID": 3, "Object_Type": "Package", "Name": "Model", "ea_guid": "{P1}"},
	)
	writeTable(t, dir, "t_attribute.json",
		map[string]any{"ID": 10, "Object_ID": 1, "Name": "id", "Pos": 0},
	)
	writeTable(t, dir, "t_diagram.json",
		map[string]any{"Diagram_ID": 5, "Name": "Main", "Diagram_Type": "Logical"},
	)
	writeTable(t, dir, "t_diagramobjects.json",
		map[string]any{"Diagram_ID": 5, "Object_ID": 3, "Sequence": 2},
		map[string]any{"Diagram_ID": 5, "Object_ID": 1, "Sequence": 1},
	)

	src, err := Open(context.Background(), dir)
	require.NoError(t, err)
	defer src.Close()

	var buf bytes.Buffer
	recs, err := Load(context.Background(), src, testLogger(&buf))
	require.NoError(t, err)
	assert.Len(t, recs.Packages, 1)
	assert.Len(t, recs.Objects, 2)
	assert.Equal(t, 1, recs.Skipped)
	assert.Len(t, recs.Attributes, 1)
	assert.Empty(t, recs.Connectors)
	require.Len(t, recs.Diagrams, 1)
	assert.Equal(t, []int{1, 3}, recs.Diagrams[0].Objects)
	assert.Contains(t, buf.String(), "skipping object")
}

func TestLoadRequiresObjects(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "t_package.json", map[string]any{"Package_ID": 1})

	src, err := OpenJSONDir(dir)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = Load(context.Background(), src, testLogger(&buf))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTableMissing))
}

func TestLoadFieldErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "t_package.json", map[string]any{"Package_ID": 1})
	writeTable(t, dir, "t_object.json", map[string]any{"Object_ID": 1, "Object_Type": "Class", "IsLeaf": 7})

	src, err := OpenJSONDir(dir)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = Load(context.Background(), src, testLogger(&buf))
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "IsLeaf", fe.Field)
}
