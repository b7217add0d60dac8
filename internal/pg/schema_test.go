package pg

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDDL(t *testing.T) {
	stmts := ExtractDDL()
	require.Len(t, stmts, len(tableOrder)+1)

	for i, table := range tableOrder {
		assert.True(t, strings.HasPrefix(stmts[i], `create table if not exists "`+table+`"`), stmts[i])
	}
	assert.Contains(t, stmts[1], `"Object_ID" bigint null`)
	assert.Contains(t, stmts[1], `"CreatedDate" text null`)
	assert.Contains(t, stmts[len(stmts)-1], "t_diagramobjects_diagram_idx")
}

func TestTableOrderCoversSchema(t *testing.T) {
	assert.Len(t, tableOrder, len(extractTables))
	for _, table := range tableOrder {
		assert.Contains(t, extractTables, table)
	}
}

func TestConvert(t *testing.T) {
	cases := []struct {
		name string
		in   any
		typ  colType
		want any
	}{
		{"nil", nil, colInt, nil},
		{"json number", json.Number("42"), colInt, int64(42)},
		{"float", float64(7), colInt, int64(7)},
		{"bool string", "true", colInt, int64(1)},
		{"empty int", " ", colInt, nil},
		{"text keeps spaces", " note ", colText, " note "},
		{"number as text", json.Number("3"), colText, "3"},
		{"time as text", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), colText, "2024-01-02 03:04:05"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := convert(tc.in, tc.typ)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := convert("abc", colInt)
	assert.ErrorContains(t, err, "not an integer")
}

func TestLookupIgnoresCase(t *testing.T) {
	r := map[string]any{"object_id": 5, "Name": "Study"}
	assert.Equal(t, 5, lookup(r, "Object_ID"))
	assert.Equal(t, "Study", lookup(r, "Name"))
	assert.Nil(t, lookup(r, "Note"))
}

func TestStageRowsUnknownTable(t *testing.T) {
	_, err := StageRows(context.Background(), nil, "users", nil)
	assert.ErrorContains(t, err, "unknown extract table")
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "postgres://eap:xxxxx@db:5432/stage", Redact("postgres://eap:secret@db:5432/stage"))
	assert.Equal(t, "postgres://db/stage", Redact("postgres://db/stage"))
}
