package extract

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
)

var jsonExts = []string{".json", ".jsonl", ".ndjson"}

// JSONDir: каталог, где каждая таблица лежит отдельным файлом JSON lines
type JSONDir struct {
	dir   string
	files map[string]string // table -> path
	index map[lookupKey]map[int][]Row
}

// lookupKey: таблица и колонка, по которой строки сгруппированы
type lookupKey struct{ table, column string }

// OpenJSONDir индексирует файлы таблиц в каталоге (без рекурсии)
func OpenJSONDir(dir string) (*JSONDir, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read extract dir: %w", err)
	}
	files := map[string]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !lo.Contains(jsonExts, ext) {
			continue
		}
		table := strings.ToLower(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		if !knownTable[table] {
			continue
		}
		// .json важнее .jsonl/.ndjson
		if prev, ok := files[table]; ok && strings.EqualFold(filepath.Ext(prev), ".json") {
			continue
		}
		files[table] = filepath.Join(dir, e.Name())
	}
	return &JSONDir{dir: dir, files: files, index: map[lookupKey]map[int][]Row{}}, nil
}

func (j *JSONDir) Name() string { return j.dir }

func (j *JSONDir) Close() error { return nil }

func (j *JSONDir) Scan(ctx context.Context, table string) ([]Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	path, ok := j.files[table]
	if !ok {
		return nil, fmt.Errorf("%s: %w", table, ErrTableMissing)
	}
	return readJSONLines(ctx, path)
}

// Lookup: строки table, где column == id. Файл читается один раз на пару
// (table, column), дальше строки берутся из индекса.
func (j *JSONDir) Lookup(ctx context.Context, table, column string, id int, orderBy string) ([]Row, error) {
	k := lookupKey{table, strings.ToLower(column)}
	idx, ok := j.index[k]
	if !ok {
		rows, err := j.Scan(ctx, table)
		if err != nil {
			return nil, err
		}
		idx = map[int][]Row{}
		for _, r := range rows {
			v, _ := r.get(column)
			if n, err := asInt(v); err == nil && v != nil {
				idx[n] = append(idx[n], r)
			}
		}
		j.index[k] = idx
	}
	out := append([]Row(nil), idx[id]...)
	if orderBy != "" {
		sort.SliceStable(out, func(a, b int) bool {
			va, _ := out[a].get(orderBy)
			vb, _ := out[b].get(orderBy)
			na, _ := asInt(va)
			nb, _ := asInt(vb)
			return na < nb
		})
	}
	return out, nil
}

func readJSONLines(ctx context.Context, path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var rows []Row
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		var r Row
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filepath.Base(path), lineNum, err)
		}
		rows = append(rows, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return rows, nil
}
