package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StageRows вставляет строки выгрузки в таблицу table. Колонки, которых
// нет в схеме выгрузки, отбрасываются. Возвращает число вставленных строк.
func StageRows(ctx context.Context, db *sql.DB, table string, rows []map[string]any) (int, error) {
	columns, ok := extractTables[table]
	if !ok {
		return 0, fmt.Errorf("unknown extract table %q", table)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	names := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		names[i] = sqlIdent(c.Name)
		marks[i] = "$" + strconv.Itoa(i+1)
	}
	q := fmt.Sprintf("insert into %s (%s) values (%s)", sqlIdent(table), strings.Join(names, ", "), strings.Join(marks, ", "))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("prepare %s: %w", table, err)
	}
	defer stmt.Close()

	for n, r := range rows {
		args := make([]any, len(columns))
		for i, c := range columns {
			v, err := convert(lookup(r, c.Name), c.Type)
			if err != nil {
				return 0, fmt.Errorf("%s row %d: %s: %w", table, n+1, c.Name, err)
			}
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert %s row %d: %w", table, n+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func lookup(r map[string]any, name string) any {
	if v, ok := r[name]; ok {
		return v
	}
	for k, v := range r {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

func convert(v any, t colType) (any, error) {
	if v == nil {
		return nil, nil
	}
	if tm, ok := v.(time.Time); ok && t == colText {
		return tm.Format(time.DateTime), nil
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if t == colText {
		return fmt.Sprint(v), nil
	}
	if s == "" {
		return nil, nil
	}
	switch s {
	case "true":
		return int64(1), nil
	case "false":
		return int64(0), nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("not an integer: %q", s)
	}
	return n, nil
}
