package extract

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // driver: sqlite

	"eapgraph/internal/pg"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// SQLDB: выгрузка в реляционной БД (файл SQLite или PostgreSQL)
type SQLDB struct {
	db      *sql.DB
	name    string
	dialect dialect
	tables  map[string]bool
}

// OpenSQLite открывает файл только на чтение
func OpenSQLite(ctx context.Context, path string) (*SQLDB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return newSQLDB(ctx, db, path, dialectSQLite)
}

func OpenPostgres(ctx context.Context, url string) (*SQLDB, error) {
	db, err := pg.Open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return newSQLDB(ctx, db, pg.Redact(url), dialectPostgres)
}

func newSQLDB(ctx context.Context, db *sql.DB, name string, d dialect) (*SQLDB, error) {
	s := &SQLDB{db: db, name: name, dialect: d}
	tables, err := s.listTables(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.tables = tables
	return s, nil
}

func (s *SQLDB) listTables(ctx context.Context) (map[string]bool, error) {
	q := `SELECT name FROM sqlite_master WHERE type = 'table'`
	if s.dialect == dialectPostgres {
		q = `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema()`
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[strings.ToLower(name)] = true
	}
	return out, rows.Err()
}

func (s *SQLDB) Name() string { return s.name }

func (s *SQLDB) Close() error { return s.db.Close() }

func quoteIdent(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }

func (s *SQLDB) placeholder() string {
	if s.dialect == dialectPostgres {
		return "$1"
	}
	return "?"
}

func (s *SQLDB) Scan(ctx context.Context, table string) ([]Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if !s.tables[table] {
		return nil, fmt.Errorf("%s: %w", table, ErrTableMissing)
	}
	return s.query(ctx, "SELECT * FROM "+quoteIdent(table))
}

func (s *SQLDB) Lookup(ctx context.Context, table, column string, id int, orderBy string) ([]Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if !s.tables[table] {
		return nil, fmt.Errorf("%s: %w", table, ErrTableMissing)
	}
	q := fmt.Sprintf("SELECT * FROM %s WHERE %s = %s", quoteIdent(table), quoteIdent(column), s.placeholder())
	if orderBy != "" {
		q += " ORDER BY " + quoteIdent(orderBy)
	}
	return s.query(ctx, q, id)
}

// query собирает строки как Row; NULL-колонки в строку не попадают
func (s *SQLDB) query(ctx context.Context, q string, args ...any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", q, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(Row, len(cols))
		for i, c := range cols {
			switch v := vals[i].(type) {
			case nil:
			case []byte:
				r[c] = string(v)
			default:
				r[c] = v
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
