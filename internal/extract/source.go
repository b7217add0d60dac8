package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// имена таблиц выгрузки
const (
	TablePackage          = "t_package"
	TableObject           = "t_object"
	TableAttribute        = "t_attribute"
	TableConnector        = "t_connector"
	TableObjectProperties = "t_objectproperties"
	TableDataTypes        = "t_datatypes"
	TableDiagram          = "t_diagram"
	TableDiagramObjects   = "t_diagramobjects"
)

// Tables: все известные таблицы в порядке загрузки
var Tables = []string{
	TablePackage, TableObject, TableDataTypes, TableObjectProperties,
	TableAttribute, TableConnector, TableDiagram, TableDiagramObjects,
}

var knownTable = func() map[string]bool {
	m := make(map[string]bool, len(Tables))
	for _, t := range Tables {
		m[t] = true
	}
	return m
}()

var ErrTableMissing = errors.New("table not found in extract")

// Source: источник строк выгрузки, каталог JSON lines или реляционная БД
type Source interface {
	// Name: человекочитаемое имя (путь/URL) для логов
	Name() string
	// Scan возвращает все строки таблицы или ErrTableMissing
	Scan(ctx context.Context, table string) ([]Row, error)
	// Lookup возвращает строки, где column == id, упорядоченные по orderBy (если задан)
	Lookup(ctx context.Context, table, column string, id int, orderBy string) ([]Row, error)
	Close() error
}

// Open выбирает источник по пути: postgres URL, каталог или файл SQLite
func Open(ctx context.Context, path string) (Source, error) {
	if strings.HasPrefix(path, "postgres://") || strings.HasPrefix(path, "postgresql://") {
		return OpenPostgres(ctx, path)
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open extract %s: %w", path, err)
	}
	if st.IsDir() {
		return OpenJSONDir(path)
	}
	return OpenSQLite(ctx, path)
}

func checkTable(table string) error {
	if !knownTable[table] {
		return fmt.Errorf("unknown extract table %q", table)
	}
	return nil
}
