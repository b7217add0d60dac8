package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eapgraph/internal/model"
)

// Records: всё, что удалось декодировать из выгрузки за одну загрузку
type Records struct {
	Packages   []*model.Package
	Objects    []*model.Object
	Attributes []*model.Attribute
	Connectors []*model.Connector
	DataTypes  []*model.DataType
	Properties []*model.ObjectProperty
	Diagrams   []*model.Diagram
	Skipped    int // строки t_object с неизвестным типом
}

var requiredTables = map[string]bool{TableObject: true, TablePackage: true}

// Load читает все таблицы источника. Ошибка поля фатальна;
// неизвестный тип объекта: предупреждение, строка пропускается.
func Load(ctx context.Context, src Source, log *slog.Logger) (*Records, error) {
	dec := NewDecoder()
	recs := &Records{}

	scan := func(table string) ([]Row, error) {
		rows, err := src.Scan(ctx, table)
		if errors.Is(err, ErrTableMissing) && !requiredTables[table] {
			log.Debug("table not present in extract", "table", table)
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", table, err)
		}
		log.Debug("table read", "table", table, "rows", len(rows))
		return rows, nil
	}

	rows, err := scan(TablePackage)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		p, err := dec.DecodePackage(r)
		if err != nil {
			return nil, err
		}
		recs.Packages = append(recs.Packages, p)
	}

	if rows, err = scan(TableObject); err != nil {
		return nil, err
	}
	for _, r := range rows {
		o, err := dec.DecodeObject(r)
		if errors.Is(err, ErrUnknownObjectType) {
			log.Warn("skipping object", "err", err)
			recs.Skipped++
			continue
		}
		if err != nil {
			return nil, err
		}
		recs.Objects = append(recs.Objects, o)
	}

	if rows, err = scan(TableDataTypes); err != nil {
		return nil, err
	}
	for _, r := range rows {
		dt, err := dec.DecodeDataType(r)
		if err != nil {
			return nil, err
		}
		recs.DataTypes = append(recs.DataTypes, dt)
	}

	if rows, err = scan(TableObjectProperties); err != nil {
		return nil, err
	}
	for _, r := range rows {
		p, err := dec.DecodeObjectProperty(r)
		if err != nil {
			return nil, err
		}
		recs.Properties = append(recs.Properties, p)
	}

	if rows, err = scan(TableAttribute); err != nil {
		return nil, err
	}
	for _, r := range rows {
		a, err := dec.DecodeAttribute(r)
		if err != nil {
			return nil, err
		}
		recs.Attributes = append(recs.Attributes, a)
	}

	if rows, err = scan(TableConnector); err != nil {
		return nil, err
	}
	for _, r := range rows {
		c, err := dec.DecodeConnector(r)
		if err != nil {
			return nil, err
		}
		recs.Connectors = append(recs.Connectors, c)
	}

	if rows, err = scan(TableDiagram); err != nil {
		return nil, err
	}
	for _, r := range rows {
		dg, err := dec.DecodeDiagram(r)
		if err != nil {
			return nil, err
		}
		members, err := src.Lookup(ctx, TableDiagramObjects, "Diagram_ID", dg.ID, "Sequence")
		if err != nil && !errors.Is(err, ErrTableMissing) {
			return nil, fmt.Errorf("load diagram %d: %w", dg.ID, err)
		}
		for _, m := range members {
			do, err := dec.DecodeDiagramObject(m)
			if err != nil {
				return nil, err
			}
			dg.Objects = append(dg.Objects, do.ObjectID)
		}
		recs.Diagrams = append(recs.Diagrams, dg)
	}

	log.Info("extract loaded",
		"source", src.Name(),
		"packages", len(recs.Packages),
		"objects", len(recs.Objects),
		"attributes", len(recs.Attributes),
		"connectors", len(recs.Connectors),
		"skipped", recs.Skipped,
		"date_layout", dec.DateLayout(),
	)
	return recs, nil
}
