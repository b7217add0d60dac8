package terminology

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"eapgraph/internal/model"
)

const (
	SheetEntities  = "DDF Entities&Attributes"
	SheetValueSets = "DDF valid value sets"

	valueSetFirstRow = 7
)

// колонки листа сущностей: заголовок -> позиция по умолчанию
var entityColumns = map[string]int{
	"Entity Name":             1,
	"Role":                    2,
	"Logical Data Model Name": 3,
	"NCI C-code":              4,
	"CT Item Preferred Name":  5,
	"Synonym(s)":              6,
	"Definition":              7,
	"Has Value List":          8,
	"Codelist URL":            9,
	"Inherited From":          10,
}

// LoadWorkbook читает терминологию из .xlsx. Неизвестная роль или набор
// значений для неизвестного атрибута: предупреждение, строка пропускается.
func LoadWorkbook(path string, log *slog.Logger) (*Catalog, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetEntities)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", SheetEntities, err)
	}
	cat := NewCatalog()
	if err := cat.loadEntities(rows, log); err != nil {
		return nil, err
	}

	vrows, err := f.GetRows(SheetValueSets)
	if err != nil {
		log.Warn("value set sheet not found", "sheet", SheetValueSets, "err", err)
		vrows = nil
	}
	cat.loadValueSets(vrows, log)

	log.Info("terminology loaded", "path", path, "entities", len(cat.entities), "codelists", len(cat.codeLists))
	return cat, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func splitSynonyms(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ";") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// columnIndex: позиции по заголовку; не найденные по умолчанию
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(entityColumns))
	for name, pos := range entityColumns {
		idx[name] = pos
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, ok := entityColumns[h]; ok {
			idx[h] = i
		}
	}
	return idx
}

func (c *Catalog) loadEntities(rows [][]string, log *slog.Logger) error {
	if len(rows) == 0 {
		return fmt.Errorf("sheet %q is empty", SheetEntities)
	}
	col := columnIndex(rows[0])

	var members []*Entry
	for n, row := range rows[1:] {
		get := func(name string) string { return cell(row, col[name]) }
		e := &Entry{
			EntityName:    get("Entity Name"),
			Role:          get("Role"),
			LogicalName:   get("Logical Data Model Name"),
			CCode:         get("NCI C-code"),
			PreferredTerm: get("CT Item Preferred Name"),
			Synonyms:      splitSynonyms(get("Synonym(s)")),
			Definition:    get("Definition"),
			ValueList:     get("Has Value List"),
			CodelistURL:   get("Codelist URL"),
			InheritedFrom: get("Inherited From"),
		}
		if e.EntityName == "" && e.Role == "" {
			continue
		}
		switch e.Role {
		case RoleEntity:
			if _, dup := c.entities[e.EntityName]; !dup {
				c.entities[e.EntityName] = e
			}
		case RoleAttribute, RoleRelationship, RoleComplexRelationship:
			members = append(members, e)
		default:
			log.Warn("unknown terminology role", "row", n+2, "entity", e.EntityName, "role", e.Role)
		}
	}
	for _, m := range members {
		ent, ok := c.entities[m.EntityName]
		if !ok {
			log.Warn("terminology member without entity", "entity", m.EntityName, "name", m.LogicalName)
			continue
		}
		ent.add(m)
	}
	return nil
}

// loadValueSets группирует строки по (сущность, атрибут, код) и вешает
// набор на запись атрибута
func (c *Catalog) loadValueSets(rows [][]string, log *slog.Logger) {
	type key struct{ entity, attribute, code string }
	groups := map[key]*model.CodeList{}

	for i := valueSetFirstRow - 1; i < len(rows); i++ {
		row := rows[i]
		entity, attribute, code := cell(row, 1), cell(row, 2), cell(row, 3)
		if code == "" {
			continue
		}
		k := key{entity, attribute, code}
		cl, ok := groups[k]
		if !ok {
			cl = &model.CodeList{
				Code:            code,
				SubmissionValue: code,
				EntityName:      entity,
				AttributeName:   attribute,
				Source:          "workbook",
			}
			groups[k] = cl

			if ent, ok := c.entities[entity]; !ok {
				log.Warn("value set for unknown entity", "row", i+1, "entity", entity, "code", code)
			} else if attr, ok := ent.Attribute(attribute); !ok {
				log.Warn("value set for unknown attribute", "row", i+1, "entity", entity, "attribute", attribute, "code", code)
			} else if attr.CodeList == nil {
				attr.CodeList = cl
			}
			if _, seen := c.codeLists[code]; !seen && code != model.CNEW {
				c.codeLists[code] = cl
			}
		}
		cl.Add(model.PermissibleValue{
			Code:          cell(row, 4),
			PreferredTerm: cell(row, 5),
			Synonyms:      splitSynonyms(cell(row, 6)),
			Definition:    cell(row, 7),
		})
	}
}
