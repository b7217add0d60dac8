package pg

import (
	"fmt"
	"strings"
)

type colType string

const (
	colInt  colType = "bigint"
	colText colType = "text"
)

type column struct {
	Name string
	Type colType
}

func ints(names ...string) []column {
	out := make([]column, len(names))
	for i, n := range names {
		out[i] = column{Name: n, Type: colInt}
	}
	return out
}

func texts(names ...string) []column {
	out := make([]column, len(names))
	for i, n := range names {
		out[i] = column{Name: n, Type: colText}
	}
	return out
}

func cols(groups ...[]column) []column {
	var out []column
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// extractTables: колонки таблиц выгрузки в том виде, как их пишет
// инструмент моделирования. Даты храним текстом: формат разбирает декодер.
var extractTables = map[string][]column{
	"t_package": cols(
		ints("Package_ID", "Parent_ID", "IsControlled", "Protected", "UseDTD", "LogXML", "BatchSave", "BatchLoad"),
		texts("Name", "CreatedDate", "ModifiedDate", "Notes", "ea_guid", "Version", "LastLoadDate", "LastSaveDate", "PackageFlags"),
	),
	"t_object": cols(
		ints("Object_ID", "Diagram_ID", "Package_ID", "NType", "Effort", "Classifier", "ParentID", "IsRoot", "IsLeaf", "IsSpec", "IsActive"),
		texts("Object_Type", "Name", "Alias", "Author", "Version", "Note", "Stereotype", "Complexity", "Phase", "Scope", "Status", "ea_guid", "PDATA1", "CreatedDate", "ModifiedDate"),
	),
	"t_attribute": cols(
		ints("ID", "Object_ID", "Pos", "Length", "Classifier", "IsStatic", "IsCollection", "IsOrdered", "AllowDuplicates", "Derived", "Const"),
		texts("Name", "Type", "Scope", "Containment", "Stereotype", "Default", "Notes", "ea_guid", "LowerBound", "UpperBound"),
	),
	"t_connector": cols(
		ints("Connector_ID", "Start_Object_ID", "End_Object_ID", "DiagramID", "SourceIsAggregate", "DestIsAggregate", "IsRoot", "IsLeaf", "IsSpec"),
		texts("Connector_Type", "Name", "SourceCard", "DestCard", "Direction", "SourceRole", "DestRole", "Top_End_Label", "Stereotype", "ea_guid"),
	),
	"t_objectproperties": cols(
		ints("PropertyID", "Object_ID"),
		texts("Property", "Value", "ea_guid"),
	),
	"t_datatypes": cols(
		ints("DatatypeID", "Size", "MaxLen", "MaxPrec", "MaxScale", "DefaultLen", "User"),
		texts("Type", "Product_Name", "Datatype", "GenericType"),
	),
	"t_diagram": cols(
		ints("Diagram_ID"),
		texts("Name", "Diagram_Type", "Version"),
	),
	"t_diagramobjects": cols(
		ints("Diagram_ID", "Object_ID", "Sequence"),
	),
}

var tableOrder = []string{
	"t_package", "t_object", "t_datatypes", "t_objectproperties",
	"t_attribute", "t_connector", "t_diagram", "t_diagramobjects",
}

func sqlIdent(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }

// ExtractDDL возвращает create table для всех таблиц выгрузки, по одной
// инструкции на таблицу, в порядке загрузки. Имена колонок кавычим:
// декодер ищет их в исходном регистре.
func ExtractDDL() []string {
	out := make([]string, 0, len(tableOrder)+1)
	for _, t := range tableOrder {
		var defs []string
		for _, c := range extractTables[t] {
			defs = append(defs, fmt.Sprintf("%s %s null", sqlIdent(c.Name), c.Type))
		}
		out = append(out, fmt.Sprintf("create table if not exists %s (\n  %s\n)", sqlIdent(t), strings.Join(defs, ",\n  ")))
	}
	out = append(out, `create index if not exists t_diagramobjects_diagram_idx on "t_diagramobjects"("Diagram_ID", "Sequence")`)
	return out
}
