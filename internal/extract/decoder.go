package extract

import (
	"fmt"
	"strings"
	"time"

	"eapgraph/internal/model"
)

const (
	layoutSlash = "01/02/06 15:04:05"
	layoutISO   = "2006-01-02 15:04:05"
)

// Decoder превращает строки выгрузки в типизированные записи.
// Формат дат определяется один раз, по первому непустому значению,
// поэтому на одну загрузку нужен один Decoder.
type Decoder struct {
	dateLayout string
}

func NewDecoder() *Decoder { return &Decoder{} }

// DateLayout: обнаруженный формат дат ("" пока дат не встречалось)
func (d *Decoder) DateLayout() string { return d.dateLayout }

type fields struct {
	table string
	row   Row
	err   error
}

func (f *fields) fail(field string, v any, err error) {
	if f.err == nil {
		f.err = &FieldError{Table: f.table, Field: field, Value: v, Err: err}
	}
}

func (f *fields) str(keys ...string) string {
	v, _ := f.row.get(keys...)
	return strings.TrimSpace(asString(v))
}

// text: как str, но без обрезки пробелов (заметки, описания)
func (f *fields) text(keys ...string) string {
	v, _ := f.row.get(keys...)
	return asString(v)
}

func (f *fields) int(keys ...string) int {
	v, _ := f.row.get(keys...)
	n, err := asInt(v)
	if err != nil {
		f.fail(keys[0], v, err)
	}
	return n
}

func (f *fields) id(key string) int {
	v, ok := f.row.get(key)
	if !ok {
		f.fail(key, nil, errMissing)
		return 0
	}
	n, err := asInt(v)
	if err != nil {
		f.fail(key, v, err)
	}
	return n
}

func (f *fields) flag(key string) bool {
	v, _ := f.row.get(key)
	b, err := asFlag(v)
	if err != nil {
		f.fail(key, v, err)
	}
	return b
}

func (d *Decoder) date(f *fields, key string) *time.Time {
	v, ok := f.row.get(key)
	if !ok {
		return nil
	}
	if t, ok := v.(time.Time); ok {
		return &t
	}
	s := strings.TrimSpace(asString(v))
	if s == "" {
		return nil
	}
	if d.dateLayout == "" {
		if strings.Contains(s, "/") {
			d.dateLayout = layoutSlash
		} else {
			d.dateLayout = layoutISO
		}
	}
	t, err := time.Parse(d.dateLayout, s)
	if err != nil {
		f.fail(key, v, fmt.Errorf("date does not match %q", d.dateLayout))
		return nil
	}
	return &t
}

func (d *Decoder) DecodeObject(r Row) (*model.Object, error) {
	f := &fields{table: TableObject, row: r}
	id := f.id("Object_ID")
	raw := f.str("Object_Type")
	typ, ok := model.ParseObjectType(raw)
	if f.err == nil && !ok {
		return nil, fmt.Errorf("object %d: %w: %q", id, ErrUnknownObjectType, raw)
	}
	o := &model.Object{
		ID:           id,
		Type:         typ,
		Name:         f.str("Name"),
		Note:         f.text("Note", "Notes"),
		Author:       f.str("Author"),
		Version:      f.str("Version"),
		Phase:        f.str("Phase"),
		Stereotype:   f.str("Stereotype"),
		GUID:         f.str("ea_guid"),
		PackageID:    f.int("Package_ID"),
		ParentID:     f.int("ParentID"),
		DiagramID:    f.int("Diagram_ID"),
		NType:        f.int("NType"),
		Complexity:   f.str("Complexity"),
		Effort:       f.int("Effort"),
		Classifier:   f.int("Classifier"),
		PDATA1:       f.str("PDATA1"),
		CreatedDate:  d.date(f, "CreatedDate"),
		ModifiedDate: d.date(f, "ModifiedDate"),
		IsRoot:       f.flag("IsRoot"),
		IsLeaf:       f.flag("IsLeaf"),
		IsSpec:       f.flag("IsSpec"),
		IsActive:     f.flag("IsActive"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return o, nil
}

func (d *Decoder) DecodeAttribute(r Row) (*model.Attribute, error) {
	f := &fields{table: TableAttribute, row: r}
	a := &model.Attribute{
		ID:              f.id("ID"),
		ObjectID:        f.id("Object_ID"),
		Name:            f.str("Name"),
		Type:            f.str("Type"),
		Scope:           f.str("Scope"),
		Containment:     f.str("Containment"),
		Stereotype:      f.str("Stereotype"),
		Default:         f.str("Default"),
		Note:            f.text("Notes", "Note"),
		GUID:            f.str("ea_guid"),
		Pos:             f.int("Pos"),
		Length:          f.int("Length"),
		LowerBound:      f.str("LowerBound"),
		UpperBound:      f.str("UpperBound"),
		ClassifierID:    f.int("Classifier"),
		IsStatic:        f.flag("IsStatic"),
		IsCollection:    f.flag("IsCollection"),
		IsOrdered:       f.flag("IsOrdered"),
		AllowDuplicates: f.flag("AllowDuplicates"),
		Derived:         f.flag("Derived"),
		Const:           f.flag("Const"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return a, nil
}

func (d *Decoder) DecodeConnector(r Row) (*model.Connector, error) {
	f := &fields{table: TableConnector, row: r}
	c := &model.Connector{
		ID:                f.id("Connector_ID"),
		Type:              f.str("Connector_Type"),
		Name:              f.str("Name"),
		SourceID:          f.int("Start_Object_ID"),
		TargetID:          f.int("End_Object_ID"),
		SourceCard:        f.str("SourceCard"),
		DestCard:          f.str("DestCard"),
		Direction:         f.str("Direction"),
		SourceRole:        f.str("SourceRole"),
		DestRole:          f.str("DestRole"),
		TopEndLabel:       f.str("Top_End_Label"),
		Stereotype:        f.str("Stereotype"),
		GUID:              f.str("ea_guid"),
		DiagramID:         f.int("DiagramID"),
		SourceIsAggregate: f.int("SourceIsAggregate"),
		DestIsAggregate:   f.int("DestIsAggregate"),
		IsRoot:            f.flag("IsRoot"),
		IsLeaf:            f.flag("IsLeaf"),
		IsSpec:            f.flag("IsSpec"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return c, nil
}

func (d *Decoder) DecodePackage(r Row) (*model.Package, error) {
	f := &fields{table: TablePackage, row: r}
	p := &model.Package{
		ID:           f.id("Package_ID"),
		Name:         f.str("Name"),
		ParentID:     f.int("Parent_ID"),
		GUID:         f.str("ea_guid"),
		Notes:        f.text("Notes"),
		Version:      f.str("Version"),
		CreatedDate:  d.date(f, "CreatedDate"),
		ModifiedDate: d.date(f, "ModifiedDate"),
		LastLoadDate: d.date(f, "LastLoadDate"),
		LastSaveDate: d.date(f, "LastSaveDate"),
		IsControlled: f.flag("IsControlled"),
		Protected:    f.flag("Protected"),
		UseDTD:       f.flag("UseDTD"),
		LogXML:       f.flag("LogXML"),
		BatchSave:    f.flag("BatchSave"),
		BatchLoad:    f.flag("BatchLoad"),
		Flags:        splitFlags(f.str("PackageFlags")),
	}
	if f.err != nil {
		return nil, f.err
	}
	return p, nil
}

func splitFlags(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (d *Decoder) DecodeDataType(r Row) (*model.DataType, error) {
	f := &fields{table: TableDataTypes, row: r}
	dt := &model.DataType{
		ID:          f.id("DatatypeID"),
		Type:        f.str("Type"),
		ProductName: f.str("Product_Name"),
		Datatype:    f.str("Datatype"),
		GenericType: f.str("GenericType"),
		Size:        f.int("Size"),
		MaxLen:      f.int("MaxLen"),
		MaxPrec:     f.int("MaxPrec"),
		MaxScale:    f.int("MaxScale"),
		DefaultLen:  f.int("DefaultLen"),
		User:        f.flag("User"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return dt, nil
}

func (d *Decoder) DecodeObjectProperty(r Row) (*model.ObjectProperty, error) {
	f := &fields{table: TableObjectProperties, row: r}
	p := &model.ObjectProperty{
		ID:       f.id("PropertyID"),
		ObjectID: f.id("Object_ID"),
		Name:     f.str("Property"),
		Value:    f.text("Value"),
		GUID:     f.str("ea_guid"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return p, nil
}

func (d *Decoder) DecodeDiagram(r Row) (*model.Diagram, error) {
	f := &fields{table: TableDiagram, row: r}
	dg := &model.Diagram{
		ID:      f.id("Diagram_ID"),
		Name:    f.str("Name"),
		Type:    f.str("Diagram_Type"),
		Version: f.str("Version"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return dg, nil
}

func (d *Decoder) DecodeDiagramObject(r Row) (*model.DiagramObject, error) {
	f := &fields{table: TableDiagramObjects, row: r}
	do := &model.DiagramObject{
		DiagramID: f.id("Diagram_ID"),
		ObjectID:  f.id("Object_ID"),
		Sequence:  f.int("Sequence"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return do, nil
}
