// Package terminology загружает терминологию модели (сущности, атрибуты,
// наборы допустимых значений) и привязывает её к графу по именам.
package terminology

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"eapgraph/internal/model"
)

const (
	RoleEntity              = "Entity"
	RoleAttribute           = "Attribute"
	RoleRelationship        = "Relationship"
	RoleComplexRelationship = "Complex Datatype Relationship"
)

// Entry: строка терминологии, сущность либо её атрибут/связь
type Entry struct {
	EntityName    string
	LogicalName   string
	Role          string
	CCode         string
	PreferredTerm string
	Synonyms      []string
	Definition    string
	ValueList     string // "Has Value List" как есть
	CodelistURL   string
	InheritedFrom string

	// только у сущностей
	Attributes    []*Entry
	Relationships []*Entry
	Complex       []*Entry

	// локальный набор значений из листа value sets
	CodeList *model.CodeList
}

// HasValueList: дескриптор начинается с "Y"
func (e *Entry) HasValueList() bool { return strings.HasPrefix(strings.TrimSpace(e.ValueList), "Y") }

// QualifiedName: имя с префиксом сущности в нижнем регистре,
// если логическое имя ещё не начинается с имени сущности
func (e *Entry) QualifiedName() string {
	if e.LogicalName == "" || strings.HasPrefix(strings.ToLower(e.LogicalName), strings.ToLower(e.EntityName)) {
		return e.LogicalName
	}
	r, size := utf8.DecodeRuneInString(e.LogicalName)
	return strings.ToLower(e.EntityName) + string(unicode.ToUpper(r)) + e.LogicalName[size:]
}

// Attribute ищет член сущности: атрибуты, затем связи сложных типов,
// затем связи. В каждой группе: точное имя, иначе квалифицированное.
func (e *Entry) Attribute(name string) (*Entry, bool) {
	for _, group := range [][]*Entry{e.Attributes, e.Complex, e.Relationships} {
		for _, a := range group {
			if a.LogicalName == name || a.QualifiedName() == name {
				return a, true
			}
		}
	}
	return nil, false
}

func (e *Entry) add(m *Entry) {
	switch m.Role {
	case RoleAttribute:
		e.Attributes = append(e.Attributes, m)
	case RoleRelationship:
		e.Relationships = append(e.Relationships, m)
	case RoleComplexRelationship:
		e.Complex = append(e.Complex, m)
	}
}

// Catalog: терминология по имени сущности плюс локальные codelist'ы
type Catalog struct {
	entities  map[string]*Entry
	codeLists map[string]*model.CodeList
}

func NewCatalog() *Catalog {
	return &Catalog{entities: map[string]*Entry{}, codeLists: map[string]*model.CodeList{}}
}

// Entity: запись сущности по точному имени
func (c *Catalog) Entity(name string) (*Entry, bool) {
	if c == nil {
		return nil, false
	}
	e, ok := c.entities[name]
	return e, ok
}

func (c *Catalog) Entities() []*Entry {
	out := make([]*Entry, 0, len(c.entities))
	for _, e := range c.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityName < out[j].EntityName })
	return out
}

// CodeLists: локальные наборы значений по коду (без CNEW, такие наборы
// привязаны к конкретному атрибуту, а не к коду)
func (c *Catalog) CodeLists() map[string]*model.CodeList { return c.codeLists }
