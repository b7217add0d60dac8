package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"eapgraph/internal/model"
)

var (
	ErrDanglingAttribute = errors.New("attribute owner not found")
	ErrPackageCycle      = errors.New("package parent cycle")
	ErrDuplicateID       = errors.New("duplicate id")
)

// Issue: структурная проблема модели, найденная при сборке графа
type Issue struct {
	Code    string `json:"code"`
	ID      int    `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

const (
	IssueOrphanConnector        = "orphan_connector"
	IssueMultipleGeneralization = "multiple_generalizations"
	IssueGeneralizationCycle    = "generalization_cycle"
	IssuePackageCycle           = "package_cycle"
	IssueDanglingPackageParent  = "dangling_package_parent"
	IssueUnknownPropertyOwner   = "unknown_property_owner"
)

// Document: корень графа. Все связи хранятся id-шниками в арене,
// живые объекты достаются через таблицы поиска. После обогащения
// структура не меняется.
type Document struct {
	Name string

	objects    map[int]*model.Object
	attributes map[int]*model.Attribute
	connectors map[int]*model.Connector
	packages   map[int]*model.Package // t_package.Package_ID -> метаданные
	pkgObjects map[int]*model.Object  // t_package.Package_ID -> объект-пакет
	dataTypes  []*model.DataType
	diagrams   []*model.Diagram
	orphans    []*model.Connector
	issues     []Issue
	inherited  map[bindingKey]*model.Enrichment // привязки унаследованных членов по классам
}

func (d *Document) Object(id int) (*model.Object, bool) {
	o, ok := d.objects[id]
	return o, ok
}

func (d *Document) Attribute(id int) (*model.Attribute, bool) {
	a, ok := d.attributes[id]
	return a, ok
}

func (d *Document) Connector(id int) (*model.Connector, bool) {
	c, ok := d.connectors[id]
	return c, ok
}

// Objects: все объекты по возрастанию id
func (d *Document) Objects() []*model.Object {
	out := lo.Values(d.objects)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *Document) ofType(t model.ObjectType) []*model.Object {
	return lo.Filter(d.Objects(), func(o *model.Object, _ int) bool { return o.Type == t })
}

func (d *Document) Classes() []*model.Object      { return d.ofType(model.TypeClass) }
func (d *Document) Enumerations() []*model.Object { return d.ofType(model.TypeEnumeration) }

// Packages: объекты-пакеты по возрастанию id
func (d *Document) Packages() []*model.Object { return d.ofType(model.TypePackage) }

func (d *Document) Attributes() []*model.Attribute {
	out := lo.Values(d.attributes)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Connectors: только разрешённые коннекторы (без сирот)
func (d *Document) Connectors() []*model.Connector {
	out := lo.Values(d.connectors)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *Document) DataTypes() []*model.DataType { return d.dataTypes }
func (d *Document) Diagrams() []*model.Diagram   { return d.diagrams }

// Orphans: коннекторы, у которых не нашлась одна из сторон
func (d *Document) Orphans() []*model.Connector { return d.orphans }

func (d *Document) Issues() []Issue { return d.issues }

// ClassByName: класс с точным именем; при дублях с меньшим id
func (d *Document) ClassByName(name string) (*model.Object, bool) {
	return lo.Find(d.Classes(), func(o *model.Object) bool { return o.Name == name })
}

// ObjectsInPackage: объекты, чей Package_ID равен pkgID
func (d *Document) ObjectsInPackage(pkgID int) []*model.Object {
	return lo.Filter(d.Objects(), func(o *model.Object, _ int) bool { return o.PackageID == pkgID })
}

// PackageMeta: запись t_package по Package_ID
func (d *Document) PackageMeta(pkgID int) (*model.Package, bool) {
	p, ok := d.packages[pkgID]
	return p, ok
}

// PackageObject: объект-пакет, сопоставленный записи t_package по ea_guid
func (d *Document) PackageObject(pkgID int) (*model.Object, bool) {
	o, ok := d.pkgObjects[pkgID]
	return o, ok
}

// PackagePath возвращает имена пакетов от корня до pkgID. Висячий
// родитель обрывает путь; цикл даёт ErrPackageCycle.
func (d *Document) PackagePath(pkgID int) ([]string, error) {
	var path []string
	visited := map[int]bool{}
	for id := pkgID; id != 0; {
		if visited[id] {
			return nil, fmt.Errorf("package %d: %w", pkgID, ErrPackageCycle)
		}
		visited[id] = true
		p, ok := d.packages[id]
		if !ok {
			break
		}
		path = append(path, p.Name)
		id = p.ParentID
	}
	return lo.Reverse(path), nil
}

// QualifiedName: "Root.Sub.Name" для объекта; при цикле пакетов просто имя
func (d *Document) QualifiedName(o *model.Object) string {
	path, err := d.PackagePath(o.PackageID)
	if err != nil || len(path) == 0 {
		return o.Name
	}
	return strings.Join(append(path, o.Name), ".")
}

// UsedTypes: уникальные объявленные типы атрибутов в порядке появления
func (d *Document) UsedTypes() []string {
	var types []string
	for _, o := range d.Objects() {
		for _, id := range o.Attributes {
			if a := d.attributes[id]; a.Type != "" {
				types = append(types, a.Type)
			}
		}
	}
	return lo.Uniq(types)
}

// CodeLists: все привязанные codelist'ы, по коду
func (d *Document) CodeLists() []*model.CodeList {
	seen := map[string]*model.CodeList{}
	add := func(e *model.Enrichment) {
		if e.CodeList != nil {
			if _, ok := seen[e.CodeList.Code]; !ok {
				seen[e.CodeList.Code] = e.CodeList
			}
		}
	}
	for _, o := range d.objects {
		add(&o.Enrichment)
	}
	for _, a := range d.attributes {
		add(&a.Enrichment)
	}
	for _, c := range d.connectors {
		add(&c.Enrichment)
	}
	for _, e := range d.inherited {
		add(e)
	}
	out := lo.Values(seen)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Supertype: цель первого обобщения (политика одного суперкласса)
func (d *Document) Supertype(o *model.Object) (*model.Object, bool) {
	if len(o.Generalizations) == 0 {
		return nil, false
	}
	c := d.connectors[o.Generalizations[0]]
	t, ok := d.objects[c.TargetID]
	return t, ok
}
