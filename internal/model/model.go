package model

import (
	"strings"
	"time"
)

// ObjectType: дискриминатор строки t_object (Object_Type)
type ObjectType string

const (
	TypeClass       ObjectType = "Class"
	TypeEnumeration ObjectType = "Enumeration"
	TypePackage     ObjectType = "Package"
	TypeNote        ObjectType = "Note"
	TypeBoundary    ObjectType = "Boundary"
	TypeText        ObjectType = "Text"
	TypeArtifact    ObjectType = "Artifact"
	TypeState       ObjectType = "State"
	TypeStateNode   ObjectType = "StateNode"
)

var knownTypes = map[ObjectType]struct{}{
	TypeClass: {}, TypeEnumeration: {}, TypePackage: {}, TypeNote: {}, TypeBoundary: {},
	TypeText: {}, TypeArtifact: {}, TypeState: {}, TypeStateNode: {},
}

// ParseObjectType возвращает ok=false для неизвестных типов
func ParseObjectType(s string) (ObjectType, bool) {
	t := ObjectType(strings.TrimSpace(s))
	_, ok := knownTypes[t]
	return t, ok
}

const (
	ConnectorAssociation    = "Association"
	ConnectorGeneralization = "Generalization"
)

// Enrichment: данные из терминологии; заполняются после построения графа
type Enrichment struct {
	Definition       string
	ReferenceCode    string // NCI C-code или URL
	PreferredTerm    string
	Synonyms         []string
	ValueList        string // сырой дескриптор "Has Value List"
	CodeList         *CodeList
	ExternalCodeList string
	Bound            bool
}

// Object описывает узел модели (класс, перечисление, пакет, заметка и т.д.)
type Object struct {
	ID           int
	Type         ObjectType
	Name         string
	Note         string
	Author       string
	Version      string
	Phase        string
	Stereotype   string
	GUID         string
	PackageID    int // владелец (t_package.Package_ID)
	ParentID     int
	DiagramID    int
	NType        int
	Complexity   string
	Effort       int
	Classifier   int
	PDATA1       string
	CreatedDate  *time.Time
	ModifiedDate *time.Time
	IsRoot       bool
	IsLeaf       bool
	IsSpec       bool
	IsActive     bool

	// связи храним id-шниками, живые объекты достаются через Document
	Attributes      []int // собственные атрибуты, по Pos
	Outgoing        []int // исходящие ассоциации (connector id)
	Incoming        []int // входящие ассоциации (connector id)
	Generalizations []int // connector id, сторона подтипа
	Specializations []int // connector id, сторона супертипа
	Classifies      []int // атрибуты, у которых этот объект указан классификатором
	Properties      []ObjectProperty

	// только для Type == Package: метаданные из t_package
	Package *Package

	Enrichment
}

func (o *Object) IsClass() bool { return o.Type == TypeClass }

// Description: definition, иначе note
func (o *Object) Description() string {
	if d := strings.TrimSpace(o.Definition); d != "" {
		return d
	}
	return strings.TrimSpace(o.Note)
}

// Attribute: строка t_attribute
type Attribute struct {
	ID              int
	ObjectID        int
	Name            string
	Type            string
	Scope           string
	Containment     string
	Stereotype      string
	Default         string
	Note            string
	GUID            string
	Pos             int
	Length          int
	LowerBound      string
	UpperBound      string
	ClassifierID    int
	IsStatic        bool
	IsCollection    bool
	IsOrdered       bool
	AllowDuplicates bool
	Derived         bool
	Const           bool

	Enrichment
}

// Cardinality: "lower..upper", если обе границы заданы, иначе 1..1
func (a *Attribute) Cardinality() string {
	if a.LowerBound != "" && a.UpperBound != "" {
		return a.LowerBound + ".." + a.UpperBound
	}
	return "1..1"
}

func (a *Attribute) Description() string {
	if d := strings.TrimSpace(a.Definition); d != "" {
		return d
	}
	return strings.TrimSpace(a.Note)
}

// Connector: строка t_connector
type Connector struct {
	ID                int
	Type              string
	Name              string
	SourceID          int
	TargetID          int
	SourceCard        string
	DestCard          string
	Direction         string
	SourceRole        string
	DestRole          string
	TopEndLabel       string
	Stereotype        string
	GUID              string
	DiagramID         int
	SourceIsAggregate int
	DestIsAggregate   int
	IsRoot            bool
	IsLeaf            bool
	IsSpec            bool

	Enrichment
}

func (c *Connector) IsAssociation() bool    { return c.Type == ConnectorAssociation }
func (c *Connector) IsGeneralization() bool { return c.Type == ConnectorGeneralization }

// Optional: кардинальность назначения начинается с 0
func (c *Connector) Optional() bool { return strings.HasPrefix(c.DestCard, "0") }

// Multivalued: кардинальность назначения заканчивается на *
func (c *Connector) Multivalued() bool { return strings.HasSuffix(c.DestCard, "*") }

func (c *Connector) Cardinality() string {
	if c.DestCard != "" {
		return c.DestCard
	}
	return "1..1"
}

// Package: метаданные пакета из t_package
type Package struct {
	ID           int
	Name         string
	ParentID     int
	GUID         string
	Notes        string
	Version      string
	CreatedDate  *time.Time
	ModifiedDate *time.Time
	LastLoadDate *time.Time
	LastSaveDate *time.Time
	IsControlled bool
	Protected    bool
	UseDTD       bool
	LogXML       bool
	BatchSave    bool
	BatchLoad    bool
	Flags        []string
}

// DataType: строка t_datatypes
type DataType struct {
	ID          int
	Type        string
	ProductName string
	Datatype    string
	GenericType string
	Size        int
	MaxLen      int
	MaxPrec     int
	MaxScale    int
	DefaultLen  int
	User        bool
}

// ObjectProperty: строка t_objectproperties (tagged values)
type ObjectProperty struct {
	ID       int
	ObjectID int
	Name     string
	Value    string
	GUID     string
}

type Diagram struct {
	ID      int
	Name    string
	Type    string
	Version string
	Objects []int // object id по Sequence
}

// DiagramObject: строка t_diagramobjects
type DiagramObject struct {
	DiagramID int
	ObjectID  int
	Sequence  int
}
