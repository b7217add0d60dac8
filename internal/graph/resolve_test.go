package graph

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eapgraph/internal/extract"
	"eapgraph/internal/model"
)

func jsonLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func class(id int, name string, pkg int) *model.Object {
	return &model.Object{ID: id, Type: model.TypeClass, Name: name, PackageID: pkg}
}

func attr(id, owner int, name string, pos int) *model.Attribute {
	return &model.Attribute{ID: id, ObjectID: owner, Name: name, Pos: pos}
}

func assoc(id, src, dst int, name string) *model.Connector {
	return &model.Connector{ID: id, Type: model.ConnectorAssociation, Name: name, SourceID: src, TargetID: dst}
}

func gen(id, sub, sup int) *model.Connector {
	return &model.Connector{ID: id, Type: model.ConnectorGeneralization, SourceID: sub, TargetID: sup}
}

func build(t *testing.T, recs *extract.Records) (*Document, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	doc, err := Build("test", recs, jsonLogger(&buf))
	require.NoError(t, err)
	return doc, &buf
}

func TestBuildOwnership(t *testing.T) {
	doc, _ := build(t, &extract.Records{
		Objects: []*model.Object{class(1, "Study", 0), class(2, "Code", 0)},
		Attributes: []*model.Attribute{
			attr(11, 1, "name", 2),
			attr(10, 1, "id", 1),
			{ID: 12, ObjectID: 1, Name: "code", Pos: 3, ClassifierID: 2},
		},
		Connectors: []*model.Connector{
			assoc(100, 1, 2, "codes"),
			{ID: 101, Type: "Dependency", SourceID: 1, TargetID: 2},
		},
	})

	study, ok := doc.Object(1)
	require.True(t, ok)
	assert.Equal(t, []int{10, 11, 12}, study.Attributes)
	assert.Equal(t, []int{100}, study.Outgoing)

	code, _ := doc.Object(2)
	assert.Equal(t, []int{100}, code.Incoming)
	assert.Equal(t, []int{12}, code.Classifies)

	_, ok = doc.Connector(101)
	assert.False(t, ok, "non association/generalization connectors are not kept")
	assert.Empty(t, doc.Issues())
	assert.Empty(t, doc.UsedTypes())
}

func TestBuildOrphanConnector(t *testing.T) {
	doc, buf := build(t, &extract.Records{
		Objects:    []*model.Object{class(1, "Study", 0)},
		Connectors: []*model.Connector{assoc(200, 1, 99, "ghost")},
	})

	assert.Len(t, doc.Orphans(), 1)
	assert.Empty(t, doc.Connectors())
	study, _ := doc.Object(1)
	assert.Empty(t, study.Outgoing)

	require.Len(t, doc.Issues(), 1)
	assert.Equal(t, IssueOrphanConnector, doc.Issues()[0].Code)
	assert.Equal(t, 1, strings.Count(buf.String(), `"msg":"orphan connector"`))
	assert.Contains(t, buf.String(), `"target_id":99`)
}

func TestBuildDanglingAttribute(t *testing.T) {
	var buf bytes.Buffer
	_, err := Build("test", &extract.Records{
		Objects:    []*model.Object{class(1, "Study", 0)},
		Attributes: []*model.Attribute{attr(10, 42, "lost", 0)},
	}, jsonLogger(&buf))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDanglingAttribute))
}

func TestBuildDuplicateObject(t *testing.T) {
	var buf bytes.Buffer
	_, err := Build("test", &extract.Records{
		Objects: []*model.Object{class(1, "A", 0), class(1, "B", 0)},
	}, jsonLogger(&buf))
	assert.True(t, errors.Is(err, ErrDuplicateID))
}

func TestBuildPackages(t *testing.T) {
	doc, _ := build(t, &extract.Records{
		Packages: []*model.Package{
			{ID: 1, Name: "Model", GUID: "{ROOT}"},
			{ID: 2, Name: "Core", ParentID: 1, GUID: "{CORE}"},
			{ID: 3, Name: "Loose", ParentID: 77},
		},
		Objects: []*model.Object{
			{ID: 5, Type: model.TypePackage, Name: "Core", GUID: "{CORE}", PackageID: 1},
			class(6, "Study", 2),
		},
	})

	obj, ok := doc.PackageObject(2)
	require.True(t, ok)
	assert.Equal(t, 5, obj.ID)
	require.NotNil(t, obj.Package)
	assert.Equal(t, "Core", obj.Package.Name)

	study, _ := doc.Object(6)
	assert.Equal(t, "Model.Core.Study", doc.QualifiedName(study))
	assert.Len(t, doc.ObjectsInPackage(2), 1)

	path, err := doc.PackagePath(3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Loose"}, path)

	require.Len(t, doc.Issues(), 1)
	assert.Equal(t, IssueDanglingPackageParent, doc.Issues()[0].Code)
	assert.Equal(t, 3, doc.Issues()[0].ID)
}

func TestBuildPackageCycle(t *testing.T) {
	doc, _ := build(t, &extract.Records{
		Packages: []*model.Package{
			{ID: 1, Name: "A", ParentID: 2},
			{ID: 2, Name: "B", ParentID: 1},
		},
		Objects: []*model.Object{class(3, "Study", 1)},
	})

	_, err := doc.PackagePath(1)
	assert.True(t, errors.Is(err, ErrPackageCycle))

	study, _ := doc.Object(3)
	assert.Equal(t, "Study", doc.QualifiedName(study))

	codes := make([]string, 0, len(doc.Issues()))
	for _, is := range doc.Issues() {
		codes = append(codes, is.Code)
	}
	assert.Equal(t, []string{IssuePackageCycle, IssuePackageCycle}, codes)
}

func TestBuildMultipleGeneralizations(t *testing.T) {
	doc, buf := build(t, &extract.Records{
		Objects:    []*model.Object{class(1, "Base", 0), class(2, "Other", 0), class(3, "Child", 0)},
		Connectors: []*model.Connector{gen(20, 3, 2), gen(10, 3, 1)},
	})

	child, _ := doc.Object(3)
	sup, ok := doc.Supertype(child)
	require.True(t, ok)
	assert.Equal(t, "Base", sup.Name, "lowest connector id wins")

	require.Len(t, doc.Issues(), 1)
	assert.Equal(t, IssueMultipleGeneralization, doc.Issues()[0].Code)
	assert.Contains(t, buf.String(), "multiple generalizations")
}

func TestBuildProperties(t *testing.T) {
	doc, _ := build(t, &extract.Records{
		Objects: []*model.Object{class(1, "Study", 0)},
		Properties: []*model.ObjectProperty{
			{ID: 1, ObjectID: 1, Name: "abstract", Value: "true"},
			{ID: 2, ObjectID: 9, Name: "lost"},
		},
	})
	study, _ := doc.Object(1)
	require.Len(t, study.Properties, 1)
	assert.Equal(t, "abstract", study.Properties[0].Name)
	require.Len(t, doc.Issues(), 1)
	assert.Equal(t, IssueUnknownPropertyOwner, doc.Issues()[0].Code)
}

func TestBuildDiagramsDropUnknownObjects(t *testing.T) {
	doc, _ := build(t, &extract.Records{
		Objects:  []*model.Object{class(1, "Study", 0)},
		Diagrams: []*model.Diagram{{ID: 4, Name: "Main", Objects: []int{1, 404}}},
	})
	require.Len(t, doc.Diagrams(), 1)
	assert.Equal(t, []int{1}, doc.Diagrams()[0].Objects)
}

func TestCodeListsUnique(t *testing.T) {
	doc, _ := build(t, &extract.Records{
		Objects:    []*model.Object{class(1, "Study", 0)},
		Attributes: []*model.Attribute{attr(10, 1, "a", 0), attr(11, 1, "b", 1), attr(12, 1, "c", 2)},
	})
	cl1 := &model.CodeList{Code: "C2"}
	cl2 := &model.CodeList{Code: "C1"}
	a, _ := doc.Attribute(10)
	a.CodeList = cl1
	b, _ := doc.Attribute(11)
	b.CodeList = cl1
	c, _ := doc.Attribute(12)
	c.CodeList = cl2

	lists := doc.CodeLists()
	require.Len(t, lists, 2)
	assert.Equal(t, "C1", lists[0].Code)
	assert.Equal(t, "C2", lists[1].Code)
}
