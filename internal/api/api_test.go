package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eapgraph/internal/extract"
	"eapgraph/internal/graph"
	"eapgraph/internal/model"
	"eapgraph/internal/pipeline"
	"eapgraph/internal/terminology"
)

func init() { gin.SetMode(gin.TestMode) }

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func sampleResult(t *testing.T) *pipeline.Result {
	t.Helper()
	var buf bytes.Buffer
	doc, err := graph.Build("sample", &extract.Records{
		Packages: []*model.Package{{ID: 1, Name: "DDF", GUID: "{P1}", Flags: []string{"isModel=1"}}},
		Objects: []*model.Object{
			{ID: 1, Type: model.TypeClass, Name: "Study", PackageID: 1},
			{ID: 2, Type: model.TypeClass, Name: "StudyVersion", PackageID: 1},
			{ID: 3, Type: model.TypeClass, Name: "Code", PackageID: 1},
			{ID: 4, Type: model.TypePackage, Name: "DDF", GUID: "{P1}"},
		},
		Attributes: []*model.Attribute{
			{ID: 10, ObjectID: 1, Name: "id", Type: "String", Pos: 0},
			{ID: 20, ObjectID: 2, Name: "versionNumber", Type: "String", Pos: 0},
			{ID: 21, ObjectID: 2, Name: "phase", Type: "Code", Pos: 1},
			{ID: 22, ObjectID: 2, Name: "status", Type: "Code", Pos: 2},
		},
		Connectors: []*model.Connector{
			{ID: 100, Type: model.ConnectorGeneralization, SourceID: 2, TargetID: 1},
			{ID: 101, Type: model.ConnectorAssociation, SourceID: 1, TargetID: 3, DestRole: "codes", DestCard: "0..*"},
			{ID: 102, Type: model.ConnectorAssociation, SourceID: 1, TargetID: 404, Name: "ghost"},
		},
	}, testLogger(&buf))
	require.NoError(t, err)

	phase, _ := doc.Attribute(21)
	phase.Bound = true
	phase.ValueList = "Y (C66737)"
	phase.CodeList = &model.CodeList{Code: "C66737", PreferredTerm: "Trial Phase", Source: "remote",
		Items: []model.PermissibleValue{{Code: "C15600"}}}
	status, _ := doc.Attribute(22)
	status.ValueList = "Y (C99999)"
	study, _ := doc.Object(1)
	study.Bound = true
	study.ReferenceCode = "C15206"

	return &pipeline.Result{
		Document: doc,
		Match:    terminology.MatchStats{Classes: 1, Missed: 2},
	}
}

func newTestServer(t *testing.T, load Loader) (*gin.Engine, *Storage) {
	t.Helper()
	var buf bytes.Buffer
	s := NewStorage(load, testLogger(&buf))
	return NewRouter(s), s
}

func do(t *testing.T, r http.Handler, method, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w
}

func TestNotLoaded(t *testing.T) {
	r, _ := newTestServer(t, func(context.Context) (*pipeline.Result, error) {
		return nil, errors.New("no extract")
	})
	for _, path := range []string{"/api/meta", "/api/classes", "/api/classes/Study", "/api/codelists", "/api/issues", "/api/packages"} {
		t.Run(path, func(t *testing.T) {
			w := do(t, r, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		})
	}

	w := do(t, r, http.MethodPost, "/api/admin/reload", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "no extract")
}

func TestReloadKeepsPreviousOnError(t *testing.T) {
	res := sampleResult(t)
	fail := false
	r, s := newTestServer(t, func(context.Context) (*pipeline.Result, error) {
		if fail {
			return nil, errors.New("broken extract")
		}
		return res, nil
	})

	var body map[string]any
	w := do(t, r, http.MethodPost, "/api/admin/reload", &body)
	require.Equal(t, http.StatusOK, w.Code)
	first := s.Current()
	require.NotNil(t, first)
	assert.Equal(t, first.LoadID, body["loadId"])
	assert.EqualValues(t, 3, body["classes"])

	fail = true
	w = do(t, r, http.MethodPost, "/api/admin/reload", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Same(t, first, s.Current())

	fail = false
	_, err := s.Reload(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.LoadID, s.Current().LoadID)
	assert.Greater(t, s.Current().LoadID, first.LoadID, "ulid ids are monotonic")
}

func loaded(t *testing.T) *gin.Engine {
	t.Helper()
	res := sampleResult(t)
	r, s := newTestServer(t, func(context.Context) (*pipeline.Result, error) { return res, nil })
	_, err := s.Reload(context.Background())
	require.NoError(t, err)
	return r
}

func TestMeta(t *testing.T) {
	var body struct {
		Name   string         `json:"name"`
		LoadID string         `json:"loadId"`
		Counts map[string]int `json:"counts"`
		Terms  map[string]int `json:"terminology"`
		Types  []string       `json:"usedTypes"`
	}
	w := do(t, loaded(t), http.MethodGet, "/api/meta", &body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sample", body.Name)
	assert.NotEmpty(t, body.LoadID)
	assert.Equal(t, 3, body.Counts["classes"])
	assert.Equal(t, 1, body.Counts["orphans"])
	assert.Equal(t, 1, body.Counts["codelists"])
	assert.Equal(t, 1, body.Terms["classes"])
	assert.Equal(t, []string{"String", "Code"}, body.Types)
}

func TestPackages(t *testing.T) {
	var body []packageView
	w := do(t, loaded(t), http.MethodGet, "/api/packages", &body)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, body, 1)
	assert.Equal(t, "DDF", body[0].Path)
	assert.Equal(t, 4, body[0].ObjectID)
	assert.Equal(t, 3, body[0].Objects)
	assert.Equal(t, []string{"isModel=1"}, body[0].Flags)
}

func TestClassList(t *testing.T) {
	r := loaded(t)

	t.Run("paging", func(t *testing.T) {
		var body []map[string]any
		w := do(t, r, http.MethodGet, "/api/classes?sort=name&limit=2&offset=1", &body)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-Total-Count"))
		require.Len(t, body, 2)
		assert.Equal(t, "Study", body[0]["name"])
		assert.Equal(t, "StudyVersion", body[1]["name"])
	})

	t.Run("sort desc numeric", func(t *testing.T) {
		var body []map[string]any
		do(t, r, http.MethodGet, "/api/classes?sort=-attributes,name", &body)
		require.Len(t, body, 3)
		assert.Equal(t, "StudyVersion", body[0]["name"])
		assert.Equal(t, "Study", body[1]["name"])
	})

	t.Run("filter and search", func(t *testing.T) {
		var body []map[string]any
		w := do(t, r, http.MethodGet, "/api/classes?supertype=study", &body)
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, body, 1)
		assert.Equal(t, "StudyVersion", body[0]["name"])

		do(t, r, http.MethodGet, "/api/classes?q=VERSION", &body)
		require.Len(t, body, 1)
	})
}

func TestClass(t *testing.T) {
	r := loaded(t)

	var v classView
	w := do(t, r, http.MethodGet, "/api/classes/StudyVersion", &v)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DDF.StudyVersion", v.QualifiedName)
	assert.Equal(t, "Study", v.Supertype)

	names := make([]string, 0, len(v.Members))
	for _, m := range v.Members {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"versionNumber", "phase", "status", "id", "codes"}, names)
	assert.Equal(t, "C66737", v.Members[1].CodeList)
	assert.Equal(t, "Study", v.Members[3].DeclaredBy)
	assert.Equal(t, "association", v.Members[4].Kind)
	assert.Equal(t, "Code", v.Members[4].Type)
	assert.Equal(t, "0..*", v.Members[4].Cardinality)

	var study classView
	w = do(t, r, http.MethodGet, "/api/classes/ddf.study", &study)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Study", study.Name)
	assert.Empty(t, study.Supertype)
	assert.Equal(t, []string{"StudyVersion"}, study.Subtypes)

	var code classView
	w = do(t, r, http.MethodGet, "/api/classes/code", &code)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Code", code.Name)

	w = do(t, r, http.MethodGet, "/api/classes/Nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCodeLists(t *testing.T) {
	r := loaded(t)

	var list []codeListSummary
	w := do(t, r, http.MethodGet, "/api/codelists", &list)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, list, 1)
	assert.Equal(t, codeListSummary{Code: "C66737", PreferredTerm: "Trial Phase", Items: 1, Source: "remote"}, list[0])

	var cl model.CodeList
	w = do(t, r, http.MethodGet, "/api/codelists/c66737", &cl)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "C15600", cl.Items[0].Code)

	w = do(t, r, http.MethodGet, "/api/codelists/C0", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIssues(t *testing.T) {
	r := loaded(t)

	var all []graph.Issue
	w := do(t, r, http.MethodGet, "/api/issues", &all)
	require.Equal(t, http.StatusOK, w.Code)

	byCode := map[string][]graph.Issue{}
	for _, is := range all {
		byCode[is.Code] = append(byCode[is.Code], is)
	}
	assert.Len(t, byCode[graph.IssueOrphanConnector], 1)
	assert.Len(t, byCode[IssueTerminologyUnbound], 2)
	require.Len(t, byCode[IssueCodeListUnresolved], 1)
	assert.Equal(t, "StudyVersion.status", byCode[IssueCodeListUnresolved][0].Name)

	var filtered []graph.Issue
	do(t, r, http.MethodGet, "/api/issues?code="+IssueCodeListUnresolved, &filtered)
	assert.Len(t, filtered, 1)

	w = do(t, r, http.MethodGet, "/api/issues?code=nothing", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestLintWithoutTerminology(t *testing.T) {
	res := sampleResult(t)
	res.Match = terminology.MatchStats{}
	for _, is := range Lint(res) {
		assert.NotEqual(t, IssueTerminologyUnbound, is.Code)
	}
}

func TestClassInheritedBinding(t *testing.T) {
	res := sampleResult(t)
	doc := res.Document
	sv, _ := doc.ClassByName("StudyVersion")
	id, ok := doc.InheritedMember(sv, "id")
	require.True(t, ok)
	e := doc.BindInherited(sv, id)
	e.Definition = "Version id."
	e.ValueList = "Y (C12345)"

	r, s := newTestServer(t, func(context.Context) (*pipeline.Result, error) { return res, nil })
	_, err := s.Reload(context.Background())
	require.NoError(t, err)

	var v classView
	w := do(t, r, http.MethodGet, "/api/classes/StudyVersion", &v)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "id", v.Members[3].Name)
	assert.Equal(t, "Version id.", v.Members[3].Definition)
	assert.Equal(t, "Study", v.Members[3].DeclaredBy)

	var study classView
	do(t, r, http.MethodGet, "/api/classes/Study", &study)
	require.Equal(t, "id", study.Members[0].Name)
	assert.Empty(t, study.Members[0].Definition)

	var issues []graph.Issue
	do(t, r, http.MethodGet, "/api/issues?code="+IssueCodeListUnresolved, &issues)
	names := make([]string, 0, len(issues))
	for _, is := range issues {
		names = append(names, is.Name)
	}
	assert.ElementsMatch(t, []string{"StudyVersion.status", "StudyVersion.id"}, names)
}
