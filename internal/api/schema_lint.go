// api/schema_lint.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eapgraph/internal/graph"
	"eapgraph/internal/model"
	"eapgraph/internal/pipeline"
	"eapgraph/internal/reference"
)

const (
	IssueTerminologyUnbound = "terminology_unbound"
	IssueCodeListUnresolved = "codelist_unresolved"
)

// Lint: структурные проблемы сборки плюс пробелы обогащения
func Lint(res *pipeline.Result) []graph.Issue {
	doc := res.Document
	issues := append([]graph.Issue(nil), doc.Issues()...)

	// привязка к терминологии имеет смысл, только если терминология была
	withTerminology := res.Match.Classes > 0 || res.Match.Missed > 0
	for _, o := range doc.Classes() {
		if withTerminology && !o.Bound {
			issues = append(issues, graph.Issue{
				Code:    IssueTerminologyUnbound,
				ID:      o.ID,
				Name:    o.Name,
				Message: "class has no terminology entry",
			})
		}
		for _, m := range doc.OwnMembers(o) {
			if is, ok := unresolved(o, m, m.Enrichment()); ok {
				issues = append(issues, is)
			}
		}
	}
	for _, b := range doc.InheritedBindings() {
		if is, ok := unresolved(b.Class, b.Member, b.Enrichment); ok {
			issues = append(issues, is)
		}
	}
	return issues
}

// unresolved: дескриптор объявляет набор значений, а codelist не привязан
func unresolved(o *model.Object, m graph.Member, e *model.Enrichment) (graph.Issue, bool) {
	if e.ValueList == "" || e.CodeList != nil || e.ExternalCodeList != "" {
		return graph.Issue{}, false
	}
	if d, err := reference.ParseDescriptor(e.ValueList); err == nil && !d.HasValueList {
		return graph.Issue{}, false
	}
	return graph.Issue{
		Code:    IssueCodeListUnresolved,
		ID:      m.ID(),
		Name:    o.Name + "." + m.Name(),
		Message: "value list declared but no codelist bound: " + e.ValueList,
	}, true
}

func IssuesHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := current(storage, c)
		if !ok {
			return
		}
		issues := Lint(snap.Result)
		if code := c.Query("code"); code != "" {
			filtered := issues[:0]
			for _, is := range issues {
				if is.Code == code {
					filtered = append(filtered, is)
				}
			}
			issues = filtered
		}
		if issues == nil {
			issues = []graph.Issue{}
		}
		c.JSON(http.StatusOK, issues)
	}
}
