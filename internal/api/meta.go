package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"eapgraph/internal/graph"
	"eapgraph/internal/model"
)

// current достаёт снимок или отвечает 503, пока документ не загружен
func current(storage *Storage, c *gin.Context) (*Snapshot, bool) {
	snap := storage.Current()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Document not loaded"})
		return nil, false
	}
	return snap, true
}

// ===== META =====

func MetaHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := current(storage, c)
		if !ok {
			return
		}
		doc := snap.Doc()
		res := snap.Result
		c.JSON(http.StatusOK, gin.H{
			"name":     doc.Name,
			"loadId":   snap.LoadID,
			"loadedAt": snap.LoadedAt,
			"elapsed":  res.Elapsed.String(),
			"counts": gin.H{
				"objects":    len(doc.Objects()),
				"classes":    len(doc.Classes()),
				"packages":   len(doc.Packages()),
				"attributes": len(doc.Attributes()),
				"connectors": len(doc.Connectors()),
				"orphans":    len(doc.Orphans()),
				"skipped":    res.Skipped,
				"codelists":  len(doc.CodeLists()),
			},
			"terminology": res.Match,
			"codelists":   res.Bind,
			"usedTypes":   doc.UsedTypes(),
		})
	}
}

// ===== PACKAGES =====

type packageView struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	ParentID int      `json:"parentId,omitempty"`
	ObjectID int      `json:"objectId,omitempty"`
	Objects  int      `json:"objects"`
	Flags    []string `json:"flags,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func PackagesHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := current(storage, c)
		if !ok {
			return
		}
		doc := snap.Doc()
		out := []packageView{}
		for _, o := range doc.Packages() {
			if o.Package == nil {
				continue
			}
			p := o.Package
			v := packageView{
				ID:       p.ID,
				Name:     p.Name,
				ParentID: p.ParentID,
				ObjectID: o.ID,
				Objects:  len(doc.ObjectsInPackage(p.ID)),
				Flags:    p.Flags,
			}
			if path, err := doc.PackagePath(p.ID); err != nil {
				v.Error = err.Error()
			} else {
				v.Path = strings.Join(path, ".")
			}
			out = append(out, v)
		}
		c.JSON(http.StatusOK, out)
	}
}

// ===== CLASSES =====

// GET /api/classes?limit=&offset=&sort=&q=
func ClassListHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := current(storage, c)
		if !ok {
			return
		}
		doc := snap.Doc()
		classes := doc.Classes()
		rows := make([]map[string]any, 0, len(classes))
		for _, o := range classes {
			rows = append(rows, classRow(doc, o))
		}

		lp := parseListParams(c.Request.URL.Query())
		filtered := filterRows(rows, lp)
		sortRows(filtered, lp.Sort)

		c.Header("X-Total-Count", strconv.Itoa(len(filtered)))
		c.JSON(http.StatusOK, page(filtered, lp.Offset, lp.Limit))
	}
}

// GET /api/classes/:name
func ClassHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := current(storage, c)
		if !ok {
			return
		}
		doc := snap.Doc()
		o, ok := resolveClass(doc, c.Param("name"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Class not found"})
			return
		}
		c.JSON(http.StatusOK, viewClass(doc, o))
	}
}

// ===== CODELISTS =====

type codeListSummary struct {
	Code          string `json:"code"`
	PreferredTerm string `json:"preferredTerm,omitempty"`
	Extensible    bool   `json:"extensible"`
	Items         int    `json:"items"`
	Source        string `json:"source,omitempty"`
}

func CodeListsHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := current(storage, c)
		if !ok {
			return
		}
		lists := snap.Doc().CodeLists()
		out := make([]codeListSummary, 0, len(lists))
		for _, cl := range lists {
			out = append(out, codeListSummary{
				Code:          cl.Code,
				PreferredTerm: cl.PreferredTerm,
				Extensible:    cl.Extensible,
				Items:         len(cl.Items),
				Source:        cl.Source,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}

func CodeListHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := current(storage, c)
		if !ok {
			return
		}
		cl, ok := findCodeList(snap.Doc(), c.Param("code"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Codelist not found"})
			return
		}
		c.JSON(http.StatusOK, cl)
	}
}

func findCodeList(doc *graph.Document, code string) (*model.CodeList, bool) {
	for _, cl := range doc.CodeLists() {
		if strings.EqualFold(cl.Code, code) {
			return cl, true
		}
	}
	return nil, false
}
