package api

import (
	"eapgraph/internal/graph"
	"eapgraph/internal/model"
)

type memberView struct {
	Name             string   `json:"name"`
	Kind             string   `json:"kind"`
	Type             string   `json:"type,omitempty"`
	Cardinality      string   `json:"cardinality"`
	Position         int      `json:"position"`
	DeclaredBy       string   `json:"declaredBy"`
	Definition       string   `json:"definition,omitempty"`
	ReferenceCode    string   `json:"referenceCode,omitempty"`
	PreferredTerm    string   `json:"preferredTerm,omitempty"`
	Synonyms         []string `json:"synonyms,omitempty"`
	CodeList         string   `json:"codelist,omitempty"`
	ExternalCodeList string   `json:"externalCodelist,omitempty"`
}

type classView struct {
	ID            int          `json:"id"`
	Name          string       `json:"name"`
	QualifiedName string       `json:"qualifiedName"`
	Description   string       `json:"description,omitempty"`
	ReferenceCode string       `json:"referenceCode,omitempty"`
	PreferredTerm string       `json:"preferredTerm,omitempty"`
	Synonyms      []string     `json:"synonyms,omitempty"`
	Supertype     string       `json:"supertype,omitempty"`
	Subtypes      []string     `json:"subtypes,omitempty"`
	Members       []memberView `json:"members"`
}

// viewMember: член глазами класса o (унаследованные со своей привязкой)
func viewMember(doc *graph.Document, o *model.Object, m graph.Member) memberView {
	e := doc.Binding(o, m)
	v := memberView{
		Name:             m.Name(),
		Kind:             string(m.Kind),
		Type:             doc.MemberType(m),
		Cardinality:      m.Cardinality(),
		Position:         m.Position,
		Definition:       e.Definition,
		ReferenceCode:    e.ReferenceCode,
		PreferredTerm:    e.PreferredTerm,
		Synonyms:         e.Synonyms,
		ExternalCodeList: e.ExternalCodeList,
	}
	if owner, ok := doc.Object(m.OwnerID); ok {
		v.DeclaredBy = owner.Name
	}
	if e.CodeList != nil {
		v.CodeList = e.CodeList.Code
	}
	return v
}

func viewClass(doc *graph.Document, o *model.Object) classView {
	v := classView{
		ID:            o.ID,
		Name:          o.Name,
		QualifiedName: doc.QualifiedName(o),
		Description:   o.Description(),
		ReferenceCode: o.ReferenceCode,
		PreferredTerm: o.PreferredTerm,
		Synonyms:      o.Synonyms,
	}
	if sup, ok := doc.Supertype(o); ok {
		v.Supertype = sup.Name
	}
	for _, id := range o.Specializations {
		c, _ := doc.Connector(id)
		if sub, ok := doc.Object(c.SourceID); ok {
			v.Subtypes = append(v.Subtypes, sub.Name)
		}
	}
	members := doc.EffectiveMembers(o)
	v.Members = make([]memberView, 0, len(members))
	for _, m := range members {
		v.Members = append(v.Members, viewMember(doc, o, m))
	}
	return v
}

// classRow: плоская строка для листинга (фильтры/сортировка по ключам)
func classRow(doc *graph.Document, o *model.Object) map[string]any {
	row := map[string]any{
		"id":            o.ID,
		"name":          o.Name,
		"qualifiedName": doc.QualifiedName(o),
		"attributes":    len(o.Attributes),
		"associations":  len(o.Outgoing),
		"bound":         o.Bound,
	}
	if sup, ok := doc.Supertype(o); ok {
		row["supertype"] = sup.Name
	}
	if o.ReferenceCode != "" {
		row["referenceCode"] = o.ReferenceCode
	}
	return row
}
