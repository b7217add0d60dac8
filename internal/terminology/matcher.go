package terminology

import (
	"log/slog"
	"strings"

	"eapgraph/internal/graph"
	"eapgraph/internal/model"
)

// MatchStats: итог обогащения
type MatchStats struct {
	Classes   int `json:"classes"`
	Members   int `json:"members"`
	Inherited int `json:"inherited"`
	Missed    int `json:"missed"`
}

type Matcher struct {
	cat *Catalog
	log *slog.Logger
}

// NewMatcher: cat может быть nil, тогда Enrich ничего не делает
func NewMatcher(cat *Catalog, log *slog.Logger) *Matcher {
	return &Matcher{cat: cat, log: log}
}

// Enrich привязывает классы и их члены к терминологии. Первый проход:
// класс и его собственные члены по записи класса; второй: унаследованные
// члены по записи наследующего класса. Вторая привязка хранится в документе
// отдельно для каждого класса (Document.Binding), член суперкласса не меняется.
func (m *Matcher) Enrich(doc *graph.Document) MatchStats {
	var st MatchStats
	if m.cat == nil {
		m.log.Info("terminology source absent, enrichment skipped")
		return st
	}

	classes := doc.Classes()
	for _, c := range classes {
		ent, ok := m.cat.Entity(c.Name)
		if !ok {
			st.Missed++
			m.log.Warn("terminology not found", "class", c.Name, "id", c.ID)
			continue
		}
		apply(&c.Enrichment, ent)
		st.Classes++
		for _, mem := range doc.OwnMembers(c) {
			attr, ok := ent.Attribute(mem.Name())
			if !ok {
				st.Missed++
				m.log.Warn("terminology not found", "class", c.Name, "member", mem.Name(), "kind", mem.Kind)
				continue
			}
			apply(mem.Enrichment(), attr)
			st.Members++
		}
	}

	for _, c := range classes {
		ent, ok := m.cat.Entity(c.Name)
		if !ok {
			continue
		}
		for _, mem := range doc.EffectiveMembers(c) {
			if mem.OwnerID == c.ID {
				continue
			}
			attr, ok := ent.Attribute(mem.Name())
			if !ok {
				continue
			}
			e := doc.BindInherited(c, mem)
			if e.Bound {
				continue
			}
			apply(e, attr)
			st.Inherited++
		}
	}

	m.log.Info("terminology matched",
		"classes", st.Classes,
		"members", st.Members,
		"inherited", st.Inherited,
		"missed", st.Missed,
	)
	return st
}

func apply(e *model.Enrichment, t *Entry) {
	e.Definition = t.Definition
	e.ReferenceCode = t.CCode
	e.PreferredTerm = t.PreferredTerm
	e.Synonyms = t.Synonyms
	e.Bound = true
	if !t.HasValueList() {
		return
	}
	e.ValueList = t.ValueList
	if t.CodeList != nil && strings.Contains(t.ValueList, t.CodeList.Code) {
		e.CodeList = t.CodeList
	}
}
