package reference

import (
	"context"
	"log/slog"

	"eapgraph/internal/graph"
	"eapgraph/internal/model"
)

// BindStats: итог привязки codelist'ов
type BindStats struct {
	Bound       int `json:"bound"`
	External    int `json:"external"`
	Missing     int `json:"missing"`
	Unparseable int `json:"unparseable"`
}

// BindCodeLists проходит по всем обогащённым объектам, атрибутам,
// ассоциациям и унаследованным привязкам классов и привязывает codelist
// по их дескриптору. Неудачи только логируются. Уже привязанный codelist
// (локальный набор значений из терминологии) не перезаписывается.
func BindCodeLists(ctx context.Context, doc *graph.Document, p *Provider, log *slog.Logger) BindStats {
	var st BindStats
	bind := func(kind string, id int, name string, e *model.Enrichment) {
		if e.ValueList == "" {
			return
		}
		d, err := ParseDescriptor(e.ValueList)
		if err != nil {
			st.Unparseable++
			log.Warn("value list descriptor not understood", "kind", kind, "id", id, "name", name, "value", e.ValueList)
			return
		}
		switch {
		case !d.HasValueList:
			return
		case d.IsExternal():
			e.ExternalCodeList = d.External
			st.External++
		case e.CodeList != nil:
			st.Bound++
		default:
			cl, ok := p.Resolve(ctx, d)
			if !ok {
				st.Missing++
				return
			}
			e.CodeList = cl
			st.Bound++
		}
	}

	for _, o := range doc.Objects() {
		bind("object", o.ID, o.Name, &o.Enrichment)
	}
	for _, a := range doc.Attributes() {
		bind("attribute", a.ID, a.Name, &a.Enrichment)
	}
	for _, c := range doc.Connectors() {
		bind("connector", c.ID, c.Name, &c.Enrichment)
	}
	// унаследованные члены с собственной привязкой в наследующем классе
	for _, b := range doc.InheritedBindings() {
		bind("inherited", b.Member.ID(), b.Class.Name+"."+b.Member.Name(), b.Enrichment)
	}

	log.Info("codelists bound",
		"bound", st.Bound,
		"external", st.External,
		"missing", st.Missing,
		"unparseable", st.Unparseable,
		"remote_calls", p.RemoteCalls(),
	)
	return st
}
