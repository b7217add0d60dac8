// api/names.go
package api

import (
	"strings"

	"eapgraph/internal/graph"
	"eapgraph/internal/model"
)

// resolveClass ищет класс по имени: точное совпадение, затем квалифицированное
// имя ("Pkg.Sub.Class"), затем ЕДИНСТВЕННОЕ совпадение без учёта регистра.
func resolveClass(doc *graph.Document, name string) (*model.Object, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	if o, ok := doc.ClassByName(name); ok {
		return o, true
	}

	classes := doc.Classes()
	if strings.Contains(name, ".") {
		for _, o := range classes {
			if strings.EqualFold(doc.QualifiedName(o), name) {
				return o, true
			}
		}
		return nil, false
	}

	var found *model.Object
	for _, o := range classes {
		if strings.EqualFold(o.Name, name) {
			if found != nil { // неуникально
				return nil, false
			}
			found = o
		}
	}
	return found, found != nil
}
