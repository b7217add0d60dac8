package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"eapgraph/internal/extract"
	"eapgraph/internal/model"
)

// Build связывает декодированные записи в граф. Атрибут без владельца
// фатален; коннектор без одной из сторон логируется и отбрасывается.
func Build(name string, recs *extract.Records, log *slog.Logger) (*Document, error) {
	d := &Document{
		Name:       name,
		objects:    make(map[int]*model.Object, len(recs.Objects)),
		attributes: make(map[int]*model.Attribute, len(recs.Attributes)),
		connectors: make(map[int]*model.Connector, len(recs.Connectors)),
		packages:   make(map[int]*model.Package, len(recs.Packages)),
		pkgObjects: map[int]*model.Object{},
		dataTypes:  recs.DataTypes,
	}

	for _, o := range recs.Objects {
		if _, dup := d.objects[o.ID]; dup {
			return nil, fmt.Errorf("object %d: %w", o.ID, ErrDuplicateID)
		}
		d.objects[o.ID] = o
	}

	if err := d.resolvePackages(recs.Packages, log); err != nil {
		return nil, err
	}
	d.resolveProperties(recs.Properties, log)
	if err := d.resolveAttributes(recs.Attributes); err != nil {
		return nil, err
	}
	d.resolveConnectors(recs.Connectors, log)
	d.checkGeneralizations(log)
	d.resolveDiagrams(recs.Diagrams, log)

	log.Info("graph built",
		"objects", len(d.objects),
		"attributes", len(d.attributes),
		"connectors", len(d.connectors),
		"orphans", len(d.orphans),
		"issues", len(d.issues),
	)
	return d, nil
}

func (d *Document) issue(log *slog.Logger, is Issue, args ...any) {
	d.issues = append(d.issues, is)
	log.Warn(is.Message, args...)
}

// resolvePackages: метаданные t_package по id, объекты-пакеты по ea_guid
func (d *Document) resolvePackages(pkgs []*model.Package, log *slog.Logger) error {
	byGUID := make(map[string]*model.Package, len(pkgs))
	for _, p := range pkgs {
		if _, dup := d.packages[p.ID]; dup {
			return fmt.Errorf("package %d: %w", p.ID, ErrDuplicateID)
		}
		d.packages[p.ID] = p
		if p.GUID != "" {
			byGUID[p.GUID] = p
		}
	}

	for _, o := range d.Objects() {
		if o.Type != model.TypePackage {
			continue
		}
		p, ok := byGUID[o.GUID]
		if !ok || o.GUID == "" {
			log.Debug("package object without metadata", "id", o.ID, "name", o.Name)
			continue
		}
		o.Package = p
		d.pkgObjects[p.ID] = o
	}

	ids := make([]int, 0, len(d.packages))
	for id := range d.packages {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		p := d.packages[id]
		if _, err := d.PackagePath(id); errors.Is(err, ErrPackageCycle) {
			d.issue(log, Issue{Code: IssuePackageCycle, ID: id, Name: p.Name, Message: "package parent cycle"},
				"id", id, "name", p.Name, "parent_id", p.ParentID)
			continue
		}
		if p.ParentID != 0 {
			if _, ok := d.packages[p.ParentID]; !ok {
				d.issue(log, Issue{Code: IssueDanglingPackageParent, ID: id, Name: p.Name, Message: "dangling package parent"},
					"id", id, "name", p.Name, "parent_id", p.ParentID)
			}
		}
	}
	return nil
}

func (d *Document) resolveProperties(props []*model.ObjectProperty, log *slog.Logger) {
	for _, p := range props {
		o, ok := d.objects[p.ObjectID]
		if !ok {
			d.issue(log, Issue{Code: IssueUnknownPropertyOwner, ID: p.ID, Name: p.Name, Message: "object property owner not found"},
				"id", p.ID, "property", p.Name, "object_id", p.ObjectID)
			continue
		}
		o.Properties = append(o.Properties, *p)
	}
}

func (d *Document) resolveAttributes(attrs []*model.Attribute) error {
	for _, a := range attrs {
		if _, dup := d.attributes[a.ID]; dup {
			return fmt.Errorf("attribute %d: %w", a.ID, ErrDuplicateID)
		}
		owner, ok := d.objects[a.ObjectID]
		if !ok {
			return fmt.Errorf("attribute %d (%s): %w: object %d", a.ID, a.Name, ErrDanglingAttribute, a.ObjectID)
		}
		d.attributes[a.ID] = a
		owner.Attributes = append(owner.Attributes, a.ID)
		if a.ClassifierID != 0 {
			if cl, ok := d.objects[a.ClassifierID]; ok {
				cl.Classifies = append(cl.Classifies, a.ID)
			}
		}
	}
	for _, o := range d.objects {
		sort.SliceStable(o.Attributes, func(i, j int) bool {
			ai, aj := d.attributes[o.Attributes[i]], d.attributes[o.Attributes[j]]
			if ai.Pos != aj.Pos {
				return ai.Pos < aj.Pos
			}
			return ai.ID < aj.ID
		})
	}
	return nil
}

// resolveConnectors проходит коннекторы по возрастанию id, чтобы порядок
// рёбер (и синтетические позиции ассоциаций) был детерминированным
func (d *Document) resolveConnectors(conns []*model.Connector, log *slog.Logger) {
	sorted := append([]*model.Connector(nil), conns...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, c := range sorted {
		src, okSrc := d.objects[c.SourceID]
		dst, okDst := d.objects[c.TargetID]
		if !okSrc || !okDst {
			d.orphans = append(d.orphans, c)
			d.issue(log, Issue{Code: IssueOrphanConnector, ID: c.ID, Name: c.Name, Message: "orphan connector"},
				"id", c.ID, "type", c.Type, "name", c.Name, "source_id", c.SourceID, "target_id", c.TargetID)
			continue
		}
		switch {
		case c.IsAssociation():
			src.Outgoing = append(src.Outgoing, c.ID)
			dst.Incoming = append(dst.Incoming, c.ID)
		case c.IsGeneralization():
			src.Generalizations = append(src.Generalizations, c.ID)
			dst.Specializations = append(dst.Specializations, c.ID)
		default:
			log.Debug("connector type ignored", "id", c.ID, "type", c.Type)
			continue
		}
		d.connectors[c.ID] = c
	}
}

func (d *Document) checkGeneralizations(log *slog.Logger) {
	for _, o := range d.Objects() {
		if len(o.Generalizations) > 1 {
			d.issue(log, Issue{Code: IssueMultipleGeneralization, ID: o.ID, Name: o.Name,
				Message: "multiple generalizations, only the first is inherited"},
				"id", o.ID, "name", o.Name, "count", len(o.Generalizations))
		}
		seen := map[int]bool{o.ID: true}
		for cur := o; ; {
			sup, ok := d.Supertype(cur)
			if !ok {
				break
			}
			if seen[sup.ID] {
				d.issue(log, Issue{Code: IssueGeneralizationCycle, ID: o.ID, Name: o.Name,
					Message: "generalization cycle, inheritance stops"},
					"id", o.ID, "name", o.Name, "repeated_id", sup.ID)
				break
			}
			seen[sup.ID] = true
			cur = sup
		}
	}
}

func (d *Document) resolveDiagrams(diagrams []*model.Diagram, log *slog.Logger) {
	for _, dg := range diagrams {
		kept := dg.Objects[:0]
		for _, id := range dg.Objects {
			if _, ok := d.objects[id]; !ok {
				log.Debug("diagram object not found", "diagram_id", dg.ID, "object_id", id)
				continue
			}
			kept = append(kept, id)
		}
		dg.Objects = kept
		d.diagrams = append(d.diagrams, dg)
	}
}
