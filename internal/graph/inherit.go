package graph

import (
	"sort"

	"eapgraph/internal/model"
)

type MemberKind string

const (
	MemberAttribute   MemberKind = "attribute"
	MemberAssociation MemberKind = "association"
)

// Member: атрибут или исходящая ассоциация класса.
// Ровно одно из Attribute/Connector не nil.
type Member struct {
	Kind      MemberKind
	Position  int
	OwnerID   int // объект, который объявил член (для унаследованных это суперкласс)
	Attribute *model.Attribute
	Connector *model.Connector
}

func (m Member) ID() int {
	if m.Attribute != nil {
		return m.Attribute.ID
	}
	return m.Connector.ID
}

// Name: имя атрибута; у ассоциации Name, иначе роль назначения
func (m Member) Name() string {
	if m.Attribute != nil {
		return m.Attribute.Name
	}
	if m.Connector.Name != "" {
		return m.Connector.Name
	}
	return m.Connector.DestRole
}

func (m Member) Cardinality() string {
	if m.Attribute != nil {
		return m.Attribute.Cardinality()
	}
	return m.Connector.Cardinality()
}

// Enrichment: изменяемые поля обогащения члена
func (m Member) Enrichment() *model.Enrichment {
	if m.Attribute != nil {
		return &m.Attribute.Enrichment
	}
	return &m.Connector.Enrichment
}

// bindingKey: член, унаследованный конкретным классом. Id атрибутов и
// коннекторов берутся из разных таблиц, поэтому в ключе есть вид члена.
type bindingKey struct {
	class  int
	kind   MemberKind
	member int
}

func (m Member) key(classID int) bindingKey {
	return bindingKey{class: classID, kind: m.Kind, member: m.ID()}
}

// Binding: обогащение члена m в классе o. Собственный член хранит его сам.
// Унаследованный берёт привязку класса o, а без неё привязку класса,
// который его объявил.
func (d *Document) Binding(o *model.Object, m Member) *model.Enrichment {
	if m.OwnerID != o.ID {
		if e, ok := d.inherited[m.key(o.ID)]; ok {
			return e
		}
	}
	return m.Enrichment()
}

// BindInherited возвращает изменяемое обогащение унаследованного члена,
// которое видит только класс o. Член объявившего класса не меняется.
// Для собственного члена это его собственное обогащение.
func (d *Document) BindInherited(o *model.Object, m Member) *model.Enrichment {
	if m.OwnerID == o.ID {
		return m.Enrichment()
	}
	k := m.key(o.ID)
	if e, ok := d.inherited[k]; ok {
		return e
	}
	if d.inherited == nil {
		d.inherited = map[bindingKey]*model.Enrichment{}
	}
	e := &model.Enrichment{}
	d.inherited[k] = e
	return e
}

// InheritedBinding: привязка унаследованного члена в конкретном классе
type InheritedBinding struct {
	Class      *model.Object
	Member     Member
	Enrichment *model.Enrichment
}

// InheritedBindings: все привязки унаследованных членов, по классам и
// позициям эффективных членов
func (d *Document) InheritedBindings() []InheritedBinding {
	if len(d.inherited) == 0 {
		return nil
	}
	var out []InheritedBinding
	for _, o := range d.Classes() {
		for _, m := range d.EffectiveMembers(o) {
			if m.OwnerID == o.ID {
				continue
			}
			if e, ok := d.inherited[m.key(o.ID)]; ok {
				out = append(out, InheritedBinding{Class: o, Member: m, Enrichment: e})
			}
		}
	}
	return out
}

// MemberType: объявленный тип атрибута или имя цели ассоциации
func (d *Document) MemberType(m Member) string {
	if m.Attribute != nil {
		return m.Attribute.Type
	}
	if t, ok := d.objects[m.Connector.TargetID]; ok {
		return t.Name
	}
	return ""
}

// OwnMembers: собственные атрибуты и исходящие ассоциации объекта по
// позиции. Ассоциации получают позиции после максимальной позиции атрибутов.
func (d *Document) OwnMembers(o *model.Object) []Member {
	out := make([]Member, 0, len(o.Attributes)+len(o.Outgoing))
	base := 0
	for i, id := range o.Attributes {
		a := d.attributes[id]
		if i == 0 || a.Pos > base {
			base = a.Pos
		}
		out = append(out, Member{Kind: MemberAttribute, Position: a.Pos, OwnerID: o.ID, Attribute: a})
	}
	for i, id := range o.Outgoing {
		out = append(out, Member{Kind: MemberAssociation, Position: base + 1 + i, OwnerID: o.ID, Connector: d.connectors[id]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// EffectiveMembers: собственные члены, затем члены первого суперкласса
// (рекурсивно). Дубли имён не схлопываются. Считается заново при каждом вызове.
func (d *Document) EffectiveMembers(o *model.Object) []Member {
	var out []Member
	seen := map[int]bool{}
	for cur, ok := o, true; ok; cur, ok = d.Supertype(cur) {
		if seen[cur.ID] {
			break
		}
		seen[cur.ID] = true
		out = append(out, d.OwnMembers(cur)...)
	}
	return out
}

// Member: собственный член объекта с точным именем
func (d *Document) Member(o *model.Object, name string) (Member, bool) {
	for _, m := range d.OwnMembers(o) {
		if m.Name() == name {
			return m, true
		}
	}
	return Member{}, false
}

// InheritedMember ищет член по имени среди эффективных членов
func (d *Document) InheritedMember(o *model.Object, name string) (Member, bool) {
	for _, m := range d.EffectiveMembers(o) {
		if m.Name() == name {
			return m, true
		}
	}
	return Member{}, false
}
