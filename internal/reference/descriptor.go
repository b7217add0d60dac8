package reference

import (
	"errors"
	"strings"

	"eapgraph/internal/model"
)

var ErrUnparseable = errors.New("unparseable value list descriptor")

// Descriptor: разобранное значение колонки "Has Value List":
// "N", "Y (C66736)", "Y (CNEW)", "Y (Points to StudyDesign)"
type Descriptor struct {
	Raw          string
	HasValueList bool
	Code         string // C-code или CNEW; пусто для внешних ссылок
	External     string // имя внешнего codelist'а
}

func (d Descriptor) IsExternal() bool { return d.HasValueList && d.Code == "" && d.External != "" }
func (d Descriptor) IsNew() bool      { return d.Code == model.CNEW }

// внешние ссылки; длинные формы первыми
var pointMarkers = []string{"point out to", "points to", "point to"}

// ParseDescriptor разбирает дескриптор. Для текста, из которого не удалось
// достать код, возвращается ErrUnparseable вместе с HasValueList.
func ParseDescriptor(raw string) (Descriptor, error) {
	raw = strings.TrimSpace(raw)
	d := Descriptor{Raw: raw, HasValueList: strings.HasPrefix(raw, "Y")}
	if !d.HasValueList {
		return d, nil
	}

	lower := strings.ToLower(raw)
	if strings.Contains(lower, "point") {
		d.External = externalName(raw, lower)
		if d.External == "" {
			return d, ErrUnparseable
		}
		return d, nil
	}
	if strings.Contains(raw, model.CNEW) {
		d.Code = model.CNEW
		return d, nil
	}

	open := strings.Index(raw, "(")
	if open < 0 {
		return d, ErrUnparseable
	}
	inner := raw[open+1:]
	if end := strings.Index(inner, ")"); end >= 0 {
		inner = inner[:end]
	}
	tokens := strings.Fields(inner)
	if len(tokens) == 0 {
		return d, ErrUnparseable
	}
	d.Code = tokens[len(tokens)-1]
	return d, nil
}

func externalName(raw, lower string) string {
	for _, m := range pointMarkers {
		if i := strings.Index(lower, m); i >= 0 {
			return trimRef(raw[i+len(m):])
		}
	}
	if open := strings.Index(raw, "("); open >= 0 {
		return trimRef(raw[open+1:])
	}
	return ""
}

func trimRef(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ")")
	return strings.TrimSpace(s)
}
