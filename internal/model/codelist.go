package model

// CNEW: код нового, ещё не назначенного codelist'а. Удалённо не разрешается.
const CNEW = "CNEW"

// CodeList: перечисление контролируемой терминологии
type CodeList struct {
	Code            string             `json:"code" yaml:"code"`
	SubmissionValue string             `json:"submissionValue,omitempty" yaml:"submission_value,omitempty"`
	PreferredTerm   string             `json:"preferredTerm,omitempty" yaml:"preferred_term,omitempty"`
	Definition      string             `json:"definition,omitempty" yaml:"definition,omitempty"`
	Synonyms        []string           `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
	Extensible      bool               `json:"extensible" yaml:"extensible,omitempty"`
	EntityName      string             `json:"entity,omitempty" yaml:"entity,omitempty"`
	AttributeName   string             `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Source          string             `json:"source,omitempty" yaml:"-"` // local | workbook | remote
	Items           []PermissibleValue `json:"items" yaml:"items"`
}

// PermissibleValue: элемент codelist'а
type PermissibleValue struct {
	Code            string   `json:"code" yaml:"code"`
	SubmissionValue string   `json:"submissionValue,omitempty" yaml:"submission_value,omitempty"`
	PreferredTerm   string   `json:"preferredTerm,omitempty" yaml:"preferred_term,omitempty"`
	Synonyms        []string `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
	Definition      string   `json:"definition,omitempty" yaml:"definition,omitempty"`
}

func (c *CodeList) Add(v PermissibleValue) { c.Items = append(c.Items, v) }

// NewCodeListPlaceholder: локальная заглушка для CNEW
func NewCodeListPlaceholder() *CodeList {
	return &CodeList{
		Code:            CNEW,
		SubmissionValue: CNEW,
		PreferredTerm:   "New Code",
		Extensible:      true,
		Source:          "local",
		Items: []PermissibleValue{{
			Code:            CNEW,
			SubmissionValue: CNEW,
			PreferredTerm:   "New Code",
		}},
	}
}
