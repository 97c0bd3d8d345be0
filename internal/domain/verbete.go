// Package domain holds the encyclopedia entities: submissions, their
// status history, published articles and the taxonomy around them.
package domain

import (
	"strings"
	"time"
)

// VerbeteType is the kind of encyclopedia entry. It decides which
// metadata fields a submission carries and which of them are required.
type VerbeteType string

// Recognised verbete types.
const (
	TypePerson      VerbeteType = "person"
	TypeWork        VerbeteType = "work"
	TypeEvent       VerbeteType = "event"
	TypeInstitution VerbeteType = "institution"
	TypeCompany     VerbeteType = "company"
	TypeGroup       VerbeteType = "group"
	TypeConcept     VerbeteType = "concept"
)

// FieldKind tells clients and validators how to treat a metadata field.
type FieldKind string

// Field kinds.
const (
	FieldDate FieldKind = "date"
	FieldText FieldKind = "text"
)

// FieldSpec describes one type-specific metadata field.
type FieldSpec struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
}

// TypeSpec describes a verbete type and its metadata fields.
// StartField and EndField name the pair of dates that must be ordered,
// when the type has one.
type TypeSpec struct {
	Type       VerbeteType `json:"type"`
	Label      string      `json:"label"`
	Fields     []FieldSpec `json:"fields"`
	StartField string      `json:"-"`
	EndField   string      `json:"-"`
}

// Required returns the names of the fields that must be filled before submit.
func (ts TypeSpec) Required() []string {
	var names []string
	for _, f := range ts.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// Field looks up a field by name.
func (ts TypeSpec) Field(name string) (FieldSpec, bool) {
	for _, f := range ts.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

var typeSpecs = []TypeSpec{
	{
		Type:  TypePerson,
		Label: "Pessoa",
		Fields: []FieldSpec{
			{Name: "birth_date", Label: "Data de nascimento", Kind: FieldDate, Required: true},
			{Name: "death_date", Label: "Data de falecimento", Kind: FieldDate},
			{Name: "birth_place", Label: "Local de nascimento", Kind: FieldText},
			{Name: "death_place", Label: "Local de falecimento", Kind: FieldText},
			{Name: "occupation", Label: "Ocupação", Kind: FieldText},
		},
		StartField: "birth_date",
		EndField:   "death_date",
	},
	{
		Type:  TypeWork,
		Label: "Obra",
		Fields: []FieldSpec{
			{Name: "creation_date", Label: "Data de criação", Kind: FieldDate, Required: true},
			{Name: "creator", Label: "Autor da obra", Kind: FieldText},
			{Name: "medium", Label: "Suporte", Kind: FieldText},
		},
	},
	{
		Type:  TypeEvent,
		Label: "Evento",
		Fields: []FieldSpec{
			{Name: "start_date", Label: "Data de início", Kind: FieldDate, Required: true},
			{Name: "end_date", Label: "Data de término", Kind: FieldDate},
			{Name: "location", Label: "Local", Kind: FieldText},
		},
		StartField: "start_date",
		EndField:   "end_date",
	},
	{
		Type:  TypeInstitution,
		Label: "Instituição",
		Fields: []FieldSpec{
			{Name: "founding_date", Label: "Data de fundação", Kind: FieldDate, Required: true},
			{Name: "closing_date", Label: "Data de encerramento", Kind: FieldDate},
			{Name: "headquarters", Label: "Sede", Kind: FieldText},
		},
		StartField: "founding_date",
		EndField:   "closing_date",
	},
	{
		Type:  TypeCompany,
		Label: "Empresa",
		Fields: []FieldSpec{
			{Name: "founding_date", Label: "Data de fundação", Kind: FieldDate, Required: true},
			{Name: "closing_date", Label: "Data de encerramento", Kind: FieldDate},
			{Name: "industry", Label: "Setor", Kind: FieldText},
		},
		StartField: "founding_date",
		EndField:   "closing_date",
	},
	{
		Type:  TypeGroup,
		Label: "Grupo",
		Fields: []FieldSpec{
			{Name: "formation_date", Label: "Data de formação", Kind: FieldDate, Required: true},
			{Name: "dissolution_date", Label: "Data de dissolução", Kind: FieldDate},
			{Name: "members", Label: "Integrantes", Kind: FieldText},
		},
		StartField: "formation_date",
		EndField:   "dissolution_date",
	},
	{
		Type:  TypeConcept,
		Label: "Conceito",
		Fields: []FieldSpec{
			{Name: "field_of_study", Label: "Área de conhecimento", Kind: FieldText},
		},
	},
}

// VerbeteTypes returns the fixed enumeration of types with their fields.
// The returned slice is a copy.
func VerbeteTypes() []TypeSpec {
	out := make([]TypeSpec, len(typeSpecs))
	for i, ts := range typeSpecs {
		ts.Fields = append([]FieldSpec(nil), ts.Fields...)
		out[i] = ts
	}
	return out
}

// SpecFor returns the TypeSpec for t.
func SpecFor(t VerbeteType) (TypeSpec, bool) {
	for _, ts := range typeSpecs {
		if ts.Type == t {
			return ts, true
		}
	}
	return TypeSpec{}, false
}

// Valid reports whether t is a recognised type.
func (t VerbeteType) Valid() bool {
	_, ok := SpecFor(t)
	return ok
}

// ParseVerbeteType normalises s and reports whether it names a known type.
func ParseVerbeteType(s string) (VerbeteType, bool) {
	t := VerbeteType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Verbete dates may be as coarse as a year.
var dateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// ParseVerbeteDate parses YYYY, YYYY-MM or YYYY-MM-DD into the first
// instant the value covers.
func ParseVerbeteDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if len(s) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
