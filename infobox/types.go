package infobox

import (
	"bytes"
	"encoding/json"
)

// Kind identifies which pattern classified a value.
type Kind string

const (
	KindPercentage Kind = "percentage"
	KindCurrency   Kind = "currency"
	KindNumber     Kind = "number"
	KindRank       Kind = "rank"
	KindDateRange  Kind = "date_range"
	KindText       Kind = "text"
)

// Type is the coarse subject category of an infobox.
type Type string

const (
	TypeCountry Type = "country"
	TypeEconomy Type = "economy"
	TypePerson  Type = "person"
	TypeCompany Type = "company"
	TypeOther   Type = "other"
)

// Label returns the display label used by the comparison UI.
func (t Type) Label() string {
	switch t {
	case TypeCountry:
		return "国家"
	case TypeEconomy:
		return "经济"
	case TypePerson:
		return "人物"
	case TypeCompany:
		return "公司"
	default:
		return "其他"
	}
}

// Value is a classified cell value.
//
// Number is set for percentage, currency and number kinds. Text is set for
// date_range and text kinds. Rank is set for the rank kind. Raw always holds
// the cleaned text the value was classified from.
type Value struct {
	Kind      Kind
	Number    float64
	Text      string
	Unit      string
	Currency  string
	Rank      int
	Year      int
	Raw       string
	Extracted bool
}

// Numeric returns the value as a float when the kind carries a number.
func (v Value) Numeric() (float64, bool) {
	switch v.Kind {
	case KindPercentage, KindCurrency, KindNumber:
		return v.Number, true
	case KindRank:
		return float64(v.Rank), true
	}
	return 0, false
}

type jsonValue struct {
	Value     any    `json:"value,omitempty"`
	Unit      string `json:"unit,omitempty"`
	Currency  string `json:"currency,omitempty"`
	Rank      int    `json:"rank,omitempty"`
	Year      int    `json:"year,omitempty"`
	Type      Kind   `json:"type"`
	Raw       string `json:"raw"`
	Extracted bool   `json:"extracted"`
}

// MarshalJSON emits the value in the shape the charting UI consumes:
// "value" is a number for numeric kinds and a string for textual ones.
func (v Value) MarshalJSON() ([]byte, error) {
	out := jsonValue{
		Unit:      v.Unit,
		Currency:  v.Currency,
		Rank:      v.Rank,
		Year:      v.Year,
		Type:      v.Kind,
		Raw:       v.Raw,
		Extracted: v.Extracted,
	}
	switch v.Kind {
	case KindPercentage, KindCurrency, KindNumber:
		out.Value = v.Number
	case KindDateRange, KindText:
		out.Value = v.Text
	}
	return json.Marshal(out)
}

// Field is one labelled row of an infobox. Exactly one of Value and Items is
// set: Items when the data cell held a list.
type Field struct {
	Name  string
	Value *Value
	Items []Value
}

// IsList reports whether the field came from a list cell.
func (f *Field) IsList() bool {
	return f.Value == nil
}

// Values returns the field's values in order, one for scalar fields.
func (f *Field) Values() []Value {
	if f.Value != nil {
		return []Value{*f.Value}
	}
	return f.Items
}

// MarshalJSON emits a single value object or an array of them.
func (f *Field) MarshalJSON() ([]byte, error) {
	if f.Value != nil {
		return json.Marshal(f.Value)
	}
	return json.Marshal(f.Items)
}

// Section is a named group of fields in encounter order.
type Section struct {
	Name   string
	Fields []*Field
}

// Field returns the named field, or nil.
func (s *Section) Field(name string) *Field {
	for _, f := range s.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// set stores f, replacing an earlier field of the same name in place.
func (s *Section) set(f *Field) {
	for i, existing := range s.Fields {
		if existing.Name == f.Name {
			s.Fields[i] = f
			return
		}
	}
	s.Fields = append(s.Fields, f)
}

// MarshalJSON emits the fields as an object with keys in encounter order.
func (s *Section) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKeyValue(&buf, f.Name, f); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Document is the parsed form of one infobox table.
type Document struct {
	Title    string
	Type     Type
	Sections []*Section
}

// Section returns the named section, or nil.
func (d *Document) Section(name string) *Section {
	for _, s := range d.Sections {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Lookup returns the field in the given section, or nil.
func (d *Document) Lookup(section, field string) *Field {
	s := d.Section(section)
	if s == nil {
		return nil
	}
	return s.Field(field)
}

// Find returns the first field with the given name in any section.
func (d *Document) Find(field string) *Field {
	for _, s := range d.Sections {
		if f := s.Field(field); f != nil {
			return f
		}
	}
	return nil
}

// FieldCount returns the number of fields across all sections.
func (d *Document) FieldCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Fields)
	}
	return n
}

// ensureSection returns the named section, appending it if missing.
func (d *Document) ensureSection(name string) *Section {
	if s := d.Section(name); s != nil {
		return s
	}
	s := &Section{Name: name}
	d.Sections = append(d.Sections, s)
	return s
}

// MarshalJSON emits sections as an object whose keys keep header order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"title":`)
	title, err := json.Marshal(d.Title)
	if err != nil {
		return nil, err
	}
	buf.Write(title)
	buf.WriteString(`,"type":`)
	typ, err := json.Marshal(d.Type)
	if err != nil {
		return nil, err
	}
	buf.Write(typ)
	buf.WriteString(`,"sections":{`)
	for i, s := range d.Sections {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKeyValue(&buf, s.Name, s); err != nil {
			return nil, err
		}
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

func writeKeyValue(buf *bytes.Buffer, key string, v any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}
