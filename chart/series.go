package chart

import (
	"strconv"

	"github.com/tsawler/wikibox/infobox"
)

// Series is a named run of labelled values. X is only used by scatter
// charts; when it is shorter than Values the sample index is used.
type Series struct {
	Name   string
	Labels []string
	Values []float64
	X      []float64
}

// labels returns one label per value, padding with empty strings.
func (s Series) labels() []string {
	out := make([]string, len(s.Values))
	copy(out, s.Labels)
	return out
}

func (s Series) points() []Point {
	pts := make([]Point, len(s.Values))
	for i, y := range s.Values {
		x := float64(i + 1)
		if i < len(s.X) {
			x = s.X[i]
		}
		pts[i] = Point{X: x, Y: y}
	}
	return pts
}

// SeriesFromDocuments collects one value per document: the first numeric
// value of the named field, labelled with the document title. An empty
// section searches all sections. Documents lacking a numeric value
// contribute 0 so labels stay aligned across series.
func SeriesFromDocuments(name string, docs []*infobox.Document, section, field string) Series {
	s := Series{Name: name}
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		s.Labels = append(s.Labels, doc.Title)
		s.Values = append(s.Values, firstNumber(lookup(doc, section, field)))
	}
	if s.Name == "" {
		s.Name = field
	}
	return s
}

// SeriesFromField turns a field's values into a series labelled by each
// value's source text. Non-numeric values become 0.
func SeriesFromField(f *infobox.Field) Series {
	if f == nil {
		return Series{}
	}
	s := Series{Name: f.Name}
	for i, v := range f.Values() {
		label := v.Raw
		if label == "" {
			label = strconv.Itoa(i + 1)
		}
		n, _ := v.Numeric()
		s.Labels = append(s.Labels, label)
		s.Values = append(s.Values, n)
	}
	return s
}

func lookup(doc *infobox.Document, section, field string) *infobox.Field {
	if section == "" {
		return doc.Find(field)
	}
	return doc.Lookup(section, field)
}

func firstNumber(f *infobox.Field) float64 {
	if f == nil {
		return 0
	}
	for _, v := range f.Values() {
		if n, ok := v.Numeric(); ok {
			return n
		}
	}
	return 0
}
