package infobox

import "strings"

// Markdown renders the document as a heading followed by one two-column
// table per section. Cells show the cleaned source text; list fields join
// their items with "; ".
func (d *Document) Markdown() string {
	var result strings.Builder

	result.WriteString("## ")
	result.WriteString(escapeMarkdown(d.Title))
	result.WriteString("\n")

	for _, s := range d.Sections {
		if len(s.Fields) == 0 {
			continue
		}
		result.WriteString("\n### ")
		result.WriteString(escapeMarkdown(s.Name))
		result.WriteString("\n\n| Field | Value |\n| --- | --- |\n")

		for _, f := range s.Fields {
			raws := make([]string, 0, len(f.Values()))
			for _, v := range f.Values() {
				raws = append(raws, v.Raw)
			}
			result.WriteString("| ")
			result.WriteString(escapeMarkdown(f.Name))
			result.WriteString(" | ")
			result.WriteString(escapeMarkdown(strings.Join(raws, "; ")))
			result.WriteString(" |\n")
		}
	}

	return result.String()
}

// escapeMarkdown escapes characters that break table cells.
func escapeMarkdown(text string) string {
	var result strings.Builder
	result.Grow(len(text))
	for _, r := range text {
		switch r {
		case '|':
			result.WriteString("\\|")
		case '\n':
			result.WriteString(" ")
		case '\r':
			// Skip
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}
