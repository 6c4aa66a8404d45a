package infobox

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

// parseTable parses an HTML snippet and returns its first infobox table.
func parseTable(t *testing.T, src string) *html.Node {
	t.Helper()
	page, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	tables := Find(page)
	require.NotEmpty(t, tables, "no infobox table in fixture")
	return tables[0]
}

const economyTable = `<table class="infobox">
	<tr><th colspan="2" class="infobox-header">Economy</th></tr>
	<tr><th class="infobox-label">GDP:</th><td class="infobox-data">$1.2 billion (2023)</td></tr>
</table>`

func TestParseNilRoot(t *testing.T) {
	assert.Nil(t, Parse(nil))
	assert.Nil(t, ParseSelection(nil))
}

func TestParseCurrencyUnderHeader(t *testing.T) {
	doc := Parse(parseTable(t, economyTable))
	require.NotNil(t, doc)

	assert.Equal(t, "Economy", doc.Title)
	assert.Equal(t, TypeEconomy, doc.Type)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Economy", doc.Sections[0].Name)

	gdp := doc.Lookup("Economy", "GDP")
	require.NotNil(t, gdp)
	require.False(t, gdp.IsList())
	assert.Equal(t, KindCurrency, gdp.Value.Kind)
	assert.InDelta(t, 1.2e9, gdp.Value.Number, 1e-3)
	assert.Equal(t, "$", gdp.Value.Currency)
	assert.Equal(t, "$1.2 billion (2023)", gdp.Value.Raw)
	assert.True(t, gdp.Value.Extracted)
}

func TestParseListCell(t *testing.T) {
	root := parseTable(t, `<table class="infobox">
		<tr><th class="infobox-label">Counts</th>
			<td class="infobox-data"><ul><li>1,200</li><li>3,400</li></ul></td></tr>
	</table>`)

	doc := Parse(root)
	require.NotNil(t, doc)

	f := doc.Lookup(DefaultSection, "Counts")
	require.NotNil(t, f)
	require.True(t, f.IsList())
	require.Len(t, f.Items, 2)
	assert.Equal(t, KindNumber, f.Items[0].Kind)
	assert.Equal(t, 1200.0, f.Items[0].Number)
	assert.Equal(t, "1,200", f.Items[0].Raw)
	assert.Equal(t, KindNumber, f.Items[1].Kind)
	assert.Equal(t, 3400.0, f.Items[1].Number)
}

func TestParseChineseRank(t *testing.T) {
	root := parseTable(t, `<table class="infobox">
		<tr><th class="infobox-label">排名</th><td class="infobox-data">第十名</td></tr>
	</table>`)

	f := Parse(root).Lookup(DefaultSection, "排名")
	require.NotNil(t, f)
	assert.Equal(t, KindRank, f.Value.Kind)
	assert.Equal(t, 10, f.Value.Rank)
	assert.True(t, f.Value.Extracted)
}

func TestParseStripsDecorationWithoutMutatingInput(t *testing.T) {
	root := parseTable(t, `<table class="infobox">
		<tr><th class="infobox-label">Growth</th>
			<td class="infobox-data">6.8%<sup class="reference"><a href="#cite-1">[1]</a></sup>
				<span class="mw-editsection">edit</span><img src="flag.png"></td></tr>
	</table>`)

	var before bytes.Buffer
	require.NoError(t, html.Render(&before, root))

	f := Parse(root).Lookup(DefaultSection, "Growth")
	require.NotNil(t, f)
	assert.Equal(t, KindPercentage, f.Value.Kind)
	assert.Equal(t, 6.8, f.Value.Number)
	assert.Equal(t, "%", f.Value.Unit)
	assert.Equal(t, "6.8%", f.Value.Raw)

	var after bytes.Buffer
	require.NoError(t, html.Render(&after, root))
	assert.Equal(t, before.String(), after.String())
	assert.Contains(t, after.String(), "<sup")
}

func TestParseSectionCursor(t *testing.T) {
	root := parseTable(t, `<table class="infobox">
		<caption>Testland</caption>
		<tr><th class="infobox-label">Capital</th><td class="infobox-data">Test City</td></tr>
		<tr class="infobox-header"><th colspan="2">Geography</th></tr>
		<tr><th class="infobox-label">Area</th><td class="infobox-data">9,600 km2</td></tr>
		<tr class="infobox-header"><th colspan="2"> </th></tr>
		<tr><th class="infobox-label">Coast</th><td class="infobox-data">none</td></tr>
		<tr class="infobox-header"><th colspan="2">Government</th></tr>
		<tr><th class="infobox-label">Leader</th><td class="infobox-data">A. Person</td></tr>
	</table>`)

	doc := Parse(root)
	require.NotNil(t, doc)
	assert.Equal(t, "Testland", doc.Title)

	names := make([]string, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{DefaultSection, "Geography", "Government"}, names)

	assert.NotNil(t, doc.Lookup(DefaultSection, "Capital"))
	assert.NotNil(t, doc.Lookup("Geography", "Area"))
	assert.NotNil(t, doc.Lookup("Geography", "Coast"), "empty header keeps the previous section")
	assert.NotNil(t, doc.Lookup("Government", "Leader"))
	assert.Equal(t, 4, doc.FieldCount())
}

func TestParseSkipsIncompleteRows(t *testing.T) {
	root := parseTable(t, `<table class="infobox">
		<tr><th class="infobox-label">No data</th></tr>
		<tr><td class="infobox-data">No label</td></tr>
		<tr><th class="infobox-label">:</th><td class="infobox-data">empty key</td></tr>
		<tr><th class="infobox-label">Only image</th><td class="infobox-data"><img src="a.png"></td></tr>
		<tr><th class="infobox-label">Kept</th><td class="infobox-data">yes</td></tr>
	</table>`)

	doc := Parse(root)
	require.NotNil(t, doc)
	assert.Equal(t, 1, doc.FieldCount())
	assert.NotNil(t, doc.Find("Kept"))
	assert.Nil(t, doc.Find("Only image"))
}

func TestParseDuplicateLabelKeepsPosition(t *testing.T) {
	root := parseTable(t, `<table class="infobox">
		<tr><th class="infobox-label">A</th><td class="infobox-data">first</td></tr>
		<tr><th class="infobox-label">B</th><td class="infobox-data">middle</td></tr>
		<tr><th class="infobox-label">A</th><td class="infobox-data">second</td></tr>
	</table>`)

	s := Parse(root).Section(DefaultSection)
	require.NotNil(t, s)
	require.Len(t, s.Fields, 2)
	assert.Equal(t, "A", s.Fields[0].Name)
	assert.Equal(t, "second", s.Fields[0].Value.Raw)
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "caption wins",
			html: `<table class="infobox"><caption>Caption Title</caption>
				<tr><th colspan="2" class="infobox-title">Class Title</th></tr></table>`,
			want: "Caption Title",
		},
		{
			name: "title class",
			html: `<table class="infobox"><tr><th class="infobox-title">Class Title</th></tr></table>`,
			want: "Class Title",
		},
		{
			name: "two column header",
			html: `<table class="infobox"><tr><th colspan="2">Spanning [2]</th></tr></table>`,
			want: "Spanning",
		},
		{
			name: "default",
			html: `<table class="infobox"><tr><th class="infobox-label">k</th><td class="infobox-data">v</td></tr></table>`,
			want: DefaultTitle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Parse(parseTable(t, tt.html))
			require.NotNil(t, doc)
			assert.Equal(t, tt.want, doc.Title)
		})
	}
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		name string
		html string
		want Type
	}{
		{
			name: "country class",
			html: `<table class="infobox country"><tr><td>x</td></tr></table>`,
			want: TypeCountry,
		},
		{
			name: "chinese country text",
			html: `<table class="infobox"><tr><td>中华人民共和国国家主席</td></tr></table>`,
			want: TypeCountry,
		},
		{
			name: "economy text",
			html: `<table class="infobox"><tr><td>World Economy</td></tr></table>`,
			want: TypeEconomy,
		},
		{
			name: "person class",
			html: `<table class="infobox vcard person"><tr><td>x</td></tr></table>`,
			want: TypePerson,
		},
		{
			name: "company text",
			html: `<table class="infobox"><tr><td>上市公司</td></tr></table>`,
			want: TypeCompany,
		},
		{
			name: "country beats company",
			html: `<table class="infobox company"><tr><td>Country of origin</td></tr></table>`,
			want: TypeCountry,
		},
		{
			name: "other",
			html: `<table class="infobox"><tr><td>Mount Example</td></tr></table>`,
			want: TypeOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Parse(parseTable(t, tt.html))
			require.NotNil(t, doc)
			assert.Equal(t, tt.want, doc.Type)
		})
	}
}

func TestParseHTMLFindsEveryInfobox(t *testing.T) {
	page := `<html><body>
		<p>Intro</p>
		<table class="wikitable"><tr><th class="infobox-label">x</th><td class="infobox-data">1</td></tr></table>
		<table class="infobox"><caption>First</caption></table>
		<table class="infobox vcard"><caption>Second</caption></table>
	</body></html>`

	docs, err := ParseHTML(strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "First", docs[0].Title)
	assert.Equal(t, "Second", docs[1].Title)
	assert.Empty(t, docs[0].Sections)
}

func TestFindWithoutInfobox(t *testing.T) {
	page, err := html.Parse(strings.NewReader(`<html><body><p>none</p></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, Find(page))
	assert.Empty(t, ParseAll(page))
	assert.Nil(t, Find(nil))
}

func TestDocumentJSON(t *testing.T) {
	doc := Parse(parseTable(t, economyTable))
	require.NotNil(t, doc)

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"title": "Economy",
		"type": "economy",
		"sections": {
			"Economy": {
				"GDP": {
					"value": 1200000000,
					"unit": "billion",
					"currency": "$",
					"type": "currency",
					"raw": "$1.2 billion (2023)",
					"extracted": true
				}
			}
		}
	}`, string(data))
}

func TestDocumentJSONKeepsOrder(t *testing.T) {
	root := parseTable(t, `<table class="infobox">
		<tr class="infobox-header"><th colspan="2">Zeta</th></tr>
		<tr><th class="infobox-label">Z2</th><td class="infobox-data">a</td></tr>
		<tr><th class="infobox-label">Z1</th><td class="infobox-data"><ol><li>b</li><li>c</li></ol></td></tr>
		<tr class="infobox-header"><th colspan="2">Alpha</th></tr>
		<tr><th class="infobox-label">A1</th><td class="infobox-data">d</td></tr>
	</table>`)

	data, err := json.Marshal(Parse(root))
	require.NoError(t, err)
	out := string(data)

	assert.Less(t, strings.Index(out, `"Zeta"`), strings.Index(out, `"Alpha"`))
	assert.Less(t, strings.Index(out, `"Z2"`), strings.Index(out, `"Z1"`))
	assert.Contains(t, out, `"Z1":[{"value":"b","type":"text","raw":"b","extracted":false},{"value":"c","type":"text","raw":"c","extracted":false}]`)
}
