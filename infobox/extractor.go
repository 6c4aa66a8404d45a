package infobox

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	// DefaultSection holds fields that appear before the first header row.
	DefaultSection = "基本信息"

	// DefaultTitle is used when no title cell has text.
	DefaultTitle = "无标题"
)

// decorationSelector matches nodes stripped from data cells before their
// text is read.
const decorationSelector = "img, sup, .reference, .mw-editsection, abbr"

// titleSelectors are tried in order; the first with non-empty text wins.
var titleSelectors = []string{
	"caption",
	".infobox-title",
	`th[colspan="2"]`,
}

// typeRules are matched against the lower-cased class list and text.
var typeRules = []struct {
	typ     Type
	pattern *regexp.Regexp
}{
	{TypeCountry, regexp.MustCompile(`country|nation|state|国家`)},
	{TypeEconomy, regexp.MustCompile(`economy|经济`)},
	{TypePerson, regexp.MustCompile(`person|people|人物`)},
	{TypeCompany, regexp.MustCompile(`company|公司`)},
}

// Parse extracts the infobox rooted at the given table node. It returns nil
// when root is nil. The tree under root is not modified.
func Parse(root *html.Node) *Document {
	if root == nil {
		return nil
	}
	return ParseSelection(goquery.NewDocumentFromNode(root).Selection)
}

// ParseSelection is like Parse for the first node of a goquery selection.
func ParseSelection(table *goquery.Selection) *Document {
	if table == nil || table.Length() == 0 {
		return nil
	}
	table = table.First()

	doc := &Document{
		Title: extractTitle(table),
		Type:  DetectType(table),
	}

	current := DefaultSection
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if isHeaderRow(row) {
			if name := CleanText(row.Text()); name != "" {
				current = name
			}
			doc.ensureSection(current)
			return
		}

		label := row.Find("th.infobox-label").First()
		data := row.Find("td.infobox-data").First()
		if label.Length() == 0 || data.Length() == 0 {
			return
		}

		name := CleanFieldName(label.Text())
		if name == "" {
			return
		}
		if field := extractField(name, data); field != nil {
			doc.ensureSection(current).set(field)
		}
	})

	return doc
}

// Find returns every infobox table in a parsed page, in document order.
func Find(page *html.Node) []*html.Node {
	if page == nil {
		return nil
	}
	return goquery.NewDocumentFromNode(page).Find("table.infobox").Nodes
}

// ParseAll parses every infobox table in a page.
func ParseAll(page *html.Node) []*Document {
	var docs []*Document
	for _, n := range Find(page) {
		if doc := Parse(n); doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs
}

// ParseHTML reads an HTML page and parses every infobox in it.
func ParseHTML(r io.Reader) ([]*Document, error) {
	page, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return ParseAll(page), nil
}

// DetectType classifies an infobox by keywords in its class list and text.
func DetectType(table *goquery.Selection) Type {
	haystack := strings.ToLower(table.AttrOr("class", "") + " " + table.Text())
	for _, rule := range typeRules {
		if rule.pattern.MatchString(haystack) {
			return rule.typ
		}
	}
	return TypeOther
}

func extractTitle(table *goquery.Selection) string {
	for _, sel := range titleSelectors {
		if title := CleanText(table.Find(sel).First().Text()); title != "" {
			return title
		}
	}
	return DefaultTitle
}

func isHeaderRow(row *goquery.Selection) bool {
	return row.HasClass("infobox-header") ||
		row.Find(`th[colspan="2"].infobox-header`).Length() > 0
}

// extractField classifies a data cell. The cell is cloned before
// decoration is removed so the caller's tree stays intact.
func extractField(name string, cell *goquery.Selection) *Field {
	td := cell.Clone()
	td.Find(decorationSelector).Remove()

	if td.Find("ul, ol").Length() > 0 {
		var items []Value
		td.Find("li").Each(func(_ int, li *goquery.Selection) {
			if text := CleanText(li.Text()); text != "" {
				items = append(items, Classify(text))
			}
		})
		if len(items) == 0 {
			return nil
		}
		return &Field{Name: name, Items: items}
	}

	text := CleanText(td.Text())
	if text == "" {
		return nil
	}
	v := Classify(text)
	return &Field{Name: name, Value: &v}
}
