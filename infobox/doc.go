// Package infobox extracts structured data from Wikipedia infobox tables.
//
// An infobox is the key/value summary table MediaWiki renders at the top of
// an article. Rows carrying the infobox-header class start a new section;
// rows with an infobox-label header cell and an infobox-data cell become
// fields of the current section.
//
// # Parsing
//
// [Parse] takes the table node and returns a [Document]:
//
//	doc := infobox.Parse(tableNode)
//	if doc == nil {
//	    // no table
//	}
//	gdp := doc.Lookup("Economy", "GDP")
//
// [ParseHTML] finds and parses every infobox in a full page.
//
// Parsing never returns an error. Rows without both a label and a data cell
// are skipped, and a nil root yields a nil document. The input tree is only
// read: data cells are cloned before decoration (images, footnote markers,
// edit links, abbreviations) is stripped.
//
// # Values
//
// Each data cell is cleaned and run through [Classifiers], an ordered list of
// pattern matchers. The first match decides the [Kind]:
//
//   - percentage: "6.8%"
//   - currency: "$1.5 million", "¥3亿"
//   - number: "1,200"
//   - rank: "第十名", "rank 3", "2nd place"
//   - date_range: "1 April – 31 March"
//
// Text that matches nothing is kept as [KindText] with Extracted set to
// false and, when the text carries a "(2023)" or "as of 2023" annotation,
// the year attached. Every [Value] keeps the cleaned source text in Raw.
//
// Cells containing a list produce one value per list item.
package infobox
