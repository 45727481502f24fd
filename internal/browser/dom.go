package browser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document parses an HTML string into a goquery.Document for
// CSS-selector based extraction.
func Document(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// TextOrEmpty returns the trimmed text of the first match for selector
// within doc, or "" when nothing matches.
func TextOrEmpty(doc *goquery.Document, selector string) string {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(sel.Text())
}

// AttrOrEmpty returns the named attribute of the first match for selector,
// or "" when nothing matches or the attribute is absent.
func AttrOrEmpty(doc *goquery.Document, selector, attr string) string {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	val, _ := sel.Attr(attr)
	return strings.TrimSpace(val)
}
