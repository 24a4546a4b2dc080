package parser

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/newswatch/internal/config"
)

// queryCSS evaluates a CSS rule with goquery. found is false when the
// container selector matches nothing.
func (p *ListingParser) queryCSS(page *Page, rule config.SelectorRule) ([]candidate, bool) {
	container := page.doc.Find(rule.Container).First()
	if container.Length() == 0 {
		return nil, false
	}

	var cands []candidate
	container.Find(rule.Item).Each(func(i int, item *goquery.Selection) {
		link := item
		if rule.Link != "" && rule.Link != "." {
			link = item.Find(rule.Link).First()
		}
		href, _ := link.Attr("href")

		title := link.Text()
		if rule.Title != "" {
			if t := item.Find(rule.Title).First(); t.Length() > 0 {
				title = t.Text()
			}
		}

		cands = append(cands, candidate{title: title, href: href})
	})
	return cands, true
}
