package parser

import (
	"fmt"

	"github.com/antchfx/htmlquery"

	"github.com/IshaanNene/newswatch/internal/config"
)

// queryXPath evaluates an XPath rule with htmlquery. Item, Link and Title
// expressions are evaluated relative to their parent node.
func (p *ListingParser) queryXPath(page *Page, rule config.SelectorRule) ([]candidate, bool, error) {
	container, err := htmlquery.Query(page.root, rule.Container)
	if err != nil {
		return nil, false, fmt.Errorf("invalid xpath %q: %w", rule.Container, err)
	}
	if container == nil {
		return nil, false, nil
	}

	items, err := htmlquery.QueryAll(container, rule.Item)
	if err != nil {
		return nil, false, fmt.Errorf("invalid xpath %q: %w", rule.Item, err)
	}

	var cands []candidate
	for _, item := range items {
		link := item
		if rule.Link != "" && rule.Link != "." {
			link, err = htmlquery.Query(item, rule.Link)
			if err != nil {
				return nil, false, fmt.Errorf("invalid xpath %q: %w", rule.Link, err)
			}
		}

		var c candidate
		if link != nil {
			c.href = htmlquery.SelectAttr(link, "href")
			c.title = htmlquery.InnerText(link)
		}
		if rule.Title != "" {
			titleNode, err := htmlquery.Query(item, rule.Title)
			if err != nil {
				return nil, false, fmt.Errorf("invalid xpath %q: %w", rule.Title, err)
			}
			if titleNode != nil {
				c.title = htmlquery.InnerText(titleNode)
			}
		}
		cands = append(cands, c)
	}
	return cands, true, nil
}
