package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/newswatch/internal/config"
	"github.com/IshaanNene/newswatch/internal/types"
)

// ListingParser extracts ranked link listings (most read, promos) from a
// homepage using an ordered chain of CSS or XPath selector rules.
type ListingParser struct {
	logger *slog.Logger
}

// NewListingParser creates a new ListingParser.
func NewListingParser(logger *slog.Logger) *ListingParser {
	return &ListingParser{
		logger: logger.With("component", "listing_parser"),
	}
}

// Page is a homepage parsed once and queried by several listings.
type Page struct {
	URL  string
	root *html.Node
	doc  *goquery.Document
	base *url.URL
}

// NewPage parses body. Relative links are resolved against baseURL.
func NewPage(body []byte, pageURL, baseURL string) (*Page, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &types.ParseError{URL: pageURL, Err: err}
	}
	return newPage(goquery.NewDocumentFromNode(root), pageURL, baseURL)
}

// PageFromResponse builds a Page from a fetched homepage, reusing the
// response's parsed document.
func PageFromResponse(resp *types.Response, baseURL string) (*Page, error) {
	pageURL := resp.FinalURL
	if pageURL == "" {
		pageURL = resp.Request.URLString()
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{URL: pageURL, Err: err}
	}
	return newPage(doc, pageURL, baseURL)
}

func newPage(doc *goquery.Document, pageURL, baseURL string) (*Page, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &types.ParseError{URL: pageURL, Err: fmt.Errorf("base url: %w", err)}
	}
	if len(doc.Nodes) == 0 {
		return nil, &types.ParseError{URL: pageURL, Err: types.ErrEmptyResponse}
	}
	return &Page{
		URL:  pageURL,
		root: doc.Nodes[0],
		doc:  doc,
		base: base,
	}, nil
}

// candidate is one listing item before validation.
type candidate struct {
	title string
	href  string
}

// Parse applies rules in order and returns the entries of the first rule
// whose container holds at least one item. Only the first limit items are
// considered (0 means no limit); items among them without a title or link
// are dropped rather than replaced by later ones. Ranks are assigned 1..n
// over the entries actually kept, so a scrape always logs a contiguous
// ranking.
func (p *ListingParser) Parse(page *Page, rules []config.SelectorRule, limit int) ([]types.Entry, error) {
	for _, rule := range rules {
		var (
			cands []candidate
			found bool
			err   error
		)
		switch rule.Type {
		case "xpath":
			cands, found, err = p.queryXPath(page, rule)
		default:
			cands, found = p.queryCSS(page, rule)
		}
		if err != nil {
			p.logger.Warn("selector rule failed", "rule", rule.Name, "error", err)
			continue
		}
		if !found || len(cands) == 0 {
			p.logger.Warn("selector rule matched nothing, trying next", "rule", rule.Name, "container", rule.Container)
			continue
		}

		entries := p.toEntries(page, rule, cands, limit)
		p.logger.Debug("listing parsed", "rule", rule.Name, "entries", len(entries))
		return entries, nil
	}

	return nil, &types.ParseError{URL: page.URL, Selector: ruleNames(rules), Err: types.ErrNoListing}
}

// toEntries validates candidates, resolves links and assigns ranks.
func (p *ListingParser) toEntries(page *Page, rule config.SelectorRule, cands []candidate, limit int) []types.Entry {
	var entries []types.Entry
	seen := make(map[string]bool)

	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}
	for i, c := range cands {
		title := collapseSpace(c.title)
		link, ok := resolveLink(page.base, c.href)
		if title == "" || !ok {
			p.logger.Warn("could not extract title/link from list item",
				"rule", rule.Name,
				"item", i+1,
				"href", c.href,
			)
			continue
		}
		if seen[link] {
			continue
		}
		seen[link] = true
		entries = append(entries, types.Entry{
			Rank:  len(entries) + 1,
			Title: title,
			Link:  link,
		})
	}
	return entries
}

// resolveLink makes href absolute against base. Only http(s) links survive.
func resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if !ref.IsAbs() && ref.Host == "" && !strings.HasPrefix(ref.Path, "/") {
		ref.Path = "/" + ref.Path
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	return resolved.String(), true
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func ruleNames(rules []config.SelectorRule) string {
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.Name)
	}
	return strings.Join(names, ",")
}
