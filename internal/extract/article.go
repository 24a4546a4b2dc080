package extract

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Article is the metadata and body extracted from an article page.
type Article struct {
	Canonical   string
	Title       string
	Authors     []string
	ArticleHTML string
	Text        string
}

// ParseArticle extracts the canonical URL, title, authors and body from an
// article page. The body is the page's text blocks when present, else its
// <main>, else its <body>, else the whole document.
func ParseArticle(raw string) Article {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return Article{ArticleHTML: raw}
	}
	doc := goquery.NewDocumentFromNode(root)

	a := Article{
		Canonical: attr(doc.Find(`link[rel="canonical"]`), "href"),
		Title:     attr(doc.Find(`meta[property="og:title"]`), "content"),
		Authors:   authors(doc),
	}
	if a.Title == "" {
		a.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	blocks := doc.Find(`[data-component="text-block"]`)
	if blocks.Length() > 0 {
		var htmlParts, textParts []string
		blocks.Each(func(_ int, s *goquery.Selection) {
			if h, err := goquery.OuterHtml(s); err == nil {
				htmlParts = append(htmlParts, h)
			}
			if t := Text(s.Get(0)); t != "" {
				textParts = append(textParts, t)
			}
		})
		a.ArticleHTML = strings.Join(htmlParts, "")
		a.Text = strings.Join(textParts, " ")
		return a
	}

	main := doc.Find("main").First()
	if main.Length() == 0 {
		main = doc.Find("body").First()
	}
	if main.Length() == 0 {
		a.ArticleHTML = raw
		a.Text = Text(root)
		return a
	}
	if h, err := goquery.OuterHtml(main); err == nil {
		a.ArticleHTML = h
	}
	a.Text = Text(main.Get(0))
	return a
}

// authors collects bylines from rel=author links, schema.org names and the
// "byl" meta tag, sorted and de-duplicated.
func authors(doc *goquery.Document) []string {
	set := make(map[string]struct{})
	doc.Find(`[rel="author"], [itemprop="name"]`).Each(func(_ int, s *goquery.Selection) {
		if name := strings.Join(strings.Fields(s.Text()), " "); name != "" {
			set[name] = struct{}{}
		}
	})
	if byl := attr(doc.Find(`meta[name="byl"]`), "content"); byl != "" {
		set[byl] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func attr(sel *goquery.Selection, name string) string {
	v, _ := sel.First().Attr(name)
	return strings.TrimSpace(v)
}
