package universe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// WikiSource scrapes the S&P 500 constituents table from Wikipedia.
//
// The page carries the components in a table with id "constituents"; the
// ticker symbol is the first cell of each row. When the id is not found (the
// page structure occasionally changes) the first "wikitable" on the page is
// used as a fallback.
type WikiSource struct {
	url    string
	client *http.Client
}

func NewWikiSource(url string) *WikiSource {
	return &WikiSource{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WikiSource) Symbols(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch constituents page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("constituents page returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse constituents page: %w", err)
	}

	table := findTable(doc, "constituents")
	if table == nil {
		return nil, fmt.Errorf("constituents table not found at %s", w.url)
	}

	symbols := extractFirstColumn(table)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no tickers extracted from constituents table")
	}
	return symbols, nil
}

// findTable returns the <table> with the given id, falling back to the first
// table carrying a "wikitable" class.
func findTable(doc *html.Node, id string) *html.Node {
	if t := findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "table" && attr(n, "id") == id
	}); t != nil {
		return t
	}
	return findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "table" &&
			strings.Contains(attr(n, "class"), "wikitable")
	})
}

// extractFirstColumn collects the trimmed text of the first <td> of every row.
// Header rows (<th> only) contribute nothing.
func extractFirstColumn(table *html.Node) []string {
	var symbols []string
	walk(table, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "tr" {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "td" {
				if s := strings.TrimSpace(text(c)); s != "" {
					symbols = append(symbols, s)
				}
				break
			}
		}
	})
	return symbols
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(text(c))
	}
	return b.String()
}
