package marketplace

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// strippedText concatenates every descendant text node of sel after trimming
// each one, so "<b> Widget </b> <i>Pro</i>" yields "WidgetPro".
func strippedText(sel *goquery.Selection) string {
	var sb strings.Builder
	for _, n := range sel.Nodes {
		writeStripped(&sb, n)
	}
	return sb.String()
}

func writeStripped(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(strings.TrimSpace(n.Data))
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeStripped(sb, c)
	}
}

// textOf returns the stripped text of the first element matching selector
// within el, and false when there is none.
func textOf(el *goquery.Selection, selector string) (string, bool) {
	node := el.Find(selector).First()
	if node.Length() == 0 {
		return "", false
	}
	return strippedText(node), true
}

// stripByMarker removes the first "By" marker and surrounding whitespace.
func stripByMarker(s string) string {
	return strings.TrimSpace(strings.Replace(s, byMarker, "", 1))
}

// beforeByMarker returns the text preceding the first "By" marker.
func beforeByMarker(s string) string {
	before, _, _ := strings.Cut(s, byMarker)
	return strings.TrimSpace(before)
}

const byMarker = "By"

func prefixHost(host, href string) string {
	return host + href
}

// resolveLink turns a site-relative href into an absolute URL on host.
func resolveLink(host, href string) string {
	if strings.HasPrefix(href, "/") {
		return host + href
	}
	return href
}
