package crawler

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

var nonNumericRegex *regexp.Regexp

func init() {
	nonNumericRegex = regexp.MustCompile(`[^0-9-]`)
}

func parseHtml(content string) (*html.Node, error) {
	return html.Parse(strings.NewReader(content))
}

// decodeBody honors the charset from the header or the meta tags, defaulting to utf-8
func decodeBody(body []byte, maybeContentType *string) string {
	contentType := ""
	if maybeContentType != nil {
		contentType = *maybeContentType
	}
	encoding, _, _ := charset.DetermineEncoding(body, contentType)
	decoded, err := encoding.NewDecoder().String(string(body))
	if err != nil {
		return string(body)
	}
	return decoded
}

func innerText(element *html.Node) string {
	var builder strings.Builder
	var traverse func(n *html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.TextNode {
			builder.WriteString(n.Data)
		} else {
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				traverse(child)
			}
		}
	}
	traverse(element)
	return builder.String()
}

// collapsedText is the inner text with whitespace runs squashed to single spaces
func collapsedText(element *html.Node) string {
	if element == nil {
		return ""
	}
	return strings.Join(strings.Fields(innerText(element)), " ")
}

// leadingText is the text before the first child element
func leadingText(element *html.Node) string {
	var builder strings.Builder
	for child := element.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			break
		}
		if child.Type == html.TextNode {
			builder.WriteString(child.Data)
		}
	}
	return builder.String()
}

// textPieces lists the non-blank text nodes in document order, trimmed
func textPieces(element *html.Node) []string {
	var pieces []string
	var traverse func(n *html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.TextNode {
			if piece := strings.TrimSpace(n.Data); piece != "" {
				pieces = append(pieces, piece)
			}
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			traverse(child)
		}
	}
	traverse(element)
	return pieces
}

func findAttr(node *html.Node, name string) string {
	if node == nil {
		return ""
	}
	for _, attr := range node.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

func hasClassPrefix(node *html.Node, prefix string) bool {
	return strings.HasPrefix(findAttr(node, "class"), prefix)
}

func hasClass(node *html.Node, class string) bool {
	for _, token := range strings.Fields(findAttr(node, "class")) {
		if token == class {
			return true
		}
	}
	return false
}

func elementChildren(node *html.Node) []*html.Node {
	if node == nil {
		return nil
	}
	var children []*html.Node
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			children = append(children, child)
		}
	}
	return children
}

// nthElement returns the i-th element child or nil
func nthElement(node *html.Node, i int) *html.Node {
	children := elementChildren(node)
	if i < 0 || i >= len(children) {
		return nil
	}
	return children[i]
}

func findOne(node *html.Node, xpath string) *html.Node {
	if node == nil {
		return nil
	}
	return htmlquery.FindOne(node, xpath)
}

func findAll(node *html.Node, xpath string) []*html.Node {
	if node == nil {
		return nil
	}
	return htmlquery.Find(node, xpath)
}

func removeNode(node *html.Node) {
	if node.Parent != nil {
		node.Parent.RemoveChild(node)
	}
}

func renderHtml(node *html.Node) string {
	var builder strings.Builder
	if err := html.Render(&builder, node); err != nil {
		return ""
	}
	return builder.String()
}

// toInt keeps only digits and minus signs, falling back to defaultValue when nothing parses
func toInt(value string, defaultValue int) int {
	digits := nonNumericRegex.ReplaceAllString(value, "")
	if digits == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(digits)
	if err != nil {
		return defaultValue
	}
	return result
}

func lastField(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
