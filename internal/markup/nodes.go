package markup

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"
)

// Node is a Telegraph content node: either plain text or an element.
type Node struct {
	Text     string
	Tag      string
	Attrs    map[string]string
	Children []Node
}

type element struct {
	Tag      string            `json:"tag"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Children []Node            `json:"children,omitempty"`
}

// TextNode builds a text node.
func TextNode(s string) Node { return Node{Text: s} }

// Elem builds an element node.
func Elem(tag string, children ...Node) Node { return Node{Tag: tag, Children: children} }

// IsText reports whether n is a text node.
func (n Node) IsText() bool { return n.Tag == "" }

// MarshalJSON encodes text nodes as JSON strings and elements as objects.
func (n Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	var err error
	if n.IsText() {
		err = enc.Encode(n.Text)
	} else {
		err = enc.Encode(element{Tag: n.Tag, Attrs: n.Attrs, Children: n.Children})
	}
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// EncodeNodes serialises a node list without HTML escaping.
func EncodeNodes(nodes []Node) ([]byte, error) {
	if nodes == nil {
		nodes = []Node{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(nodes); err != nil {
		return nil, errors.Wrap(err, "encode nodes")
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

var allowedNodeTags = map[string]bool{
	"a": true, "aside": true, "b": true, "blockquote": true, "br": true,
	"code": true, "em": true, "figcaption": true, "figure": true, "h3": true,
	"h4": true, "hr": true, "i": true, "iframe": true, "img": true, "li": true,
	"ol": true, "p": true, "pre": true, "s": true, "strong": true, "u": true,
	"ul": true, "video": true,
}

var nodeTagAliases = map[string]string{
	"h1": "h3", "h2": "h3", "h5": "h4", "h6": "h4",
}

var blockNodeTags = map[string]bool{
	"aside": true, "blockquote": true, "figure": true, "h3": true, "h4": true,
	"hr": true, "ol": true, "p": true, "pre": true, "ul": true, "iframe": true,
	"video": true,
}

// Nodes converts an HTML document body into a Telegraph node tree.
func Nodes(doc []byte) ([]Node, error) {
	parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}

	root := parsed.Find("body")
	if root.Length() == 0 {
		root = parsed.Selection
	}

	var out []Node
	for _, n := range root.Nodes {
		out = append(out, convertChildren(n, false)...)
	}
	return out, nil
}

func convertChildren(n *html.Node, inline bool) []Node {
	var out []Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, convertNode(c, inline)...)
	}
	return out
}

func convertNode(n *html.Node, inline bool) []Node {
	switch n.Type {
	case html.TextNode:
		t := whitespaceRuns.ReplaceAllString(n.Data, " ")
		if strings.TrimSpace(t) == "" {
			if inline {
				return []Node{TextNode(" ")}
			}
			return nil
		}
		if !inline {
			return []Node{Elem("p", TextNode(strings.TrimSpace(t)))}
		}
		return []Node{TextNode(t)}
	case html.ElementNode:
	default:
		return nil
	}

	tag := strings.ToLower(n.Data)
	if droppedTags[tag] {
		return nil
	}
	if alias, ok := nodeTagAliases[tag]; ok {
		tag = alias
	}

	if !allowedNodeTags[tag] {
		children := convertChildren(n, true)
		if inline {
			return children
		}
		if containsBlock(children) {
			return convertChildren(n, false)
		}
		if !hasContent(children) {
			return nil
		}
		return []Node{{Tag: "p", Children: children}}
	}

	node := Node{Tag: tag, Attrs: keptAttrs(n)}
	switch tag {
	case "ul", "ol", "figure", "blockquote", "aside":
		node.Children = convertChildren(n, false)
	default:
		node.Children = convertChildren(n, true)
	}
	return []Node{node}
}

func containsBlock(nodes []Node) bool {
	for _, n := range nodes {
		if blockNodeTags[n.Tag] {
			return true
		}
	}
	return false
}

func hasContent(nodes []Node) bool {
	for _, n := range nodes {
		if !n.IsText() || strings.TrimSpace(n.Text) != "" {
			return true
		}
	}
	return false
}

func keptAttrs(n *html.Node) map[string]string {
	var attrs map[string]string
	for _, key := range []string{"href", "src"} {
		if v, ok := attr(n, key); ok && v != "" {
			if attrs == nil {
				attrs = map[string]string{}
			}
			attrs[key] = v
		}
	}
	return attrs
}
