package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	attrKey         = "data-i18n"
	attrParamPrefix = "data-i18n-param-"
	attrTarget      = "data-i18n-target"
	attrInputAttr   = "data-i18n-attr"
	attrID          = "data-i18n-id"
	attrTitle       = "data-i18n-title"
)

// targetKind says where a resolved string is written.
type targetKind int

const (
	targetText targetKind = iota
	targetAttr
	targetNone
)

// Target is the destination of a binding's value.
type Target struct {
	kind targetKind
	attr string
}

// Attribute returns the attribute written, or "" for text content.
func (t Target) Attribute() string {
	return t.attr
}

// Writable reports whether the element accepts a value at all.
func (t Target) Writable() bool {
	return t.kind != targetNone
}

func (t Target) String() string {
	switch t.kind {
	case targetAttr:
		return "@" + t.attr
	case targetNone:
		return "none"
	}
	return "text"
}

// Binding is a marked element captured by an index scan.
type Binding struct {
	Node   *html.Node
	ID     string
	Key    string
	Params map[string]string
	Target Target
}

// scan collects the bindings of every element carrying data-i18n, and the
// title key configured on <html>.
func scan(doc *goquery.Document) ([]*Binding, string) {
	var bindings []*Binding
	doc.Find("[" + attrKey + "]").Each(func(_ int, s *goquery.Selection) {
		n := s.Nodes[0]
		key, _ := s.Attr(attrKey)
		bindings = append(bindings, &Binding{
			Node:   n,
			ID:     elementID(n),
			Key:    key,
			Params: params(n),
			Target: targetFor(n),
		})
	})

	titleKey, _ := doc.Find("html").First().Attr(attrTitle)
	return bindings, titleKey
}

// Bindings scans the document and returns its bindings and title key
// without applying anything.
func (d *Document) Bindings() ([]*Binding, string) {
	var bindings []*Binding
	var titleKey string
	d.do(func(doc *goquery.Document) {
		bindings, titleKey = scan(doc)
	})
	return bindings, titleKey
}

func params(n *html.Node) map[string]string {
	var p map[string]string
	for _, a := range n.Attr {
		if name, ok := strings.CutPrefix(a.Key, attrParamPrefix); ok && name != "" {
			if p == nil {
				p = make(map[string]string)
			}
			p[name] = a.Val
		}
	}
	return p
}

func targetFor(n *html.Node) Target {
	if attr := getAttr(n, attrTarget); attr != "" {
		return Target{kind: targetAttr, attr: attr}
	}

	switch n.Data {
	case "input":
		switch inputType(n) {
		case "text", "email", "password":
			if getAttr(n, attrInputAttr) == "placeholder" {
				return Target{kind: targetAttr, attr: "placeholder"}
			}
			return Target{kind: targetAttr, attr: "value"}
		case "button", "submit":
			return Target{kind: targetAttr, attr: "value"}
		}
		return Target{kind: targetNone}
	case "meta":
		return Target{kind: targetAttr, attr: "content"}
	case "img":
		return Target{kind: targetAttr, attr: "alt"}
	}
	return Target{kind: targetText}
}

// inputType follows the browser: a missing or unknown type is "text".
func inputType(n *html.Node) string {
	switch t := strings.ToLower(getAttr(n, "type")); t {
	case "", "text":
		return "text"
	default:
		return t
	}
}

// elementID is the id attribute, then data-i18n-id, then the structural path.
func elementID(n *html.Node) string {
	if id := getAttr(n, "id"); id != "" {
		return id
	}
	if id := getAttr(n, attrID); id != "" {
		return id
	}
	return elementPath(n)
}

// elementPath builds "tag.class:nth-child(n) > ..." from the element up to
// <body> or the nearest ancestor with an id.
func elementPath(n *html.Node) string {
	var path []string
	for cur := n; cur != nil && cur.Type == html.ElementNode && cur.Data != "body"; cur = cur.Parent {
		selector := cur.Data
		if id := getAttr(cur, "id"); id != "" {
			path = append(path, selector+"#"+id)
			break
		}
		if classes := strings.Fields(getAttr(cur, "class")); len(classes) > 0 {
			selector += "." + strings.Join(classes, ".")
		}
		selector += fmt.Sprintf(":nth-child(%d)", childIndex(cur))
		path = append(path, selector)
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return strings.Join(path, " > ")
}

// childIndex is the 1-based position among element siblings.
func childIndex(n *html.Node) int {
	i := 1
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode {
			i++
		}
	}
	return i
}

// write stores value at the binding's target.
func write(b *Binding, value string) {
	switch b.Target.kind {
	case targetAttr:
		setAttr(b.Node, b.Target.attr, value)
	case targetText:
		setText(b.Node, value)
	}
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

// setText replaces the children of n with a single text node.
func setText(n *html.Node, value string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
}
