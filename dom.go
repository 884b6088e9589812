package lace

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// fullDocumentPattern decides whether a template is a complete HTML
// document or a fragment that should be parsed in a body context.
var fullDocumentPattern = regexp.MustCompile(`(?i)<(!doctype|html)[\s>]`)

// Document is a mutable, queryable HTML tree. Documents are produced by
// ParseDocument and by Clone, and serialized with HTML.
//
// A Document is not safe for concurrent mutation. The engine only ever
// mutates a Document during Compile (before the base DOM is published) or
// on a per-request clone owned by a single render, so consumers following
// the same discipline need no locking.
type Document struct {
	// root is a container node; its children are the document's
	// top-level nodes. For full documents that's a doctype and an
	// <html> element, for fragments it's whatever the template held.
	root *html.Node
}

// Node is a handle on a single node within a Document. Handles are
// returned by Find, FindFirst, Children, and Parent. A handle remembers
// which Document it was obtained from; mutating through a handle whose
// node has since moved to another Document fails with ErrOwnership.
type Node struct {
	doc *Document
	raw *html.Node
}

// ParseDocument parses an HTML string into a Document. Templates
// containing a doctype or an <html> element are parsed as complete
// documents (the parser will supply the standard html/head/body
// structure); anything else is parsed as a body fragment and keeps its
// top-level shape.
func ParseDocument(src string) (*Document, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: empty template", ErrParse)
	}
	if fullDocumentPattern.MatchString(src) {
		root, err := html.Parse(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		return &Document{root: root}, nil
	}
	bodyCtx := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	parsed, err := html.ParseFragment(strings.NewReader(src), bodyCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	root := &html.Node{Type: html.DocumentNode}
	for _, node := range parsed {
		root.AppendChild(node)
	}
	return &Document{root: root}, nil
}

// Clone returns a deep copy of the Document. The copy shares no nodes
// with the original; mutating one never affects the other.
func (d *Document) Clone() *Document {
	return &Document{root: cloneTree(d.root)}
}

func cloneTree(node *html.Node) *html.Node {
	copied := &html.Node{
		Type:      node.Type,
		DataAtom:  node.DataAtom,
		Data:      node.Data,
		Namespace: node.Namespace,
		Attr:      slices.Clone(node.Attr),
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		copied.AppendChild(cloneTree(child))
	}
	return copied
}

// Find returns every node in the Document matching the passed CSS
// selector, in document order. An empty result is not an error; an
// unparseable selector is.
func (d *Document) Find(selector string) ([]*Node, error) {
	group, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSelector, selector, err)
	}
	matches := cascadia.QueryAll(d.root, group)
	results := make([]*Node, 0, len(matches))
	for _, match := range matches {
		results = append(results, &Node{doc: d, raw: match})
	}
	return results, nil
}

// FindFirst returns the first node in the Document matching the passed
// CSS selector, in document order. If nothing matches, it returns an
// error wrapping ErrSelectorNotFound.
func (d *Document) FindFirst(selector string) (*Node, error) {
	results, err := d.Find(selector)
	if err != nil {
		return nil, err
	}
	if len(results) < 1 {
		return nil, fmt.Errorf("%w: %q", ErrSelectorNotFound, selector)
	}
	return results[0], nil
}

// HTML serializes the Document back to an HTML string.
func (d *Document) HTML() (string, error) {
	var buf strings.Builder
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&buf, child); err != nil {
			return "", fmt.Errorf("error serializing document: %w", err)
		}
	}
	return buf.String(), nil
}

// Overlay replaces the Document's entire content with src's, moving
// src's nodes into the Document. It's how a layout component makes its
// own tree supersede the page that declared it: extract what the layout
// needs from the page, fill the layout's own Document in, then call
// page.Overlay(layout) from the attach hook. src is drained and should
// be discarded afterwards.
func (d *Document) Overlay(src *Document) {
	for child := d.root.FirstChild; child != nil; {
		next := child.NextSibling
		d.root.RemoveChild(child)
		child = next
	}
	moveChildren(d.root, src.root)
}

// moveChildren detaches every child of src and appends them to dst,
// preserving order.
func moveChildren(dst, src *html.Node) {
	for child := src.FirstChild; child != nil; {
		next := child.NextSibling
		src.RemoveChild(child)
		dst.AppendChild(child)
		child = next
	}
}

// Tag returns the node's tag name. The parser lower-cases tag names, so
// this is always lower-case for parsed content.
func (n *Node) Tag() string {
	return n.raw.Data
}

// Attr returns the value of the named attribute, or the empty string if
// the attribute isn't present.
func (n *Node) Attr(name string) string {
	for _, attr := range n.raw.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

// HasAttr reports whether the named attribute is present on the node.
func (n *Node) HasAttr(name string) bool {
	for _, attr := range n.raw.Attr {
		if attr.Key == name {
			return true
		}
	}
	return false
}

// Text returns the concatenated text content of the node and all its
// descendants.
func (n *Node) Text() string {
	var buf strings.Builder
	collectText(n.raw, &buf)
	return buf.String()
}

func collectText(node *html.Node, buf *strings.Builder) {
	if node.Type == html.TextNode {
		buf.WriteString(node.Data)
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, buf)
	}
}

// Parent returns the node's parent, or nil if the node is at the top
// level of its Document.
func (n *Node) Parent() *Node {
	if n.raw.Parent == nil || n.raw.Parent == n.doc.root {
		return nil
	}
	return &Node{doc: n.doc, raw: n.raw.Parent}
}

// Children returns the node's element children, in order.
func (n *Node) Children() []*Node {
	var results []*Node
	for child := n.raw.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			results = append(results, &Node{doc: n.doc, raw: child})
		}
	}
	return results
}

// Find returns every descendant of the node matching the passed CSS
// selector, in document order.
func (n *Node) Find(selector string) ([]*Node, error) {
	group, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSelector, selector, err)
	}
	matches := cascadia.QueryAll(n.raw, group)
	results := make([]*Node, 0, len(matches))
	for _, match := range matches {
		results = append(results, &Node{doc: n.doc, raw: match})
	}
	return results, nil
}

// FindFirst returns the first descendant of the node matching the passed
// CSS selector. If nothing matches, it returns an error wrapping
// ErrSelectorNotFound.
func (n *Node) FindFirst(selector string) (*Node, error) {
	results, err := n.Find(selector)
	if err != nil {
		return nil, err
	}
	if len(results) < 1 {
		return nil, fmt.Errorf("%w: %q", ErrSelectorNotFound, selector)
	}
	return results[0], nil
}

// HTML serializes the node and its descendants to an HTML string.
func (n *Node) HTML() (string, error) {
	var buf strings.Builder
	if err := html.Render(&buf, n.raw); err != nil {
		return "", fmt.Errorf("error serializing node: %w", err)
	}
	return buf.String(), nil
}

// SetAttr sets the named attribute to the passed value, adding the
// attribute if it isn't already present.
func (n *Node) SetAttr(name, value string) error {
	if err := n.owned(); err != nil {
		return err
	}
	for pos, attr := range n.raw.Attr {
		if attr.Key == name {
			n.raw.Attr[pos].Val = value
			return nil
		}
	}
	n.raw.Attr = append(n.raw.Attr, html.Attribute{Key: name, Val: value})
	return nil
}

// RemoveAttr removes the named attribute from the node, if present.
func (n *Node) RemoveAttr(name string) error {
	if err := n.owned(); err != nil {
		return err
	}
	n.raw.Attr = slices.DeleteFunc(n.raw.Attr, func(attr html.Attribute) bool {
		return attr.Key == name
	})
	return nil
}

// SetText replaces the node's content with a single text node holding
// the passed text.
func (n *Node) SetText(text string) error {
	if err := n.owned(); err != nil {
		return err
	}
	removeChildren(n.raw)
	n.raw.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return nil
}

// AppendText appends a text node holding the passed text to the node's
// content.
func (n *Node) AppendText(text string) error {
	if err := n.owned(); err != nil {
		return err
	}
	n.raw.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return nil
}

// SetChildren replaces the node's content with the passed nodes, in
// order. The nodes are moved: they're detached from whatever Document
// they currently live in, and their handles point at this node's
// Document afterwards.
func (n *Node) SetChildren(children ...*Node) error {
	if err := n.owned(); err != nil {
		return err
	}
	for _, child := range children {
		if err := child.claim(); err != nil {
			return err
		}
	}
	removeChildren(n.raw)
	for _, child := range children {
		n.raw.AppendChild(child.raw)
		child.doc = n.doc
	}
	return nil
}

// AppendChildren appends the passed nodes to the node's content, in
// order, with the same move semantics as SetChildren.
func (n *Node) AppendChildren(children ...*Node) error {
	if err := n.owned(); err != nil {
		return err
	}
	for _, child := range children {
		if err := child.claim(); err != nil {
			return err
		}
	}
	for _, child := range children {
		n.raw.AppendChild(child.raw)
		child.doc = n.doc
	}
	return nil
}

// SetContent replaces the node's content with the top-level nodes of the
// passed fragment, preserving their order. The fragment's nodes are
// moved into the node's Document; the fragment is drained and should be
// discarded.
func (n *Node) SetContent(frag *Document) error {
	if err := n.owned(); err != nil {
		return err
	}
	removeChildren(n.raw)
	moveChildren(n.raw, frag.root)
	return nil
}

// AppendFragment appends the top-level nodes of the passed fragment to
// the node's content, with the same move semantics as SetContent.
func (n *Node) AppendFragment(frag *Document) error {
	if err := n.owned(); err != nil {
		return err
	}
	moveChildren(n.raw, frag.root)
	return nil
}

// ReplaceWith replaces the node with the top-level nodes of the passed
// fragment, preserving sibling order around the replacement. The
// fragment's nodes are moved into the node's Document; the fragment is
// drained and the replaced node's handle goes stale.
func (n *Node) ReplaceWith(frag *Document) error {
	if err := n.owned(); err != nil {
		return err
	}
	parent := n.raw.Parent
	for child := frag.root.FirstChild; child != nil; {
		next := child.NextSibling
		frag.root.RemoveChild(child)
		parent.InsertBefore(child, n.raw)
		child = next
	}
	parent.RemoveChild(n.raw)
	return nil
}

// ReplaceWithNodes replaces the node with the passed nodes, in order,
// with the same move semantics as SetChildren.
func (n *Node) ReplaceWithNodes(nodes ...*Node) error {
	if err := n.owned(); err != nil {
		return err
	}
	for _, node := range nodes {
		if err := node.claim(); err != nil {
			return err
		}
	}
	parent := n.raw.Parent
	for _, node := range nodes {
		parent.InsertBefore(node.raw, n.raw)
		node.doc = n.doc
	}
	parent.RemoveChild(n.raw)
	return nil
}

// Remove detaches the node from its Document. The handle goes stale.
func (n *Node) Remove() error {
	if err := n.owned(); err != nil {
		return err
	}
	n.raw.Parent.RemoveChild(n.raw)
	return nil
}

// ExtractContent moves the node's content out into a new fragment
// Document, leaving the node empty. It's how the engine captures a
// component tag's inner DOM for the implicit content binding.
func (n *Node) ExtractContent() (*Document, error) {
	if err := n.owned(); err != nil {
		return nil, err
	}
	root := &html.Node{Type: html.DocumentNode}
	moveChildren(root, n.raw)
	return &Document{root: root}, nil
}

// owned verifies the node is still attached within the Document the
// handle was obtained from.
func (n *Node) owned() error {
	top := n.raw
	for top.Parent != nil {
		top = top.Parent
	}
	if top != n.doc.root {
		return fmt.Errorf("%w: <%s>", ErrOwnership, n.raw.Data)
	}
	return nil
}

// claim prepares the node to be attached somewhere else, detaching it
// from its current position. The node must either still live in the
// Document its handle points at, or already be fully detached; anything
// else means the handle is stale.
func (n *Node) claim() error {
	top := n.raw
	for top.Parent != nil {
		top = top.Parent
	}
	if top != n.doc.root && top != n.raw {
		return fmt.Errorf("%w: <%s>", ErrOwnership, n.raw.Data)
	}
	if n.raw.Parent != nil {
		n.raw.Parent.RemoveChild(n.raw)
	}
	return nil
}

func removeChildren(node *html.Node) {
	for child := node.FirstChild; child != nil; {
		next := child.NextSibling
		node.RemoveChild(child)
		child = next
	}
}
