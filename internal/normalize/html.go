// Package normalize turns stored entry bodies into well-formed HTML.
//
// HTML is pure, deterministic and idempotent: HTML(HTML(x)) == HTML(x) for
// every input. It never fails; input that cannot be repaired comes back as a
// single escaped paragraph. Strict runs the same pipeline but reports the
// failure instead, which the batch fixer needs to count failures.
package normalize

import (
	"errors"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrUnparseable is returned by Strict when the input cannot be normalised.
var ErrUnparseable = errors.New("content cannot be normalized")

// maxPasses bounds the fixed-point iteration.
const maxPasses = 8

// blockMarkerPattern detects input that is already structured HTML, using
// the same element set repair treats as blocks. Anything else is treated
// as plain text with blank-line paragraphs.
var blockMarkerPattern = blockMarker()

var blankLinePattern = regexp.MustCompile(`\n\s*\n`)

// Elements rendered at the top level as their own block. Loose inline
// content between them is gathered into a paragraph.
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Details: true, atom.Dialog: true, atom.Dd: true, atom.Div: true, atom.Dl: true,
	atom.Dt: true, atom.Fieldset: true, atom.Figcaption: true, atom.Figure: true,
	atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true, atom.Hgroup: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true,
	atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true, atom.Ul: true,
}

// Elements removed together with their content.
var droppedElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Iframe: true, atom.Object: true,
	atom.Embed: true, atom.Noscript: true, atom.Template: true,
}

func blockMarker() *regexp.Regexp {
	names := make([]string, 0, len(blockElements))
	for a := range blockElements {
		names = append(names, a.String())
	}
	slices.Sort(names)
	return regexp.MustCompile(`(?i)<\s*/?\s*(` + strings.Join(names, "|") + `)\b`)
}

// HTML normalises raw into well-formed HTML. It never fails.
func HTML(raw string) string {
	out, err := Strict(raw)
	if err != nil {
		return fallback(raw)
	}
	return out
}

// Strict normalises raw, returning ErrUnparseable when the input is not
// valid UTF-8, contains NUL bytes, or does not settle to a fixed point.
func Strict(raw string) (string, error) {
	if !utf8.ValidString(raw) || strings.ContainsRune(raw, 0) {
		return "", ErrUnparseable
	}

	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	// The whole pipeline is iterated, so every result is a fixed point of it.
	for range maxPasses {
		if strings.TrimSpace(s) == "" {
			return "", nil
		}
		next, err := pass(s)
		if err != nil {
			return "", err
		}
		if next == s {
			return s, nil
		}
		s = next
	}
	return "", ErrUnparseable
}

// pass runs one round: plain text gets paragraphs, then the markup is
// parsed and rendered back.
func pass(s string) (string, error) {
	if !blockMarkerPattern.MatchString(s) {
		s = paragraphs(s)
	}
	return repair(s)
}

// paragraphs wraps blank-line separated text in <p>, single newlines
// becoming <br>. Inline markup is left for the parser.
func paragraphs(s string) string {
	var b strings.Builder
	for _, block := range blankLinePattern.Split(s, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		for i, line := range lines {
			lines[i] = strings.TrimSpace(line)
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>\n")
	}
	return b.String()
}

// repair parses s as a body fragment and renders it back, one top-level
// block per line.
func repair(s string) (string, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), context)
	if err != nil {
		return "", ErrUnparseable
	}

	var (
		blocks []*html.Node
		inline []*html.Node
	)
	flush := func() {
		if p := wrapInline(inline); p != nil {
			blocks = append(blocks, p)
		}
		inline = nil
	}

	for _, n := range nodes {
		switch {
		case n.Type == html.CommentNode, n.Type == html.DoctypeNode:
			continue
		case n.Type == html.ElementNode && droppedElements[n.DataAtom]:
			continue
		case n.Type == html.ElementNode && blockElements[n.DataAtom]:
			flush()
			blocks = append(blocks, n)
		default:
			inline = append(inline, n)
		}
	}
	flush()

	var b strings.Builder
	for _, n := range blocks {
		scrub(n)
		if isEmptyParagraph(n) {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		if err := html.Render(&b, n); err != nil {
			return "", ErrUnparseable
		}
	}
	return b.String(), nil
}

// wrapInline gathers loose top-level inline nodes into a paragraph.
// Runs of whitespace and comments are dropped.
func wrapInline(nodes []*html.Node) *html.Node {
	meaningful := false
	for _, n := range nodes {
		if n.Type == html.CommentNode {
			continue
		}
		if n.Type != html.TextNode || strings.TrimSpace(n.Data) != "" {
			meaningful = true
			break
		}
	}
	if !meaningful {
		return nil
	}

	p := &html.Node{Type: html.ElementNode, Data: "p", DataAtom: atom.P}
	for _, n := range nodes {
		p.AppendChild(n)
	}
	return p
}

// scrub removes comments, active content, empty paragraphs and event
// handler attributes.
func scrub(n *html.Node) {
	if n.Type == html.ElementNode {
		attrs := n.Attr[:0]
		for _, a := range n.Attr {
			if strings.HasPrefix(strings.ToLower(a.Key), "on") {
				continue
			}
			if (a.Key == "href" || a.Key == "src") && strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Val)), "javascript:") {
				continue
			}
			attrs = append(attrs, a)
		}
		n.Attr = attrs
	}

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode || (c.Type == html.ElementNode && droppedElements[c.DataAtom]) {
			n.RemoveChild(c)
		} else {
			scrub(c)
			if isEmptyParagraph(c) {
				n.RemoveChild(c)
			}
		}
		c = next
	}
}

// isEmptyParagraph reports whether n is a <p> holding nothing but whitespace.
func isEmptyParagraph(n *html.Node) bool {
	if n.Type != html.ElementNode || n.DataAtom != atom.P {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode || strings.TrimSpace(c.Data) != "" {
			return false
		}
	}
	return true
}

// fallback renders raw as one escaped paragraph. The text is made valid
// UTF-8 without NULs first so the result is itself a fixed point.
func fallback(raw string) string {
	s := strings.ToValidUTF8(raw, "�")
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return "<p>" + html.EscapeString(s) + "</p>"
}
