// Package docio reads annotated documents written as inline markup:
//
//	<sentence><person><token pos="NNP">John</token></person> <token pos="VBD">ran</token></sentence>
//
// Every element becomes an annotation over the text it encloses. The element
// name, with its first letter upper-cased, is the annotation type and the
// attributes are its features. Offsets are byte offsets into the text.
//
// The markup goes through an HTML5 parser, which re-parents, auto-closes or
// reads as raw text the elements HTML gives special parsing rules (title,
// table, td, p, li, select, option, script, br and the like). Read rejects
// documents using such element names with ErrReservedElement; html, head
// and body are allowed as wrappers.
package docio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/happyhackingspace/lf/annotation"
)

// Extensions lists the file extensions ReadDir picks up.
var Extensions = []string{".html", ".htm", ".xml", ".txt"}

// ErrReservedElement marks markup using an element name the HTML5 parser
// would restructure.
var ErrReservedElement = errors.New("docio: reserved HTML element")

var reserved = map[atom.Atom]bool{
	atom.Title: true, atom.Textarea: true, atom.Style: true, atom.Script: true,
	atom.Xmp: true, atom.Iframe: true, atom.Noembed: true, atom.Noframes: true,
	atom.Noscript: true, atom.Plaintext: true,
	atom.Base: true, atom.Basefont: true, atom.Bgsound: true, atom.Link: true,
	atom.Meta: true, atom.Template: true,
	atom.Table: true, atom.Caption: true, atom.Colgroup: true, atom.Col: true,
	atom.Tbody: true, atom.Thead: true, atom.Tfoot: true, atom.Tr: true,
	atom.Td: true, atom.Th: true,
	atom.Select: true, atom.Option: true, atom.Optgroup: true,
	atom.P: true, atom.Li: true, atom.Dd: true, atom.Dt: true,
	atom.Rb: true, atom.Rp: true, atom.Rt: true, atom.Rtc: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Pre: true, atom.Listing: true, atom.Form: true, atom.Button: true,
	atom.A: true, atom.Nobr: true,
	atom.Area: true, atom.Br: true, atom.Embed: true, atom.Img: true,
	atom.Image: true, atom.Keygen: true, atom.Wbr: true, atom.Input: true,
	atom.Param: true, atom.Source: true, atom.Track: true, atom.Hr: true,
	atom.Math: true, atom.Svg: true, atom.Frameset: true, atom.Frame: true,
}

// Read parses inline markup from r into a document called name.
func Read(name string, r io.Reader) (*annotation.Document, error) {
	gq, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("docio: %s: %w", name, err)
	}
	if bad := reservedNames(gq.Get(0)); len(bad) > 0 {
		return nil, fmt.Errorf("%w in %s: %s", ErrReservedElement, name, strings.Join(bad, ", "))
	}
	body := gq.Find("body")
	if body.Length() == 0 {
		return annotation.NewDocument(name, ""), nil
	}

	type pending struct {
		typ      string
		start    int
		features map[string]any
	}
	var text strings.Builder
	var spans []pending
	var ends []int

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
			return
		case html.ElementNode:
			start := text.Len()
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				visit(c)
			}
			spans = append(spans, pending{typ: TypeName(n.Data), start: start, features: features(n)})
			ends = append(ends, text.Len())
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	for c := body.Get(0).FirstChild; c != nil; c = c.NextSibling {
		visit(c)
	}

	doc := annotation.NewDocument(name, text.String())
	for i, p := range spans {
		doc.Add(p.typ, p.start, ends[i], p.features)
	}
	slog.Debug("Read document", "name", name, "length", text.Len(), "annotations", len(spans))
	return doc, nil
}

// ReadString parses inline markup from s.
func ReadString(name, s string) (*annotation.Document, error) {
	return Read(name, strings.NewReader(s))
}

// ReadFile parses the markup file at path; the document is named after the file.
func ReadFile(path string) (*annotation.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("docio: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Read(filepath.Base(path), f)
}

// ReadDir reads every markup file directly inside dir, sorted by name.
func ReadDir(dir string) ([]*annotation.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("docio: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !hasExtension(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	docs := make([]*annotation.Document, 0, len(names))
	for _, name := range names {
		doc, err := ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// TypeName maps an element name to an annotation type: "token" becomes "Token".
func TypeName(tag string) string {
	r, size := utf8.DecodeRuneInString(tag)
	if r == utf8.RuneError {
		return tag
	}
	return string(unicode.ToUpper(r)) + tag[size:]
}

// reservedNames returns the sorted reserved element names found under root.
func reservedNames(root *html.Node) []string {
	seen := make(map[string]bool)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && reserved[n.DataAtom] {
			seen[n.Data] = true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func features(n *html.Node) map[string]any {
	if len(n.Attr) == 0 {
		return nil
	}
	out := make(map[string]any, len(n.Attr))
	for _, a := range n.Attr {
		out[a.Key] = a.Val
	}
	return out
}

func hasExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
