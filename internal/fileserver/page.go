package fileserver

import (
	"bytes"
	"fmt"
	"net/http"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func element(a atom.Atom, attrs []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// page wraps body nodes into a complete HTML5 document with the given title.
func page(title string, body ...*html.Node) *html.Node {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(element(atom.Html, nil,
		element(atom.Head, nil,
			element(atom.Meta, []html.Attribute{{Key: "charset", Val: "utf-8"}}),
			element(atom.Title, nil, text(title)),
		),
		element(atom.Body, nil, body...),
	))
	return doc
}

func render(doc *html.Node) []byte {
	var buf bytes.Buffer
	// Rendering into a bytes.Buffer only fails on malformed trees, which
	// page never builds.
	if err := html.Render(&buf, doc); err != nil {
		panic(err)
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

// errorPage renders the body of an error response: the status line as title
// and heading, followed by a one sentence description.
func errorPage(status int, description string) []byte {
	title := fmt.Sprintf("%d %s", status, http.StatusText(status))
	return render(page(title,
		element(atom.H1, nil, text(title)),
		element(atom.P, nil, text(description)),
	))
}

// listingPage renders a directory listing with one anchor per entry.
func listingPage(l *Listing) []byte {
	list := element(atom.Ul, nil)
	for _, e := range l.Entries {
		list.AppendChild(element(atom.Li, nil,
			element(atom.A, []html.Attribute{{Key: "href", Val: e.Href}}, text(e.DisplayName())),
		))
	}
	return render(page(l.Title(),
		element(atom.H1, nil, text(l.Title())),
		element(atom.Hr, nil),
		list,
		element(atom.Hr, nil),
	))
}
