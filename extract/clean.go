package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kindle's email conversion cannot fetch remote media.
var droppedElements = map[atom.Atom]bool{
	atom.Img:      true,
	atom.Picture:  true,
	atom.Source:   true,
	atom.Svg:      true,
	atom.Video:    true,
	atom.Audio:    true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Canvas:   true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
}

// cleanHTML drops media elements and the first text-only <h1>, which
// repeats the title already printed by the template.
func cleanHTML(content string) (string, error) {
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(content), container)
	if err != nil {
		return "", err
	}
	for _, n := range nodes {
		container.AppendChild(n)
	}

	var remove []*html.Node
	var dupTitle *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				if droppedElements[c.DataAtom] {
					remove = append(remove, c)
					continue
				}
				if c.DataAtom == atom.H1 && dupTitle == nil && textOnly(c) {
					dupTitle = c
					continue
				}
			}
			walk(c)
		}
	}
	walk(container)
	if dupTitle != nil {
		remove = append(remove, dupTitle)
	}
	for _, n := range remove {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	dropEmptyFigures(container)

	var b strings.Builder
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func textOnly(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode {
			return false
		}
	}
	return true
}

// dropEmptyFigures removes <figure> elements left without any text once
// their media is gone.
func dropEmptyFigures(root *html.Node) {
	var figures []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Figure {
				figures = append(figures, c)
				continue
			}
			walk(c)
		}
	}
	walk(root)
	for _, f := range figures {
		if strings.TrimSpace(nodeText(f)) == "" && f.Parent != nil {
			f.Parent.RemoveChild(f)
		}
	}
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}
