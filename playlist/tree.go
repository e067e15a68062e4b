package playlist

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// node is a loosely typed element where attributes and child elements are both addressable
// by name, the way the vendor exports mix the two.
type node struct {
	name     string
	attrs    map[string]string
	children []*node
	text     strings.Builder
}

func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (n *node) all(name string) []*node {
	var res []*node
	for _, c := range n.children {
		if c.name == name {
			res = append(res, c)
		}
	}
	return res
}

// value returns the first non-empty attribute or child element text among names.
func (n *node) value(names ...string) string {
	if n == nil {
		return ""
	}
	for _, name := range names {
		if v := strings.TrimSpace(n.attrs[name]); v != "" {
			return v
		}
		if c := n.child(name); c != nil {
			if v := strings.TrimSpace(c.text.String()); v != "" {
				return v
			}
		}
	}
	return ""
}

// decodeTree builds the element tree without recursion. Elements nested deeper than
// MaxDepth are skipped.
func decodeTree(r io.Reader) (*node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var root *node
	var stack []*node
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch tok := tok.(type) {
		case xml.StartElement:
			if len(stack) >= MaxDepth {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			n := &node{name: tok.Name.Local, attrs: make(map[string]string, len(tok.Attr))}
			for _, a := range tok.Attr {
				n.attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(tok)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	return root, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}
