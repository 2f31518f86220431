package analysis

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Section is one headed part of a markdown analysis.
type Section struct {
	Title string
	Level int
	Body  string
}

// Sections splits markdown into headed sections, in document order. Text that
// precedes the first heading becomes a section with an empty title and level
// 0; it is omitted when blank.
func Sections(markdown string) []Section {
	src := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var (
		out  []Section
		cur  = Section{}
		body strings.Builder
	)
	flush := func() {
		cur.Body = strings.TrimSpace(body.String())
		if cur.Title != "" || cur.Body != "" {
			out = append(out, cur)
		}
		body.Reset()
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			flush()
			cur = Section{Title: strings.TrimSpace(plainText(h, src)), Level: h.Level}
			continue
		}
		body.WriteString(plainText(n, src))
		body.WriteByte('\n')
	}
	flush()

	return out
}

// Find returns the first section whose title contains name, ignoring case.
func Find(sections []Section, name string) (Section, bool) {
	name = strings.ToLower(name)
	for _, s := range sections {
		if strings.Contains(strings.ToLower(s.Title), name) {
			return s, true
		}
	}
	return Section{}, false
}

// plainText flattens a node to its text, one line per block.
func plainText(node ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n != node {
				b.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
