package content

import (
	"bytes"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gtext "github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// md is the shared Markdown parser. Parsing creates a fresh context per
// document, so the instance is safe for concurrent use. Nothing is ever
// rendered with it.
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

type structure struct {
	links    []Link
	fences   []Fence
	headings []Heading
}

// extractStructure pulls links, headings and fenced code blocks out of a
// Markdown body. bodyLine is the 1-based file line of the first body line
// and shifts all reported positions into file coordinates.
func extractStructure(body []byte, bodyLine int, opts ParseOptions) structure {
	var st structure

	idx := newLineIndex(body)
	fileLine := func(offset int) int { return idx.lineAt(offset) + bodyLine - 1 }

	doc := md.Parser().Parse(gtext.NewReader(body))

	curLine := bodyLine
	anchorSeen := make(map[string]int)

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		if n.Type() == ast.TypeBlock {
			if lines := n.Lines(); lines != nil && lines.Len() > 0 {
				curLine = fileLine(lines.At(0).Start)
			}
		}

		switch node := n.(type) {
		case *ast.Heading:
			h := Heading{
				Level: node.Level,
				Text:  nodeText(node, body),
				Line:  curLine,
			}
			h.Anchor = dedupAnchor(AnchorID(h.Text), anchorSeen)
			st.headings = append(st.headings, h)

		case *ast.Link:
			line := inlineLine(node, body, fileLine, curLine)
			st.links = append(st.links, classifyLink(string(node.Destination), false, line, opts))

		case *ast.Image:
			line := inlineLine(node, body, fileLine, curLine)
			st.links = append(st.links, classifyLink(string(node.Destination), true, line, opts))

		case *ast.AutoLink:
			if node.AutoLinkType == ast.AutoLinkURL {
				st.links = append(st.links, classifyLink(string(node.URL(body)), false, curLine, opts))
			}

		case *ast.RawHTML:
			var frag bytes.Buffer
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				frag.Write(seg.Value(body))
			}
			st.links = append(st.links, htmlLinks(frag.Bytes(), curLine, opts)...)

		case *ast.HTMLBlock:
			var frag bytes.Buffer
			for i := 0; i < node.Lines().Len(); i++ {
				seg := node.Lines().At(i)
				frag.Write(seg.Value(body))
			}
			st.links = append(st.links, htmlLinks(frag.Bytes(), curLine, opts)...)
		}

		return ast.WalkContinue, nil
	})

	st.fences = scanFences(body, bodyLine)
	return st
}

// nodeText concatenates the literal text segments beneath a node. The
// deprecated Node.Text helper is avoided on purpose.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// inlineLine refines the line of an inline node using its first text
// segment, falling back to the enclosing block's line.
func inlineLine(n ast.Node, source []byte, fileLine func(int) int, fallback int) int {
	line := fallback
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok && t.Segment.Len() > 0 {
			line = fileLine(t.Segment.Start)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return line
}

func dedupAnchor(anchor string, seen map[string]int) string {
	n := seen[anchor]
	seen[anchor] = n + 1
	if n == 0 {
		return anchor
	}
	return fmt.Sprintf("%s-%d", anchor, n)
}

// skipSchemes are destinations the link checker never probes.
var skipSchemes = map[string]bool{
	"mailto":     true,
	"tel":        true,
	"data":       true,
	"javascript": true,
	"ftp":        true,
}

func classifyLink(dest string, isImage bool, line int, opts ParseOptions) Link {
	l := Link{Dest: dest, Line: line, IsImage: isImage}

	trimmed := strings.TrimSpace(dest)
	if trimmed == "" {
		l.Kind = LinkInternal
		return l
	}
	if strings.HasPrefix(trimmed, "#") {
		l.Kind = LinkAnchor
		l.Fragment = trimmed[1:]
		return l
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		l.Kind = LinkInternal
		l.Target = trimmed
		return l
	}

	switch {
	case skipSchemes[u.Scheme]:
		l.Kind = LinkSkip
	case u.Scheme == "http" || u.Scheme == "https":
		if opts.BaseURL != nil && strings.EqualFold(u.Hostname(), opts.BaseURL.Hostname()) {
			l.Kind = LinkInternal
			l.Target = u.Path
			l.Fragment = u.Fragment
		} else {
			l.Kind = LinkExternal
		}
	case u.Scheme != "":
		// unknown scheme, leave it to the external checker to refuse
		l.Kind = LinkSkip
	default:
		l.Kind = LinkInternal
		l.Target = u.Path
		l.Fragment = u.Fragment
	}
	return l
}

// htmlLinks extracts href/src attributes from a raw HTML fragment
// embedded in the Markdown source.
func htmlLinks(frag []byte, line int, opts ParseOptions) []Link {
	var links []Link
	z := html.NewTokenizer(bytes.NewReader(frag))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return links
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		var attr string
		var isImage bool
		switch tok.Data {
		case "a", "link":
			attr = "href"
		case "img":
			attr = "src"
			isImage = true
		case "script", "iframe", "source", "video", "audio":
			attr = "src"
		default:
			continue
		}
		for _, a := range tok.Attr {
			if a.Key == attr && a.Val != "" {
				links = append(links, classifyLink(a.Val, isImage, line, opts))
			}
		}
	}
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex struct {
	starts []int
}

func newLineIndex(data []byte) *lineIndex {
	starts := []int{0}
	for i, c := range data {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{starts: starts}
}

func (li *lineIndex) lineAt(offset int) int {
	return sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset })
}

// scanFences walks the body line by line and records fenced code blocks.
// Goldmark swallows an unclosed fence silently, so closedness is tracked
// here instead of in the AST.
func scanFences(body []byte, bodyLine int) []Fence {
	var fences []Fence
	var open *Fence
	var openChar byte
	var openLen int
	contentLines := 0

	lines := bytes.Split(body, []byte("\n"))
	for i, rawLine := range lines {
		line := bytes.TrimRight(rawLine, "\r")

		if open != nil {
			if closesFence(line, openChar, openLen) {
				open.Closed = true
				open.Empty = contentLines == 0
				fences = append(fences, *open)
				open = nil
				continue
			}
			contentLines++
			continue
		}

		char, count, info, ok := opensFence(line)
		if !ok {
			continue
		}
		open = &Fence{Info: info, Line: bodyLine + i}
		openChar = char
		openLen = count
		contentLines = 0
	}

	if open != nil {
		open.Empty = contentLines == 0
		fences = append(fences, *open)
	}
	return fences
}

// opensFence reports whether a line opens a fence: up to three leading
// spaces, then at least three backticks or tildes. A backtick info string
// may not itself contain a backtick.
func opensFence(line []byte) (char byte, count int, info string, ok bool) {
	trimmed, indent := trimIndent(line)
	if indent > 3 || len(trimmed) < 3 {
		return 0, 0, "", false
	}
	char = trimmed[0]
	if char != '`' && char != '~' {
		return 0, 0, "", false
	}
	count = runLength(trimmed, char)
	if count < 3 {
		return 0, 0, "", false
	}
	rest := string(bytes.TrimSpace(trimmed[count:]))
	if char == '`' && strings.ContainsRune(rest, '`') {
		return 0, 0, "", false
	}
	if idx := strings.IndexAny(rest, " \t"); idx >= 0 {
		rest = rest[:idx]
	}
	return char, count, rest, true
}

func closesFence(line []byte, char byte, minLen int) bool {
	trimmed, indent := trimIndent(line)
	if indent > 3 {
		return false
	}
	count := runLength(trimmed, char)
	if count < minLen {
		return false
	}
	return len(bytes.TrimSpace(trimmed[count:])) == 0
}

func trimIndent(line []byte) ([]byte, int) {
	indent := 0
	for indent < len(line) && line[indent] == ' ' {
		indent++
	}
	return line[indent:], indent
}

func runLength(line []byte, char byte) int {
	n := 0
	for n < len(line) && line[n] == char {
		n++
	}
	return n
}
