package docs

import (
	"bytes"
	"html/template"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var linkCtxKey = parser.NewContextKey()

// linkContext carries per-document state into the AST transformer.
type linkContext struct {
	sourcePath string
	resolve    func(sourcePath string) (string, bool)
	broken     []string
	h1         string
	leadingH1  bool // the first block of the body is the H1
}

// Markdown renders doc bodies to sanitized HTML.
type Markdown struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewMarkdown builds the markdown pipeline: GFM, heading anchors and the
// link rewriting of relative .md links.
func NewMarkdown() *Markdown {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(&mdLinkTransformer{}, 100)),
		),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return &Markdown{md: md, policy: newPolicy()}
}

var languageClass = regexp.MustCompile(`^language-[\w+#-]+$`)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("class").Matching(languageClass).OnElements("code", "pre")
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("span", "div")
	p.AllowAttrs("type", "checked", "disabled").OnElements("input")
	return p
}

// rendered is the output of one markdown conversion.
type rendered struct {
	html      template.HTML
	h1        string
	leadingH1 bool
	broken    []string
}

// render converts body. resolve maps a docs-relative .md path to its route.
func (m *Markdown) render(sourcePath string, body []byte, resolve func(string) (string, bool)) (rendered, error) {
	lc := &linkContext{sourcePath: sourcePath, resolve: resolve}
	pc := parser.NewContext(parser.WithIDs(newIDs()))
	pc.Set(linkCtxKey, lc)

	var buf bytes.Buffer
	if err := m.md.Convert(body, &buf, parser.WithContext(pc)); err != nil {
		return rendered{}, err
	}
	safe := m.policy.SanitizeBytes(buf.Bytes())
	return rendered{
		html:      template.HTML(safe),
		h1:        lc.h1,
		leadingH1: lc.leadingH1,
		broken:    lc.broken,
	}, nil
}

type mdLinkTransformer struct{}

func (t *mdLinkTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	lc, ok := pc.Get(linkCtxKey).(*linkContext)
	if !ok || lc == nil {
		return
	}
	src := reader.Source()

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 1 && lc.h1 == "" {
				lc.h1 = strings.TrimSpace(nodeText(node, src))
				lc.leadingH1 = doc.FirstChild() == node
			}
		case *ast.Link:
			dest := string(node.Destination)
			target, ok := markdownTarget(lc.sourcePath, dest)
			if !ok {
				return ast.WalkContinue, nil
			}
			route, found := lc.resolve(target.file)
			if !found {
				lc.broken = append(lc.broken, dest)
				return ast.WalkContinue, nil
			}
			if target.fragment != "" {
				route += "#" + target.fragment
			}
			node.Destination = []byte(route)
		}
		return ast.WalkContinue, nil
	})
}

type mdTarget struct {
	file     string
	fragment string
}

// markdownTarget resolves dest against the linking file when it points at
// a local markdown file.
func markdownTarget(from, dest string) (mdTarget, bool) {
	if dest == "" || strings.Contains(dest, "://") || strings.HasPrefix(dest, "//") || strings.HasPrefix(dest, "#") {
		return mdTarget{}, false
	}
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" {
		return mdTarget{}, false
	}
	p := u.Path
	ext := path.Ext(p)
	if ext != ".md" && ext != ".mdx" {
		return mdTarget{}, false
	}

	var file string
	if strings.HasPrefix(p, "/") {
		file = strings.TrimPrefix(path.Clean(p), "/")
	} else {
		file = path.Join(path.Dir(from), p)
	}
	return mdTarget{file: file, fragment: u.Fragment}, true
}

func nodeText(n ast.Node, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		default:
			sb.WriteString(nodeText(c, src))
		}
	}
	return sb.String()
}
