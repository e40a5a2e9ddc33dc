package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
)

// translatableTags are the chapter elements whose text is extracted.
var translatableTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true,
}

// EPUBParser handles ebooks: chapter documents from the spine are parsed
// as HTML, block-level text is extracted with ruby readings dropped, and
// reconstruction rewrites those blocks inside a copy of the archive.
type EPUBParser struct{}

func NewEPUBParser() *EPUBParser { return &EPUBParser{} }

func (p *EPUBParser) Name() string { return "epub" }

func (p *EPUBParser) CanParse(ext string) bool {
	return ext == ".epub"
}

func (p *EPUBParser) Parse(filePath string) (*ParseResult, error) {
	rc, err := epub.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}
	defer rc.Close()
	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("no rootfiles in epub %s", filePath)
	}
	book := rc.Rootfiles[0]

	result := &ParseResult{FilePath: filePath, FileType: "epub"}
	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			return nil, fmt.Errorf("open chapter %s: %w", ref.Item.HREF, err)
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("read chapter %s: %w", ref.Item.HREF, err)
		}

		doc, err := html.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse chapter %s: %w", ref.Item.HREF, err)
		}
		href := ref.Item.HREF
		walkTranslatable(doc, func(n *html.Node, index int) {
			text := elementText(n)
			if text == "" {
				return
			}
			result.Units = append(result.Units, Unit{
				Text: text,
				File: filePath,
				Line: index + 1,
				Meta: map[string]string{"chapter": href, "node": strconv.Itoa(index)},
			})
		})
	}
	return result, nil
}

// walkTranslatable visits every translatable element in document order
// and hands it to fn with its per-document index. Matched elements are
// not descended into, so the index sequence is stable between extraction
// and rewriting.
func walkTranslatable(doc *html.Node, fn func(n *html.Node, index int)) {
	index := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && translatableTags[n.Data] {
			fn(n, index)
			index++
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
}

// elementText collects the element's text with whitespace collapsed.
// Ruby reading annotations (rt, rp) are not part of the base text.
func elementText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "rt" || n.Data == "rp") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func (p *EPUBParser) Reconstruct(result *ParseResult, translations map[string]string) (*Output, error) {
	out := &Output{}
	byChapter := make(map[string]map[int]string)
	for _, unit := range result.Units {
		translated, ok := translations[unit.Text]
		if !ok || translated == "" {
			out.Skipped++
			continue
		}
		index, err := strconv.Atoi(unit.Meta["node"])
		if err != nil {
			continue
		}
		chapter := unit.Meta["chapter"]
		if byChapter[chapter] == nil {
			byChapter[chapter] = make(map[int]string)
		}
		byChapter[chapter][index] = translated
		out.Translated++
	}

	zr, err := zip.OpenReader(result.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open epub archive: %w", err)
	}
	defer zr.Close()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		repl := chapterReplacements(byChapter, f.Name)
		if repl == nil {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		rewritten, err := rewriteChapter(data, repl)
		if err != nil {
			return nil, fmt.Errorf("rewrite %s: %w", f.Name, err)
		}
		w, err := zw.Create(f.Name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", f.Name, err)
		}
		if _, err := w.Write(rewritten); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close epub archive: %w", err)
	}
	out.Content = buf.Bytes()
	return out, nil
}

// chapterReplacements matches an archive member against the chapter
// hrefs, which are relative to the package document rather than the
// archive root.
func chapterReplacements(byChapter map[string]map[int]string, name string) map[int]string {
	for href, repl := range byChapter {
		if name == href || strings.HasSuffix(name, "/"+href) || path.Base(name) == path.Base(href) {
			return repl
		}
	}
	return nil
}

// rewriteChapter swaps the text of translated elements, replacing each
// element's children with a single text node.
func rewriteChapter(data []byte, repl map[int]string) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	walkTranslatable(doc, func(n *html.Node, index int) {
		translated, ok := repl[index]
		if !ok {
			return
		}
		text := &html.Node{Type: html.TextNode, Data: translated, Parent: n}
		n.FirstChild = text
		n.LastChild = text
	})
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
