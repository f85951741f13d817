// Package splitter cuts an HTML fragment into a free preview and a gated
// remainder on a top-level element boundary.
package splitter

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MinWords is the smallest document that gets split at all.
const MinWords = 20

// Result holds the two halves. Part1+Part2 is always the input, byte for byte.
type Result struct {
	Part1 string
	Part2 string
}

// Split puts roughly the first half of the words, rounded up to whole
// top-level blocks, into Part1. Short documents and documents with a single
// block come back whole in Part1.
func Split(src string) Result {
	blocks := scanBlocks(src)

	total := 0
	for _, b := range blocks {
		total += b.words
	}
	if total < MinWords || len(blocks) < 2 {
		return Result{Part1: src}
	}

	half := total / 2
	running := 0
	cut := 0
	for i, b := range blocks {
		running += b.words
		if running >= half {
			cut = i + 1
			break
		}
	}
	cut = max(1, min(cut, len(blocks)-1))

	at := blocks[cut].start
	return Result{Part1: src[:at], Part2: src[at:]}
}

// block is a byte range of the source covering one top-level element together
// with any loose text or whitespace in front of it.
type block struct {
	start, end int
	words      int
}

type scanner struct {
	blocks []block
	stack  []atom.Atom
	names  []string
	start  int
	text   strings.Builder
	skip   int // open script/style elements
}

func scanBlocks(src string) []block {
	s := &scanner{}
	z := html.NewTokenizer(strings.NewReader(src))
	offset := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or a reader failure; strings.Reader only yields the former.
			break
		}
		tokStart := offset
		offset += len(z.Raw())

		switch tt {
		case html.TextToken:
			if s.skip == 0 {
				s.text.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			s.openTag(string(name), tokStart, offset, false)
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			s.openTag(string(name), tokStart, offset, true)
		case html.EndTagToken:
			name, _ := z.TagName()
			s.closeTag(string(name), offset)
		}
	}

	// Anything the tokenizer did not hand back, an unclosed element, or
	// trailing loose text belongs to the last block.
	if len(s.stack) > 0 || s.text.Len() > 0 || s.start < len(src) {
		if len(s.stack) > 0 || len(s.blocks) == 0 {
			s.emit(len(src))
		} else {
			last := &s.blocks[len(s.blocks)-1]
			last.end = len(src)
			last.words += countWords(s.text.String())
			s.text.Reset()
		}
	}
	return s.blocks
}

func (s *scanner) openTag(name string, tokStart, tokEnd int, selfClosing bool) {
	a := atom.Lookup([]byte(name))

	// A block-level start tag implicitly ends an open top-level <p>.
	if len(s.stack) == 1 && s.stack[0] == atom.P && closesParagraph(a) {
		s.stack = s.stack[:0]
		s.names = s.names[:0]
		s.emit(tokStart)
	}

	if !isInline(a) {
		s.text.WriteByte(' ')
	}
	if selfClosing || isVoid(a) {
		if len(s.stack) == 0 {
			s.emit(tokEnd)
		}
		return
	}
	if a == atom.Script || a == atom.Style || a == atom.Template {
		s.skip++
	}
	s.stack = append(s.stack, a)
	s.names = append(s.names, name)
}

func (s *scanner) closeTag(name string, tokEnd int) {
	idx := -1
	for i := len(s.names) - 1; i >= 0; i-- {
		if s.names[i] == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Stray end tag, kept as part of whatever surrounds it.
		return
	}
	for _, a := range s.stack[idx:] {
		if a == atom.Script || a == atom.Style || a == atom.Template {
			s.skip--
		}
	}
	s.stack = s.stack[:idx]
	s.names = s.names[:idx]

	a := atom.Lookup([]byte(name))
	if !isInline(a) {
		s.text.WriteByte(' ')
	}
	if len(s.stack) == 0 {
		s.emit(tokEnd)
	}
}

func (s *scanner) emit(end int) {
	if end <= s.start {
		return
	}
	s.blocks = append(s.blocks, block{
		start: s.start,
		end:   end,
		words: countWords(s.text.String()),
	})
	s.start = end
	s.text.Reset()
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

func isVoid(a atom.Atom) bool {
	switch a {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Link, atom.Meta, atom.Param, atom.Source, atom.Track, atom.Wbr:
		return true
	}
	return false
}

// isInline reports elements whose boundaries do not separate words.
func isInline(a atom.Atom) bool {
	switch a {
	case atom.A, atom.Abbr, atom.B, atom.Bdi, atom.Bdo, atom.Cite, atom.Code, atom.Data,
		atom.Dfn, atom.Em, atom.I, atom.Kbd, atom.Mark, atom.Q, atom.S, atom.Samp,
		atom.Small, atom.Span, atom.Strong, atom.Sub, atom.Sup, atom.Time, atom.U, atom.Var:
		return true
	}
	return false
}

func closesParagraph(a atom.Atom) bool {
	switch a {
	case atom.Address, atom.Article, atom.Aside, atom.Blockquote, atom.Details, atom.Div,
		atom.Dl, atom.Fieldset, atom.Figcaption, atom.Figure, atom.Footer, atom.Form,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Header, atom.Hr,
		atom.Main, atom.Nav, atom.Ol, atom.P, atom.Pre, atom.Section, atom.Table, atom.Ul:
		return true
	}
	return false
}
