// Package chunking splits cleaned service documents into section passages.
//
// A document is markdown-like text where every section starts with a level-2
// heading whose title is an upper-case tag such as "## DOCUMENTS_REQUIRED"
// or "## RATION_CARD_TYPES (AAY)". Each non-empty section becomes one
// passage; text before the first tag is discarded.
package chunking

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/sweetpotato0/govassist/rag/passage"
	"github.com/sweetpotato0/govassist/service"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// DefaultRegion is attached to every passage unless overridden.
const DefaultRegion = "Kerala"

var sectionTag = regexp.MustCompile(`^[A-Z_]+(?:\s*\([A-Z]+\))?$`)

// Splitter turns documents into passages.
type Splitter struct {
	region   string
	maxChars int
	overlap  int
	parser   goldmark.Markdown
}

// Option customises the splitter.
type Option func(*Splitter)

// WithRegion sets the region tag.
func WithRegion(region string) Option {
	return func(s *Splitter) {
		if region != "" {
			s.region = region
		}
	}
}

// WithMaxCharacters splits sections longer than max runes into several
// passages sharing the section tag. Paragraphs are kept whole when they fit;
// longer paragraphs are windowed with overlap runes of context.
func WithMaxCharacters(max, overlap int) Option {
	return func(s *Splitter) {
		if max > 0 {
			s.maxChars = max
		}
		if overlap >= 0 && overlap < max {
			s.overlap = overlap
		}
	}
}

// New creates a splitter. Sections are not size-bounded by default.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		region: DefaultRegion,
		parser: goldmark.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type section struct {
	title     string
	lineStart int // offset of the "##" line
	bodyStart int // offset just past the heading line
}

// Split returns the passages of content in document order.
func (s *Splitter) Split(svc service.ID, content string) []passage.Passage {
	source := []byte(content)
	sections := s.sections(source)

	var out []passage.Passage
	for i, sec := range sections {
		end := len(source)
		if i+1 < len(sections) {
			end = sections[i+1].lineStart
		}
		body := strings.TrimSpace(string(source[sec.bodyStart:end]))
		if body == "" {
			continue
		}
		for _, piece := range s.bound(body) {
			out = append(out, passage.Passage{
				Service: svc,
				Region:  s.region,
				Section: sec.title,
				Text:    piece,
			})
		}
	}
	return out
}

func (s *Splitter) sections(source []byte) []section {
	root := s.parser.Parser().Parse(text.NewReader(source))

	var found []section
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level != 2 {
			return ast.WalkContinue, nil
		}
		lines := heading.Lines()
		if lines == nil || lines.Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		seg := lines.At(0)
		title := strings.TrimSpace(string(seg.Value(source)))
		if !sectionTag.MatchString(title) {
			return ast.WalkSkipChildren, nil
		}
		found = append(found, section{
			title:     title,
			lineStart: lineStart(source, seg.Start),
			bodyStart: lineEnd(source, lines.At(lines.Len()-1).Stop),
		})
		return ast.WalkSkipChildren, nil
	})
	return found
}

func lineStart(source []byte, pos int) int {
	return bytes.LastIndexByte(source[:pos], '\n') + 1
}

func lineEnd(source []byte, pos int) int {
	if i := bytes.IndexByte(source[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(source)
}

// bound packs paragraphs into pieces of at most maxChars runes.
func (s *Splitter) bound(body string) []string {
	if s.maxChars <= 0 || runeLen(body) <= s.maxChars {
		return []string{body}
	}

	var pieces []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			pieces = append(pieces, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	for _, para := range strings.Split(body, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if runeLen(para) > s.maxChars {
			flush()
			pieces = append(pieces, s.window(para)...)
			continue
		}
		if current.Len() > 0 && runeLen(current.String())+2+runeLen(para) > s.maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()
	return pieces
}

func (s *Splitter) window(para string) []string {
	runes := []rune(para)
	step := s.maxChars - s.overlap
	var out []string
	for start := 0; start < len(runes); start += step {
		end := min(start+s.maxChars, len(runes))
		out = append(out, strings.TrimSpace(string(runes[start:end])))
		if end == len(runes) {
			break
		}
	}
	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}
