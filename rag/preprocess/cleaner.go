// Package preprocess turns scraped service pages into the cleaned text the
// section splitter reads.
package preprocess

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var (
	reSpaces   = regexp.MustCompile(`[ \t\x{00A0}]+`)
	reNewlines = regexp.MustCompile(`\n{3,}`)

	replacer = strings.NewReplacer(
		"\r\n", "\n",
		"ﬁ", "fi", "ﬂ", "fl",
		"—", "-", "–", "-",
		"•", "-", "·", ".",
		"\u200b", "",
	)

	// Boilerplate lines found on Kerala government portals.
	noise = []string{
		"skip to main content",
		"screen reader access",
		"copyright",
		"all rights reserved",
		"privacy policy",
		"cookie",
		"last updated on",
		"visitors count",
	}
)

// CleanBasic strips control characters other than newlines and ZWJ/ZWNJ,
// normalises punctuation and collapses whitespace.
func CleanBasic(text string) string {
	if text == "" {
		return ""
	}

	b := strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\u200c' || r == '\u200d':
			return r
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, replacer.Replace(text))

	b = reSpaces.ReplaceAllString(b, " ")
	lines := strings.Split(b, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	b = reNewlines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(b)
}

// HTMLToText keeps headings, paragraphs, list items and tables. Level-2
// headings become "## " lines so tagged sections survive extraction.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script,style,nav,header,footer,noscript").Remove()

	var out []string
	doc.Find("h1,h2,h3,h4,p,li,table").Each(func(i int, s *goquery.Selection) {
		content := strings.TrimSpace(s.Text())
		if content == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "h1":
			out = append(out, "# "+content)
		case "h2":
			out = append(out, "## "+content)
		case "h3", "h4":
			out = append(out, "### "+content)
		case "p":
			if s.ParentsFiltered("li,table").Length() == 0 {
				out = append(out, content)
			}
		case "li":
			if s.ParentsFiltered("table").Length() == 0 {
				out = append(out, "- "+content)
			}
		case "table":
			out = append(out, parseTable(s))
		}
	})
	return strings.Join(out, "\n\n"), nil
}

func parseTable(sel *goquery.Selection) string {
	var rows []string
	sel.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var cols []string
		tr.Find("th,td").Each(func(j int, td *goquery.Selection) {
			cols = append(cols, strings.TrimSpace(td.Text()))
		})
		if len(cols) > 0 {
			rows = append(rows, "| "+strings.Join(cols, " | ")+" |")
		}
	})
	return strings.Join(rows, "\n")
}

// RemoveDuplicateParagraphs keeps the first copy of every paragraph.
func RemoveDuplicateParagraphs(text string) string {
	parts := strings.Split(text, "\n\n")
	seen := map[string]struct{}{}
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return strings.Join(out, "\n\n")
}

// RemoveWebNoise drops portal boilerplate lines.
func RemoveWebNoise(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		lower := strings.ToLower(l)
		skip := false
		for _, p := range noise {
			if strings.Contains(lower, p) {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// Preprocess cleans plain text.
func Preprocess(raw string) string {
	t := CleanBasic(raw)
	t = RemoveWebNoise(t)
	t = RemoveDuplicateParagraphs(t)
	return t
}

// PreprocessHTML extracts and cleans an HTML page.
func PreprocessHTML(html string) (string, error) {
	t, err := HTMLToText(html)
	if err != nil {
		return "", err
	}
	return Preprocess(t), nil
}
