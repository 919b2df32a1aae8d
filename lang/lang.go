// Package lang classifies the script of user input.
package lang

// Language is the detected input language.
type Language string

const (
	English   Language = "en"
	Malayalam Language = "ml"
)

// Malayalam Unicode block.
const (
	blockStart = '\u0D00'
	blockEnd   = '\u0D7F'
)

// Detect reports Malayalam when any rune falls in the Malayalam block and
// English otherwise.
func Detect(text string) Language {
	for _, r := range text {
		if r >= blockStart && r <= blockEnd {
			return Malayalam
		}
	}
	return English
}

// IsDefault reports whether l needs no translation.
func (l Language) IsDefault() bool {
	return l != Malayalam
}
