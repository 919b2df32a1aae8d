package tiktoken

import (
	"github.com/pkoukk/tiktoken-go"
	"github.com/sweetpotato0/govassist/rag/tokenizer"
)

// DefaultEncoding is used when no model-specific encoding is known.
const DefaultEncoding = "cl100k_base"

// Tokenizer adapts a BPE encoding to tokenizer.Tokenizer.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

var _ tokenizer.Tokenizer = (*Tokenizer)(nil)

// New resolves name as a model first and then as an encoding name.
func New(name string) (*Tokenizer, error) {
	if name == "" {
		name = DefaultEncoding
	}
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}
	return &Tokenizer{enc: enc}, nil
}

func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *Tokenizer) CountTokens(text string) int {
	return len(t.Encode(text))
}

func (t *Tokenizer) DecodeIds(ids []int) string {
	return t.enc.Decode(ids)
}
