// Package passage holds the retrieval unit shared by every pipeline stage.
package passage

import (
	"github.com/sweetpotato0/govassist/service"
	"github.com/sweetpotato0/govassist/vector"
)

// Passage is one indexed section of a service document together with its
// similarity to the query. Passages are values; stages never modify them.
type Passage struct {
	Service service.ID `json:"service"`
	Region  string     `json:"region"`
	Section string     `json:"section"`
	Text    string     `json:"text"`
	Score   float32    `json:"score"`
}

// FromMatch converts a vector store hit. The stored service tag is kept as
// is so callers can reject hits that do not belong to their scope.
func FromMatch(m vector.Match) Passage {
	p := Passage{Score: m.Score}
	if m.Embedding == nil {
		return p
	}
	meta := m.Embedding.Metadata
	p.Service = service.ID(meta[vector.MetaService])
	p.Region = meta[vector.MetaRegion]
	p.Section = meta[vector.MetaSection]
	p.Text = m.Embedding.Text
	return p
}

// Sections lists the section names of ps in order.
func Sections(ps []Passage) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Section
	}
	return out
}
