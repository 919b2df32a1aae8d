// Package intent infers what aspect of a service a question is about from
// the section tags of retrieved passages.
package intent

import (
	"strings"

	"github.com/sweetpotato0/govassist/rag/passage"
)

// Intent is the aspect of a service the user is asking about.
type Intent string

const (
	None        Intent = ""
	Documents   Intent = "documents"
	Eligibility Intent = "eligibility"
	Process     Intent = "process"
	Timeline    Intent = "timeline"
	Fees        Intent = "fees"
	Correction  Intent = "correction"
)

var all = []Intent{Documents, Eligibility, Process, Timeline, Fees, Correction}

// All returns the intents in canonical order, which is also the advisor's
// feature and class order.
func All() []Intent {
	out := make([]Intent, len(all))
	copy(out, all)
	return out
}

// Index returns the position of in within All, or -1.
func (in Intent) Index() int {
	for i, v := range all {
		if v == in {
			return i
		}
	}
	return -1
}

// FallbackTopN is how many leading passages survive when filtering would
// otherwise drop every passage.
var FallbackTopN = 1

type rule struct {
	intent   Intent
	keywords []string
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{Documents, []string{"document"}},
	{Eligibility, []string{"eligibility"}},
	{Process, []string{"process", "apply"}},
	{Timeline, []string{"time", "timeline"}},
	{Fees, []string{"fee"}},
	{Correction, []string{"correction"}},
}

// Classify derives the intent from the section of the top passage only.
func Classify(passages []passage.Passage) Intent {
	if len(passages) == 0 {
		return None
	}
	section := strings.ToLower(passages[0].Section)
	for _, r := range rules {
		if containsAny(section, r.keywords) {
			return r.intent
		}
	}
	return None
}

// Filter keeps passages whose section matches in. It never turns a non-empty
// list into an empty one: when nothing matches, the first FallbackTopN
// passages are kept.
func Filter(passages []passage.Passage, in Intent) []passage.Passage {
	if in == None || len(passages) == 0 {
		return passages
	}
	keywords := keywordsFor(in)
	if len(keywords) == 0 {
		return passages
	}

	kept := make([]passage.Passage, 0, len(passages))
	for _, p := range passages {
		if containsAny(strings.ToLower(p.Section), keywords) {
			kept = append(kept, p)
		}
	}
	if len(kept) > 0 {
		return kept
	}

	n := FallbackTopN
	if n < 1 {
		n = 1
	}
	if n > len(passages) {
		n = len(passages)
	}
	return append([]passage.Passage(nil), passages[:n]...)
}

// keywordsFor returns the filter keywords for in. Timeline filters on "time",
// which already covers "timeline".
func keywordsFor(in Intent) []string {
	switch in {
	case Documents:
		return []string{"document"}
	case Eligibility:
		return []string{"eligibility"}
	case Process:
		return []string{"process", "apply"}
	case Timeline:
		return []string{"time"}
	case Fees:
		return []string{"fee"}
	case Correction:
		return []string{"correction"}
	default:
		return nil
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
