// Package advisor suggests what a user is likely to ask about next.
package advisor

import (
	"log/slog"
	"sort"

	"github.com/sweetpotato0/govassist/pkg/logging"
	"github.com/sweetpotato0/govassist/rag/intent"
	"github.com/sweetpotato0/govassist/service"
)

// DefaultTopK is the number of suggestions returned.
const DefaultTopK = 3

// Scorer maps one-hot service and intent vectors to one probability per
// intent, in intent.All order.
type Scorer interface {
	Score(serviceVec, intentVec []float64) []float64
}

// Advisor ranks follow-up intents with a Scorer.
type Advisor struct {
	scorer Scorer
	topK   int
	logger *slog.Logger
}

// New creates an advisor. A nil scorer uses DefaultModel.
func New(scorer Scorer) *Advisor {
	if scorer == nil {
		scorer = DefaultModel()
	}
	return &Advisor{
		scorer: scorer,
		topK:   DefaultTopK,
		logger: logging.WithComponent("advisor"),
	}
}

// Advise returns up to three intents ordered by descending probability, ties
// broken by intent order. An unknown service or the None intent yields no
// suggestions.
func (a *Advisor) Advise(svc service.ID, current intent.Intent) []intent.Intent {
	si, ii := svc.Index(), current.Index()
	if si < 0 || ii < 0 {
		return []intent.Intent{}
	}

	intents := intent.All()
	serviceVec := make([]float64, len(service.All()))
	intentVec := make([]float64, len(intents))
	serviceVec[si] = 1
	intentVec[ii] = 1

	probs := a.scorer.Score(serviceVec, intentVec)
	if len(probs) != len(intents) {
		a.logger.Warn("scorer returned unexpected class count", "want", len(intents), "got", len(probs))
		return []intent.Intent{}
	}

	order := make([]int, len(intents))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return probs[order[i]] > probs[order[j]]
	})

	n := min(a.topK, len(order))
	out := make([]intent.Intent, n)
	for i := 0; i < n; i++ {
		out[i] = intents[order[i]]
	}
	return out
}
