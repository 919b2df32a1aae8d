package pipeline

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/govassist/graph"
	"github.com/sweetpotato0/govassist/lang"
	"github.com/sweetpotato0/govassist/pkg/logging"
	"github.com/sweetpotato0/govassist/pkg/metrics"
	"github.com/sweetpotato0/govassist/pkg/telemetry"
	"github.com/sweetpotato0/govassist/rag/intent"
	"github.com/sweetpotato0/govassist/rag/passage"
	"github.com/sweetpotato0/govassist/rag/synthesizer"
	"github.com/sweetpotato0/govassist/rag/translate"
	"github.com/sweetpotato0/govassist/service"
)

// Node names double as span and metric stage labels.
const (
	nodeDetect       = "detect"
	nodeTranslateIn  = "translate_in"
	nodeRewrite      = "rewrite"
	nodeRoute        = "route"
	nodeResolved     = "resolved"
	nodeClarify      = "clarify"
	nodeRetrieve     = "retrieve"
	nodeFound        = "found"
	nodeNoResults    = "no_results"
	nodeClassify     = "classify"
	nodeSynthesize   = "synthesize"
	nodeTranslateOut = "translate_out"
	nodeAdvise       = "advise"
	nodeResult       = "result"
)

// state is owned by a single request.
type state struct {
	req  Request
	topK int

	language   lang.Language
	working    string // English question
	standalone string
	service    service.ID
	resolved   bool
	retrieved  []passage.Passage
	filtered   []passage.Passage
	intent     intent.Intent
	answer     string
	nextSteps  []intent.Intent
	degraded   []string
	outcome    string
}

func (st *state) degrade(stage string) {
	st.degraded = append(st.degraded, stage)
}

func (st *state) result(includeSources bool) *AnswerResult {
	res := &AnswerResult{
		Query:           st.req.Query,
		Answer:          st.answer,
		Language:        st.language,
		Sources:         []passage.Passage{},
		Intent:          st.intent,
		NextSteps:       nonNil(st.nextSteps),
		StandaloneQuery: st.standalone,
		Degraded:        st.degraded,
	}
	if st.resolved {
		svc := st.service
		res.Service = &svc
	}
	if includeSources {
		res.Sources = append(res.Sources, st.filtered...)
	}
	return res
}

func (p *Pipeline) build() (*graph.Graph[*state], error) {
	b := graph.NewBuilder[*state]().
		AddNode(nodeDetect, graph.NodeTypeStart, p.detect).
		AddNode(nodeTranslateIn, graph.NodeTypeCustom, p.translateIn).
		AddNode(nodeRewrite, graph.NodeTypeCustom, p.rewrite).
		AddNode(nodeRoute, graph.NodeTypeCustom, p.route).
		AddConditionNode(nodeResolved, isResolved, map[string]string{
			"yes": nodeRetrieve,
			"no":  nodeClarify,
		}).
		AddNode(nodeClarify, graph.NodeTypeCustom, p.clarify).
		AddNode(nodeRetrieve, graph.NodeTypeCustom, p.retrieve).
		AddConditionNode(nodeFound, hasPassages, map[string]string{
			"yes": nodeClassify,
			"no":  nodeNoResults,
		}).
		AddNode(nodeNoResults, graph.NodeTypeCustom, p.noResults).
		AddNode(nodeClassify, graph.NodeTypeCustom, p.classify).
		AddNode(nodeSynthesize, graph.NodeTypeCustom, p.synthesize).
		AddNode(nodeTranslateOut, graph.NodeTypeCustom, p.translateOut).
		AddNode(nodeAdvise, graph.NodeTypeCustom, p.advise).
		AddNode(nodeResult, graph.NodeTypeEnd, nil).
		AddEdge(nodeDetect, nodeTranslateIn).
		AddEdge(nodeTranslateIn, nodeRewrite).
		AddEdge(nodeRewrite, nodeRoute).
		AddEdge(nodeRoute, nodeResolved).
		AddEdge(nodeClarify, nodeResult).
		AddEdge(nodeRetrieve, nodeFound).
		AddEdge(nodeNoResults, nodeTranslateOut).
		AddEdge(nodeClassify, nodeSynthesize).
		AddEdge(nodeSynthesize, nodeTranslateOut).
		AddEdge(nodeTranslateOut, nodeAdvise).
		AddEdge(nodeAdvise, nodeResult).
		SetStart(nodeDetect).
		SetEnd(nodeResult)

	if p.tracing {
		b.Use(telemetry.StageMiddleware[*state](p.tracer))
	}
	if p.metrics != nil {
		b.Use(metrics.StageMiddleware[*state](p.metrics))
	}
	return b.Build()
}

func isResolved(_ context.Context, st *state) (string, error) {
	if st.resolved {
		return "yes", nil
	}
	return "no", nil
}

func hasPassages(_ context.Context, st *state) (string, error) {
	if len(st.retrieved) > 0 {
		return "yes", nil
	}
	return "no", nil
}

func (p *Pipeline) detect(_ context.Context, st *state) (*state, error) {
	st.language = lang.Detect(st.req.Query)
	st.working = st.req.Query
	return st, nil
}

func (p *Pipeline) translateIn(ctx context.Context, st *state) (*state, error) {
	if st.language.IsDefault() {
		return st, nil
	}
	if p.c.Translator == nil {
		st.degrade(StageTranslateIn)
		return st, nil
	}
	res := p.c.Translator.Translate(ctx, st.req.Query, translate.ToEnglish)
	if res.Degraded {
		st.degrade(StageTranslateIn)
	}
	st.working = res.Text
	return st, nil
}

func (p *Pipeline) rewrite(ctx context.Context, st *state) (*state, error) {
	st.standalone = st.working
	if p.c.Rewriter == nil || len(st.req.History) == 0 {
		return st, nil
	}
	res := p.c.Rewriter.Rewrite(ctx, st.working, st.req.History)
	if res.Degraded {
		st.degrade(StageRewrite)
	}
	st.standalone = res.Text
	return st, nil
}

func (p *Pipeline) route(ctx context.Context, st *state) (*state, error) {
	st.service, st.resolved = p.c.Router.Route(ctx, st.standalone, st.req.Service)
	if st.resolved && !p.c.Retriever.Has(st.service) {
		p.logger.Warn("routed to a service without a collection", "service", st.service.String())
		st.service, st.resolved = "", false
	}
	return st, nil
}

func (p *Pipeline) clarify(_ context.Context, st *state) (*state, error) {
	p.logger.Info("service unresolved, asking for clarification",
		"query", logging.Truncate(st.standalone, 80))
	st.answer = Clarification
	st.outcome = metrics.OutcomeClarify
	return st, nil
}

func (p *Pipeline) retrieve(ctx context.Context, st *state) (*state, error) {
	passages, err := p.c.Retriever.Search(ctx, st.standalone, st.service, st.topK)
	if err != nil {
		return st, fmt.Errorf("retrieve %s: %w", st.service, err)
	}
	st.retrieved = passages
	return st, nil
}

func (p *Pipeline) noResults(_ context.Context, st *state) (*state, error) {
	st.answer = synthesizer.NoInformation
	st.outcome = metrics.OutcomeNoResults
	return st, nil
}

func (p *Pipeline) classify(_ context.Context, st *state) (*state, error) {
	st.intent = intent.Classify(st.retrieved)
	st.filtered = intent.Filter(st.retrieved, st.intent)
	p.logger.Debug("intent classified", "intent", string(st.intent),
		"retrieved", len(st.retrieved), "kept", len(st.filtered))
	return st, nil
}

func (p *Pipeline) synthesize(ctx context.Context, st *state) (*state, error) {
	ans := p.c.Synthesizer.Synthesize(ctx, st.standalone, st.filtered, st.req.History)
	if ans.Degraded {
		st.degrade(StageSynthesize)
	}
	st.answer = ans.Text
	st.outcome = metrics.OutcomeAnswered
	return st, nil
}

func (p *Pipeline) translateOut(ctx context.Context, st *state) (*state, error) {
	if st.language.IsDefault() {
		return st, nil
	}
	if p.c.Translator == nil {
		st.degrade(StageTranslateOut)
		return st, nil
	}
	res := p.c.Translator.Translate(ctx, st.answer, translate.FromEnglish)
	if res.Degraded {
		st.degrade(StageTranslateOut)
	}
	st.answer = res.Text
	return st, nil
}

func (p *Pipeline) advise(_ context.Context, st *state) (*state, error) {
	if p.c.Advisor == nil || st.intent == intent.None {
		return st, nil
	}
	st.nextSteps = p.c.Advisor.Advise(st.service, st.intent)
	return st, nil
}
