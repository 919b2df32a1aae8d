package rewrite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sweetpotato0/govassist/message"
	"github.com/sweetpotato0/govassist/provider"
)

type stubGenerator struct {
	reply string
	err   error
	last  provider.Request
	calls int
}

func (s *stubGenerator) Generate(ctx context.Context, req provider.Request) (string, error) {
	s.calls++
	s.last = req
	return s.reply, s.err
}

func TestRewriteWithoutHistorySkipsProvider(t *testing.T) {
	gen := &stubGenerator{reply: "should not be used"}
	res := New(gen, nil).Rewrite(context.Background(), "What documents do I need?", nil)

	if gen.calls != 0 {
		t.Fatalf("expected no provider call, got %d", gen.calls)
	}
	if res.Text != "What documents do I need?" || res.Degraded {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRewriteResolvesFollowUp(t *testing.T) {
	gen := &stubGenerator{reply: `"How long does it take to get a birth certificate?"`}
	history := []message.Message{
		{Role: message.RoleUser, Content: "How do I apply for a birth certificate?"},
		{Role: message.RoleAssistant, Content: "Apply at the local body office."},
	}

	res := New(gen, nil).Rewrite(context.Background(), "and how long does it take?", history)
	if res.Degraded {
		t.Fatalf("unexpected degraded result %+v", res)
	}
	if !strings.Contains(strings.ToLower(res.Text), "birth certificate") {
		t.Fatalf("standalone query lost the subject: %q", res.Text)
	}
	if !strings.Contains(gen.last.Prompt, "user: How do I apply for a birth certificate?") {
		t.Errorf("history missing from prompt:\n%s", gen.last.Prompt)
	}
	if !strings.Contains(gen.last.Prompt, "Latest question: and how long does it take?") {
		t.Errorf("query missing from prompt:\n%s", gen.last.Prompt)
	}
}

func TestRewriteUsesOnlyRecentTurns(t *testing.T) {
	gen := &stubGenerator{reply: "standalone"}
	history := []message.Message{
		{Role: message.RoleUser, Content: "oldest turn"},
		{Role: message.RoleAssistant, Content: "turn 2"},
		{Role: message.RoleUser, Content: "turn 3"},
		{Role: message.RoleAssistant, Content: "turn 4"},
		{Role: message.RoleUser, Content: "turn 5"},
	}
	New(gen, nil).Rewrite(context.Background(), "q", history)
	if strings.Contains(gen.last.Prompt, "oldest turn") {
		t.Fatalf("prompt must only carry the last %d turns", message.HistoryWindow)
	}
}

func TestRewriteDegrades(t *testing.T) {
	history := []message.Message{{Role: message.RoleUser, Content: "ration card"}}
	for name, gen := range map[string]*stubGenerator{
		"error": {err: errors.New("unavailable")},
		"blank": {reply: " "},
	} {
		t.Run(name, func(t *testing.T) {
			res := New(gen, nil).Rewrite(context.Background(), "what fee?", history)
			if !res.Degraded || res.Err == nil || res.Text != "what fee?" {
				t.Fatalf("expected degraded pass-through, got %+v", res)
			}
		})
	}
}
