package prompt

import (
	"strings"
	"testing"
)

func TestDefaultsRender(t *testing.T) {
	m := Defaults()

	out, err := m.Render(TranslateToEnglish, map[string]any{"Text": "റേഷൻ കാർഡ്"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.HasSuffix(out, "Text:\nറേഷൻ കാർഡ്") {
		t.Errorf("unexpected translation prompt:\n%s", out)
	}

	out, err = m.Render(SynthesisUser, map[string]any{
		"Context":  "[Chunk 1] Service: ration_card | Section: FEES\nRs. 25",
		"Question": "what is the fee?",
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(out, "RECENT CONVERSATION") {
		t.Errorf("history block must be omitted without history:\n%s", out)
	}
	if !strings.Contains(out, "USER QUESTION: what is the fee?") {
		t.Errorf("question missing:\n%s", out)
	}

	out, _ = m.Render(SynthesisUser, map[string]any{
		"Context":  "ctx",
		"History":  "user: hi",
		"Question": "q",
	})
	if !strings.Contains(out, "RECENT CONVERSATION (context only, not a source of facts):\nuser: hi") {
		t.Errorf("history block missing:\n%s", out)
	}
}

func TestManagerRejectsDuplicates(t *testing.T) {
	m := NewManager()
	if err := m.RegisterString("a", "{{.X}}"); err != nil {
		t.Fatal(err)
	}
	if err := m.RegisterString("a", "{{.Y}}"); err == nil {
		t.Error("expected duplicate registration error")
	}
	if _, err := m.Render("missing", nil); err == nil {
		t.Error("expected missing template error")
	}
}

func TestSystemPromptCarriesRefusal(t *testing.T) {
	if !strings.Contains(SynthesisSystem, InsufficientContext) {
		t.Fatal("system prompt must include the refusal phrase")
	}
}

func TestBuilder(t *testing.T) {
	got := NewBuilder().Add("[Chunk 1]").AddFormat(" Section: %s", "FEES").Build()
	if got != "[Chunk 1] Section: FEES" {
		t.Errorf("Build() = %q", got)
	}
}
