package intent

import (
	"testing"

	"github.com/sweetpotato0/govassist/rag/passage"
)

func sections(names ...string) []passage.Passage {
	out := make([]passage.Passage, len(names))
	for i, n := range names {
		out[i] = passage.Passage{Service: "ration_card", Section: n, Text: n + " text"}
	}
	return out
}

func TestClassify(t *testing.T) {
	cases := []struct {
		section string
		want    Intent
	}{
		{"DOCUMENTS_REQUIRED", Documents},
		{"Eligibility Criteria", Eligibility},
		{"APPLICATION_PROCESS", Process},
		{"How to Apply", Process},
		{"PROCESSING_TIME", Process},
		{"TIMELINE", Timeline},
		{"FEES", Fees},
		{"CORRECTION_OF_ENTRIES", Correction},
		{"OVERVIEW", None},
	}
	for _, tc := range cases {
		t.Run(tc.section, func(t *testing.T) {
			if got := Classify(sections(tc.section, "DOCUMENTS")); got != tc.want {
				t.Fatalf("Classify(%q) = %q, want %q", tc.section, got, tc.want)
			}
		})
	}

	if got := Classify(nil); got != None {
		t.Fatalf("empty passages must classify as None, got %q", got)
	}
}

func TestFilter(t *testing.T) {
	ps := sections("DOCUMENTS_REQUIRED", "ELIGIBILITY", "SUPPORTING_DOCUMENTS")

	t.Run("none keeps everything", func(t *testing.T) {
		if got := Filter(ps, None); len(got) != 3 {
			t.Fatalf("expected 3 passages, got %d", len(got))
		}
	})

	t.Run("keeps matching sections in order", func(t *testing.T) {
		got := Filter(ps, Documents)
		if len(got) != 2 || got[0].Section != "DOCUMENTS_REQUIRED" || got[1].Section != "SUPPORTING_DOCUMENTS" {
			t.Fatalf("unexpected filter result %v", passage.Sections(got))
		}
	})

	t.Run("process matches apply", func(t *testing.T) {
		got := Filter(sections("HOW_TO_APPLY", "FEES"), Process)
		if len(got) != 1 || got[0].Section != "HOW_TO_APPLY" {
			t.Fatalf("unexpected filter result %v", passage.Sections(got))
		}
	})

	t.Run("never empties a non-empty list", func(t *testing.T) {
		got := Filter(ps, Fees)
		if len(got) != 1 || got[0].Section != "DOCUMENTS_REQUIRED" {
			t.Fatalf("expected top passage fallback, got %v", passage.Sections(got))
		}
	})

	t.Run("empty input stays empty", func(t *testing.T) {
		if got := Filter(nil, Documents); len(got) != 0 {
			t.Fatalf("expected empty result, got %v", got)
		}
	})
}

func TestIndexOrder(t *testing.T) {
	for i, in := range All() {
		if in.Index() != i {
			t.Fatalf("%s index %d, want %d", in, in.Index(), i)
		}
	}
	if None.Index() != -1 {
		t.Fatal("None must not have an index")
	}
}
