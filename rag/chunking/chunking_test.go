package chunking

import (
	"slices"
	"strings"
	"testing"

	"github.com/sweetpotato0/govassist/rag/passage"
	"github.com/sweetpotato0/govassist/service"
)

const rationDoc = `Kerala Ration Card Guide
Collected from civilsupplieskerala.gov.in

## ELIGIBILITY
Any family residing in Kerala without a ration card elsewhere.

## DOCUMENTS_REQUIRED
- Aadhaar of all members
- Proof of residence

## Notes for applicants
Keep photocopies ready.

## RATION_CARD_TYPES (AAY)
Antyodaya Anna Yojana cards for the poorest households.

## FEES

## HOW_TO_APPLY
Apply through the Civil Supplies portal or an Akshaya centre.
`

func TestSplitSections(t *testing.T) {
	got := New().Split(service.RationCard, rationDoc)

	wantSections := []string{"ELIGIBILITY", "DOCUMENTS_REQUIRED", "RATION_CARD_TYPES (AAY)", "HOW_TO_APPLY"}
	if !slices.Equal(passage.Sections(got), wantSections) {
		t.Fatalf("sections = %v, want %v", passage.Sections(got), wantSections)
	}
	for _, p := range got {
		if p.Service != service.RationCard || p.Region != DefaultRegion {
			t.Errorf("passage %s tagged %q/%q", p.Section, p.Service, p.Region)
		}
		if strings.HasPrefix(p.Text, p.Section) {
			t.Errorf("passage %s starts with its own heading: %q", p.Section, p.Text)
		}
	}

	docs := got[1].Text
	if !strings.Contains(docs, "Proof of residence") || !strings.Contains(docs, "Keep photocopies ready.") {
		t.Errorf("documents section = %q, want list plus the untagged heading's text", docs)
	}
	if strings.Contains(got[0].Text, "Kerala Ration Card Guide") {
		t.Errorf("preamble leaked into first section: %q", got[0].Text)
	}
}

func TestSplitWithoutSections(t *testing.T) {
	if got := New().Split(service.BirthCertificate, "plain text without headings"); len(got) != 0 {
		t.Errorf("Split() = %v, want no passages", got)
	}
}

func TestSplitRegion(t *testing.T) {
	got := New(WithRegion("Tamil Nadu")).Split(service.RationCard, "## FEES\nNominal fee.")
	if len(got) != 1 || got[0].Region != "Tamil Nadu" || got[0].Text != "Nominal fee." {
		t.Errorf("Split() = %+v", got)
	}
}

func TestSplitBoundsLongSections(t *testing.T) {
	long := strings.Repeat("ക", 25)
	doc := "## PROCESS\nStep one.\n\nStep two.\n\n" + long

	got := New(WithMaxCharacters(20, 5)).Split(service.BirthCertificate, doc)

	var texts []string
	for _, p := range got {
		if p.Section != "PROCESS" {
			t.Errorf("section = %q, want PROCESS", p.Section)
		}
		if n := len([]rune(p.Text)); n > 20 {
			t.Errorf("piece %q has %d runes, want <= 20", p.Text, n)
		}
		texts = append(texts, p.Text)
	}
	want := []string{
		"Step one.\n\nStep two.",
		strings.Repeat("ക", 20),
		strings.Repeat("ക", 10),
	}
	if !slices.Equal(texts, want) {
		t.Errorf("pieces = %q, want %q", texts, want)
	}
}
