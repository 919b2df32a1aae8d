package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sweetpotato0/govassist/contrib/vector/inmemory"
	"github.com/sweetpotato0/govassist/service"
	"github.com/sweetpotato0/govassist/vector"
)

const birthDoc = `Birth registration in Kerala

## ELIGIBILITY
Every birth in Kerala must be registered.

## HOW_TO_APPLY
Apply through K-SMART within 21 days of the birth.
`

func TestBuildIndexFileBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := loadConfig(t, dir)

	n, err := BuildIndex(context.Background(), cfg, keywordEmbedder{}, service.BirthCertificate, birthDoc, IndexOptions{})
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if n != 2 {
		t.Errorf("passages = %d, want 2", n)
	}

	store, file, err := inmemory.Load(IndexPath(dir, service.BirthCertificate))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if file.Service != "birth_certificate" || file.Dimension != len(keywords) {
		t.Errorf("index header = %+v", file)
	}
	for _, rec := range store.Embeddings() {
		if rec.Metadata[vector.MetaService] != "birth_certificate" || rec.Metadata[vector.MetaRegion] != "Kerala" {
			t.Errorf("record metadata = %v", rec.Metadata)
		}
	}

	// Rebuilding replaces the collection rather than appending to it.
	if _, err := BuildIndex(context.Background(), cfg, keywordEmbedder{}, service.BirthCertificate, "## FEES\nNo fee within 21 days.", IndexOptions{Region: "Kerala"}); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	store, _, err = inmemory.Load(IndexPath(dir, service.BirthCertificate))
	if err != nil {
		t.Fatal(err)
	}
	if got := len(store.Embeddings()); got != 1 {
		t.Errorf("records after rebuild = %d, want 1", got)
	}
}

func TestBuildIndexWithoutSections(t *testing.T) {
	cfg := loadConfig(t, t.TempDir())
	if _, err := BuildIndex(context.Background(), cfg, keywordEmbedder{}, service.RationCard, "no headings here", IndexOptions{}); err == nil {
		t.Error("expected an error for a document without tagged sections")
	}
}

func TestReadSource(t *testing.T) {
	dir := t.TempDir()

	html := filepath.Join(dir, "ration.html")
	if err := os.WriteFile(html, []byte(`<html><body><nav>Home</nav><h2>FEES</h2><p>Nominal fee.</p></body></html>`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadSource(html)
	if err != nil {
		t.Fatalf("ReadSource(html): %v", err)
	}
	if got != "## FEES\n\nNominal fee." {
		t.Errorf("html source = %q", got)
	}

	txt := filepath.Join(dir, "ration.txt")
	if err := os.WriteFile(txt, []byte("## FEES   \n\n\n\nNominal   fee."), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = ReadSource(txt)
	if err != nil {
		t.Fatalf("ReadSource(txt): %v", err)
	}
	if !strings.HasPrefix(got, "## FEES\n\nNominal fee.") {
		t.Errorf("text source = %q", got)
	}

	if _, err := ReadSource(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
