package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sweetpotato0/govassist/config"
	"github.com/sweetpotato0/govassist/contrib/vector/inmemory"
	"github.com/sweetpotato0/govassist/contrib/vector/pg"
	"github.com/sweetpotato0/govassist/pkg/logging"
	"github.com/sweetpotato0/govassist/rag/chunking"
	"github.com/sweetpotato0/govassist/rag/preprocess"
	"github.com/sweetpotato0/govassist/rag/retriever"
	"github.com/sweetpotato0/govassist/service"
	"github.com/sweetpotato0/govassist/vector"
)

// IndexOptions controls how a source document becomes passages.
type IndexOptions struct {
	Region string
	// MaxCharacters bounds passage size; zero keeps whole sections.
	MaxCharacters int
	Overlap       int
}

// ReadSource loads a service document. HTML pages are reduced to text
// first; everything else is treated as cleaned plain text.
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return preprocess.PreprocessHTML(string(data))
	default:
		return preprocess.Preprocess(string(data)), nil
	}
}

// BuildIndex splits content into section passages, embeds them and replaces
// svc's collection in the configured backend. It returns the passage count.
func BuildIndex(ctx context.Context, cfg *config.Config, emb vector.Embedder, svc service.ID, content string, opts IndexOptions) (int, error) {
	logger := logging.WithComponent("indexer")

	var splitOpts []chunking.Option
	if opts.Region != "" {
		splitOpts = append(splitOpts, chunking.WithRegion(opts.Region))
	}
	if opts.MaxCharacters > 0 {
		splitOpts = append(splitOpts, chunking.WithMaxCharacters(opts.MaxCharacters, opts.Overlap))
	}
	passages := chunking.New(splitOpts...).Split(svc, content)
	if len(passages) == 0 {
		return 0, fmt.Errorf("no tagged sections found for %s", svc)
	}

	var store vector.VectorStore
	var save func() error
	switch cfg.Index.Backend {
	case "postgres":
		collections, closeFn, err := OpenCollections(ctx, cfg, []service.ID{svc}, emb.Dimension(), true)
		if err != nil {
			return 0, err
		}
		defer closeFn()
		table := collections[svc].(*pg.PGVectorStore)
		if err := table.Reset(ctx); err != nil {
			return 0, err
		}
		store = table
	default:
		mem := inmemory.New(emb.Dimension())
		store = mem
		save = func() error {
			return inmemory.Save(IndexPath(cfg.Index.Dir, svc), svc.String(), cfg.Embedding.Model, mem)
		}
	}

	r := retriever.New(emb, map[service.ID]vector.VectorStore{svc: store},
		retriever.WithEmbedTimeout(cfg.Embedding.Timeout))
	if err := r.Index(ctx, svc, passages); err != nil {
		return 0, err
	}
	if save != nil {
		if err := save(); err != nil {
			return 0, err
		}
	}

	logger.Info("collection indexed",
		"service", svc,
		"passages", len(passages),
		"backend", cfg.Index.Backend,
	)
	return len(passages), nil
}
