package inmemory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	errorskg "github.com/sweetpotato0/govassist/errors"
	"github.com/sweetpotato0/govassist/vector"
)

// IndexFile is the on-disk form of one service collection: every record
// carries its vector and the passage metadata it was computed from.
type IndexFile struct {
	Service   string              `json:"service"`
	Model     string              `json:"model,omitempty"`
	Dimension int                 `json:"dimension"`
	Records   []*vector.Embedding `json:"records"`
}

// Load reads an index file written by Save. A missing file is reported as
// errors.ErrNotFound.
func Load(path string) (*Store, *IndexFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: index %s", errorskg.ErrNotFound, path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read index %s: %w", path, err)
	}

	var file IndexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("decode index %s: %w", path, err)
	}

	store := New(file.Dimension)
	for i, rec := range file.Records {
		if rec == nil {
			return nil, nil, fmt.Errorf("index %s: record %d is empty", path, i)
		}
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("%s-%d", file.Service, i)
		}
		normaliseMetadata(rec, file.Service)
		if err := store.AddEmbedding(context.Background(), rec); err != nil {
			return nil, nil, fmt.Errorf("index %s: record %d: %w", path, i, err)
		}
	}
	return store, &file, nil
}

// Save writes the store's records to path as an IndexFile.
func Save(path, service, model string, store *Store) error {
	file := IndexFile{
		Service:   service,
		Model:     model,
		Dimension: store.Dimension(),
		Records:   store.Embeddings(),
	}
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// normaliseMetadata accepts the older "state" key for the region and fills
// in the collection's service when a record omits it.
func normaliseMetadata(rec *vector.Embedding, service string) {
	if rec.Metadata == nil {
		rec.Metadata = make(map[string]string)
	}
	if _, ok := rec.Metadata[vector.MetaRegion]; !ok {
		if state, ok := rec.Metadata["state"]; ok {
			rec.Metadata[vector.MetaRegion] = state
			delete(rec.Metadata, "state")
		}
	}
	if _, ok := rec.Metadata[vector.MetaService]; !ok && service != "" {
		rec.Metadata[vector.MetaService] = service
	}
}
