package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ppiankov/unearth/internal/model"
)

// Document is the persisted store file. Report bodies are kept as raw JSON
// so a rewrite never re-encodes a committed report.
type Document struct {
	Reports map[string]json.RawMessage `json:"reports"` // report id -> AnalysisResults
	Votes   map[string]model.VoteTally `json:"votes"`   // report id -> tally
	Cache   map[string]string          `json:"cache"`   // content hash -> report id
}

func newDocument() *Document {
	return &Document{
		Reports: make(map[string]json.RawMessage),
		Votes:   make(map[string]model.VoteTally),
		Cache:   make(map[string]string),
	}
}

// readDocument loads the whole file. A missing file is an empty store.
func readDocument(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return newDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}

	doc := newDocument()
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("decode store %s: %w", path, err)
	}

	// Sections missing from a hand-edited file decode as nil maps
	if doc.Reports == nil {
		doc.Reports = make(map[string]json.RawMessage)
	}
	if doc.Votes == nil {
		doc.Votes = make(map[string]model.VoteTally)
	}
	if doc.Cache == nil {
		doc.Cache = make(map[string]string)
	}
	return doc, nil
}

// writeDocument rewrites the whole file through a temp file and rename so
// readers never observe a partial document
func writeDocument(path string, doc *Document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".db-*")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close store: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit store: %w", err)
	}
	return nil
}

// report decodes one report and attaches its current tally
func (d *Document) report(id string) (*model.AnalysisResults, error) {
	raw, ok := d.Reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	var res model.AnalysisResults
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	res.ID = id
	res.Votes = d.Votes[id]
	return &res, nil
}
