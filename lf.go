// Package lf turns annotated text into feature vectors for external
// learners and turns per-token labels back into annotations.
//
// It provides the train/save/load/apply cycle around a corpus: Train builds
// and freezes a corpus from documents, Save persists its dictionaries, and
// a loaded Model vectorizes new documents identically.
//
//	specs, _ := attribute.ParseFile("attrs.yaml")
//	cfg := lf.DefaultTrainConfig()
//	cfg.ClassType = "Person"
//	m, _ := lf.TrainDir("docs", specs, cfg)
//	_ = m.Save("model")
//	rows, _ := m.Vectorize(doc)
package lf

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/happyhackingspace/lf/annotation"
	"github.com/happyhackingspace/lf/corpus"
	"github.com/happyhackingspace/lf/decode"
	"github.com/happyhackingspace/lf/internal/modelstore"
	"github.com/happyhackingspace/lf/sparse"
)

// Info is the metadata record stored with a model.
type Info = modelstore.Info

// Model is a frozen corpus with its metadata.
type Model struct {
	corpus *corpus.Frozen
	info   Info
}

// Row is the application-time vector of one instance. Group is the index
// of the enclosing sequence, or decode.NoGroup outside sequence mode.
type Row struct {
	Instance annotation.Span `json:"instance"`
	Group    int             `json:"group"`
	Vector   sparse.Vector   `json:"vector"`
}

// Load reads a model directory written by Save.
func Load(dir string) (*Model, error) {
	store := modelstore.NewStore(dir)
	f, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("lf: %w", err)
	}
	info, err := store.GetInfo()
	if err != nil {
		return nil, fmt.Errorf("lf: %w", err)
	}
	return &Model{corpus: f, info: *info}, nil
}

// Save writes the model directory.
func (m *Model) Save(dir string) error {
	if m.corpus == nil {
		return fmt.Errorf("lf: model not initialized")
	}
	if err := modelstore.NewStore(dir).Save(m.corpus, m.info); err != nil {
		return fmt.Errorf("lf: %w", err)
	}
	return nil
}

// Info returns the metadata record.
func (m *Model) Info() Info {
	return m.info
}

// Corpus returns the frozen training corpus. A loaded model has no stored
// instances, only dictionaries.
func (m *Model) Corpus() *corpus.Frozen {
	return m.corpus
}

// Vectorize extracts every instance of doc with the locked dictionaries. In
// sequence mode instances are grouped by their enclosing sequence span.
func (m *Model) Vectorize(doc corpus.Document) ([]Row, error) {
	cfg := m.corpus.Config()
	var rows []Row
	if cfg.Mode == corpus.Sequence {
		for g, seq := range doc.Ordered(cfg.SequenceType, 0, math.MaxInt) {
			insts, vectors, err := m.corpus.VectorizeSequence(doc, seq)
			if err != nil {
				return nil, fmt.Errorf("lf: %w", err)
			}
			for i, inst := range insts {
				rows = append(rows, Row{Instance: inst.Span, Group: g, Vector: vectors[i]})
			}
		}
		return rows, nil
	}
	for _, inst := range doc.Ordered(cfg.InstanceType, 0, math.MaxInt) {
		v, err := m.corpus.Vectorize(doc, inst)
		if err != nil {
			return nil, fmt.Errorf("lf: %w", err)
		}
		rows = append(rows, Row{Instance: inst.Span, Group: decode.NoGroup, Vector: v})
	}
	return rows, nil
}

// Decode assembles BIO-labelled results into entities of the model's class
// type. A nil threshold keeps every entity.
func (m *Model) Decode(results []decode.Result, threshold *float64) ([]decode.Entity, error) {
	cfg := m.corpus.Config()
	if cfg.ClassType == "" {
		return nil, &corpus.ModeConflictError{Mode: cfg.Mode, Reason: "decoding needs a class annotation type"}
	}
	d := decode.New(cfg.ClassType)
	d.Threshold = threshold
	return d.Decode(results), nil
}

// Annotate adds every entity to doc as an annotation of its type carrying a
// confidence feature.
func Annotate(doc *annotation.Document, entities []decode.Entity) []annotation.Annotation {
	out := make([]annotation.Annotation, 0, len(entities))
	for _, e := range entities {
		out = append(out, doc.Add(e.Type, e.Start, e.End, map[string]any{"confidence": e.Confidence}))
	}
	return out
}

func corpusName(dir string) string {
	return filepath.Base(filepath.Clean(dir))
}
