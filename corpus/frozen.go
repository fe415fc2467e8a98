package corpus

import (
	"fmt"

	"github.com/happyhackingspace/lf/alphabet"
	"github.com/happyhackingspace/lf/annotation"
	"github.com/happyhackingspace/lf/extract"
	"github.com/happyhackingspace/lf/scale"
	"github.com/happyhackingspace/lf/sparse"
)

// Frozen is a corpus with locked dictionaries. Vectorizing never adds
// features, targets or values; unseen keys are omitted.
type Frozen struct {
	cfg       Config
	extractor *extract.Extractor
	targets   *alphabet.Alphabet
	stats     *scale.Stats

	instances []Instance
	sequences []SequenceInstance
	docs      int
}

// Restore rebuilds an application-time corpus from persisted dictionaries.
// The dictionaries are locked; stats, if non-nil, becomes the terminal stage.
func Restore(cfg Config, features, targets *alphabet.Alphabet, stats *scale.Stats) (*Frozen, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	if features == nil {
		return nil, fmt.Errorf("corpus: restore: missing feature dictionary")
	}
	if targets == nil && cfg.Mode != Regression {
		return nil, fmt.Errorf("corpus: restore: missing target dictionary for %s mode", cfg.Mode)
	}
	features.Lock()
	if targets != nil {
		targets.Lock()
	}
	cfg.Specs.Lock()
	x := extract.New(cfg.Specs, features)
	if stats != nil {
		x.Append(stats)
	}
	return &Frozen{cfg: cfg, extractor: x, targets: targets, stats: stats}, nil
}

// Config returns the corpus configuration.
func (f *Frozen) Config() Config {
	return f.cfg
}

// Vectorize extracts inst from doc with the locked dictionaries.
func (f *Frozen) Vectorize(doc Document, inst annotation.Annotation) (sparse.Vector, error) {
	res, err := f.extractor.Extract(inst, doc, doc)
	if err != nil {
		return sparse.Vector{}, err
	}
	return res.Vector, nil
}

// VectorizeSequence extracts every instance contained in seq. Elements are
// never dropped at application time so vectors line up with instances.
func (f *Frozen) VectorizeSequence(doc Document, seq annotation.Annotation) ([]annotation.Annotation, []sparse.Vector, error) {
	insts := doc.Contained(seq.Span, f.cfg.InstanceType)
	vectors := make([]sparse.Vector, 0, len(insts))
	for _, inst := range insts {
		v, err := f.Vectorize(doc, inst)
		if err != nil {
			return nil, nil, err
		}
		vectors = append(vectors, v)
	}
	return insts, vectors, nil
}

// Rows returns the stored classification or regression instances.
func (f *Frozen) Rows() []Instance {
	return f.instances
}

// Sequences returns the stored sequence instances.
func (f *Frozen) Sequences() []SequenceInstance {
	return f.sequences
}

// Len returns the number of stored instances or sequences.
func (f *Frozen) Len() int {
	if f.cfg.Mode == Sequence {
		return len(f.sequences)
	}
	return len(f.instances)
}

// Documents returns the number of documents added during training.
func (f *Frozen) Documents() int {
	return f.docs
}

// DictionarySize returns the number of feature dimensions.
func (f *Frozen) DictionarySize() int {
	return f.extractor.Features().Size()
}

// Features returns the locked feature dictionary.
func (f *Frozen) Features() *alphabet.Alphabet {
	return f.extractor.Features()
}

// Targets returns the locked target dictionary, nil for regression.
func (f *Frozen) Targets() *alphabet.Alphabet {
	return f.targets
}

// TargetLabels returns the target labels in index order.
func (f *Frozen) TargetLabels() []string {
	if f.targets == nil {
		return nil
	}
	return f.targets.Keys()
}

// Stats returns the normalization statistics, nil if the corpus was not scaled.
func (f *Frozen) Stats() *scale.Stats {
	return f.stats
}
