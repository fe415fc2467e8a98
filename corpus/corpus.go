// Package corpus accumulates extracted instances into a training corpus.
//
// A Training corpus grows its dictionaries while documents are added. Freeze
// locks them and returns the Frozen corpus used at application time; there is
// no way back.
package corpus

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/happyhackingspace/lf/alphabet"
	"github.com/happyhackingspace/lf/annotation"
	"github.com/happyhackingspace/lf/attribute"
	"github.com/happyhackingspace/lf/decode"
	"github.com/happyhackingspace/lf/extract"
	"github.com/happyhackingspace/lf/scale"
	"github.com/happyhackingspace/lf/sparse"
)

// Mode selects the instance shape of a corpus.
type Mode string

const (
	// Classification pairs each instance with a nominal target feature.
	Classification Mode = "classification"
	// Regression pairs each instance with a numeric target feature.
	Regression Mode = "regression"
	// Chunking labels each instance Begin/Inside/Outside against class annotations.
	Chunking Mode = "chunking"
	// Sequence bundles the labelled instances of a sequence span.
	Sequence Mode = "sequence"
)

// ParseMode converts a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Classification, Regression, Chunking, Sequence:
		return m, nil
	}
	return "", fmt.Errorf("corpus: unknown mode %q", s)
}

// Task returns the back-end task kind of the mode.
func (m Mode) Task() string {
	switch m {
	case Regression:
		return "regression"
	case Sequence:
		return "sequence"
	}
	return "classification"
}

// Document is what the corpus reads instances from.
type Document interface {
	annotation.Set
	annotation.TextSource
}

type named interface {
	DocName() string
}

// Config describes one learning task.
type Config struct {
	Mode         Mode
	InstanceType string
	Specs        attribute.Specs

	// TargetFeature is the instance feature holding the target of
	// classification and regression corpora.
	TargetFeature string

	// ClassType is the annotation type BIO-encoded by chunking and sequence
	// corpora; SequenceType bounds one sequence.
	ClassType    string
	SequenceType string
}

func (c Config) check() error {
	conflict := func(reason string) error {
		return &ModeConflictError{Mode: c.Mode, Reason: reason}
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.InstanceType == "" {
		return conflict("missing instance type")
	}
	switch c.Mode {
	case Classification, Regression:
		if c.ClassType != "" {
			return conflict("class annotations given for a target-feature task")
		}
		if c.TargetFeature == "" {
			return conflict("missing target feature")
		}
	case Chunking, Sequence:
		if c.TargetFeature != "" {
			return conflict("target feature given for a BIO task")
		}
		if c.ClassType == "" {
			return conflict("missing class annotation type")
		}
		if c.Mode == Sequence && c.SequenceType == "" {
			return conflict("missing sequence annotation type")
		}
	}
	if len(c.Specs) == 0 {
		return &attribute.SpecificationError{Reason: "no attributes declared"}
	}
	for i, s := range c.Specs {
		l, ok := s.(*attribute.List)
		if ok && l.AnnType == c.InstanceType && l.Covers(0) {
			return &attribute.SpecificationError{
				Attribute: l.Name,
				Index:     i,
				Reason:    "a list over the instance type must not include offset 0",
			}
		}
	}
	return nil
}

// TargetKind tells which Target field is meaningful.
type TargetKind int

const (
	NoTarget TargetKind = iota
	NominalTarget
	NumericTarget
)

// Target is the label or value of one instance.
type Target struct {
	Kind  TargetKind `json:"kind"`
	Label int        `json:"label"`
	Value float64    `json:"value"`
}

// Instance is one feature vector with its target.
type Instance struct {
	Vector sparse.Vector `json:"vector"`
	Target Target        `json:"target"`
	Name   string        `json:"name,omitempty"`
}

// SequenceInstance holds the vectors and label indices of one sequence,
// in document order.
type SequenceInstance struct {
	Vectors []sparse.Vector `json:"vectors"`
	Labels  []int           `json:"labels"`
	Name    string          `json:"name,omitempty"`
}

// Training is a corpus whose dictionaries still grow.
type Training struct {
	cfg       Config
	extractor *extract.Extractor
	targets   *alphabet.Alphabet
	labels    decode.Labels
	stats     *scale.Stats

	instances []Instance
	sequences []SequenceInstance
	docs      int
	frozen    *Frozen
}

// New creates an empty training corpus. The attribute list is deep-copied so
// the corpus owns its value dictionaries.
func New(cfg Config) (*Training, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	cfg.Specs = cfg.Specs.Clone()
	t := &Training{
		cfg:       cfg,
		extractor: extract.New(cfg.Specs, alphabet.New()),
		labels:    decode.DefaultLabels(),
	}
	if cfg.Mode != Regression {
		t.targets = alphabet.New()
	}
	return t, nil
}

// Config returns the corpus configuration.
func (t *Training) Config() Config {
	return t.cfg
}

// Len returns the number of stored instances or sequences.
func (t *Training) Len() int {
	if t.cfg.Mode == Sequence {
		return len(t.sequences)
	}
	return len(t.instances)
}

// Add extracts inst from doc and stores it with its target. Instances
// without target value or dropped by ignore_instance are skipped.
func (t *Training) Add(doc Document, inst annotation.Annotation) error {
	if t.frozen != nil {
		return alphabet.ErrLocked
	}
	if t.cfg.Mode == Sequence {
		return &ModeConflictError{Mode: t.cfg.Mode, Reason: "single instances cannot be added to a sequence corpus"}
	}
	res, err := t.extractor.Extract(inst, doc, doc)
	if err != nil {
		return err
	}
	name := instanceName(doc, inst)
	if res.Ignore {
		slog.Info("Dropping instance with missing value", "instance", name)
		return nil
	}
	target, ok := t.target(doc, inst)
	if !ok {
		slog.Info("Skipping instance without target", "instance", name, "feature", t.cfg.TargetFeature)
		return nil
	}
	t.instances = append(t.instances, Instance{Vector: res.Vector, Target: target, Name: name})
	return nil
}

// AddSequence extracts every instance contained in seq and stores them as
// one sequence. Nothing is stored if no element survives.
func (t *Training) AddSequence(doc Document, seq annotation.Annotation) error {
	if t.frozen != nil {
		return alphabet.ErrLocked
	}
	if t.cfg.Mode != Sequence {
		return &ModeConflictError{Mode: t.cfg.Mode, Reason: "sequences can only be added to a sequence corpus"}
	}
	if seq.Len() <= 0 {
		return &ModeConflictError{Mode: t.cfg.Mode, Reason: fmt.Sprintf("empty sequence span %v", seq.Span)}
	}
	name := instanceName(doc, seq)
	var si SequenceInstance
	for _, inst := range doc.Contained(seq.Span, t.cfg.InstanceType) {
		res, err := t.extractor.Extract(inst, doc, doc)
		if err != nil {
			return err
		}
		if res.Ignore {
			slog.Info("Dropping sequence element with missing value", "sequence", name, "element", inst.Span.String())
			continue
		}
		label, _ := t.targets.Lookup(t.bio(doc, inst))
		si.Vectors = append(si.Vectors, res.Vector)
		si.Labels = append(si.Labels, label)
	}
	if len(si.Vectors) == 0 {
		slog.Info("Skipping empty sequence", "sequence", name)
		return nil
	}
	si.Name = name
	t.sequences = append(t.sequences, si)
	return nil
}

// AddDocument adds every instance of doc, or every sequence in sequence
// mode, in offset order.
func (t *Training) AddDocument(doc Document) error {
	var err error
	if t.cfg.Mode == Sequence {
		for _, seq := range doc.Ordered(t.cfg.SequenceType, 0, math.MaxInt) {
			if err = t.AddSequence(doc, seq); err != nil {
				break
			}
		}
	} else {
		for _, inst := range doc.Ordered(t.cfg.InstanceType, 0, math.MaxInt) {
			if err = t.Add(doc, inst); err != nil {
				break
			}
		}
	}
	if err != nil {
		return fmt.Errorf("corpus: document %s: %w", docName(doc), err)
	}
	t.docs++
	return nil
}

func (t *Training) target(doc Document, inst annotation.Annotation) (Target, bool) {
	switch t.cfg.Mode {
	case Chunking:
		id, _ := t.targets.Lookup(t.bio(doc, inst))
		return Target{Kind: NominalTarget, Label: id}, true
	case Regression:
		raw, ok := inst.Feature(t.cfg.TargetFeature)
		if !ok {
			return Target{}, false
		}
		return Target{Kind: NumericTarget, Value: numericTarget(raw)}, true
	}
	raw, ok := inst.Feature(t.cfg.TargetFeature)
	if !ok {
		return Target{}, false
	}
	label := fmt.Sprint(raw)
	if label == "" {
		return Target{}, false
	}
	id, _ := t.targets.Lookup(label)
	return Target{Kind: NominalTarget, Label: id}, true
}

// bio labels inst against the class annotations covering it. The first
// covering class annotation decides.
func (t *Training) bio(set annotation.Set, inst annotation.Annotation) string {
	classes := set.Covering(t.cfg.ClassType, inst.Span)
	if len(classes) == 0 {
		return t.labels.Outside
	}
	if inst.Start == classes[0].Start {
		return t.labels.Begin
	}
	return t.labels.Inside
}

func numericTarget(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return f
		}
	}
	slog.Warn("Unparsable numeric target, using 0", "value", raw)
	return 0.0
}

func docName(doc Document) string {
	if n, ok := doc.(named); ok && n.DocName() != "" {
		return n.DocName()
	}
	return "<unnamed>"
}

func instanceName(doc Document, a annotation.Annotation) string {
	return docName(doc) + a.Span.String()
}

// Conclude ends an accumulation pass. It locks nothing and reports an error
// if a stored vector refers beyond the feature dictionary.
func (t *Training) Conclude() error {
	size := t.extractor.Features().Size()
	check := func(v sparse.Vector, name string) error {
		if v.MaxIndex() >= size {
			return fmt.Errorf("corpus: instance %s: index %d beyond dictionary size %d", name, v.MaxIndex(), size)
		}
		return nil
	}
	for _, inst := range t.instances {
		if err := check(inst.Vector, inst.Name); err != nil {
			return err
		}
	}
	for _, seq := range t.sequences {
		for _, v := range seq.Vectors {
			if err := check(v, seq.Name); err != nil {
				return err
			}
		}
	}
	slog.Info("Corpus concluded", "mode", t.cfg.Mode, "instances", t.Len(), "features", size, "documents", t.docs)
	return nil
}

// Scale fits normalization statistics over the stored vectors, rewrites
// them, and appends the statistics as the terminal extractor stage.
func (t *Training) Scale() (*scale.Stats, error) {
	if t.frozen != nil {
		return nil, alphabet.ErrLocked
	}
	if t.stats != nil {
		return nil, fmt.Errorf("corpus: already scaled")
	}
	var vectors []sparse.Vector
	for _, inst := range t.instances {
		vectors = append(vectors, inst.Vector)
	}
	for _, seq := range t.sequences {
		vectors = append(vectors, seq.Vectors...)
	}
	stats := scale.Fit(vectors, t.extractor.Features().Size())
	for i := range t.instances {
		t.instances[i].Vector = stats.Apply(t.instances[i].Vector)
	}
	for i := range t.sequences {
		for j := range t.sequences[i].Vectors {
			t.sequences[i].Vectors[j] = stats.Apply(t.sequences[i].Vectors[j])
		}
	}
	t.extractor.Append(stats)
	t.stats = stats
	slog.Debug("Fitted normalization", "features", stats.Size())
	return stats, nil
}

// Freeze locks the feature, target and value dictionaries and returns the
// application-time corpus. Later calls return the same Frozen corpus.
func (t *Training) Freeze() *Frozen {
	if t.frozen != nil {
		return t.frozen
	}
	t.extractor.Features().Lock()
	if t.targets != nil {
		t.targets.Lock()
	}
	t.cfg.Specs.Lock()
	t.frozen = &Frozen{
		cfg:       t.cfg,
		extractor: t.extractor,
		targets:   t.targets,
		stats:     t.stats,
		instances: t.instances,
		sequences: t.sequences,
		docs:      t.docs,
	}
	return t.frozen
}
