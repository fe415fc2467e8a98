package lf

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/happyhackingspace/lf/annotation"
	"github.com/happyhackingspace/lf/attribute"
	"github.com/happyhackingspace/lf/corpus"
	"github.com/happyhackingspace/lf/decode"
	"github.com/happyhackingspace/lf/internal/docio"
	"github.com/happyhackingspace/lf/sparse"
)

const specYAML = `
attributes:
  - type: Token
    feature: string
  - kind: list
    type: Token
    feature: string
    from: -1
    to: -1
  - type: Token
    feature: shape
    codeas: number
    missing: special_value
`

var trainingDocs = []string{
	`<sentence><person><token shape="Xx">John</token> <token shape="Xx">Smith</token></person> <token shape="x">met</token> <person><token shape="Xx">Mary</token></person></sentence>`,
	`<sentence><token shape="Xx">Yesterday</token> <person><token shape="Xx">Ann</token></person> <token shape="x">left</token></sentence>`,
}

func writeDocs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for i, body := range trainingDocs {
		name := filepath.Join(dir, string(rune('a'+i))+".xml")
		if err := os.WriteFile(name, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func parseSpecs(t *testing.T) attribute.Specs {
	t.Helper()
	specs, err := attribute.Parse(strings.NewReader(specYAML))
	if err != nil {
		t.Fatal(err)
	}
	return specs
}

func chunkingConfig() *TrainConfig {
	cfg := DefaultTrainConfig()
	cfg.Mode = corpus.Chunking
	cfg.ClassType = "Person"
	return cfg
}

func TestTrainDirSaveLoad(t *testing.T) {
	dataDir := writeDocs(t)
	cfg := chunkingConfig()
	cfg.Scale = true
	m, err := TrainDir(dataDir, parseSpecs(t), cfg)
	if err != nil {
		t.Fatal(err)
	}
	info := m.Info()
	if info.Instances != 7 || info.Documents != 2 || info.Corpus != filepath.Base(dataDir) {
		t.Errorf("info = %+v", info)
	}
	if diff := cmp.Diff([]string{"B", "I", "O"}, info.TargetLabels); diff != "" {
		t.Errorf("target labels (-want +got):\n%s", diff)
	}

	modelDir := filepath.Join(t.TempDir(), "model")
	if err := m.Save(modelDir); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(modelDir)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(info, loaded.Info()); diff != "" {
		t.Errorf("loaded info (-want +got):\n%s", diff)
	}

	doc, err := docio.ReadString("new", `<token shape="Xx">Mary</token> <token shape="x">met</token> <token>Zed</token>`)
	if err != nil {
		t.Fatal(err)
	}
	want, err := m.Vectorize(doc)
	if err != nil {
		t.Fatal(err)
	}
	got, err := loaded.Vectorize(doc)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("vectors differ after reload (-want +got):\n%s", diff)
	}
	if len(got) != 3 || got[0].Group != decode.NoGroup {
		t.Errorf("rows = %+v", got)
	}
	if loaded.Corpus().DictionarySize() != m.Corpus().DictionarySize() {
		t.Error("vectorizing grew the loaded dictionary")
	}
}

func TestTrainErrors(t *testing.T) {
	if _, err := Train(nil, parseSpecs(t), nil); err == nil {
		t.Error("Train without documents succeeded")
	}
	doc, _ := docio.ReadString("d", trainingDocs[0])
	cfg := chunkingConfig()
	cfg.TargetFeature = "shape"
	_, err := Train([]corpus.Document{doc}, parseSpecs(t), cfg)
	if !errors.Is(err, corpus.ErrModeConflict) {
		t.Errorf("err = %v, want ErrModeConflict", err)
	}
}

// bioEngine tags the first two instances as one chunk, or the last
// element of every sequence as a single-token chunk.
type bioEngine struct{}

func (e *bioEngine) Train(*corpus.Frozen) error { return nil }

func (e *bioEngine) Classify(vectors []sparse.Vector) ([]Classification, error) {
	out := make([]Classification, len(vectors))
	for i := range vectors {
		out[i] = Classification{Label: "O", Confidence: 1}
	}
	out[0] = Classification{Label: "B", Confidence: 0.9}
	out[1] = Classification{Label: "I", Confidence: 0.7}
	return out, nil
}

func (e *bioEngine) ClassifySequence(vectors []sparse.Vector) ([]Classification, error) {
	out := make([]Classification, len(vectors))
	for i := range vectors {
		out[i] = Classification{Label: "O", Confidence: 1}
	}
	out[len(out)-1] = Classification{Label: "B", Confidence: 0.6}
	return out, nil
}

func TestClassifyDecodeAnnotate(t *testing.T) {
	m, err := TrainDir(writeDocs(t), parseSpecs(t), chunkingConfig())
	if err != nil {
		t.Fatal(err)
	}
	doc, _ := docio.ReadString("new", `<token>Ada</token> <token>Byron</token> <token>wrote</token>`)
	results, err := m.Classify(doc, &bioEngine{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 || results[0].Group != nil {
		t.Fatalf("results = %+v", results)
	}
	entities, err := m.Decode(results, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(entities) != 1 || entities[0].Span != (annotation.Span{Start: 0, End: 9}) || entities[0].Type != "Person" {
		t.Fatalf("entities = %+v", entities)
	}
	threshold := 0.9
	if none, _ := m.Decode(results, &threshold); len(none) != 0 {
		t.Errorf("threshold 0.9 kept %d entities", len(none))
	}

	added := Annotate(doc, entities)
	if len(added) != 1 || doc.CleanCoveredText(added[0].Span) != "Ada Byron" {
		t.Errorf("annotated %+v", added)
	}
	c, _ := doc.All("Person")[0].Feature("confidence")
	if f, ok := c.(float64); !ok || math.Abs(f-0.8) > 1e-9 {
		t.Errorf("confidence feature = %v", c)
	}
}

func TestClassifySequences(t *testing.T) {
	cfg := chunkingConfig()
	cfg.Mode = corpus.Sequence
	cfg.SequenceType = "Sentence"
	m, err := TrainDir(writeDocs(t), parseSpecs(t), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if m.Info().Task != "sequence" || m.Info().Instances != 2 {
		t.Errorf("info = %+v", m.Info())
	}
	doc, _ := docio.ReadString("new", `<sentence><token>a</token> <token>B</token></sentence> <sentence><token>C</token></sentence>`)
	results, err := m.Classify(doc, &bioEngine{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 || results[2].Group == nil || *results[2].Group != 1 {
		t.Fatalf("results = %+v", results)
	}
	entities, _ := m.Decode(results, nil)
	var spans []annotation.Span
	for _, e := range entities {
		spans = append(spans, e.Span)
	}
	want := []annotation.Span{{Start: 2, End: 3}, {Start: 4, End: 5}}
	if diff := cmp.Diff(want, spans); diff != "" {
		t.Errorf("entity spans (-want +got):\n%s", diff)
	}
}

type plainEngine struct{}

func (plainEngine) Train(*corpus.Frozen) error { return nil }

func (plainEngine) Classify(v []sparse.Vector) ([]Classification, error) {
	return make([]Classification, len(v)), nil
}

func TestClassifySequenceNeedsSequenceEngine(t *testing.T) {
	cfg := chunkingConfig()
	cfg.Mode = corpus.Sequence
	cfg.SequenceType = "Sentence"
	m, err := TrainDir(writeDocs(t), parseSpecs(t), cfg)
	if err != nil {
		t.Fatal(err)
	}
	doc, _ := docio.ReadString("new", `<sentence><token>a</token></sentence>`)
	if _, err := m.Classify(doc, plainEngine{}); err == nil {
		t.Error("plain engine classified sequences")
	}
}

func TestKeptMissingValueSurvivesRowJSON(t *testing.T) {
	specs, err := attribute.Parse(strings.NewReader("attributes:\n  - type: Token\n    feature: len\n    datatype: numeric\n    missing: keep\n"))
	if err != nil {
		t.Fatal(err)
	}
	train, _ := docio.ReadString("train", `<token class="noun" len="3">cat</token> <token class="verb">sat</token>`)
	cfg := DefaultTrainConfig()
	cfg.TargetFeature = "class"
	m, err := Train([]corpus.Document{train}, specs, cfg)
	if err != nil {
		t.Fatal(err)
	}

	doc, _ := docio.ReadString("new", `<token len="4">dog</token> <token>ran</token>`)
	rows, err := m.Vectorize(doc)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(rows)
	if err != nil {
		t.Fatalf("marshal rows: %v", err)
	}
	var back []Row
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal rows %s: %v", data, err)
	}
	if diff := cmp.Diff(rows, back, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("rows after JSON round trip (-want +got):\n%s", diff)
	}
	if v := back[1].Vector.Values; len(v) != 1 || !math.IsNaN(v[0]) {
		t.Errorf("missing len = %v, want [NaN]", v)
	}
}
