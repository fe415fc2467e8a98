package corpus

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/happyhackingspace/lf/alphabet"
	"github.com/happyhackingspace/lf/annotation"
	"github.com/happyhackingspace/lf/attribute"
)

// personDoc builds "John Smith met Mary" with two Person annotations.
func personDoc() *annotation.Document {
	doc := annotation.NewDocument("people", "John Smith met Mary")
	doc.Add("Token", 0, 4, map[string]any{"string": "John", "pos": "NNP", "class": "name"})
	doc.Add("Token", 5, 10, map[string]any{"string": "Smith", "pos": "NNP", "class": "name"})
	doc.Add("Token", 11, 14, map[string]any{"string": "met", "pos": "VBD", "class": "verb"})
	doc.Add("Token", 15, 19, map[string]any{"string": "Mary", "class": "name"})
	doc.Add("Person", 0, 10, nil)
	doc.Add("Person", 15, 19, nil)
	doc.Add("Sentence", 0, 19, nil)
	return doc
}

func tokenSpecs(t *testing.T) attribute.Specs {
	t.Helper()
	str, err := attribute.NewSimple("Token", "string", attribute.Nominal, attribute.OneOfK, attribute.Keep)
	if err != nil {
		t.Fatal(err)
	}
	pos, err := attribute.NewList("Token", "pos", attribute.Nominal, attribute.Number, attribute.SpecialValue, -1, -1)
	if err != nil {
		t.Fatal(err)
	}
	return attribute.Specs{str, pos}
}

func TestModeConflicts(t *testing.T) {
	specs := tokenSpecs(t)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"classification with class type", Config{Mode: Classification, InstanceType: "Token", Specs: specs, TargetFeature: "class", ClassType: "Person"}},
		{"classification without target", Config{Mode: Classification, InstanceType: "Token", Specs: specs}},
		{"regression without target", Config{Mode: Regression, InstanceType: "Token", Specs: specs}},
		{"chunking with target", Config{Mode: Chunking, InstanceType: "Token", Specs: specs, TargetFeature: "class", ClassType: "Person"}},
		{"chunking without class type", Config{Mode: Chunking, InstanceType: "Token", Specs: specs}},
		{"sequence without sequence type", Config{Mode: Sequence, InstanceType: "Token", Specs: specs, ClassType: "Person"}},
		{"missing instance type", Config{Mode: Chunking, Specs: specs, ClassType: "Person"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			var mc *ModeConflictError
			if !errors.As(err, &mc) || !errors.Is(err, ErrModeConflict) {
				t.Errorf("err = %v, want *ModeConflictError", err)
			}
		})
	}
}

func TestAddOnWrongShape(t *testing.T) {
	doc := personDoc()
	tokens := doc.All("Token")

	seq, err := New(Config{Mode: Sequence, InstanceType: "Token", Specs: tokenSpecs(t), ClassType: "Person", SequenceType: "Sentence"})
	if err != nil {
		t.Fatal(err)
	}
	if err := seq.Add(doc, tokens[0]); !errors.Is(err, ErrModeConflict) {
		t.Errorf("Add on sequence corpus: err = %v", err)
	}
	empty := annotation.Annotation{Type: "Sentence", Span: annotation.Span{Start: 3, End: 3}}
	if err := seq.AddSequence(doc, empty); !errors.Is(err, ErrModeConflict) {
		t.Errorf("AddSequence with empty span: err = %v", err)
	}

	cls, err := New(Config{Mode: Classification, InstanceType: "Token", Specs: tokenSpecs(t), TargetFeature: "class"})
	if err != nil {
		t.Fatal(err)
	}
	if err := cls.AddSequence(doc, doc.All("Sentence")[0]); !errors.Is(err, ErrModeConflict) {
		t.Errorf("AddSequence on classification corpus: err = %v", err)
	}
}

func TestListOverInstanceTypeAtOffsetZero(t *testing.T) {
	l, err := attribute.NewList("Token", "string", attribute.Nominal, attribute.OneOfK, attribute.Keep, -1, 1)
	if err != nil {
		t.Fatal(err)
	}
	_, err = New(Config{Mode: Classification, InstanceType: "Token", Specs: attribute.Specs{l}, TargetFeature: "class"})
	if !errors.Is(err, attribute.ErrSpecification) {
		t.Errorf("err = %v, want ErrSpecification", err)
	}
}

func TestClassificationCorpus(t *testing.T) {
	c, err := New(Config{Mode: Classification, InstanceType: "Token", Specs: tokenSpecs(t), TargetFeature: "class"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddDocument(personDoc()); err != nil {
		t.Fatal(err)
	}
	if err := c.Conclude(); err != nil {
		t.Fatal(err)
	}
	f := c.Freeze()

	if f.Len() != 4 || f.Documents() != 1 {
		t.Fatalf("Len=%d Documents=%d, want 4 1", f.Len(), f.Documents())
	}
	if diff := cmp.Diff([]string{"name", "verb"}, f.TargetLabels()); diff != "" {
		t.Errorf("target labels (-want +got):\n%s", diff)
	}
	var labels []int
	for _, row := range f.Rows() {
		if row.Vector.MaxIndex() >= f.DictionarySize() {
			t.Errorf("row %s index %d beyond dictionary size %d", row.Name, row.Vector.MaxIndex(), f.DictionarySize())
		}
		labels = append(labels, row.Target.Label)
	}
	if diff := cmp.Diff([]int{0, 0, 1, 0}, labels); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
	if got := f.Rows()[0].Name; got != "people[0,4)" {
		t.Errorf("row name = %q", got)
	}
}

func TestChunkingLabels(t *testing.T) {
	c, err := New(Config{Mode: Chunking, InstanceType: "Token", Specs: tokenSpecs(t), ClassType: "Person"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddDocument(personDoc()); err != nil {
		t.Fatal(err)
	}
	f := c.Freeze()
	var got []string
	for _, row := range f.Rows() {
		label, _ := f.Targets().Key(row.Target.Label)
		got = append(got, label)
	}
	if diff := cmp.Diff([]string{"B", "I", "O", "B"}, got); diff != "" {
		t.Errorf("BIO labels (-want +got):\n%s", diff)
	}
}

func TestRegressionTarget(t *testing.T) {
	doc := annotation.NewDocument("prices", "a b c")
	doc.Add("Token", 0, 1, map[string]any{"string": "a", "price": "1.5"})
	doc.Add("Token", 2, 3, map[string]any{"string": "b", "price": "cheap"})
	doc.Add("Token", 4, 5, map[string]any{"string": "c"})

	str, _ := attribute.NewSimple("Token", "string", attribute.Nominal, attribute.OneOfK, attribute.Keep)
	c, err := New(Config{Mode: Regression, InstanceType: "Token", Specs: attribute.Specs{str}, TargetFeature: "price"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddDocument(doc); err != nil {
		t.Fatal(err)
	}
	f := c.Freeze()
	if f.Len() != 2 {
		t.Fatalf("Len = %d, want 2 (instance without target skipped)", f.Len())
	}
	if f.Rows()[0].Target != (Target{Kind: NumericTarget, Value: 1.5}) {
		t.Errorf("target 0 = %+v", f.Rows()[0].Target)
	}
	if f.Rows()[1].Target.Value != 0 {
		t.Errorf("unparsable target = %v, want 0", f.Rows()[1].Target.Value)
	}
	if f.TargetLabels() != nil {
		t.Errorf("regression corpus has target labels %v", f.TargetLabels())
	}
}

func TestIgnoreInstance(t *testing.T) {
	pos, err := attribute.NewSimple("Token", "pos", attribute.Nominal, attribute.OneOfK, attribute.IgnoreInstance)
	if err != nil {
		t.Fatal(err)
	}
	c, err := New(Config{Mode: Classification, InstanceType: "Token", Specs: attribute.Specs{pos}, TargetFeature: "class"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddDocument(personDoc()); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3 (Mary has no pos)", c.Len())
	}
}

func TestSequenceCorpus(t *testing.T) {
	doc := personDoc()
	pos, err := attribute.NewSimple("Token", "pos", attribute.Nominal, attribute.OneOfK, attribute.IgnoreInstance)
	if err != nil {
		t.Fatal(err)
	}
	c, err := New(Config{Mode: Sequence, InstanceType: "Token", Specs: append(tokenSpecs(t), pos), ClassType: "Person", SequenceType: "Sentence"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddSequence(doc, doc.All("Sentence")[0]); err != nil {
		t.Fatal(err)
	}
	f := c.Freeze()
	seqs := f.Sequences()
	if len(seqs) != 1 {
		t.Fatalf("got %d sequences, want 1", len(seqs))
	}
	if len(seqs[0].Vectors) != 3 {
		t.Errorf("sequence has %d elements, want 3 (Mary dropped)", len(seqs[0].Vectors))
	}
	var labels []string
	for _, id := range seqs[0].Labels {
		l, _ := f.Targets().Key(id)
		labels = append(labels, l)
	}
	if diff := cmp.Diff([]string{"B", "I", "O"}, labels); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}

	insts, vectors, err := f.VectorizeSequence(doc, doc.All("Sentence")[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 4 || len(vectors) != 4 {
		t.Errorf("application time kept %d/%d elements, want 4", len(insts), len(vectors))
	}
}

func TestFreezeLocksDictionaries(t *testing.T) {
	c, err := New(Config{Mode: Classification, InstanceType: "Token", Specs: tokenSpecs(t), TargetFeature: "class"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddDocument(personDoc()); err != nil {
		t.Fatal(err)
	}
	f := c.Freeze()
	size := f.DictionarySize()

	if err := c.AddDocument(personDoc()); !errors.Is(err, alphabet.ErrLocked) {
		t.Errorf("Add after Freeze: err = %v, want ErrLocked", err)
	}
	if _, err := c.Scale(); !errors.Is(err, alphabet.ErrLocked) {
		t.Errorf("Scale after Freeze: err = %v, want ErrLocked", err)
	}

	doc := annotation.NewDocument("new", "Zoe")
	zoe := doc.Add("Token", 0, 3, map[string]any{"string": "Zoe", "pos": "NNP"})
	v, err := f.Vectorize(doc, zoe)
	if err != nil {
		t.Fatal(err)
	}
	if v.Nnz() != 0 {
		t.Errorf("unseen value produced %d features", v.Nnz())
	}
	if f.DictionarySize() != size {
		t.Errorf("dictionary grew from %d to %d", size, f.DictionarySize())
	}
	if c.Freeze() != f {
		t.Error("second Freeze returned a different corpus")
	}
}

func TestCorporaDoNotShareValueDictionaries(t *testing.T) {
	specs := tokenSpecs(t)
	a, _ := New(Config{Mode: Classification, InstanceType: "Token", Specs: specs, TargetFeature: "class"})
	b, _ := New(Config{Mode: Classification, InstanceType: "Token", Specs: specs, TargetFeature: "class"})
	if err := a.AddDocument(personDoc()); err != nil {
		t.Fatal(err)
	}
	posA := a.Config().Specs[1].(*attribute.List).Values
	posB := b.Config().Specs[1].(*attribute.List).Values
	if posA.Size() == 0 || posB.Size() != 0 {
		t.Errorf("value dictionary sizes %d/%d, want >0/0", posA.Size(), posB.Size())
	}
	if specs[1].(*attribute.List).Values.Size() != 0 {
		t.Error("caller's spec list was modified")
	}
}

func TestScale(t *testing.T) {
	doc := annotation.NewDocument("nums", "a b")
	doc.Add("Token", 0, 1, map[string]any{"len": 1.0, "class": "x"})
	doc.Add("Token", 2, 3, map[string]any{"len": 3.0, "class": "y"})
	length, _ := attribute.NewSimple("Token", "len", attribute.Numeric, attribute.CodeAsUnset, attribute.Keep)

	c, err := New(Config{Mode: Classification, InstanceType: "Token", Specs: attribute.Specs{length}, TargetFeature: "class"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddDocument(doc); err != nil {
		t.Fatal(err)
	}
	stats, err := c.Scale()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Scale(); err == nil {
		t.Error("second Scale succeeded")
	}
	f := c.Freeze()
	if f.Stats() != stats {
		t.Error("frozen corpus lost the stats")
	}
	// one dimension: mean 4, variance 10
	want := (1 - 4) / math.Sqrt(10)
	if got := f.Rows()[0].Vector.Values[0]; math.Abs(got-want) > 1e-9 {
		t.Errorf("stored value = %v, want %v", got, want)
	}
	tok := doc.All("Token")[0]
	v, err := f.Vectorize(doc, tok)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(v.Values[0]-want) > 1e-9 {
		t.Errorf("application value = %v, want %v", v.Values[0], want)
	}
}

func TestRestore(t *testing.T) {
	c, err := New(Config{Mode: Chunking, InstanceType: "Token", Specs: tokenSpecs(t), ClassType: "Person"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddDocument(personDoc()); err != nil {
		t.Fatal(err)
	}
	f := c.Freeze()

	r, err := Restore(f.Config(), f.Features().Clone(), f.Targets().Clone(), nil)
	if err != nil {
		t.Fatal(err)
	}
	doc := personDoc()
	tok := doc.All("Token")[1]
	want, _ := f.Vectorize(doc, tok)
	got, err := r.Vectorize(doc, tok)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("restored vector (-want +got):\n%s", diff)
	}
	if !r.Features().Locked() {
		t.Error("restored feature dictionary is not locked")
	}
	if _, err := Restore(f.Config(), f.Features(), nil, nil); err == nil {
		t.Error("Restore without target dictionary succeeded")
	}
}
