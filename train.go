package lf

import (
	"fmt"
	"log/slog"

	"github.com/happyhackingspace/lf/attribute"
	"github.com/happyhackingspace/lf/corpus"
	"github.com/happyhackingspace/lf/internal/docio"
	"github.com/happyhackingspace/lf/internal/modelstore"
)

// TrainConfig holds configuration for building a training corpus.
type TrainConfig struct {
	Mode          corpus.Mode
	InstanceType  string
	TargetFeature string
	ClassType     string
	SequenceType  string
	// Scale fits normalization statistics before freezing.
	Scale bool
	// Algorithm is recorded in the info record for the back-end.
	Algorithm string
	// CorpusName is recorded in the info record; TrainDir defaults it to
	// the directory name.
	CorpusName string
	Version    string
}

// DefaultTrainConfig returns a classification setup over Token instances.
func DefaultTrainConfig() *TrainConfig {
	return &TrainConfig{
		Mode:         corpus.Classification,
		InstanceType: "Token",
		Algorithm:    "none",
		Version:      "dev",
	}
}

func (c *TrainConfig) corpusConfig(specs attribute.Specs) corpus.Config {
	return corpus.Config{
		Mode:          c.Mode,
		InstanceType:  c.InstanceType,
		Specs:         specs,
		TargetFeature: c.TargetFeature,
		ClassType:     c.ClassType,
		SequenceType:  c.SequenceType,
	}
}

// Train builds a corpus from docs, optionally scales it, and freezes it.
func Train(docs []corpus.Document, specs attribute.Specs, config *TrainConfig) (*Model, error) {
	if config == nil {
		config = DefaultTrainConfig()
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("lf: no documents to train on")
	}
	tr, err := corpus.New(config.corpusConfig(specs))
	if err != nil {
		return nil, fmt.Errorf("lf: %w", err)
	}
	for _, doc := range docs {
		if err := tr.AddDocument(doc); err != nil {
			return nil, fmt.Errorf("lf: %w", err)
		}
	}
	if err := tr.Conclude(); err != nil {
		return nil, fmt.Errorf("lf: %w", err)
	}
	if tr.Len() == 0 {
		return nil, fmt.Errorf("lf: no instances extracted from %d documents", len(docs))
	}
	if config.Scale {
		if _, err := tr.Scale(); err != nil {
			return nil, fmt.Errorf("lf: %w", err)
		}
	}
	f := tr.Freeze()
	info := modelstore.NewInfo(f, config.Algorithm, config.CorpusName, config.Version)
	slog.Info("Corpus frozen", "instances", info.Instances, "features", info.Features, "targets", info.TargetCount)
	return &Model{corpus: f, info: info}, nil
}

// TrainDir trains on every markup document in dataDir.
func TrainDir(dataDir string, specs attribute.Specs, config *TrainConfig) (*Model, error) {
	if config == nil {
		config = DefaultTrainConfig()
	}
	read, err := docio.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("lf: %w", err)
	}
	if len(read) == 0 {
		return nil, fmt.Errorf("lf: no documents found in %s", dataDir)
	}
	slog.Debug("Loaded documents", "dir", dataDir, "count", len(read))

	cfg := *config
	if cfg.CorpusName == "" {
		cfg.CorpusName = corpusName(dataDir)
	}
	docs := make([]corpus.Document, len(read))
	for i, d := range read {
		docs[i] = d
	}
	return Train(docs, specs, &cfg)
}
