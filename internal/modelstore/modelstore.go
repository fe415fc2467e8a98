// Package modelstore persists the application-time state of a corpus: one
// directory holding the attribute list with its dictionaries, the optional
// normalization statistics and a human-readable info record.
package modelstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/happyhackingspace/lf/alphabet"
	"github.com/happyhackingspace/lf/attribute"
	"github.com/happyhackingspace/lf/corpus"
	"github.com/happyhackingspace/lf/scale"
)

// File names inside a model directory.
const (
	SpecFile   = "spec.json"
	ScalerFile = "scaler.json"
	InfoFile   = "info.yaml"
)

// Store wraps one model directory.
type Store struct {
	Dir string
}

// NewStore creates a Store for the given model directory.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Info is the metadata record of a model.
type Info struct {
	Algorithm     string    `yaml:"algorithm"`
	Task          string    `yaml:"task"`
	Mode          string    `yaml:"mode"`
	Instances     int       `yaml:"instances"`
	Features      int       `yaml:"features"`
	TargetCount   int       `yaml:"targetCount"`
	TargetLabels  []string  `yaml:"targetLabels,omitempty"`
	TargetFeature string    `yaml:"targetFeature,omitempty"`
	ClassType     string    `yaml:"classType,omitempty"`
	Corpus        string    `yaml:"corpus,omitempty"`
	Documents     int       `yaml:"documents"`
	Scaled        bool      `yaml:"scaled"`
	Created       time.Time `yaml:"created"`
	Version       string    `yaml:"version,omitempty"`
}

// NewInfo describes a frozen corpus.
func NewInfo(f *corpus.Frozen, algorithm, corpusName, version string) Info {
	cfg := f.Config()
	labels := f.TargetLabels()
	return Info{
		Algorithm:     algorithm,
		Task:          cfg.Mode.Task(),
		Mode:          string(cfg.Mode),
		Instances:     f.Len(),
		Features:      f.DictionarySize(),
		TargetCount:   len(labels),
		TargetLabels:  labels,
		TargetFeature: cfg.TargetFeature,
		ClassType:     cfg.ClassType,
		Corpus:        corpusName,
		Documents:     f.Documents(),
		Scaled:        f.Stats() != nil,
		Created:       time.Now().UTC().Truncate(time.Second),
		Version:       version,
	}
}

// specJSON is the structure of spec.json.
type specJSON struct {
	Mode          corpus.Mode        `json:"mode"`
	InstanceType  string             `json:"instanceType"`
	TargetFeature string             `json:"targetFeature,omitempty"`
	ClassType     string             `json:"classType,omitempty"`
	SequenceType  string             `json:"sequenceType,omitempty"`
	Attributes    attribute.Specs    `json:"attributes"`
	Features      *alphabet.Alphabet `json:"features"`
	Targets       *alphabet.Alphabet `json:"targets,omitempty"`
}

// Save writes the three model files. scaler.json is only written for a
// scaled corpus, and a stale one is removed otherwise.
func (s *Store) Save(f *corpus.Frozen, info Info) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("modelstore: %w", err)
	}
	cfg := f.Config()
	spec := specJSON{
		Mode:          cfg.Mode,
		InstanceType:  cfg.InstanceType,
		TargetFeature: cfg.TargetFeature,
		ClassType:     cfg.ClassType,
		SequenceType:  cfg.SequenceType,
		Attributes:    cfg.Specs,
		Features:      f.Features(),
		Targets:       f.Targets(),
	}
	if err := writeJSON(filepath.Join(s.Dir, SpecFile), spec); err != nil {
		return err
	}

	scalerPath := filepath.Join(s.Dir, ScalerFile)
	if stats := f.Stats(); stats != nil {
		if err := writeJSON(scalerPath, stats); err != nil {
			return err
		}
	} else if err := os.Remove(scalerPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("modelstore: %w", err)
	}

	data, err := yaml.Marshal(info)
	if err != nil {
		return fmt.Errorf("modelstore: encode info: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, InfoFile), data, 0644); err != nil {
		return fmt.Errorf("modelstore: %w", err)
	}
	slog.Debug("Model saved", "dir", s.Dir, "features", info.Features, "scaled", info.Scaled)
	return nil
}

// Load restores the application-time corpus from spec.json and, when
// present, scaler.json.
func (s *Store) Load() (*corpus.Frozen, error) {
	var spec specJSON
	if err := readJSON(filepath.Join(s.Dir, SpecFile), &spec); err != nil {
		return nil, err
	}
	var stats *scale.Stats
	scalerPath := filepath.Join(s.Dir, ScalerFile)
	if _, err := os.Stat(scalerPath); err == nil {
		stats = &scale.Stats{}
		if err := readJSON(scalerPath, stats); err != nil {
			return nil, err
		}
	}
	cfg := corpus.Config{
		Mode:          spec.Mode,
		InstanceType:  spec.InstanceType,
		Specs:         spec.Attributes,
		TargetFeature: spec.TargetFeature,
		ClassType:     spec.ClassType,
		SequenceType:  spec.SequenceType,
	}
	f, err := corpus.Restore(cfg, spec.Features, spec.Targets, stats)
	if err != nil {
		return nil, fmt.Errorf("modelstore: %s: %w", s.Dir, err)
	}
	return f, nil
}

// GetInfo reads the info record.
func (s *Store) GetInfo() (*Info, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, InfoFile))
	if err != nil {
		return nil, fmt.Errorf("modelstore: %w", err)
	}
	var info Info
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("modelstore: decode info: %w", err)
	}
	return &info, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("modelstore: encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("modelstore: %w", err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("modelstore: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("modelstore: decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
