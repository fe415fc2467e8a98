package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/lf"
	"github.com/happyhackingspace/lf/attribute"
	"github.com/happyhackingspace/lf/corpus"
)

func (c *CLI) newTrainCommand() *cobra.Command {
	var specPath, dataFolder, modelDir, rowsPath, mode string
	cfg := lf.DefaultTrainConfig()

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Build and freeze a corpus from annotated documents",
		Args:  cobra.NoArgs,
		Example: `  # Classify tokens by their "class" feature
  lf train --spec attrs.yaml --docs data --model model --target class

  # BIO-encode Person annotations, one sequence per sentence
  lf train --spec attrs.yaml --docs data --model model --mode sequence --class-type Person --sequence Sentence

  # Scale features and dump the training rows for an external learner
  lf train --spec attrs.yaml --docs data --model model --class-type Person --mode chunking --scale --rows rows.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := corpus.ParseMode(mode)
			if err != nil {
				return err
			}
			cfg.Mode = m
			cfg.Version = c.version

			specs, err := attribute.ParseFile(specPath)
			if err != nil {
				return err
			}
			slog.Info("Training corpus", "spec", specPath, "docs", dataFolder, "mode", cfg.Mode, "output", modelDir)
			start := time.Now()
			model, err := lf.TrainDir(dataFolder, specs, cfg)
			if err != nil {
				return err
			}
			slog.Debug("Training completed", "duration", time.Since(start))

			if rowsPath != "" {
				if err := writeRows(rowsPath, model.Corpus()); err != nil {
					return err
				}
				slog.Info("Rows written", "path", rowsPath)
			}
			if err := model.Save(modelDir); err != nil {
				return err
			}
			slog.Info("Model saved", "path", modelDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&specPath, "spec", "attributes.yaml", "Path to the attribute specification")
	cmd.Flags().StringVar(&dataFolder, "docs", "data", "Folder with annotated documents")
	cmd.Flags().StringVar(&modelDir, "model", "model", "Output model directory")
	cmd.Flags().StringVar(&mode, "mode", string(cfg.Mode), "Corpus mode: classification, regression, chunking or sequence")
	cmd.Flags().StringVar(&cfg.InstanceType, "instance", cfg.InstanceType, "Instance annotation type")
	cmd.Flags().StringVar(&cfg.TargetFeature, "target", "", "Instance feature holding the target (classification, regression)")
	cmd.Flags().StringVar(&cfg.ClassType, "class-type", "", "Annotation type to BIO-encode (chunking, sequence)")
	cmd.Flags().StringVar(&cfg.SequenceType, "sequence", "", "Annotation type bounding one sequence (sequence)")
	cmd.Flags().BoolVar(&cfg.Scale, "scale", false, "Normalize features before freezing")
	cmd.Flags().StringVar(&cfg.Algorithm, "algorithm", cfg.Algorithm, "Back-end algorithm recorded in info.yaml")
	cmd.Flags().StringVar(&rowsPath, "rows", "", "Write training rows as JSON lines")
	return cmd
}

func writeRows(path string, f *corpus.Frozen) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create rows file: %w", err)
	}
	enc := json.NewEncoder(out)
	if f.Config().Mode == corpus.Sequence {
		for _, s := range f.Sequences() {
			if err = enc.Encode(s); err != nil {
				break
			}
		}
	} else {
		for _, r := range f.Rows() {
			if err = enc.Encode(r); err != nil {
				break
			}
		}
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}
