package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/lf/decode"
)

func (c *CLI) newDecodeCommand() *cobra.Command {
	var entityType string
	var threshold float64

	cmd := &cobra.Command{
		Use:   "decode [results.jsonl]",
		Short: "Assemble BIO token classifications into entities",
		Args:  cobra.MaximumNArgs(1),
		Example: `  # Decode Person entities from a back-end's results
  lf decode --type Person results.jsonl

  # Drop entities with an average confidence below 0.5
  cat results.jsonl | lf decode --type Person --threshold 0.5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				in = f
			}
			results, err := readResults(in)
			if err != nil {
				return err
			}

			d := decode.New(entityType)
			if cmd.Flags().Changed("threshold") {
				d = d.WithThreshold(threshold)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, e := range d.Decode(results) {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "Entity", "Type of the decoded entities")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum average confidence of an entity")
	return cmd
}

func readResults(r io.Reader) ([]decode.Result, error) {
	var results []decode.Result
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var res decode.Result
		if err := json.Unmarshal(sc.Bytes(), &res); err != nil {
			return nil, fmt.Errorf("results line %d: %w", line, err)
		}
		results = append(results, res)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return results, nil
}
