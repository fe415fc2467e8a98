package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/lf"
	"github.com/happyhackingspace/lf/annotation"
	"github.com/happyhackingspace/lf/internal/docio"
)

func (c *CLI) newVectorizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vectorize <model> [file-or-url]",
		Short: "Print application-time vectors of a document as JSON lines",
		Args:  cobra.RangeArgs(1, 2),
		Example: `  # Vectorize a local document
  lf vectorize model doc.xml

  # Read the document from stdin
  cat doc.xml | lf vectorize model

  # Fetch the document over HTTP
  lf vectorize model https://example.org/doc.xml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			m, err := lf.Load(args[0])
			if err != nil {
				return err
			}
			slog.Debug("Model loaded", "duration", time.Since(start))

			var doc *annotation.Document
			if len(args) == 2 {
				doc, err = fetchDocument(args[1])
			} else {
				if isStdinTerminal() {
					return cmd.Help()
				}
				doc, err = docio.Read("stdin", os.Stdin)
			}
			if err != nil {
				return err
			}

			rows, err := m.Vectorize(doc)
			if err != nil {
				return err
			}
			slog.Debug("Vectorized", "document", doc.Name, "rows", len(rows))
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range rows {
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func isStdinTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

func fetchDocument(target string) (*annotation.Document, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		slog.Debug("Fetching document", "url", target)
		resp, err := httpClient.Get(target)
		if err != nil {
			return nil, fmt.Errorf("fetch URL: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch URL: HTTP %d", resp.StatusCode)
		}
		return docio.Read(target, io.LimitReader(resp.Body, 64<<20))
	}
	return docio.ReadFile(target)
}
