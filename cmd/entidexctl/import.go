package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	entidex "github.com/kailas-cloud/entidex/pkg/sdk"
)

const maxLineBytes = 16 << 20

func newImportCmd(root *rootOptions) *cobra.Command {
	var batchSize int
	cmd := &cobra.Command{
		Use:   "import <file.jsonl>",
		Short: "Bulk create entities from a JSON Lines file",
		Long: `Import reads one entity per line and creates them in batches. Blank lines
are skipped. Every failed item is reported; the command fails when any
entity was not created.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if batchSize <= 0 {
				return fmt.Errorf("--batch must be positive")
			}
			client, kind, logger, err := root.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer client.Close()

			f, err := os.Open(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer func() { _ = f.Close() }()

			stats, err := importLines(cmd.Context(), client.Entities(kind), f, batchSize, func(line int, r entidex.ItemResult) {
				logger.Warn("item not imported",
					zap.Int("line", line),
					zap.String("id", r.ID),
					zap.String("entity", string(r.EntityStatus)),
					zap.String("index", string(r.IndexStatus)),
					zap.NamedError("entity_error", r.EntityErr),
					zap.NamedError("index_error", r.IndexErr),
				)
			})
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d read, %d created, %d index failures\n",
				kind, stats.read, stats.created, stats.indexFailed)
			if err != nil {
				return err
			}
			if stats.created < stats.read {
				return fmt.Errorf("%d of %d entities not created", stats.read-stats.created, stats.read)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&batchSize, "batch", "b", 500, "entities per bulk request")
	return cmd
}

type importStats struct {
	read        int
	created     int
	indexFailed int
}

// importLines bulk creates the JSON Lines of r. report receives every item
// whose entity or index write did not succeed, with its 1-based line.
func importLines(
	ctx context.Context,
	svc *entidex.EntityService,
	r io.Reader,
	batchSize int,
	report func(line int, res entidex.ItemResult),
) (importStats, error) {
	var stats importStats
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	batch := make([]json.RawMessage, 0, batchSize)
	lines := make([]int, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		res, err := svc.BulkCreate(ctx, batch)
		stats.created += res.Created
		for i, item := range res.Items {
			if item.IndexStatus != entidex.StatusOK && item.EntityStatus == entidex.StatusOK {
				stats.indexFailed++
			}
			if item.EntityStatus != entidex.StatusOK || item.IndexStatus != entidex.StatusOK {
				report(lines[i], item)
			}
		}
		batch = batch[:0]
		lines = lines[:0]
		return err
	}

	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		if raw[0] != '{' || !json.Valid(raw) {
			return stats, fmt.Errorf("line %d: not a JSON object", line)
		}
		stats.read++
		batch = append(batch, json.RawMessage(bytes.Clone(raw)))
		lines = append(lines, line)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return stats, fmt.Errorf("line %d: %w", line, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read input: %w", err)
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}
