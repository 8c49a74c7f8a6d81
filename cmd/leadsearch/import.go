package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dombatch "github.com/kailas-cloud/leadsearch/internal/domain/batch"
	chiTransport "github.com/kailas-cloud/leadsearch/internal/transport/chi"
	batchuc "github.com/kailas-cloud/leadsearch/internal/usecase/batch"
)

func newImportCmd(env *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Load a JSON array of contacts into the configured contact store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(*env)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			items, err := readImportItems(f)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openRedis(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			repo, _, closeContacts, err := openContactStore(ctx, cfg, store, logger)
			if err != nil {
				return err
			}
			defer closeContacts()

			svc := batchuc.New(repo, repo, nil).WithMaxBatchSize(len(items))
			return runImport(ctx, svc, items, cmd.OutOrStdout(), logger)
		},
	}
}

// importer is the part of the batch service the command uses.
type importer interface {
	Import(ctx context.Context, items []batchuc.Item) []dombatch.Result
}

func readImportItems(r io.Reader) ([]batchuc.Item, error) {
	var raw []chiTransport.ImportItem
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", err)
	}
	items := make([]batchuc.Item, len(raw))
	for i := range raw {
		items[i] = raw[i].ToBatchItem()
	}
	return items, nil
}

func runImport(ctx context.Context, svc importer, items []batchuc.Item, w io.Writer, logger *zap.Logger) error {
	results := svc.Import(ctx, items)

	for _, r := range results {
		if r.Status() != dombatch.StatusError {
			continue
		}
		_, _ = color.New(color.FgRed).Fprintf(w, "item %d", r.Index())
		if r.ID() != "" {
			_, _ = fmt.Fprintf(w, " (%s)", r.ID())
		}
		_, _ = fmt.Fprintf(w, ": %v\n", r.Err())
	}

	sum := dombatch.Summarize(results)
	logger.Info("Import finished", zap.Int("ok", sum.OK), zap.Int("failed", sum.Failed))
	_, _ = color.New(color.FgGreen, color.Bold).Fprintf(w, "imported %d", sum.OK)
	_, _ = fmt.Fprintf(w, ", failed %d\n", sum.Failed)

	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d contacts failed to import", sum.Failed, len(results))
	}
	return nil
}
