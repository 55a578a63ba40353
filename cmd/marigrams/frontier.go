package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/marigram-tracker/internal/ledger"
)

func newFrontierCmd(g *globalOptions) *cobra.Command {
	var logPath string
	cmd := &cobra.Command{
		Use:   "frontier",
		Short: "Replay a progress log and report what a resumed run would skip",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-path") {
				cfg.Output.LogPath = logPath
			}
			logger := setupLogger(cfg)
			ctx := cmd.Context()

			l, err := ledger.OpenReader(ctx, cfg.Output.LogPath, logger)
			if err != nil {
				return err
			}
			defer l.Close()

			if p, ok := l.(interface{ Ping(context.Context) error }); ok {
				if err := p.Ping(ctx); err != nil {
					return fmt.Errorf("progress log health: %w", err)
				}
			}
			entries, err := l.ReadAll(ctx)
			if err != nil {
				return err
			}
			f := ledger.Replay(entries)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "log:        %s\n", cfg.Output.LogPath)
			fmt.Fprintf(out, "entries:    %d\n", len(entries))
			fmt.Fprintf(out, "completed:  %d\n", f.Len())
			fmt.Fprintf(out, "to retry:   %d\n", f.Failed())
			return nil
		},
	}
	cmd.Flags().StringVar(&logPath, "log-path", "", "Progress log: .jsonl file, .db/.sqlite file or postgres:// DSN")
	return cmd
}
