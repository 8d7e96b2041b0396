package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatlens/internal/index"
)

func indexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Scan the exports folder and index chat logs for search",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := index.OpenDB(a.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			fmt.Fprintf(os.Stderr, "Scanning %s...\n", a.cfg.ExportsRoot)

			stats, err := index.NewIndexer(db, a.logger, os.Stderr).Run(a.cfg.ExportsRoot)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Done. %s\n", stats)
			return nil
		},
	}
}
