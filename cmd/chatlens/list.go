package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatlens/internal/index"
	"github.com/Zuo-Peng/chatlens/internal/tui"
)

func listCmd(a *app) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Browse all indexed chats, newest first",
		Long:  `Opens the browser on every indexed chat sorted by export time (newest first). Type to filter by summary, path or participant.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ff.options()
			if err != nil {
				return err
			}

			db, err := index.OpenDB(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if _, err := index.NewIndexer(db, a.logger, nil).Run(a.cfg.ExportsRoot); err != nil {
				a.logger.Warn("auto index failed", "error", err)
			}

			return tui.RunList(db, opts, a.cfg.Sides, os.Stdout)
		},
	}

	ff.register(cmd, 0)

	return cmd
}
