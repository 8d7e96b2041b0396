package main

import (
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatlens/internal/index"
	"github.com/Zuo-Peng/chatlens/internal/open"
)

func openCmd(a *app) *cobra.Command {
	var hitID string

	cmd := &cobra.Command{
		Use:   "open <chatKey>",
		Short: "Open the original export in $EDITOR at the hit message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := index.OpenDB(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			return open.OpenChat(db, args[0], hitID)
		},
	}

	cmd.Flags().StringVar(&hitID, "hit", "", "Message ID to jump to")

	return cmd
}
