package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatlens/internal/index"
	"github.com/Zuo-Peng/chatlens/internal/render"
)

func previewCmd(a *app) *cobra.Command {
	var (
		hitID   string
		context int
		query   string
		width   int
		plain   bool
	)

	cmd := &cobra.Command{
		Use:   "preview <chatKey>",
		Short: "Preview an indexed chat with context around a hit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := index.OpenDB(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			out, _, err := render.RenderConversation(db, args[0], render.Options{
				Sides:   a.cfg.Sides,
				HitID:   hitID,
				Context: context,
				Query:   query,
				Width:   width,
				Plain:   plain,
			})
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&hitID, "hit", "", "Message ID to highlight")
	cmd.Flags().IntVar(&context, "context", 10, "Messages before/after hit to show (-1 = all)")
	cmd.Flags().StringVar(&query, "query", "", "Search query for keyword highlighting")
	cmd.Flags().IntVar(&width, "width", 0, "Wrap width (0 = no wrap)")
	cmd.Flags().BoolVar(&plain, "plain", false, "No colors")

	return cmd
}
