package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatlens/internal/parse"
)

func parseCmd(a *app) *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "parse <file|->",
		Short: "Parse a chat export and print messages and participants as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			res := parse.Parse(raw)
			a.logger.Info("parsed", "format", res.Format, "messages", len(res.Messages), "participants", len(res.Participants))

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(res)
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "Single-line JSON output")

	return cmd
}
