package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func lookupCmd(a *app) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "lookup <term> [sentence]",
		Short: "Explain a word or phrase, optionally in the sentence it came from",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sentence string
			if len(args) > 1 {
				sentence = args[1]
			}

			asst, err := a.assistant()
			if err != nil {
				return err
			}
			def, err := asst.Lookup(cmd.Context(), args[0], sentence, to)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), def)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Language of the explanation (default: English)")

	return cmd
}
