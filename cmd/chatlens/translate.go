package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func translateCmd(a *app) *cobra.Command {
	var (
		to   []string
		from string
	)

	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate text into the configured target languages",
		Long:  `Translates the arguments, or stdin when there are none or the only argument is "-".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 || text == "-" {
				var err error
				if text, err = readInput(cmd.InOrStdin(), "-"); err != nil {
					return err
				}
			}

			targets := to
			if len(targets) == 0 {
				targets = a.cfg.TargetLanguages
			}

			asst, err := a.assistant()
			if err != nil {
				return err
			}
			out, err := asst.Translate(cmd.Context(), text, from, targets)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, t := range out {
				fmt.Fprintf(w, "%s: %s\n", t.Language, t.Text)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&to, "to", nil, "Target languages (default: target_languages from config)")
	cmd.Flags().StringVar(&from, "from", "", "Source language (default: detect)")

	return cmd
}
