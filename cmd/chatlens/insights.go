package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/chatlens/internal/parse"
)

func insightsCmd(a *app) *cobra.Command {
	var (
		sf  sideFlags
		raw bool
	)

	cmd := &cobra.Command{
		Use:   "insights <file|->",
		Short: "Summarize the relationship between the two sides of a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			res := parse.Parse(text)
			assign, err := sf.resolve(a.cfg.Sides, res.Participants)
			if err != nil {
				return err
			}

			asst, err := a.assistant()
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "Asking Gemini...")
			md, err := asst.Insights(cmd.Context(), res, assign)
			if err != nil {
				return fmt.Errorf("insights: %w", err)
			}

			out := cmd.OutOrStdout()
			if raw || !term.IsTerminal(int(os.Stdout.Fd())) {
				fmt.Fprintln(out, md)
				return nil
			}
			rendered, err := renderMarkdown(md)
			if err != nil {
				a.logger.Warn("markdown render failed", "error", err)
				rendered = md + "\n"
			}
			fmt.Fprint(out, rendered)
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the markdown source")

	return cmd
}

func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
