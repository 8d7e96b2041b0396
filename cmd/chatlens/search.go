package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/chatlens/internal/index"
	"github.com/Zuo-Peng/chatlens/internal/parse"
	"github.com/Zuo-Peng/chatlens/internal/search"
	"github.com/Zuo-Peng/chatlens/internal/tui"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorBlue    = "\033[1;34m"
	sColorGreen   = "\033[1;32m"
	sColorDim     = "\033[2m"
)

func colorizeFormat(f parse.Format) string {
	switch f {
	case parse.FormatText:
		return sColorBlue + string(f) + sColorReset
	case parse.FormatJSON:
		return sColorGreen + string(f) + sColorReset
	default:
		return string(f)
	}
}

func colorizeSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", sColorBoldRed)
	snippet = strings.ReplaceAll(snippet, "<<<", sColorReset)
	return snippet
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func searchCmd(a *app) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across indexed chat exports",
		Long: `Search indexed messages. On a terminal this opens the interactive browser;
when piped, output is TSV for fzf:
  chatKey, messageId, date, format, sender, snippet

Example:
  chatlens search "$*" | fzf --ansi --delimiter='\t' --with-nth=3.. \
    --preview 'chatlens preview {1} --hit {2} --context 5 --query {q}' \
    --bind 'enter:execute(chatlens open {1} --hit {2})'`,
		Args: cobra.ExactArgs(1),
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

			// Auto-update index before searching
			if _, err := index.NewIndexer(db, a.logger, nil).Run(a.cfg.ExportsRoot); err != nil {
				a.logger.Warn("auto index failed", "error", err)
			}

			if term.IsTerminal(int(os.Stdout.Fd())) {
				return tui.Run(db, args[0], opts, a.cfg.Sides, os.Stdout)
			}

			opts.Query = args[0]
			results, err := search.Search(db, opts)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Fprintln(os.Stderr, "No results found.")
				return nil
			}

			out := cmd.OutOrStdout()
			for _, r := range results {
				date := r.Date
				if date == "" {
					date = "-"
				}
				// first two fields stay plain for fzf {1} {2}
				fmt.Fprintf(out, "%s\t%s\t%s%s%s\t%s\t%s\t%s\n",
					r.ChatKey,
					r.MsgID,
					sColorDim, date, sColorReset,
					colorizeFormat(r.Format),
					oneLine(r.Sender),
					colorizeSnippet(oneLine(r.Snippet)),
				)
			}
			return nil
		},
	}

	ff.register(cmd, 100)

	return cmd
}
