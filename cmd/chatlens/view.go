package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/chatlens/internal/parse"
	"github.com/Zuo-Peng/chatlens/internal/render"
	"github.com/Zuo-Peng/chatlens/internal/sides"
	"github.com/Zuo-Peng/chatlens/internal/watch"
)

func viewCmd(a *app) *cobra.Command {
	var (
		sf     sideFlags
		follow bool
		width  int
		plain  bool
	)

	cmd := &cobra.Command{
		Use:   "view <file|->",
		Short: "Show a chat export as a two-sided conversation",
		Long: `Renders the chat with one participant on the left and one on the right.
Unset sides go to the first two participants. With --watch the file is
re-parsed and redrawn every time it changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if follow && path == "-" {
				return errors.New("--watch needs a file path, not stdin")
			}

			out := cmd.OutOrStdout()
			fd := int(os.Stdout.Fd())
			isTTY := term.IsTerminal(fd)
			if width == 0 && isTTY {
				if w, _, err := term.GetSize(fd); err == nil {
					width = w
				}
			}
			opts := render.Options{Width: width, Plain: plain || !isTTY}

			show := func() error {
				raw, err := readInput(cmd.InOrStdin(), path)
				if err != nil {
					return err
				}
				return writeChat(out, parse.Parse(raw), &sf, a.cfg.Sides, opts)
			}

			if !follow {
				return show()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := show(); err != nil {
				return err
			}
			a.logger.Info("watching export", "path", path)
			return watch.Watch(ctx, path, watch.DefaultDebounce, func() {
				if isTTY {
					fmt.Fprint(out, "\033[H\033[2J")
				}
				if err := show(); err != nil {
					fmt.Fprintf(os.Stderr, "view: %v\n", err)
				}
			})
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "Redraw whenever the file changes")
	cmd.Flags().IntVar(&width, "width", 0, "Wrap width (default: terminal width, 0 when piped)")
	cmd.Flags().BoolVar(&plain, "plain", false, "No colors")

	return cmd
}

func writeChat(w io.Writer, res *parse.ParseResult, sf *sideFlags, base sides.Assignment, opts render.Options) error {
	assign, err := sf.resolve(base, res.Participants)
	if err != nil {
		return err
	}
	if len(res.Messages) == 0 {
		_, err := fmt.Fprintln(w, "(empty chat)")
		return err
	}
	opts.Sides = assign
	text, _ := render.RenderChat(res.Messages, opts)
	_, err = fmt.Fprint(w, text)
	return err
}
