package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatlens/internal/assist"
	"github.com/Zuo-Peng/chatlens/internal/parse"
)

func predictCmd(a *app) *cobra.Command {
	var (
		sender string
		write  bool
	)

	cmd := &cobra.Command{
		Use:   "predict <file|->",
		Short: "Suggest the next message in a chat",
		Long: `Asks Gemini for the next message. Without --sender the participant who
did not send the last message is used. --write appends the suggestion to the
file in the export's own format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if write && path == "-" {
				return errors.New("--write needs a file path, not stdin")
			}

			doc, err := readInput(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			res := parse.Parse(doc)

			sender = strings.TrimSpace(sender)
			if sender == "" {
				sender = assist.NextSender(res)
			}

			asst, err := a.assistant()
			if err != nil {
				return err
			}
			content, err := asst.PredictNext(cmd.Context(), res, sender)
			if err != nil {
				return fmt.Errorf("predict: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", sender, content)
			if !write {
				return nil
			}

			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			updated := parse.AppendMessage(doc, sender, content, time.Now())
			if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(os.Stderr, "Appended to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&sender, "sender", "", "Participant to write as")
	cmd.Flags().BoolVar(&write, "write", false, "Append the suggestion to the file")

	return cmd
}
