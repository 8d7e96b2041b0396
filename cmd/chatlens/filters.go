package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatlens/internal/parse"
	"github.com/Zuo-Peng/chatlens/internal/search"
)

// filterFlags are the result filters shared by search and list.
type filterFlags struct {
	format, sender, since string
	limit                 int
}

func (f *filterFlags) register(cmd *cobra.Command, defaultLimit int) {
	cmd.Flags().StringVar(&f.format, "format", "", "Filter by export format (text/json)")
	cmd.Flags().StringVar(&f.sender, "sender", "", "Filter by sender")
	cmd.Flags().StringVar(&f.since, "since", "", "Filter exports modified since date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.limit, "limit", defaultLimit, "Max results (0 = no limit)")
}

func (f *filterFlags) options() (search.Options, error) {
	opts := search.Options{Sender: f.sender, Limit: f.limit}

	switch parse.Format(f.format) {
	case "", parse.FormatText, parse.FormatJSON:
		opts.Format = parse.Format(f.format)
	default:
		return opts, fmt.Errorf("unknown format %q (want text or json)", f.format)
	}

	if f.since != "" {
		t, err := time.ParseInLocation("2006-01-02", f.since, time.Local)
		if err != nil {
			return opts, fmt.Errorf("invalid --since: %w", err)
		}
		opts.Since = t
	}
	return opts, nil
}
