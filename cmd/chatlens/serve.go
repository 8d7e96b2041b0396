package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatlens/internal/api"
)

func serveCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the parse and assistant operations over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				port = a.cfg.Port
			}

			// keep the interface nil when there is no key so the API answers 503
			var assistant api.Assistant
			if a.cfg.GeminiAPIKey != "" {
				asst, err := a.assistant()
				if err != nil {
					return err
				}
				assistant = asst
			} else {
				fmt.Fprintln(os.Stderr, "GEMINI_API_KEY not set; only /api/v1/parse is available")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(os.Stderr, "Listening on :%d\n", port)
			srv := api.NewServer(port, assistant, a.cfg.TargetLanguages, a.logger)
			if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on (default: port from config)")

	return cmd
}
