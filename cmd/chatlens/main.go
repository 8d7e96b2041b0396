package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatlens/internal/assist"
	"github.com/Zuo-Peng/chatlens/internal/config"
	"github.com/Zuo-Peng/chatlens/internal/genai"
	"github.com/Zuo-Peng/chatlens/internal/sides"
	"github.com/Zuo-Peng/chatlens/internal/telemetry"
)

var version = "dev"

// app carries what every command needs once the root has set up logging.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	cleanup []func()
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	logger, closer, err := telemetry.InitLogger(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger = logger
	a.cleanup = append(a.cleanup, func() { closer.Close() })

	if cfg.Telemetry {
		shutdown, err := telemetry.InitTracing(cmd.Context(), cfg.TracePath, version)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		a.cleanup = append(a.cleanup, shutdown)
	}

	logger.Debug("command start", "command", cmd.Name(), "args", len(args))
	return nil
}

// assistant builds the Gemini-backed assistant from config.
func (a *app) assistant() (*assist.Assistant, error) {
	if a.cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: set GEMINI_API_KEY or gemini_api_key in config.toml", genai.ErrNoAPIKey)
	}
	opts := []genai.Option{
		genai.WithRateLimit(a.cfg.RequestsPerMinute),
		genai.WithLogger(a.logger),
	}
	if a.cfg.GeminiBaseURL != "" {
		opts = append(opts, genai.WithBaseURL(a.cfg.GeminiBaseURL))
	}
	client := genai.NewClient(a.cfg.GeminiAPIKey, a.cfg.GeminiModel, opts...)
	return assist.New(client, a.logger), nil
}

// readInput reads a file, or stdin when arg is "-".
func readInput(stdin io.Reader, arg string) (string, error) {
	if arg == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", arg, err)
	}
	return string(b), nil
}

// sideFlags are the --left/--right/--alias flags shared by view and insights.
type sideFlags struct {
	left, right string
	aliases     []string
}

func (f *sideFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.left, "left", "", "Participant shown on the left")
	cmd.Flags().StringVar(&f.right, "right", "", "Participant shown on the right")
	cmd.Flags().StringArrayVar(&f.aliases, "alias", nil, "Display name as Name=Alias (repeatable)")
}

// resolve layers the flags over the configured sides for one chat. Configured
// sides naming someone absent from the chat are dropped; sides given as
// flags must be participants.
func (f *sideFlags) resolve(base sides.Assignment, participants []string) (sides.Assignment, error) {
	a := sides.Assignment{Aliases: map[string]string{}}
	for k, v := range base.Aliases {
		a.Aliases[k] = v
	}
	if slices.Contains(participants, base.Left) {
		a.Left = base.Left
	}
	if slices.Contains(participants, base.Right) && base.Right != a.Left {
		a.Right = base.Right
	}

	if f.left != "" {
		a.Left = f.left
		if f.right == "" && a.Right == a.Left {
			a.Right = ""
		}
	}
	if f.right != "" {
		a.Right = f.right
		if f.left == "" && a.Left == a.Right {
			a.Left = ""
		}
	}
	for _, kv := range f.aliases {
		name, alias, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return a, fmt.Errorf("invalid --alias %q, want Name=Alias", kv)
		}
		a.Aliases[name] = strings.TrimSpace(alias)
	}

	if err := a.Validate(participants); err != nil {
		return a, err
	}
	return a.Resolve(participants), nil
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "chatlens",
		Short:             "chatlens - read, search and annotate chat log exports",
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.AddCommand(parseCmd(a))
	rootCmd.AddCommand(viewCmd(a))
	rootCmd.AddCommand(indexCmd(a))
	rootCmd.AddCommand(searchCmd(a))
	rootCmd.AddCommand(listCmd(a))
	rootCmd.AddCommand(previewCmd(a))
	rootCmd.AddCommand(openCmd(a))
	rootCmd.AddCommand(doctorCmd(a))
	rootCmd.AddCommand(insightsCmd(a))
	rootCmd.AddCommand(predictCmd(a))
	rootCmd.AddCommand(translateCmd(a))
	rootCmd.AddCommand(lookupCmd(a))
	rootCmd.AddCommand(serveCmd(a))
	return rootCmd
}

func main() {
	a := &app{}
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
