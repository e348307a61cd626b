// Command golem is a ReAct agent: it takes a task, thinks in a loop with
// an LLM, acts through a sandboxed shell tool, and persists its memory,
// session history, and credentials in one embedded database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/assapir/golem/internal/config"
	"github.com/assapir/golem/internal/engine"
	"github.com/assapir/golem/internal/oauth"
	"github.com/assapir/golem/internal/shelltool"
	"github.com/assapir/golem/internal/store"
	"github.com/assapir/golem/internal/thinker"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := config.LoadEnv(); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	cfg, err := config.LoadFile(config.FilePath())
	if err != nil {
		slog.Warn("failed to load config file", "error", err)
		cfg = config.Default()
	}
	var task string

	root := &cobra.Command{
		Use:     "golem",
		Short:   "A ReAct agent that thinks, acts, and remembers",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		RunE: func(cmd *cobra.Command, args []string) error {
			if task == "" {
				return cmd.Help()
			}
			return runTask(cmd.Context(), cfg, task)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.Provider, "provider", cfg.Provider, "LLM provider: anthropic or openai")
	flags.StringVar(&cfg.Model, "model", cfg.Model, "model name (provider default if empty)")
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the store database (\":memory:\" for ephemeral)")
	flags.IntVar(&cfg.MaxIterations, "max-iterations", cfg.MaxIterations, "maximum think/act iterations per run")
	var timeoutSecs int
	flags.IntVar(&timeoutSecs, "timeout", int(cfg.ToolTimeout.Seconds()), "per-tool-call timeout in seconds")
	flags.BoolVar(&cfg.AllowWrite, "allow-write", cfg.AllowWrite, "allow the shell tool to run write operations")
	flags.StringVar(&cfg.WorkDir, "work-dir", cfg.WorkDir, "working directory for shell commands")
	flags.BoolVar(&cfg.NoConfirm, "no-confirm", cfg.NoConfirm, "skip interactive confirmation before shell commands")
	flags.StringVar(&task, "run", "", "task to run non-interactively")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg.ToolTimeout = time.Duration(timeoutSecs) * time.Second
		return nil
	}

	root.AddCommand(buildLoginCmd(&cfg), buildLogoutCmd(&cfg))
	return root
}

func runTask(ctx context.Context, cfg config.Config, task string) error {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	mode := shelltool.ReadOnly
	if cfg.AllowWrite {
		mode = shelltool.ReadWrite
	}
	shell, err := shelltool.New(shelltool.Config{
		Mode:                mode,
		WorkingDir:          cfg.WorkDir,
		MaxOutputBytes:      cfg.MaxOutputBytes,
		RequireConfirmation: !cfg.NoConfirm,
	}, os.Stdin, os.Stdout)
	if err != nil {
		return fmt.Errorf("setting up shell tool: %w", err)
	}

	apiKey, ok, err := st.ResolveAPIKey(ctx, cfg.Provider, os.Getenv(config.APIKeyEnvVar(cfg.Provider)))
	if err != nil {
		return fmt.Errorf("resolving credentials: %w", err)
	}
	if !ok {
		return fmt.Errorf("no %s credentials found. Run `golem login %s` or set %s", cfg.Provider, cfg.Provider, config.APIKeyEnvVar(cfg.Provider))
	}

	var think engine.Thinker
	switch cfg.Provider {
	case "openai":
		think = thinker.NewOpenAI(apiKey, cfg.Model)
	default:
		think = thinker.NewAnthropic(apiKey, cfg.Model)
	}

	tools := engine.NewToolRegistry()
	tools.Register(shell)

	eng := engine.New(think, tools, st, st, engine.Config{
		MaxIterations: cfg.MaxIterations,
		ToolTimeout:   cfg.ToolTimeout,
	}, slog.Default())

	answer, err := eng.Run(ctx, task)
	if err != nil {
		return err
	}
	fmt.Println(answer)
	return nil
}

func buildLoginCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "login [provider]",
		Short: "Authorize golem with an LLM provider via OAuth",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]
			if provider != "anthropic" {
				return fmt.Errorf("unsupported provider: %s", provider)
			}

			url, pkce, err := oauth.BuildAuthorizeURL()
			if err != nil {
				return err
			}
			fmt.Printf("Visit this URL to authorize golem:\n\n  %s\n\n", url)
			fmt.Print("Paste the code#state value here: ")

			var raw string
			if _, err := fmt.Scanln(&raw); err != nil {
				return fmt.Errorf("reading authorization code: %w", err)
			}

			cred, err := oauth.ExchangeCode(cmd.Context(), raw, pkce.Verifier)
			if err != nil {
				return fmt.Errorf("token exchange failed: %w", err)
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			if err := st.SetCredential(cmd.Context(), provider, cred); err != nil {
				return fmt.Errorf("saving credentials: %w", err)
			}

			cfg.Provider = provider
			if err := config.SaveFile(config.FilePath(), *cfg); err != nil {
				slog.Warn("failed to persist provider preference", "error", err)
			}

			fmt.Println("Logged in.")
			return nil
		},
	}
}

func buildLogoutCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout [provider]",
		Short: "Remove stored credentials for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			if err := st.RemoveCredential(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("removing credentials: %w", err)
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}
