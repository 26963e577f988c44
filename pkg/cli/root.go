// Package cli implements the bank-analytics command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]any{
				"error": err.Error(),
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				errObj["http_status"] = apiErr.HTTPStatus
				errObj["code"] = apiErr.Code
			}
			_ = PrintJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// settings holds the resolved global options shared by every command.
type settings struct {
	host        string
	dataDir     string
	output      string
	profile     string
	llmEndpoint string
	model       string
	historyDB   string
	configPath  string
	noLLM       bool
	verbose     bool
}

// openBackend returns a remote backend when a host is set, otherwise loads
// the datasets in-process.
func (s *settings) openBackend(ctx context.Context, cmd *cobra.Command) (Backend, error) {
	if s.host != "" {
		return NewRemote(s.host), nil
	}
	level := slog.LevelWarn
	if s.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return OpenLocal(ctx, LocalOptions{
		DataDir:       s.dataDir,
		HistoryDBPath: s.historyDB,
		LLMEnabled:    !s.noLLM,
		LLMEndpoint:   s.llmEndpoint,
		Model:         s.model,
		Logger:        logger,
	})
}

func (s *settings) userConfigPath() string {
	if s.configPath != "" {
		return s.configPath
	}
	if v := os.Getenv("BANK_ANALYTICS_CONFIG"); v != "" {
		return v
	}
	return ConfigPath()
}

// loadUserConfigOrEmpty reads the user config; a missing or broken file
// reads as an empty one.
func (s *settings) loadUserConfigOrEmpty() *UserConfig {
	cfg, err := LoadUserConfig(s.userConfigPath())
	if err != nil {
		return &UserConfig{CurrentProfile: "default", Profiles: map[string]Profile{}}
	}
	return cfg
}

// resolveString applies flag > env > profile for one string option.
func resolveString(cmd *cobra.Command, flag, env, profileVal string, dst *string) {
	if cmd.Flags().Changed(flag) {
		return
	}
	if v := os.Getenv(env); v != "" {
		*dst = v
	} else if profileVal != "" {
		*dst = profileVal
	}
}

func newRootCmd() *cobra.Command {
	s := &settings{}

	rootCmd := &cobra.Command{
		Use:   "bank-analytics",
		Short: "Ask analytics questions about the bank's branch datasets",
		Long: "Command-line interface for the bank analytics pipeline. Without --host the\n" +
			"datasets are loaded from --data-dir and questions are answered in-process.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			p := s.loadUserConfigOrEmpty().ActiveProfile(s.profile)

			// flag > env > profile > default
			resolveString(cmd, "host", "BANK_ANALYTICS_HOST", p.Host, &s.host)
			resolveString(cmd, "data-dir", "BANK_ANALYTICS_DATA_DIR", p.DataDir, &s.dataDir)
			resolveString(cmd, "output", "BANK_ANALYTICS_OUTPUT", p.Output, &s.output)
			resolveString(cmd, "llm-endpoint", "BANK_ANALYTICS_LLM_ENDPOINT", p.LLMEndpoint, &s.llmEndpoint)
			resolveString(cmd, "model", "BANK_ANALYTICS_MODEL", p.Model, &s.model)
			resolveString(cmd, "history-db", "BANK_ANALYTICS_HISTORY_DB", "", &s.historyDB)
			if !cmd.Flags().Changed("no-llm") && os.Getenv("BANK_ANALYTICS_NO_LLM") == "true" {
				s.noLLM = true
			}

			return validateOutputFormat(s.output)
		},
	}

	addGlobalFlags(rootCmd.PersistentFlags(), s)

	rootCmd.AddCommand(newQueryCmd(s))
	rootCmd.AddCommand(newPlanCmd(s))
	rootCmd.AddCommand(newInteractiveCmd(s))
	rootCmd.AddCommand(newDatasetsCmd(s))
	rootCmd.AddCommand(newHistoryCmd(s))
	rootCmd.AddCommand(newConfigCmd(s))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func addGlobalFlags(pf *pflag.FlagSet, s *settings) {
	pf.StringVar(&s.host, "host", "", "Server URL; empty answers questions in-process")
	pf.StringVar(&s.dataDir, "data-dir", "data", "Directory holding the dataset CSV files (in-process mode)")
	pf.StringVarP(&s.output, "output", "o", "table", "Output format (table, json)")
	pf.StringVarP(&s.profile, "profile", "p", "", "Config profile to use")
	pf.StringVar(&s.llmEndpoint, "llm-endpoint", "", "Ollama endpoint used for planning (in-process mode)")
	pf.StringVar(&s.model, "model", "", "Model name used for planning (in-process mode)")
	pf.BoolVar(&s.noLLM, "no-llm", false, "Plan with the keyword detector only (in-process mode)")
	pf.StringVar(&s.historyDB, "history-db", "", "SQLite file recording query history (in-process mode)")
	pf.StringVar(&s.configPath, "config", "", "Config file (default ~/.bank-analytics/config.yaml)")
	pf.BoolVarP(&s.verbose, "verbose", "v", false, "Log pipeline details to stderr")
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
