package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration profiles",
	}

	cmd.AddCommand(newConfigShowCmd(s))
	cmd.AddCommand(newConfigSetProfileCmd(s))
	cmd.AddCommand(newConfigUseProfileCmd(s))

	return cmd
}

func newConfigShowCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig(s.userConfigPath())
			if err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "No configuration found at %s\n", s.userConfigPath())
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigSetProfileCmd(s *settings) *cobra.Command {
	var (
		name string
		p    Profile
	)

	cmd := &cobra.Command{
		Use:   "set-profile",
		Short: "Create or update a configuration profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			if cmd.Flags().Changed("output") {
				if err := validateOutputFormat(p.Output); err != nil {
					return err
				}
			}

			cfg := s.loadUserConfigOrEmpty()
			cur := cfg.Profiles[name]
			if cmd.Flags().Changed("host") {
				cur.Host = p.Host
			}
			if cmd.Flags().Changed("output") {
				cur.Output = p.Output
			}
			if cmd.Flags().Changed("data-dir") {
				cur.DataDir = p.DataDir
			}
			if cmd.Flags().Changed("llm-endpoint") {
				cur.LLMEndpoint = p.LLMEndpoint
			}
			if cmd.Flags().Changed("model") {
				cur.Model = p.Model
			}
			cfg.Profiles[name] = cur
			if cfg.CurrentProfile == "" {
				cfg.CurrentProfile = name
			}

			path := s.userConfigPath()
			if err := SaveUserConfig(path, cfg); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]string{
					"status":  "ok",
					"profile": name,
					"path":    path,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Profile %q saved to %s\n", name, path)
			return nil
		},
	}

	// Local flags shadow the persistent ones of the same name.
	cmd.Flags().StringVar(&name, "name", "", "Profile name (required)")
	cmd.Flags().StringVar(&p.Host, "host", "", "Server URL")
	cmd.Flags().StringVar(&p.Output, "output", "", "Default output format")
	cmd.Flags().StringVar(&p.DataDir, "data-dir", "", "Dataset directory")
	cmd.Flags().StringVar(&p.LLMEndpoint, "llm-endpoint", "", "Ollama endpoint")
	cmd.Flags().StringVar(&p.Model, "model", "", "Model name")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newConfigUseProfileCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "use-profile <name>",
		Short: "Set the active configuration profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := s.userConfigPath()
			cfg, err := LoadUserConfig(path)
			if err != nil {
				return fmt.Errorf("no config found: %w", err)
			}
			name := args[0]
			if _, ok := cfg.Profiles[name]; !ok {
				return fmt.Errorf("profile %q not found", name)
			}
			cfg.CurrentProfile = name
			if err := SaveUserConfig(path, cfg); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]string{
					"status":         "ok",
					"active_profile": name,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Active profile set to %q\n", name)
			return nil
		},
	}
}
