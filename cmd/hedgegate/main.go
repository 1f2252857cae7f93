package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zen-systems/hedgegate/pkg/adapter"
	"github.com/zen-systems/hedgegate/pkg/config"
	"github.com/zen-systems/hedgegate/pkg/registry"
	"github.com/zen-systems/hedgegate/pkg/router"
)

var (
	rolesFile string
	debugFlag bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hedgegate",
		Short: "Model routing with hedged fallbacks and per-backend health",
		Long: `Hedgegate dispatches a generate request for a logical role to an
	ordered list of interchangeable model backends, racing the primary
	against staggered fallbacks under a single wall-clock budget. Backends
	that repeatedly reject requests are circuit-broken and skipped.`,
	}

	rootCmd.PersistentFlags().StringVar(&rolesFile, "roles", "", "path to role table file")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(rolesCmd())
	rootCmd.AddCommand(backendsCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func askCmd() *cobra.Command {
	var roleFlag string
	var systemFlag string
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Send a prompt through a role's backend chain",
		Long: `Resolves the role to its ordered backend list and races the
	candidates under the role's budget. The first backend to answer wins;
	the rest are cancelled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			adapters, err := createAdapters(cfg)
			if err != nil {
				return fmt.Errorf("failed to create adapters: %w", err)
			}

			resolver := registry.NewResolver(registry.StaticTable{RoleTable: cfg.Roles})
			r := router.New(resolver, adapters, router.WithLogger(newLogger()))

			result, err := r.Route(context.Background(), roleFlag, adapter.Prompt{
				System: systemFlag,
				User:   args[0],
			})
			if err != nil {
				if result == nil {
					return err
				}
				if jsonFlag {
					return printJSON(result)
				}
				fmt.Fprintf(os.Stderr, "request %s failed:\n", result.RequestID)
				for _, ce := range result.Errors {
					fmt.Fprintf(os.Stderr, "  %s/%s: %s (%s)\n", ce.BackendID, ce.Model, ce.Kind, ce.Message)
				}
				os.Exit(1)
			}

			if jsonFlag {
				return printJSON(result)
			}
			fmt.Println(result.Output)
			if len(result.Citations) > 0 {
				fmt.Println("\nCitations:")
				for _, c := range result.Citations {
					fmt.Printf("  %s\n", c)
				}
			}
			fmt.Fprintf(os.Stderr, "\n[%s via %s in %s]\n", result.Model, result.Backend, result.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&roleFlag, "role", "", "role to route the prompt through (required)")
	cmd.Flags().StringVar(&systemFlag, "system", "", "system prompt")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print the full result as JSON")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

func rolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List configured roles and their candidate chains",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			resolver := registry.NewResolver(registry.StaticTable{RoleTable: cfg.Roles})
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ROLE\tBUDGET\tHEDGE\tCANDIDATES")
			for _, roleID := range resolver.Roles() {
				role, err := resolver.Resolve(roleID)
				if err != nil {
					return err
				}
				for i, c := range role.Candidates {
					if i == 0 {
						fmt.Fprintf(w, "%s\t%s\t%s\t%s (%s)\n",
							role.ID, role.TotalBudget, role.HedgeDelay, c.Model, c.BackendID)
					} else {
						fmt.Fprintf(w, "\t\t\t%s (%s)\n", c.Model, c.BackendID)
					}
				}
			}
			return w.Flush()
		},
	}
}

func backendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List backend admission and breaker settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			backends := []string{"anthropic", "openai", "google", "local"}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BACKEND\tCONFIGURED\tMAX_CONCURRENCY\tERROR_THRESHOLD\tCOOLDOWN_MS")
			for _, id := range backends {
				s := cfg.Roles.Backend(id)
				fmt.Fprintf(w, "%s\t%v\t%d\t%d\t%d\n",
					id, cfg.HasBackend(id), s.MaxConcurrency, s.ErrorThreshold, s.CooldownMS)
			}
			return w.Flush()
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the role table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Roles.Validate(); err != nil {
				return fmt.Errorf("role table invalid: %w", err)
			}
			fmt.Printf("role table valid: %d roles\n", len(cfg.Roles.Roles))
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	if rolesFile != "" {
		return config.LoadWithRolesFile(rolesFile)
	}
	return config.Load()
}

// createAdapters builds one adapter per backend family with a configured
// key or endpoint. Roles whose candidates land on an unconfigured family
// will skip those candidates at route time.
func createAdapters(cfg *config.Config) (map[registry.Family]adapter.Adapter, error) {
	adapters := make(map[registry.Family]adapter.Adapter)

	if cfg.AnthropicAPIKey != "" {
		a, err := adapter.NewAnthropicAdapter(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, err
		}
		adapters[registry.FamilyAnthropic] = a
	}
	if cfg.OpenAIAPIKey != "" {
		a, err := adapter.NewOpenAIAdapter(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, err
		}
		adapters[registry.FamilyOpenAI] = a
	}
	if cfg.GoogleAPIKey != "" {
		a, err := adapter.NewGoogleAdapter(cfg.GoogleAPIKey)
		if err != nil {
			return nil, err
		}
		adapters[registry.FamilyGoogle] = a
	}
	if cfg.LocalBaseURL != "" {
		a, err := adapter.NewCompatAdapter("local", cfg.LocalBaseURL, cfg.LocalAPIKey)
		if err != nil {
			return nil, err
		}
		adapters[registry.FamilyLocal] = a
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no backends configured; set ANTHROPIC_API_KEY, OPENAI_API_KEY, GOOGLE_API_KEY, or LOCAL_BASE_URL")
	}
	return adapters, nil
}

func newLogger() *zap.Logger {
	if !debugFlag {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
