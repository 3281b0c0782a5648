// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-webdriver/internal/config"
	"github.com/xkilldash9x/scalpel-webdriver/internal/observability"
)

type contextKey string

// configKey stores the validated *config.Config in the command context.
const configKey contextKey = "config"

// configSearchPath is tried in order when --config is not given.
var configSearchPath = []string{"config.yaml", "~/.scalpel-webdriver.yaml"}

// NewRootCommand builds a fresh command tree. Each call returns independent
// flag state.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "scalpel-webdriver",
		Short: "Locate page elements the way a WebDriver remote end does.",
		Long: `scalpel-webdriver runs WebDriver element lookups (css selector, link text,
xpath and the rest) against a static HTML file or a live headless Chromium
page, and prints the resulting web element references as JSON.`,
		// Version is set at build time. See cmd/version.go.
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v); err != nil {
				observability.InitializeLogger(config.NewDefaultConfig().Logger())
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.NewDefaultConfig().Logger())
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting scalpel-webdriver", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./config.yaml, then ~/.scalpel-webdriver.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newFindCmd())
	return rootCmd
}

// Execute runs the command tree with ctx and logs failures. Cancellation is
// returned without being logged.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	observability.Sync()
	return err
}

// initializeConfig reads the config file, if any, and binds the environment.
// An explicit --config must exist; the search path is best effort.
func initializeConfig(cmd *cobra.Command, v *viper.Viper) error {
	config.BindEnv(v)

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return fmt.Errorf("failed to expand config path %q: %w", path, err)
		}
		v.SetConfigFile(expanded)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", expanded, err)
		}
		return nil
	}

	for _, candidate := range configSearchPath {
		expanded, err := homedir.Expand(candidate)
		if err != nil {
			continue
		}
		if _, err := os.Stat(expanded); err != nil {
			continue
		}
		v.SetConfigFile(expanded)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", expanded, err)
		}
		return nil
	}
	return nil
}

// configFromContext returns the config stored by the root command, or the
// defaults when the command ran without it.
func configFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok && cfg != nil {
		return cfg
	}
	return config.NewDefaultConfig()
}
