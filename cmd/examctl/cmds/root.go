package cmds

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"examcompress/internal/config"
)

var (
	configPath string
	serviceURL string
	verbose    bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:           "examctl",
	Short:         "Prepare exam documents with the compression service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if serviceURL != "" {
			loaded.ServiceURL = serviceURL
		}
		cfg = loaded
		return nil
	},
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.Path(), "Config file")
	rootCmd.PersistentFlags().StringVar(&serviceURL, "service-url", "", "Compression service API root (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}
