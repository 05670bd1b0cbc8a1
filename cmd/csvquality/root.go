package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JonMunkholm/sales-ai-analyst/internal/core"
	"github.com/JonMunkholm/sales-ai-analyst/internal/logging"
)

// Settings come from flags, CSVQUALITY_* environment variables and an
// optional YAML config file, in that order of precedence.
type settings struct {
	Mode     string `mapstructure:"mode"`
	Format   string `mapstructure:"format"`
	MaxSize  int64  `mapstructure:"max_size"`
	Export   string `mapstructure:"export"`
	LogLevel string `mapstructure:"log_level"`
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CSVQUALITY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("mode", "Sales Analysis")
	v.SetDefault("format", "text")
	v.SetDefault("max_size", core.DefaultMaxFileSize)
	v.SetDefault("log_level", "warn")

	var cfgFile string

	root := &cobra.Command{
		Use:           "csvquality",
		Short:         "Check CSV files for missing and duplicate data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config: %w", err)
				}
			}
			logging.SetupWriter(cmd.ErrOrStderr(), v.GetString("log_level"), "text")
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newAnalyzeCmd(v), newModesCmd())
	return root
}

func loadSettings(v *viper.Viper) (settings, error) {
	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("unmarshal settings: %w", err)
	}
	switch s.Format {
	case "text", "json", "yaml":
	default:
		return s, fmt.Errorf("unsupported --format %q (use text, json or yaml)", s.Format)
	}
	if s.MaxSize <= 0 {
		return s, fmt.Errorf("--max-size must be positive")
	}
	return s, nil
}
