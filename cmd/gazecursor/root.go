package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dudu/gazecursor/internal/config"
)

const version = "dev"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gazecursor",
	Short: "Hands-free pointer control from a webcam",
	Long: `gazecursor moves the mouse pointer to where your eyes are in the
camera frame and clicks when you hold a blink.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  `Loads defaults, the config file and GAZECURSOR_* environment overrides and prints the result as JSON.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		return printJSON(cmd, cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./gazecursor.yaml or ./config/gazecursor.yaml)")
	rootCmd.AddCommand(configCmd)
}

// loadConfig reads the configuration, letting any flags that were set on
// the command line win over file and environment values
func loadConfig(flags *pflag.FlagSet) (*viper.Viper, config.Config, error) {
	v := config.New(configPath)
	if flags != nil {
		for name, key := range runFlags {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, config.Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}
	if verbose {
		v.Set("logging.level", "debug")
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, config.Config{}, err
	}
	return v, cfg, nil
}

func printJSON(cmd *cobra.Command, data any) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
