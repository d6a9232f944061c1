/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/longkey1/searchchat/internal/searchchat/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "searchchat",
	Short: "Chat with an LLM that can search the web, Wikipedia and arXiv",
	Long: `searchchat is a conversational assistant backed by Groq.
It answers questions by reasoning step by step and looking things up with
DuckDuckGo, Wikipedia and arXiv when it needs to.

Use it from the terminal with 'searchchat chat' or in the browser with
'searchchat serve'. You can configure the tool using a TOML configuration file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/searchchat/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// userConfigDir returns $HOME/.config/searchchat.
func userConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "searchchat"), nil
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("SEARCHCHAT")
	viper.AutomaticEnv()

	configDir, err := userConfigDir()
	cobra.CheckErr(err)

	config.SetDefaults(viper.GetViper())

	viper.BindEnv("groq_token", "SEARCHCHAT_GROQ_TOKEN")
	viper.BindEnv("groq_base_url", "SEARCHCHAT_GROQ_BASE_URL")
	viper.BindEnv("listen_addr", "SEARCHCHAT_LISTEN_ADDR")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	} else {
		// System-wide config first, user config merged on top.
		systemConfigPaths := []string{
			"/etc/searchchat",
			"/usr/local/etc/searchchat",
		}
		for _, path := range systemConfigPaths {
			viper.AddConfigPath(path)
		}
		viper.SetConfigType("toml")
		viper.SetConfigName("config")

		systemConfigLoaded := false
		if err := viper.ReadInConfig(); err == nil {
			systemConfigLoaded = true
			if verbose {
				fmt.Fprintln(os.Stderr, "Loaded system-wide config:", viper.ConfigFileUsed())
			}
		}

		viper.AddConfigPath(configDir)
		if systemConfigLoaded {
			if err := viper.MergeInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					fmt.Fprintf(os.Stderr, "Error merging user config file: %v\n", err)
				}
			} else if verbose {
				fmt.Fprintln(os.Stderr, "Merged user config:", viper.ConfigFileUsed())
			}
		} else {
			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
				}
			}
		}
	}

	if verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		fmt.Fprintln(os.Stderr, "Environment variables:")
		fmt.Fprintln(os.Stderr, "  SEARCHCHAT_MODEL:", viper.GetString("model"))
		fmt.Fprintln(os.Stderr, "  SEARCHCHAT_GROQ_BASE_URL:", viper.GetString("groq_base_url"))
		fmt.Fprintln(os.Stderr, "  SEARCHCHAT_MAX_ITERATIONS:", viper.GetInt("max_iterations"))
		fmt.Fprintln(os.Stderr, "  SEARCHCHAT_TOOL_TIMEOUT:", viper.GetDuration("tool_timeout"))
	}
}
