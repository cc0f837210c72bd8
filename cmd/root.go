package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/internal/utils"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "earningcalls",
	Short: "Ingest and verify earnings-call transcripts.",
	Long: `earningcalls fetches third-party earnings-call transcript pages, extracts
structured records from them, validates the extraction in three layers and
decides with a reproducible confidence score whether each record can be
persisted automatically, needs human review, or must be rejected. Every
attempt leaves an append-only audit trail.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.earningcalls.yaml)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".earningcalls")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.earningcalls.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Default values for all keys
	viper.SetDefault("source.domain", "fool.com")
	viper.SetDefault("fetcher.requests_per_minute", 10)
	viper.SetDefault("fetcher.daily_limit", 200)
	viper.SetDefault("fetcher.max_retries", 3)
	viper.SetDefault("fetcher.retry_delay_seconds", 5)
	viper.SetDefault("fetcher.nav_timeout_seconds", 30)
	viper.SetDefault("fetcher.max_requests_per_session", 50)
	viper.SetDefault("fetcher.cookie_path", "")
	viper.SetDefault("fetcher.html_cache_dir", "")
	viper.SetDefault("validation.min_word_count", 1000)
	viper.SetDefault("validation.min_fiscal_year", 2000)
	viper.SetDefault("validation.fuzzy_threshold", 0.7)
	viper.SetDefault("validation.near_dup_threshold", 0.8)
	viper.SetDefault("validation.date_tolerance_hours", 24)
	viper.SetDefault("validation.require_exact_date", false)
	viper.SetDefault("audit.dir", "audit-logs")
	viper.SetDefault("audit.history_size", 1000)
	viper.SetDefault("server.username", "")
	viper.SetDefault("server.password", "")

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
