package cmd

import (
	"time"

	"github.com/spf13/viper"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/audit"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/fetcher"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/validation"
)

// fetcherConfigFromViper builds the fetcher settings from the config file.
func fetcherConfigFromViper() fetcher.Config {
	return fetcher.Config{
		SourceDomain:          viper.GetString("source.domain"),
		RequestsPerMinute:     viper.GetInt("fetcher.requests_per_minute"),
		DailyLimit:            viper.GetInt("fetcher.daily_limit"),
		MaxRetries:            viper.GetInt("fetcher.max_retries"),
		RetryDelay:            time.Duration(viper.GetInt("fetcher.retry_delay_seconds")) * time.Second,
		NavTimeout:            time.Duration(viper.GetInt("fetcher.nav_timeout_seconds")) * time.Second,
		MaxRequestsPerSession: viper.GetInt("fetcher.max_requests_per_session"),
		CookiePath:            viper.GetString("fetcher.cookie_path"),
		HTMLCacheDir:          viper.GetString("fetcher.html_cache_dir"),
	}
}

// validationConfigFromViper builds the validation thresholds from the
// config file.
func validationConfigFromViper() validation.Config {
	return validation.Config{
		MinWordCount:     viper.GetInt("validation.min_word_count"),
		MinFiscalYear:    viper.GetInt("validation.min_fiscal_year"),
		FuzzyThreshold:   viper.GetFloat64("validation.fuzzy_threshold"),
		NearDupThreshold: viper.GetFloat64("validation.near_dup_threshold"),
		DateTolerance:    time.Duration(viper.GetInt("validation.date_tolerance_hours")) * time.Hour,
		RequireExactDate: viper.GetBool("validation.require_exact_date"),
	}
}

// openAuditLogger opens the shared audit logger from config.
func openAuditLogger() (*audit.Logger, error) {
	return audit.NewLogger(viper.GetString("audit.dir"), viper.GetInt("audit.history_size"))
}
