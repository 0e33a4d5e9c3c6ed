package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Telegram session
	viper.SetDefault("telegram.api_id", 0)
	viper.SetDefault("telegram.api_hash", "")
	viper.SetDefault("telegram.session_string", "")
	viper.SetDefault("telegram.session_file", "")

	// Fetcher
	viper.SetDefault("fetch.max_page_size", 100)
	viper.SetDefault("fetch.default_page_size", 50)
	viper.SetDefault("fetch.export_threshold", 500)
	viper.SetDefault("fetch.inner_read_multiplier", 2)
	viper.SetDefault("fetch.inner_batch_budget", 5)
	viper.SetDefault("fetch.max_export_messages", 10000)
	viper.SetDefault("fetch.request_timeout", 30*time.Second)

	// Rate-limit controller
	viper.SetDefault("wait.budget", 60*time.Second)
	viper.SetDefault("wait.max_attempts", 3)
	viper.SetDefault("wait.base_backoff", 250*time.Millisecond)
	viper.SetDefault("wait.jitter_ratio", 0.1)

	// NDJSON artifacts
	viper.SetDefault("artifacts.dir", "/tmp/telegram-toolkit-mcp/exports")
	viper.SetDefault("artifacts.ttl", 24*time.Hour)
	viper.SetDefault("artifacts.sweep_interval", 10*time.Minute)
	viper.SetDefault("artifacts.read_grace", time.Minute)

	// Resolver cache
	viper.SetDefault("resolver.cache_enabled", false)
	viper.SetDefault("resolver.cache_size", 256)

	// Transports
	viper.SetDefault("server.transport", "stdio")
	viper.SetDefault("server.http_addr", "127.0.0.1:8000")

	// Observability
	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.addr", "127.0.0.1:9090")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)
}
