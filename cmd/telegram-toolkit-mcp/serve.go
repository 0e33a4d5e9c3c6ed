package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DronPascal/telegram-toolkit-mcp/artifact"
	"github.com/DronPascal/telegram-toolkit-mcp/chats"
	"github.com/DronPascal/telegram-toolkit-mcp/history"
	"github.com/DronPascal/telegram-toolkit-mcp/internal/logutil"
	"github.com/DronPascal/telegram-toolkit-mcp/internal/metrics"
	"github.com/DronPascal/telegram-toolkit-mcp/internal/waitctl"
	"github.com/DronPascal/telegram-toolkit-mcp/telegram/gotdclient"
	"github.com/DronPascal/telegram-toolkit-mcp/tools"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to Telegram and serve the MCP tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			connectCtx, cancel := context.WithTimeout(ctx, time.Minute)
			client, err := gotdclient.Connect(connectCtx, gotdclient.Config{
				APIID:         viper.GetInt("telegram.api_id"),
				APIHash:       viper.GetString("telegram.api_hash"),
				SessionString: viper.GetString("telegram.session_string"),
				SessionFile:   viper.GetString("telegram.session_file"),
			}, logger)
			cancel()
			if err != nil {
				return err
			}
			defer func() {
				if cerr := client.Close(); cerr != nil {
					logger.Warn("telegram_close_failed", "error", cerr.Error())
				}
			}()

			store, err := artifact.NewStore(artifact.Config{
				Dir:       viper.GetString("artifacts.dir"),
				TTL:       viper.GetDuration("artifacts.ttl"),
				ReadGrace: viper.GetDuration("artifacts.read_grace"),
			}, logger)
			if err != nil {
				return err
			}
			store.StartSweeper(ctx, viper.GetDuration("artifacts.sweep_interval"))

			wait := waitctl.New(waitctl.Config{
				WaitBudget:  viper.GetDuration("wait.budget"),
				MaxAttempts: viper.GetInt("wait.max_attempts"),
				BaseBackoff: viper.GetDuration("wait.base_backoff"),
				JitterRatio: viper.GetFloat64("wait.jitter_ratio"),
			}, logger)

			resolver := chats.New(client, wait, chats.Config{
				CacheEnabled:   viper.GetBool("resolver.cache_enabled"),
				CacheSize:      viper.GetInt("resolver.cache_size"),
				RequestTimeout: viper.GetDuration("fetch.request_timeout"),
			}, logger)

			fetcher := history.New(client, wait, store, history.Config{
				MaxPageSize:         viper.GetInt("fetch.max_page_size"),
				DefaultPageSize:     viper.GetInt("fetch.default_page_size"),
				ExportThreshold:     viper.GetInt("fetch.export_threshold"),
				InnerReadMultiplier: viper.GetInt("fetch.inner_read_multiplier"),
				InnerBatchBudget:    viper.GetInt("fetch.inner_batch_budget"),
				MaxExportMessages:   viper.GetInt("fetch.max_export_messages"),
				RequestTimeout:      viper.GetDuration("fetch.request_timeout"),
			}, logger)

			var set *metrics.Set
			if viper.GetBool("metrics.enabled") {
				set = metrics.New()
				startMetricsListener(ctx, viper.GetString("metrics.addr"), set, logger)
			}

			srv := tools.NewServer(tools.Deps{
				Resolver:  resolver,
				Fetcher:   fetcher,
				Artifacts: store,
				Metrics:   set,
				Logger:    logger,
			}, version)

			transport := strings.ToLower(strings.TrimSpace(flagOrViperString(cmd, "transport", "server.transport")))
			switch transport {
			case "", "stdio":
				logger.Info("server_start", "transport", "stdio")
				return mcpserver.ServeStdio(srv)
			case "http":
				addr := flagOrViperString(cmd, "http-addr", "server.http_addr")
				logger.Info("server_start", "transport", "http", "addr", addr)
				httpSrv := mcpserver.NewStreamableHTTPServer(srv)
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = httpSrv.Shutdown(shutdownCtx)
				}()
				return httpSrv.Start(addr)
			default:
				return fmt.Errorf("unknown server.transport: %s (use stdio or http)", transport)
			}
		},
	}

	cmd.Flags().String("transport", "stdio", "MCP transport: stdio or http.")
	cmd.Flags().String("http-addr", "127.0.0.1:8000", "Listen address for the http transport.")

	return cmd
}

func startMetricsListener(ctx context.Context, addr string, set *metrics.Set, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", set.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":   true,
			"time": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics_listener_start", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics_listener_failed", "error", err.Error())
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
