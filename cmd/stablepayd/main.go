// Command stablepayd runs the payment gateway HTTP daemon.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stablepay/stablepay"
	"github.com/stablepay/stablepay/logger"
	"github.com/stablepay/stablepay/metrics"
	"github.com/stablepay/stablepay/server"
	"github.com/stablepay/stablepay/types"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "stablepayd",
		Short:   "stablecoin payment gateway daemon",
		Version: stablepay.Version,
	}
	root.AddCommand(serveCmd())
	return root
}

func serveCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start the gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to config file")
	return cmd
}

// loadConfig reads configuration from an optional yaml file and the
// STABLEPAY_* environment, with environment winning.
func loadConfig(configFile string) (types.Config, error) {
	v := viper.New()

	v.SetDefault("payment_timeout", 30*time.Minute)
	v.SetDefault("listen_addr", ":3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("enable_metrics", true)

	v.SetEnvPrefix("STABLEPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return types.Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func serve(cfg types.Config) error {
	log := logger.NewZapLogger(cfg.LogLevel)

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if cfg.EnableMetrics {
		rec = metrics.NewPrometheusRecorder()
	}

	gw, err := stablepay.New(cfg,
		stablepay.WithLogger(log),
		stablepay.WithMetrics(rec),
	)
	if err != nil {
		return err
	}
	defer gw.Close()

	srv := server.New(gw, server.Options{
		WebhookSecret: cfg.WebhookSecret,
		APIKey:        cfg.APIKey,
		EnableMetrics: cfg.EnableMetrics,
		Logger:        log,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(cfg.ListenAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", map[string]any{"signal": sig.String()})
		return srv.Shutdown()
	}
}
