package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Microck/bansho/internal/adapter/inbound/dashboard"
	"github.com/Microck/bansho/internal/adapter/inbound/stdio"
	"github.com/Microck/bansho/internal/config"
	"github.com/Microck/bansho/internal/service"
)

var printSettings bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the proxy, serving MCP over stdin/stdout",
	Long: `Start banshogate. The proxy reads newline-delimited JSON-RPC
requests from stdin and writes responses to stdout, authenticating,
authorizing, rate-limiting and auditing every tools/call against the
upstream configured by UPSTREAM_TRANSPORT/UPSTREAM_CMD/UPSTREAM_URL.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&printSettings, "print-settings", false, "print resolved settings and exit, without starting the proxy")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("banshogate: %w", err)
	}

	if printSettings {
		fmt.Printf("%+v\n", *settings)
		return nil
	}

	logger := settings.NewLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := service.New(ctx, settings, logger)
	if err != nil {
		return fmt.Errorf("banshogate: startup: %w", err)
	}
	defer app.Close(context.Background())

	dash := dashboard.New(app.AuditReader(), logger)
	dashServer := &http.Server{Addr: fmt.Sprintf("%s:%d", settings.DashboardHost, settings.DashboardPort), Handler: dash.Mux()}
	go func() {
		if err := dashServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("dashboard server exited", "error", err)
		}
	}()
	defer dashServer.Close()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: settings.MetricsAddr, Handler: metricsMux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server exited", "error", err)
		}
	}()
	defer metricsServer.Close()

	listener := stdio.New(app.Pipeline, logger)
	logger.Info("banshogate started", "upstream_transport", settings.UpstreamTransport, "listen", fmt.Sprintf("%s:%d", settings.ListenHost, settings.ListenPort))
	return listener.Serve(ctx, os.Stdin, os.Stdout)
}
