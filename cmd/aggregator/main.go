// Package main is the entry point for the swap route aggregator.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fd1az/swap-aggregator/business/blockchain"
	"github.com/fd1az/swap-aggregator/business/quoting"
	quotingDomain "github.com/fd1az/swap-aggregator/business/quoting/domain"
	"github.com/fd1az/swap-aggregator/business/routing"
	routingDI "github.com/fd1az/swap-aggregator/business/routing/di"
	"github.com/fd1az/swap-aggregator/business/routing/domain"
	"github.com/fd1az/swap-aggregator/internal/apm"
	"github.com/fd1az/swap-aggregator/internal/config"
	"github.com/fd1az/swap-aggregator/internal/logger"
	"github.com/fd1az/swap-aggregator/internal/metrics"
	"github.com/fd1az/swap-aggregator/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "aggregator",
		Short:         "Cross-chain swap route aggregator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to configuration file")

	cmd.AddCommand(newServeCommand(flags))
	cmd.AddCommand(newRoutesCommand(flags))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "swap-aggregator %s (commit: %s, built: %s)\n", version, commit, buildDate)
		},
	}
}

// application is a started process with its release hooks.
type application struct {
	cfg     *config.Config
	log     *logger.Logger
	mono    interface {
		monolith.Monolith
		Close() error
	}
	cleanup []func()
}

func (r *application) close() {
	if err := r.mono.Close(); err != nil {
		r.log.Error(context.Background(), "error releasing resources", "error", err)
	}
	for i := len(r.cleanup) - 1; i >= 0; i-- {
		r.cleanup[i]()
	}
}

// bootstrap loads configuration, installs telemetry and starts every module.
func bootstrap(ctx context.Context, configPath string) (*application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	rt := &application{cfg: cfg, log: log}

	if cfg.Telemetry.Enabled {
		rt.cleanup = append(rt.cleanup, setupTelemetry(ctx, cfg, log)...)
	}

	mono := monolith.New(cfg, log, version)
	rt.mono = mono

	// Define modules in dependency order
	modules := []monolith.Module{
		&blockchain.Module{}, // Must be first - provides gas presets
		&quoting.Module{},    // Depends on blockchain for gas prices
		&routing.Module{},    // Depends on quoting for providers
	}

	if err := mono.RegisterModules(modules...); err != nil {
		rt.close()
		return nil, fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		rt.close()
		return nil, fmt.Errorf("failed to start modules: %w", err)
	}
	return rt, nil
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log *logger.Logger) []func() {
	var cleanup []func()

	traceProvider := apm.NewTraceProvider(ctx, log, apm.Settings{
		Provider:    apm.Provider(cfg.Telemetry.TraceProvider),
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	})
	cleanup = append(cleanup, func() { _ = traceProvider.Stop() })

	opts := []metrics.OptionFn{
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.NewPrometheusConfig()),
	}
	if apm.Provider(cfg.Telemetry.TraceProvider) == apm.OTLPGRPCProvider && cfg.Telemetry.OTLPEndpoint != "" {
		opts = append(opts, metrics.WithProviderConfig(metrics.NewOtelCollectorConfig(
			cfg.Telemetry.OTLPEndpoint, apm.ParseHeaders(cfg.Telemetry.OTLPHeaders), metrics.InsecureOtel)))
	}
	meterProvider, err := metrics.NewMetricProvider(ctx, opts...)
	if err != nil {
		log.Warn(ctx, "metrics disabled", "error", err)
		return cleanup
	}
	cleanup = append(cleanup, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = meterProvider.Shutdown(shutdownCtx)
	})

	port := cfg.Telemetry.PrometheusPort
	if port == 0 {
		port = 9090
	}
	promServer := metrics.NewPrometheusServer(port, nil)
	go func() {
		if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "prometheus server stopped", "error", err)
		}
	}()
	cleanup = append(cleanup, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = promServer.Shutdown(shutdownCtx)
	})
	log.Info(ctx, "prometheus metrics server started", "port", port)

	return cleanup
}

func newServeCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the route aggregation API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), flags.configPath)
		},
	}
}

func serve(ctx context.Context, configPath string) error {
	rt, err := bootstrap(ctx, configPath)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg, log := rt.cfg, rt.log
	log.Info(ctx, "starting swap aggregator", "version", version, "environment", cfg.App.Environment)

	if err := rt.mono.Health().Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.Server.HealthPort)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           otelhttp.NewHandler(rt.mono.Mux(), "api"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "api server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info(ctx, "shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "error stopping api server", "error", err)
	}
	if err := rt.mono.Health().Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "error stopping health server", "error", err)
	}
	return nil
}

type routesFlags struct {
	from, to, amount string
	chainID          uint64
	toChainID        uint64
	preference       string
	provider         string
	gasPreset        string
	slippage         float64
}

func newRoutesCommand(root *rootFlags) *cobra.Command {
	f := &routesFlags{}
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print ranked routes for a swap",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printRoutes(cmd, root.configPath, f)
		},
	}
	cmd.Flags().StringVar(&f.from, "from", "", "Source token symbol or address")
	cmd.Flags().StringVar(&f.to, "to", "", "Destination token symbol or address")
	cmd.Flags().StringVar(&f.amount, "amount", "", "Amount in source token units")
	cmd.Flags().Uint64Var(&f.chainID, "chain", 1, "Source chain id")
	cmd.Flags().Uint64Var(&f.toChainID, "to-chain", 0, "Destination chain id (defaults to --chain)")
	cmd.Flags().StringVar(&f.preference, "preference", "balanced", "balanced, speed, cost or security")
	cmd.Flags().StringVar(&f.provider, "provider", "", "Query only this provider")
	cmd.Flags().StringVar(&f.gasPreset, "gas-preset", "", "slow, standard, fast or instant")
	cmd.Flags().Float64Var(&f.slippage, "slippage", 0, "Slippage tolerance in percent")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func printRoutes(cmd *cobra.Command, configPath string, f *routesFlags) error {
	ctx := cmd.Context()
	rt, err := bootstrap(ctx, configPath)
	if err != nil {
		return err
	}
	defer rt.close()

	toChain := f.toChainID
	if toChain == 0 {
		toChain = f.chainID
	}
	registry := rt.mono.AssetRegistry()
	from, ok := registry.Resolve(f.chainID, f.from)
	if !ok {
		return fmt.Errorf("unknown token %q on chain %d", f.from, f.chainID)
	}
	to, ok := registry.Resolve(toChain, f.to)
	if !ok {
		return fmt.Errorf("unknown token %q on chain %d", f.to, toChain)
	}

	req := domain.RouteRequest{
		ClientID:          "cli",
		From:              from,
		To:                to,
		Amount:            f.amount,
		PreferredProvider: f.provider,
		Preference:        f.preference,
		GasPreset:         f.gasPreset,
	}
	if f.slippage > 0 {
		req.Slippage = quotingDomain.Some(f.slippage)
	}

	sr := rt.mono.Services()
	res, err := routingDI.GetAggregator(sr).GetRoutes(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPROVIDER\tPATH\tOUTPUT\tCONFIDENCE\tRISK\tGAS\tTIME")
	for i, r := range res.Routes {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.3f\t%.3f\t%d\t%s\n",
			i+1, r.Provider, r.PathSignature(), r.EstimatedOut.String(),
			r.Confidence, r.RiskScore, r.EstimatedGas, r.EstimatedTime)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(res.ProvidersFailed) > 0 {
		fmt.Fprintf(out, "\nproviders failed: %s\n", strings.Join(res.ProvidersFailed, ", "))
	}
	for _, line := range routingDI.GetInsights(sr).Insights(res.Routes) {
		fmt.Fprintf(out, "- %s\n", line)
	}
	return nil
}
