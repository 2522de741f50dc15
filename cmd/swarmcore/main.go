package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Vickeviking/SwarmSync-sub000/pkg/config"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/corebridge"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/log"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/metrics"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/moduleinit"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/storage"
	"github.com/Vickeviking/SwarmSync-sub000/pkg/workerexec"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "swarmcore",
	Short:   "SwarmSync Core - distributed job orchestration server",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"swarmcore version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the SwarmSync Core server",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		store, err := storage.NewBoltStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer store.Close()

		core := moduleinit.New(store, log.Logger, moduleinit.Config{
			UDPListenAddr:         cfg.UDP.ListenAddr,
			DispatcherUnreachable: 2 * time.Second,
			ArchiveHorizon:        time.Duration(cfg.Archive.RetentionDays) * 24 * time.Hour,
			Executor:              workerexec.NewSimulator(),
		})

		// Subscribe the bridge before Startup fires so it observes the
		// event and flips its health status to SERVING.
		bridge := corebridge.New(core.Bus())
		core.Startup()
		log.Info("core modules started")

		go func() {
			if err := bridge.Run(cfg.GRPC.ListenAddr); err != nil {
				log.Logger.Error().Err(err).Msg("corebridge server error")
			}
		}()
		log.Logger.Info().Str("addr", cfg.GRPC.ListenAddr).Msg("gRPC bridge listening")

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Logger.Error().Err(err).Msg("metrics server error")
			}
		}()
		log.Logger.Info().Str("addr", cfg.Metrics.ListenAddr).Msg("metrics endpoint listening")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			log.Info("shutting down")
		case fatalErr := <-core.Fatal():
			log.Logger.Error().Err(fatalErr).Msg("fatal module startup failure, shutting down")
			core.Shutdown()
			_ = metricsServer.Close()
			return fatalErr
		}

		core.Shutdown()
		_ = metricsServer.Close()
		log.Info("shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("config", "", "Path to YAML config file")
}
