// Command thestuu-engine runs the orchestration core of the TheStuu
// headless DAW: project model, backend IPC client, transport clock,
// mutation engine and client gateway, wired together and run until
// interrupted. All business configuration lives in internal/config; this
// layer only assembles components.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/thestuu/engine/internal/config"
	"github.com/thestuu/engine/internal/engine"
	"github.com/thestuu/engine/internal/gateway"
	"github.com/thestuu/engine/internal/ipc"
	"github.com/thestuu/engine/internal/obslog"
	"github.com/thestuu/engine/internal/persistence"
	"github.com/thestuu/engine/internal/transport"
)

var (
	version = "0.1.0-dev"

	logLevel string
	pretty   bool
)

func main() {
	root := &cobra.Command{
		Use:           "thestuu-engine",
		Short:         "Headless DAW orchestration core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&pretty, "pretty", true, "colored console log output")

	root.AddCommand(serveCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the engine version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the engine and serve clients until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			obslog.Configure(level, pretty)
			return serve()
		},
	}
}

func serve() error {
	log := obslog.New("main")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bridge := persistence.New(cfg.ProjectDir)
	if err := bridge.EnsureDir(); err != nil {
		return err
	}
	project, err := bridge.EnsureDefault(cfg.DefaultProjectFile)
	if err != nil {
		return err
	}

	var ipcClient *ipc.Client
	if cfg.BackendEnabled {
		ipcClient = ipc.New(ipc.Config{
			SocketPath:     cfg.BackendSocketPath,
			RequestTimeout: cfg.RequestTimeout,
			ReconnectDelay: cfg.ReconnectDelay,
		})
	} else {
		log.Info().Msg("backend disabled, transport clock will run in local fallback permanently")
	}

	clock := transport.New()
	clock.SetBPM(project.BPM)

	eng := engine.New(engine.Config{
		DefaultTrackCount:  cfg.DefaultTrackCount,
		DefaultProjectFile: cfg.DefaultProjectFile,
	}, project, ipcClient, clock, bridge, cfg.DefaultProjectFile)
	eng.BindIPC()

	gw := gateway.New(gateway.Config{
		Host:           cfg.EngineHost,
		Port:           cfg.EnginePort,
		BackendSocket:  cfg.BackendSocketPath,
		BackendEnabled: cfg.BackendEnabled,
	}, eng)
	eng.SetBroadcaster(gw)

	go eng.Run(ctx)

	if ipcClient != nil {
		if err := ipcClient.Start(ctx); err != nil {
			return err
		}
		defer ipcClient.Stop()
	}

	log.Info().
		Str("project", cfg.DefaultProjectFile).
		Str("dir", cfg.ProjectDir).
		Bool("backend", cfg.BackendEnabled).
		Msg("engine starting")
	return gw.ListenAndServe(ctx)
}
