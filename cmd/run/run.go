// Package run implements the long-running node command.
package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/proxnode/internal/api"
	"github.com/tphakala/proxnode/internal/buildinfo"
	"github.com/tphakala/proxnode/internal/conf"
	"github.com/tphakala/proxnode/internal/logger"
	"github.com/tphakala/proxnode/internal/netcheck"
	"github.com/tphakala/proxnode/internal/node"
	"github.com/tphakala/proxnode/internal/notification"
	"github.com/tphakala/proxnode/internal/observability"
	"github.com/tphakala/proxnode/internal/scanner"
	"github.com/tphakala/proxnode/internal/telemetry"
	"github.com/tphakala/proxnode/internal/timeutil"
	"github.com/tphakala/proxnode/internal/uplink"
)

// Command creates the run command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scan cycle and report to the aggregator",
		Long:  "Scan for nearby transmitters, estimate their distance and report the device table to the aggregator until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, settings)
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags binds command-line overrides to their configuration keys.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("id", "", "Anchor id sent with every report")
	cmd.Flags().String("scanner", "", "Scanner backend (serial, pcap, simulated)")
	cmd.Flags().String("device", "", "Serial device of the radio module")
	cmd.Flags().String("pcap", "", "Capture file to replay")
	cmd.Flags().String("endpoint", "", "Aggregator HTTP endpoint")
	cmd.Flags().String("broker", "", "MQTT broker URL")
	cmd.Flags().Bool("api", false, "Serve the local status API")

	for key, flag := range map[string]string{
		"node.id":               "id",
		"scanner.type":          "scanner",
		"scanner.serial.device": "device",
		"scanner.pcap.path":     "pcap",
		"uplink.http.endpoint":  "endpoint",
		"uplink.mqtt.broker":    "broker",
		"api.enabled":           "api",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// Run wires the pipeline from settings and blocks until ctx is cancelled
// or a component fails.
func Run(ctx context.Context, settings *conf.Settings) error {
	log := logger.Global().Module("main")
	build := buildinfo.Current()
	clock := timeutil.RealClock{}
	anchorID := settings.Node.ID

	log.Info("starting proxnode",
		logger.String("version", build.Version()),
		logger.String("anchor_id", anchorID))

	if err := telemetry.Init(settings.Sentry, build.Version(), anchorID, nil); err != nil {
		return err
	}
	defer telemetry.Flush()

	m, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	sc, err := scanner.New(settings.ScannerConfig())
	if err != nil {
		return err
	}
	defer closeLogged(log, "scanner", sc.Close)

	up, err := uplink.New(settings.UplinkConfig(), anchorID, build.UserAgent(),
		uplink.TransportMetrics{HTTP: m.HTTP, MQTT: m.MQTT}, clock)
	if err != nil {
		return err
	}
	defer closeLogged(log, "uplink", up.Close)

	deps := node.Deps{
		Scanner:    sc,
		Uplink:     up,
		Attachment: netcheck.New(settings.Network.Check, settings.Network.Interface),
		Clock:      clock,
		Metrics:    m.Node,
	}
	if settings.Notify.Enabled {
		outage, err := notification.New(anchorID, settings.Notify, clock, m.Node)
		if err != nil {
			return err
		}
		defer closeLogged(log, "notifier", outage.Close)
		deps.Outage = outage
	}

	controller, err := node.New(deps, settings.NodeConfig())
	if err != nil {
		return err
	}

	var server *api.Server
	if settings.API.Enabled {
		server, err = api.New(settings.API, controller, build,
			api.WithMetricsHandler(m.Handler()),
			api.WithClock(clock))
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return controller.Run(gctx)
	})
	if server != nil {
		g.Go(func() error {
			return server.Run(gctx)
		})
	}

	err = g.Wait()
	log.Info("proxnode stopped")
	return err
}

func closeLogged(log logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Warn("close failed", logger.String("component", name), logger.Error(err))
	}
}
