// Package commands implements the roomcore command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"roomcore/internal/config"
	"roomcore/internal/core"
	"roomcore/internal/infra/events"
	"roomcore/internal/inventory"
	"roomcore/internal/scene"
)

// app carries state shared by every subcommand.
type app struct {
	envFile string
	cfg     config.Config
	log     *slog.Logger
	stderr  io.Writer

	svc        *core.Service
	prometheus *core.PrometheusMetricsRecorder
	expvar     *core.ExpvarMetricsRecorder
	closers    []io.Closer
}

// Execute runs the command line against the process arguments.
func Execute() error {
	err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "roomcore:", err)
	}
	return err
}

// run executes one command line and releases whatever it opened.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, a := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close(ctx))
}

func newRootCmd(stdout, stderr io.Writer) (*cobra.Command, *app) {
	a := &app{stderr: stderr}
	root := &cobra.Command{
		Use:           "roomcore",
		Short:         "Place furniture across the zones of a virtual house",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.envFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = cfg.NewLogger(a.stderr)
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file merged under the environment")

	root.AddCommand(
		serveCmd(a),
		scenesCmd(a), zonesCmd(a), detectCmd(a),
		listCmd(a), placeCmd(a), moveCmd(a), positionCmd(a), removeCmd(a), unplacedCmd(a), resetCmd(a),
		breedsCmd(a),
	)
	return root, a
}

// open builds the placement service and hydrates it from storage.
func (a *app) open(ctx context.Context) (*core.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	reg, err := scene.Open(a.cfg.ScenesFile)
	if err != nil {
		return nil, err
	}
	gateway, err := core.OpenGateway(ctx, a.cfg.Storage)
	if err != nil {
		return nil, err
	}
	opts := []core.Option{
		core.WithLogger(a.log),
		core.WithRulesEngine(a.cfg.RulesEngine()),
		core.WithSnapshotKey(a.cfg.SnapshotKey),
		core.WithFlushTimeout(a.cfg.FlushTimeout),
	}
	switch a.cfg.Metrics {
	case config.MetricsExpvar:
		a.expvar = core.NewExpvarMetricsRecorder("")
		opts = append(opts, core.WithMetricsRecorder(a.expvar))
	case config.MetricsPrometheus:
		a.prometheus = core.NewPrometheusMetricsRecorder(prometheus.NewRegistry())
		opts = append(opts, core.WithMetricsRecorder(a.prometheus))
	}
	if a.cfg.AMQPURL != "" {
		pub, err := events.Dial(a.cfg.AMQPURL, events.WithQueue(a.cfg.AMQPQueue), events.WithLogger(a.log))
		if err != nil {
			if c, ok := gateway.(io.Closer); ok {
				_ = c.Close()
			}
			return nil, err
		}
		a.closers = append(a.closers, pub)
		opts = append(opts, core.WithAuditRecorder(pub))
	}

	svc := core.NewService(reg, gateway, inventory.Open(a.cfg.InventoryFile), opts...)
	a.svc = svc
	n, err := svc.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	a.log.Debug("service ready", "storage", a.cfg.Storage.Driver, "items", n)
	return svc, nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.svc != nil {
		errs = append(errs, a.svc.Close(ctx))
		a.svc = nil
	}
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
