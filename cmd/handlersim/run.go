// cmd/handlersim/run.go
package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/handler-simulator/internal/publisher"
	"github.com/tamzrod/handler-simulator/internal/runner"
	"github.com/tamzrod/handler-simulator/internal/transport/tcp"
)

func runSimulator(cmd *cobra.Command, args []string) error {
	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sim := cfg.Simulator

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Build pipeline
	// --------------------

	run, err := runner.Build(cfg, logger)
	if err != nil {
		return err
	}

	srv, err := tcp.Listen(tcp.Config{
		Address: sim.Listen.Address,
		EOC:     sim.Device.EOC(),
	}, run, logger.Named("tcp"))
	if err != nil {
		return err
	}

	pub, closePub, err := publisher.Build(sim, logger.Named("publisher"))
	switch {
	case errors.Is(err, publisher.ErrDisabled):
		logger.Debug("status memory disabled")
	case err != nil:
		return err
	default:
		defer func() { _ = closePub() }()
	}

	logger.Info("handler simulator starting",
		zap.String("lot_id", run.LotID()),
		zap.Int("sites", sim.Handler.Sites),
		zap.Int("devices_to_test", sim.Handler.DevicesToTest),
		zap.String("pattern", sim.Handler.Pattern),
		zap.String("reprobe_mode", sim.Handler.ReprobeMode),
		zap.Bool("status_memory", pub != nil))

	// --------------------
	// Supervise
	// --------------------

	events := make(chan runner.Event, 64)
	var pubEvents chan runner.Event
	if pub != nil {
		pubEvents = make(chan runner.Event, 64)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(events)
		run.Run(gctx, events)
		return nil
	})

	g.Go(func() error {
		return srv.Serve(gctx)
	})

	// fan-out: runner events to the command link and the status mirror
	g.Go(func() error {
		if pubEvents != nil {
			defer close(pubEvents)
		}
		for ev := range events {
			srv.Notify(ev)
			if pubEvents == nil {
				continue
			}
			select {
			case pubEvents <- ev:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	if pub != nil {
		g.Go(func() error {
			pub.Run(gctx, pubEvents)
			return nil
		})
	}

	err = g.Wait()
	logger.Info("handler simulator stopped")
	return err
}
