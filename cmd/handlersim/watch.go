// cmd/handlersim/watch.go
package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tamzrod/handler-simulator/internal/monitor"
	pmodbus "github.com/tamzrod/handler-simulator/internal/publisher/modbus"
	"github.com/tamzrod/handler-simulator/internal/status"
)

var watchInterval time.Duration

// watchCmd reads the status block back from status memory.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the status memory and log every change of the status block",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", time.Second, "Poll interval")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sm := cfg.Simulator.StatusMemory
	if sm == nil {
		return errors.New("watch: no status_memory section configured")
	}

	cli, err := pmodbus.Dial(pmodbus.Config{
		Endpoint: sm.Endpoint,
		Timeout:  time.Duration(sm.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	m, err := monitor.New(monitor.Config{
		UnitID:   sm.UnitID,
		BaseSlot: sm.BaseSlot,
		Interval: watchInterval,
	}, cli)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := make(chan monitor.Result)
	go m.Run(ctx, out)

	var last status.Snapshot
	first := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case res := <-out:
			if res.Err != nil {
				logger.Warn("status read failed", zap.String("endpoint", sm.Endpoint), zap.Error(res.Err))
				first = true
				continue
			}
			if !first && res.Snapshot == last {
				continue
			}
			first = false
			last = res.Snapshot
			fmt.Fprintf(cmd.OutOrStdout(), "%s model=%q population=0x%x handler=%d tested=%d ready=%t jammed=%t lot_complete=%t\n",
				res.At.Format(time.RFC3339), res.Model, res.Snapshot.Population, res.Snapshot.Handler,
				res.Snapshot.TestedDevices, res.Snapshot.Ready, res.Snapshot.Jammed, res.Snapshot.LotComplete)
		}
	}
}
