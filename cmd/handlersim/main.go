// cmd/handlersim/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgPath string
	verbose bool

	// Overrides (applied on top of the file)
	listenAddr  string
	sites       int
	devices     int
	pattern     string
	reprobe     string
	autoStart   bool
	queryError  bool
	corruptBins bool

	logger *zap.Logger
)

// rootCmd runs the simulator.
var rootCmd = &cobra.Command{
	Use:   "handlersim",
	Short: "Test handler simulator",
	Long: `handlersim simulates a device handler for tester driver development.

It loads devices into test sites following a site pattern, accepts bin
results over a line oriented TCP command link and reports yield
statistics when the lot is complete.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runSimulator,
}

// checkCmd validates the configuration and prints the effective result.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and print the effective settings",
	RunE:  runCheck,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.PersistentFlags().StringVar(&listenAddr, "listen", "", "Command link address (host:port)")
	rootCmd.PersistentFlags().IntVarP(&sites, "sites", "n", 0, "Number of sites")
	rootCmd.PersistentFlags().IntVarP(&devices, "devices", "d", 0, "Devices to test, -1 tests continuously")
	rootCmd.PersistentFlags().StringVar(&pattern, "pattern", "", "Site pattern: all | one")
	rootCmd.PersistentFlags().StringVar(&reprobe, "reprobe", "", "Reprobe mode: ignore | separate | add")
	rootCmd.PersistentFlags().BoolVar(&autoStart, "auto-start", false, "Start handling on boot")
	rootCmd.PersistentFlags().BoolVarP(&queryError, "query-error", "Q", false, "Corrupt every 7th query reply")
	rootCmd.PersistentFlags().BoolVar(&corruptBins, "corrupt-bins", false, "Corrupt verified bin data")

	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
