package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/config"
	"github.com/Ignat99/electric-sub000/pkg/design"
	"github.com/Ignat99/electric-sub000/pkg/tech"
)

var (
	// Global flags
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "vedit",
	Short: "Circuit editing core: Verilog compiler, cell clean-up, selection",
	Long: `vedit compiles structural Verilog into cells and netlists, runs the
bulk cell editing algorithms on design descriptions, and resolves clicks
and networks the way an interactive editor would.

Examples:
  vedit verilog parse adder.v                  # Show modules and diagnostics
  vedit verilog emit --format sc adder.v       # Silicon compiler commands
  vedit verilog build --layout adder.v         # Generate layout cells
  vedit cell cleanup chip.design top{lay}      # Clean up a cell
  vedit net show chip.design top{sch} clk      # Objects on a network
  vedit select at chip.design top{lay} 10 5    # What a click at (10,5) picks`,
	Version:       "0.9.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "settings file (YAML)")
}

// settings loads --config, or the defaults when none is given.
func settings() (*config.Settings, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// logger writes to the command's error stream; --verbose shows debug
// records, otherwise only warnings and errors.
func logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// loadCell reads a design file and finds one of its cells.
func loadCell(path, ref string) (*design.Design, *circuit.Cell, error) {
	d, err := design.LoadFile(path, tech.New())
	if err != nil {
		return nil, nil, err
	}
	c, err := d.Cell(ref)
	if err != nil {
		return nil, nil, err
	}
	return d, c, nil
}
