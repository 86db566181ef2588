package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Ignat99/electric-sub000/pkg/geom"
	"github.com/Ignat99/electric-sub000/pkg/highlight"
)

var (
	selectAnother int
	selectScale   float64
	selectHard    bool
	selectText    bool
	selectPort    bool
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Selection queries",
}

var selectAtCmd = &cobra.Command{
	Use:   "at <design> <cell> <x> <y>",
	Short: "Show what a click at a point selects",
	Long: `Resolve a click at (x, y) in a cell. --another repeats the click that
many times, stepping through the overlapping candidates the way repeated
clicks in an editor do.

A negative coordinate looks like a flag; put the arguments after "--".`,
	Example: `  vedit select at chip.design top 12 4
  vedit select at --another 1 -- chip.design top -10 0`,
	Args: cobra.ExactArgs(4),
	RunE: runSelectAt,
}

func init() {
	rootCmd.AddCommand(selectCmd)
	selectCmd.AddCommand(selectAtCmd)
	selectAtCmd.Flags().IntVar(&selectAnother, "another", 0, "step to the next candidate this many times")
	selectAtCmd.Flags().Float64Var(&selectScale, "scale", 1, "database units per screen pixel")
	selectAtCmd.Flags().BoolVar(&selectHard, "hard", false, "include hard-to-select objects")
	selectAtCmd.Flags().BoolVar(&selectText, "text", false, "include text")
	selectAtCmd.Flags().BoolVar(&selectPort, "port", false, "select the closest port")
}

func runSelectAt(cmd *cobra.Command, args []string) error {
	_, c, err := loadCell(args[0], args[1])
	if err != nil {
		return err
	}
	x, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("bad x: %w", err)
	}
	y, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return fmt.Errorf("bad y: %w", err)
	}
	s, err := settings()
	if err != nil {
		return err
	}
	h := highlight.New(highlight.KindSelection,
		highlight.WithSettings(s.Selection),
		highlight.WithLogger(logger(cmd)))
	opts := highlight.ClickOptions{
		Exclusive:  true,
		HardToFind: selectHard,
		WantText:   selectText,
		WantPort:   selectPort,
	}
	pt := geom.Pt(x, y)
	out := cmd.OutOrStdout()
	for i := 0; i <= selectAnother; i++ {
		opts.Another = i > 0
		item := h.FindObject(c, pt, selectScale, opts)
		if item == nil {
			fmt.Fprintf(out, "nothing at %s\n", pt)
			return nil
		}
		if verbose || i == selectAnother {
			fmt.Fprintf(out, "%s\n", item.Info())
		}
	}
	return nil
}
