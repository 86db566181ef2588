package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/design"
	"github.com/Ignat99/electric-sub000/pkg/edit"
	"github.com/Ignat99/electric-sub000/pkg/highlight"
)

var (
	alignNodes      []string
	alignHorizontal bool
	alignLow        bool
	alignHigh       bool
	alignGrid       bool
	rotateAngle     int
	rotateMirror    string
	ripArcs         []string
)

var cellCmd = &cobra.Command{
	Use:   "cell",
	Short: "Bulk editing of a cell in a design description",
	Long: `Commands that plan edits to one cell of a design description and
apply them to the in-memory copy. The design file itself is not changed.`,
}

var cellCleanupCmd = &cobra.Command{
	Use:   "cleanup <design> <cell>",
	Short: "Remove unused pins and duplicate arcs, shrink pins, flag problems",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlan(cmd, args, func(p *edit.Planner, c *circuit.Cell) edit.Result {
			return p.Cleanup(c)
		})
	},
}

var cellRedundantCmd = &cobra.Command{
	Use:   "redundant <design> <cell>",
	Short: "Find pure-layer nodes covered by other nodes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlan(cmd, args, func(p *edit.Planner, c *circuit.Cell) edit.Result {
			return p.Redundant(c)
		})
	},
}

var cellAlignCmd = &cobra.Command{
	Use:   "align <design> <cell>",
	Short: "Align nodes to each other or to the grid",
	Long: `Align the named nodes. Without a direction flag the centers line up;
--low and --high line up the left/bottom or right/top edges. With --grid
the nodes snap to the alignment grid instead.

Examples:
  vedit cell align chip.design top --nodes a,b,c --horizontal
  vedit cell align chip.design top --nodes a,b --high
  vedit cell align chip.design top --nodes a,b --grid`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if alignLow && alignHigh {
			return fmt.Errorf("--low and --high are exclusive")
		}
		dir := edit.AlignCenter
		switch {
		case alignLow:
			dir = edit.AlignLow
		case alignHigh:
			dir = edit.AlignHigh
		}
		return runSelection(cmd, args, alignNodes, func(p *edit.Planner, sel []highlight.Highlight) edit.Result {
			if alignGrid {
				return p.AlignToGrid(sel)
			}
			return p.AlignNodes(sel, alignHorizontal, dir)
		})
	},
}

var cellRotateCmd = &cobra.Command{
	Use:   "rotate <design> <cell>",
	Short: "Rotate or mirror nodes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSelection(cmd, args, alignNodes, func(p *edit.Planner, sel []highlight.Highlight) edit.Result {
			switch rotateMirror {
			case "":
				return p.Rotate(sel, rotateAngle)
			case "x":
				return p.Mirror(sel, true)
			case "y":
				return p.Mirror(sel, false)
			}
			return edit.Result{Message: fmt.Sprintf("unknown mirror axis %q", rotateMirror)}
		})
	},
}

var cellRipCmd = &cobra.Command{
	Use:   "rip <design> <cell>",
	Short: "Rip bus arcs into their individual wires",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSelection(cmd, args, ripArcs, func(p *edit.Planner, sel []highlight.Highlight) edit.Result {
			return p.RipBus(sel)
		})
	},
}

func init() {
	rootCmd.AddCommand(cellCmd)
	cellCmd.AddCommand(cellCleanupCmd, cellRedundantCmd, cellAlignCmd, cellRotateCmd, cellRipCmd)

	for _, c := range []*cobra.Command{cellAlignCmd, cellRotateCmd} {
		c.Flags().StringSliceVarP(&alignNodes, "nodes", "n", nil, "names of the nodes to work on")
	}
	cellAlignCmd.Flags().BoolVar(&alignHorizontal, "horizontal", false, "move nodes sideways (line up X)")
	cellAlignCmd.Flags().BoolVar(&alignLow, "low", false, "line up left or bottom edges")
	cellAlignCmd.Flags().BoolVar(&alignHigh, "high", false, "line up right or top edges")
	cellAlignCmd.Flags().Bool("center", true, "line up centers (the default)")
	cellAlignCmd.Flags().BoolVar(&alignGrid, "grid", false, "snap to the alignment grid")
	cellRotateCmd.Flags().IntVar(&rotateAngle, "angle", 900, "rotation in tenths of a degree")
	cellRotateCmd.Flags().StringVar(&rotateMirror, "mirror", "", "mirror about x or y instead of rotating")
	cellRipCmd.Flags().StringSliceVarP(&ripArcs, "arcs", "a", nil, "names of the bus arcs to rip")
}

func newPlanner(cmd *cobra.Command, d *design.Design) (*edit.Planner, error) {
	s, err := settings()
	if err != nil {
		return nil, err
	}
	return edit.NewPlanner(
		edit.WithAlignment(s.Alignment),
		edit.WithTech(d.Tech),
		edit.WithLogger(logger(cmd)),
	), nil
}

func runPlan(cmd *cobra.Command, args []string, plan func(*edit.Planner, *circuit.Cell) edit.Result) error {
	d, c, err := loadCell(args[0], args[1])
	if err != nil {
		return err
	}
	p, err := newPlanner(cmd, d)
	if err != nil {
		return err
	}
	return report(cmd, d, plan(p, c))
}

func runSelection(cmd *cobra.Command, args, names []string, plan func(*edit.Planner, []highlight.Highlight) edit.Result) error {
	d, c, err := loadCell(args[0], args[1])
	if err != nil {
		return err
	}
	var sel []highlight.Highlight
	for _, name := range names {
		var obj circuit.Object
		if n := c.FindNode(name); n != nil {
			obj = n
		} else if a := c.FindArc(name); a != nil {
			obj = a
		} else {
			return fmt.Errorf("%s has no node or arc %q", c.Describe(), name)
		}
		sel = append(sel, highlight.NewObject(obj))
	}
	p, err := newPlanner(cmd, d)
	if err != nil {
		return err
	}
	return report(cmd, d, plan(p, sel))
}

// report prints the outcome of a plan and applies its changes.
func report(cmd *cobra.Command, d *design.Design, res edit.Result) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.Message)
	for _, f := range res.Flagged {
		mark := " "
		if o, ok := f.(*highlight.Object); ok && o.IsError() {
			mark = "!"
		}
		fmt.Fprintf(out, " %s %s\n", mark, f.Info())
	}
	if res.IsEmpty() {
		return nil
	}
	if _, err := d.DB.Apply(res.Changes); err != nil {
		return fmt.Errorf("failed to apply changes: %w", err)
	}
	fmt.Fprintf(out, "applied: %s\n", res.Changes.Summary())
	if verbose {
		for _, n := range res.Changes.Cell.Nodes() {
			fmt.Fprintf(out, "  %-12s %s %gx%g\n", n.Name(), n.Center(), n.Width(), n.Height())
		}
	}
	return nil
}
