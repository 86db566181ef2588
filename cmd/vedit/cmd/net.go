package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/highlight"
)

var netDepth int

var netCmd = &cobra.Command{
	Use:   "net",
	Short: "Network queries",
}

var netShowCmd = &cobra.Command{
	Use:   "show <design> <cell> <net>...",
	Short: "List the objects on networks, down the hierarchy",
	Long: `Resolve one or more named networks of a cell into the ports, arcs and
exports on them. --depth sets how many levels of subcells are entered;
objects inside subcells are listed as polygons placed in the top cell.`,
	Args: cobra.MinimumNArgs(3),
	RunE: runNetShow,
}

func init() {
	rootCmd.AddCommand(netCmd)
	netCmd.AddCommand(netShowCmd)
	netShowCmd.Flags().IntVarP(&netDepth, "depth", "d", 0, "hierarchy levels to enter")
}

func runNetShow(cmd *cobra.Command, args []string) error {
	_, c, err := loadCell(args[0], args[1])
	if err != nil {
		return err
	}
	nl := c.Netlist()
	var nets []*circuit.Network
	for _, name := range args[2:] {
		net := nl.FindNetwork(name)
		if net == nil {
			return fmt.Errorf("%s has no network %q", c.Describe(), name)
		}
		nets = append(nets, net)
	}
	items := highlight.ResolveNetworks(c, nl, nets, 0, netDepth)
	highlight.Sort(items)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d objects on %d networks of %s\n", len(items), len(nets), c.Describe())
	for _, item := range items {
		fmt.Fprintf(out, "  %s\n", item.Info())
	}
	return nil
}
