package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ignat99/electric-sub000/pkg/tech"
	"github.com/Ignat99/electric-sub000/pkg/verilog"
	"github.com/Ignat99/electric-sub000/pkg/verilog/scfile"
)

var (
	emitFormat  string
	buildLayout bool
	buildLib    string
)

var verilogCmd = &cobra.Command{
	Use:   "verilog",
	Short: "Structural Verilog compiler",
	Long:  `Commands for compiling structural Verilog into netlists and cells`,
}

var verilogParseCmd = &cobra.Command{
	Use:   "parse <file.v>",
	Short: "Show the modules of a Verilog file",
	Long: `Compile a Verilog file and list its modules with their ports, wires
and instances, followed by every warning and error.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerilogParse,
}

var verilogEmitCmd = &cobra.Command{
	Use:   "emit <file.v>",
	Short: "Write a flat netlist",
	Long: `Compile a Verilog file and write it to stdout as a simulation netlist
(--format sim) or as silicon compiler commands (--format sc).`,
	Args: cobra.ExactArgs(1),
	RunE: runVerilogEmit,
}

var verilogBuildCmd = &cobra.Command{
	Use:   "build <file.v>",
	Short: "Generate cells from a Verilog file",
	Long: `Compile a Verilog file into an in-memory library and list the cells
that were generated: schematics with icons, or layout with --layout.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerilogBuild,
}

var verilogCheckCmd = &cobra.Command{
	Use:   "check <file.sc>",
	Short: "Read back a silicon compiler command file",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerilogCheck,
}

func init() {
	rootCmd.AddCommand(verilogCmd)
	verilogCmd.AddCommand(verilogParseCmd, verilogEmitCmd, verilogBuildCmd, verilogCheckCmd)

	verilogEmitCmd.Flags().StringVarP(&emitFormat, "format", "f", "sim", "output format: sim or sc")
	verilogBuildCmd.Flags().BoolVar(&buildLayout, "layout", false, "generate layout instead of schematics")
	verilogBuildCmd.Flags().StringVar(&buildLib, "library", "verilog", "name of the generated library")
}

// compile reads a source file with the session settings.
func compile(cmd *cobra.Command, path string) (*verilog.Compiler, error) {
	s, err := settings()
	if err != nil {
		return nil, err
	}
	cs := s.Compiler
	if buildLayout {
		cs.Layout = true
	}
	c := verilog.New(verilog.WithSettings(cs), verilog.WithLogger(logger(cmd)))
	if err := c.ParseFile(path); err != nil {
		return nil, err
	}
	return c, nil
}

func printDiagnostics(w io.Writer, c *verilog.Compiler) {
	for _, d := range c.Diagnostics() {
		fmt.Fprintln(w, d.String())
	}
}

func compileErrors(path string) error {
	return fmt.Errorf("%s: %w", path, verilog.ErrCompileErrors)
}

func runVerilogParse(cmd *cobra.Command, args []string) error {
	c, err := compile(cmd, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, m := range c.Modules() {
		if !m.Defined {
			fmt.Fprintf(out, "module %s (not defined)\n", m.Name)
			continue
		}
		fmt.Fprintf(out, "module %s\n", m.String())
		var ports []string
		for _, p := range m.Ports {
			ports = append(ports, p.Mode.String()+" "+p.ExportName())
		}
		if len(ports) > 0 {
			fmt.Fprintf(out, "  ports: %s\n", strings.Join(ports, ", "))
		}
		fmt.Fprintf(out, "  wires: %d\n", len(m.Wires))
		fmt.Fprintf(out, "  instances: %d\n", len(m.Instances))
		if verbose {
			for _, inst := range m.Instances {
				fmt.Fprintf(out, "    %-12s %s\n", inst.Name, inst.Kind())
			}
		}
	}
	printDiagnostics(out, c)
	if c.HadErrors() {
		return compileErrors(args[0])
	}
	return nil
}

func runVerilogEmit(cmd *cobra.Command, args []string) error {
	c, err := compile(cmd, args[0])
	if err != nil {
		return err
	}
	if c.HadErrors() {
		printDiagnostics(cmd.ErrOrStderr(), c)
		return compileErrors(args[0])
	}
	switch emitFormat {
	case "sim":
		return c.WriteSim(cmd.OutOrStdout())
	case "sc":
		return c.WriteSC(cmd.OutOrStdout())
	default:
		return fmt.Errorf("unknown format %q (want sim or sc)", emitFormat)
	}
}

func runVerilogBuild(cmd *cobra.Command, args []string) error {
	c, err := compile(cmd, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if c.HadErrors() {
		printDiagnostics(out, c)
		return compileErrors(args[0])
	}
	ts := tech.New()
	db := ts.NewDatabase()
	lib := db.NewLibrary(buildLib)
	c.ProcessModules(lib)
	cells, err := c.Materialize(db, lib, ts)
	if err != nil {
		return fmt.Errorf("failed to build cells: %w", err)
	}
	fmt.Fprintf(out, "Library %s: %d cells\n", lib.Name(), len(cells))
	for _, cell := range cells {
		fmt.Fprintf(out, "  %-20s %3d nodes %3d arcs %3d exports\n",
			cell.Describe(), len(cell.Nodes()), len(cell.Arcs()), len(cell.Exports()))
	}
	return nil
}

func runVerilogCheck(cmd *cobra.Command, args []string) error {
	parser, err := scfile.NewParser()
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}
	file, err := parser.ParseFile(args[0])
	if err != nil {
		return err
	}
	cells, err := scfile.Build(file)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, c := range cells {
		fmt.Fprintln(out, c.Summary())
		if verbose {
			for _, net := range c.Netlist().Nets {
				var pins []string
				for _, p := range net.Pins {
					pins = append(pins, p.String())
				}
				fmt.Fprintf(out, "  net %d: %s\n", net.ID, strings.Join(pins, " "))
			}
		}
	}
	return nil
}
