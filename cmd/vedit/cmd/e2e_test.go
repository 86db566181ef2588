package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ignat99/electric-sub000/pkg/design"
	"github.com/Ignat99/electric-sub000/pkg/verilog"
)

const testDesign = `
(library work
  (cell top lay
    (node a cmos:Metal-1-Pin (at 1 1))
    (node b cmos:Metal-1-Pin (at 6 6))
    (node c cmos:Metal-1-Pin (at 11 1))
    (node stray cmos:Metal-1-Pin (at 40 40))
    (arc m1 cmos:Metal-1 (head a) (tail c))
    (arc m2 cmos:Metal-1 (head c) (tail a)))
  (cell layers lay
    (node big cmos:Metal-1-Node (at 0 0) (size 10 10))
    (node small cmos:Metal-1-Node (at 1 1) (size 2 2)))
  (cell inv sch
    (node n1 schematic:nmos (at 0 0))
    (node p1 schematic:Wire_Pin (at -10 0))
    (arc in schematic:wire (head p1) (tail n1 g))
    (export a p1 input)))
`

const testVerilog = "module M(a,b,y); input a,b; output y; wire w; nand g1(w,a,b); not g2(y,w); endmodule\n" +
	"module E(u); input u; endmodule\n"

// resetFlags puts every flag variable back to its default between runs.
func resetFlags() {
	verbose = false
	configPath = ""
	emitFormat = "sim"
	buildLayout = false
	buildLib = "verilog"
	alignNodes = nil
	alignHorizontal = false
	alignLow = false
	alignHigh = false
	alignGrid = false
	rotateAngle = 900
	rotateMirror = ""
	ripArcs = nil
	netDepth = 0
	selectAnother = 0
	selectScale = 1
	selectHard = false
	selectText = false
	selectPort = false
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestVerilogE2E(t *testing.T) {
	src := writeFile(t, "m.v", testVerilog)
	bad := writeFile(t, "bad.v", "module M(a);\n  input 5;\nendmodule\n")

	tests := []struct {
		name        string
		args        []string
		wantErr     error
		wantContain []string
	}{
		{
			name: "parse",
			args: []string{"verilog", "parse", src},
			wantContain: []string{
				"module M(a, b, y)",
				"ports: input a, input b, output y",
				"instances: 2",
				"module nand (not defined)",
				"module E(u)",
			},
		},
		{
			name:        "parse verbose lists instances",
			args:        []string{"verilog", "parse", "-v", src},
			wantContain: []string{"g1", "nand", "g2"},
		},
		{
			name:        "parse with errors",
			args:        []string{"verilog", "parse", bad},
			wantErr:     verilog.ErrCompileErrors,
			wantContain: []string{"error, line 2"},
		},
		{
			name:        "emit sim",
			args:        []string{"verilog", "emit", src},
			wantContain: []string{"model M(", "g1: nand("},
		},
		{
			name:        "emit sc",
			args:        []string{"verilog", "emit", "--format", "sc", src},
			wantContain: []string{"create cell M", "create instance g1 nand", "connect g1 p1 g2 p2"},
		},
		{
			name:        "build schematic",
			args:        []string{"verilog", "build", src},
			wantContain: []string{"Library verilog:", "M{sch}", "M{ic}", "nand{ic}"},
		},
		{
			name:        "build layout",
			args:        []string{"verilog", "build", "--layout", "--library", "chip", src},
			wantContain: []string{"Library chip:", "M{lay}"},
		},
		{
			name:    "build refuses errors",
			args:    []string{"verilog", "build", bad},
			wantErr: verilog.ErrCompileErrors,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), err.Error())
			} else {
				require.NoError(t, err, out)
			}
			for _, want := range tt.wantContain {
				assert.Contains(t, out, want)
			}
		})
	}

	_, err := run(t, "verilog", "emit", "--format", "edif", src)
	assert.ErrorContains(t, err, `unknown format "edif"`)
}

func TestVerilogCheckReadsEmittedCommands(t *testing.T) {
	src := writeFile(t, "m.v", testVerilog)
	sc, err := run(t, "verilog", "emit", "--format", "sc", src)
	require.NoError(t, err)

	out, err := run(t, "verilog", "check", writeFile(t, "m.sc", sc))
	require.NoError(t, err)
	assert.Contains(t, out, "M: 2 instances, 4 nets, 3 exports")
	assert.Contains(t, out, "E: 0 instances, 0 nets, 0 exports")

	out, err = run(t, "verilog", "check", "-v", writeFile(t, "m.sc", sc))
	require.NoError(t, err)
	assert.Contains(t, out, "g1.p1 g2.p2")

	_, err = run(t, "verilog", "check", writeFile(t, "stray.sc", "connect a b c d\n"))
	assert.Error(t, err)
}

func TestCellE2E(t *testing.T) {
	path := writeFile(t, "test.design", testDesign)
	noGrid := writeFile(t, "settings.yaml", "alignment:\n  grid: 0\n")

	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "cleanup",
			args:        []string{"cell", "cleanup", path, "top"},
			wantContain: []string{"removed 2 unused pins; removed 1 duplicate arcs", "applied: 3 deleted"},
		},
		{
			name:        "cleanup of a clean cell",
			args:        []string{"cell", "cleanup", path, "layers"},
			wantContain: []string{"nothing to clean"},
		},
		{
			name:        "redundant",
			args:        []string{"cell", "redundant", path, "layers{lay}"},
			wantContain: []string{"1 redundant pure-layer nodes", "Node small", "applied: 1 deleted"},
		},
		{
			name:        "align centers",
			args:        []string{"cell", "align", path, "top", "--nodes", "a,b,c", "--horizontal", "--center"},
			wantContain: []string{"aligned 2 nodes", "applied: 2 moved"},
		},
		{
			name:        "align to grid without a grid",
			args:        []string{"cell", "align", "--config", noGrid, path, "top", "--nodes", "a", "--grid"},
			wantContain: []string{"No alignment grid is set"},
		},
		{
			name:    "align low and high",
			args:    []string{"cell", "align", path, "top", "--nodes", "a", "--low", "--high"},
			wantErr: true,
		},
		{
			name:    "unknown node",
			args:    []string{"cell", "align", path, "top", "--nodes", "zz"},
			wantErr: true,
		},
		{
			name:        "rotate",
			args:        []string{"cell", "rotate", path, "top", "--nodes", "b"},
			wantContain: []string{"rotated 1 nodes", "applied: 1 moved"},
		},
		{
			name:        "mirror",
			args:        []string{"cell", "rotate", path, "top", "--nodes", "b", "--mirror", "x"},
			wantContain: []string{"mirrored 1 nodes"},
		},
		{
			name:        "rip needs a bus",
			args:        []string{"cell", "rip", path, "inv", "--arcs", "in"},
			wantContain: []string{"Must select named bus arcs to rip"},
		},
		{
			name:    "missing cell",
			args:    []string{"cell", "cleanup", path, "nowhere"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err, out)
			for _, want := range tt.wantContain {
				assert.Contains(t, out, want)
			}
		})
	}

	_, err := run(t, "cell", "cleanup", path, "nowhere")
	assert.True(t, errors.Is(err, design.ErrNoSuchCell))
}

func TestNetAndSelectE2E(t *testing.T) {
	path := writeFile(t, "test.design", testDesign)

	out, err := run(t, "net", "show", path, "inv", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "networks of inv{sch}")
	assert.Contains(t, out, "Arc in")
	assert.Contains(t, out, "n1.g")

	_, err = run(t, "net", "show", path, "inv", "nosuch")
	assert.ErrorContains(t, err, `no network "nosuch"`)

	out, err = run(t, "select", "at", "--", path, "inv", "-10", "0")
	require.NoError(t, err)
	assert.Equal(t, "Node p1\n", out)

	out, err = run(t, "select", "at", "--another", "1", "--", path, "inv", "-10", "0")
	require.NoError(t, err)
	assert.Equal(t, "Arc in\n", out)

	_, err = run(t, "select", "at", path, "inv", "-10", "0")
	assert.ErrorContains(t, err, "unknown shorthand flag")

	out, err = run(t, "select", "at", path, "inv", "100", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing at")

	_, err = run(t, "select", "at", path, "inv", "x", "0")
	assert.Error(t, err)
}
