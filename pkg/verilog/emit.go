package verilog

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const simBanner = `#*************************************************
#  Flat simulation netlist
#  Generated from structural Verilog
#*************************************************
`

const simTrailer = "#*************** End of netlist ****************\n"

const scBanner = `!*************************************************
!  Silicon compiler netlist
!  Generated from structural Verilog
!*************************************************
`

var simReplacer = strings.NewReplacer("/", "_", "[", "_", "]", "_")

func simName(s string) string {
	if s == "" {
		return "open"
	}
	return simReplacer.Replace(s)
}

func (c *Compiler) ensureNets() {
	if !c.processed {
		c.ProcessModules()
	}
}

func (c *Compiler) emitOrder() []*Module {
	var out []*Module
	for _, m := range c.dependencyOrder() {
		if m.Defined {
			out = append(out, m)
		}
	}
	return out
}

// WriteSim writes every defined module in the simulation netlist format:
// a model line per module and an instance line per instance, signals
// resolved through assign aliases.
func (c *Compiler) WriteSim(w io.Writer) error {
	c.ensureNets()
	bw := bufio.NewWriter(w)
	bw.WriteString(simBanner)
	for _, m := range c.emitOrder() {
		var ports []string
		for _, p := range m.Ports {
			for _, b := range p.Bits() {
				ports = append(ports, simName(b))
			}
		}
		fmt.Fprintf(bw, "model %s(%s)\n", simName(m.Name), strings.Join(ports, ","))
		for _, inst := range m.Instances {
			var sigs []string
			for _, conn := range inst.Conns {
				for _, s := range conn.Signals {
					if s != "" {
						s = m.Resolve(s)
					}
					sigs = append(sigs, simName(s))
				}
			}
			fmt.Fprintf(bw, "%s: %s(%s)\n", simName(inst.Name), simName(inst.Kind()), strings.Join(sigs, ","))
		}
	}
	bw.WriteString(simTrailer)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("verilog: write sim: %w", err)
	}
	return nil
}

func scPort(r PortRef) string {
	if r.Bus {
		return bitName(r.Port, r.Index)
	}
	return r.Port
}

// WriteSC writes every defined module as silicon compiler commands: the
// cell, its instances, one connect per neighboring pair on each net and an
// export per formal port bit.
func (c *Compiler) WriteSC(w io.Writer) error {
	c.ensureNets()
	bw := bufio.NewWriter(w)
	bw.WriteString(scBanner)
	for _, m := range c.emitOrder() {
		fmt.Fprintf(bw, "create cell %s\n", m.Name)
		for _, inst := range m.Instances {
			fmt.Fprintf(bw, "create instance %s %s\n", inst.Name, inst.Kind())
		}
		for _, net := range m.NetNames {
			refs := m.Nets[net]
			for i := 0; i+1 < len(refs); i++ {
				a, b := refs[i], refs[i+1]
				fmt.Fprintf(bw, "connect %s %s %s %s\n", a.Inst.Name, scPort(a), b.Inst.Name, scPort(b))
			}
		}
		for _, p := range m.Ports {
			for _, bit := range p.Bits() {
				refs := m.Nets[m.Resolve(bit)]
				if len(refs) == 0 {
					fmt.Fprintf(bw, "! DID NOT FIND EXPORT %s\n", bit)
					continue
				}
				fmt.Fprintf(bw, "export %s %s %s %s\n", refs[0].Inst.Name, scPort(refs[0]), bit, p.Mode)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("verilog: write sc: %w", err)
	}
	return nil
}
