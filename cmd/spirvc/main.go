// Command spirvc compiles WGSL to SPIR-V and validates SPIR-V binaries.
//
//	spirvc -o shader.spv shader.wgsl
//	spirvc -validate shader.spv
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/nucleus-go/common/log"
	"github.com/Carmen-Shannon/nucleus-go/engine/shader"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, log.New(log.LevelWarn)); err != nil {
		fmt.Fprintln(os.Stderr, "spirvc:", err)
		os.Exit(1)
	}
}

// run parses args, compiles or validates every input and prints one summary line per module.
func run(args []string, stdout io.Writer, l log.Log) error {
	fs := flag.NewFlagSet("spirvc", flag.ContinueOnError)
	fs.SetOutput(stdout)
	var (
		output   = fs.String("o", "", "output file, only valid with a single WGSL input (default: input with .spv extension)")
		validate = fs.Bool("validate", false, "treat inputs as SPIR-V binaries and validate them")
		opcodes  = fs.Bool("opcodes", false, "print per-opcode instruction counts")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	inputs := fs.Args()
	if len(inputs) == 0 {
		return errors.New("no input files")
	}
	if *output != "" && len(inputs) > 1 {
		return errors.New("-o needs exactly one input")
	}

	var errs []error
	for _, in := range inputs {
		var (
			m   *shader.Module
			err error
		)
		if *validate {
			m, err = shader.ReadSPIRVFile(in)
		} else {
			m, err = compileFile(in, *output)
		}
		if err != nil {
			l.Error("shader failed", log.String("file", in), log.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", in, err))
			continue
		}
		fmt.Fprintf(stdout, "%s: SPIR-V %s, bound %d, %d instructions, %d functions\n",
			in, m.VersionString(), m.Bound, m.Instructions, m.Functions())
		if *opcodes {
			printOpcodes(stdout, m)
		}
	}
	return errors.Join(errs...)
}

func compileFile(in, out string) (*shader.Module, error) {
	src, err := os.ReadFile(in)
	if err != nil {
		return nil, err
	}
	m, err := shader.CompileSPIRV(string(src))
	if err != nil {
		return nil, err
	}
	if out == "" {
		out = strings.TrimSuffix(in, filepath.Ext(in)) + ".spv"
	}
	if err := os.WriteFile(out, m.Bytes(), 0o644); err != nil {
		return nil, err
	}
	return m, nil
}

func printOpcodes(w io.Writer, m *shader.Module) {
	ops := make([]int, 0, len(m.Opcodes))
	for op := range m.Opcodes {
		ops = append(ops, int(op))
	}
	sort.Ints(ops)
	for _, op := range ops {
		fmt.Fprintf(w, "  op %d: %d\n", op, m.Opcodes[uint16(op)])
	}
}
