package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

var outputFormats = []string{"text", "yaml", "json"}

// writeReport renders analyses in the given format. Text output is colored
// only when colored is set.
func writeReport(w io.Writer, analyses []*analysis, format string, colored bool) error {
	switch strings.ToLower(format) {
	case "", "text":
		writeText(w, analyses, newPalette(colored))
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(analyses); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case "json":
		out, err := marshalJSON(analyses, colored)
		if err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", out)
		return err
	default:
		return fmt.Errorf("unknown output format: %s (want one of %s)", format, strings.Join(outputFormats, ", "))
	}
}

func marshalJSON(v interface{}, colored bool) ([]byte, error) {
	if colored {
		return prettyjson.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

type palette struct {
	file, name, cost, dim func(a ...interface{}) string
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		file: mk(color.Bold),
		name: mk(color.FgCyan),
		cost: mk(color.FgGreen, color.Bold),
		dim:  mk(color.Faint),
	}
}

func writeText(w io.Writer, analyses []*analysis, p palette) {
	for i, a := range analyses {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, p.file(a.Path))
		for _, fn := range a.Functions {
			fmt.Fprintf(w, "  %s(%s) %s baseline %d",
				p.name(fn.Name), strings.Join(fn.Params, ", "), p.dim(fmt.Sprintf("line %d", fn.Line)), fn.Baseline)
			if saved := savingsText(fn); saved != "" {
				fmt.Fprintf(w, ", saves %s", saved)
			}
			fmt.Fprintln(w)
		}
		for _, site := range a.Calls {
			fmt.Fprintf(w, "  %s %s(%s) cost %s\n",
				p.dim(fmt.Sprintf("%d:%d", site.Line, site.Col)),
				p.name(site.Callee), constText(site.Const), p.cost(site.Cost))
		}
	}
}

// savingsText lists the parameters whose constness reclaims some cost.
func savingsText(fn *function) string {
	var parts []string
	for slot, s := range fn.Savings {
		if s > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", fn.Params[slot], s))
		}
	}
	return strings.Join(parts, " ")
}

// constText renders constant flags as "const, -, const".
func constText(flags []bool) string {
	parts := make([]string, len(flags))
	for i, c := range flags {
		if c {
			parts[i] = "const"
		} else {
			parts[i] = "-"
		}
	}
	return strings.Join(parts, ", ")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
