// Package output provides CLI output formatting utilities
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Printer writes human readable results. Logs go to stderr separately.
type Printer struct {
	out       io.Writer
	useColors bool
}

// ResolveColors enables colors only for a terminal stdout without NO_COLOR.
func ResolveColors(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return w == os.Stdout && !color.NoColor
}

func NewPrinter(out io.Writer, useColors bool) *Printer {
	return &Printer{out: out, useColors: useColors}
}

func (p *Printer) print(attr color.Attribute, prefix, format string, args ...any) {
	if p.useColors {
		c := color.New(attr)
		c.EnableColor()
		c.Fprintf(p.out, prefix+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, prefix+format+"\n", args...)
}

// Field prints an aligned "label: value" line.
func (p *Printer) Field(label, format string, args ...any) {
	fmt.Fprintf(p.out, "%-10s %s\n", label+":", fmt.Sprintf(format, args...))
}

// Success prints a success line
func (p *Printer) Success(format string, args ...any) {
	p.print(color.FgGreen, "✓ ", format, args...)
}

// Warning prints a warning line
func (p *Printer) Warning(format string, args ...any) {
	p.print(color.FgYellow, "⚠ ", format, args...)
}

// Error prints a failure line
func (p *Printer) Error(format string, args ...any) {
	p.print(color.FgRed, "✗ ", format, args...)
}

// Table renders rows under headers without borders.
func (p *Printer) Table(headers []string, rows [][]string) error {
	table := tablewriter.NewTable(p.out,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(headers)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
