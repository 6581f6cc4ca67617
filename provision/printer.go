package provision

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Printer writes one line per step result, coloured by status.
type Printer struct {
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer { return &Printer{out: out} }

var statusStyle = map[Status]struct {
	mark string
	c    *color.Color
}{
	StatusOK:      {"✓", color.New(color.FgGreen)},
	StatusWarning: {"!", color.New(color.FgYellow)},
	StatusFailed:  {"✗", color.New(color.FgRed, color.Bold)},
	StatusSkipped: {"-", color.New(color.Faint)},
}

// Step is suitable as Workflow.Observer.
func (p *Printer) Step(r StepResult) {
	style := statusStyle[r.Status]
	style.c.Fprintf(p.out, "%s %-24s", style.mark, r.Name)
	switch {
	case r.Err != nil:
		fmt.Fprintf(p.out, " %v\n", r.Err)
	case r.Detail != "":
		fmt.Fprintf(p.out, " %s\n", r.Detail)
	default:
		fmt.Fprintln(p.out)
	}
}

// Summary prints the closing lines of a run.
func (p *Printer) Summary(rep Report) {
	fmt.Fprintln(p.out)
	if !rep.OK() {
		color.New(color.FgRed, color.Bold).Fprintf(p.out, "Setup failed at %s\n", rep.Aborted)
		return
	}
	if n := len(rep.Warnings()); n > 0 {
		color.New(color.FgYellow).Fprintf(p.out, "Setup completed with %d warning(s)\n", n)
	} else {
		color.New(color.FgGreen, color.Bold).Fprintln(p.out, "Setup completed successfully")
	}
	fmt.Fprintln(p.out, "Start the server with: go run .")
}
