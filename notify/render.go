package notify

import (
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

type discard struct{}

func (discard) Shown(Record)   {}
func (discard) Removed(Record) {}

// Discard drops every event.
var Discard Renderer = discard{}

// Console prints shown notifications to a terminal, one line each, coloured by kind.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	colors  map[Kind]*color.Color
}

// NewConsole writes to out, or stderr when out is nil. Verbose also reports removals.
func NewConsole(out io.Writer, verbose bool) *Console {
	if out == nil {
		out = os.Stderr
	}
	return &Console{
		out:     out,
		verbose: verbose,
		colors: map[Kind]*color.Color{
			Success: color.New(color.FgGreen, color.Bold),
			Error:   color.New(color.FgRed, color.Bold),
			Warning: color.New(color.FgYellow),
			Info:    color.New(color.FgCyan),
		},
	}
}

func (c *Console) Shown(r Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	label := c.label(r.Kind)
	label.Fprintf(c.out, "[%s] ", r.Kind)
	_, _ = io.WriteString(c.out, r.Message+"\n")
}

func (c *Console) Removed(r Record) {
	if !c.verbose {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	color.New(color.Faint).Fprintf(c.out, "[%s] dismissed\n", r.Kind)
}

func (c *Console) label(k Kind) *color.Color {
	if col, ok := c.colors[k]; ok {
		return col
	}
	return color.New(color.Reset)
}
