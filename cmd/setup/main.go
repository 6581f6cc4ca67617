// Command setup prepares a checkout of the toolkit: it checks the Go toolchain, creates the
// working directories, downloads dependencies and verifies the build.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/cppla/pdftoolkit/provision"
)

func newApp(runner provision.Runner) *cli.App {
	return &cli.App{
		Name:  "setup",
		Usage: "prepare this checkout for running the PDF toolkit",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Value: ".", Usage: "project root"},
			&cli.BoolFlag{Name: "skip-venv", Aliases: []string{"SkipVenv"}, Usage: "use the ambient module cache instead of " + provision.EnvDirName},
			&cli.BoolFlag{Name: "force", Aliases: []string{"Force"}, Usage: "recreate " + provision.EnvDirName + " if it exists"},
			&cli.BoolFlag{Name: "keep-venv", Usage: "keep an existing " + provision.EnvDirName + " (overrides --force)"},
		},
		Action: func(c *cli.Context) error {
			st := provision.NewState(provision.Options{
				Root:    c.String("root"),
				SkipEnv: c.Bool("skip-venv"),
				Force:   c.Bool("force"),
				KeepEnv: c.Bool("keep-venv"),
			}, runner)

			printer := provision.NewPrinter(c.App.Writer)
			wf := provision.DefaultPlan()
			wf.Observer = printer.Step
			rep := wf.Run(c.Context, st)
			printer.Summary(rep)
			if !rep.OK() {
				return cli.Exit("", rep.ExitCode())
			}
			return nil
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(provision.ExecRunner{}).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
