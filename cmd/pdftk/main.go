// Command pdftk sends local files to a PDF toolkit server and saves the results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// last resort: report instead of dumping a goroutine trace
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "pdftk: unexpected error: %v\n", r)
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
