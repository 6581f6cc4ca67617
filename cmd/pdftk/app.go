package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/cppla/pdftoolkit/client"
	"github.com/cppla/pdftoolkit/config"
	"github.com/cppla/pdftoolkit/notify"
	"github.com/cppla/pdftoolkit/utils"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "pdftk",
		Usage: "merge, split, compress, convert, unlock and inspect PDFs on a toolkit server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Value:   client.DefaultServer,
				Usage:   "toolkit server address",
				EnvVars: []string{"PDFTK_SERVER"},
			},
			&cli.StringFlag{
				Name:  "out",
				Value: ".",
				Usage: "directory for downloaded results",
			},
			&cli.BoolFlag{
				Name:  "no-download",
				Usage: "print the result without downloading it",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 5 * time.Minute,
				Usage: "HTTP timeout per request",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "debug logging on stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "merge",
				Usage:     "combine two or more PDFs in order",
				ArgsUsage: "FILE FILE [FILE...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "ranges", Usage: `pages per file, e.g. "1-3;all;2"`},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() < 2 {
						return cli.Exit("merge needs at least two files", 1)
					}
					fields := map[string]string{}
					if r := c.String("ranges"); r != "" {
						fields["page_ranges"] = r
					}
					return submit(c, job{endpoint: client.Merge, field: "files", fields: fields})
				},
			},
			{
				Name:      "split",
				Usage:     "split a PDF into parts (zipped)",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Value: "pages", Usage: "pages, ranges or single"},
					&cli.IntFlag{Name: "pages-per-file", Value: 1, Usage: "pages in each part for --type pages"},
					&cli.StringFlag{Name: "ranges", Usage: `ranges for --type ranges, e.g. "1-3,5"`},
				},
				Action: func(c *cli.Context) error {
					if err := oneArg(c); err != nil {
						return err
					}
					fields := map[string]string{
						"split_type":     c.String("type"),
						"pages_per_file": strconv.Itoa(c.Int("pages-per-file")),
					}
					if r := c.String("ranges"); r != "" {
						fields["page_ranges"] = r
					}
					return submit(c, job{endpoint: client.Split, field: "file", fields: fields})
				},
			},
			{
				Name:      "compress",
				Usage:     "reduce the size of a PDF",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "level", Value: "medium", Usage: "low, medium or high"},
				},
				Action: func(c *cli.Context) error {
					if err := oneArg(c); err != nil {
						return err
					}
					return submit(c, job{endpoint: client.Compress, field: "file",
						fields: map[string]string{"compression_level": c.String("level")}})
				},
			},
			{
				Name:      "convert",
				Usage:     "turn images into a PDF, or a PDF into images",
				ArgsUsage: "FILE [FILE...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "to", Value: "pdf", Usage: "pdf or images"},
					&cli.StringFlag{Name: "format", Value: "PNG", Usage: "image format for --to images"},
					&cli.IntFlag{Name: "dpi", Value: 200, Usage: "resolution for --to images"},
				},
				Action: func(c *cli.Context) error {
					switch c.String("to") {
					case "pdf":
						if c.NArg() == 0 {
							return cli.Exit("convert needs at least one image", 1)
						}
						return submit(c, job{endpoint: client.Convert, field: "files", images: true,
							fields: map[string]string{"conversion_type": "images_to_pdf"}})
					case "images":
						if err := oneArg(c); err != nil {
							return err
						}
						return submit(c, job{endpoint: client.Convert, field: "file", fields: map[string]string{
							"conversion_type": "pdf_to_images",
							"image_format":    c.String("format"),
							"dpi":             strconv.Itoa(c.Int("dpi")),
						}})
					default:
						return cli.Exit("--to must be pdf or images", 1)
					}
				},
			},
			{
				Name:      "unlock",
				Usage:     "remove the password from a PDF",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "password", Usage: "known password; common passwords are tried when empty"},
				},
				Action: func(c *cli.Context) error {
					if err := oneArg(c); err != nil {
						return err
					}
					fields := map[string]string{}
					if pw := c.String("password"); pw != "" {
						fields["password"] = pw
					}
					return submit(c, job{endpoint: client.Unlock, field: "file", fields: fields})
				},
			},
			{
				Name:      "info",
				Usage:     "show page count, metadata and encryption of a PDF",
				ArgsUsage: "FILE",
				Action: func(c *cli.Context) error {
					if err := oneArg(c); err != nil {
						return err
					}
					return submit(c, job{endpoint: client.PDFInfo, field: "file"})
				},
			},
		},
	}
}

func oneArg(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit(c.Command.Name+" takes exactly one file", 1)
	}
	return nil
}

type job struct {
	endpoint client.Endpoint
	field    string
	fields   map[string]string
	images   bool
}

// submit runs intake, submission and download for the command's arguments.
func submit(c *cli.Context, j job) error {
	level := "warn"
	if c.Bool("verbose") {
		level = "debug"
	}
	logger := utils.NewConsoleLogger(level)
	defer logger.Sync() //nolint:errcheck

	cfg, err := client.NewConfig(c.String("server"), c.Duration("timeout"), config.DefaultLimits())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	board := notify.NewBoard(notify.NewConsole(c.App.ErrWriter, c.Bool("verbose")))

	allowed := cfg.PDFTypes()
	if j.images {
		allowed = cfg.ImageTypes()
	}
	var batch client.Batch
	client.NewIntake(cfg, board).AcceptPaths(c.Args().Slice(), allowed, func(b client.Batch) { batch = b })
	if batch.Len() == 0 {
		return cli.Exit("no valid files to upload", 1)
	}

	form := client.NewForm().AddBatch(j.field, batch)
	for _, k := range sortedKeys(j.fields) {
		form.AddField(k, j.fields[k])
	}

	s := client.NewSubmitter(cfg, board, client.WithLogger(logger))
	var downloadErr error
	out := s.Submit(c.Context, j.endpoint, form, client.NewButton(string(j.endpoint)),
		func(payload map[string]any) {
			printPayload(c.App.Writer, payload)
			url, _ := payload["download_url"].(string)
			if url == "" || c.Bool("no-download") {
				return
			}
			path, err := s.Download(c.Context, url, c.String("out"))
			if err != nil {
				logger.Error("download failed", zap.String("url", url), zap.Error(err))
				downloadErr = err
				return
			}
			fmt.Fprintf(c.App.Writer, "saved %s\n", path)
		},
		func(payload map[string]any) {
			logger.Debug("submission failed", zap.Any("payload", payload))
		})

	if !out.Success {
		return cli.Exit("", 1)
	}
	if downloadErr != nil {
		return cli.Exit("download failed: "+downloadErr.Error(), 1)
	}
	return nil
}

// printPayload writes the result fields, one per line. Nested values are shown as JSON.
func printPayload(w io.Writer, payload map[string]any) {
	for _, k := range sortedKeys(payload) {
		if k == "success" || k == "download_url" {
			continue
		}
		switch v := payload[k].(type) {
		case map[string]any, []any:
			b, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "%s: %s\n", k, b)
		default:
			fmt.Fprintf(w, "%s: %v\n", k, v)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

