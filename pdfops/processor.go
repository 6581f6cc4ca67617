// Package pdfops implements the document operations behind the /api endpoints.
// Merge, split, optimize, decrypt and image import are delegated to pdfcpu;
// rasterising pages shells out to poppler's pdftoppm.
package pdfops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/cppla/pdftoolkit/utils"
)

var disableConfigDirOnce sync.Once

// Processor runs document operations. It is safe for concurrent use; every call builds
// its own pdfcpu configuration.
type Processor struct {
	pdftoppm string
	logger   *zap.Logger
}

// Option customises a Processor.
type Option func(*Processor)

// WithPdftoppm sets the pdftoppm executable used by PDFToImages.
func WithPdftoppm(path string) Option {
	return func(p *Processor) {
		if path != "" {
			p.pdftoppm = path
		}
	}
}

// WithLogger sets the logger; the global logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// NewProcessor creates a Processor.
func NewProcessor(opts ...Option) *Processor {
	// pdfcpu would otherwise create a config dir under the user's home on first use
	disableConfigDirOnce.Do(api.DisableConfigDir)

	p := &Processor{pdftoppm: "pdftoppm"}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Processor) log() *zap.Logger {
	if p.logger != nil {
		return p.logger
	}
	return utils.L()
}

func newConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount returns the number of pages of the document at path.
func (p *Processor) PageCount(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	return api.PageCountFile(path)
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func fileSize(path string) int64 {
	st, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return st.Size()
}
