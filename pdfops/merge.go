package pdfops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"

	"github.com/cppla/pdftoolkit/utils"
)

// Merge concatenates inputs into out. ranges[i], when present and not "all", restricts the
// pages taken from inputs[i]; out-of-range pages are silently dropped.
func (p *Processor) Merge(ctx context.Context, inputs []string, ranges []string, out string) error {
	if len(inputs) < 2 {
		return utils.ValidationError(utils.CodeInsufficientFiles, "At least 2 valid PDF files required")
	}

	work, err := os.MkdirTemp(filepath.Dir(out), ".merge-*")
	if err != nil {
		return utils.ProcessingError(utils.CodeMergeFailed, "Failed to merge PDFs", err)
	}
	defer os.RemoveAll(work)

	parts := make([]string, 0, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i >= len(ranges) || ranges[i] == "" || ranges[i] == "all" {
			if _, err := os.Stat(in); err != nil {
				return utils.ClassifyProcessingError(err)
			}
			parts = append(parts, in)
			continue
		}

		total, err := p.PageCount(ctx, in)
		if err != nil {
			return utils.ProcessingError(utils.CodeMergeFailed, "Failed to merge PDFs", err)
		}
		pages, err := ClipPageRange(ranges[i], total)
		if err != nil {
			return err
		}
		if len(pages) == 0 {
			// nothing selected from this input
			continue
		}
		trimmed := filepath.Join(work, fmt.Sprintf("%d_%s.pdf", i, uuid.NewString()))
		if err := api.TrimFile(in, trimmed, PageSelection(pages), newConf()); err != nil {
			return utils.ProcessingError(utils.CodeMergeFailed, "Failed to merge PDFs", err)
		}
		parts = append(parts, trimmed)
	}

	if len(parts) == 0 {
		return utils.ValidationError(utils.CodeNoPages, "No valid pages specified")
	}
	if err := api.MergeCreateFile(parts, out, false, newConf()); err != nil {
		return utils.ProcessingError(utils.CodeMergeFailed, "Failed to merge PDFs", err)
	}
	p.log().Debug("merged documents", zap.Int("inputs", len(inputs)), zap.String("out", out))
	return nil
}
