package pdfops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/cppla/pdftoolkit/utils"
)

// SplitRange selects pages Start..End (1-based, inclusive) into <Name>.pdf.
type SplitRange struct {
	Start int
	End   int
	Name  string
}

// SplitByPageCount writes consecutive chunks of perFile pages as <base>_part_<n>.pdf.
func (p *Processor) SplitByPageCount(ctx context.Context, in, dir string, perFile int) ([]string, error) {
	if perFile < 1 {
		return nil, utils.ValidationError(utils.CodeInvalidPageRange, "Pages per file must be at least 1")
	}
	total, err := p.prepareSplit(ctx, in, dir)
	if err != nil {
		return nil, err
	}

	base := baseName(in)
	var created []string
	for start := 1; start <= total; start += perFile {
		end := min(start+perFile-1, total)
		out := filepath.Join(dir, fmt.Sprintf("%s_part_%d.pdf", base, (start-1)/perFile+1))
		if err := p.extract(ctx, in, out, start, end); err != nil {
			return created, err
		}
		created = append(created, out)
	}
	return created, nil
}

// SplitByRanges writes one file per range. Ranges are clipped to the document; a range
// left empty after clipping is skipped.
func (p *Processor) SplitByRanges(ctx context.Context, in, dir string, ranges []SplitRange) ([]string, error) {
	total, err := p.prepareSplit(ctx, in, dir)
	if err != nil {
		return nil, err
	}

	var created []string
	for i, r := range ranges {
		start := max(r.Start, 1)
		end := r.End
		if end == 0 || end > total {
			end = total
		}
		if start > end {
			continue
		}
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("split_%d", i+1)
		}
		out := filepath.Join(dir, name+".pdf")
		if err := p.extract(ctx, in, out, start, end); err != nil {
			return created, err
		}
		created = append(created, out)
	}
	return created, nil
}

// SplitPages writes every page to <base>_page_<n>.pdf.
func (p *Processor) SplitPages(ctx context.Context, in, dir string) ([]string, error) {
	total, err := p.prepareSplit(ctx, in, dir)
	if err != nil {
		return nil, err
	}

	base := baseName(in)
	created := make([]string, 0, total)
	for page := 1; page <= total; page++ {
		out := filepath.Join(dir, fmt.Sprintf("%s_page_%d.pdf", base, page))
		if err := p.extract(ctx, in, out, page, page); err != nil {
			return created, err
		}
		created = append(created, out)
	}
	return created, nil
}

func (p *Processor) prepareSplit(ctx context.Context, in, dir string) (int, error) {
	total, err := p.PageCount(ctx, in)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, utils.ClassifyProcessingError(err)
		}
		return 0, utils.ProcessingError(utils.CodeSplitFailed, "Failed to split PDF", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, utils.ClassifyProcessingError(err)
	}
	return total, nil
}

func (p *Processor) extract(ctx context.Context, in, out string, start, end int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sel := []string{fmt.Sprintf("%d-%d", start, end)}
	if start == end {
		sel = []string{fmt.Sprint(start)}
	}
	if err := api.TrimFile(in, out, sel, newConf()); err != nil {
		return utils.ProcessingError(utils.CodeSplitFailed, "Failed to split PDF", err)
	}
	return nil
}
